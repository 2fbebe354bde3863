package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"game-building-server/game-service/internal/config"
	"game-building-server/shared/interfaces"
	"game-building-server/shared/models"
)

// Compile-time check to ensure authServiceImpl implements AuthService
var _ interfaces.AuthService = (*authServiceImpl)(nil)

// authServiceImpl implements the AuthService interface.
type authServiceImpl struct {
	playerRepo interfaces.PlayerRepository
	cfg        *config.AuthConfig
	logger     *zap.Logger
}

// NewAuthService creates a new instance of authServiceImpl.
func NewAuthService(playerRepo interfaces.PlayerRepository, cfg *config.AuthConfig, logger *zap.Logger) interfaces.AuthService {
	return &authServiceImpl{
		playerRepo: playerRepo,
		cfg:        cfg,
		logger:     logger.Named("AuthService"),
	}
}

// Register creates a new player with the default starting balance.
func (s *authServiceImpl) Register(ctx context.Context, username, email, password string) (*models.Player, string, error) {
	// Приводим email к нижнему регистру и убираем пробелы
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)

	logFields := []zap.Field{zap.String("username", username), zap.String("email", email)}
	s.logger.Info("Registering new player", logFields...)

	if username == "" || password == "" {
		s.logger.Warn("Registration attempt with empty username or password", logFields...)
		return nil, "", models.ErrInvalidInput
	}
	// Валидация формата email (простая)
	if _, err := mail.ParseAddress(email); err != nil {
		s.logger.Warn("Registration attempt with invalid email format", append(logFields, zap.Error(err))...)
		return nil, "", fmt.Errorf("invalid email format: %w", models.ErrInvalidInput)
	}

	// Проверка существования игрока по username
	existing, err := s.playerRepo.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, models.ErrPlayerNotFound) {
		s.logger.Error("Error checking existing username during registration", append(logFields, zap.Error(err))...)
		return nil, "", fmt.Errorf("error checking existing username: %w", err)
	}
	if existing != nil {
		s.logger.Warn("Registration attempt for existing username", logFields...)
		return nil, "", models.ErrUserAlreadyExists
	}

	// Проверка существования игрока по email
	existing, err = s.playerRepo.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, models.ErrPlayerNotFound) {
		s.logger.Error("Error checking existing email during registration", append(logFields, zap.Error(err))...)
		return nil, "", fmt.Errorf("error checking existing email: %w", err)
	}
	if existing != nil {
		s.logger.Warn("Registration attempt for existing email", logFields...)
		return nil, "", models.ErrEmailAlreadyExists
	}

	// Используем перец перед хешированием
	hashedPassword, err := hashPassword(password, s.cfg.PasswordPepper)
	if err != nil {
		s.logger.Error("Failed to hash password during registration", append(logFields, zap.Error(err))...)
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	player := models.NewPlayer(username, email, hashedPassword)
	if err := s.playerRepo.Create(ctx, player); err != nil {
		// Ошибки уникальности (гонка двух регистраций) уже маппит репозиторий.
		if !errors.Is(err, models.ErrUserAlreadyExists) && !errors.Is(err, models.ErrEmailAlreadyExists) {
			s.logger.Error("Failed to create player via repository", append(logFields, zap.Error(err))...)
		}
		return nil, "", err
	}

	token, err := s.generateToken(player.ID)
	if err != nil {
		s.logger.Error("Failed to generate token after registration", append(logFields, zap.Error(err))...)
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info("Player registered successfully", zap.String("playerID", player.ID.String()), zap.String("username", player.Username))
	return player, token, nil
}

// Login authenticates a player and returns a JWT token.
func (s *authServiceImpl) Login(ctx context.Context, username, password string) (*models.Player, string, error) {
	username = strings.TrimSpace(username)
	s.logger.Info("Login attempt", zap.String("username", username))

	player, err := s.playerRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrPlayerNotFound) {
			// Не раскрываем, существует ли игрок
			s.logger.Warn("Login failed: player not found", zap.String("username", username))
			return nil, "", models.ErrInvalidCredentials
		}
		s.logger.Error("Login failed: error getting player from repository", zap.Error(err), zap.String("username", username))
		return nil, "", fmt.Errorf("failed to get player: %w", err)
	}

	if !checkPasswordHash(password, s.cfg.PasswordPepper, player.PasswordHash) {
		s.logger.Warn("Login failed: invalid password", zap.String("username", username))
		return nil, "", models.ErrInvalidCredentials
	}

	token, err := s.generateToken(player.ID)
	if err != nil {
		s.logger.Error("Failed to generate token on login", zap.Error(err), zap.String("username", username))
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info("Player logged in", zap.String("playerID", player.ID.String()), zap.String("username", username))
	return player, token, nil
}

// ValidateToken проверяет JWT токен и возвращает id игрока из claim "sub".
func (s *authServiceImpl) ValidateToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Проверяем метод подписи
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, models.ErrTokenExpired
		}
		return uuid.Nil, fmt.Errorf("token parse error: %w", models.ErrTokenInvalid)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, models.ErrTokenInvalid
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return uuid.Nil, models.ErrTokenInvalid
	}
	playerID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, models.ErrTokenInvalid
	}
	return playerID, nil
}

func (s *authServiceImpl) generateToken(playerID uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": playerID.String(),
		"iat": now.Unix(),
		"exp": now.Add(s.cfg.TokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// hashPassword хеширует пароль bcrypt'ом, добавляя перец до хеширования.
func hashPassword(password, pepper string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password+pepper), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// checkPasswordHash проверяет пароль с учетом перца.
func checkPasswordHash(password, pepper, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password+pepper)) == nil
}
