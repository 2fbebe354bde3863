package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"game-building-server/game-service/internal/config"
	"game-building-server/game-service/internal/service/mocks"
	"game-building-server/shared/models"
)

func testAuthConfig() *config.AuthConfig {
	return &config.AuthConfig{
		JWTSecret:      "test-secret",
		PasswordPepper: "test-pepper",
		TokenTTL:       time.Hour,
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := hashPassword("password123", "pepper")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", hash)

	assert.True(t, checkPasswordHash("password123", "pepper", hash))
	// Неверный пароль или неверный перец не проходят
	assert.False(t, checkPasswordHash("wrong", "pepper", hash))
	assert.False(t, checkPasswordHash("password123", "other-pepper", hash))
}

func TestRegisterAndValidateToken(t *testing.T) {
	repo := new(mocks.PlayerRepository)
	svc := NewAuthService(repo, testAuthConfig(), zap.NewNop())

	repo.On("GetByUsername", mock.Anything, "alice").Return(nil, models.ErrPlayerNotFound)
	repo.On("GetByEmail", mock.Anything, "alice@example.com").Return(nil, models.ErrPlayerNotFound)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	player, token, err := svc.Register(context.Background(), "alice", " Alice@Example.COM ", "password123")
	require.NoError(t, err)
	require.NotNil(t, player)
	assert.Equal(t, "alice@example.com", player.Email)
	assert.Equal(t, models.DefaultStartingWood, player.Resources.Wood)
	assert.NotEmpty(t, token)

	// Выданный токен валидируется тем же сервисом
	playerID, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, player.ID, playerID)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	repo := new(mocks.PlayerRepository)
	svc := NewAuthService(repo, testAuthConfig(), zap.NewNop())

	repo.On("GetByUsername", mock.Anything, "alice").Return(models.NewPlayer("alice", "a@b.c", "h"), nil)

	_, _, err := svc.Register(context.Background(), "alice", "new@example.com", "password123")
	assert.ErrorIs(t, err, models.ErrUserAlreadyExists)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegisterInvalidInput(t *testing.T) {
	repo := new(mocks.PlayerRepository)
	svc := NewAuthService(repo, testAuthConfig(), zap.NewNop())

	_, _, err := svc.Register(context.Background(), "", "a@b.c", "password")
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, _, err = svc.Register(context.Background(), "bob", "not-an-email", "password")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestLogin(t *testing.T) {
	repo := new(mocks.PlayerRepository)
	cfg := testAuthConfig()
	svc := NewAuthService(repo, cfg, zap.NewNop())

	hash, err := hashPassword("password123", cfg.PasswordPepper)
	require.NoError(t, err)
	stored := models.NewPlayer("alice", "alice@example.com", hash)

	repo.On("GetByUsername", mock.Anything, "alice").Return(stored, nil)

	player, token, err := svc.Login(context.Background(), "alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, stored.ID, player.ID)
	assert.NotEmpty(t, token)

	// Неверный пароль и несуществующий игрок дают одну и ту же ошибку
	_, _, err = svc.Login(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	repo.On("GetByUsername", mock.Anything, "ghost").Return(nil, models.ErrPlayerNotFound)
	_, _, err = svc.Login(context.Background(), "ghost", "password123")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	repo := new(mocks.PlayerRepository)
	svc := NewAuthService(repo, testAuthConfig(), zap.NewNop())

	_, err := svc.ValidateToken("not-a-jwt")
	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}

func TestValidateTokenRejectsForeignSecret(t *testing.T) {
	repo := new(mocks.PlayerRepository)
	issuer := NewAuthService(repo, &config.AuthConfig{JWTSecret: "other-secret", TokenTTL: time.Hour}, zap.NewNop())
	verifier := NewAuthService(repo, testAuthConfig(), zap.NewNop())

	repo.On("GetByUsername", mock.Anything, "alice").Return(nil, models.ErrPlayerNotFound)
	repo.On("GetByEmail", mock.Anything, mock.Anything).Return(nil, models.ErrPlayerNotFound)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, token, err := issuer.Register(context.Background(), "alice", "alice@example.com", "password123")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}
