package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"game-building-server/shared/interfaces"
	"game-building-server/shared/models"
)

// Compile-time check to ensure pgPlayerRepository implements PlayerRepository
var _ interfaces.PlayerRepository = (*pgPlayerRepository)(nil)

const (
	playerFields = `id, username, email, password_hash, wood, stone, buildings, version, created_at`

	insertPlayerQuery = `
        INSERT INTO players (id, username, email, password_hash, wood, stone, buildings, version)
        VALUES ($1, $2, $3, $4, $5, $6, $7, 1)
    `
	getPlayerByIDQuery = `
        SELECT ` + playerFields + `
        FROM players
        WHERE id = $1
    `
	getPlayerByUsernameQuery = `
        SELECT ` + playerFields + `
        FROM players
        WHERE username = $1
    `
	getPlayerByEmailQuery = `
        SELECT ` + playerFields + `
        FROM players
        WHERE email = $1
    `
	// FOR UPDATE — пер-игровая критическая секция: блокирует строку игрока
	// до конца транзакции (см. interfaces.TxManager).
	getPlayerForUpdateQuery = `
        SELECT ` + playerFields + `
        FROM players
        WHERE id = $1
        FOR UPDATE
    `
	// Весь документ игрока пишется одним UPDATE; version защищает от
	// конкурентной записи вне транзакционного пути.
	savePlayerQuery = `
        UPDATE players SET
            wood = $2,
            stone = $3,
            buildings = $4,
            version = version + 1,
            updated_at = NOW()
        WHERE id = $1 AND version = $5
    `
)

type pgPlayerRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgPlayerRepository creates a new PostgreSQL-backed PlayerRepository.
func NewPgPlayerRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.PlayerRepository {
	return &pgPlayerRepository{
		db:     db,
		logger: logger.Named("PgPlayerRepo"),
	}
}

// Create inserts a new player row.
func (r *pgPlayerRepository) Create(ctx context.Context, player *models.Player) error {
	buildingsJSON, err := json.Marshal(player.Buildings)
	if err != nil {
		return fmt.Errorf("failed to marshal player buildings: %w", err)
	}

	_, err = r.db.Exec(ctx, insertPlayerQuery,
		player.ID, player.Username, player.Email, player.PasswordHash,
		player.Resources.Wood, player.Resources.Stone, buildingsJSON)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 is unique_violation
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			logFields := []zap.Field{zap.String("username", player.Username), zap.String("email", player.Email)}
			if pgErr.ConstraintName == "players_email_key" {
				r.logger.Warn("Attempted to create duplicate player by email", logFields...)
				return models.ErrEmailAlreadyExists
			}
			r.logger.Warn("Attempted to create duplicate player by username", logFields...)
			return models.ErrUserAlreadyExists
		}
		r.logger.Error("Failed to create player in postgres", zap.Error(err), zap.String("username", player.Username))
		return fmt.Errorf("failed to create player in postgres: %w", err)
	}
	player.Version = 1
	r.logger.Info("Player created successfully", zap.String("playerID", player.ID.String()), zap.String("username", player.Username))
	return nil
}

// GetByID retrieves a player by their ID.
func (r *pgPlayerRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	return r.scanPlayer(r.db.QueryRow(ctx, getPlayerByIDQuery, id))
}

// GetByUsername retrieves a player by their unique username.
func (r *pgPlayerRepository) GetByUsername(ctx context.Context, username string) (*models.Player, error) {
	return r.scanPlayer(r.db.QueryRow(ctx, getPlayerByUsernameQuery, username))
}

// GetByEmail retrieves a player by their unique email.
func (r *pgPlayerRepository) GetByEmail(ctx context.Context, email string) (*models.Player, error) {
	return r.scanPlayer(r.db.QueryRow(ctx, getPlayerByEmailQuery, email))
}

// GetForUpdate retrieves a player with a row lock held until the end of the
// surrounding transaction.
func (r *pgPlayerRepository) GetForUpdate(ctx context.Context, tx interfaces.DBTX, id uuid.UUID) (*models.Player, error) {
	return r.scanPlayer(tx.QueryRow(ctx, getPlayerForUpdateQuery, id))
}

// Save writes the whole player document in one statement. Returns
// models.ErrStateConflict when the stored version no longer matches.
func (r *pgPlayerRepository) Save(ctx context.Context, tx interfaces.DBTX, player *models.Player) error {
	db := r.db
	if tx != nil {
		db = tx
	}

	buildingsJSON, err := json.Marshal(player.Buildings)
	if err != nil {
		return fmt.Errorf("failed to marshal player buildings: %w", err)
	}

	tag, err := db.Exec(ctx, savePlayerQuery,
		player.ID, player.Resources.Wood, player.Resources.Stone, buildingsJSON, player.Version)
	if err != nil {
		r.logger.Error("Failed to save player in postgres", zap.Error(err), zap.String("playerID", player.ID.String()))
		return fmt.Errorf("failed to save player in postgres: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Либо игрока нет, либо версия устарела. Для вызывающего кода это
		// одинаково означает конфликт конкурентной модификации.
		r.logger.Warn("Player save conflict", zap.String("playerID", player.ID.String()), zap.Int64("version", player.Version))
		return models.ErrStateConflict
	}
	player.Version++
	return nil
}

func (r *pgPlayerRepository) scanPlayer(row pgx.Row) (*models.Player, error) {
	player := &models.Player{}
	var buildingsJSON []byte
	err := row.Scan(&player.ID, &player.Username, &player.Email, &player.PasswordHash,
		&player.Resources.Wood, &player.Resources.Stone, &buildingsJSON, &player.Version, &player.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrPlayerNotFound
		}
		r.logger.Error("Failed to get player from postgres", zap.Error(err))
		return nil, fmt.Errorf("failed to get player from postgres: %w", err)
	}
	if err := json.Unmarshal(buildingsJSON, &player.Buildings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal player buildings: %w", err)
	}
	if player.Buildings == nil {
		player.Buildings = []models.PlayerBuilding{}
	}
	return player, nil
}
