package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"game-building-server/shared/interfaces"
	"game-building-server/shared/models"
)

// Compile-time check to ensure pgBuildingRepository implements BuildingRepository
var _ interfaces.BuildingRepository = (*pgBuildingRepository)(nil)

const (
	buildingFields = `building_id, name, build_time, required_wood, required_stone, dependencies, created_at`

	insertBuildingQuery = `
        INSERT INTO buildings (building_id, name, build_time, required_wood, required_stone, dependencies)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	getBuildingByIDQuery = `
        SELECT ` + buildingFields + `
        FROM buildings
        WHERE building_id = $1
    `
	listBuildingsQuery = `
        SELECT ` + buildingFields + `
        FROM buildings
        ORDER BY building_id
    `
	nextBuildingIDQuery = `SELECT COALESCE(MAX(building_id), 0) + 1 FROM buildings`
)

// dbBuilding — строка таблицы для scany; dependencies приходит как jsonb.
type dbBuilding struct {
	BuildingID    int       `db:"building_id"`
	Name          string    `db:"name"`
	BuildTime     int       `db:"build_time"`
	RequiredWood  int       `db:"required_wood"`
	RequiredStone int       `db:"required_stone"`
	Dependencies  []byte    `db:"dependencies"`
	CreatedAt     time.Time `db:"created_at"`
}

type pgBuildingRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgBuildingRepository creates a new PostgreSQL-backed BuildingRepository.
func NewPgBuildingRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.BuildingRepository {
	return &pgBuildingRepository{
		db:     db,
		logger: logger.Named("PgBuildingRepo"),
	}
}

// Create inserts a new building definition.
func (r *pgBuildingRepository) Create(ctx context.Context, building *models.Building) error {
	depsJSON, err := json.Marshal(depsOrEmpty(building.Dependencies))
	if err != nil {
		return fmt.Errorf("failed to marshal building dependencies: %w", err)
	}

	_, err = r.db.Exec(ctx, insertBuildingQuery,
		building.BuildingID, building.Name, building.BuildTime,
		building.RequiredWood, building.RequiredStone, depsJSON)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Гонка двух конкурентных define за один building_id.
			r.logger.Warn("Concurrent building definition with same id", zap.Int("buildingID", building.BuildingID))
			return models.ErrStateConflict
		}
		r.logger.Error("Failed to create building in postgres", zap.Error(err), zap.String("name", building.Name))
		return fmt.Errorf("failed to create building in postgres: %w", err)
	}
	r.logger.Info("Building created successfully", zap.Int("buildingID", building.BuildingID), zap.String("name", building.Name))
	return nil
}

// GetByBuildingID retrieves a building definition by its catalog id.
func (r *pgBuildingRepository) GetByBuildingID(ctx context.Context, buildingID int) (*models.Building, error) {
	row := dbBuilding{}
	err := r.db.QueryRow(ctx, getBuildingByIDQuery, buildingID).Scan(
		&row.BuildingID, &row.Name, &row.BuildTime, &row.RequiredWood, &row.RequiredStone, &row.Dependencies, &row.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrBuildingNotFound
		}
		r.logger.Error("Failed to get building from postgres", zap.Error(err), zap.Int("buildingID", buildingID))
		return nil, fmt.Errorf("failed to get building from postgres: %w", err)
	}
	return row.toModel()
}

// List returns all building definitions ordered by catalog id.
func (r *pgBuildingRepository) List(ctx context.Context) ([]models.Building, error) {
	var rows []dbBuilding
	if err := pgxscan.Select(ctx, r.db, &rows, listBuildingsQuery); err != nil {
		r.logger.Error("Failed to list buildings from postgres", zap.Error(err))
		return nil, fmt.Errorf("failed to list buildings from postgres: %w", err)
	}

	buildings := make([]models.Building, 0, len(rows))
	for i := range rows {
		b, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		buildings = append(buildings, *b)
	}
	return buildings, nil
}

// NextBuildingID returns max(building_id)+1, or 1 for an empty catalog.
func (r *pgBuildingRepository) NextBuildingID(ctx context.Context) (int, error) {
	var next int
	if err := r.db.QueryRow(ctx, nextBuildingIDQuery).Scan(&next); err != nil {
		r.logger.Error("Failed to compute next building id", zap.Error(err))
		return 0, fmt.Errorf("failed to compute next building id: %w", err)
	}
	return next, nil
}

func (b *dbBuilding) toModel() (*models.Building, error) {
	building := &models.Building{
		BuildingID:    b.BuildingID,
		Name:          b.Name,
		BuildTime:     b.BuildTime,
		RequiredWood:  b.RequiredWood,
		RequiredStone: b.RequiredStone,
		CreatedAt:     b.CreatedAt,
	}
	if err := json.Unmarshal(b.Dependencies, &building.Dependencies); err != nil {
		return nil, fmt.Errorf("failed to unmarshal building dependencies: %w", err)
	}
	if building.Dependencies == nil {
		building.Dependencies = []int{}
	}
	return building, nil
}

func depsOrEmpty(deps []int) []int {
	if deps == nil {
		return []int{}
	}
	return deps
}
