package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"game-building-server/shared/interfaces"
	"game-building-server/shared/models"
)

// Compile-time check to ensure catalogServiceImpl implements CatalogService
var _ interfaces.CatalogService = (*catalogServiceImpl)(nil)

// catalogServiceImpl владеет определениями зданий. Каталог read-mostly:
// после загрузки определения неизменяемы и могут читаться без блокировок.
type catalogServiceImpl struct {
	buildingRepo interfaces.BuildingRepository
	logger       *zap.Logger
}

// NewCatalogService creates a new instance of catalogServiceImpl.
func NewCatalogService(buildingRepo interfaces.BuildingRepository, logger *zap.Logger) interfaces.CatalogService {
	return &catalogServiceImpl{
		buildingRepo: buildingRepo,
		logger:       logger.Named("CatalogService"),
	}
}

// CreateBuilding validates the definition, assigns the next catalog id and
// persists it. Dependencies must reference existing definitions; a definition
// can never list itself (the id is assigned here, after the check).
func (c *catalogServiceImpl) CreateBuilding(ctx context.Context, params models.CreateBuildingParams) (*models.Building, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, fmt.Errorf("building name is required: %w", models.ErrInvalidInput)
	}
	if params.BuildTime <= 0 {
		return nil, fmt.Errorf("build_time must be positive: %w", models.ErrInvalidInput)
	}
	if params.RequiredWood < 0 || params.RequiredStone < 0 {
		return nil, fmt.Errorf("resource costs must be non-negative: %w", models.ErrInvalidInput)
	}

	nextID, err := c.buildingRepo.NextBuildingID(ctx)
	if err != nil {
		return nil, err
	}

	// Зависимости должны ссылаться на существующие определения. Прямой
	// self-cycle отсекается сравнением с назначаемым id; транзитивные циклы
	// каталог не проверяет.
	seen := make(map[int]struct{}, len(params.Dependencies))
	for _, depID := range params.Dependencies {
		if depID == nextID {
			return nil, fmt.Errorf("building cannot depend on itself: %w", models.ErrInvalidInput)
		}
		if _, dup := seen[depID]; dup {
			return nil, fmt.Errorf("duplicate dependency %d: %w", depID, models.ErrInvalidInput)
		}
		seen[depID] = struct{}{}
		if _, err := c.buildingRepo.GetByBuildingID(ctx, depID); err != nil {
			if errors.Is(err, models.ErrBuildingNotFound) {
				return nil, fmt.Errorf("unknown dependency %d: %w", depID, models.ErrInvalidInput)
			}
			return nil, err
		}
	}

	building := &models.Building{
		BuildingID:    nextID,
		Name:          name,
		BuildTime:     params.BuildTime,
		RequiredWood:  params.RequiredWood,
		RequiredStone: params.RequiredStone,
		Dependencies:  params.Dependencies,
	}
	if building.Dependencies == nil {
		building.Dependencies = []int{}
	}

	if err := c.buildingRepo.Create(ctx, building); err != nil {
		return nil, err
	}

	c.logger.Info("Building defined",
		zap.Int("buildingID", building.BuildingID),
		zap.String("name", building.Name),
		zap.Ints("dependencies", building.Dependencies))
	return building, nil
}

// GetBuilding looks up a building definition by catalog id.
func (c *catalogServiceImpl) GetBuilding(ctx context.Context, buildingID int) (*models.Building, error) {
	return c.buildingRepo.GetByBuildingID(ctx, buildingID)
}
