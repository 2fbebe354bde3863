package interfaces

import (
	"context"

	"game-building-server/shared/models"
)

// BuildingRepository is the read-mostly building catalog.
type BuildingRepository interface {
	Create(ctx context.Context, building *models.Building) error
	GetByBuildingID(ctx context.Context, buildingID int) (*models.Building, error)
	List(ctx context.Context) ([]models.Building, error)
	// NextBuildingID возвращает max(building_id)+1, либо 1 для пустого каталога.
	NextBuildingID(ctx context.Context) (int, error)
}
