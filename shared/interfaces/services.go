package interfaces

import (
	"context"

	"github.com/google/uuid"

	"game-building-server/shared/models"
)

// AuthService регистрирует и аутентифицирует игроков. Возвращаемая строка —
// JWT токен для повторного подключения без логина.
type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*models.Player, string, error)
	Login(ctx context.Context, username, password string) (*models.Player, string, error)
	ValidateToken(tokenString string) (uuid.UUID, error)
}

// CatalogService владеет определениями зданий.
type CatalogService interface {
	CreateBuilding(ctx context.Context, params models.CreateBuildingParams) (*models.Building, error)
	GetBuilding(ctx context.Context, buildingID int) (*models.Building, error)
}

// ProgressionService — ядро прогрессии: валидация зависимостей, списание
// ресурсов, машина состояний и работа с планировщиком завершения.
type ProgressionService interface {
	StartBuilding(ctx context.Context, playerID uuid.UUID, buildingID int) (*models.PlayerBuilding, error)
	AccelerateBuilding(ctx context.Context, playerID uuid.UUID, buildingID int, percent float64) (*models.AccelerateOutcome, error)
	// CompleteBuilding идемпотентен: false означает no-op (запись отсутствует,
	// уже завершена или хэндл устарел), и уведомления в этом случае не шлются.
	CompleteBuilding(ctx context.Context, playerID uuid.UUID, buildingID int, taskID string) (bool, error)
	FailBuilding(ctx context.Context, playerID uuid.UUID, buildingID int, reason string) (bool, error)
	SetResources(ctx context.Context, playerID uuid.UUID, wood, stone *int) (*models.Player, error)
	GetPlayerInfo(ctx context.Context, playerID uuid.UUID) (*models.Player, error)
	GetAllowedBuildings(ctx context.Context, playerID uuid.UUID) ([]models.AllowedBuilding, error)
}
