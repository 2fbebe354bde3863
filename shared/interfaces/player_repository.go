package interfaces

import (
	"context"

	"github.com/google/uuid"

	"game-building-server/shared/models"
)

// PlayerRepository is the document store for player records. Save writes the
// whole player row at once (atomic whole-document semantics) and fails with
// models.ErrStateConflict when the stored version no longer matches.
type PlayerRepository interface {
	Create(ctx context.Context, player *models.Player) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Player, error)
	GetByUsername(ctx context.Context, username string) (*models.Player, error)
	GetByEmail(ctx context.Context, email string) (*models.Player, error)
	// GetForUpdate загружает игрока с блокировкой строки (FOR UPDATE);
	// должен вызываться только внутри транзакции.
	GetForUpdate(ctx context.Context, tx DBTX, id uuid.UUID) (*models.Player, error)
	Save(ctx context.Context, tx DBTX, player *models.Player) error
}
