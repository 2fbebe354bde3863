package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"game-building-server/shared/interfaces"
)

// Compile-time check to ensure PgxTxManager implements TxManager
var _ interfaces.TxManager = (*PgxTxManager)(nil)

// PgxTxManager предоставляет унифицированные методы для работы с транзакциями.
type PgxTxManager struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPgxTxManager создает новый помощник транзакций.
func NewPgxTxManager(db *pgxpool.Pool, logger *zap.Logger) *PgxTxManager {
	return &PgxTxManager{
		db:     db,
		logger: logger.Named("PgxTxManager"),
	}
}

// WithTx выполняет функцию в транзакции с автоматическим rollback при ошибке.
func (h *PgxTxManager) WithTx(
	ctx context.Context,
	fn func(ctx context.Context, tx interfaces.DBTX) error,
) error {
	tx, err := h.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				h.logger.Error("Failed to rollback transaction after panic",
					zap.Error(rollbackErr),
					zap.Any("panic", p))
			}
			panic(p) // re-throw panic after rollback
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
			h.logger.Error("Failed to rollback transaction",
				zap.Error(rollbackErr),
				zap.NamedError("original_error", err))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
