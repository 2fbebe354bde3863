package interfaces

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX объединяет pgxpool.Pool и pgx.Tx, чтобы репозитории могли работать
// как в транзакции, так и вне её.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxManager выполняет функцию внутри транзакции с автоматическим rollback
// при ошибке. Внутри транзакции загрузка игрока через SELECT ... FOR UPDATE
// образует пер-игровую критическую секцию от валидации до сохранения.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error
}
