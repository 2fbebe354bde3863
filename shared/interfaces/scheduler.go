package interfaces

import (
	"context"
	"time"

	"game-building-server/shared/messaging"
)

// CompletionScheduler is the delayed-execution backend for building
// completion. Schedule returns an opaque task handle; the handle stored on a
// progression record is always the current live schedule, and any earlier
// handle is implicitly invalidated.
//
// Cancel is best-effort: a late cancel (the task already fired or was never
// delivered) is a no-op, not an error. Rescheduling is always
// cancel-then-schedule, never the reverse.
type CompletionScheduler interface {
	Schedule(ctx context.Context, delay time.Duration, task messaging.CompletionTaskPayload) (string, error)
	Cancel(ctx context.Context, taskID string) error
	IsRevoked(ctx context.Context, taskID string) (bool, error)
}
