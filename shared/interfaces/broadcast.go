package interfaces

import (
	"context"

	"github.com/google/uuid"
)

// GroupPublisher delivers an event to every live connection subscribed under
// a player's identity, across all server instances. Delivery is
// fire-and-forget from the core's perspective: failures are logged by the
// caller and never roll back the state transition that produced the event.
type GroupPublisher interface {
	PublishToPlayer(ctx context.Context, playerID uuid.UUID, event any) error
}
