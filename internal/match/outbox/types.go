package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Outbox event types relayed to the message bus. MatchUpdate carries a full
// snapshot, MatchEvent a single narrated occurrence, MatchCompleted the final
// snapshot.
const (
	EventTypeMatchUpdate    = "MatchUpdate"
	EventTypeMatchEvent     = "MatchEvent"
	EventTypeMatchCompleted = "MatchCompleted"
)

// OutboxEvent is a single row awaiting relay to the bus
type OutboxEvent struct {
	ID        uuid.UUID
	MatchID   uuid.UUID
	EventType string
	Payload   []byte
	CreatedAt time.Time
}

// EventPublisher publishes outbox events to a message bus
type EventPublisher interface {
	Publish(ctx context.Context, event OutboxEvent) error
}
