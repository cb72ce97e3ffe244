package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// OutboxRepository defines what the app layer needs from the repository
type OutboxRepository interface {
	Insert(ctx context.Context, matchID uuid.UUID, eventType string, payload []byte) error
}

// App handles outbox business logic
type App struct {
	repo OutboxRepository
}

// NewApp creates a new outbox App
func NewApp(repo OutboxRepository) *App {
	return &App{
		repo: repo,
	}
}

// InsertMatchUpdate inserts a full-snapshot MatchUpdate event into the outbox
func (a *App) InsertMatchUpdate(ctx context.Context, matchID uuid.UUID, payload []byte) error {
	return a.insert(ctx, matchID, EventTypeMatchUpdate, payload)
}

// InsertMatchEvent inserts a single narrated MatchEvent into the outbox
func (a *App) InsertMatchEvent(ctx context.Context, matchID uuid.UUID, payload []byte) error {
	return a.insert(ctx, matchID, EventTypeMatchEvent, payload)
}

// InsertMatchCompleted inserts the terminal MatchCompleted event into the outbox
func (a *App) InsertMatchCompleted(ctx context.Context, matchID uuid.UUID, payload []byte) error {
	return a.insert(ctx, matchID, EventTypeMatchCompleted, payload)
}

func (a *App) insert(ctx context.Context, matchID uuid.UUID, eventType string, payload []byte) error {
	if err := a.validateEventPayload(payload); err != nil {
		return fmt.Errorf("invalid %s payload: %w", eventType, err)
	}

	if err := a.repo.Insert(ctx, matchID, eventType, payload); err != nil {
		return fmt.Errorf("failed to insert %s event: %w", eventType, err)
	}

	log.Info().
		Str("match_id", matchID.String()).
		Str("event_type", eventType).
		Msg("outbox event inserted")

	return nil
}

func (a *App) validateEventPayload(payload []byte) error {
	if len(payload) == 0 {
		return fmt.Errorf("payload is empty")
	}
	if !json.Valid(payload) {
		return fmt.Errorf("payload is not valid JSON")
	}
	return nil
}
