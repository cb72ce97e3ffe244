package match

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jimmy058910/realmrivalry-live/internal/match/events"
	"github.com/jimmy058910/realmrivalry-live/internal/models"
	"github.com/rs/zerolog/log"
)

// RecentEventsLimit is how many trailing events a snapshot embeds.
const RecentEventsLimit = 10

// MatchRepository defines what the app layer needs from the repository
type MatchRepository interface {
	CreateMatch(ctx context.Context, req CreateMatchRequest) (*models.Match, error)
	GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error)
	ListMatchesByStatus(ctx context.Context, status models.MatchStatus, limit int32) ([]*models.Match, error)
	UpdateMatchStatus(ctx context.Context, id uuid.UUID, status models.MatchStatus) (*models.Match, error)
	UpdateProgress(ctx context.Context, id uuid.UUID, req UpdateProgressRequest) (*models.Match, error)
	FetchRunningMatches(ctx context.Context, limit int32) ([]*models.Match, error)
	InsertEvent(ctx context.Context, req InsertEventRequest) (*models.MatchEvent, error)
	RecentEvents(ctx context.Context, matchID uuid.UUID, limit int32) ([]models.MatchEvent, error)
}

// OutboxApp defines what the app layer needs from the outbox
type OutboxApp interface {
	InsertMatchUpdate(ctx context.Context, matchID uuid.UUID, payload []byte) error
	InsertMatchEvent(ctx context.Context, matchID uuid.UUID, payload []byte) error
	InsertMatchCompleted(ctx context.Context, matchID uuid.UUID, payload []byte) error
}

// App handles match business logic
type App struct {
	repo   MatchRepository
	outbox OutboxApp
}

// NewApp creates a new match App
func NewApp(repo MatchRepository, outbox OutboxApp) *App {
	return &App{
		repo:   repo,
		outbox: outbox,
	}
}

// CreateMatch creates a new scheduled match with validation
func (a *App) CreateMatch(ctx context.Context, req CreateMatchRequest) (*models.Match, error) {
	if err := a.validateCreateMatchRequest(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	m, err := a.repo.CreateMatch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	log.Info().
		Str("match_id", m.ID.String()).
		Str("home", m.HomeTeamName).
		Str("away", m.AwayTeamName).
		Msg("match created")
	return m, nil
}

// GetMatch retrieves a match by ID
func (a *App) GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	return a.repo.GetMatch(ctx, id)
}

// GetSnapshot builds the authoritative wire snapshot for a match,
// embedding the trailing events
func (a *App) GetSnapshot(ctx context.Context, id uuid.UUID) (*models.MatchSnapshot, error) {
	m, err := a.repo.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}

	recent, err := a.repo.RecentEvents(ctx, id, RecentEventsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent events: %w", err)
	}

	snap := m.Snapshot(recent)
	return &snap, nil
}

// ListMatchesByStatus lists matches in a given status
func (a *App) ListMatchesByStatus(ctx context.Context, status models.MatchStatus, limit int32) ([]*models.Match, error) {
	return a.repo.ListMatchesByStatus(ctx, status, limit)
}

// FetchRunningMatches returns matches the engine still needs to advance
func (a *App) FetchRunningMatches(ctx context.Context, limit int32) ([]*models.Match, error) {
	return a.repo.FetchRunningMatches(ctx, limit)
}

// StartMatch transitions a scheduled match to live and narrates kickoff
func (a *App) StartMatch(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	current, err := a.repo.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != models.MatchStatusScheduled {
		return nil, fmt.Errorf("%w: cannot start match in status %s", ErrInvalidTransition, current.Status)
	}

	m, err := a.repo.UpdateMatchStatus(ctx, id, models.MatchStatusLive)
	if err != nil {
		return nil, err
	}

	startedAt := time.Now()
	if m.StartedAt != nil {
		startedAt = *m.StartedAt
	}
	kickoffData, err := json.Marshal(events.MatchStartedPayload{
		MatchID:    id.String(),
		HomeTeam:   m.HomeTeamName,
		AwayTeam:   m.AwayTeamName,
		MaxTimeSec: m.Settings.MaxTimeSec,
		StartedAt:  startedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal MatchStarted payload: %w", err)
	}
	if err := a.RecordEvent(ctx, InsertEventRequest{
		ID:          uuid.New(),
		MatchID:     id,
		TimeSec:     0,
		Type:        models.EventTypeKickoff,
		Description: fmt.Sprintf("%s vs %s is underway!", m.HomeTeamName, m.AwayTeamName),
		Data:        kickoffData,
	}); err != nil {
		log.Error().Err(err).Str("match_id", id.String()).Msg("failed to record kickoff event")
		// Don't fail the operation, just log
	}

	if err := a.emitSnapshotUpdate(ctx, m); err != nil {
		log.Error().Err(err).Str("match_id", id.String()).Msg("failed to emit MatchUpdate")
	}

	log.Info().Str("match_id", id.String()).Msg("match started")
	return m, nil
}

// PauseMatch transitions a live or halftime match to paused
func (a *App) PauseMatch(ctx context.Context, id uuid.UUID, reason string) (*models.Match, error) {
	current, err := a.repo.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != models.MatchStatusLive && current.Status != models.MatchStatusHalftime {
		return nil, fmt.Errorf("%w: cannot pause match in status %s", ErrInvalidTransition, current.Status)
	}

	m, err := a.repo.UpdateMatchStatus(ctx, id, models.MatchStatusPaused)
	if err != nil {
		return nil, err
	}

	pausedData, err := json.Marshal(events.MatchPausedPayload{
		MatchID:  id.String(),
		PausedAt: time.Now(),
		Reason:   reason,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal MatchPaused payload: %w", err)
	}
	if err := a.RecordEvent(ctx, InsertEventRequest{
		ID:          uuid.New(),
		MatchID:     id,
		TimeSec:     m.GameTimeSec,
		Type:        models.EventTypePause,
		Description: "Match paused",
		Data:        pausedData,
	}); err != nil {
		log.Error().Err(err).Str("match_id", id.String()).Msg("failed to record pause event")
	}

	if err := a.emitSnapshotUpdate(ctx, m); err != nil {
		log.Error().Err(err).Str("match_id", id.String()).Msg("failed to emit MatchUpdate")
	}

	log.Info().Str("match_id", id.String()).Str("reason", reason).Msg("match paused")
	return m, nil
}

// ResumeMatch transitions a paused or halftime match back to live
func (a *App) ResumeMatch(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	current, err := a.repo.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != models.MatchStatusPaused && current.Status != models.MatchStatusHalftime {
		return nil, fmt.Errorf("%w: cannot resume match in status %s", ErrInvalidTransition, current.Status)
	}

	m, err := a.repo.UpdateMatchStatus(ctx, id, models.MatchStatusLive)
	if err != nil {
		return nil, err
	}

	if err := a.emitSnapshotUpdate(ctx, m); err != nil {
		log.Error().Err(err).Str("match_id", id.String()).Msg("failed to emit MatchUpdate")
	}

	log.Info().Str("match_id", id.String()).Msg("match resumed")
	return m, nil
}

// SetHalftime moves a live match into the halftime break
func (a *App) SetHalftime(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	m, err := a.repo.UpdateMatchStatus(ctx, id, models.MatchStatusHalftime)
	if err != nil {
		return nil, err
	}
	if err := a.emitSnapshotUpdate(ctx, m); err != nil {
		log.Error().Err(err).Str("match_id", id.String()).Msg("failed to emit MatchUpdate")
	}
	return m, nil
}

// UpdateProgress persists engine progress and pushes a full snapshot update
func (a *App) UpdateProgress(ctx context.Context, id uuid.UUID, req UpdateProgressRequest) (*models.Match, error) {
	m, err := a.repo.UpdateProgress(ctx, id, req)
	if err != nil {
		return nil, err
	}
	if err := a.emitSnapshotUpdate(ctx, m); err != nil {
		log.Error().Err(err).Str("match_id", id.String()).Msg("failed to emit MatchUpdate")
	}
	return m, nil
}

// RecordEvent appends a narrated event and relays it through the outbox
func (a *App) RecordEvent(ctx context.Context, req InsertEventRequest) error {
	ev, err := a.repo.InsertEvent(ctx, req)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal match event: %w", err)
	}
	return a.outbox.InsertMatchEvent(ctx, req.MatchID, payload)
}

// CompleteMatch finalizes a match and emits the terminal MatchCompleted event
func (a *App) CompleteMatch(ctx context.Context, id uuid.UUID, mvp *events.MVPInfo) (*models.Match, error) {
	m, err := a.repo.UpdateMatchStatus(ctx, id, models.MatchStatusCompleted)
	if err != nil {
		return nil, err
	}

	var duration string
	if m.StartedAt != nil && m.CompletedAt != nil {
		duration = m.CompletedAt.Sub(*m.StartedAt).String()
	}

	completedAt := time.Now()
	if m.CompletedAt != nil {
		completedAt = *m.CompletedAt
	}

	completedPayload := events.MatchCompletedPayload{
		MatchID:     id.String(),
		HomeScore:   m.HomeScore,
		AwayScore:   m.AwayScore,
		CompletedAt: completedAt,
		Duration:    duration,
		MVP:         mvp,
	}
	data, err := json.Marshal(completedPayload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal MatchCompleted payload: %w", err)
	}

	if err := a.RecordEvent(ctx, InsertEventRequest{
		ID:          uuid.New(),
		MatchID:     id,
		TimeSec:     m.GameTimeSec,
		Type:        models.EventTypeComplete,
		Description: fmt.Sprintf("Full time! %s %d - %d %s", m.HomeTeamName, m.HomeScore, m.AwayScore, m.AwayTeamName),
		Data:        data,
	}); err != nil {
		log.Error().Err(err).Str("match_id", id.String()).Msg("failed to record completion event")
	}

	// Terminal message: final snapshot so late viewers re-baseline correctly
	recent, err := a.repo.RecentEvents(ctx, id, RecentEventsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent events: %w", err)
	}
	snapBytes, err := json.Marshal(m.Snapshot(recent))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal final snapshot: %w", err)
	}
	if err := a.outbox.InsertMatchCompleted(ctx, id, snapBytes); err != nil {
		return nil, err
	}

	log.Info().
		Str("match_id", id.String()).
		Int("home_score", m.HomeScore).
		Int("away_score", m.AwayScore).
		Msg("match completed")
	return m, nil
}

func (a *App) emitSnapshotUpdate(ctx context.Context, m *models.Match) error {
	recent, err := a.repo.RecentEvents(ctx, m.ID, RecentEventsLimit)
	if err != nil {
		return fmt.Errorf("failed to fetch recent events: %w", err)
	}

	payload, err := json.Marshal(m.Snapshot(recent))
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return a.outbox.InsertMatchUpdate(ctx, m.ID, payload)
}

func (a *App) validateCreateMatchRequest(req CreateMatchRequest) error {
	if req.ID == uuid.Nil {
		return fmt.Errorf("match ID is required")
	}
	if req.HomeTeamID == uuid.Nil || req.AwayTeamID == uuid.Nil {
		return fmt.Errorf("both team IDs are required")
	}
	if req.HomeTeamID == req.AwayTeamID {
		return fmt.Errorf("a team cannot play itself")
	}
	if req.HomeTeamName == "" || req.AwayTeamName == "" {
		return fmt.Errorf("both team names are required")
	}
	if req.Settings.MaxTimeSec <= 0 {
		return fmt.Errorf("max_time_sec must be positive")
	}
	if req.Settings.TickSec <= 0 {
		return fmt.Errorf("tick_sec must be positive")
	}
	return nil
}
