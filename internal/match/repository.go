package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimmy058910/realmrivalry-live/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool: pool,
	}
}

const matchColumns = `id, home_team_id, away_team_id, home_team_name, away_team_name,
	status, home_score, away_score, game_time_sec, current_half, possessing_team_id,
	settings, scheduled_at, started_at, completed_at, created_at, updated_at`

func (r *Repository) CreateMatch(ctx context.Context, req CreateMatchRequest) (*models.Match, error) {
	settingsBytes, err := json.Marshal(req.Settings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal match settings: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO matches (id, home_team_id, away_team_id, home_team_name, away_team_name,
			status, settings, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+matchColumns,
		req.ID, req.HomeTeamID, req.AwayTeamID, req.HomeTeamName, req.AwayTeamName,
		models.MatchStatusScheduled, settingsBytes, req.ScheduledAt,
	)

	m, err := scanMatch(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}
	return m, nil
}

func (r *Repository) GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id)

	m, err := scanMatch(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return m, nil
}

func (r *Repository) ListMatchesByStatus(ctx context.Context, status models.MatchStatus, limit int32) ([]*models.Match, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+matchColumns+`
		FROM matches
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		status, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var matches []*models.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *Repository) UpdateMatchStatus(ctx context.Context, id uuid.UUID, status models.MatchStatus) (*models.Match, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE matches
		SET status = $2,
		    started_at = CASE WHEN $2 = 'live' AND started_at IS NULL THEN now() ELSE started_at END,
		    completed_at = CASE WHEN $2 = 'completed' THEN now() ELSE completed_at END,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+matchColumns,
		id, status,
	)

	m, err := scanMatch(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update match status: %w", err)
	}
	return m, nil
}

func (r *Repository) UpdateProgress(ctx context.Context, id uuid.UUID, req UpdateProgressRequest) (*models.Match, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE matches
		SET game_time_sec = $2,
		    current_half = $3,
		    home_score = $4,
		    away_score = $5,
		    possessing_team_id = $6,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+matchColumns,
		id, req.GameTimeSec, req.CurrentHalf, req.HomeScore, req.AwayScore, req.PossessingTeamID,
	)

	m, err := scanMatch(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update match progress: %w", err)
	}
	return m, nil
}

// FetchRunningMatches returns matches the engine still needs to advance.
func (r *Repository) FetchRunningMatches(ctx context.Context, limit int32) ([]*models.Match, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+matchColumns+`
		FROM matches
		WHERE status IN ('live', 'halftime')
		ORDER BY updated_at ASC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch running matches: %w", err)
	}
	defer rows.Close()

	var matches []*models.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *Repository) InsertEvent(ctx context.Context, req InsertEventRequest) (*models.MatchEvent, error) {
	var ev models.MatchEvent
	err := r.pool.QueryRow(ctx, `
		INSERT INTO match_events (id, match_id, time_sec, type, description, team_id, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, match_id, time_sec, type, description, team_id, data, created_at`,
		req.ID, req.MatchID, req.TimeSec, req.Type, req.Description, req.TeamID, req.Data,
	).Scan(&ev.ID, &ev.MatchID, &ev.TimeSec, &ev.Type, &ev.Description, &ev.TeamID, &ev.Data, &ev.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert match event: %w", err)
	}
	return &ev, nil
}

// RecentEvents returns the last limit events for a match, oldest first.
func (r *Repository) RecentEvents(ctx context.Context, matchID uuid.UUID, limit int32) ([]models.MatchEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, match_id, time_sec, type, description, team_id, data, created_at
		FROM (
			SELECT id, match_id, time_sec, type, description, team_id, data, created_at
			FROM match_events
			WHERE match_id = $1
			ORDER BY time_sec DESC, created_at DESC
			LIMIT $2
		) recent
		ORDER BY time_sec ASC, created_at ASC`,
		matchID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent events: %w", err)
	}
	defer rows.Close()

	var events []models.MatchEvent
	for rows.Next() {
		var ev models.MatchEvent
		if err := rows.Scan(&ev.ID, &ev.MatchID, &ev.TimeSec, &ev.Type, &ev.Description, &ev.TeamID, &ev.Data, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan match event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(row rowScanner) (*models.Match, error) {
	var (
		m             models.Match
		settingsBytes []byte
		scheduledAt   *time.Time
		startedAt     *time.Time
		completedAt   *time.Time
	)

	err := row.Scan(
		&m.ID, &m.HomeTeamID, &m.AwayTeamID, &m.HomeTeamName, &m.AwayTeamName,
		&m.Status, &m.HomeScore, &m.AwayScore, &m.GameTimeSec, &m.CurrentHalf,
		&m.PossessingTeamID, &settingsBytes, &scheduledAt, &startedAt, &completedAt,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(settingsBytes, &m.Settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal match settings: %w", err)
	}
	m.ScheduledAt = scheduledAt
	m.StartedAt = startedAt
	m.CompletedAt = completedAt
	return &m, nil
}
