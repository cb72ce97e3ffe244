package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MatchStatus defines the lifecycle status of a match.
type MatchStatus string

const (
	MatchStatusScheduled MatchStatus = "scheduled"
	MatchStatusLive      MatchStatus = "live"
	MatchStatusHalftime  MatchStatus = "halftime"
	MatchStatusPaused    MatchStatus = "paused"
	MatchStatusCompleted MatchStatus = "completed"
)

// EventType tags a narrated match occurrence.
type EventType string

const (
	EventTypeKickoff      EventType = "kickoff"
	EventTypeScore        EventType = "score"
	EventTypeInterception EventType = "interception"
	EventTypeInjury       EventType = "injury"
	EventTypeHalftime     EventType = "halftime"
	EventTypePause        EventType = "pause"
	EventTypeResume       EventType = "resume"
	EventTypeComplete     EventType = "complete"
)

// MatchSettings holds JSONB configuration for matches.
type MatchSettings struct {
	MaxTimeSec  int `json:"max_time_sec"`
	TickSec     int `json:"tick_sec"`
	HalftimeSec int `json:"halftime_sec,omitempty"`
}

// Match represents a match instance with its authoritative state.
type Match struct {
	ID               uuid.UUID     `json:"id"`
	HomeTeamID       uuid.UUID     `json:"home_team_id"`
	AwayTeamID       uuid.UUID     `json:"away_team_id"`
	HomeTeamName     string        `json:"home_team_name"`
	AwayTeamName     string        `json:"away_team_name"`
	Status           MatchStatus   `json:"status"`
	HomeScore        int           `json:"home_score"`
	AwayScore        int           `json:"away_score"`
	GameTimeSec      int           `json:"game_time_sec"`
	CurrentHalf      int           `json:"current_half"`
	PossessingTeamID *uuid.UUID    `json:"possessing_team_id,omitempty"`
	Settings         MatchSettings `json:"settings"`
	ScheduledAt      *time.Time    `json:"scheduled_at,omitempty"`
	StartedAt        *time.Time    `json:"started_at,omitempty"`
	CompletedAt      *time.Time    `json:"completed_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// MatchEvent is a single narrated occurrence within a match.
// Events are immutable once created and identified by ID when present,
// otherwise by the (time, description) pair.
type MatchEvent struct {
	ID          uuid.UUID       `json:"id"`
	MatchID     uuid.UUID       `json:"match_id"`
	TimeSec     int             `json:"time_sec"`
	Type        EventType       `json:"type"`
	Description string          `json:"description"`
	TeamID      *uuid.UUID      `json:"team_id,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// MatchSnapshot is the authoritative wire representation of match state
// served on fetch and embedded in push updates. RecentEvents carries the
// last few events so a fresh viewer can seed its log.
type MatchSnapshot struct {
	MatchID          uuid.UUID    `json:"match_id"`
	Status           MatchStatus  `json:"status"`
	HomeScore        int          `json:"home_score"`
	AwayScore        int          `json:"away_score"`
	GameTimeSec      int          `json:"game_time_sec"`
	MaxTimeSec       int          `json:"max_time_sec"`
	CurrentHalf      int          `json:"current_half"`
	PossessingTeamID *uuid.UUID   `json:"possessing_team_id,omitempty"`
	RecentEvents     []MatchEvent `json:"recent_events"`
}

// Snapshot projects a match plus its recent events into the wire form.
func (m *Match) Snapshot(recent []MatchEvent) MatchSnapshot {
	return MatchSnapshot{
		MatchID:          m.ID,
		Status:           m.Status,
		HomeScore:        m.HomeScore,
		AwayScore:        m.AwayScore,
		GameTimeSec:      m.GameTimeSec,
		MaxTimeSec:       m.Settings.MaxTimeSec,
		CurrentHalf:      m.CurrentHalf,
		PossessingTeamID: m.PossessingTeamID,
		RecentEvents:     recent,
	}
}
