package events

import (
	"time"
)

// Event payload types shared between the match service, engine and gateway.

// MatchStartedPayload is the payload for a MatchStarted event
type MatchStartedPayload struct {
	MatchID    string    `json:"match_id"`
	HomeTeam   string    `json:"home_team"`
	AwayTeam   string    `json:"away_team"`
	MaxTimeSec int       `json:"max_time_sec"`
	StartedAt  time.Time `json:"started_at"`
}

// ScorePayload is the payload for a score event
type ScorePayload struct {
	TeamID    string `json:"team_id"`
	TeamName  string `json:"team_name"`
	HomeScore int    `json:"home_score"`
	AwayScore int    `json:"away_score"`
	TimeSec   int    `json:"time_sec"`
}

// InterceptionPayload is the payload for an interception event
type InterceptionPayload struct {
	TeamID   string `json:"team_id"`
	TeamName string `json:"team_name"`
	TimeSec  int    `json:"time_sec"`
}

// InjuryPayload is the payload for an injury event
type InjuryPayload struct {
	TeamID   string `json:"team_id"`
	TeamName string `json:"team_name"`
	Severity string `json:"severity"`
	TimeSec  int    `json:"time_sec"`
}

// HalftimePayload is the payload for a halftime event
type HalftimePayload struct {
	HomeScore int `json:"home_score"`
	AwayScore int `json:"away_score"`
	TimeSec   int `json:"time_sec"`
}

// MatchPausedPayload is the payload for a MatchPaused event
type MatchPausedPayload struct {
	MatchID  string    `json:"match_id"`
	PausedAt time.Time `json:"paused_at"`
	Reason   string    `json:"reason"`
}

// MatchResumedPayload is the payload for a MatchResumed event
type MatchResumedPayload struct {
	MatchID   string    `json:"match_id"`
	ResumedAt time.Time `json:"resumed_at"`
}

// MVPInfo describes the most valuable player of a completed match.
type MVPInfo struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	TeamID     string `json:"team_id"`
	Score      int    `json:"score"`
}

// MatchCompletedPayload is the payload for a MatchCompleted event
type MatchCompletedPayload struct {
	MatchID     string    `json:"match_id"`
	HomeScore   int       `json:"home_score"`
	AwayScore   int       `json:"away_score"`
	CompletedAt time.Time `json:"completed_at"`
	Duration    string    `json:"duration"`
	MVP         *MVPInfo  `json:"mvp,omitempty"`
}
