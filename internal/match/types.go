package match

import (
	"time"

	"github.com/google/uuid"
	"github.com/jimmy058910/realmrivalry-live/internal/models"
)

// CreateMatchRequest carries everything needed to create a match
type CreateMatchRequest struct {
	ID           uuid.UUID
	HomeTeamID   uuid.UUID
	AwayTeamID   uuid.UUID
	HomeTeamName string
	AwayTeamName string
	Settings     models.MatchSettings
	ScheduledAt  *time.Time
}

// UpdateProgressRequest updates the simulated progress fields of a live match
type UpdateProgressRequest struct {
	GameTimeSec      int
	CurrentHalf      int
	HomeScore        int
	AwayScore        int
	PossessingTeamID *uuid.UUID
}

// InsertEventRequest appends a narrated event to a match's log
type InsertEventRequest struct {
	ID          uuid.UUID
	MatchID     uuid.UUID
	TimeSec     int
	Type        models.EventType
	Description string
	TeamID      *uuid.UUID
	Data        []byte
}
