package engine

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/jimmy058910/realmrivalry-live/internal/match"
	"github.com/jimmy058910/realmrivalry-live/internal/match/events"
	"github.com/jimmy058910/realmrivalry-live/internal/models"
)

// stepResult is one simulation step for a live match
type stepResult struct {
	Progress  match.UpdateProgressRequest
	Events    []match.InsertEventRequest
	Halftime  bool
	Completed bool
	MVP       *events.MVPInfo
}

// simulator rolls the dice for a match tick. All randomness lives here so the
// engine itself stays deterministic under a fake clock.
type simulator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newSimulator(seed int64) *simulator {
	return &simulator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

func (s *simulator) roll(pct int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(100) < pct
}

func (s *simulator) pickTeam(m *models.Match) (uuid.UUID, string) {
	s.mu.Lock()
	home := s.rng.Intn(2) == 0
	s.mu.Unlock()
	if home {
		return m.HomeTeamID, m.HomeTeamName
	}
	return m.AwayTeamID, m.AwayTeamName
}

// step advances the match clock by one tick and rolls for narrated events.
// Score changes ride on the progress update; bare events never carry them.
func (s *simulator) step(m *models.Match, cfg Config) stepResult {
	maxTime := m.Settings.MaxTimeSec
	gameTime := m.GameTimeSec + m.Settings.TickSec
	if gameTime > maxTime {
		gameTime = maxTime
	}

	result := stepResult{
		Progress: match.UpdateProgressRequest{
			GameTimeSec:      gameTime,
			CurrentHalf:      m.CurrentHalf,
			HomeScore:        m.HomeScore,
			AwayScore:        m.AwayScore,
			PossessingTeamID: m.PossessingTeamID,
		},
	}

	halfBoundary := maxTime / 2
	if m.CurrentHalf == 1 && gameTime >= halfBoundary {
		result.Progress.GameTimeSec = halfBoundary
		result.Progress.CurrentHalf = 2
		result.Halftime = true
		return result
	}

	if gameTime >= maxTime {
		result.Progress.GameTimeSec = maxTime
		result.Completed = true
		result.MVP = s.mvp(m)
		return result
	}

	if s.roll(cfg.ScorePct) {
		teamID, teamName := s.pickTeam(m)
		if teamID == m.HomeTeamID {
			result.Progress.HomeScore++
		} else {
			result.Progress.AwayScore++
		}
		payload, _ := json.Marshal(events.ScorePayload{
			TeamID:    teamID.String(),
			TeamName:  teamName,
			HomeScore: result.Progress.HomeScore,
			AwayScore: result.Progress.AwayScore,
			TimeSec:   gameTime,
		})
		result.Events = append(result.Events, match.InsertEventRequest{
			ID:          uuid.New(),
			MatchID:     m.ID,
			TimeSec:     gameTime,
			Type:        models.EventTypeScore,
			Description: fmt.Sprintf("%s scores!", teamName),
			TeamID:      &teamID,
			Data:        payload,
		})
	}

	if s.roll(cfg.InterceptPct) {
		teamID, teamName := s.pickTeam(m)
		result.Progress.PossessingTeamID = &teamID
		payload, _ := json.Marshal(events.InterceptionPayload{
			TeamID:   teamID.String(),
			TeamName: teamName,
			TimeSec:  gameTime,
		})
		result.Events = append(result.Events, match.InsertEventRequest{
			ID:          uuid.New(),
			MatchID:     m.ID,
			TimeSec:     gameTime,
			Type:        models.EventTypeInterception,
			Description: fmt.Sprintf("%s intercepts the ball", teamName),
			TeamID:      &teamID,
			Data:        payload,
		})
	}

	if s.roll(cfg.InjuryPct) {
		teamID, teamName := s.pickTeam(m)
		payload, _ := json.Marshal(events.InjuryPayload{
			TeamID:   teamID.String(),
			TeamName: teamName,
			Severity: "minor",
			TimeSec:  gameTime,
		})
		result.Events = append(result.Events, match.InsertEventRequest{
			ID:          uuid.New(),
			MatchID:     m.ID,
			TimeSec:     gameTime,
			Type:        models.EventTypeInjury,
			Description: fmt.Sprintf("A %s player is down injured", teamName),
			TeamID:      &teamID,
			Data:        payload,
		})
	}

	return result
}

func (s *simulator) mvp(m *models.Match) *events.MVPInfo {
	teamID, teamName := m.HomeTeamID, m.HomeTeamName
	score := m.HomeScore
	if m.AwayScore > m.HomeScore {
		teamID, teamName = m.AwayTeamID, m.AwayTeamName
		score = m.AwayScore
	}
	return &events.MVPInfo{
		PlayerID:   uuid.New().String(),
		PlayerName: fmt.Sprintf("%s captain", teamName),
		TeamID:     teamID.String(),
		Score:      score,
	}
}
