package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jimmy058910/realmrivalry-live/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMatch() *models.Match {
	return &models.Match{
		ID:           uuid.New(),
		HomeTeamID:   uuid.New(),
		AwayTeamID:   uuid.New(),
		HomeTeamName: "Oakhaven Oracles",
		AwayTeamName: "Stormspire Sentinels",
		Status:       models.MatchStatusLive,
		CurrentHalf:  1,
		Settings:     models.MatchSettings{MaxTimeSec: 1200, TickSec: 30},
	}
}

func quietConfig() Config {
	cfg := DefaultConfig()
	cfg.ScorePct = 0
	cfg.InterceptPct = 0
	cfg.InjuryPct = 0
	return cfg
}

func TestStepAdvancesTheClock(t *testing.T) {
	sim := newSimulator(1)
	m := testMatch()
	m.GameTimeSec = 90

	step := sim.step(m, quietConfig())
	assert.Equal(t, 120, step.Progress.GameTimeSec)
	assert.Equal(t, 1, step.Progress.CurrentHalf)
	assert.False(t, step.Halftime)
	assert.False(t, step.Completed)
	assert.Empty(t, step.Events)
}

func TestStepReachesHalftimeAtTheBoundary(t *testing.T) {
	sim := newSimulator(1)
	m := testMatch()
	m.GameTimeSec = 580 // next tick crosses 600

	step := sim.step(m, quietConfig())
	require.True(t, step.Halftime)
	assert.Equal(t, 600, step.Progress.GameTimeSec, "the clock parks exactly on the boundary")
	assert.Equal(t, 2, step.Progress.CurrentHalf)
	assert.False(t, step.Completed)
}

func TestStepCompletesAtFullTime(t *testing.T) {
	sim := newSimulator(1)
	m := testMatch()
	m.CurrentHalf = 2
	m.GameTimeSec = 1190
	m.HomeScore = 1
	m.AwayScore = 3

	step := sim.step(m, quietConfig())
	require.True(t, step.Completed)
	assert.Equal(t, 1200, step.Progress.GameTimeSec, "completed implies gameTime == maxTime")
	require.NotNil(t, step.MVP)
	assert.Equal(t, m.AwayTeamID.String(), step.MVP.TeamID, "MVP comes from the winning side")
	assert.Equal(t, 3, step.MVP.Score)
}

func TestStepScoreRidesOnProgressNotOnTheEvent(t *testing.T) {
	sim := newSimulator(7)
	m := testMatch()
	m.CurrentHalf = 2
	m.GameTimeSec = 630

	cfg := quietConfig()
	cfg.ScorePct = 100

	step := sim.step(m, cfg)
	require.Len(t, step.Events, 1)
	assert.Equal(t, models.EventTypeScore, step.Events[0].Type)

	total := step.Progress.HomeScore + step.Progress.AwayScore
	assert.Equal(t, 1, total, "exactly one goal per guaranteed score roll")
}

func TestStepIsDeterministicForASeed(t *testing.T) {
	m := testMatch()
	m.CurrentHalf = 2
	m.GameTimeSec = 630

	cfg := DefaultConfig()
	a := newSimulator(99).step(m, cfg)
	b := newSimulator(99).step(m, cfg)

	assert.Equal(t, a.Progress, b.Progress)
	assert.Equal(t, len(a.Events), len(b.Events))
}
