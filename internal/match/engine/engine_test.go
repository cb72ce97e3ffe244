package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jimmy058910/realmrivalry-live/internal/match"
	"github.com/jimmy058910/realmrivalry-live/internal/match/events"
	"github.com/jimmy058910/realmrivalry-live/internal/models"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockApp records the engine's calls against a single in-memory match.
type mockApp struct {
	mu sync.Mutex

	match *models.Match

	progress   []match.UpdateProgressRequest
	events     []match.InsertEventRequest
	halftimes  int
	resumes    int
	completes  int
	progressCh chan match.UpdateProgressRequest
}

func newMockApp(m *models.Match) *mockApp {
	return &mockApp{
		match:      m,
		progressCh: make(chan match.UpdateProgressRequest, 16),
	}
}

func (a *mockApp) FetchRunningMatches(ctx context.Context, limit int32) ([]*models.Match, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.match.Status == models.MatchStatusLive || a.match.Status == models.MatchStatusHalftime {
		copied := *a.match
		return []*models.Match{&copied}, nil
	}
	return nil, nil
}

func (a *mockApp) GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	copied := *a.match
	return &copied, nil
}

func (a *mockApp) UpdateProgress(ctx context.Context, id uuid.UUID, req match.UpdateProgressRequest) (*models.Match, error) {
	a.mu.Lock()
	a.progress = append(a.progress, req)
	a.match.GameTimeSec = req.GameTimeSec
	a.match.CurrentHalf = req.CurrentHalf
	a.match.HomeScore = req.HomeScore
	a.match.AwayScore = req.AwayScore
	copied := *a.match
	a.mu.Unlock()

	select {
	case a.progressCh <- req:
	default:
	}
	return &copied, nil
}

func (a *mockApp) SetHalftime(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.halftimes++
	a.match.Status = models.MatchStatusHalftime
	copied := *a.match
	return &copied, nil
}

func (a *mockApp) ResumeMatch(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resumes++
	a.match.Status = models.MatchStatusLive
	copied := *a.match
	return &copied, nil
}

func (a *mockApp) CompleteMatch(ctx context.Context, id uuid.UUID, mvp *events.MVPInfo) (*models.Match, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.completes++
	a.match.Status = models.MatchStatusCompleted
	copied := *a.match
	return &copied, nil
}

func (a *mockApp) RecordEvent(ctx context.Context, req match.InsertEventRequest) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, req)
	return nil
}

func (a *mockApp) recordedTypes() []models.EventType {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.EventType, len(a.events))
	for i, ev := range a.events {
		out[i] = ev.Type
	}
	return out
}

func TestTickAdvancesALiveMatch(t *testing.T) {
	m := testMatch()
	m.GameTimeSec = 90
	app := newMockApp(m)
	e := NewEngine(app, quietConfig()).WithSeed(1)

	require.NoError(t, e.Tick(context.Background(), m.ID))

	require.Len(t, app.progress, 1)
	assert.Equal(t, 120, app.progress[0].GameTimeSec)
	assert.Zero(t, app.halftimes)
	assert.Zero(t, app.completes)
}

func TestTickParksTheMatchAtHalftime(t *testing.T) {
	m := testMatch()
	m.GameTimeSec = 580
	app := newMockApp(m)
	e := NewEngine(app, quietConfig()).WithSeed(1)

	require.NoError(t, e.Tick(context.Background(), m.ID))

	assert.Equal(t, 1, app.halftimes)
	assert.Equal(t, []models.EventType{models.EventTypeHalftime}, app.recordedTypes())
	require.Len(t, app.progress, 1)
	assert.Equal(t, 600, app.progress[0].GameTimeSec)
}

func TestTickResumesTheSecondHalf(t *testing.T) {
	m := testMatch()
	m.Status = models.MatchStatusHalftime
	m.GameTimeSec = 600
	m.CurrentHalf = 2
	app := newMockApp(m)
	e := NewEngine(app, quietConfig()).WithSeed(1)

	require.NoError(t, e.Tick(context.Background(), m.ID))

	assert.Equal(t, 1, app.resumes)
	assert.Equal(t, []models.EventType{models.EventTypeResume}, app.recordedTypes())
}

func TestTickCompletesAtFullTime(t *testing.T) {
	m := testMatch()
	m.CurrentHalf = 2
	m.GameTimeSec = 1190
	app := newMockApp(m)
	e := NewEngine(app, quietConfig()).WithSeed(1)

	require.NoError(t, e.Tick(context.Background(), m.ID))

	assert.Equal(t, 1, app.completes)
	require.Len(t, app.progress, 1)
	assert.Equal(t, 1200, app.progress[0].GameTimeSec)
}

func TestTickSkipsPausedMatches(t *testing.T) {
	m := testMatch()
	m.Status = models.MatchStatusPaused
	app := newMockApp(m)
	e := NewEngine(app, quietConfig()).WithSeed(1)

	require.NoError(t, e.Tick(context.Background(), m.ID))

	assert.Empty(t, app.progress)
	assert.Empty(t, app.events)
}

func TestRunAdvancesMatchesEachTick(t *testing.T) {
	m := testMatch()
	m.GameTimeSec = 90
	app := newMockApp(m)

	cfg := quietConfig()
	cfg.TickInterval = time.Second
	cfg.NumWorkers = 2

	clock := clockwork.NewFakeClock()
	e := NewEngine(app, cfg).WithClock(clock).WithSeed(1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = e.Run(ctx)
		close(done)
	}()

	clock.BlockUntil(1)
	clock.Advance(time.Second)

	select {
	case req := <-app.progressCh:
		assert.Equal(t, 120, req.GameTimeSec)
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not advance the match on the first tick")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not shut down")
	}
}
