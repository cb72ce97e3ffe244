package livesync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jimmy058910/realmrivalry-live/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI implements SnapshotFetcher and Controller for viewer tests.
type fakeAPI struct {
	mu sync.Mutex

	snapshot *models.MatchSnapshot
	fetchErr error

	fetchCalls  int
	startCalls  int
	pauseCalls  int
	resumeCalls int

	// blockStart makes StartMatch wait until the channel is closed.
	blockStart chan struct{}
	// fetched receives after every GetSnapshot call.
	fetched chan struct{}

	controlErr error
}

func newFakeAPI(snap *models.MatchSnapshot) *fakeAPI {
	return &fakeAPI{
		snapshot: snap,
		fetched:  make(chan struct{}, 16),
	}
}

func (f *fakeAPI) GetSnapshot(ctx context.Context, matchID uuid.UUID) (*models.MatchSnapshot, error) {
	f.mu.Lock()
	f.fetchCalls++
	snap, err := f.snapshot, f.fetchErr
	f.mu.Unlock()

	select {
	case f.fetched <- struct{}{}:
	default:
	}
	if err != nil {
		return nil, err
	}
	copied := *snap
	return &copied, nil
}

func (f *fakeAPI) StartMatch(ctx context.Context, matchID uuid.UUID) error {
	f.mu.Lock()
	f.startCalls++
	block := f.blockStart
	err := f.controlErr
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	return err
}

func (f *fakeAPI) PauseMatch(ctx context.Context, matchID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauseCalls++
	return f.controlErr
}

func (f *fakeAPI) ResumeMatch(ctx context.Context, matchID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumeCalls++
	return f.controlErr
}

func (f *fakeAPI) counts() (fetch, start, pause, resume int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls, f.startCalls, f.pauseCalls, f.resumeCalls
}

func liveSnapshot(matchID uuid.UUID) *models.MatchSnapshot {
	return &models.MatchSnapshot{
		MatchID:     matchID,
		Status:      models.MatchStatusLive,
		GameTimeSec: 0,
		MaxTimeSec:  1200,
		CurrentHalf: 1,
	}
}

func TestControlGuardRejectsOverlappingActions(t *testing.T) {
	matchID := uuid.New()
	api := newFakeAPI(liveSnapshot(matchID))
	api.blockStart = make(chan struct{})

	v := NewViewer(matchID, api, api, DefaultViewerConfig())
	defer v.Close()

	startDone := make(chan error, 1)
	go func() {
		startDone <- v.Start(context.Background())
	}()

	// Wait until the start request is in flight.
	require.Eventually(t, v.IsControlling, time.Second, time.Millisecond)

	err := v.Pause(context.Background())
	assert.ErrorIs(t, err, ErrControlInFlight)

	_, _, pauses, _ := api.counts()
	assert.Equal(t, 0, pauses, "a guarded action must not reach the network")

	close(api.blockStart)
	require.NoError(t, <-startDone)
	assert.False(t, v.IsControlling())

	// With the guard cleared the next action goes through.
	require.NoError(t, v.Pause(context.Background()))
	_, starts, pauses, _ := api.counts()
	assert.Equal(t, 1, starts)
	assert.Equal(t, 1, pauses)
}

func TestControlGuardClearsAfterFailure(t *testing.T) {
	matchID := uuid.New()
	api := newFakeAPI(liveSnapshot(matchID))
	api.controlErr = errors.New("engine unavailable")

	v := NewViewer(matchID, api, api, DefaultViewerConfig())
	defer v.Close()

	err := v.Resume(context.Background())
	require.Error(t, err)
	assert.False(t, v.IsControlling(), "the guard clears on the failure path too")

	// A failed control action leaves the merged state untouched.
	assert.Empty(t, v.Events())

	api.controlErr = nil
	require.NoError(t, v.Resume(context.Background()))
}

func TestOpenFailureIsTerminal(t *testing.T) {
	matchID := uuid.New()
	api := newFakeAPI(nil)
	api.fetchErr = errors.New("match not found")

	v := NewViewer(matchID, api, api, DefaultViewerConfig())
	defer v.Close()

	err := v.Open(context.Background())
	require.Error(t, err)

	fetches, _, _, _ := api.counts()
	assert.Equal(t, 1, fetches, "no retry loop on initial fetch failure")
}

func TestReconnectTriggersExactlyOneRebaselineFetch(t *testing.T) {
	matchID := uuid.New()
	missed := testEvent(45, "missed while disconnected")
	snap := liveSnapshot(matchID)
	snap.RecentEvents = []models.MatchEvent{missed}
	api := newFakeAPI(snap)

	v := NewViewer(matchID, api, api, DefaultViewerConfig())
	defer v.Close()

	// First connect is not a reconnect: no re-baseline fetch.
	v.handleStatus(StatusConnected)
	assert.Equal(t, StatusConnected, v.ConnectionStatus())
	fetches, _, _, _ := api.counts()
	assert.Equal(t, 0, fetches)

	v.handleStatus(StatusDisconnected)
	assert.Equal(t, StatusDisconnected, v.ConnectionStatus())

	// The event also arrives over the push channel; the re-baseline merge
	// must absorb the overlap.
	v.handleMessage(eventMsg(missed))

	v.handleStatus(StatusConnected)
	select {
	case <-api.fetched:
	case <-time.After(time.Second):
		t.Fatal("expected a re-baseline fetch after reconnect")
	}

	require.Eventually(t, func() bool {
		return v.sync.Snapshot() != nil
	}, time.Second, time.Millisecond)

	fetches, _, _, _ = api.counts()
	assert.Equal(t, 1, fetches)
	assert.Equal(t, []string{"missed while disconnected"}, descriptions(v.Events()))
}

func TestCloseDropsLateResults(t *testing.T) {
	matchID := uuid.New()
	api := newFakeAPI(liveSnapshot(matchID))

	v := NewViewer(matchID, api, api, DefaultViewerConfig())
	v.Close()
	v.Close() // idempotent

	late := testEvent(100, "after teardown")
	v.handleMessage(eventMsg(late))
	v.handleStatus(StatusConnected)

	assert.Empty(t, v.Events())
	assert.Equal(t, StatusConnecting, v.ConnectionStatus(), "no status mutation after close")
}

func TestCompletionStopsInputsAndForwards(t *testing.T) {
	matchID := uuid.New()
	api := newFakeAPI(liveSnapshot(matchID))

	done := make(chan models.MatchSnapshot, 1)
	config := DefaultViewerConfig()
	config.OnComplete = func(final models.MatchSnapshot) {
		done <- final
	}

	v := NewViewer(matchID, api, api, config)
	defer v.Close()

	final := models.MatchSnapshot{
		MatchID:     matchID,
		Status:      models.MatchStatusCompleted,
		HomeScore:   2,
		AwayScore:   1,
		GameTimeSec: 1200,
		MaxTimeSec:  1200,
	}
	v.handleMessage(completeMsg(final))
	v.handleMessage(completeMsg(final))

	select {
	case got := <-done:
		assert.Equal(t, 2, got.HomeScore)
	case <-time.After(time.Second):
		t.Fatal("completion callback not invoked")
	}
	select {
	case <-done:
		t.Fatal("completion callback invoked more than once")
	default:
	}
}
