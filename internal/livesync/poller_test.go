package livesync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jimmy058910/realmrivalry-live/internal/models"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollerFeedsTheSameMerge(t *testing.T) {
	matchID := uuid.New()
	occurrence := testEvent(45, "Team A scores")
	snap := liveSnapshot(matchID)
	snap.HomeScore = 1
	snap.RecentEvents = []models.MatchEvent{occurrence}
	api := newFakeAPI(snap)

	changes := make(chan View, 16)
	sync := NewSynchronizer(matchID, Config{
		OnChange: func(v View) { changes <- v },
	})
	// The same occurrence already arrived over push; polling must not
	// duplicate it.
	sync.Apply(eventMsg(occurrence))
	<-changes

	clock := clockwork.NewFakeClock()
	poller := NewPoller(api, sync, 10*time.Second).WithClock(clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go poller.Run(ctx)

	clock.BlockUntil(1)
	clock.Advance(10 * time.Second)

	select {
	case view := <-changes:
		require.NotNil(t, view.Snapshot)
		assert.Equal(t, 1, view.Snapshot.HomeScore)
		assert.Len(t, view.DisplayedEvents, 1, "polled snapshot does not duplicate pushed events")
	case <-time.After(time.Second):
		t.Fatal("poller did not apply the fetched snapshot")
	}
}

func TestPollerSurvivesFetchErrors(t *testing.T) {
	matchID := uuid.New()
	api := newFakeAPI(liveSnapshot(matchID))
	api.fetchErr = errors.New("transient")

	sync := NewSynchronizer(matchID, Config{})
	clock := clockwork.NewFakeClock()
	poller := NewPoller(api, sync, 5*time.Second).WithClock(clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go poller.Run(ctx)

	clock.BlockUntil(1)
	clock.Advance(5 * time.Second)
	<-api.fetched

	// Fetch failed; the next tick retries.
	api.mu.Lock()
	api.fetchErr = nil
	api.mu.Unlock()

	clock.BlockUntil(1)
	clock.Advance(5 * time.Second)
	<-api.fetched

	require.Eventually(t, func() bool {
		return sync.Snapshot() != nil
	}, time.Second, time.Millisecond)
	assert.Equal(t, models.MatchStatusLive, sync.Snapshot().Status)
}
