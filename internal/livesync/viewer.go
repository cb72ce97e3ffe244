package livesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jimmy058910/realmrivalry-live/internal/models"
	"github.com/rs/zerolog/log"
)

// ErrControlInFlight is returned when a control action is issued while a
// previous one has not resolved. No request is sent.
var ErrControlInFlight = errors.New("control action already in flight")

// Controller issues match control requests to the authoritative engine. The
// viewer only sends requests; resulting state arrives back via snapshot or
// push, never from the response.
type Controller interface {
	StartMatch(ctx context.Context, matchID uuid.UUID) error
	PauseMatch(ctx context.Context, matchID uuid.UUID) error
	ResumeMatch(ctx context.Context, matchID uuid.UUID) error
}

// ViewerConfig holds configuration for a match viewer.
type ViewerConfig struct {
	Subscriber SubscriberConfig
	// EventWindow caps the displayed event log. Zero means DefaultEventWindow.
	EventWindow int
	// PollInterval enables the polling fallback when > 0.
	PollInterval time.Duration
	// OnComplete fires exactly once when the match completes. Optional.
	OnComplete CompletionFunc
	// OnChange fires after every view mutation. Optional.
	OnChange ChangeFunc
}

// DefaultViewerConfig returns default viewer configuration.
func DefaultViewerConfig() ViewerConfig {
	return ViewerConfig{
		Subscriber:   DefaultSubscriberConfig(),
		EventWindow:  DefaultEventWindow,
		PollInterval: 0,
	}
}

// Viewer ties one match's synchronizer to its inputs: the initial snapshot
// fetch, the push-channel subscription, the optional polling fallback, and
// user control actions. One viewer per mounted view; Close tears it down.
type Viewer struct {
	matchID    uuid.UUID
	fetcher    SnapshotFetcher
	controller Controller
	config     ViewerConfig

	sync       *Synchronizer
	subscriber *Subscriber

	// controlling guards against overlapping control requests.
	controlling atomic.Bool
	// connectedOnce distinguishes the first connect from reconnects.
	connectedOnce atomic.Bool
	closed        atomic.Bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewViewer creates a viewer for the given match. The fetcher and controller
// are typically the same match API client.
func NewViewer(matchID uuid.UUID, fetcher SnapshotFetcher, controller Controller, config ViewerConfig) *Viewer {
	v := &Viewer{
		matchID:    matchID,
		fetcher:    fetcher,
		controller: controller,
		config:     config,
	}

	v.sync = NewSynchronizer(matchID, Config{
		EventWindow: config.EventWindow,
		OnComplete:  v.handleComplete,
		OnChange:    config.OnChange,
	})
	v.subscriber = NewSubscriber(matchID, config.Subscriber, v.handleMessage, v.handleStatus)

	return v
}

// Open performs the initial snapshot fetch and, on success, starts the push
// subscription and polling fallback. A fetch failure is terminal for this
// viewer: the caller renders a not-found or error state and does not retry
// through the viewer.
func (v *Viewer) Open(ctx context.Context) error {
	snap, err := v.fetcher.GetSnapshot(ctx, v.matchID)
	if err != nil {
		return fmt.Errorf("initial snapshot fetch: %w", err)
	}
	if v.closed.Load() {
		return nil
	}
	v.sync.ApplySnapshot(snap)

	runCtx, cancel := context.WithCancel(context.Background())
	v.cancel = cancel

	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		v.subscriber.Run(runCtx)
	}()

	if v.config.PollInterval > 0 {
		poller := NewPoller(v.fetcher, v.sync, v.config.PollInterval)
		v.wg.Add(1)
		go func() {
			defer v.wg.Done()
			poller.Run(runCtx)
		}()
	}

	log.Info().
		Str("match_id", v.matchID.String()).
		Str("status", string(snap.Status)).
		Msg("match viewer opened")
	return nil
}

// Start requests that the match be started.
func (v *Viewer) Start(ctx context.Context) error {
	return v.control(ctx, "start", v.controller.StartMatch)
}

// Pause requests that the match be paused.
func (v *Viewer) Pause(ctx context.Context) error {
	return v.control(ctx, "pause", v.controller.PauseMatch)
}

// Resume requests that a paused match be resumed.
func (v *Viewer) Resume(ctx context.Context) error {
	return v.control(ctx, "resume", v.controller.ResumeMatch)
}

// control serializes control actions through the in-flight guard. The guard
// clears on every path; a failed action surfaces an error without touching
// the merged match state.
func (v *Viewer) control(ctx context.Context, action string, fn func(context.Context, uuid.UUID) error) error {
	if !v.controlling.CompareAndSwap(false, true) {
		return ErrControlInFlight
	}
	defer v.controlling.Store(false)

	if err := fn(ctx, v.matchID); err != nil {
		log.Warn().
			Err(err).
			Str("match_id", v.matchID.String()).
			Str("action", action).
			Msg("control action failed")
		return fmt.Errorf("%s match: %w", action, err)
	}
	return nil
}

// IsControlling reports whether a control action is in flight.
func (v *Viewer) IsControlling() bool {
	return v.controlling.Load()
}

// handleMessage feeds push messages into the merge. Messages arriving after
// Close are dropped.
func (v *Viewer) handleMessage(msg *models.PushMessage) {
	if v.closed.Load() {
		return
	}
	v.sync.Apply(msg)
}

// handleStatus mirrors channel transitions into the view and re-baselines
// with one fresh snapshot fetch on every reconnect, in case events were
// missed while disconnected. The merge absorbs any overlap.
func (v *Viewer) handleStatus(status ConnectionStatus) {
	if v.closed.Load() {
		return
	}
	v.sync.SetConnectionStatus(status)

	if status != StatusConnected {
		return
	}
	if v.connectedOnce.CompareAndSwap(false, true) {
		return
	}

	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		v.rebaseline()
	}()
}

func (v *Viewer) rebaseline() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snap, err := v.fetcher.GetSnapshot(ctx, v.matchID)
	if err != nil {
		// Non-fatal: the next push or poll catches the state up
		log.Warn().
			Err(err).
			Str("match_id", v.matchID.String()).
			Msg("re-baseline fetch failed")
		return
	}
	if v.closed.Load() {
		return
	}
	v.sync.ApplySnapshot(snap)
}

// handleComplete stops the push subscription and polling once the match is
// terminal, then forwards to the configured callback.
func (v *Viewer) handleComplete(final models.MatchSnapshot) {
	if v.cancel != nil {
		v.cancel()
	}
	if v.config.OnComplete != nil {
		v.config.OnComplete(final)
	}
}

// View returns the current presentation state.
func (v *Viewer) View() View {
	return v.sync.View()
}

// Events returns the merged event log ordered by time ascending.
func (v *Viewer) Events() []models.MatchEvent {
	return v.sync.Events()
}

// EventsNewestFirst returns the merged event log newest-first.
func (v *Viewer) EventsNewestFirst() []models.MatchEvent {
	return v.sync.EventsNewestFirst()
}

// ConnectionStatus returns the push-channel status.
func (v *Viewer) ConnectionStatus() ConnectionStatus {
	return v.sync.ConnectionStatus()
}

// Close tears the viewer down: it unsubscribes from the push channel, stops
// polling, and causes any in-flight fetch result to be ignored. Idempotent.
func (v *Viewer) Close() {
	if !v.closed.CompareAndSwap(false, true) {
		return
	}
	if v.cancel != nil {
		v.cancel()
	}
	v.wg.Wait()
	log.Info().Str("match_id", v.matchID.String()).Msg("match viewer closed")
}
