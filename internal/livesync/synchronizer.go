// Package livesync maintains a local, continuously-updating mirror of a
// remote match. It reconciles authoritative snapshot fetches with
// incrementally pushed events into one coherent view, with identity-based
// deduplication and a bounded event log.
package livesync

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jimmy058910/realmrivalry-live/internal/models"
	"github.com/rs/zerolog/log"
)

// ConnectionStatus reflects the state of the push channel.
type ConnectionStatus string

const (
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
)

// DefaultEventWindow bounds the in-memory event log.
const DefaultEventWindow = 10

// CompletionFunc is invoked exactly once when the match reaches the
// completed status, with the final snapshot.
type CompletionFunc func(final models.MatchSnapshot)

// ChangeFunc is invoked after every state mutation with a copy of the view.
type ChangeFunc func(view View)

// View is what the synchronizer exposes to the rendering layer.
type View struct {
	Snapshot         *models.MatchSnapshot
	ConnectionStatus ConnectionStatus
	DisplayedEvents  []models.MatchEvent
}

// Config holds configuration for a Synchronizer.
type Config struct {
	// EventWindow caps the retained event log. Zero means DefaultEventWindow.
	EventWindow int
	// OnComplete fires exactly once when the match completes. Optional.
	OnComplete CompletionFunc
	// OnChange fires after every mutation that changed the view. Optional.
	OnChange ChangeFunc
}

// Synchronizer owns the client-side mirror of one match. Snapshots are
// authoritative for status, scores and clock; the event log is merge-only
// and deduplicated by identity regardless of arrival order or duplication.
type Synchronizer struct {
	mu sync.Mutex

	matchID  uuid.UUID
	window   int
	snapshot *models.MatchSnapshot

	// events is ordered by time ascending and capped to window entries.
	events []models.MatchEvent
	// seen indexes event identities for O(1) duplicate checks. Pruned in
	// lockstep with events so it stays bounded over a long match.
	seen map[string]struct{}

	connStatus ConnectionStatus
	completed  bool

	onComplete CompletionFunc
	onChange   ChangeFunc
}

// NewSynchronizer creates a synchronizer for the given match.
func NewSynchronizer(matchID uuid.UUID, config Config) *Synchronizer {
	window := config.EventWindow
	if window <= 0 {
		window = DefaultEventWindow
	}
	return &Synchronizer{
		matchID:    matchID,
		window:     window,
		events:     make([]models.MatchEvent, 0, window),
		seen:       make(map[string]struct{}),
		connStatus: StatusConnecting,
		onComplete: config.OnComplete,
		onChange:   config.OnChange,
	}
}

// eventIdentity derives the dedup key for an event: the server-assigned ID
// when present, otherwise the (time, description) pair.
func eventIdentity(ev *models.MatchEvent) string {
	if ev.ID != uuid.Nil {
		return ev.ID.String()
	}
	return fmt.Sprintf("%d|%s", ev.TimeSec, ev.Description)
}

// Apply is the unified ingestion point: push messages, polled snapshots and
// the initial fetch all flow through the same merge, so every source is an
// equivalent, idempotent input stream.
func (s *Synchronizer) Apply(msg *models.PushMessage) {
	if msg == nil {
		return
	}

	s.mu.Lock()
	var (
		changed    bool
		completion *models.MatchSnapshot
	)
	switch msg.Type {
	case models.PushTypeUpdate:
		if msg.Snapshot != nil {
			changed, completion = s.applySnapshotLocked(msg.Snapshot)
		}
	case models.PushTypeEvent:
		if msg.Event != nil {
			changed = s.mergeEventLocked(*msg.Event)
		}
	case models.PushTypeComplete:
		if msg.Snapshot != nil {
			changed, completion = s.applySnapshotLocked(msg.Snapshot)
		}
		if c := s.markCompletedLocked(); c != nil {
			changed, completion = true, c
		}
	default:
		log.Warn().
			Str("type", string(msg.Type)).
			Str("match_id", s.matchID.String()).
			Msg("ignoring push message with unknown type")
	}
	view := s.viewLocked()
	s.mu.Unlock()

	s.notify(changed, completion, view)
}

// ApplySnapshot folds an authoritative snapshot into the local state.
// Status, scores and clock are replaced; the snapshot's recentEvents become
// merge input, never a wholesale log replacement, so events the snapshot no
// longer carries are not lost.
func (s *Synchronizer) ApplySnapshot(snap *models.MatchSnapshot) {
	if snap == nil {
		return
	}
	s.mu.Lock()
	changed, completion := s.applySnapshotLocked(snap)
	view := s.viewLocked()
	s.mu.Unlock()

	s.notify(changed, completion, view)
}

// ApplyEvent merges a single pushed event into the log. Scores, status and
// game time are never touched by bare events.
func (s *Synchronizer) ApplyEvent(ev *models.MatchEvent) {
	if ev == nil {
		return
	}
	s.mu.Lock()
	changed := s.mergeEventLocked(*ev)
	view := s.viewLocked()
	s.mu.Unlock()

	s.notify(changed, nil, view)
}

// SetConnectionStatus records the push-channel state for display.
func (s *Synchronizer) SetConnectionStatus(status ConnectionStatus) {
	s.mu.Lock()
	changed := s.connStatus != status
	s.connStatus = status
	view := s.viewLocked()
	s.mu.Unlock()

	s.notify(changed, nil, view)
}

func (s *Synchronizer) applySnapshotLocked(snap *models.MatchSnapshot) (changed bool, completion *models.MatchSnapshot) {
	copied := *snap
	copied.RecentEvents = nil
	s.snapshot = &copied
	changed = true

	for i := range snap.RecentEvents {
		s.mergeEventLocked(snap.RecentEvents[i])
	}

	if snap.Status == models.MatchStatusCompleted {
		completion = s.markCompletedLocked()
	}
	return changed, completion
}

// markCompletedLocked transitions to completed at most once and returns the
// final snapshot to hand to the completion callback, or nil if already done.
func (s *Synchronizer) markCompletedLocked() *models.MatchSnapshot {
	if s.completed {
		return nil
	}
	s.completed = true
	if s.snapshot != nil {
		s.snapshot.Status = models.MatchStatusCompleted
		final := *s.snapshot
		return &final
	}
	return &models.MatchSnapshot{MatchID: s.matchID, Status: models.MatchStatusCompleted}
}

// mergeEventLocked implements the identity merge: unseen events are inserted
// in time order and marked seen, duplicates are silently discarded, and the
// log is trimmed to the window. An event older than the window floor while
// the log is full is dropped outright: it would be pruned immediately, and
// admitting it could resurrect an already-pruned entry as "new".
func (s *Synchronizer) mergeEventLocked(ev models.MatchEvent) bool {
	identity := eventIdentity(&ev)
	if _, ok := s.seen[identity]; ok {
		return false
	}
	if len(s.events) >= s.window && ev.TimeSec < s.events[0].TimeSec {
		return false
	}

	// Insert keeping ascending time order; equal times keep arrival order.
	idx := sort.Search(len(s.events), func(i int) bool {
		return s.events[i].TimeSec > ev.TimeSec
	})
	s.events = append(s.events, models.MatchEvent{})
	copy(s.events[idx+1:], s.events[idx:])
	s.events[idx] = ev
	s.seen[identity] = struct{}{}

	s.pruneLocked()
	return true
}

// pruneLocked trims the log to the window and drops seen entries strictly
// older than the new floor. Entries at exactly the floor time stay indexed
// so a pruned event re-delivered later can never reappear.
func (s *Synchronizer) pruneLocked() {
	if len(s.events) <= s.window {
		return
	}
	dropped := make([]models.MatchEvent, len(s.events)-s.window)
	copy(dropped, s.events[:len(s.events)-s.window])
	s.events = s.events[len(s.events)-s.window:]

	floor := s.events[0].TimeSec
	for i := range dropped {
		if dropped[i].TimeSec < floor {
			delete(s.seen, eventIdentity(&dropped[i]))
		}
	}
}

func (s *Synchronizer) viewLocked() View {
	return View{
		Snapshot:         s.snapshotCopyLocked(),
		ConnectionStatus: s.connStatus,
		DisplayedEvents:  s.eventsCopyLocked(),
	}
}

func (s *Synchronizer) snapshotCopyLocked() *models.MatchSnapshot {
	if s.snapshot == nil {
		return nil
	}
	copied := *s.snapshot
	return &copied
}

func (s *Synchronizer) eventsCopyLocked() []models.MatchEvent {
	out := make([]models.MatchEvent, len(s.events))
	copy(out, s.events)
	return out
}

// notify fires callbacks outside the lock so they may call back in.
func (s *Synchronizer) notify(changed bool, completion *models.MatchSnapshot, view View) {
	if completion != nil && s.onComplete != nil {
		s.onComplete(*completion)
	}
	if changed && s.onChange != nil {
		s.onChange(view)
	}
}

// MatchID returns the match this synchronizer mirrors.
func (s *Synchronizer) MatchID() uuid.UUID {
	return s.matchID
}

// View returns a copy of the current presentation state.
func (s *Synchronizer) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Snapshot returns a copy of the latest authoritative snapshot, or nil if
// none has been applied yet.
func (s *Synchronizer) Snapshot() *models.MatchSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotCopyLocked()
}

// Events returns the merged event log ordered by time ascending.
func (s *Synchronizer) Events() []models.MatchEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eventsCopyLocked()
}

// EventsNewestFirst returns the merged event log reversed, for views that
// render the most recent occurrence at the top.
func (s *Synchronizer) EventsNewestFirst() []models.MatchEvent {
	events := s.Events()
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events
}

// ConnectionStatus returns the current push-channel status.
func (s *Synchronizer) ConnectionStatus() ConnectionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connStatus
}

// Completed reports whether the match has reached its terminal state.
func (s *Synchronizer) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}
