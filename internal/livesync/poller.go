package livesync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jimmy058910/realmrivalry-live/internal/models"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// SnapshotFetcher fetches the authoritative snapshot for a match.
type SnapshotFetcher interface {
	GetSnapshot(ctx context.Context, matchID uuid.UUID) (*models.MatchSnapshot, error)
}

// Poller periodically re-fetches the snapshot as a redundant input stream.
// Polled snapshots feed the same merge as push messages, so running both at
// once never produces duplicate events.
type Poller struct {
	fetcher  SnapshotFetcher
	sync     *Synchronizer
	interval time.Duration
	clock    clockwork.Clock
}

// NewPoller creates a polling fallback for the synchronizer's match.
func NewPoller(fetcher SnapshotFetcher, sync *Synchronizer, interval time.Duration) *Poller {
	return &Poller{
		fetcher:  fetcher,
		sync:     sync,
		interval: interval,
		clock:    clockwork.NewRealClock(),
	}
}

// WithClock overrides the clock, for tests.
func (p *Poller) WithClock(clock clockwork.Clock) *Poller {
	p.clock = clock
	return p
}

// Run polls until ctx is cancelled. Fetch failures are transient: they are
// logged and the next tick tries again.
func (p *Poller) Run(ctx context.Context) {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	matchID := p.sync.MatchID()
	snap, err := p.fetcher.GetSnapshot(ctx, matchID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Warn().
			Err(err).
			Str("match_id", matchID.String()).
			Msg("snapshot poll failed")
		return
	}
	p.sync.ApplySnapshot(snap)
}
