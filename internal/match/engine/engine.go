package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jimmy058910/realmrivalry-live/internal/match"
	"github.com/jimmy058910/realmrivalry-live/internal/match/events"
	"github.com/jimmy058910/realmrivalry-live/internal/models"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Clock is the interface we use for time operations.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) clockwork.Timer
}

// MatchApp defines what the engine needs from the match application
type MatchApp interface {
	FetchRunningMatches(ctx context.Context, limit int32) ([]*models.Match, error)
	GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error)
	UpdateProgress(ctx context.Context, id uuid.UUID, req match.UpdateProgressRequest) (*models.Match, error)
	SetHalftime(ctx context.Context, id uuid.UUID) (*models.Match, error)
	ResumeMatch(ctx context.Context, id uuid.UUID) (*models.Match, error)
	CompleteMatch(ctx context.Context, id uuid.UUID, mvp *events.MVPInfo) (*models.Match, error)
	RecordEvent(ctx context.Context, req match.InsertEventRequest) error
}

// Config holds simulation tuning for the engine
type Config struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	BatchSize    int32         `yaml:"batch_size"`
	NumWorkers   int           `yaml:"num_workers"`
	ScorePct     int           `yaml:"score_pct"`
	InterceptPct int           `yaml:"intercept_pct"`
	InjuryPct    int           `yaml:"injury_pct"`
}

// DefaultConfig returns default engine configuration
func DefaultConfig() Config {
	return Config{
		TickInterval: 3 * time.Second,
		BatchSize:    50,
		NumWorkers:   10,
		ScorePct:     8,
		InterceptPct: 15,
		InjuryPct:    3,
	}
}

// Engine advances every running match one simulation step per tick.
// It is the authoritative producer of match progress and narrated events.
type Engine struct {
	app        MatchApp
	clock      Clock
	config     Config
	sim        *simulator
	instanceID string

	workCh chan uuid.UUID

	// Track in-flight work to prevent duplicate processing
	inFlight   map[uuid.UUID]bool
	inFlightMu sync.Mutex
}

// NewEngine creates a new match engine with a worker pool
func NewEngine(app MatchApp, config Config) *Engine {
	return &Engine{
		app:        app,
		clock:      clockwork.NewRealClock(),
		config:     config,
		sim:        newSimulator(time.Now().UnixNano()),
		instanceID: uuid.New().String()[:8], // short ID for logging
		workCh:     make(chan uuid.UUID, config.NumWorkers*2),
		inFlight:   make(map[uuid.UUID]bool),
	}
}

// WithClock overrides the engine clock, used by tests
func (e *Engine) WithClock(clock Clock) *Engine {
	e.clock = clock
	return e
}

// WithSeed makes the simulation deterministic, used by tests
func (e *Engine) WithSeed(seed int64) *Engine {
	e.sim = newSimulator(seed)
	return e
}

// Run loops forever, advancing running matches every tick.
func (e *Engine) Run(ctx context.Context) error {
	log.Info().
		Str("instance", e.instanceID).
		Int("workers", e.config.NumWorkers).
		Dur("tick_interval", e.config.TickInterval).
		Msg("match engine started")

	var wg sync.WaitGroup
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	for i := 0; i < e.config.NumWorkers; i++ {
		wg.Add(1)
		go e.worker(workerCtx, &wg, i)
	}

	defer func() {
		cancelWorkers()
		close(e.workCh)
		wg.Wait()
		log.Info().Str("instance", e.instanceID).Msg("all engine workers shut down")
	}()

	timer := e.clock.NewTimer(e.config.TickInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("instance", e.instanceID).Msg("engine shutting down")
			return nil
		case <-timer.Chan():
		}
		timer.Reset(e.config.TickInterval)

		matches, err := e.app.FetchRunningMatches(ctx, e.config.BatchSize)
		if err != nil {
			log.Error().Err(err).Str("instance", e.instanceID).Msg("error fetching running matches")
			continue
		}

		for _, m := range matches {
			e.inFlightMu.Lock()
			if e.inFlight[m.ID] {
				e.inFlightMu.Unlock()
				continue
			}
			e.inFlight[m.ID] = true
			e.inFlightMu.Unlock()

			select {
			case <-ctx.Done():
				e.inFlightMu.Lock()
				delete(e.inFlight, m.ID)
				e.inFlightMu.Unlock()
				return nil
			case e.workCh <- m.ID:
			}
		}
	}
}

// worker processes match ticks from the work channel
func (e *Engine) worker(ctx context.Context, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case matchID, ok := <-e.workCh:
			if !ok {
				return
			}

			if err := e.Tick(ctx, matchID); err != nil {
				log.Error().
					Err(err).
					Str("match_id", matchID.String()).
					Str("instance", e.instanceID).
					Int("worker_id", workerID).
					Msg("match tick failed")
			}

			e.inFlightMu.Lock()
			delete(e.inFlight, matchID)
			e.inFlightMu.Unlock()
		}
	}
}

// Tick advances a single match one simulation step.
func (e *Engine) Tick(ctx context.Context, matchID uuid.UUID) error {
	m, err := e.app.GetMatch(ctx, matchID)
	if err != nil {
		return err
	}

	switch m.Status {
	case models.MatchStatusHalftime:
		return e.resumeSecondHalf(ctx, m)
	case models.MatchStatusLive:
		return e.advance(ctx, m)
	default:
		// Paused or finished between fetch and tick; nothing to do.
		return nil
	}
}

func (e *Engine) resumeSecondHalf(ctx context.Context, m *models.Match) error {
	if _, err := e.app.ResumeMatch(ctx, m.ID); err != nil {
		return err
	}

	data, err := json.Marshal(events.MatchResumedPayload{
		MatchID:   m.ID.String(),
		ResumedAt: e.clock.Now(),
	})
	if err != nil {
		return fmt.Errorf("marshal resume payload: %w", err)
	}

	return e.app.RecordEvent(ctx, match.InsertEventRequest{
		ID:          uuid.New(),
		MatchID:     m.ID,
		TimeSec:     m.GameTimeSec,
		Type:        models.EventTypeResume,
		Description: "The second half is underway",
		Data:        data,
	})
}

func (e *Engine) advance(ctx context.Context, m *models.Match) error {
	step := e.sim.step(m, e.config)

	for _, ev := range step.Events {
		if err := e.app.RecordEvent(ctx, ev); err != nil {
			log.Error().
				Err(err).
				Str("match_id", m.ID.String()).
				Msg("failed to record simulated event")
			// A lost narration must not stall the match clock
		}
	}

	if _, err := e.app.UpdateProgress(ctx, m.ID, step.Progress); err != nil {
		return err
	}

	if step.Halftime {
		if _, err := e.app.SetHalftime(ctx, m.ID); err != nil {
			return err
		}
		data, err := json.Marshal(events.HalftimePayload{
			HomeScore: step.Progress.HomeScore,
			AwayScore: step.Progress.AwayScore,
			TimeSec:   step.Progress.GameTimeSec,
		})
		if err != nil {
			return fmt.Errorf("marshal halftime payload: %w", err)
		}
		return e.app.RecordEvent(ctx, match.InsertEventRequest{
			ID:          uuid.New(),
			MatchID:     m.ID,
			TimeSec:     step.Progress.GameTimeSec,
			Type:        models.EventTypeHalftime,
			Description: "Halftime",
			Data:        data,
		})
	}

	if step.Completed {
		_, err := e.app.CompleteMatch(ctx, m.ID, step.MVP)
		return err
	}

	return nil
}
