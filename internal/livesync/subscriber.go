package livesync

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jimmy058910/realmrivalry-live/internal/models"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// SubscriberConfig holds configuration for the push-channel subscriber.
type SubscriberConfig struct {
	// URL is the WebSocket endpoint, e.g. "ws://localhost:8080/ws/match".
	// The match_id query parameter is appended per subscription.
	URL              string
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	// InitialBackoff and MaxBackoff bound the reconnect delay, which doubles
	// after each failed attempt and resets on a successful connect.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultSubscriberConfig returns default subscriber configuration.
func DefaultSubscriberConfig() SubscriberConfig {
	return SubscriberConfig{
		URL:              "ws://localhost:8080/ws/match",
		HandshakeTimeout: 10 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		InitialBackoff:   time.Second,
		MaxBackoff:       30 * time.Second,
	}
}

// Subscriber maintains a WebSocket subscription to one match's push channel.
// Channel errors are non-fatal: the subscriber reconnects with backoff and
// reports transitions through the status callback, leaving re-baselining to
// the owner.
type Subscriber struct {
	config  SubscriberConfig
	matchID uuid.UUID
	clock   clockwork.Clock

	onMessage func(*models.PushMessage)
	onStatus  func(ConnectionStatus)
}

// NewSubscriber creates a subscriber for the given match. onMessage receives
// every decoded push message; onStatus receives connection transitions.
func NewSubscriber(matchID uuid.UUID, config SubscriberConfig, onMessage func(*models.PushMessage), onStatus func(ConnectionStatus)) *Subscriber {
	return &Subscriber{
		config:    config,
		matchID:   matchID,
		clock:     clockwork.NewRealClock(),
		onMessage: onMessage,
		onStatus:  onStatus,
	}
}

// WithClock overrides the clock, for tests.
func (s *Subscriber) WithClock(clock clockwork.Clock) *Subscriber {
	s.clock = clock
	return s
}

// Run connects and consumes push messages until ctx is cancelled,
// reconnecting with exponential backoff after any channel error.
func (s *Subscriber) Run(ctx context.Context) {
	endpoint, err := s.subscriptionURL()
	if err != nil {
		log.Error().Err(err).Str("url", s.config.URL).Msg("invalid push channel URL")
		s.onStatus(StatusDisconnected)
		return
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: s.config.HandshakeTimeout,
	}

	backoff := s.config.InitialBackoff
	for {
		if ctx.Err() != nil {
			return
		}

		s.onStatus(StatusConnecting)
		conn, _, err := dialer.DialContext(ctx, endpoint, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().
				Err(err).
				Str("match_id", s.matchID.String()).
				Dur("backoff", backoff).
				Msg("push channel dial failed, retrying")
			s.onStatus(StatusDisconnected)
			if !s.sleep(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, s.config.MaxBackoff)
			continue
		}

		backoff = s.config.InitialBackoff
		s.onStatus(StatusConnected)
		log.Info().Str("match_id", s.matchID.String()).Msg("push channel connected")

		err = s.consume(ctx, conn)
		conn.Close()
		if ctx.Err() != nil {
			return
		}

		log.Warn().
			Err(err).
			Str("match_id", s.matchID.String()).
			Msg("push channel disconnected")
		s.onStatus(StatusDisconnected)
		if !s.sleep(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff, s.config.MaxBackoff)
	}
}

// consume reads push messages until the connection breaks or ctx ends.
func (s *Subscriber) consume(ctx context.Context, conn *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(s.config.WriteTimeout))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		var msg models.PushMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			// Malformed frames are absorbed, not surfaced
			log.Warn().
				Err(err).
				Str("match_id", s.matchID.String()).
				Msg("discarding malformed push message")
			continue
		}
		s.onMessage(&msg)
	}
}

func (s *Subscriber) subscriptionURL() (string, error) {
	u, err := url.Parse(s.config.URL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("match_id", s.matchID.String())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// sleep waits for d on the subscriber's clock; returns false if ctx ended.
func (s *Subscriber) sleep(ctx context.Context, d time.Duration) bool {
	timer := s.clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}
