package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// Envelope is the wire format published to the bus. The gateway unwraps it
// and forwards the payload to WebSocket clients.
type Envelope struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	MatchID   string          `json:"matchId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NATSPublisher publishes outbox events to a JetStream stream
type NATSPublisher struct {
	nc            *nats.Conn
	js            jetstream.JetStream
	subjectPrefix string
}

// NATSPublisherConfig holds connection settings for the publisher
type NATSPublisherConfig struct {
	URL           string
	StreamName    string
	SubjectPrefix string // e.g. "match.events"
}

// DefaultNATSPublisherConfig returns default publisher configuration
func DefaultNATSPublisherConfig() NATSPublisherConfig {
	return NATSPublisherConfig{
		URL:           nats.DefaultURL,
		StreamName:    "MATCH_EVENTS",
		SubjectPrefix: "match.events",
	}
}

// NewNATSPublisher connects to NATS and ensures the stream exists
func NewNATSPublisher(ctx context.Context, config NATSPublisherConfig) (*NATSPublisher, error) {
	nc, err := nats.Connect(config.URL,
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	// Create the stream if it does not exist yet
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     config.StreamName,
		Subjects: []string{config.SubjectPrefix + ".>"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}

	return &NATSPublisher{
		nc:            nc,
		js:            js,
		subjectPrefix: config.SubjectPrefix,
	}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, event OutboxEvent) error {
	subject := fmt.Sprintf("%s.%s", p.subjectPrefix, event.MatchID.String())

	envelope := Envelope{
		EventID:   event.ID.String(),
		EventType: event.EventType,
		MatchID:   event.MatchID.String(),
		Timestamp: event.CreatedAt,
		Payload:   json.RawMessage(event.Payload),
	}

	messageBytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// Message ID keyed on the outbox row makes redelivery idempotent
	if _, err := p.js.Publish(ctx, subject, messageBytes, jetstream.WithMsgID(event.ID.String())); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	log.Debug().
		Str("subject", subject).
		Str("event_id", event.ID.String()).
		Str("event_type", event.EventType).
		Msg("published outbox event")

	return nil
}

// Close shuts down the NATS connection
func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}

// MockPublisher is a simple logging publisher for development/testing
type MockPublisher struct{}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (p *MockPublisher) Publish(ctx context.Context, event OutboxEvent) error {
	log.Info().
		Str("event_id", event.ID.String()).
		Str("event_type", event.EventType).
		Str("match_id", event.MatchID.String()).
		Msg("publishing event")
	return nil
}
