package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimmy058910/realmrivalry-live/internal/match"
	"github.com/jimmy058910/realmrivalry-live/internal/match/engine"
	"github.com/jimmy058910/realmrivalry-live/internal/match/gateway"
	"github.com/jimmy058910/realmrivalry-live/internal/match/outbox"
)

// Services holds every wired component of the server process.
type Services struct {
	Match        *match.Service
	Gateway      *gateway.Service
	Engine       *engine.Engine
	OutboxWorker *outbox.Worker

	publisher *outbox.NATSPublisher
}

// setupServices wires the dependency chain:
// pool → repositories → apps → HTTP services, plus the engine, the outbox
// relay and the WebSocket gateway.
func setupServices(ctx context.Context, pool *pgxpool.Pool, config *AppConfig) (*Services, error) {
	natsURL := getEnv("NATS_URL", "nats://localhost:4222")

	// Match domain
	matchRepo := match.NewRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	outboxApp := outbox.NewApp(outboxRepo)
	matchApp := match.NewApp(matchRepo, outboxApp)
	matchService := match.NewService(matchApp)

	// Engine: the authoritative simulation loop
	matchEngine := engine.NewEngine(matchApp, config.Engine)

	// Outbox relay: database rows → JetStream
	publisherConfig := outbox.DefaultNATSPublisherConfig()
	publisherConfig.URL = natsURL
	publisher, err := outbox.NewNATSPublisher(ctx, publisherConfig)
	if err != nil {
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}
	outboxWorker := outbox.NewWorker(pool, outboxRepo, publisher, config.outboxConfig())

	// Gateway: JetStream → WebSocket subscribers
	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.JetStreamConfig.URL = natsURL
	gatewayService, err := gateway.NewService(gatewayConfig)
	if err != nil {
		publisher.Close()
		return nil, fmt.Errorf("create gateway service: %w", err)
	}

	return &Services{
		Match:        matchService,
		Gateway:      gatewayService,
		Engine:       matchEngine,
		OutboxWorker: outboxWorker,
		publisher:    publisher,
	}, nil
}

// Close releases connections held by the services.
func (s *Services) Close() {
	if s.publisher != nil {
		s.publisher.Close()
	}
}
