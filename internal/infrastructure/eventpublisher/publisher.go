package eventpublisher

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/gojournal/internal/domain"
	"github.com/iho/gojournal/internal/infrastructure/metrics"
	"github.com/iho/gojournal/internal/usecase"
)

// Publisher delivers an outbox event to its destination.
type Publisher interface {
	Publish(ctx context.Context, event *domain.OutboxEvent) error
}

// Config configures an EventPublisher.
type Config struct {
	OutboxRepo usecase.OutboxRepository
	Publisher  Publisher
	Logger     zerolog.Logger
	Metrics    *metrics.Metrics
	BatchSize  int
	Interval   time.Duration
	// Retention is how long published events are kept. Zero disables cleanup.
	Retention time.Duration
}

// EventPublisher relays journal events from the outbox table.
type EventPublisher struct {
	outboxRepo usecase.OutboxRepository
	publisher  Publisher
	logger     zerolog.Logger
	metrics    *metrics.Metrics
	batchSize  int
	interval   time.Duration
	retention  time.Duration
	now        func() time.Time
}

// NewEventPublisher creates a new EventPublisher.
func NewEventPublisher(cfg Config) *EventPublisher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}

	return &EventPublisher{
		outboxRepo: cfg.OutboxRepo,
		publisher:  cfg.Publisher,
		logger:     cfg.Logger.With().Str("component", "outbox").Logger(),
		metrics:    cfg.Metrics,
		batchSize:  cfg.BatchSize,
		interval:   cfg.Interval,
		retention:  cfg.Retention,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Start relays events on every tick until ctx is cancelled.
func (p *EventPublisher) Start(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info().Int("batch_size", p.batchSize).Dur("interval", p.interval).Msg("event publisher started")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("event publisher stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := p.RelayOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Error().Err(err).Msg("relay outbox batch")
			}
			if err := p.Cleanup(ctx); err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Error().Err(err).Msg("cleanup published events")
			}
		}
	}
}

// RelayOnce publishes one batch of unpublished events and returns how many
// were delivered. Failed events stay in the outbox for the next run.
func (p *EventPublisher) RelayOnce(ctx context.Context) (int, error) {
	events, err := p.outboxRepo.GetUnpublished(ctx, p.batchSize)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, event := range events {
		if err := p.publishEvent(ctx, event); err != nil {
			p.logger.Warn().Err(err).
				Str("event_id", event.ID).
				Str("event_type", event.EventType).
				Msg("publish event")
			continue
		}
		delivered++
	}
	return delivered, nil
}

// Drain relays batches until a batch delivers nothing. It returns the total
// number of delivered events.
func (p *EventPublisher) Drain(ctx context.Context) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := p.RelayOnce(ctx)
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}
	}
}

// Cleanup removes events published longer ago than the retention window.
func (p *EventPublisher) Cleanup(ctx context.Context) error {
	if p.retention <= 0 {
		return nil
	}
	return p.outboxRepo.DeletePublished(ctx, p.now().Add(-p.retention))
}

func (p *EventPublisher) publishEvent(ctx context.Context, event *domain.OutboxEvent) error {
	if err := p.publisher.Publish(ctx, event); err != nil {
		if p.metrics != nil {
			p.metrics.EventsFailed.Inc()
		}
		return err
	}

	if err := p.outboxRepo.MarkPublished(ctx, event.ID, p.now()); err != nil {
		return err
	}
	if p.metrics != nil {
		p.metrics.EventsPublished.Inc()
	}
	return nil
}

// LogPublisher writes events to the log. It stands in for a message broker.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event.
func (p *LogPublisher) Publish(_ context.Context, event *domain.OutboxEvent) error {
	p.logger.Info().
		Str("event_id", event.ID).
		Str("event_type", event.EventType).
		Str("aggregate_type", event.AggregateType).
		Str("aggregate_id", event.AggregateID).
		Interface("payload", event.Payload).
		Msg("event published")
	return nil
}
