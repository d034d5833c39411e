package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cx-tal-miterani/flight-training-scheduler/internal/store"
	"github.com/cx-tal-miterani/flight-training-scheduler/pkg/logger"
	"github.com/cx-tal-miterani/flight-training-scheduler/pkg/metrics"
	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

// Subscriber receives committed domain events
type Subscriber interface {
	Publish(ctx context.Context, event models.DomainEvent) error
}

// SubscriberFunc adapts a function to Subscriber
type SubscriberFunc func(ctx context.Context, event models.DomainEvent) error

func (f SubscriberFunc) Publish(ctx context.Context, event models.DomainEvent) error {
	return f(ctx, event)
}

// Relay polls the outbox and delivers unpublished events in append order.
// Delivery is at least once: an event is marked published only after every
// subscriber accepted it.
type Relay struct {
	events      store.EventStore
	subscribers []Subscriber
	interval    time.Duration
	batchSize   int
	log         logger.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

func NewRelay(events store.EventStore, interval time.Duration, batchSize int, log logger.Logger, m *metrics.Metrics, subscribers ...Subscriber) *Relay {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Relay{
		events:      events,
		subscribers: subscribers,
		interval:    interval,
		batchSize:   batchSize,
		log:         log,
		metrics:     m,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Run polls until ctx is cancelled
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("event relay started", "interval", r.interval.String())
	for {
		select {
		case <-ctx.Done():
			r.log.Info("event relay stopped")
			return
		case <-ticker.C:
			if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
				r.log.Error("event relay flush failed", "error", err)
			}
		}
	}
}

// Flush delivers one batch and returns how many events were marked published.
// It stops at the first event a subscriber rejects so ordering is preserved.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	pending, err := r.events.ListUnpublished(ctx, r.batchSize)
	if err != nil {
		r.metrics.Error("relay_list")
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	delivered := make([]uuid.UUID, 0, len(pending))
	var deliverErr error
	for _, event := range pending {
		if deliverErr = r.deliver(ctx, event); deliverErr != nil {
			r.log.Warn("event delivery failed", "eventId", event.ID, "type", event.Type(), "error", deliverErr)
			r.metrics.Error("relay_deliver")
			break
		}
		delivered = append(delivered, event.ID)
	}

	if len(delivered) > 0 {
		if err := r.events.MarkPublished(ctx, delivered, r.now()); err != nil {
			r.metrics.Error("relay_mark")
			return 0, err
		}
		for range delivered {
			r.metrics.EventPublished()
		}
	}
	return len(delivered), deliverErr
}

func (r *Relay) deliver(ctx context.Context, event models.DomainEvent) error {
	for _, s := range r.subscribers {
		if err := s.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// LogSubscriber writes every event to the structured log
type LogSubscriber struct {
	log logger.Logger
}

func NewLogSubscriber(log logger.Logger) *LogSubscriber {
	return &LogSubscriber{log: log}
}

func (s *LogSubscriber) Publish(ctx context.Context, event models.DomainEvent) error {
	s.log.Info("domain event",
		"eventId", event.ID,
		"type", event.Type(),
		"aggregateId", event.AggregateID,
		"occurredAt", event.OccurredAt,
	)
	return nil
}
