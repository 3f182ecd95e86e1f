package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tripcreators/creator-wallet/pkg/config"
	"github.com/tripcreators/creator-wallet/pkg/db/models"
	"github.com/tripcreators/creator-wallet/pkg/enums"
	"github.com/tripcreators/creator-wallet/pkg/logger"
	"github.com/tripcreators/creator-wallet/pkg/metrics"
	"github.com/tripcreators/creator-wallet/pkg/outbox"
	"github.com/tripcreators/creator-wallet/pkg/outbox/registry"
)

const (
	publishTimeout = 15 * time.Second

	// row redelivery: 2s, 4s, 8s ... capped at 10m
	baseRetryDelay = 2 * time.Second
	maxRetryDelay  = 10 * time.Minute

	// loop backoff after a failed drain
	maxIdleBackoff = 10 * time.Second
	idleJitter     = 250 * time.Millisecond
)

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type topicSource interface {
	Ping(context.Context) error
	Publisher(topic string) *gcppubsub.Publisher
}

type outboxStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error, backoff time.Duration) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type deadLetterStore interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type eventResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// sender publishes one message and waits for the server id.
type sender func(ctx context.Context, msg *gcppubsub.Message) (string, error)

// RelayDeps wires the relay. Senders overrides the Pub/Sub publishers.
type RelayDeps struct {
	Outbox   config.OutboxConfig
	Logger   *logger.Logger
	DB       txRunner
	PubSub   topicSource
	Events   outboxStore
	DLQ      deadLetterStore
	Registry eventResolver
	Metrics  *metrics.OutboxMetrics
	Senders  func(topic string) sender
}

// Relay moves committed outbox rows onto their Pub/Sub topics.
type Relay struct {
	deps        RelayDeps
	batch       int
	maxAttempts int
	idle        time.Duration
	senders     map[string]sender
}

func NewRelay(deps RelayDeps) (*Relay, error) {
	switch {
	case deps.Logger == nil:
		return nil, errors.New("logger is required")
	case deps.DB == nil:
		return nil, errors.New("database client is required")
	case deps.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case deps.Events == nil:
		return nil, errors.New("outbox repository is required")
	case deps.DLQ == nil:
		return nil, errors.New("dlq repository is required")
	case deps.Registry == nil:
		return nil, errors.New("event registry is required")
	}
	if deps.Senders == nil {
		deps.Senders = pubsubSenders(deps.PubSub)
	}
	return &Relay{
		deps:        deps,
		batch:       positiveOr(deps.Outbox.BatchSize, 50),
		maxAttempts: positiveOr(deps.Outbox.MaxAttempts, 10),
		idle:        time.Duration(positiveOr(deps.Outbox.PollIntervalMS, 500)) * time.Millisecond,
		senders:     map[string]sender{},
	}, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// pubsubSenders adapts the shared client; publishers are created lazily per topic.
func pubsubSenders(client topicSource) func(string) sender {
	return func(topic string) sender {
		pub := client.Publisher(topic)
		if pub == nil {
			return nil
		}
		return func(ctx context.Context, msg *gcppubsub.Message) (string, error) {
			return pub.Publish(ctx, msg).Get(ctx)
		}
	}
}

// Run drains the outbox until ctx is cancelled. A full batch is followed
// immediately by the next one; an empty or failed drain waits.
func (r *Relay) Run(ctx context.Context) error {
	for name, ping := range map[string]func(context.Context) error{
		"database": r.deps.DB.Ping,
		"pubsub":   r.deps.PubSub.Ping,
	} {
		if err := ping(ctx); err != nil {
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}

	wait := r.idle
	for {
		handled, err := r.drain(ctx)
		switch {
		case ctx.Err() != nil:
			r.deps.Logger.Info(ctx, "outbox relay stopping")
			return ctx.Err()
		case err != nil:
			r.deps.Logger.Error(ctx, "outbox drain failed", err)
			wait = min(2*wait, maxIdleBackoff)
		case handled > 0:
			wait = r.idle
			continue
		default:
			wait = r.idle
		}

		timer := time.NewTimer(wait + rand.N(idleJitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			r.deps.Logger.Info(ctx, "outbox relay stopping")
			return ctx.Err()
		case <-timer.C:
		}
	}
}

type verdict int

const (
	verdictPublished verdict = iota
	verdictRetry
	verdictDeadLetter
)

// outcome is what happened to one row on this pass.
type outcome struct {
	verdict verdict
	reason  enums.OutboxDLQErrorReason
	topic   string
	err     error
}

// drain claims one batch under row locks and settles every row in the same
// transaction. It returns how many rows were claimed.
func (r *Relay) drain(ctx context.Context) (int, error) {
	handled := 0
	err := r.deps.DB.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := r.deps.Events.FetchUnpublishedForPublish(tx, r.batch, r.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch outbox batch: %w", err)
		}
		handled = len(events)
		for _, event := range events {
			if err := r.settle(ctx, tx, event, r.deliver(ctx, event)); err != nil {
				return err
			}
		}
		return nil
	})
	return handled, err
}

// deliver resolves and publishes one row without touching the database.
func (r *Relay) deliver(ctx context.Context, event models.OutboxEvent) outcome {
	resolved, err := r.deps.Registry.Resolve(event)
	if err != nil {
		return outcome{verdict: verdictDeadLetter, reason: enums.OutboxDLQReasonUnroutable, err: err}
	}
	topic := resolved.Route.Topic

	send := r.senderFor(topic)
	if send == nil {
		return outcome{verdict: verdictDeadLetter, reason: enums.OutboxDLQReasonUnroutable, topic: topic,
			err: fmt.Errorf("no publisher for topic %s", topic)}
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	_, err = send(publishCtx, messageFor(event, resolved))

	var nonRetryable registry.NonRetryableError
	switch {
	case err == nil:
		return outcome{verdict: verdictPublished, topic: topic}
	case errors.As(err, &nonRetryable):
		return outcome{verdict: verdictDeadLetter, reason: enums.OutboxDLQReasonNonRetryable, topic: topic, err: err}
	case event.AttemptCount+1 >= r.maxAttempts:
		return outcome{verdict: verdictDeadLetter, reason: enums.OutboxDLQReasonMaxAttempts, topic: topic,
			err: fmt.Errorf("gave up after %d attempts: %w", event.AttemptCount+1, err)}
	default:
		return outcome{verdict: verdictRetry, topic: topic, err: err}
	}
}

func (r *Relay) senderFor(topic string) sender {
	if send, ok := r.senders[topic]; ok {
		return send
	}
	send := r.deps.Senders(topic)
	if send != nil {
		r.senders[topic] = send
	}
	return send
}

// settle records the outcome on the row, moving dead letters to the DLQ.
func (r *Relay) settle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, out outcome) error {
	logg := r.deps.Logger
	logCtx := logg.WithFields(ctx, map[string]any{
		"outbox_id":     event.ID.String(),
		"event_type":    event.EventType,
		"aggregate_id":  event.AggregateID.String(),
		"attempt_count": event.AttemptCount,
		"topic":         out.topic,
	})
	eventType := string(event.EventType)

	switch out.verdict {
	case verdictPublished:
		if err := r.deps.Events.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		r.deps.Metrics.Inc(eventType, metrics.OutboxPublished)
		logg.Info(logCtx, "outbox event published")

	case verdictRetry:
		delay := retryDelay(event.AttemptCount + 1)
		if err := r.deps.Events.MarkFailedTx(tx, event.ID, out.err, delay); err != nil {
			return fmt.Errorf("mark failed %s: %w", event.ID, err)
		}
		r.deps.Metrics.Inc(eventType, metrics.OutboxRetried)
		logCtx = logg.WithFields(logCtx, map[string]any{"retry_in": delay.String(), "error": out.err.Error()})
		logg.Warn(logCtx, "outbox publish failed, will retry")

	case verdictDeadLetter:
		entry := outbox.DeadLetter(event, out.reason, out.err, time.Now())
		if err := r.deps.DLQ.InsertTx(tx, entry); err != nil {
			return fmt.Errorf("dead-letter %s: %w", event.ID, err)
		}
		if err := r.deps.Events.MarkTerminalTx(tx, event.ID, out.err, r.maxAttempts); err != nil {
			return fmt.Errorf("mark terminal %s: %w", event.ID, err)
		}
		r.deps.Metrics.Inc(eventType, metrics.OutboxDeadLettered)
		logCtx = logg.WithFields(logCtx, map[string]any{"error_reason": out.reason, "error": out.err.Error()})
		logg.Warn(logCtx, "outbox event dead-lettered")
	}
	return nil
}

// messageFor carries the raw envelope as data; consumers route on attributes.
func messageFor(event models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"event_version":  strconv.Itoa(resolved.Envelope.Version),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

func retryDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return baseRetryDelay
	}
	// stop shifting before the duration overflows
	if attempt > 20 {
		return maxRetryDelay
	}
	return min(baseRetryDelay<<(attempt-1), maxRetryDelay)
}
