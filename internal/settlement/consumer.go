package settlement

import (
	"context"
	"errors"
	"strings"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/tripcreators/creator-wallet/pkg/enums"
	pkgerrors "github.com/tripcreators/creator-wallet/pkg/errors"
	"github.com/tripcreators/creator-wallet/pkg/logger"
	"github.com/tripcreators/creator-wallet/pkg/outbox"
	"github.com/tripcreators/creator-wallet/pkg/outbox/payloads"
	"github.com/tripcreators/creator-wallet/pkg/outbox/registry"
)

const consumerName = "settlement-worker"

type advancer interface {
	Advance(ctx context.Context, payoutID uuid.UUID) (Outcome, error)
}

type idempotencyGuard interface {
	Claim(ctx context.Context, consumer, eventID string) (bool, error)
	Release(ctx context.Context, consumer, eventID string) error
}

// Consumer drives settlement from payout_approved events.
type Consumer struct {
	subscription *gcppubsub.Subscriber
	settler      advancer
	guard        idempotencyGuard
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
}

// NewConsumer builds the settlement consumer.
func NewConsumer(subscription *gcppubsub.Subscriber, settler advancer, guard idempotencyGuard, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, errors.New("payouts subscription is required")
	}
	if settler == nil {
		return nil, errors.New("settler is required")
	}
	if guard == nil {
		return nil, errors.New("idempotency manager is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		subscription: subscription,
		settler:      settler,
		guard:        guard,
		decoders:     newDecoders(),
		logg:         logg,
	}, nil
}

func newDecoders() *registry.DecoderRegistry {
	decoders := registry.NewDecoderRegistry()
	registry.RegisterJSON[payloads.PayoutApprovedEvent](decoders, enums.EventPayoutApproved, 1)
	return decoders
}

// Run consumes settlement requests until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if c.process(innerCtx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	eventType := strings.TrimSpace(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})
	if eventType != string(enums.EventPayoutApproved) {
		return processResult{}
	}

	event, eventID, err := c.decode(msg)
	if err != nil {
		c.logg.Error(logCtx, "invalid settlement message", err)
		return processResult{}
	}
	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"event_id":   eventID,
		"creator_id": event.CreatorID.String(),
	})
	logCtx = c.logg.WithPayoutID(logCtx, event.PayoutID.String())

	claimed, err := c.guard.Claim(logCtx, consumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if !claimed {
		c.logg.Info(logCtx, "event already processed")
		return processResult{}
	}

	outcome, err := c.settler.Advance(logCtx, event.PayoutID)
	switch {
	case err == nil:
		c.logg.Info(c.logg.WithField(logCtx, "outcome", string(outcome)), "settlement step complete")
		return processResult{}
	case errors.Is(err, ErrNotApproved), pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "settlement skipped")
		return processResult{}
	}

	// the claim is released either way so a replayed event can run again
	if releaseErr := c.guard.Release(logCtx, consumerName, eventID); releaseErr != nil {
		c.logg.Error(logCtx, "failed to release idempotency claim", releaseErr)
	}
	if !pkgerrors.Retryable(err) {
		c.logg.Error(logCtx, "settlement step failed permanently", err)
		return processResult{}
	}
	c.logg.Error(logCtx, "settlement step failed", err)
	return processResult{nack: true}
}

func (c *Consumer) decode(msg *gcppubsub.Message) (payloads.PayoutApprovedEvent, string, error) {
	envelope, err := outbox.ParseEnvelope(msg.Data)
	if err != nil {
		return payloads.PayoutApprovedEvent{}, "", err
	}
	eventID := strings.TrimSpace(envelope.EventID)
	if eventID == "" {
		eventID = strings.TrimSpace(msg.Attributes["event_id"])
	}
	if eventID == "" {
		return payloads.PayoutApprovedEvent{}, "", errors.New("event_id missing")
	}
	event, err := registry.DecodeAs[payloads.PayoutApprovedEvent](c.decoders, enums.EventPayoutApproved, envelope.Version, envelope.Data)
	if err != nil {
		return payloads.PayoutApprovedEvent{}, "", err
	}
	if event.PayoutID == uuid.Nil {
		return payloads.PayoutApprovedEvent{}, "", errors.New("payout_id missing")
	}
	return event, eventID, nil
}
