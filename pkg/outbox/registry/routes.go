// Package registry routes outbox rows to Pub/Sub topics on the publishing
// side and decodes versioned payloads on the consuming side.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/tripcreators/creator-wallet/pkg/config"
	"github.com/tripcreators/creator-wallet/pkg/db/models"
	"github.com/tripcreators/creator-wallet/pkg/enums"
	"github.com/tripcreators/creator-wallet/pkg/outbox"
	"github.com/tripcreators/creator-wallet/pkg/outbox/payloads"
)

// Route ties an event type to the aggregate that emits it, its topic and its
// payload schema.
type Route struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	newPayload    func() any
}

func route[T any](eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, topic string) Route {
	return Route{
		EventType:     eventType,
		AggregateType: aggregate,
		Topic:         topic,
		newPayload:    func() any { return new(T) },
	}
}

// ResolvedEvent is a validated outbox row with its decoded payload.
type ResolvedEvent struct {
	Route    Route
	Envelope outbox.PayloadEnvelope
	Payload  any
}

// NonRetryableError marks a row that can never be published as is.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func unroutable(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

// EventRegistry holds one route per event type the wallet emits.
type EventRegistry struct {
	routes map[enums.OutboxEventType]Route
}

// NewEventRegistry sends payout lifecycle events to the payouts topic and
// commission postings to the ledger topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	var missing []error
	if cfg.PayoutsTopic == "" {
		missing = append(missing, errors.New("payouts topic is required"))
	}
	if cfg.LedgerTopic == "" {
		missing = append(missing, errors.New("ledger topic is required"))
	}
	if len(missing) > 0 {
		return nil, errors.Join(missing...)
	}

	routes := []Route{
		route[payloads.PayoutRequestedEvent](enums.EventPayoutRequested, enums.AggregatePayout, cfg.PayoutsTopic),
		route[payloads.PayoutApprovedEvent](enums.EventPayoutApproved, enums.AggregatePayout, cfg.PayoutsTopic),
		route[payloads.PayoutPaidEvent](enums.EventPayoutPaid, enums.AggregatePayout, cfg.PayoutsTopic),
		route[payloads.PayoutFailedEvent](enums.EventPayoutFailed, enums.AggregatePayout, cfg.PayoutsTopic),
		route[payloads.SaleCommissionAppliedEvent](enums.EventSaleCommissionApplied, enums.AggregateSale, cfg.LedgerTopic),
	}
	reg := &EventRegistry{routes: make(map[enums.OutboxEventType]Route, len(routes))}
	for _, r := range routes {
		reg.routes[r.EventType] = r
	}
	return reg, nil
}

// Topics lists every topic a route publishes to, sorted and deduplicated.
func (r *EventRegistry) Topics() []string {
	topics := make([]string, 0, len(r.routes))
	for _, route := range r.routes {
		topics = append(topics, route.Topic)
	}
	slices.Sort(topics)
	return slices.Compact(topics)
}

// Resolve checks the row against its route and decodes the payload. Every
// failure is a NonRetryableError.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	rt, ok := r.routes[event.EventType]
	switch {
	case !ok:
		return nil, unroutable("unsupported event type %s", event.EventType)
	case rt.AggregateType != event.AggregateType:
		return nil, unroutable("aggregate mismatch: %s is emitted by %s, row has %s", event.EventType, rt.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, unroutable("missing aggregate_id")
	}

	envelope, err := outbox.ParseEnvelope(event.Payload)
	if err != nil {
		return nil, unroutable("%s: %w", event.EventType, err)
	}
	payload := rt.newPayload()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, unroutable("decode %s payload: %w", event.EventType, err)
	}
	return &ResolvedEvent{Route: rt, Envelope: envelope, Payload: payload}, nil
}
