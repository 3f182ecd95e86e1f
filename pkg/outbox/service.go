package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tripcreators/creator-wallet/pkg/db/models"
	"github.com/tripcreators/creator-wallet/pkg/enums"
	"github.com/tripcreators/creator-wallet/pkg/logger"
)

var errTxRequired = errors.New("outbox writes need the caller's transaction")

// DomainEvent is what a domain service hands to Emit. Data is marshalled to
// JSON and becomes the envelope's data field.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

func (e DomainEvent) validate() error {
	switch {
	case !e.EventType.IsValid():
		return fmt.Errorf("unknown outbox event type %q", e.EventType)
	case !e.AggregateType.IsValid():
		return fmt.Errorf("unknown aggregate type %q for %s", e.AggregateType, e.EventType)
	case e.AggregateID == uuid.Nil:
		return fmt.Errorf("%s has no aggregate id", e.EventType)
	}
	return nil
}

// Emitter is the write side domain services call inside their transactions.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error
	EmitIfNotPending(ctx context.Context, tx *gorm.DB, event DomainEvent) (bool, error)
}

// Service queues events in outbox_events; the relay publishes them later.
type Service struct {
	repo *Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg, now: time.Now}
}

// Emit writes the event in tx, so it commits or rolls back with the domain change.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	_, err := s.emit(ctx, tx, event, false)
	return err
}

// EmitIfNotPending writes the event unless one of the same type for the same
// aggregate is still unpublished. It reports whether a row was written.
func (s *Service) EmitIfNotPending(ctx context.Context, tx *gorm.DB, event DomainEvent) (bool, error) {
	return s.emit(ctx, tx, event, true)
}

func (s *Service) emit(ctx context.Context, tx *gorm.DB, event DomainEvent, skipPending bool) (bool, error) {
	if tx == nil {
		return false, errTxRequired
	}
	if err := event.validate(); err != nil {
		return false, err
	}
	if skipPending {
		pending, err := s.repo.ExistsUnpublishedTx(tx, event.EventType, event.AggregateType, event.AggregateID)
		if err != nil || pending {
			return false, err
		}
	}

	env, err := seal(event, uuid.NewString(), s.now())
	if err != nil {
		return false, err
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return false, fmt.Errorf("encode envelope: %w", err)
	}
	if err := s.repo.Insert(tx, models.OutboxEvent{
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       payload,
	}); err != nil {
		return false, fmt.Errorf("queue %s: %w", event.EventType, err)
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"event_id":     env.EventID,
			"event_type":   event.EventType,
			"aggregate_id": event.AggregateID.String(),
		})
		s.logg.Debug(logCtx, "outbox event queued")
	}
	return true, nil
}
