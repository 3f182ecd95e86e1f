package enums

// OutboxAggregateType names the entity an outbox event is about.
type OutboxAggregateType string

const (
	AggregatePayout OutboxAggregateType = "payout"
	AggregateSale   OutboxAggregateType = "sale"
	AggregateWallet OutboxAggregateType = "wallet"
)

var aggregateTypes = set[OutboxAggregateType]{AggregatePayout, AggregateSale, AggregateWallet}

func (a OutboxAggregateType) IsValid() bool { return aggregateTypes.has(a) }

// OutboxEventType is the event_type column of outbox_events and the
// event_type attribute on published messages.
type OutboxEventType string

const (
	EventPayoutRequested       OutboxEventType = "payout_requested"
	EventPayoutApproved        OutboxEventType = "payout_approved"
	EventPayoutPaid            OutboxEventType = "payout_paid"
	EventPayoutFailed          OutboxEventType = "payout_failed"
	EventSaleCommissionApplied OutboxEventType = "sale_commission_applied"
)

var outboxEventTypes = set[OutboxEventType]{
	EventPayoutRequested,
	EventPayoutApproved,
	EventPayoutPaid,
	EventPayoutFailed,
	EventSaleCommissionApplied,
}

func (e OutboxEventType) IsValid() bool { return outboxEventTypes.has(e) }

// OutboxDLQErrorReason records why the relay gave up on an event.
type OutboxDLQErrorReason string

const (
	// retryable publish errors outlasted the attempt budget
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// Pub/Sub rejected the message permanently
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	// no route, topic or envelope could be resolved for the row
	OutboxDLQReasonUnroutable OutboxDLQErrorReason = "unroutable"
)

var dlqReasons = set[OutboxDLQErrorReason]{
	OutboxDLQReasonMaxAttempts,
	OutboxDLQReasonNonRetryable,
	OutboxDLQReasonUnroutable,
}

func (r OutboxDLQErrorReason) IsValid() bool { return dlqReasons.has(r) }
