package enums

import (
	"fmt"
	"slices"
)

// Outbox enums mirror aggregate_type_enum, event_type_enum and
// outbox_dlq_error_reason_enum.

type OutboxAggregateType string

const (
	AggregateNotification OutboxAggregateType = "notification"
	AggregateListing      OutboxAggregateType = "listing"
	AggregateUser         OutboxAggregateType = "user"
)

type OutboxEventType string

const EventNotificationRequested OutboxEventType = "notification_requested"

// OutboxDLQErrorReason says why a row left the outbox for the DLQ.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

var (
	aggregateTypes   = []OutboxAggregateType{AggregateNotification, AggregateListing, AggregateUser}
	outboxEventTypes = []OutboxEventType{EventNotificationRequested}
	dlqReasons       = []OutboxDLQErrorReason{OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable}
)

func (a OutboxAggregateType) IsValid() bool  { return slices.Contains(aggregateTypes, a) }
func (e OutboxEventType) IsValid() bool      { return slices.Contains(outboxEventTypes, e) }
func (r OutboxDLQErrorReason) IsValid() bool { return slices.Contains(dlqReasons, r) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parseOneOf("aggregate type", value, aggregateTypes)
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parseOneOf("event type", value, outboxEventTypes)
}

func parseOneOf[T ~string](label, value string, allowed []T) (T, error) {
	if i := slices.Index(allowed, T(value)); i >= 0 {
		return allowed[i], nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", label, value)
}
