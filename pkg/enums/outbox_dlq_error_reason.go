package enums

import "slices"

// OutboxDLQErrorReason records why an outbox row was parked in outbox_dlq.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonUnresolvable: the row failed registry validation or its payload did not decode.
	OutboxDLQReasonUnresolvable OutboxDLQErrorReason = "unresolvable"
	// OutboxDLQReasonNoTopic: no publisher exists for the routed topic.
	OutboxDLQReasonNoTopic OutboxDLQErrorReason = "no_topic"
	// OutboxDLQReasonNonRetryable: the broker rejected the message permanently.
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
)

var outboxDLQErrorReasons = []OutboxDLQErrorReason{
	OutboxDLQReasonUnresolvable,
	OutboxDLQReasonNoTopic,
	OutboxDLQReasonNonRetryable,
	OutboxDLQReasonMaxAttempts,
}

func (r OutboxDLQErrorReason) IsValid() bool {
	return slices.Contains(outboxDLQErrorReasons, r)
}
