package enums

import "slices"

// OutboxAggregateType is stored in outbox_events.aggregate_type.
type OutboxAggregateType string

const (
	AggregateBooking     OutboxAggregateType = "booking"
	AggregateHostAccount OutboxAggregateType = "host_account"
)

var validAggregateTypes = []OutboxAggregateType{AggregateBooking, AggregateHostAccount}

func (a OutboxAggregateType) IsValid() bool {
	return slices.Contains(validAggregateTypes, a)
}

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse("aggregate type", value, validAggregateTypes)
}

// OutboxEventType is stored in outbox_events.event_type. Booking events
// carry payloads.BookingEvent; the host account event carries
// payloads.HostAccountStatusChangedEvent.
type OutboxEventType string

const (
	EventBookingCreated           OutboxEventType = "booking_created"
	EventBookingPaid              OutboxEventType = "booking_paid"
	EventBookingCanceled          OutboxEventType = "booking_canceled"
	EventBookingRefunded          OutboxEventType = "booking_refunded"
	EventHostAccountStatusChanged OutboxEventType = "host_account_status_changed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventBookingCreated,
	EventBookingPaid,
	EventBookingCanceled,
	EventBookingRefunded,
	EventHostAccountStatusChanged,
}

func (e OutboxEventType) IsValid() bool {
	return slices.Contains(validOutboxEventTypes, e)
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse("event type", value, validOutboxEventTypes)
}
