package enums

import "slices"

// BookingStatus tracks a ticket purchase from checkout to settlement.
type BookingStatus string

const (
	BookingStatusPending  BookingStatus = "PENDING"
	BookingStatusPaid     BookingStatus = "PAID"
	BookingStatusRefunded BookingStatus = "REFUNDED"
	BookingStatusCanceled BookingStatus = "CANCELED"
)

var validBookingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusPaid,
	BookingStatusRefunded,
	BookingStatusCanceled,
}

func (s BookingStatus) String() string {
	return string(s)
}

func (s BookingStatus) IsValid() bool {
	return slices.Contains(validBookingStatuses, s)
}

func ParseBookingStatus(value string) (BookingStatus, error) {
	return parse("booking status", value, validBookingStatuses)
}
