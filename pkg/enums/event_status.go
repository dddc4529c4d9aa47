package enums

import "slices"

// EventStatus is the publication state of a hosted event.
type EventStatus string

const (
	EventStatusDraft     EventStatus = "DRAFT"
	EventStatusPublished EventStatus = "PUBLISHED"
	EventStatusEnded     EventStatus = "ENDED"
	EventStatusCanceled  EventStatus = "CANCELED"
)

var validEventStatuses = []EventStatus{
	EventStatusDraft,
	EventStatusPublished,
	EventStatusEnded,
	EventStatusCanceled,
}

func (s EventStatus) String() string {
	return string(s)
}

func (s EventStatus) IsValid() bool {
	return slices.Contains(validEventStatuses, s)
}

func ParseEventStatus(value string) (EventStatus, error) {
	return parse("event status", value, validEventStatuses)
}
