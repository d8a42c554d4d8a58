package model

// EventType names a booking notification.  The value doubles as the
// broker routing key.
type EventType string

const (
	EventBookingCreated   EventType = "booking.created"
	EventBookingConfirmed EventType = "booking.confirmed"
	EventBookingCancelled EventType = "booking.cancelled"
)

// EventTypes lists every notification the engine emits.
var EventTypes = []EventType{EventBookingCreated, EventBookingConfirmed, EventBookingCancelled}
