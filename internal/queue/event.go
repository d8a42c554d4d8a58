// Package queue carries booking notifications over RabbitMQ.  Each event
// type has its own durable queue named after the type (booking.created,
// booking.confirmed, booking.cancelled) on the default exchange.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/hotel-booking-engine/internal/model"
)

// BookingEvent is the message body.  It contains enough information for
// downstream consumers to notify the guest or feed analytics without
// querying the primary database.
type BookingEvent struct {
	EventID       string              `json:"event_id"`
	Type          model.EventType     `json:"type"`
	OccurredAt    time.Time           `json:"occurred_at"`
	BookingID     uint64              `json:"booking_id"`
	Number        string              `json:"number"`
	HotelID       uint64              `json:"hotel_id"`
	RoomTypeID    uint64              `json:"room_type_id"`
	GuestID       uint64              `json:"guest_id"`
	GuestEmail    string              `json:"guest_email,omitempty"`
	Kind          model.BookingKind   `json:"kind"`
	Stay          model.Stay          `json:"stay"`
	NumRooms      int                 `json:"num_rooms"`
	Status        model.BookingStatus `json:"status"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
	TotalCents    int64               `json:"total_cents"`
	RefundCents   int64               `json:"refund_cents,omitempty"`
	Currency      string              `json:"currency"`
	Reason        string              `json:"reason,omitempty"`
}

// NewBookingEvent snapshots b for publication.
func NewBookingEvent(t model.EventType, b model.Booking, at time.Time) BookingEvent {
	ev := BookingEvent{
		EventID:       uuid.NewString(),
		Type:          t,
		OccurredAt:    at.UTC(),
		BookingID:     b.ID,
		Number:        b.Number,
		HotelID:       b.HotelID,
		RoomTypeID:    b.RoomTypeID,
		GuestID:       b.GuestID,
		GuestEmail:    b.Guest.Email,
		Kind:          b.Kind,
		Stay:          b.Stay,
		NumRooms:      b.NumRooms,
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
		TotalCents:    b.Price.TotalCents,
		RefundCents:   b.RefundCents,
		Currency:      b.Currency,
	}
	if b.CancellationReason != nil {
		ev.Reason = *b.CancellationReason
	}
	return ev
}
