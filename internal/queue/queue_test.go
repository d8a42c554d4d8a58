package queue

import (
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-booking-engine/internal/model"
)

func sampleBooking() model.Booking {
	reason := "payment timeout"
	return model.Booking{
		ID:                 11,
		Number:             "HB-20250520-ABC123",
		HotelID:            7,
		RoomTypeID:         3,
		GuestID:            99,
		Kind:               model.KindDaily,
		Stay:               model.DailyStay{CheckIn: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), CheckOut: time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)},
		NumRooms:           1,
		Price:              model.PriceBreakdown{TotalCents: 24200},
		Currency:           "USD",
		Status:             model.StatusCancelled,
		PaymentStatus:      model.PaymentVoided,
		CancellationReason: &reason,
		Guest:              model.GuestContact{Name: "Ada", Email: "ada@example.com"},
	}
}

func TestNewBookingEvent(t *testing.T) {
	at := time.Date(2025, 5, 20, 9, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	ev := NewBookingEvent(model.EventBookingCancelled, sampleBooking(), at)

	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, time.UTC, ev.OccurredAt.Location())
	assert.Equal(t, uint64(11), ev.BookingID)
	assert.Equal(t, "ada@example.com", ev.GuestEmail)
	assert.Equal(t, "payment timeout", ev.Reason)
	assert.EqualValues(t, 24200, ev.TotalCents)

	other := NewBookingEvent(model.EventBookingCancelled, sampleBooking(), at)
	assert.NotEqual(t, ev.EventID, other.EventID)
}

func TestNewPublishing(t *testing.T) {
	ev := NewBookingEvent(model.EventBookingCreated, sampleBooking(), time.Now())
	msg, err := newPublishing(ev)
	require.NoError(t, err)

	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, ev.EventID, msg.MessageId)
	assert.Equal(t, "booking.created", msg.Type)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, "HB-20250520-ABC123", decoded["number"])
	assert.Equal(t, "2025-06-01T00:00:00Z", decoded["stay"].(map[string]any)["check_in"])
}

func TestHandleMessageLogs(t *testing.T) {
	log, hook := test.NewNullLogger()
	msg, err := newPublishing(NewBookingEvent(model.EventBookingCancelled, sampleBooking(), time.Now()))
	require.NoError(t, err)

	require.NoError(t, handleMessage(msg.Body, log))
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, uint64(11), entry.Data["booking_id"])
	assert.Equal(t, "payment timeout", entry.Data["reason"])
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	log, hook := test.NewNullLogger()
	assert.Error(t, handleMessage([]byte("not json"), log))
	assert.Error(t, handleMessage([]byte(`{"event_id":""}`), log))
	assert.Empty(t, hook.AllEntries())
}
