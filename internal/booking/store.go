package booking

import (
	"context"
	"time"

	"github.com/iliyamo/hotel-booking-engine/internal/model"
)

// Store is the persistence boundary of the engine.  Plain reads see
// committed state; every mutation goes through WithTx.
type Store interface {
	RoomType(ctx context.Context, id uint64) (model.RoomType, error)
	RoomTypesByHotel(ctx context.Context, hotelID uint64) ([]model.RoomType, error)
	// Overrides returns existing day rows in [from, to), ordered by date.
	Overrides(ctx context.Context, roomTypeID uint64, from, to time.Time) ([]model.DateInventoryOverride, error)
	// Slots returns existing slot rows for the date, ordered by start hour.
	Slots(ctx context.Context, roomTypeID uint64, date time.Time) ([]model.HourlySlot, error)
	Booking(ctx context.Context, id uint64) (model.Booking, error)
	// ExpiredPending lists PENDING bookings whose payment deadline is at or
	// before the given instant, oldest first.
	ExpiredPending(ctx context.Context, before time.Time, limit int) ([]uint64, error)

	// WithTx runs fn in a transaction, committing when fn returns nil.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is a unit of work.  Lock methods block until the rows are exclusively
// owned by the transaction; callers acquire locks in the order room type,
// booking, days (ascending), slots (ascending).
type Tx interface {
	// RoomTypeForShare reads the room type and blocks concurrent resizes.
	RoomTypeForShare(ctx context.Context, id uint64) (model.RoomType, error)
	// RoomTypeForUpdate reads the room type with an exclusive lock.
	RoomTypeForUpdate(ctx context.Context, id uint64) (model.RoomType, error)
	InsertRoomType(ctx context.Context, rt *model.RoomType) error
	UpdateRoomType(ctx context.Context, rt model.RoomType) error
	// UsageFrom summarizes day and slot rows dated on or after from.
	UsageFrom(ctx context.Context, roomTypeID uint64, from time.Time) (CapacityUsage, error)

	// LockDays materializes missing rows with defaults and locks every date,
	// returning the rows in the order of dates (which must be ascending).
	LockDays(ctx context.Context, roomTypeID uint64, dates []time.Time) ([]model.DateInventoryOverride, error)
	SaveDays(ctx context.Context, days []model.DateInventoryOverride) error

	// LockSlots materializes and locks the given slot keys (RoomTypeID,
	// Date, StartHour, EndHour), ascending by date then start hour.
	LockSlots(ctx context.Context, keys []model.HourlySlot) ([]model.HourlySlot, error)
	SaveSlots(ctx context.Context, slots []model.HourlySlot) error

	// InsertBooking stores b and assigns b.ID.
	InsertBooking(ctx context.Context, b *model.Booking) error
	LockBooking(ctx context.Context, id uint64) (model.Booking, error)
	UpdateBooking(ctx context.Context, b model.Booking) error
}

// CapacityUsage is the peak ledger usage of a room type over future dates.
type CapacityUsage struct {
	MaxHeld     int
	MaxOverride int
}

// PaymentGateway is the external payment collaborator.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, bookingID uint64, amountCents int64, currency string) (string, error)
	Refund(ctx context.Context, bookingID uint64, amountCents int64) (string, error)
}

// Notifier receives fire-and-forget booking events.
type Notifier interface {
	Notify(ctx context.Context, event model.EventType, b model.Booking) error
}

// RefundPolicy decides how much of the paid amount is returned when a
// confirmed booking is cancelled.
type RefundPolicy interface {
	RefundCents(untilCheckIn time.Duration, paidCents int64) int64
}

// RefundPolicyFunc adapts a function to RefundPolicy.
type RefundPolicyFunc func(untilCheckIn time.Duration, paidCents int64) int64

func (f RefundPolicyFunc) RefundCents(untilCheckIn time.Duration, paidCents int64) int64 {
	return f(untilCheckIn, paidCents)
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, model.EventType, model.Booking) error { return nil }
