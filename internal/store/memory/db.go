// Package memory is an in-process implementation of booking.Store.  Rows
// are locked individually for the lifetime of a transaction and writes are
// buffered until commit, so concurrent reservations behave as they would
// against row locks in a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-booking-engine/internal/booking"
	"github.com/iliyamo/hotel-booking-engine/internal/model"
)

type dayKey struct {
	roomTypeID uint64
	date       string
}

type slotKey struct {
	roomTypeID uint64
	date       string
	startHour  int
}

func dayKeyOf(roomTypeID uint64, date time.Time) dayKey {
	return dayKey{roomTypeID: roomTypeID, date: booking.FormatDate(date)}
}

func slotKeyOf(roomTypeID uint64, date time.Time, startHour int) slotKey {
	return slotKey{roomTypeID: roomTypeID, date: booking.FormatDate(date), startHour: startHour}
}

func (k dayKey) lockName() string  { return fmt.Sprintf("day:%d:%s", k.roomTypeID, k.date) }
func (k slotKey) lockName() string { return fmt.Sprintf("slot:%d:%s:%02d", k.roomTypeID, k.date, k.startHour) }

func roomTypeLock(id uint64) string { return fmt.Sprintf("room_type:%d", id) }
func bookingLock(id uint64) string  { return fmt.Sprintf("booking:%d", id) }

// DB holds committed state.  mu guards the maps only; row ownership is
// handled by locks.
type DB struct {
	mu             sync.Mutex
	log            logrus.FieldLogger
	locks          *lockTable
	roomTypes      map[uint64]model.RoomType
	days           map[dayKey]model.DateInventoryOverride
	slots          map[slotKey]model.HourlySlot
	bookings       map[uint64]model.Booking
	numbers        map[string]uint64
	nextRoomTypeID uint64
	nextBookingID  uint64
	nextTxID       uint64
}

var _ booking.Store = (*DB)(nil)

// New returns an empty store.
func New(log logrus.FieldLogger) *DB {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &DB{
		log:       log,
		locks:     newLockTable(),
		roomTypes: make(map[uint64]model.RoomType),
		days:      make(map[dayKey]model.DateInventoryOverride),
		slots:     make(map[slotKey]model.HourlySlot),
		bookings:  make(map[uint64]model.Booking),
		numbers:   make(map[string]uint64),
	}
}

func (db *DB) RoomType(_ context.Context, id uint64) (model.RoomType, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	rt, ok := db.roomTypes[id]
	if !ok {
		return model.RoomType{}, booking.NewNotFoundError("room type", id)
	}
	return rt, nil
}

func (db *DB) RoomTypesByHotel(_ context.Context, hotelID uint64) ([]model.RoomType, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]model.RoomType, 0)
	for _, rt := range db.roomTypes {
		if rt.HotelID == hotelID {
			out = append(out, rt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (db *DB) Overrides(_ context.Context, roomTypeID uint64, from, to time.Time) ([]model.DateInventoryOverride, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]model.DateInventoryOverride, 0)
	for k, d := range db.days {
		if k.roomTypeID == roomTypeID && !d.Date.Before(from) && d.Date.Before(to) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (db *DB) Slots(_ context.Context, roomTypeID uint64, date time.Time) ([]model.HourlySlot, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	want := booking.FormatDate(date)
	out := make([]model.HourlySlot, 0)
	for k, s := range db.slots {
		if k.roomTypeID == roomTypeID && k.date == want {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartHour < out[j].StartHour })
	return out, nil
}

func (db *DB) Booking(_ context.Context, id uint64) (model.Booking, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	b, ok := db.bookings[id]
	if !ok {
		return model.Booking{}, booking.NewNotFoundError("booking", id)
	}
	return b, nil
}

func (db *DB) ExpiredPending(_ context.Context, before time.Time, limit int) ([]uint64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var due []model.Booking
	for _, b := range db.bookings {
		if b.Status == model.StatusPending && !b.ExpiresAt.After(before) {
			due = append(due, b)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ExpiresAt.Before(due[j].ExpiresAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	ids := make([]uint64, len(due))
	for i, b := range due {
		ids[i] = b.ID
	}
	return ids, nil
}

// WithTx runs fn against a new transaction.  Buffered writes are applied
// only when fn returns nil; locks are released after that in either case.
func (db *DB) WithTx(ctx context.Context, fn func(ctx context.Context, tx booking.Tx) error) error {
	db.mu.Lock()
	db.nextTxID++
	id := db.nextTxID
	db.mu.Unlock()

	t := newTx(db, id)
	defer t.unlockAll()

	if err := fn(ctx, t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	t.commit()
	return nil
}
