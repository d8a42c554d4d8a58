package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iliyamo/hotel-booking-engine/internal/booking"
	"github.com/iliyamo/hotel-booking-engine/internal/model"
)

type heldLock struct {
	mu        *sync.RWMutex
	exclusive bool
}

// tx buffers writes and tracks the row locks it owns.
type tx struct {
	db    *DB
	id    uint64
	held  map[string]heldLock
	order []string

	roomTypes map[uint64]model.RoomType
	days      map[dayKey]model.DateInventoryOverride
	slots     map[slotKey]model.HourlySlot
	bookings  map[uint64]model.Booking
	numbers   map[string]uint64
}

var _ booking.Tx = (*tx)(nil)

func newTx(db *DB, id uint64) *tx {
	return &tx{
		db:        db,
		id:        id,
		held:      make(map[string]heldLock),
		roomTypes: make(map[uint64]model.RoomType),
		days:      make(map[dayKey]model.DateInventoryOverride),
		slots:     make(map[slotKey]model.HourlySlot),
		bookings:  make(map[uint64]model.Booking),
		numbers:   make(map[string]uint64),
	}
}

// lock acquires the row lock once per transaction.  Upgrading a shared
// lock is refused since two upgraders would wait on each other forever.
func (t *tx) lock(name string, exclusive bool) error {
	if h, ok := t.held[name]; ok {
		if exclusive && !h.exclusive {
			return fmt.Errorf("tx %d: cannot upgrade shared lock on %s", t.id, name)
		}
		return nil
	}
	mu := t.db.locks.get(name)
	if exclusive {
		mu.Lock()
	} else {
		mu.RLock()
	}
	t.held[name] = heldLock{mu: mu, exclusive: exclusive}
	t.order = append(t.order, name)
	return nil
}

func (t *tx) unlockAll() {
	for i := len(t.order) - 1; i >= 0; i-- {
		h := t.held[t.order[i]]
		if h.exclusive {
			h.mu.Unlock()
		} else {
			h.mu.RUnlock()
		}
	}
	t.held, t.order = nil, nil
}

func (t *tx) commit() {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	for id, rt := range t.roomTypes {
		t.db.roomTypes[id] = rt
	}
	for k, d := range t.days {
		t.db.days[k] = d
	}
	for k, s := range t.slots {
		t.db.slots[k] = s
	}
	for id, b := range t.bookings {
		t.db.bookings[id] = b
	}
	for n, id := range t.numbers {
		t.db.numbers[n] = id
	}
}

func (t *tx) readRoomType(id uint64) (model.RoomType, error) {
	if rt, ok := t.roomTypes[id]; ok {
		return rt, nil
	}
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	rt, ok := t.db.roomTypes[id]
	if !ok {
		return model.RoomType{}, booking.NewNotFoundError("room type", id)
	}
	return rt, nil
}

func (t *tx) RoomTypeForShare(_ context.Context, id uint64) (model.RoomType, error) {
	if err := t.lock(roomTypeLock(id), false); err != nil {
		return model.RoomType{}, err
	}
	return t.readRoomType(id)
}

func (t *tx) RoomTypeForUpdate(_ context.Context, id uint64) (model.RoomType, error) {
	if err := t.lock(roomTypeLock(id), true); err != nil {
		return model.RoomType{}, err
	}
	return t.readRoomType(id)
}

func (t *tx) InsertRoomType(_ context.Context, rt *model.RoomType) error {
	t.db.mu.Lock()
	t.db.nextRoomTypeID++
	rt.ID = t.db.nextRoomTypeID
	t.db.mu.Unlock()
	if err := t.lock(roomTypeLock(rt.ID), true); err != nil {
		return err
	}
	t.roomTypes[rt.ID] = *rt
	return nil
}

func (t *tx) UpdateRoomType(_ context.Context, rt model.RoomType) error {
	if h, ok := t.held[roomTypeLock(rt.ID)]; !ok || !h.exclusive {
		return fmt.Errorf("tx %d: room type %d updated without exclusive lock", t.id, rt.ID)
	}
	t.roomTypes[rt.ID] = rt
	return nil
}

func (t *tx) UsageFrom(_ context.Context, roomTypeID uint64, from time.Time) (booking.CapacityUsage, error) {
	var u booking.CapacityUsage
	track := func(date time.Time, held int, override *int) {
		if date.Before(from) {
			return
		}
		u.MaxHeld = max(u.MaxHeld, held)
		if override != nil {
			u.MaxOverride = max(u.MaxOverride, *override)
		}
	}
	t.db.mu.Lock()
	for k, d := range t.db.days {
		if _, buffered := t.days[k]; k.roomTypeID == roomTypeID && !buffered {
			track(d.Date, d.Held, d.AvailableCount)
		}
	}
	for k, s := range t.db.slots {
		if _, buffered := t.slots[k]; k.roomTypeID == roomTypeID && !buffered {
			track(s.Date, s.Held, s.AvailableCount)
		}
	}
	t.db.mu.Unlock()
	for k, d := range t.days {
		if k.roomTypeID == roomTypeID {
			track(d.Date, d.Held, d.AvailableCount)
		}
	}
	for k, s := range t.slots {
		if k.roomTypeID == roomTypeID {
			track(s.Date, s.Held, s.AvailableCount)
		}
	}
	return u, nil
}

func (t *tx) LockDays(_ context.Context, roomTypeID uint64, dates []time.Time) ([]model.DateInventoryOverride, error) {
	out := make([]model.DateInventoryOverride, 0, len(dates))
	for i, date := range dates {
		if i > 0 && !date.After(dates[i-1]) {
			return nil, fmt.Errorf("tx %d: dates must be strictly ascending", t.id)
		}
		k := dayKeyOf(roomTypeID, date)
		if err := t.lock(k.lockName(), true); err != nil {
			return nil, err
		}
		out = append(out, t.readDay(k, roomTypeID, date))
	}
	return out, nil
}

func (t *tx) readDay(k dayKey, roomTypeID uint64, date time.Time) model.DateInventoryOverride {
	if d, ok := t.days[k]; ok {
		return d
	}
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	if d, ok := t.db.days[k]; ok {
		return d
	}
	return model.DateInventoryOverride{RoomTypeID: roomTypeID, Date: booking.DateOf(date)}
}

func (t *tx) SaveDays(_ context.Context, days []model.DateInventoryOverride) error {
	for _, d := range days {
		k := dayKeyOf(d.RoomTypeID, d.Date)
		if _, ok := t.held[k.lockName()]; !ok {
			return fmt.Errorf("tx %d: day %s saved without lock", t.id, k.date)
		}
		t.days[k] = d
	}
	return nil
}

func (t *tx) LockSlots(_ context.Context, keys []model.HourlySlot) ([]model.HourlySlot, error) {
	out := make([]model.HourlySlot, 0, len(keys))
	for _, key := range keys {
		k := slotKeyOf(key.RoomTypeID, key.Date, key.StartHour)
		if err := t.lock(k.lockName(), true); err != nil {
			return nil, err
		}
		s, ok := t.slots[k]
		if !ok {
			t.db.mu.Lock()
			s, ok = t.db.slots[k]
			t.db.mu.Unlock()
		}
		if !ok {
			s = model.HourlySlot{RoomTypeID: key.RoomTypeID, Date: booking.DateOf(key.Date), StartHour: key.StartHour}
		}
		s.EndHour = key.EndHour
		out = append(out, s)
	}
	return out, nil
}

func (t *tx) SaveSlots(_ context.Context, slots []model.HourlySlot) error {
	for _, s := range slots {
		k := slotKeyOf(s.RoomTypeID, s.Date, s.StartHour)
		if _, ok := t.held[k.lockName()]; !ok {
			return fmt.Errorf("tx %d: slot %s %02d saved without lock", t.id, k.date, k.startHour)
		}
		t.slots[k] = s
	}
	return nil
}

func (t *tx) InsertBooking(_ context.Context, b *model.Booking) error {
	t.db.mu.Lock()
	_, taken := t.db.numbers[b.Number]
	if _, buffered := t.numbers[b.Number]; taken || buffered {
		t.db.mu.Unlock()
		return booking.ErrDuplicateBookingNumber
	}
	t.db.nextBookingID++
	b.ID = t.db.nextBookingID
	t.db.mu.Unlock()

	if err := t.lock(bookingLock(b.ID), true); err != nil {
		return err
	}
	t.bookings[b.ID] = *b
	t.numbers[b.Number] = b.ID
	return nil
}

func (t *tx) LockBooking(_ context.Context, id uint64) (model.Booking, error) {
	if err := t.lock(bookingLock(id), true); err != nil {
		return model.Booking{}, err
	}
	if b, ok := t.bookings[id]; ok {
		return b, nil
	}
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	b, ok := t.db.bookings[id]
	if !ok {
		return model.Booking{}, booking.NewNotFoundError("booking", id)
	}
	return b, nil
}

func (t *tx) UpdateBooking(_ context.Context, b model.Booking) error {
	if _, ok := t.held[bookingLock(b.ID)]; !ok {
		return fmt.Errorf("tx %d: booking %d updated without lock", t.id, b.ID)
	}
	t.bookings[b.ID] = b
	return nil
}
