package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/hotel-booking-engine/internal/booking"
	"github.com/iliyamo/hotel-booking-engine/internal/model"
)

const slotColumns = `room_type_id, slot_date, start_hour, end_hour, available_count, price_cents, closed, held, updated_at`

func scanSlot(row rowScanner) (model.HourlySlot, error) {
	var (
		s     model.HourlySlot
		avail sql.NullInt64
		price sql.NullInt64
	)
	if err := row.Scan(&s.RoomTypeID, &s.Date, &s.StartHour, &s.EndHour, &avail, &price, &s.Closed, &s.Held, &s.UpdatedAt); err != nil {
		return model.HourlySlot{}, err
	}
	s.Date = booking.DateOf(s.Date)
	s.AvailableCount = intPtr(avail)
	s.PriceCents = int64Ptr(price)
	return s, nil
}

func querySlots(ctx context.Context, q queryer, query string, args ...any) ([]model.HourlySlot, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	out := make([]model.HourlySlot, 0)
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, mapError(rows.Err())
}

// Slots returns the committed slot rows of one date ordered by start hour.
func (s *Store) Slots(ctx context.Context, roomTypeID uint64, date time.Time) ([]model.HourlySlot, error) {
	return querySlots(ctx, s.db,
		`SELECT `+slotColumns+` FROM hourly_slots
		 WHERE room_type_id = ? AND slot_date = ?
		 ORDER BY start_hour`,
		roomTypeID, dateArg(date),
	)
}

type slotRef struct {
	roomTypeID uint64
	date       string
	startHour  int
}

// LockSlots materializes and locks the slots named by keys.  Rows come
// back in key order with EndHour taken from the key, since the slot length
// of a room type may have changed since a row was first written.
func (t *Tx) LockSlots(ctx context.Context, keys []model.HourlySlot) ([]model.HourlySlot, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	now := time.Now().UTC()
	insArgs := make([]any, 0, len(keys)*5)
	selArgs := make([]any, 0, len(keys)*3)
	for _, k := range keys {
		insArgs = append(insArgs, k.RoomTypeID, dateArg(k.Date), k.StartHour, k.EndHour, now)
		selArgs = append(selArgs, k.RoomTypeID, dateArg(k.Date), k.StartHour)
	}
	ins := `INSERT IGNORE INTO hourly_slots (room_type_id, slot_date, start_hour, end_hour, updated_at) VALUES ` +
		placeholders(len(keys), "(?, ?, ?, ?, ?)")
	if _, err := t.tx.ExecContext(ctx, ins, insArgs...); err != nil {
		return nil, mapError(err)
	}

	rows, err := querySlots(ctx, t.tx,
		`SELECT `+slotColumns+` FROM hourly_slots
		 WHERE (room_type_id, slot_date, start_hour) IN (`+placeholders(len(keys), "(?, ?, ?)")+`)
		 ORDER BY room_type_id, slot_date, start_hour FOR UPDATE`,
		selArgs...,
	)
	if err != nil {
		return nil, err
	}
	byRef := make(map[slotRef]model.HourlySlot, len(rows))
	for _, r := range rows {
		byRef[slotRef{r.RoomTypeID, dateArg(r.Date), r.StartHour}] = r
	}
	out := make([]model.HourlySlot, 0, len(keys))
	for _, k := range keys {
		r, ok := byRef[slotRef{k.RoomTypeID, dateArg(k.Date), k.StartHour}]
		if !ok {
			return nil, fmt.Errorf("lock slots: slot %s %02d:00 of room type %d missing", dateArg(k.Date), k.StartHour, k.RoomTypeID)
		}
		r.EndHour = k.EndHour
		out = append(out, r)
	}
	return out, nil
}

// SaveSlots writes back rows previously returned by LockSlots.
func (t *Tx) SaveSlots(ctx context.Context, slots []model.HourlySlot) error {
	const q = `UPDATE hourly_slots
		SET end_hour = ?, available_count = ?, price_cents = ?, closed = ?, held = ?, updated_at = ?
		WHERE room_type_id = ? AND slot_date = ? AND start_hour = ?`
	for _, s := range slots {
		_, err := t.tx.ExecContext(ctx, q,
			s.EndHour, nullInt(s.AvailableCount), nullInt64(s.PriceCents), s.Closed, s.Held, s.UpdatedAt.UTC(),
			s.RoomTypeID, dateArg(s.Date), s.StartHour,
		)
		if err != nil {
			return mapError(err)
		}
	}
	return nil
}
