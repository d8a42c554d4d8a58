package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/hotel-booking-engine/internal/booking"
	"github.com/iliyamo/hotel-booking-engine/internal/model"
)

const dayColumns = `room_type_id, stay_date, available_count, price_cents, closed, min_stay_nights, held, updated_at`

func scanDay(row rowScanner) (model.DateInventoryOverride, error) {
	var (
		d     model.DateInventoryOverride
		avail sql.NullInt64
		price sql.NullInt64
	)
	if err := row.Scan(&d.RoomTypeID, &d.Date, &avail, &price, &d.Closed, &d.MinStayNights, &d.Held, &d.UpdatedAt); err != nil {
		return model.DateInventoryOverride{}, err
	}
	d.Date = booking.DateOf(d.Date)
	d.AvailableCount = intPtr(avail)
	d.PriceCents = int64Ptr(price)
	return d, nil
}

func queryDays(ctx context.Context, q queryer, query string, args ...any) ([]model.DateInventoryOverride, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	out := make([]model.DateInventoryOverride, 0)
	for rows.Next() {
		d, err := scanDay(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, mapError(rows.Err())
}

// Overrides returns the committed day rows in [from, to).
func (s *Store) Overrides(ctx context.Context, roomTypeID uint64, from, to time.Time) ([]model.DateInventoryOverride, error) {
	return queryDays(ctx, s.db,
		`SELECT `+dayColumns+` FROM inventory_days
		 WHERE room_type_id = ? AND stay_date >= ? AND stay_date < ?
		 ORDER BY stay_date`,
		roomTypeID, dateArg(from), dateArg(to),
	)
}

// LockDays makes sure a row exists for every date and locks them all.
// INSERT IGNORE leaves existing rows untouched; the following SELECT ...
// FOR UPDATE walks the primary key in date order, which is the lock order
// every writer follows.
func (t *Tx) LockDays(ctx context.Context, roomTypeID uint64, dates []time.Time) ([]model.DateInventoryOverride, error) {
	if len(dates) == 0 {
		return nil, nil
	}
	now := time.Now().UTC()
	insArgs := make([]any, 0, len(dates)*3)
	selArgs := make([]any, 0, len(dates)+1)
	selArgs = append(selArgs, roomTypeID)
	for i, d := range dates {
		if i > 0 && !d.After(dates[i-1]) {
			return nil, fmt.Errorf("lock days: dates must be strictly ascending")
		}
		insArgs = append(insArgs, roomTypeID, dateArg(d), now)
		selArgs = append(selArgs, dateArg(d))
	}
	ins := `INSERT IGNORE INTO inventory_days (room_type_id, stay_date, updated_at) VALUES ` + placeholders(len(dates), "(?, ?, ?)")
	if _, err := t.tx.ExecContext(ctx, ins, insArgs...); err != nil {
		return nil, mapError(err)
	}

	rows, err := queryDays(ctx, t.tx,
		`SELECT `+dayColumns+` FROM inventory_days
		 WHERE room_type_id = ? AND stay_date IN (`+placeholders(len(dates), "?")+`)
		 ORDER BY stay_date FOR UPDATE`,
		selArgs...,
	)
	if err != nil {
		return nil, err
	}
	if len(rows) != len(dates) {
		return nil, fmt.Errorf("lock days: expected %d rows for room type %d, got %d", len(dates), roomTypeID, len(rows))
	}
	return rows, nil
}

// SaveDays writes back rows previously returned by LockDays.
func (t *Tx) SaveDays(ctx context.Context, days []model.DateInventoryOverride) error {
	const q = `UPDATE inventory_days
		SET available_count = ?, price_cents = ?, closed = ?, min_stay_nights = ?, held = ?, updated_at = ?
		WHERE room_type_id = ? AND stay_date = ?`
	for _, d := range days {
		_, err := t.tx.ExecContext(ctx, q,
			nullInt(d.AvailableCount), nullInt64(d.PriceCents), d.Closed, d.MinStayNights, d.Held, d.UpdatedAt.UTC(),
			d.RoomTypeID, dateArg(d.Date),
		)
		if err != nil {
			return mapError(err)
		}
	}
	return nil
}
