package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/hotel-booking-engine/internal/booking"
	"github.com/iliyamo/hotel-booking-engine/internal/model"
)

const roomTypeColumns = `id, hotel_id, name, total_rooms, base_price_daily_cents, base_price_hourly_cents,
	max_guests, extra_guest_fee_cents, hourly_min_hours, hourly_max_hours, open_hour, close_hour,
	active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoomType(row rowScanner) (model.RoomType, error) {
	var (
		rt     model.RoomType
		hourly sql.NullInt64
	)
	err := row.Scan(
		&rt.ID, &rt.HotelID, &rt.Name, &rt.TotalRooms, &rt.BasePriceDailyCents, &hourly,
		&rt.MaxGuests, &rt.ExtraGuestFeeCents, &rt.HourlyMinHours, &rt.HourlyMaxHours, &rt.OpenHour, &rt.CloseHour,
		&rt.Active, &rt.CreatedAt, &rt.UpdatedAt,
	)
	if err != nil {
		return model.RoomType{}, err
	}
	rt.BasePriceHourlyCents = int64Ptr(hourly)
	return rt, nil
}

// getRoomType loads one room type, appending suffix (a locking clause) to
// the query.  A missing row becomes a NotFoundError.
func getRoomType(ctx context.Context, q queryer, id uint64, suffix string) (model.RoomType, error) {
	row := q.QueryRowContext(ctx, `SELECT `+roomTypeColumns+` FROM room_types WHERE id = ?`+suffix, id)
	rt, err := scanRoomType(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RoomType{}, booking.NewNotFoundError("room type", id)
	}
	return rt, mapError(err)
}

// RoomType returns the committed room type.
func (s *Store) RoomType(ctx context.Context, id uint64) (model.RoomType, error) {
	return getRoomType(ctx, s.db, id, "")
}

// RoomTypesByHotel lists a hotel's room types ordered by id.
func (s *Store) RoomTypesByHotel(ctx context.Context, hotelID uint64) ([]model.RoomType, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+roomTypeColumns+` FROM room_types WHERE hotel_id = ? ORDER BY id`, hotelID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	out := make([]model.RoomType, 0)
	for rows.Next() {
		rt, err := scanRoomType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// RoomTypeForShare takes a shared lock; holds and ledger writes use it so
// that a concurrent resize waits for them.
func (t *Tx) RoomTypeForShare(ctx context.Context, id uint64) (model.RoomType, error) {
	return getRoomType(ctx, t.tx, id, ` FOR SHARE`)
}

// RoomTypeForUpdate takes the exclusive lock used by catalog changes.
func (t *Tx) RoomTypeForUpdate(ctx context.Context, id uint64) (model.RoomType, error) {
	return getRoomType(ctx, t.tx, id, ` FOR UPDATE`)
}

// InsertRoomType stores rt and populates the generated ID.
func (t *Tx) InsertRoomType(ctx context.Context, rt *model.RoomType) error {
	const q = `INSERT INTO room_types (hotel_id, name, total_rooms, base_price_daily_cents, base_price_hourly_cents,
		max_guests, extra_guest_fee_cents, hourly_min_hours, hourly_max_hours, open_hour, close_hour,
		active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := t.tx.ExecContext(ctx, q,
		rt.HotelID, rt.Name, rt.TotalRooms, rt.BasePriceDailyCents, nullInt64(rt.BasePriceHourlyCents),
		rt.MaxGuests, rt.ExtraGuestFeeCents, rt.HourlyMinHours, rt.HourlyMaxHours, rt.OpenHour, rt.CloseHour,
		rt.Active, rt.CreatedAt.UTC(), rt.UpdatedAt.UTC(),
	)
	if err != nil {
		return mapError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rt.ID = uint64(id)
	return nil
}

// UpdateRoomType writes every mutable column of rt.
func (t *Tx) UpdateRoomType(ctx context.Context, rt model.RoomType) error {
	const q = `UPDATE room_types SET name = ?, total_rooms = ?, base_price_daily_cents = ?, base_price_hourly_cents = ?,
		max_guests = ?, extra_guest_fee_cents = ?, hourly_min_hours = ?, hourly_max_hours = ?, open_hour = ?,
		close_hour = ?, active = ?, updated_at = ?
		WHERE id = ?`
	_, err := t.tx.ExecContext(ctx, q,
		rt.Name, rt.TotalRooms, rt.BasePriceDailyCents, nullInt64(rt.BasePriceHourlyCents),
		rt.MaxGuests, rt.ExtraGuestFeeCents, rt.HourlyMinHours, rt.HourlyMaxHours, rt.OpenHour,
		rt.CloseHour, rt.Active, rt.UpdatedAt.UTC(), rt.ID,
	)
	return mapError(err)
}

// UsageFrom reports the largest held count and capacity override on any
// day or slot dated from `from` onwards.
func (t *Tx) UsageFrom(ctx context.Context, roomTypeID uint64, from time.Time) (booking.CapacityUsage, error) {
	const q = `SELECT COALESCE(MAX(held), 0), COALESCE(MAX(available_count), 0) FROM (
			SELECT held, available_count FROM inventory_days WHERE room_type_id = ? AND stay_date >= ?
			UNION ALL
			SELECT held, available_count FROM hourly_slots WHERE room_type_id = ? AND slot_date >= ?
		) usage_rows`
	var u booking.CapacityUsage
	d := dateArg(from)
	err := t.tx.QueryRowContext(ctx, q, roomTypeID, d, roomTypeID, d).Scan(&u.MaxHeld, &u.MaxOverride)
	return u, mapError(err)
}
