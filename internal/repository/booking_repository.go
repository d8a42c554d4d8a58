package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/hotel-booking-engine/internal/booking"
	"github.com/iliyamo/hotel-booking-engine/internal/model"
)

// bookingColumns lists the bookings table in scan order.  The stay is
// flattened into check_in/check_out for daily bookings and
// slot_date/start_hour/num_hours/slot_hours for hourly ones.
const bookingColumns = `id, number, hotel_id, room_type_id, guest_id, kind,
	check_in, check_out, slot_date, start_hour, num_hours, slot_hours,
	num_rooms, num_guests, extra_guests,
	room_subtotal_cents, extra_guest_cents, tax_cents, discount_cents, total_cents, currency,
	status, payment_status, payment_order_ref, payment_ref, refund_cents, refund_ref,
	guest_name, guest_email, guest_phone, cancellation_reason, cancelled_at, holds_released,
	expires_at, confirmed_at, checked_in_at, checked_out_at, created_at, updated_at`

func scanBooking(row rowScanner) (model.Booking, error) {
	var (
		b                                          model.Booking
		checkIn, checkOut, slotDate                sql.NullTime
		startHour, numHours, slotHours             sql.NullInt64
		orderRef, payRef, refundRef                sql.NullString
		email, phone, reason                       sql.NullString
		cancelledAt, confirmedAt, checkedIn, outAt sql.NullTime
	)
	err := row.Scan(
		&b.ID, &b.Number, &b.HotelID, &b.RoomTypeID, &b.GuestID, &b.Kind,
		&checkIn, &checkOut, &slotDate, &startHour, &numHours, &slotHours,
		&b.NumRooms, &b.NumGuests, &b.ExtraGuests,
		&b.Price.RoomSubtotalCents, &b.Price.ExtraGuestCents, &b.Price.TaxCents, &b.Price.DiscountCents, &b.Price.TotalCents, &b.Currency,
		&b.Status, &b.PaymentStatus, &orderRef, &payRef, &b.RefundCents, &refundRef,
		&b.Guest.Name, &email, &phone, &reason, &cancelledAt, &b.HoldsReleased,
		&b.ExpiresAt, &confirmedAt, &checkedIn, &outAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return model.Booking{}, err
	}
	switch b.Kind {
	case model.KindDaily:
		b.Stay = model.DailyStay{CheckIn: booking.DateOf(checkIn.Time), CheckOut: booking.DateOf(checkOut.Time)}
	case model.KindHourly:
		b.Stay = model.HourlyStay{
			Date:      booking.DateOf(slotDate.Time),
			StartHour: int(startHour.Int64),
			NumHours:  int(numHours.Int64),
			SlotHours: int(slotHours.Int64),
		}
	default:
		return model.Booking{}, fmt.Errorf("booking %d: unknown kind %q", b.ID, b.Kind)
	}
	b.PaymentOrderRef = orderRef.String
	b.PaymentRef = payRef.String
	b.RefundRef = refundRef.String
	b.Guest.Email = email.String
	b.Guest.Phone = phone.String
	if reason.Valid {
		r := reason.String
		b.CancellationReason = &r
	}
	b.CancelledAt = timePtr(cancelledAt)
	b.ConfirmedAt = timePtr(confirmedAt)
	b.CheckedInAt = timePtr(checkedIn)
	b.CheckedOutAt = timePtr(outAt)
	b.ExpiresAt = b.ExpiresAt.UTC()
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return b, nil
}

// stayArgs flattens the stay into the six kind-specific columns.
func stayArgs(b model.Booking) ([]any, error) {
	switch s := b.Stay.(type) {
	case model.DailyStay:
		return []any{dateArg(s.CheckIn), dateArg(s.CheckOut), nil, nil, nil, nil}, nil
	case model.HourlyStay:
		return []any{nil, nil, dateArg(s.Date), s.StartHour, s.NumHours, s.SlotHours}, nil
	default:
		return nil, fmt.Errorf("booking %d has no stay", b.ID)
	}
}

func getBooking(ctx context.Context, q queryer, id uint64, suffix string) (model.Booking, error) {
	row := q.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`+suffix, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, booking.NewNotFoundError("booking", id)
	}
	return b, mapError(err)
}

// Booking returns the committed booking.
func (s *Store) Booking(ctx context.Context, id uint64) (model.Booking, error) {
	return getBooking(ctx, s.db, id, "")
}

// ExpiredPending lists PENDING bookings whose deadline has passed, oldest
// deadline first.
func (s *Store) ExpiredPending(ctx context.Context, before time.Time, limit int) ([]uint64, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM bookings WHERE status = ? AND expires_at <= ? ORDER BY expires_at LIMIT ?`,
		model.StatusPending, before.UTC(), limit,
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, mapError(rows.Err())
}

// InsertBooking stores b and populates the generated ID.  A clash on the
// booking number surfaces as booking.ErrDuplicateBookingNumber.
func (t *Tx) InsertBooking(ctx context.Context, b *model.Booking) error {
	stay, err := stayArgs(*b)
	if err != nil {
		return err
	}
	const q = `INSERT INTO bookings (number, hotel_id, room_type_id, guest_id, kind,
		check_in, check_out, slot_date, start_hour, num_hours, slot_hours,
		num_rooms, num_guests, extra_guests,
		room_subtotal_cents, extra_guest_cents, tax_cents, discount_cents, total_cents, currency,
		status, payment_status, payment_order_ref, payment_ref, refund_cents, refund_ref,
		guest_name, guest_email, guest_phone, cancellation_reason, cancelled_at, holds_released,
		expires_at, confirmed_at, checked_in_at, checked_out_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	args := []any{b.Number, b.HotelID, b.RoomTypeID, b.GuestID, b.Kind}
	args = append(args, stay...)
	args = append(args, b.NumRooms, b.NumGuests, b.ExtraGuests)
	args = append(args, mutableArgs(*b)...)
	args = append(args, b.CreatedAt.UTC(), b.UpdatedAt.UTC())

	res, err := t.tx.ExecContext(ctx, q, args...)
	if err != nil {
		return mapError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// mutableArgs covers room_subtotal_cents through checked_out_at, the
// columns shared by insert and update.
func mutableArgs(b model.Booking) []any {
	var reason any
	if b.CancellationReason != nil {
		reason = *b.CancellationReason
	}
	return []any{
		b.Price.RoomSubtotalCents, b.Price.ExtraGuestCents, b.Price.TaxCents, b.Price.DiscountCents, b.Price.TotalCents, b.Currency,
		b.Status, b.PaymentStatus, nullString(b.PaymentOrderRef), nullString(b.PaymentRef), b.RefundCents, nullString(b.RefundRef),
		b.Guest.Name, nullString(b.Guest.Email), nullString(b.Guest.Phone), reason, nullTime(b.CancelledAt), b.HoldsReleased,
		b.ExpiresAt.UTC(), nullTime(b.ConfirmedAt), nullTime(b.CheckedInAt), nullTime(b.CheckedOutAt),
	}
}

// LockBooking reads the booking with an exclusive row lock.
func (t *Tx) LockBooking(ctx context.Context, id uint64) (model.Booking, error) {
	return getBooking(ctx, t.tx, id, ` FOR UPDATE`)
}

// UpdateBooking writes the mutable columns of b.  Identity, stay and size
// never change after creation.
func (t *Tx) UpdateBooking(ctx context.Context, b model.Booking) error {
	const q = `UPDATE bookings SET
		room_subtotal_cents = ?, extra_guest_cents = ?, tax_cents = ?, discount_cents = ?, total_cents = ?, currency = ?,
		status = ?, payment_status = ?, payment_order_ref = ?, payment_ref = ?, refund_cents = ?, refund_ref = ?,
		guest_name = ?, guest_email = ?, guest_phone = ?, cancellation_reason = ?, cancelled_at = ?, holds_released = ?,
		expires_at = ?, confirmed_at = ?, checked_in_at = ?, checked_out_at = ?, updated_at = ?
		WHERE id = ?`
	args := append(mutableArgs(b), b.UpdatedAt.UTC(), b.ID)
	_, err := t.tx.ExecContext(ctx, q, args...)
	return mapError(err)
}
