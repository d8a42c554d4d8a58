package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iliyamo/hotel-booking-engine/internal/model"
)

// maxBulkDays bounds a single bulk write.
const maxBulkDays = 731

// Ledger is the per-date inventory ledger of room types.  Admin writes go
// through here; held counts are owned by the Coordinator.
type Ledger struct {
	*core
}

// GetOverride returns the row for the date, or nil when defaults apply.
func (l *Ledger) GetOverride(ctx context.Context, roomTypeID uint64, date time.Time) (*model.DateInventoryOverride, error) {
	if _, err := l.store.RoomType(ctx, roomTypeID); err != nil {
		return nil, transient(err)
	}
	d := DateOf(date)
	rows, err := l.store.Overrides(ctx, roomTypeID, d, d.AddDate(0, 0, 1))
	if err != nil {
		return nil, transient(err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	row := rows[0]
	return &row, nil
}

// ListOverrides returns the rows that exist in [from, to].
func (l *Ledger) ListOverrides(ctx context.Context, roomTypeID uint64, from, to time.Time) ([]model.DateInventoryOverride, error) {
	if DateOf(to).Before(DateOf(from)) {
		return nil, &InvalidDateRangeError{Start: from, End: to, Reason: "end is before start"}
	}
	if _, err := l.store.RoomType(ctx, roomTypeID); err != nil {
		return nil, transient(err)
	}
	rows, err := l.store.Overrides(ctx, roomTypeID, DateOf(from), DateOf(to).AddDate(0, 0, 1))
	return rows, transient(err)
}

// UpsertOverride merges patch into the row for one date.
func (l *Ledger) UpsertOverride(ctx context.Context, roomTypeID uint64, date time.Time, patch model.InventoryPatch) (model.DateInventoryOverride, error) {
	rows, err := l.BulkUpsert(ctx, roomTypeID, date, date, patch)
	if err != nil {
		return model.DateInventoryOverride{}, err
	}
	return rows[0], nil
}

// BulkUpsert merges patch into every date of [from, to].  Either every date
// is written or none is.
func (l *Ledger) BulkUpsert(ctx context.Context, roomTypeID uint64, from, to time.Time, patch model.InventoryPatch) (rows []model.DateInventoryOverride, err error) {
	from, to = DateOf(from), DateOf(to)
	ctx, span := l.startSpan(ctx, "booking.Ledger.BulkUpsert",
		attribute.Int64("room_type.id", int64(roomTypeID)),
		attribute.String("range.from", FormatDate(from)),
		attribute.String("range.to", FormatDate(to)),
	)
	defer func() { endSpan(span, err) }()

	if err = l.validateAdminRange(from, to); err != nil {
		return nil, err
	}
	if err = validatePatch(patch, true); err != nil {
		return nil, err
	}
	dates := datesInclusive(from, to)

	err = l.inTx(ctx, func(ctx context.Context, tx Tx) error {
		rt, err := tx.RoomTypeForShare(ctx, roomTypeID)
		if err != nil {
			return err
		}
		if patch.AvailableCount != nil && *patch.AvailableCount > rt.TotalRooms {
			return NewValidationError("available_count", fmt.Sprintf("must not exceed total rooms %d", rt.TotalRooms))
		}
		days, err := tx.LockDays(ctx, roomTypeID, dates)
		if err != nil {
			return err
		}
		now := l.now().UTC()
		ve := newValidationError()
		for i := range days {
			applyDayPatch(&days[i], patch)
			days[i].UpdatedAt = now
			if c := days[i].Capacity(rt.TotalRooms); c < days[i].Held {
				ve.add("available_count", fmt.Sprintf("%s: %d rooms already held, capacity %d", FormatDate(days[i].Date), days[i].Held, c))
			}
		}
		if err := ve.orNil(); err != nil {
			return err
		}
		if err := tx.SaveDays(ctx, days); err != nil {
			return err
		}
		rows = days
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.log.WithFields(logrus.Fields{
		"room_type_id": roomTypeID,
		"from":         FormatDate(from),
		"to":           FormatDate(to),
		"days":         len(rows),
	}).Info("inventory overrides updated")
	return rows, nil
}

func (c *core) validateAdminRange(from, to time.Time) error {
	if to.Before(from) {
		return &InvalidDateRangeError{Start: from, End: to, Reason: "end is before start"}
	}
	if from.Before(c.today()) {
		return NewValidationError("from", fmt.Sprintf("%s is in the past", FormatDate(from)))
	}
	if n := len(datesInclusive(from, to)); n > maxBulkDays {
		return NewValidationError("to", fmt.Sprintf("range of %d days exceeds %d", n, maxBulkDays))
	}
	return nil
}

func validatePatch(p model.InventoryPatch, allowMinStay bool) error {
	ve := newValidationError()
	if p.Empty() {
		ve.add("patch", "no fields to update")
	}
	if p.AvailableCount != nil && *p.AvailableCount < 0 {
		ve.add("available_count", "must not be negative")
	}
	if p.AvailableCount != nil && p.ClearAvailableCount {
		ve.add("available_count", "cannot set and clear at once")
	}
	if p.PriceCents != nil && *p.PriceCents < 0 {
		ve.add("price_cents", "must not be negative")
	}
	if p.PriceCents != nil && p.ClearPrice {
		ve.add("price_cents", "cannot set and clear at once")
	}
	if p.MinStayNights != nil {
		if !allowMinStay {
			ve.add("min_stay_nights", "not applicable to hourly slots")
		} else if *p.MinStayNights < 0 {
			ve.add("min_stay_nights", "must not be negative")
		}
	}
	return ve.orNil()
}

func applyDayPatch(d *model.DateInventoryOverride, p model.InventoryPatch) {
	switch {
	case p.ClearAvailableCount:
		d.AvailableCount = nil
	case p.AvailableCount != nil:
		v := *p.AvailableCount
		d.AvailableCount = &v
	}
	switch {
	case p.ClearPrice:
		d.PriceCents = nil
	case p.PriceCents != nil:
		v := *p.PriceCents
		d.PriceCents = &v
	}
	if p.Closed != nil {
		d.Closed = *p.Closed
	}
	if p.MinStayNights != nil {
		d.MinStayNights = *p.MinStayNights
	}
}
