package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iliyamo/hotel-booking-engine/internal/model"
)

// SlotLedger is the hourly counterpart of Ledger, keyed additionally by
// slot start.  Slots without a stored row are generated from the room type.
type SlotLedger struct {
	*core
}

// slotTemplates lays out the slots of a day from the room type's operating
// window.  A trailing partial slot is not offered.
func slotTemplates(rt model.RoomType, date time.Time) []model.HourlySlot {
	openHour, closeHour := rt.OperatingHours()
	step := rt.SlotHours()
	var out []model.HourlySlot
	for h := openHour; h+step <= closeHour; h += step {
		out = append(out, model.HourlySlot{
			RoomTypeID: rt.ID,
			Date:       DateOf(date),
			StartHour:  h,
			EndHour:    h + step,
		})
	}
	return out
}

// slotKeys lists the slots covering [start, start+numHours).  start must be
// aligned to a slot boundary.
func slotKeys(roomTypeID uint64, date time.Time, start, numHours, slotHours int) []model.HourlySlot {
	if slotHours < 1 {
		slotHours = 1
	}
	var out []model.HourlySlot
	for h := start; h < start+numHours; h += slotHours {
		out = append(out, model.HourlySlot{
			RoomTypeID: roomTypeID,
			Date:       DateOf(date),
			StartHour:  h,
			EndHour:    h + slotHours,
		})
	}
	return out
}

// mergeSlots overlays stored rows onto templates by start hour.
func mergeSlots(templates, rows []model.HourlySlot) []model.HourlySlot {
	byStart := make(map[int]model.HourlySlot, len(rows))
	for _, r := range rows {
		byStart[r.StartHour] = r
	}
	out := make([]model.HourlySlot, len(templates))
	for i, t := range templates {
		if r, ok := byStart[t.StartHour]; ok {
			r.EndHour = t.EndHour
			out[i] = r
			continue
		}
		out[i] = t
	}
	return out
}

// GetSlots returns the ordered slots of the date with overrides applied.
func (s *SlotLedger) GetSlots(ctx context.Context, roomTypeID uint64, date time.Time) ([]model.HourlySlot, error) {
	rt, err := s.store.RoomType(ctx, roomTypeID)
	if err != nil {
		return nil, transient(err)
	}
	if !rt.HourlyEnabled() {
		return nil, NewValidationError("room_type_id", fmt.Sprintf("room type %d does not offer hourly booking", rt.ID))
	}
	rows, err := s.store.Slots(ctx, roomTypeID, DateOf(date))
	if err != nil {
		return nil, transient(err)
	}
	return mergeSlots(slotTemplates(rt, date), rows), nil
}

// UpsertSlot merges patch into one slot of one date.
func (s *SlotLedger) UpsertSlot(ctx context.Context, roomTypeID uint64, date time.Time, startHour int, patch model.InventoryPatch) (model.HourlySlot, error) {
	rows, err := s.BulkUpsertSlots(ctx, roomTypeID, date, date, startHour, patch)
	if err != nil {
		return model.HourlySlot{}, err
	}
	return rows[0], nil
}

// BulkUpsertSlots merges patch into the slot starting at startHour on every
// date of [from, to], all or nothing.
func (s *SlotLedger) BulkUpsertSlots(ctx context.Context, roomTypeID uint64, from, to time.Time, startHour int, patch model.InventoryPatch) (rows []model.HourlySlot, err error) {
	from, to = DateOf(from), DateOf(to)
	ctx, span := s.startSpan(ctx, "booking.SlotLedger.BulkUpsertSlots",
		attribute.Int64("room_type.id", int64(roomTypeID)),
		attribute.String("range.from", FormatDate(from)),
		attribute.String("range.to", FormatDate(to)),
		attribute.Int("slot.start_hour", startHour),
	)
	defer func() { endSpan(span, err) }()

	if err = s.validateAdminRange(from, to); err != nil {
		return nil, err
	}
	if err = validatePatch(patch, false); err != nil {
		return nil, err
	}

	err = s.inTx(ctx, func(ctx context.Context, tx Tx) error {
		rt, err := tx.RoomTypeForShare(ctx, roomTypeID)
		if err != nil {
			return err
		}
		if !rt.HourlyEnabled() {
			return NewValidationError("room_type_id", fmt.Sprintf("room type %d does not offer hourly booking", rt.ID))
		}
		if patch.AvailableCount != nil && *patch.AvailableCount > rt.TotalRooms {
			return NewValidationError("available_count", fmt.Sprintf("must not exceed total rooms %d", rt.TotalRooms))
		}
		var key *model.HourlySlot
		for _, t := range slotTemplates(rt, from) {
			if t.StartHour == startHour {
				t := t
				key = &t
				break
			}
		}
		if key == nil {
			return NewValidationError("start_hour", fmt.Sprintf("%02d:00 is not a slot boundary", startHour))
		}

		keys := make([]model.HourlySlot, 0)
		for _, d := range datesInclusive(from, to) {
			k := *key
			k.Date = d
			keys = append(keys, k)
		}
		slots, err := tx.LockSlots(ctx, keys)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		ve := newValidationError()
		for i := range slots {
			applySlotPatch(&slots[i], patch)
			slots[i].UpdatedAt = now
			if c := slots[i].Capacity(rt.TotalRooms); c < slots[i].Held {
				ve.add("available_count", fmt.Sprintf("%s %02d:00: %d rooms already held, capacity %d",
					FormatDate(slots[i].Date), slots[i].StartHour, slots[i].Held, c))
			}
		}
		if err := ve.orNil(); err != nil {
			return err
		}
		if err := tx.SaveSlots(ctx, slots); err != nil {
			return err
		}
		rows = slots
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"room_type_id": roomTypeID,
		"from":         FormatDate(from),
		"to":           FormatDate(to),
		"start_hour":   startHour,
	}).Info("hourly slot overrides updated")
	return rows, nil
}

func applySlotPatch(s *model.HourlySlot, p model.InventoryPatch) {
	switch {
	case p.ClearAvailableCount:
		s.AvailableCount = nil
	case p.AvailableCount != nil:
		v := *p.AvailableCount
		s.AvailableCount = &v
	}
	switch {
	case p.ClearPrice:
		s.PriceCents = nil
	case p.PriceCents != nil:
		v := *p.PriceCents
		s.PriceCents = &v
	}
	if p.Closed != nil {
		s.Closed = *p.Closed
	}
}
