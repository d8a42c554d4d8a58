package booking

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/iliyamo/hotel-booking-engine/internal/model"
)

// maxStayNights bounds a single daily request.
const maxStayNights = 365

// DailyQuery asks whether numRooms rooms are free for every night of
// [CheckIn, CheckOut).
type DailyQuery struct {
	HotelID     uint64
	RoomTypeIDs []uint64
	CheckIn     time.Time
	CheckOut    time.Time
	NumRooms    int
}

// NightQuote is the ledger view of one night.
type NightQuote struct {
	Date          time.Time `json:"date"`
	Capacity      int       `json:"capacity"`
	Held          int       `json:"held"`
	Available     int       `json:"available"`
	PriceCents    int64     `json:"price_cents"`
	Closed        bool      `json:"closed"`
	MinStayNights int       `json:"min_stay_nights"`
}

// DailyResult is the answer for one room type.
type DailyResult struct {
	RoomTypeID      uint64       `json:"room_type_id"`
	Available       bool         `json:"available"`
	Reason          string       `json:"reason,omitempty"`
	FailingDate     *time.Time   `json:"failing_date,omitempty"`
	MinAvailable    int          `json:"min_available"`
	RequiredMinStay int          `json:"required_min_stay"`
	Nights          []NightQuote `json:"nights"`
	TotalPriceCents int64        `json:"total_price_cents"`
}

func (r DailyResult) insufficient(requested int) *InsufficientInventoryError {
	e := &InsufficientInventoryError{
		RoomTypeID: r.RoomTypeID,
		Requested:  requested,
		Available:  r.MinAvailable,
		Reason:     r.Reason,
	}
	if r.FailingDate != nil {
		e.Date = *r.FailingDate
	}
	return e
}

// HourlyQuery asks whether numRooms rooms are free for
// [StartHour, StartHour+NumHours) on Date.
type HourlyQuery struct {
	HotelID     uint64
	RoomTypeIDs []uint64
	Date        time.Time
	StartHour   int
	NumHours    int
	NumRooms    int
}

// SlotQuote is the ledger view of one covered slot.
type SlotQuote struct {
	StartHour   int   `json:"start_hour"`
	EndHour     int   `json:"end_hour"`
	Capacity    int   `json:"capacity"`
	Held        int   `json:"held"`
	Available   int   `json:"available"`
	PriceCents  int64 `json:"price_cents"`
	BilledHours int   `json:"billed_hours"`
	Closed      bool  `json:"closed"`
}

// HourlyResult is the answer for one room type.
type HourlyResult struct {
	RoomTypeID      uint64      `json:"room_type_id"`
	Available       bool        `json:"available"`
	Reason          string      `json:"reason,omitempty"`
	FailingSlot     *int        `json:"failing_slot,omitempty"`
	MinAvailable    int         `json:"min_available"`
	Slots           []SlotQuote `json:"slots"`
	TotalPriceCents int64       `json:"total_price_cents"`
}

func (r HourlyResult) insufficient(date time.Time, requested int) *InsufficientInventoryError {
	return &InsufficientInventoryError{
		RoomTypeID: r.RoomTypeID,
		Date:       date,
		StartHour:  r.FailingSlot,
		Requested:  requested,
		Available:  r.MinAvailable,
		Reason:     r.Reason,
	}
}

// Availability answers read-only availability questions from committed
// ledger state.
type Availability struct {
	*core
}

// CheckDaily evaluates every requested room type, returning results in
// input order.
func (a *Availability) CheckDaily(ctx context.Context, q DailyQuery) (out []DailyResult, err error) {
	ctx, span := a.startSpan(ctx, "booking.Availability.CheckDaily",
		attribute.Int64("hotel.id", int64(q.HotelID)),
		attribute.String("stay.check_in", FormatDate(q.CheckIn)),
		attribute.String("stay.check_out", FormatDate(q.CheckOut)),
		attribute.Int("stay.num_rooms", q.NumRooms),
	)
	defer func() { endSpan(span, err) }()

	checkIn, checkOut := DateOf(q.CheckIn), DateOf(q.CheckOut)
	if err = a.validateStay(checkIn, checkOut, q.NumRooms); err != nil {
		return nil, err
	}
	if len(q.RoomTypeIDs) == 0 {
		return nil, NewValidationError("room_type_ids", "at least one room type is required")
	}
	nights := nightsOf(checkIn, checkOut)

	out = make([]DailyResult, 0, len(q.RoomTypeIDs))
	for _, id := range q.RoomTypeIDs {
		rt, err := a.roomTypeOfHotel(ctx, q.HotelID, id)
		if err != nil {
			return nil, err
		}
		rows, err := a.store.Overrides(ctx, id, checkIn, checkOut)
		if err != nil {
			return nil, transient(err)
		}
		out = append(out, evaluateDaily(rt, nights, alignDays(rt.ID, nights, rows), q.NumRooms))
	}
	return out, nil
}

// CheckHourly evaluates every requested room type, returning results in
// input order.
func (a *Availability) CheckHourly(ctx context.Context, q HourlyQuery) (out []HourlyResult, err error) {
	ctx, span := a.startSpan(ctx, "booking.Availability.CheckHourly",
		attribute.Int64("hotel.id", int64(q.HotelID)),
		attribute.String("slot.date", FormatDate(q.Date)),
		attribute.Int("slot.start_hour", q.StartHour),
		attribute.Int("slot.num_hours", q.NumHours),
		attribute.Int("slot.num_rooms", q.NumRooms),
	)
	defer func() { endSpan(span, err) }()

	date := DateOf(q.Date)
	if err = a.validateWindow(date, q.StartHour, q.NumRooms); err != nil {
		return nil, err
	}
	if len(q.RoomTypeIDs) == 0 {
		return nil, NewValidationError("room_type_ids", "at least one room type is required")
	}

	out = make([]HourlyResult, 0, len(q.RoomTypeIDs))
	for _, id := range q.RoomTypeIDs {
		rt, err := a.roomTypeOfHotel(ctx, q.HotelID, id)
		if err != nil {
			return nil, err
		}
		if err := checkHourlyShape(rt, q.StartHour, q.NumHours); err != nil {
			return nil, err
		}
		keys := slotKeys(rt.ID, date, q.StartHour, q.NumHours, rt.SlotHours())
		rows, err := a.store.Slots(ctx, id, date)
		if err != nil {
			return nil, transient(err)
		}
		out = append(out, evaluateHourly(rt, mergeSlots(keys, rows), q.StartHour, q.NumHours, q.NumRooms))
	}
	return out, nil
}

func (a *Availability) roomTypeOfHotel(ctx context.Context, hotelID, id uint64) (model.RoomType, error) {
	rt, err := a.store.RoomType(ctx, id)
	if err != nil {
		return model.RoomType{}, transient(err)
	}
	if rt.HotelID != hotelID {
		return model.RoomType{}, NewNotFoundError("room type", id)
	}
	return rt, nil
}

// validateStay applies the daily request rules shared by queries and holds.
func (a *Availability) validateStay(checkIn, checkOut time.Time, numRooms int) error {
	if numRooms <= 0 {
		return NewValidationError("num_rooms", "must be at least 1")
	}
	if !checkOut.After(checkIn) {
		return &InvalidDateRangeError{Start: checkIn, End: checkOut, Reason: "check-out must be after check-in"}
	}
	if checkIn.Before(a.today()) {
		return &InvalidDateRangeError{Start: checkIn, End: checkOut, Reason: "check-in is in the past"}
	}
	if n := len(nightsOf(checkIn, checkOut)); n > maxStayNights {
		return &InvalidDateRangeError{Start: checkIn, End: checkOut, Reason: fmt.Sprintf("stay of %d nights exceeds %d", n, maxStayNights)}
	}
	return nil
}

// validateWindow applies the hourly request rules that do not depend on
// the room type.
func (a *Availability) validateWindow(date time.Time, startHour, numRooms int) error {
	if numRooms <= 0 {
		return NewValidationError("num_rooms", "must be at least 1")
	}
	if startHour < 0 || startHour > 23 {
		return NewValidationError("start_hour", "must be between 0 and 23")
	}
	today := a.today()
	if date.Before(today) {
		return &InvalidDateRangeError{Start: date, End: date, Reason: "date is in the past"}
	}
	if date.Equal(today) && startHour < a.now().In(a.policy.Location).Hour() {
		return &InvalidDateRangeError{Start: date, End: date, Reason: "start time has passed"}
	}
	return nil
}

// checkHourlyShape validates duration, alignment and operating hours for
// one room type.
func checkHourlyShape(rt model.RoomType, startHour, numHours int) error {
	if !rt.HourlyEnabled() {
		return NewValidationError("room_type_ids", fmt.Sprintf("room type %d does not offer hourly booking", rt.ID))
	}
	if numHours < rt.HourlyMinHours || numHours > rt.HourlyMaxHours {
		return &InvalidDurationError{RoomTypeID: rt.ID, NumHours: numHours, MinHours: rt.HourlyMinHours, MaxHours: rt.HourlyMaxHours}
	}
	openHour, closeHour := rt.OperatingHours()
	step := rt.SlotHours()
	if startHour < openHour || (startHour-openHour)%step != 0 {
		return NewValidationError("start_hour", fmt.Sprintf("%02d:00 is not a slot boundary of room type %d", startHour, rt.ID))
	}
	covered := ((numHours + step - 1) / step) * step
	if startHour+covered > closeHour {
		return NewValidationError("num_hours", fmt.Sprintf("window runs past closing hour %02d:00", closeHour))
	}
	return nil
}

// alignDays returns one row per night, using an empty row where the ledger
// has none.
func alignDays(roomTypeID uint64, nights []time.Time, rows []model.DateInventoryOverride) []model.DateInventoryOverride {
	byDate := make(map[time.Time]model.DateInventoryOverride, len(rows))
	for _, r := range rows {
		byDate[DateOf(r.Date)] = r
	}
	out := make([]model.DateInventoryOverride, len(nights))
	for i, n := range nights {
		if r, ok := byDate[n]; ok {
			out[i] = r
			continue
		}
		out[i] = model.DateInventoryOverride{RoomTypeID: roomTypeID, Date: n}
	}
	return out
}

// evaluateDaily is the single availability rule for daily stays; days must
// align with nights.
func evaluateDaily(rt model.RoomType, nights []time.Time, days []model.DateInventoryOverride, numRooms int) DailyResult {
	res := DailyResult{RoomTypeID: rt.ID, Nights: make([]NightQuote, 0, len(nights))}
	minAvail := -1
	required := 0
	var requiredAt time.Time
	for i, night := range nights {
		d := days[i]
		capacity := d.Capacity(rt.TotalRooms)
		price := rt.BasePriceDailyCents
		if d.PriceCents != nil {
			price = *d.PriceCents
		}
		q := NightQuote{
			Date:          night,
			Capacity:      capacity,
			Held:          d.Held,
			Available:     capacity - d.Held,
			PriceCents:    price,
			Closed:        d.Closed,
			MinStayNights: d.MinStayNights,
		}
		if q.Available < 0 {
			q.Available = 0
		}
		res.Nights = append(res.Nights, q)
		res.TotalPriceCents += price * int64(numRooms)
		if minAvail < 0 || q.Available < minAvail {
			minAvail = q.Available
		}
		if d.MinStayNights > required {
			required, requiredAt = d.MinStayNights, night
		}
		if res.Reason == "" {
			switch {
			case d.Closed:
				res.fail(night, ReasonClosed)
			case q.Available < numRooms:
				res.fail(night, ReasonCapacity)
			}
		}
	}
	res.MinAvailable = max(minAvail, 0)
	res.RequiredMinStay = required
	if res.Reason == "" && len(nights) < required {
		res.fail(requiredAt, ReasonMinStay)
	}
	if res.Reason == "" && !rt.Active {
		res.fail(nights[0], ReasonInactive)
	}
	res.Available = res.Reason == ""
	return res
}

func (r *DailyResult) fail(date time.Time, reason string) {
	d := date
	r.FailingDate = &d
	r.Reason = reason
}

// evaluateHourly is the single availability rule for hourly windows; slots
// must be the covered slots in start order.
func evaluateHourly(rt model.RoomType, slots []model.HourlySlot, startHour, numHours, numRooms int) HourlyResult {
	res := HourlyResult{RoomTypeID: rt.ID, Slots: make([]SlotQuote, 0, len(slots))}
	end := startHour + numHours
	minAvail := -1
	for _, s := range slots {
		capacity := s.Capacity(rt.TotalRooms)
		price := int64(0)
		if rt.BasePriceHourlyCents != nil {
			price = *rt.BasePriceHourlyCents
		}
		if s.PriceCents != nil {
			price = *s.PriceCents
		}
		billed := min(s.EndHour, end) - max(s.StartHour, startHour)
		q := SlotQuote{
			StartHour:   s.StartHour,
			EndHour:     s.EndHour,
			Capacity:    capacity,
			Held:        s.Held,
			Available:   max(capacity-s.Held, 0),
			PriceCents:  price,
			BilledHours: billed,
			Closed:      s.Closed,
		}
		res.Slots = append(res.Slots, q)
		res.TotalPriceCents += price * int64(billed) * int64(numRooms)
		if minAvail < 0 || q.Available < minAvail {
			minAvail = q.Available
		}
		if res.Reason == "" {
			switch {
			case s.Closed:
				res.fail(s.StartHour, ReasonClosed)
			case q.Available < numRooms:
				res.fail(s.StartHour, ReasonCapacity)
			}
		}
	}
	res.MinAvailable = max(minAvail, 0)
	if res.Reason == "" && !rt.Active && len(slots) > 0 {
		res.fail(slots[0].StartHour, ReasonInactive)
	}
	res.Available = res.Reason == "" && len(slots) > 0
	return res
}

func (r *HourlyResult) fail(startHour int, reason string) {
	h := startHour
	r.FailingSlot = &h
	r.Reason = reason
}
