package model

import "time"

// DateInventoryOverride is the per-date ledger row of a room type.  A row
// only exists for dates that deviate from the room type defaults or that
// currently carry holds.
//
// Fields:
//  AvailableCount – capacity override; nil means RoomType.TotalRooms.
//  PriceCents     – nightly price override; nil means the base price.
//  Closed         – blocks new holds on this date.
//  MinStayNights  – minimum stay for any booking covering this date.
//  Held           – rooms currently held by live bookings.
type DateInventoryOverride struct {
	RoomTypeID     uint64    `json:"room_type_id"`    // inventory_days.room_type_id
	Date           time.Time `json:"date"`            // inventory_days.stay_date
	AvailableCount *int      `json:"available_count"` // inventory_days.available_count (nullable)
	PriceCents     *int64    `json:"price_cents"`     // inventory_days.price_cents (nullable)
	Closed         bool      `json:"closed"`          // inventory_days.closed
	MinStayNights  int       `json:"min_stay_nights"` // inventory_days.min_stay_nights
	Held           int       `json:"held"`            // inventory_days.held
	UpdatedAt      time.Time `json:"updated_at"`      // inventory_days.updated_at
}

// Capacity resolves the effective ceiling for the date.
func (o DateInventoryOverride) Capacity(totalRooms int) int {
	if o.AvailableCount != nil {
		return *o.AvailableCount
	}
	return totalRooms
}

// HourlySlot is the per-slot ledger row of a room type on one date.
type HourlySlot struct {
	RoomTypeID     uint64    `json:"room_type_id"`    // hourly_slots.room_type_id
	Date           time.Time `json:"date"`            // hourly_slots.slot_date
	StartHour      int       `json:"start_hour"`      // hourly_slots.start_hour
	EndHour        int       `json:"end_hour"`        // hourly_slots.end_hour
	AvailableCount *int      `json:"available_count"` // hourly_slots.available_count (nullable)
	PriceCents     *int64    `json:"price_cents"`     // hourly_slots.price_cents, per hour (nullable)
	Closed         bool      `json:"closed"`          // hourly_slots.closed
	Held           int       `json:"held"`            // hourly_slots.held
	UpdatedAt      time.Time `json:"updated_at"`      // hourly_slots.updated_at
}

// Capacity resolves the effective ceiling for the slot.
func (s HourlySlot) Capacity(totalRooms int) int {
	if s.AvailableCount != nil {
		return *s.AvailableCount
	}
	return totalRooms
}

// InventoryPatch is a partial update applied by hotel admins to a day or a
// slot.  Nil fields are left untouched; the Clear flags reset a nullable
// override back to the room type default.
type InventoryPatch struct {
	AvailableCount      *int   `json:"available_count"`
	ClearAvailableCount bool   `json:"clear_available_count"`
	PriceCents          *int64 `json:"price_cents"`
	ClearPrice          bool   `json:"clear_price"`
	Closed              *bool  `json:"closed"`
	MinStayNights       *int   `json:"min_stay_nights"`
}

// Empty reports whether the patch changes nothing.
func (p InventoryPatch) Empty() bool {
	return p.AvailableCount == nil && !p.ClearAvailableCount && p.PriceCents == nil &&
		!p.ClearPrice && p.Closed == nil && p.MinStayNights == nil
}
