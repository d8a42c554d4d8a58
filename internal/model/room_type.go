package model

import "time"

// RoomType is a bookable category of rooms inside a hotel.  All rooms of a
// type share price, capacity and guest limits.
//
// Fields:
//  TotalRooms           – physical room count; the capacity ceiling for
//                         every date unless an override lowers it.
//  BasePriceHourlyCents – hourly price; nil means the type cannot be booked
//                         by the hour.
//  HourlyMinHours       – shortest hourly booking and the slot length.
//  OpenHour, CloseHour  – operating window for hourly slots (0–24).
type RoomType struct {
	ID                   uint64    `json:"id"`                      // room_types.id
	HotelID              uint64    `json:"hotel_id"`                // room_types.hotel_id
	Name                 string    `json:"name"`                    // room_types.name
	TotalRooms           int       `json:"total_rooms"`             // room_types.total_rooms
	BasePriceDailyCents  int64     `json:"base_price_daily_cents"`  // room_types.base_price_daily_cents
	BasePriceHourlyCents *int64    `json:"base_price_hourly_cents"` // room_types.base_price_hourly_cents (nullable)
	MaxGuests            int       `json:"max_guests"`              // room_types.max_guests (per room)
	ExtraGuestFeeCents   int64     `json:"extra_guest_fee_cents"`   // room_types.extra_guest_fee_cents
	HourlyMinHours       int       `json:"hourly_min_hours"`        // room_types.hourly_min_hours
	HourlyMaxHours       int       `json:"hourly_max_hours"`        // room_types.hourly_max_hours
	OpenHour             int       `json:"open_hour"`               // room_types.open_hour
	CloseHour            int       `json:"close_hour"`              // room_types.close_hour
	Active               bool      `json:"active"`                  // room_types.active
	CreatedAt            time.Time `json:"created_at"`              // room_types.created_at
	UpdatedAt            time.Time `json:"updated_at"`              // room_types.updated_at
}

// HourlyEnabled reports whether the room type can be booked by the hour.
func (rt RoomType) HourlyEnabled() bool {
	return rt.BasePriceHourlyCents != nil && rt.HourlyMinHours > 0 && rt.HourlyMaxHours >= rt.HourlyMinHours
}

// SlotHours is the length of one hourly slot.
func (rt RoomType) SlotHours() int {
	if rt.HourlyMinHours < 1 {
		return 1
	}
	return rt.HourlyMinHours
}

// OperatingHours returns the hourly window, falling back to the full day
// when the stored values are unset or inverted.
func (rt RoomType) OperatingHours() (openHour, closeHour int) {
	openHour, closeHour = rt.OpenHour, rt.CloseHour
	if closeHour == 0 {
		closeHour = 24
	}
	if openHour < 0 || closeHour > 24 || openHour >= closeHour {
		return 0, 24
	}
	return openHour, closeHour
}
