package model

import "time"

// BookingKind discriminates the Stay variant carried by a Booking.
type BookingKind string

const (
	KindDaily  BookingKind = "DAILY"
	KindHourly BookingKind = "HOURLY"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusPending    BookingStatus = "PENDING"
	StatusConfirmed  BookingStatus = "CONFIRMED"
	StatusCheckedIn  BookingStatus = "CHECKED_IN"
	StatusCheckedOut BookingStatus = "CHECKED_OUT"
	StatusCancelled  BookingStatus = "CANCELLED"
)

// Terminal reports whether no further transition is allowed.
func (s BookingStatus) Terminal() bool {
	return s == StatusCheckedOut || s == StatusCancelled
}

// HoldsInventory reports whether bookings in this status count against the
// ledger.
func (s BookingStatus) HoldsInventory() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusCheckedIn
}

// PaymentStatus tracks money movement independently of the lifecycle.
type PaymentStatus string

const (
	PaymentUnpaid        PaymentStatus = "UNPAID"
	PaymentPaid          PaymentStatus = "PAID"
	PaymentVoided        PaymentStatus = "VOIDED"
	PaymentRefundPending PaymentStatus = "REFUND_PENDING"
	PaymentRefunded      PaymentStatus = "REFUNDED"
)

// Stay is the kind-specific part of a booking.  It is implemented only by
// DailyStay and HourlyStay.
type Stay interface {
	Kind() BookingKind
	// StartDate is the first calendar date the stay touches.
	StartDate() time.Time
}

// DailyStay covers the nights [CheckIn, CheckOut).
type DailyStay struct {
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
}

func (DailyStay) Kind() BookingKind       { return KindDaily }
func (d DailyStay) StartDate() time.Time { return d.CheckIn }

// Nights returns the number of nights of the stay.
func (d DailyStay) Nights() int {
	return int(d.CheckOut.Sub(d.CheckIn).Hours() / 24)
}

// HourlyStay covers [StartHour, StartHour+NumHours) on Date.
type HourlyStay struct {
	Date      time.Time `json:"date"`
	StartHour int       `json:"start_hour"`
	NumHours  int       `json:"num_hours"`
	// SlotHours is the slot length in force when the booking was made.
	SlotHours int `json:"slot_hours"`
}

func (HourlyStay) Kind() BookingKind       { return KindHourly }
func (h HourlyStay) StartDate() time.Time { return h.Date }

// EndHour is the exclusive end of the window.
func (h HourlyStay) EndHour() int { return h.StartHour + h.NumHours }

// PriceBreakdown is the server-computed price of a booking in minor units.
type PriceBreakdown struct {
	RoomSubtotalCents int64 `json:"room_subtotal_cents"`
	ExtraGuestCents   int64 `json:"extra_guest_cents"`
	TaxCents          int64 `json:"tax_cents"`
	DiscountCents     int64 `json:"discount_cents"`
	TotalCents        int64 `json:"total_cents"`
}

// GuestContact is copied onto the booking at creation so later profile
// edits never alter history.
type GuestContact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Booking is the reservation record.  Stay holds either a DailyStay or an
// HourlyStay and always agrees with Kind.
type Booking struct {
	ID                 uint64         `json:"id"`
	Number             string         `json:"number"`
	HotelID            uint64         `json:"hotel_id"`
	RoomTypeID         uint64         `json:"room_type_id"`
	GuestID            uint64         `json:"guest_id"`
	Kind               BookingKind    `json:"kind"`
	Stay               Stay           `json:"stay"`
	NumRooms           int            `json:"num_rooms"`
	NumGuests          int            `json:"num_guests"`
	ExtraGuests        int            `json:"extra_guests"`
	Price              PriceBreakdown `json:"price"`
	Currency           string         `json:"currency"`
	Status             BookingStatus  `json:"status"`
	PaymentStatus      PaymentStatus  `json:"payment_status"`
	PaymentOrderRef    string         `json:"payment_order_ref,omitempty"`
	PaymentRef         string         `json:"payment_ref,omitempty"`
	RefundCents        int64          `json:"refund_cents"`
	RefundRef          string         `json:"refund_ref,omitempty"`
	Guest              GuestContact   `json:"guest"`
	CancellationReason *string        `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time     `json:"cancelled_at,omitempty"`
	HoldsReleased      bool           `json:"-"`
	ExpiresAt          time.Time      `json:"expires_at"`
	ConfirmedAt        *time.Time     `json:"confirmed_at,omitempty"`
	CheckedInAt        *time.Time     `json:"checked_in_at,omitempty"`
	CheckedOutAt       *time.Time     `json:"checked_out_at,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// Daily returns the daily stay, if this is a daily booking.
func (b Booking) Daily() (DailyStay, bool) {
	d, ok := b.Stay.(DailyStay)
	return d, ok
}

// Hourly returns the hourly stay, if this is an hourly booking.
func (b Booking) Hourly() (HourlyStay, bool) {
	h, ok := b.Stay.(HourlyStay)
	return h, ok
}

// ReviewEligible reports whether a guest review may be attached.  The
// review module additionally checks that no review exists yet.
func (b Booking) ReviewEligible() bool {
	return b.Status == StatusCheckedOut
}
