package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-booking-engine/internal/booking"
	"github.com/iliyamo/hotel-booking-engine/internal/model"
)

// reserveBody is shared by daily and hourly reservations; each endpoint
// reads the fields of its kind.
type reserveBody struct {
	RoomTypeID uint64 `json:"room_type_id"`
	// GuestID lets staff book on behalf of a guest.  Ignored for guests.
	GuestID     uint64             `json:"guest_id"`
	CheckIn     string             `json:"check_in"`
	CheckOut    string             `json:"check_out"`
	Date        string             `json:"date"`
	StartHour   int                `json:"start_hour"`
	NumHours    int                `json:"num_hours"`
	NumRooms    int                `json:"num_rooms"`
	NumGuests   int                `json:"num_guests"`
	ExtraGuests int                `json:"extra_guests"`
	Guest       model.GuestContact `json:"guest"`
	booking.PriceSnapshot
}

func (h *Handler) bindReserve(c echo.Context) (model.Principal, uint64, uint64, reserveBody, error) {
	var body reserveBody
	p, err := principal(c)
	if err != nil {
		return p, 0, 0, body, err
	}
	hotelID, err := pathID(c, "hotel_id")
	if err != nil {
		return p, 0, 0, body, err
	}
	if err := c.Bind(&body); err != nil {
		return p, 0, 0, body, booking.NewValidationError("body", "invalid JSON")
	}
	if body.RoomTypeID == 0 {
		return p, 0, 0, body, booking.NewValidationError("room_type_id", "is required")
	}
	guestID := p.UserID
	if p.Role != model.RoleGuest {
		if body.GuestID == 0 {
			return p, 0, 0, body, booking.NewValidationError("guest_id", "is required when booking for a guest")
		}
		guestID = body.GuestID
	}
	return p, hotelID, guestID, body, nil
}

// ReserveDaily handles POST /v1/hotels/:hotel_id/bookings/daily.  On
// success the booking is PENDING with a payment order attached and must be
// confirmed before expires_at.
func (h *Handler) ReserveDaily(c echo.Context) error {
	_, hotelID, guestID, body, err := h.bindReserve(c)
	if err != nil {
		return h.fail(c, err)
	}
	checkIn, err := parseDateField("check_in", body.CheckIn)
	if err != nil {
		return h.fail(c, err)
	}
	checkOut, err := parseDateField("check_out", body.CheckOut)
	if err != nil {
		return h.fail(c, err)
	}
	b, err := h.Engine.Coordinator.ReserveDaily(c.Request().Context(), booking.DailyRequest{
		HotelID:     hotelID,
		RoomTypeID:  body.RoomTypeID,
		GuestID:     guestID,
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		NumRooms:    body.NumRooms,
		NumGuests:   body.NumGuests,
		ExtraGuests: body.ExtraGuests,
		Guest:       body.Guest,
		Price:       body.PriceSnapshot,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// ReserveHourly handles POST /v1/hotels/:hotel_id/bookings/hourly.
func (h *Handler) ReserveHourly(c echo.Context) error {
	_, hotelID, guestID, body, err := h.bindReserve(c)
	if err != nil {
		return h.fail(c, err)
	}
	date, err := parseDateField("date", body.Date)
	if err != nil {
		return h.fail(c, err)
	}
	b, err := h.Engine.Coordinator.ReserveHourly(c.Request().Context(), booking.HourlyRequest{
		HotelID:     hotelID,
		RoomTypeID:  body.RoomTypeID,
		GuestID:     guestID,
		Date:        date,
		StartHour:   body.StartHour,
		NumHours:    body.NumHours,
		NumRooms:    body.NumRooms,
		NumGuests:   body.NumGuests,
		ExtraGuests: body.ExtraGuests,
		Guest:       body.Guest,
		Price:       body.PriceSnapshot,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// GetBooking handles GET /v1/bookings/:id.
func (h *Handler) GetBooking(c echo.Context) error {
	_, b, err := h.loadBooking(c)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// CancelBooking handles POST /v1/bookings/:id/cancel with an optional
// {"reason": "..."} body.  Confirmed bookings are refunded per policy.
func (h *Handler) CancelBooking(c echo.Context) error {
	_, b, err := h.loadBooking(c)
	if err != nil {
		return h.fail(c, err)
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&body); err != nil {
			return h.fail(c, booking.NewValidationError("body", "invalid JSON"))
		}
	}
	b, err = h.Engine.Lifecycle.Cancel(c.Request().Context(), b.ID, body.Reason)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// ReleaseBooking handles POST /v1/bookings/:id/release (staff).  A PENDING
// booking is cancelled and its holds returned; a CANCELLED booking only has
// leftover holds returned.  Confirmed bookings get 409 and must be
// cancelled so they are refunded.  Safe to repeat.
func (h *Handler) ReleaseBooking(c echo.Context) error {
	_, b, err := h.loadBooking(c)
	if err != nil {
		return h.fail(c, err)
	}
	ctx := c.Request().Context()
	if err := h.Engine.Coordinator.Release(ctx, b.ID); err != nil {
		return h.fail(c, err)
	}
	b, err = h.Engine.Lifecycle.Get(ctx, b.ID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// CheckIn handles POST /v1/bookings/:id/check-in (staff).
func (h *Handler) CheckIn(c echo.Context) error {
	_, b, err := h.loadBooking(c)
	if err != nil {
		return h.fail(c, err)
	}
	b, err = h.Engine.Lifecycle.CheckIn(c.Request().Context(), b.ID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// CheckOut handles POST /v1/bookings/:id/check-out (staff).
func (h *Handler) CheckOut(c echo.Context) error {
	_, b, err := h.loadBooking(c)
	if err != nil {
		return h.fail(c, err)
	}
	b, err = h.Engine.Lifecycle.CheckOut(c.Request().Context(), b.ID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}
