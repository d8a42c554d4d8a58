package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-booking-engine/internal/booking"
)

// DailyAvailability handles GET /v1/hotels/:hotel_id/availability/daily.
// Query: room_type_ids (comma separated), check_in, check_out, rooms
// (default 1).  Each room type gets its own verdict; an unavailable room
// type is not an error.
func (h *Handler) DailyAvailability(c echo.Context) error {
	hotelID, err := pathID(c, "hotel_id")
	if err != nil {
		return h.fail(c, err)
	}
	ids, err := parseIDList("room_type_ids", c.QueryParam("room_type_ids"))
	if err != nil {
		return h.fail(c, err)
	}
	checkIn, err := parseDateField("check_in", c.QueryParam("check_in"))
	if err != nil {
		return h.fail(c, err)
	}
	checkOut, err := parseDateField("check_out", c.QueryParam("check_out"))
	if err != nil {
		return h.fail(c, err)
	}
	rooms, err := queryInt(c, "rooms", 1)
	if err != nil {
		return h.fail(c, err)
	}

	results, err := h.Engine.Availability.CheckDaily(c.Request().Context(), booking.DailyQuery{
		HotelID:     hotelID,
		RoomTypeIDs: ids,
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		NumRooms:    rooms,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"hotel_id":  hotelID,
		"check_in":  booking.FormatDate(checkIn),
		"check_out": booking.FormatDate(checkOut),
		"rooms":     rooms,
		"results":   results,
	})
}

// HourlyAvailability handles GET /v1/hotels/:hotel_id/availability/hourly.
// Query: room_type_ids, date, start_hour, hours, rooms (default 1).
func (h *Handler) HourlyAvailability(c echo.Context) error {
	hotelID, err := pathID(c, "hotel_id")
	if err != nil {
		return h.fail(c, err)
	}
	ids, err := parseIDList("room_type_ids", c.QueryParam("room_type_ids"))
	if err != nil {
		return h.fail(c, err)
	}
	date, err := parseDateField("date", c.QueryParam("date"))
	if err != nil {
		return h.fail(c, err)
	}
	start, err := queryInt(c, "start_hour", -1)
	if err != nil {
		return h.fail(c, err)
	}
	hours, err := queryInt(c, "hours", 0)
	if err != nil {
		return h.fail(c, err)
	}
	rooms, err := queryInt(c, "rooms", 1)
	if err != nil {
		return h.fail(c, err)
	}

	results, err := h.Engine.Availability.CheckHourly(c.Request().Context(), booking.HourlyQuery{
		HotelID:     hotelID,
		RoomTypeIDs: ids,
		Date:        date,
		StartHour:   start,
		NumHours:    hours,
		NumRooms:    rooms,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"hotel_id":   hotelID,
		"date":       booking.FormatDate(date),
		"start_hour": start,
		"hours":      hours,
		"rooms":      rooms,
		"results":    results,
	})
}

// ListRoomTypes handles GET /v1/hotels/:hotel_id/room-types.
func (h *Handler) ListRoomTypes(c echo.Context) error {
	hotelID, err := pathID(c, "hotel_id")
	if err != nil {
		return h.fail(c, err)
	}
	rts, err := h.Engine.Catalog.ListRoomTypes(c.Request().Context(), hotelID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"room_types": rts})
}
