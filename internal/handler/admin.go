package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-booking-engine/internal/booking"
	"github.com/iliyamo/hotel-booking-engine/internal/model"
)

// CreateRoomType handles POST /v1/hotels/:hotel_id/room-types.  The hotel
// comes from the path, never from the body.
func (h *Handler) CreateRoomType(c echo.Context) error {
	hotelID, err := pathID(c, "hotel_id")
	if err != nil {
		return h.fail(c, err)
	}
	var rt model.RoomType
	if err := c.Bind(&rt); err != nil {
		return h.fail(c, booking.NewValidationError("body", "invalid JSON"))
	}
	rt.ID = 0
	rt.HotelID = hotelID
	out, err := h.Engine.Catalog.CreateRoomType(c.Request().Context(), rt)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// GetRoomType handles GET /v1/hotels/:hotel_id/room-types/:rt_id.
func (h *Handler) GetRoomType(c echo.Context) error {
	rt, err := h.roomTypeOfHotel(c)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, rt)
}

// ResizeRoomType handles PATCH .../room-types/:rt_id/capacity with
// {"total_rooms": n}.
func (h *Handler) ResizeRoomType(c echo.Context) error {
	rt, err := h.roomTypeOfHotel(c)
	if err != nil {
		return h.fail(c, err)
	}
	var body struct {
		TotalRooms int `json:"total_rooms"`
	}
	if err := c.Bind(&body); err != nil {
		return h.fail(c, booking.NewValidationError("body", "invalid JSON"))
	}
	out, err := h.Engine.Catalog.ResizeRoomType(c.Request().Context(), rt.ID, body.TotalRooms)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// SetRoomTypeActive handles PATCH .../room-types/:rt_id/active with
// {"active": bool}.
func (h *Handler) SetRoomTypeActive(c echo.Context) error {
	rt, err := h.roomTypeOfHotel(c)
	if err != nil {
		return h.fail(c, err)
	}
	var body struct {
		Active *bool `json:"active"`
	}
	if err := c.Bind(&body); err != nil || body.Active == nil {
		return h.fail(c, booking.NewValidationError("active", "is required"))
	}
	out, err := h.Engine.Catalog.SetActive(c.Request().Context(), rt.ID, *body.Active)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ListInventory handles GET .../room-types/:rt_id/inventory?from=&to=,
// returning the stored day rows in [from, to].
func (h *Handler) ListInventory(c echo.Context) error {
	rt, err := h.roomTypeOfHotel(c)
	if err != nil {
		return h.fail(c, err)
	}
	from, err := parseDateField("from", c.QueryParam("from"))
	if err != nil {
		return h.fail(c, err)
	}
	to, err := parseDateField("to", c.QueryParam("to"))
	if err != nil {
		return h.fail(c, err)
	}
	rows, err := h.Engine.Ledger.ListOverrides(c.Request().Context(), rt.ID, from, to)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"room_type_id": rt.ID, "days": rows})
}

// UpsertInventoryDay handles PUT .../room-types/:rt_id/inventory/:date with
// an InventoryPatch body.
func (h *Handler) UpsertInventoryDay(c echo.Context) error {
	rt, err := h.roomTypeOfHotel(c)
	if err != nil {
		return h.fail(c, err)
	}
	date, err := parseDateField("date", c.Param("date"))
	if err != nil {
		return h.fail(c, err)
	}
	var patch model.InventoryPatch
	if err := c.Bind(&patch); err != nil {
		return h.fail(c, booking.NewValidationError("body", "invalid JSON"))
	}
	row, err := h.Engine.Ledger.UpsertOverride(c.Request().Context(), rt.ID, date, patch)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, row)
}

type bulkBody struct {
	From      string               `json:"from"`
	To        string               `json:"to"`
	StartHour *int                 `json:"start_hour"`
	Patch     model.InventoryPatch `json:"patch"`
}

func (h *Handler) bindBulk(c echo.Context) (model.RoomType, bulkBody, error) {
	var body bulkBody
	rt, err := h.roomTypeOfHotel(c)
	if err != nil {
		return rt, body, err
	}
	if err := c.Bind(&body); err != nil {
		return rt, body, booking.NewValidationError("body", "invalid JSON")
	}
	return rt, body, nil
}

// BulkUpsertInventory handles PUT .../room-types/:rt_id/inventory with
// {"from", "to", "patch"}; both ends are inclusive and the whole range is
// applied atomically.
func (h *Handler) BulkUpsertInventory(c echo.Context) error {
	rt, body, err := h.bindBulk(c)
	if err != nil {
		return h.fail(c, err)
	}
	from, err := parseDateField("from", body.From)
	if err != nil {
		return h.fail(c, err)
	}
	to, err := parseDateField("to", body.To)
	if err != nil {
		return h.fail(c, err)
	}
	rows, err := h.Engine.Ledger.BulkUpsert(c.Request().Context(), rt.ID, from, to, body.Patch)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"room_type_id": rt.ID, "days": rows})
}

// ListSlots handles GET .../room-types/:rt_id/slots?date=, returning every
// slot of the day with defaults filled in.
func (h *Handler) ListSlots(c echo.Context) error {
	rt, err := h.roomTypeOfHotel(c)
	if err != nil {
		return h.fail(c, err)
	}
	date, err := parseDateField("date", c.QueryParam("date"))
	if err != nil {
		return h.fail(c, err)
	}
	slots, err := h.Engine.Slots.GetSlots(c.Request().Context(), rt.ID, date)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"room_type_id": rt.ID, "date": booking.FormatDate(date), "slots": slots})
}

// UpsertSlot handles PUT .../room-types/:rt_id/slots/:date/:start_hour.
func (h *Handler) UpsertSlot(c echo.Context) error {
	rt, err := h.roomTypeOfHotel(c)
	if err != nil {
		return h.fail(c, err)
	}
	date, err := parseDateField("date", c.Param("date"))
	if err != nil {
		return h.fail(c, err)
	}
	start, err := strconv.Atoi(c.Param("start_hour"))
	if err != nil {
		return h.fail(c, booking.NewValidationError("start_hour", "must be an integer"))
	}
	var patch model.InventoryPatch
	if err := c.Bind(&patch); err != nil {
		return h.fail(c, booking.NewValidationError("body", "invalid JSON"))
	}
	slot, err := h.Engine.Slots.UpsertSlot(c.Request().Context(), rt.ID, date, start, patch)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, slot)
}

// BulkUpsertSlots handles PUT .../room-types/:rt_id/slots with
// {"from", "to", "start_hour", "patch"}: the same slot on every date of
// the inclusive range.
func (h *Handler) BulkUpsertSlots(c echo.Context) error {
	rt, body, err := h.bindBulk(c)
	if err != nil {
		return h.fail(c, err)
	}
	from, err := parseDateField("from", body.From)
	if err != nil {
		return h.fail(c, err)
	}
	to, err := parseDateField("to", body.To)
	if err != nil {
		return h.fail(c, err)
	}
	if body.StartHour == nil {
		return h.fail(c, booking.NewValidationError("start_hour", "is required"))
	}
	rows, err := h.Engine.Slots.BulkUpsertSlots(c.Request().Context(), rt.ID, from, to, *body.StartHour, body.Patch)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"room_type_id": rt.ID, "slots": rows})
}
