package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-booking-engine/internal/booking"
	"github.com/iliyamo/hotel-booking-engine/internal/middleware"
	"github.com/iliyamo/hotel-booking-engine/internal/model"
	"github.com/iliyamo/hotel-booking-engine/internal/payment"
)

// OrderSettler is implemented by payment providers that can vouch for an
// order reference before the booking is confirmed.
type OrderSettler interface {
	Settle(orderRef string) (payment.Order, error)
}

// Handler exposes the booking engine over HTTP.  All methods assume that
// authentication and role checks ran in middleware.
type Handler struct {
	Engine        *booking.Engine
	Settler       OrderSettler // optional
	WebhookSecret string
	Log           logrus.FieldLogger
}

// New constructs a Handler and panics if the engine is missing.
func New(engine *booking.Engine, settler OrderSettler, webhookSecret string, log logrus.FieldLogger) *Handler {
	if engine == nil {
		panic("nil engine passed to handler.New")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{Engine: engine, Settler: settler, WebhookSecret: webhookSecret, Log: log}
}

func (h *Handler) fail(c echo.Context, err error) error {
	return respondError(c, h.Log.WithField("path", c.Request().URL.Path), err)
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, booking.NewValidationError(name, "must be a positive integer")
	}
	return id, nil
}

// parseIDList parses "1,2,3".
func parseIDList(field, raw string) ([]uint64, error) {
	var ids []uint64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil || id == 0 {
			return nil, booking.NewValidationError(field, "must be a comma separated list of positive integers")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// queryInt reads an integer query parameter, using def when absent.
func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, booking.NewValidationError(name, "must be an integer")
	}
	return n, nil
}

func parseDateField(field, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, booking.NewValidationError(field, "is required")
	}
	d, err := booking.ParseDate(raw)
	if err != nil {
		return time.Time{}, booking.NewValidationError(field, "must be a date in YYYY-MM-DD form")
	}
	return d, nil
}

func principal(c echo.Context) (model.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return model.Principal{}, errForbidden
	}
	return p, nil
}

// canSee reports whether p may read or act on b.  Guests own their
// bookings; staff and admins see every booking of their hotel.
func canSee(p model.Principal, b model.Booking) bool {
	if p.Role == model.RoleGuest {
		return b.GuestID == p.UserID
	}
	return p.CanManageHotel(b.HotelID)
}

// loadBooking fetches the booking named by :id and hides bookings the
// caller may not see behind a 404.
func (h *Handler) loadBooking(c echo.Context) (model.Principal, model.Booking, error) {
	p, err := principal(c)
	if err != nil {
		return p, model.Booking{}, err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return p, model.Booking{}, err
	}
	b, err := h.Engine.Lifecycle.Get(c.Request().Context(), id)
	if err != nil {
		return p, model.Booking{}, err
	}
	if !canSee(p, b) {
		return p, model.Booking{}, booking.NewNotFoundError("booking", id)
	}
	return p, b, nil
}

// roomTypeOfHotel loads :rt_id and checks it belongs to :hotel_id.
func (h *Handler) roomTypeOfHotel(c echo.Context) (model.RoomType, error) {
	hotelID, err := pathID(c, "hotel_id")
	if err != nil {
		return model.RoomType{}, err
	}
	rtID, err := pathID(c, "rt_id")
	if err != nil {
		return model.RoomType{}, err
	}
	rt, err := h.Engine.Catalog.GetRoomType(c.Request().Context(), rtID)
	if err != nil {
		return model.RoomType{}, err
	}
	if rt.HotelID != hotelID {
		return model.RoomType{}, booking.NewNotFoundError("room type", rtID)
	}
	return rt, nil
}
