package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-booking-engine/internal/booking"
)

// respondError maps engine errors onto HTTP responses.  Anything
// unrecognised is logged and reported as a 500 without details.
func respondError(c echo.Context, log logrus.FieldLogger, err error) error {
	if ve := booking.IsValidationError(err); ve != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": ve.Fields()})
	}
	if de := booking.IsInvalidDateRangeError(err); de != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":  "invalid date range",
			"start":  booking.FormatDate(de.Start),
			"end":    booking.FormatDate(de.End),
			"reason": de.Reason,
		})
	}
	if de := booking.IsInvalidDurationError(err); de != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":     "invalid duration",
			"num_hours": de.NumHours,
			"min_hours": de.MinHours,
			"max_hours": de.MaxHours,
		})
	}
	if ie := booking.IsInsufficientInventoryError(err); ie != nil {
		body := echo.Map{
			"error":        "insufficient inventory",
			"room_type_id": ie.RoomTypeID,
			"date":         booking.FormatDate(ie.Date),
			"reason":       ie.Reason,
			"requested":    ie.Requested,
			"available":    ie.Available,
		}
		if ie.StartHour != nil {
			body["start_hour"] = *ie.StartHour
		}
		return c.JSON(http.StatusConflict, body)
	}
	if se := booking.IsInvalidStateTransitionError(err); se != nil {
		body := echo.Map{"error": "invalid state transition", "from": se.From, "to": se.To}
		if se.Reason != "" {
			body["reason"] = se.Reason
		}
		return c.JSON(http.StatusConflict, body)
	}
	if nf := booking.IsNotFoundError(err); nf != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": nf.Error()})
	}
	if cm := booking.IsConcurrentModificationError(err); cm != nil || errors.Is(err, booking.ErrTransient) {
		log.WithError(err).Warn("request gave up on contention or a transient failure")
		c.Response().Header().Set("Retry-After", "1")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "temporarily unavailable, retry"})
	}
	if pe := booking.IsPaymentInitiationFailedError(err); pe != nil {
		log.WithError(err).Error("payment initiation failed")
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment provider unavailable", "booking_id": pe.BookingID})
	}
	if errors.Is(err, errForbidden) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	log.WithError(err).Error("unhandled error")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

var errForbidden = errors.New("forbidden")
