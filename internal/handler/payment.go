package handler

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-booking-engine/internal/booking"
	"github.com/iliyamo/hotel-booking-engine/internal/payment"
)

// HeaderWebhookToken carries the shared secret of the payment provider.
const HeaderWebhookToken = "X-Webhook-Token"

// ConfirmPayment handles POST /v1/payments/confirm, the payment provider
// callback.  Body: {"booking_id", "order_ref", "payment_ref"}.  Repeating a
// confirmation with the same payment_ref is a no-op that returns the
// booking again.  The order is only settled when the booking can take the
// payment; a payment for a booking cancelled while unpaid is refunded in
// full and answered with 409.
func (h *Handler) ConfirmPayment(c echo.Context) error {
	token := c.Request().Header.Get(HeaderWebhookToken)
	if h.WebhookSecret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.WebhookSecret)) != 1 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid webhook token"})
	}
	var body struct {
		BookingID  uint64 `json:"booking_id"`
		OrderRef   string `json:"order_ref"`
		PaymentRef string `json:"payment_ref"`
	}
	if err := c.Bind(&body); err != nil {
		return h.fail(c, booking.NewValidationError("body", "invalid JSON"))
	}
	if body.BookingID == 0 {
		return h.fail(c, booking.NewValidationError("booking_id", "is required"))
	}
	body.OrderRef = strings.TrimSpace(body.OrderRef)
	body.PaymentRef = strings.TrimSpace(body.PaymentRef)
	if body.PaymentRef == "" {
		return h.fail(c, booking.NewValidationError("payment_ref", "is required"))
	}

	ctx := c.Request().Context()
	b, err := h.Engine.Lifecycle.Get(ctx, body.BookingID)
	if err != nil {
		return h.fail(c, err)
	}
	if body.OrderRef != "" && body.OrderRef != b.PaymentOrderRef {
		return c.JSON(http.StatusConflict, echo.Map{"error": "order_ref does not belong to this booking"})
	}
	if h.Settler != nil && b.PaymentOrderRef != "" && booking.AcceptsPayment(b) {
		o, err := h.Settler.Settle(b.PaymentOrderRef)
		switch {
		case errors.Is(err, payment.ErrUnknownOrder):
			return c.JSON(http.StatusConflict, echo.Map{"error": "unknown payment order"})
		case err != nil:
			return h.fail(c, err)
		case o.BookingID != b.ID || o.AmountCents != b.Price.TotalCents:
			h.Log.WithFields(logrus.Fields{"booking_id": b.ID, "order_ref": o.Ref}).Warn("payment order does not match booking")
			return c.JSON(http.StatusConflict, echo.Map{"error": "payment order does not match booking"})
		}
	}

	b, err = h.Engine.Lifecycle.ConfirmPayment(ctx, body.BookingID, body.PaymentRef)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}
