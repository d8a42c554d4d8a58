package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iliyamo/hotel-booking-engine/internal/model"
)

// transitions lists the allowed moves.  Terminal states have no entry.
var transitions = map[model.BookingStatus][]model.BookingStatus{
	model.StatusPending:   {model.StatusConfirmed, model.StatusCancelled},
	model.StatusConfirmed: {model.StatusCheckedIn, model.StatusCancelled},
	model.StatusCheckedIn: {model.StatusCheckedOut},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to model.BookingStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func checkTransition(b model.Booking, to model.BookingStatus) error {
	if !CanTransition(b.Status, to) {
		return &InvalidStateTransitionError{BookingID: b.ID, From: b.Status, To: to}
	}
	return nil
}

// Lifecycle drives booking status changes.  Cancellation always goes
// through the coordinator's release path.
type Lifecycle struct {
	*core
	coord *Coordinator
}

// Get returns a booking by id.
func (l *Lifecycle) Get(ctx context.Context, bookingID uint64) (model.Booking, error) {
	b, err := l.store.Booking(ctx, bookingID)
	return b, transient(err)
}

// AcceptsPayment reports whether a payment for b should be captured: the
// booking can still be confirmed, or it was cancelled before any payment
// and a late payment must be captured so it can be refunded.
func AcceptsPayment(b model.Booking) bool {
	return CanTransition(b.Status, model.StatusConfirmed) || latePayment(b)
}

// latePayment is a booking that was cancelled while unpaid and has not
// seen a payment yet.
func latePayment(b model.Booking) bool {
	return b.Status == model.StatusCancelled && b.PaymentStatus == model.PaymentVoided && b.PaymentRef == ""
}

// ConfirmPayment handles the payment-confirmed callback.  Replaying the
// same gateway reference is accepted without change.  A payment that lands
// on a booking cancelled while unpaid (expired or cancelled by the guest)
// is recorded and refunded in full, and the call still fails with
// InvalidStateTransitionError.
func (l *Lifecycle) ConfirmPayment(ctx context.Context, bookingID uint64, gatewayRef string) (b model.Booking, err error) {
	ctx, span := l.startSpan(ctx, "booking.Lifecycle.ConfirmPayment", attribute.Int64("booking.id", int64(bookingID)))
	defer func() { endSpan(span, err) }()

	gatewayRef = strings.TrimSpace(gatewayRef)
	if gatewayRef == "" {
		return model.Booking{}, NewValidationError("gateway_ref", "is required")
	}
	var changed, late bool
	err = l.inTx(ctx, func(ctx context.Context, tx Tx) error {
		changed, late = false, false
		var err error
		b, err = tx.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.Status == model.StatusConfirmed && b.PaymentRef == gatewayRef {
			return nil
		}
		now := l.now().UTC()
		if latePayment(b) {
			b.PaymentRef = gatewayRef
			b.PaymentStatus = model.PaymentRefundPending
			b.RefundCents = b.Price.TotalCents
			if b.RefundCents == 0 {
				b.PaymentStatus = model.PaymentRefunded
			}
			b.UpdatedAt = now
			late = true
			return tx.UpdateBooking(ctx, b)
		}
		if b.Status == model.StatusCancelled && b.PaymentRef == gatewayRef {
			return &InvalidStateTransitionError{
				BookingID: b.ID,
				From:      b.Status,
				To:        model.StatusConfirmed,
				Reason:    "payment arrived after cancellation and was refunded",
			}
		}
		if err := checkTransition(b, model.StatusConfirmed); err != nil {
			return err
		}
		b.Status = model.StatusConfirmed
		b.PaymentStatus = model.PaymentPaid
		b.PaymentRef = gatewayRef
		b.ConfirmedAt = &now
		b.UpdatedAt = now
		changed = true
		return tx.UpdateBooking(ctx, b)
	})
	if err != nil {
		return model.Booking{}, err
	}
	if late {
		l.log.WithFields(logrus.Fields{
			"booking_id":   b.ID,
			"payment_ref":  gatewayRef,
			"refund_cents": b.RefundCents,
		}).Warn("payment arrived after cancellation, refunding in full")
		if b.PaymentStatus == model.PaymentRefundPending {
			l.refund(ctx, b)
		}
		return model.Booking{}, &InvalidStateTransitionError{
			BookingID: b.ID,
			From:      model.StatusCancelled,
			To:        model.StatusConfirmed,
			Reason:    "payment arrived after cancellation and was refunded",
		}
	}
	if changed {
		l.log.WithFields(logrus.Fields{"booking_id": b.ID, "payment_ref": gatewayRef}).Info("booking confirmed")
		l.notify(ctx, model.EventBookingConfirmed, b)
	}
	return b, nil
}

// Cancel cancels a PENDING or CONFIRMED booking and releases its
// inventory.  Confirmed bookings are refunded per the refund policy once the
// cancellation has committed; a failed refund leaves the booking in
// REFUND_PENDING.
func (l *Lifecycle) Cancel(ctx context.Context, bookingID uint64, reason string) (b model.Booking, err error) {
	ctx, span := l.startSpan(ctx, "booking.Lifecycle.Cancel", attribute.Int64("booking.id", int64(bookingID)))
	defer func() { endSpan(span, err) }()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "cancelled on request"
	}
	err = l.inTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		b, err = tx.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		paid := b.Status == model.StatusConfirmed && b.PaymentStatus == model.PaymentPaid
		now := l.now()
		if err := l.coord.cancelTx(ctx, tx, &b, reason); err != nil {
			return err
		}
		if paid {
			b.RefundCents = l.policy.Refunds.RefundCents(l.stayStart(b).Sub(now), b.Price.TotalCents)
			if b.RefundCents > 0 {
				b.PaymentStatus = model.PaymentRefundPending
			}
		}
		return tx.UpdateBooking(ctx, b)
	})
	if err != nil {
		return model.Booking{}, err
	}
	l.log.WithFields(logrus.Fields{
		"booking_id":   b.ID,
		"reason":       reason,
		"refund_cents": b.RefundCents,
	}).Info("booking cancelled")

	if b.PaymentStatus == model.PaymentRefundPending {
		b = l.refund(ctx, b)
	}
	l.notify(ctx, model.EventBookingCancelled, b)
	return b, nil
}

func (l *Lifecycle) refund(ctx context.Context, b model.Booking) model.Booking {
	log := l.log.WithFields(logrus.Fields{"booking_id": b.ID, "refund_cents": b.RefundCents})
	ref, err := l.payments.Refund(ctx, b.ID, b.RefundCents)
	if err != nil {
		log.WithError(err).Error("refund failed, booking left in REFUND_PENDING")
		return b
	}
	err = l.inTx(ctx, func(ctx context.Context, tx Tx) error {
		cur, err := tx.LockBooking(ctx, b.ID)
		if err != nil {
			return err
		}
		cur.RefundRef = ref
		cur.PaymentStatus = model.PaymentRefunded
		cur.UpdatedAt = l.now().UTC()
		if err := tx.UpdateBooking(ctx, cur); err != nil {
			return err
		}
		b = cur
		return nil
	})
	if err != nil {
		log.WithError(err).WithField("refund_ref", ref).Error("refund issued but not recorded")
	}
	return b
}

// CheckIn marks a confirmed booking as arrived.
func (l *Lifecycle) CheckIn(ctx context.Context, bookingID uint64) (model.Booking, error) {
	return l.move(ctx, bookingID, model.StatusCheckedIn, func(b *model.Booking, now time.Time) {
		b.CheckedInAt = &now
	})
}

// CheckOut completes a stay.  The booking becomes review eligible.
func (l *Lifecycle) CheckOut(ctx context.Context, bookingID uint64) (model.Booking, error) {
	return l.move(ctx, bookingID, model.StatusCheckedOut, func(b *model.Booking, now time.Time) {
		b.CheckedOutAt = &now
	})
}

func (l *Lifecycle) move(ctx context.Context, bookingID uint64, to model.BookingStatus, apply func(*model.Booking, time.Time)) (b model.Booking, err error) {
	ctx, span := l.startSpan(ctx, "booking.Lifecycle.Move",
		attribute.Int64("booking.id", int64(bookingID)),
		attribute.String("booking.to", string(to)),
	)
	defer func() { endSpan(span, err) }()

	err = l.inTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		b, err = tx.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := checkTransition(b, to); err != nil {
			return err
		}
		now := l.now().UTC()
		b.Status = to
		b.UpdatedAt = now
		apply(&b, now)
		return tx.UpdateBooking(ctx, b)
	})
	if err != nil {
		return model.Booking{}, err
	}
	l.log.WithFields(logrus.Fields{"booking_id": b.ID, "status": to}).Info("booking status changed")
	return b, nil
}

// ExpirePending cancels the booking if it is still PENDING past its payment
// deadline.  It reports whether the booking was expired.
func (l *Lifecycle) ExpirePending(ctx context.Context, bookingID uint64) (expired bool, err error) {
	ctx, span := l.startSpan(ctx, "booking.Lifecycle.ExpirePending", attribute.Int64("booking.id", int64(bookingID)))
	defer func() { endSpan(span, err) }()

	var b model.Booking
	err = l.inTx(ctx, func(ctx context.Context, tx Tx) error {
		expired = false
		var err error
		b, err = tx.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.Status != model.StatusPending || b.ExpiresAt.After(l.now()) {
			return nil
		}
		if err := l.coord.cancelTx(ctx, tx, &b, "payment timeout"); err != nil {
			return err
		}
		expired = true
		return tx.UpdateBooking(ctx, b)
	})
	if err != nil {
		return false, err
	}
	if expired {
		l.notify(ctx, model.EventBookingCancelled, b)
	}
	return expired, nil
}

// SweepExpired expires up to limit timed-out PENDING bookings.  Individual
// failures are logged and joined into the returned error; the sweep keeps
// going.
func (l *Lifecycle) SweepExpired(ctx context.Context, limit int) (int, error) {
	ids, err := l.store.ExpiredPending(ctx, l.now(), limit)
	if err != nil {
		return 0, transient(err)
	}
	count := 0
	var errs []error
	for _, id := range ids {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		ok, err := l.ExpirePending(ctx, id)
		if err != nil {
			l.log.WithField("booking_id", id).WithError(err).Error("expiring booking failed")
			errs = append(errs, err)
			continue
		}
		if ok {
			count++
		}
	}
	return count, errors.Join(errs...)
}

// stayStart is the moment the stay begins in the policy location.
func (l *Lifecycle) stayStart(b model.Booking) time.Time {
	d := b.Stay.StartDate()
	hour := 0
	if h, ok := b.Hourly(); ok {
		hour = h.StartHour
	}
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, l.policy.Location)
}
