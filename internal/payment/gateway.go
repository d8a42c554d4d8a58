// Package payment provides the local payment provider used when no external
// processor is configured.  It hands out order and refund references and
// keeps a ledger of them so a confirmation webhook can be checked against
// the order it claims to settle.
package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrUnknownOrder is returned by Settle for references this gateway never
// issued.
var ErrUnknownOrder = errors.New("payment: unknown order")

// Order is one payment request created for a booking.
type Order struct {
	Ref         string
	BookingID   uint64
	AmountCents int64
	Currency    string
	Settled     bool
	RefundCents int64
}

// LocalGateway implements booking.PaymentGateway in memory.
type LocalGateway struct {
	log logrus.FieldLogger

	mu     sync.Mutex
	orders map[string]*Order
}

func NewLocalGateway(log logrus.FieldLogger) *LocalGateway {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LocalGateway{log: log, orders: make(map[string]*Order)}
}

// CreateOrder registers an order and returns its reference.
func (g *LocalGateway) CreateOrder(ctx context.Context, bookingID uint64, amountCents int64, currency string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if amountCents < 0 {
		return "", fmt.Errorf("payment: negative amount %d", amountCents)
	}
	ref := "ord_" + uuid.NewString()
	g.mu.Lock()
	g.orders[ref] = &Order{Ref: ref, BookingID: bookingID, AmountCents: amountCents, Currency: currency}
	g.mu.Unlock()
	g.log.WithFields(logrus.Fields{"booking_id": bookingID, "order_ref": ref, "amount_cents": amountCents}).Info("payment order created")
	return ref, nil
}

// Settle marks an order paid and returns it.  It is what the confirmation
// webhook consults before the booking is confirmed.
func (g *LocalGateway) Settle(orderRef string) (Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	o, ok := g.orders[orderRef]
	if !ok {
		return Order{}, ErrUnknownOrder
	}
	o.Settled = true
	return *o, nil
}

// Order returns a copy of the order with the given reference.
func (g *LocalGateway) Order(ref string) (Order, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	o, ok := g.orders[ref]
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// Refund issues a refund against the booking's order, preferring a settled
// one.
func (g *LocalGateway) Refund(ctx context.Context, bookingID uint64, amountCents int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	var target *Order
	for _, o := range g.orders {
		if o.BookingID == bookingID && (target == nil || o.Settled) {
			target = o
		}
	}
	if target == nil {
		return "", fmt.Errorf("payment: no order for booking %d", bookingID)
	}
	if target.RefundCents+amountCents > target.AmountCents {
		return "", fmt.Errorf("payment: refund of %d exceeds remaining %d", amountCents, target.AmountCents-target.RefundCents)
	}
	target.RefundCents += amountCents
	ref := "rf_" + uuid.NewString()
	g.log.WithFields(logrus.Fields{"booking_id": bookingID, "refund_ref": ref, "amount_cents": amountCents}).Info("refund issued")
	return ref, nil
}
