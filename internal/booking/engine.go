// Package booking is the inventory consistency engine: the date and slot
// ledgers, availability queries, the reservation coordinator and the
// booking lifecycle.  It is transport agnostic and talks to persistence
// through Store.
package booking

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/hotel-booking-engine/internal/model"
)

const tracerName = "github.com/iliyamo/hotel-booking-engine/internal/booking"

// Policy holds the operator-supplied parameters of the engine.
type Policy struct {
	PaymentTimeout time.Duration
	Currency       string
	TaxBasisPoints int64
	MaxAttempts    int
	RetryBaseDelay time.Duration
	// Location decides what "today" means for past-date checks.
	Location *time.Location
	Refunds  RefundPolicy
}

func (p Policy) withDefaults() Policy {
	if p.PaymentTimeout <= 0 {
		p.PaymentTimeout = 15 * time.Minute
	}
	if p.Currency == "" {
		p.Currency = "USD"
	}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 3
	}
	if p.RetryBaseDelay <= 0 {
		p.RetryBaseDelay = 20 * time.Millisecond
	}
	if p.Location == nil {
		p.Location = time.UTC
	}
	if p.Refunds == nil {
		p.Refunds = DefaultRefundPolicy()
	}
	return p
}

// Deps wires the engine to its collaborators.  Store and Payments are
// required; the rest default to no-ops.
type Deps struct {
	Store    Store
	Payments PaymentGateway
	Notifier Notifier
	Policy   Policy
	Log      logrus.FieldLogger
	Now      func() time.Time
}

// Engine bundles the components sharing one store and policy.
type Engine struct {
	Ledger       *Ledger
	Slots        *SlotLedger
	Availability *Availability
	Coordinator  *Coordinator
	Lifecycle    *Lifecycle
	Catalog      *Catalog
}

// New builds every component of the engine.
func New(d Deps) *Engine {
	if d.Store == nil || d.Payments == nil {
		panic("booking: store and payment gateway are required")
	}
	c := &core{
		store:    d.Store,
		payments: d.Payments,
		notifier: d.Notifier,
		policy:   d.Policy.withDefaults(),
		log:      d.Log,
		now:      d.Now,
		tracer:   otel.Tracer(tracerName),
	}
	if c.notifier == nil {
		c.notifier = noopNotifier{}
	}
	if c.log == nil {
		c.log = logrus.StandardLogger()
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.retry = newRetrier(c.policy.MaxAttempts, c.policy.RetryBaseDelay)

	avail := &Availability{core: c}
	coord := &Coordinator{core: c, avail: avail}
	return &Engine{
		Ledger:       &Ledger{core: c},
		Slots:        &SlotLedger{core: c},
		Availability: avail,
		Coordinator:  coord,
		Lifecycle:    &Lifecycle{core: c, coord: coord},
		Catalog:      &Catalog{core: c},
	}
}

// core is the state shared by all components.
type core struct {
	store    Store
	payments PaymentGateway
	notifier Notifier
	policy   Policy
	log      logrus.FieldLogger
	now      func() time.Time
	tracer   trace.Tracer
	retry    retrier
}

// today is the current calendar date in the policy location.
func (c *core) today() time.Time {
	return DateOf(c.now().In(c.policy.Location))
}

// inTx runs fn in a transaction, retrying lock conflicts.  Infrastructure
// failures come back wrapped in ErrTransient.
func (c *core) inTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	err := c.retry.do(ctx, func() error {
		return c.store.WithTx(ctx, fn)
	})
	return transient(err)
}

func (c *core) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// notify delivers an event without blocking the caller.  Failures are only
// logged.
func (c *core) notify(ctx context.Context, event model.EventType, b model.Booking) {
	go func() {
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := c.notifier.Notify(nctx, event, b); err != nil {
			c.log.WithFields(logrus.Fields{
				"event":      event,
				"booking_id": b.ID,
			}).WithError(err).Warn("booking notification failed")
		}
	}()
}
