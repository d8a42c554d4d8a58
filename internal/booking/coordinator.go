package booking

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iliyamo/hotel-booking-engine/internal/model"
)

// DailyRequest reserves numRooms rooms for [CheckIn, CheckOut).
type DailyRequest struct {
	HotelID     uint64
	RoomTypeID  uint64
	GuestID     uint64
	CheckIn     time.Time
	CheckOut    time.Time
	NumRooms    int
	NumGuests   int
	ExtraGuests int
	Guest       model.GuestContact
	Price       PriceSnapshot
}

// HourlyRequest reserves numRooms rooms for [StartHour, StartHour+NumHours)
// on Date.
type HourlyRequest struct {
	HotelID     uint64
	RoomTypeID  uint64
	GuestID     uint64
	Date        time.Time
	StartHour   int
	NumHours    int
	NumRooms    int
	NumGuests   int
	ExtraGuests int
	Guest       model.GuestContact
	Price       PriceSnapshot
}

// Coordinator is the only writer of held counts.  Every hold re-reads the
// ledger under row locks, so a prior availability answer is never trusted.
type Coordinator struct {
	*core
	avail *Availability
}

// ReserveDaily holds inventory for every night of the stay and creates a
// PENDING booking with a payment order attached.
func (c *Coordinator) ReserveDaily(ctx context.Context, req DailyRequest) (b model.Booking, err error) {
	checkIn, checkOut := DateOf(req.CheckIn), DateOf(req.CheckOut)
	ctx, span := c.startSpan(ctx, "booking.Coordinator.ReserveDaily",
		attribute.Int64("hotel.id", int64(req.HotelID)),
		attribute.Int64("room_type.id", int64(req.RoomTypeID)),
		attribute.String("stay.check_in", FormatDate(checkIn)),
		attribute.String("stay.check_out", FormatDate(checkOut)),
		attribute.Int("stay.num_rooms", req.NumRooms),
	)
	defer func() { endSpan(span, err) }()

	if err = c.avail.validateStay(checkIn, checkOut, req.NumRooms); err != nil {
		return model.Booking{}, err
	}
	if err = validateGuest(req.NumGuests, req.ExtraGuests, req.Guest); err != nil {
		return model.Booking{}, err
	}
	nights := nightsOf(checkIn, checkOut)

	err = c.inTx(ctx, func(ctx context.Context, tx Tx) error {
		rt, err := c.lockRoomType(ctx, tx, req.HotelID, req.RoomTypeID)
		if err != nil {
			return err
		}
		if err := validateOccupancy(rt, req.NumRooms, req.NumGuests); err != nil {
			return err
		}
		days, err := tx.LockDays(ctx, rt.ID, nights)
		if err != nil {
			return err
		}
		res := evaluateDaily(rt, nights, days, req.NumRooms)
		if !res.Available {
			return res.insufficient(req.NumRooms)
		}
		extra := rt.ExtraGuestFeeCents * int64(req.ExtraGuests) * int64(len(nights))
		price, err := computePrice(res.TotalPriceCents, extra, req.Price.DiscountCents, c.policy.TaxBasisPoints)
		if err != nil {
			return err
		}
		if err := checkSnapshot(price, req.Price); err != nil {
			return err
		}

		now := c.now().UTC()
		for i := range days {
			days[i].Held += req.NumRooms
			days[i].UpdatedAt = now
		}
		if err := tx.SaveDays(ctx, days); err != nil {
			return err
		}

		b = c.newBooking(now, req.HotelID, req.RoomTypeID, req.GuestID, model.DailyStay{CheckIn: checkIn, CheckOut: checkOut})
		b.NumRooms, b.NumGuests, b.ExtraGuests = req.NumRooms, req.NumGuests, req.ExtraGuests
		b.Guest = normalizeGuest(req.Guest)
		b.Price = price
		return c.insertBooking(ctx, tx, &b)
	})
	if err != nil {
		c.logReject("daily reservation rejected", req.RoomTypeID, err)
		return model.Booking{}, err
	}
	return c.attachPayment(ctx, b)
}

// ReserveHourly holds every slot covering the window and creates a PENDING
// booking with a payment order attached.
func (c *Coordinator) ReserveHourly(ctx context.Context, req HourlyRequest) (b model.Booking, err error) {
	date := DateOf(req.Date)
	ctx, span := c.startSpan(ctx, "booking.Coordinator.ReserveHourly",
		attribute.Int64("hotel.id", int64(req.HotelID)),
		attribute.Int64("room_type.id", int64(req.RoomTypeID)),
		attribute.String("slot.date", FormatDate(date)),
		attribute.Int("slot.start_hour", req.StartHour),
		attribute.Int("slot.num_hours", req.NumHours),
		attribute.Int("slot.num_rooms", req.NumRooms),
	)
	defer func() { endSpan(span, err) }()

	if err = c.avail.validateWindow(date, req.StartHour, req.NumRooms); err != nil {
		return model.Booking{}, err
	}
	if err = validateGuest(req.NumGuests, req.ExtraGuests, req.Guest); err != nil {
		return model.Booking{}, err
	}

	err = c.inTx(ctx, func(ctx context.Context, tx Tx) error {
		rt, err := c.lockRoomType(ctx, tx, req.HotelID, req.RoomTypeID)
		if err != nil {
			return err
		}
		if err := checkHourlyShape(rt, req.StartHour, req.NumHours); err != nil {
			return err
		}
		if err := validateOccupancy(rt, req.NumRooms, req.NumGuests); err != nil {
			return err
		}
		slots, err := tx.LockSlots(ctx, slotKeys(rt.ID, date, req.StartHour, req.NumHours, rt.SlotHours()))
		if err != nil {
			return err
		}
		res := evaluateHourly(rt, slots, req.StartHour, req.NumHours, req.NumRooms)
		if !res.Available {
			return res.insufficient(date, req.NumRooms)
		}
		extra := rt.ExtraGuestFeeCents * int64(req.ExtraGuests)
		price, err := computePrice(res.TotalPriceCents, extra, req.Price.DiscountCents, c.policy.TaxBasisPoints)
		if err != nil {
			return err
		}
		if err := checkSnapshot(price, req.Price); err != nil {
			return err
		}

		now := c.now().UTC()
		for i := range slots {
			slots[i].Held += req.NumRooms
			slots[i].UpdatedAt = now
		}
		if err := tx.SaveSlots(ctx, slots); err != nil {
			return err
		}

		stay := model.HourlyStay{Date: date, StartHour: req.StartHour, NumHours: req.NumHours, SlotHours: rt.SlotHours()}
		b = c.newBooking(now, req.HotelID, req.RoomTypeID, req.GuestID, stay)
		b.NumRooms, b.NumGuests, b.ExtraGuests = req.NumRooms, req.NumGuests, req.ExtraGuests
		b.Guest = normalizeGuest(req.Guest)
		b.Price = price
		return c.insertBooking(ctx, tx, &b)
	})
	if err != nil {
		c.logReject("hourly reservation rejected", req.RoomTypeID, err)
		return model.Booking{}, err
	}
	return c.attachPayment(ctx, b)
}

// Release gives back every hold of the booking.  A PENDING booking is
// cancelled on the way and a CANCELLED one only has leftover holds
// returned; calling Release again is a no-op.  Confirmed bookings are paid
// and must go through Lifecycle.Cancel so the refund policy runs.
// Checked-in or checked-out bookings consumed their inventory and cannot be
// released.
func (c *Coordinator) Release(ctx context.Context, bookingID uint64) (err error) {
	ctx, span := c.startSpan(ctx, "booking.Coordinator.Release", attribute.Int64("booking.id", int64(bookingID)))
	defer func() { endSpan(span, err) }()

	var (
		cancelled bool
		b         model.Booking
	)
	err = c.inTx(ctx, func(ctx context.Context, tx Tx) error {
		cancelled = false
		var err error
		b, err = tx.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.HoldsReleased {
			return nil
		}
		switch b.Status {
		case model.StatusConfirmed:
			return &InvalidStateTransitionError{
				BookingID: b.ID,
				From:      b.Status,
				To:        model.StatusCancelled,
				Reason:    "paid bookings are cancelled with a refund, not released",
			}
		case model.StatusPending:
			if err := c.cancelTx(ctx, tx, &b, "released"); err != nil {
				return err
			}
			cancelled = true
		case model.StatusCancelled:
			if err := c.releaseTx(ctx, tx, &b); err != nil {
				return err
			}
		default:
			return &InvalidStateTransitionError{BookingID: b.ID, From: b.Status, To: model.StatusCancelled}
		}
		return tx.UpdateBooking(ctx, b)
	})
	if err != nil {
		return err
	}
	if cancelled {
		c.notify(ctx, model.EventBookingCancelled, b)
	}
	return nil
}

func (c *Coordinator) lockRoomType(ctx context.Context, tx Tx, hotelID, roomTypeID uint64) (model.RoomType, error) {
	rt, err := tx.RoomTypeForShare(ctx, roomTypeID)
	if err != nil {
		return model.RoomType{}, err
	}
	if rt.HotelID != hotelID {
		return model.RoomType{}, NewNotFoundError("room type", roomTypeID)
	}
	return rt, nil
}

func (c *Coordinator) newBooking(now time.Time, hotelID, roomTypeID, guestID uint64, stay model.Stay) model.Booking {
	return model.Booking{
		HotelID:       hotelID,
		RoomTypeID:    roomTypeID,
		GuestID:       guestID,
		Kind:          stay.Kind(),
		Stay:          stay,
		Currency:      c.policy.Currency,
		Status:        model.StatusPending,
		PaymentStatus: model.PaymentUnpaid,
		ExpiresAt:     now.Add(c.policy.PaymentTimeout),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// insertBooking assigns a fresh booking number, retrying on collisions.
func (c *Coordinator) insertBooking(ctx context.Context, tx Tx, b *model.Booking) error {
	const attempts = 3
	var err error
	for i := 0; i < attempts; i++ {
		b.Number, err = newBookingNumber(b.CreatedAt)
		if err != nil {
			return err
		}
		err = tx.InsertBooking(ctx, b)
		if !errors.Is(err, ErrDuplicateBookingNumber) {
			return err
		}
	}
	return err
}

// attachPayment runs after the hold committed.  Any failure here cancels the
// booking so inventory never stays held for an order that does not exist.
func (c *Coordinator) attachPayment(ctx context.Context, b model.Booking) (model.Booking, error) {
	log := c.log.WithFields(logrus.Fields{"booking_id": b.ID, "booking_number": b.Number})

	ref, err := c.payments.CreateOrder(ctx, b.ID, b.Price.TotalCents, b.Currency)
	if err != nil {
		log.WithError(err).Error("payment order creation failed, releasing inventory")
		c.abandon(ctx, b.ID, "payment initiation failed")
		return model.Booking{}, &PaymentInitiationFailedError{BookingID: b.ID, Err: err}
	}

	err = c.inTx(ctx, func(ctx context.Context, tx Tx) error {
		cur, err := tx.LockBooking(ctx, b.ID)
		if err != nil {
			return err
		}
		cur.PaymentOrderRef = ref
		cur.UpdatedAt = c.now().UTC()
		if err := tx.UpdateBooking(ctx, cur); err != nil {
			return err
		}
		b = cur
		return nil
	})
	if err != nil {
		log.WithError(err).Error("storing payment order failed, releasing inventory")
		c.abandon(ctx, b.ID, "payment order could not be recorded")
		return model.Booking{}, transient(err)
	}

	log.WithFields(logrus.Fields{
		"room_type_id": b.RoomTypeID,
		"kind":         b.Kind,
		"num_rooms":    b.NumRooms,
		"total_cents":  b.Price.TotalCents,
	}).Info("booking reserved")
	c.notify(ctx, model.EventBookingCreated, b)
	return b, nil
}

// abandon cancels a PENDING booking and releases its holds.  It runs on a
// context detached from the request so a client disconnect cannot leave
// holds behind; the expiry sweep is the backstop if it still fails.
func (c *Coordinator) abandon(ctx context.Context, bookingID uint64, reason string) {
	ctx = context.WithoutCancel(ctx)
	var b model.Booking
	err := c.inTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		b, err = tx.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.Status != model.StatusPending {
			return nil
		}
		if err := c.cancelTx(ctx, tx, &b, reason); err != nil {
			return err
		}
		return tx.UpdateBooking(ctx, b)
	})
	if err != nil {
		c.log.WithField("booking_id", bookingID).WithError(err).Error("compensating release failed")
		return
	}
	c.notify(ctx, model.EventBookingCancelled, b)
}

// cancelTx moves b to CANCELLED and releases its holds.  The caller
// persists b.
func (c *Coordinator) cancelTx(ctx context.Context, tx Tx, b *model.Booking, reason string) error {
	if err := checkTransition(*b, model.StatusCancelled); err != nil {
		return err
	}
	now := c.now().UTC()
	b.Status = model.StatusCancelled
	b.CancellationReason = &reason
	b.CancelledAt = &now
	b.UpdatedAt = now
	if b.PaymentStatus == model.PaymentUnpaid {
		b.PaymentStatus = model.PaymentVoided
	}
	return c.releaseTx(ctx, tx, b)
}

// releaseTx decrements every counter the booking holds.  The caller
// persists b.
func (c *Coordinator) releaseTx(ctx context.Context, tx Tx, b *model.Booking) error {
	if b.HoldsReleased {
		return nil
	}
	now := c.now().UTC()
	switch stay := b.Stay.(type) {
	case model.DailyStay:
		days, err := tx.LockDays(ctx, b.RoomTypeID, nightsOf(stay.CheckIn, stay.CheckOut))
		if err != nil {
			return err
		}
		for i := range days {
			days[i].Held = c.decrement(b, FormatDate(days[i].Date), days[i].Held)
			days[i].UpdatedAt = now
		}
		if err := tx.SaveDays(ctx, days); err != nil {
			return err
		}
	case model.HourlyStay:
		slots, err := tx.LockSlots(ctx, slotKeys(b.RoomTypeID, stay.Date, stay.StartHour, stay.NumHours, stay.SlotHours))
		if err != nil {
			return err
		}
		for i := range slots {
			where := fmt.Sprintf("%s %02d:00", FormatDate(slots[i].Date), slots[i].StartHour)
			slots[i].Held = c.decrement(b, where, slots[i].Held)
			slots[i].UpdatedAt = now
		}
		if err := tx.SaveSlots(ctx, slots); err != nil {
			return err
		}
	default:
		return fmt.Errorf("booking %d has no stay", b.ID)
	}
	b.HoldsReleased = true
	return nil
}

// decrement never lets a counter go negative; a shortfall means the ledger
// drifted and is logged loudly.
func (c *Coordinator) decrement(b *model.Booking, where string, held int) int {
	if held < b.NumRooms {
		c.log.WithFields(logrus.Fields{
			"booking_id":   b.ID,
			"room_type_id": b.RoomTypeID,
			"at":           where,
			"held":         held,
			"num_rooms":    b.NumRooms,
		}).Error("held counter below booking size")
		return 0
	}
	return held - b.NumRooms
}

func (c *Coordinator) logReject(msg string, roomTypeID uint64, err error) {
	entry := c.log.WithField("room_type_id", roomTypeID).WithError(err)
	if errors.Is(err, ErrTransient) {
		entry.Error(msg)
		return
	}
	entry.Info(msg)
}

func validateGuest(numGuests, extraGuests int, g model.GuestContact) error {
	ve := newValidationError()
	if numGuests < 1 {
		ve.add("num_guests", "must be at least 1")
	}
	if extraGuests < 0 {
		ve.add("extra_guests", "must not be negative")
	}
	if strings.TrimSpace(g.Name) == "" {
		ve.add("guest.name", "is required")
	}
	email := strings.TrimSpace(g.Email)
	if email == "" && strings.TrimSpace(g.Phone) == "" {
		ve.add("guest.email", "email or phone is required")
	}
	if email != "" && !strings.Contains(email, "@") {
		ve.add("guest.email", "is not a valid address")
	}
	return ve.orNil()
}

func validateOccupancy(rt model.RoomType, numRooms, numGuests int) error {
	if rt.MaxGuests > 0 && numGuests > rt.MaxGuests*numRooms {
		return NewValidationError("num_guests", fmt.Sprintf("at most %d guests fit in %d rooms", rt.MaxGuests*numRooms, numRooms))
	}
	return nil
}

func normalizeGuest(g model.GuestContact) model.GuestContact {
	return model.GuestContact{
		Name:  strings.TrimSpace(g.Name),
		Email: strings.ToLower(strings.TrimSpace(g.Email)),
		Phone: strings.TrimSpace(g.Phone),
	}
}

// newBookingNumber renders HB-YYYYMMDD-XXXXXX with a random suffix.
func newBookingNumber(at time.Time) (string, error) {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return fmt.Sprintf("HB-%s-%s", at.UTC().Format("20060102"), strings.ToUpper(hex.EncodeToString(buf))), nil
}
