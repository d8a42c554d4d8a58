package booking_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-booking-engine/internal/booking"
	"github.com/iliyamo/hotel-booking-engine/internal/model"
	"github.com/iliyamo/hotel-booking-engine/internal/store/memory"
)

const hotelID = 7

// now is well before every date used by the scenarios.
var now = time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)

func day(s string) time.Time {
	d, err := booking.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func ptr[T any](v T) *T { return &v }

type fakePayments struct {
	mu        sync.Mutex
	fail      error
	orders    int
	refunds   []int64
	refundErr error
}

func (p *fakePayments) CreateOrder(_ context.Context, bookingID uint64, _ int64, _ string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return "", p.fail
	}
	p.orders++
	return fmt.Sprintf("order-%d", bookingID), nil
}

func (p *fakePayments) Refund(_ context.Context, bookingID uint64, amountCents int64) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refundErr != nil {
		return "", p.refundErr
	}
	p.refunds = append(p.refunds, amountCents)
	return fmt.Sprintf("refund-%d", bookingID), nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []model.EventType
}

func (n *recordingNotifier) Notify(_ context.Context, event model.EventType, _ model.Booking) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) seen(event model.EventType) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		if e == event {
			return true
		}
	}
	return false
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	store    *memory.DB
	payments *fakePayments
	notifier *recordingNotifier
	clock    *clock
	engine   *booking.Engine
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	f := &fixture{
		t:        t,
		ctx:      context.Background(),
		store:    memory.New(log),
		payments: &fakePayments{},
		notifier: &recordingNotifier{},
		clock:    &clock{t: now},
	}
	f.engine = booking.New(booking.Deps{
		Store:    f.store,
		Payments: f.payments,
		Notifier: f.notifier,
		Policy: booking.Policy{
			PaymentTimeout: 15 * time.Minute,
			Currency:       "USD",
			RetryBaseDelay: time.Millisecond,
		},
		Log: log,
		Now: f.clock.Now,
	})
	return f
}

func (f *fixture) dailyRoomType(totalRooms int, basePrice int64) model.RoomType {
	f.t.Helper()
	rt, err := f.engine.Catalog.CreateRoomType(f.ctx, model.RoomType{
		HotelID:             hotelID,
		Name:                "Deluxe",
		TotalRooms:          totalRooms,
		BasePriceDailyCents: basePrice,
		MaxGuests:           2,
		ExtraGuestFeeCents:  1500,
		Active:              true,
	})
	require.NoError(f.t, err)
	return rt
}

func (f *fixture) hourlyRoomType(totalRooms, minHours, maxHours int, hourlyPrice int64) model.RoomType {
	f.t.Helper()
	rt, err := f.engine.Catalog.CreateRoomType(f.ctx, model.RoomType{
		HotelID:              hotelID,
		Name:                 "Day use",
		TotalRooms:           totalRooms,
		BasePriceDailyCents:  20000,
		BasePriceHourlyCents: ptr(hourlyPrice),
		MaxGuests:            2,
		HourlyMinHours:       minHours,
		HourlyMaxHours:       maxHours,
		OpenHour:             8,
		CloseHour:            22,
		Active:               true,
	})
	require.NoError(f.t, err)
	return rt
}

func guest() model.GuestContact {
	return model.GuestContact{Name: "Ada Guest", Email: "Ada@Example.com"}
}

func dailyRequest(rt model.RoomType, checkIn, checkOut string, numRooms int) booking.DailyRequest {
	return booking.DailyRequest{
		HotelID:    rt.HotelID,
		RoomTypeID: rt.ID,
		GuestID:    42,
		CheckIn:    day(checkIn),
		CheckOut:   day(checkOut),
		NumRooms:   numRooms,
		NumGuests:  numRooms,
		Guest:      guest(),
	}
}

func hourlyRequest(rt model.RoomType, date string, startHour, numHours, numRooms int) booking.HourlyRequest {
	return booking.HourlyRequest{
		HotelID:    rt.HotelID,
		RoomTypeID: rt.ID,
		GuestID:    42,
		Date:       day(date),
		StartHour:  startHour,
		NumHours:   numHours,
		NumRooms:   numRooms,
		NumGuests:  numRooms,
		Guest:      guest(),
	}
}

// held reads the committed held counter of one date.
func (f *fixture) held(rt model.RoomType, date string) int {
	f.t.Helper()
	row, err := f.engine.Ledger.GetOverride(f.ctx, rt.ID, day(date))
	require.NoError(f.t, err)
	if row == nil {
		return 0
	}
	return row.Held
}

// slotHeld reads the committed held counter of one slot.
func (f *fixture) slotHeld(rt model.RoomType, date string, startHour int) int {
	f.t.Helper()
	slots, err := f.engine.Slots.GetSlots(f.ctx, rt.ID, day(date))
	require.NoError(f.t, err)
	for _, s := range slots {
		if s.StartHour == startHour {
			return s.Held
		}
	}
	f.t.Fatalf("no slot at %02d:00", startHour)
	return 0
}

func (f *fixture) dailyAvailable(rt model.RoomType, checkIn, checkOut string, numRooms int) booking.DailyResult {
	f.t.Helper()
	res, err := f.engine.Availability.CheckDaily(f.ctx, booking.DailyQuery{
		HotelID:     rt.HotelID,
		RoomTypeIDs: []uint64{rt.ID},
		CheckIn:     day(checkIn),
		CheckOut:    day(checkOut),
		NumRooms:    numRooms,
	})
	require.NoError(f.t, err)
	require.Len(f.t, res, 1)
	return res[0]
}

var errGatewayDown = errors.New("gateway down")
