package booking_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-booking-engine/internal/booking"
	"github.com/iliyamo/hotel-booking-engine/internal/model"
)

func TestCheckDailyWithoutOverrides(t *testing.T) {
	f := newFixture(t)
	rt := f.dailyRoomType(5, 10000)

	res := f.dailyAvailable(rt, "2025-06-01", "2025-06-03", 3)

	assert.True(t, res.Available)
	assert.Empty(t, res.Reason)
	assert.Nil(t, res.FailingDate)
	assert.Equal(t, int64(2*10000*3), res.TotalPriceCents)
	assert.Equal(t, 5, res.MinAvailable)
	require.Len(t, res.Nights, 2)
	assert.Equal(t, day("2025-06-01"), res.Nights[0].Date)
	assert.Equal(t, day("2025-06-02"), res.Nights[1].Date)
}

func TestCheckDailyReportsFailingOverrideDate(t *testing.T) {
	f := newFixture(t)
	rt := f.dailyRoomType(5, 10000)
	_, err := f.engine.Ledger.UpsertOverride(f.ctx, rt.ID, day("2025-06-02"), model.InventoryPatch{AvailableCount: ptr(2)})
	require.NoError(t, err)

	res := f.dailyAvailable(rt, "2025-06-01", "2025-06-03", 3)

	assert.False(t, res.Available)
	assert.Equal(t, booking.ReasonCapacity, res.Reason)
	require.NotNil(t, res.FailingDate)
	assert.Equal(t, day("2025-06-02"), *res.FailingDate)
	assert.Equal(t, 2, res.MinAvailable)
}

func TestCheckDailyUsesOverridePrice(t *testing.T) {
	f := newFixture(t)
	rt := f.dailyRoomType(5, 10000)
	_, err := f.engine.Ledger.UpsertOverride(f.ctx, rt.ID, day("2025-06-02"), model.InventoryPatch{PriceCents: ptr(int64(15000))})
	require.NoError(t, err)

	res := f.dailyAvailable(rt, "2025-06-01", "2025-06-03", 2)

	assert.True(t, res.Available)
	assert.Equal(t, int64((10000+15000)*2), res.TotalPriceCents)
}

func TestCheckDailyClosedAndMinStay(t *testing.T) {
	f := newFixture(t)
	rt := f.dailyRoomType(5, 10000)

	_, err := f.engine.Ledger.UpsertOverride(f.ctx, rt.ID, day("2025-06-03"), model.InventoryPatch{Closed: ptr(true)})
	require.NoError(t, err)
	res := f.dailyAvailable(rt, "2025-06-01", "2025-06-05", 1)
	assert.False(t, res.Available)
	assert.Equal(t, booking.ReasonClosed, res.Reason)
	assert.Equal(t, day("2025-06-03"), *res.FailingDate)

	_, err = f.engine.Ledger.UpsertOverride(f.ctx, rt.ID, day("2025-06-10"), model.InventoryPatch{MinStayNights: ptr(3)})
	require.NoError(t, err)
	res = f.dailyAvailable(rt, "2025-06-10", "2025-06-12", 1)
	assert.False(t, res.Available)
	assert.Equal(t, booking.ReasonMinStay, res.Reason)
	assert.Equal(t, 3, res.RequiredMinStay)

	res = f.dailyAvailable(rt, "2025-06-10", "2025-06-13", 1)
	assert.True(t, res.Available)
}

func TestCheckDailyInactiveRoomType(t *testing.T) {
	f := newFixture(t)
	rt := f.dailyRoomType(5, 10000)
	_, err := f.engine.Catalog.SetActive(f.ctx, rt.ID, false)
	require.NoError(t, err)

	res := f.dailyAvailable(rt, "2025-06-01", "2025-06-02", 1)
	assert.False(t, res.Available)
	assert.Equal(t, booking.ReasonInactive, res.Reason)
}

func TestCheckDailyKeepsInputOrder(t *testing.T) {
	f := newFixture(t)
	a := f.dailyRoomType(5, 10000)
	b := f.dailyRoomType(1, 8000)

	res, err := f.engine.Availability.CheckDaily(f.ctx, booking.DailyQuery{
		HotelID:     hotelID,
		RoomTypeIDs: []uint64{b.ID, a.ID},
		CheckIn:     day("2025-06-01"),
		CheckOut:    day("2025-06-02"),
		NumRooms:    2,
	})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, b.ID, res[0].RoomTypeID)
	assert.False(t, res[0].Available)
	assert.Equal(t, a.ID, res[1].RoomTypeID)
	assert.True(t, res[1].Available)
}

func TestCheckDailyRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	rt := f.dailyRoomType(5, 10000)

	q := booking.DailyQuery{HotelID: hotelID, RoomTypeIDs: []uint64{rt.ID}, CheckIn: day("2025-06-02"), CheckOut: day("2025-06-02"), NumRooms: 1}
	_, err := f.engine.Availability.CheckDaily(f.ctx, q)
	assert.NotNil(t, booking.IsInvalidDateRangeError(err), "zero-night stay")

	q.CheckIn, q.CheckOut = day("2025-05-01"), day("2025-05-03")
	_, err = f.engine.Availability.CheckDaily(f.ctx, q)
	assert.NotNil(t, booking.IsInvalidDateRangeError(err), "past stay")

	q.CheckIn, q.CheckOut, q.NumRooms = day("2025-06-01"), day("2025-06-02"), 0
	_, err = f.engine.Availability.CheckDaily(f.ctx, q)
	ve := booking.IsValidationError(err)
	require.NotNil(t, ve)
	assert.Contains(t, ve.Fields(), "num_rooms")

	q.NumRooms, q.HotelID = 1, hotelID+1
	_, err = f.engine.Availability.CheckDaily(f.ctx, q)
	assert.NotNil(t, booking.IsNotFoundError(err), "room type of another hotel")
}

func TestCheckHourlyDuration(t *testing.T) {
	f := newFixture(t)
	rt := f.hourlyRoomType(3, 2, 6, 2500)
	q := booking.HourlyQuery{HotelID: hotelID, RoomTypeIDs: []uint64{rt.ID}, Date: day("2025-06-01"), StartHour: 10, NumRooms: 1}

	q.NumHours = 1
	_, err := f.engine.Availability.CheckHourly(f.ctx, q)
	de := booking.IsInvalidDurationError(err)
	require.NotNil(t, de)
	assert.Equal(t, 2, de.MinHours)
	assert.Equal(t, 6, de.MaxHours)

	q.NumHours = 7
	_, err = f.engine.Availability.CheckHourly(f.ctx, q)
	assert.NotNil(t, booking.IsInvalidDurationError(err))

	q.NumHours = 4
	res, err := f.engine.Availability.CheckHourly(f.ctx, q)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.True(t, res[0].Available)
	require.Len(t, res[0].Slots, 2)
	assert.Equal(t, 10, res[0].Slots[0].StartHour)
	assert.Equal(t, 12, res[0].Slots[1].StartHour)
	assert.Equal(t, int64(4*2500), res[0].TotalPriceCents)
}

func TestCheckHourlyOddDurationBillsActualHours(t *testing.T) {
	f := newFixture(t)
	rt := f.hourlyRoomType(3, 2, 6, 2500)

	res, err := f.engine.Availability.CheckHourly(f.ctx, booking.HourlyQuery{
		HotelID: hotelID, RoomTypeIDs: []uint64{rt.ID}, Date: day("2025-06-01"), StartHour: 10, NumHours: 3, NumRooms: 2,
	})
	require.NoError(t, err)
	require.Len(t, res[0].Slots, 2)
	assert.Equal(t, 1, res[0].Slots[1].BilledHours)
	assert.Equal(t, int64(3*2500*2), res[0].TotalPriceCents)
}

func TestCheckHourlyShapeErrors(t *testing.T) {
	f := newFixture(t)
	hourly := f.hourlyRoomType(3, 2, 6, 2500)
	daily := f.dailyRoomType(3, 10000)
	q := booking.HourlyQuery{HotelID: hotelID, Date: day("2025-06-01"), NumHours: 2, NumRooms: 1}

	q.RoomTypeIDs, q.StartHour = []uint64{hourly.ID}, 9
	_, err := f.engine.Availability.CheckHourly(f.ctx, q)
	require.NotNil(t, booking.IsValidationError(err))
	assert.Contains(t, booking.IsValidationError(err).Fields(), "start_hour")

	q.StartHour, q.NumHours = 20, 4
	_, err = f.engine.Availability.CheckHourly(f.ctx, q)
	require.NotNil(t, booking.IsValidationError(err))
	assert.Contains(t, booking.IsValidationError(err).Fields(), "num_hours")

	q.RoomTypeIDs, q.StartHour, q.NumHours = []uint64{daily.ID}, 10, 2
	_, err = f.engine.Availability.CheckHourly(f.ctx, q)
	assert.NotNil(t, booking.IsValidationError(err))
}

func TestCheckHourlyRejectsElapsedStart(t *testing.T) {
	f := newFixture(t)
	rt := f.hourlyRoomType(3, 2, 6, 2500)

	_, err := f.engine.Availability.CheckHourly(f.ctx, booking.HourlyQuery{
		HotelID: hotelID, RoomTypeIDs: []uint64{rt.ID}, Date: day("2025-05-20"), StartHour: 8, NumHours: 2, NumRooms: 1,
	})
	assert.NotNil(t, booking.IsInvalidDateRangeError(err))
}

func TestCheckHourlyClosedSlot(t *testing.T) {
	f := newFixture(t)
	rt := f.hourlyRoomType(3, 2, 6, 2500)
	_, err := f.engine.Slots.UpsertSlot(f.ctx, rt.ID, day("2025-06-01"), 12, model.InventoryPatch{Closed: ptr(true)})
	require.NoError(t, err)

	res, err := f.engine.Availability.CheckHourly(f.ctx, booking.HourlyQuery{
		HotelID: hotelID, RoomTypeIDs: []uint64{rt.ID}, Date: day("2025-06-01"), StartHour: 10, NumHours: 4, NumRooms: 1,
	})
	require.NoError(t, err)
	assert.False(t, res[0].Available)
	assert.Equal(t, booking.ReasonClosed, res[0].Reason)
	require.NotNil(t, res[0].FailingSlot)
	assert.Equal(t, 12, *res[0].FailingSlot)
}
