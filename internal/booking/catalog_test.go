package booking_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-booking-engine/internal/booking"
	"github.com/iliyamo/hotel-booking-engine/internal/model"
)

func TestCreateRoomTypeValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Catalog.CreateRoomType(f.ctx, model.RoomType{
		HotelID:              hotelID,
		Name:                 "  ",
		TotalRooms:           0,
		MaxGuests:            2,
		BasePriceHourlyCents: ptr(int64(100)),
		HourlyMinHours:       3,
		HourlyMaxHours:       2,
	})
	ve := booking.IsValidationError(err)
	require.NotNil(t, ve)
	assert.Contains(t, ve.Fields(), "name")
	assert.Contains(t, ve.Fields(), "total_rooms")
	assert.Contains(t, ve.Fields(), "hourly_max_hours")
}

func TestListRoomTypesByHotel(t *testing.T) {
	f := newFixture(t)
	a := f.dailyRoomType(5, 10000)
	b := f.hourlyRoomType(2, 2, 4, 1000)
	_, err := f.engine.Catalog.CreateRoomType(f.ctx, model.RoomType{HotelID: hotelID + 1, Name: "Other", TotalRooms: 1, MaxGuests: 1})
	require.NoError(t, err)

	list, err := f.engine.Catalog.ListRoomTypes(f.ctx, hotelID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, b.ID, list[1].ID)
}

func TestResizeRoomTypeRespectsHolds(t *testing.T) {
	f := newFixture(t)
	rt := f.dailyRoomType(5, 10000)
	_, err := f.engine.Coordinator.ReserveDaily(f.ctx, dailyRequest(rt, "2025-06-01", "2025-06-02", 3))
	require.NoError(t, err)

	_, err = f.engine.Catalog.ResizeRoomType(f.ctx, rt.ID, 2)
	ve := booking.IsValidationError(err)
	require.NotNil(t, ve)
	assert.Contains(t, ve.Fields(), "total_rooms")

	resized, err := f.engine.Catalog.ResizeRoomType(f.ctx, rt.ID, 8)
	require.NoError(t, err)
	assert.Equal(t, 8, resized.TotalRooms)

	res := f.dailyAvailable(rt, "2025-06-01", "2025-06-02", 5)
	assert.True(t, res.Available)
	assert.Equal(t, 5, res.MinAvailable)
}

func TestResizeRoomTypeRespectsOverrides(t *testing.T) {
	f := newFixture(t)
	rt := f.dailyRoomType(5, 10000)
	_, err := f.engine.Ledger.UpsertOverride(f.ctx, rt.ID, day("2025-06-10"), model.InventoryPatch{AvailableCount: ptr(4)})
	require.NoError(t, err)

	_, err = f.engine.Catalog.ResizeRoomType(f.ctx, rt.ID, 3)
	assert.NotNil(t, booking.IsValidationError(err))

	_, err = f.engine.Catalog.ResizeRoomType(f.ctx, rt.ID, 4)
	require.NoError(t, err)
}
