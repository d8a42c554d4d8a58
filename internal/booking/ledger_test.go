package booking_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-booking-engine/internal/booking"
	"github.com/iliyamo/hotel-booking-engine/internal/model"
)

func TestGetOverrideDefaultsToNil(t *testing.T) {
	f := newFixture(t)
	rt := f.dailyRoomType(5, 10000)

	row, err := f.engine.Ledger.GetOverride(f.ctx, rt.ID, day("2025-06-01"))
	require.NoError(t, err)
	assert.Nil(t, row)

	_, err = f.engine.Ledger.GetOverride(f.ctx, rt.ID+100, day("2025-06-01"))
	assert.NotNil(t, booking.IsNotFoundError(err))
}

func TestBulkUpsertWritesEveryDate(t *testing.T) {
	f := newFixture(t)
	rt := f.dailyRoomType(5, 10000)

	rows, err := f.engine.Ledger.BulkUpsert(f.ctx, rt.ID, day("2025-06-01"), day("2025-06-07"), model.InventoryPatch{
		PriceCents:    ptr(int64(12000)),
		MinStayNights: ptr(2),
	})
	require.NoError(t, err)
	assert.Len(t, rows, 7)

	list, err := f.engine.Ledger.ListOverrides(f.ctx, rt.ID, day("2025-06-01"), day("2025-06-07"))
	require.NoError(t, err)
	require.Len(t, list, 7)
	for _, r := range list {
		require.NotNil(t, r.PriceCents)
		assert.Equal(t, int64(12000), *r.PriceCents)
		assert.Equal(t, 2, r.MinStayNights)
		assert.Nil(t, r.AvailableCount)
	}

	_, err = f.engine.Ledger.UpsertOverride(f.ctx, rt.ID, day("2025-06-03"), model.InventoryPatch{ClearPrice: true})
	require.NoError(t, err)
	row, err := f.engine.Ledger.GetOverride(f.ctx, rt.ID, day("2025-06-03"))
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Nil(t, row.PriceCents)
	assert.Equal(t, 2, row.MinStayNights, "untouched fields survive")
}

func TestOverrideCannotDropBelowHeld(t *testing.T) {
	f := newFixture(t)
	rt := f.dailyRoomType(5, 10000)
	_, err := f.engine.Coordinator.ReserveDaily(f.ctx, dailyRequest(rt, "2025-06-02", "2025-06-03", 3))
	require.NoError(t, err)

	_, err = f.engine.Ledger.BulkUpsert(f.ctx, rt.ID, day("2025-06-01"), day("2025-06-03"), model.InventoryPatch{AvailableCount: ptr(2)})
	ve := booking.IsValidationError(err)
	require.NotNil(t, ve)
	assert.Contains(t, ve.Fields(), "available_count")

	row, err := f.engine.Ledger.GetOverride(f.ctx, rt.ID, day("2025-06-01"))
	require.NoError(t, err)
	assert.Nil(t, row, "a rejected bulk write changes no date")

	_, err = f.engine.Ledger.UpsertOverride(f.ctx, rt.ID, day("2025-06-02"), model.InventoryPatch{AvailableCount: ptr(3)})
	require.NoError(t, err)
}

func TestUpsertOverrideValidation(t *testing.T) {
	f := newFixture(t)
	rt := f.dailyRoomType(5, 10000)

	cases := map[string]struct {
		date  string
		patch model.InventoryPatch
		field string
	}{
		"empty patch":       {"2025-06-01", model.InventoryPatch{}, "patch"},
		"negative count":    {"2025-06-01", model.InventoryPatch{AvailableCount: ptr(-1)}, "available_count"},
		"above total rooms": {"2025-06-01", model.InventoryPatch{AvailableCount: ptr(6)}, "available_count"},
		"set and clear":     {"2025-06-01", model.InventoryPatch{PriceCents: ptr(int64(1)), ClearPrice: true}, "price_cents"},
		"past date":         {"2025-05-01", model.InventoryPatch{Closed: ptr(true)}, "from"},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.engine.Ledger.UpsertOverride(f.ctx, rt.ID, day(c.date), c.patch)
			ve := booking.IsValidationError(err)
			require.NotNil(t, ve, "got %v", err)
			assert.Contains(t, ve.Fields(), c.field)
		})
	}

	_, err := f.engine.Ledger.BulkUpsert(f.ctx, rt.ID, day("2025-06-05"), day("2025-06-01"), model.InventoryPatch{Closed: ptr(true)})
	assert.NotNil(t, booking.IsInvalidDateRangeError(err))
}

func TestSlotOverrides(t *testing.T) {
	f := newFixture(t)
	rt := f.hourlyRoomType(3, 2, 6, 2500)

	slots, err := f.engine.Slots.GetSlots(f.ctx, rt.ID, day("2025-06-01"))
	require.NoError(t, err)
	require.Len(t, slots, 7)
	assert.Equal(t, 8, slots[0].StartHour)
	assert.Equal(t, 22, slots[6].EndHour)

	rows, err := f.engine.Slots.BulkUpsertSlots(f.ctx, rt.ID, day("2025-06-01"), day("2025-06-03"), 10, model.InventoryPatch{
		AvailableCount: ptr(1),
		PriceCents:     ptr(int64(4000)),
	})
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	res, err := f.engine.Availability.CheckHourly(f.ctx, booking.HourlyQuery{
		HotelID: hotelID, RoomTypeIDs: []uint64{rt.ID}, Date: day("2025-06-02"), StartHour: 10, NumHours: 4, NumRooms: 1,
	})
	require.NoError(t, err)
	assert.True(t, res[0].Available)
	assert.Equal(t, int64(2*4000+2*2500), res[0].TotalPriceCents)

	_, err = f.engine.Slots.UpsertSlot(f.ctx, rt.ID, day("2025-06-01"), 11, model.InventoryPatch{Closed: ptr(true)})
	assert.NotNil(t, booking.IsValidationError(err), "11:00 is not a slot boundary")

	_, err = f.engine.Slots.UpsertSlot(f.ctx, rt.ID, day("2025-06-01"), 10, model.InventoryPatch{MinStayNights: ptr(2)})
	assert.NotNil(t, booking.IsValidationError(err), "min stay does not apply to slots")
}
