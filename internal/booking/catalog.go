package booking

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iliyamo/hotel-booking-engine/internal/model"
)

// Catalog manages room types on behalf of hotel admins.
type Catalog struct {
	*core
}

// GetRoomType returns one room type.
func (c *Catalog) GetRoomType(ctx context.Context, id uint64) (model.RoomType, error) {
	rt, err := c.store.RoomType(ctx, id)
	return rt, transient(err)
}

// ListRoomTypes returns the room types of a hotel.
func (c *Catalog) ListRoomTypes(ctx context.Context, hotelID uint64) ([]model.RoomType, error) {
	rts, err := c.store.RoomTypesByHotel(ctx, hotelID)
	return rts, transient(err)
}

// CreateRoomType validates and stores a new room type.
func (c *Catalog) CreateRoomType(ctx context.Context, rt model.RoomType) (out model.RoomType, err error) {
	ctx, span := c.startSpan(ctx, "booking.Catalog.CreateRoomType", attribute.Int64("hotel.id", int64(rt.HotelID)))
	defer func() { endSpan(span, err) }()

	rt.Name = strings.TrimSpace(rt.Name)
	if err = validateRoomType(rt); err != nil {
		return model.RoomType{}, err
	}
	now := c.now().UTC()
	rt.CreatedAt, rt.UpdatedAt = now, now
	err = c.inTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.InsertRoomType(ctx, &rt)
	})
	if err != nil {
		return model.RoomType{}, err
	}
	c.log.WithFields(logrus.Fields{"room_type_id": rt.ID, "hotel_id": rt.HotelID}).Info("room type created")
	return rt, nil
}

// ResizeRoomType changes the physical room count.  Shrinking below what is
// held or overridden on any date from today on is rejected.
func (c *Catalog) ResizeRoomType(ctx context.Context, id uint64, totalRooms int) (rt model.RoomType, err error) {
	ctx, span := c.startSpan(ctx, "booking.Catalog.ResizeRoomType",
		attribute.Int64("room_type.id", int64(id)),
		attribute.Int("room_type.total_rooms", totalRooms),
	)
	defer func() { endSpan(span, err) }()

	if totalRooms < 1 {
		return model.RoomType{}, NewValidationError("total_rooms", "must be at least 1")
	}
	err = c.inTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		rt, err = tx.RoomTypeForUpdate(ctx, id)
		if err != nil {
			return err
		}
		usage, err := tx.UsageFrom(ctx, id, c.today())
		if err != nil {
			return err
		}
		ve := newValidationError()
		if totalRooms < usage.MaxHeld {
			ve.add("total_rooms", fmt.Sprintf("%d rooms are held on a future date", usage.MaxHeld))
		}
		if totalRooms < usage.MaxOverride {
			ve.add("total_rooms", fmt.Sprintf("a future override makes %d rooms available", usage.MaxOverride))
		}
		if err := ve.orNil(); err != nil {
			return err
		}
		rt.TotalRooms = totalRooms
		rt.UpdatedAt = c.now().UTC()
		return tx.UpdateRoomType(ctx, rt)
	})
	if err != nil {
		return model.RoomType{}, err
	}
	c.log.WithFields(logrus.Fields{"room_type_id": id, "total_rooms": totalRooms}).Info("room type resized")
	return rt, nil
}

// SetActive opens or closes a room type for new holds.  Existing holds are
// kept.
func (c *Catalog) SetActive(ctx context.Context, id uint64, active bool) (rt model.RoomType, err error) {
	err = c.inTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		rt, err = tx.RoomTypeForUpdate(ctx, id)
		if err != nil {
			return err
		}
		rt.Active = active
		rt.UpdatedAt = c.now().UTC()
		return tx.UpdateRoomType(ctx, rt)
	})
	if err != nil {
		return model.RoomType{}, err
	}
	return rt, nil
}

func validateRoomType(rt model.RoomType) error {
	ve := newValidationError()
	if rt.HotelID == 0 {
		ve.add("hotel_id", "is required")
	}
	if rt.Name == "" {
		ve.add("name", "is required")
	}
	if rt.TotalRooms < 1 {
		ve.add("total_rooms", "must be at least 1")
	}
	if rt.BasePriceDailyCents < 0 {
		ve.add("base_price_daily_cents", "must not be negative")
	}
	if rt.MaxGuests < 1 {
		ve.add("max_guests", "must be at least 1")
	}
	if rt.ExtraGuestFeeCents < 0 {
		ve.add("extra_guest_fee_cents", "must not be negative")
	}
	if rt.OpenHour < 0 || rt.OpenHour > 23 {
		ve.add("open_hour", "must be between 0 and 23")
	}
	if rt.CloseHour < 0 || rt.CloseHour > 24 || (rt.CloseHour != 0 && rt.CloseHour <= rt.OpenHour) {
		ve.add("close_hour", "must be after open_hour and at most 24")
	}
	if rt.BasePriceHourlyCents != nil {
		if *rt.BasePriceHourlyCents < 0 {
			ve.add("base_price_hourly_cents", "must not be negative")
		}
		if rt.HourlyMinHours < 1 {
			ve.add("hourly_min_hours", "must be at least 1 for hourly room types")
		}
		if rt.HourlyMaxHours < rt.HourlyMinHours {
			ve.add("hourly_max_hours", "must not be below hourly_min_hours")
		}
		if openHour, closeHour := rt.OperatingHours(); rt.HourlyMaxHours > closeHour-openHour {
			ve.add("hourly_max_hours", "exceeds the operating window")
		}
	}
	return ve.orNil()
}
