package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-booking-engine/internal/booking"
	"github.com/iliyamo/hotel-booking-engine/internal/model"
)

func TestRespondErrorStatusCodes(t *testing.T) {
	hour := 10
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"validation", booking.NewValidationError("num_rooms", "must be at least 1"), http.StatusBadRequest},
		{"date range", &booking.InvalidDateRangeError{Reason: "check_out must be after check_in"}, http.StatusBadRequest},
		{"duration", &booking.InvalidDurationError{NumHours: 1, MinHours: 2, MaxHours: 6}, http.StatusBadRequest},
		{"inventory", &booking.InsufficientInventoryError{RoomTypeID: 1, StartHour: &hour, Requested: 2}, http.StatusConflict},
		{"transition", &booking.InvalidStateTransitionError{From: model.StatusCancelled, To: model.StatusConfirmed}, http.StatusConflict},
		{"not found", booking.NewNotFoundError("booking", 9), http.StatusNotFound},
		{"contention", &booking.ConcurrentModificationError{Attempts: 3, Err: errors.New("deadlock")}, http.StatusServiceUnavailable},
		{"transient", fmt.Errorf("store: %w", booking.ErrTransient), http.StatusServiceUnavailable},
		{"payment", &booking.PaymentInitiationFailedError{BookingID: 4, Err: errors.New("timeout")}, http.StatusBadGateway},
		{"forbidden", errForbidden, http.StatusForbidden},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	log, _ := test.NewNullLogger()
	e := echo.New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			require.NoError(t, respondError(c, log, tc.err))
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestRespondErrorHidesInternalDetails(t *testing.T) {
	log, hook := test.NewNullLogger()
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, respondError(c, log, errors.New("dsn user:secret@tcp")))
	assert.NotContains(t, rec.Body.String(), "secret")
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestRespondErrorSetsRetryAfter(t *testing.T) {
	log, _ := test.NewNullLogger()
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, respondError(c, log, &booking.ConcurrentModificationError{Attempts: 3}))
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestParseIDList(t *testing.T) {
	ids, err := parseIDList("room_type_ids", " 3, 1,,2 ")
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 1, 2}, ids)

	_, err = parseIDList("room_type_ids", "1,x")
	assert.NotNil(t, booking.IsValidationError(err))
	_, err = parseIDList("room_type_ids", "0")
	assert.Error(t, err)
}

func TestParseDateField(t *testing.T) {
	d, err := parseDateField("check_in", "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), d)

	_, err = parseDateField("check_in", "")
	assert.Contains(t, booking.IsValidationError(err).Fields()["check_in"], "is required")
	_, err = parseDateField("check_in", "06/01/2025")
	assert.NotNil(t, booking.IsValidationError(err))
}

func TestCanSee(t *testing.T) {
	b := model.Booking{HotelID: 3, GuestID: 100}
	assert.True(t, canSee(model.Principal{UserID: 100, Role: model.RoleGuest}, b))
	assert.False(t, canSee(model.Principal{UserID: 101, Role: model.RoleGuest}, b))
	assert.True(t, canSee(model.Principal{UserID: 1, Role: model.RoleStaff, HotelID: 3}, b))
	assert.False(t, canSee(model.Principal{UserID: 1, Role: model.RoleAdmin, HotelID: 4}, b))
}
