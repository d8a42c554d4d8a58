package repository

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-booking-engine/internal/booking"
	"github.com/iliyamo/hotel-booking-engine/internal/model"
)

func TestMapErrorLockConflicts(t *testing.T) {
	for _, number := range []uint16{errDeadlock, errLockWaitTimeout} {
		driverErr := &mysql.MySQLError{Number: number, Message: "lock conflict"}
		err := mapError(fmt.Errorf("exec: %w", driverErr))
		cm := booking.IsConcurrentModificationError(err)
		require.NotNil(t, cm, "error %d", number)
		assert.ErrorIs(t, err, driverErr)
	}
}

func TestMapErrorDuplicates(t *testing.T) {
	dupNumber := &mysql.MySQLError{Number: errDupEntry, Message: "Duplicate entry 'HB-1' for key 'bookings.uq_bookings_number'"}
	assert.ErrorIs(t, mapError(dupNumber), booking.ErrDuplicateBookingNumber)

	dupOther := &mysql.MySQLError{Number: errDupEntry, Message: "Duplicate entry '1' for key 'PRIMARY'"}
	assert.Same(t, dupOther, mapError(dupOther))
}

func TestMapErrorPassesThrough(t *testing.T) {
	assert.NoError(t, mapError(nil))
	plain := errors.New("connection refused")
	assert.Same(t, plain, mapError(plain))
}

func TestStayArgsFlattensVariant(t *testing.T) {
	daily := model.Booking{Stay: model.DailyStay{
		CheckIn:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC),
	}}
	args, err := stayArgs(daily)
	require.NoError(t, err)
	assert.Equal(t, []any{"2025-06-01", "2025-06-03", nil, nil, nil, nil}, args)

	hourly := model.Booking{Stay: model.HourlyStay{Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), StartHour: 10, NumHours: 4, SlotHours: 2}}
	args, err = stayArgs(hourly)
	require.NoError(t, err)
	assert.Equal(t, []any{nil, nil, "2025-06-01", 10, 4, 2}, args)

	_, err = stayArgs(model.Booking{ID: 9})
	assert.Error(t, err)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "?, ?, ?", placeholders(3, "?"))
	assert.Equal(t, "(?, ?), (?, ?)", placeholders(2, "(?, ?)"))
	assert.Empty(t, placeholders(0, "?"))
}

func TestMutableArgsMatchUpdateStatement(t *testing.T) {
	reason := "payment timeout"
	args := mutableArgs(model.Booking{CancellationReason: &reason, PaymentRef: "pay-1"})
	assert.Len(t, args, 22)
	assert.Contains(t, args, "payment timeout")
	assert.Contains(t, args, "pay-1")
}
