// Package repository is the MySQL implementation of booking.Store.  Ledger
// rows are materialized with INSERT IGNORE and then locked with SELECT ...
// FOR UPDATE, so a hold on a date nobody has touched yet still serializes
// against concurrent holds on the same date.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/hotel-booking-engine/internal/booking"
)

// MySQL server error numbers the engine reacts to.
const (
	errDupEntry        = 1062
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
)

// mapError translates driver errors into the engine's vocabulary.  A
// deadlock or lock wait timeout becomes a ConcurrentModificationError so the
// engine retries the transaction; a duplicate booking number becomes
// booking.ErrDuplicateBookingNumber.  Anything else is returned unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return err
	}
	switch me.Number {
	case errDeadlock, errLockWaitTimeout:
		return &booking.ConcurrentModificationError{Err: err}
	case errDupEntry:
		if strings.Contains(me.Message, "uq_bookings_number") {
			return booking.ErrDuplicateBookingNumber
		}
	}
	return err
}
