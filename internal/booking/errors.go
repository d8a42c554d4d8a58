package booking

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/hotel-booking-engine/internal/model"
)

// ErrTransient marks infrastructure failures the caller may retry.
var ErrTransient = errors.New("transient failure")

// ErrDuplicateBookingNumber is returned by stores when a generated booking
// number collides with an existing one.
var ErrDuplicateBookingNumber = errors.New("duplicate booking number")

// ValidationError carries per-field messages for malformed input.
type ValidationError struct {
	fields map[string][]string
}

func newValidationError() *ValidationError {
	return &ValidationError{fields: make(map[string][]string)}
}

// NewValidationError builds a ValidationError with a single message.
func NewValidationError(field, msg string) *ValidationError {
	ve := newValidationError()
	ve.add(field, msg)
	return ve
}

func (ve *ValidationError) add(field, msg string) {
	ve.fields[field] = append(ve.fields[field], msg)
}

func (ve *ValidationError) empty() bool { return len(ve.fields) == 0 }

// orNil keeps a typed nil pointer from leaking into an error interface.
func (ve *ValidationError) orNil() error {
	if ve.empty() {
		return nil
	}
	return ve
}

func (ve *ValidationError) Error() string {
	keys := make([]string, 0, len(ve.fields))
	for k := range ve.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(ve.fields[k], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Fields returns field name to messages.
func (ve *ValidationError) Fields() map[string][]string { return ve.fields }

// IsValidationError returns the ValidationError in err's chain, or nil.
func IsValidationError(err error) *ValidationError {
	var target *ValidationError
	if errors.As(err, &target) {
		return target
	}
	return nil
}

// InvalidDateRangeError rejects an empty, inverted or past stay window.
type InvalidDateRangeError struct {
	Start  time.Time
	End    time.Time
	Reason string
}

func (e *InvalidDateRangeError) Error() string {
	return fmt.Sprintf("invalid date range %s..%s: %s", FormatDate(e.Start), FormatDate(e.End), e.Reason)
}

func IsInvalidDateRangeError(err error) *InvalidDateRangeError {
	var target *InvalidDateRangeError
	if errors.As(err, &target) {
		return target
	}
	return nil
}

// InvalidDurationError rejects an hourly booking outside the room type's
// [min, max] hours.
type InvalidDurationError struct {
	RoomTypeID uint64
	NumHours   int
	MinHours   int
	MaxHours   int
}

func (e *InvalidDurationError) Error() string {
	return fmt.Sprintf("room type %d: %d hours outside allowed range [%d, %d]", e.RoomTypeID, e.NumHours, e.MinHours, e.MaxHours)
}

func IsInvalidDurationError(err error) *InvalidDurationError {
	var target *InvalidDurationError
	if errors.As(err, &target) {
		return target
	}
	return nil
}

// Unavailability reasons reported by availability checks and holds.
const (
	ReasonCapacity = "capacity"
	ReasonClosed   = "closed"
	ReasonMinStay  = "min_stay"
	ReasonInactive = "inactive"
)

// InsufficientInventoryError names the first date (and slot, for hourly
// requests) that could not satisfy the request.
type InsufficientInventoryError struct {
	RoomTypeID uint64
	Date       time.Time
	StartHour  *int
	Requested  int
	Available  int
	Reason     string
}

func (e *InsufficientInventoryError) Error() string {
	where := FormatDate(e.Date)
	if e.StartHour != nil {
		where = fmt.Sprintf("%s %02d:00", where, *e.StartHour)
	}
	return fmt.Sprintf("room type %d unavailable on %s (%s): requested %d, available %d",
		e.RoomTypeID, where, e.Reason, e.Requested, e.Available)
}

func IsInsufficientInventoryError(err error) *InsufficientInventoryError {
	var target *InsufficientInventoryError
	if errors.As(err, &target) {
		return target
	}
	return nil
}

// ConcurrentModificationError is raised by stores on lock conflicts
// (deadlock, lock wait timeout).  The engine retries it and surfaces it with
// Attempts set once the retry budget is spent.
type ConcurrentModificationError struct {
	Attempts int
	Err      error
}

func (e *ConcurrentModificationError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("concurrent modification after %d attempts: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("concurrent modification: %v", e.Err)
}

func (e *ConcurrentModificationError) Unwrap() error { return e.Err }

func IsConcurrentModificationError(err error) *ConcurrentModificationError {
	var target *ConcurrentModificationError
	if errors.As(err, &target) {
		return target
	}
	return nil
}

// InvalidStateTransitionError rejects a lifecycle move the state machine
// does not allow.
type InvalidStateTransitionError struct {
	BookingID uint64
	From      model.BookingStatus
	To        model.BookingStatus
	Reason    string // optional
}

func (e *InvalidStateTransitionError) Error() string {
	msg := fmt.Sprintf("booking %d: cannot move from %s to %s", e.BookingID, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func IsInvalidStateTransitionError(err error) *InvalidStateTransitionError {
	var target *InvalidStateTransitionError
	if errors.As(err, &target) {
		return target
	}
	return nil
}

// NotFoundError reports an unknown room type or booking.
type NotFoundError struct {
	Entity string
	ID     string
}

// NewNotFoundError is used by stores for missing rows.
func NewNotFoundError(entity string, id any) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: fmt.Sprint(id)}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func IsNotFoundError(err error) *NotFoundError {
	var target *NotFoundError
	if errors.As(err, &target) {
		return target
	}
	return nil
}

// PaymentInitiationFailedError is returned when the payment order could not
// be created.  The booking has already been cancelled and its holds
// released by the time the caller sees it.
type PaymentInitiationFailedError struct {
	BookingID uint64
	Err       error
}

func (e *PaymentInitiationFailedError) Error() string {
	return fmt.Sprintf("payment initiation failed for booking %d: %v", e.BookingID, e.Err)
}

func (e *PaymentInitiationFailedError) Unwrap() error { return e.Err }

func IsPaymentInitiationFailedError(err error) *PaymentInitiationFailedError {
	var target *PaymentInitiationFailedError
	if errors.As(err, &target) {
		return target
	}
	return nil
}

// transient wraps an infrastructure error so callers can match ErrTransient
// while the cause stays inspectable.  Domain errors pass through untouched.
func transient(err error) error {
	if err == nil || isDomainError(err) || errors.Is(err, ErrTransient) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

func isDomainError(err error) bool {
	return IsValidationError(err) != nil ||
		IsInvalidDateRangeError(err) != nil ||
		IsInvalidDurationError(err) != nil ||
		IsInsufficientInventoryError(err) != nil ||
		IsConcurrentModificationError(err) != nil ||
		IsInvalidStateTransitionError(err) != nil ||
		IsNotFoundError(err) != nil ||
		IsPaymentInitiationFailedError(err) != nil
}
