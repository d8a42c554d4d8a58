package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputePrice(t *testing.T) {
	p, err := computePrice(20000, 3000, 1000, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), p.RoomSubtotalCents)
	assert.Equal(t, int64(3000), p.ExtraGuestCents)
	assert.Equal(t, int64(1000), p.DiscountCents)
	assert.Equal(t, int64(2200), p.TaxCents)
	assert.Equal(t, int64(24200), p.TotalCents)

	// 333 * 15% = 49.95, rounded half up
	p, err = computePrice(333, 0, 0, 1500)
	require.NoError(t, err)
	assert.Equal(t, int64(50), p.TaxCents)

	_, err = computePrice(1000, 0, 1001, 0)
	assert.NotNil(t, IsValidationError(err))
	_, err = computePrice(1000, 0, -1, 0)
	assert.NotNil(t, IsValidationError(err))
}

func TestTieredRefundPolicy(t *testing.T) {
	p := DefaultRefundPolicy()
	assert.Equal(t, int64(10000), p.RefundCents(8*24*time.Hour, 10000))
	assert.Equal(t, int64(5000), p.RefundCents(72*time.Hour, 10000))
	assert.Equal(t, int64(5000), p.RefundCents(48*time.Hour, 10000))
	assert.Equal(t, int64(0), p.RefundCents(47*time.Hour, 10000))
	assert.Equal(t, int64(0), p.RefundCents(-time.Hour, 10000))

	capped := TieredRefundPolicy{{MinNotice: 0, Percent: 150}}
	assert.Equal(t, int64(10000), capped.RefundCents(time.Hour, 10000))
}

func TestRetrierRetriesOnlyConflicts(t *testing.T) {
	r := newRetrier(3, time.Millisecond)
	deadlock := errors.New("deadlock")

	calls := 0
	err := r.do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return &ConcurrentModificationError{Err: deadlock}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = r.do(context.Background(), func() error {
		calls++
		return &ConcurrentModificationError{Err: deadlock}
	})
	cm := IsConcurrentModificationError(err)
	require.NotNil(t, cm)
	assert.Equal(t, 3, cm.Attempts)
	assert.ErrorIs(t, err, deadlock)

	calls = 0
	err = r.do(context.Background(), func() error {
		calls++
		return NewValidationError("x", "bad")
	})
	assert.NotNil(t, IsValidationError(err))
	assert.Equal(t, 1, calls)
}

func TestBackoffIsBounded(t *testing.T) {
	r := newRetrier(10, 10*time.Millisecond)
	for attempt := 1; attempt <= 10; attempt++ {
		d := r.backoff(attempt)
		assert.Positive(t, d)
		assert.LessOrEqual(t, d, r.maxDelay)
	}
}

func TestTransientWrapsInfrastructureErrors(t *testing.T) {
	ioErr := errors.New("connection reset")
	err := transient(ioErr)
	assert.ErrorIs(t, err, ErrTransient)
	assert.ErrorIs(t, err, ioErr)

	nf := NewNotFoundError("booking", 1)
	assert.Same(t, nf, transient(nf))
	assert.NoError(t, transient(nil))
}

func TestNewBookingNumber(t *testing.T) {
	n, err := newBookingNumber(time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Regexp(t, `^HB-20250601-[0-9A-F]{6}$`, n)
}
