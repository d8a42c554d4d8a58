package booking

import (
	"fmt"
	"time"

	"github.com/iliyamo/hotel-booking-engine/internal/model"
)

// PriceSnapshot is what the client believed the price to be.  The engine
// never trusts it; a non-zero ExpectedTotalCents is only compared against
// the recomputed total.
type PriceSnapshot struct {
	DiscountCents      int64 `json:"discount_cents"`
	ExpectedTotalCents int64 `json:"expected_total_cents"`
}

// computePrice derives the breakdown.  Tax applies to the discounted
// amount and is rounded half up.
func computePrice(roomSubtotal, extraGuests, discount, taxBasisPoints int64) (model.PriceBreakdown, error) {
	gross := roomSubtotal + extraGuests
	if discount < 0 {
		return model.PriceBreakdown{}, NewValidationError("discount_cents", "must not be negative")
	}
	if discount > gross {
		return model.PriceBreakdown{}, NewValidationError("discount_cents", fmt.Sprintf("exceeds pre-discount amount %d", gross))
	}
	taxable := gross - discount
	tax := (taxable*taxBasisPoints + 5000) / 10000
	return model.PriceBreakdown{
		RoomSubtotalCents: roomSubtotal,
		ExtraGuestCents:   extraGuests,
		TaxCents:          tax,
		DiscountCents:     discount,
		TotalCents:        roomSubtotal + extraGuests + tax - discount,
	}, nil
}

func checkSnapshot(p model.PriceBreakdown, snap PriceSnapshot) error {
	if snap.ExpectedTotalCents != 0 && snap.ExpectedTotalCents != p.TotalCents {
		return NewValidationError("expected_total_cents",
			fmt.Sprintf("price changed: expected %d, current total %d", snap.ExpectedTotalCents, p.TotalCents))
	}
	return nil
}

// RefundTier returns Percent of the paid amount when the cancellation
// happens at least MinNotice before check-in.
type RefundTier struct {
	MinNotice time.Duration
	Percent   int
}

// TieredRefundPolicy picks the first tier whose notice is satisfied; tiers
// must be ordered by descending MinNotice.  No matching tier refunds
// nothing.
type TieredRefundPolicy []RefundTier

func (t TieredRefundPolicy) RefundCents(untilCheckIn time.Duration, paidCents int64) int64 {
	for _, tier := range t {
		if untilCheckIn >= tier.MinNotice {
			pct := int64(tier.Percent)
			if pct > 100 {
				pct = 100
			}
			if pct < 0 {
				pct = 0
			}
			return paidCents * pct / 100
		}
	}
	return 0
}

// DefaultRefundPolicy refunds fully a week out and half two days out.
func DefaultRefundPolicy() TieredRefundPolicy {
	return TieredRefundPolicy{
		{MinNotice: 7 * 24 * time.Hour, Percent: 100},
		{MinNotice: 48 * time.Hour, Percent: 50},
	}
}
