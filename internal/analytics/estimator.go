// internal/analytics/estimator.go
package analytics

import "perknexus/internal/catalog"

// No purchase total is ever recorded at redemption time, so savings are
// estimated from the discount definition alone. Percentage discounts assume
// a reference purchase; kinds with no usable number fall back to a flat
// figure. This is a documented product limitation, not a ledger of actual
// transaction amounts.
const (
	// ReferencePurchaseAmount is the assumed basket for percentage coupons.
	ReferencePurchaseAmount = 100.0
	// FallbackEstimate is used for buy-x-get-y, free-item and unknown kinds.
	FallbackEstimate = 30.0
)

// Estimate converts a coupon's discount definition into an approximate
// currency amount saved by one redemption.
func Estimate(kind catalog.DiscountKind, value float64) float64 {
	switch kind {
	case catalog.KindFixed:
		return value
	case catalog.KindPercentage:
		return ReferencePurchaseAmount * value / 100
	default:
		return FallbackEstimate
	}
}
