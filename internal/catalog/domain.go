// internal/catalog/domain.go
package catalog

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrCouponNotFound means no coupon with that id or code exists.
	ErrCouponNotFound = errors.New("coupon not found")
	// ErrCouponExpired means the code exists but the coupon is inactive or
	// outside its validity window. Callers may merge the two into one
	// user-facing message, but the catalog keeps them distinct.
	ErrCouponExpired = errors.New("coupon expired or inactive")
	// ErrCodeTaken means another active coupon of the same business already
	// uses the redemption code.
	ErrCodeTaken = errors.New("redemption code already in use")
)

// DiscountKind describes how a coupon's numeric value is interpreted.
type DiscountKind string

const (
	KindPercentage DiscountKind = "percentage"
	KindFixed      DiscountKind = "fixed"
	KindBuyXGetY   DiscountKind = "buy_x_get_y"
	KindFreeItem   DiscountKind = "free_item"
)

// Coupon is a discount offer owned by one business. UsageLimit of 0 means
// unlimited.
type Coupon struct {
	ID          uuid.UUID    `json:"id"`
	BusinessID  uuid.UUID    `json:"business_id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Kind        DiscountKind `json:"kind"`
	Value       float64      `json:"value"`
	ValidFrom   time.Time    `json:"valid_from"`
	ValidUntil  time.Time    `json:"valid_until"`
	Code        string       `json:"code"`
	UsageCount  int          `json:"usage_count"`
	UsageLimit  int          `json:"usage_limit,omitempty"`
	Active      bool         `json:"active"`
	Version     int          `json:"version"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// RedeemableAt reports whether the coupon can be redeemed at the given
// instant.
func (c *Coupon) RedeemableAt(at time.Time) bool {
	if !c.Active {
		return false
	}
	if at.Before(c.ValidFrom) || at.After(c.ValidUntil) {
		return false
	}
	return true
}

// LimitReached reports whether the usage limit, when set, has been consumed.
func (c *Coupon) LimitReached() bool {
	return c.UsageLimit > 0 && c.UsageCount >= c.UsageLimit
}

// CouponCreatedEvent is published when a business creates a coupon.
type CouponCreatedEvent struct {
	ID         uuid.UUID    `json:"id"`
	BusinessID uuid.UUID    `json:"business_id"`
	Title      string       `json:"title"`
	Kind       DiscountKind `json:"kind"`
	Value      float64      `json:"value"`
	Code       string       `json:"code"`
	ValidFrom  time.Time    `json:"valid_from"`
	ValidUntil time.Time    `json:"valid_until"`
	UsageLimit int          `json:"usage_limit"`
}

// CouponUsageAdjustedEvent is published when the usage counter moves. Delta
// is -1 only when a redemption saga compensates a failed step.
type CouponUsageAdjustedEvent struct {
	ID       uuid.UUID `json:"id"`
	Delta    int       `json:"delta"`
	NewCount int       `json:"new_count"`
}

// CouponDeactivatedEvent is published when a coupon is switched off.
type CouponDeactivatedEvent struct {
	ID uuid.UUID `json:"id"`
}
