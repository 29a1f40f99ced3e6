// internal/distribution/domain.go
package distribution

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrDistributionNotFound means the coupon was never sent to this
	// customer, or every send has already been redeemed.
	ErrDistributionNotFound = errors.New("distribution not found")
	// ErrAlreadyRedeemed is what a concurrent loser observes when two
	// redemption attempts race on the same distribution.
	ErrAlreadyRedeemed = errors.New("distribution already redeemed")
	// ErrCouponExpiredOrInactive means the coupon resolved but failed the
	// active/validity-window check.
	ErrCouponExpiredOrInactive = errors.New("coupon expired or inactive")
	// ErrUsageLimitReached means the coupon's usage limit is consumed.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
)

// Distribution statuses. sent is initial, redeemed is terminal; there are
// no other transitions.
const (
	StatusSent     = "sent"
	StatusRedeemed = "redeemed"
)

// Distribution records one send event of one coupon to one customer.
type Distribution struct {
	ID         uuid.UUID  `json:"id"`
	CouponID   uuid.UUID  `json:"coupon_id"`
	BusinessID uuid.UUID  `json:"business_id"`
	CustomerID uuid.UUID  `json:"customer_id"`
	Status     string     `json:"status"`
	SentAt     time.Time  `json:"sent_at"`
	RedeemedAt *time.Time `json:"redeemed_at,omitempty"`
	Version    int        `json:"version"`
}

// DistributionCreatedEvent is published when a coupon is sent to a customer.
type DistributionCreatedEvent struct {
	DistributionID uuid.UUID `json:"distribution_id"`
	CouponID       uuid.UUID `json:"coupon_id"`
	BusinessID     uuid.UUID `json:"business_id"`
	CustomerID     uuid.UUID `json:"customer_id"`
	SentAt         time.Time `json:"sent_at"`
}

// CouponRedeemedEvent is published when a distribution transitions to
// redeemed.
type CouponRedeemedEvent struct {
	DistributionID uuid.UUID `json:"distribution_id"`
	CouponID       uuid.UUID `json:"coupon_id"`
	CustomerID     uuid.UUID `json:"customer_id"`
	RedeemedAt     time.Time `json:"redeemed_at"`
}

// RedemptionRevertedEvent is published when a later saga step fails and the
// transition is compensated back to sent.
type RedemptionRevertedEvent struct {
	DistributionID uuid.UUID `json:"distribution_id"`
	Reason         string    `json:"reason"`
}

// BulkResult reports the outcome of one send in a bulk distribution.
type BulkResult struct {
	CustomerID   uuid.UUID     `json:"customer_id"`
	Distribution *Distribution `json:"distribution,omitempty"`
	Error        string        `json:"error,omitempty"`
}
