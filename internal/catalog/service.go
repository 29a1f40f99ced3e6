// internal/catalog/service.go
package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CreateCouponParams carries the business-supplied fields of a new coupon.
type CreateCouponParams struct {
	BusinessID  uuid.UUID    `json:"business_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Kind        DiscountKind `json:"kind"`
	Value       float64      `json:"value"`
	ValidFrom   time.Time    `json:"valid_from"`
	ValidUntil  time.Time    `json:"valid_until"`
	UsageLimit  int          `json:"usage_limit"`
	Code        string       `json:"code"`
}

// Service defines the interface for the coupon catalog.
type Service interface {
	CreateCoupon(ctx context.Context, params CreateCouponParams) (*Coupon, error)
	GetCoupon(ctx context.Context, id uuid.UUID) (*Coupon, error)
	FindActiveByCode(ctx context.Context, businessID uuid.UUID, code string, at time.Time) (*Coupon, error)
	AdjustUsage(ctx context.Context, id uuid.UUID, delta int) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	ListForBusiness(ctx context.Context, businessID uuid.UUID, limit, offset int) ([]*Coupon, error)
}
