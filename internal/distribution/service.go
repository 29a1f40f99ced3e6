// internal/distribution/service.go
package distribution

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the distribution ledger and its
// redemption state machine.
type Service interface {
	Distribute(ctx context.Context, couponID, businessID, customerID uuid.UUID) (*Distribution, error)
	DistributeBulk(ctx context.Context, couponID, businessID uuid.UUID, customerIDs []uuid.UUID) []BulkResult
	RedeemByCode(ctx context.Context, businessID uuid.UUID, code string, customerID uuid.UUID) (*Distribution, error)
	RedeemByCouponID(ctx context.Context, couponID, customerID uuid.UUID) (*Distribution, error)
	CopyCode(ctx context.Context, code string) bool
}

// CodeSink receives redemption codes the customer asked to copy; a
// clipboard stand-in on the server side.
type CodeSink interface {
	Copy(ctx context.Context, code string) error
}
