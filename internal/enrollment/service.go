// internal/enrollment/service.go
package enrollment

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the enrollment ledger.
type Service interface {
	Enroll(ctx context.Context, customerID uuid.UUID, contact ContactInfo, businessID, programID uuid.UUID) (*Enrollment, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*Enrollment, error)
	AccruePoints(ctx context.Context, customerID, programID uuid.UUID, points int, spend float64) (*Enrollment, error)
	RecordVisit(ctx context.Context, customerID, businessID uuid.UUID) error
	GetCustomer(ctx context.Context, customerID, businessID uuid.UUID) (*Customer, error)
	CreateProgram(ctx context.Context, businessID uuid.UUID, name string) (*Program, error)
}
