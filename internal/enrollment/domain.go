// internal/enrollment/domain.go
package enrollment

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrProgramNotFound covers a missing business as well as a missing
	// program; enrollment cannot proceed without both.
	ErrProgramNotFound = errors.New("loyalty program not found")
	// ErrCustomerNotFound means no business-scoped customer record exists.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrEnrollmentNotFound means no membership exists for the key.
	ErrEnrollmentNotFound = errors.New("enrollment not found")
)

// enrollmentNamespace turns the composite (customer, program) key into a
// stable aggregate id for the event log.
var enrollmentNamespace = uuid.MustParse("8c9a4f5e-1f2d-4b83-9f47-2f6f1f0a6c11")

// EnrollmentKey is the record's own identifier: one membership per
// (customer, program) pair, enforced by construction.
func EnrollmentKey(customerID, programID uuid.UUID) string {
	return fmt.Sprintf("%s_%s", customerID, programID)
}

// EnrollmentAggregateID derives the event-log aggregate id for a membership.
func EnrollmentAggregateID(customerID, programID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(enrollmentNamespace, []byte(EnrollmentKey(customerID, programID)))
}

// Enrollment is a customer's membership in one business's loyalty program.
// Contact fields and the program name are denormalized snapshots taken at
// enrollment time.
type Enrollment struct {
	ID            string    `json:"id"`
	CustomerID    uuid.UUID `json:"customer_id"`
	ProgramID     uuid.UUID `json:"program_id"`
	BusinessID    uuid.UUID `json:"business_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone,omitempty"`
	CustomerEmail string    `json:"customer_email,omitempty"`
	ProgramName   string    `json:"program_name"`
	CurrentPoints int       `json:"current_points"`
	CurrentVisits int       `json:"current_visits"`
	TotalSpent    float64   `json:"total_spent"`
	EnrolledAt    time.Time `json:"enrolled_at"`
	IsActive      bool      `json:"is_active"`
}

// Customer is the per-business denormalized copy of a person plus aggregate
// visit stats. The same human may hold distinct customer records under
// different businesses.
type Customer struct {
	ID          uuid.UUID  `json:"id"`
	BusinessID  uuid.UUID  `json:"business_id"`
	Name        string     `json:"name"`
	Phone       string     `json:"phone,omitempty"`
	Email       string     `json:"email,omitempty"`
	TotalVisits int        `json:"total_visits"`
	TotalSpent  float64    `json:"total_spent"`
	LastVisit   *time.Time `json:"last_visit,omitempty"`
}

// Program is a business's loyalty program definition.
type Program struct {
	ID         uuid.UUID `json:"id"`
	BusinessID uuid.UUID `json:"business_id"`
	Name       string    `json:"name"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

// ContactInfo is the customer-supplied contact snapshot.
type ContactInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// CustomerEnrolledEvent is published when a customer joins a program,
// including repeat joins (the membership key stays the same).
type CustomerEnrolledEvent struct {
	EnrollmentID string    `json:"enrollment_id"`
	CustomerID   uuid.UUID `json:"customer_id"`
	ProgramID    uuid.UUID `json:"program_id"`
	BusinessID   uuid.UUID `json:"business_id"`
}

// VisitRecordedEvent is published when a redemption bumps the customer's
// visit aggregate.
type VisitRecordedEvent struct {
	CustomerID uuid.UUID `json:"customer_id"`
	BusinessID uuid.UUID `json:"business_id"`
	VisitedAt  time.Time `json:"visited_at"`
}

// PointsAccruedEvent is published when a program credits points or spend to
// a membership.
type PointsAccruedEvent struct {
	EnrollmentID string  `json:"enrollment_id"`
	Points       int     `json:"points"`
	Spend        float64 `json:"spend"`
}

// ProgramCreatedEvent is published when a business defines a loyalty
// program.
type ProgramCreatedEvent struct {
	ID         uuid.UUID `json:"id"`
	BusinessID uuid.UUID `json:"business_id"`
	Name       string    `json:"name"`
}
