// internal/enrollment/implementation.go
package enrollment

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"perknexus/pkg/eventstore"
)

// service implements the Service interface.
type service struct {
	eventStore  *eventstore.EventStore
	db          *sql.DB
	logger      zerolog.Logger
	rateLimiter *rate.Limiter
}

// NewService creates a new enrollment service instance.
func NewService(es *eventstore.EventStore, db *sql.DB, logger zerolog.Logger) Service {
	return &service{
		eventStore:  es,
		db:          db,
		logger:      logger.With().Str("component", "enrollment").Logger(),
		rateLimiter: rate.NewLimiter(rate.Every(time.Second), 20),
	}
}

// Enroll joins a customer to a loyalty program. The membership is keyed by
// (customer, program), so repeat enrollments overwrite the same record
// instead of duplicating it. The denormalized customer record is written
// best-effort and never fails the enrollment.
func (s *service) Enroll(ctx context.Context, customerID uuid.UUID, contact ContactInfo, businessID, programID uuid.UUID) (*Enrollment, error) {
	if !s.rateLimiter.Allow() {
		return nil, fmt.Errorf("rate limit exceeded")
	}

	program, err := s.getActiveProgram(ctx, businessID, programID)
	if err != nil {
		return nil, err
	}

	aggregateID := EnrollmentAggregateID(customerID, programID)
	currentVersion, err := s.eventStore.GetCurrentVersion(ctx, aggregateID)
	if err != nil {
		return nil, fmt.Errorf("failed to read enrollment version: %w", err)
	}

	enrollmentID := EnrollmentKey(customerID, programID)
	eventData := CustomerEnrolledEvent{
		EnrollmentID: enrollmentID,
		CustomerID:   customerID,
		ProgramID:    programID,
		BusinessID:   businessID,
	}
	jsonData, err := json.Marshal(eventData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}

	event := eventstore.Event{
		AggregateID:   aggregateID,
		AggregateType: "enrollment",
		EventType:     "CustomerEnrolled",
		EventData:     jsonData,
		Version:       currentVersion + 1,
	}
	if err := s.eventStore.AppendEvents(ctx, aggregateID, "enrollment", currentVersion, []eventstore.Event{event}); err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}

	enrollment := &Enrollment{
		ID:            enrollmentID,
		CustomerID:    customerID,
		ProgramID:     programID,
		BusinessID:    businessID,
		CustomerName:  contact.Name,
		CustomerPhone: contact.Phone,
		CustomerEmail: contact.Email,
		ProgramName:   program.Name,
		EnrolledAt:    time.Now(),
		IsActive:      true,
	}
	if err := s.upsertEnrollmentReadModel(ctx, enrollment); err != nil {
		return nil, fmt.Errorf("failed to update read model: %w", err)
	}

	// Best-effort side write: a failure here is logged and swallowed so the
	// enrollment itself still succeeds.
	if err := s.upsertCustomer(ctx, customerID, businessID, contact); err != nil {
		s.logger.Warn().
			Err(err).
			Str("customer_id", customerID.String()).
			Str("business_id", businessID.String()).
			Msg("best-effort customer upsert failed during enrollment")
	}

	return enrollment, nil
}

func (s *service) getActiveProgram(ctx context.Context, businessID, programID uuid.UUID) (*Program, error) {
	query := `
		SELECT p.id, p.business_id, p.name, p.active, p.created_at
		FROM programs p
		JOIN businesses b ON b.id = p.business_id
		WHERE p.id = $1 AND p.business_id = $2
	`
	program := &Program{}
	err := s.db.QueryRowContext(ctx, query, programID, businessID).Scan(
		&program.ID, &program.BusinessID, &program.Name, &program.Active, &program.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProgramNotFound
		}
		return nil, fmt.Errorf("failed to resolve program: %w", err)
	}
	if !program.Active {
		return nil, ErrProgramNotFound
	}
	return program, nil
}

func (s *service) upsertEnrollmentReadModel(ctx context.Context, e *Enrollment) error {
	// Re-enrollment overwrites the snapshot and resets the counters, which
	// matches the record being keyed by its own identifier.
	query := `
		INSERT INTO enrollments (id, customer_id, program_id, business_id, customer_name, customer_phone, customer_email, program_name, current_points, current_visits, total_spent, enrolled_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, 0, 0, $9, TRUE)
		ON CONFLICT (id) DO UPDATE SET
			customer_name = EXCLUDED.customer_name,
			customer_phone = EXCLUDED.customer_phone,
			customer_email = EXCLUDED.customer_email,
			program_name = EXCLUDED.program_name,
			current_points = 0,
			current_visits = 0,
			total_spent = 0,
			enrolled_at = EXCLUDED.enrolled_at,
			is_active = TRUE
	`
	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.CustomerID, e.ProgramID, e.BusinessID,
		e.CustomerName, e.CustomerPhone, e.CustomerEmail, e.ProgramName,
		e.EnrolledAt,
	)
	return err
}

func (s *service) upsertCustomer(ctx context.Context, customerID, businessID uuid.UUID, contact ContactInfo) error {
	query := `
		INSERT INTO customers (id, business_id, name, phone, email, total_visits, total_spent)
		VALUES ($1, $2, $3, $4, $5, 0, 0)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email
	`
	_, err := s.db.ExecContext(ctx, query, customerID, businessID, contact.Name, contact.Phone, contact.Email)
	return err
}

// ListForCustomer returns the customer's active memberships across all
// businesses, newest first.
func (s *service) ListForCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*Enrollment, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := `
		SELECT id, customer_id, program_id, business_id, customer_name, customer_phone, customer_email, program_name, current_points, current_visits, total_spent, enrolled_at, is_active
		FROM enrollments
		WHERE customer_id = $1 AND is_active = TRUE
		ORDER BY enrolled_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := s.db.QueryContext(ctx, query, customerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	defer rows.Close()

	var enrollments []*Enrollment
	for rows.Next() {
		e := &Enrollment{}
		err := rows.Scan(
			&e.ID, &e.CustomerID, &e.ProgramID, &e.BusinessID,
			&e.CustomerName, &e.CustomerPhone, &e.CustomerEmail, &e.ProgramName,
			&e.CurrentPoints, &e.CurrentVisits, &e.TotalSpent,
			&e.EnrolledAt, &e.IsActive,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}
		enrollments = append(enrollments, e)
	}
	return enrollments, rows.Err()
}

// AccruePoints credits points and spend to an existing membership.
func (s *service) AccruePoints(ctx context.Context, customerID, programID uuid.UUID, points int, spend float64) (*Enrollment, error) {
	enrollmentID := EnrollmentKey(customerID, programID)
	aggregateID := EnrollmentAggregateID(customerID, programID)

	currentVersion, err := s.eventStore.GetCurrentVersion(ctx, aggregateID)
	if err != nil {
		return nil, fmt.Errorf("failed to read enrollment version: %w", err)
	}
	if currentVersion == 0 {
		return nil, ErrEnrollmentNotFound
	}

	eventData := PointsAccruedEvent{
		EnrollmentID: enrollmentID,
		Points:       points,
		Spend:        spend,
	}
	jsonData, err := json.Marshal(eventData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}

	event := eventstore.Event{
		AggregateID:   aggregateID,
		AggregateType: "enrollment",
		EventType:     "PointsAccrued",
		EventData:     jsonData,
		Version:       currentVersion + 1,
	}
	if err := s.eventStore.AppendEvents(ctx, aggregateID, "enrollment", currentVersion, []eventstore.Event{event}); err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}

	query := `
		UPDATE enrollments
		SET current_points = current_points + $1,
		    total_spent = total_spent + $2
		WHERE id = $3
		RETURNING id, customer_id, program_id, business_id, customer_name, customer_phone, customer_email, program_name, current_points, current_visits, total_spent, enrolled_at, is_active
	`
	e := &Enrollment{}
	err = s.db.QueryRowContext(ctx, query, points, spend, enrollmentID).Scan(
		&e.ID, &e.CustomerID, &e.ProgramID, &e.BusinessID,
		&e.CustomerName, &e.CustomerPhone, &e.CustomerEmail, &e.ProgramName,
		&e.CurrentPoints, &e.CurrentVisits, &e.TotalSpent,
		&e.EnrolledAt, &e.IsActive,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("failed to update read model: %w", err)
	}
	return e, nil
}

// RecordVisit bumps the customer aggregate (lastVisit, totalVisits) and the
// visit counters of the customer's active memberships with that business.
// Called by the redemption saga.
func (s *service) RecordVisit(ctx context.Context, customerID, businessID uuid.UUID) error {
	now := time.Now()

	eventData := VisitRecordedEvent{
		CustomerID: customerID,
		BusinessID: businessID,
		VisitedAt:  now,
	}
	jsonData, err := json.Marshal(eventData)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	currentVersion, err := s.eventStore.GetCurrentVersion(ctx, customerID)
	if err != nil {
		return fmt.Errorf("failed to read customer version: %w", err)
	}

	event := eventstore.Event{
		AggregateID:   customerID,
		AggregateType: "customer",
		EventType:     "VisitRecorded",
		EventData:     jsonData,
		Version:       currentVersion + 1,
	}
	if err := s.eventStore.AppendEvents(ctx, customerID, "customer", currentVersion, []eventstore.Event{event}); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO customers (id, business_id, name, total_visits, total_spent, last_visit)
		VALUES ($1, $2, '', 1, 0, $3)
		ON CONFLICT (id) DO UPDATE SET
			total_visits = customers.total_visits + 1,
			last_visit = EXCLUDED.last_visit
	`, customerID, businessID, now)
	if err != nil {
		return fmt.Errorf("failed to update customer aggregate: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE enrollments
		SET current_visits = current_visits + 1
		WHERE customer_id = $1 AND business_id = $2 AND is_active = TRUE
	`, customerID, businessID)
	if err != nil {
		return fmt.Errorf("failed to update enrollment visits: %w", err)
	}

	return tx.Commit()
}

// GetCustomer retrieves a business-scoped customer record.
func (s *service) GetCustomer(ctx context.Context, customerID, businessID uuid.UUID) (*Customer, error) {
	query := `
		SELECT id, business_id, name, phone, email, total_visits, total_spent, last_visit
		FROM customers
		WHERE id = $1 AND business_id = $2
	`
	c := &Customer{}
	err := s.db.QueryRowContext(ctx, query, customerID, businessID).Scan(
		&c.ID, &c.BusinessID, &c.Name, &c.Phone, &c.Email,
		&c.TotalVisits, &c.TotalSpent, &c.LastVisit,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return c, nil
}

// CreateProgram defines a loyalty program for an existing business.
func (s *service) CreateProgram(ctx context.Context, businessID uuid.UUID, name string) (*Program, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM businesses WHERE id = $1)`, businessID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve business: %w", err)
	}
	if !exists {
		return nil, ErrProgramNotFound
	}

	id := uuid.New()
	eventData := ProgramCreatedEvent{ID: id, BusinessID: businessID, Name: name}
	jsonData, err := json.Marshal(eventData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}

	event := eventstore.Event{
		AggregateID:   id,
		AggregateType: "program",
		EventType:     "ProgramCreated",
		EventData:     jsonData,
		Version:       1,
	}
	if err := s.eventStore.AppendEvents(ctx, id, "program", 0, []eventstore.Event{event}); err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}

	program := &Program{
		ID:         id,
		BusinessID: businessID,
		Name:       name,
		Active:     true,
		CreatedAt:  time.Now(),
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO programs (id, business_id, name, active)
		VALUES ($1, $2, $3, TRUE)
	`, id, businessID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to update read model: %w", err)
	}
	return program, nil
}
