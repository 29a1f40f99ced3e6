package enrollment_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perknexus/internal/enrollment"
	"perknexus/internal/testdb"
	"perknexus/pkg/eventstore"
)

type fixture struct {
	svc        enrollment.Service
	db         *sql.DB
	businessID uuid.UUID
	programID  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	db := testdb.Connect(t)
	t.Cleanup(func() { db.Close() })
	testdb.Truncate(t, db, "events", "enrollments", "customers", "programs", "businesses")

	es := eventstore.NewEventStore(db)
	svc := enrollment.NewService(es, db, zerolog.Nop())

	businessID := uuid.New()
	_, err := db.Exec(`INSERT INTO businesses (id, name) VALUES ($1, 'Corner Cafe')`, businessID)
	require.NoError(t, err)

	program, err := svc.CreateProgram(context.Background(), businessID, "Coffee Club")
	require.NoError(t, err)

	return &fixture{svc: svc, db: db, businessID: businessID, programID: program.ID}
}

func contact() enrollment.ContactInfo {
	return enrollment.ContactInfo{Name: "Dana", Phone: "+15550001111", Email: "dana@example.com"}
}

func TestEnrollCreatesMembershipWithZeroCounters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customerID := uuid.New()

	e, err := f.svc.Enroll(ctx, customerID, contact(), f.businessID, f.programID)
	require.NoError(t, err)
	assert.Equal(t, enrollment.EnrollmentKey(customerID, f.programID), e.ID)
	assert.Equal(t, 0, e.CurrentPoints)
	assert.Equal(t, 0, e.CurrentVisits)
	assert.True(t, e.IsActive)
	assert.Equal(t, "Coffee Club", e.ProgramName)
}

func TestEnrollIsIdempotentPerCustomerProgramPair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customerID := uuid.New()

	_, err := f.svc.Enroll(ctx, customerID, contact(), f.businessID, f.programID)
	require.NoError(t, err)
	_, err = f.svc.Enroll(ctx, customerID, contact(), f.businessID, f.programID)
	require.NoError(t, err)

	enrollments, err := f.svc.ListForCustomer(ctx, customerID, 50, 0)
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Equal(t, f.programID, enrollments[0].ProgramID)
}

func TestEnrollFailsForUnknownProgram(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Enroll(ctx, uuid.New(), contact(), f.businessID, uuid.New())
	assert.ErrorIs(t, err, enrollment.ErrProgramNotFound)

	// A valid program under the wrong business does not resolve either.
	_, err = f.svc.Enroll(ctx, uuid.New(), contact(), uuid.New(), f.programID)
	assert.ErrorIs(t, err, enrollment.ErrProgramNotFound)
}

func TestEnrollWritesDenormalizedCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customerID := uuid.New()

	_, err := f.svc.Enroll(ctx, customerID, contact(), f.businessID, f.programID)
	require.NoError(t, err)

	customer, err := f.svc.GetCustomer(ctx, customerID, f.businessID)
	require.NoError(t, err)
	assert.Equal(t, "Dana", customer.Name)
	assert.Equal(t, 0, customer.TotalVisits)
}

func TestRecordVisitBumpsAggregates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customerID := uuid.New()

	_, err := f.svc.Enroll(ctx, customerID, contact(), f.businessID, f.programID)
	require.NoError(t, err)

	require.NoError(t, f.svc.RecordVisit(ctx, customerID, f.businessID))
	require.NoError(t, f.svc.RecordVisit(ctx, customerID, f.businessID))

	customer, err := f.svc.GetCustomer(ctx, customerID, f.businessID)
	require.NoError(t, err)
	assert.Equal(t, 2, customer.TotalVisits)
	require.NotNil(t, customer.LastVisit)

	enrollments, err := f.svc.ListForCustomer(ctx, customerID, 50, 0)
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Equal(t, 2, enrollments[0].CurrentVisits)
}

func TestAccruePointsRequiresMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customerID := uuid.New()

	_, err := f.svc.AccruePoints(ctx, customerID, f.programID, 10, 25)
	assert.ErrorIs(t, err, enrollment.ErrEnrollmentNotFound)

	_, err = f.svc.Enroll(ctx, customerID, contact(), f.businessID, f.programID)
	require.NoError(t, err)

	e, err := f.svc.AccruePoints(ctx, customerID, f.programID, 10, 25)
	require.NoError(t, err)
	assert.Equal(t, 10, e.CurrentPoints)
	assert.Equal(t, 25.0, e.TotalSpent)
}
