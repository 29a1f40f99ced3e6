package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perknexus/internal/catalog"
	"perknexus/internal/testdb"
	"perknexus/pkg/eventstore"
)

func newTestService(t *testing.T) catalog.Service {
	db := testdb.Connect(t)
	t.Cleanup(func() { db.Close() })
	testdb.Truncate(t, db, "events", "coupons")

	es := eventstore.NewEventStore(db)
	return catalog.NewService(es, db, zerolog.Nop())
}

func validParams(businessID uuid.UUID, code string) catalog.CreateCouponParams {
	now := time.Now()
	return catalog.CreateCouponParams{
		BusinessID: businessID,
		Title:      "Ten off",
		Kind:       catalog.KindFixed,
		Value:      10,
		ValidFrom:  now.Add(-time.Hour),
		ValidUntil: now.Add(30 * 24 * time.Hour),
		Code:       code,
	}
}

func TestCreateCouponStartsUnusedAndActive(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	coupon, err := svc.CreateCoupon(ctx, validParams(uuid.New(), "SAVE10"))
	require.NoError(t, err)
	assert.Equal(t, 0, coupon.UsageCount)
	assert.True(t, coupon.Active)

	got, err := svc.GetCoupon(ctx, coupon.ID)
	require.NoError(t, err)
	assert.Equal(t, coupon.ID, got.ID)
	assert.Equal(t, "SAVE10", got.Code)
}

func TestCreateCouponRejectsDuplicateActiveCode(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	businessID := uuid.New()

	_, err := svc.CreateCoupon(ctx, validParams(businessID, "SAVE10"))
	require.NoError(t, err)

	_, err = svc.CreateCoupon(ctx, validParams(businessID, "SAVE10"))
	assert.ErrorIs(t, err, catalog.ErrCodeTaken)

	// The same code under another business is fine.
	_, err = svc.CreateCoupon(ctx, validParams(uuid.New(), "SAVE10"))
	assert.NoError(t, err)
}

func TestFindActiveByCodeDistinguishesExpiredFromMissing(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	businessID := uuid.New()
	now := time.Now()

	params := validParams(businessID, "EXPIRED")
	params.ValidFrom = now.Add(-48 * time.Hour)
	params.ValidUntil = now.Add(-24 * time.Hour)
	_, err := svc.CreateCoupon(ctx, params)
	require.NoError(t, err)

	_, err = svc.FindActiveByCode(ctx, businessID, "EXPIRED", now)
	assert.ErrorIs(t, err, catalog.ErrCouponExpired)

	_, err = svc.FindActiveByCode(ctx, businessID, "NEVERISSUED", now)
	assert.ErrorIs(t, err, catalog.ErrCouponNotFound)
}

func TestFindActiveByCodeHonorsWindow(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	businessID := uuid.New()

	coupon, err := svc.CreateCoupon(ctx, validParams(businessID, "SAVE10"))
	require.NoError(t, err)

	got, err := svc.FindActiveByCode(ctx, businessID, "SAVE10", time.Now())
	require.NoError(t, err)
	assert.Equal(t, coupon.ID, got.ID)

	// Before the window opens the coupon does not resolve.
	_, err = svc.FindActiveByCode(ctx, businessID, "SAVE10", coupon.ValidFrom.Add(-time.Minute))
	assert.ErrorIs(t, err, catalog.ErrCouponExpired)
}

func TestAdjustUsageMovesCounter(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	coupon, err := svc.CreateCoupon(ctx, validParams(uuid.New(), "SAVE10"))
	require.NoError(t, err)

	require.NoError(t, svc.AdjustUsage(ctx, coupon.ID, 1))
	require.NoError(t, svc.AdjustUsage(ctx, coupon.ID, 1))
	require.NoError(t, svc.AdjustUsage(ctx, coupon.ID, -1))

	got, err := svc.GetCoupon(ctx, coupon.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.UsageCount)
}

func TestDeactivateHidesCouponFromCodeLookup(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	businessID := uuid.New()

	coupon, err := svc.CreateCoupon(ctx, validParams(businessID, "SAVE10"))
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(ctx, coupon.ID))

	_, err = svc.FindActiveByCode(ctx, businessID, "SAVE10", time.Now())
	assert.ErrorIs(t, err, catalog.ErrCouponExpired)
}
