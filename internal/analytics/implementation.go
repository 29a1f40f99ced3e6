// internal/analytics/implementation.go
package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"perknexus/internal/catalog"
	"perknexus/internal/identity"
)

// couponBatchSize caps how many coupon ids a single read resolves at once.
const couponBatchSize = 10

// service implements the Service interface. All reads are retried with a
// short exponential backoff; the engine never writes, so retries are safe.
type service struct {
	db          *sqlx.DB
	resolver    *identity.Resolver
	logger      zerolog.Logger
	monthlyGoal float64
}

// NewService creates a new analytics engine instance.
func NewService(db *sqlx.DB, resolver *identity.Resolver, monthlyGoal float64, logger zerolog.Logger) Service {
	return &service{
		db:          db,
		resolver:    resolver,
		logger:      logger.With().Str("component", "analytics").Logger(),
		monthlyGoal: monthlyGoal,
	}
}

type redeemedRow struct {
	CouponID   uuid.UUID `db:"coupon_id"`
	RedeemedAt time.Time `db:"redeemed_at"`
}

type couponValueRow struct {
	ID    uuid.UUID            `db:"id"`
	Kind  catalog.DiscountKind `db:"kind"`
	Value float64              `db:"value"`
}

// redeemedFor loads the redeemed distributions for every identifier the
// account's history may be keyed under. since, when non-zero, filters by
// redemption time.
func (s *service) redeemedFor(ctx context.Context, accountID uuid.UUID, since time.Time) ([]redeemedRow, error) {
	ids, err := s.resolver.SearchIDs(ctx, accountID)
	if err != nil {
		return nil, err
	}

	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}

	return retryRead(ctx, func() ([]redeemedRow, error) {
		query := `
			SELECT coupon_id, redeemed_at
			FROM distributions
			WHERE status = 'redeemed' AND customer_id = ANY($1::uuid[])
		`
		args := []interface{}{pq.Array(idStrings)}
		if !since.IsZero() {
			query += ` AND redeemed_at >= $2`
			args = append(args, since)
		}

		var rows []redeemedRow
		if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
			return nil, fmt.Errorf("failed to load redeemed distributions: %w", err)
		}
		return rows, nil
	})
}

// couponValues batch-fetches the discount definitions of the referenced
// coupons, at most couponBatchSize ids per query.
func (s *service) couponValues(ctx context.Context, couponIDs []uuid.UUID) (map[uuid.UUID]couponValueRow, error) {
	unique := make(map[uuid.UUID]struct{}, len(couponIDs))
	var batch []string
	values := make(map[uuid.UUID]couponValueRow, len(couponIDs))

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		ids := batch
		batch = nil

		rows, err := retryRead(ctx, func() ([]couponValueRow, error) {
			var rows []couponValueRow
			err := s.db.SelectContext(ctx, &rows, `
				SELECT id, kind, value
				FROM coupons
				WHERE id = ANY($1::uuid[])
			`, pq.Array(ids))
			if err != nil {
				return nil, fmt.Errorf("failed to batch-fetch coupons: %w", err)
			}
			return rows, nil
		})
		if err != nil {
			return err
		}
		for _, row := range rows {
			values[row.ID] = row
		}
		return nil
	}

	for _, id := range couponIDs {
		if _, ok := unique[id]; ok {
			continue
		}
		unique[id] = struct{}{}
		batch = append(batch, id.String())
		if len(batch) == couponBatchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return values, nil
}

func (s *service) savedSince(ctx context.Context, accountID uuid.UUID, since time.Time) (float64, error) {
	redeemed, err := s.redeemedFor(ctx, accountID, since)
	if err != nil {
		return 0, err
	}
	if len(redeemed) == 0 {
		return 0, nil
	}

	couponIDs := make([]uuid.UUID, len(redeemed))
	for i, row := range redeemed {
		couponIDs[i] = row.CouponID
	}
	values, err := s.couponValues(ctx, couponIDs)
	if err != nil {
		return 0, err
	}

	var total float64
	for _, row := range redeemed {
		coupon, ok := values[row.CouponID]
		if !ok {
			// Coupon record gone; estimate with the fallback rather than
			// dropping the redemption.
			s.logger.Warn().
				Str("coupon_id", row.CouponID.String()).
				Msg("redeemed distribution references missing coupon")
			total += FallbackEstimate
			continue
		}
		total += Estimate(coupon.Kind, coupon.Value)
	}
	return math.Round(total), nil
}

// TotalSaved sums the estimated value of every redemption in the account's
// history, rounded to the nearest whole currency unit.
func (s *service) TotalSaved(ctx context.Context, accountID uuid.UUID) (float64, error) {
	return s.savedSince(ctx, accountID, time.Time{})
}

// MonthlySaved is TotalSaved restricted to the current calendar month.
func (s *service) MonthlySaved(ctx context.Context, accountID uuid.UUID) (float64, error) {
	now := time.Now()
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return s.savedSince(ctx, accountID, startOfMonth)
}

// SavingsStreak counts consecutive redemption days ending at today or
// yesterday.
func (s *service) SavingsStreak(ctx context.Context, accountID uuid.UUID) (int, error) {
	redeemed, err := s.redeemedFor(ctx, accountID, time.Time{})
	if err != nil {
		return 0, err
	}

	times := make([]time.Time, len(redeemed))
	for i, row := range redeemed {
		times[i] = row.RedeemedAt
	}
	return ConsecutiveDayStreak(times, time.Now()), nil
}

// Stats computes the full dashboard figure set in one call.
func (s *service) Stats(ctx context.Context, accountID uuid.UUID) (*SavingsStats, error) {
	total, err := s.TotalSaved(ctx, accountID)
	if err != nil {
		return nil, err
	}
	monthly, err := s.MonthlySaved(ctx, accountID)
	if err != nil {
		return nil, err
	}
	streak, err := s.SavingsStreak(ctx, accountID)
	if err != nil {
		return nil, err
	}

	return &SavingsStats{
		TotalSaved:         total,
		MonthlySaved:       monthly,
		SavingsStreak:      streak,
		MonthlySavingsGoal: s.monthlyGoal,
	}, nil
}

// retryRead runs a read-only query with a bounded exponential backoff.
// Write paths must never go through this.
func retryRead[T any](ctx context.Context, op func() (T, error)) (T, error) {
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(3),
	)
}
