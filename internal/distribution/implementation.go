// internal/distribution/implementation.go
package distribution

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"perknexus/internal/catalog"
	"perknexus/internal/clients"
	"perknexus/pkg/eventstore"
)

// service implements the Service interface.
type service struct {
	eventStore       *eventstore.EventStore
	db               *sql.DB
	catalogClient    *clients.CatalogClient
	enrollmentClient *clients.EnrollmentClient
	codeSink         CodeSink
	logger           zerolog.Logger
	tracer           trace.Tracer
	rateLimiter      *rate.Limiter
}

// NewService creates a new distribution service instance. A nil codeSink
// falls back to a logging sink.
func NewService(es *eventstore.EventStore, db *sql.DB, catalogClient *clients.CatalogClient, enrollmentClient *clients.EnrollmentClient, codeSink CodeSink, logger zerolog.Logger) Service {
	s := &service{
		eventStore:       es,
		db:               db,
		catalogClient:    catalogClient,
		enrollmentClient: enrollmentClient,
		codeSink:         codeSink,
		logger:           logger.With().Str("component", "distribution").Logger(),
		tracer:           otel.Tracer("perknexus/distribution"),
		rateLimiter:      rate.NewLimiter(rate.Every(time.Second), 50),
	}
	if s.codeSink == nil {
		s.codeSink = loggingSink{logger: s.logger}
	}
	return s
}

// Distribute records "this coupon was sent to this customer". Send-to-many
// calls this once per customer; each send is an independent distribution.
func (s *service) Distribute(ctx context.Context, couponID, businessID, customerID uuid.UUID) (*Distribution, error) {
	coupon, err := s.catalogClient.GetCoupon(ctx, couponID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve coupon: %w", err)
	}
	if !coupon.Active {
		return nil, ErrCouponExpiredOrInactive
	}

	id := uuid.New()
	now := time.Now()
	eventData := DistributionCreatedEvent{
		DistributionID: id,
		CouponID:       couponID,
		BusinessID:     businessID,
		CustomerID:     customerID,
		SentAt:         now,
	}
	jsonData, err := json.Marshal(eventData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}

	event := eventstore.Event{
		AggregateID:   id,
		AggregateType: "distribution",
		EventType:     "DistributionCreated",
		EventData:     jsonData,
		Version:       1,
	}
	if err := s.eventStore.AppendEvents(ctx, id, "distribution", 0, []eventstore.Event{event}); err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}

	dist := &Distribution{
		ID:         id,
		CouponID:   couponID,
		BusinessID: businessID,
		CustomerID: customerID,
		Status:     StatusSent,
		SentAt:     now,
		Version:    1,
	}
	query := `
		INSERT INTO distributions (id, coupon_id, business_id, customer_id, status, sent_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.db.ExecContext(ctx, query, dist.ID, dist.CouponID, dist.BusinessID, dist.CustomerID, dist.Status, dist.SentAt, dist.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to update read model: %w", err)
	}

	return dist, nil
}

// DistributeBulk sends one coupon to many customers. Failures are collected
// per customer; one bad id does not abort the rest.
func (s *service) DistributeBulk(ctx context.Context, couponID, businessID uuid.UUID, customerIDs []uuid.UUID) []BulkResult {
	results := make([]BulkResult, 0, len(customerIDs))
	for _, customerID := range customerIDs {
		dist, err := s.Distribute(ctx, couponID, businessID, customerID)
		result := BulkResult{CustomerID: customerID, Distribution: dist}
		if err != nil {
			result.Error = err.Error()
			s.logger.Warn().
				Err(err).
				Str("coupon_id", couponID.String()).
				Str("customer_id", customerID.String()).
				Msg("bulk distribution: send failed")
		}
		results = append(results, result)
	}
	return results
}

// RedeemByCode is the scan entry point: the code is resolved through the
// catalog's active lookup before the state machine runs.
func (s *service) RedeemByCode(ctx context.Context, businessID uuid.UUID, code string, customerID uuid.UUID) (*Distribution, error) {
	coupon, err := s.catalogClient.FindActiveByCode(ctx, businessID, code, time.Now())
	if err != nil {
		if errors.Is(err, catalog.ErrCouponExpired) {
			return nil, ErrCouponExpiredOrInactive
		}
		return nil, err
	}
	return s.redeem(ctx, coupon, customerID)
}

// RedeemByCouponID is the button entry point: the coupon is fetched by id
// and checked against its validity window locally.
func (s *service) RedeemByCouponID(ctx context.Context, couponID, customerID uuid.UUID) (*Distribution, error) {
	coupon, err := s.catalogClient.GetCoupon(ctx, couponID)
	if err != nil {
		return nil, err
	}
	if !coupon.RedeemableAt(time.Now()) {
		return nil, ErrCouponExpiredOrInactive
	}
	return s.redeem(ctx, coupon, customerID)
}

// redeem runs the redemption saga:
//
//	1. usage-limit check
//	2. pick the oldest unredeemed distribution for (coupon, customer)
//	3. CAS-transition it to redeemed (event append is the serialization point)
//	4. increment the coupon's usage counter (compensate 3 on failure)
//	5. bump the customer's visit aggregate (compensate 4 then 3 on failure)
func (s *service) redeem(ctx context.Context, coupon *catalog.Coupon, customerID uuid.UUID) (*Distribution, error) {
	ctx, span := s.tracer.Start(ctx, "distribution.redeem",
		trace.WithAttributes(
			attribute.String("coupon.id", coupon.ID.String()),
			attribute.String("customer.id", customerID.String()),
		),
	)
	defer span.End()

	if !s.rateLimiter.Allow() {
		return nil, fmt.Errorf("rate limit exceeded")
	}

	if coupon.LimitReached() {
		return nil, ErrUsageLimitReached
	}

	dist, err := s.getOldestSentDistribution(ctx, coupon.ID, customerID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	redeemed, err := s.transitionToRedeemed(ctx, dist, now)
	if err != nil {
		return nil, err
	}

	if err := s.catalogClient.AdjustUsage(ctx, coupon.ID, 1); err != nil {
		s.revertRedemption(ctx, redeemed, "usage increment failed")
		return nil, fmt.Errorf("failed to increment coupon usage: %w", err)
	}

	if err := s.enrollmentClient.RecordVisit(ctx, customerID, coupon.BusinessID); err != nil {
		s.logger.Warn().
			Err(err).
			Str("distribution_id", redeemed.ID.String()).
			Msg("visit recording failed, compensating redemption")
		if compErr := s.catalogClient.AdjustUsage(ctx, coupon.ID, -1); compErr != nil {
			s.logger.Error().
				Err(compErr).
				Str("coupon_id", coupon.ID.String()).
				Msg("failed to compensate coupon usage")
		}
		s.revertRedemption(ctx, redeemed, "visit recording failed")
		return nil, fmt.Errorf("failed to record customer visit: %w", err)
	}

	span.SetAttributes(attribute.String("distribution.id", redeemed.ID.String()))
	s.logger.Info().
		Str("distribution_id", redeemed.ID.String()).
		Str("coupon_id", coupon.ID.String()).
		Str("customer_id", customerID.String()).
		Msg("coupon redeemed")

	return redeemed, nil
}

// getOldestSentDistribution deterministically picks the oldest unredeemed
// send when the pair has several, instead of relying on incidental row
// order.
func (s *service) getOldestSentDistribution(ctx context.Context, couponID, customerID uuid.UUID) (*Distribution, error) {
	query := `
		SELECT id, coupon_id, business_id, customer_id, status, sent_at, version
		FROM distributions
		WHERE coupon_id = $1 AND customer_id = $2 AND status = $3
		ORDER BY sent_at ASC
		LIMIT 1
	`
	dist := &Distribution{}
	err := s.db.QueryRowContext(ctx, query, couponID, customerID, StatusSent).Scan(
		&dist.ID, &dist.CouponID, &dist.BusinessID, &dist.CustomerID,
		&dist.Status, &dist.SentAt, &dist.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrDistributionNotFound
		}
		return nil, fmt.Errorf("failed to find sent distribution: %w", err)
	}
	return dist, nil
}

// transitionToRedeemed performs the sent -> redeemed transition. The event
// append's optimistic version check serializes concurrent attempts; the
// loser sees ErrAlreadyRedeemed.
func (s *service) transitionToRedeemed(ctx context.Context, dist *Distribution, at time.Time) (*Distribution, error) {
	eventData := CouponRedeemedEvent{
		DistributionID: dist.ID,
		CouponID:       dist.CouponID,
		CustomerID:     dist.CustomerID,
		RedeemedAt:     at,
	}
	jsonData, err := json.Marshal(eventData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}

	event := eventstore.Event{
		AggregateID:   dist.ID,
		AggregateType: "distribution",
		EventType:     "CouponRedeemed",
		EventData:     jsonData,
		Version:       dist.Version + 1,
	}
	if err := s.eventStore.AppendEvents(ctx, dist.ID, "distribution", dist.Version, []eventstore.Event{event}); err != nil {
		if errors.Is(err, eventstore.ErrVersionConflict) {
			return nil, ErrAlreadyRedeemed
		}
		return nil, fmt.Errorf("failed to append event: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE distributions
		SET status = $1, redeemed_at = $2, version = version + 1
		WHERE id = $3 AND status = $4
	`, StatusRedeemed, at, dist.ID, StatusSent)
	if err != nil {
		return nil, fmt.Errorf("failed to update read model: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		// Read model drifted from the event log; treat as lost race.
		return nil, ErrAlreadyRedeemed
	}

	redeemed := *dist
	redeemed.Status = StatusRedeemed
	redeemed.RedeemedAt = &at
	redeemed.Version = dist.Version + 1
	return &redeemed, nil
}

// revertRedemption compensates a redeemed transition after a later saga
// step failed.
func (s *service) revertRedemption(ctx context.Context, dist *Distribution, reason string) {
	eventData := RedemptionRevertedEvent{DistributionID: dist.ID, Reason: reason}
	jsonData, err := json.Marshal(eventData)
	if err != nil {
		s.logger.Error().Err(err).Str("distribution_id", dist.ID.String()).Msg("failed to marshal compensation event")
		return
	}

	event := eventstore.Event{
		AggregateID:   dist.ID,
		AggregateType: "distribution",
		EventType:     "RedemptionReverted",
		EventData:     jsonData,
		Version:       dist.Version + 1,
	}
	if err := s.eventStore.AppendEvents(ctx, dist.ID, "distribution", dist.Version, []eventstore.Event{event}); err != nil {
		s.logger.Error().Err(err).Str("distribution_id", dist.ID.String()).Msg("failed to append compensation event")
		return
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE distributions
		SET status = $1, redeemed_at = NULL, version = version + 1
		WHERE id = $2
	`, StatusSent, dist.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("distribution_id", dist.ID.String()).Msg("failed to revert read model")
	}
}

// CopyCode places a redemption code on the configured sink. It is tracked
// but never fails the surrounding flow.
func (s *service) CopyCode(ctx context.Context, code string) bool {
	if err := s.codeSink.Copy(ctx, code); err != nil {
		s.logger.Warn().Err(err).Msg("code copy failed")
		return false
	}
	s.logger.Info().Msg("redemption code copied")
	return true
}

type loggingSink struct {
	logger zerolog.Logger
}

func (l loggingSink) Copy(ctx context.Context, code string) error {
	l.logger.Debug().Int("code_len", len(code)).Msg("code placed on sink")
	return nil
}
