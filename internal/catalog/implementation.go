// internal/catalog/implementation.go
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"perknexus/pkg/eventstore"
)

// service implements the Service interface.
type service struct {
	eventStore *eventstore.EventStore
	db         *sql.DB
	logger     zerolog.Logger
}

// NewService creates a new catalog service instance.
func NewService(es *eventstore.EventStore, db *sql.DB, logger zerolog.Logger) Service {
	return &service{
		eventStore: es,
		db:         db,
		logger:     logger.With().Str("component", "catalog").Logger(),
	}
}

// CreateCoupon persists a new coupon with a zero usage counter. The
// redemption code must be unique among the business's active coupons.
func (s *service) CreateCoupon(ctx context.Context, params CreateCouponParams) (*Coupon, error) {
	if params.BusinessID == uuid.Nil {
		return nil, fmt.Errorf("business id is required")
	}
	code := strings.TrimSpace(params.Code)
	if code == "" {
		return nil, fmt.Errorf("redemption code is required")
	}
	if !params.ValidUntil.After(params.ValidFrom) {
		return nil, fmt.Errorf("validity window end must be after start")
	}
	switch params.Kind {
	case KindPercentage, KindFixed, KindBuyXGetY, KindFreeItem:
	default:
		return nil, fmt.Errorf("unknown discount kind %q", params.Kind)
	}

	id := uuid.New()
	eventData := CouponCreatedEvent{
		ID:         id,
		BusinessID: params.BusinessID,
		Title:      params.Title,
		Kind:       params.Kind,
		Value:      params.Value,
		Code:       code,
		ValidFrom:  params.ValidFrom,
		ValidUntil: params.ValidUntil,
		UsageLimit: params.UsageLimit,
	}

	jsonData, err := json.Marshal(eventData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}

	event := eventstore.Event{
		AggregateID:   id,
		AggregateType: "coupon",
		EventType:     "CouponCreated",
		EventData:     jsonData,
		Version:       1,
	}

	if err := s.eventStore.AppendEvents(ctx, id, "coupon", 0, []eventstore.Event{event}); err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}

	coupon := &Coupon{
		ID:          id,
		BusinessID:  params.BusinessID,
		Title:       params.Title,
		Description: params.Description,
		Kind:        params.Kind,
		Value:       params.Value,
		ValidFrom:   params.ValidFrom,
		ValidUntil:  params.ValidUntil,
		Code:        code,
		UsageCount:  0,
		UsageLimit:  params.UsageLimit,
		Active:      true,
		Version:     1,
	}
	if err := s.insertCouponIntoReadModel(ctx, coupon); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("coupon_id", id.String()).
		Str("business_id", params.BusinessID.String()).
		Str("kind", string(params.Kind)).
		Msg("coupon created")

	return coupon, nil
}

func (s *service) insertCouponIntoReadModel(ctx context.Context, coupon *Coupon) error {
	query := `
		INSERT INTO coupons (id, business_id, title, description, kind, value, valid_from, valid_until, code, usage_count, usage_limit, active, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.db.ExecContext(ctx, query,
		coupon.ID, coupon.BusinessID, coupon.Title, coupon.Description, coupon.Kind,
		coupon.Value, coupon.ValidFrom, coupon.ValidUntil, coupon.Code,
		coupon.UsageCount, coupon.UsageLimit, coupon.Active, coupon.Version,
	)
	if err != nil {
		// Partial unique index on (business_id, code) WHERE active.
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrCodeTaken
		}
		return fmt.Errorf("failed to update read model: %w", err)
	}
	return nil
}

const couponColumns = `id, business_id, title, description, kind, value, valid_from, valid_until, code, usage_count, usage_limit, active, version, created_at, updated_at`

func scanCoupon(row interface {
	Scan(dest ...interface{}) error
}) (*Coupon, error) {
	coupon := &Coupon{}
	err := row.Scan(
		&coupon.ID,
		&coupon.BusinessID,
		&coupon.Title,
		&coupon.Description,
		&coupon.Kind,
		&coupon.Value,
		&coupon.ValidFrom,
		&coupon.ValidUntil,
		&coupon.Code,
		&coupon.UsageCount,
		&coupon.UsageLimit,
		&coupon.Active,
		&coupon.Version,
		&coupon.CreatedAt,
		&coupon.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return coupon, nil
}

// GetCoupon retrieves a coupon from the read model by its ID.
func (s *service) GetCoupon(ctx context.Context, id uuid.UUID) (*Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`
	coupon, err := scanCoupon(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("failed to get coupon from read model: %w", err)
	}
	return coupon, nil
}

// FindActiveByCode resolves a redemption code for one business. A code that
// exists but is inactive or outside its validity window fails with
// ErrCouponExpired, a code that was never issued with ErrCouponNotFound.
func (s *service) FindActiveByCode(ctx context.Context, businessID uuid.UUID, code string, at time.Time) (*Coupon, error) {
	query := `
		SELECT ` + couponColumns + `
		FROM coupons
		WHERE business_id = $1 AND code = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	coupon, err := scanCoupon(s.db.QueryRowContext(ctx, query, businessID, code))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("failed to look up code: %w", err)
	}

	if !coupon.RedeemableAt(at) {
		return nil, ErrCouponExpired
	}
	return coupon, nil
}

// AdjustUsage moves the usage counter by delta. Redemption passes +1; saga
// compensation passes -1. The counter itself never blocks on the usage
// limit; the redeem path checks the limit before transitioning.
func (s *service) AdjustUsage(ctx context.Context, id uuid.UUID, delta int) error {
	coupon, err := s.GetCoupon(ctx, id)
	if err != nil {
		return err
	}

	eventData := CouponUsageAdjustedEvent{
		ID:       id,
		Delta:    delta,
		NewCount: coupon.UsageCount + delta,
	}
	jsonData, err := json.Marshal(eventData)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	event := eventstore.Event{
		AggregateID:   id,
		AggregateType: "coupon",
		EventType:     "CouponUsageAdjusted",
		EventData:     jsonData,
		Version:       coupon.Version + 1,
	}

	if err := s.eventStore.AppendEvents(ctx, id, "coupon", coupon.Version, []eventstore.Event{event}); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	query := `
		UPDATE coupons
		SET usage_count = usage_count + $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
	`
	_, err = s.db.ExecContext(ctx, query, delta, id, coupon.Version)
	return err
}

// Deactivate clears the active flag; the coupon stays in the read model for
// analytics over past redemptions.
func (s *service) Deactivate(ctx context.Context, id uuid.UUID) error {
	coupon, err := s.GetCoupon(ctx, id)
	if err != nil {
		return err
	}

	eventData := CouponDeactivatedEvent{ID: id}
	jsonData, err := json.Marshal(eventData)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	event := eventstore.Event{
		AggregateID:   id,
		AggregateType: "coupon",
		EventType:     "CouponDeactivated",
		EventData:     jsonData,
		Version:       coupon.Version + 1,
	}

	if err := s.eventStore.AppendEvents(ctx, id, "coupon", coupon.Version, []eventstore.Event{event}); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	query := `
		UPDATE coupons
		SET active = FALSE, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
	`
	_, err = s.db.ExecContext(ctx, query, id, coupon.Version)
	return err
}

// ListForBusiness returns a page of the business's coupons, newest first.
func (s *service) ListForBusiness(ctx context.Context, businessID uuid.UUID, limit, offset int) ([]*Coupon, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := `
		SELECT ` + couponColumns + `
		FROM coupons
		WHERE business_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := s.db.QueryContext(ctx, query, businessID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}
	defer rows.Close()

	var coupons []*Coupon
	for rows.Next() {
		coupon, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan coupon: %w", err)
		}
		coupons = append(coupons, coupon)
	}
	return coupons, rows.Err()
}
