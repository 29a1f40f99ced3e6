// Package identity maps an authenticated account to its linked
// business-scoped customer record. Historical writes may sit under either
// key, so history queries must always use the union of both identifiers;
// this package is the single place that union is built.
package identity

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Resolver links account identities to customer records by matching
// contact fields.
type Resolver struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewResolver(db *sql.DB, logger zerolog.Logger) *Resolver {
	return &Resolver{
		db:     db,
		logger: logger.With().Str("component", "identity").Logger(),
	}
}

// Resolve returns the customer record linked to the account, if any. A
// customer is linked when its phone or email matches the account's; the
// oldest matching record wins so repeated calls stay deterministic.
func (r *Resolver) Resolve(ctx context.Context, accountID uuid.UUID) (uuid.UUID, bool, error) {
	var phone, email string
	err := r.db.QueryRowContext(ctx, `
		SELECT phone, email FROM accounts WHERE id = $1
	`, accountID).Scan(&phone, &email)
	if err != nil {
		if err == sql.ErrNoRows {
			// Unlinked accounts are normal; history is searched under the
			// account id alone.
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, fmt.Errorf("failed to load account: %w", err)
	}

	if phone == "" && email == "" {
		return uuid.Nil, false, nil
	}

	var customerID uuid.UUID
	err = r.db.QueryRowContext(ctx, `
		SELECT id FROM customers
		WHERE (phone <> '' AND phone = $1) OR (email <> '' AND email = $2)
		ORDER BY id
		LIMIT 1
	`, phone, email).Scan(&customerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, fmt.Errorf("failed to match customer: %w", err)
	}

	return customerID, true, nil
}

// SearchIDs returns every identifier redemption history may be keyed under
// for the account: the account id itself plus the linked customer id when
// one resolves.
func (r *Resolver) SearchIDs(ctx context.Context, accountID uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{accountID}

	customerID, ok, err := r.Resolve(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if ok && customerID != accountID {
		ids = append(ids, customerID)
		r.logger.Debug().
			Str("account_id", accountID.String()).
			Str("customer_id", customerID.String()).
			Msg("resolved linked customer identity")
	}

	return ids, nil
}
