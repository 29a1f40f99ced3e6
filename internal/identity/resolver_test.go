package identity_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perknexus/internal/identity"
	"perknexus/internal/testdb"
)

func TestResolveMatchesCustomerByContact(t *testing.T) {
	db := testdb.Connect(t)
	defer db.Close()
	testdb.Truncate(t, db, "accounts", "customers")

	accountID := uuid.New()
	customerID := uuid.New()
	_, err := db.Exec(`INSERT INTO accounts (id, phone, email) VALUES ($1, '+15550001111', 'dana@example.com')`, accountID)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO customers (id, business_id, name, phone, email) VALUES ($1, $2, 'Dana', '+15550001111', '')`, customerID, uuid.New())
	require.NoError(t, err)

	r := identity.NewResolver(db, zerolog.Nop())

	got, ok, err := r.Resolve(context.Background(), accountID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, customerID, got)
}

func TestResolveUnlinkedAccount(t *testing.T) {
	db := testdb.Connect(t)
	defer db.Close()
	testdb.Truncate(t, db, "accounts", "customers")

	accountID := uuid.New()
	_, err := db.Exec(`INSERT INTO accounts (id, phone, email) VALUES ($1, '+15559999999', 'nobody@example.com')`, accountID)
	require.NoError(t, err)

	r := identity.NewResolver(db, zerolog.Nop())

	_, ok, err := r.Resolve(context.Background(), accountID)
	require.NoError(t, err)
	assert.False(t, ok)

	// An account with no row at all is treated the same.
	_, ok, err = r.Resolve(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSearchIDsUnionsAccountAndCustomer(t *testing.T) {
	db := testdb.Connect(t)
	defer db.Close()
	testdb.Truncate(t, db, "accounts", "customers")

	accountID := uuid.New()
	customerID := uuid.New()
	_, err := db.Exec(`INSERT INTO accounts (id, phone, email) VALUES ($1, '', 'dana@example.com')`, accountID)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO customers (id, business_id, name, phone, email) VALUES ($1, $2, 'Dana', '', 'dana@example.com')`, customerID, uuid.New())
	require.NoError(t, err)

	r := identity.NewResolver(db, zerolog.Nop())

	ids, err := r.SearchIDs(context.Background(), accountID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{accountID, customerID}, ids)

	// History must always be searched under the account id itself too.
	ids, err = r.SearchIDs(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Len(t, ids, 1)
}
