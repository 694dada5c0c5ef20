package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cartrecovery/internal/model"
)

func TestCustomerTags(t *testing.T) {
	s := createTestStore(t)
	seedBasics(t, s)
	ctx := context.Background()

	tags, err := s.CustomerTagIDs(ctx, "cust-1")
	require.NoError(t, err)
	assert.Empty(t, tags)

	require.NoError(t, s.AddCustomerTag(ctx, "cust-1", "vip"))
	require.NoError(t, s.AddCustomerTag(ctx, "cust-1", "vip"), "re-adding is a no-op")
	require.NoError(t, s.AddCustomerTag(ctx, "cust-1", "abandoner"))

	tags, err = s.CustomerTagIDs(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"abandoner", "vip"}, tags)

	require.NoError(t, s.RemoveCustomerTag(ctx, "cust-1", "vip"))
	require.NoError(t, s.RemoveCustomerTag(ctx, "cust-1", "vip"), "removing an absent tag is a no-op")
	tags, err = s.CustomerTagIDs(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"abandoner"}, tags)
}

func TestCustomerTags_UnknownCustomer(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.CustomerTagIDs(ctx, "ghost")
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Error(t, s.AddCustomerTag(ctx, "ghost", "vip"), "foreign key rejects unknown customers")
}

func TestDeleteCustomer_DropsTags(t *testing.T) {
	s := createTestStore(t)
	seedBasics(t, s)
	ctx := context.Background()
	require.NoError(t, s.AddCustomerTag(ctx, "cust-1", "vip"))

	require.NoError(t, s.DeleteCustomer(ctx, "cust-1"))

	_, err := s.CustomerTagIDs(ctx, "cust-1")
	assert.ErrorIs(t, err, model.ErrNotFound)
	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM customer_tag`).Scan(&n))
	assert.Zero(t, n)
}

func TestUpdateCustomFields(t *testing.T) {
	s := createTestStore(t)
	seedBasics(t, s)
	ctx := context.Background()

	require.NoError(t, s.UpdateCustomFields(ctx, "cust-1", map[string]any{"stage": 2, "note": nil}))

	c, err := s.GetCustomer(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"stage": float64(2), "note": nil}, c.CustomFields)

	assert.ErrorIs(t, s.UpdateCustomFields(ctx, "ghost", map[string]any{}), model.ErrNotFound)
	_, err = s.GetCustomer(ctx, "ghost")
	assert.ErrorIs(t, err, model.ErrNotFound)
}
