package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cartrecovery/internal/model"
)

func TestInsertCart_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	seedBasics(t, s)
	ctx := context.Background()

	cart := createTestCart("cart-1", "cust-1", "sc-1", "59.90", baseTime)
	cart.LineItems = append(cart.LineItems, model.LineItem{
		ID: "cart-1-li-2", Type: model.LineItemTypeCustom, Quantity: 3,
		UnitPrice: decimal.RequireFromString("1.5"), TotalPrice: decimal.RequireFromString("4.5"), Label: "Gift wrap",
	})
	require.NoError(t, s.InsertCart(ctx, cart))
	require.NoError(t, s.InsertCart(ctx, cart), "re-insert is a no-op")

	got, err := s.GetCart(ctx, "cart-1")
	require.NoError(t, err)

	assert.Equal(t, "cust-1", got.CustomerID)
	assert.True(t, decimal.RequireFromString("59.9").Equal(got.TotalPrice))
	assert.Equal(t, baseTime, got.CreatedAt)
	assert.Nil(t, got.LastAutomationAt)
	assert.Zero(t, got.AutomationCount)
	require.Len(t, got.LineItems, 2)
	assert.Equal(t, "Mug", got.LineItems[0].Label)
	assert.Equal(t, "prod-mug", *got.LineItems[0].ProductID)
	assert.Nil(t, got.LineItems[1].ProductID)
	assert.Equal(t, 3, got.LineItems[1].Quantity)
	require.NotNil(t, got.Customer)
	assert.Equal(t, "ada@example.com", got.Customer.Email)
	require.NotNil(t, got.SalesChannel)
	assert.Equal(t, "Storefront", got.SalesChannel.Name)
}

func TestGetCart_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.GetCart(context.Background(), "nope")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestCartsByID_KeepsOrderAndDanglingCustomer(t *testing.T) {
	s := createTestStore(t)
	seedBasics(t, s)
	ctx := context.Background()

	require.NoError(t, s.InsertCart(ctx, createTestCart("b", "cust-1", "sc-1", "10", baseTime)))
	require.NoError(t, s.InsertCart(ctx, createTestCart("a", "cust-gone", "sc-1", "20", baseTime)))

	carts, err := s.CartsByID(ctx, []string{"b", "missing", "a"})
	require.NoError(t, err)
	require.Len(t, carts, 2)
	assert.Equal(t, "b", carts[0].ID)
	assert.Equal(t, "a", carts[1].ID)
	assert.NotNil(t, carts[0].Customer)
	assert.Nil(t, carts[1].Customer)
}

func TestCandidateBatch_Paging(t *testing.T) {
	s := createTestStore(t)
	seedBasics(t, s)
	ctx := context.Background()

	for _, id := range []string{"c3", "c1", "c5", "c2", "c4"} {
		require.NoError(t, s.InsertCart(ctx, createTestCart(id, "cust-1", "sc-1", "1", baseTime)))
	}

	var seen []string
	for offset := 0; ; offset += 2 {
		batch, err := s.CandidateBatch(ctx, offset, 2)
		require.NoError(t, err)
		for _, c := range batch {
			seen = append(seen, c.ID)
		}
		if len(batch) < 2 {
			break
		}
	}
	assert.Equal(t, []string{"c1", "c2", "c3", "c4", "c5"}, seen)
}

func TestDeleteCartsOlderThan_Cascades(t *testing.T) {
	s := createTestStore(t)
	seedBasics(t, s)
	ctx := context.Background()

	require.NoError(t, s.InsertCart(ctx, createTestCart("old", "cust-1", "sc-1", "1", baseTime.Add(-48*time.Hour))))
	require.NoError(t, s.InsertCart(ctx, createTestCart("new", "cust-1", "sc-1", "1", baseTime)))
	require.NoError(t, s.InsertLog(ctx, model.ExecutionLog{
		ID: "log-1", RuleID: "r", CartID: "old", Status: model.StatusError, CreatedAt: baseTime,
	}))

	n, err := s.DeleteCartsOlderThan(ctx, baseTime.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var items, logs int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM cart_line_item WHERE cart_id = 'old'`).Scan(&items))
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM automation_log`).Scan(&logs))
	assert.Zero(t, items)
	assert.Zero(t, logs)

	_, err = s.GetCart(ctx, "new")
	assert.NoError(t, err)
}
