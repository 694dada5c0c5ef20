package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cartrecovery/internal/model"
)

var baseTime = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func strPtr(s string) *string { return &s }

// createTestCart builds a cart with one product line item.
func createTestCart(id, customerID, channelID string, total string, created time.Time) model.AbandonedCart {
	return model.AbandonedCart{
		ID:             id,
		CustomerID:     customerID,
		SalesChannelID: channelID,
		TotalPrice:     decimal.RequireFromString(total),
		CurrencyCode:   "EUR",
		CreatedAt:      created,
		LineItems: []model.LineItem{{
			ID:           id + "-li-1",
			ProductID:    strPtr("prod-mug"),
			ReferencedID: "prod-mug",
			Type:         model.LineItemTypeProduct,
			Quantity:     1,
			UnitPrice:    decimal.RequireFromString(total),
			TotalPrice:   decimal.RequireFromString(total),
			Label:        "Mug",
		}},
	}
}

// seedBasics inserts one sales channel and one customer.
func seedBasics(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.InsertSalesChannel(ctx, model.SalesChannel{ID: "sc-1", Name: "Storefront"}))
	require.NoError(t, s.InsertCustomer(ctx, model.Customer{
		ID: "cust-1", Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace",
	}))
}
