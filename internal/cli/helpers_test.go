package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cartrecovery/internal/model"
	"github.com/roach88/cartrecovery/internal/store"
)

const reminderRule = `package rules

automation: reminder: {
	name:     "First reminder"
	priority: 10
	conditions: [
		{type: "cart_age", operator: "gte", value: 1, unit: "hours"},
		{type: "automation_count", operator: "eq", value: 0},
	]
	actions: [
		{type: "send_email", mailTemplateId: "reminder-mail"},
	]
}
`

// executeCommand runs the root command with args and returns stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// writeFile writes content to name inside a fresh temp dir.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testCart(id, customerID string, age time.Duration) model.AbandonedCart {
	return model.AbandonedCart{
		ID:             id,
		CustomerID:     customerID,
		SalesChannelID: "web",
		TotalPrice:     decimal.RequireFromString("49.90"),
		CurrencyCode:   "EUR",
		CreatedAt:      time.Now().Add(-age),
		LineItems: []model.LineItem{{
			ID:         id + "-li-1",
			Type:       model.LineItemTypeProduct,
			Quantity:   1,
			UnitPrice:  decimal.RequireFromString("49.90"),
			TotalPrice: decimal.RequireFromString("49.90"),
			Label:      "Teapot",
		}},
	}
}

// seedDatabase creates a database with two customers, a reminder mail
// template and the given carts, and returns its path.
func seedDatabase(t *testing.T, carts ...model.AbandonedCart) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cartrecovery.db")
	s, err := store.Open(path)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.InsertSalesChannel(ctx, model.SalesChannel{ID: "web", Name: "Storefront"}))
	require.NoError(t, s.InsertCustomer(ctx, model.Customer{ID: "cust-1", Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"}))
	require.NoError(t, s.InsertCustomer(ctx, model.Customer{ID: "cust-2", Email: "grace@example.com", FirstName: "Grace", LastName: "Hopper"}))
	require.NoError(t, s.InsertMailTemplate(ctx, model.MailTemplate{
		ID:           "reminder-mail",
		SenderName:   "Shop",
		Subject:      "You left something behind",
		ContentPlain: "Your cart is waiting.",
	}))
	for _, c := range carts {
		require.NoError(t, s.InsertCart(ctx, c))
	}
	return path
}

// seedWithRule seeds the database and imports the reminder rule.
func seedWithRule(t *testing.T, carts ...model.AbandonedCart) string {
	t.Helper()
	db := seedDatabase(t, carts...)
	_, err := executeCommand(t, "--db", db, "rules", "import", writeFile(t, "rules.cue", reminderRule))
	require.NoError(t, err)
	return db
}

func openStore(t *testing.T, path string) *store.Store {
	t.Helper()
	s, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}
