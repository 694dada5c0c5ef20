package engine

import (
	"context"

	"github.com/roach88/cartrecovery/internal/model"
)

// RecordSource is everything a sweep reads and writes.
// Implemented by *store.Store.
type RecordSource interface {
	// ActiveRules returns active rules in evaluation order.
	ActiveRules(ctx context.Context) ([]model.Rule, error)

	// CandidateBatch returns up to limit carts ordered by ID, starting at
	// offset, with line items, customer and sales channel resolved.
	CandidateBatch(ctx context.Context, offset, limit int) ([]model.AbandonedCart, error)

	// RecordExecution inserts log and advances the cart's counters atomically.
	RecordExecution(ctx context.Context, log model.ExecutionLog) error

	// InsertLog inserts log without touching counters.
	InsertLog(ctx context.Context, log model.ExecutionLog) error
}

// CartQuerier runs compiled candidate queries. Implemented by *store.Store.
type CartQuerier interface {
	SelectCartIDs(ctx context.Context, query string, args []any) ([]string, error)
	CountCarts(ctx context.Context, query string, args []any) (int, error)
	CartsByID(ctx context.Context, ids []string) ([]model.AbandonedCart, error)
}
