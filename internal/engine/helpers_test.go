package engine

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cartrecovery/internal/action"
	"github.com/roach88/cartrecovery/internal/condition"
	"github.com/roach88/cartrecovery/internal/logger"
	"github.com/roach88/cartrecovery/internal/model"
	"github.com/roach88/cartrecovery/internal/store"
	"github.com/roach88/cartrecovery/internal/testutil"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

var errBoom = errors.New("mail relay unreachable")

// recordAction records every cart it runs against.
type recordAction struct {
	typ string

	mu    sync.Mutex
	calls []string // "ruleID/cartID"
}

func (a *recordAction) Type() string { return a.typ }

func (a *recordAction) Execute(_ context.Context, cart *model.AbandonedCart, _ model.Config, ac *action.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, ac.RuleID+"/"+cart.ID)
	return nil
}

func (a *recordAction) Validate(model.Config) []action.Problem { return nil }

func (a *recordAction) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

type failAction struct{}

func (failAction) Type() string { return "fail" }
func (failAction) Execute(context.Context, *model.AbandonedCart, model.Config, *action.Context) error {
	return errBoom
}
func (failAction) Validate(model.Config) []action.Problem { return nil }

type panicAction struct{}

func (panicAction) Type() string { return "panic" }
func (panicAction) Execute(context.Context, *model.AbandonedCart, model.Config, *action.Context) error {
	panic("nil template")
}
func (panicAction) Validate(model.Config) []action.Problem { return nil }

type fixture struct {
	store      *store.Store
	conditions *condition.Registry
	actions    *action.Registry
	record     *recordAction
	clock      *testutil.ManualClock
	ids        *testutil.SequenceGenerator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "engine.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	rec := &recordAction{typ: "record"}
	f := &fixture{
		store:      s,
		conditions: condition.NewRegistry(logger.Discard(), condition.Builtins(s, logger.Discard())...),
		actions:    action.NewRegistry(rec, failAction{}, panicAction{}),
		record:     rec,
		clock:      testutil.NewManualClock(testNow),
		ids:        testutil.NewSequenceGenerator("log"),
	}

	ctx := context.Background()
	for _, ch := range []string{"sc-a", "sc-b"} {
		require.NoError(t, s.InsertSalesChannel(ctx, model.SalesChannel{ID: ch, Name: ch}))
	}
	require.NoError(t, s.InsertCustomer(ctx, model.Customer{ID: "cust-1", Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"}))
	return f
}

func (f *fixture) processor(opts ...ProcessorOption) *Processor {
	base := []ProcessorOption{WithClock(f.clock), WithIDGenerator(f.ids)}
	return NewProcessor(f.store, f.conditions, f.actions, append(base, opts...)...)
}

func (f *fixture) addCart(t *testing.T, id, channel, total string, age time.Duration) {
	t.Helper()
	require.NoError(t, f.store.InsertCart(context.Background(), model.AbandonedCart{
		ID:             id,
		CustomerID:     "cust-1",
		SalesChannelID: channel,
		TotalPrice:     decimal.RequireFromString(total),
		CurrencyCode:   "EUR",
		CreatedAt:      testNow.Add(-age),
	}))
}

func (f *fixture) addRule(t *testing.T, r model.Rule) {
	t.Helper()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = testNow.Add(-24 * time.Hour)
	}
	require.NoError(t, f.store.UpsertRule(context.Background(), r, r.CreatedAt))
}

func (f *fixture) logs(t *testing.T) []model.ExecutionLog {
	t.Helper()
	logs, err := f.store.ListLogs(context.Background(), store.LogFilter{})
	require.NoError(t, err)
	return logs
}

func recordOnly() []model.Config {
	return []model.Config{{"type": "record"}}
}

func strPtr(s string) *string { return &s }

// fakeSource serves fixed batches and can fail on demand.
type fakeSource struct {
	rules     []model.Rule
	carts     []model.AbandonedCart
	rulesErr  error
	batchErr  error
	recordErr error
	insertErr error

	offsets  []int
	recorded []model.ExecutionLog
	inserted []model.ExecutionLog
}

func (f *fakeSource) ActiveRules(context.Context) ([]model.Rule, error) {
	return f.rules, f.rulesErr
}

func (f *fakeSource) CandidateBatch(_ context.Context, offset, limit int) ([]model.AbandonedCart, error) {
	f.offsets = append(f.offsets, offset)
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	if offset >= len(f.carts) {
		return nil, nil
	}
	end := min(offset+limit, len(f.carts))
	return f.carts[offset:end], nil
}

func (f *fakeSource) RecordExecution(_ context.Context, log model.ExecutionLog) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.recorded = append(f.recorded, log)
	return nil
}

func (f *fakeSource) InsertLog(_ context.Context, log model.ExecutionLog) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, log)
	return nil
}

func fakeCarts(n int) []model.AbandonedCart {
	carts := make([]model.AbandonedCart, n)
	for i := range carts {
		carts[i] = model.AbandonedCart{
			ID:             string(rune('a'+i)) + "-cart",
			CustomerID:     "cust-1",
			SalesChannelID: "sc-a",
			TotalPrice:     decimal.NewFromInt(50),
			CreatedAt:      testNow.Add(-time.Hour),
		}
	}
	return carts
}
