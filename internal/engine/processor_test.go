package engine

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cartrecovery/internal/condition"
	"github.com/roach88/cartrecovery/internal/model"
)

func TestProcess_EmptyConditionsAlwaysSelected(t *testing.T) {
	f := newFixture(t)
	f.addCart(t, "cart-1", "sc-a", "10", time.Minute)
	f.addRule(t, model.Rule{ID: "rule-any", Name: "any", Active: true, Priority: 1, Actions: recordOnly()})

	sum, err := f.processor().Process(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Summary{Rules: 1, Scanned: 1, Executed: 1}, sum)
	assert.Equal(t, []string{"rule-any/cart-1"}, f.record.Calls())
}

func TestProcess_FirstMatchWinsByPriority(t *testing.T) {
	f := newFixture(t)
	f.addCart(t, "cart-1", "sc-a", "120", 3*time.Hour)
	f.addRule(t, model.Rule{ID: "rule-low", Name: "low", Active: true, Priority: 10, Actions: recordOnly()})
	f.addRule(t, model.Rule{ID: "rule-high", Name: "high", Active: true, Priority: 100,
		Conditions: []model.Config{{"type": "cart_age", "operator": "gte", "value": 2, "unit": "hours"}},
		Actions:    recordOnly(),
	})

	_, err := f.processor().Process(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"rule-high/cart-1"}, f.record.Calls())
	logs := f.logs(t)
	require.Len(t, logs, 1)
	assert.Equal(t, "rule-high", logs[0].RuleID)
}

func TestProcess_FallsThroughToLowerPriority(t *testing.T) {
	f := newFixture(t)
	f.addCart(t, "cart-1", "sc-a", "120", 30*time.Minute)
	f.addRule(t, model.Rule{ID: "rule-high", Name: "high", Active: true, Priority: 100,
		Conditions: []model.Config{{"type": "cart_age", "operator": "gte", "value": 2, "unit": "hours"}},
		Actions:    recordOnly(),
	})
	f.addRule(t, model.Rule{ID: "rule-low", Name: "low", Active: true, Priority: 10, Actions: recordOnly()})

	_, err := f.processor().Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"rule-low/cart-1"}, f.record.Calls())
}

func TestProcess_InactiveRuleNeverExecutes(t *testing.T) {
	f := newFixture(t)
	f.addCart(t, "cart-1", "sc-a", "10", time.Hour)
	f.addRule(t, model.Rule{ID: "rule-off", Name: "off", Active: false, Priority: 100, Actions: recordOnly()})

	sum, err := f.processor().Process(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, sum.Rules)
	assert.Empty(t, f.record.Calls())
	assert.Empty(t, f.logs(t))
}

func TestProcess_ScopeFilter(t *testing.T) {
	f := newFixture(t)
	f.addCart(t, "cart-a", "sc-a", "10", time.Hour)
	f.addCart(t, "cart-b", "sc-b", "10", time.Hour)
	f.addRule(t, model.Rule{ID: "rule-a", Name: "only a", Active: true, Priority: 100, SalesChannelID: strPtr("sc-a"), Actions: recordOnly()})

	_, err := f.processor().Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"rule-a/cart-a"}, f.record.Calls())

	f.addRule(t, model.Rule{ID: "rule-all", Name: "all", Active: true, Priority: 1, Actions: recordOnly()})
	_, err = f.processor().Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"rule-a/cart-a", "rule-a/cart-a", "rule-all/cart-b"}, f.record.Calls())
}

func TestProcess_NoMatchWritesNoLog(t *testing.T) {
	f := newFixture(t)
	f.addCart(t, "cart-1", "sc-a", "10", time.Hour)
	f.addRule(t, model.Rule{ID: "rule-big", Name: "big carts", Active: true, Priority: 1,
		Conditions: []model.Config{{"type": "cart_value", "operator": "gte", "value": 100}},
		Actions:    recordOnly(),
	})

	sum, err := f.processor().Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Scanned)
	assert.Equal(t, 0, sum.Executed)
	assert.Empty(t, f.logs(t))

	cart, err := f.store.GetCart(context.Background(), "cart-1")
	require.NoError(t, err)
	assert.Equal(t, 0, cart.AutomationCount)
	assert.Nil(t, cart.LastAutomationAt)
}

func TestProcess_AdvancesCounters(t *testing.T) {
	f := newFixture(t)
	f.addCart(t, "cart-1", "sc-a", "10", time.Hour)
	f.addRule(t, model.Rule{ID: "rule-1", Name: "r", Active: true, Priority: 1, Actions: recordOnly()})
	ctx := context.Background()

	before, err := f.store.GetCart(ctx, "cart-1")
	require.NoError(t, err)
	require.Nil(t, before.LastAutomationAt)

	_, err = f.processor().Process(ctx)
	require.NoError(t, err)

	after, err := f.store.GetCart(ctx, "cart-1")
	require.NoError(t, err)
	assert.Equal(t, before.AutomationCount+1, after.AutomationCount)
	require.NotNil(t, after.LastAutomationAt)
	assert.True(t, after.LastAutomationAt.Equal(testNow))

	f.clock.Advance(time.Hour)
	_, err = f.processor().Process(ctx)
	require.NoError(t, err)

	again, err := f.store.GetCart(ctx, "cart-1")
	require.NoError(t, err)
	assert.Equal(t, 2, again.AutomationCount)
	assert.True(t, again.LastAutomationAt.Equal(testNow.Add(time.Hour)))
}

func TestProcess_RateLimitSuppressesRerun(t *testing.T) {
	f := newFixture(t)
	f.addCart(t, "cart-1", "sc-a", "10", time.Hour)
	f.addRule(t, model.Rule{ID: "rule-1", Name: "r", Active: true, Priority: 1,
		Conditions: []model.Config{{"type": "time_since_last_automation", "operator": "gte", "value": 24, "unit": "hours"}},
		Actions:    []model.Config{{"type": "fail"}},
	})
	ctx := context.Background()

	_, err := f.processor().Process(ctx)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	sum, err := f.processor().Process(ctx)
	require.NoError(t, err)

	// The failed attempt still counts as an automation.
	assert.Equal(t, 0, sum.Executed)
	assert.Len(t, f.logs(t), 1)

	f.clock.Advance(23 * time.Hour)
	sum, err = f.processor().Process(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Executed)
}

func TestProcess_FailingActionStillSucceeds(t *testing.T) {
	f := newFixture(t)
	f.addCart(t, "cart-1", "sc-a", "10", time.Hour)
	f.addRule(t, model.Rule{ID: "rule-1", Name: "r", Active: true, Priority: 1,
		Actions: []model.Config{{"type": "fail"}, {"type": "record"}},
	})

	sum, err := f.processor().Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.ActionFailures)

	logs := f.logs(t)
	require.Len(t, logs, 1)
	assert.Equal(t, model.StatusSuccess, logs[0].Status)
	assert.Equal(t, "log-1", logs[0].ID)
	assert.Equal(t, model.ActionResults{
		{Key: "action_0_fail", Status: model.StatusError, Error: errBoom.Error()},
		{Key: "action_1_record", Status: model.StatusSuccess},
	}, logs[0].ActionResults)
	assert.Equal(t, []string{"rule-1/cart-1"}, f.record.Calls())
}

func TestRunPipeline_RecoversPanics(t *testing.T) {
	f := newFixture(t)
	rule := &model.Rule{ID: "rule-1", Actions: []model.Config{{"type": "panic"}, {"type": "record"}}}
	cart := &model.AbandonedCart{ID: "cart-1"}

	results := f.processor().RunPipeline(context.Background(), rule, cart, "exec-1", testNow)

	require.Len(t, results, 2)
	assert.Equal(t, model.StatusError, results[0].Status)
	assert.Equal(t, "action panicked: nil template", results[0].Error)
	assert.Equal(t, model.StatusSuccess, results[1].Status)
}

func TestRunPipeline_SkipsUnknownAndUntypedActions(t *testing.T) {
	f := newFixture(t)
	rule := &model.Rule{ID: "rule-1", Actions: []model.Config{
		{"type": "send_sms"},
		{"tagId": "vip"},
		{"type": "record"},
	}}
	cart := &model.AbandonedCart{ID: "cart-1"}

	results := f.processor().RunPipeline(context.Background(), rule, cart, "exec-1", testNow)

	assert.Equal(t, model.ActionResults{{Key: "action_2_record", Status: model.StatusSuccess}}, results)
}

func TestSelectRule_SkipsInactiveAndOutOfScope(t *testing.T) {
	f := newFixture(t)
	rules := []model.Rule{
		{ID: "off", Active: false},
		{ID: "other-channel", Active: true, SalesChannelID: strPtr("sc-b")},
		{ID: "too-young", Active: true, Conditions: []model.Config{{"type": "cart_age", "operator": "gte", "value": 1, "unit": "days"}}},
		{ID: "fallback", Active: true},
		{ID: "never-reached", Active: true},
	}
	cart := &model.AbandonedCart{ID: "cart-1", SalesChannelID: "sc-a", CreatedAt: testNow.Add(-time.Hour)}

	got := f.processor().SelectRule(context.Background(), rules, cart, condition.Env{Now: testNow})
	require.NotNil(t, got)
	assert.Equal(t, "fallback", got.ID)

	got = f.processor().SelectRule(context.Background(), rules[:3], cart, condition.Env{Now: testNow})
	assert.Nil(t, got)
}

func TestProcess_NoRulesLoadsNoBatches(t *testing.T) {
	src := &fakeSource{carts: fakeCarts(3)}
	f := newFixture(t)
	p := NewProcessor(src, f.conditions, f.actions)

	sum, err := p.Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{}, sum)
	assert.Empty(t, src.offsets)
}

func TestProcess_PagesUntilShortBatch(t *testing.T) {
	tests := []struct {
		name    string
		carts   int
		offsets []int
	}{
		{"partial last batch", 5, []int{0, 2, 4}},
		{"exact multiple", 4, []int{0, 2, 4}},
		{"empty", 0, []int{0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			src := &fakeSource{
				rules: []model.Rule{{ID: "rule-1", Active: true, Actions: recordOnly()}},
				carts: fakeCarts(tt.carts),
			}
			p := NewProcessor(src, f.conditions, f.actions, WithBatchSize(2), WithClock(f.clock), WithIDGenerator(f.ids))

			sum, err := p.Process(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.offsets, src.offsets)
			assert.Equal(t, tt.carts, sum.Scanned)
			assert.Len(t, src.recorded, tt.carts)
		})
	}
}

func TestProcess_RecordFailureWritesErrorLog(t *testing.T) {
	f := newFixture(t)
	src := &fakeSource{
		rules:     []model.Rule{{ID: "rule-1", Active: true, Actions: []model.Config{{"type": "record"}}}},
		carts:     fakeCarts(2),
		recordErr: errBoom,
	}
	p := NewProcessor(src, f.conditions, f.actions, WithClock(f.clock), WithIDGenerator(f.ids))

	sum, err := p.Process(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, sum.RecordFailures)
	assert.Equal(t, 0, sum.Executed)
	require.Len(t, src.inserted, 2)
	got := src.inserted[0]
	assert.Equal(t, "log-1", got.ID)
	assert.Equal(t, model.StatusError, got.Status)
	assert.Contains(t, got.Error, "RECORD_FAILED")
	assert.Contains(t, got.Error, errBoom.Error())
	assert.Equal(t, model.ActionResults{{Key: "action_0_record", Status: model.StatusSuccess}}, got.ActionResults)
}

func TestProcess_RulesLoadFailure(t *testing.T) {
	f := newFixture(t)
	src := &fakeSource{rulesErr: errBoom}

	_, err := NewProcessor(src, f.conditions, f.actions).Process(context.Background())
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrCodeRulesLoad))
	assert.Empty(t, src.offsets)
}

func TestProcess_BatchLoadFailure(t *testing.T) {
	f := newFixture(t)
	src := &fakeSource{rules: []model.Rule{{ID: "rule-1", Active: true}}, batchErr: errBoom}

	_, err := NewProcessor(src, f.conditions, f.actions).Process(context.Background())
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrCodeBatchLoad))
	assert.ErrorIs(t, err, errBoom)
}

func TestProcess_Cancelled(t *testing.T) {
	f := newFixture(t)
	src := &fakeSource{
		rules: []model.Rule{{ID: "rule-1", Active: true, Actions: recordOnly()}},
		carts: fakeCarts(3),
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewProcessor(src, f.conditions, f.actions).Process(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, src.recorded)
}

func TestProcess_Metrics(t *testing.T) {
	f := newFixture(t)
	f.addCart(t, "cart-1", "sc-a", "10", time.Hour)
	f.addCart(t, "cart-2", "sc-b", "10", time.Hour)
	f.addRule(t, model.Rule{ID: "rule-1", Name: "r", Active: true, Priority: 1, SalesChannelID: strPtr("sc-a"),
		Actions: []model.Config{{"type": "fail"}, {"type": "record"}},
	})

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	_, err := f.processor(WithMetrics(m)).Process(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1.0, promtest.ToFloat64(m.passes))
	assert.Equal(t, 2.0, promtest.ToFloat64(m.cartsScanned))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.executions.WithLabelValues(model.StatusSuccess)))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.actionResults.WithLabelValues("fail", model.StatusError)))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.actionResults.WithLabelValues("record", model.StatusSuccess)))

	count, err := promtest.GatherAndCount(reg, "cartrecovery_engine_pass_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
