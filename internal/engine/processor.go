package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/cartrecovery/internal/action"
	"github.com/roach88/cartrecovery/internal/condition"
	"github.com/roach88/cartrecovery/internal/logger"
	"github.com/roach88/cartrecovery/internal/model"
)

// DefaultBatchSize is the number of candidate carts loaded per page.
const DefaultBatchSize = 500

// Summary reports what one sweep did.
type Summary struct {
	Rules          int `json:"rules"`
	Scanned        int `json:"scanned"`
	Executed       int `json:"executed"`
	RecordFailures int `json:"recordFailures"`
	ActionFailures int `json:"actionFailures"`
}

// Processor runs automation sweeps.
//
// INVARIANTS:
//   - at most one rule executes per cart per sweep (first match wins)
//   - every executed pipeline yields exactly one execution log
//   - counters advance only together with a success log
type Processor struct {
	source     RecordSource
	conditions *condition.Registry
	actions    *action.Registry
	clock      Clock
	ids        model.IDGenerator
	log        logger.Logger
	metrics    *Metrics
	batchSize  int
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithBatchSize sets the candidate page size. Values below 1 are ignored.
func WithBatchSize(n int) ProcessorOption {
	return func(p *Processor) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithClock replaces the system clock.
func WithClock(c Clock) ProcessorOption {
	return func(p *Processor) { p.clock = c }
}

// WithIDGenerator replaces the UUIDv7 log ID generator.
func WithIDGenerator(g model.IDGenerator) ProcessorOption {
	return func(p *Processor) { p.ids = g }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) ProcessorOption {
	return func(p *Processor) { p.log = l }
}

// WithMetrics enables metrics collection.
func WithMetrics(m *Metrics) ProcessorOption {
	return func(p *Processor) { p.metrics = m }
}

// NewProcessor creates a Processor reading from source.
func NewProcessor(source RecordSource, conditions *condition.Registry, actions *action.Registry, opts ...ProcessorOption) *Processor {
	p := &Processor{
		source:     source,
		conditions: conditions,
		actions:    actions,
		clock:      SystemClock{},
		ids:        model.UUIDv7Generator{},
		log:        logger.Discard(),
		batchSize:  DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs one full sweep:
//  1. Load active rules; stop when there are none
//  2. Page through candidate carts ordered by ID
//  3. For each cart, select the first matching rule and run its pipeline
//  4. Record the execution log and counter update atomically
//
// A failure to record one cart writes an error log and continues with the
// next cart. Failing to load rules or a batch aborts the sweep with a
// *RuntimeError. Context cancellation is checked between carts.
func (p *Processor) Process(ctx context.Context) (Summary, error) {
	var sum Summary
	started := time.Now()

	rules, err := p.source.ActiveRules(ctx)
	if err != nil {
		return sum, newRulesLoadError(err)
	}
	rules = activeOnly(rules)
	model.SortRules(rules)
	sum.Rules = len(rules)
	if len(rules) == 0 {
		p.log.Debug("no active rules, skipping sweep")
		return sum, nil
	}

	env := condition.Env{Now: passTime(p.clock)}
	p.log.Info("sweep started", "rules", len(rules), "now", env.Now.Format(time.RFC3339))

	for offset := 0; ; offset += p.batchSize {
		batch, err := p.source.CandidateBatch(ctx, offset, p.batchSize)
		if err != nil {
			return sum, newBatchLoadError(offset, err)
		}

		for i := range batch {
			if err := ctx.Err(); err != nil {
				return sum, fmt.Errorf("sweep cancelled: %w", err)
			}
			p.processCart(ctx, rules, &batch[i], env, &sum)
		}

		if len(batch) < p.batchSize {
			break
		}
	}

	if p.metrics != nil {
		p.metrics.passes.Inc()
		p.metrics.passDuration.Observe(time.Since(started).Seconds())
	}
	p.log.Info("sweep finished",
		"scanned", sum.Scanned,
		"executed", sum.Executed,
		"record_failures", sum.RecordFailures,
		"action_failures", sum.ActionFailures)
	return sum, nil
}

func activeOnly(rules []model.Rule) []model.Rule {
	out := rules[:0:0]
	for _, r := range rules {
		if r.Active {
			out = append(out, r)
		}
	}
	return out
}

func (p *Processor) processCart(ctx context.Context, rules []model.Rule, cart *model.AbandonedCart, env condition.Env, sum *Summary) {
	sum.Scanned++
	if p.metrics != nil {
		p.metrics.cartsScanned.Inc()
	}

	rule := p.SelectRule(ctx, rules, cart, env)
	if rule == nil {
		return
	}

	now := passTime(p.clock)
	logID := p.ids.Generate()
	results := p.RunPipeline(ctx, rule, cart, logID, now)

	entry := model.ExecutionLog{
		ID:            logID,
		RuleID:        rule.ID,
		CartID:        cart.ID,
		CustomerID:    cart.CustomerID,
		Status:        model.StatusSuccess,
		ActionResults: results,
		CreatedAt:     now,
	}
	sum.ActionFailures += results.Failed()

	// Counters advance even when actions failed, so a time_since_last_automation
	// condition holds this cart back until its window has passed again.
	if err := p.source.RecordExecution(ctx, entry); err != nil {
		sum.RecordFailures++
		rerr := newRecordError(rule.ID, cart.ID, err)
		p.log.Error("failed to record execution", "rule", rule.ID, "cart", cart.ID, "error", err)

		entry.Status = model.StatusError
		entry.Error = rerr.Error()
		if err := p.source.InsertLog(ctx, entry); err != nil {
			p.log.Error("failed to write error log", "rule", rule.ID, "cart", cart.ID, "error", err)
		}
		p.observeExecution(model.StatusError)
		return
	}

	sum.Executed++
	p.observeExecution(model.StatusSuccess)
	p.log.Info("rule executed",
		"rule", rule.ID,
		"cart", cart.ID,
		"actions", len(results),
		"failed", results.Failed())
}

func (p *Processor) observeExecution(status string) {
	if p.metrics != nil {
		p.metrics.executions.WithLabelValues(status).Inc()
	}
}

// SelectRule returns the first rule in rules that is active, admits the
// cart's sales channel and whose conditions all hold. Rules must already be
// in evaluation order. Returns nil when no rule matches.
func (p *Processor) SelectRule(ctx context.Context, rules []model.Rule, cart *model.AbandonedCart, env condition.Env) *model.Rule {
	for i := range rules {
		r := &rules[i]
		if !r.Active || !r.AppliesTo(cart.SalesChannelID) {
			continue
		}
		if p.conditions.Match(ctx, cart, r.Conditions, env) {
			return r
		}
	}
	return nil
}

// RunPipeline executes the rule's actions in order against a fresh action
// context and returns one result per executed action.
//
// It never fails: an action error or panic becomes that action's error
// result and the pipeline continues. Actions with a missing or unknown type
// are skipped with a warning and produce no result.
func (p *Processor) RunPipeline(ctx context.Context, rule *model.Rule, cart *model.AbandonedCart, executionID string, now time.Time) model.ActionResults {
	actx := action.NewContext(rule.ID, cart.ID, executionID, now)
	results := make(model.ActionResults, 0, len(rule.Actions))

	for i, cfg := range rule.Actions {
		typ := cfg.Type()
		if typ == "" {
			p.log.Warn("action type is missing", "rule", rule.ID, "index", i)
			continue
		}
		h, ok := p.actions.Get(typ)
		if !ok {
			p.log.Warn("unknown action type", "rule", rule.ID, "index", i, "type", typ)
			continue
		}

		res := model.ActionResult{Key: model.ActionResultKey(i, typ), Status: model.StatusSuccess}
		if err := p.execute(ctx, h, cart, cfg, actx); err != nil {
			res.Status = model.StatusError
			res.Error = err.Error()
			p.log.Warn("action failed", "rule", rule.ID, "cart", cart.ID, "index", i, "type", typ, "error", err)
		}
		results = append(results, res)
		if p.metrics != nil {
			p.metrics.actionResults.WithLabelValues(typ, res.Status).Inc()
		}
	}
	return results
}

func (p *Processor) execute(ctx context.Context, h action.Action, cart *model.AbandonedCart, cfg model.Config, actx *action.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action panicked: %v", r)
		}
	}()
	return h.Execute(ctx, cart, cfg, actx)
}
