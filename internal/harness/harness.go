package harness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/cartrecovery/internal/action"
	"github.com/roach88/cartrecovery/internal/app"
	"github.com/roach88/cartrecovery/internal/compiler"
	"github.com/roach88/cartrecovery/internal/logger"
	"github.com/roach88/cartrecovery/internal/model"
	"github.com/roach88/cartrecovery/internal/store"
	"github.com/roach88/cartrecovery/internal/testutil"
)

// Harness is the state of one scenario run.
type Harness struct {
	store *store.Store
	app   *app.App
	clock *testutil.ManualClock
	start time.Time
}

// recorder passes writes through to the store and appends every log that
// was actually persisted to the trace.
type recorder struct {
	*store.Store
	pass   int
	result *Result
}

func (r *recorder) RecordExecution(ctx context.Context, log model.ExecutionLog) error {
	if err := r.Store.RecordExecution(ctx, log); err != nil {
		return err
	}
	r.result.Trace = append(r.result.Trace, newTraceEvent(r.pass, log))
	return nil
}

func (r *recorder) InsertLog(ctx context.Context, log model.ExecutionLog) error {
	if err := r.Store.InsertLog(ctx, log); err != nil {
		return err
	}
	r.result.Trace = append(r.result.Trace, newTraceEvent(r.pass, log))
	return nil
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database:
//  1. Seed reference data and carts relative to the start time
//  2. Install and validate rules
//  3. Run every pass, advancing the clock first
//  4. Evaluate assertions against the final state
//
// A returned error means the scenario could not be set up; sweep failures
// and failed assertions are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, logger.Discard())
}

// RunWithLogger is Run with engine and action logging sent to log.
func RunWithLogger(scenario *Scenario, log logger.Logger) (*Result, error) {
	start, err := scenario.StartTime()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	result := NewResult()
	rec := &recorder{Store: st, result: result}
	clock := testutil.NewManualClock(start)
	h := &Harness{
		store: st,
		clock: clock,
		start: start,
		app: app.New(st, app.Options{
			Clock:  clock,
			IDs:    testutil.NewSequenceGenerator("id"),
			Codes:  action.NewCodeGeneratorWithSource(func(int) int { return 0 }),
			Logger: log,
			Source: rec,
		}),
	}

	ctx := context.Background()
	if err := h.seed(ctx, scenario.Seed); err != nil {
		return nil, fmt.Errorf("failed to seed: %w", err)
	}
	if err := h.installRules(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to install rules: %w", err)
	}

	passes := scenario.Passes
	if len(passes) == 0 {
		passes = []Pass{{}}
	}
	for i, p := range passes {
		if p.Advance != "" {
			d, _ := time.ParseDuration(p.Advance) // checked by validateScenario
			h.clock.Advance(d)
		}
		rec.pass = i + 1
		sum, err := h.app.Processor.Process(ctx)
		result.Summaries = append(result.Summaries, sum)
		if err != nil {
			result.AddError(fmt.Sprintf("pass %d: %v", i+1, err))
		}
	}

	actx := &AssertionContext{Store: st, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) ago(v string) time.Time {
	if v == "" {
		return h.start
	}
	d, _ := time.ParseDuration(v)
	return h.start.Add(-d)
}

func (h *Harness) seed(ctx context.Context, seed Seed) error {
	for _, ch := range seed.SalesChannels {
		if err := h.store.InsertSalesChannel(ctx, model.SalesChannel{ID: ch.ID, Name: ch.Name}); err != nil {
			return err
		}
	}
	for _, c := range seed.Customers {
		if err := h.store.InsertCustomer(ctx, model.Customer{
			ID:           c.ID,
			Email:        c.Email,
			FirstName:    c.FirstName,
			LastName:     c.LastName,
			CustomFields: c.CustomFields,
		}); err != nil {
			return err
		}
		for _, tag := range c.Tags {
			if err := h.store.AddCustomerTag(ctx, c.ID, tag); err != nil {
				return err
			}
		}
	}
	for _, p := range seed.Promotions {
		if err := h.store.InsertPromotion(ctx, model.Promotion{ID: p.ID, Name: p.Name, UseIndividualCodes: p.IndividualCodes}); err != nil {
			return err
		}
	}
	for _, t := range seed.MailTemplates {
		if err := h.store.InsertMailTemplate(ctx, model.MailTemplate{
			ID:           t.ID,
			SenderName:   t.SenderName,
			Subject:      t.Subject,
			ContentPlain: t.ContentPlain,
			ContentHTML:  t.ContentHTML,
		}); err != nil {
			return err
		}
	}
	for _, c := range seed.Carts {
		cart, err := h.cart(c)
		if err != nil {
			return err
		}
		if err := h.store.InsertCart(ctx, cart); err != nil {
			return err
		}
	}
	return nil
}

func (h *Harness) cart(c CartSeed) (model.AbandonedCart, error) {
	total, err := decimal.NewFromString(c.Total)
	if err != nil {
		return model.AbandonedCart{}, fmt.Errorf("cart %s: total: %w", c.ID, err)
	}
	currency := c.Currency
	if currency == "" {
		currency = "EUR"
	}
	cart := model.AbandonedCart{
		ID:              c.ID,
		CustomerID:      c.Customer,
		SalesChannelID:  c.Channel,
		TotalPrice:      total,
		CurrencyCode:    currency,
		CreatedAt:       h.ago(c.Age),
		AutomationCount: c.AutomationCount,
	}
	if c.LastAutomationAgo != "" {
		at := h.ago(c.LastAutomationAgo)
		cart.LastAutomationAt = &at
	}
	for i, li := range c.LineItems {
		price, err := decimal.NewFromString(li.UnitPrice)
		if err != nil {
			return model.AbandonedCart{}, fmt.Errorf("cart %s: line item %d: unit_price: %w", c.ID, i, err)
		}
		item := model.LineItem{
			ID:         fmt.Sprintf("%s-li-%d", c.ID, i+1),
			CartID:     c.ID,
			Type:       model.LineItemTypeProduct,
			Quantity:   li.Quantity,
			UnitPrice:  price,
			TotalPrice: price.Mul(decimal.NewFromInt(int64(li.Quantity))),
			Label:      li.Label,
		}
		if li.Product != "" {
			product := li.Product
			item.ProductID = &product
			item.ReferencedID = product
		}
		cart.LineItems = append(cart.LineItems, item)
	}
	return cart, nil
}

func (h *Harness) installRules(ctx context.Context, scenario *Scenario) error {
	var rules []model.Rule
	for _, spec := range scenario.Rules {
		rules = append(rules, h.rule(spec))
	}
	if scenario.RulesFile != "" {
		loaded, errs := compiler.LoadRules(scenario.RulesFile, compiler.LoadModeFailFast)
		if len(errs) > 0 {
			return errors.Join(errs...)
		}
		rules = append(rules, loaded.Rules...)
	}

	problems := h.app.Validator.ValidateAll(rules)
	if compiler.Blocking(problems) {
		var errs []error
		for _, p := range problems {
			if !p.Warning {
				errs = append(errs, p)
			}
		}
		return errors.Join(errs...)
	}

	for _, r := range rules {
		if err := h.store.UpsertRule(ctx, r, h.start); err != nil {
			return err
		}
	}
	return nil
}

func (h *Harness) rule(spec RuleSpec) model.Rule {
	r := model.Rule{
		ID:         spec.ID,
		Name:       spec.Name,
		Active:     spec.Active == nil || *spec.Active,
		Priority:   spec.Priority,
		Conditions: configs(spec.Conditions),
		Actions:    configs(spec.Actions),
		CreatedAt:  h.ago(spec.CreatedAgo),
	}
	if r.Name == "" {
		r.Name = r.ID
	}
	if spec.SalesChannel != "" {
		channel := spec.SalesChannel
		r.SalesChannelID = &channel
	}
	return r
}

func configs(in []map[string]any) []model.Config {
	out := make([]model.Config, 0, len(in))
	for _, m := range in {
		out = append(out, model.Config(m))
	}
	return out
}
