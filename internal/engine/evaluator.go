package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/cartrecovery/internal/action"
	"github.com/roach88/cartrecovery/internal/condition"
	"github.com/roach88/cartrecovery/internal/logger"
	"github.com/roach88/cartrecovery/internal/model"
	"github.com/roach88/cartrecovery/internal/querysql"
)

// Page size defaults for Evaluate.
const (
	DefaultEvaluateLimit = 25
	MaxEvaluateLimit     = 100
)

// EvaluateRequest previews a condition set against stored carts.
type EvaluateRequest struct {
	Conditions     []model.Config `json:"conditions"`
	Actions        []model.Config `json:"actions,omitempty"`
	SalesChannelID *string        `json:"salesChannelId,omitempty"`
	Page           int            `json:"page"`
	// Limit is the page size. Zero selects the default, negative values
	// clamp to 1 and anything above the maximum clamps to the maximum.
	Limit int `json:"limit"`
}

// Problem is a configuration problem found in a condition or action.
type Problem struct {
	Kind     string `json:"kind"` // "condition" or "action"
	Index    int    `json:"index"`
	Type     string `json:"type,omitempty"`
	Field    string `json:"field,omitempty"`
	Message  string `json:"message"`
	Blocking bool   `json:"blocking"`
}

func (p Problem) String() string {
	if p.Field != "" {
		return fmt.Sprintf("%s %d (%s): %s: %s", p.Kind, p.Index, p.Type, p.Field, p.Message)
	}
	return fmt.Sprintf("%s %d (%s): %s", p.Kind, p.Index, p.Type, p.Message)
}

// CartSummary is the preview row for one cart.
type CartSummary struct {
	ID              string          `json:"id"`
	CustomerEmail   string          `json:"customerEmail"`
	CustomerName    string          `json:"customerName"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	Currency        string          `json:"currency"`
	CreatedAt       time.Time       `json:"createdAt"`
	AutomationCount int             `json:"automationCount"`
	LineItemCount   int             `json:"lineItemCount"`
}

// EvaluateResult is the response of Evaluate.
type EvaluateResult struct {
	MatchingCount int           `json:"matchingCount"`
	Matching      []CartSummary `json:"matching"`
	NonMatching   []CartSummary `json:"nonMatching"`
	Page          int           `json:"page"`
	Limit         int           `json:"limit"`
	TotalPages    int           `json:"totalPages"`
	Problems      []Problem     `json:"problems"`
	Drift         []string      `json:"drift"`
}

// Evaluator previews conditions without executing anything.
type Evaluator struct {
	carts      CartQuerier
	conditions *condition.Registry
	actions    *action.Registry
	compiler   *querysql.Compiler
	clock      Clock
	log        logger.Logger
	defLimit   int
	maxLimit   int
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithEvaluatorClock replaces the system clock.
func WithEvaluatorClock(c Clock) EvaluatorOption {
	return func(e *Evaluator) { e.clock = c }
}

// WithEvaluatorLogger sets the logger.
func WithEvaluatorLogger(l logger.Logger) EvaluatorOption {
	return func(e *Evaluator) { e.log = l }
}

// WithPageLimits overrides the default and maximum page size.
func WithPageLimits(def, maxLimit int) EvaluatorOption {
	return func(e *Evaluator) {
		if maxLimit > 0 {
			e.maxLimit = maxLimit
		}
		if def > 0 {
			e.defLimit = min(def, e.maxLimit)
		}
	}
}

// NewEvaluator creates an Evaluator. actions may be nil, in which case
// action configs are not validated.
func NewEvaluator(carts CartQuerier, conditions *condition.Registry, actions *action.Registry, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		carts:      carts,
		conditions: conditions,
		actions:    actions,
		compiler:   querysql.NewCompiler(conditions),
		clock:      SystemClock{},
		log:        logger.Discard(),
		defLimit:   DefaultEvaluateLimit,
		maxLimit:   MaxEvaluateLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate classifies stored carts against req.Conditions.
//
// matchingCount and the matching page come from the compiled SQL predicate.
// Matching carts are re-checked in memory; the in-scope carts of the same ID
// window that fail in memory form the non-matching list and are re-checked
// in SQL. Any cart the two paths disagree on is reported in Drift.
//
// Configuration problems are reported in the result, never as an error.
func (e *Evaluator) Evaluate(ctx context.Context, req EvaluateRequest) (*EvaluateResult, error) {
	page, limit := e.paging(req.Page, req.Limit)
	env := condition.Env{Now: passTime(e.clock)}
	offset := uint64((page - 1) * limit)

	res := &EvaluateResult{
		Matching:    []CartSummary{},
		NonMatching: []CartSummary{},
		Page:        page,
		Limit:       limit,
		Problems:    e.problems(req),
		Drift:       []string{},
	}

	base := querysql.Query{
		Conditions:     req.Conditions,
		SalesChannelID: req.SalesChannelID,
		Env:            env,
	}

	countSQL, countArgs, err := e.compiler.Count(base)
	if err != nil {
		return nil, err
	}
	res.MatchingCount, err = e.carts.CountCarts(ctx, countSQL, countArgs)
	if err != nil {
		return nil, fmt.Errorf("count matching carts: %w", err)
	}
	res.TotalPages = (res.MatchingCount + limit - 1) / limit

	drift := make(map[string]bool)

	matchQ := base
	matchQ.Limit, matchQ.Offset = uint64(limit), offset
	matched, err := e.load(ctx, matchQ)
	if err != nil {
		return nil, fmt.Errorf("load matching carts: %w", err)
	}
	for i := range matched {
		c := &matched[i]
		if !e.conditions.Match(ctx, c, req.Conditions, env) {
			drift[c.ID] = true
		}
		res.Matching = append(res.Matching, summarize(c))
	}

	windowQ := querysql.Query{SalesChannelID: req.SalesChannelID, Limit: uint64(limit), Offset: offset}
	window, err := e.load(ctx, windowQ)
	if err != nil {
		return nil, fmt.Errorf("load candidate window: %w", err)
	}
	var failing []string
	for i := range window {
		c := &window[i]
		if e.conditions.Match(ctx, c, req.Conditions, env) {
			continue
		}
		failing = append(failing, c.ID)
		res.NonMatching = append(res.NonMatching, summarize(c))
	}

	if len(failing) > 0 {
		checkQ := base
		checkQ.CartIDs = failing
		sqlStr, args, err := e.compiler.SelectIDs(checkQ)
		if err != nil {
			return nil, err
		}
		ids, err := e.carts.SelectCartIDs(ctx, sqlStr, args)
		if err != nil {
			return nil, fmt.Errorf("re-check non-matching carts: %w", err)
		}
		for _, id := range ids {
			drift[id] = true
		}
	}

	for id := range drift {
		res.Drift = append(res.Drift, id)
	}
	sort.Strings(res.Drift)
	if len(res.Drift) > 0 {
		e.log.Warn("evaluation paths disagree", "carts", res.Drift)
	}
	return res, nil
}

func (e *Evaluator) paging(page, limit int) (int, int) {
	switch {
	case limit == 0:
		limit = e.defLimit
	case limit < 0:
		limit = 1
	case limit > e.maxLimit:
		limit = e.maxLimit
	}
	// The offset (page-1)*limit must stay a valid SQLite integer.
	page = min(max(page, 1), math.MaxInt/limit)
	return page, limit
}

func (e *Evaluator) load(ctx context.Context, q querysql.Query) ([]model.AbandonedCart, error) {
	sqlStr, args, err := e.compiler.SelectIDs(q)
	if err != nil {
		return nil, err
	}
	ids, err := e.carts.SelectCartIDs(ctx, sqlStr, args)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return e.carts.CartsByID(ctx, ids)
}

func (e *Evaluator) problems(req EvaluateRequest) []Problem {
	out := []Problem{}
	for _, p := range e.conditions.Validate(req.Conditions) {
		out = append(out, Problem{Kind: "condition", Index: p.Index, Type: p.Type, Field: p.Field, Message: p.Message, Blocking: p.Blocking})
	}
	if e.actions != nil {
		for _, p := range e.actions.Validate(req.Actions) {
			out = append(out, Problem{Kind: "action", Index: p.Index, Type: p.Type, Field: p.Field, Message: p.Message, Blocking: true})
		}
	}
	return out
}

func summarize(c *model.AbandonedCart) CartSummary {
	s := CartSummary{
		ID:              c.ID,
		CustomerName:    "Unknown",
		TotalPrice:      c.TotalPrice,
		Currency:        c.CurrencyCode,
		CreatedAt:       c.CreatedAt,
		AutomationCount: c.AutomationCount,
		LineItemCount:   c.LineItemCount(),
	}
	if c.Customer != nil {
		s.CustomerEmail = c.Customer.Email
		s.CustomerName = c.Customer.FullName()
	}
	return s
}
