package condition

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/cartrecovery/internal/model"
)

// AutomationCount compares how often the cart was already automated.
//
// Config: operator (default eq), value (default 0).
type AutomationCount struct{}

func (AutomationCount) Type() string { return "automation_count" }

func (c AutomationCount) Evaluate(_ context.Context, cart *model.AbandonedCart, cfg model.Config, _ Env) (bool, error) {
	op, p, err := parseComparison(c.Type(), cfg, OpEQ, 0)
	if err != nil {
		return false, err
	}
	return op.CompareInt(int64(cart.AutomationCount), p.Value), nil
}

func (c AutomationCount) Compile(q sq.SelectBuilder, cfg model.Config, _ Env) (sq.SelectBuilder, error) {
	op, p, err := parseComparison(c.Type(), cfg, OpEQ, 0)
	if err != nil {
		return q, err
	}
	return q.Where(sq.Expr("COALESCE("+col("automation_count")+", 0) "+op.SQL()+" ?", p.Value)), nil
}

func (c AutomationCount) Validate(cfg model.Config) []Problem {
	_, _, err := parseComparison(c.Type(), cfg, OpEQ, 0)
	return blocking(c.Type(), err)
}
