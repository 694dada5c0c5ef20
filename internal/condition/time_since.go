package condition

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/cartrecovery/internal/model"
)

// TimeSinceLastAutomation rate-limits rules by the time since the cart was
// last automated. A cart that was never automated always passes.
//
// Config: operator (default gte), value (default 24), unit (default hours).
type TimeSinceLastAutomation struct{}

func (TimeSinceLastAutomation) Type() string { return "time_since_last_automation" }

func (c TimeSinceLastAutomation) parse(cfg model.Config) (Operator, int64, error) {
	op, p, err := parseComparison(c.Type(), cfg, OpGTE, 24)
	if err != nil {
		return "", 0, err
	}
	return op, thresholdMillis(p.Value, p.Unit), nil
}

func (c TimeSinceLastAutomation) Evaluate(_ context.Context, cart *model.AbandonedCart, cfg model.Config, env Env) (bool, error) {
	op, threshold, err := c.parse(cfg)
	if err != nil {
		return false, err
	}
	if cart.LastAutomationAt == nil {
		return true, nil
	}
	elapsed := env.Now.UnixMilli() - cart.LastAutomationAt.UnixMilli()
	return op.CompareInt(elapsed, threshold), nil
}

func (c TimeSinceLastAutomation) Compile(q sq.SelectBuilder, cfg model.Config, env Env) (sq.SelectBuilder, error) {
	op, threshold, err := c.parse(cfg)
	if err != nil {
		return q, err
	}
	cutoff := env.Now.UnixMilli() - threshold
	last := col("last_automation_at")
	return q.Where(sq.Expr("("+last+" IS NULL OR "+last+" "+op.Mirror().SQL()+" ?)", cutoff)), nil
}

func (c TimeSinceLastAutomation) Validate(cfg model.Config) []Problem {
	_, _, err := c.parse(cfg)
	return append(blocking(c.Type(), err), unitProblems(c.Type(), cfg)...)
}
