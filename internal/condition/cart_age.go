package condition

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/cartrecovery/internal/model"
)

// CartAge compares the time since the cart was created against a threshold.
//
// Config: operator (default gte), value (default 24), unit (default hours).
type CartAge struct{}

func (CartAge) Type() string { return "cart_age" }

func (c CartAge) parse(cfg model.Config) (Operator, int64, error) {
	op, p, err := parseComparison(c.Type(), cfg, OpGTE, 24)
	if err != nil {
		return "", 0, err
	}
	return op, thresholdMillis(p.Value, p.Unit), nil
}

func (c CartAge) Evaluate(_ context.Context, cart *model.AbandonedCart, cfg model.Config, env Env) (bool, error) {
	op, threshold, err := c.parse(cfg)
	if err != nil {
		return false, err
	}
	if cart.CreatedAt.IsZero() {
		return false, nil
	}
	age := env.Now.UnixMilli() - cart.CreatedAt.UnixMilli()
	return op.CompareInt(age, threshold), nil
}

// unsetCreatedAt is how the store persists a cart with a zero CreatedAt.
var unsetCreatedAt = time.Time{}.UnixMilli()

// Compile turns "age op threshold" into "created_at op' (now - threshold)".
// Carts without a creation time never match, as in Evaluate.
func (c CartAge) Compile(q sq.SelectBuilder, cfg model.Config, env Env) (sq.SelectBuilder, error) {
	op, threshold, err := c.parse(cfg)
	if err != nil {
		return q, err
	}
	cutoff := env.Now.UnixMilli() - threshold
	expr := "(" + col("created_at") + " <> ? AND " + col("created_at") + " " + op.Mirror().SQL() + " ?)"
	return q.Where(sq.Expr(expr, unsetCreatedAt, cutoff)), nil
}

func (c CartAge) Validate(cfg model.Config) []Problem {
	_, _, err := c.parse(cfg)
	return append(blocking(c.Type(), err), unitProblems(c.Type(), cfg)...)
}
