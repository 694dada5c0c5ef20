package condition

import (
	"context"
	"fmt"
	"math"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/cartrecovery/internal/model"
)

// ValueTolerance is the absolute tolerance for eq/neq on cart totals.
const ValueTolerance = 0.001

// CartValue compares the cart total against a value.
//
// Config: operator (default gte), value (default 0).
type CartValue struct{}

func (CartValue) Type() string { return "cart_value" }

type cartValueParams struct {
	Operator string  `mapstructure:"operator"`
	Value    float64 `mapstructure:"value"`
}

func (c CartValue) parse(cfg model.Config) (Operator, float64, error) {
	var p cartValueParams
	if err := decode(c.Type(), cfg, &p); err != nil {
		return "", 0, err
	}
	op, ok := ParseOperator(p.Operator, OpGTE)
	if !ok {
		return "", 0, &ConfigError{Type: c.Type(), Field: "operator", Message: fmt.Sprintf("unknown operator %q", p.Operator)}
	}
	return op, p.Value, nil
}

func (c CartValue) Evaluate(_ context.Context, cart *model.AbandonedCart, cfg model.Config, _ Env) (bool, error) {
	op, value, err := c.parse(cfg)
	if err != nil {
		return false, err
	}
	total := cart.TotalPrice.InexactFloat64()
	switch op {
	case OpEQ:
		return math.Abs(total-value) < ValueTolerance, nil
	case OpNEQ:
		return math.Abs(total-value) >= ValueTolerance, nil
	default:
		return op.CompareFloat(total, value), nil
	}
}

func (c CartValue) Compile(q sq.SelectBuilder, cfg model.Config, _ Env) (sq.SelectBuilder, error) {
	op, value, err := c.parse(cfg)
	if err != nil {
		return q, err
	}
	total := col("total_price")
	switch op {
	case OpEQ:
		return q.Where(sq.Expr("ABS("+total+" - ?) < ?", value, ValueTolerance)), nil
	case OpNEQ:
		return q.Where(sq.Expr("ABS("+total+" - ?) >= ?", value, ValueTolerance)), nil
	default:
		return q.Where(sq.Expr(total+" "+op.SQL()+" ?", value)), nil
	}
}

func (c CartValue) Validate(cfg model.Config) []Problem {
	_, _, err := c.parse(cfg)
	return blocking(c.Type(), err)
}
