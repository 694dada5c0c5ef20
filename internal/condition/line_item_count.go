package condition

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/cartrecovery/internal/model"
)

// LineItemCount compares the number of archived line items.
//
// Config: operator (default gte), value (default 1).
type LineItemCount struct{}

func (LineItemCount) Type() string { return "line_item_count" }

func (c LineItemCount) Evaluate(_ context.Context, cart *model.AbandonedCart, cfg model.Config, _ Env) (bool, error) {
	op, p, err := parseComparison(c.Type(), cfg, OpGTE, 1)
	if err != nil {
		return false, err
	}
	return op.CompareInt(int64(cart.LineItemCount()), p.Value), nil
}

func (c LineItemCount) Compile(q sq.SelectBuilder, cfg model.Config, _ Env) (sq.SelectBuilder, error) {
	op, p, err := parseComparison(c.Type(), cfg, OpGTE, 1)
	if err != nil {
		return q, err
	}
	sub := "(SELECT COUNT(*) FROM " + LineItemTable + " li WHERE li.cart_id = " + col("id") + ")"
	return q.Where(sq.Expr(sub+" "+op.SQL()+" ?", p.Value)), nil
}

func (c LineItemCount) Validate(cfg model.Config) []Problem {
	_, _, err := parseComparison(c.Type(), cfg, OpGTE, 1)
	return blocking(c.Type(), err)
}
