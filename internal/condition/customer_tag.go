package condition

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/cartrecovery/internal/logger"
	"github.com/roach88/cartrecovery/internal/model"
)

// TagLookup resolves the tags a customer currently holds.
// It returns an error wrapping model.ErrNotFound when the customer is gone.
type TagLookup interface {
	CustomerTagIDs(ctx context.Context, customerID string) ([]string, error)
}

// CustomerTag checks whether the cart's customer holds a tag.
//
// Config: tagId (required), negate (default false). When the customer or
// its tags cannot be resolved the condition yields negate, so a dangling
// customer never satisfies "has tag" but does satisfy "does not have tag".
type CustomerTag struct {
	Tags   TagLookup
	Logger logger.Logger
}

func (CustomerTag) Type() string { return "customer_tag" }

type customerTagParams struct {
	TagID  string `mapstructure:"tagId"`
	Negate bool   `mapstructure:"negate"`
}

func (c CustomerTag) parse(cfg model.Config) (customerTagParams, error) {
	var p customerTagParams
	if err := decode(c.Type(), cfg, &p); err != nil {
		return p, err
	}
	if p.TagID == "" {
		return p, &ConfigError{Type: c.Type(), Field: "tagId", Message: "tagId is required"}
	}
	return p, nil
}

func (c CustomerTag) Evaluate(ctx context.Context, cart *model.AbandonedCart, cfg model.Config, _ Env) (bool, error) {
	p, err := c.parse(cfg)
	if err != nil {
		return false, err
	}
	tags, err := c.Tags.CustomerTagIDs(ctx, cart.CustomerID)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) && c.Logger != nil {
			c.Logger.Warn("customer tag lookup failed", "customerId", cart.CustomerID, "error", err)
		}
		return p.Negate, nil
	}
	has := false
	for _, id := range tags {
		if id == p.TagID {
			has = true
			break
		}
	}
	return has != p.Negate, nil
}

func (c CustomerTag) Compile(q sq.SelectBuilder, cfg model.Config, _ Env) (sq.SelectBuilder, error) {
	p, err := c.parse(cfg)
	if err != nil {
		return q, err
	}
	sub := "SELECT 1 FROM " + CustomerTagTable + " ct WHERE ct.customer_id = " + col("customer_id") + " AND ct.tag_id = ?"
	if p.Negate {
		return q.Where(sq.Expr("NOT EXISTS ("+sub+")", p.TagID)), nil
	}
	return q.Where(sq.Expr("EXISTS ("+sub+")", p.TagID)), nil
}

func (c CustomerTag) Validate(cfg model.Config) []Problem {
	_, err := c.parse(cfg)
	return blocking(c.Type(), err)
}
