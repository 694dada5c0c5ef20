package querysql

import (
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/cartrecovery/internal/condition"
	"github.com/roach88/cartrecovery/internal/model"
)

// Query describes a set of candidate carts.
type Query struct {
	// Conditions are AND-combined; nil or empty selects every in-scope cart.
	Conditions []model.Config
	// SalesChannelID restricts the query to one sales channel when set.
	SalesChannelID *string
	// CartIDs restricts the query to the given carts when non-nil.
	CartIDs []string
	// Env is passed to every condition.
	Env condition.Env
	// Limit caps the page size; zero means unbounded.
	Limit  uint64
	Offset uint64
}

// Compiler compiles candidate queries to parameterized SQLite SQL.
//
// All values are bound as parameters. Every SELECT carries a deterministic
// ORDER BY so offset paging is stable across calls.
type Compiler struct {
	conditions *condition.Registry
}

// NewCompiler returns a compiler that resolves condition types through reg.
// A nil registry only compiles queries without conditions.
func NewCompiler(reg *condition.Registry) *Compiler {
	return &Compiler{conditions: reg}
}

var errNoRegistry = errors.New("querysql: conditions given but no condition registry configured")

// filtered returns the base query with the scope and condition filters applied.
func (c *Compiler) filtered(q Query, columns ...string) (sq.SelectBuilder, error) {
	b := sq.Select(columns...).From(condition.CartTable + " " + condition.Alias)
	if q.SalesChannelID != nil {
		b = b.Where(sq.Eq{condition.Alias + ".sales_channel_id": *q.SalesChannelID})
	}
	if q.CartIDs != nil {
		b = b.Where(sq.Eq{condition.Alias + ".id": q.CartIDs})
	}
	if len(q.Conditions) > 0 {
		if c.conditions == nil {
			return b, errNoRegistry
		}
		b = c.conditions.Apply(b, q.Conditions, q.Env)
	}
	return b, nil
}

// SelectIDs compiles a query returning matching cart IDs ordered by ID.
func (c *Compiler) SelectIDs(q Query) (string, []any, error) {
	b, err := c.filtered(q, condition.Alias+".id")
	if err != nil {
		return "", nil, err
	}
	b = b.OrderBy(condition.Alias + ".id COLLATE BINARY ASC")
	if q.Limit > 0 {
		b = b.Limit(q.Limit).Offset(q.Offset)
	} else if q.Offset > 0 {
		// SQLite requires LIMIT before OFFSET.
		b = b.Suffix("LIMIT -1 OFFSET ?", q.Offset)
	}
	sqlStr, args, err := b.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("compile candidate ids: %w", err)
	}
	return sqlStr, args, nil
}

// Count compiles a query counting matching carts. Paging is ignored.
func (c *Compiler) Count(q Query) (string, []any, error) {
	b, err := c.filtered(q, "COUNT(*)")
	if err != nil {
		return "", nil, err
	}
	sqlStr, args, err := b.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("compile candidate count: %w", err)
	}
	return sqlStr, args, nil
}
