package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"

	"github.com/roach88/cartrecovery/internal/model"
	"github.com/roach88/cartrecovery/internal/querysql"
)

var cartColumns = []string{
	"id", "customer_id", "sales_channel_id", "total_price", "currency_code",
	"created_at", "last_automation_at", "automation_count",
}

var lineItemColumns = []string{
	"id", "cart_id", "product_id", "referenced_id", "type",
	"quantity", "unit_price", "total_price", "label",
}

// InsertCart writes a cart and its line items. Line item order is kept.
// Uses ON CONFLICT(id) DO NOTHING for idempotency: re-inserting an existing
// cart leaves the stored row untouched.
func (s *Store) InsertCart(ctx context.Context, cart model.AbandonedCart) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO abandoned_cart
			(id, customer_id, sales_channel_id, total_price, currency_code, created_at, last_automation_at, automation_count)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`,
			cart.ID,
			cart.CustomerID,
			cart.SalesChannelID,
			cart.TotalPrice.InexactFloat64(),
			cart.CurrencyCode,
			toMillis(cart.CreatedAt),
			nullMillis(cart.LastAutomationAt),
			cart.AutomationCount,
		)
		if err != nil {
			return fmt.Errorf("insert cart %s: %w", cart.ID, err)
		}

		for i, li := range cart.LineItems {
			typ := li.Type
			if typ == "" {
				typ = model.LineItemTypeProduct
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO cart_line_item
				(id, cart_id, position, product_id, referenced_id, type, quantity, unit_price, total_price, label)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO NOTHING
			`,
				li.ID,
				cart.ID,
				i,
				nullString(li.ProductID),
				li.ReferencedID,
				typ,
				li.Quantity,
				li.UnitPrice.InexactFloat64(),
				li.TotalPrice.InexactFloat64(),
				li.Label,
			)
			if err != nil {
				return fmt.Errorf("insert line item %s: %w", li.ID, err)
			}
		}
		return nil
	})
}

// GetCart returns one hydrated cart.
func (s *Store) GetCart(ctx context.Context, id string) (*model.AbandonedCart, error) {
	carts, err := s.CartsByID(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(carts) == 0 {
		return nil, fmt.Errorf("cart %s: %w", id, model.ErrNotFound)
	}
	return &carts[0], nil
}

// CandidateBatch returns up to limit carts ordered by ID, starting at
// offset, with line items, customer and sales channel resolved.
func (s *Store) CandidateBatch(ctx context.Context, offset, limit int) ([]model.AbandonedCart, error) {
	query, args, err := querysql.NewCompiler(nil).SelectIDs(querysql.Query{
		Limit:  uint64(limit),
		Offset: uint64(offset),
	})
	if err != nil {
		return nil, err
	}
	ids, err := s.SelectCartIDs(ctx, query, args)
	if err != nil {
		return nil, err
	}
	return s.CartsByID(ctx, ids)
}

// SelectCartIDs runs a compiled query whose single column is the cart ID.
func (s *Store) SelectCartIDs(ctx context.Context, query string, args []any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query cart ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan cart id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart ids: %w", err)
	}
	return ids, nil
}

// CountCarts runs a compiled COUNT query.
func (s *Store) CountCarts(ctx context.Context, query string, args []any) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count carts: %w", err)
	}
	return n, nil
}

// CartsByID loads carts in the order of ids, skipping IDs that no longer
// exist. Line items, customer and sales channel are resolved; a cart whose
// customer was deleted keeps a nil Customer.
func (s *Store) CartsByID(ctx context.Context, ids []string) ([]model.AbandonedCart, error) {
	if len(ids) == 0 {
		return []model.AbandonedCart{}, nil
	}

	query, args, err := sq.Select(cartColumns...).
		From("abandoned_cart").
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build cart query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query carts: %w", err)
	}
	byID := make(map[string]*model.AbandonedCart, len(ids))
	customerIDs := make([]string, 0, len(ids))
	channelIDs := make([]string, 0, len(ids))
	for rows.Next() {
		cart, err := scanCart(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		byID[cart.ID] = &cart
		customerIDs = append(customerIDs, cart.CustomerID)
		channelIDs = append(channelIDs, cart.SalesChannelID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate carts: %w", err)
	}
	rows.Close()

	if err := s.attachLineItems(ctx, byID); err != nil {
		return nil, err
	}
	customers, err := s.customersByID(ctx, customerIDs)
	if err != nil {
		return nil, err
	}
	channels, err := s.salesChannelsByID(ctx, channelIDs)
	if err != nil {
		return nil, err
	}

	carts := make([]model.AbandonedCart, 0, len(byID))
	for _, id := range ids {
		cart, ok := byID[id]
		if !ok {
			continue
		}
		cart.Customer = customers[cart.CustomerID]
		cart.SalesChannel = channels[cart.SalesChannelID]
		carts = append(carts, *cart)
	}
	return carts, nil
}

func (s *Store) attachLineItems(ctx context.Context, carts map[string]*model.AbandonedCart) error {
	if len(carts) == 0 {
		return nil
	}
	ids := make([]string, 0, len(carts))
	for id := range carts {
		ids = append(ids, id)
	}
	query, args, err := sq.Select(lineItemColumns...).
		From("cart_line_item").
		Where(sq.Eq{"cart_id": ids}).
		OrderBy("cart_id", "position ASC", "id COLLATE BINARY ASC").
		ToSql()
	if err != nil {
		return fmt.Errorf("build line item query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query line items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			li         model.LineItem
			productID  sql.NullString
			unit, line float64
		)
		if err := rows.Scan(&li.ID, &li.CartID, &productID, &li.ReferencedID, &li.Type,
			&li.Quantity, &unit, &line, &li.Label); err != nil {
			return fmt.Errorf("scan line item: %w", err)
		}
		li.ProductID = fromNullString(productID)
		li.UnitPrice = decimal.NewFromFloat(unit)
		li.TotalPrice = decimal.NewFromFloat(line)
		cart := carts[li.CartID]
		cart.LineItems = append(cart.LineItems, li)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate line items: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCart(row scanner) (model.AbandonedCart, error) {
	var (
		cart      model.AbandonedCart
		total     float64
		createdAt int64
		lastRun   sql.NullInt64
	)
	if err := row.Scan(&cart.ID, &cart.CustomerID, &cart.SalesChannelID, &total, &cart.CurrencyCode,
		&createdAt, &lastRun, &cart.AutomationCount); err != nil {
		return cart, fmt.Errorf("scan cart: %w", err)
	}
	cart.TotalPrice = decimal.NewFromFloat(total)
	cart.CreatedAt = fromMillis(createdAt)
	cart.LastAutomationAt = fromNullMillis(lastRun)
	return cart, nil
}

// DeleteCartsOlderThan removes carts created before threshold together with
// their line items and logs. Returns the number of carts removed.
func (s *Store) DeleteCartsOlderThan(ctx context.Context, threshold time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM abandoned_cart WHERE created_at < ?`, toMillis(threshold))
	if err != nil {
		return 0, fmt.Errorf("delete carts older than %s: %w", threshold.Format(time.RFC3339), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete carts: rows affected: %w", err)
	}
	return n, nil
}
