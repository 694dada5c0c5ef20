package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/cartrecovery/internal/model"
)

// InsertSalesChannel writes a sales channel, ignoring duplicates.
func (s *Store) InsertSalesChannel(ctx context.Context, ch model.SalesChannel) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sales_channel (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO NOTHING
	`, ch.ID, ch.Name)
	if err != nil {
		return fmt.Errorf("insert sales channel %s: %w", ch.ID, err)
	}
	return nil
}

// InsertCustomer writes a customer, ignoring duplicates.
func (s *Store) InsertCustomer(ctx context.Context, c model.Customer) error {
	fields, err := marshalFields(c.CustomFields)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO customer (id, email, first_name, last_name, custom_fields)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, c.ID, c.Email, c.FirstName, c.LastName, fields)
	if err != nil {
		return fmt.Errorf("insert customer %s: %w", c.ID, err)
	}
	return nil
}

// DeleteCustomer removes a customer and its tags. Carts keep the dangling ID.
func (s *Store) DeleteCustomer(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM customer WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete customer %s: %w", id, err)
	}
	return nil
}

// GetCustomer returns one customer.
func (s *Store) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	customers, err := s.customersByID(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	c, ok := customers[id]
	if !ok {
		return nil, fmt.Errorf("customer %s: %w", id, model.ErrNotFound)
	}
	return c, nil
}

func (s *Store) customersByID(ctx context.Context, ids []string) (map[string]*model.Customer, error) {
	out := make(map[string]*model.Customer, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := sq.Select("id", "email", "first_name", "last_name", "custom_fields").
		From("customer").
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build customer query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c      model.Customer
			fields string
		)
		if err := rows.Scan(&c.ID, &c.Email, &c.FirstName, &c.LastName, &fields); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		if c.CustomFields, err = unmarshalFields(fields); err != nil {
			return nil, fmt.Errorf("customer %s: %w", c.ID, err)
		}
		out[c.ID] = &c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}
	return out, nil
}

func (s *Store) salesChannelsByID(ctx context.Context, ids []string) (map[string]*model.SalesChannel, error) {
	out := make(map[string]*model.SalesChannel, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := sq.Select("id", "name").From("sales_channel").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sales channel query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sales channels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ch model.SalesChannel
		if err := rows.Scan(&ch.ID, &ch.Name); err != nil {
			return nil, fmt.Errorf("scan sales channel: %w", err)
		}
		out[ch.ID] = &ch
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales channels: %w", err)
	}
	return out, nil
}

// UpdateCustomFields replaces the customer's custom field map.
func (s *Store) UpdateCustomFields(ctx context.Context, id string, fields map[string]any) error {
	data, err := marshalFields(fields)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE customer SET custom_fields = ? WHERE id = ?`, data, id)
	if err != nil {
		return fmt.Errorf("update custom fields of customer %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("customer %s: %w", id, model.ErrNotFound)
	}
	return nil
}

// CustomerTagIDs returns the customer's tags ordered by tag ID.
func (s *Store) CustomerTagIDs(ctx context.Context, customerID string) ([]string, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM customer WHERE id = ?`, customerID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("customer %s: %w", customerID, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup customer %s: %w", customerID, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT tag_id FROM customer_tag WHERE customer_id = ? ORDER BY tag_id COLLATE BINARY ASC
	`, customerID)
	if err != nil {
		return nil, fmt.Errorf("query customer tags: %w", err)
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("scan customer tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customer tags: %w", err)
	}
	return tags, nil
}

// AddCustomerTag tags a customer. Re-adding a present tag is a no-op.
func (s *Store) AddCustomerTag(ctx context.Context, customerID, tagID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customer_tag (customer_id, tag_id) VALUES (?, ?)
		ON CONFLICT DO NOTHING
	`, customerID, tagID)
	if err != nil {
		return fmt.Errorf("add tag %s to customer %s: %w", tagID, customerID, err)
	}
	return nil
}

// RemoveCustomerTag untags a customer. Removing an absent tag is a no-op.
func (s *Store) RemoveCustomerTag(ctx context.Context, customerID, tagID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM customer_tag WHERE customer_id = ? AND tag_id = ?`, customerID, tagID)
	if err != nil {
		return fmt.Errorf("remove tag %s from customer %s: %w", tagID, customerID, err)
	}
	return nil
}
