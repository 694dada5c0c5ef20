package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/cartrecovery/internal/model"
)

const ruleColumns = `id, name, active, priority, conditions, actions, sales_channel_id, created_at`

// ActiveRules returns the active rules in evaluation order:
// priority DESC, created_at ASC, id ASC COLLATE BINARY.
func (s *Store) ActiveRules(ctx context.Context) ([]model.Rule, error) {
	return s.queryRules(ctx, `
		SELECT `+ruleColumns+`
		FROM automation_rule
		WHERE active = 1
		ORDER BY priority DESC, created_at ASC, id COLLATE BINARY ASC
	`)
}

// ListRules returns every rule, active or not, in evaluation order.
func (s *Store) ListRules(ctx context.Context) ([]model.Rule, error) {
	return s.queryRules(ctx, `
		SELECT `+ruleColumns+`
		FROM automation_rule
		ORDER BY priority DESC, created_at ASC, id COLLATE BINARY ASC
	`)
}

// GetRule returns one rule.
func (s *Store) GetRule(ctx context.Context, id string) (*model.Rule, error) {
	rule, err := scanRule(s.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM automation_rule WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (s *Store) queryRules(ctx context.Context, query string, args ...any) ([]model.Rule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	rules := []model.Rule{}
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	return rules, nil
}

func scanRule(row scanner) (model.Rule, error) {
	var (
		rule       model.Rule
		conditions string
		actions    string
		channel    sql.NullString
		createdAt  int64
	)
	if err := row.Scan(&rule.ID, &rule.Name, &rule.Active, &rule.Priority, &conditions, &actions, &channel, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rule, err
		}
		return rule, fmt.Errorf("scan rule: %w", err)
	}
	var err error
	if rule.Conditions, err = unmarshalConfigs("conditions", conditions); err != nil {
		return rule, fmt.Errorf("rule %s: %w", rule.ID, err)
	}
	if rule.Actions, err = unmarshalConfigs("actions", actions); err != nil {
		return rule, fmt.Errorf("rule %s: %w", rule.ID, err)
	}
	rule.SalesChannelID = fromNullString(channel)
	rule.CreatedAt = fromMillis(createdAt)
	return rule, nil
}

// UpsertRule inserts a rule or replaces the definition of an existing one.
// The original created_at is kept so tie-break order is stable across edits.
func (s *Store) UpsertRule(ctx context.Context, rule model.Rule, now time.Time) error {
	conditions, err := marshalConfigs("conditions", rule.Conditions)
	if err != nil {
		return err
	}
	actions, err := marshalConfigs("actions", rule.Actions)
	if err != nil {
		return err
	}
	created := rule.CreatedAt
	if created.IsZero() {
		created = now
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO automation_rule
		(id, name, active, priority, conditions, actions, sales_channel_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			active = excluded.active,
			priority = excluded.priority,
			conditions = excluded.conditions,
			actions = excluded.actions,
			sales_channel_id = excluded.sales_channel_id,
			updated_at = ?
	`,
		rule.ID,
		rule.Name,
		rule.Active,
		rule.Priority,
		conditions,
		actions,
		nullString(rule.SalesChannelID),
		toMillis(created),
		toMillis(now),
	)
	if err != nil {
		return fmt.Errorf("upsert rule %s: %w", rule.ID, err)
	}
	return nil
}

// DeleteRule removes a rule. Existing logs keep their automation_id.
func (s *Store) DeleteRule(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM automation_rule WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete rule %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("rule %s: %w", id, model.ErrNotFound)
	}
	return nil
}
