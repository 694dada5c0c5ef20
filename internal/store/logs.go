package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/cartrecovery/internal/model"
)

// RecordExecution writes a success log and advances the cart's automation
// counters in one transaction: automation_count += 1 and
// last_automation_at = log.CreatedAt. Nothing is written if either step fails.
func (s *Store) RecordExecution(ctx context.Context, log model.ExecutionLog) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertLog(ctx, tx, log); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE abandoned_cart
			SET automation_count = automation_count + 1, last_automation_at = ?
			WHERE id = ?
		`, toMillis(log.CreatedAt), log.CartID)
		if err != nil {
			return fmt.Errorf("update automation counters of cart %s: %w", log.CartID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update automation counters: rows affected: %w", err)
		}
		if n != 1 {
			return fmt.Errorf("update automation counters of cart %s: %w", log.CartID, model.ErrNotFound)
		}
		return nil
	})
}

// InsertLog writes a log row without touching the cart. Used for error logs.
func (s *Store) InsertLog(ctx context.Context, log model.ExecutionLog) error {
	return insertLog(ctx, s.db, log)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertLog(ctx context.Context, db execer, log model.ExecutionLog) error {
	results, err := json.Marshal(log.ActionResults)
	if err != nil {
		return fmt.Errorf("marshal action results: %w", err)
	}
	var errText sql.NullString
	if log.Error != "" {
		errText = sql.NullString{String: log.Error, Valid: true}
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO automation_log
		(id, automation_id, abandoned_cart_id, customer_id, status, action_results, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		log.ID,
		log.RuleID,
		log.CartID,
		log.CustomerID,
		log.Status,
		string(results),
		errText,
		toMillis(log.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert log %s: %w", log.ID, err)
	}
	return nil
}

// LogFilter narrows ListLogs. Zero values match everything.
type LogFilter struct {
	RuleID string
	CartID string
	Status string
	Limit  uint64
}

// ListLogs returns logs newest first, ties broken by ID descending.
func (s *Store) ListLogs(ctx context.Context, f LogFilter) ([]model.ExecutionLog, error) {
	q := sq.Select("id", "automation_id", "abandoned_cart_id", "customer_id", "status", "action_results", "error", "created_at").
		From("automation_log").
		OrderBy("created_at DESC", "id COLLATE BINARY DESC")
	if f.RuleID != "" {
		q = q.Where(sq.Eq{"automation_id": f.RuleID})
	}
	if f.CartID != "" {
		q = q.Where(sq.Eq{"abandoned_cart_id": f.CartID})
	}
	if f.Status != "" {
		q = q.Where(sq.Eq{"status": f.Status})
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build log query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	logs := []model.ExecutionLog{}
	for rows.Next() {
		var (
			log       model.ExecutionLog
			results   string
			errText   sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&log.ID, &log.RuleID, &log.CartID, &log.CustomerID, &log.Status, &results, &errText, &createdAt); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		if err := json.Unmarshal([]byte(results), &log.ActionResults); err != nil {
			return nil, fmt.Errorf("log %s: unmarshal action results: %w", log.ID, err)
		}
		log.Error = errText.String
		log.CreatedAt = fromMillis(createdAt)
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate logs: %w", err)
	}
	return logs, nil
}
