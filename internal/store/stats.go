package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Stats summarizes the abandoned cart table.
type Stats struct {
	TotalCount  int             `json:"totalCount"`
	TotalValue  decimal.Decimal `json:"totalValue"`
	TodayCount  int             `json:"todayCount"`
	TodayValue  decimal.Decimal `json:"todayValue"`
	Daily       []DailyStat     `json:"dailyStats"`
	TopProducts []ProductStat   `json:"topProducts"`
}

// DailyStat aggregates the carts created on one calendar day.
type DailyStat struct {
	Date  string          `json:"date"` // YYYY-MM-DD in the requested location
	Count int             `json:"count"`
	Value decimal.Decimal `json:"value"`
}

// ProductStat aggregates one product (or label, for line items whose
// product is gone) across abandoned carts.
type ProductStat struct {
	ProductID     *string         `json:"productId"`
	Label         string          `json:"label"`
	CartCount     int             `json:"count"`
	TotalQuantity int             `json:"totalQuantity"`
	TotalValue    decimal.Decimal `json:"totalValue"`
}

// Statistics computes totals, today's figures and per-day figures since
// since, with days bounded in loc, plus the topN most abandoned products.
func (s *Store) Statistics(ctx context.Context, now, since time.Time, loc *time.Location, topN int) (*Stats, error) {
	if loc == nil {
		loc = time.UTC
	}
	st := &Stats{Daily: []DailyStat{}, TopProducts: []ProductStat{}}

	var total float64
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_price), 0) FROM abandoned_cart
	`).Scan(&st.TotalCount, &total); err != nil {
		return nil, fmt.Errorf("statistics totals: %w", err)
	}
	st.TotalValue = money(total)

	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	tomorrow := today.AddDate(0, 0, 1)
	var todayValue float64
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_price), 0) FROM abandoned_cart
		WHERE created_at >= ? AND created_at < ?
	`, toMillis(today), toMillis(tomorrow)).Scan(&st.TodayCount, &todayValue); err != nil {
		return nil, fmt.Errorf("statistics today: %w", err)
	}
	st.TodayValue = money(todayValue)

	daily, err := s.dailyStats(ctx, since, loc)
	if err != nil {
		return nil, err
	}
	st.Daily = daily

	top, err := s.topProducts(ctx, topN)
	if err != nil {
		return nil, err
	}
	st.TopProducts = top
	return st, nil
}

// dailyStats buckets in Go rather than with SQLite date() so that days
// follow loc, DST transitions included.
func (s *Store) dailyStats(ctx context.Context, since time.Time, loc *time.Location) ([]DailyStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT created_at, total_price FROM abandoned_cart
		WHERE created_at >= ?
		ORDER BY created_at ASC
	`, toMillis(since))
	if err != nil {
		return nil, fmt.Errorf("statistics daily: %w", err)
	}
	defer rows.Close()

	out := []DailyStat{}
	for rows.Next() {
		var (
			createdAt int64
			price     float64
		)
		if err := rows.Scan(&createdAt, &price); err != nil {
			return nil, fmt.Errorf("scan daily stat: %w", err)
		}
		day := fromMillis(createdAt).In(loc).Format(time.DateOnly)
		if n := len(out); n > 0 && out[n-1].Date == day {
			out[n-1].Count++
			out[n-1].Value = out[n-1].Value.Add(decimal.NewFromFloat(price))
			continue
		}
		out = append(out, DailyStat{Date: day, Count: 1, Value: decimal.NewFromFloat(price)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily stats: %w", err)
	}
	for i := range out {
		out[i].Value = out[i].Value.Round(2)
	}
	return out, nil
}

func (s *Store) topProducts(ctx context.Context, limit int) ([]ProductStat, error) {
	if limit <= 0 {
		return []ProductStat{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT li.product_id, li.label,
		       COUNT(DISTINCT li.cart_id) AS cart_count,
		       SUM(li.quantity) AS total_quantity,
		       SUM(li.total_price) AS total_value
		FROM cart_line_item li
		GROUP BY li.product_id, li.label
		ORDER BY cart_count DESC, total_value DESC, li.label COLLATE BINARY ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("statistics top products: %w", err)
	}
	defer rows.Close()

	out := []ProductStat{}
	for rows.Next() {
		var (
			p         ProductStat
			productID sql.NullString
			value     float64
		)
		if err := rows.Scan(&productID, &p.Label, &p.CartCount, &p.TotalQuantity, &value); err != nil {
			return nil, fmt.Errorf("scan product stat: %w", err)
		}
		p.ProductID = fromNullString(productID)
		p.TotalValue = money(value)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product stats: %w", err)
	}
	return out, nil
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
