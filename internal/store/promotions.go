package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/cartrecovery/internal/model"
)

// InsertPromotion writes a promotion, ignoring duplicates.
func (s *Store) InsertPromotion(ctx context.Context, p model.Promotion) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO promotion (id, name, use_individual_codes) VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, p.ID, p.Name, p.UseIndividualCodes)
	if err != nil {
		return fmt.Errorf("insert promotion %s: %w", p.ID, err)
	}
	return nil
}

// GetPromotion returns one promotion.
func (s *Store) GetPromotion(ctx context.Context, id string) (*model.Promotion, error) {
	var p model.Promotion
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, use_individual_codes FROM promotion WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.UseIndividualCodes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("promotion %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get promotion %s: %w", id, err)
	}
	return &p, nil
}

// CreatePromotionCode stores a generated individual code. A code already
// issued for the same promotion is rejected by the unique constraint.
func (s *Store) CreatePromotionCode(ctx context.Context, code model.PromotionCode) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO promotion_code (id, promotion_id, code) VALUES (?, ?, ?)
	`, code.ID, code.PromotionID, code.Code)
	if err != nil {
		return fmt.Errorf("create code for promotion %s: %w", code.PromotionID, err)
	}
	return nil
}

// PromotionCodes returns the codes issued for a promotion, ordered by code.
func (s *Store) PromotionCodes(ctx context.Context, promotionID string) ([]model.PromotionCode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, promotion_id, code FROM promotion_code
		WHERE promotion_id = ?
		ORDER BY code COLLATE BINARY ASC
	`, promotionID)
	if err != nil {
		return nil, fmt.Errorf("query promotion codes: %w", err)
	}
	defer rows.Close()

	codes := []model.PromotionCode{}
	for rows.Next() {
		var c model.PromotionCode
		if err := rows.Scan(&c.ID, &c.PromotionID, &c.Code); err != nil {
			return nil, fmt.Errorf("scan promotion code: %w", err)
		}
		codes = append(codes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate promotion codes: %w", err)
	}
	return codes, nil
}
