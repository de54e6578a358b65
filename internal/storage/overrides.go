package storage

import (
	"context"
	"fmt"

	"github.com/oakmere/nominal/internal/common"
	"github.com/oakmere/nominal/internal/model"
)

// AppendOverride records a user correction. The override log is append-only;
// there is no update or delete path.
func (s *SQLiteStorage) AppendOverride(ctx context.Context, override *model.Override) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateOverride(override); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO overrides (id, transaction_id, previous_code, corrected_code, created_rule_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, override.ID, override.TransactionID, override.PreviousCode,
		override.CorrectedCode, override.CreatedRuleID, override.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: failed to append override: %v", common.ErrPersistence, err)
	}
	return nil
}

// GetOverrides returns the full override audit log in creation order.
func (s *SQLiteStorage) GetOverrides(ctx context.Context) ([]model.Override, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, previous_code, corrected_code, created_rule_id, created_at
		FROM overrides ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query overrides: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Override
	for rows.Next() {
		var o model.Override
		if err := rows.Scan(&o.ID, &o.TransactionID, &o.PreviousCode,
			&o.CorrectedCode, &o.CreatedRuleID, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan override: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
