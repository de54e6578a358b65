package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oakmere/nominal/internal/common"
	"github.com/oakmere/nominal/internal/model"
)

// SaveRule inserts or updates a rule. When the rule is active, any other
// active rule for the same vendor key is archived first so the single-slot
// invariant holds at the database level too.
func (s *SQLiteStorage) SaveRule(ctx context.Context, rule *model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", common.ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback() }()

	if rule.Active {
		if _, err := tx.ExecContext(ctx, `
			UPDATE rules SET active = 0 WHERE vendor_key = ? AND active = 1 AND id != ?
		`, rule.VendorKey, rule.ID); err != nil {
			return fmt.Errorf("%w: failed to displace active rule for %q: %v", common.ErrPersistence, rule.VendorKey, err)
		}
	}

	var lastUsed any
	if !rule.LastUsed.IsZero() {
		lastUsed = rule.LastUsed
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO rules (id, vendor_key, nominal_code, tier, confidence, support_count, active, created_at, last_used)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			nominal_code = excluded.nominal_code,
			confidence = excluded.confidence,
			support_count = excluded.support_count,
			active = excluded.active,
			last_used = excluded.last_used
	`, rule.ID, rule.VendorKey, rule.NominalCode, rule.Tier, rule.Confidence,
		rule.SupportCount, rule.Active, rule.CreatedAt, lastUsed); err != nil {
		return fmt.Errorf("%w: failed to save rule for %q: %v", common.ErrPersistence, rule.VendorKey, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit rule: %v", common.ErrPersistence, err)
	}
	return nil
}

// GetActiveRule returns the active rule for a vendor key.
func (s *SQLiteStorage) GetActiveRule(ctx context.Context, vendorKey string) (*model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(vendorKey, "vendorKey"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, vendor_key, nominal_code, tier, confidence, support_count, active, created_at, last_used
		FROM rules WHERE vendor_key = ? AND active = 1
	`, vendorKey)

	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: rule for %q", common.ErrNotFound, vendorKey)
	}
	return rule, err
}

// GetActiveRules returns every active rule ordered by vendor key.
func (s *SQLiteStorage) GetActiveRules(ctx context.Context) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, vendor_key, nominal_code, tier, confidence, support_count, active, created_at, last_used
		FROM rules WHERE active = 1 ORDER BY vendor_key
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rule)
	}
	return out, rows.Err()
}

// ArchiveRule marks a rule inactive. Rules are never deleted.
func (s *SQLiteStorage) ArchiveRule(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `UPDATE rules SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: failed to archive rule %s: %v", common.ErrPersistence, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: rule %s", common.ErrNotFound, id)
	}
	return nil
}

// TouchRule bumps a rule's usage statistics after it auto-coded a
// transaction.
func (s *SQLiteStorage) TouchRule(ctx context.Context, id string, usedAt time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE rules SET support_count = support_count + 1, last_used = ? WHERE id = ?
	`, usedAt, id)
	if err != nil {
		return fmt.Errorf("%w: failed to touch rule %s: %v", common.ErrPersistence, id, err)
	}
	return nil
}

func scanRule(row rowScanner) (*model.Rule, error) {
	var rule model.Rule
	var lastUsed sql.NullTime

	err := row.Scan(&rule.ID, &rule.VendorKey, &rule.NominalCode, &rule.Tier,
		&rule.Confidence, &rule.SupportCount, &rule.Active, &rule.CreatedAt, &lastUsed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan rule: %w", err)
	}
	if lastUsed.Valid {
		rule.LastUsed = lastUsed.Time
	}
	return &rule, nil
}
