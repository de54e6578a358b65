package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/oakmere/nominal/internal/common"
	"github.com/oakmere/nominal/internal/model"
	"github.com/oakmere/nominal/internal/service"
)

// SaveTransactions persists a batch of transactions inside one database
// transaction. Duplicate hashes are skipped so re-importing a statement is
// harmless.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", common.ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range transactions {
		txn := &transactions[i]
		if txn.Status == "" {
			txn.Status = model.StatusUnclassified
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO transactions
				(id, hash, date, raw_description, normalized_vendor, amount,
				 source, nominal_code, confidence, status, matched_rule_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(hash) DO NOTHING
		`, txn.ID, txn.GenerateHash(), txn.Date, txn.RawDescription,
			txn.NormalizedVendor, txn.Amount.StringFixed(2), txn.Source,
			txn.NominalCode, txn.Confidence, txn.Status, txn.MatchedRuleID)
		if err != nil {
			return fmt.Errorf("%w: failed to save transaction %s: %v", common.ErrPersistence, txn.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit transactions: %v", common.ErrPersistence, err)
	}
	return nil
}

// GetTransactions returns transactions matching the filter, ordered by date
// then ID so repeated reads are deterministic.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, hash, date, raw_description, normalized_vendor, amount,
		       source, nominal_code, suggested_code, confidence, status, matched_rule_id
		FROM transactions WHERE 1=1`
	var args []any
	if filter.Source != nil {
		query += ` AND source = ?`
		args = append(args, *filter.Source)
	}
	if filter.Status != nil {
		query += ` AND status = ?`
		args = append(args, *filter.Status)
	}
	query += ` ORDER BY date, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *txn)
	}
	return transactions, rows.Err()
}

// GetTransactionByID retrieves a single transaction.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, hash, date, raw_description, normalized_vendor, amount,
		       source, nominal_code, suggested_code, confidence, status, matched_rule_id
		FROM transactions WHERE id = ?
	`, id)

	txn, err := scanTransactionRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: transaction %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// UpdateTransactionOutcome commits one classification result. Each call is a
// single statement, so a batch aborted between calls leaves every previously
// written record valid and no record half-updated.
func (s *SQLiteStorage) UpdateTransactionOutcome(ctx context.Context, id string, outcome model.Outcome) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	var res sql.Result
	var err error

	switch o := outcome.(type) {
	case model.AutoCoded:
		res, err = s.db.ExecContext(ctx, `
			UPDATE transactions
			SET nominal_code = ?, confidence = ?, status = ?, matched_rule_id = ?, suggested_code = ''
			WHERE id = ?
		`, o.NominalCode, o.Confidence, model.StatusAutoCoded, o.RuleID, id)
	case model.Exception:
		suggested := ""
		confidence := 0.0
		if len(o.BestCandidates) > 0 {
			suggested = o.BestCandidates[0].NominalCode
			confidence = o.BestCandidates[0].Score
		}
		res, err = s.db.ExecContext(ctx, `
			UPDATE transactions
			SET nominal_code = '', confidence = ?, status = ?, matched_rule_id = '', suggested_code = ?
			WHERE id = ?
		`, confidence, model.StatusException, suggested, id)
	case model.Overridden:
		res, err = s.db.ExecContext(ctx, `
			UPDATE transactions
			SET nominal_code = ?, confidence = 1.0, status = ?, matched_rule_id = '', suggested_code = ''
			WHERE id = ?
		`, o.NominalCode, model.StatusOverridden, id)
	default:
		return fmt.Errorf("unknown outcome type %T", outcome)
	}

	if err != nil {
		return fmt.Errorf("%w: failed to update transaction %s: %v", common.ErrPersistence, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: transaction %s", common.ErrNotFound, id)
	}
	return nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(rows *sql.Rows) (*model.Transaction, error) {
	return scanTransactionRow(rows)
}

func scanTransactionRow(row rowScanner) (*model.Transaction, error) {
	var txn model.Transaction
	var hash, amount string
	var date time.Time

	err := row.Scan(&txn.ID, &hash, &date, &txn.RawDescription,
		&txn.NormalizedVendor, &amount, &txn.Source, &txn.NominalCode,
		&txn.SuggestedCode, &txn.Confidence, &txn.Status, &txn.MatchedRuleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	txn.Date = date
	txn.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("corrupt amount %q for transaction %s: %w", amount, txn.ID, err)
	}
	return &txn, nil
}
