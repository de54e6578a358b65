package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oakmere/nominal/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrEmptySlice         = errors.New("slice cannot be empty")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidRule        = errors.New("invalid rule")
	ErrInvalidOverride    = errors.New("invalid override")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransactions validates a slice of transactions.
func validateTransactions(transactions []model.Transaction) error {
	if transactions == nil {
		return fmt.Errorf("%w: transactions", ErrNilParameter)
	}
	if len(transactions) == 0 {
		return fmt.Errorf("%w: transactions", ErrEmptySlice)
	}

	for i, txn := range transactions {
		if err := validateTransaction(&txn); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTransaction)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if strings.TrimSpace(txn.RawDescription) == "" {
		return fmt.Errorf("%w: missing description", ErrInvalidTransaction)
	}
	if txn.Source != model.SourceHistorical && txn.Source != model.SourceIncoming {
		return fmt.Errorf("%w: unknown source %q", ErrInvalidTransaction, txn.Source)
	}
	if txn.Source == model.SourceHistorical && txn.NominalCode == "" {
		return fmt.Errorf("%w: historical transaction without nominal code", ErrInvalidTransaction)
	}
	return nil
}

// validateRule validates a rule before persisting it.
func validateRule(rule *model.Rule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if rule.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidRule)
	}
	if rule.VendorKey == "" {
		return fmt.Errorf("%w: missing vendor key", ErrInvalidRule)
	}
	if rule.NominalCode == "" {
		return fmt.Errorf("%w: missing nominal code", ErrInvalidRule)
	}
	if rule.Tier.Rank() == 0 {
		return fmt.Errorf("%w: unknown tier %q", ErrInvalidRule, rule.Tier)
	}
	if rule.Confidence < 0 || rule.Confidence > 1 {
		return fmt.Errorf("%w: confidence %f out of range", ErrInvalidRule, rule.Confidence)
	}
	return nil
}

// validateOverride validates an override record.
func validateOverride(override *model.Override) error {
	if override == nil {
		return fmt.Errorf("%w: override", ErrNilParameter)
	}
	if override.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidOverride)
	}
	if override.TransactionID == "" {
		return fmt.Errorf("%w: missing transaction ID", ErrInvalidOverride)
	}
	if override.CorrectedCode == "" {
		return fmt.Errorf("%w: missing corrected code", ErrInvalidOverride)
	}
	return nil
}
