// Package model defines the core domain models used throughout the application.
package model

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionSource indicates which dataset a transaction belongs to.
type TransactionSource string

const (
	// SourceHistorical marks transactions from the already-coded dataset.
	SourceHistorical TransactionSource = "HISTORICAL"
	// SourceIncoming marks transactions awaiting a nominal code.
	SourceIncoming TransactionSource = "INCOMING"
)

// TransactionStatus indicates where a transaction is in the coding lifecycle.
type TransactionStatus string

// Transaction status constants.
const (
	StatusUnclassified TransactionStatus = "UNCLASSIFIED"
	StatusAutoCoded    TransactionStatus = "AUTO_CODED"
	StatusException    TransactionStatus = "EXCEPTION"
	StatusOverridden   TransactionStatus = "OVERRIDDEN"
)

// Transaction represents a single bank transaction from either dataset.
type Transaction struct {
	Date             time.Time
	ID               string
	RawDescription   string // Untouched statement text
	NormalizedVendor string // Output of normalize.Vendor
	NominalCode      string // Empty until coded
	SuggestedCode    string // Best low-confidence candidate kept on exceptions
	MatchedRuleID    string
	Source           TransactionSource
	Status           TransactionStatus
	Amount           decimal.Decimal // Signed, fixed precision
	Confidence       float64
}

// AmountKey returns the canonical amount used for cross-referencing:
// absolute value rounded to two decimal places. Historical exports carry
// magnitude plus a type flag while bank feeds carry signed values, so the
// sign must never participate in matching.
func (t *Transaction) AmountKey() string {
	return t.Amount.Abs().Round(2).StringFixed(2)
}

// GenerateHash creates a stable hash for duplicate detection on import.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%s:%s:%s",
		t.Date.Format("2006-01-02"),
		t.Amount.StringFixed(2),
		t.RawDescription,
		t.Source)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
