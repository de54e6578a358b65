package model

import "time"

// Override is an immutable audit record of a user correction. Every override
// produces or updates exactly one Manual-tier rule. Conflicting overrides for
// the same vendor are resolved by recency; both records stay in the log.
type Override struct {
	CreatedAt     time.Time
	ID            string
	TransactionID string
	PreviousCode  string // Empty when the transaction was uncoded
	CorrectedCode string
	CreatedRuleID string
}
