// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/oakmere/nominal/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	Source *model.TransactionSource
	Status *model.TransactionStatus
	Limit  int
}

// Storage defines the contract for the persistence layer. Implementations
// must make each per-transaction write an independently committed unit so an
// aborted batch leaves no inconsistent intermediate state.
type Storage interface {
	// Transaction operations
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	UpdateTransactionOutcome(ctx context.Context, id string, outcome model.Outcome) error

	// Rule operations
	GetActiveRule(ctx context.Context, vendorKey string) (*model.Rule, error)
	GetActiveRules(ctx context.Context) ([]model.Rule, error)
	SaveRule(ctx context.Context, rule *model.Rule) error
	ArchiveRule(ctx context.Context, id string) error
	TouchRule(ctx context.Context, id string, usedAt time.Time) error

	// Override operations
	AppendOverride(ctx context.Context, override *model.Override) error
	GetOverrides(ctx context.Context) ([]model.Override, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// Suggester is an optional, pre-computed suggestion source. Implementations
// never perform blocking I/O from inside the engine; suggestions are fetched
// ahead of time and served from memory. The engine must function with a nil
// Suggester.
type Suggester interface {
	Suggest(ctx context.Context, txn model.Transaction) ([]model.MatchCandidate, error)
}

// CompletionStats shows the results of a classification run.
type CompletionStats struct {
	Processed     int
	AutoCoded     int
	Exceptions    int
	AvgConfidence float64
	Duration      time.Duration
}

// LearnStats shows the results of a learning pass.
type LearnStats struct {
	HistoricalTransactions int
	SmartRules             int
	FrequencyRules         int
	UniqueVendors          int
}
