package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oakmere/nominal/internal/common"
	"github.com/oakmere/nominal/internal/match"
	"github.com/oakmere/nominal/internal/model"
	"github.com/oakmere/nominal/internal/rules"
	"github.com/oakmere/nominal/internal/service"
)

// Config holds configuration options for the classification engine.
type Config struct {
	Threshold         float64
	MinRuleConfidence float64
	Workers           int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Threshold:         DefaultThreshold,
		MinRuleConfidence: match.DefaultMinRuleConfidence,
		Workers:           4,
	}
}

// Engine orchestrates learning passes and classification batches for one
// workspace. Learning mutates the rule store and must hold the workspace
// write lock; classification reads a frozen snapshot and runs concurrently.
type Engine struct {
	storage   service.Storage
	store     *rules.Store
	fuzzy     *match.FuzzyMatcher
	suggester service.Suggester
	config    Config
}

// New creates an engine with the default configuration.
func New(storage service.Storage, store *rules.Store) *Engine {
	return NewWithConfig(storage, store, nil, DefaultConfig())
}

// NewWithConfig creates an engine with a custom configuration and an optional
// suggestion source.
func NewWithConfig(storage service.Storage, store *rules.Store, suggester service.Suggester, config Config) *Engine {
	if config.Threshold <= 0 {
		config.Threshold = DefaultThreshold
	}
	if config.MinRuleConfidence <= 0 {
		config.MinRuleConfidence = match.DefaultMinRuleConfidence
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	return &Engine{
		storage:   storage,
		store:     store,
		fuzzy:     match.NewFuzzyMatcher(),
		suggester: suggester,
		config:    config,
	}
}

// Learn runs both learning passes over the workspace: smart cross-referencing
// of historical against incoming transactions, then historical frequency
// analysis for vendors the cross-reference could not see. Learned rules go
// through the store's resolution policy, so a manual rule is never displaced.
func (e *Engine) Learn(ctx context.Context) (service.LearnStats, error) {
	var stats service.LearnStats

	historical, err := e.storage.GetTransactions(ctx, service.TransactionFilter{Source: sourcePtr(model.SourceHistorical)})
	if err != nil {
		return stats, fmt.Errorf("failed to load historical transactions: %w", err)
	}
	if len(historical) == 0 {
		return stats, fmt.Errorf("%w: workspace has no historical data to learn from", common.ErrNoTransactions)
	}
	stats.HistoricalTransactions = len(historical)

	incoming, err := e.storage.GetTransactions(ctx, service.TransactionFilter{Source: sourcePtr(model.SourceIncoming)})
	if err != nil {
		return stats, fmt.Errorf("failed to load incoming transactions: %w", err)
	}

	now := time.Now()

	smart := match.NewSmartMatcher(historical)
	for _, rule := range smart.LearnRules(incoming, now) {
		if err := e.adoptRule(ctx, rule); err != nil {
			return stats, err
		}
		stats.SmartRules++
	}

	for _, rule := range match.LearnFrequencyRules(historical, e.config.MinRuleConfidence, now) {
		if existing, ok := e.store.Get(rule.VendorKey); ok && existing.Tier.Rank() >= model.TierSmartMatch.Rank() {
			// Exact evidence already covers this vendor.
			continue
		}
		if err := e.adoptRule(ctx, rule); err != nil {
			return stats, err
		}
		stats.FrequencyRules++
	}

	stats.UniqueVendors = e.store.Snapshot().Len()

	slog.Info("Learning pass complete",
		"historical", stats.HistoricalTransactions,
		"smart_rules", stats.SmartRules,
		"frequency_rules", stats.FrequencyRules,
		"active_vendors", stats.UniqueVendors)

	return stats, nil
}

// adoptRule inserts a learned rule and persists both it and any rule it
// displaced.
func (e *Engine) adoptRule(ctx context.Context, rule model.Rule) error {
	superseded := e.store.Upsert(rule)

	active, ok := e.store.Get(rule.VendorKey)
	if !ok || active.ID != rule.ID {
		// The newcomer lost the slot; archive it for audit.
		rule.Active = false
	}
	if err := e.storage.SaveRule(ctx, &rule); err != nil {
		return fmt.Errorf("failed to save rule for %q: %w", rule.VendorKey, err)
	}
	if superseded != nil && superseded.ID != rule.ID {
		if err := e.storage.ArchiveRule(ctx, superseded.ID); err != nil {
			return fmt.Errorf("failed to archive rule %s: %w", superseded.ID, err)
		}
	}
	return nil
}

// classified pairs a transaction with its outcome for the commit loop.
type classified struct {
	outcome model.Outcome
	txnID   string
	ruleID  string
}

// ClassifyBatch classifies every incoming transaction that is not overridden,
// against a snapshot taken at batch start. Classification itself runs across
// a worker pool; each outcome is committed as its own storage write, so an
// abort between transactions never leaves a half-updated record. The progress
// callback, if set, is invoked once per committed transaction.
func (e *Engine) ClassifyBatch(ctx context.Context, progress func()) (service.CompletionStats, error) {
	start := time.Now()
	var stats service.CompletionStats

	pending, err := e.pendingTransactions(ctx)
	if err != nil {
		return stats, err
	}
	if len(pending) == 0 {
		slog.Info("No transactions to classify")
		return stats, nil
	}

	historical, err := e.storage.GetTransactions(ctx, service.TransactionFilter{Source: sourcePtr(model.SourceHistorical)})
	if err != nil {
		return stats, fmt.Errorf("failed to load historical transactions: %w", err)
	}

	snapshot := e.store.Snapshot()
	classifier := NewClassifier(snapshot, match.NewSmartMatcher(historical), e.fuzzy, e.suggester, e.config.Threshold)

	slog.Info("Starting classification batch",
		"transactions", len(pending),
		"active_rules", snapshot.Len(),
		"threshold", e.config.Threshold,
		"workers", e.config.Workers)

	results := e.classifyAll(ctx, classifier, pending)

	var confidenceSum float64
	for _, r := range results {
		select {
		case <-ctx.Done():
			stats.Duration = time.Since(start)
			return stats, ctx.Err()
		default:
		}

		if err := e.storage.UpdateTransactionOutcome(ctx, r.txnID, r.outcome); err != nil {
			// Already-committed writes stay valid; report how far we got.
			stats.Duration = time.Since(start)
			return stats, fmt.Errorf("batch aborted after %d of %d transactions: %w",
				stats.Processed, len(results), err)
		}
		stats.Processed++

		switch o := r.outcome.(type) {
		case model.AutoCoded:
			stats.AutoCoded++
			confidenceSum += o.Confidence
			if r.ruleID != "" {
				if err := e.storage.TouchRule(ctx, r.ruleID, time.Now()); err != nil {
					slog.Warn("Failed to update rule stats", "rule_id", r.ruleID, "error", err)
				}
			}
		case model.Exception:
			stats.Exceptions++
		}

		if progress != nil {
			progress()
		}
	}

	if stats.AutoCoded > 0 {
		stats.AvgConfidence = confidenceSum / float64(stats.AutoCoded)
	}
	stats.Duration = time.Since(start)

	slog.Info("Classification batch complete",
		"processed", stats.Processed,
		"auto_coded", stats.AutoCoded,
		"exceptions", stats.Exceptions,
		"avg_confidence", fmt.Sprintf("%.2f", stats.AvgConfidence),
		"duration", stats.Duration)

	return stats, nil
}

// classifyAll fans transactions out over the worker pool. Workers only read
// the frozen snapshot, so no locking is needed; results come back in input
// order to keep the commit sequence deterministic.
func (e *Engine) classifyAll(ctx context.Context, classifier *Classifier, pending []model.Transaction) []classified {
	results := make([]classified, len(pending))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < e.config.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				txn := pending[i]
				outcome := classifier.Classify(ctx, &txn)
				r := classified{txnID: txn.ID, outcome: outcome}
				if coded, ok := outcome.(model.AutoCoded); ok {
					r.ruleID = coded.RuleID
				}
				results[i] = r
			}
		}()
	}

	for i := range pending {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

// pendingTransactions returns incoming transactions eligible for (re)coding.
// Overridden transactions keep their user-assigned code.
func (e *Engine) pendingTransactions(ctx context.Context) ([]model.Transaction, error) {
	incoming, err := e.storage.GetTransactions(ctx, service.TransactionFilter{Source: sourcePtr(model.SourceIncoming)})
	if err != nil {
		return nil, fmt.Errorf("failed to load incoming transactions: %w", err)
	}

	pending := make([]model.Transaction, 0, len(incoming))
	for _, txn := range incoming {
		if txn.Status == model.StatusOverridden {
			continue
		}
		pending = append(pending, txn)
	}
	return pending, nil
}

// Exceptions returns incoming transactions awaiting review.
func (e *Engine) Exceptions(ctx context.Context) ([]model.Transaction, error) {
	status := model.StatusException
	return e.storage.GetTransactions(ctx, service.TransactionFilter{
		Source: sourcePtr(model.SourceIncoming),
		Status: &status,
	})
}

func sourcePtr(s model.TransactionSource) *model.TransactionSource {
	return &s
}
