package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/oakmere/nominal/internal/model"
	"github.com/oakmere/nominal/internal/normalize"
	"github.com/oakmere/nominal/internal/rules"
	"github.com/oakmere/nominal/internal/service"
)

// OverrideLearner consumes user corrections. Each correction appends an
// immutable override record and creates or replaces a Manual-tier rule, which
// the rule store's resolution policy immediately promotes over any learned
// rule for the same vendor. This is the system's only feedback mechanism.
type OverrideLearner struct {
	storage service.Storage
	store   *rules.Store
	now     func() time.Time
}

// NewOverrideLearner creates an override learner writing through the given
// storage and rule store.
func NewOverrideLearner(storage service.Storage, store *rules.Store) *OverrideLearner {
	return &OverrideLearner{
		storage: storage,
		store:   store,
		now:     time.Now,
	}
}

// Apply records a correction for a transaction and returns the Manual rule it
// produced. Calling it repeatedly for the same vendor with different codes is
// safe: later corrections supersede earlier ones by recency, and every
// correction stays in the audit log. Other already-coded transactions are not
// touched; they pick up the new rule on their next classification pass.
func (l *OverrideLearner) Apply(ctx context.Context, transactionID, correctedCode string) (*model.Rule, error) {
	if correctedCode == "" {
		return nil, fmt.Errorf("corrected code is required")
	}

	txn, err := l.storage.GetTransactionByID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction %s: %w", transactionID, err)
	}

	vendorKey := txn.NormalizedVendor
	if vendorKey == "" {
		vendorKey, err = normalize.Vendor(txn.RawDescription)
		if err != nil {
			return nil, fmt.Errorf("transaction %s has no usable description: %w", transactionID, err)
		}
	}

	now := l.now()
	rule := model.Rule{
		ID:           uuid.NewString(),
		VendorKey:    vendorKey,
		NominalCode:  correctedCode,
		Tier:         model.TierManual,
		Confidence:   1.0,
		SupportCount: 1,
		CreatedAt:    now,
		Active:       true,
	}
	if existing, ok := l.store.Get(vendorKey); ok && existing.Tier == model.TierManual {
		// Repeat correction for the same vendor keeps the observation count.
		rule.SupportCount = existing.SupportCount + 1
	}

	override := model.Override{
		ID:            uuid.NewString(),
		TransactionID: txn.ID,
		PreviousCode:  txn.NominalCode,
		CorrectedCode: correctedCode,
		CreatedRuleID: rule.ID,
		CreatedAt:     now,
	}
	if err := l.storage.AppendOverride(ctx, &override); err != nil {
		return nil, fmt.Errorf("failed to append override: %w", err)
	}

	superseded := l.store.Upsert(rule)
	if err := l.storage.SaveRule(ctx, &rule); err != nil {
		return nil, fmt.Errorf("failed to save manual rule: %w", err)
	}
	if superseded != nil {
		if err := l.storage.ArchiveRule(ctx, superseded.ID); err != nil {
			return nil, fmt.Errorf("failed to archive superseded rule: %w", err)
		}
		slog.Info("Superseded rule",
			"vendor", vendorKey,
			"old_tier", superseded.Tier,
			"old_code", superseded.NominalCode,
			"new_code", correctedCode)
	}

	outcome := model.Overridden{NominalCode: correctedCode, OverrideID: override.ID}
	if err := l.storage.UpdateTransactionOutcome(ctx, txn.ID, outcome); err != nil {
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}

	slog.Info("Applied override",
		"transaction_id", txn.ID,
		"vendor", vendorKey,
		"code", correctedCode)

	return &rule, nil
}
