// Package rules holds the authoritative set of vendor-to-code rules, one
// active slot per vendor key. Components interact only through Get, Upsert
// and Snapshot; nothing reaches into the store's internals.
package rules

import (
	"sort"
	"sync"

	"github.com/oakmere/nominal/internal/model"
)

// Store resolves competing rules for a vendor key. Manual always wins; among
// equal tiers the higher confidence wins; on an exact tie the most recently
// created wins. Losers are archived for audit and excluded from lookup.
type Store struct {
	active   map[string]model.Rule
	archived []model.Rule
	mu       sync.RWMutex
}

// NewStore creates an empty rule store.
func NewStore() *Store {
	return &Store{active: make(map[string]model.Rule)}
}

// Load builds a store from persisted rules, replaying the resolution policy
// so the active set is identical regardless of load order.
func Load(persisted []model.Rule) *Store {
	s := NewStore()
	// Archived rules stay archived; only previously-active rules compete.
	for _, r := range persisted {
		if !r.Active {
			s.archived = append(s.archived, r)
			continue
		}
		s.Upsert(r)
	}
	return s
}

// Get returns the active rule for a vendor key, if any. This is the only
// read path the classifier uses.
func (s *Store) Get(vendorKey string) (*model.Rule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, ok := s.active[vendorKey]
	if !ok {
		return nil, false
	}
	return &rule, true
}

// Upsert inserts a rule, resolving any conflict with the current active rule
// for the same vendor key. It returns the rule that lost the slot, if any,
// so callers can persist the archival.
func (s *Store) Upsert(rule model.Rule) (superseded *model.Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule.Active = true
	current, ok := s.active[rule.VendorKey]
	if !ok {
		s.active[rule.VendorKey] = rule
		return nil
	}

	if rule.Outranks(&current) {
		current.Active = false
		s.archived = append(s.archived, current)
		s.active[rule.VendorKey] = rule
		return &current
	}

	rule.Active = false
	s.archived = append(s.archived, rule)
	return &rule
}

// Active returns the active rules sorted by vendor key.
func (s *Store) Active() []model.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Rule, 0, len(s.active))
	for _, rule := range s.active {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VendorKey < out[j].VendorKey })
	return out
}

// Archived returns superseded rules, kept for audit only.
func (s *Store) Archived() []model.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Rule, len(s.archived))
	copy(out, s.archived)
	return out
}

// Snapshot returns an immutable view of the active rule set. A classification
// pass works entirely from one snapshot, which makes re-running it idempotent
// and lets independent transactions classify concurrently without locking.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make(map[string]model.Rule, len(s.active))
	for k, v := range s.active {
		active[k] = v
	}
	return &Snapshot{active: active}
}

// Snapshot is a frozen copy of the active rule set.
type Snapshot struct {
	active map[string]model.Rule
}

// Get returns the active rule for a vendor key at snapshot time.
func (s *Snapshot) Get(vendorKey string) (*model.Rule, bool) {
	rule, ok := s.active[vendorKey]
	if !ok {
		return nil, false
	}
	return &rule, true
}

// Rules returns all rules in the snapshot sorted by vendor key.
func (s *Snapshot) Rules() []model.Rule {
	out := make([]model.Rule, 0, len(s.active))
	for _, rule := range s.active {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VendorKey < out[j].VendorKey })
	return out
}

// Len returns the number of active rules in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.active)
}
