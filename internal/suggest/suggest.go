// Package suggest serves pre-computed classification suggestions, typically
// produced by an external model run ahead of time. The engine treats them as
// fuzzy-tier candidates with capped confidence and functions identically with
// none available.
package suggest

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/oakmere/nominal/internal/model"
)

// Suggestion is one pre-computed (code, confidence, rationale) entry for a
// vendor key.
type Suggestion struct {
	VendorKey   string  `yaml:"vendor_key"`
	NominalCode string  `yaml:"nominal_code"`
	Confidence  float64 `yaml:"confidence"`
	Rationale   string  `yaml:"rationale,omitempty"`
}

// StaticSuggester serves suggestions from memory, keyed by vendor key.
type StaticSuggester struct {
	byVendor map[string][]Suggestion
}

// New builds a suggester from a list of pre-computed suggestions.
func New(suggestions []Suggestion) *StaticSuggester {
	byVendor := make(map[string][]Suggestion)
	for _, s := range suggestions {
		byVendor[s.VendorKey] = append(byVendor[s.VendorKey], s)
	}
	for vendor := range byVendor {
		list := byVendor[vendor]
		sort.Slice(list, func(i, j int) bool {
			if list[i].Confidence != list[j].Confidence {
				return list[i].Confidence > list[j].Confidence
			}
			return list[i].NominalCode < list[j].NominalCode
		})
		byVendor[vendor] = list
	}
	return &StaticSuggester{byVendor: byVendor}
}

// FromFile loads a YAML file of pre-computed suggestions.
func FromFile(path string) (*StaticSuggester, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suggestions file: %w", err)
	}

	var suggestions []Suggestion
	if err := yaml.Unmarshal(data, &suggestions); err != nil {
		return nil, fmt.Errorf("failed to parse suggestions file: %w", err)
	}
	return New(suggestions), nil
}

// Suggest implements service.Suggester. It performs no I/O.
func (s *StaticSuggester) Suggest(_ context.Context, txn model.Transaction) ([]model.MatchCandidate, error) {
	entries := s.byVendor[txn.NormalizedVendor]
	if len(entries) == 0 {
		return nil, nil
	}

	candidates := make([]model.MatchCandidate, 0, len(entries))
	for _, e := range entries {
		candidates = append(candidates, model.MatchCandidate{
			VendorKey:   e.VendorKey,
			NominalCode: e.NominalCode,
			Tier:        model.TierFuzzyMatch,
			Score:       e.Confidence,
		})
	}
	return candidates, nil
}
