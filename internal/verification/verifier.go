// Package verification checks that stored feature rows match a fresh rebuild.
// Rows are compared by fingerprint first and field by field on mismatch.
package verification

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"

	"sports-feature-lab/internal/domain"
	"sports-feature-lab/internal/idhash"
	"sports-feature-lab/internal/storage"
)

// FloatTolerance is the tolerance for feature value comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and rebuilt values.
type FieldDivergence struct {
	Field    string // column name
	Expected any    // stored value
	Actual   any    // rebuilt value
}

func (d FieldDivergence) String() string {
	return fmt.Sprintf("%s: stored %v, rebuilt %v", d.Field, show(d.Expected), show(d.Actual))
}

// VerificationResult contains the result of verifying one contest.
type VerificationResult struct {
	ContestID   int64
	Match       bool
	Divergences []FieldDivergence
}

// VerificationReport contains results for a set of rebuilt rows.
type VerificationReport struct {
	TotalRows      int
	MatchedRows    int
	DivergentRows  int
	MissingInStore []int64              // rebuilt but not stored
	ExtraInStore   []int64              // stored but not rebuilt, full scope only
	Results        []VerificationResult // divergent rows only, by contest id
}

// OK reports whether the store matches the rebuild exactly.
func (r *VerificationReport) OK() bool {
	return r.DivergentRows == 0 && len(r.MissingInStore) == 0 && len(r.ExtraInStore) == 0
}

// Verifier compares rebuilt rows with a feature store.
type Verifier struct {
	store storage.FeatureStore
}

// NewVerifier creates a Verifier.
func NewVerifier(store storage.FeatureStore) *Verifier {
	return &Verifier{store: store}
}

// VerifyAll compares the whole store with the rows of a full rebuild.
// Stored rows that the rebuild no longer produces are reported as extra.
func (v *Verifier) VerifyAll(ctx context.Context, rebuilt []*domain.FeatureRow) (*VerificationReport, error) {
	stored, err := v.store.Query(ctx, storage.FeatureFilter{})
	if err != nil {
		return nil, fmt.Errorf("query stored rows: %w", err)
	}
	return compare(stored, rebuilt, true), nil
}

// VerifyRows compares only the contests present in rebuilt, as produced by an
// incremental delta.
func (v *Verifier) VerifyRows(ctx context.Context, rebuilt []*domain.FeatureRow) (*VerificationReport, error) {
	if len(rebuilt) == 0 {
		return &VerificationReport{}, nil
	}
	ids := make([]int64, len(rebuilt))
	for i, r := range rebuilt {
		ids[i] = r.ContestID()
	}
	stored, err := v.store.Query(ctx, storage.FeatureFilter{IDs: ids})
	if err != nil {
		return nil, fmt.Errorf("query stored rows: %w", err)
	}
	return compare(stored, rebuilt, false), nil
}

func compare(stored, rebuilt []*domain.FeatureRow, full bool) *VerificationReport {
	byID := make(map[int64]*domain.FeatureRow, len(stored))
	for _, r := range stored {
		byID[r.ContestID()] = r
	}

	report := &VerificationReport{TotalRows: len(rebuilt)}
	seen := make(map[int64]bool, len(rebuilt))
	for _, r := range rebuilt {
		id := r.ContestID()
		seen[id] = true

		s, ok := byID[id]
		if !ok {
			report.MissingInStore = append(report.MissingInStore, id)
			continue
		}
		if idhash.ComputeRowHash(s) == idhash.ComputeRowHash(r) {
			report.MatchedRows++
			continue
		}
		divs := CompareRows(s, r)
		if len(divs) == 0 {
			// Hashes differ only below FloatTolerance.
			report.MatchedRows++
			continue
		}
		report.DivergentRows++
		report.Results = append(report.Results, VerificationResult{ContestID: id, Divergences: divs})
	}

	if full {
		for id := range byID {
			if !seen[id] {
				report.ExtraInStore = append(report.ExtraInStore, id)
			}
		}
	}

	slices.Sort(report.MissingInStore)
	slices.Sort(report.ExtraInStore)
	sort.Slice(report.Results, func(i, j int) bool {
		return report.Results[i].ContestID < report.Results[j].ContestID
	})
	return report
}

// CompareRows compares a stored row with a rebuilt one and returns divergences.
// Contest metadata must match exactly, features within FloatTolerance.
// Annotations and processing timestamps are ignored.
func CompareRows(stored, rebuilt *domain.FeatureRow) []FieldDivergence {
	var divergences []FieldDivergence
	add := func(field string, expected, actual any) {
		divergences = append(divergences, FieldDivergence{Field: field, Expected: expected, Actual: actual})
	}

	s, r := &stored.Contest, &rebuilt.Contest
	if s.SeasonID != r.SeasonID {
		add("SEASON_ID", s.SeasonID, r.SeasonID)
	}
	if !s.ContestDate.Equal(r.ContestDate) {
		add("GAME_DATE", s.ContestDate, r.ContestDate)
	}
	if s.HomeID != r.HomeID {
		add("HOME_ID", s.HomeID, r.HomeID)
	}
	if s.AwayID != r.AwayID {
		add("AWAY_ID", s.AwayID, r.AwayID)
	}
	if s.Status != r.Status {
		add("GAME_STATUS", s.Status, r.Status)
	}
	if !intPtrEquals(s.Outcome, r.Outcome) {
		add("GAME_OUTCOME", s.Outcome, r.Outcome)
	}
	if !intPtrEquals(s.HomeScore, r.HomeScore) {
		add("HOME_SCORE", s.HomeScore, r.HomeScore)
	}
	if !intPtrEquals(s.AwayScore, r.AwayScore) {
		add("AWAY_SCORE", s.AwayScore, r.AwayScore)
	}

	for _, col := range columns(stored.Features, rebuilt.Features) {
		if !floatPtrEquals(stored.Features[col], rebuilt.Features[col]) {
			add(col, stored.Features[col], rebuilt.Features[col])
		}
	}
	return divergences
}

// columns returns the union of feature columns, sorted.
func columns(a, b map[string]*float64) []string {
	out := make([]string, 0, len(a))
	for k := range a {
		out = append(out, k)
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}

// floatPtrEquals compares two *float64 values within FloatTolerance.
// Returns true if both are nil, or both are non-nil and equal.
func floatPtrEquals(a, b *float64) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return floatEquals(*a, *b)
}

func intPtrEquals(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func show(v any) any {
	switch p := v.(type) {
	case *float64:
		if p == nil {
			return "NULL"
		}
		return *p
	case *int:
		if p == nil {
			return "NULL"
		}
		return *p
	}
	return v
}
