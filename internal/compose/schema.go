// Package compose turns entity and team snapshots into per-contest feature rows.
package compose

import (
	"errors"
	"fmt"

	"sports-feature-lab/internal/domain"
	"sports-feature-lab/internal/rolling"
)

// RuleKind selects how a side's entities are combined.
type RuleKind string

const (
	// RuleWeightedLineup averages lineup slots with per-slot weights,
	// renormalized over the slots that have a value.
	RuleWeightedLineup RuleKind = "weighted_lineup"
	// RuleDesignee takes the single designated entity's value.
	RuleDesignee RuleKind = "designee"
	// RuleGroupAverage is the plain mean over group members with a value.
	RuleGroupAverage RuleKind = "group_average"
	// RuleTeam reads the team's own snapshot.
	RuleTeam RuleKind = "team"
)

// Rule produces the columns {SIDE}_{Prefix}{STAT}_{W} for both sides.
type Rule struct {
	Kind    RuleKind
	Source  string // snapshot index name
	Prefix  string // e.g. "SP_", empty for lineup and team columns
	Stats   []string
	Windows []int
	Weights []float64 // slot weights, weighted lineup only
}

// Column returns the feature column of a stat at a window for one side.
func (r Rule) Column(side domain.Side, stat string, window int) string {
	return string(side) + "_" + r.Prefix + rolling.Column(stat, window)
}

// Schema is the fixed set of feature columns of a sport.
type Schema struct {
	Rules     []Rule
	Precision int // decimal places kept in every value
}

// Errors returned by Schema.Validate.
var (
	ErrEmptySchema     = errors.New("feature schema has no rules")
	ErrDuplicateColumn = errors.New("duplicate feature column")
)

// Validate checks rule kinds, weights and column uniqueness.
func (s Schema) Validate() error {
	if len(s.Rules) == 0 {
		return ErrEmptySchema
	}
	if s.Precision < 0 {
		return fmt.Errorf("negative precision %d", s.Precision)
	}
	seen := make(map[string]struct{})
	for i, r := range s.Rules {
		switch r.Kind {
		case RuleWeightedLineup:
			if len(r.Weights) == 0 {
				return fmt.Errorf("rule %d: weighted lineup needs weights", i)
			}
			for _, w := range r.Weights {
				if w <= 0 {
					return fmt.Errorf("rule %d: weights must be positive", i)
				}
			}
		case RuleDesignee, RuleGroupAverage, RuleTeam:
		default:
			return fmt.Errorf("rule %d: unknown kind %q", i, r.Kind)
		}
		if r.Source == "" {
			return fmt.Errorf("rule %d: missing source", i)
		}
		if len(r.Stats) == 0 || len(r.Windows) == 0 {
			return fmt.Errorf("rule %d: needs stats and windows", i)
		}
		for _, side := range domain.Sides {
			for _, stat := range r.Stats {
				for _, w := range r.Windows {
					col := r.Column(side, stat, w)
					if _, dup := seen[col]; dup {
						return fmt.Errorf("%w: %s", ErrDuplicateColumn, col)
					}
					seen[col] = struct{}{}
				}
			}
		}
	}
	return nil
}

// Columns returns every feature column, away side first.
func (s Schema) Columns() []string {
	var cols []string
	for _, side := range domain.Sides {
		for _, r := range s.Rules {
			for _, stat := range r.Stats {
				for _, w := range r.Windows {
					cols = append(cols, r.Column(side, stat, w))
				}
			}
		}
	}
	return cols
}

// Sources returns the distinct snapshot index names the schema reads.
func (s Schema) Sources() []string {
	var out []string
	seen := make(map[string]bool)
	for _, r := range s.Rules {
		if !seen[r.Source] {
			seen[r.Source] = true
			out = append(out, r.Source)
		}
	}
	return out
}

// LinearWeights returns n, n-1, ..., 1.
func LinearWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = float64(n - i)
	}
	return w
}
