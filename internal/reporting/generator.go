package reporting

import (
	"sort"
	"time"

	"sports-feature-lab/internal/orchestrator"
)

// Generator builds run reports.
type Generator struct {
	columns []string
	now     func() time.Time
}

// NewGenerator creates a generator over the feature columns of a schema.
func NewGenerator(columns []string) *Generator {
	return &Generator{
		columns: columns,
		now:     time.Now,
	}
}

// WithClock sets a custom clock for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate summarizes a run result.
func (g *Generator) Generate(res *orchestrator.RunResult) *Report {
	r := &Report{
		GeneratedAt: g.now().UTC(),
		RunID:       res.RunID,
		Sport:       res.Sport.String(),
		Mode:        string(res.Mode),
		DryRun:      res.DryRun,
		Duration:    res.FinishedAt.Sub(res.StartedAt),
		DataVersion: res.DataVersion,
		Errors:      res.Errors,
		Scope: ScopeSection{
			Seasons:      res.Seasons,
			Contests:     res.Contests,
			Observations: res.Observed,
		},
	}
	if !res.Targets.From.IsZero() {
		r.Scope.TargetFrom = res.Targets.From.Format(time.DateOnly)
		r.Scope.TargetTo = res.Targets.To.Format(time.DateOnly)
		r.Scope.HistoryFrom = res.History.From.Format(time.DateOnly)
	}

	if b := res.Build; b != nil {
		r.Build = BuildSection{
			Rows:               b.Compose.Rows,
			Exact:              b.Compose.Exact,
			CarriedForward:     b.Compose.CarriedForward,
			Missing:            b.Compose.Missing,
			NoDesignee:         b.Compose.NoDesignee,
			DroppedAssignments: b.Assignment.Dropped,
			TeamObservations:   b.TeamObservations,
		}
		for _, gap := range b.Compose.Gaps {
			r.Gaps = append(r.Gaps, GapRow{Source: gap.Source, EntityID: gap.EntityID, ContestID: gap.ContestID})
		}
	}

	if w := res.Write; w != nil {
		r.Write = &WriteSection{
			Attempted:          w.Attempted,
			Written:            w.Written,
			Failed:             w.Failed(),
			BatchFailures:      w.BatchFailures,
			RowRetries:         w.RowRetries,
			Deleted:            w.Deleted,
			AnnotationsCarried: w.AnnotationsCarried,
		}
		if w.DeleteErr != nil {
			r.Write.DeleteError = w.DeleteErr.Error()
		}
	}

	r.Coverage = g.coverage(res)
	return r
}

func (g *Generator) coverage(res *orchestrator.RunResult) []CoverageRow {
	rows := res.Rows()
	if len(rows) == 0 {
		return nil
	}

	out := make([]CoverageRow, 0, len(g.columns))
	for _, col := range g.columns {
		present := 0
		for _, row := range rows {
			if row.Features[col] != nil {
				present++
			}
		}
		out = append(out, CoverageRow{
			Column:  col,
			Present: present,
			Total:   len(rows),
			Ratio:   float64(present) / float64(len(rows)),
		})
	}

	// Least covered first.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Ratio != out[j].Ratio {
			return out[i].Ratio < out[j].Ratio
		}
		return out[i].Column < out[j].Column
	})
	return out
}
