package reporting

import "time"

// Report is the summary of one feature run.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	RunID       string
	Sport       string
	Mode        string
	DryRun      bool
	Duration    time.Duration
	DataVersion string

	Scope    ScopeSection
	Build    BuildSection
	Write    *WriteSection // nil on dry runs
	Coverage []CoverageRow // sorted by coverage ascending, then column
	Gaps     []GapRow
	Errors   []string
}

// ScopeSection describes what the run read.
type ScopeSection struct {
	Seasons      []int
	TargetFrom   string // incremental runs only
	TargetTo     string
	HistoryFrom  string
	Contests     int
	Observations int
}

// BuildSection contains build statistics.
type BuildSection struct {
	Rows               int
	Exact              int
	CarriedForward     int
	Missing            int
	NoDesignee         int
	DroppedAssignments int
	TeamObservations   int
}

// WriteSection contains reconciliation results.
type WriteSection struct {
	Attempted          int
	Written            int
	Failed             int
	BatchFailures      int
	RowRetries         int
	Deleted            bool
	DeleteError        string
	AnnotationsCarried int
}

// CoverageRow is the share of rows with a non-null value in one column.
type CoverageRow struct {
	Column  string
	Present int
	Total   int
	Ratio   float64
}

// GapRow is one sampled missing snapshot.
type GapRow struct {
	Source    string
	EntityID  int64
	ContestID int64
}
