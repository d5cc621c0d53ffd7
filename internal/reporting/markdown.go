package reporting

import (
	"fmt"
	"strings"
	"time"
)

// maxCoverageRows bounds the coverage table to the least covered columns.
const maxCoverageRows = 20

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Feature Run %s\n\n", r.RunID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	mode := r.Mode
	if r.DryRun {
		mode += " (dry run)"
	}
	sb.WriteString(fmt.Sprintf("Sport: %s | Mode: %s | Duration: %s\n\n", r.Sport, mode, r.Duration.Round(time.Millisecond)))
	sb.WriteString(fmt.Sprintf("Data version: `%s`\n\n", r.DataVersion))

	// Scope
	sb.WriteString("## Scope\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	if len(r.Scope.Seasons) > 0 {
		sb.WriteString(fmt.Sprintf("| Seasons | %d-%d |\n", r.Scope.Seasons[0], r.Scope.Seasons[len(r.Scope.Seasons)-1]))
	}
	if r.Scope.TargetFrom != "" {
		sb.WriteString(fmt.Sprintf("| Targets | %s .. %s |\n", r.Scope.TargetFrom, r.Scope.TargetTo))
		sb.WriteString(fmt.Sprintf("| History From | %s |\n", r.Scope.HistoryFrom))
	}
	sb.WriteString(fmt.Sprintf("| Contests Read | %d |\n", r.Scope.Contests))
	sb.WriteString(fmt.Sprintf("| Observations Read | %d |\n", r.Scope.Observations))
	sb.WriteString("\n")

	// Build
	sb.WriteString("## Build\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Rows | %d |\n", r.Build.Rows))
	sb.WriteString(fmt.Sprintf("| Exact Snapshots | %d |\n", r.Build.Exact))
	sb.WriteString(fmt.Sprintf("| Carried Forward | %d |\n", r.Build.CarriedForward))
	sb.WriteString(fmt.Sprintf("| Missing | %d |\n", r.Build.Missing))
	sb.WriteString(fmt.Sprintf("| No Designee | %d |\n", r.Build.NoDesignee))
	sb.WriteString(fmt.Sprintf("| Team Observations | %d |\n", r.Build.TeamObservations))
	sb.WriteString(fmt.Sprintf("| Dropped Assignments | %d |\n", r.Build.DroppedAssignments))
	sb.WriteString("\n")

	// Write
	sb.WriteString("## Write\n\n")
	if w := r.Write; w != nil {
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Attempted | %d |\n", w.Attempted))
		sb.WriteString(fmt.Sprintf("| Written | %d |\n", w.Written))
		sb.WriteString(fmt.Sprintf("| Failed | %d |\n", w.Failed))
		sb.WriteString(fmt.Sprintf("| Batch Failures | %d |\n", w.BatchFailures))
		sb.WriteString(fmt.Sprintf("| Row Retries | %d |\n", w.RowRetries))
		if r.Mode == "full" {
			sb.WriteString(fmt.Sprintf("| Deleted | %t |\n", w.Deleted))
			sb.WriteString(fmt.Sprintf("| Annotations Carried | %d |\n", w.AnnotationsCarried))
		}
		if w.DeleteError != "" {
			sb.WriteString(fmt.Sprintf("\n**Delete failed:** %s\n", w.DeleteError))
		}
	} else {
		sb.WriteString("Dry run, nothing written.\n")
	}
	sb.WriteString("\n")

	// Coverage
	sb.WriteString("## Column Coverage\n\n")
	if len(r.Coverage) > 0 {
		sb.WriteString("| Column | Present | Total | Coverage |\n")
		sb.WriteString("|--------|---------|-------|----------|\n")
		for i, c := range r.Coverage {
			if i == maxCoverageRows {
				sb.WriteString(fmt.Sprintf("\n%d more columns omitted.\n", len(r.Coverage)-maxCoverageRows))
				break
			}
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %.1f%% |\n", c.Column, c.Present, c.Total, c.Ratio*100))
		}
	} else {
		sb.WriteString("No rows built.\n")
	}
	sb.WriteString("\n")

	// Data gaps
	if len(r.Gaps) > 0 {
		sb.WriteString("## Data Gaps (sample)\n\n")
		sb.WriteString("| Source | Entity | Contest |\n")
		sb.WriteString("|--------|--------|---------|\n")
		for _, g := range r.Gaps {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d |\n", g.Source, g.EntityID, g.ContestID))
		}
		sb.WriteString("\n")
	}

	// Errors
	if len(r.Errors) > 0 {
		sb.WriteString("## Errors\n\n")
		for _, e := range r.Errors {
			sb.WriteString(fmt.Sprintf("- %s\n", e))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
