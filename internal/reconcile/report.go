package reconcile

import (
	"fmt"
)

// WriteFailure is a row that could not be written even on its own.
type WriteFailure struct {
	ContestID int64
	Err       error
}

func (f WriteFailure) Error() string {
	return fmt.Sprintf("contest %d: %v", f.ContestID, f.Err)
}

func (f WriteFailure) Unwrap() error {
	return f.Err
}

// WriteReport summarizes one reconciliation.
type WriteReport struct {
	Mode               Mode
	Attempted          int
	Written            int
	BatchFailures      int // batches that fell back to per-row writes
	RowRetries         int
	Failures           []WriteFailure // sorted by contest_id
	Deleted            bool           // full rebuild only
	DeleteErr          error          // full rebuild only
	AnnotationsCarried int            // full rebuild only
}

// Failed returns the number of rows that were not written.
func (r *WriteReport) Failed() int {
	return len(r.Failures)
}

// OK reports whether every row was written and the delete, if any, succeeded.
func (r *WriteReport) OK() bool {
	return r.DeleteErr == nil && len(r.Failures) == 0
}

type batchResult struct {
	written     int
	batchFailed bool
	retries     int
	failures    []WriteFailure
}

func (r *WriteReport) merge(b batchResult) {
	r.Written += b.written
	if b.batchFailed {
		r.BatchFailures++
	}
	r.RowRetries += b.retries
	r.Failures = append(r.Failures, b.failures...)
}
