package storage

import (
	"errors"
	"fmt"
)

// Storage errors.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSourceUnavailable is returned when an upstream source cannot supply data.
	// A run that hits it must abort without writing.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrNoContests is returned when a run finds no contests to build.
	ErrNoContests = errors.New("no contests found")

	// ErrNoObservations is returned when a run finds no observations to aggregate.
	ErrNoObservations = errors.New("no observations found")
)

// SourceError wraps a failed read from an upstream source.
// It matches ErrSourceUnavailable with errors.Is.
type SourceError struct {
	Source string // e.g. "contests", "observations"
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %v: %v", ErrSourceUnavailable, e.Source, e.Err)
}

// Unwrap returns the underlying error.
func (e *SourceError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrSourceUnavailable.
func (e *SourceError) Is(target error) bool {
	return target == ErrSourceUnavailable
}

// Unavailable wraps err as a SourceError, nil stays nil.
func Unavailable(source string, err error) error {
	if err == nil {
		return nil
	}
	return &SourceError{Source: source, Err: err}
}

// DataGapError records a roster entity with no usable snapshot for a contest.
// It is never fatal: the affected feature columns are NULL.
type DataGapError struct {
	Source    string // snapshot index, e.g. "batting"
	EntityID  int64
	ContestID int64
}

func (e *DataGapError) Error() string {
	return fmt.Sprintf("data gap: %s entity %d has no snapshot for contest %d", e.Source, e.EntityID, e.ContestID)
}
