package domain

import (
	"strconv"
	"time"
)

// Annotation holds the two columns written back by the downstream model consumer.
type Annotation struct {
	Prediction    *int     // predicted label (1 home win, 0 away win)
	PredictionPct *float64 // confidence of the prediction
}

// IsEmpty reports whether neither column is set.
func (a Annotation) IsEmpty() bool {
	return a.Prediction == nil && a.PredictionPct == nil
}

// FeatureRow is the pre-game feature vector for one contest.
// Corresponds to the feature_rows table; ContestID is unique per sport.
type FeatureRow struct {
	Contest    Contest
	Features   map[string]*float64 // column name -> value, NULL when unknown
	Annotation Annotation
	UpdatedAt  time.Time // processing timestamp
}

// ContestID returns the row key.
func (r *FeatureRow) ContestID() int64 {
	return r.Contest.ContestID
}

// Feature returns a feature value, nil if absent or NULL.
func (r *FeatureRow) Feature(column string) *float64 {
	return r.Features[column]
}

func formatObservationID(contestID, entityID int64, group string) string {
	return strconv.FormatInt(contestID, 10) + "_" + strconv.FormatInt(entityID, 10) + "_" + group
}
