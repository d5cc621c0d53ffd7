package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"sports-feature-lab/internal/domain"
)

// Metadata columns, in export order.
var metadataColumns = []string{
	"GAME_ID", "SEASON_ID", "GAME_DATE",
	"AWAY_NAME", "HOME_NAME", "AWAY_ID", "HOME_ID",
	"GAME_STATUS", "GAME_OUTCOME",
	"AWAY_SCORE", "HOME_SCORE", "TOTAL_SCORE",
}

// Roster columns, exported for sports that carry rosters on the row.
var rosterColumns = []string{
	"AWAY_LINEUP", "HOME_LINEUP",
	"AWAY_SP", "HOME_SP",
	"AWAY_BULLPEN", "HOME_BULLPEN",
}

var annotationColumns = []string{"PREDICTION", "PREDICTION_PCT"}

// Header returns the export header for a sport and its feature columns.
func Header(s domain.Sport, features []string) []string {
	out := append([]string{}, metadataColumns...)
	if s == domain.SportMLB {
		out = append(out, rosterColumns...)
	}
	out = append(out, features...)
	return append(out, annotationColumns...)
}

// WriteCSV writes feature rows in the given order. NULL values are empty cells.
func WriteCSV(w io.Writer, s domain.Sport, features []string, rows []*domain.FeatureRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header(s, features)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, r := range rows {
		if err := cw.Write(record(s, features, r)); err != nil {
			return fmt.Errorf("write contest %d: %w", r.ContestID(), err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func record(s domain.Sport, features []string, r *domain.FeatureRow) []string {
	c := &r.Contest
	out := make([]string, 0, len(metadataColumns)+len(rosterColumns)+len(features)+len(annotationColumns))
	out = append(out,
		strconv.FormatInt(c.ContestID, 10),
		strconv.Itoa(c.SeasonID),
		c.ContestDate.Format("2006-01-02"),
		c.AwayName,
		c.HomeName,
		strconv.FormatInt(c.AwayID, 10),
		strconv.FormatInt(c.HomeID, 10),
		strconv.Itoa(int(c.Status)),
		optInt(c.Outcome),
		optInt(c.AwayScore),
		optInt(c.HomeScore),
		optInt(c.TotalScore()),
	)
	if s == domain.SportMLB {
		out = append(out,
			ids(c.Away.Lineup), ids(c.Home.Lineup),
			optInt64(c.Away.Designee), optInt64(c.Home.Designee),
			ids(c.Away.Group), ids(c.Home.Group),
		)
	}
	for _, col := range features {
		out = append(out, optFloat(r.Features[col]))
	}
	return append(out, optInt(r.Annotation.Prediction), optFloat(r.Annotation.PredictionPct))
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func optInt64(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func optFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// ids renders a roster array as "[1,2,3]".
func ids(v []int64) string {
	if len(v) == 0 {
		return ""
	}
	parts := make([]string, len(v))
	for i, id := range v {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
