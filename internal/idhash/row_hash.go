// Package idhash computes deterministic content hashes of feature rows.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"sports-feature-lab/internal/domain"
)

// ComputeRowHash computes a deterministic hash of a feature row's content using SHA256.
// Formula: SHA256(contest_id|date|status|home_id|away_id|outcome|home_score|away_score|col=value;...)
// Columns are sorted by name; NULL values hash as "NULL".
// UpdatedAt and annotations are excluded so reruns on identical inputs hash identically.
// Returns hex-encoded hash (64 characters).
func ComputeRowHash(row *domain.FeatureRow) string {
	c := row.Contest
	data := fmt.Sprintf("%d|%s|%d|%d|%d|%s|%s|%s|%s",
		c.ContestID,
		c.ContestDate.UTC().Format("2006-01-02"),
		c.Status,
		c.HomeID,
		c.AwayID,
		optInt(c.Outcome),
		optInt(c.HomeScore),
		optInt(c.AwayScore),
		featureString(row.Features),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeDataVersion computes a hash over a whole row set.
// The result is independent of the slice order.
func ComputeDataVersion(rows []*domain.FeatureRow) string {
	type keyed struct {
		id   int64
		hash string
	}
	hashes := make([]keyed, 0, len(rows))
	for _, r := range rows {
		hashes = append(hashes, keyed{id: r.ContestID(), hash: ComputeRowHash(r)})
	}
	sort.Slice(hashes, func(i, j int) bool {
		if hashes[i].id != hashes[j].id {
			return hashes[i].id < hashes[j].id
		}
		return hashes[i].hash < hashes[j].hash
	})

	h := sha256.New()
	for _, k := range hashes {
		h.Write([]byte(k.hash))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func featureString(features map[string]*float64) string {
	cols := make([]string, 0, len(features))
	for col := range features {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	var b strings.Builder
	for _, col := range cols {
		b.WriteString(col)
		b.WriteByte('=')
		if v := features[col]; v != nil {
			b.WriteString(strconv.FormatFloat(*v, 'g', -1, 64))
		} else {
			b.WriteString("NULL")
		}
		b.WriteByte(';')
	}
	return b.String()
}

func optInt(v *int) string {
	if v == nil {
		return "NULL"
	}
	return strconv.Itoa(*v)
}
