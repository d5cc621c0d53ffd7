package memory

import (
	"context"
	"sort"
	"sync"

	"sports-feature-lab/internal/domain"
	"sports-feature-lab/internal/storage"
)

// FeatureStore is an in-memory implementation of storage.FeatureStore.
type FeatureStore struct {
	mu   sync.RWMutex
	data map[int64]*domain.FeatureRow // keyed by contest_id
}

// NewFeatureStore creates a new in-memory feature store.
func NewFeatureStore() *FeatureStore {
	return &FeatureStore{data: make(map[int64]*domain.FeatureRow)}
}

// Compile-time interface check.
var _ storage.FeatureStore = (*FeatureStore)(nil)

// Upsert inserts or replaces rows by contest_id, keeping existing annotations.
func (s *FeatureStore) Upsert(_ context.Context, rows []*domain.FeatureRow) error {
	for _, r := range rows {
		if r == nil || r.ContestID() == 0 {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rows {
		cp := copyRow(r)
		if existing, ok := s.data[r.ContestID()]; ok {
			cp.Annotation = existing.Annotation
		}
		s.data[r.ContestID()] = cp
	}
	return nil
}

// DeleteAll removes every row.
func (s *FeatureStore) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[int64]*domain.FeatureRow)
	return nil
}

// Annotations returns the non-empty annotations keyed by contest_id.
func (s *FeatureStore) Annotations(_ context.Context) (map[int64]domain.Annotation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]domain.Annotation)
	for id, r := range s.data {
		if !r.Annotation.IsEmpty() {
			out[id] = copyAnnotation(r.Annotation)
		}
	}
	return out, nil
}

// Annotate writes the annotation of one contest. Returns ErrNotFound if the row does not exist.
func (s *FeatureStore) Annotate(_ context.Context, contestID int64, a domain.Annotation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.data[contestID]
	if !ok {
		return storage.ErrNotFound
	}
	r.Annotation = copyAnnotation(a)
	return nil
}

// Query returns rows matching the filter, ordered by (contest_date, contest_id).
func (s *FeatureStore) Query(_ context.Context, f storage.FeatureFilter) ([]*domain.FeatureRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FeatureRow
	for _, r := range s.data {
		if f.Match(r) {
			result = append(result, copyRow(r))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Contest.Before(&result[j].Contest)
	})
	return result, nil
}

// Len returns the number of stored rows.
func (s *FeatureStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func copyRow(r *domain.FeatureRow) *domain.FeatureRow {
	cp := *r
	cp.Features = make(map[string]*float64, len(r.Features))
	for k, v := range r.Features {
		if v == nil {
			cp.Features[k] = nil
			continue
		}
		val := *v
		cp.Features[k] = &val
	}
	cp.Annotation = copyAnnotation(r.Annotation)
	return &cp
}

func copyAnnotation(a domain.Annotation) domain.Annotation {
	var out domain.Annotation
	if a.Prediction != nil {
		p := *a.Prediction
		out.Prediction = &p
	}
	if a.PredictionPct != nil {
		p := *a.PredictionPct
		out.PredictionPct = &p
	}
	return out
}
