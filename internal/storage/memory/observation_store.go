package memory

import (
	"context"
	"sort"
	"sync"

	"sports-feature-lab/internal/domain"
	"sports-feature-lab/internal/storage"
)

type observationKey struct {
	contestID int64
	entityID  int64
	group     string
}

// ObservationStore is an in-memory implementation of storage.ObservationSource.
type ObservationStore struct {
	mu   sync.RWMutex
	data map[observationKey]*domain.Observation
	err  error
}

// NewObservationStore creates a new in-memory observation store.
func NewObservationStore() *ObservationStore {
	return &ObservationStore{data: make(map[observationKey]*domain.Observation)}
}

// Compile-time interface check.
var _ storage.ObservationSource = (*ObservationStore)(nil)

// Put inserts or replaces observations by (contest_id, entity_id, group).
func (s *ObservationStore) Put(obs ...*domain.Observation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range obs {
		s.data[observationKey{o.ContestID, o.EntityID, o.Group}] = copyObservation(o)
	}
}

// FailWith makes every read return err wrapped as a source error. nil clears it.
func (s *ObservationStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Observations returns observations matching the filter ordered by (contest_id, entity_id, group).
func (s *ObservationStore) Observations(_ context.Context, f storage.ObservationFilter) ([]*domain.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.err != nil {
		return nil, storage.Unavailable("observations", s.err)
	}

	var result []*domain.Observation
	for _, o := range s.data {
		if f.Match(o) {
			result = append(result, copyObservation(o))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.ContestID != b.ContestID {
			return a.ContestID < b.ContestID
		}
		if a.EntityID != b.EntityID {
			return a.EntityID < b.EntityID
		}
		return a.Group < b.Group
	})
	return result, nil
}

func copyObservation(o *domain.Observation) *domain.Observation {
	cp := *o
	cp.Stats = make(map[string]float64, len(o.Stats))
	for k, v := range o.Stats {
		cp.Stats[k] = v
	}
	return &cp
}
