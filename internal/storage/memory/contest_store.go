package memory

import (
	"context"
	"sort"
	"sync"

	"sports-feature-lab/internal/domain"
	"sports-feature-lab/internal/storage"
)

// ContestStore is an in-memory implementation of storage.ContestSource.
type ContestStore struct {
	mu   sync.RWMutex
	data map[int64]*domain.Contest
	err  error
}

// NewContestStore creates a new in-memory contest store.
func NewContestStore() *ContestStore {
	return &ContestStore{data: make(map[int64]*domain.Contest)}
}

// Compile-time interface check.
var _ storage.ContestSource = (*ContestStore)(nil)

// Put inserts or replaces contests by contest_id.
func (s *ContestStore) Put(contests ...*domain.Contest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range contests {
		cp := *c
		s.data[c.ContestID] = &cp
	}
}

// FailWith makes every read return err wrapped as a source error. nil clears it.
func (s *ContestStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Contests returns contests matching the filter, ordered by (contest_date, contest_id).
func (s *ContestStore) Contests(_ context.Context, f storage.ContestFilter) ([]*domain.Contest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.err != nil {
		return nil, storage.Unavailable("contests", s.err)
	}

	var result []*domain.Contest
	for _, c := range s.data {
		if f.Match(c) {
			cp := *c
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Before(result[j])
	})
	return result, nil
}
