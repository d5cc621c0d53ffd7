package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"sports-feature-lab/internal/domain"
	"sports-feature-lab/internal/storage"
)

func TestContestStore_FilterAndOrder(t *testing.T) {
	store := NewContestStore()
	ctx := context.Background()
	d := func(day int) time.Time { return time.Date(2024, 4, day, 0, 0, 0, 0, time.UTC) }

	store.Put(
		&domain.Contest{ContestID: 3, SeasonID: 2024, ContestDate: d(2)},
		&domain.Contest{ContestID: 2, SeasonID: 2024, ContestDate: d(2)},
		&domain.Contest{ContestID: 9, SeasonID: 2024, ContestDate: d(1)},
		&domain.Contest{ContestID: 1, SeasonID: 2023, ContestDate: d(1)},
	)

	got, err := store.Contests(ctx, storage.ContestFilter{Seasons: []int{2024}})
	if err != nil {
		t.Fatalf("Contests failed: %v", err)
	}
	want := []int64{9, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("expected %d contests, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ContestID != id {
			t.Errorf("position %d: got contest %d, want %d", i, got[i].ContestID, id)
		}
	}

	got, _ = store.Contests(ctx, storage.ContestFilter{Dates: storage.DateRange{From: d(2)}})
	if len(got) != 2 {
		t.Errorf("date filter: expected 2 contests, got %d", len(got))
	}
}

func TestContestStore_FailWith(t *testing.T) {
	store := NewContestStore()
	store.FailWith(errors.New("timeout"))

	_, err := store.Contests(context.Background(), storage.ContestFilter{})
	if !errors.Is(err, storage.ErrSourceUnavailable) {
		t.Errorf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestObservationStore_FilterAndCopy(t *testing.T) {
	store := NewObservationStore()
	ctx := context.Background()

	store.Put(
		&domain.Observation{EntityID: 2, ContestID: 1, Group: domain.GroupBatting, Stats: map[string]float64{"BA": 0.3}},
		&domain.Observation{EntityID: 1, ContestID: 1, Group: domain.GroupPitching, Stats: map[string]float64{"ERA": 2}},
		&domain.Observation{EntityID: 1, ContestID: 1, Group: domain.GroupBatting, Stats: map[string]float64{"BA": 0.1}},
	)

	got, err := store.Observations(ctx, storage.ObservationFilter{Groups: []string{domain.GroupBatting}})
	if err != nil {
		t.Fatalf("Observations failed: %v", err)
	}
	if len(got) != 2 || got[0].EntityID != 1 || got[1].EntityID != 2 {
		t.Fatalf("unexpected observations: %+v", got)
	}

	got[0].Stats["BA"] = 1
	again, _ := store.Observations(ctx, storage.ObservationFilter{Groups: []string{domain.GroupBatting}})
	if again[0].Stats["BA"] != 0.1 {
		t.Errorf("store mutated through returned observation")
	}
}
