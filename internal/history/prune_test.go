package history

import (
	"fmt"
	"testing"
	"time"
)

func addRuns(t *testing.T, s *Store, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := s.Add(doneResult(fmt.Sprintf("run-%d", i)), time.Now()); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}
}

func TestStore_Prune(t *testing.T) {
	s := newTestStore(t)
	addRuns(t, s, 5)

	result, err := s.Prune(2)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if result.Kept != 2 {
		t.Errorf("Prune() Kept = %v, want 2", result.Kept)
	}
	if len(result.Deleted) != 3 {
		t.Errorf("Prune() Deleted count = %v, want 3", len(result.Deleted))
	}

	records, _ := s.List()
	if len(records) != 2 {
		t.Fatalf("List() after prune = %v, want 2", len(records))
	}
	// The newest runs survive.
	if records[0].ID != "run-4" || records[1].ID != "run-3" {
		t.Errorf("kept %s and %s, want run-4 and run-3", records[0].ID, records[1].ID)
	}
}

func TestStore_PruneNoOp(t *testing.T) {
	s := newTestStore(t)
	addRuns(t, s, 2)

	result, err := s.Prune(5)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if result.Kept != 2 || len(result.Deleted) != 0 {
		t.Errorf("Prune() = %+v, want nothing deleted", result)
	}
}

func TestStore_PruneKeepZero(t *testing.T) {
	s := newTestStore(t)
	addRuns(t, s, 3)

	result, err := s.Prune(0)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if len(result.Deleted) != 3 {
		t.Errorf("Prune(0) Deleted = %d, want 3", len(result.Deleted))
	}
}

func TestStore_PruneNegativeKeep(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Prune(-1); err == nil {
		t.Error("Prune(-1) expected error")
	}
}

func TestStore_PruneEmpty(t *testing.T) {
	s := newTestStore(t)
	result, err := s.Prune(DefaultKeepCount)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if result.Kept != 0 || len(result.Deleted) != 0 {
		t.Errorf("Prune() on empty store = %+v", result)
	}
}
