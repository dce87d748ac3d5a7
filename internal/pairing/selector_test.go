package pairing

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/spigell/jobrank/internal/jobs"
)

func makePool(n int) []*jobs.Job {
	pool := make([]*jobs.Job, 0, n)
	for i := 0; i < n; i++ {
		pool = append(pool, &jobs.Job{ID: uuid.New()})
	}
	return pool
}

func TestSelectInsufficientData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		pool []*jobs.Job
	}{
		{name: "empty", pool: nil},
		{name: "single", pool: makePool(1)},
		{name: "duplicate of one job", pool: func() []*jobs.Job {
			j := &jobs.Job{ID: uuid.New()}
			return []*jobs.Job{j, j}
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := NewSeeded(1).Select(tt.pool, nil)
			if !errors.Is(err, jobs.ErrInsufficientData) {
				t.Fatalf("expected ErrInsufficientData, got %v", err)
			}
		})
	}
}

func TestSelectPoolOfTwoReturnsBoth(t *testing.T) {
	pool := makePool(2)

	a, b, err := New().Select(pool, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := map[uuid.UUID]bool{a.ID: true, b.ID: true}
	if !got[pool[0].ID] || !got[pool[1].ID] {
		t.Fatalf("expected both jobs to be returned")
	}
}

func TestSelectNeverReturnsDuplicates(t *testing.T) {
	s := NewSeeded(7)
	pool := makePool(5)

	for i := 0; i < 200; i++ {
		a, b, err := s.Select(pool, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.ID == b.ID {
			t.Fatalf("iteration %d: selected the same job twice", i)
		}
	}
}

func TestSelectPrefersLeastCompared(t *testing.T) {
	pool := makePool(4)
	counts := map[uuid.UUID]int{
		pool[0].ID: 5,
		pool[1].ID: 0,
		pool[2].ID: 3,
		pool[3].ID: 1,
	}

	for seed := uint64(0); seed < 20; seed++ {
		a, b, err := NewSeeded(seed).Select(pool, counts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.ID != pool[1].ID || b.ID != pool[3].ID {
			t.Fatalf("seed %d: expected the two least compared jobs, got %s and %s", seed, a.ID, b.ID)
		}
	}
}

func TestSelectSeededIsReproducible(t *testing.T) {
	pool := makePool(10)

	a1, b1, _ := NewSeeded(42).Select(pool, nil)
	a2, b2, _ := NewSeeded(42).Select(pool, nil)

	if a1.ID != a2.ID || b1.ID != b2.ID {
		t.Fatalf("expected identical picks for identical seeds")
	}
}

func TestSelectDoesNotReorderInput(t *testing.T) {
	pool := makePool(6)
	before := make([]uuid.UUID, len(pool))
	for i, j := range pool {
		before[i] = j.ID
	}

	if _, _, err := NewSeeded(3).Select(pool, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, j := range pool {
		if j.ID != before[i] {
			t.Fatalf("input pool was reordered at %d", i)
		}
	}
}
