package pairing

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/spigell/jobrank/internal/jobs"
)

// Selector picks the next pair to compare, favouring the least compared jobs.
// Ties are broken randomly through the injected source.
type Selector struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// New returns a selector with a random seed.
func New() *Selector {
	return NewWithRand(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
}

// NewSeeded returns a selector whose choices are reproducible for the same seed and input.
func NewSeeded(seed uint64) *Selector {
	return NewWithRand(rand.New(rand.NewPCG(seed, seed)))
}

func NewWithRand(rnd *rand.Rand) *Selector {
	return &Selector{rnd: rnd}
}

// Select returns two distinct jobs with the lowest comparison counts.
// The scan is O(n log n) per call.
func (s *Selector) Select(pool []*jobs.Job, counts map[uuid.UUID]int) (*jobs.Job, *jobs.Job, error) {
	candidates := make([]*jobs.Job, 0, len(pool))
	seen := make(map[uuid.UUID]struct{}, len(pool))
	for _, job := range pool {
		if job == nil {
			continue
		}
		if _, dup := seen[job.ID]; dup {
			continue
		}
		seen[job.ID] = struct{}{}
		candidates = append(candidates, job)
	}

	if len(candidates) < 2 {
		return nil, nil, fmt.Errorf("%w: need at least 2 jobs to compare, have %d", jobs.ErrInsufficientData, len(candidates))
	}

	s.mu.Lock()
	s.rnd.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	s.mu.Unlock()

	sort.SliceStable(candidates, func(i, j int) bool {
		return counts[candidates[i].ID] < counts[candidates[j].ID]
	})

	return candidates[0], candidates[1], nil
}
