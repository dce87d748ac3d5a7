package filtering

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spigell/jobrank/internal/jobs"
)

// DefaultMaxBatchJobs bounds how many jobs one score run may send to the model.
const DefaultMaxBatchJobs = 25

type batchLimitFilter struct {
	disabled bool
	reason   string
	max      int
}

// NewBatchLimit creates a step that fails when more jobs remain than one run may score.
func NewBatchLimit() Filter {
	return &batchLimitFilter{}
}

func (f *batchLimitFilter) Name() string { return "batch_limit" }

func (f *batchLimitFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *batchLimitFilter) IsEnabled() bool { return !f.disabled }

func (f *batchLimitFilter) Validate(cfg *Config) error {
	f.max = DefaultMaxBatchJobs
	if cfg != nil && cfg.MaxBatchJobs != 0 {
		f.max = cfg.MaxBatchJobs
	}
	if f.max < 0 {
		return fmt.Errorf("max-batch-jobs must be positive, got %d", f.max)
	}
	return nil
}

func (f *batchLimitFilter) Apply(_ context.Context, _ Deps, p *jobs.Pool) (*jobs.Pool, Step, error) {
	if p.Len() > f.max {
		return p, Step{}, fmt.Errorf("%d jobs pending, limit is %d per run", p.Len(), f.max)
	}
	return p, Step{Initial: p.Len(), Dropped: 0, Left: p.Len()}, nil
}

func (f *batchLimitFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"max_batch_jobs": strconv.Itoa(f.max)},
	}
}
