package filtering

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/jobrank/internal/jobs"
)

const forceFlagSetMsg = "force flag is set"

type pendingFilter struct {
	force bool
}

// NewPending creates a filter that removes jobs which already have a fit analysis.
func NewPending() Filter {
	return &pendingFilter{}
}

func (f *pendingFilter) Name() string { return "pending" }

func (f *pendingFilter) Disable(string) {}

func (f *pendingFilter) IsEnabled() bool { return true }

func (f *pendingFilter) Validate(cfg *Config) error {
	f.force = cfg != nil && cfg.Force
	return nil
}

func (f *pendingFilter) Apply(_ context.Context, deps Deps, p *jobs.Pool) (*jobs.Pool, Step, error) {
	initial := p.Len()
	if f.force {
		deps.Logger.Info("keeping already analyzed jobs", zap.String("reason", forceFlagSetMsg))
		return p, Step{Initial: initial, Dropped: 0, Left: p.Len()}, nil
	}

	excluded := p.Filter(func(job *jobs.Job) bool { return !job.IsAnalyzed() })
	if len(excluded) > 0 {
		deps.Logger.Debug("excluding already analyzed jobs",
			zap.Strings("excluded_jobs", ids(excluded)),
			zap.Int("jobs_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(excluded), Left: p.Len()}, nil
}

func (f *pendingFilter) Status() Status {
	reason := ""
	if f.force {
		reason = "re-analysis requested via flag"
	}
	return Status{
		Name:    f.Name(),
		Enabled: true,
		Reason:  reason,
		Details: map[string]string{"force": strconv.FormatBool(f.force)},
	}
}
