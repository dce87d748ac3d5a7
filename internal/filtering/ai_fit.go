package filtering

import (
	"context"
	"fmt"
	"maps"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/jobrank/internal/ai"
	"github.com/spigell/jobrank/internal/jobs"
	"github.com/spigell/jobrank/internal/logger"
)

type aiFitFilter struct {
	disabled    bool
	reason      string
	minimum     int
	assessments map[uuid.UUID]*ai.FitAssessment
}

// NewAIFit creates the model based scoring step.
func NewAIFit() Filter {
	return &aiFitFilter{}
}

func (f *aiFitFilter) Name() string { return "ai_fit" }

func (f *aiFitFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *aiFitFilter) IsEnabled() bool { return !f.disabled }

func (f *aiFitFilter) Validate(cfg *Config) error {
	f.minimum = 0
	if cfg != nil {
		f.minimum = cfg.MinimumFitScore
	}
	if f.minimum < ai.MinScore || f.minimum > ai.MaxScore {
		return fmt.Errorf("minimum-fit-score must be within %d..%d, got %d", ai.MinScore, ai.MaxScore, f.minimum)
	}
	return nil
}

// Apply scores every job in the pool. Any scoring error aborts the step so that
// nothing is persisted for a partial run.
func (f *aiFitFilter) Apply(ctx context.Context, deps Deps, p *jobs.Pool) (*jobs.Pool, Step, error) {
	initial := p.Len()
	if deps.Scorer == nil {
		return p, Step{}, fmt.Errorf("fit scorer is required")
	}
	if deps.Resume == nil {
		return p, Step{}, fmt.Errorf("resume is required for fit scoring")
	}

	assessments, err := scoreJobs(ctx, deps.Logger, deps.Scorer, deps.Resume, p)
	if err != nil {
		return p, Step{}, err
	}

	f.assessments = make(map[uuid.UUID]*ai.FitAssessment, len(assessments))
	maps.Copy(f.assessments, assessments)

	rejected := p.Filter(func(job *jobs.Job) bool {
		return assessments[job.ID].Score >= f.minimum
	})
	if len(rejected) > 0 {
		deps.Logger.Info("jobs below minimum fit score",
			zap.Int("minimum_fit_score", f.minimum),
			zap.Strings("rejected_jobs", ids(rejected)),
		)
	}

	left := p.Len()
	return p, Step{Initial: initial, Dropped: initial - left, Left: left}, nil
}

func (f *aiFitFilter) Assessments() map[uuid.UUID]*ai.FitAssessment {
	if f.assessments == nil {
		return map[uuid.UUID]*ai.FitAssessment{}
	}
	return f.assessments
}

func (f *aiFitFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"minimum_fit_score": strconv.Itoa(f.minimum)},
	}
}

func scoreJobs(ctx context.Context, log *zap.Logger, scorer ai.FitScorer, resume *jobs.Resume, pool *jobs.Pool) (map[uuid.UUID]*ai.FitAssessment, error) {
	assessments := make(map[uuid.UUID]*ai.FitAssessment, pool.Len())

	for _, job := range pool.Items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		assessment, err := scorer.Score(ctx, resume, job)
		if err != nil {
			log.Warn("fit scoring failed", append(logger.JobFields(job), zap.Error(err))...)
			return nil, fmt.Errorf("scoring job %s: %w", job.ID, err)
		}

		log.Info("job scored", append(logger.JobFields(job), zap.Int("fit_score", assessment.Score))...)
		assessments[job.ID] = assessment
	}

	return assessments, nil
}
