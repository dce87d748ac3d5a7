package ai

import (
	"context"
	"errors"
	"time"

	"github.com/spigell/jobrank/internal/jobs"
)

// ErrScoringUnavailable wraps every failure of the fit scoring backend.
var ErrScoringUnavailable = errors.New("fit scoring unavailable")

const (
	MinScore = 0
	MaxScore = 100
)

type FitAssessment struct {
	// Score is the fit between resume and job in the 0..100 range.
	Score        int
	Reasoning    string
	AboutSummary string

	// RecommendedResume is a slug, see NormalizeResumeKey.
	RecommendedResume string
	// Guidance follows the rules checked by EnsureGuidance.
	Guidance          string
	Requirements      *jobs.Requirements

	Raw string
}

type FitScorer interface {
	Score(ctx context.Context, resume *jobs.Resume, job *jobs.Job) (*FitAssessment, error)
}

// ClampScore bounds a model provided score to the valid range.
func ClampScore(score int) int {
	switch {
	case score < MinScore:
		return MinScore
	case score > MaxScore:
		return MaxScore
	default:
		return score
	}
}

// ApplyTo records the assessment on the job.
func (a *FitAssessment) ApplyTo(job *jobs.Job, at time.Time) {
	score := ClampScore(a.Score)
	job.Score = &score
	job.Reasoning = a.Reasoning
	if a.AboutSummary != "" {
		job.AboutSummary = a.AboutSummary
	}
	if a.RecommendedResume != "" {
		job.RecommendedResume = a.RecommendedResume
	}
	if a.Guidance != "" {
		job.Guidance = a.Guidance
	}
	if req := a.Requirements.Normalize(); req != nil {
		job.Requirements = req
	}
	analyzed := at.UTC()
	job.AnalyzedAt = &analyzed
}
