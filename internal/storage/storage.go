// Package storage defines the persistence contracts used by the preference engine and the CLI.
package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/spigell/jobrank/internal/jobs"
)

// ErrConflict is returned by Atomic when the unit of work lost a serialization race.
// The caller may retry it.
var ErrConflict = errors.New("storage: serialization conflict")

type JobStore interface {
	ListJobs(ctx context.Context) ([]*jobs.Job, error)
	GetJob(ctx context.Context, id uuid.UUID) (*jobs.Job, error)
	// SaveRatingsAndEmbeddings persists only the rating and embedding of the given jobs.
	SaveRatingsAndEmbeddings(ctx context.Context, changed []*jobs.Job) error
}

type ComparisonLog interface {
	AppendComparison(ctx context.Context, c *jobs.Comparison) error
	ComparisonCounts(ctx context.Context) (map[uuid.UUID]int, error)
}

// Repository is what a unit of work can touch.
type Repository interface {
	JobStore
	ComparisonLog
}

type Catalog interface {
	// UpsertJob stores a job unless one with the same hash exists.
	// It returns the stored job and whether it was created.
	UpsertJob(ctx context.Context, job *jobs.Job) (*jobs.Job, bool, error)
	// SaveAnalyses stores the analysis fields of all jobs or, on error, of none.
	SaveAnalyses(ctx context.Context, analyzed []*jobs.Job) error
	ListComparisons(ctx context.Context) ([]*jobs.Comparison, error)
	LatestResume(ctx context.Context) (*jobs.Resume, error)
	SaveResume(ctx context.Context, text string) (*jobs.Resume, error)
}

type Store interface {
	Repository
	Catalog

	// Atomic runs fn in a serializable unit of work. Writes made through the
	// repository passed to fn are committed only if fn returns nil.
	Atomic(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
	Close() error
}
