// Package preference turns pairwise user choices into job ratings.
package preference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/jobrank/internal/embedding"
	"github.com/spigell/jobrank/internal/jobs"
	"github.com/spigell/jobrank/internal/rating"
	"github.com/spigell/jobrank/internal/storage"
)

const DefaultMaxAttempts = 3

type Config struct {
	// MaxAttempts bounds how many times a unit of work is retried after a serialization conflict.
	MaxAttempts int `mapstructure:"max-attempts"`
}

type Embedder interface {
	Plan(ctx context.Context, items []*jobs.Job) (embedding.Plan, error)
}

type PairSelector interface {
	Select(pool []*jobs.Job, counts map[uuid.UUID]int) (*jobs.Job, *jobs.Job, error)
}

type Deps struct {
	Store    storage.Store
	Embedder Embedder
	Updater  *rating.Updater
	Selector PairSelector
	Logger   *zap.Logger
}

// Outcome is the result of one recorded preference.
type Outcome struct {
	ComparisonID uuid.UUID
	WinnerID     uuid.UUID
	LoserID      uuid.UUID
	WinnerRating float64
	LoserRating  float64
	// SpreadUpdated counts jobs other than winner and loser whose rating moved.
	SpreadUpdated int
	// Embedded counts jobs that received their first embedding in this operation.
	Embedded int
}

type Engine struct {
	store       storage.Store
	embedder    Embedder
	updater     *rating.Updater
	selector    PairSelector
	maxAttempts int
	logger      *zap.Logger
}

func New(cfg *Config, deps Deps) (*Engine, error) {
	if deps.Store == nil {
		return nil, errors.New("store is required")
	}
	if deps.Embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if deps.Selector == nil {
		return nil, errors.New("pair selector is required")
	}

	updater := deps.Updater
	if updater == nil {
		var err error
		if updater, err = rating.NewUpdater(nil, deps.Logger); err != nil {
			return nil, err
		}
	}

	attempts := DefaultMaxAttempts
	if cfg != nil && cfg.MaxAttempts > 0 {
		attempts = cfg.MaxAttempts
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		store:       deps.Store,
		embedder:    deps.Embedder,
		updater:     updater,
		selector:    deps.Selector,
		maxAttempts: attempts,
		logger:      logger,
	}, nil
}

// NextPair picks the next two jobs to compare and makes sure both have embeddings.
func (e *Engine) NextPair(ctx context.Context) (*jobs.Job, *jobs.Job, error) {
	pool, err := e.store.ListJobs(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list jobs: %w", err)
	}

	counts, err := e.store.ComparisonCounts(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("count comparisons: %w", err)
	}

	a, b, err := e.selector.Select(pool, counts)
	if err != nil {
		return nil, nil, err
	}

	pair := []*jobs.Job{a, b}
	plan, err := e.embedder.Plan(ctx, pair)
	if err != nil {
		return nil, nil, fmt.Errorf("embed pair: %w", err)
	}

	if len(plan) > 0 {
		embedded := embeddingsOnly(plan.Apply(pair))
		err := e.atomic(ctx, func(ctx context.Context, repo storage.Repository) error {
			return repo.SaveRatingsAndEmbeddings(ctx, embedded)
		})
		if err != nil {
			return nil, nil, fmt.Errorf("save pair embeddings: %w", err)
		}
	}

	e.logger.Debug("selected pair",
		zap.String("job_a_id", a.ID.String()),
		zap.Int("job_a_count", counts[a.ID]),
		zap.String("job_b_id", b.ID.String()),
		zap.Int("job_b_count", counts[b.ID]),
	)

	return a, b, nil
}

// Submit records the user's choice between the two presented jobs.
func (e *Engine) Submit(ctx context.Context, choice jobs.Choice) (*Outcome, error) {
	loser, err := choice.Rejected()
	if err != nil {
		return nil, err
	}
	return e.record(ctx, choice.JobA, choice.JobB, choice.Chosen, loser)
}

// RecordPreference records that winnerID was preferred over loserID.
func (e *Engine) RecordPreference(ctx context.Context, winnerID, loserID uuid.UUID) (*Outcome, error) {
	if winnerID == loserID {
		return nil, fmt.Errorf("%w: winner and loser are the same job %s", jobs.ErrInvalidChoice, winnerID)
	}
	return e.record(ctx, winnerID, loserID, winnerID, loserID)
}

func (e *Engine) record(ctx context.Context, jobA, jobB, winnerID, loserID uuid.UUID) (*Outcome, error) {
	pool, err := e.store.ListJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	if _, _, err := findPair(pool, winnerID, loserID); err != nil {
		return nil, err
	}

	// embeddings are computed outside the unit of work
	plan, err := e.embedder.Plan(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("embed jobs: %w", err)
	}

	var outcome *Outcome
	err = e.atomic(ctx, func(ctx context.Context, repo storage.Repository) error {
		pool, err := repo.ListJobs(ctx)
		if err != nil {
			return fmt.Errorf("list jobs: %w", err)
		}

		winner, loser, err := findPair(pool, winnerID, loserID)
		if err != nil {
			return err
		}

		embedded := plan.Apply(pool)
		res := e.updater.Apply(winner, loser, pool)

		if err := repo.SaveRatingsAndEmbeddings(ctx, union(embedded, res.Changed)); err != nil {
			return fmt.Errorf("save ratings: %w", err)
		}

		comparison := &jobs.Comparison{
			ID:        uuid.New(),
			JobA:      jobA,
			JobB:      jobB,
			Chosen:    winnerID,
			Rejected:  loserID,
			CreatedAt: time.Now().UTC(),
		}
		if err := repo.AppendComparison(ctx, comparison); err != nil {
			return fmt.Errorf("append comparison: %w", err)
		}

		outcome = &Outcome{
			ComparisonID:  comparison.ID,
			WinnerID:      winnerID,
			LoserID:       loserID,
			WinnerRating:  res.WinnerAfter,
			LoserRating:   res.LoserAfter,
			SpreadUpdated: len(res.Spread),
			Embedded:      len(embedded),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("preference recorded",
		zap.String("comparison_id", outcome.ComparisonID.String()),
		zap.String("winner_id", winnerID.String()),
		zap.String("loser_id", loserID.String()),
		zap.Float64("winner_rating", outcome.WinnerRating),
		zap.Float64("loser_rating", outcome.LoserRating),
		zap.Int("spread_updated", outcome.SpreadUpdated),
		zap.Int("embedded", outcome.Embedded),
	)

	return outcome, nil
}

// atomic runs fn through the store, retrying serialization conflicts.
func (e *Engine) atomic(ctx context.Context, fn func(ctx context.Context, repo storage.Repository) error) error {
	var err error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		err = e.store.Atomic(ctx, fn)
		if !errors.Is(err, storage.ErrConflict) {
			return err
		}

		e.logger.Warn("retrying after serialization conflict",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", e.maxAttempts),
			zap.Error(err),
		)
	}
	return fmt.Errorf("giving up after %d attempts: %w", e.maxAttempts, err)
}

func findPair(pool []*jobs.Job, winnerID, loserID uuid.UUID) (*jobs.Job, *jobs.Job, error) {
	var winner, loser *jobs.Job
	for _, job := range pool {
		switch job.ID {
		case winnerID:
			winner = job
		case loserID:
			loser = job
		}
	}

	if winner == nil {
		return nil, nil, fmt.Errorf("%w: %s", jobs.ErrNotFound, winnerID)
	}
	if loser == nil {
		return nil, nil, fmt.Errorf("%w: %s", jobs.ErrNotFound, loserID)
	}
	return winner, loser, nil
}

func union(sets ...[]*jobs.Job) []*jobs.Job {
	seen := make(map[uuid.UUID]struct{})
	var out []*jobs.Job
	for _, set := range sets {
		for _, job := range set {
			if _, ok := seen[job.ID]; ok {
				continue
			}
			seen[job.ID] = struct{}{}
			out = append(out, job)
		}
	}
	return out
}

// embeddingsOnly strips ratings so a stale snapshot never overwrites them.
func embeddingsOnly(items []*jobs.Job) []*jobs.Job {
	out := make([]*jobs.Job, 0, len(items))
	for _, job := range items {
		out = append(out, &jobs.Job{ID: job.ID, Embedding: append([]float32(nil), job.Embedding...)})
	}
	return out
}
