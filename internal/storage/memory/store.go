// Package memory is an in-process implementation of storage.Store.
// It backs tests and runs without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spigell/jobrank/internal/jobs"
	"github.com/spigell/jobrank/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store keeps everything in maps guarded by a RWMutex. Values are copied on the
// way in and out so callers never share state with the store.
type Store struct {
	mu    sync.RWMutex
	state *data
}

func New() *Store {
	return &Store{state: newData()}
}

// Seed inserts jobs as they are, keeping ids, ratings and embeddings.
func (s *Store) Seed(items ...*jobs.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range items {
		s.state.put(job.Clone())
	}
}

// Atomic holds the write lock for the whole unit of work and applies a staged copy on success.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, repo storage.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	staged := s.state.clone()
	if err := fn(ctx, staged); err != nil {
		return err
	}

	s.state = staged
	return nil
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) ListJobs(ctx context.Context) ([]*jobs.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ListJobs(ctx)
}

func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (*jobs.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.GetJob(ctx, id)
}

func (s *Store) SaveRatingsAndEmbeddings(ctx context.Context, changed []*jobs.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SaveRatingsAndEmbeddings(ctx, changed)
}

func (s *Store) AppendComparison(ctx context.Context, c *jobs.Comparison) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AppendComparison(ctx, c)
}

func (s *Store) ComparisonCounts(ctx context.Context) (map[uuid.UUID]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ComparisonCounts(ctx)
}

func (s *Store) UpsertJob(_ context.Context, job *jobs.Job) (*jobs.Job, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.Hash == "" {
		job.Hash = jobs.ComputeHash(job.Title, job.Company, job.Location, job.URL, job.RawText)
	}
	if id, ok := s.state.hashes[job.Hash]; ok {
		return s.state.jobs[id].Clone(), false, nil
	}

	stored := job.Clone()
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if stored.CapturedAt.IsZero() {
		stored.CapturedAt = time.Now().UTC()
	}
	s.state.put(stored)

	return stored.Clone(), true, nil
}

func (s *Store) SaveAnalyses(_ context.Context, analyzed []*jobs.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range analyzed {
		if _, ok := s.state.jobs[job.ID]; !ok {
			return fmt.Errorf("%w: %s", jobs.ErrNotFound, job.ID)
		}
	}

	for _, job := range analyzed {
		stored := s.state.jobs[job.ID]
		c := job.Clone()
		stored.Score = c.Score
		stored.Reasoning = c.Reasoning
		stored.AboutSummary = c.AboutSummary
		stored.RecommendedResume = c.RecommendedResume
		stored.Guidance = c.Guidance
		stored.Requirements = c.Requirements
		stored.AnalyzedAt = c.AnalyzedAt
	}
	return nil
}

func (s *Store) ListComparisons(_ context.Context) ([]*jobs.Comparison, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*jobs.Comparison, 0, len(s.state.comparisons))
	for _, c := range s.state.comparisons {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) LatestResume(_ context.Context) (*jobs.Resume, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state.resume == nil {
		return nil, fmt.Errorf("%w: no resume stored", jobs.ErrNotFound)
	}
	r := *s.state.resume
	return &r, nil
}

func (s *Store) SaveResume(_ context.Context, text string) (*jobs.Resume, error) {
	text, err := jobs.ValidateResumeText(text)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r := &jobs.Resume{ID: uuid.New(), RawText: text, UpdatedAt: time.Now().UTC()}
	s.state.resume = r
	cp := *r
	return &cp, nil
}

// data is the unlocked state. It doubles as the repository handed to Atomic.
type data struct {
	jobs        map[uuid.UUID]*jobs.Job
	hashes      map[string]uuid.UUID
	comparisons []*jobs.Comparison
	resume      *jobs.Resume
}

func newData() *data {
	return &data{
		jobs:   make(map[uuid.UUID]*jobs.Job),
		hashes: make(map[string]uuid.UUID),
	}
}

func (d *data) put(job *jobs.Job) {
	d.jobs[job.ID] = job
	if job.Hash != "" {
		d.hashes[job.Hash] = job.ID
	}
}

func (d *data) clone() *data {
	c := newData()
	for _, job := range d.jobs {
		c.put(job.Clone())
	}
	c.comparisons = append(c.comparisons, d.comparisons...)
	c.resume = d.resume
	return c
}

func (d *data) ListJobs(ctx context.Context) ([]*jobs.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]*jobs.Job, 0, len(d.jobs))
	for _, job := range d.jobs {
		out = append(out, job.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CapturedAt.Equal(out[j].CapturedAt) {
			return out[i].CapturedAt.Before(out[j].CapturedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (d *data) GetJob(ctx context.Context, id uuid.UUID) (*jobs.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	job, ok := d.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", jobs.ErrNotFound, id)
	}
	return job.Clone(), nil
}

func (d *data) SaveRatingsAndEmbeddings(ctx context.Context, changed []*jobs.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, job := range changed {
		if _, ok := d.jobs[job.ID]; !ok {
			return fmt.Errorf("%w: %s", jobs.ErrNotFound, job.ID)
		}
	}

	for _, job := range changed {
		c := job.Clone()
		stored := d.jobs[job.ID]
		if c.Rating != nil {
			stored.Rating = c.Rating
		}
		if c.HasEmbedding() && !stored.HasEmbedding() {
			stored.Embedding = c.Embedding
		}
	}
	return nil
}

func (d *data) AppendComparison(ctx context.Context, c *jobs.Comparison) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, id := range []uuid.UUID{c.JobA, c.JobB, c.Chosen, c.Rejected} {
		if _, ok := d.jobs[id]; !ok {
			return fmt.Errorf("%w: %s", jobs.ErrNotFound, id)
		}
	}

	cp := *c
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
		c.ID = cp.ID
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
		c.CreatedAt = cp.CreatedAt
	}
	d.comparisons = append(d.comparisons, &cp)
	return nil
}

func (d *data) ComparisonCounts(ctx context.Context) (map[uuid.UUID]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return jobs.CountByJob(d.comparisons), nil
}
