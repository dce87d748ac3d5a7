package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/jobrank/internal/jobs"
	"github.com/spigell/jobrank/internal/vecmath"
)

// ErrModelUnavailable is returned when the embedding backend cannot be opened or fails to embed.
// Retrying with different input will not help.
var ErrModelUnavailable = errors.New("embedding model unavailable")

// Provider turns text into a vector.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ProviderFactory opens a provider. It is called until it succeeds or fails
// for a reason other than the caller's context.
type ProviderFactory func(ctx context.Context) (Provider, error)

type Config struct {
	// Dimensions is the expected vector length. Zero disables the check.
	Dimensions int
}

// Embedder returns unit-normalized embeddings and opens its provider on first use.
type Embedder struct {
	factory ProviderFactory
	dims    int
	logger  *zap.Logger

	mu       sync.Mutex
	opened   bool
	provider Provider
	openErr  error
}

func New(factory ProviderFactory, cfg *Config, logger *zap.Logger) *Embedder {
	if logger == nil {
		logger = zap.NewNop()
	}

	dims := 0
	if cfg != nil && cfg.Dimensions > 0 {
		dims = cfg.Dimensions
	}

	return &Embedder{
		factory: factory,
		dims:    dims,
		logger:  logger,
	}
}

// NewWithProvider wraps an already opened provider.
func NewWithProvider(p Provider, cfg *Config, logger *zap.Logger) *Embedder {
	return New(func(context.Context) (Provider, error) { return p, nil }, cfg, logger)
}

func (e *Embedder) open(ctx context.Context) (Provider, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.opened {
		provider, err := e.openProvider(ctx)
		if err != nil && isContextErr(err) {
			return nil, err
		}
		e.provider, e.openErr, e.opened = provider, err, true
	}

	if e.openErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, e.openErr)
	}
	return e.provider, nil
}

func (e *Embedder) openProvider(ctx context.Context) (Provider, error) {
	if e.factory == nil {
		return nil, errors.New("provider factory is not configured")
	}

	provider, err := e.factory(ctx)
	if err == nil && provider == nil {
		err = errors.New("provider factory returned nil provider")
	}
	if err != nil {
		if isContextErr(err) {
			e.logger.Warn("opening embedding provider interrupted", zap.Error(err))
			return nil, err
		}
		e.logger.Error("opening embedding provider", zap.Error(err))
		return nil, err
	}

	e.logger.Debug("embedding provider opened")
	return provider, nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Embed returns the unit-normalized embedding of text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("text for embedding must not be empty")
	}

	provider, err := e.open(ctx)
	if err != nil {
		return nil, err
	}

	vec, err := provider.Embed(ctx, text)
	if err != nil {
		if isContextErr(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}

	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: provider returned an empty vector", ErrModelUnavailable)
	}
	if e.dims > 0 && len(vec) != e.dims {
		return nil, fmt.Errorf("%w: expected %d dimensions, got %d", ErrModelUnavailable, e.dims, len(vec))
	}

	return vecmath.Normalize(vec), nil
}

// Plan holds embeddings computed for jobs that lacked one.
type Plan map[uuid.UUID][]float32

// Plan computes embeddings for every job without one. Jobs are not modified.
func (e *Embedder) Plan(ctx context.Context, items []*jobs.Job) (Plan, error) {
	plan := make(Plan)
	for _, job := range items {
		if job == nil || job.HasEmbedding() {
			continue
		}
		if _, done := plan[job.ID]; done {
			continue
		}

		vec, err := e.Embed(ctx, job.EmbeddingText())
		if err != nil {
			return nil, fmt.Errorf("embedding job %s: %w", job.ID, err)
		}
		plan[job.ID] = vec
	}

	if len(plan) > 0 {
		e.logger.Debug("computed embeddings", zap.Int("count", len(plan)))
	}

	return plan, nil
}

// Apply sets planned embeddings on jobs that still lack one and returns the changed jobs.
func (p Plan) Apply(items []*jobs.Job) []*jobs.Job {
	var changed []*jobs.Job
	for _, job := range items {
		if job == nil || job.HasEmbedding() {
			continue
		}
		vec, ok := p[job.ID]
		if !ok {
			continue
		}
		job.Embedding = append([]float32(nil), vec...)
		changed = append(changed, job)
	}
	return changed
}

// EnsureEmbeddings embeds every job lacking an embedding in place and returns the changed jobs.
// Persisting them is up to the caller.
func (e *Embedder) EnsureEmbeddings(ctx context.Context, items []*jobs.Job) ([]*jobs.Job, error) {
	plan, err := e.Plan(ctx, items)
	if err != nil {
		return nil, err
	}
	return plan.Apply(items), nil
}
