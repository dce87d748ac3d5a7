package gemini

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/spigell/jobrank/internal/logger"
)

const (
	DefaultEmbeddingModel = "gemini-embedding-001"

	similarityTaskType = "SEMANTIC_SIMILARITY"
)

type embedModels interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

type EmbedderConfig struct {
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
	// RequestsPerSecond throttles calls to the API. Zero disables throttling.
	RequestsPerSecond float64 `mapstructure:"requests-per-second"`
	Burst             int     `mapstructure:"burst"`
}

// Embedder produces text embeddings through the Gemini API.
type Embedder struct {
	models     embedModels
	model      string
	dimensions int
	limiter    *rate.Limiter
	logger     *zap.Logger
}

func NewEmbedder(client *genai.Client, cfg *EmbedderConfig, log *zap.Logger) (*Embedder, error) {
	if client == nil {
		return nil, errors.New("genai client is required")
	}
	return newEmbedder(client.Models, cfg, log), nil
}

func newEmbedder(models embedModels, cfg *EmbedderConfig, log *zap.Logger) *Embedder {
	if cfg == nil {
		cfg = &EmbedderConfig{}
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultEmbeddingModel
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Every(time.Duration(float64(time.Second)/cfg.RequestsPerSecond)), burst)
	}

	return &Embedder{
		models:     models,
		model:      model,
		dimensions: cfg.Dimensions,
		limiter:    limiter,
		logger:     logger.WithCommonFields(log, "gemini", model),
	}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	config := &genai.EmbedContentConfig{TaskType: similarityTaskType}
	if e.dimensions > 0 {
		dims := int32(e.dimensions)
		config.OutputDimensionality = &dims
	}

	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}

	started := time.Now()
	resp, err := e.models.EmbedContent(ctx, e.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}

	values, err := embeddingValues(resp)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("gemini embedding created",
		zap.Int("dimensions", len(values)),
		zap.Duration("took", time.Since(started)),
	)
	return values, nil
}

func embeddingValues(resp *genai.EmbedContentResponse) ([]float32, error) {
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, errors.New("gemini api returned no embeddings")
	}

	values := resp.Embeddings[0].Values
	if len(values) == 0 {
		return nil, errors.New("gemini api returned an empty embedding")
	}

	for i, v := range values {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, fmt.Errorf("invalid embedding value at index %d: %v", i, v)
		}
	}
	return values, nil
}
