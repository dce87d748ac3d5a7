// Package ollama embeds text with a locally running Ollama server.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/spigell/jobrank/internal/logger"
)

const (
	DefaultHost    = "http://localhost:11434"
	DefaultModel   = "nomic-embed-text"
	DefaultTimeout = 120 * time.Second
)

type Config struct {
	Host    string        `mapstructure:"host"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

type Embedder struct {
	client *resty.Client
	model  string
	logger *zap.Logger
}

func NewEmbedder(cfg *Config, log *zap.Logger) *Embedder {
	if cfg == nil {
		cfg = &Config{}
	}

	host := strings.TrimRight(strings.TrimSpace(cfg.Host), "/")
	if host == "" {
		host = DefaultHost
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := resty.New().
		SetBaseURL(host).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &Embedder{
		client: client,
		model:  model,
		logger: logger.WithCommonFields(log, "ollama", model),
	}
}

// Open verifies that the server is reachable and the model is pulled.
func (e *Embedder) Open(ctx context.Context) error {
	var tags tagsResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetResult(&tags).
		Get("/api/tags")
	if err != nil {
		return fmt.Errorf("ollama tags request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("ollama tags: status %d", resp.StatusCode())
	}

	for _, m := range tags.Models {
		if m.Name == e.model || strings.TrimSuffix(m.Name, ":latest") == e.model {
			e.logger.Debug("ollama model available")
			return nil
		}
	}
	return fmt.Errorf("ollama model %q is not pulled", e.model)
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var result embedResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(embedRequest{Model: e.model, Input: text}).
		SetResult(&result).
		Post("/api/embed")
	if err != nil {
		return nil, fmt.Errorf("ollama embed request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("ollama embed: status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}

	if len(result.Embeddings) == 0 || len(result.Embeddings[0]) == 0 {
		return nil, errors.New("ollama returned empty embeddings")
	}

	e.logger.Debug("ollama embedding created",
		zap.Int("dimensions", len(result.Embeddings[0])),
		zap.Duration("took", resp.Time()),
	)
	return result.Embeddings[0], nil
}
