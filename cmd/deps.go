package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/jobrank/internal/ai/gemini"
	"github.com/spigell/jobrank/internal/ai/ollama"
	"github.com/spigell/jobrank/internal/embedding"
	"github.com/spigell/jobrank/internal/headhunter"
	"github.com/spigell/jobrank/internal/pairing"
	"github.com/spigell/jobrank/internal/preference"
	"github.com/spigell/jobrank/internal/rating"
	"github.com/spigell/jobrank/internal/secrets"
	"github.com/spigell/jobrank/internal/storage"
	"github.com/spigell/jobrank/internal/storage/memory"
	"github.com/spigell/jobrank/internal/storage/postgres"
)

const (
	driverPostgres = "postgres"
	driverMemory   = "memory"

	providerGemini = "gemini"
	providerOllama = "ollama"
)

func openStore(ctx context.Context, config *Config, logger *zap.Logger) (storage.Store, error) {
	driver := strings.ToLower(strings.TrimSpace(config.Database.Driver))
	switch driver {
	case "", driverPostgres:
		return openPostgres(ctx, config, logger)
	case driverMemory:
		logger.Warn("using the memory store, nothing is kept after the command exits")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", config.Database.Driver)
	}
}

func openPostgres(ctx context.Context, config *Config, logger *zap.Logger) (*postgres.Store, error) {
	dsn, err := secrets.Load(secrets.Source{
		Name:  "database dsn",
		Value: config.Database.Postgres.DSN,
		File:  config.Database.DSNFile,
		Env:   envPrefix + "_DATABASE_DSN",
	})
	if err != nil {
		return nil, err
	}

	pgConfig := config.Database.Postgres
	pgConfig.DSN = dsn

	return postgres.Open(ctx, &pgConfig, logger.Named("postgres"))
}

func geminiAPIKey(config *Config) (string, error) {
	key, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: config.Gemini.APIKey,
		File:  config.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return "", fmt.Errorf("%w (set gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}
	return key, nil
}

// newEmbedder returns an embedder whose provider is opened on first use.
func newEmbedder(config *Config, logger *zap.Logger) (*embedding.Embedder, error) {
	cfg := config.Embedding
	if cfg == nil {
		cfg = &EmbeddingConfig{}
	}

	var factory embedding.ProviderFactory
	switch provider := strings.ToLower(strings.TrimSpace(cfg.Provider)); provider {
	case "", providerGemini:
		geminiCfg := gemini.EmbedderConfig{}
		if cfg.Gemini != nil {
			geminiCfg = *cfg.Gemini
		}
		if geminiCfg.Dimensions == 0 {
			geminiCfg.Dimensions = cfg.Dimensions
		}

		factory = func(ctx context.Context) (embedding.Provider, error) {
			key, err := geminiAPIKey(config)
			if err != nil {
				return nil, err
			}
			client, err := gemini.NewClient(ctx, key)
			if err != nil {
				return nil, err
			}
			e, err := gemini.NewEmbedder(client, &geminiCfg, logger)
			if err != nil {
				return nil, err
			}
			return e, nil
		}
	case providerOllama:
		factory = func(ctx context.Context) (embedding.Provider, error) {
			e := ollama.NewEmbedder(cfg.Ollama, logger)
			if err := e.Open(ctx); err != nil {
				return nil, err
			}
			return e, nil
		}
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}

	return embedding.New(factory, &embedding.Config{Dimensions: cfg.Dimensions}, logger.Named("embedding")), nil
}

func newEngine(config *Config, store storage.Store, logger *zap.Logger) (*preference.Engine, error) {
	pref := config.Preference
	if pref == nil {
		pref = &PreferenceConfig{Rating: *rating.DefaultConfig()}
	}

	updater, err := rating.NewUpdater(&pref.Rating, logger)
	if err != nil {
		return nil, fmt.Errorf("preference config: %w", err)
	}

	embedder, err := newEmbedder(config, logger)
	if err != nil {
		return nil, err
	}

	selector := pairing.New()
	if pref.Seed != 0 {
		selector = pairing.NewSeeded(pref.Seed)
	}

	return preference.New(&pref.Engine, preference.Deps{
		Store:    store,
		Embedder: embedder,
		Updater:  updater,
		Selector: selector,
		Logger:   logger,
	})
}

func newScorer(ctx context.Context, config *Config, logger *zap.Logger) (*gemini.Scorer, error) {
	aiCfg := config.AI
	if aiCfg == nil {
		aiCfg = &AIConfig{}
	}

	key, err := geminiAPIKey(config)
	if err != nil {
		return nil, err
	}

	client, err := gemini.NewClient(ctx, key)
	if err != nil {
		return nil, err
	}

	generator, err := gemini.NewGenerator(client, &aiCfg.Gemini, logger)
	if err != nil {
		return nil, err
	}

	scorer := gemini.NewScorer(generator, aiCfg.MaxLogLength, logger)
	scorer.SetPromptOverrides(aiCfg.Prompt)

	return scorer, nil
}

// newHeadhunter builds the hh.ru client. Search works without a token.
func newHeadhunter(config *Config, logger *zap.Logger, requireToken bool) (*headhunter.Client, error) {
	token, err := secrets.Load(secrets.Source{
		Name:  "headhunter token",
		Value: config.Headhunter.Token,
		File:  config.Headhunter.TokenFile,
		Env:   "HH_TOKEN",
	})
	if err != nil && requireToken {
		return nil, fmt.Errorf("%w (set HH_TOKEN_FILE or headhunter.token-file)", err)
	}

	hh := headhunter.New(logger.Named("headhunter"), token)
	if config.Headhunter.UserAgent != "" {
		hh.UserAgent = config.Headhunter.UserAgent
	}

	return hh, nil
}
