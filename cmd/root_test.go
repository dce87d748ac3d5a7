package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/jobrank/internal/ai/gemini"
	"github.com/spigell/jobrank/internal/ranking"
	"github.com/spigell/jobrank/internal/storage/memory"
)

func TestDecodeConfigDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg, err := decodeConfig(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Preference.Rating.K != 32 || cfg.Preference.Rating.Spread != 0.3 || cfg.Preference.Rating.Baseline != 1000 {
		t.Fatalf("unexpected rating defaults %+v", cfg.Preference.Rating)
	}
	if cfg.Preference.Engine.MaxAttempts != 3 {
		t.Fatalf("unexpected max attempts %d", cfg.Preference.Engine.MaxAttempts)
	}
	if cfg.Embedding.Provider != providerGemini || cfg.Embedding.Dimensions != 768 {
		t.Fatalf("unexpected embedding defaults %+v", cfg.Embedding)
	}
	if cfg.Embedding.Gemini.Model != gemini.DefaultEmbeddingModel || cfg.Embedding.Ollama.Timeout != 120*time.Second {
		t.Fatalf("unexpected embedding provider defaults %+v / %+v", cfg.Embedding.Gemini, cfg.Embedding.Ollama)
	}
	if cfg.AI.Gemini.Model != gemini.DefaultModel || cfg.AI.Gemini.MaxRetries != gemini.DefaultMaxRetries {
		t.Fatalf("unexpected ai defaults %+v", cfg.AI.Gemini)
	}
	if cfg.Ranking != ranking.DefaultWeights() {
		t.Fatalf("unexpected ranking weights %+v", cfg.Ranking)
	}
	if cfg.Filters.MaxBatchJobs != 25 {
		t.Fatalf("unexpected max batch jobs %d", cfg.Filters.MaxBatchJobs)
	}
	if cfg.Database.Driver != driverPostgres || cfg.Database.Postgres.ConnMaxLifetime != 30*time.Minute {
		t.Fatalf("unexpected database defaults %+v", cfg.Database)
	}
	if cfg.Headhunter == nil || cfg.Search == nil || cfg.Gemini == nil {
		t.Fatalf("expected optional sections to be initialized")
	}
}

func TestDecodeConfigFromYAML(t *testing.T) {
	const raw = `
database:
  driver: memory
  dsn: postgres://jobrank@localhost/jobrank
preference:
  k: 16
  seed: 7
search:
  text: golang
  areas: [1, 2]
  limit: 10
filters:
  companies: [Acme]
  minimum-fit-score: 40
ai:
  model: gemini-2.5-pro
  prompt:
    deal-breakers: no on-call
ranking:
  fit: 0.5
  preference: 0.5
`
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(raw)); err != nil {
		t.Fatalf("read config: %v", err)
	}

	cfg, err := decodeConfig(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Database.Driver != driverMemory || cfg.Database.Postgres.DSN != "postgres://jobrank@localhost/jobrank" {
		t.Fatalf("unexpected database config %+v", cfg.Database)
	}
	if cfg.Preference.Rating.K != 16 || cfg.Preference.Rating.Spread != 0.3 || cfg.Preference.Seed != 7 {
		t.Fatalf("unexpected preference config %+v", cfg.Preference)
	}
	if cfg.Search.Text != "golang" || len(cfg.Search.Areas) != 2 || cfg.Search.Limit != 10 {
		t.Fatalf("unexpected search config %+v", cfg.Search)
	}
	if len(cfg.Filters.Companies) != 1 || cfg.Filters.MinimumFitScore != 40 {
		t.Fatalf("unexpected filters config %+v", cfg.Filters)
	}
	if cfg.AI.Gemini.Model != "gemini-2.5-pro" || cfg.AI.Prompt.DealBreakers != "no on-call" {
		t.Fatalf("unexpected ai config %+v", cfg.AI)
	}
	if cfg.Ranking.Fit != 0.5 || cfg.Ranking.Preference != 0.5 {
		t.Fatalf("unexpected ranking config %+v", cfg.Ranking)
	}
}

func TestOpenStoreDrivers(t *testing.T) {
	ctx := context.Background()

	store, err := openStore(ctx, &Config{Database: &DatabaseConfig{Driver: "Memory"}}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}

	if _, err := openStore(ctx, &Config{Database: &DatabaseConfig{Driver: "sqlite"}}, zap.NewNop()); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestNewEmbedderProviders(t *testing.T) {
	for _, provider := range []string{"", "gemini", "Ollama"} {
		if _, err := newEmbedder(&Config{Embedding: &EmbeddingConfig{Provider: provider}}, zap.NewNop()); err != nil {
			t.Fatalf("provider %q: unexpected error: %v", provider, err)
		}
	}

	if _, err := newEmbedder(&Config{Embedding: &EmbeddingConfig{Provider: "openai"}}, zap.NewNop()); err == nil {
		t.Fatalf("expected error for unsupported provider")
	}
}

func TestPrintEntries(t *testing.T) {
	fit := 80
	pref := 50.0
	entries := []ranking.Entry{
		{Rank: 1, JobID: uuid.New(), Title: "Go Developer", Company: "Acme", FitScore: &fit, Preference: &pref, Combined: 68,
			RecommendedResume: "backend", Guidance: "Use the backend resume. It compares well. Downside: on-call."},
		{Rank: 2, JobID: uuid.New(), Title: "SRE", Combined: 0},
	}

	var table bytes.Buffer
	if err := printEntries(&table, entries, false, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(table.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got:\n%s", table.String())
	}
	if !strings.Contains(lines[1], "68.00") || !strings.Contains(lines[1], "Go Developer") || !strings.Contains(lines[1], "backend") {
		t.Fatalf("unexpected first row %q", lines[1])
	}
	if strings.Count(lines[2], " - ") < 3 {
		t.Fatalf("expected placeholders for missing values, got %q", lines[2])
	}

	var guided bytes.Buffer
	if err := printEntries(&guided, entries, false, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(guided.String(), "1. Go Developer\n   Use the backend resume.") {
		t.Fatalf("expected guidance under the table, got:\n%s", guided.String())
	}
	if strings.Contains(guided.String(), "2. SRE") {
		t.Fatalf("entries without guidance must be skipped, got:\n%s", guided.String())
	}

	var out bytes.Buffer
	if err := printEntries(&out, entries, true, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded []ranking.Entry
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("decode json output: %v", err)
	}
	if len(decoded) != 2 || decoded[0].Title != "Go Developer" || decoded[0].Guidance == "" {
		t.Fatalf("unexpected json output %s", out.String())
	}
}
