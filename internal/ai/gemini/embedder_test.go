package gemini

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeModels struct {
	calls  int
	model  string
	config *genai.EmbedContentConfig
	text   string
	resp   *genai.EmbedContentResponse
	err    error
}

func (f *fakeModels) EmbedContent(_ context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.calls++
	f.model = model
	f.config = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.text = contents[0].Parts[0].Text
	}
	return f.resp, f.err
}

func embedResponse(values ...float32) *genai.EmbedContentResponse {
	return &genai.EmbedContentResponse{Embeddings: []*genai.ContentEmbedding{{Values: values}}}
}

func TestEmbedderEmbed(t *testing.T) {
	models := &fakeModels{resp: embedResponse(0.1, 0.2, 0.3)}
	e := newEmbedder(models, &EmbedderConfig{Dimensions: 3}, zap.NewNop())

	values, err := e.Embed(context.Background(), "Go Developer at Acme - billing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(values) != 3 {
		t.Fatalf("expected 3 values, got %d", len(values))
	}

	if models.model != DefaultEmbeddingModel {
		t.Fatalf("expected default model, got %q", models.model)
	}
	if models.text != "Go Developer at Acme - billing" {
		t.Fatalf("unexpected text sent: %q", models.text)
	}
	if models.config.OutputDimensionality == nil || *models.config.OutputDimensionality != 3 {
		t.Fatalf("expected output dimensionality 3")
	}
	if models.config.TaskType != similarityTaskType {
		t.Fatalf("unexpected task type %q", models.config.TaskType)
	}
}

func TestEmbedderRejectsBadResponses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		resp *genai.EmbedContentResponse
		err  error
	}{
		{name: "api error", err: errors.New("boom")},
		{name: "nil response"},
		{name: "no embeddings", resp: &genai.EmbedContentResponse{}},
		{name: "empty vector", resp: embedResponse()},
		{name: "nan", resp: embedResponse(1, float32(math.NaN()))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := newEmbedder(&fakeModels{resp: tt.resp, err: tt.err}, nil, zap.NewNop())
			if _, err := e.Embed(context.Background(), "text"); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestEmbedderRateLimitHonoursContext(t *testing.T) {
	models := &fakeModels{resp: embedResponse(1)}
	e := newEmbedder(models, &EmbedderConfig{RequestsPerSecond: 0.001, Burst: 1}, zap.NewNop())

	if _, err := e.Embed(context.Background(), "first"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := e.Embed(ctx, "second"); err == nil {
		t.Fatalf("expected rate limiter to give up on context deadline")
	}
	if models.calls != 1 {
		t.Fatalf("expected the throttled call to never reach the api, got %d calls", models.calls)
	}
}
