package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestEmbed(t *testing.T) {
	var got embedRequest
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"embeddings": [[0.5, 0.25, 0.125]]}`))
	})

	e := NewEmbedder(&Config{Host: srv.URL + "/", Model: "mxbai-embed-large"}, zap.NewNop())

	vec, err := e.Embed(context.Background(), "Go Developer at Acme - billing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.5 {
		t.Fatalf("unexpected vector %v", vec)
	}
	if got.Model != "mxbai-embed-large" || got.Input != "Go Developer at Acme - billing" {
		t.Fatalf("unexpected request body %+v", got)
	}
}

func TestEmbedErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"error": "model not found"}`},
		{name: "empty embeddings", status: http.StatusOK, body: `{"embeddings": []}`},
		{name: "empty vector", status: http.StatusOK, body: `{"embeddings": [[]]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			e := NewEmbedder(&Config{Host: srv.URL}, zap.NewNop())
			if _, err := e.Embed(context.Background(), "text"); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestOpen(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"models": [{"name": "nomic-embed-text:latest"}]}`))
	})

	if err := NewEmbedder(&Config{Host: srv.URL}, zap.NewNop()).Open(context.Background()); err != nil {
		t.Fatalf("expected default model to be found: %v", err)
	}

	if err := NewEmbedder(&Config{Host: srv.URL, Model: "missing"}, zap.NewNop()).Open(context.Background()); err == nil {
		t.Fatalf("expected error for a model that is not pulled")
	}
}
