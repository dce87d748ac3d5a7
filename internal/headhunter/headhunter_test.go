package headhunter

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, token string, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := New(zaptest.NewLogger(t), token)
	client.APIURL = server.URL
	client.HTTPClient = server.Client()
	client.PageDelay = 0

	return client
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func TestSearchPaginates(t *testing.T) {
	var calls atomic.Int32

	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != SearchPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("expected no authorization header without token")
		}
		if r.URL.Query().Get("text") != "golang" || r.URL.Query().Get("per_page") != perPage {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}

		page := r.URL.Query().Get("page")
		items := []map[string]any{{
			"id":            "p0",
			"name":          "Go Developer",
			"alternate_url": "https://hh.ru/vacancy/p0",
			"employer":      map[string]any{"id": "e1", "name": "Acme"},
			"area":          map[string]any{"id": "1", "name": "Moscow"},
			"salary":        nil,
		}}
		current := 0
		if page == "1" {
			current = 1
			items = []map[string]any{{
				"id":     "p1",
				"name":   "SRE",
				"salary": map[string]any{"from": 5000.0, "currency": "USD"},
			}}
		}

		writeJSON(t, w, map[string]any{
			"items":    items,
			"found":    2,
			"pages":    2,
			"page":     current,
			"per_page": 1,
		})
	})

	vacancies, err := client.Search(context.Background(), &SearchParams{Text: "golang"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calls.Load() != 2 {
		t.Fatalf("expected 2 requests, got %d", calls.Load())
	}
	if vacancies.Len() != 2 {
		t.Fatalf("expected 2 vacancies, got %d", vacancies.Len())
	}
	first := vacancies.FindByID("p0")
	if first == nil || first.Employer.Name != "Acme" || first.Area.Name != "Moscow" || first.Salary != nil {
		t.Fatalf("unexpected first vacancy %+v", first)
	}
	second := vacancies.FindByID("p1")
	if second == nil || second.Salary == nil || second.Salary.From != 5000 {
		t.Fatalf("unexpected second vacancy %+v", second)
	}
}

func TestSearchStopsAtLimit(t *testing.T) {
	var calls atomic.Int32

	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(t, w, map[string]any{
			"items": []map[string]any{{"id": "a"}, {"id": "b"}, {"id": "c"}},
			"pages": 5,
			"page":  0,
		})
	})

	vacancies, err := client.Search(context.Background(), &SearchParams{Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single request, got %d", calls.Load())
	}
	if vacancies.Len() != 2 {
		t.Fatalf("expected 2 vacancies, got %d", vacancies.Len())
	}
}

func TestGetVacancyDecodesGzip(t *testing.T) {
	client := newTestClient(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vacancies/42" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("unexpected authorization header %q", r.Header.Get("Authorization"))
		}

		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		defer gz.Close()
		_ = json.NewEncoder(gz).Encode(map[string]any{
			"id":          "42",
			"name":        "Platform Engineer",
			"description": "<p>Kubernetes</p>",
			"key_skills":  []map[string]any{{"name": "Go"}},
		})
	})

	vacancy, err := client.GetVacancy(context.Background(), "42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vacancy.Name != "Platform Engineer" || len(vacancy.KeySkills) != 1 {
		t.Fatalf("unexpected vacancy %+v", vacancy)
	}
	if got := vacancy.Text(); got != "Kubernetes\n\nKey skills: Go" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestBadStatusIsReported(t *testing.T) {
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"type":"not_found"}]}`, http.StatusNotFound)
	})

	_, err := client.GetVacancy(context.Background(), "404")
	if err == nil || !strings.Contains(err.Error(), "bad status") {
		t.Fatalf("expected bad status error, got %v", err)
	}
}

func TestTokenRequiredForPrivateEndpoints(t *testing.T) {
	client := New(nil, " ")

	if _, err := client.GetNegotiations(context.Background()); err == nil {
		t.Fatalf("expected error for negotiations without token")
	}
	if _, err := client.GetMineResumes(context.Background()); err == nil {
		t.Fatalf("expected error for resumes without token")
	}
}

func TestGetNegotiations(t *testing.T) {
	client := newTestClient(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("status") != allStatusesExceptArchived {
			t.Errorf("unexpected status filter %q", r.URL.Query().Get("status"))
		}
		writeJSON(t, w, map[string]any{
			"items": []map[string]any{
				{"id": "n1", "created_at": "2025-01-01", "vacancy": map[string]any{"id": "v1"}},
				{"id": "n2", "vacancy": nil},
			},
			"pages": 1,
		})
	})

	negotiations, err := client.GetNegotiations(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ids := negotiations.VacanciesIDs()
	if len(ids) != 1 || ids[0] != "v1" {
		t.Fatalf("unexpected vacancy ids %v", ids)
	}
}

func TestResumeDetailsText(t *testing.T) {
	client := newTestClient(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/resumes/mine":
			writeJSON(t, w, map[string]any{
				"items": []map[string]any{{"id": "r1", "title": "Go Engineer"}},
				"pages": 1,
			})
		case "/resumes/r1":
			writeJSON(t, w, map[string]any{
				"id":        "r1",
				"title":     "Go Engineer",
				"area":      map[string]any{"id": "1", "name": "Berlin"},
				"skill_set": []string{"Go", "Kafka"},
				"skills":    "<p>I like distributed systems.</p>",
				"experience": []map[string]any{{
					"company":     "Acme",
					"position":    "Backend Developer",
					"start":       "2020-01-01",
					"end":         nil,
					"description": "Payments",
				}},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	resumes, err := client.GetMineResumes(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resume := resumes.FindByTitle("Go Engineer")
	if resume == nil {
		t.Fatalf("expected resume by title, got %v", resumes.Titles())
	}

	details, err := client.GetResumeDetails(context.Background(), resume.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text, err := details.Text()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, part := range []string{
		"Go Engineer",
		"Location: Berlin",
		"Skills: Go, Kafka",
		"I like distributed systems.",
		"- Backend Developer at Acme (2020-01-01 to present)",
		"Payments",
	} {
		if !strings.Contains(text, part) {
			t.Fatalf("expected %q in resume text:\n%s", part, text)
		}
	}
}
