package jobs

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxRawTextRunes is the upper bound for a stored job description.
	MaxRawTextRunes = 50000
	// snippetRunes is how much of the raw description feeds the embedding text
	// when no structured summary exists.
	snippetRunes = 500
)

type Job struct {
	ID       uuid.UUID `json:"id"`
	Hash     string    `json:"hash,omitempty"`
	Title    string    `json:"title,omitempty"`
	Company  string    `json:"company,omitempty"`
	Location string    `json:"location,omitempty"`
	URL      string    `json:"url,omitempty"`
	RawText  string    `json:"raw_text,omitempty"`

	// AboutSummary is the short structured summary produced by the fit scorer.
	AboutSummary string `json:"about_summary,omitempty"`

	Score      *int       `json:"score,omitempty"`
	Reasoning  string     `json:"reasoning,omitempty"`
	AnalyzedAt *time.Time `json:"analyzed_at,omitempty"`

	// RecommendedResume is a short key naming the resume variant to send.
	RecommendedResume string        `json:"recommended_resume,omitempty"`
	// Guidance is a three sentence verdict: the bet, the comparison, the downside.
	Guidance          string        `json:"guidance,omitempty"`
	Requirements      *Requirements `json:"requirements,omitempty"`

	// Rating is the pairwise preference rating. Absent until a comparison touches the job.
	Rating    *float64  `json:"rating,omitempty"`
	Embedding []float32 `json:"-"`

	CapturedAt time.Time `json:"captured_at"`
}

// RatingOr returns the current rating or the given baseline when absent.
func (j *Job) RatingOr(baseline float64) float64 {
	if j.Rating == nil {
		return baseline
	}
	return *j.Rating
}

// SetRating stores a copy of r so callers never share the pointer.
func (j *Job) SetRating(r float64) {
	j.Rating = &r
}

func (j *Job) HasEmbedding() bool {
	return len(j.Embedding) > 0
}

func (j *Job) IsAnalyzed() bool {
	return j.AnalyzedAt != nil
}

// EmbeddingText derives the text that represents the job in embedding space.
// The structured summary wins over the raw description prefix.
func (j *Job) EmbeddingText() string {
	snippet := strings.TrimSpace(j.AboutSummary)
	if snippet == "" {
		runes := []rune(strings.TrimSpace(j.RawText))
		if len(runes) > snippetRunes {
			runes = runes[:snippetRunes]
		}
		snippet = string(runes)
	}
	return fmt.Sprintf("%s at %s - %s", j.Title, j.Company, snippet)
}

// Label is a one-line human readable description.
func (j *Job) Label() string {
	label := strings.TrimSpace(j.Title)
	if label == "" {
		label = "untitled"
	}
	if company := strings.TrimSpace(j.Company); company != "" {
		label += " @ " + company
	}
	if location := strings.TrimSpace(j.Location); location != "" {
		label += " (" + location + ")"
	}
	return label
}

// Clone returns a deep copy.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}

	c := *j
	if j.Score != nil {
		score := *j.Score
		c.Score = &score
	}
	if j.AnalyzedAt != nil {
		at := *j.AnalyzedAt
		c.AnalyzedAt = &at
	}
	if j.Rating != nil {
		rating := *j.Rating
		c.Rating = &rating
	}
	if j.Embedding != nil {
		c.Embedding = append([]float32(nil), j.Embedding...)
	}
	if j.Requirements != nil {
		req := *j.Requirements
		c.Requirements = &req
	}
	return &c
}

// ComputeHash returns the deterministic dedupe key for the descriptive fields.
func ComputeHash(title, company, location, url, rawText string) string {
	normalized := map[string]string{
		"company":  strings.TrimSpace(company),
		"location": strings.TrimSpace(location),
		"raw_text": strings.TrimSpace(rawText),
		"title":    strings.TrimSpace(title),
		"url":      strings.TrimSpace(url),
	}

	// map keys are marshalled in sorted order
	key, _ := json.Marshal(normalized)
	sum := sha256.Sum256(key)
	return fmt.Sprintf("%x", sum[:])
}

// New validates the descriptive fields and builds a job ready for storing.
func New(title, company, location, url, rawText string) (*Job, error) {
	rawText = strings.TrimSpace(rawText)
	if rawText == "" {
		return nil, fmt.Errorf("raw text must not be empty")
	}
	if n := len([]rune(rawText)); n > MaxRawTextRunes {
		return nil, fmt.Errorf("raw text has %d characters, limit is %d", n, MaxRawTextRunes)
	}

	hash := ComputeHash(title, company, location, url, rawText)
	url = strings.TrimSpace(url)
	if url == "" {
		url = "urn:job:" + hash
	}

	return &Job{
		ID:         uuid.New(),
		Hash:       hash,
		Title:      strings.TrimSpace(title),
		Company:    strings.TrimSpace(company),
		Location:   strings.TrimSpace(location),
		URL:        url,
		RawText:    rawText,
		CapturedAt: time.Now().UTC(),
	}, nil
}
