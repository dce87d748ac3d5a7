// Package ranking blends the LLM fit score with the pairwise preference rating.
package ranking

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/spigell/jobrank/internal/jobs"
)

const (
	// Neutral is the normalized preference reported when ratings cannot be spread over a range.
	Neutral = 50.0
	// MaxShortlist bounds the size of a fit-only shortlist.
	MaxShortlist = 50
)

type Weights struct {
	Fit        float64 `mapstructure:"fit"`
	Preference float64 `mapstructure:"preference"`
}

func DefaultWeights() Weights {
	return Weights{Fit: 0.6, Preference: 0.4}
}

func (w Weights) Validate() error {
	if w.Fit < 0 || w.Preference < 0 {
		return fmt.Errorf("ranking weights must not be negative, got fit=%v preference=%v", w.Fit, w.Preference)
	}
	if w.Fit+w.Preference == 0 {
		return fmt.Errorf("at least one ranking weight must be positive")
	}
	return nil
}

type Entry struct {
	Rank       int       `json:"rank"`
	JobID      uuid.UUID `json:"job_id"`
	Title      string    `json:"title"`
	Company    string    `json:"company"`
	URL        string    `json:"url"`
	FitScore   *int      `json:"fit_score,omitempty"`
	Rating     *float64  `json:"rating,omitempty"`
	Preference *float64  `json:"preference,omitempty"`
	Combined   float64   `json:"combined"`
	Reasoning  string    `json:"reasoning,omitempty"`

	RecommendedResume string `json:"recommended_resume,omitempty"`
	Guidance          string `json:"guidance,omitempty"`
}

// NormalizeRatings maps ratings onto 0..100 by min-max scaling.
// With fewer than two ratings or a zero range every rating maps to Neutral.
func NormalizeRatings(ratings map[uuid.UUID]float64) map[uuid.UUID]float64 {
	out := make(map[uuid.UUID]float64, len(ratings))
	if len(ratings) == 0 {
		return out
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, r := range ratings {
		lo = math.Min(lo, r)
		hi = math.Max(hi, r)
	}

	span := hi - lo
	for id, r := range ratings {
		if len(ratings) < 2 || span == 0 {
			out[id] = Neutral
			continue
		}
		out[id] = (r - lo) / span * 100
	}
	return out
}

// Rank orders analyzed jobs by the blended score, best first.
func Rank(pool []*jobs.Job, w Weights) ([]Entry, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	var analyzed []*jobs.Job
	ratings := make(map[uuid.UUID]float64)
	for _, job := range pool {
		if job == nil || !job.IsAnalyzed() {
			continue
		}
		analyzed = append(analyzed, job)
		if job.Rating != nil {
			ratings[job.ID] = *job.Rating
		}
	}

	if len(analyzed) == 0 {
		return nil, fmt.Errorf("%w: no analyzed jobs to rank", jobs.ErrInsufficientData)
	}

	normalized := NormalizeRatings(ratings)

	entries := make([]Entry, 0, len(analyzed))
	for _, job := range analyzed {
		entry := newEntry(job)
		if p, ok := normalized[job.ID]; ok {
			entry.Preference = &p
		}
		entry.Combined = round2(combine(entry.FitScore, entry.Preference, w))
		entries = append(entries, entry)
	}

	sortEntries(entries)
	return entries, nil
}

// Shortlist returns the n analyzed jobs with the best fit score. Preference is ignored.
func Shortlist(pool []*jobs.Job, n int) ([]Entry, error) {
	if n < 1 || n > MaxShortlist {
		return nil, fmt.Errorf("shortlist size must be between 1 and %d, got %d", MaxShortlist, n)
	}

	var entries []Entry
	for _, job := range pool {
		if job == nil || !job.IsAnalyzed() || job.Score == nil {
			continue
		}
		entry := newEntry(job)
		entry.Combined = float64(*job.Score)
		entries = append(entries, entry)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no scored jobs to shortlist", jobs.ErrInsufficientData)
	}

	sortEntries(entries)
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

func newEntry(job *jobs.Job) Entry {
	return Entry{
		JobID:     job.ID,
		Title:     job.Title,
		Company:   job.Company,
		URL:       job.URL,
		FitScore:  job.Score,
		Rating:    job.Rating,
		Reasoning: job.Reasoning,

		RecommendedResume: job.RecommendedResume,
		Guidance:          job.Guidance,
	}
}

func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Combined > entries[j].Combined
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
}

func combine(fit *int, preference *float64, w Weights) float64 {
	switch {
	case fit != nil && preference != nil:
		return (w.Fit*float64(*fit) + w.Preference**preference) / (w.Fit + w.Preference)
	case fit != nil:
		return float64(*fit)
	case preference != nil:
		return *preference
	default:
		return 0
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
