package jobs

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxResumeRunes limits the stored resume text.
const MaxResumeRunes = 200000

// Comparison is one immutable A/B choice made by the user.
type Comparison struct {
	ID        uuid.UUID `json:"id"`
	JobA      uuid.UUID `json:"job_a_id"`
	JobB      uuid.UUID `json:"job_b_id"`
	Chosen    uuid.UUID `json:"chosen_job_id"`
	Rejected  uuid.UUID `json:"rejected_job_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Choice is what the user submits: the two presented jobs and the chosen one.
type Choice struct {
	JobA   uuid.UUID
	JobB   uuid.UUID
	Chosen uuid.UUID
}

// Rejected returns the id of the presented job that was not chosen.
func (c Choice) Rejected() (uuid.UUID, error) {
	if c.JobA == c.JobB {
		return uuid.Nil, fmt.Errorf("%w: the same job was presented twice", ErrInvalidChoice)
	}

	switch c.Chosen {
	case c.JobA:
		return c.JobB, nil
	case c.JobB:
		return c.JobA, nil
	default:
		return uuid.Nil, fmt.Errorf("%w: %s is neither %s nor %s", ErrInvalidChoice, c.Chosen, c.JobA, c.JobB)
	}
}

// CountByJob returns how many comparisons every job appeared in, on either side.
func CountByJob(comparisons []*Comparison) map[uuid.UUID]int {
	counts := make(map[uuid.UUID]int)
	for _, c := range comparisons {
		counts[c.JobA]++
		if c.JobB != c.JobA {
			counts[c.JobB]++
		}
	}
	return counts
}

type Resume struct {
	ID        uuid.UUID `json:"id"`
	RawText   string    `json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ValidateResumeText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("resume text must not be empty")
	}
	if n := len([]rune(text)); n > MaxResumeRunes {
		return "", fmt.Errorf("resume text has %d characters, limit is %d", n, MaxResumeRunes)
	}
	return text, nil
}
