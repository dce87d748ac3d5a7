package jobs

import (
	"strings"

	"github.com/google/uuid"
)

const (
	JobIDField      = "ID"
	JobCompanyField = "Company"
)

// Pool is a snapshot of the jobs considered by one operation.
type Pool struct {
	Items []*Job
}

func NewPool(items []*Job) *Pool {
	return &Pool{Items: items}
}

func (p *Pool) Len() int {
	return len(p.Items)
}

func (p *Pool) FindByID(id uuid.UUID) *Job {
	for _, job := range p.Items {
		if job.ID == id {
			return job
		}
	}
	return nil
}

func (p *Pool) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(p.Items))
	for _, job := range p.Items {
		ids = append(ids, job.ID)
	}
	return ids
}

// Exclude drops jobs whose field matches one of targets (case-insensitive)
// and returns the dropped ids. Order of the remaining jobs is preserved.
func (p *Pool) Exclude(field string, targets []string) []uuid.UUID {
	if len(targets) == 0 {
		return nil
	}

	set := make(map[string]struct{}, len(targets))
	for _, target := range targets {
		target = strings.ToLower(strings.TrimSpace(target))
		if target != "" {
			set[target] = struct{}{}
		}
	}

	var excluded []uuid.UUID
	kept := p.Items[:0]
	for _, job := range p.Items {
		if _, ok := set[strings.ToLower(job.field(field))]; ok {
			excluded = append(excluded, job.ID)
			continue
		}
		kept = append(kept, job)
	}
	p.Items = kept

	return excluded
}

// Filter keeps only the jobs for which keep returns true and returns the dropped ids.
func (p *Pool) Filter(keep func(*Job) bool) []uuid.UUID {
	var dropped []uuid.UUID
	kept := p.Items[:0]
	for _, job := range p.Items {
		if keep(job) {
			kept = append(kept, job)
			continue
		}
		dropped = append(dropped, job.ID)
	}
	p.Items = kept
	return dropped
}

func (j *Job) field(name string) string {
	switch name {
	case JobIDField:
		return j.ID.String()
	case JobCompanyField:
		return strings.TrimSpace(j.Company)
	default:
		return ""
	}
}
