package jobs

import "strings"

// Requirements groups what a posting asks for by topic. An empty field means
// the posting does not mention it.
type Requirements struct {
	Experience       string `json:"experience,omitempty"`
	Expertise        string `json:"expertise,omitempty"`
	BusinessCultural string `json:"business_cultural,omitempty"`
	Sponsorship      string `json:"sponsorship,omitempty"`
	WorkLocation     string `json:"work_location,omitempty"`
	Education        string `json:"education,omitempty"`
}

// Normalize trims every field and returns nil when nothing is left.
func (r *Requirements) Normalize() *Requirements {
	if r == nil {
		return nil
	}

	out := Requirements{
		Experience:       strings.TrimSpace(r.Experience),
		Expertise:        strings.TrimSpace(r.Expertise),
		BusinessCultural: strings.TrimSpace(r.BusinessCultural),
		Sponsorship:      strings.TrimSpace(r.Sponsorship),
		WorkLocation:     strings.TrimSpace(r.WorkLocation),
		Education:        strings.TrimSpace(r.Education),
	}
	if out == (Requirements{}) {
		return nil
	}
	return &out
}
