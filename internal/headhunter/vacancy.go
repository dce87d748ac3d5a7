package headhunter

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/spigell/jobrank/internal/jobs"
)

const (
	VacancyIDField         = "ID"
	VacancyEmployerIDField = "EmployerID"
)

type Vacancies struct {
	Items []*Vacancy
}

type NamedRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type Area struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

type Salary struct {
	From     int    `json:"from,omitempty"`
	To       int    `json:"to,omitempty"`
	Currency string `json:"currency,omitempty"`
	Gross    bool   `json:"gross,omitempty"`
}

type Employer struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name,omitempty"`
	URL          string `json:"url,omitempty"`
	AlternateURL string `json:"alternate_url,omitempty"`
	Trusted      bool   `json:"trusted,omitempty"`
}

type Snippet struct {
	Requirement    string `json:"requirement,omitempty"`
	Responsibility string `json:"responsibility,omitempty"`
}

type KeySkill struct {
	Name string `json:"name,omitempty"`
}

type Vacancy struct {
	ID           string     `json:"id,omitempty"`
	Name         string     `json:"name,omitempty"`
	Area         Area       `json:"area,omitempty"`
	HasTest      bool       `json:"has_test,omitempty"`
	Salary       *Salary    `json:"salary,omitempty"`
	Experience   NamedRef   `json:"experience,omitempty"`
	Schedule     NamedRef   `json:"schedule,omitempty"`
	Employment   NamedRef   `json:"employment,omitempty"`
	Employer     Employer   `json:"employer,omitempty"`
	CreatedAt    string     `json:"created_at,omitempty"`
	PublishedAt  string     `json:"published_at,omitempty"`
	AlternateURL string     `json:"alternate_url,omitempty"`
	Description  string     `json:"description,omitempty"`
	KeySkills    []KeySkill `json:"key_skills,omitempty"`
	Archived     bool       `json:"archived,omitempty"`
	Snippet      Snippet    `json:"snippet,omitempty"`
}

// GetVacancy fetches the full vacancy, including the HTML description and key skills
// that search results omit.
func (c *Client) GetVacancy(ctx context.Context, id string) (*Vacancy, error) {
	if id == "" {
		return nil, fmt.Errorf("vacancy id is required")
	}

	var vacancy Vacancy
	if err := c.getJSON(ctx, fmt.Sprintf("%s%s/%s", c.APIURL, SearchPath, id), nil, &vacancy); err != nil {
		return nil, fmt.Errorf("getting vacancy %s: %w", id, err)
	}

	return &vacancy, nil
}

// ToJob converts the vacancy into a job. Descriptions longer than the job limit are cut.
func (va *Vacancy) ToJob() (*jobs.Job, error) {
	return jobs.New(va.Name, va.Employer.Name, va.Area.Name, va.AlternateURL, va.Text())
}

// Text renders the plain-text description used as the job raw text.
func (va *Vacancy) Text() string {
	var parts []string

	if description := StripHTML(va.Description); description != "" {
		parts = append(parts, description)
	} else {
		for _, s := range []string{va.Snippet.Responsibility, va.Snippet.Requirement} {
			if s = StripHTML(s); s != "" {
				parts = append(parts, s)
			}
		}
	}

	if len(va.KeySkills) > 0 {
		skills := make([]string, 0, len(va.KeySkills))
		for _, skill := range va.KeySkills {
			if name := strings.TrimSpace(skill.Name); name != "" {
				skills = append(skills, name)
			}
		}
		if len(skills) > 0 {
			parts = append(parts, "Key skills: "+strings.Join(skills, ", "))
		}
	}

	if s := va.Salary.String(); s != "" {
		parts = append(parts, "Salary: "+s)
	}

	text := strings.Join(parts, "\n\n")
	if runes := []rune(text); len(runes) > jobs.MaxRawTextRunes {
		text = string(runes[:jobs.MaxRawTextRunes])
	}

	return text
}

func (s *Salary) String() string {
	if s == nil || (s.From == 0 && s.To == 0) {
		return ""
	}

	var b strings.Builder
	switch {
	case s.From > 0 && s.To > 0:
		fmt.Fprintf(&b, "%d-%d", s.From, s.To)
	case s.From > 0:
		fmt.Fprintf(&b, "from %d", s.From)
	default:
		fmt.Fprintf(&b, "up to %d", s.To)
	}
	if s.Currency != "" {
		b.WriteString(" " + s.Currency)
	}

	return b.String()
}

// StripHTML returns the visible text of an HTML fragment with block elements
// separated by newlines.
func StripHTML(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return ""
	}

	var b strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(fragment))

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return collapseBlankLines(b.String())
		case html.TextToken:
			b.Write(tokenizer.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "p", "br", "li", "ul", "ol", "div", "h1", "h2", "h3", "h4", "tr":
				b.WriteByte('\n')
			}
		}
	}
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func (va *Vacancy) GetStringField(name string) string {
	switch name {
	case VacancyIDField:
		return va.ID
	case VacancyEmployerIDField:
		return va.Employer.ID

	default:
		return ""
	}
}

func (v *Vacancies) Len() int {
	return len(v.Items)
}

func (v *Vacancies) FindByID(id string) *Vacancy {
	for _, vacancy := range v.Items {
		if vacancy.ID == id {
			return vacancy
		}
	}
	return nil
}

// Exclude drops vacancies whose field matches one of targets and returns the dropped ids.
// Order of the remaining vacancies is preserved.
func (v *Vacancies) Exclude(name string, targets []string) []string {
	if len(targets) == 0 {
		return nil
	}

	set := make(map[string]struct{}, len(targets))
	for _, target := range targets {
		set[target] = struct{}{}
	}

	var excluded []string
	kept := v.Items[:0]
	for _, vacancy := range v.Items {
		if _, ok := set[vacancy.GetStringField(name)]; ok {
			excluded = append(excluded, vacancy.ID)
			continue
		}
		kept = append(kept, vacancy)
	}
	v.Items = kept

	return excluded
}
