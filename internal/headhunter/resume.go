package headhunter

import (
	"context"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

type Resumes struct {
	Items []*Resume
}

type Resume struct {
	Title string
	ID    string `json:"id,omitempty"`
}

type ResumeDetails struct {
	ID    string
	Title string
	Raw   map[string]any
}

type resumeView struct {
	Title      string   `mapstructure:"title"`
	Skills     string   `mapstructure:"skills"`
	SkillSet   []string `mapstructure:"skill_set"`
	Area       NamedRef `mapstructure:"area"`
	Experience []struct {
		Company     string `mapstructure:"company"`
		Position    string `mapstructure:"position"`
		Start       string `mapstructure:"start"`
		End         string `mapstructure:"end"`
		Description string `mapstructure:"description"`
	} `mapstructure:"experience"`
}

func (c *Client) getResumes(ctx context.Context, id string) (*Resumes, error) {
	if c.token == "" {
		return nil, fmt.Errorf("resumes require an hh.ru token")
	}

	apiURLMineResumes := fmt.Sprintf("%s/resumes/%s", c.APIURL, id)

	items, err := c.GetItems(ctx, apiURLMineResumes, nil, 0)
	if err != nil {
		return nil, err
	}

	var resumes []*Resume
	if err = mapstructure.Decode(items, &resumes); err != nil {
		return nil, err
	}

	return &Resumes{
		Items: resumes,
	}, nil
}

func (r *Resumes) Len() int {
	return len(r.Items)
}

func (r *Resumes) Titles() []string {
	ids := make([]string, 0, len(r.Items))

	for _, v := range r.Items {
		ids = append(ids, v.Title)
	}

	return ids
}

func (r *Resumes) FindByTitle(title string) *Resume {
	for _, resume := range r.Items {
		if resume.Title == title {
			return resume
		}
	}

	return nil
}

func (c *Client) GetResumeDetails(ctx context.Context, id string) (*ResumeDetails, error) {
	if id == "" {
		return nil, fmt.Errorf("resume id is required")
	}

	apiURL := fmt.Sprintf("%s/resumes/%s", c.APIURL, id)

	var raw map[string]any
	if err := c.getJSON(ctx, apiURL, nil, &raw); err != nil {
		return nil, err
	}

	if raw == nil {
		raw = make(map[string]any)
	}

	return &ResumeDetails{
		ID:    valueAsString(raw["id"]),
		Title: valueAsString(raw["title"]),
		Raw:   raw,
	}, nil
}

// Text renders the resume as plain text suitable for storing as the active resume.
func (d *ResumeDetails) Text() (string, error) {
	var view resumeView
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &view,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return "", err
	}
	if err := decoder.Decode(d.Raw); err != nil {
		return "", fmt.Errorf("decoding resume %s: %w", d.ID, err)
	}

	var b strings.Builder
	title := strings.TrimSpace(view.Title)
	if title == "" {
		title = d.Title
	}
	b.WriteString(title)
	if view.Area.Name != "" {
		b.WriteString("\nLocation: " + view.Area.Name)
	}
	if len(view.SkillSet) > 0 {
		b.WriteString("\nSkills: " + strings.Join(view.SkillSet, ", "))
	}
	if about := StripHTML(view.Skills); about != "" {
		b.WriteString("\n\nAbout:\n" + about)
	}

	if len(view.Experience) > 0 {
		b.WriteString("\n\nExperience:")
	}
	for _, exp := range view.Experience {
		end := exp.End
		if end == "" {
			end = "present"
		}
		fmt.Fprintf(&b, "\n- %s at %s (%s to %s)", exp.Position, exp.Company, exp.Start, end)
		if desc := StripHTML(exp.Description); desc != "" {
			b.WriteString("\n" + desc)
		}
	}

	return strings.TrimSpace(b.String()), nil
}

func valueAsString(v any) string {
	if v == nil {
		return ""
	}

	switch typed := v.(type) {
	case string:
		return typed
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
