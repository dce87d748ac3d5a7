package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/spigell/jobrank/internal/ai"
	"github.com/spigell/jobrank/internal/jobs"
	"github.com/spigell/jobrank/internal/utils"
)

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength     = 200
	maxUserInstructionRunes = 500
	noneValue               = "none"

	systemInstruction = "You score job postings against a resume and reply with JSON only."
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

// PromptOverrides carries user preferences injected into the scoring prompt.
type PromptOverrides struct {
	ExtraCriteria     string `mapstructure:"extra-criteria"`
	DealBreakers      string `mapstructure:"deal-breakers"`
	CustomKeywords    string `mapstructure:"custom-keywords"`
	RegionConstraints string `mapstructure:"region-constraints"`
	UserInstructions  string `mapstructure:"user-instructions"`
}

// Scorer rates how well a job fits a resume using Gemini.
type Scorer struct {
	generator contentGenerator
	overrides PromptOverrides
	logger    *zap.Logger
	maxLogLen int
}

var _ ai.FitScorer = (*Scorer)(nil)

func NewScorer(generator contentGenerator, maxLogLength int, logger *zap.Logger) *Scorer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scorer{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (s *Scorer) SetPromptOverrides(o PromptOverrides) {
	s.overrides = o
}

func (s *Scorer) Score(ctx context.Context, resume *jobs.Resume, job *jobs.Job) (*ai.FitAssessment, error) {
	if resume == nil || strings.TrimSpace(resume.RawText) == "" {
		return nil, fmt.Errorf("resume is required")
	}
	if job == nil {
		return nil, fmt.Errorf("job is required")
	}

	jobJSON, err := json.MarshalIndent(map[string]string{
		"title":       job.Title,
		"company":     job.Company,
		"location":    job.Location,
		"url":         job.URL,
		"description": job.RawText,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal job payload: %w", err)
	}

	prompt := s.buildPrompt(resume.RawText, string(jobJSON))

	s.logger.Debug("gemini score request",
		zap.String("job_id", job.ID.String()),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, s.maxLogLen)),
	)

	raw, err := s.generator.GenerateContent(ctx, systemInstruction, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ai.ErrScoringUnavailable, err)
	}

	s.logger.Debug("gemini score response",
		zap.String("job_id", job.ID.String()),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)),
	)

	assessment, err := parseResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ai.ErrScoringUnavailable, err)
	}

	guidance := ai.EnsureGuidance(assessment.Guidance, job.Title)
	if guidance != assessment.Guidance {
		s.logger.Debug("gemini guidance replaced with fallback",
			zap.String("job_id", job.ID.String()),
			zap.String("guidance", utils.TruncateForLog(assessment.Guidance, s.maxLogLen)),
		)
	}
	assessment.Guidance = guidance
	assessment.Raw = raw
	return assessment, nil
}

func (s *Scorer) buildPrompt(resume, jobJSON string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Resume:\n{{RESUME}}\n\nJob:\n{{JOB_JSON}}\n\nJSON Response:"
	}

	replacer := strings.NewReplacer(
		"{{EXTRA_CRITERIA}}", singleLineOrNone(s.overrides.ExtraCriteria),
		"{{DEAL_BREAKERS}}", singleLineOrNone(s.overrides.DealBreakers),
		"{{CUSTOM_KEYWORDS}}", keywordsOrNone(s.overrides.CustomKeywords),
		"{{REGION_CONSTRAINTS}}", singleLineOrNone(s.overrides.RegionConstraints),
		"{{USER_INSTRUCTIONS}}", instructionsBlock(s.overrides.UserInstructions),
		"{{RESUME}}", strings.TrimSpace(resume),
		"{{JOB_JSON}}", jobJSON,
	)
	return replacer.Replace(template)
}

// neutralizeBrackets keeps user text from opening new prompt sections.
func neutralizeBrackets(s string) string {
	return strings.NewReplacer("[", "(", "]", ")").Replace(s)
}

func singleLineOrNone(s string) string {
	s = strings.Join(strings.Fields(neutralizeBrackets(s)), " ")
	if s == "" {
		return noneValue
	}
	return s
}

func keywordsOrNone(s string) string {
	var keywords []string
	for _, k := range strings.Split(s, ",") {
		if k = singleLineOrNone(k); k != noneValue {
			keywords = append(keywords, k)
		}
	}
	if len(keywords) == 0 {
		return noneValue
	}
	return strings.Join(keywords, ", ")
}

func instructionsBlock(s string) string {
	runes := []rune(strings.TrimSpace(neutralizeBrackets(s)))
	if len(runes) > maxUserInstructionRunes {
		runes = runes[:maxUserInstructionRunes]
	}

	var lines []string
	for _, line := range strings.Split(string(runes), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, "  - "+line)
		}
	}
	if len(lines) == 0 {
		return "  - " + noneValue
	}
	return strings.Join(lines, "\n")
}

func parseResponse(raw string) (*ai.FitAssessment, error) {
	cleaned := extractJSON(raw)
	if !gjson.Valid(cleaned) {
		return nil, fmt.Errorf("parse gemini response: invalid json")
	}

	parsed := gjson.Parse(cleaned)
	scoreField := parsed.Get("score")
	if !scoreField.Exists() {
		return nil, fmt.Errorf("parse gemini response: score is missing")
	}

	score, err := coerceScore(scoreField)
	if err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	return &ai.FitAssessment{
		Score:             score,
		Reasoning:         strings.TrimSpace(parsed.Get("reasoning").String()),
		AboutSummary:      strings.TrimSpace(parsed.Get("about_summary").String()),
		RecommendedResume: ai.NormalizeResumeKey(parsed.Get("recommended_resume").String()),
		Guidance:          strings.TrimSpace(parsed.Get("guidance").String()),
		Requirements:      parseRequirements(parsed.Get("requirements")),
	}, nil
}

// parseRequirements reads the requirements object. Nulls and non-string values are dropped.
func parseRequirements(v gjson.Result) *jobs.Requirements {
	if !v.IsObject() {
		return nil
	}

	field := func(name string) string {
		f := v.Get(name)
		if f.Type != gjson.String {
			return ""
		}
		return f.Str
	}

	req := &jobs.Requirements{
		Experience:       field("experience"),
		Expertise:        field("expertise"),
		BusinessCultural: field("business_cultural"),
		Sponsorship:      field("sponsorship"),
		WorkLocation:     field("work_location"),
		Education:        field("education"),
	}
	return req.Normalize()
}

func coerceScore(v gjson.Result) (int, error) {
	var f float64
	switch v.Type {
	case gjson.Number:
		f = v.Float()
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, fmt.Errorf("score %q is not a number", v.Str)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("score has unsupported type %s", v.Type)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("score is not finite")
	}
	f = math.Max(ai.MinScore, math.Min(ai.MaxScore, f))
	return ai.ClampScore(int(math.Round(f))), nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
