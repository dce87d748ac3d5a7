package ai

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultResumeKey is used when the scorer does not name a resume variant.
	DefaultResumeKey = "general"

	maxResumeKeyRunes = 32
)

// NormalizeResumeKey turns a model provided resume name into a short slug.
func NormalizeResumeKey(key string) string {
	key = strings.Join(strings.Fields(strings.ToLower(key)), "-")
	if key == "" {
		return DefaultResumeKey
	}

	runes := []rune(key)
	if len(runes) > maxResumeKeyRunes {
		runes = runes[:maxResumeKeyRunes]
	}
	return string(runes)
}

// EnsureGuidance returns text as three sentences when it follows the guidance
// rules and a generic guidance for the job title otherwise.
//
// The rules: the first sentence says which resume to use, the second compares
// the job with other options and the third names a downside or tradeoff.
func EnsureGuidance(text, title string) string {
	sentences := splitSentences(text)
	if guidanceMeetsRules(sentences) {
		return strings.Join(sentences, " ")
	}
	return FallbackGuidance(title)
}

func FallbackGuidance(title string) string {
	role := strings.TrimSpace(title)
	if role == "" {
		role = "this role"
	}

	return fmt.Sprintf("Good bet if you want %s; use the %s resume. ", role, DefaultResumeKey) +
		"It beats other options because you can compare it directly against similar roles with the same criteria. " +
		"Downside: the posting is light on specifics, so verify scope before applying."
}

func guidanceMeetsRules(sentences []string) bool {
	if len(sentences) != 3 {
		return false
	}

	first := strings.ToLower(sentences[0])
	second := strings.ToLower(sentences[1])
	third := strings.ToLower(sentences[2])

	if !strings.Contains(first, "resume") || !strings.Contains(first, "use") {
		return false
	}
	if !strings.Contains(second, "compare") && !strings.Contains(second, "comparison") {
		return false
	}
	return strings.Contains(third, "downside") || strings.Contains(third, "tradeoff")
}

// splitSentences flattens bullets and line breaks and splits on sentence
// terminators followed by a space.
func splitSentences(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimLeft(strings.TrimSpace(line), "-*• \t"); line != "" {
			lines = append(lines, line)
		}
	}

	cleaned := strings.Join(strings.Fields(strings.Join(lines, " ")), " ")
	if cleaned == "" {
		return nil
	}
	if last, _ := utf8.DecodeLastRuneInString(cleaned); !strings.ContainsRune(".!?", last) {
		cleaned += "."
	}

	var sentences []string
	start := 0
	for i := 0; i < len(cleaned)-1; i++ {
		if strings.IndexByte(".!?", cleaned[i]) >= 0 && cleaned[i+1] == ' ' {
			sentences = append(sentences, cleaned[start:i+1])
			start = i + 2
		}
	}
	return append(sentences, cleaned[start:])
}
