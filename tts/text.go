package tts

import (
	"regexp"
	"strings"

	"github.com/lattice-voice/callcore/logger"
)

// abbreviationPattern pairs a regexp with its spoken-out replacement, applied
// in order during preprocessing. Grounded on
// original_source/src/clients/cartesia_tts.py's preprocessing_patterns.
type abbreviationPattern struct {
	pattern     *regexp.Regexp
	replacement string
}

var preprocessingPatterns = []abbreviationPattern{
	{regexp.MustCompile(`\bDr\.`), "Doctor"},
	{regexp.MustCompile(`\bMr\.`), "Mister"},
	{regexp.MustCompile(`\bMrs\.`), "Missus"},
	{regexp.MustCompile(`\bMs\.`), "Miss"},
	{regexp.MustCompile(`\betc\.`), "etcetera"},
	{regexp.MustCompile(`\bi\.e\.`), "that is"},
	{regexp.MustCompile(`\be\.g\.`), "for example"},
	{regexp.MustCompile(`\$(\d+)`), "$1 dollars"},
	{regexp.MustCompile(`(\d+)%`), "$1 percent"},
}

var (
	repeatedPeriods      = regexp.MustCompile(`[.]{2,}`)
	repeatedExclamations = regexp.MustCompile(`[!]{2,}`)
	repeatedQuestions    = regexp.MustCompile(`[?]{2,}`)
	collapsibleSpace     = regexp.MustCompile(`\s+`)
)

const maxRecommendedTextLength = 1000

var problematicChars = []rune{'<', '>', '{', '}', '[', ']'}

// PreprocessText normalizes text for optimal speech synthesis: collapses
// whitespace, normalizes quotes, expands common abbreviations, spells out
// currency and percent, and collapses repeated terminal punctuation. Applied
// before both batch and streaming synthesis paths.
func PreprocessText(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}

	processed := collapsibleSpace.ReplaceAllString(trimmed, " ")
	processed = strings.NewReplacer("“", `"`, "”", `"`, "‘", "'", "’", "'").Replace(processed)

	for _, p := range preprocessingPatterns {
		processed = p.pattern.ReplaceAllString(processed, p.replacement)
	}

	processed = repeatedPeriods.ReplaceAllString(processed, ".")
	processed = repeatedExclamations.ReplaceAllString(processed, "!")
	processed = repeatedQuestions.ReplaceAllString(processed, "?")

	processed = strings.TrimSpace(processed)
	if processed != "" {
		last := processed[len(processed)-1]
		if last != '.' && last != '!' && last != '?' {
			processed += "."
		}
	}

	return processed
}

// ValidateText rejects empty/whitespace-only text. It logs (but does not
// reject on) length and problematic-character warnings.
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return &SynthesisError{Provider: "tts", Message: "text is empty or whitespace-only", Retryable: false}
	}

	if len(text) > maxRecommendedTextLength {
		logger.Warn("tts: text exceeds recommended length", "length", len(text), "limit", maxRecommendedTextLength)
	}

	var found []rune
	for _, c := range problematicChars {
		if strings.ContainsRune(text, c) {
			found = append(found, c)
		}
	}
	if len(found) > 0 {
		logger.Warn("tts: text contains potentially problematic characters", "characters", string(found))
	}

	return nil
}
