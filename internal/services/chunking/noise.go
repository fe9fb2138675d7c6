package chunking

import (
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/lacuna/internal/common"
)

// Noise patterns removed before chunking. Headers, footers, page numbers,
// and extraction artifacts degrade embedding quality badly enough that
// cleaning is worth the extra pass.
var (
	// Standalone page-number lines like "Page 3", "3 of 15", "- 12 -".
	pageNumberRe = regexp.MustCompile(`(?mi)^\s*(?:(?:page|p\.?)\s*\d+(?:\s*(?:of|/)\s*\d+)?|\d+\s*(?:of|/)\s*\d+|-\s*\d+\s*-|\d{1,4})\s*$`)

	// Common header/footer boilerplate lines.
	headerFooterRe = regexp.MustCompile(`(?mi)^\s*(?:(?:confidential|draft|internal use only|do not distribute|privileged)|(?:copyright|©)\s*(?:\d{4}|\(c\)).*|(?:all rights reserved).*|(?:printed on|generated on|last (?:updated|modified))\s+.*)\s*$`)

	// Binary and encoding artifacts from PDF extraction: null bytes, form
	// feeds, BOMs, soft hyphens, zero-width marks, and line separators.
	pdfArtifactsRe = regexp.MustCompile("[\x00\x0c\uFEFF\u00AD\u200B-\u200F\u2028\u2029]")

	// Table-of-contents leaders and horizontal rules.
	dotLeadersRe = regexp.MustCompile(`[.·…]{5,}|[-_=]{5,}`)

	// Four or more consecutive newlines.
	excessiveBlanksRe = regexp.MustCompile(`\n{4,}`)

	// Horizontal whitespace runs (keeps newlines so paragraphs survive).
	horizontalWsRe = regexp.MustCompile("[ \t\v\f\r]+")
)

// NoiseReducer cleans extracted document text before chunking.
type NoiseReducer struct {
	aggressive bool
	logger     arbor.ILogger
}

// NewNoiseReducer creates a reducer. Aggressive mode additionally strips
// lines that repeat throughout the document, typically watermarks.
func NewNoiseReducer(aggressive bool) *NoiseReducer {
	return &NoiseReducer{
		aggressive: aggressive,
		logger:     common.GetLogger(),
	}
}

// Clean removes noise patterns from raw extracted text.
func (n *NoiseReducer) Clean(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	result := text

	result = pdfArtifactsRe.ReplaceAllString(result, "")
	result = removeRepeatedRuns(result)

	result = dotLeadersRe.ReplaceAllString(result, " ")
	result = horizontalWsRe.ReplaceAllString(result, " ")

	result = pageNumberRe.ReplaceAllString(result, "")
	result = headerFooterRe.ReplaceAllString(result, "")

	if n.aggressive {
		result = removeRepetitiveLines(result)
	}

	result = excessiveBlanksRe.ReplaceAllString(result, "\n\n")
	result = strings.TrimSpace(result)

	if removed := len(text) - len(result); removed > 0 {
		n.logger.Debug().Int("removed_chars", removed).Msg("Noise reduction cleaned text")
	}

	return result
}

// removeRepeatedRuns drops runs of the same rune longer than ten
// characters, which is almost always PDF extraction garbage.
func removeRepeatedRuns(text string) string {
	const maxRun = 10

	runes := []rune(text)
	var b strings.Builder
	b.Grow(len(text))

	i := 0
	for i < len(runes) {
		j := i
		for j < len(runes) && runes[j] == runes[i] {
			j++
		}
		if j-i <= maxRun {
			for k := i; k < j; k++ {
				b.WriteRune(runes[k])
			}
		}
		i = j
	}
	return b.String()
}

// removeRepetitiveLines strips lines that recur often enough to be
// boilerplate. A line counting toward the threshold must be non-trivial in
// length; short documents are left alone.
func removeRepetitiveLines(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) < 10 {
		return text
	}

	counts := make(map[string]int)
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) > 3 && len(trimmed) < 100 {
			counts[trimmed]++
		}
	}

	threshold := len(lines) / 7
	if threshold < 3 {
		threshold = 3
	}

	boilerplate := make(map[string]struct{})
	for line, count := range counts {
		if count >= threshold {
			boilerplate[line] = struct{}{}
		}
	}
	if len(boilerplate) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, line := range lines {
		if _, drop := boilerplate[strings.TrimSpace(line)]; !drop {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
