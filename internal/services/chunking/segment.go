package chunking

import (
	"regexp"
	"strings"
	"unicode"
)

// segment is a piece of text with its position in the cleaned document.
type segment struct {
	text  string
	start int
	end   int
}

// sectionHeadingRe matches markdown headers, "Chapter IV" style headings,
// numbered sections, and ALL CAPS heading lines.
var sectionHeadingRe = regexp.MustCompile(`(?mi)^\s*(?:#{1,6}\s+|(?:chapter|section|article|part)\s+[\divxlc]+|\d+(?:\.\d+)*\.?\s+[A-Z]|[A-Z][A-Z\s]{3,}$)`)

// paragraphBoundaryRe matches blank-line paragraph separators.
var paragraphBoundaryRe = regexp.MustCompile(`\n\s*\n`)

// splitSections splits at section headings, keeping each heading with the
// content that follows it. Without any headings the whole text is one segment.
func splitSections(text string) []segment {
	matches := sectionHeadingRe.FindAllStringIndex(text, -1)

	if len(matches) == 0 {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []segment{{text: trimmed, start: 0, end: len(text)}}
	}

	var sections []segment
	if matches[0][0] > 0 {
		if pre := strings.TrimSpace(text[:matches[0][0]]); pre != "" {
			sections = append(sections, segment{text: pre, start: 0, end: matches[0][0]})
		}
	}

	for i, m := range matches {
		start := m[0]
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		if s := strings.TrimSpace(text[start:end]); s != "" {
			sections = append(sections, segment{text: s, start: start, end: end})
		}
	}

	return sections
}

// splitParagraphs splits at blank lines.
func splitParagraphs(text string) []segment {
	var segments []segment
	lastEnd := 0

	for _, m := range paragraphBoundaryRe.FindAllStringIndex(text, -1) {
		if para := strings.TrimSpace(text[lastEnd:m[0]]); para != "" {
			segments = append(segments, segment{text: para, start: lastEnd, end: m[0]})
		}
		lastEnd = m[1]
	}

	if remaining := strings.TrimSpace(text[lastEnd:]); remaining != "" {
		segments = append(segments, segment{text: remaining, start: lastEnd, end: len(text)})
	}
	return segments
}

// splitSentences splits at sentence boundaries: terminal punctuation
// followed by whitespace and a capital letter, newlines, and semicolons.
// Written as a scanner because the boundary rules need lookahead.
func splitSentences(text string) []segment {
	var segments []segment
	start := 0

	emit := func(end int) {
		if trimmed := strings.TrimSpace(text[start:end]); trimmed != "" {
			segments = append(segments, segment{text: trimmed, start: start, end: end})
		}
	}

	i := 0
	for i < len(text) {
		next := -1
		switch text[i] {
		case '.', '!', '?':
			j := skipSpace(text, i+1)
			if j > i+1 && j < len(text) && text[j] >= 'A' && text[j] <= 'Z' {
				next = j
			}
		case ';':
			j := skipSpace(text, i+1)
			if j > i+1 {
				next = j
			}
		case '\n':
			j := skipSpace(text, i+1)
			if j < len(text) {
				next = j
			}
		}

		if next > 0 {
			emit(i + 1)
			start = next
			i = next
			continue
		}
		i++
	}

	emit(len(text))
	return segments
}

func skipSpace(text string, i int) int {
	for i < len(text) && unicode.IsSpace(rune(text[i])) {
		i++
	}
	return i
}
