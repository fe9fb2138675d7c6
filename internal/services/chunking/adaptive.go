package chunking

import (
	"strings"

	"github.com/ternarybob/lacuna/internal/models"
)

// chunkAdaptive splits cleaned text structure-first. It tries sections,
// then paragraphs, then sentences, and finally hard character splits, so
// no chunk ever exceeds maxSize even for pathological inputs.
func chunkAdaptive(text, nodeID string, minSize, maxSize int) []models.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	segments := splitSections(text)
	if hasOversized(segments, maxSize) {
		segments = splitRecursive(segments, maxSize)
	}

	grouped := groupWithHardLimit(segments, minSize, maxSize)

	chunks := make([]models.Chunk, 0, len(grouped))
	for i, seg := range grouped {
		chunks = append(chunks, models.NewChunk(nodeID, seg.text, i, seg.start, seg.end))
	}
	return chunks
}

// splitRecursive breaks oversized segments down: paragraphs first, then
// sentences, then hard splits.
func splitRecursive(segments []segment, maxSize int) []segment {
	var result []segment

	for _, seg := range segments {
		if len(seg.text) <= maxSize {
			result = append(result, seg)
			continue
		}

		if paragraphs := rebase(splitParagraphs(seg.text), seg.start); len(paragraphs) > 1 && !hasOversized(paragraphs, maxSize) {
			result = append(result, paragraphs...)
			continue
		}

		if sentences := rebase(splitSentences(seg.text), seg.start); len(sentences) > 1 && !hasOversized(sentences, maxSize) {
			result = append(result, sentences...)
			continue
		}

		result = append(result, hardSplit(seg.text, seg.start, maxSize)...)
	}

	return result
}

// groupWithHardLimit merges consecutive segments until adding the next one
// would push an already min-sized group past maxSize. Segments that are
// individually oversized get split before grouping continues.
func groupWithHardLimit(segments []segment, minSize, maxSize int) []segment {
	var grouped []segment
	var current strings.Builder
	currentStart := -1
	currentEnd := 0

	flush := func() {
		if current.Len() > 0 {
			grouped = append(grouped, segment{
				text:  strings.TrimSpace(current.String()),
				start: currentStart,
				end:   currentEnd,
			})
			current.Reset()
			currentStart = -1
		}
	}

	for _, seg := range segments {
		if len(seg.text) > maxSize {
			flush()
			grouped = append(grouped, splitRecursive([]segment{seg}, maxSize)...)
			continue
		}

		if current.Len()+len(seg.text)+1 > maxSize && current.Len() >= minSize {
			flush()
		}

		if currentStart < 0 {
			currentStart = seg.start
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(seg.text)
		currentEnd = seg.end
	}

	flush()
	return grouped
}

// hardSplit cuts at character boundaries, preferring a space in the second
// half of the window so words stay intact.
func hardSplit(text string, base, maxSize int) []segment {
	var segments []segment
	offset := 0

	for offset < len(text) {
		end := offset + maxSize
		if end > len(text) {
			end = len(text)
		}

		if end < len(text) {
			if lastSpace := strings.LastIndex(text[:end], " "); lastSpace > offset+maxSize/2 {
				end = lastSpace
			}
		}

		if chunk := strings.TrimSpace(text[offset:end]); chunk != "" {
			segments = append(segments, segment{text: chunk, start: base + offset, end: base + end})
		}
		offset = end
	}

	return segments
}

// rebase shifts segment offsets from a substring back into the parent text.
func rebase(segments []segment, base int) []segment {
	for i := range segments {
		segments[i].start += base
		segments[i].end += base
	}
	return segments
}

func hasOversized(segments []segment, maxSize int) bool {
	for _, seg := range segments {
		if len(seg.text) > maxSize {
			return true
		}
	}
	return false
}
