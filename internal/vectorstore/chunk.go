package vectorstore

import (
	"strings"
	"unicode/utf8"
)

// SplitText cuts text into chunks of roughly size characters with the given
// overlap, preferring to break at whitespace so words stay intact. Cuts never
// land inside a multi-byte rune.
func SplitText(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if size <= 0 || len(text) <= size {
		return []string{text}
	}
	if overlap >= size {
		overlap = size / 2
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + size
		if end >= len(text) {
			chunks = append(chunks, strings.TrimSpace(text[start:]))
			break
		}

		// Back up to the nearest whitespace so we do not cut a word, unless
		// that would shrink the chunk by more than half.
		cut := end
		for cut > start+size/2 && !isSpace(text[cut]) {
			cut--
		}
		if cut == start+size/2 {
			cut = end
		}
		cut = runeStart(text, cut)
		if cut >= len(text) {
			chunks = append(chunks, strings.TrimSpace(text[start:]))
			break
		}

		chunk := strings.TrimSpace(text[start:cut])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := cut - overlap
		if next <= start {
			next = cut
		} else {
			next = runeStart(text, next)
		}
		start = next
	}
	return chunks
}

// runeStart moves i forward to the nearest rune boundary at or after it.
func runeStart(text string, i int) int {
	for i < len(text) && !utf8.RuneStart(text[i]) {
		i++
	}
	return i
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}
