package chunker

import (
	"strings"
	"unicode"
)

// isTerminal reports whether r ends a sentence.
func isTerminal(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}

// isWideTerminal reports whether r is a full-width mark. Full-width marks
// end a sentence even when text continues without a space.
func isWideTerminal(r rune) bool {
	return r == '。' || r == '！' || r == '？'
}

// isCloser reports whether r may trail a terminal mark inside the same sentence.
func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’', '」', '』', '）':
		return true
	}
	return false
}

// SplitSentences splits text on terminal punctuation. Each mark stays
// with its sentence, along with any run of further marks or closing quotes.
// ASCII marks only end a sentence when followed by whitespace or the end of
// input, so "3.14" and "e.g.x" stay intact. Whitespace inside a sentence
// collapses to single spaces. Text after the last mark is a final sentence.
func SplitSentences(text string) []string {
	runes := []rune(text)
	var sentences []string
	var b strings.Builder

	flush := func() {
		s := strings.Join(strings.Fields(b.String()), " ")
		if s != "" {
			sentences = append(sentences, s)
		}
		b.Reset()
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		b.WriteRune(r)
		if !isTerminal(r) {
			continue
		}

		wide := isWideTerminal(r)
		for i+1 < len(runes) && (isTerminal(runes[i+1]) || isCloser(runes[i+1])) {
			i++
			b.WriteRune(runes[i])
			wide = wide || isWideTerminal(runes[i])
		}

		if wide || i+1 == len(runes) || unicode.IsSpace(runes[i+1]) {
			flush()
		}
	}
	flush()

	return sentences
}
