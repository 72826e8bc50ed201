package synthesis

import (
	"strings"
	"unicode"
)

var stopwords = toSet(
	"a", "an", "the", "and", "or", "but", "if", "then", "so", "of", "to", "in",
	"on", "at", "by", "for", "with", "from", "as", "is", "are", "was", "were",
	"be", "been", "being", "it", "its", "this", "that", "these", "those", "there",
	"their", "they", "them", "we", "you", "your", "our", "i", "me", "my", "he",
	"she", "his", "her", "do", "does", "did", "has", "have", "had", "not", "no",
	"can", "could", "will", "would", "should", "may", "might", "also", "very",
	"just", "more", "most", "some", "such", "than", "too", "into", "about",
	"which", "what", "when", "where", "who", "how", "why", "all", "any", "each",
	"other", "only", "over", "out", "up", "down", "here", "while", "because",
	"both", "own", "same", "s", "t", "don", "let", "lets", "well", "like", "get",
)

func toSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// tokenize lowercases text and splits it into runs of letters and digits.
// Apostrophes are dropped so "don't" becomes "dont".
func tokenize(text string) []string {
	text = strings.ReplaceAll(strings.ToLower(text), "'", "")
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// contentTokens drops stopwords from the token stream.
func contentTokens(text string) []string {
	tokens := tokenize(text)
	out := tokens[:0]
	for _, t := range tokens {
		if !stopwords[t] {
			out = append(out, t)
		}
	}
	return out
}

// countPhrases counts every occurrence of each phrase in the token stream.
func countPhrases(tokens []string, phrases []string) int {
	n := 0
	for _, p := range phrases {
		n += len(phraseOffsets(tokens, strings.Fields(p)))
	}
	return n
}

// phraseOffsets returns the start index of every occurrence of phrase in tokens.
func phraseOffsets(tokens, phrase []string) []int {
	if len(phrase) == 0 {
		return nil
	}
	var offsets []int
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		match := true
		for j, w := range phrase {
			if tokens[i+j] != w {
				match = false
				break
			}
		}
		if match {
			offsets = append(offsets, i)
		}
	}
	return offsets
}

// splitSentences breaks text on terminal punctuation followed by whitespace
// and on newlines. List ordinals like "1." do not end a sentence.
func splitSentences(text string) []string {
	var out []string
	var b strings.Builder
	flush := func() {
		if s := strings.TrimSpace(b.String()); s != "" {
			out = append(out, s)
		}
		b.Reset()
	}

	runes := []rune(text)
	for i, r := range runes {
		if r == '\n' {
			flush()
			continue
		}
		b.WriteRune(r)
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		atBoundary := i+1 >= len(runes) || unicode.IsSpace(runes[i+1])
		if atBoundary && !isOrdinal(b.String()) {
			flush()
		}
	}
	flush()
	return out
}

func isOrdinal(s string) bool {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "-*• ")
	s = strings.TrimRight(s, ".)")
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// truncate shortens s to at most max runes, ending with "..." when cut.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return strings.TrimSpace(string(runes[:max-3])) + "..."
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
