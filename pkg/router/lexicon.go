package router

import "strings"

// matchCount returns how many distinct lexicon terms occur in text as whole
// words or phrases. text must already be lowercase.
func matchCount(text string, terms []string) int {
	n := 0
	for _, term := range terms {
		if containsTrigger(text, term) {
			n++
		}
	}
	return n
}

// containsTrigger checks if the prompt contains the trigger phrase.
// It looks for the trigger as a word or phrase boundary match, trying every
// occurrence so "async asynchronous" still matches "async".
func containsTrigger(prompt, trigger string) bool {
	if trigger == "" {
		return false
	}
	offset := 0
	for {
		idx := strings.Index(prompt[offset:], trigger)
		if idx == -1 {
			return false
		}
		idx += offset
		endIdx := idx + len(trigger)

		before := idx == 0 || !isWordChar(prompt[idx-1])
		after := endIdx >= len(prompt) || !isWordChar(prompt[endIdx])
		if before && after {
			return true
		}
		offset = idx + 1
	}
}

func isWordChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}
