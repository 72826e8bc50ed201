package synthesis

import (
	"regexp"
	"sort"
	"strings"
)

const maxReasoningSteps = 8

var (
	hedgeTerms = []string{
		"might", "maybe", "perhaps", "possibly", "probably", "likely", "unclear",
		"uncertain", "not sure", "i think", "i believe", "it seems", "could be",
		"it depends", "arguably", "roughly", "approximately",
	}
	certaintyTerms = []string{
		"definitely", "certainly", "clearly", "always", "precisely", "exactly",
		"undoubtedly", "in fact", "guaranteed", "proven", "without doubt",
		"must", "will",
	}
	linkingTerms = []string{
		"because", "therefore", "however", "thus", "hence", "consequently",
		"furthermore", "moreover", "additionally", "for example", "for instance",
		"in contrast", "as a result", "since", "so that", "which means",
	}

	listItem     = regexp.MustCompile(`(?m)^\s*(?:[-*•]|\d+[.)])\s+\S`)
	headerLine   = regexp.MustCompile(`(?m)^#{1,6}\s+\S`)
	inlineCode   = regexp.MustCompile("`[^`\n]+`")
	numberedStep = regexp.MustCompile(`(?i)^(?:\d+[.)]|step\s+\d+\b[:.)]?)\s*\S`)
	transition   = regexp.MustCompile(`(?i)^(?:first|firstly|second|secondly|third|thirdly|then|next|finally|lastly|therefore|thus)\b`)
	bulletPrefix = regexp.MustCompile(`^[-*•>\s]+`)
)

// Scorer turns raw provider replies into scored ModelResponses.
type Scorer struct {
	keywordCount int
}

// NewScorer creates a scorer that keeps the top keywordCount keywords per
// response.
func NewScorer(keywordCount int) *Scorer {
	if keywordCount <= 0 {
		keywordCount = 8
	}
	return &Scorer{keywordCount: keywordCount}
}

// Score builds the scored response. Failed and empty replies get zero
// confidence and are marked unsuccessful.
func (s *Scorer) Score(raw RawResponse) ModelResponse {
	resp := ModelResponse{
		Provider: raw.Provider,
		Model:    raw.Model,
		Content:  raw.Content,
		Success:  raw.Success,
		Error:    raw.Error,
		Latency:  raw.Latency,
	}
	if !raw.Success {
		if resp.Error == "" {
			resp.Error = "request failed"
		}
		return resp
	}
	if strings.TrimSpace(raw.Content) == "" {
		resp.Success = false
		resp.Error = "empty response"
		return resp
	}

	resp.Quality = Quality(raw.Content)
	resp.Confidence = Confidence(raw.Content)
	resp.Reasoning = ReasoningChain(raw.Content)
	resp.Keywords = Keywords(raw.Content, s.keywordCount)
	return resp
}

// Confidence is the weighted blend of length, certainty, linking and
// structure signals.
func Confidence(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	tokens := tokenize(text)
	hedges := countPhrases(tokens, hedgeTerms)
	certain := countPhrases(tokens, certaintyTerms)
	links := countPhrases(tokens, linkingTerms)

	length := lengthScore(len(strings.Fields(text)))
	certainty := clamp01(0.5 + 0.1*float64(certain) - 0.1*float64(hedges))
	linking := min(float64(links)/5, 1)
	structure := min(float64(structureHits(text))/3, 1)

	return clamp01(0.40*length + 0.25*certainty + 0.20*linking + 0.15*structure)
}

func lengthScore(words int) float64 {
	switch {
	case words < 20:
		return 0.3
	case words < 50:
		return 0.5
	case words < 150:
		return 0.7
	case words <= 600:
		return 0.9
	default:
		return 0.8
	}
}

func structureHits(text string) int {
	hits := len(listItem.FindAllStringIndex(text, -1))
	hits += len(headerLine.FindAllStringIndex(text, -1))
	hits += strings.Count(text, "```") / 2
	return hits
}

// Quality computes descriptive metrics for text.
func Quality(text string) QualityMetrics {
	tokens := tokenize(text)
	words := len(strings.Fields(text))
	sentences := len(splitSentences(text))

	q := QualityMetrics{
		Words:          words,
		Sentences:      sentences,
		HasCode:        strings.Contains(text, "```") || inlineCode.MatchString(text),
		HasList:        listItem.MatchString(text),
		HedgeCount:     countPhrases(tokens, hedgeTerms),
		CertaintyCount: countPhrases(tokens, certaintyTerms),
	}
	if sentences > 0 {
		q.AvgSentenceLength = float64(words) / float64(sentences)
	}
	return q
}

// Keywords returns the n most frequent non-stopword tokens of at least four
// characters. Ties keep first-appearance order.
func Keywords(text string, n int) []string {
	if n <= 0 {
		return nil
	}
	counts := make(map[string]int)
	var order []string
	for _, t := range contentTokens(text) {
		if len([]rune(t)) < 4 {
			continue
		}
		if counts[t] == 0 {
			order = append(order, t)
		}
		counts[t]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > n {
		order = order[:n]
	}
	return order
}

// ReasoningChain extracts up to eight step-like lines or sentences: numbered
// items, "Step N" lines and sentences opening with an ordering word.
func ReasoningChain(text string) []string {
	var steps []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(bulletPrefix.ReplaceAllString(line, ""))
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		if numberedStep.MatchString(line) {
			steps = append(steps, line)
		} else {
			for _, sentence := range splitSentences(line) {
				if transition.MatchString(sentence) {
					steps = append(steps, sentence)
				}
			}
		}
		if len(steps) >= maxReasoningSteps {
			return steps[:maxReasoningSteps]
		}
	}
	return steps
}
