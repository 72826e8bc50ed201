package synthesis

import (
	"sort"
	"strings"
)

// opposition pairs two vocabularies that cannot both describe the same claim.
// Idioms are phrases that contain a term without taking a side.
type opposition struct {
	name     string
	positive []string
	negative []string
	idioms   []string
}

var oppositions = []opposition{
	{name: "yes/no", positive: []string{"yes"}, negative: []string{"no"},
		idioms: []string{"no doubt", "no problem", "no longer", "no matter", "no one", "no need", "no wonder", "no less", "no more than"}},
	{name: "true/false", positive: []string{"true"}, negative: []string{"false"}},
	{name: "always/never", positive: []string{"always"}, negative: []string{"never"}},
	{name: "correct/incorrect", positive: []string{"correct"}, negative: []string{"incorrect", "not correct"}},
	{name: "safe/unsafe", positive: []string{"safe"}, negative: []string{"unsafe", "not safe", "dangerous"}},
	{name: "possible/impossible", positive: []string{"possible"}, negative: []string{"impossible", "not possible"}},
	{name: "increase/decrease",
		positive: []string{"increase", "increases", "rise", "rises", "higher"},
		negative: []string{"decrease", "decreases", "fall", "falls", "lower"}},
	{name: "recommended/not recommended",
		positive: []string{"recommended", "advisable"},
		negative: []string{"not recommended", "inadvisable", "discouraged"}},
}

// ConsensusAnalyzer measures phrase overlap across successful responses.
type ConsensusAnalyzer struct{}

// NewConsensusAnalyzer creates an analyzer.
func NewConsensusAnalyzer() *ConsensusAnalyzer {
	return &ConsensusAnalyzer{}
}

// Analyze computes the consensus score, level, per-response proximity and
// contradictions. Failed responses are ignored and get zero proximity.
func (a *ConsensusAnalyzer) Analyze(responses []ModelResponse) Consensus {
	c := Consensus{Proximity: make([]float64, len(responses))}

	phrases := make([][]string, len(responses))
	docFreq := make(map[string]int)
	var firstSeen []string
	succeeded := 0
	for i, r := range responses {
		if !r.Success {
			continue
		}
		succeeded++
		phrases[i] = KeyPhrases(r.Content)
		for _, p := range phrases[i] {
			if docFreq[p] == 0 {
				firstSeen = append(firstSeen, p)
			}
			docFreq[p]++
		}
	}

	switch succeeded {
	case 0:
		c.Level = ConsensusNone
		return c
	case 1:
		c.Score = 1.0
		c.Level = ConsensusStrong
		for i, r := range responses {
			if r.Success {
				c.Proximity[i] = 1.0
			}
		}
		return c
	}

	var total, shared int
	for i := range responses {
		n := 0
		for _, p := range phrases[i] {
			if docFreq[p] >= 2 {
				n++
			}
		}
		total += len(phrases[i])
		shared += n
		if len(phrases[i]) > 0 {
			c.Proximity[i] = float64(n) / float64(len(phrases[i]))
		}
	}
	if total > 0 {
		c.Score = float64(shared) / float64(total)
	}
	c.Level = LevelFor(c.Score)

	for _, p := range firstSeen {
		if docFreq[p] >= 2 {
			c.SharedPhrases = append(c.SharedPhrases, p)
		}
	}
	sort.SliceStable(c.SharedPhrases, func(i, j int) bool {
		return docFreq[c.SharedPhrases[i]] > docFreq[c.SharedPhrases[j]]
	})

	c.Contradictions = Contradictions(responses)
	return c
}

// LevelFor maps a consensus score onto its level.
func LevelFor(score float64) ConsensusLevel {
	switch {
	case score >= 0.50:
		return ConsensusStrong
	case score >= 0.30:
		return ConsensusModerate
	case score >= 0.15:
		return ConsensusWeak
	default:
		return ConsensusDivergent
	}
}

// KeyPhrases returns the distinct word 2- and 3-grams of the stopword
// filtered text, in first-appearance order.
func KeyPhrases(text string) []string {
	tokens := contentTokens(text)
	seen := make(map[string]bool)
	var out []string
	for n := 2; n <= 3; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			p := strings.Join(tokens[i:i+n], " ")
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

// Contradictions compares the first sentence of every successful response
// against the opposition vocabularies. A pair is flagged when some responses
// use only the positive side and others only the negative side.
func Contradictions(responses []ModelResponse) []Contradiction {
	var out []Contradiction
	for _, op := range oppositions {
		var affirming, opposing []string
		for _, r := range responses {
			if !r.Success {
				continue
			}
			sentences := splitSentences(r.Content)
			if len(sentences) == 0 {
				continue
			}
			switch side(tokenize(sentences[0]), op) {
			case 1:
				affirming = append(affirming, r.Source())
			case -1:
				opposing = append(opposing, r.Source())
			}
		}
		if len(affirming) > 0 && len(opposing) > 0 {
			out = append(out, Contradiction{Terms: op.name, Affirming: affirming, Opposing: opposing})
		}
	}
	return out
}

// side reports 1 for positive-only, -1 for negative-only, 0 otherwise.
// Idioms are masked first, then negative phrases, so "no doubt" counts for
// neither side and "not recommended" does not also count as "recommended".
func side(tokens []string, op opposition) int {
	masked := append([]string(nil), tokens...)
	for _, p := range op.idioms {
		words := strings.Fields(p)
		for _, at := range phraseOffsets(masked, words) {
			for j := range words {
				masked[at+j] = ""
			}
		}
	}
	neg := 0
	for _, p := range op.negative {
		words := strings.Fields(p)
		for _, at := range phraseOffsets(masked, words) {
			neg++
			for j := range words {
				masked[at+j] = ""
			}
		}
	}
	pos := countPhrases(masked, op.positive)

	switch {
	case pos > 0 && neg == 0:
		return 1
	case neg > 0 && pos == 0:
		return -1
	default:
		return 0
	}
}
