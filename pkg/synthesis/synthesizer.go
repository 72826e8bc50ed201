package synthesis

import (
	"sort"
	"time"
)

const (
	maxSupporting = 3
	maxExcerptLen = 280
)

// Synthesizer merges scored responses into a single answer.
type Synthesizer struct {
	scorer   *Scorer
	analyzer *ConsensusAnalyzer
	now      func() time.Time
}

// NewSynthesizer creates a synthesizer with the default scorer and analyzer.
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{
		scorer:   NewScorer(0),
		analyzer: NewConsensusAnalyzer(),
		now:      time.Now,
	}
}

// Synthesize scores raw replies, analyzes their consensus and merges them.
func (s *Synthesizer) Synthesize(query string, raw []RawResponse) SynthesisResult {
	responses := make([]ModelResponse, len(raw))
	for i, r := range raw {
		responses[i] = s.scorer.Score(r)
	}
	return s.SynthesizeWithWeighting(query, responses, s.analyzer.Analyze(responses))
}

// SynthesizeWithWeighting weights each successful response by its confidence
// scaled by how close it sits to the consensus, picks the heaviest as the
// primary answer and quotes the next ones as supporting evidence.
func (s *Synthesizer) SynthesizeWithWeighting(query string, responses []ModelResponse, consensus Consensus) SynthesisResult {
	result := SynthesisResult{
		Query:      query,
		Votes:      tallyVotes(responses),
		Supporting: []Evidence{},
		Sources:    []Source{},
		Responses:  responses,
		CreatedAt:  s.now().UTC(),
	}

	type weighted struct {
		idx    int
		weight float64
	}
	var candidates []weighted
	for i, r := range responses {
		if !r.Success {
			continue
		}
		prox := 0.0
		if i < len(consensus.Proximity) {
			prox = consensus.Proximity[i]
		}
		candidates = append(candidates, weighted{idx: i, weight: r.Confidence * (0.5 + 0.5*prox)})
	}

	if len(candidates) == 0 {
		result.Primary = NoSuccessfulResponses
		result.ConsensusLevel = ConsensusNone
		return result
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].weight > candidates[j].weight
	})

	primary := responses[candidates[0].idx]
	result.Primary = primary.Content
	result.PrimarySource = primary.Source()
	result.Reasoning = primary.Reasoning
	result.ConsensusScore = consensus.Score
	result.ConsensusLevel = consensus.Level
	result.Contradictions = consensus.Contradictions

	shared := make(map[string]bool, len(consensus.SharedPhrases))
	for _, p := range consensus.SharedPhrases {
		shared[p] = true
	}

	var sumW, sumWC float64
	for _, c := range candidates {
		r := responses[c.idx]
		sumW += c.weight
		sumWC += c.weight * r.Confidence
		result.Sources = append(result.Sources, Source{
			Provider:   r.Provider,
			Model:      r.Model,
			Confidence: r.Confidence,
			Weight:     c.weight,
		})
	}
	if sumW > 0 {
		result.Confidence = clamp01((sumWC / sumW) * (0.7 + 0.3*consensus.Score))
	}

	for _, c := range candidates[1:] {
		if len(result.Supporting) == maxSupporting {
			break
		}
		r := responses[c.idx]
		if excerpt := Excerpt(r.Content, shared); excerpt != "" {
			result.Supporting = append(result.Supporting, Evidence{
				Source:  r.Source(),
				Excerpt: excerpt,
				Weight:  c.weight,
			})
		}
	}

	return result
}

// Excerpt picks the sentence containing the most shared phrases, falling back
// to the first sentence, truncated to 280 characters.
func Excerpt(text string, shared map[string]bool) string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return ""
	}
	best, bestHits := 0, -1
	for i, sentence := range sentences {
		hits := 0
		for _, p := range KeyPhrases(sentence) {
			if shared[p] {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = i, hits
		}
	}
	return truncate(sentences[best], maxExcerptLen)
}

func tallyVotes(responses []ModelResponse) map[string]Vote {
	votes := make(map[string]Vote)
	for _, r := range responses {
		v := votes[r.Provider]
		if r.Success {
			v.Succeeded++
		} else {
			v.Failed++
		}
		votes[r.Provider] = v
	}
	return votes
}
