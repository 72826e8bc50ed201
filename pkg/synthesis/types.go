// Package synthesis scores provider responses, measures how much they agree
// and merges them into one weighted answer.
package synthesis

import "time"

// NoSuccessfulResponses is the primary answer when every provider failed.
const NoSuccessfulResponses = "No successful responses"

// RawResponse is a provider reply normalized before scoring.
type RawResponse struct {
	Provider string        `json:"provider"`
	Model    string        `json:"model"`
	Content  string        `json:"response"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
	Latency  time.Duration `json:"latency"`
}

// QualityMetrics are descriptive statistics of a response body.
type QualityMetrics struct {
	Words             int     `json:"words"`
	Sentences         int     `json:"sentences"`
	AvgSentenceLength float64 `json:"avg_sentence_length"`
	HasCode           bool    `json:"has_code"`
	HasList           bool    `json:"has_list"`
	HedgeCount        int     `json:"hedge_count"`
	CertaintyCount    int     `json:"certainty_count"`
}

// ModelResponse is a scored response. It is not modified after scoring.
type ModelResponse struct {
	Provider   string         `json:"provider"`
	Model      string         `json:"model"`
	Content    string         `json:"content"`
	Success    bool           `json:"success"`
	Error      string         `json:"error,omitempty"`
	Confidence float64        `json:"confidence"`
	Reasoning  []string       `json:"reasoning,omitempty"`
	Keywords   []string       `json:"keywords,omitempty"`
	Quality    QualityMetrics `json:"quality"`
	Latency    time.Duration  `json:"latency"`
}

// Source returns the "provider/model" label.
func (r ModelResponse) Source() string {
	return r.Provider + "/" + r.Model
}

// ConsensusLevel buckets a consensus score.
type ConsensusLevel string

const (
	ConsensusStrong    ConsensusLevel = "strong"
	ConsensusModerate  ConsensusLevel = "moderate"
	ConsensusWeak      ConsensusLevel = "weak"
	ConsensusDivergent ConsensusLevel = "divergent"
	ConsensusNone      ConsensusLevel = "none"
)

// Contradiction records providers whose opening statements take opposite sides.
type Contradiction struct {
	Terms     string   `json:"terms"` // e.g. "always/never"
	Affirming []string `json:"affirming"`
	Opposing  []string `json:"opposing"`
}

// Consensus is the agreement analysis over a response set.
type Consensus struct {
	Score          float64         `json:"score"`
	Level          ConsensusLevel  `json:"level"`
	SharedPhrases  []string        `json:"shared_phrases,omitempty"`
	Proximity      []float64       `json:"proximity"` // indexed like the analyzed responses
	Contradictions []Contradiction `json:"contradictions,omitempty"`
}

// Vote tallies one provider's calls for a query.
type Vote struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Evidence is a supporting excerpt from a non-primary response.
type Evidence struct {
	Source  string  `json:"source"`
	Excerpt string  `json:"excerpt"`
	Weight  float64 `json:"weight"`
}

// Source is a contributing response and the weight it was given.
type Source struct {
	Provider   string  `json:"provider"`
	Model      string  `json:"model"`
	Confidence float64 `json:"confidence"`
	Weight     float64 `json:"weight"`
}

// SynthesisResult is the merged answer for one query.
type SynthesisResult struct {
	Query          string          `json:"query"`
	Primary        string          `json:"primary"`
	PrimarySource  string          `json:"primary_source,omitempty"`
	Supporting     []Evidence      `json:"supporting"`
	Confidence     float64         `json:"confidence"`
	ConsensusScore float64         `json:"consensus_score"`
	ConsensusLevel ConsensusLevel  `json:"consensus_level"`
	Votes          map[string]Vote `json:"model_votes"`
	Reasoning      []string        `json:"reasoning,omitempty"`
	Sources        []Source        `json:"sources"`
	Contradictions []Contradiction `json:"contradictions,omitempty"`
	Responses      []ModelResponse `json:"responses,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Metadata is the machine-readable companion of a rendered report.
type Metadata struct {
	Complexity      string          `json:"complexity"`
	ComplexityScore float64         `json:"complexity_score"`
	ConfidenceScore float64         `json:"confidence_score"`
	ConsensusLevel  ConsensusLevel  `json:"consensus_level"`
	ModelVotes      map[string]Vote `json:"model_votes"`
	Sources         []string        `json:"sources"`
}
