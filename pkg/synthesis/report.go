package synthesis

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/dheena017/multimind/pkg/router"
)

// Report renders the result as Markdown and returns the metadata the caller
// needs to display or store alongside it.
func Report(result SynthesisResult, complexity router.Complexity) (string, Metadata) {
	meta := Metadata{
		Complexity:      string(complexity.Level),
		ComplexityScore: complexity.Score,
		ConfidenceScore: result.Confidence,
		ConsensusLevel:  result.ConsensusLevel,
		ModelVotes:      result.Votes,
		Sources:         make([]string, 0, len(result.Sources)),
	}
	for _, src := range result.Sources {
		meta.Sources = append(meta.Sources, src.Provider+"/"+src.Model)
	}

	var b strings.Builder
	b.WriteString("## Answer\n\n")
	b.WriteString(strings.TrimSpace(result.Primary))
	b.WriteString("\n\n")

	if len(result.Supporting) > 0 {
		b.WriteString("### Supporting perspectives\n\n")
		for _, ev := range result.Supporting {
			fmt.Fprintf(&b, "- **%s**: %s\n", ev.Source, ev.Excerpt)
		}
		b.WriteString("\n")
	}

	if len(result.Reasoning) > 0 {
		b.WriteString("### Reasoning\n\n")
		for i, step := range result.Reasoning {
			fmt.Fprintf(&b, "%d. %s\n", i+1, stripOrdinal(step))
		}
		b.WriteString("\n")
	}

	if len(result.Contradictions) > 0 {
		b.WriteString("### Points of disagreement\n\n")
		for _, c := range result.Contradictions {
			fmt.Fprintf(&b, "- %s: %s vs %s\n", c.Terms,
				strings.Join(c.Affirming, ", "), strings.Join(c.Opposing, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "*Confidence %.0f%% | consensus %s (%.2f) | complexity %s (%.2f)*\n\n",
		result.Confidence*100, result.ConsensusLevel, result.ConsensusScore,
		meta.Complexity, complexity.Score)
	if len(meta.Sources) > 0 {
		fmt.Fprintf(&b, "**Sources:** %s\n\n", strings.Join(meta.Sources, ", "))
	}
	if len(result.Votes) > 0 {
		fmt.Fprintf(&b, "**Votes:** %s\n", formatVotes(result.Votes))
	}

	return b.String(), meta
}

func formatVotes(votes map[string]Vote) string {
	providers := make([]string, 0, len(votes))
	for p := range votes {
		providers = append(providers, p)
	}
	sort.Strings(providers)

	parts := make([]string, 0, len(providers))
	for _, p := range providers {
		v := votes[p]
		parts = append(parts, fmt.Sprintf("%s %d/%d", p, v.Succeeded, v.Succeeded+v.Failed))
	}
	return strings.Join(parts, ", ")
}

var ordinalPrefix = regexp.MustCompile(`(?i)^(?:\d+[.)]|step\s+\d+\b[:.)]?)\s*`)

// stripOrdinal drops a leading "3." or "Step 2:" so the rendered list does
// not number steps twice.
func stripOrdinal(step string) string {
	if trimmed := strings.TrimSpace(ordinalPrefix.ReplaceAllString(step, "")); trimmed != "" {
		return trimmed
	}
	return step
}
