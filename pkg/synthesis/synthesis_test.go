package synthesis

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dheena017/multimind/pkg/router"
)

func ok(provider, model, content string) RawResponse {
	return RawResponse{Provider: provider, Model: model, Content: content, Success: true, Latency: time.Millisecond}
}

func failed(provider, model, errText string) RawResponse {
	return RawResponse{Provider: provider, Model: model, Error: errText}
}

func scoreAll(raw ...RawResponse) []ModelResponse {
	s := NewScorer(0)
	out := make([]ModelResponse, len(raw))
	for i, r := range raw {
		out[i] = s.Score(r)
	}
	return out
}

func TestSynthesizeAllFailed(t *testing.T) {
	s := NewSynthesizer()
	result := s.Synthesize("anything", []RawResponse{
		failed("openai", "gpt-4o", "rate limited"),
		failed("anthropic", "claude", "timeout"),
		failed("openai", "gpt-4o-mini", "500"),
	})

	assert.Equal(t, NoSuccessfulResponses, result.Primary)
	assert.Equal(t, 0.0, result.Confidence)
	assert.Empty(t, result.Sources)
	assert.NotNil(t, result.Sources)
	assert.Empty(t, result.Supporting)
	assert.Equal(t, ConsensusNone, result.ConsensusLevel)
	assert.Equal(t, Vote{Failed: 2}, result.Votes["openai"])
	assert.Equal(t, Vote{Failed: 1}, result.Votes["anthropic"])
}

func TestSynthesizeEmptyInput(t *testing.T) {
	result := NewSynthesizer().Synthesize("q", nil)
	assert.Equal(t, NoSuccessfulResponses, result.Primary)
	assert.Equal(t, 0.0, result.Confidence)
	assert.Empty(t, result.Sources)
}

func TestAnalyzeSingleSuccess(t *testing.T) {
	responses := scoreAll(
		ok("openai", "gpt-4o", "Paris is the capital of France."),
		failed("google", "gemini", "quota"),
	)
	c := NewConsensusAnalyzer().Analyze(responses)

	assert.Equal(t, 1.0, c.Score)
	assert.Equal(t, ConsensusStrong, c.Level)
	require.Len(t, c.Proximity, 2)
	assert.Equal(t, 1.0, c.Proximity[0])
	assert.Equal(t, 0.0, c.Proximity[1])
}

func TestAnalyzeNoSuccess(t *testing.T) {
	c := NewConsensusAnalyzer().Analyze(scoreAll(failed("xai", "grok-3", "boom")))
	assert.Equal(t, ConsensusNone, c.Level)
	assert.Equal(t, 0.0, c.Score)
}

func TestAnalyzeSharedPhrases(t *testing.T) {
	same := "Go channels provide safe communication between goroutines."

	identical := NewConsensusAnalyzer().Analyze(scoreAll(
		ok("openai", "gpt-4o", same),
		ok("anthropic", "claude", same),
	))
	assert.Equal(t, 1.0, identical.Score)
	assert.Equal(t, ConsensusStrong, identical.Level)
	assert.Contains(t, identical.SharedPhrases, "go channels")

	// 7 content tokens give 11 phrases each; the outlier adds 5 unshared.
	mixed := NewConsensusAnalyzer().Analyze(scoreAll(
		ok("openai", "gpt-4o", same),
		ok("anthropic", "claude", same),
		ok("google", "gemini", "Bananas grow in tropical climates."),
	))
	assert.InDelta(t, 22.0/27.0, mixed.Score, 1e-9)
	assert.Equal(t, 1.0, mixed.Proximity[0])
	assert.Equal(t, 0.0, mixed.Proximity[2])
}

func TestAnalyzeDivergent(t *testing.T) {
	c := NewConsensusAnalyzer().Analyze(scoreAll(
		ok("openai", "gpt-4o", "Bananas grow in tropical climates."),
		ok("anthropic", "claude", "Compilers translate source programs."),
	))
	assert.Equal(t, 0.0, c.Score)
	assert.Equal(t, ConsensusDivergent, c.Level)
	assert.Empty(t, c.SharedPhrases)
}

func TestConsensusLevelFor(t *testing.T) {
	assert.Equal(t, ConsensusStrong, LevelFor(0.5))
	assert.Equal(t, ConsensusModerate, LevelFor(0.3))
	assert.Equal(t, ConsensusModerate, LevelFor(0.49))
	assert.Equal(t, ConsensusWeak, LevelFor(0.15))
	assert.Equal(t, ConsensusDivergent, LevelFor(0.1499))
}

func TestContradictions(t *testing.T) {
	responses := scoreAll(
		ok("openai", "gpt-4o", "Yes, it is safe to use. More detail follows."),
		ok("anthropic", "claude", "No, it is not safe. Avoid it."),
		ok("google", "gemini", "It depends on the workload."),
	)
	found := Contradictions(responses)

	terms := make(map[string]Contradiction)
	for _, c := range found {
		terms[c.Terms] = c
	}
	require.Contains(t, terms, "yes/no")
	require.Contains(t, terms, "safe/unsafe")
	assert.Equal(t, []string{"openai/gpt-4o"}, terms["safe/unsafe"].Affirming)
	assert.Equal(t, []string{"anthropic/claude"}, terms["safe/unsafe"].Opposing)
}

func TestContradictionNegationMasksPositive(t *testing.T) {
	responses := scoreAll(
		ok("a", "m", "This approach is recommended for production."),
		ok("b", "m", "This approach is not recommended for production."),
	)
	found := Contradictions(responses)
	require.Len(t, found, 1)
	assert.Equal(t, "recommended/not recommended", found[0].Terms)
}

func TestContradictionIgnoresNoIdioms(t *testing.T) {
	responses := scoreAll(
		ok("a", "m", "Yes, Go is memory safe."),
		ok("b", "m", "There is no doubt Go is memory safe."),
		ok("c", "m", "Yes. It is no longer experimental."),
	)
	assert.Empty(t, Contradictions(responses))

	responses = scoreAll(
		ok("a", "m", "Yes, Go is memory safe."),
		ok("b", "m", "No doubt about it: no, it is not."),
	)
	found := Contradictions(responses)
	require.Len(t, found, 1)
	assert.Equal(t, "yes/no", found[0].Terms)
}

func TestKeywords(t *testing.T) {
	assert.Equal(t, []string{"cache", "database", "index"},
		Keywords("database database cache cache cache index", 5))
	assert.Equal(t, []string{"beta", "alpha"}, Keywords("alpha beta gamma beta", 2))
	assert.Empty(t, Keywords("the a an of", 3))
	assert.Nil(t, Keywords("anything here", 0))
}

func TestReasoningChain(t *testing.T) {
	text := "First, gather data. Then clean it.\n1. Train the model\n2. Evaluate\nFinally, deploy."
	assert.Equal(t, []string{
		"First, gather data.",
		"Then clean it.",
		"1. Train the model",
		"2. Evaluate",
		"Finally, deploy.",
	}, ReasoningChain(text))

	var long strings.Builder
	for i := 1; i <= 12; i++ {
		long.WriteString(strings.Repeat("x", i))
		long.WriteString("\n")
		long.WriteString("Step ")
		long.WriteString(string(rune('0' + i%10)))
		long.WriteString(": do it\n")
	}
	assert.Len(t, ReasoningChain(long.String()), 8)
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 0.0, Confidence("   "))
	// one word: length 0.3, neutral certainty 0.5
	assert.InDelta(t, 0.40*0.3+0.25*0.5, Confidence("Yes."), 1e-9)

	certain := Confidence("This is definitely the answer and it is clearly correct.")
	hedged := Confidence("This is maybe the answer and it is perhaps correct.")
	assert.Greater(t, certain, hedged)

	var structured strings.Builder
	structured.WriteString("# Overview\n\n")
	for i := 0; i < 4; i++ {
		structured.WriteString("- a point because it matters, therefore we note it\n")
	}
	assert.Greater(t, Confidence(structured.String()), Confidence("a point"))
}

func TestScoreFailedAndEmpty(t *testing.T) {
	s := NewScorer(0)

	f := s.Score(failed("openai", "gpt-4o", "boom"))
	assert.False(t, f.Success)
	assert.Equal(t, 0.0, f.Confidence)
	assert.Equal(t, "boom", f.Error)

	e := s.Score(ok("openai", "gpt-4o", "  \n"))
	assert.False(t, e.Success)
	assert.Equal(t, "empty response", e.Error)
	assert.Equal(t, 0.0, e.Confidence)

	good := s.Score(ok("openai", "gpt-4o", "Use `go test` to run tests.\n- one\n- two"))
	assert.True(t, good.Success)
	assert.True(t, good.Quality.HasCode)
	assert.True(t, good.Quality.HasList)
	assert.Greater(t, good.Confidence, 0.0)
}

func TestSynthesizeTieKeepsEarliest(t *testing.T) {
	text := "Goroutines are lightweight threads managed by the Go runtime."
	result := NewSynthesizer().Synthesize("what are goroutines", []RawResponse{
		ok("openai", "gpt-4o", text),
		ok("anthropic", "claude", text),
	})

	assert.Equal(t, "openai/gpt-4o", result.PrimarySource)
	require.Len(t, result.Supporting, 1)
	assert.Equal(t, "anthropic/claude", result.Supporting[0].Source)

	// identical responses: full consensus so aggregate equals own confidence
	conf := Confidence(text)
	assert.InDelta(t, conf, result.Confidence, 1e-9)
	assert.Equal(t, ConsensusStrong, result.ConsensusLevel)
}

func TestSynthesizeSupportingCapped(t *testing.T) {
	text := "Goroutines are lightweight threads managed by the Go runtime. " + strings.Repeat("word ", 400)
	var raw []RawResponse
	for _, p := range []string{"a", "b", "c", "d", "e"} {
		raw = append(raw, ok(p, "m", text))
	}
	result := NewSynthesizer().Synthesize("q", raw)

	assert.Len(t, result.Supporting, 3)
	assert.Len(t, result.Sources, 5)
	for _, ev := range result.Supporting {
		assert.LessOrEqual(t, len([]rune(ev.Excerpt)), 280)
	}
}

func TestSynthesizePrefersConfidentResponse(t *testing.T) {
	detailed := "# Answer\n\n" +
		"- Channels synchronize goroutines because sends block until received.\n" +
		"- Therefore unbuffered channels act as a rendezvous point.\n" +
		"- However, buffered channels decouple producers and consumers.\n" +
		"Channels are clearly the idiomatic tool for this, for example in pipelines."
	result := NewSynthesizer().Synthesize("how do channels work", []RawResponse{
		ok("xai", "grok-3", "Maybe channels."),
		ok("openai", "gpt-4o", detailed),
		failed("google", "gemini", "quota"),
	})

	assert.Equal(t, "openai/gpt-4o", result.PrimarySource)
	assert.Equal(t, Vote{Succeeded: 1}, result.Votes["xai"])
	assert.Equal(t, Vote{Failed: 1}, result.Votes["google"])
	assert.Len(t, result.Sources, 2)
	assert.Equal(t, "openai", result.Sources[0].Provider)
	assert.Greater(t, result.Confidence, 0.0)
	assert.LessOrEqual(t, result.Confidence, 1.0)
}

func TestVotesCountSameProvider(t *testing.T) {
	result := NewSynthesizer().Synthesize("q", []RawResponse{
		ok("openai", "gpt-4o", "An answer here."),
		failed("openai", "gpt-4o-mini", "timeout"),
	})
	assert.Equal(t, Vote{Succeeded: 1, Failed: 1}, result.Votes["openai"])
}

func TestReport(t *testing.T) {
	result := NewSynthesizer().Synthesize("q", []RawResponse{
		ok("openai", "gpt-4o", "First, check the logs. Then restart the service."),
		ok("anthropic", "claude", "Check the logs before anything else."),
	})
	complexity := router.Complexity{Score: 0.3, Level: router.LevelModerate}

	md, meta := Report(result, complexity)
	assert.Contains(t, md, "## Answer")
	assert.Contains(t, md, "### Reasoning")
	assert.Contains(t, md, "**Sources:** openai/gpt-4o, anthropic/claude")
	assert.Contains(t, md, "anthropic 1/1, openai 1/1")

	assert.Equal(t, "moderate", meta.Complexity)
	assert.Equal(t, result.Confidence, meta.ConfidenceScore)
	assert.Equal(t, result.ConsensusLevel, meta.ConsensusLevel)
	assert.Equal(t, []string{"openai/gpt-4o", "anthropic/claude"}, meta.Sources)
	assert.Equal(t, result.Votes, meta.ModelVotes)
}

func TestReportAllFailed(t *testing.T) {
	result := NewSynthesizer().Synthesize("q", []RawResponse{failed("openai", "gpt-4o", "x")})
	md, meta := Report(result, router.Complexity{Level: router.LevelSimple})

	assert.Contains(t, md, NoSuccessfulResponses)
	assert.Empty(t, meta.Sources)
	assert.Equal(t, ConsensusNone, meta.ConsensusLevel)
	assert.Equal(t, 0.0, meta.ConfidenceScore)
}

func TestSplitSentences(t *testing.T) {
	assert.Equal(t, []string{"1. Do this.", "Then that!", "Next line"},
		splitSentences("1. Do this. Then that!\nNext line"))
	assert.Empty(t, splitSentences("   \n "))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd...", truncate("abcdefghij", 7))
}
