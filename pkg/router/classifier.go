package router

import (
	"regexp"
	"strings"
)

// Level buckets a complexity score.
type Level string

const (
	LevelSimple   Level = "simple"
	LevelModerate Level = "moderate"
	LevelComplex  Level = "complex"
	LevelExpert   Level = "expert"
)

// Levels lists every level in ascending order.
var Levels = []Level{LevelSimple, LevelModerate, LevelComplex, LevelExpert}

// Features are the lexical signals a complexity score is built from.
type Features struct {
	Words     int `json:"words"`
	Technical int `json:"technical"`
	Reasoning int `json:"reasoning"`
	MultiPart int `json:"multi_part"`
	Structure int `json:"structure"`
	Expert    int `json:"expert"`
}

// Complexity is the result of classifying a query.
type Complexity struct {
	Score    float64  `json:"score"`
	Level    Level    `json:"level"`
	Features Features `json:"features"`
}

var (
	technicalTerms = []string{
		"algorithm", "architecture", "concurrency", "database", "distributed",
		"latency", "throughput", "kubernetes", "compiler", "protocol",
		"encryption", "neural", "regression", "api", "microservice", "cache",
		"thread", "memory", "scalability", "schema", "recursion", "async",
		"function", "query", "network", "statistics", "quantum", "molecule",
	}
	reasoningTerms = []string{
		"why", "how", "explain", "analyze", "analyse", "compare", "evaluate",
		"justify", "reason", "implications", "difference", "impact", "assess",
	}
	multiPartTerms = []string{
		"and also", "additionally", "as well as", "versus", "vs", "in addition",
		"furthermore", "step by step", "pros and cons", "on the other hand",
		"respectively", "both",
	}
	expertTerms = []string{
		"prove", "proof", "theorem", "formal", "optimize", "optimal",
		"trade-off", "tradeoff", "asymptotic", "derive", "rigorous", "invariant",
	}

	numberedLine = regexp.MustCompile(`(?m)^\s*\d+[.)]\s`)
	inlineCode   = regexp.MustCompile("`[^`\n]+`")
)

// ComplexityClassifier scores a query 0-1 from lexical features.
type ComplexityClassifier struct{}

// NewComplexityClassifier creates a classifier.
func NewComplexityClassifier() *ComplexityClassifier {
	return &ComplexityClassifier{}
}

// Classify scores the query and buckets it.
func (c *ComplexityClassifier) Classify(query string) Complexity {
	lower := strings.ToLower(query)
	f := Features{
		Words:     len(strings.Fields(query)),
		Technical: matchCount(lower, technicalTerms),
		Reasoning: matchCount(lower, reasoningTerms),
		MultiPart: matchCount(lower, multiPartTerms),
		Structure: structureHits(query),
		Expert:    matchCount(lower, expertTerms),
	}
	if q := strings.Count(query, "?"); q > 1 {
		f.MultiPart += q - 1
	}

	score := 0.25*ratio(f.Words, 60) +
		0.25*ratio(f.Technical, 3) +
		0.20*ratio(f.Reasoning, 2) +
		0.15*ratio(f.MultiPart, 3) +
		0.10*ratio(f.Structure, 2) +
		0.05*ratio(f.Expert, 2)
	score = clamp01(score)

	return Complexity{Score: score, Level: LevelFor(score), Features: f}
}

// LevelFor maps a score onto its bucket using the 0.25/0.50/0.75 thresholds.
func LevelFor(score float64) Level {
	switch {
	case score < 0.25:
		return LevelSimple
	case score < 0.50:
		return LevelModerate
	case score < 0.75:
		return LevelComplex
	default:
		return LevelExpert
	}
}

func structureHits(query string) int {
	hits := strings.Count(query, "```") / 2
	hits += len(inlineCode.FindAllStringIndex(query, -1))
	hits += len(numberedLine.FindAllStringIndex(query, -1))
	if strings.Contains(query, "{") && strings.Contains(query, "}") {
		hits++
	}
	return hits
}

var topics = []struct {
	name     string
	keywords []string
}{
	{"coding", []string{"code", "function", "bug", "compile", "python", "golang", "javascript", "api", "debug", "refactor", "class", "variable", "sql"}},
	{"math", []string{"equation", "integral", "derivative", "calculate", "probability", "theorem", "proof", "matrix", "algebra", "solve"}},
	{"science", []string{"physics", "chemistry", "biology", "molecule", "energy", "quantum", "cell", "experiment", "climate", "evolution"}},
	{"writing", []string{"essay", "poem", "story", "write", "rewrite", "summarize", "grammar", "tone", "paragraph", "email"}},
	{"business", []string{"market", "revenue", "startup", "strategy", "customer", "pricing", "sales", "investment", "profit", "finance"}},
	{"health", []string{"health", "symptom", "diet", "exercise", "sleep", "medicine", "disease", "nutrition", "doctor", "treatment"}},
}

// TopicGeneral is returned when no topic keywords match.
const TopicGeneral = "general"

// DetectTopic picks the topic whose keywords match the query most often.
// Ties resolve to the earlier topic.
func DetectTopic(query string) string {
	lower := strings.ToLower(query)
	best, bestHits := TopicGeneral, 0
	for _, t := range topics {
		if hits := matchCount(lower, t.keywords); hits > bestHits {
			best, bestHits = t.name, hits
		}
	}
	return best
}

func ratio(n, full int) float64 {
	if n >= full {
		return 1
	}
	return float64(n) / float64(full)
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
