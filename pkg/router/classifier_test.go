package router

import (
	"math"
	"strings"
	"testing"
)

func TestClassifyBuckets(t *testing.T) {
	c := NewComplexityClassifier()

	tests := []struct {
		name  string
		query string
		want  Level
	}{
		{name: "greeting", query: "Hello there", want: LevelSimple},
		{name: "short fact", query: "What is the capital of France?", want: LevelSimple},
		{
			name:  "explain technical",
			query: "Explain how a database cache improves latency and why thread safety matters in a busy web service",
			want:  LevelComplex,
		},
		{
			name: "expert multi-part",
			query: "Compare and evaluate the asymptotic trade-off between two distributed consensus algorithm designs. " +
				"Prove which is optimal for throughput versus latency, and also explain the memory impact? " +
				"Additionally, derive the invariant step by step:\n1. leader election\n2. log replication\n" +
				strings.Repeat("context ", 30),
			want: LevelExpert,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.query)
			if got.Level != tt.want {
				t.Errorf("Classify(%q) level = %s (score %.3f, %+v), want %s",
					tt.query, got.Level, got.Score, got.Features, tt.want)
			}
			if got.Score < 0 || got.Score > 1 {
				t.Errorf("score %.3f out of range", got.Score)
			}
		})
	}
}

func TestLevelForThresholds(t *testing.T) {
	tests := []struct {
		score float64
		want  Level
	}{
		{0, LevelSimple},
		{0.2499, LevelSimple},
		{0.25, LevelModerate},
		{0.4999, LevelModerate},
		{0.50, LevelComplex},
		{0.7499, LevelComplex},
		{0.75, LevelExpert},
		{1, LevelExpert},
	}
	for _, tt := range tests {
		if got := LevelFor(tt.score); got != tt.want {
			t.Errorf("LevelFor(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestLevelForMonotonic(t *testing.T) {
	rank := map[Level]int{}
	for i, l := range Levels {
		rank[l] = i
	}
	prev := -1
	for s := 0.0; s <= 1.0; s += 0.001 {
		r := rank[LevelFor(s)]
		if r < prev {
			t.Fatalf("level decreased at score %.3f", s)
		}
		prev = r
	}
}

func TestClassifyScoreBounded(t *testing.T) {
	c := NewComplexityClassifier()
	huge := strings.Repeat("prove the optimal asymptotic algorithm? why? how? ```x``` `y` {z}\n1. a\n", 200)
	for _, q := range []string{"", " ", huge} {
		got := c.Classify(q)
		if got.Score < 0 || got.Score > 1 || math.IsNaN(got.Score) {
			t.Errorf("score %.3f out of [0,1] for %q", got.Score, q[:min(len(q), 20)])
		}
	}
}

func TestDetectTopic(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"Why does my Python function throw a bug when I debug it?", "coding"},
		{"Solve this equation and calculate the derivative", "math"},
		{"Write a short poem about autumn", "writing"},
		{"What pricing strategy should my startup use?", "business"},
		{"Tell me something nice", TopicGeneral},
	}
	for _, tt := range tests {
		if got := DetectTopic(tt.query); got != tt.want {
			t.Errorf("DetectTopic(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}

func TestContainsTrigger(t *testing.T) {
	tests := []struct {
		name     string
		prompt   string
		trigger  string
		expected bool
	}{
		{name: "exact match at start", prompt: "explain this topic", trigger: "explain", expected: true},
		{name: "exact match at end", prompt: "please explain", trigger: "explain", expected: true},
		{name: "partial word - should not match", prompt: "unexplained results", trigger: "explain", expected: false},
		{name: "partial word suffix - should not match", prompt: "explaining", trigger: "explain", expected: false},
		{name: "later occurrence matches", prompt: "asynchronous async", trigger: "async", expected: true},
		{name: "multi-word trigger", prompt: "walk me through it step by step", trigger: "step by step", expected: true},
		{name: "trigger with punctuation after", prompt: "why, though", trigger: "why", expected: true},
		{name: "no match", prompt: "hello world", trigger: "explain", expected: false},
		{name: "empty trigger", prompt: "hello", trigger: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := containsTrigger(tt.prompt, tt.trigger); got != tt.expected {
				t.Errorf("containsTrigger(%q, %q) = %v, want %v", tt.prompt, tt.trigger, got, tt.expected)
			}
		})
	}
}
