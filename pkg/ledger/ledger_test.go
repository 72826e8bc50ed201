package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func outcome(topic, winner string, calls ...Call) Outcome {
	return Outcome{
		Query:          "q about " + topic,
		Topic:          topic,
		Complexity:     "moderate",
		Winner:         winner,
		WinnerModel:    "m",
		Confidence:     0.7,
		ConsensusLevel: "strong",
		Summary:        "an answer",
		Calls:          calls,
	}
}

func TestSuccessRatePrior(t *testing.T) {
	l := New()
	assert.Equal(t, 0.5, l.SuccessRate("openai"))
	assert.Equal(t, 0.0, l.TopicAffinity("coding", "openai"))
	_, ok := l.BestProvider("coding")
	assert.False(t, ok)
}

func TestRecordUpdatesStats(t *testing.T) {
	l := New()
	l.Record(outcome("coding", "openai",
		Call{Provider: "openai", Success: true, Words: 100},
		Call{Provider: "google", Success: false},
	))
	l.Record(outcome("coding", "openai",
		Call{Provider: "openai", Success: true, Words: 200},
		Call{Provider: "google", Success: true, Words: 50},
	))
	l.Record(outcome("coding", "google",
		Call{Provider: "google", Success: true, Words: 70},
	))

	assert.Equal(t, 1.0, l.SuccessRate("openai"))
	assert.InDelta(t, 2.0/3.0, l.SuccessRate("google"), 1e-9)
	assert.InDelta(t, 2.0/3.0, l.TopicAffinity("coding", "openai"), 1e-9)
	assert.InDelta(t, 1.0/3.0, l.TopicAffinity("coding", "google"), 1e-9)

	best, ok := l.BestProvider("coding")
	require.True(t, ok)
	assert.Equal(t, "openai", best)

	stats := l.Stats()
	assert.Equal(t, 3, stats.Queries)
	assert.Equal(t, 3, stats.HistorySize)
	assert.InDelta(t, 150.0, stats.Providers["openai"].AvgLength, 1e-9)
	assert.InDelta(t, 60.0, stats.Providers["google"].AvgLength, 1e-9)
	assert.Equal(t, ProviderStats{Success: 2, Total: 3, AvgLength: 60}, stats.Providers["google"])
	assert.Equal(t, "openai", stats.BestByTopic["coding"])
	assert.Equal(t, []string{"coding"}, l.Topics())

	k := l.Knowledge("coding")
	require.Len(t, k, 3)
	assert.Equal(t, "openai/m", k[0].Source)
}

func TestBestProviderTieIsAlphabetical(t *testing.T) {
	l := New()
	l.Record(outcome("math", "xai"))
	l.Record(outcome("math", "anthropic"))
	best, ok := l.BestProvider("math")
	require.True(t, ok)
	assert.Equal(t, "anthropic", best)
}

func TestNoWinnerRecordsNoHit(t *testing.T) {
	l := New()
	l.Record(outcome("health", "", Call{Provider: "openai", Success: false}))

	assert.Equal(t, 0.0, l.SuccessRate("openai"))
	assert.Empty(t, l.Knowledge("health"))
	_, ok := l.BestProvider("health")
	assert.False(t, ok)
	assert.Len(t, l.History(0), 1)
}

func TestHistoryAndKnowledgeCaps(t *testing.T) {
	l := New()
	for i := 0; i < HistoryCap+50; i++ {
		o := outcome("coding", "openai", Call{Provider: "openai", Success: true, Words: 10})
		o.Query = fmt.Sprintf("q%d", i)
		l.Record(o)
	}

	h := l.History(0)
	require.Len(t, h, HistoryCap)
	assert.Equal(t, "q50", h[0].Query)
	assert.Equal(t, fmt.Sprintf("q%d", HistoryCap+49), h[len(h)-1].Query)

	recent := l.History(5)
	require.Len(t, recent, 5)
	assert.Equal(t, h[len(h)-1].ID, recent[4].ID)

	k := l.Knowledge("coding")
	require.Len(t, k, KnowledgeCap)
	assert.Equal(t, fmt.Sprintf("q%d", HistoryCap+50-KnowledgeCap), k[0].Query)

	assert.Equal(t, HistoryCap+50, l.Stats().Queries)
}

func TestExportImportRoundTrip(t *testing.T) {
	src := New()
	src.Record(outcome("coding", "openai",
		Call{Provider: "openai", Success: true, Words: 120},
		Call{Provider: "anthropic", Success: false},
	))
	src.Record(outcome("math", "anthropic",
		Call{Provider: "anthropic", Success: true, Words: 33},
	))

	data, err := src.Export()
	require.NoError(t, err)

	dst := New()
	require.NoError(t, dst.Import(data))

	want, got := src.Snapshot(), dst.Snapshot()
	assert.Equal(t, want.Topics, got.Topics)
	assert.Equal(t, want.Providers, got.Providers)
	assert.Equal(t, want.Queries, got.Queries)
	assert.Len(t, got.History, 2)
	assert.Equal(t, want.History[1].ID, got.History[1].ID)
	assert.Equal(t, src.SuccessRate("anthropic"), dst.SuccessRate("anthropic"))
}

func TestImportRejectsUnknownVersion(t *testing.T) {
	l := New()
	l.Record(outcome("coding", "openai"))

	err := l.Import([]byte(`{"version": 2}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported ledger version")
	// state untouched on rejection
	assert.Equal(t, 1, l.Stats().Queries)

	assert.Error(t, l.Import([]byte(`not json`)))
}

func TestImportRejectsInconsistentStats(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "success above total", data: `{"version":1,"providers":{"openai":{"success":9,"total":3}}}`},
		{name: "negative success", data: `{"version":1,"providers":{"openai":{"success":-1,"total":3}}}`},
		{name: "negative total", data: `{"version":1,"providers":{"openai":{"success":0,"total":-2}}}`},
		{name: "negative topic hits", data: `{"version":1,"topics":{"coding":{"openai":-4,"google":2}}}`},
		{name: "negative queries", data: `{"version":1,"queries":-1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New()
			l.Record(outcome("coding", "anthropic", Call{Provider: "anthropic", Success: true, Words: 10}))

			err := l.Import([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid ledger")

			assert.Equal(t, 1, l.Stats().Queries)
			rate := l.SuccessRate("openai")
			assert.GreaterOrEqual(t, rate, 0.0)
			assert.LessOrEqual(t, rate, 1.0)
			assert.Equal(t, 1.0, l.TopicAffinity("coding", "anthropic"))
		})
	}
}

func TestImportReappliesCaps(t *testing.T) {
	snap := Snapshot{Version: Version, Knowledge: map[string][]Knowledge{}}
	for i := 0; i < HistoryCap+10; i++ {
		snap.History = append(snap.History, Entry{ID: fmt.Sprint(i)})
	}
	for i := 0; i < KnowledgeCap+5; i++ {
		snap.Knowledge["coding"] = append(snap.Knowledge["coding"], Knowledge{Query: fmt.Sprint(i)})
	}

	encoded, err := json.Marshal(snap)
	require.NoError(t, err)

	l := New()
	require.NoError(t, l.Import(encoded))
	assert.Len(t, l.History(0), HistoryCap)
	assert.Equal(t, "10", l.History(0)[0].ID)
	assert.Len(t, l.Knowledge("coding"), KnowledgeCap)
}

func TestReset(t *testing.T) {
	l := New()
	l.Record(outcome("coding", "openai", Call{Provider: "openai", Success: true, Words: 5}))
	l.Reset()

	stats := l.Stats()
	assert.Zero(t, stats.Queries)
	assert.Zero(t, stats.HistorySize)
	assert.Empty(t, stats.Providers)
	assert.Equal(t, 0.5, l.SuccessRate("openai"))
	assert.Empty(t, l.Topics())
}

func TestSaveLoadAndOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.json")

	fresh, err := Open(path)
	require.NoError(t, err)
	assert.Zero(t, fresh.Stats().Queries)

	fresh.Record(outcome("science", "google", Call{Provider: "google", Success: true, Words: 40}))
	require.NoError(t, fresh.Save(path))

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, fresh.Snapshot().Topics, reopened.Snapshot().Topics)
	assert.Equal(t, fresh.Snapshot().Providers, reopened.Snapshot().Providers)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")

	require.NoError(t, os.WriteFile(path, []byte(`{"version": 9}`), 0644))
	_, err = Open(path)
	assert.Error(t, err)
}

func TestConcurrentRecord(t *testing.T) {
	l := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				l.Record(outcome("coding", "openai", Call{Provider: "openai", Success: true, Words: 10}))
				_ = l.SuccessRate("openai")
				_ = l.Stats()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 500, l.Stats().Queries)
	assert.Equal(t, 500, l.Snapshot().Providers["openai"].Total)
	assert.Len(t, l.History(0), HistoryCap)
}
