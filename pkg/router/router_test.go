package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dheena017/multimind/pkg/config"
)

type fakeHistory struct {
	success  map[string]float64
	affinity map[string]float64
}

func (f fakeHistory) SuccessRate(provider string) float64 {
	if v, ok := f.success[provider]; ok {
		return v
	}
	return 0.5
}

func (f fakeHistory) TopicAffinity(topic, provider string) float64 {
	return f.affinity[topic+"/"+provider]
}

func TestRankTiesKeepInsertionOrder(t *testing.T) {
	r := NewRouter()
	members := []config.Member{
		{Adapter: "openai", Model: "a", Tier: config.TierBalanced, Quality: 0.8},
		{Adapter: "anthropic", Model: "b", Tier: config.TierBalanced, Quality: 0.8},
		{Adapter: "google", Model: "c", Tier: config.TierBalanced, Quality: 0.8},
	}
	c := Complexity{Level: LevelModerate}

	for i := 0; i < 10; i++ {
		ranked := r.Rank(members, c, TopicGeneral)
		require.Len(t, ranked, 3)
		assert.Equal(t, "a", ranked[0].Member.Model)
		assert.Equal(t, "b", ranked[1].Member.Model)
		assert.Equal(t, "c", ranked[2].Member.Model)
		assert.InDelta(t, ranked[0].Score, ranked[2].Score, 1e-12)
	}
}

func TestRankScoreComponents(t *testing.T) {
	r := NewRouter(WithHistory(fakeHistory{
		success:  map[string]float64{"openai": 1.0},
		affinity: map[string]float64{"coding/openai": 1.0},
	}))
	members := []config.Member{
		{Adapter: "openai", Model: "gpt-4o", Tier: config.TierFrontier, Quality: 0.9},
	}

	ranked := r.Rank(members, Complexity{Level: LevelExpert}, "coding")
	require.Len(t, ranked, 1)
	got := ranked[0]
	assert.InDelta(t, 1.0, got.Historical, 1e-9)
	assert.InDelta(t, 1.0, got.Alignment, 1e-9)
	assert.InDelta(t, 1.0, got.Diversity, 1e-9)
	assert.InDelta(t, 0.35+0.30+0.15+0.20*0.9, got.Score, 1e-9)
}

func TestRankNoHistoryUsesNeutralPrior(t *testing.T) {
	r := NewRouter()
	ranked := r.Rank([]config.Member{{Adapter: "xai", Model: "grok-3", Tier: config.TierFast, Quality: 0.5}},
		Complexity{Level: LevelSimple}, TopicGeneral)
	require.Len(t, ranked, 1)
	assert.InDelta(t, 0.35, ranked[0].Historical, 1e-9)
}

func TestRankDiversityPenalizesRepeatProvider(t *testing.T) {
	r := NewRouter()
	members := []config.Member{
		{Adapter: "openai", Model: "gpt-4o", Tier: config.TierBalanced, Quality: 0.8},
		{Adapter: "openai", Model: "gpt-4o-mini", Tier: config.TierBalanced, Quality: 0.8},
		{Adapter: "google", Model: "gemini-2.0-flash", Tier: config.TierBalanced, Quality: 0.8},
	}
	ranked := r.Rank(members, Complexity{Level: LevelModerate}, TopicGeneral)
	require.Len(t, ranked, 3)

	assert.Equal(t, "gpt-4o", ranked[0].Member.Model)
	assert.Equal(t, "gemini-2.0-flash", ranked[1].Member.Model)
	assert.Equal(t, "gpt-4o-mini", ranked[2].Member.Model)
	assert.InDelta(t, 0.5, ranked[2].Diversity, 1e-9)
}

func TestRankAlignmentFavorsTier(t *testing.T) {
	r := NewRouter()
	members := []config.Member{
		{Adapter: "a", Model: "fast", Tier: config.TierFast, Quality: 0.7},
		{Adapter: "b", Model: "frontier", Tier: config.TierFrontier, Quality: 0.7},
	}

	simple := r.Rank(members, Complexity{Level: LevelSimple}, TopicGeneral)
	assert.Equal(t, "fast", simple[0].Member.Model)

	expert := r.Rank(members, Complexity{Level: LevelExpert}, TopicGeneral)
	assert.Equal(t, "frontier", expert[0].Member.Model)
}

func TestAlignmentUnknownTier(t *testing.T) {
	assert.Equal(t, 0.5, Alignment(LevelSimple, "mystery"))
	assert.Equal(t, 1.0, Alignment(LevelComplex, config.TierFrontier))
}

func TestRouteSelectsTopKAndFiltersUnavailable(t *testing.T) {
	panel := config.DefaultPanelConfig()
	r := NewRouter()

	d := r.Route("hi", panel, map[string]bool{"openai": true, "anthropic": true, "google": true})
	assert.Equal(t, LevelSimple, d.Complexity.Level)
	assert.Len(t, d.Ranked, 6)
	assert.Len(t, d.Selected, 2)
	for _, s := range d.Ranked {
		assert.Contains(t, []string{"openai", "anthropic", "google"}, s.Member.Adapter)
	}

	all := r.Route("hi", panel, nil)
	assert.Len(t, all.Ranked, len(panel.Members))
}

func TestSelect(t *testing.T) {
	ranked := []Ranked{{Score: 3}, {Score: 2}, {Score: 1}}
	assert.Len(t, Select(ranked, 0), 3)
	assert.Len(t, Select(ranked, 2), 2)
	assert.Len(t, Select(ranked, 5), 3)
	assert.Empty(t, Select(nil, 2))
}
