package router

import (
	"sort"

	"github.com/dheena017/multimind/pkg/config"
)

// History supplies the learned per-provider signals used for ranking.
type History interface {
	SuccessRate(provider string) float64
	TopicAffinity(topic, provider string) float64
}

// Weights blend the ranking signals.
type Weights struct {
	Historical float64
	Alignment  float64
	Diversity  float64
	Quality    float64
}

// DefaultWeights returns the standard blend.
func DefaultWeights() Weights {
	return Weights{Historical: 0.35, Alignment: 0.30, Diversity: 0.15, Quality: 0.20}
}

// alignment scores how well a model tier suits a complexity level.
var alignment = map[Level]map[string]float64{
	LevelSimple:   {config.TierFast: 1.0, config.TierBalanced: 0.8, config.TierFrontier: 0.6},
	LevelModerate: {config.TierFast: 0.7, config.TierBalanced: 1.0, config.TierFrontier: 0.8},
	LevelComplex:  {config.TierFast: 0.4, config.TierBalanced: 0.8, config.TierFrontier: 1.0},
	LevelExpert:   {config.TierFast: 0.2, config.TierBalanced: 0.6, config.TierFrontier: 1.0},
}

// Alignment returns the table entry for a level and tier, or 0.5 for tiers
// the table does not know.
func Alignment(level Level, tier string) float64 {
	if row, ok := alignment[level]; ok {
		if v, ok := row[tier]; ok {
			return v
		}
	}
	return 0.5
}

// Ranked is a panel member with its blended score and the parts it came from.
type Ranked struct {
	Member     config.Member `json:"member"`
	Score      float64       `json:"score"`
	Historical float64       `json:"historical"`
	Alignment  float64       `json:"alignment"`
	Diversity  float64       `json:"diversity"`
	Quality    float64       `json:"quality"`
}

// Decision captures everything the router decided for one query.
type Decision struct {
	Complexity Complexity `json:"complexity"`
	Topic      string     `json:"topic"`
	Ranked     []Ranked   `json:"ranked"`
	Selected   []Ranked   `json:"selected"`
}

// ModelRouter ranks provider/model pairs for a query.
type ModelRouter struct {
	history    History
	weights    Weights
	classifier *ComplexityClassifier
}

// RouterOption configures a ModelRouter.
type RouterOption func(*ModelRouter)

// WithHistory sets the source of learned provider statistics.
func WithHistory(h History) RouterOption {
	return func(r *ModelRouter) {
		r.history = h
	}
}

// WithWeights overrides the ranking blend.
func WithWeights(w Weights) RouterOption {
	return func(r *ModelRouter) {
		r.weights = w
	}
}

// NewRouter creates a router.
func NewRouter(opts ...RouterOption) *ModelRouter {
	r := &ModelRouter{
		weights:    DefaultWeights(),
		classifier: NewComplexityClassifier(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank scores every member. Members with equal scores keep their input order.
func (r *ModelRouter) Rank(members []config.Member, c Complexity, topic string) []Ranked {
	seenProvider := make(map[string]bool, len(members))
	ranked := make([]Ranked, 0, len(members))

	for _, m := range members {
		diversity := 1.0
		if seenProvider[m.Adapter] {
			diversity = 0.5
		}
		seenProvider[m.Adapter] = true

		hist := r.historical(m.Adapter, topic)
		align := Alignment(c.Level, m.Tier)
		score := r.weights.Historical*hist +
			r.weights.Alignment*align +
			r.weights.Diversity*diversity +
			r.weights.Quality*m.Quality

		ranked = append(ranked, Ranked{
			Member:     m,
			Score:      score,
			Historical: hist,
			Alignment:  align,
			Diversity:  diversity,
			Quality:    m.Quality,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// Route classifies the query and picks the panel members that should answer
// it. available filters members to adapters that can actually be called; a
// nil map allows every member.
func (r *ModelRouter) Route(query string, panel *config.PanelConfig, available map[string]bool) *Decision {
	c := r.classifier.Classify(query)
	topic := DetectTopic(query)

	var members []config.Member
	if panel != nil {
		for _, m := range panel.Members {
			if available == nil || available[m.Adapter] {
				members = append(members, m)
			}
		}
	}

	ranked := r.Rank(members, c, topic)
	return &Decision{
		Complexity: c,
		Topic:      topic,
		Ranked:     ranked,
		Selected:   Select(ranked, panel.MaxModelsFor(string(c.Level))),
	}
}

// Select keeps the top k ranked members. k <= 0 keeps all of them.
func Select(ranked []Ranked, k int) []Ranked {
	if k <= 0 || k >= len(ranked) {
		return ranked
	}
	return ranked[:k]
}

func (r *ModelRouter) historical(provider, topic string) float64 {
	if r.history == nil {
		return 0.7 * 0.5
	}
	return 0.7*r.history.SuccessRate(provider) + 0.3*r.history.TopicAffinity(topic, provider)
}
