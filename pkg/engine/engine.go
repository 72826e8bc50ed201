// Package engine runs a query end to end: route it to a panel of models,
// fan it out, synthesize the replies and record what was learned.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dheena017/multimind/pkg/config"
	"github.com/dheena017/multimind/pkg/history"
	"github.com/dheena017/multimind/pkg/ledger"
	"github.com/dheena017/multimind/pkg/panel"
	"github.com/dheena017/multimind/pkg/router"
	"github.com/dheena017/multimind/pkg/synthesis"
)

var (
	// ErrEmptyQuery is returned for a blank query.
	ErrEmptyQuery = errors.New("query is empty")
	// ErrNoProviders is returned when no panel member has a configured adapter.
	ErrNoProviders = errors.New("no configured provider can answer; set at least one API key")
)

// Answer is everything produced for one query.
type Answer struct {
	Decision  *router.Decision          `json:"decision"`
	Result    synthesis.SynthesisResult `json:"result"`
	Markdown  string                    `json:"markdown"`
	Metadata  synthesis.Metadata        `json:"metadata"`
	Cost      *panel.CostReport         `json:"cost,omitempty"`
	HistoryID string                    `json:"history_id,omitempty"`
	Elapsed   time.Duration             `json:"elapsed"`
}

// Engine wires the router, dispatcher, synthesizer and ledger together.
type Engine struct {
	dispatcher   *panel.Dispatcher
	router       *router.ModelRouter
	synthesizer  *synthesis.Synthesizer
	ledger       *ledger.Ledger
	history      *history.Store
	autosavePath string
	logger       *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLedger uses an existing ledger instead of an empty one.
func WithLedger(l *ledger.Ledger) Option {
	return func(e *Engine) {
		if l != nil {
			e.ledger = l
		}
	}
}

// WithHistory saves every answer to the store.
func WithHistory(s *history.Store) Option {
	return func(e *Engine) {
		e.history = s
	}
}

// WithAutosave writes the ledger to path after every query.
func WithAutosave(path string) Option {
	return func(e *Engine) {
		e.autosavePath = path
	}
}

// New creates an engine around a dispatcher.
func New(dispatcher *panel.Dispatcher, opts ...Option) *Engine {
	e := &Engine{
		dispatcher:  dispatcher,
		synthesizer: synthesis.NewSynthesizer(),
		ledger:      ledger.New(),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.router = router.NewRouter(router.WithHistory(e.ledger))
	return e
}

// Ledger returns the engine's ledger.
func (e *Engine) Ledger() *ledger.Ledger {
	return e.ledger
}

// History returns the history store, or nil when none is configured.
func (e *Engine) History() *history.Store {
	return e.history
}

// Panel returns the active panel configuration.
func (e *Engine) Panel() *config.PanelConfig {
	return e.dispatcher.Panel()
}

// Available reports which providers have a configured adapter.
func (e *Engine) Available() map[string]bool {
	return e.dispatcher.Available()
}

// SetPanel swaps the panel used by later queries. A nil panel selects the
// default panel.
func (e *Engine) SetPanel(p *config.PanelConfig) {
	e.dispatcher.SetPanel(p)
	e.logger.Info("panel updated", zap.Int("members", len(e.dispatcher.Panel().Members)))
}

// Route returns the routing decision for query without calling any provider.
func (e *Engine) Route(query string) *router.Decision {
	return e.router.Route(query, e.dispatcher.Panel(), e.dispatcher.Available())
}

// Ask answers query with the routed panel. Provider failures degrade the
// answer rather than failing the call; an error is returned only for an
// empty query, an unusable panel or a canceled context.
func (e *Engine) Ask(ctx context.Context, query string) (*Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	start := time.Now()

	decision := e.Route(query)
	if len(decision.Selected) == 0 {
		return nil, ErrNoProviders
	}
	members := make([]config.Member, len(decision.Selected))
	for i, r := range decision.Selected {
		members[i] = r.Member
	}

	e.logger.Debug("routed query",
		zap.String("topic", decision.Topic),
		zap.String("complexity", string(decision.Complexity.Level)),
		zap.Float64("complexity_score", decision.Complexity.Score),
		zap.Strings("members", memberKeys(members)))

	dispatched, err := e.dispatcher.Dispatch(ctx, members, query)
	if err != nil {
		return nil, fmt.Errorf("dispatching query: %w", err)
	}

	result := e.synthesizer.Synthesize(query, rawResponses(dispatched.Replies))
	markdown, meta := synthesis.Report(result, decision.Complexity)

	e.learn(decision, result)

	answer := &Answer{
		Decision: decision,
		Result:   result,
		Markdown: markdown,
		Metadata: meta,
		Cost:     dispatched.Cost,
	}
	if e.history != nil {
		id, err := e.history.Save(ctx, history.Record{
			Query:           query,
			Topic:           decision.Topic,
			Complexity:      string(decision.Complexity.Level),
			ComplexityScore: decision.Complexity.Score,
			PrimarySource:   result.PrimarySource,
			Confidence:      result.Confidence,
			ConsensusLevel:  string(result.ConsensusLevel),
			Result:          &result,
		})
		if err != nil {
			e.logger.Warn("saving history failed", zap.Error(err))
		}
		answer.HistoryID = id
	}
	answer.Elapsed = time.Since(start)

	e.logger.Info("query synthesized",
		zap.String("topic", decision.Topic),
		zap.String("primary", result.PrimarySource),
		zap.Float64("confidence", result.Confidence),
		zap.String("consensus", string(result.ConsensusLevel)),
		zap.Duration("elapsed", answer.Elapsed))
	return answer, nil
}

func (e *Engine) learn(decision *router.Decision, result synthesis.SynthesisResult) {
	outcome := ledger.Outcome{
		Query:          result.Query,
		Topic:          decision.Topic,
		Complexity:     string(decision.Complexity.Level),
		Confidence:     result.Confidence,
		ConsensusLevel: string(result.ConsensusLevel),
		Calls:          make([]ledger.Call, 0, len(result.Responses)),
	}
	if result.PrimarySource != "" {
		outcome.Winner, outcome.WinnerModel, _ = strings.Cut(result.PrimarySource, "/")
		outcome.Summary = result.Primary
	}
	for _, r := range result.Responses {
		outcome.Calls = append(outcome.Calls, ledger.Call{
			Provider: r.Provider,
			Model:    r.Model,
			Success:  r.Success,
			Words:    r.Quality.Words,
		})
	}
	e.ledger.Record(outcome)

	if err := e.SaveLedger(); err != nil {
		e.logger.Warn("ledger autosave failed", zap.String("path", e.autosavePath), zap.Error(err))
	}
}

// SaveLedger writes the ledger to the autosave path. It is a no-op when
// autosave is off.
func (e *Engine) SaveLedger() error {
	if e.autosavePath == "" {
		return nil
	}
	return e.ledger.Save(e.autosavePath)
}

func rawResponses(replies []panel.Reply) []synthesis.RawResponse {
	raw := make([]synthesis.RawResponse, len(replies))
	for i, r := range replies {
		raw[i] = synthesis.RawResponse{
			Provider: r.Adapter,
			Model:    r.Model,
			Success:  r.OK(),
			Latency:  r.Latency,
		}
		switch {
		case r.OK():
			raw[i].Content = r.Response.Content
		case r.Err != nil:
			raw[i].Error = r.Err.Error()
		}
	}
	return raw
}

func memberKeys(members []config.Member) []string {
	keys := make([]string, len(members))
	for i, m := range members {
		keys[i] = m.Key()
	}
	return keys
}
