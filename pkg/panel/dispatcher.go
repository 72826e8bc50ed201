// Package panel fans a prompt out to the selected provider/model pairs and
// collects their replies.
package panel

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/dheena017/multimind/pkg/adapter"
	"github.com/dheena017/multimind/pkg/config"
)

// Reply is the outcome of calling one panel member. Adapter and Model name
// the target that actually answered, which differs from Member when a
// fallback was used.
type Reply struct {
	Member   config.Member        `json:"member"`
	Adapter  string               `json:"adapter"`
	Model    string               `json:"model"`
	Response *adapter.Response    `json:"response,omitempty"`
	Err      error                `json:"-"`
	Latency  time.Duration        `json:"latency"`
	Reports  []adapter.CallReport `json:"reports"`
}

// OK reports whether the member produced a response.
func (r Reply) OK() bool {
	return r.Err == nil && r.Response != nil
}

// Result holds the replies in the order members were given, plus the cost
// of the whole fan-out.
type Result struct {
	Replies []Reply     `json:"replies"`
	Cost    *CostReport `json:"cost"`
}

// Dispatcher calls panel members concurrently, honoring per-provider rate
// limits, retries, fallbacks and an optional spend cap.
type Dispatcher struct {
	adapters  map[string]adapter.Adapter
	logger    *zap.Logger
	maxBudget float64

	mu       sync.RWMutex
	panel    *config.PanelConfig
	limiters map[string]*rate.Limiter
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithBudget caps estimated spend per dispatch in USD. Zero disables the cap.
func WithBudget(maxUSD float64) Option {
	return func(d *Dispatcher) {
		d.maxBudget = maxUSD
	}
}

// NewDispatcher creates a dispatcher over the given adapters.
func NewDispatcher(adapters map[string]adapter.Adapter, panel *config.PanelConfig, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		adapters: adapters,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.SetPanel(panel)
	return d
}

// SetPanel swaps the panel configuration used by later dispatches. A nil
// panel selects the default panel.
func (d *Dispatcher) SetPanel(panel *config.PanelConfig) {
	if panel == nil {
		panel = config.DefaultPanelConfig()
	}
	limiters := make(map[string]*rate.Limiter, len(panel.RateLimits))
	for provider, rl := range panel.RateLimits {
		if rl.RequestsPerSecond <= 0 {
			continue
		}
		burst := rl.Burst
		if burst <= 0 {
			burst = int(math.Max(1, math.Ceil(rl.RequestsPerSecond)))
		}
		limiters[provider] = rate.NewLimiter(rate.Limit(rl.RequestsPerSecond), burst)
	}

	d.mu.Lock()
	d.panel = panel
	d.limiters = limiters
	d.mu.Unlock()
}

// Panel returns the active panel configuration.
func (d *Dispatcher) Panel() *config.PanelConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.panel
}

// Available reports which adapters the dispatcher can call.
func (d *Dispatcher) Available() map[string]bool {
	out := make(map[string]bool, len(d.adapters))
	for name := range d.adapters {
		out[name] = true
	}
	return out
}

// Dispatch sends prompt to every member concurrently and waits for all of
// them. Provider failures are reported per reply; the returned error is only
// set when ctx ends before the fan-out completes.
func (d *Dispatcher) Dispatch(ctx context.Context, members []config.Member, prompt string) (*Result, error) {
	panel := d.Panel()
	tracker := newCostTracker(panel.Pricing, d.maxBudget)
	replies := make([]Reply, len(members))

	var g errgroup.Group
	g.SetLimit(max(panel.Concurrency, 1))
	for i, m := range members {
		g.Go(func() error {
			replies[i] = d.callMember(ctx, panel, m, prompt, tracker)
			return nil
		})
	}
	_ = g.Wait()

	return &Result{Replies: replies, Cost: tracker.report()}, ctx.Err()
}

func (d *Dispatcher) callMember(ctx context.Context, panel *config.PanelConfig, m config.Member, prompt string, tracker *costTracker) Reply {
	callCtx := ctx
	if panel.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, time.Duration(panel.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	start := time.Now()
	resp, reports, err := d.callWithPolicy(callCtx, panel, m, prompt, tracker)
	reply := Reply{
		Member:   m,
		Adapter:  m.Adapter,
		Model:    m.Model,
		Response: resp,
		Err:      err,
		Latency:  time.Since(start),
		Reports:  reports,
	}
	if n := len(reports); n > 0 && err == nil {
		reply.Adapter = reports[n-1].Adapter
		reply.Model = reports[n-1].Model
	}

	if err != nil {
		d.logger.Warn("provider call failed",
			zap.String("provider", m.Adapter),
			zap.String("model", m.Model),
			zap.Duration("latency", reply.Latency),
			zap.Error(err))
	} else {
		d.logger.Debug("provider call succeeded",
			zap.String("provider", reply.Adapter),
			zap.String("model", reply.Model),
			zap.Duration("latency", reply.Latency))
	}
	return reply
}

func (d *Dispatcher) waitRate(ctx context.Context, provider string) error {
	d.mu.RLock()
	lim := d.limiters[provider]
	d.mu.RUnlock()
	if lim == nil {
		return nil
	}
	return lim.Wait(ctx)
}
