package panel

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dheena017/multimind/pkg/adapter"
	"github.com/dheena017/multimind/pkg/config"
)

type callTarget struct {
	Adapter string
	Model   string
}

// callWithPolicy calls one panel member, retrying transient failures with
// exponential backoff and walking the fallback chain when the member keeps
// failing. Every attempt that ends a target produces a CallReport.
func (d *Dispatcher) callWithPolicy(
	ctx context.Context,
	panel *config.PanelConfig,
	member config.Member,
	prompt string,
	tracker *costTracker,
) (*adapter.Response, []adapter.CallReport, error) {
	targets := buildTargets(member.Adapter, member.Model, panel)
	retryCfg := retrySettings(panel)
	var reports []adapter.CallReport
	var lastErr error

	for idx, target := range targets {
		adapterImpl, ok := d.adapters[target.Adapter]
		if !ok {
			lastErr = fmt.Errorf("adapter %s not configured", target.Adapter)
			reports = append(reports, failedReport(target, 0, idx > 0, lastErr))
			continue
		}

		for attempt := 0; attempt <= retryCfg.MaxRetries; attempt++ {
			if err := tracker.checkBudget(target.Adapter, target.Model); err != nil {
				return nil, reports, err
			}
			if err := d.waitRate(ctx, target.Adapter); err != nil {
				return nil, reports, err
			}

			resp, err := adapterImpl.Generate(ctx, target.Model, prompt)
			if err == nil {
				usage := normalizeUsage(resp.Usage)
				cost, _ := estimateCost(panel.Pricing, target.Adapter, target.Model, usage)
				report := adapter.CallReport{
					Adapter:      target.Adapter,
					Model:        target.Model,
					Usage:        usage,
					Cost:         cost,
					Retries:      attempt,
					FallbackUsed: idx > 0,
				}
				tracker.record(report)
				return resp, append(reports, report), nil
			}

			lastErr = err
			if !adapter.IsTransient(err) || attempt == retryCfg.MaxRetries {
				report := failedReport(target, attempt, idx > 0, err)
				tracker.record(report)
				reports = append(reports, report)
				break
			}

			backoff := computeBackoff(retryCfg.BaseBackoffMs, retryCfg.MaxBackoffMs, attempt)
			d.logger.Debug("retrying provider call",
				zap.String("provider", target.Adapter),
				zap.String("model", target.Model),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
				zap.Error(err))
			if err := sleepWithContext(ctx, backoff); err != nil {
				return nil, reports, err
			}
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider call failed")
	}
	return nil, reports, lastErr
}

func failedReport(target callTarget, attempt int, fallback bool, err error) adapter.CallReport {
	return adapter.CallReport{
		Adapter:      target.Adapter,
		Model:        target.Model,
		Cost:         adapter.Cost{Currency: "USD"},
		Retries:      attempt,
		FallbackUsed: fallback,
		Error:        err.Error(),
	}
}

func buildTargets(adapterName, model string, cfg *config.PanelConfig) []callTarget {
	targets := []callTarget{{Adapter: adapterName, Model: model}}
	if cfg == nil || !cfg.Fallback.AllowFallback {
		return targets
	}
	for _, entry := range resolveFallbackChain(cfg, adapterName, model) {
		targets = append(targets, callTarget{Adapter: entry.Adapter, Model: entry.Model})
	}
	return targets
}

func resolveFallbackChain(cfg *config.PanelConfig, adapterName, model string) []config.RouteTarget {
	if cfg == nil || cfg.Fallback.FallbackChain == nil {
		return nil
	}
	if chain, ok := cfg.Fallback.FallbackChain[adapterName+"/"+model]; ok {
		return chain
	}
	if chain, ok := cfg.Fallback.FallbackChain[adapterName]; ok {
		return chain
	}
	return nil
}

func retrySettings(cfg *config.PanelConfig) config.RetryConfig {
	if cfg == nil {
		return config.RetryConfig{MaxRetries: 2, BaseBackoffMs: 200, MaxBackoffMs: 2000}
	}
	return cfg.Retry
}

func computeBackoff(baseMs, maxMs, attempt int) time.Duration {
	backoff := time.Duration(baseMs) * time.Millisecond
	ceiling := time.Duration(maxMs) * time.Millisecond
	for i := 0; i < attempt; i++ {
		backoff *= 2
		if backoff >= ceiling {
			return ceiling
		}
	}
	if backoff > ceiling {
		return ceiling
	}
	return backoff
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
