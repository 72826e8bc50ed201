package panel

import (
	"fmt"
	"sync"

	"github.com/dheena017/multimind/pkg/adapter"
	"github.com/dheena017/multimind/pkg/config"
)

// BudgetStatus reports whether a query stayed within its spend cap.
type BudgetStatus struct {
	MaxAmount float64 `json:"max_amount"`
	Exceeded  bool    `json:"exceeded"`
	Reason    string  `json:"reason,omitempty"`
}

// CostReport totals usage and spend across every call made for one query.
type CostReport struct {
	Currency    string               `json:"currency"`
	TotalAmount float64              `json:"total_amount"`
	TotalUsage  adapter.Usage        `json:"total_usage"`
	Calls       []adapter.CallReport `json:"calls"`
	Budget      *BudgetStatus        `json:"budget,omitempty"`
}

// costTracker is shared by the concurrent calls of a single dispatch.
type costTracker struct {
	mu            sync.Mutex
	pricing       config.PricingConfig
	totalUsage    adapter.Usage
	totalAmount   float64
	currency      string
	calls         []adapter.CallReport
	maxBudgetUSD  float64
	budgetStatus  *BudgetStatus
	lastUsageHint *adapter.Usage
}

func newCostTracker(pricing config.PricingConfig, maxBudgetUSD float64) *costTracker {
	return &costTracker{
		pricing:      pricing,
		currency:     "USD",
		maxBudgetUSD: maxBudgetUSD,
	}
}

// checkBudget refuses a call once spend has reached the cap, or when the
// last observed usage priced for this model would push it over.
func (t *costTracker) checkBudget(adapterName, model string) error {
	if t == nil || t.maxBudgetUSD <= 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.budgetStatus == nil {
		t.budgetStatus = &BudgetStatus{MaxAmount: t.maxBudgetUSD}
	}
	if t.totalAmount >= t.maxBudgetUSD {
		reason := fmt.Sprintf("budget %.2f exceeded (current total %.2f)", t.maxBudgetUSD, t.totalAmount)
		t.budgetStatus.Exceeded = true
		t.budgetStatus.Reason = reason
		return fmt.Errorf("%s", reason)
	}
	if t.lastUsageHint == nil {
		return nil
	}

	cost, ok := estimateCost(t.pricing, adapterName, model, *t.lastUsageHint)
	if !ok {
		return nil
	}
	projected := t.totalAmount + cost.Amount
	if projected > t.maxBudgetUSD {
		reason := fmt.Sprintf("budget %.2f exceeded (projected total %.2f)", t.maxBudgetUSD, projected)
		t.budgetStatus.Exceeded = true
		t.budgetStatus.Reason = reason
		return fmt.Errorf("%s", reason)
	}
	return nil
}

func (t *costTracker) record(report adapter.CallReport) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.calls = append(t.calls, report)
	if report.Error != "" {
		return
	}
	t.totalAmount += report.Cost.Amount
	t.totalUsage = addUsage(t.totalUsage, report.Usage)
	usage := report.Usage
	t.lastUsageHint = &usage
}

func (t *costTracker) report() *CostReport {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.budgetStatus == nil && t.maxBudgetUSD > 0 {
		t.budgetStatus = &BudgetStatus{MaxAmount: t.maxBudgetUSD}
	}
	var budget *BudgetStatus
	if t.budgetStatus != nil {
		b := *t.budgetStatus
		budget = &b
	}
	return &CostReport{
		Currency:    t.currency,
		TotalAmount: t.totalAmount,
		TotalUsage:  t.totalUsage,
		Calls:       append([]adapter.CallReport(nil), t.calls...),
		Budget:      budget,
	}
}

func normalizeUsage(u *adapter.Usage) adapter.Usage {
	if u == nil {
		return adapter.Usage{}
	}
	usage := *u
	if usage.TotalTokens == 0 && (usage.PromptTokens > 0 || usage.CompletionTokens > 0) {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	return usage
}

func estimateCost(pricing config.PricingConfig, adapterName, model string, usage adapter.Usage) (adapter.Cost, bool) {
	entry, ok := pricingFor(pricing, adapterName, model)
	if !ok {
		return adapter.Cost{Currency: "USD"}, false
	}

	promptCost := (float64(usage.PromptTokens) / 1000.0) * entry.PromptPer1K
	completionCost := (float64(usage.CompletionTokens) / 1000.0) * entry.CompletionPer1K
	return adapter.Cost{
		Currency:     "USD",
		Amount:       promptCost + completionCost,
		IsEstimate:   true,
		PricingModel: "per_1k_tokens",
	}, true
}

func pricingFor(pricing config.PricingConfig, adapterName, model string) (config.ModelPricing, bool) {
	if pricing == nil {
		return config.ModelPricing{}, false
	}
	if adapterPricing, ok := pricing[adapterName]; ok {
		if entry, ok := adapterPricing[model]; ok {
			return entry, true
		}
		if entry, ok := adapterPricing["default"]; ok {
			return entry, true
		}
	}
	return config.ModelPricing{}, false
}

func addUsage(a adapter.Usage, b adapter.Usage) adapter.Usage {
	return adapter.Usage{
		PromptTokens:     a.PromptTokens + b.PromptTokens,
		CompletionTokens: a.CompletionTokens + b.CompletionTokens,
		TotalTokens:      a.TotalTokens + b.TotalTokens,
	}
}
