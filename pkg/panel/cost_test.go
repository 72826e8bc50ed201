package panel

import (
	"math"
	"testing"
	"time"

	"github.com/dheena017/multimind/pkg/adapter"
	"github.com/dheena017/multimind/pkg/config"
)

func TestEstimateCostAndTotals(t *testing.T) {
	pricing := config.PricingConfig{
		"openai": {
			"gpt-1": {
				PromptPer1K:     0.15,
				CompletionPer1K: 0.60,
			},
		},
	}

	usage := adapter.Usage{PromptTokens: 1000, CompletionTokens: 500}
	cost, ok := estimateCost(pricing, "openai", "gpt-1", usage)
	if !ok {
		t.Fatalf("expected pricing match")
	}
	want := 0.15 + 0.30
	if math.Abs(cost.Amount-want) > 1e-6 {
		t.Fatalf("cost amount mismatch: got %.4f want %.4f", cost.Amount, want)
	}

	tracker := newCostTracker(pricing, 0)
	for i := 0; i < 2; i++ {
		tracker.record(adapter.CallReport{
			Adapter: "openai",
			Model:   "gpt-1",
			Usage:   usage,
			Cost:    cost,
		})
	}
	tracker.record(adapter.CallReport{Adapter: "openai", Model: "gpt-1", Error: "boom"})

	report := tracker.report()
	if report.TotalUsage.PromptTokens != 2000 {
		t.Fatalf("expected prompt tokens to sum to 2000, got %d", report.TotalUsage.PromptTokens)
	}
	if math.Abs(report.TotalAmount-(want*2)) > 1e-6 {
		t.Fatalf("expected total cost %.4f, got %.4f", want*2, report.TotalAmount)
	}
	if len(report.Calls) != 3 {
		t.Fatalf("expected failed calls to be listed, got %d calls", len(report.Calls))
	}
	if report.Budget != nil {
		t.Fatalf("expected no budget status without a cap")
	}
}

func TestPricingDefaultEntry(t *testing.T) {
	pricing := config.PricingConfig{
		"deepseek": {"default": {PromptPer1K: 1, CompletionPer1K: 2}},
	}
	cost, ok := estimateCost(pricing, "deepseek", "deepseek-chat", adapter.Usage{PromptTokens: 500, CompletionTokens: 500})
	if !ok {
		t.Fatalf("expected default pricing match")
	}
	if math.Abs(cost.Amount-1.5) > 1e-9 {
		t.Fatalf("got %.4f want 1.5", cost.Amount)
	}
	if _, ok := estimateCost(pricing, "openai", "gpt-4o", adapter.Usage{}); ok {
		t.Fatalf("expected no pricing for unknown adapter")
	}
}

func TestNormalizeUsage(t *testing.T) {
	if got := normalizeUsage(nil); got != (adapter.Usage{}) {
		t.Fatalf("nil usage: got %+v", got)
	}
	got := normalizeUsage(&adapter.Usage{PromptTokens: 3, CompletionTokens: 4})
	if got.TotalTokens != 7 {
		t.Fatalf("expected total 7, got %d", got.TotalTokens)
	}
}

func TestComputeBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 500 * time.Millisecond},
		{10, 500 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := computeBackoff(100, 500, tt.attempt); got != tt.want {
			t.Errorf("computeBackoff(attempt=%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}
