package adapter

import (
	"time"

	"github.com/google/uuid"
)

// Usage captures normalized token usage.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Cost captures normalized cost estimates.
type Cost struct {
	Currency     string  `json:"currency"`
	Amount       float64 `json:"amount"`
	IsEstimate   bool    `json:"is_estimate"`
	PricingModel string  `json:"pricing_model,omitempty"`
}

// CallReport captures adapter call metadata.
type CallReport struct {
	Adapter      string `json:"adapter"`
	Model        string `json:"model"`
	Usage        Usage  `json:"usage"`
	Cost         Cost   `json:"cost"`
	Retries      int    `json:"retries"`
	FallbackUsed bool   `json:"fallback_used"`
	Error        string `json:"error,omitempty"`
}

// Response is a single provider reply, normalized across SDKs.
type Response struct {
	ID           string    `json:"id"`
	Content      string    `json:"content"`
	Adapter      string    `json:"adapter"`
	Model        string    `json:"model"`
	FinishReason string    `json:"finish_reason,omitempty"`
	Usage        *Usage    `json:"usage,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewResponse builds a Response stamped with a fresh ID and the current time.
func NewResponse(content, adapterName, model string) *Response {
	return &Response{
		ID:        uuid.NewString(),
		Content:   content,
		Adapter:   adapterName,
		Model:     model,
		CreatedAt: time.Now().UTC(),
	}
}

// WithUsage attaches token usage, filling in the total when a provider
// omits it.
func (r *Response) WithUsage(prompt, completion, total int) *Response {
	if total == 0 {
		total = prompt + completion
	}
	r.Usage = &Usage{PromptTokens: prompt, CompletionTokens: completion, TotalTokens: total}
	return r
}
