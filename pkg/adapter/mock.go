package adapter

import (
	"context"
	"fmt"
	"sync"
)

// MockAdapter returns deterministic responses for local runs and tests.
type MockAdapter struct {
	name            string
	models          []string
	responses       map[string]string
	defaultResponse string
	err             error
	Usage           *Usage

	mu    sync.Mutex
	calls int
}

// NewMockAdapter creates a mock adapter with a default response.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		name:            "mock",
		models:          []string{"mock-1"},
		responses:       make(map[string]string),
		defaultResponse: "mock response:",
	}
}

// NewMockAdapterWithResponses creates a mock adapter with predefined responses.
func NewMockAdapterWithResponses(responses map[string]string, defaultResponse string) *MockAdapter {
	m := NewMockAdapter()
	if defaultResponse != "" {
		m.defaultResponse = defaultResponse
	}
	if responses != nil {
		m.responses = responses
	}
	return m
}

// NewStaticAdapter creates a named mock that answers every prompt with the
// same content, or fails with err when err is non-nil.
func NewStaticAdapter(name, model, content string, err error) *MockAdapter {
	m := NewMockAdapter()
	m.name = name
	m.models = []string{model}
	m.defaultResponse = content
	m.err = err
	return m
}

// Name returns the adapter identifier.
func (a *MockAdapter) Name() string {
	return a.name
}

// Models returns the list of supported mock models.
func (a *MockAdapter) Models() []string {
	return a.models
}

// Calls reports how many times Generate ran.
func (a *MockAdapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// Generate returns a deterministic reply for the prompt.
func (a *MockAdapter) Generate(_ context.Context, model string, prompt string) (*Response, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()

	if a.err != nil {
		return nil, a.err
	}
	if model == "" && len(a.models) > 0 {
		model = a.models[0]
	}

	var content string
	if response, ok := a.responses[prompt]; ok {
		content = response
	} else if a.name == "mock" {
		content = fmt.Sprintf("%s\n%s", a.defaultResponse, prompt)
	} else {
		content = a.defaultResponse
	}

	resp := NewResponse(content, a.name, model)
	if a.Usage != nil {
		usage := *a.Usage
		resp.Usage = &usage
	}
	return resp, nil
}
