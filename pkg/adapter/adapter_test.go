package adapter

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "deadline", err: fmt.Errorf("call: %w", context.DeadlineExceeded), want: true},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "rate limited", err: &AdapterError{Provider: "openai", Status: 429, Err: errors.New("slow down")}, want: true},
		{name: "server error", err: &AdapterError{Provider: "xai", Status: 503, Err: errors.New("unavailable")}, want: true},
		{name: "bad request", err: &AdapterError{Provider: "google", Status: 400, Err: errors.New("bad")}, want: false},
		{name: "temporary flag", err: &AdapterError{Temporary: true}, want: true},
		{name: "plain", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestStatusErrorWrapsProvider(t *testing.T) {
	base := errors.New("quota")
	err := statusError("together", 429, base)

	var adapterErr *AdapterError
	require.ErrorAs(t, err, &adapterErr)
	assert.Equal(t, 429, adapterErr.Status)
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "together")

	plain := statusError("together", 0, base)
	assert.False(t, errors.As(plain, &adapterErr))
	assert.ErrorIs(t, plain, base)
}

func TestMockAdapter(t *testing.T) {
	m := NewMockAdapterWithResponses(map[string]string{"hi": "hello"}, "")

	resp, err := m.Generate(context.Background(), "", "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, "mock-1", resp.Model)
	assert.NotEmpty(t, resp.ID)

	resp, err = m.Generate(context.Background(), "mock-1", "other")
	require.NoError(t, err)
	assert.Equal(t, "mock response:\nother", resp.Content)
	assert.Equal(t, 2, m.Calls())
}

func TestStaticAdapter(t *testing.T) {
	ok := NewStaticAdapter("alpha", "a-1", "fixed answer", nil)
	resp, err := ok.Generate(context.Background(), "a-1", "anything")
	require.NoError(t, err)
	assert.Equal(t, "fixed answer", resp.Content)
	assert.Equal(t, "alpha", resp.Adapter)

	failing := NewStaticAdapter("beta", "b-1", "", errors.New("down"))
	_, err = failing.Generate(context.Background(), "b-1", "anything")
	assert.EqualError(t, err, "down")
}

func TestWithUsageFillsTotal(t *testing.T) {
	resp := NewResponse("x", "openai", "gpt-4o").WithUsage(10, 5, 0)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
}
