package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xxxsen/vecsearch/internal/ai"
)

type fakeProvider struct {
	mu    sync.Mutex
	calls []fakeCall
	fn    func(model string, prompt string, opts *ai.GenerateOptions) (string, error)
}

type fakeCall struct {
	model  string
	budget int32
}

func (f *fakeProvider) Name() string {
	return "fake"
}

func (f *fakeProvider) Generate(ctx context.Context, model string, prompt string, opts *ai.GenerateOptions) (string, error) {
	var budget int32
	if opts != nil {
		budget = opts.ThinkingBudget
	}
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{model: model, budget: budget})
	f.mu.Unlock()
	return f.fn(model, prompt, opts)
}

func (f *fakeProvider) recorded() []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]fakeCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func newTestCompleter(p ai.IAIProvider) *Completer {
	return NewCompleter(p, nil, CompleterConfig{
		SimpleModel:  "model-lite",
		NormalModel:  "model-std",
		ComplexModel: "model-pro",
		BackoffBase:  time.Millisecond,
	})
}

func TestCompleteTierSelection(t *testing.T) {
	tests := []struct {
		complexity Complexity
		wantModel  string
		wantBudget int32
	}{
		{complexity: ComplexitySimple, wantModel: "model-lite", wantBudget: 0},
		{complexity: ComplexityNormal, wantModel: "model-std", wantBudget: thinkingBudgetNormal},
		{complexity: ComplexityComplex, wantModel: "model-pro", wantBudget: thinkingBudgetComplex},
	}
	for _, tt := range tests {
		t.Run(string(tt.complexity), func(t *testing.T) {
			fake := &fakeProvider{fn: func(string, string, *ai.GenerateOptions) (string, error) {
				return "answer", nil
			}}
			c := newTestCompleter(fake)
			res, err := c.Complete(context.Background(), "question", "", tt.complexity, false)
			require.NoError(t, err)
			require.Equal(t, "answer", res)
			calls := fake.recorded()
			require.Len(t, calls, 1)
			require.Equal(t, tt.wantModel, calls[0].model)
			require.Equal(t, tt.wantBudget, calls[0].budget)
		})
	}
}

func TestCompleteCacheShortCircuits(t *testing.T) {
	fake := &fakeProvider{fn: func(string, string, *ai.GenerateOptions) (string, error) {
		return "cached answer", nil
	}}
	c := newTestCompleter(fake)
	for i := 0; i < 3; i++ {
		res, err := c.Complete(context.Background(), "question", "some context", ComplexityNormal, true)
		require.NoError(t, err)
		require.Equal(t, "cached answer", res)
	}
	require.Len(t, fake.recorded(), 1)
}

func TestCompleteContextIsPrepended(t *testing.T) {
	var gotPrompt string
	fake := &fakeProvider{fn: func(_ string, prompt string, _ *ai.GenerateOptions) (string, error) {
		gotPrompt = prompt
		return "ok", nil
	}}
	c := newTestCompleter(fake)
	_, err := c.Complete(context.Background(), "question", "background", ComplexityNormal, false)
	require.NoError(t, err)
	require.Equal(t, "background\n\nquestion", gotPrompt)
}

func TestCompleteFallsBackToBaseModel(t *testing.T) {
	fake := &fakeProvider{fn: func(model string, _ string, _ *ai.GenerateOptions) (string, error) {
		if model == "model-pro" {
			return "", errors.New("model not available")
		}
		return "fallback answer", nil
	}}
	c := newTestCompleter(fake)
	res, err := c.Complete(context.Background(), "question", "", ComplexityComplex, false)
	require.NoError(t, err)
	require.Equal(t, "fallback answer", res)
	calls := fake.recorded()
	require.Equal(t, "model-lite", calls[len(calls)-1].model)
	require.Zero(t, calls[len(calls)-1].budget)
}

func TestCompleteReturnsApologyWhenExhausted(t *testing.T) {
	fake := &fakeProvider{fn: func(string, string, *ai.GenerateOptions) (string, error) {
		return "", errors.New("backend down")
	}}
	c := newTestCompleter(fake)
	res, err := c.Complete(context.Background(), "question", "", ComplexityNormal, false)
	require.NoError(t, err)
	require.Equal(t, completionFallbackText, res)
}

func TestCompleteApologyIsNotCached(t *testing.T) {
	down := true
	fake := &fakeProvider{fn: func(string, string, *ai.GenerateOptions) (string, error) {
		if down {
			return "", errors.New("backend down")
		}
		return "recovered answer", nil
	}}
	c := newTestCompleter(fake)

	res, err := c.Complete(context.Background(), "question", "", ComplexityNormal, true)
	require.NoError(t, err)
	require.Equal(t, completionFallbackText, res)

	down = false
	res, err = c.Complete(context.Background(), "question", "", ComplexityNormal, true)
	require.NoError(t, err)
	require.Equal(t, "recovered answer", res)

	// The recovered answer is cached as usual: a third call never reaches
	// the provider.
	callsAfterRecovery := len(fake.recorded())
	res, err = c.Complete(context.Background(), "question", "", ComplexityNormal, true)
	require.NoError(t, err)
	require.Equal(t, "recovered answer", res)
	require.Len(t, fake.recorded(), callsAfterRecovery)
}
