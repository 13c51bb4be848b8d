package llm

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitedGenerator_Delegates(t *testing.T) {
	var calls int32
	next := GeneratorFunc(func(_ context.Context, prompt string) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "echo:" + prompt, nil
	})

	gen := NewRateLimitedGenerator(next, 0, 0)
	out, err := gen.Generate(context.Background(), "hi")

	require.NoError(t, err)
	assert.Equal(t, "echo:hi", out)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRateLimitedGenerator_PacesRequests(t *testing.T) {
	next := GeneratorFunc(func(_ context.Context, _ string) (string, error) {
		return "{}", nil
	})

	// 20 rps with burst 1: three calls need at least two 50ms intervals
	gen := NewRateLimitedGenerator(next, 20, 1)
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := gen.Generate(context.Background(), "p")
		require.NoError(t, err)
	}

	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestRateLimitedGenerator_CancelledContext(t *testing.T) {
	called := false
	next := GeneratorFunc(func(_ context.Context, _ string) (string, error) {
		called = true
		return "{}", nil
	})

	gen := NewRateLimitedGenerator(next, 0.001, 1)
	// Drain the single burst token
	_, err := gen.Generate(context.Background(), "p")
	require.NoError(t, err)
	called = false

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = gen.Generate(ctx, "p")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter wait failed")
	assert.False(t, called)
}
