package hydration

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/comment-insights/internal/llm"
	"github.com/jonathan/comment-insights/internal/types"
)

const fixedPayload = "\n    ```json\n    {\n        \"purchase_intent\": 0.9,\n        \"reply_inducing\": 0.5,\n        \"constructive_feedback\": 0.8,\n        \"sentiment_intensity\": 0.7,\n        \"toxicity\": 0.1,\n        \"keywords\": [\"구매\", \"추천\"]\n    }\n    ```\n    "

func buildCandidates(n int) []*types.Candidate {
	faker := gofakeit.New(42)
	candidates := make([]*types.Candidate, n)
	for i := range candidates {
		candidates[i] = &types.Candidate{
			ID:      fmt.Sprintf("%d", i),
			Content: faker.Sentence(8),
			Author:  types.AuthorInfo{Username: faker.Username()},
		}
	}
	return candidates
}

func newTestHydrator(gen llm.Generator, maxConcurrent int, buf *bytes.Buffer) *FeatureHydrator {
	return NewFeatureHydrator(gen, Options{MaxConcurrent: maxConcurrent, Logger: log.New(buf, "", 0)})
}

func TestHydrate_PopulatesFeatures(t *testing.T) {
	gen := llm.GeneratorFunc(func(_ context.Context, _ string) (string, error) {
		return fixedPayload, nil
	})
	h := newTestHydrator(gen, 0, &bytes.Buffer{})

	candidates := buildCandidates(3)
	out := h.Hydrate(context.Background(), candidates)

	require.Len(t, out, 3)
	for _, c := range out {
		assert.InDelta(t, 0.9, c.Features.PurchaseIntent, 0.0001)
		assert.InDelta(t, 0.5, c.Features.ReplyInducing, 0.0001)
		assert.InDelta(t, 0.8, c.Features.ConstructiveFeedback, 0.0001)
		assert.InDelta(t, 0.7, c.Features.SentimentIntensity, 0.0001)
		assert.InDelta(t, 0.1, c.Features.Toxicity, 0.0001)
		assert.Equal(t, []string{"구매", "추천"}, c.Features.Keywords)
		assert.Empty(t, c.Features.Topics)
	}
	assert.Equal(t, DefaultMaxConcurrent, h.maxConcurrent)
}

func TestHydrate_RespectsConcurrencyLimit(t *testing.T) {
	var active, maxActive int32
	gen := llm.GeneratorFunc(func(_ context.Context, _ string) (string, error) {
		n := atomic.AddInt32(&active, 1)
		for {
			m := atomic.LoadInt32(&maxActive)
			if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return `{"purchase_intent": 0.1}`, nil
	})
	h := newTestHydrator(gen, 2, &bytes.Buffer{})

	candidates := buildCandidates(10)
	results := h.HydrateResults(context.Background(), candidates)

	require.Len(t, results, 10)
	assert.LessOrEqual(t, atomic.LoadInt32(&maxActive), int32(2))
	assert.Equal(t, int32(2), atomic.LoadInt32(&maxActive), "limit should actually be reached")
	for _, r := range results {
		assert.True(t, r.OK())
	}
}

func TestHydrate_AllCallsFail(t *testing.T) {
	var buf bytes.Buffer
	gen := llm.GeneratorFunc(func(_ context.Context, _ string) (string, error) {
		return "", errors.New("503 service unavailable")
	})
	h := newTestHydrator(gen, 3, &buf)

	candidates := buildCandidates(4)
	out := h.Hydrate(context.Background(), candidates)

	require.Len(t, out, 4)
	for _, c := range out {
		assert.Zero(t, c.Features)
	}
	assert.Contains(t, buf.String(), "Hydration failed for comment id=0")
	assert.Contains(t, buf.String(), "503 service unavailable")
	assert.Contains(t, buf.String(), "(4 failed")
}

func TestHydrateResults_PartialFailureKeepsOrder(t *testing.T) {
	gen := llm.GeneratorFunc(func(_ context.Context, prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "broken json"):
			return "{not json", nil
		case strings.Contains(prompt, "panic please"):
			panic("boom")
		case strings.Contains(prompt, "empty please"):
			return "   ", nil
		}
		return `{"purchase_intent": 0.4, "topics": ["가격"]}`, nil
	})
	h := newTestHydrator(gen, 2, &bytes.Buffer{})

	candidates := []*types.Candidate{
		{ID: "a", Content: "good comment"},
		{ID: "b", Content: "broken json"},
		{ID: "c", Content: "panic please"},
		{ID: "d", Content: "empty please"},
		{ID: "e", Content: "another good one"},
	}
	results := h.HydrateResults(context.Background(), candidates)

	require.Len(t, results, 5)
	for i, r := range results {
		assert.Same(t, candidates[i], r.Candidate)
	}
	assert.True(t, results[0].OK())
	assert.InDelta(t, 0.4, results[0].Features.PurchaseIntent, 0.0001)
	assert.Equal(t, []string{"가격"}, results[0].Features.Topics)

	require.Error(t, results[1].Err)
	assert.Contains(t, results[1].Err.Error(), "failed to parse feature response")
	require.Error(t, results[2].Err)
	assert.Contains(t, results[2].Err.Error(), "panicked")
	assert.ErrorIs(t, results[3].Err, ErrEmptyResponse)
	assert.True(t, results[4].OK())

	for _, r := range results[1:4] {
		assert.Zero(t, r.Features)
	}
}

func TestHydrate_PromptEmbedsContentAndSchema(t *testing.T) {
	var mu sync.Mutex
	var prompts []string
	gen := llm.GeneratorFunc(func(_ context.Context, prompt string) (string, error) {
		mu.Lock()
		prompts = append(prompts, prompt)
		mu.Unlock()
		return "{}", nil
	})
	h := newTestHydrator(gen, 1, &bytes.Buffer{})

	h.Hydrate(context.Background(), []*types.Candidate{{ID: "1", Content: "배송이 정말 빨라요"}})

	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], `Comment: "배송이 정말 빨라요"`)
	assert.Contains(t, prompts[0], `"purchase_intent": float (required)`)
	assert.Contains(t, prompts[0], `"topics": ["string"]`)
	assert.NotContains(t, prompts[0], "{{.")
}

func TestHydrate_LocalizedPrompt(t *testing.T) {
	tests := []struct {
		language string
		want     string
		logged   bool
	}{
		{language: "", want: `Comment: "가격이 궁금해요"`},
		{language: "en", want: `Comment: "가격이 궁금해요"`},
		{language: "ko", want: `댓글: "가격이 궁금해요"`},
		{language: "fr", want: `Comment: "가격이 궁금해요"`, logged: true},
	}

	for _, tt := range tests {
		t.Run("lang="+tt.language, func(t *testing.T) {
			var got string
			gen := llm.GeneratorFunc(func(_ context.Context, prompt string) (string, error) {
				got = prompt
				return "{}", nil
			})
			var buf bytes.Buffer
			h := NewFeatureHydrator(gen, Options{MaxConcurrent: 1, Language: tt.language, Logger: log.New(&buf, "", 0)})

			h.Hydrate(context.Background(), []*types.Candidate{{ID: "1", Content: "가격이 궁금해요"}})

			assert.Contains(t, got, tt.want)
			assert.Equal(t, tt.logged, strings.Contains(buf.String(), "using default"))
		})
	}
}

func TestHydrate_CancelledContextDegradesToDefaults(t *testing.T) {
	gen := llm.GeneratorFunc(func(ctx context.Context, _ string) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return fixedPayload, nil
	})
	h := newTestHydrator(gen, 2, &bytes.Buffer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := h.HydrateResults(ctx, buildCandidates(5))

	require.Len(t, results, 5)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
		assert.Zero(t, r.Features)
	}
}

func TestHydrate_Empty(t *testing.T) {
	gen := llm.GeneratorFunc(func(_ context.Context, _ string) (string, error) {
		t.Fatal("generator should not be called")
		return "", nil
	})
	h := newTestHydrator(gen, 2, &bytes.Buffer{})

	assert.Empty(t, h.Hydrate(context.Background(), nil))
	assert.Empty(t, h.HydrateResults(context.Background(), []*types.Candidate{}))
}

func TestParseFeatures(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected types.CandidateFeatures
		wantErr  bool
	}{
		{
			name:     "missing fields default to zero",
			input:    `{"purchase_intent": 0.3}`,
			expected: types.CandidateFeatures{PurchaseIntent: 0.3},
		},
		{
			name:     "unknown fields ignored",
			input:    `{"toxicity": 0.2, "language": "ko"}`,
			expected: types.CandidateFeatures{Toxicity: 0.2},
		},
		{
			name:     "out of range values clamped",
			input:    `{"purchase_intent": 1.7, "toxicity": -0.4}`,
			expected: types.CandidateFeatures{PurchaseIntent: 1.0},
		},
		{
			name:     "preamble and fence",
			input:    "Here you go:\n```json\n{\"reply_inducing\": 0.6, \"keywords\": [\"디자인\"]}\n```",
			expected: types.CandidateFeatures{ReplyInducing: 0.6, Keywords: []string{"디자인"}},
		},
		{
			name:     "unreadable value defaults to zero",
			input:    `{"purchase_intent": "high", "reply_inducing": 0.4}`,
			expected: types.CandidateFeatures{ReplyInducing: 0.4},
		},
		{
			name:  "off-type fields keep the other signals",
			input: `{"purchase_intent": 0.9, "reply_inducing": 0.5, "constructive_feedback": 0.8, "sentiment_intensity": 0.7, "toxicity": "0.1", "keywords": "가격, 디자인"}`,
			expected: types.CandidateFeatures{
				PurchaseIntent:       0.9,
				ReplyInducing:        0.5,
				ConstructiveFeedback: 0.8,
				SentimentIntensity:   0.7,
				Toxicity:             0.1,
				Keywords:             []string{"가격", "디자인"},
			},
		},
		{
			name:     "null and nested values ignored",
			input:    `{"purchase_intent": null, "toxicity": {"score": 0.9}, "topics": [1, 2], "sentiment_intensity": "1.4"}`,
			expected: types.CandidateFeatures{SentimentIntensity: 1.0},
		},
		{
			name:    "not json",
			input:   "I cannot analyze this comment.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFeatures(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Zero(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
