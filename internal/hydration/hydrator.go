// Package hydration enriches candidates with AI-derived behavioral features.
package hydration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/comment-insights/internal/llm"
	"github.com/jonathan/comment-insights/internal/prompts"
	"github.com/jonathan/comment-insights/internal/types"
)

// DefaultMaxConcurrent caps simultaneous in-flight AI calls
const DefaultMaxConcurrent = 5

const (
	promptFile = "hydration.json"
	promptKey  = "extract-comment-features"
)

// ErrEmptyResponse is returned when the generator yields no JSON object
var ErrEmptyResponse = errors.New("empty feature response")

// Result is the per-candidate outcome of hydration. On failure Err is set and
// Features is the zero value; the batch itself never fails.
type Result struct {
	Candidate *types.Candidate
	Features  types.CandidateFeatures
	Err       error
}

// OK reports whether features were extracted successfully
func (r Result) OK() bool {
	return r.Err == nil
}

// Options configures a FeatureHydrator
type Options struct {
	MaxConcurrent int
	// Language selects a localized prompt, e.g. "ko"; empty or "en" uses the default
	Language string
	Logger   *log.Logger
}

// FeatureHydrator calls a Generator once per candidate with bounded parallelism.
type FeatureHydrator struct {
	generator     llm.Generator
	maxConcurrent int
	logger        *log.Logger
	schema        string
	promptKey     string
}

// NewFeatureHydrator creates a hydrator backed by generator
func NewFeatureHydrator(generator llm.Generator, opts Options) *FeatureHydrator {
	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &FeatureHydrator{
		generator:     generator,
		maxConcurrent: maxConcurrent,
		logger:        logger,
		schema:        llm.RenderSchemaBlock(llm.CommentFeaturesSchema()),
		promptKey:     resolvePromptKey(opts.Language, logger),
	}
}

func resolvePromptKey(language string, logger *log.Logger) string {
	if language == "" || language == "en" {
		return promptKey
	}
	key := promptKey + "-" + language
	available, err := prompts.List(promptFile)
	if err != nil {
		logger.Printf("[HYDRATE] Failed to list prompts, using default: %v", err)
		return promptKey
	}
	if !slices.Contains(available, key) {
		logger.Printf("[HYDRATE] No %q prompt in %v, using default", language, available)
		return promptKey
	}
	return key
}

// Hydrate populates Features on every candidate and returns the same slice.
// Candidates whose extraction fails keep zero-valued features.
func (h *FeatureHydrator) Hydrate(ctx context.Context, candidates []*types.Candidate) []*types.Candidate {
	for _, r := range h.HydrateResults(ctx, candidates) {
		r.Candidate.Features = r.Features
	}
	return candidates
}

// HydrateResults extracts features for all candidates and returns one Result
// per candidate in input order. It waits for every call to finish.
func (h *FeatureHydrator) HydrateResults(ctx context.Context, candidates []*types.Candidate) []Result {
	results := make([]Result, len(candidates))
	if len(candidates) == 0 {
		return results
	}

	// Workers never return an error; the limit is the only shared state and
	// Go blocks until a slot frees up, regardless of ctx.
	var g errgroup.Group
	g.SetLimit(h.maxConcurrent)
	for i, c := range candidates {
		g.Go(func() error {
			results[i] = h.hydrateOne(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}
	h.logger.Printf("[HYDRATE] Hydrated %d candidates (%d failed, max concurrency %d)",
		len(candidates), failed, h.maxConcurrent)

	return results
}

func (h *FeatureHydrator) hydrateOne(ctx context.Context, c *types.Candidate) Result {
	// A cancelled ctx still reaches Generate, which fails fast and degrades
	// to default features.
	features, err := h.extract(ctx, c)
	if err != nil {
		return h.fail(c, err)
	}
	return Result{Candidate: c, Features: features}
}

func (h *FeatureHydrator) fail(c *types.Candidate, err error) Result {
	h.logger.Printf("[HYDRATE] Hydration failed for comment id=%s: %v", c.ID, err)
	return Result{Candidate: c, Err: err}
}

func (h *FeatureHydrator) extract(ctx context.Context, c *types.Candidate) (features types.CandidateFeatures, err error) {
	defer func() {
		if r := recover(); r != nil {
			features = types.CandidateFeatures{}
			err = fmt.Errorf("generator panicked: %v", r)
		}
	}()

	prompt, err := h.buildPrompt(c)
	if err != nil {
		return types.CandidateFeatures{}, err
	}

	resp, err := h.generator.Generate(ctx, prompt)
	if err != nil {
		return types.CandidateFeatures{}, fmt.Errorf("LLM generation failed: %w", err)
	}

	return ParseFeatures(resp)
}

func (h *FeatureHydrator) buildPrompt(c *types.Candidate) (string, error) {
	prompt, err := prompts.Render(promptFile, h.promptKey, map[string]string{
		"Comment": c.Content,
		"Schema":  h.schema,
	})
	if err != nil {
		return "", fmt.Errorf("failed to build prompt: %w", err)
	}
	return prompt, nil
}

// ParseFeatures decodes an LLM response into CandidateFeatures.
// Markdown fences are stripped and unknown fields ignored. Each field is read
// on its own: a missing or unreadable value defaults to zero or empty without
// discarding the others. Numbers may arrive as JSON strings and are clamped
// into [0, 1]; keywords and topics may arrive as one comma-separated string.
func ParseFeatures(resp string) (types.CandidateFeatures, error) {
	cleaned := llm.CleanJSONBlock(resp)
	if cleaned == "" {
		return types.CandidateFeatures{}, ErrEmptyResponse
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return types.CandidateFeatures{}, fmt.Errorf("failed to parse feature response: %w (content: %s)", err, cleaned)
	}

	return types.CandidateFeatures{
		PurchaseIntent:       probability(fields[types.FeaturePurchaseIntent]),
		ReplyInducing:        probability(fields[types.FeatureReplyInducing]),
		ConstructiveFeedback: probability(fields[types.FeatureConstructiveFeedback]),
		SentimentIntensity:   probability(fields[types.FeatureSentimentIntensity]),
		Toxicity:             probability(fields[types.FeatureToxicity]),
		Keywords:             stringList(fields["keywords"]),
		Topics:               stringList(fields["topics"]),
	}, nil
}

func probability(raw json.RawMessage) float64 {
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0.0
		}
		if v, err = strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			return 0.0
		}
	}
	return min(max(v, 0.0), 1.0)
}

func stringList(raw json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}

	var joined string
	if err := json.Unmarshal(raw, &joined); err != nil {
		return nil
	}
	list = nil
	for _, part := range strings.Split(joined, ",") {
		if part = strings.TrimSpace(part); part != "" {
			list = append(list, part)
		}
	}
	return list
}
