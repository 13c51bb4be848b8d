// Package pipeline composes the comment-to-insight stages into a single run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/comment-insights/internal/hydration"
	"github.com/jonathan/comment-insights/internal/types"
)

// Stage names reported in progress events
const (
	StepSource  = "source"
	StepFilter  = "filter"
	StepHydrate = "hydrate"
	StepScore   = "score"
	StepSelect  = "select"
)

// ErrMissingStage is returned when an orchestrator is built without a stage
var ErrMissingStage = errors.New("pipeline stage not configured")

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step    string    `json:"step"`
	Message string    `json:"message"`
	RunID   uuid.UUID `json:"run_id"`
}

// ProgressCallback is called after each stage completes
type ProgressCallback func(event ProgressEvent)

// Source normalizes raw records into candidates
type Source interface {
	Adapt(raw []types.RawComment) []*types.Candidate
}

// Filter removes ineligible candidates and reports why
type Filter interface {
	Filter(candidates []*types.Candidate) []*types.Candidate
	Stats() types.FilterStats
}

// Hydrator extracts features per candidate, reporting failures per item
type Hydrator interface {
	HydrateResults(ctx context.Context, candidates []*types.Candidate) []hydration.Result
}

// Scorer scores candidates and returns them ranked
type Scorer interface {
	Score(candidates []*types.Candidate) []*types.Candidate
}

// Selector projects the top of a ranked list into insights
type Selector interface {
	Select(ranked []*types.Candidate) []types.Insight
}

// Deps wires all stages into the orchestrator
type Deps struct {
	Source     Source
	Filter     Filter
	Hydrator   Hydrator
	Scorer     Scorer
	Selector   Selector
	Logger     *log.Logger
	OnProgress ProgressCallback
}

// Orchestrator runs Source → Filter → Hydrate → Score → Select
type Orchestrator struct {
	source     Source
	filter     Filter
	hydrator   Hydrator
	scorer     Scorer
	selector   Selector
	logger     *log.Logger
	onProgress ProgressCallback
}

// NewOrchestrator validates the wiring and constructs an orchestrator
func NewOrchestrator(deps Deps) (*Orchestrator, error) {
	missing := map[string]bool{
		StepSource:  deps.Source == nil,
		StepFilter:  deps.Filter == nil,
		StepHydrate: deps.Hydrator == nil,
		StepScore:   deps.Scorer == nil,
		StepSelect:  deps.Selector == nil,
	}
	for _, step := range []string{StepSource, StepFilter, StepHydrate, StepScore, StepSelect} {
		if missing[step] {
			return nil, fmt.Errorf("%w: %s", ErrMissingStage, step)
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Orchestrator{
		source:     deps.Source,
		filter:     deps.Filter,
		hydrator:   deps.Hydrator,
		scorer:     deps.Scorer,
		selector:   deps.Selector,
		logger:     logger,
		onProgress: deps.OnProgress,
	}, nil
}

// RunPipeline processes one batch of raw comments into ranked insights.
// Hydration failures are absorbed per candidate and never returned; the
// candidates are owned by this call and not retained afterwards.
func (o *Orchestrator) RunPipeline(ctx context.Context, raw []types.RawComment) (*types.PipelineResult, error) {
	start := time.Now()
	result := &types.PipelineResult{RunID: uuid.New(), Insights: []types.Insight{}}
	stats := &result.Stats

	candidates := o.source.Adapt(raw)
	stats.OriginalCount = len(candidates)
	o.emit(result.RunID, StepSource, fmt.Sprintf("Adapted %d comments", stats.OriginalCount))

	eligible := o.filter.Filter(candidates)
	stats.FilterReasons = o.filter.Stats()
	stats.PostFilteredCount = len(eligible)
	stats.FilteredCount = stats.OriginalCount - stats.PostFilteredCount
	if removed := stats.FilterReasons.Removed(); removed != stats.FilteredCount {
		return nil, fmt.Errorf("filter stats inconsistent: %d removed by reason, %d removed by count", removed, stats.FilteredCount)
	}
	o.emit(result.RunID, StepFilter, fmt.Sprintf("Kept %d of %d comments", stats.PostFilteredCount, stats.OriginalCount))

	if len(eligible) == 0 {
		o.logger.Printf("[PIPELINE] Run %s: no eligible comments (%d in)", result.RunID, stats.OriginalCount)
		return result, nil
	}

	for _, r := range o.hydrator.HydrateResults(ctx, eligible) {
		r.Candidate.Features = r.Features
		if r.OK() {
			stats.ProcessedCount++
		} else {
			stats.HydrationFailed++
		}
	}
	o.emit(result.RunID, StepHydrate, fmt.Sprintf("Hydrated %d comments (%d failed)", stats.ProcessedCount, stats.HydrationFailed))

	ranked := o.scorer.Score(eligible)
	o.emit(result.RunID, StepScore, fmt.Sprintf("Scored %d comments", len(ranked)))

	result.Insights = o.selector.Select(ranked)
	o.emit(result.RunID, StepSelect, fmt.Sprintf("Selected %d insights", len(result.Insights)))

	o.logger.Printf("[PIPELINE] Run %s: %d in, %d filtered, %d hydrated, %d insights (%s)",
		result.RunID, stats.OriginalCount, stats.FilteredCount, stats.ProcessedCount,
		len(result.Insights), time.Since(start).Round(time.Millisecond))

	return result, nil
}

func (o *Orchestrator) emit(runID uuid.UUID, step, message string) {
	if o.onProgress != nil {
		o.onProgress(ProgressEvent{Step: step, Message: message, RunID: runID})
	}
}
