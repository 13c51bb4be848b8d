package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/comment-insights/internal/types"
)

// DefaultListLimit caps ListInsightRuns when no limit is given
const DefaultListLimit = 20

// InsightRun is a persisted pipeline result
type InsightRun struct {
	ID        uuid.UUID           `json:"id"`
	Label     string              `json:"label"`
	Stats     types.PipelineStats `json:"stats"`
	Insights  []types.Insight     `json:"insights"`
	Duration  time.Duration       `json:"duration"`
	CreatedAt time.Time           `json:"created_at"`
}

// Result converts the stored run back into a pipeline result
func (r *InsightRun) Result() *types.PipelineResult {
	insights := r.Insights
	if insights == nil {
		insights = []types.Insight{}
	}
	return &types.PipelineResult{RunID: r.ID, Insights: insights, Stats: r.Stats}
}

// InsightRunSummary is one row of the run history listing
type InsightRunSummary struct {
	ID            uuid.UUID `json:"id"`
	Label         string    `json:"label"`
	OriginalCount int       `json:"original_count"`
	InsightCount  int       `json:"insight_count"`
	TopScore      *float64  `json:"top_score,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// RunFilter narrows ListInsightRuns
type RunFilter struct {
	Label string
	Since *time.Time
	// MinInsights excludes runs that selected fewer insights
	MinInsights int
	Limit       int
	Offset      int
}
