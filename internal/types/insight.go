package types

import "github.com/google/uuid"

// InsightFeatures is the subset of features needed for display
type InsightFeatures struct {
	PurchaseIntent       float64  `json:"purchase_intent"`
	ReplyInducing        float64  `json:"reply_inducing"`
	ConstructiveFeedback float64  `json:"constructive_feedback"`
	SentimentIntensity   float64  `json:"sentiment_intensity"`
	Toxicity             float64  `json:"toxicity"`
	Keywords             []string `json:"keywords"`
}

// Insight is a ranked, explained projection of a selected candidate
type Insight struct {
	Rank     int             `json:"rank"`
	Score    float64         `json:"score"`
	Content  string          `json:"content"`
	Author   string          `json:"author"`
	Features InsightFeatures `json:"features"`
	Reason   string          `json:"reason"`
}

// FilterStats counts quality filter outcomes for one run.
// Reasons are mutually exclusive, so TooShort+Spam+Toxic+Passed equals the input count.
type FilterStats struct {
	TooShort int `json:"too_short"`
	Spam     int `json:"spam"`
	Toxic    int `json:"toxic"`
	Passed   int `json:"passed"`
}

// Removed returns the number of candidates rejected for any reason
func (s FilterStats) Removed() int {
	return s.TooShort + s.Spam + s.Toxic
}

// Total returns the number of candidates the filter saw
func (s FilterStats) Total() int {
	return s.Removed() + s.Passed
}

// PipelineStats holds counts observed at each stage boundary.
// ProcessedCount counts candidates hydrated successfully; every eligible
// candidate is scored either way.
type PipelineStats struct {
	OriginalCount     int `json:"original_count"`
	FilteredCount     int `json:"filtered_count"`
	PostFilteredCount int `json:"post_filtered_count"`
	ProcessedCount    int `json:"processed_count"`
	// HydrationFailed counts candidates scored on default features
	HydrationFailed int         `json:"hydration_failed"`
	FilterReasons   FilterStats `json:"filter_reasons"`
}

// PipelineResult is the output of one pipeline run
type PipelineResult struct {
	RunID    uuid.UUID     `json:"run_id"`
	Insights []Insight     `json:"insights"`
	Stats    PipelineStats `json:"stats"`
}
