// Package types provides type definitions for structured data used throughout the comment-insights system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "time"

// Feature names used as keys for weighted score components.
const (
	FeaturePurchaseIntent       = "purchase_intent"
	FeatureReplyInducing        = "reply_inducing"
	FeatureConstructiveFeedback = "constructive_feedback"
	FeatureSentimentIntensity   = "sentiment_intensity"
	FeatureToxicity             = "toxicity"
	ComponentEngagementBoost    = "engagement_boost"
)

// AuthorInfo describes the author of a comment
type AuthorInfo struct {
	Username        string  `json:"username"`
	IsVerified      bool    `json:"is_verified"`
	ReputationScore float64 `json:"reputation_score"`
}

// CandidateFeatures holds AI-derived behavioral signals, each in [0.0, 1.0].
// The zero value is what a failed hydration leaves behind and reads as
// neutral, non-toxic, unscored.
type CandidateFeatures struct {
	PurchaseIntent       float64  `json:"purchase_intent"`
	ReplyInducing        float64  `json:"reply_inducing"`
	ConstructiveFeedback float64  `json:"constructive_feedback"`
	SentimentIntensity   float64  `json:"sentiment_intensity"`
	Toxicity             float64  `json:"toxicity"`
	Keywords             []string `json:"keywords"`
	Topics               []string `json:"topics"`
}

// ScoreComponent is a single weighted contribution to a final score
type ScoreComponent struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// CandidateScore is the output of the scoring stage
type CandidateScore struct {
	FinalScore float64 `json:"final_score"`
	// WeightedComponents keeps computation order
	WeightedComponents []ScoreComponent `json:"weighted_components"`
	Explanation        string           `json:"explanation"`
}

// Candidate is one comment as it flows through the pipeline.
// It is created by the source and mutated in place by later stages.
type Candidate struct {
	ID        string     `json:"id"`
	Content   string     `json:"content"`
	Author    AuthorInfo `json:"author"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	LikeCount int        `json:"like_count"`

	Features CandidateFeatures `json:"features"`
	// Score is nil until the scorer has run
	Score *CandidateScore `json:"score,omitempty"`

	IsSelected      bool   `json:"is_selected"`
	SelectionReason string `json:"selection_reason,omitempty"`
}

// FinalScore returns the candidate's score, or 0 when unscored
func (c *Candidate) FinalScore() float64 {
	if c.Score == nil {
		return 0
	}
	return c.Score.FinalScore
}
