// Package scoring reduces hydrated features into a single ranked engagement score.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/jonathan/comment-insights/internal/types"
)

// Weight pairs a feature with its score multiplier
type Weight struct {
	Feature string
	Weight  float64
}

// DefaultWeights lists feature weights in computation order.
// Final Score = Σ (weight_i × feature_i) + engagement boost.
var DefaultWeights = []Weight{
	{Feature: types.FeaturePurchaseIntent, Weight: 10.0},
	{Feature: types.FeatureConstructiveFeedback, Weight: 5.0},
	{Feature: types.FeatureReplyInducing, Weight: 3.0},
	{Feature: types.FeatureSentimentIntensity, Weight: 1.0},
	{Feature: types.FeatureToxicity, Weight: -100.0},
}

const (
	// likeBoostPerLike and maxEngagementBoost give likes diminishing returns
	likeBoostPerLike   = 0.1
	maxEngagementBoost = 5.0
	// explanationThreshold drops weak contributors from explanations
	explanationThreshold = 2.0
	// OrdinaryComment is the explanation when no factor is strong enough
	OrdinaryComment = "일반적인 댓글"
)

// EngagementScorer computes CandidateScore values and ranks candidates
type EngagementScorer struct {
	weights []Weight
}

// NewEngagementScorer creates a scorer with DefaultWeights
func NewEngagementScorer() *EngagementScorer {
	return &EngagementScorer{weights: DefaultWeights}
}

// Score assigns a score to every candidate and returns them sorted by final
// score descending. Ties keep their input order. Negative scores are kept.
func (s *EngagementScorer) Score(candidates []*types.Candidate) []*types.Candidate {
	for _, c := range candidates {
		c.Score = s.ScoreOne(c)
	}

	ranked := make([]*types.Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FinalScore() > ranked[j].FinalScore()
	})
	return ranked
}

// ScoreOne computes the score for a single candidate without mutating it
func (s *EngagementScorer) ScoreOne(c *types.Candidate) *types.CandidateScore {
	var (
		total      float64
		components []types.ScoreComponent
		reasons    []string
	)

	for _, w := range s.weights {
		value := featureValue(c.Features, w.Feature)
		if w.Weight == 0 || value == 0 {
			continue
		}

		contribution := w.Weight * value
		components = append(components, types.ScoreComponent{Name: w.Feature, Value: contribution})
		total += contribution

		if math.Abs(contribution) > explanationThreshold {
			effect := "raised"
			if contribution < 0 {
				effect = "lowered"
			}
			reasons = append(reasons, fmt.Sprintf("%s(%.1f) %s the score", w.Feature, value, effect))
		}
	}

	if boost := EngagementBoost(c.LikeCount); boost > 0 {
		components = append(components, types.ScoreComponent{Name: types.ComponentEngagementBoost, Value: boost})
		total += boost
	}

	explanation := OrdinaryComment
	if len(reasons) > 0 {
		explanation = strings.Join(reasons, ", ")
	}

	return &types.CandidateScore{
		FinalScore:         round2(total),
		WeightedComponents: components,
		Explanation:        explanation,
	}
}

// EngagementBoost converts a like count into a capped bonus
func EngagementBoost(likes int) float64 {
	if likes <= 0 {
		return 0
	}
	return math.Min(float64(likes)*likeBoostPerLike, maxEngagementBoost)
}

func featureValue(f types.CandidateFeatures, name string) float64 {
	switch name {
	case types.FeaturePurchaseIntent:
		return f.PurchaseIntent
	case types.FeatureConstructiveFeedback:
		return f.ConstructiveFeedback
	case types.FeatureReplyInducing:
		return f.ReplyInducing
	case types.FeatureSentimentIntensity:
		return f.SentimentIntensity
	case types.FeatureToxicity:
		return f.Toxicity
	}
	return 0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
