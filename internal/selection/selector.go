// Package selection picks the final ranked insights from scored candidates.
package selection

import "github.com/jonathan/comment-insights/internal/types"

// DefaultTopN is the default number of insights returned
const DefaultTopN = 5

// TopInsightSelector truncates a ranked candidate list into Insight records
type TopInsightSelector struct {
	topN int
}

// NewTopInsightSelector creates a selector returning at most topN insights.
// A non-positive topN uses DefaultTopN.
func NewTopInsightSelector(topN int) *TopInsightSelector {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &TopInsightSelector{topN: topN}
}

// TopN returns the selection cap
func (s *TopInsightSelector) TopN() int {
	return s.topN
}

// Select marks the first topN scored candidates as selected and projects them
// into insights ranked 1..n. The input must already be sorted by score.
// Fewer candidates than topN yields all of them; empty input yields an empty list.
func (s *TopInsightSelector) Select(ranked []*types.Candidate) []types.Insight {
	insights := make([]types.Insight, 0, min(len(ranked), s.topN))
	for _, c := range ranked {
		if len(insights) == s.topN {
			break
		}
		if c.Score == nil {
			continue
		}

		c.IsSelected = true
		c.SelectionReason = c.Score.Explanation

		insights = append(insights, toInsight(len(insights)+1, c))
	}
	return insights
}

func toInsight(rank int, c *types.Candidate) types.Insight {
	return types.Insight{
		Rank:    rank,
		Score:   c.FinalScore(),
		Content: c.Content,
		Author:  c.Author.Username,
		Features: types.InsightFeatures{
			PurchaseIntent:       c.Features.PurchaseIntent,
			ReplyInducing:        c.Features.ReplyInducing,
			ConstructiveFeedback: c.Features.ConstructiveFeedback,
			SentimentIntensity:   c.Features.SentimentIntensity,
			Toxicity:             c.Features.Toxicity,
			Keywords:             c.Features.Keywords,
		},
		Reason: c.Score.Explanation,
	}
}
