package filter

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/comment-insights/internal/types"
)

func buildCandidate(id, content string, toxicity float64) *types.Candidate {
	return &types.Candidate{
		ID:       id,
		Content:  content,
		Author:   types.AuthorInfo{Username: "tester"},
		Features: types.CandidateFeatures{Toxicity: toxicity},
	}
}

func newTestFilter(buf *bytes.Buffer) *QualityFilter {
	return NewQualityFilter(Options{Logger: log.New(buf, "", 0)})
}

func TestFilter_StatsCountsEachReason(t *testing.T) {
	var buf bytes.Buffer
	qf := newTestFilter(&buf)

	candidates := []*types.Candidate{
		buildCandidate("1", "짧", 0),
		buildCandidate("2", "이건 광고입니다", 0),
		buildCandidate("3", "정상 문장이에요", 0.9),
		buildCandidate("4", "정상 문장입니다", 0),
	}

	result := qf.Filter(candidates)

	require.Len(t, result, 1)
	assert.Equal(t, "4", result[0].ID)
	assert.Equal(t, types.FilterStats{TooShort: 1, Spam: 1, Toxic: 1, Passed: 1}, qf.Stats())
}

func TestFilter_ConservationOfCounts(t *testing.T) {
	var buf bytes.Buffer
	qf := newTestFilter(&buf)

	candidates := []*types.Candidate{
		buildCandidate("1", "", 0),
		buildCandidate("2", "a", 0),
		buildCandidate("3", "http://x.io 링크", 0),
		buildCandidate("4", "토토 사이트 홍보", 0),
		buildCandidate("5", "조금 긴 정상적인 댓글", 0),
		buildCandidate("6", "또 다른 정상 댓글", 0.81),
		buildCandidate("7", "경계값 독성 댓글", 0.8),
	}

	result := qf.Filter(candidates)
	stats := qf.Stats()

	assert.Equal(t, len(candidates), stats.Total())
	assert.Equal(t, len(candidates), len(result)+stats.Removed())
	assert.Equal(t, 2, stats.Passed)
}

func TestClassify_FixedReasons(t *testing.T) {
	qf := newTestFilter(&bytes.Buffer{})

	tests := []struct {
		name     string
		content  string
		toxicity float64
		expected Reason
	}{
		{"single char", "a", 0, ReasonTooShort},
		{"whitespace padded short", "   ab   ", 0, ReasonTooShort},
		{"hangul counted by characters", "짧음", 0, ReasonTooShort},
		{"five hangul characters pass length", "다섯글자요", 0, ReasonPassed},
		{"http always spam", "see http", 0, ReasonSpam},
		{"long http spam", "정말 좋은 제품이네요 http://example.com 참고", 0, ReasonSpam},
		{"short wins over spam", "http", 0, ReasonTooShort},
		{"spam wins over toxic", "광고 문의는 카톡", 0.95, ReasonSpam},
		{"case sensitive", "HTTP SERVER", 0, ReasonPassed},
		{"toxic above threshold", "나쁜 말 댓글", 0.81, ReasonToxic},
		{"toxic at threshold passes", "나쁜 말 댓글", 0.8, ReasonPassed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, qf.Classify(buildCandidate("x", tt.content, tt.toxicity)))
		})
	}
}

func TestFilter_StatsResetBetweenCalls(t *testing.T) {
	qf := newTestFilter(&bytes.Buffer{})

	qf.Filter([]*types.Candidate{buildCandidate("1", "a", 0), buildCandidate("2", "b", 0)})
	assert.Equal(t, 2, qf.Stats().TooShort)

	qf.Filter([]*types.Candidate{buildCandidate("3", "정상 문장입니다", 0)})
	assert.Equal(t, types.FilterStats{Passed: 1}, qf.Stats())

	qf.Reset()
	assert.Equal(t, types.FilterStats{}, qf.Stats())
}

func TestFilter_StatsReturnsCopy(t *testing.T) {
	qf := newTestFilter(&bytes.Buffer{})
	qf.Filter([]*types.Candidate{buildCandidate("1", "정상 문장입니다", 0)})

	stats := qf.Stats()
	stats.Passed = 99

	assert.Equal(t, 1, qf.Stats().Passed)
}

func TestFilter_LogsSummary(t *testing.T) {
	var buf bytes.Buffer
	qf := newTestFilter(&buf)

	qf.Filter([]*types.Candidate{buildCandidate("1", "정상 문장입니다", 0), buildCandidate("2", "a", 0)})

	assert.Contains(t, buf.String(), "QualityFilter result: 2 in, 1 passed, 1 removed")
	assert.Contains(t, buf.String(), "too_short=1 spam=0 toxic=0")
}

func TestNewQualityFilter_CustomOptions(t *testing.T) {
	qf := NewQualityFilter(Options{
		MinLength:         2,
		SpamKeywords:      []string{"buy now"},
		ToxicityThreshold: 0.5,
		Logger:            log.New(&bytes.Buffer{}, "", 0),
	})

	assert.Equal(t, ReasonPassed, qf.Classify(buildCandidate("1", "짧음", 0)))
	assert.Equal(t, ReasonPassed, qf.Classify(buildCandidate("2", "광고 포함", 0)))
	assert.Equal(t, ReasonSpam, qf.Classify(buildCandidate("3", "click buy now", 0)))
	assert.Equal(t, ReasonToxic, qf.Classify(buildCandidate("4", "borderline", 0.6)))
}

func TestFilter_EmptyInput(t *testing.T) {
	qf := newTestFilter(&bytes.Buffer{})
	result := qf.Filter(nil)

	assert.Empty(t, result)
	assert.Equal(t, types.FilterStats{}, qf.Stats())
}
