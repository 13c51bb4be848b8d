// Package filter rejects low-value comments before expensive enrichment.
package filter

import (
	"log"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/jonathan/comment-insights/internal/types"
)

// Reason classifies why a candidate was rejected
type Reason string

// Rejection reasons, in evaluation order. Passed means the candidate is eligible.
const (
	ReasonTooShort Reason = "too_short"
	ReasonSpam     Reason = "spam"
	ReasonToxic    Reason = "toxic"
	ReasonPassed   Reason = "passed"
)

// Default tuning values
const (
	DefaultMinLength         = 5
	DefaultToxicityThreshold = 0.8
)

// DefaultSpamKeywords are matched as case-sensitive substrings
var DefaultSpamKeywords = []string{"광고", "홍보", "http", "카톡", "사다리", "토토"}

// Options configures a QualityFilter. Zero values fall back to defaults.
type Options struct {
	MinLength         int
	SpamKeywords      []string
	ToxicityThreshold float64
	Logger            *log.Logger
}

// QualityFilter is the pre-scoring eligibility stage.
// Stats are recomputed on every Filter call.
type QualityFilter struct {
	minLength         int
	spamKeywords      []string
	toxicityThreshold float64
	logger            *log.Logger

	mu    sync.Mutex
	stats types.FilterStats
}

// NewQualityFilter creates a filter with the given options
func NewQualityFilter(opts Options) *QualityFilter {
	f := &QualityFilter{
		minLength:         opts.MinLength,
		spamKeywords:      opts.SpamKeywords,
		toxicityThreshold: opts.ToxicityThreshold,
		logger:            opts.Logger,
	}
	if f.minLength <= 0 {
		f.minLength = DefaultMinLength
	}
	if len(f.spamKeywords) == 0 {
		f.spamKeywords = append([]string(nil), DefaultSpamKeywords...)
	}
	if f.toxicityThreshold <= 0 {
		f.toxicityThreshold = DefaultToxicityThreshold
	}
	if f.logger == nil {
		f.logger = log.Default()
	}
	return f
}

// Classify returns the first failing check for c, or ReasonPassed.
// Length is measured in characters (runes) after trimming whitespace.
func (f *QualityFilter) Classify(c *types.Candidate) Reason {
	if utf8.RuneCountInString(strings.TrimSpace(c.Content)) < f.minLength {
		return ReasonTooShort
	}
	for _, keyword := range f.spamKeywords {
		if keyword != "" && strings.Contains(c.Content, keyword) {
			return ReasonSpam
		}
	}
	if c.Features.Toxicity > f.toxicityThreshold {
		return ReasonToxic
	}
	return ReasonPassed
}

// Filter returns the eligible candidates in input order and records stats
// for this call, replacing those of any previous call.
func (f *QualityFilter) Filter(candidates []*types.Candidate) []*types.Candidate {
	var stats types.FilterStats
	passed := make([]*types.Candidate, 0, len(candidates))

	for _, c := range candidates {
		switch f.Classify(c) {
		case ReasonTooShort:
			stats.TooShort++
		case ReasonSpam:
			stats.Spam++
		case ReasonToxic:
			stats.Toxic++
		default:
			stats.Passed++
			passed = append(passed, c)
		}
	}

	f.mu.Lock()
	f.stats = stats
	f.mu.Unlock()

	f.logger.Printf("[FILTER] QualityFilter result: %d in, %d passed, %d removed",
		len(candidates), stats.Passed, stats.Removed())
	f.logger.Printf("[FILTER]   too_short=%d spam=%d toxic=%d", stats.TooShort, stats.Spam, stats.Toxic)

	return passed
}

// Stats returns a copy of the counts from the most recent Filter call
func (f *QualityFilter) Stats() types.FilterStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

// Reset clears the recorded stats
func (f *QualityFilter) Reset() {
	f.mu.Lock()
	f.stats = types.FilterStats{}
	f.mu.Unlock()
}
