// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/comment-insights/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// truncate shortens s to at most n runes, marking the cut with "..."
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintStats outputs the stage-by-stage counts of a run.
func (p *Printer) PrintStats(stats *types.PipelineStats) {
	if stats == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Collected:   %d\n", stats.OriginalCount))
	sb.WriteString(fmt.Sprintf("Filtered:    %d\n", stats.FilteredCount))
	sb.WriteString(fmt.Sprintf("  too short: %d\n", stats.FilterReasons.TooShort))
	sb.WriteString(fmt.Sprintf("  spam:      %d\n", stats.FilterReasons.Spam))
	sb.WriteString(fmt.Sprintf("  toxic:     %d\n", stats.FilterReasons.Toxic))
	sb.WriteString(fmt.Sprintf("Eligible:    %d\n", stats.PostFilteredCount))
	sb.WriteString(fmt.Sprintf("Hydrated:    %d", stats.ProcessedCount))
	if stats.HydrationFailed > 0 {
		sb.WriteString(fmt.Sprintf(" (%d fell back to defaults)", stats.HydrationFailed))
	}

	p.printBox("PIPELINE STATS", sb.String())
}

// PrintInsights outputs the selected insights with score, reason and keywords.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintInsights(insights []types.Insight) {
	if len(insights) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "NO INSIGHTS SELECTED")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Selected %d insights:\n\n", len(insights)))

	count := min(len(insights), maxItemsToShow)
	for i := 0; i < count; i++ {
		in := insights[i]
		sb.WriteString(fmt.Sprintf("#%d  %.2f  @%s\n", in.Rank, in.Score, in.Author))
		sb.WriteString(fmt.Sprintf("    %s\n", truncate(in.Content, 48)))
		sb.WriteString(fmt.Sprintf("    Why: %s\n", truncate(in.Reason, 43)))
		if len(in.Features.Keywords) > 0 {
			sb.WriteString(fmt.Sprintf("    [%s]\n", truncate(strings.Join(in.Features.Keywords, ", "), 40)))
		}
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(insights) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more insights", len(insights)-maxItemsToShow))
	}

	p.printBox("TOP INSIGHTS", strings.TrimSuffix(sb.String(), "\n"))
}
