package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/comment-insights/internal/db"
	"github.com/jonathan/comment-insights/internal/observability"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect saved insight runs",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved runs, newest first",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print a saved run as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a saved run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

var (
	historyDatabaseURL string
	historyLabel       string
	historySince       time.Duration
	historyLimit       int
	historyMinInsights int
	historyVerbose     bool
)

func init() {
	historyCmd.PersistentFlags().StringVar(&historyDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	historyListCmd.Flags().StringVar(&historyLabel, "label", "", "Only runs saved with this label")
	historyListCmd.Flags().DurationVar(&historySince, "since", 0, "Only runs newer than this, e.g. 72h")
	historyListCmd.Flags().IntVar(&historyLimit, "limit", db.DefaultListLimit, "Maximum runs to list")
	historyListCmd.Flags().IntVar(&historyMinInsights, "min-insights", 0, "Only runs that selected at least this many insights")

	historyShowCmd.Flags().BoolVarP(&historyVerbose, "verbose", "v", false, "Print boxes instead of JSON")

	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyDeleteCmd)
	rootCmd.AddCommand(historyCmd)
}

func connectHistory(ctx context.Context) (*db.DB, error) {
	url := historyDatabaseURL
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required")
	}

	database, err := db.Connect(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

func runHistoryList(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	database, err := connectHistory(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	filter := db.RunFilter{Label: historyLabel, Limit: historyLimit, MinInsights: historyMinInsights}
	if historySince > 0 {
		since := time.Now().Add(-historySince)
		filter.Since = &since
	}

	runs, err := database.ListInsightRuns(ctx, filter)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RUN ID\tLABEL\tCOMMENTS\tINSIGHTS\tTOP SCORE\tCREATED")
	for _, r := range runs {
		top := "-"
		if r.TopScore != nil {
			top = fmt.Sprintf("%.2f", *r.TopScore)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
			r.ID, r.Label, r.OriginalCount, r.InsightCount, top, r.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func runHistoryShow(_ *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid run id: %w", err)
	}

	ctx := context.Background()
	database, err := connectHistory(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	run, err := database.GetInsightRun(ctx, id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", id)
	}

	if historyVerbose {
		printer := observability.NewPrinter(os.Stdout)
		printer.PrintStats(&run.Stats)
		printer.PrintInsights(run.Insights)
		return nil
	}

	out, err := json.MarshalIndent(run.Result(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	_, _ = fmt.Fprintln(os.Stdout, string(out))
	return nil
}

func runHistoryDelete(_ *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid run id: %w", err)
	}

	ctx := context.Background()
	database, err := connectHistory(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	deleted, err := database.DeleteInsightRun(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("run %s not found", id)
	}
	_, _ = fmt.Fprintf(os.Stdout, "Deleted run %s\n", id)
	return nil
}
