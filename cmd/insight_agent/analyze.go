package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jonathan/comment-insights/internal/config"
	"github.com/jonathan/comment-insights/internal/db"
	"github.com/jonathan/comment-insights/internal/filter"
	"github.com/jonathan/comment-insights/internal/hydration"
	"github.com/jonathan/comment-insights/internal/llm"
	"github.com/jonathan/comment-insights/internal/observability"
	"github.com/jonathan/comment-insights/internal/pipeline"
	"github.com/jonathan/comment-insights/internal/schemas"
	"github.com/jonathan/comment-insights/internal/scoring"
	"github.com/jonathan/comment-insights/internal/selection"
	"github.com/jonathan/comment-insights/internal/source"
	"github.com/jonathan/comment-insights/internal/types"
	schemafiles "github.com/jonathan/comment-insights/schemas"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Score a batch of comments and select the top insights",
	Long: `Runs the insight pipeline over a JSON array of comments: source -> filter -> hydrate -> score -> select.

Configuration can be loaded from a JSON or YAML file using --config. Command-line arguments override config file values.`,
	RunE: runAnalyze,
}

var (
	analyzeConfigPath    string
	analyzeComments      string
	analyzeOutput        string
	analyzeAPIKey        string
	analyzeMaxConcurrent int
	analyzeTop           int
	analyzeRPS           float64
	analyzeLanguage      string
	analyzeVerbose       bool
	analyzeSave          bool
	analyzeLabel         string
	analyzeDatabaseURL   string
)

func init() {
	// Config file flag (processed first)
	analyzeCmd.Flags().StringVar(&analyzeConfigPath, "config", "", "Path to config file, .json or .yaml (values can be overridden by other flags)")

	analyzeCmd.Flags().StringVarP(&analyzeComments, "comments", "c", "", "Path to input comments JSON array (required)")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "out", "o", "", "Path to output result JSON file (required)")
	analyzeCmd.Flags().IntVar(&analyzeMaxConcurrent, "max-concurrent", 0, "Maximum simultaneous AI calls")
	analyzeCmd.Flags().IntVar(&analyzeTop, "top", 0, "Number of insights to select")
	analyzeCmd.Flags().Float64Var(&analyzeRPS, "rps", 0, "AI requests per second (0 disables pacing)")
	analyzeCmd.Flags().StringVar(&analyzeLanguage, "lang", "", "Extraction prompt language: en or ko")
	analyzeCmd.Flags().BoolVarP(&analyzeVerbose, "verbose", "v", false, "Print stats and insights after the run")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	analyzeCmd.Flags().StringVar(&analyzeAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")

	// Run history
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "Save the final result to the run history database")
	analyzeCmd.Flags().StringVar(&analyzeLabel, "label", "", "Label stored with the saved run, e.g. a product name")
	analyzeCmd.Flags().StringVar(&analyzeDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	if err := analyzeCmd.MarkFlagRequired("comments"); err != nil {
		panic(fmt.Sprintf("failed to mark comments flag as required: %v", err))
	}
	if err := analyzeCmd.MarkFlagRequired("out"); err != nil {
		panic(fmt.Sprintf("failed to mark out flag as required: %v", err))
	}

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := resolveAnalyzeConfig(cmd)
	if err != nil {
		return err
	}

	// Step 1: Load and validate the comment batch
	raw, err := loadComments(analyzeComments)
	if err != nil {
		return err
	}

	// Step 2: API key handling
	if cfg.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable or --api-key flag is required")
	}
	if analyzeSave && cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required with --save")
	}

	// Step 3: AI collaborator
	llmConfig := llm.DefaultConfig()
	if cfg.Model != "" {
		llmConfig = llmConfig.WithModel(llm.TierLite, cfg.Model)
	}
	client, err := llm.NewClient(ctx, llmConfig, cfg.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer func() { _ = client.Close() }()

	generator := newGenerator(client, cfg)

	// Step 4: Run
	orch, err := newOrchestrator(cfg, generator, log.Default())
	if err != nil {
		return err
	}

	start := time.Now()
	result, err := orch.RunPipeline(ctx, raw)
	if err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}
	elapsed := time.Since(start)

	// Step 5: Write output
	if err := writeResult(analyzeOutput, result); err != nil {
		return err
	}

	if cfg.Verbose {
		printer := observability.NewPrinter(os.Stdout)
		printer.PrintStats(&result.Stats)
		printer.PrintInsights(result.Insights)
	}

	// Step 6: Optional run history
	if analyzeSave {
		if err := saveRun(ctx, cfg.DatabaseURL, analyzeLabel, result, elapsed); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(os.Stdout, "Saved run %s to history\n", result.RunID)
	}

	_, _ = fmt.Fprintf(os.Stdout, "Selected %d insights from %d comments in %s to %s\n",
		len(result.Insights), result.Stats.OriginalCount, elapsed.Round(time.Millisecond), analyzeOutput)

	return nil
}

// resolveAnalyzeConfig merges the config file, flags and environment
func resolveAnalyzeConfig(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if analyzeConfigPath != "" {
		loadedCfg, err := config.LoadConfig(analyzeConfigPath)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loadedCfg
	}

	// Only override if the flag was explicitly set
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = analyzeAPIKey
	}
	if cmd.Flags().Changed("max-concurrent") {
		cfg.MaxConcurrent = analyzeMaxConcurrent
	}
	if cmd.Flags().Changed("top") {
		cfg.TopN = analyzeTop
	}
	if cmd.Flags().Changed("rps") {
		cfg.RequestsPerSecond = analyzeRPS
	}
	if cmd.Flags().Changed("lang") {
		cfg.PromptLanguage = analyzeLanguage
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = analyzeVerbose
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = analyzeDatabaseURL
	}

	if err := cfg.ApplyEnv(); err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	return cfg.MergeWithDefaults(config.Config{}), nil
}

// loadComments reads a comment batch. Only the batch shape is checked here;
// malformed fields inside a record are left for the source to degrade.
func loadComments(path string) ([]types.RawComment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read comments file %s: %w", path, err)
	}
	return parseComments(data)
}

func parseComments(data []byte) ([]types.RawComment, error) {
	if err := schemas.ValidateBytes(schemafiles.Comments, data); err != nil {
		return nil, fmt.Errorf("invalid comments file: %w", err)
	}

	var raw []types.RawComment
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal comments JSON: %w", err)
	}
	return raw, nil
}

// newGenerator builds the lite-tier generator, paced when requests_per_second is set
func newGenerator(client llm.Client, cfg config.Config) llm.Generator {
	var generator llm.Generator = llm.NewTierGenerator(client, llm.TierLite)
	if cfg.RequestsPerSecond > 0 {
		generator = llm.NewRateLimitedGenerator(generator, cfg.RequestsPerSecond, cfg.MaxConcurrent)
	}
	return generator
}

// newOrchestrator wires every stage from the resolved configuration
func newOrchestrator(cfg config.Config, generator llm.Generator, logger *log.Logger) (*pipeline.Orchestrator, error) {
	deps := pipeline.Deps{
		Source: source.NewCommentSource(),
		Filter: filter.NewQualityFilter(filter.Options{
			MinLength:         cfg.MinLength,
			SpamKeywords:      cfg.SpamKeywords,
			ToxicityThreshold: cfg.ToxicityThreshold,
			Logger:            logger,
		}),
		Hydrator: hydration.NewFeatureHydrator(generator, hydration.Options{
			MaxConcurrent: cfg.MaxConcurrent,
			Language:      cfg.PromptLanguage,
			Logger:        logger,
		}),
		Scorer:   scoring.NewEngagementScorer(),
		Selector: selection.NewTopInsightSelector(cfg.TopN),
		Logger:   logger,
	}
	if cfg.Verbose {
		deps.OnProgress = func(e pipeline.ProgressEvent) {
			logger.Printf("[PROGRESS] %s: %s", e.Step, e.Message)
		}
	}
	return pipeline.NewOrchestrator(deps)
}

// writeResult writes the indented result JSON, creating the output directory.
// The document is checked against the result schema; a mismatch is only a warning.
func writeResult(path string, result *types.PipelineResult) error {
	jsonOutput, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result to JSON: %w", err)
	}

	// Ensure output directory exists
	outputDir := filepath.Dir(path)
	if outputDir != "" && outputDir != "." {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
		}
	}

	if err := os.WriteFile(path, jsonOutput, 0644); err != nil {
		return fmt.Errorf("failed to write result to output file %s: %w", path, err)
	}

	if err := schemas.ValidateDocument(schemafiles.InsightResult, result); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Warning: Output validation failed: %v\n", err)
	}
	return nil
}

func saveRun(ctx context.Context, databaseURL, label string, result *types.PipelineResult, elapsed time.Duration) error {
	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		return err
	}
	if err := database.SaveInsightRun(ctx, label, result, elapsed); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

