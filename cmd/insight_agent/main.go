// Package main provides the entry point for the insight_agent CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "insight_agent",
	Short: "Comment-to-insight scoring pipeline",
	Long:  "insight_agent filters a batch of social comments, extracts behavioural signals from each with Gemini, scores them and selects the most useful insights for marketing.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
