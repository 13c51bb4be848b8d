package main

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jonathan/comment-insights/internal/llm"
)

// getBinaryPath returns the path to the insight_agent binary for testing
func getBinaryPath(t *testing.T) string {
	if testing.Short() {
		t.Skip("Skipping CLI tests in short mode")
	}

	binaryPath, err := filepath.Abs(filepath.Join("..", "..", "bin", "insight_agent"))
	if err != nil {
		t.Fatalf("failed to resolve binary path: %v", err)
	}
	if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
		t.Skipf("Binary not found at %s, build it first with 'go build -o bin/insight_agent ./cmd/insight_agent'", binaryPath)
	}

	return binaryPath
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// stubClient is an llm.Client that answers every JSON request with the same payload
type stubClient struct {
	payload string

	mu    sync.Mutex
	tiers []llm.ModelTier
}

func (s *stubClient) GenerateContent(_ context.Context, _ string, tier llm.ModelTier) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiers = append(s.tiers, tier)
	return s.payload, nil
}

func (s *stubClient) GenerateJSON(_ context.Context, _ string, tier llm.ModelTier) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiers = append(s.tiers, tier)
	return s.payload, nil
}

func (s *stubClient) GetModel(tier llm.ModelTier) string {
	return llm.DefaultConfig().GetModel(tier)
}

func (s *stubClient) Close() error {
	return nil
}
