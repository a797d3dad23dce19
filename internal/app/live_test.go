//go:build integration

package app

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/agenthands/truthseeker/internal/config"
	"github.com/agenthands/truthseeker/internal/core/factcheck"
	"github.com/agenthands/truthseeker/internal/core/model"
	"github.com/agenthands/truthseeker/internal/logging"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiveFactCheck(t *testing.T) {
	// Load environment if present
	_ = godotenv.Load("../../.env")

	if os.Getenv("BRAVE_API_KEY") == "" {
		t.Skip("Skipping integration test: BRAVE_API_KEY not set")
	}
	if os.Getenv("LLM_API_KEY") == "" && os.Getenv("DEEPSEEK_API_KEY") == "" && os.Getenv("LLM_PROVIDER") != "ollama" {
		t.Skip("Skipping integration test: no LLM credentials")
	}

	cfg, err := config.LoadFromEnv("")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	a, err := New(ctx, cfg, logging.New(cfg.Log, os.Stderr))
	require.NoError(t, err)
	defer a.Close(context.Background())

	var statuses []string
	result := a.Service.Check(ctx, "The Earth is approximately 4.5 billion years old.", &factcheck.Progress{
		OnStatus: func(s string) { statuses = append(statuses, s) },
	})

	t.Logf("verdict=%s search=%.2fs analysis=%.2fs", result.Verdict, result.SearchTime, result.AnalysisTime)
	assert.NotContains(t, result.Explanation, "Error during analysis")
	assert.Contains(t, []model.Verdict{model.VerdictTrue, model.VerdictMostlyTrue}, result.Verdict)
	assert.Greater(t, result.SearchTime, 0.0)
	assert.Contains(t, statuses, "Searching for evidence...")
	assert.Positive(t, a.Cache.Len())
}
