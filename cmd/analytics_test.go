package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ovarra/leadgen-cli/internal/analytics"
	"github.com/ovarra/leadgen-cli/internal/model"
)

func TestFormatReport(t *testing.T) {
	var b strings.Builder
	formatReport(&b, &analytics.Report{
		Stats: []model.SubredditStat{
			{Name: "hot_sub", TotalPosts: 30, TotalRelevant: 6, ConversionRate: 0.2, Runs: 3, LastScraped: time.Now().UTC()},
			{Name: "quiet_sub", TotalPosts: 40, TotalRelevant: 1, ConversionRate: 0.025, Runs: 4, LastScraped: time.Now().UTC()},
		},
		Recommended:   []string{"hot_sub"},
		LowPerformers: []string{"quiet_sub"},
		GeneratedAt:   time.Now().UTC(),
	})

	out := b.String()
	assert.Contains(t, out, "r/hot_sub")
	assert.Contains(t, out, "Recommended (high conversion): r/hot_sub")
	assert.Contains(t, out, "Low performers (consider dropping): r/quiet_sub")
}

func TestFormatReport_Empty(t *testing.T) {
	var b strings.Builder
	formatReport(&b, &analytics.Report{GeneratedAt: time.Now().UTC()})
	assert.Contains(t, b.String(), "No subreddit data yet.")
}

func TestFormatRuns(t *testing.T) {
	var b strings.Builder
	formatRuns(&b, []model.Run{
		{
			ID:        "run-1",
			Status:    "success",
			Summary:   &model.RunSummary{Processed: 2, Skipped: 1},
			CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		},
		{ID: "run-2", Status: "failure", CreatedAt: time.Date(2026, 8, 2, 9, 30, 0, 0, time.UTC)},
	})

	out := b.String()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "success")
	// A run without a recorded summary renders dashes, not zeros.
	assert.Contains(t, out, "-")
}
