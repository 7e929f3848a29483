package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ovarra/leadgen-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config.yaml in the current directory",
	// Skips the root PersistentPreRunE: this command must work before any
	// config file exists.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		const path = "config.yaml"
		if _, err := os.Stat(path); err == nil {
			return eris.Errorf("%s already exists, refusing to overwrite", path)
		}

		data, err := yaml.Marshal(starterConfig())
		if err != nil {
			return eris.Wrap(err, "config init: marshal")
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return eris.Wrap(err, "config init: write")
		}

		fmt.Printf("wrote %s — set anthropic.key (or LEADGEN_ANTHROPIC_KEY) before running\n", path)
		return nil
	},
}

func starterConfig() *config.Config {
	return &config.Config{
		Store: config.StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: "leadgen.db",
		},
		Reddit: config.RedditConfig{
			UserAgent:           "leadgen-cli/1.0 (lead research; contact: ops@ovarra.com)",
			MinDelaySecs:        2,
			TimeoutSecs:         15,
			ProfileCommentLimit: 25,
		},
		Anthropic: config.AnthropicConfig{
			Model:             "claude-haiku-4-5-20251001",
			MaxTokens:         1024,
			ClassifyBatchSize: 10,
			BatchDelaySecs:    1,
		},
		Scrape: config.ScrapeConfig{
			Subreddits: []string{"CreatorsAdvice", "onlyfansadvice", "CreatorsHub"},
			Keywords:   []string{"leaked", "stolen content", "dmca", "takedown"},
			PostLimit:  25,
			MaxAgeDays: 30,
		},
		Scoring: config.ScoringConfig{
			Keywords: []string{
				"leak", "leaked", "stolen", "piracy", "pirated", "reposted",
				"dmca", "takedown", "copyright", "without my consent",
			},
			Denylist: []string{"AutoModerator", "[deleted]"},
		},
		Analytics: config.AnalyticsConfig{
			HighConversionRate: 0.10,
			LowConversionRate:  0.05,
			MinSamplePosts:     20,
		},
		Server: config.ServerConfig{Port: 8080},
		Log:    config.LogConfig{Level: "info", Format: "console"},
	}
}

func init() {
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
