package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ovarra/leadgen-cli/internal/model"
	"github.com/ovarra/leadgen-cli/internal/pipeline"
	anthropicpkg "github.com/ovarra/leadgen-cli/pkg/anthropic"
)

var (
	runSubreddits []string
	runKeywords   []string
	runPostLimit  int
	runMaxAgeDays int
	runForce      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the lead-generation pipeline once",
	Long:  "Scrapes the configured subreddits, classifies posts, drafts reply suggestions, and scores the participants. Interrupted runs resume from their last completed stage; --force starts over.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate(); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		params := model.ScrapeParams{
			Subreddits: runSubreddits,
			Keywords:   runKeywords,
			PostLimit:  runPostLimit,
			MaxAgeDays: runMaxAgeDays,
			Force:      runForce,
		}
		if len(params.Subreddits) == 0 {
			params.Subreddits = cfg.Scrape.Subreddits
		}
		if len(params.Keywords) == 0 {
			params.Keywords = cfg.Scrape.Keywords
		}
		if params.PostLimit == 0 {
			params.PostLimit = cfg.Scrape.PostLimit
		}
		if params.MaxAgeDays == 0 {
			params.MaxAgeDays = cfg.Scrape.MaxAgeDays
		}

		p := pipeline.New(cfg, st, initRedditClient(), anthropicpkg.NewClient(cfg.Anthropic.Key))

		summary, err := p.Run(ctx, params)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("run finished",
			zap.String("status", string(summary.Status)),
			zap.Int("processed", summary.Processed),
			zap.Int("skipped", summary.Skipped),
			zap.Int("failed", summary.Failed),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	runCmd.Flags().StringSliceVar(&runSubreddits, "subreddits", nil, "subreddits to scrape (default from config)")
	runCmd.Flags().StringSliceVar(&runKeywords, "keywords", nil, "search keywords (default from config)")
	runCmd.Flags().IntVar(&runPostLimit, "limit", 0, "max posts per subreddit×keyword search (default from config)")
	runCmd.Flags().IntVar(&runMaxAgeDays, "max-age-days", 0, "ignore posts older than this many days (default from config)")
	runCmd.Flags().BoolVar(&runForce, "force", false, "discard checkpoints and start the run from scratch")
	rootCmd.AddCommand(runCmd)
}
