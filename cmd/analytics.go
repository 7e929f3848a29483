package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ovarra/leadgen-cli/internal/analytics"
	"github.com/ovarra/leadgen-cli/internal/model"
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Subreddit performance and discovery",
}

var analyticsReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show subreddit conversion rates and recent runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		tracker := analytics.NewTracker(st, cfg.Analytics)
		report, err := tracker.Report(ctx)
		if err != nil {
			return eris.Wrap(err, "analytics report")
		}

		formatReport(os.Stdout, report)

		runsLimit, _ := cmd.Flags().GetInt("runs")
		if runsLimit > 0 {
			runs, err := st.ListRuns(ctx, runsLimit)
			if err != nil {
				return eris.Wrap(err, "analytics report: list runs")
			}
			formatRuns(os.Stdout, runs)
		}
		return nil
	},
}

var analyticsDiscoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover candidate subreddits from community mentions",
	Long:  "Scrapes a seed subreddit and reports other communities mentioned in its posts and comments, excluding generic defaults and the subreddits already configured.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		seed, _ := cmd.Flags().GetString("seed")
		keywords, _ := cmd.Flags().GetStringSlice("keywords")
		limit, _ := cmd.Flags().GetInt("limit")
		if len(keywords) == 0 {
			keywords = cfg.Scrape.Keywords
		}

		client := initRedditClient()
		maxAge := time.Duration(cfg.Scrape.MaxAgeDays) * 24 * time.Hour

		var posts []model.Post
		for _, kw := range keywords {
			found, err := client.Search(ctx, seed, kw, limit, maxAge)
			if err != nil {
				return eris.Wrapf(err, "analytics discover: search %q", kw)
			}
			posts = append(posts, found...)
		}

		known := append([]string{seed}, cfg.Scrape.Subreddits...)
		discovered := analytics.DiscoverFromPosts(posts, known)

		if len(discovered) == 0 {
			fmt.Fprintln(os.Stderr, "No new subreddits mentioned.")
			return nil
		}
		for _, name := range discovered {
			fmt.Printf("r/%s\n", name)
		}
		return nil
	},
}

func init() {
	analyticsReportCmd.Flags().Int("runs", 10, "number of recent runs to include (0 disables)")

	analyticsDiscoverCmd.Flags().String("seed", "", "seed subreddit to mine for mentions (required)")
	analyticsDiscoverCmd.Flags().StringSlice("keywords", nil, "search keywords (default from config)")
	analyticsDiscoverCmd.Flags().Int("limit", 50, "max posts per keyword search")
	_ = analyticsDiscoverCmd.MarkFlagRequired("seed")

	analyticsCmd.AddCommand(analyticsReportCmd)
	analyticsCmd.AddCommand(analyticsDiscoverCmd)
	rootCmd.AddCommand(analyticsCmd)
}

func formatReport(out io.Writer, report *analytics.Report) {
	if len(report.Stats) == 0 {
		fmt.Fprintln(out, "No subreddit data yet.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SUBREDDIT\tPOSTS\tRELEVANT\tCONVERSION\tRUNS\tLAST_SCRAPED")
	for _, s := range report.Stats {
		_, _ = fmt.Fprintf(w, "r/%s\t%d\t%d\t%.1f%%\t%d\t%s\n",
			s.Name, s.TotalPosts, s.TotalRelevant, s.ConversionRate*100,
			s.Runs, s.LastScraped.Format("2006-01-02"))
	}
	_ = w.Flush()

	if len(report.Recommended) > 0 {
		names := make([]string, len(report.Recommended))
		for i, name := range report.Recommended {
			names[i] = "r/" + name
		}
		fmt.Fprintf(out, "\nRecommended (high conversion): %s\n", strings.Join(names, ", "))
	}
	if len(report.LowPerformers) > 0 {
		names := make([]string, len(report.LowPerformers))
		for i, name := range report.LowPerformers {
			names[i] = "r/" + name
		}
		fmt.Fprintf(out, "Low performers (consider dropping): %s\n", strings.Join(names, ", "))
	}
}

func formatRuns(out io.Writer, runs []model.Run) {
	if len(runs) == 0 {
		return
	}

	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RUN\tSTATUS\tPROCESSED\tSKIPPED\tFAILED\tSTARTED")
	for _, r := range runs {
		processed, skipped, failed := "-", "-", "-"
		if r.Summary != nil {
			processed = fmt.Sprintf("%d", r.Summary.Processed)
			skipped = fmt.Sprintf("%d", r.Summary.Skipped)
			failed = fmt.Sprintf("%d", r.Summary.Failed)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Status, processed, skipped, failed, r.CreatedAt.Format("2006-01-02 15:04"))
	}
	_ = w.Flush()
}
