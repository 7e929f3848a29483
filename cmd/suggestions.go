package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ovarra/leadgen-cli/internal/model"
)

var suggestionsCmd = &cobra.Command{
	Use:   "suggestions",
	Short: "Review drafted reply suggestions",
}

var suggestionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recently drafted suggestions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		hours, _ := cmd.Flags().GetInt("hours")
		since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)

		suggestions, err := st.ListRecentSuggestions(ctx, since)
		if err != nil {
			return eris.Wrap(err, "suggestions list")
		}

		if len(suggestions) == 0 {
			fmt.Fprintln(os.Stderr, "No suggestions found.")
			return nil
		}

		formatSuggestions(os.Stdout, suggestions)
		return nil
	},
}

var suggestionsStatusCmd = &cobra.Command{
	Use:   "status <suggestion-id> <new|approved|sent|ignored>",
	Short: "Update a suggestion's review status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		status := model.SuggestionStatus(args[1])
		if !model.ValidSuggestionStatus(status) {
			return eris.Errorf("unknown suggestion status: %s", args[1])
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.UpdateSuggestionStatus(ctx, args[0], status); err != nil {
			return eris.Wrap(err, "suggestions status")
		}

		fmt.Printf("suggestion %s → %s\n", args[0], status)
		return nil
	},
}

func init() {
	suggestionsListCmd.Flags().Int("hours", 24, "look-back window in hours")

	suggestionsCmd.AddCommand(suggestionsListCmd)
	suggestionsCmd.AddCommand(suggestionsStatusCmd)
	rootCmd.AddCommand(suggestionsCmd)
}

func formatSuggestions(out io.Writer, suggestions []model.Suggestion) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSUBREDDIT\tSTATUS\tCREATED\tTITLE")
	for _, s := range suggestions {
		title := s.PostTitle
		if len(title) > 60 {
			title = title[:57] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\tr/%s\t%s\t%s\t%s\n",
			s.ID, s.Subreddit, s.Status, s.CreatedAt.Format("2006-01-02 15:04"), title)
	}
	_ = w.Flush()
}
