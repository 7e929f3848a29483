package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ovarra/leadgen-cli/internal/model"
	"github.com/ovarra/leadgen-cli/internal/store"
)

var redditorsCmd = &cobra.Command{
	Use:   "redditors",
	Short: "Inspect scored redditor leads",
}

var redditorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scored redditors",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		priority, _ := cmd.Flags().GetString("priority")
		status, _ := cmd.Flags().GetString("status")
		authentic, _ := cmd.Flags().GetBool("authentic")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := store.RedditorFilter{
			Priority:      model.Priority(priority),
			ContactStatus: model.ContactStatus(status),
			AuthenticOnly: authentic,
			Limit:         limit,
		}

		redditors, err := st.ListRedditors(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "redditors list")
		}

		if len(redditors) == 0 {
			fmt.Fprintln(os.Stderr, "No redditors found.")
			return nil
		}

		formatRedditors(os.Stdout, redditors)
		return nil
	},
}

var redditorsStatusCmd = &cobra.Command{
	Use:   "status <username> <pending|approved|contacted|responded|rejected>",
	Short: "Update a redditor's outreach status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		status := model.ContactStatus(args[1])
		if !model.ValidContactStatus(status) {
			return eris.Errorf("unknown contact status: %s", args[1])
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.UpdateContactStatus(ctx, args[0], status); err != nil {
			return eris.Wrap(err, "redditors status")
		}

		fmt.Printf("u/%s → %s\n", args[0], status)
		return nil
	},
}

func init() {
	redditorsListCmd.Flags().String("priority", "", "filter by priority (high, medium, low)")
	redditorsListCmd.Flags().String("status", "", "filter by contact status")
	redditorsListCmd.Flags().Bool("authentic", false, "only authentic accounts")
	redditorsListCmd.Flags().Int("limit", 50, "max redditors to display")

	redditorsCmd.AddCommand(redditorsListCmd)
	redditorsCmd.AddCommand(redditorsStatusCmd)
	rootCmd.AddCommand(redditorsCmd)
}

func formatRedditors(out io.Writer, redditors []model.RedditorProfile) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "USERNAME\tPRIORITY\tNEED\tAUTH\tKARMA\tAGE_DAYS\tCONTACT\tPOSTS\tLINKS")
	for _, r := range redditors {
		links := "-"
		if len(r.SocialLinks) > 0 {
			platforms := make([]string, 0, len(r.SocialLinks))
			for platform := range r.SocialLinks {
				platforms = append(platforms, platform)
			}
			sort.Strings(platforms)
			links = strings.Join(platforms, ",")
		}
		_, _ = fmt.Fprintf(w, "u/%s\t%s\t%d\t%d\t%d\t%d\t%s\t%d\t%s\n",
			r.Username, r.Priority, r.NeedScore, r.AuthenticityScore,
			r.TotalKarma, r.AccountAgeDays, r.ContactStatus, len(r.SourcePosts), links)
	}
	_ = w.Flush()
}
