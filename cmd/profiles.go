package main

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ovarra/leadgen-cli/internal/store"
	"github.com/ovarra/leadgen-cli/pkg/reddit"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Maintain stored redditor profiles",
}

var profilesRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-fetch profile data for stale redditors",
	Long:  "Refreshes age, karma, and social links for redditors whose stored profile is older than the given window. The concurrency limit only bounds in-flight work; the shared rate gate still spaces the platform calls.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		olderThan, _ := cmd.Flags().GetDuration("older-than")
		limit, _ := cmd.Flags().GetInt("limit")
		concurrency, _ := cmd.Flags().GetInt("concurrency")

		stale, err := st.ListStaleRedditors(ctx, time.Now().UTC().Add(-olderThan), limit)
		if err != nil {
			return eris.Wrap(err, "profiles refresh")
		}
		if len(stale) == 0 {
			fmt.Println("No stale profiles.")
			return nil
		}

		client := initRedditClient()
		var refreshed, vanished atomic.Int64

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)
		for _, rec := range stale {
			g.Go(func() error {
				switch err := refreshProfile(gctx, st, client, rec.Username); {
				case err == nil:
					refreshed.Add(1)
				case errors.Is(err, reddit.ErrNotFound):
					vanished.Add(1)
					zap.L().Info("profile vanished", zap.String("username", rec.Username))
				default:
					zap.L().Warn("profile refresh failed", zap.String("username", rec.Username), zap.Error(err))
				}
				return gctx.Err()
			})
		}
		if err := g.Wait(); err != nil {
			return eris.Wrap(err, "profiles refresh")
		}

		fmt.Printf("refreshed %d of %d stale profiles (%d vanished)\n",
			refreshed.Load(), len(stale), vanished.Load())
		return nil
	},
}

func refreshProfile(ctx context.Context, st store.Store, client reddit.Client, username string) error {
	profile, err := client.Profile(ctx, username)
	if err != nil {
		return err
	}

	rec, err := st.GetRedditor(ctx, username)
	if err != nil {
		return err
	}
	if rec == nil {
		return eris.Errorf("redditor %s disappeared from store", username)
	}

	now := time.Now().UTC()
	rec.AccountAgeDays = profile.AccountAgeDays(now)
	rec.TotalKarma = profile.TotalKarma
	rec.CommentKarma = profile.CommentKarma
	rec.PostKarma = profile.PostKarma
	rec.SocialLinks = profile.SocialLinks
	rec.LastUpdated = now

	return st.UpsertRedditor(ctx, rec)
}

func init() {
	profilesRefreshCmd.Flags().Duration("older-than", 7*24*time.Hour, "refresh profiles not updated within this window")
	profilesRefreshCmd.Flags().Int("limit", 100, "max profiles to refresh in one pass")
	profilesRefreshCmd.Flags().Int("concurrency", 4, "max in-flight refreshes")

	profilesCmd.AddCommand(profilesRefreshCmd)
	rootCmd.AddCommand(profilesCmd)
}
