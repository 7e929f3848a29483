package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ovarra/leadgen-cli/internal/store"
	"github.com/ovarra/leadgen-cli/pkg/reddit"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "leadgen.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore is initStore plus migration, the common path for every command.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func initRedditClient() reddit.Client {
	return reddit.NewClient(reddit.Options{
		BaseURL:   cfg.Reddit.BaseURL,
		UserAgent: cfg.Reddit.UserAgent,
		Limiter:   reddit.NewLimiter(time.Duration(cfg.Reddit.MinDelaySecs) * time.Second),
		Timeout:   time.Duration(cfg.Reddit.TimeoutSecs) * time.Second,
	})
}
