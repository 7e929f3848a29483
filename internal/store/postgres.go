package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/ovarra/leadgen-cli/internal/db"
	"github.com/ovarra/leadgen-cli/internal/model"
)

// pgUniqueViolation is the SQLSTATE code for unique constraint violations.
const pgUniqueViolation = "23505"

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// the hot paths: the dedup gate and redditor upserts run once per item.
var preparedStatements = map[string]string{
	"suggestion_exists": `SELECT COUNT(1) FROM suggestions WHERE post_url = $1`,
	"get_redditor": `SELECT username, account_age_days, total_karma, comment_karma, post_karma,
	        authenticity_score, need_score, priority, is_authentic, is_active,
	        source_posts, contact_status, social_links, first_seen, last_updated
	 FROM redditors WHERE username = $1`,
	"latest_checkpoint": `SELECT run_key, stage, posts, summary, saved_at FROM checkpoints
	 WHERE run_key = $1 ORDER BY stage_idx DESC LIMIT 1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Tests inject pgxmock here.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS suggestions (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	post_title TEXT NOT NULL,
	post_url   TEXT NOT NULL UNIQUE,
	subreddit  TEXT NOT NULL,
	reply      TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'new',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS redditors (
	username           TEXT PRIMARY KEY,
	account_age_days   INTEGER NOT NULL DEFAULT 0,
	total_karma        INTEGER NOT NULL DEFAULT 0,
	comment_karma      INTEGER NOT NULL DEFAULT 0,
	post_karma         INTEGER NOT NULL DEFAULT 0,
	authenticity_score INTEGER NOT NULL DEFAULT 0,
	need_score         INTEGER NOT NULL DEFAULT 0,
	priority           TEXT NOT NULL DEFAULT 'low',
	is_authentic       BOOLEAN NOT NULL DEFAULT false,
	is_active          BOOLEAN NOT NULL DEFAULT false,
	source_posts       JSONB NOT NULL DEFAULT '[]',
	contact_status     TEXT NOT NULL DEFAULT 'pending',
	social_links       JSONB,
	first_seen         TIMESTAMPTZ NOT NULL,
	last_updated       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS checkpoints (
	run_key   TEXT NOT NULL,
	stage     TEXT NOT NULL,
	stage_idx INTEGER NOT NULL,
	posts     JSONB NOT NULL,
	summary   JSONB NOT NULL DEFAULT '{}',
	saved_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (run_key, stage)
);

CREATE TABLE IF NOT EXISTS subreddit_stats (
	name           TEXT PRIMARY KEY,
	total_posts    INTEGER NOT NULL DEFAULT 0,
	total_relevant INTEGER NOT NULL DEFAULT 0,
	runs           INTEGER NOT NULL DEFAULT 0,
	first_seen     TIMESTAMPTZ NOT NULL,
	last_scraped   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	params     JSONB NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	summary    JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_suggestions_created_at ON suggestions(created_at);
CREATE INDEX IF NOT EXISTS idx_redditors_priority ON redditors(priority);
CREATE INDEX IF NOT EXISTS idx_redditors_last_updated ON redditors(last_updated);
CREATE INDEX IF NOT EXISTS idx_checkpoints_run_key ON checkpoints(run_key);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// Suggestions

func (s *PostgresStore) InsertSuggestion(ctx context.Context, sg model.Suggestion) error {
	if sg.ID == "" {
		sg.ID = uuid.New().String()
	}
	if sg.CreatedAt.IsZero() {
		sg.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO suggestions (id, post_title, post_url, subreddit, reply, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sg.ID, sg.PostTitle, sg.PostURL, sg.Subreddit, sg.Reply, string(sg.Status), sg.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return eris.Wrapf(ErrDuplicateSuggestion, "postgres: insert suggestion %s", sg.PostURL)
	}
	return eris.Wrap(err, "postgres: insert suggestion")
}

func (s *PostgresStore) SuggestionExists(ctx context.Context, postURL string) (bool, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(1) FROM suggestions WHERE post_url = $1`, postURL,
	).Scan(&n)
	if err != nil {
		return false, eris.Wrap(err, "postgres: suggestion exists")
	}
	return n > 0, nil
}

func (s *PostgresStore) ListRecentSuggestions(ctx context.Context, since time.Time) ([]model.Suggestion, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, post_title, post_url, subreddit, reply, status, created_at
		 FROM suggestions WHERE created_at >= $1 ORDER BY created_at DESC`,
		since,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list suggestions")
	}
	defer rows.Close()

	var out []model.Suggestion
	for rows.Next() {
		var sg model.Suggestion
		if err := rows.Scan(&sg.ID, &sg.PostTitle, &sg.PostURL, &sg.Subreddit, &sg.Reply, &sg.Status, &sg.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan suggestion")
		}
		out = append(out, sg)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list suggestions iterate")
}

func (s *PostgresStore) UpdateSuggestionStatus(ctx context.Context, id string, status model.SuggestionStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE suggestions SET status = $1 WHERE id = $2`, string(status), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update suggestion status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("suggestion not found: %s", id)
	}
	return nil
}

// Redditors

func (s *PostgresStore) GetRedditor(ctx context.Context, username string) (*model.RedditorProfile, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT username, account_age_days, total_karma, comment_karma, post_karma,
		        authenticity_score, need_score, priority, is_authentic, is_active,
		        source_posts, contact_status, social_links, first_seen, last_updated
		 FROM redditors WHERE username = $1`,
		username,
	)
	p, err := scanPgRedditor(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get redditor %s", username)
	}
	return p, nil
}

func (s *PostgresStore) UpsertRedditor(ctx context.Context, p *model.RedditorProfile) error {
	sourcePosts, err := json.Marshal(p.SourcePosts)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal source posts")
	}
	var socialLinks []byte
	if len(p.SocialLinks) > 0 {
		socialLinks, err = json.Marshal(p.SocialLinks)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal social links")
		}
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO redditors
		 (username, account_age_days, total_karma, comment_karma, post_karma,
		  authenticity_score, need_score, priority, is_authentic, is_active,
		  source_posts, contact_status, social_links, first_seen, last_updated)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (username) DO UPDATE SET
		   account_age_days = $2, total_karma = $3, comment_karma = $4, post_karma = $5,
		   authenticity_score = $6, need_score = $7, priority = $8, is_authentic = $9,
		   is_active = $10, source_posts = $11, social_links = $13, last_updated = $15`,
		p.Username, p.AccountAgeDays, p.TotalKarma, p.CommentKarma, p.PostKarma,
		p.AuthenticityScore, p.NeedScore, string(p.Priority), p.IsAuthentic, p.IsActive,
		sourcePosts, string(p.ContactStatus), socialLinks, p.FirstSeen, p.LastUpdated,
	)
	return eris.Wrapf(err, "postgres: upsert redditor %s", p.Username)
}

func (s *PostgresStore) ListRedditors(ctx context.Context, filter RedditorFilter) ([]model.RedditorProfile, error) {
	query := `SELECT username, account_age_days, total_karma, comment_karma, post_karma,
	                 authenticity_score, need_score, priority, is_authentic, is_active,
	                 source_posts, contact_status, social_links, first_seen, last_updated
	          FROM redditors WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Priority != "" {
		query += fmt.Sprintf(` AND priority = $%d`, argIdx)
		args = append(args, string(filter.Priority))
		argIdx++
	}
	if filter.ContactStatus != "" {
		query += fmt.Sprintf(` AND contact_status = $%d`, argIdx)
		args = append(args, string(filter.ContactStatus))
		argIdx++
	}
	if filter.AuthenticOnly {
		query += ` AND is_authentic`
	}
	query += ` ORDER BY need_score DESC, username ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list redditors")
	}
	defer rows.Close()

	return collectPgRedditors(rows)
}

func (s *PostgresStore) UpdateContactStatus(ctx context.Context, username string, status model.ContactStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE redditors SET contact_status = $1, last_updated = $2 WHERE username = $3`,
		string(status), time.Now().UTC(), username,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update contact status %s", username)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("redditor not found: %s", username)
	}
	return nil
}

func (s *PostgresStore) ListStaleRedditors(ctx context.Context, olderThan time.Time, limit int) ([]model.RedditorProfile, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT username, account_age_days, total_karma, comment_karma, post_karma,
		        authenticity_score, need_score, priority, is_authentic, is_active,
		        source_posts, contact_status, social_links, first_seen, last_updated
		 FROM redditors WHERE last_updated < $1 ORDER BY last_updated ASC LIMIT $2`,
		olderThan, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list stale redditors")
	}
	defer rows.Close()

	return collectPgRedditors(rows)
}

// Checkpoints

func (s *PostgresStore) SaveCheckpoint(ctx context.Context, rec model.CheckpointRecord) error {
	postsJSON, err := json.Marshal(rec.Posts)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal checkpoint posts")
	}
	summaryJSON, err := json.Marshal(rec.Summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal checkpoint summary")
	}
	if rec.SavedAt.IsZero() {
		rec.SavedAt = time.Now().UTC()
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO checkpoints (run_key, stage, stage_idx, posts, summary, saved_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (run_key, stage) DO UPDATE SET
		   stage_idx = $3, posts = $4, summary = $5, saved_at = $6`,
		rec.RunKey, string(rec.Stage), model.StageIndex(rec.Stage), postsJSON, summaryJSON, rec.SavedAt,
	)
	return eris.Wrapf(err, "postgres: save checkpoint %s/%s", rec.RunKey, rec.Stage)
}

func (s *PostgresStore) LatestCheckpoint(ctx context.Context, runKey string) (*model.CheckpointRecord, error) {
	var rec model.CheckpointRecord
	var postsJSON, summaryJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT run_key, stage, posts, summary, saved_at FROM checkpoints
		 WHERE run_key = $1 ORDER BY stage_idx DESC LIMIT 1`,
		runKey,
	).Scan(&rec.RunKey, &rec.Stage, &postsJSON, &summaryJSON, &rec.SavedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: latest checkpoint %s", runKey)
	}
	if err := json.Unmarshal(postsJSON, &rec.Posts); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal checkpoint posts")
	}
	if err := json.Unmarshal(summaryJSON, &rec.Summary); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal checkpoint summary")
	}
	return &rec, nil
}

func (s *PostgresStore) ClearCheckpoints(ctx context.Context, runKey string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM checkpoints WHERE run_key = $1`, runKey)
	return eris.Wrapf(err, "postgres: clear checkpoints %s", runKey)
}

// Subreddit stats

func (s *PostgresStore) RecordSubredditStat(ctx context.Context, name string, totalPosts, relevantPosts int) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO subreddit_stats (name, total_posts, total_relevant, runs, first_seen, last_scraped)
		 VALUES ($1, $2, $3, 1, $4, $4)
		 ON CONFLICT (name) DO UPDATE SET
		   total_posts = subreddit_stats.total_posts + $2,
		   total_relevant = subreddit_stats.total_relevant + $3,
		   runs = subreddit_stats.runs + 1,
		   last_scraped = $4`,
		name, totalPosts, relevantPosts, now,
	)
	return eris.Wrapf(err, "postgres: record subreddit stat %s", name)
}

func (s *PostgresStore) ListSubredditStats(ctx context.Context) ([]model.SubredditStat, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name, total_posts, total_relevant, runs, first_seen, last_scraped
		 FROM subreddit_stats ORDER BY name`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list subreddit stats")
	}
	defer rows.Close()

	var out []model.SubredditStat
	for rows.Next() {
		var st model.SubredditStat
		if err := rows.Scan(&st.Name, &st.TotalPosts, &st.TotalRelevant, &st.Runs, &st.FirstSeen, &st.LastScraped); err != nil {
			return nil, eris.Wrap(err, "postgres: scan subreddit stat")
		}
		if st.TotalPosts > 0 {
			st.ConversionRate = float64(st.TotalRelevant) / float64(st.TotalPosts)
		}
		out = append(out, st)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list subreddit stats iterate")
}

// Runs

func (s *PostgresStore) CreateRun(ctx context.Context, params model.ScrapeParams) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal params")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, params, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, paramsJSON, "running", now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Params:    params,
		Status:    "running",
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summary")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET summary = $1, status = $2, updated_at = $3 WHERE id = $4`,
		summaryJSON, string(summary.Status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, params, status, summary, created_at, updated_at
		 FROM runs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var paramsJSON []byte
		var summaryJSON []byte
		if err := rows.Scan(&r.ID, &paramsJSON, &r.Status, &summaryJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if err := json.Unmarshal(paramsJSON, &r.Params); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal params")
		}
		if len(summaryJSON) > 0 {
			r.Summary = &model.RunSummary{}
			if err := json.Unmarshal(summaryJSON, r.Summary); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal summary")
			}
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

// helpers

func scanPgRedditor(row pgx.Row) (*model.RedditorProfile, error) {
	var p model.RedditorProfile
	var sourcePosts []byte
	var socialLinks []byte

	err := row.Scan(&p.Username, &p.AccountAgeDays, &p.TotalKarma, &p.CommentKarma, &p.PostKarma,
		&p.AuthenticityScore, &p.NeedScore, &p.Priority, &p.IsAuthentic, &p.IsActive,
		&sourcePosts, &p.ContactStatus, &socialLinks, &p.FirstSeen, &p.LastUpdated)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(sourcePosts, &p.SourcePosts); err != nil {
		return nil, eris.Wrap(err, "unmarshal source posts")
	}
	if len(socialLinks) > 0 {
		if err := json.Unmarshal(socialLinks, &p.SocialLinks); err != nil {
			return nil, eris.Wrap(err, "unmarshal social links")
		}
	}
	return &p, nil
}

func collectPgRedditors(rows pgx.Rows) ([]model.RedditorProfile, error) {
	var out []model.RedditorProfile
	for rows.Next() {
		p, err := scanPgRedditor(rows)
		if err != nil {
			return nil, eris.Wrap(err, "scan redditor")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "iterate redditors")
}
