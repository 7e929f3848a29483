package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/ovarra/leadgen-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS suggestions (
	id         TEXT PRIMARY KEY,
	post_title TEXT NOT NULL,
	post_url   TEXT NOT NULL UNIQUE,
	subreddit  TEXT NOT NULL,
	reply      TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'new',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
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
	is_authentic       INTEGER NOT NULL DEFAULT 0,
	is_active          INTEGER NOT NULL DEFAULT 0,
	source_posts       TEXT NOT NULL DEFAULT '[]',
	contact_status     TEXT NOT NULL DEFAULT 'pending',
	social_links       TEXT,
	first_seen         DATETIME NOT NULL,
	last_updated       DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS checkpoints (
	run_key   TEXT NOT NULL,
	stage     TEXT NOT NULL,
	stage_idx INTEGER NOT NULL,
	posts     TEXT NOT NULL,
	summary   TEXT NOT NULL DEFAULT '{}',
	saved_at  DATETIME NOT NULL,
	PRIMARY KEY (run_key, stage)
);

CREATE TABLE IF NOT EXISTS subreddit_stats (
	name           TEXT PRIMARY KEY,
	total_posts    INTEGER NOT NULL DEFAULT 0,
	total_relevant INTEGER NOT NULL DEFAULT 0,
	runs           INTEGER NOT NULL DEFAULT 0,
	first_seen     DATETIME NOT NULL,
	last_scraped   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	params     TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	summary    TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_suggestions_created_at ON suggestions(created_at);
CREATE INDEX IF NOT EXISTS idx_redditors_priority ON redditors(priority);
CREATE INDEX IF NOT EXISTS idx_redditors_last_updated ON redditors(last_updated);
CREATE INDEX IF NOT EXISTS idx_checkpoints_run_key ON checkpoints(run_key);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Suggestions

func (s *SQLiteStore) InsertSuggestion(ctx context.Context, sg model.Suggestion) error {
	if sg.ID == "" {
		sg.ID = uuid.New().String()
	}
	if sg.CreatedAt.IsZero() {
		sg.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO suggestions (id, post_title, post_url, subreddit, reply, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sg.ID, sg.PostTitle, sg.PostURL, sg.Subreddit, sg.Reply, string(sg.Status), sg.CreatedAt,
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return eris.Wrapf(ErrDuplicateSuggestion, "sqlite: insert suggestion %s", sg.PostURL)
	}
	return eris.Wrap(err, "sqlite: insert suggestion")
}

func (s *SQLiteStore) SuggestionExists(ctx context.Context, postURL string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM suggestions WHERE post_url = ?`, postURL,
	).Scan(&n)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: suggestion exists")
	}
	return n > 0, nil
}

func (s *SQLiteStore) ListRecentSuggestions(ctx context.Context, since time.Time) ([]model.Suggestion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, post_title, post_url, subreddit, reply, status, created_at
		 FROM suggestions WHERE created_at >= ? ORDER BY created_at DESC`,
		since,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list suggestions")
	}
	defer rows.Close()

	var out []model.Suggestion
	for rows.Next() {
		var sg model.Suggestion
		if err := rows.Scan(&sg.ID, &sg.PostTitle, &sg.PostURL, &sg.Subreddit, &sg.Reply, &sg.Status, &sg.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan suggestion")
		}
		out = append(out, sg)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list suggestions iterate")
}

func (s *SQLiteStore) UpdateSuggestionStatus(ctx context.Context, id string, status model.SuggestionStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE suggestions SET status = ? WHERE id = ?`, string(status), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update suggestion status %s", id)
	}
	return checkRowsAffected(res, "suggestion", id)
}

// Redditors

func (s *SQLiteStore) GetRedditor(ctx context.Context, username string) (*model.RedditorProfile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT username, account_age_days, total_karma, comment_karma, post_karma,
		        authenticity_score, need_score, priority, is_authentic, is_active,
		        source_posts, contact_status, social_links, first_seen, last_updated
		 FROM redditors WHERE username = ?`,
		username,
	)
	p, err := scanRedditor(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get redditor %s", username)
	}
	return p, nil
}

func (s *SQLiteStore) UpsertRedditor(ctx context.Context, p *model.RedditorProfile) error {
	sourcePosts, socialLinks, err := marshalRedditorJSON(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO redditors
		 (username, account_age_days, total_karma, comment_karma, post_karma,
		  authenticity_score, need_score, priority, is_authentic, is_active,
		  source_posts, contact_status, social_links, first_seen, last_updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (username) DO UPDATE SET
		   account_age_days = excluded.account_age_days,
		   total_karma = excluded.total_karma,
		   comment_karma = excluded.comment_karma,
		   post_karma = excluded.post_karma,
		   authenticity_score = excluded.authenticity_score,
		   need_score = excluded.need_score,
		   priority = excluded.priority,
		   is_authentic = excluded.is_authentic,
		   is_active = excluded.is_active,
		   source_posts = excluded.source_posts,
		   social_links = excluded.social_links,
		   last_updated = excluded.last_updated`,
		p.Username, p.AccountAgeDays, p.TotalKarma, p.CommentKarma, p.PostKarma,
		p.AuthenticityScore, p.NeedScore, string(p.Priority), p.IsAuthentic, p.IsActive,
		sourcePosts, string(p.ContactStatus), socialLinks, p.FirstSeen, p.LastUpdated,
	)
	return eris.Wrapf(err, "sqlite: upsert redditor %s", p.Username)
}

func (s *SQLiteStore) ListRedditors(ctx context.Context, filter RedditorFilter) ([]model.RedditorProfile, error) {
	query := `SELECT username, account_age_days, total_karma, comment_karma, post_karma,
	                 authenticity_score, need_score, priority, is_authentic, is_active,
	                 source_posts, contact_status, social_links, first_seen, last_updated
	          FROM redditors WHERE 1=1`
	var args []any

	if filter.Priority != "" {
		query += ` AND priority = ?`
		args = append(args, string(filter.Priority))
	}
	if filter.ContactStatus != "" {
		query += ` AND contact_status = ?`
		args = append(args, string(filter.ContactStatus))
	}
	if filter.AuthenticOnly {
		query += ` AND is_authentic = 1`
	}
	query += ` ORDER BY need_score DESC, username ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list redditors")
	}
	defer rows.Close()

	return collectRedditors(rows)
}

func (s *SQLiteStore) UpdateContactStatus(ctx context.Context, username string, status model.ContactStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE redditors SET contact_status = ?, last_updated = ? WHERE username = ?`,
		string(status), time.Now().UTC(), username,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update contact status %s", username)
	}
	return checkRowsAffected(res, "redditor", username)
}

func (s *SQLiteStore) ListStaleRedditors(ctx context.Context, olderThan time.Time, limit int) ([]model.RedditorProfile, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT username, account_age_days, total_karma, comment_karma, post_karma,
		        authenticity_score, need_score, priority, is_authentic, is_active,
		        source_posts, contact_status, social_links, first_seen, last_updated
		 FROM redditors WHERE last_updated < ? ORDER BY last_updated ASC LIMIT ?`,
		olderThan, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list stale redditors")
	}
	defer rows.Close()

	return collectRedditors(rows)
}

// Checkpoints

func (s *SQLiteStore) SaveCheckpoint(ctx context.Context, rec model.CheckpointRecord) error {
	postsJSON, err := json.Marshal(rec.Posts)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal checkpoint posts")
	}
	summaryJSON, err := json.Marshal(rec.Summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal checkpoint summary")
	}
	if rec.SavedAt.IsZero() {
		rec.SavedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO checkpoints (run_key, stage, stage_idx, posts, summary, saved_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (run_key, stage) DO UPDATE SET
		   stage_idx = excluded.stage_idx, posts = excluded.posts,
		   summary = excluded.summary, saved_at = excluded.saved_at`,
		rec.RunKey, string(rec.Stage), model.StageIndex(rec.Stage), string(postsJSON), string(summaryJSON), rec.SavedAt,
	)
	return eris.Wrapf(err, "sqlite: save checkpoint %s/%s", rec.RunKey, rec.Stage)
}

func (s *SQLiteStore) LatestCheckpoint(ctx context.Context, runKey string) (*model.CheckpointRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_key, stage, posts, summary, saved_at FROM checkpoints
		 WHERE run_key = ? ORDER BY stage_idx DESC LIMIT 1`,
		runKey,
	)

	var rec model.CheckpointRecord
	var postsJSON, summaryJSON string
	err := row.Scan(&rec.RunKey, &rec.Stage, &postsJSON, &summaryJSON, &rec.SavedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: latest checkpoint %s", runKey)
	}
	if err := json.Unmarshal([]byte(postsJSON), &rec.Posts); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal checkpoint posts")
	}
	if err := json.Unmarshal([]byte(summaryJSON), &rec.Summary); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal checkpoint summary")
	}
	return &rec, nil
}

func (s *SQLiteStore) ClearCheckpoints(ctx context.Context, runKey string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE run_key = ?`, runKey)
	return eris.Wrapf(err, "sqlite: clear checkpoints %s", runKey)
}

// Subreddit stats

func (s *SQLiteStore) RecordSubredditStat(ctx context.Context, name string, totalPosts, relevantPosts int) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subreddit_stats (name, total_posts, total_relevant, runs, first_seen, last_scraped)
		 VALUES (?, ?, ?, 1, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET
		   total_posts = total_posts + excluded.total_posts,
		   total_relevant = total_relevant + excluded.total_relevant,
		   runs = runs + 1,
		   last_scraped = excluded.last_scraped`,
		name, totalPosts, relevantPosts, now, now,
	)
	return eris.Wrapf(err, "sqlite: record subreddit stat %s", name)
}

func (s *SQLiteStore) ListSubredditStats(ctx context.Context) ([]model.SubredditStat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, total_posts, total_relevant, runs, first_seen, last_scraped
		 FROM subreddit_stats ORDER BY name`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list subreddit stats")
	}
	defer rows.Close()

	var out []model.SubredditStat
	for rows.Next() {
		var st model.SubredditStat
		if err := rows.Scan(&st.Name, &st.TotalPosts, &st.TotalRelevant, &st.Runs, &st.FirstSeen, &st.LastScraped); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan subreddit stat")
		}
		if st.TotalPosts > 0 {
			st.ConversionRate = float64(st.TotalRelevant) / float64(st.TotalPosts)
		}
		out = append(out, st)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list subreddit stats iterate")
}

// Runs

func (s *SQLiteStore) CreateRun(ctx context.Context, params model.ScrapeParams) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal params")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, params, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(paramsJSON), "running", now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Params:    params,
		Status:    "running",
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET summary = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(summaryJSON), string(summary.Status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, params, status, summary, created_at, updated_at
		 FROM runs ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var paramsJSON string
		var summaryJSON sql.NullString
		if err := rows.Scan(&r.ID, &paramsJSON, &r.Status, &summaryJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		if err := json.Unmarshal([]byte(paramsJSON), &r.Params); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal params")
		}
		if summaryJSON.Valid {
			r.Summary = &model.RunSummary{}
			if err := json.Unmarshal([]byte(summaryJSON.String), r.Summary); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal summary")
			}
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func marshalRedditorJSON(p *model.RedditorProfile) (sourcePosts string, socialLinks sql.NullString, err error) {
	sp, err := json.Marshal(p.SourcePosts)
	if err != nil {
		return "", sql.NullString{}, eris.Wrap(err, "marshal source posts")
	}
	if len(p.SocialLinks) > 0 {
		sl, err := json.Marshal(p.SocialLinks)
		if err != nil {
			return "", sql.NullString{}, eris.Wrap(err, "marshal social links")
		}
		socialLinks = sql.NullString{String: string(sl), Valid: true}
	}
	return string(sp), socialLinks, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRedditor(row scannable) (*model.RedditorProfile, error) {
	var p model.RedditorProfile
	var sourcePosts string
	var socialLinks sql.NullString

	err := row.Scan(&p.Username, &p.AccountAgeDays, &p.TotalKarma, &p.CommentKarma, &p.PostKarma,
		&p.AuthenticityScore, &p.NeedScore, &p.Priority, &p.IsAuthentic, &p.IsActive,
		&sourcePosts, &p.ContactStatus, &socialLinks, &p.FirstSeen, &p.LastUpdated)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(sourcePosts), &p.SourcePosts); err != nil {
		return nil, eris.Wrap(err, "unmarshal source posts")
	}
	if socialLinks.Valid {
		if err := json.Unmarshal([]byte(socialLinks.String), &p.SocialLinks); err != nil {
			return nil, eris.Wrap(err, "unmarshal social links")
		}
	}
	return &p, nil
}

func collectRedditors(rows *sql.Rows) ([]model.RedditorProfile, error) {
	var out []model.RedditorProfile
	for rows.Next() {
		p, err := scanRedditor(rows)
		if err != nil {
			return nil, eris.Wrap(err, "scan redditor")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "iterate redditors")
}
