// Package reddit wraps Reddit's public JSON API with rate limiting and
// retry. All calls are side-effect-free reads and safe to repeat.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ovarra/leadgen-cli/internal/model"
	"github.com/ovarra/leadgen-cli/internal/resilience"
)

// ErrNotFound marks a deleted, suspended, or private upstream resource.
// It is wrapped as permanent and never retried.
var ErrNotFound = eris.New("reddit: not found")

// Client defines the Reddit read operations used by the pipeline.
type Client interface {
	// Search returns posts matching keyword in the subreddit, newest first,
	// excluding posts older than maxAge.
	Search(ctx context.Context, subreddit, keyword string, limit int, maxAge time.Duration) ([]model.Post, error)

	// Comments fetches the full comment tree for a post URL.
	Comments(ctx context.Context, postURL string) ([]model.Comment, error)

	// Profile fetches a user's profile. Returns ErrNotFound (permanent) for
	// deleted, suspended, or private accounts.
	Profile(ctx context.Context, username string) (*Profile, error)

	// UserComments fetches a bounded window of a user's recent comments.
	UserComments(ctx context.Context, username string, limit int) ([]model.Comment, error)
}

// Options configures the HTTP client.
type Options struct {
	// BaseURL defaults to https://www.reddit.com. Overridable for tests.
	BaseURL string

	// UserAgent is required by Reddit's API guidelines.
	UserAgent string

	// Limiter is the shared process-wide rate gate. All clients hitting the
	// platform must share one limiter; per-run limiters would compound into
	// aggregate violations.
	Limiter *rate.Limiter

	// Timeout for individual HTTP requests. Default: 15s.
	Timeout time.Duration

	// Retry overrides the default retry policy.
	Retry *resilience.RetryConfig
}

// NewLimiter builds the process-wide rate gate with the given minimum delay
// between calls.
func NewLimiter(minDelay time.Duration) *rate.Limiter {
	if minDelay <= 0 {
		minDelay = 2 * time.Second
	}
	return rate.NewLimiter(rate.Every(minDelay), 1)
}

type httpClient struct {
	http      *http.Client
	baseURL   string
	userAgent string
	limiter   *rate.Limiter
	retry     resilience.RetryConfig
}

// NewClient creates a Client backed by Reddit's public JSON API.
func NewClient(opts Options) Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://www.reddit.com"
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "leadgen-cli/1.0"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Limiter == nil {
		opts.Limiter = NewLimiter(0)
	}
	retry := resilience.DefaultRetryConfig()
	if opts.Retry != nil {
		retry = *opts.Retry
	}
	return &httpClient{
		http:      &http.Client{Timeout: opts.Timeout},
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		limiter:   opts.Limiter,
		retry:     retry,
	}
}

func (c *httpClient) Search(ctx context.Context, subreddit, keyword string, limit int, maxAge time.Duration) ([]model.Post, error) {
	q := url.Values{
		"q":           {keyword},
		"sort":        {"new"},
		"limit":       {strconv.Itoa(limit)},
		"restrict_sr": {"1"},
	}
	endpoint := fmt.Sprintf("%s/r/%s/search.json?%s", c.baseURL, url.PathEscape(subreddit), q.Encode())

	var result listing
	if err := c.getJSON(ctx, endpoint, "search", &result); err != nil {
		return nil, err
	}

	cutoff := time.Now().UTC().Add(-maxAge)
	var posts []model.Post
	for _, child := range result.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		var d postData
		if err := json.Unmarshal(child.Data, &d); err != nil {
			continue
		}
		p := d.toPost()
		if maxAge > 0 && p.CreatedAt.Before(cutoff) {
			continue
		}
		posts = append(posts, p)
	}

	zap.L().Debug("reddit: search complete",
		zap.String("subreddit", subreddit),
		zap.String("keyword", keyword),
		zap.Int("posts", len(posts)),
	)
	return posts, nil
}

func (c *httpClient) Comments(ctx context.Context, postURL string) ([]model.Comment, error) {
	endpoint := strings.TrimRight(postURL, "/") + "/.json"
	if c.baseURL != "https://www.reddit.com" {
		// Tests point BaseURL at a local server; rewrite the host.
		endpoint = c.baseURL + pathOf(endpoint)
	}

	// The comments endpoint returns [postListing, commentListing].
	var result []listing
	if err := c.getJSON(ctx, endpoint, "comments", &result); err != nil {
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}

	var comments []model.Comment
	for _, child := range result[1].Data.Children {
		if comment, ok := parseCommentTree(child); ok {
			comments = append(comments, comment)
		}
	}
	return comments, nil
}

func (c *httpClient) Profile(ctx context.Context, username string) (*Profile, error) {
	endpoint := fmt.Sprintf("%s/user/%s/about.json", c.baseURL, url.PathEscape(username))

	var about aboutResponse
	if err := c.getJSON(ctx, endpoint, "profile", &about); err != nil {
		return nil, err
	}
	if about.Data.IsSuspended {
		return nil, resilience.NewPermanentError(eris.Wrapf(ErrNotFound, "u/%s is suspended", username))
	}

	name := about.Data.Name
	if name == "" {
		name = username
	}
	return &Profile{
		Username:     name,
		Created:      fromUTC(about.Data.CreatedUTC),
		TotalKarma:   about.Data.TotalKarma,
		PostKarma:    about.Data.LinkKarma,
		CommentKarma: about.Data.CommentKarma,
		Description:  about.Data.Subreddit.PublicDescription,
		SocialLinks:  ExtractSocialLinks(about.Data.Subreddit.PublicDescription),
	}, nil
}

func (c *httpClient) UserComments(ctx context.Context, username string, limit int) ([]model.Comment, error) {
	endpoint := fmt.Sprintf("%s/user/%s/comments.json?limit=%d", c.baseURL, url.PathEscape(username), limit)

	var result listing
	if err := c.getJSON(ctx, endpoint, "user_comments", &result); err != nil {
		return nil, err
	}

	var comments []model.Comment
	for _, child := range result.Data.Children {
		if comment, ok := parseCommentTree(child); ok {
			comments = append(comments, comment)
		}
	}
	return comments, nil
}

// getJSON performs a rate-limited GET with retry and decodes the body into v.
func (c *httpClient) getJSON(ctx context.Context, endpoint, operation string, v any) error {
	retry := c.retry
	retry.OnRetry = resilience.RetryLogger("reddit", operation)

	body, err := resilience.DoVal(ctx, retry, func(ctx context.Context) ([]byte, error) {
		return c.fetch(ctx, endpoint)
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return eris.Wrapf(err, "reddit: decode %s response", operation)
	}
	return nil
}

func (c *httpClient) fetch(ctx context.Context, endpoint string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "reddit: rate gate wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "reddit: create request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "reddit: request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, resilience.NewTransientError(eris.Wrap(err, "reddit: read body"), 0)
		}
		return body, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, resilience.NewRateLimitedError(
			eris.Errorf("reddit: rate limited on %s", endpoint), retryAfter)

	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden:
		return nil, resilience.NewPermanentError(
			eris.Wrapf(ErrNotFound, "reddit: http %d from %s", resp.StatusCode, endpoint))

	case resilience.IsTransientHTTPStatus(resp.StatusCode):
		return nil, resilience.NewTransientError(
			eris.Errorf("reddit: http %d from %s", resp.StatusCode, endpoint), resp.StatusCode)

	default:
		return nil, eris.Errorf("reddit: unexpected http %d from %s", resp.StatusCode, endpoint)
	}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func pathOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	out := u.Path
	if u.RawQuery != "" {
		out += "?" + u.RawQuery
	}
	return out
}
