package model

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Stage is a checkpointed pipeline stage. Stages are strictly ordered; the
// presence of a later stage's checkpoint implies all earlier stages completed.
type Stage string

const (
	StageScraped    Stage = "scraped"
	StageClassified Stage = "classified"
	StageCommented  Stage = "commented"
	StageReplied    Stage = "replied"
)

// Stages lists the checkpointed stages in execution order.
var Stages = []Stage{StageScraped, StageClassified, StageCommented, StageReplied}

// StageIndex returns the position of s in the stage order, or -1.
func StageIndex(s Stage) int {
	for i, stage := range Stages {
		if stage == s {
			return i
		}
	}
	return -1
}

// CheckpointRecord persists one stage's full output set under a run key.
// One active record exists per stage per run key. Summary snapshots the
// running counters at save time so a resumed run reports what the earlier
// stages already did instead of restarting the tallies at zero.
type CheckpointRecord struct {
	RunKey  string     `json:"run_key"`
	Stage   Stage      `json:"stage"`
	Posts   []Post     `json:"posts"`
	Summary RunSummary `json:"summary"`
	SavedAt time.Time  `json:"saved_at"`
}

// RunStatus tiers a completed run's outcome.
type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusPartial RunStatus = "partial"
	RunStatusFailure RunStatus = "failure"
)

// RunSummary is the immutable result of a pipeline run.
type RunSummary struct {
	Processed          int       `json:"processed"`
	Skipped            int       `json:"skipped"`
	Failed             int       `json:"failed"`
	RedditorsExtracted int       `json:"redditors_extracted"`
	RedditorsSaved     int       `json:"redditors_saved"`
	Status             RunStatus `json:"status"`
	Message            string    `json:"message"`
}

// Finalize derives Status and Message from the counters. The three zero
// outcomes stay distinct: all-duplicates is a success, nothing-matched is a
// failure, and any per-item failure makes the run partial.
func (s *RunSummary) Finalize() {
	switch {
	case s.Failed > 0:
		s.Status = RunStatusPartial
		s.Message = "some items failed; see logs for details"
	case s.Processed > 0:
		s.Status = RunStatusSuccess
		s.Message = "run completed"
	case s.Skipped > 0:
		s.Status = RunStatusSuccess
		s.Message = "all matching posts were already processed in earlier runs"
	default:
		s.Status = RunStatusFailure
		s.Message = "no posts matched the given subreddits and keywords"
	}
}

// Run is one pipeline execution, persisted for history and analytics.
type Run struct {
	ID        string       `json:"id"`
	Params    ScrapeParams `json:"params"`
	Status    string       `json:"status"`
	Summary   *RunSummary  `json:"summary,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// ScrapeParams are the caller-supplied inputs for a pipeline run.
type ScrapeParams struct {
	Subreddits []string `json:"subreddits"`
	Keywords   []string `json:"keywords"`
	PostLimit  int      `json:"post_limit"`
	MaxAgeDays int      `json:"max_age_days"`
	Force      bool     `json:"force"`
}

// Validate rejects malformed parameters before any external call is made.
func (p ScrapeParams) Validate() error {
	if len(p.Subreddits) == 0 {
		return eris.New("params: at least one subreddit is required")
	}
	if len(p.Keywords) == 0 {
		return eris.New("params: at least one keyword is required")
	}
	if p.PostLimit < 1 || p.PostLimit > 100 {
		return eris.Errorf("params: post_limit must be 1-100, got %d", p.PostLimit)
	}
	if p.MaxAgeDays < 1 || p.MaxAgeDays > 365 {
		return eris.Errorf("params: max_age_days must be 1-365, got %d", p.MaxAgeDays)
	}
	return nil
}

// RunKey derives the deterministic checkpoint key for these parameters.
// Identical parameters map to the same key so a re-invocation resumes the
// same run instead of starting over. Force does not change the key.
func (p ScrapeParams) RunKey() string {
	subs := normalizeSet(p.Subreddits)
	kws := normalizeSet(p.Keywords)

	h := sha256.New()
	h.Write([]byte(strings.Join(subs, ",")))
	h.Write([]byte{'|'})
	h.Write([]byte(strings.Join(kws, ",")))
	h.Write([]byte{'|'})
	h.Write([]byte(strconv.Itoa(p.PostLimit)))
	h.Write([]byte{'|'})
	h.Write([]byte(strconv.Itoa(p.MaxAgeDays)))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func normalizeSet(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
