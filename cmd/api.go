package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ovarra/leadgen-cli/internal/analytics"
	"github.com/ovarra/leadgen-cli/internal/model"
	"github.com/ovarra/leadgen-cli/internal/store"
)

// runner is the part of the pipeline the HTTP layer invokes.
type runner interface {
	Run(ctx context.Context, params model.ScrapeParams) (*model.RunSummary, error)
}

type apiDeps struct {
	Store    store.Store
	Pipeline runner
	Tracker  *analytics.Tracker
}

func newAPIHandler(deps apiDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", handleHealth(deps))
	r.Post("/scrape", handleScrape(deps))
	r.Get("/suggestions", handleListSuggestions(deps))
	r.Get("/redditors", handleListRedditors(deps))
	r.Patch("/redditors/{username}/status", handleContactStatus(deps))
	r.Get("/analytics/report", handleAnalyticsReport(deps))

	return r
}

func handleHealth(deps apiDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := deps.Store.ListRuns(r.Context(), 1); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// handleScrape runs the pipeline synchronously: the response is the final
// RunSummary, so callers know their data is persisted when the request
// returns.
func handleScrape(deps apiDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params model.ScrapeParams
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := params.Validate(); err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}

		summary, err := deps.Pipeline.Run(r.Context(), params)
		if err != nil {
			zap.L().Error("api: scrape run failed", zap.Error(err))
			httpError(w, http.StatusInternalServerError, "run failed")
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func handleListSuggestions(deps apiDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hours := 24
		if raw := r.URL.Query().Get("hours"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				httpError(w, http.StatusBadRequest, "hours must be a positive integer")
				return
			}
			hours = n
		}

		since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
		suggestions, err := deps.Store.ListRecentSuggestions(r.Context(), since)
		if err != nil {
			zap.L().Error("api: list suggestions failed", zap.Error(err))
			httpError(w, http.StatusInternalServerError, "query failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions, "count": len(suggestions)})
	}
}

func handleListRedditors(deps apiDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := store.RedditorFilter{
			Priority:      model.Priority(q.Get("priority")),
			ContactStatus: model.ContactStatus(q.Get("status")),
			AuthenticOnly: q.Get("authentic") == "true",
		}
		if raw := q.Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				httpError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			filter.Limit = n
		}

		redditors, err := deps.Store.ListRedditors(r.Context(), filter)
		if err != nil {
			zap.L().Error("api: list redditors failed", zap.Error(err))
			httpError(w, http.StatusInternalServerError, "query failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"redditors": redditors, "count": len(redditors)})
	}
}

func handleContactStatus(deps apiDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := chi.URLParam(r, "username")

		var req struct {
			Status model.ContactStatus `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !model.ValidContactStatus(req.Status) {
			httpError(w, http.StatusBadRequest, "unknown contact status")
			return
		}

		if err := deps.Store.UpdateContactStatus(r.Context(), username, req.Status); err != nil {
			httpError(w, http.StatusNotFound, "redditor not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"username": username, "status": string(req.Status)})
	}
}

func handleAnalyticsReport(deps apiDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := deps.Tracker.Report(r.Context())
		if err != nil {
			zap.L().Error("api: analytics report failed", zap.Error(err))
			httpError(w, http.StatusInternalServerError, "query failed")
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
