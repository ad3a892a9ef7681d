// Package api exposes the run history over HTTP and MCP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/popular/internal/storage"
)

// RunReader is the read side of the run history.
type RunReader interface {
	ListRuns(limit int) ([]storage.Run, error)
	GetRun(id string) (storage.Run, error)
	LatestRun() (storage.Run, error)
}

type StatusDeps struct {
	Store RunReader
	Token string
	// NextRun reports the next scheduled run; optional.
	NextRun func() time.Time
}

type healthResponse struct {
	Status    string       `json:"status"`
	NextRun   *time.Time   `json:"next_run,omitempty"`
	LatestRun *storage.Run `json:"latest_run,omitempty"`
}

// NewStatusHandler serves /health without authentication and the run
// history behind BearerAuth.
func NewStatusHandler(deps StatusDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth(deps))
	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))
		r.Get("/runs", handleListRuns(deps))
		r.Get("/runs/{id}", handleGetRun(deps))
	})

	return r
}

func handleHealth(deps StatusDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		if deps.NextRun != nil {
			if next := deps.NextRun(); !next.IsZero() {
				resp.NextRun = &next
			}
		}

		latest, err := deps.Store.LatestRun()
		switch {
		case err == nil:
			latest.Wikitext = ""
			latest.Items = nil
			resp.LatestRun = &latest
		case !errors.Is(err, storage.ErrNotFound):
			httpError(w, http.StatusInternalServerError, "api_error", "failed to read run history: %v", err)
			return
		}

		writeJSON(w, resp)
	}
}

func handleListRuns(deps StatusDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)

		runs, err := deps.Store.ListRuns(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list runs: %v", err)
			return
		}

		if runs == nil {
			runs = []storage.Run{}
		}
		writeJSON(w, runs)
	}
}

func handleGetRun(deps StatusDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		run, err := deps.Store.GetRun(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "run not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get run: %v", err)
			return
		}

		writeJSON(w, run)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
