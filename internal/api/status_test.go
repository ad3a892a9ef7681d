package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kalambet/popular/internal/storage"
)

const testToken = "test-token-12345"

func setupStatusHandler(t *testing.T, token string) (http.Handler, *storage.Store) {
	t.Helper()
	store := openTestStore(t)
	return NewStatusHandler(StatusDeps{Store: store, Token: token}), store
}

func authReq(method, url, token string) *http.Request {
	req := httptest.NewRequest(method, url, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestHealth_NoAuthRequired(t *testing.T) {
	h, _ := setupStatusHandler(t, testToken)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rr.Code, rr.Body.String())
	}
	var resp healthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q", resp.Status)
	}
	if resp.LatestRun != nil {
		t.Errorf("latest_run = %+v, want none on empty history", resp.LatestRun)
	}
}

func TestHealth_ReportsLatestAndNextRun(t *testing.T) {
	store := openTestStore(t)
	seedRuns(t, store)
	next := time.Date(2026, 10, 17, 13, 0, 0, 0, time.UTC)
	h := NewStatusHandler(StatusDeps{Store: store, NextRun: func() time.Time { return next }})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp healthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if resp.LatestRun == nil || resp.LatestRun.ID != "run-new" {
		t.Fatalf("latest_run = %+v", resp.LatestRun)
	}
	if resp.LatestRun.Wikitext != "" || len(resp.LatestRun.Items) != 0 {
		t.Error("health should carry a run summary only")
	}
	if resp.NextRun == nil || !resp.NextRun.Equal(next) {
		t.Errorf("next_run = %v, want %v", resp.NextRun, next)
	}
}

func TestRuns_RequireToken(t *testing.T) {
	h, _ := setupStatusHandler(t, testToken)

	for _, token := range []string{"", "wrong"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, authReq(http.MethodGet, "/runs", token))
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("token %q: status = %d, want 401", token, rr.Code)
		}
	}
}

func TestRuns_OpenWithoutToken(t *testing.T) {
	h, _ := setupStatusHandler(t, "")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/runs", ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if body := rr.Body.String(); body != "[]\n" {
		t.Errorf("body = %q, want empty list", body)
	}
}

func TestListRuns(t *testing.T) {
	h, store := setupStatusHandler(t, testToken)
	seedRuns(t, store)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/runs?limit=1", testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}

	var runs []storage.Run
	if err := json.Unmarshal(rr.Body.Bytes(), &runs); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run-new" {
		t.Errorf("runs = %+v", runs)
	}
}

func TestGetRun(t *testing.T) {
	h, store := setupStatusHandler(t, testToken)
	seedRuns(t, store)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/runs/run-old", testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}

	var run storage.Run
	if err := json.Unmarshal(rr.Body.Bytes(), &run); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if run.ID != "run-old" || run.Wikitext != "* {{Q|Q42}}" || len(run.Items) != 1 {
		t.Errorf("run = %+v", run)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	h, _ := setupStatusHandler(t, testToken)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/runs/missing", testToken))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}

	var body map[string]map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if body["error"]["type"] != "not_found" {
		t.Errorf("error type = %q", body["error"]["type"])
	}
}

func TestParseIntParam(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 20},
		{"limit=5", 5},
		{"limit=0", 20},
		{"limit=-3", 20},
		{"limit=abc", 20},
		{"limit=500", 100},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/runs?"+tt.query, nil)
		if got := parseIntParam(r, "limit", 20, 100); got != tt.want {
			t.Errorf("parseIntParam(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}
