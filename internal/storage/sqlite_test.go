package storage

import (
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestMigrationsOrdered(t *testing.T) {
	s := openTestStore(t)

	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("applied %v, want two migrations", versions)
	}
	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Errorf("migrations not in ascending order: %v", versions)
			break
		}
	}
}

func TestIndexesExist(t *testing.T) {
	s := openTestStore(t)

	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name='idx_runs_started'").Scan(&count)
	if err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}
	if count != 1 {
		t.Error("index idx_runs_started not found")
	}
}

func TestCreateAndGetRun(t *testing.T) {
	s := openTestStore(t)

	started := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	if err := s.CreateRun(Run{ID: "run-1", StartedAt: started, DryRun: true}); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	got, err := s.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != StatusRunning {
		t.Errorf("Status = %q, want %q", got.Status, StatusRunning)
	}
	if !got.DryRun {
		t.Error("DryRun = false, want true")
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
	}
	if !got.FinishedAt.IsZero() {
		t.Errorf("FinishedAt = %v, want zero for unfinished run", got.FinishedAt)
	}
	if len(got.Items) != 0 {
		t.Errorf("Items = %v, want none", got.Items)
	}
}

func TestFinishRun(t *testing.T) {
	s := openTestStore(t)

	started := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	if err := s.CreateRun(Run{ID: "run-1", StartedAt: started}); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	finished := started.Add(42 * time.Second)
	err := s.FinishRun(Run{
		ID:             "run-1",
		FinishedAt:     finished,
		Status:         StatusSucceeded,
		RevisionCount:  1200,
		CandidateCount: 31,
		ImageItem:      "Q42",
		ImageFile:      "Douglas adams portrait.jpg",
		Wikitext:       "* {{Q|Q42}}",
		Items: []RunItem{
			{Rank: 2, ItemID: "Q64", ContributorCount: 5, ActionCount: 2},
			{Rank: 1, ItemID: "Q42", ContributorCount: 4, ActionCount: 3},
		},
	})
	if err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	got, err := s.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != StatusSucceeded {
		t.Errorf("Status = %q", got.Status)
	}
	if !got.FinishedAt.Equal(finished) {
		t.Errorf("FinishedAt = %v, want %v", got.FinishedAt, finished)
	}
	if got.RevisionCount != 1200 || got.CandidateCount != 31 {
		t.Errorf("counts = (%d, %d)", got.RevisionCount, got.CandidateCount)
	}
	if got.ImageItem != "Q42" || got.ImageFile != "Douglas adams portrait.jpg" {
		t.Errorf("image = (%q, %q)", got.ImageItem, got.ImageFile)
	}
	if len(got.Items) != 2 {
		t.Fatalf("Items = %v, want 2", got.Items)
	}
	if got.Items[0].ItemID != "Q42" || got.Items[1].ItemID != "Q64" {
		t.Errorf("items not in rank order: %v", got.Items)
	}
}

func TestFinishRun_ReplacesItems(t *testing.T) {
	s := openTestStore(t)
	if err := s.CreateRun(Run{ID: "r", StartedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}

	first := Run{ID: "r", Status: StatusSucceeded, Items: []RunItem{{Rank: 1, ItemID: "Q1"}, {Rank: 2, ItemID: "Q2"}}}
	if err := s.FinishRun(first); err != nil {
		t.Fatal(err)
	}
	second := Run{ID: "r", Status: StatusFailed, Error: "publishing: boom", Items: []RunItem{{Rank: 1, ItemID: "Q3"}}}
	if err := s.FinishRun(second); err != nil {
		t.Fatal(err)
	}

	items, err := s.RunItems("r")
	if err != nil {
		t.Fatalf("RunItems: %v", err)
	}
	if len(items) != 1 || items[0].ItemID != "Q3" {
		t.Errorf("items = %v, want [Q3]", items)
	}
}

func TestFinishRun_NotFound(t *testing.T) {
	s := openTestStore(t)

	if err := s.FinishRun(Run{ID: "missing", Status: StatusFailed}); err != ErrNotFound {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestGetRunNotFound(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.GetRun("does-not-exist"); err != ErrNotFound {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestListRuns(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := s.CreateRun(Run{ID: id, StartedAt: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatalf("CreateRun(%s): %v", id, err)
		}
	}

	runs, err := s.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len = %d, want 2", len(runs))
	}
	if runs[0].ID != "c" || runs[1].ID != "b" {
		t.Errorf("order = [%s %s], want [c b]", runs[0].ID, runs[1].ID)
	}
}

func TestLatestRun(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.LatestRun(); err != ErrNotFound {
		t.Fatalf("empty history: error = %v, want ErrNotFound", err)
	}

	same := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	for _, id := range []string{"first", "second"} {
		if err := s.CreateRun(Run{ID: id, StartedAt: same}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.FinishRun(Run{ID: "second", Status: StatusSucceeded, Items: []RunItem{{Rank: 1, ItemID: "Q7"}}}); err != nil {
		t.Fatal(err)
	}

	got, err := s.LatestRun()
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if got.ID != "second" {
		t.Errorf("ID = %q, want second (insertion order breaks ties)", got.ID)
	}
	if len(got.Items) != 1 {
		t.Errorf("Items = %v, want the run's items", got.Items)
	}
}
