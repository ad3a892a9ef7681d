package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kalambet/popular/internal/config"
	"github.com/kalambet/popular/internal/pipeline"
	"github.com/kalambet/popular/internal/storage"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		configPath = ""
		noColor = false
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func seedHistory(t *testing.T, dataDir string) {
	t.Helper()
	store, err := storage.Open(dataDir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	runs := []storage.Run{
		{
			ID: "aaaaaaaa-1111", StartedAt: started, Status: storage.StatusSucceeded,
			RevisionCount: 120, CandidateCount: 9, ImageItem: "Q1", ImageFile: "Cat.jpg",
			Wikitext: "{{Wikidata:Main Page/Popular/Item|Q1}}",
			Items: []storage.RunItem{
				{Rank: 1, ItemID: "Q1", ContributorCount: 5, ActionCount: 3},
				{Rank: 2, ItemID: "Q3", ContributorCount: 4, ActionCount: 2},
			},
		},
		{
			ID: "bbbbbbbb-2222", StartedAt: started.Add(time.Hour), Status: storage.StatusFailed,
			DryRun: true, Error: "loading revisions: connection refused",
		},
	}
	for _, r := range runs {
		if err := store.CreateRun(r); err != nil {
			t.Fatalf("CreateRun: %v", err)
		}
		if err := store.FinishRun(r); err != nil {
			t.Fatalf("FinishRun: %v", err)
		}
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "test message")
	if strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}
	if result != "test message" {
		t.Errorf("result = %q, want %q", result, "test message")
	}

	noColor = false
	result = colorize(colorGreen, "test message")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	want := []string{"run", "serve", "mcp", "history", "config"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered (got %v, err %v)", name, cmd, err)
		}
	}
}

func TestConfigSetThenShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	if _, err := execute(t, "--config", path, "config", "set", "selection.limit", "5"); err != nil {
		t.Fatalf("config set: %v", err)
	}
	if _, err := execute(t, "--config", path, "config", "set", "selection.blocklist", "Q1, Q2"); err != nil {
		t.Fatalf("config set list: %v", err)
	}

	out, err := execute(t, "--no-color", "--config", path, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "selection.limit = 5") {
		t.Errorf("output missing selection.limit = 5:\n%s", out)
	}
	if !strings.Contains(out, "selection.blocklist = Q1,Q2") && !strings.Contains(out, "selection.blocklist = Q1, Q2") {
		t.Errorf("output missing blocklist:\n%s", out)
	}
	if strings.Contains(out, "wiki.password") {
		t.Errorf("secrets must not be shown:\n%s", out)
	}
}

func TestConfigSet_RejectsSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	_, err := execute(t, "--config", path, "config", "set", "wiki.password", "hunter2")
	if err == nil {
		t.Fatal("expected error setting a secret")
	}
	if !strings.Contains(err.Error(), "POPULAR_WIKI_PASSWORD") {
		t.Errorf("error = %q, want it to name the environment variable", err)
	}
	if _, statErr := os.Stat(path); statErr == nil {
		data, _ := os.ReadFile(path)
		if strings.Contains(string(data), "hunter2") {
			t.Error("secret was written to the config file")
		}
	}
}

func TestRun_RequiresCredentials(t *testing.T) {
	t.Setenv("POPULAR_WIKI_USERNAME", "")
	t.Setenv("POPULAR_WIKI_PASSWORD", "")
	path := writeConfig(t, "")

	_, err := execute(t, "--config", path, "run")
	if err == nil {
		t.Fatal("expected missing credentials error")
	}
	if !strings.Contains(err.Error(), "missing required config") {
		t.Errorf("error = %q", err)
	}
}

func TestHistoryList(t *testing.T) {
	dataDir := t.TempDir()
	seedHistory(t, dataDir)
	path := writeConfig(t, "[storage]\ndata_dir = \""+filepath.ToSlash(dataDir)+"\"\n")

	out, err := execute(t, "--no-color", "--config", path, "history", "list")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "bbbbbbbb") {
		t.Errorf("newest run should be first, got %q", lines[0])
	}
	if !strings.Contains(lines[0], "failed") || !strings.Contains(lines[0], "(dry run)") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.Contains(lines[1], "120 revisions, 9 candidates") {
		t.Errorf("line 1 = %q", lines[1])
	}
}

func TestHistoryList_Empty(t *testing.T) {
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	var out bytes.Buffer
	if err := listHistory(&out, store, 10); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "No runs recorded.") {
		t.Errorf("output = %q", out.String())
	}
}

func TestHistoryShow(t *testing.T) {
	dataDir := t.TempDir()
	seedHistory(t, dataDir)
	path := writeConfig(t, "[storage]\ndata_dir = \""+filepath.ToSlash(dataDir)+"\"\n")

	out, err := execute(t, "--no-color", "--config", path, "history", "show", "aaaaaaaa-1111")
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	for _, want := range []string{
		"Status: succeeded",
		"1. Q1  contributors=5 actions=3",
		"2. Q3  contributors=4 actions=2",
		"Image: Cat.jpg (Q1)",
		"{{Wikidata:Main Page/Popular/Item|Q1}}",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestHistoryShow_JSON(t *testing.T) {
	dataDir := t.TempDir()
	seedHistory(t, dataDir)
	path := writeConfig(t, "[storage]\ndata_dir = \""+filepath.ToSlash(dataDir)+"\"\n")

	out, err := execute(t, "--config", path, "history", "show", "--json", "bbbbbbbb-2222")
	if err != nil {
		t.Fatalf("history show: %v", err)
	}

	var run storage.Run
	if err := json.Unmarshal([]byte(out), &run); err != nil {
		t.Fatalf("decoding output: %v\n%s", err, out)
	}
	if run.Status != storage.StatusFailed || run.Error != "loading revisions: connection refused" {
		t.Errorf("run = %+v", run)
	}
}

func TestHistoryShow_NotFound(t *testing.T) {
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	err = showHistory(&bytes.Buffer{}, store, "missing", false)
	if err == nil || !strings.Contains(err.Error(), `run "missing" not found`) {
		t.Errorf("err = %v", err)
	}
}

type fakeRunner struct {
	calls  atomic.Int32
	dryRun atomic.Bool
}

func (f *fakeRunner) Run(_ context.Context, opts pipeline.Options) (pipeline.Result, error) {
	f.calls.Add(1)
	f.dryRun.Store(opts.DryRun)
	return pipeline.Result{RunID: "r1", DryRun: opts.DryRun}, nil
}

func serveConfig(spec string) config.Config {
	var cfg config.Config
	cfg.Schedule.Spec = spec
	cfg.Schedule.Timezone = "UTC"
	cfg.Server.Port = 0
	cfg.Server.Token = "secret"
	return cfg
}

func TestServe_StopsOnCancel(t *testing.T) {
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, serveConfig("@hourly"), &fakeRunner{}, store, pipeline.Options{})
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve returned %v, want nil", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}
}

func TestServe_RunsScheduledJob(t *testing.T) {
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	r := &fakeRunner{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, serveConfig("@every 1s"), r, store, pipeline.Options{DryRun: true})
	}()

	deadline := time.Now().Add(5 * time.Second)
	for r.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("serve: %v", err)
	}

	if r.calls.Load() == 0 {
		t.Fatal("scheduled job never ran")
	}
	if !r.dryRun.Load() {
		t.Error("scheduled run should carry the serve options")
	}
}

func TestServe_InvalidSchedule(t *testing.T) {
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	err = serve(context.Background(), serveConfig("every now and then"), &fakeRunner{}, store, pipeline.Options{})
	if err == nil {
		t.Fatal("expected error for invalid schedule")
	}
	if errors.Is(err, context.Canceled) {
		t.Errorf("unexpected cancel error: %v", err)
	}
}
