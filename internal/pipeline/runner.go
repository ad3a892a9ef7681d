// Package pipeline runs one selection of popular items from the edit log to
// the published page.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/popular/internal/render"
	"github.com/kalambet/popular/internal/selection"
	"github.com/kalambet/popular/internal/storage"
)

// EditLog is the read side of the wiki replica.
type EditLog interface {
	Revisions(ctx context.Context, since time.Time) ([]selection.EditRecord, error)
	ChangeTags(ctx context.Context, minID int64) ([]selection.ChangeTag, error)
	DisplayedItems(ctx context.Context) ([]string, error)
}

// ImageFinder picks an illustration for one of the selected items.
type ImageFinder interface {
	FindImage(ctx context.Context, itemIDs []string) (*render.Image, bool)
}

// Publisher replaces the display page.
type Publisher interface {
	Publish(ctx context.Context, text string) error
}

// RunStore records runs for later inspection.
type RunStore interface {
	CreateRun(r storage.Run) error
	FinishRun(r storage.Run) error
}

// Settings are the selection parameters of a run.
type Settings struct {
	Days            int
	MinActors       int
	Limit           int
	AutomatedMarker string
	Blocklist       []string
}

// Options alter a single run.
type Options struct {
	// DryRun computes and renders the selection without publishing it.
	DryRun bool
}

// Result describes a finished run.
type Result struct {
	RunID      string                    `json:"run_id"`
	DryRun     bool                      `json:"dry_run"`
	Revisions  int                       `json:"revisions"`
	Candidates int                       `json:"candidates"`
	Selected   []selection.ItemAggregate `json:"selected"`
	Image      *render.Image             `json:"image,omitempty"`
	Wikitext   string                    `json:"wikitext"`
	Published  bool                      `json:"published"`
}

var ErrNoPublisher = errors.New("no publisher configured")

// Runner wires the selection stages to their collaborators.
type Runner struct {
	editLog    EditLog
	classifier selection.Classifier
	images     ImageFinder
	publisher  Publisher
	store      RunStore
	settings   Settings

	now   func() time.Time
	newID func() string
}

// NewRunner creates a Runner. images, publisher and store may be nil: no
// illustration is looked up, only dry runs succeed, and runs go unrecorded.
func NewRunner(
	editLog EditLog,
	classifier selection.Classifier,
	images ImageFinder,
	publisher Publisher,
	store RunStore,
	settings Settings,
) *Runner {
	if settings.Days <= 0 {
		settings.Days = 3
	}
	if settings.MinActors <= 0 {
		settings.MinActors = selection.DefaultMinActors
	}
	if settings.Limit <= 0 {
		settings.Limit = selection.DefaultLimit
	}
	if settings.AutomatedMarker == "" {
		settings.AutomatedMarker = selection.DefaultAutomatedMarker
	}
	return &Runner{
		editLog:    editLog,
		classifier: classifier,
		images:     images,
		publisher:  publisher,
		store:      store,
		settings:   settings,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Run executes the pipeline once. Failures of the edit log or the publisher
// abort the run; the returned error names the failing stage. Classification
// and image lookups never fail a run.
func (r *Runner) Run(ctx context.Context, opts Options) (Result, error) {
	res := Result{RunID: r.newID(), DryRun: opts.DryRun}
	started := r.now()
	r.record(func(s RunStore) error {
		return s.CreateRun(storage.Run{ID: res.RunID, StartedAt: started, DryRun: opts.DryRun})
	})

	err := r.run(ctx, opts, started, &res)

	run := storage.Run{
		ID:             res.RunID,
		FinishedAt:     r.now(),
		Status:         storage.StatusSucceeded,
		DryRun:         opts.DryRun,
		RevisionCount:  res.Revisions,
		CandidateCount: res.Candidates,
		Wikitext:       res.Wikitext,
	}
	if res.Image != nil {
		run.ImageItem, run.ImageFile = res.Image.ItemID, res.Image.File
	}
	for i, it := range res.Selected {
		run.Items = append(run.Items, storage.RunItem{
			Rank:             i + 1,
			ItemID:           it.ItemID,
			ContributorCount: it.ContributorCount,
			ActionCount:      it.ActionCount,
		})
	}
	if err != nil {
		run.Status = storage.StatusFailed
		run.Error = err.Error()
		slog.Error("pipeline: run failed", "run", res.RunID, "error", err)
	}
	r.record(func(s RunStore) error { return s.FinishRun(run) })

	return res, err
}

func (r *Runner) run(ctx context.Context, opts Options, started time.Time, res *Result) error {
	if !opts.DryRun && r.publisher == nil {
		return fmt.Errorf("publishing: %w", ErrNoPublisher)
	}

	since := started.AddDate(0, 0, -r.settings.Days)
	records, err := r.editLog.Revisions(ctx, since)
	if err != nil {
		return fmt.Errorf("loading revisions: %w", err)
	}
	res.Revisions = len(records)
	slog.Info("pipeline: revisions loaded", "run", res.RunID, "revisions", len(records), "since", since.UTC().Format(time.RFC3339))

	var tags []selection.ChangeTag
	if len(records) > 0 {
		if tags, err = r.editLog.ChangeTags(ctx, minRecordID(records)); err != nil {
			return fmt.Errorf("loading change tags: %w", err)
		}
	}
	slog.Info("pipeline: change tags loaded", "run", res.RunID, "change_tags", len(tags))

	surviving := selection.FilterAutomated(records, tags, r.settings.AutomatedMarker)
	slog.Info("pipeline: automated edits removed", "run", res.RunID, "surviving", len(surviving))

	ranked := selection.Rank(selection.Aggregate(surviving, r.settings.MinActors))
	res.Candidates = len(ranked)
	slog.Info("pipeline: items aggregated", "run", res.RunID, "aggregated", len(ranked))

	displayed, err := r.editLog.DisplayedItems(ctx)
	if err != nil {
		return fmt.Errorf("loading displayed items: %w", err)
	}

	eligibility := selection.NewEligibility(r.settings.Blocklist, displayed, r.classifier)
	res.Selected = selection.Truncate(eligibility.Filter(ctx, ranked, r.settings.Limit), r.settings.Limit)
	slog.Info("pipeline: items selected", "run", res.RunID, "selected", len(res.Selected), "displayed", len(displayed))

	ids := selection.IDs(res.Selected)
	if r.images != nil {
		if img, ok := r.images.FindImage(ctx, ids); ok {
			res.Image = img
		}
	}

	res.Wikitext = render.Wikitext(ids, res.Image)

	if opts.DryRun {
		return nil
	}
	if err := r.publisher.Publish(ctx, res.Wikitext); err != nil {
		return fmt.Errorf("publishing: %w", err)
	}
	res.Published = true
	slog.Info("pipeline: page published", "run", res.RunID, "items", len(ids))
	return nil
}

// record writes to the run history. History is informational, so failures
// are logged and the run carries on.
func (r *Runner) record(fn func(RunStore) error) {
	if r.store == nil {
		return
	}
	if err := fn(r.store); err != nil {
		slog.Warn("pipeline: recording run history failed", "error", err)
	}
}

func minRecordID(records []selection.EditRecord) int64 {
	m := records[0].RecordID
	for _, rec := range records[1:] {
		if rec.RecordID < m {
			m = rec.RecordID
		}
	}
	return m
}
