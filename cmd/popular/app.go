package main

import (
	"errors"
	"fmt"

	"github.com/kalambet/popular/internal/config"
	"github.com/kalambet/popular/internal/pipeline"
	"github.com/kalambet/popular/internal/replica"
	"github.com/kalambet/popular/internal/storage"
	"github.com/kalambet/popular/internal/wdqs"
	"github.com/kalambet/popular/internal/wiki"
)

// app holds the collaborators of one process.
type app struct {
	cfg       config.Config
	replica   *replica.Replica
	store     *storage.Store
	publisher *wiki.Publisher
	runner    *pipeline.Runner
}

// newApp opens the replica and the run history and wires the pipeline. The
// publisher is only built when wiki credentials are configured.
func newApp(cfg config.Config) (*app, error) {
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	rep, err := replica.Open(replica.Options{
		Driver:   cfg.Replica.Driver,
		DSN:      cfg.Replica.DSN,
		Host:     cfg.Replica.Host,
		Database: cfg.Replica.Database,
		User:     cfg.Replica.User,
		Password: cfg.Replica.Password,
	}, replica.DisplayPage{
		Namespace: cfg.Display.Namespace,
		Title:     cfg.Display.Title,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("opening replica: %w", err)
	}

	a := &app{cfg: cfg, replica: rep, store: store}

	var publisher pipeline.Publisher
	if cfg.RequirePublisher() == nil {
		client, err := wiki.NewClient(cfg.Wiki.APIURL, cfg.Wiki.Username, cfg.Wiki.Password, cfg.Query.UserAgent)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("creating wiki client: %w", err)
		}
		a.publisher = wiki.NewPublisher(client, cfg.Wiki.PageTitle, cfg.Wiki.EditSummary)
		publisher = a.publisher
	}

	query := wdqs.New(cfg.Query.Endpoint, cfg.Query.UserAgent, cfg.Query.Delay)
	a.runner = pipeline.NewRunner(
		rep,
		wdqs.NewTechnicalClassifier(query, cfg.Selection.TechnicalClasses),
		wdqs.NewImageFinder(query),
		publisher,
		store,
		pipeline.Settings{
			Days:            cfg.Selection.Days,
			MinActors:       cfg.Selection.MinActors,
			Limit:           cfg.Selection.Limit,
			AutomatedMarker: cfg.Selection.AutomatedMarker,
			Blocklist:       cfg.Selection.Blocklist,
		},
	)
	return a, nil
}

func (a *app) Close() error {
	var errs []error
	if a.replica != nil {
		if err := a.replica.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing replica: %w", err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing storage: %w", err))
		}
	}
	return errors.Join(errs...)
}

// openStore opens only the run history, for commands that never touch the
// replica.
func openStore(cfg config.Config) (*storage.Store, error) {
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	return store, nil
}
