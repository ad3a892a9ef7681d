package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/popular/internal/api"
	"github.com/kalambet/popular/internal/config"
	"github.com/kalambet/popular/internal/pipeline"
	"github.com/kalambet/popular/internal/scheduler"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run on a schedule and serve the status API (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !dryRun {
			if err := cfg.RequirePublisher(); err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				printWarning("%v", err)
			}
		}()

		fmt.Fprintf(os.Stderr, "popular version %s\n", version)
		return serve(ctx, cfg, a.runner, a.store, pipeline.Options{DryRun: dryRun})
	},
}

func init() {
	serveCmd.Flags().Bool("dry-run", false, "record scheduled runs without publishing them")
}

// runner is the part of the pipeline the scheduler drives.
type runner interface {
	Run(ctx context.Context, opts pipeline.Options) (pipeline.Result, error)
}

// serve runs the scheduler and the status API until ctx is done or either
// of them fails.
func serve(ctx context.Context, cfg config.Config, r runner, store api.RunReader, opts pipeline.Options) error {
	sched, err := scheduler.New(cfg.Schedule.Spec, cfg.Schedule.Timezone, func(ctx context.Context) {
		res, err := r.Run(ctx, opts)
		if err != nil {
			slog.Error("scheduled run failed", "error", err)
			return
		}
		slog.Info("scheduled run succeeded", "run", res.RunID, "selected", len(res.Selected), "published", res.Published)
	})
	if err != nil {
		return err
	}

	if cfg.Server.Token == "" {
		printWarning("server.token is not set; /runs is served without authentication")
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	handler := api.NewStatusHandler(api.StatusDeps{
		Store:   store,
		Token:   cfg.Server.Token,
		NextRun: sched.Next,
	})
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	srv.BaseContext = func(_ net.Listener) context.Context {
		return gctx
	}

	g.Go(func() error {
		return sched.Run(gctx)
	})
	g.Go(func() error {
		slog.Info("status API listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
