package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/popular/internal/api"
	"github.com/kalambet/popular/internal/config"
	"github.com/kalambet/popular/internal/pipeline"
	"github.com/kalambet/popular/internal/storage"
)

// --- run ---

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Select popular items once and publish them",
	Long: `Select popular items once and publish them.

Examples:
  popular run --dry-run          # print the wikitext instead of publishing
  popular run                    # publish to wiki.page_title`,
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

		printStep("Selecting popular items from the last %d days", cfg.Selection.Days)
		res, err := a.runner.Run(ctx, pipeline.Options{DryRun: dryRun})
		if err != nil {
			return err
		}

		printResult(res)
		if res.DryRun {
			fmt.Fprint(cmd.OutOrStdout(), res.Wikitext)
			return nil
		}
		printSuccess("Published %d items to %s", len(res.Selected), a.publisher.Title())
		return nil
	},
}

func init() {
	runCmd.Flags().Bool("dry-run", false, "render the selection without publishing it")
}

// --- mcp ---

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the run history over MCP (stdio)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		deps := api.MCPDeps{}
		a, err := newApp(cfg)
		if err != nil {
			// History stays available when the replica is unreachable.
			printWarning("preview disabled: %v", err)
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			deps.Store = store
		} else {
			defer a.Close()
			deps.Store = a.store
			deps.Preview = a.runner
		}

		stdio := server.NewStdioServer(api.NewMCPServer(deps))
		if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	},
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect past runs",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		return listHistory(cmd.OutOrStdout(), store, limit)
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		return showHistory(cmd.OutOrStdout(), store, args[0], asJSON)
	},
}

func init() {
	historyListCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	historyShowCmd.Flags().Bool("json", false, "print the run as JSON")
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
}

func listHistory(w io.Writer, store api.RunReader, limit int) error {
	runs, err := store.ListRuns(limit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		printRunLine(w, r)
	}
	return nil
}

func showHistory(w io.Writer, store api.RunReader, id string, asJSON bool) error {
	run, err := store.GetRun(id)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("run %q not found", id)
	}
	if err != nil {
		return fmt.Errorf("getting run: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}
	printRunDetail(w, run)
	return nil
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the config file.

Lists are comma-separated. Secrets (passwords, the replica DSN and the
server token) are only read from the environment.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(configPath, key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
