package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kalambet/popular/internal/pipeline"
	"github.com/kalambet/popular/internal/storage"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+msg))
}

func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	l := colorize(colorBold, label+":")
	fmt.Fprintf(os.Stderr, "  %s %s\n", l, val)
}

func printStep(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorCyan, "→ "+msg))
}

func statusColor(status string) string {
	switch status {
	case storage.StatusSucceeded:
		return colorGreen
	case storage.StatusFailed:
		return colorRed
	default:
		return colorYellow
	}
}

// printRunLine writes the one-line summary used by history list.
func printRunLine(w io.Writer, r storage.Run) {
	mode := ""
	if r.DryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(w, "%s  %s  %s  %d revisions, %d candidates%s\n",
		colorize(colorCyan, shortID(r.ID)),
		r.StartedAt.Local().Format(time.DateTime),
		colorize(statusColor(r.Status), fmt.Sprintf("%-9s", r.Status)),
		r.RevisionCount,
		r.CandidateCount,
		mode,
	)
}

// printRunDetail writes a full run record, wikitext last.
func printRunDetail(w io.Writer, r storage.Run) {
	fmt.Fprintf(w, "%s %s\n", colorize(colorBold, "Run:"), r.ID)
	fmt.Fprintf(w, "%s %s\n", colorize(colorBold, "Status:"), colorize(statusColor(r.Status), r.Status))
	fmt.Fprintf(w, "%s %s\n", colorize(colorBold, "Started:"), r.StartedAt.Local().Format(time.DateTime))
	if !r.FinishedAt.IsZero() {
		fmt.Fprintf(w, "%s %s\n", colorize(colorBold, "Finished:"), r.FinishedAt.Local().Format(time.DateTime))
	}
	fmt.Fprintf(w, "%s %t\n", colorize(colorBold, "Dry run:"), r.DryRun)
	fmt.Fprintf(w, "%s %d revisions, %d candidates\n", colorize(colorBold, "Input:"), r.RevisionCount, r.CandidateCount)
	if r.Error != "" {
		fmt.Fprintf(w, "%s %s\n", colorize(colorBold, "Error:"), colorize(colorRed, r.Error))
	}
	if len(r.Items) > 0 {
		fmt.Fprintln(w, colorize(colorBold, "Selected:"))
		for _, it := range r.Items {
			fmt.Fprintf(w, "  %d. %s  contributors=%d actions=%d\n", it.Rank, it.ItemID, it.ContributorCount, it.ActionCount)
		}
	}
	if r.ImageFile != "" {
		fmt.Fprintf(w, "%s %s (%s)\n", colorize(colorBold, "Image:"), r.ImageFile, r.ImageItem)
	}
	if r.Wikitext != "" {
		fmt.Fprintf(w, "\n%s\n", r.Wikitext)
	}
}

// printResult reports a finished pipeline run on stderr.
func printResult(res pipeline.Result) {
	printStatus("Run", "%s", res.RunID)
	printStatus("Revisions", "%d", res.Revisions)
	printStatus("Candidates", "%d", res.Candidates)
	for i, it := range res.Selected {
		printStatus(fmt.Sprintf("#%d", i+1), "%s (%d contributors, %d actions)", it.ItemID, it.ContributorCount, it.ActionCount)
	}
	if res.Image != nil {
		printStatus("Image", "%s from %s", res.Image.File, res.Image.ItemID)
	} else {
		printStatus("Image", "none")
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
