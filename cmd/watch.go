package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/tmplc/internal/build"
	"github.com/conneroisu/tmplc/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"w"},
	Short:   "Regenerate Go code as template documents change",
	Long: `Generate every document, then watch the view root and regenerate the
documents affected by each change. Editing a layout or component rebuilds
every template that references it; deleting a document removes its
generated file.

Examples:
  tmplc watch                        # Watch the configured view root
  tmplc watch --verbose              # List every changed file
  tmplc watch --command "go build"   # Run a command after each rebuild`,
	RunE: runWatch,
}

var (
	watchFlags    *StandardFlags
	watchCommand  string
	watchDebounce time.Duration
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchFlags = AddStandardFlags(watchCmd, "generate")
	watchCmd.Flags().BoolVarP(&watchFlags.Verbose, "verbose", "v", false, "Verbose output")
	watchCmd.Flags().StringVarP(&watchCommand, "command", "c", "", "Command to run after a successful rebuild")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 200*time.Millisecond, "Delay grouping bursts of changes")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := SetViperBindings(cmd, viper.GetViper(), generateBindings); err != nil {
		return err
	}
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if watchCommand != "" {
		if err := validateCustomCommand(watchCommand); err != nil {
			return fmt.Errorf("invalid custom command: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	pipeline := newPipeline(cfg, logger, false)

	fileWatcher, err := watcher.NewFileWatcher(watchDebounce, logger)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fileWatcher.Stop()

	fileWatcher.AddFilter(watcher.Relative(cfg.Views.Root, watcher.NoHiddenFilter))
	fileWatcher.AddFilter(watcher.Relative(cfg.Views.Root, pipeline.Scanner().Matches))
	fileWatcher.AddHandler(func(ctx context.Context, events []watcher.ChangeEvent) error {
		return rebuild(ctx, out, pipeline, cfg.Views.Root, events)
	})

	if err := fileWatcher.AddRecursive(cfg.Views.Root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", cfg.Views.Root, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(out, "Performing initial build of %s...\n", cfg.Views.Root)
	report, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}
	if err := printWatchReport(out, report, pipeline.Metrics()); err == nil {
		runAfterBuild(out)
	}

	if err := fileWatcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}

	fmt.Fprintln(out, "Watching for changes... (Press Ctrl+C to stop)")
	<-ctx.Done()
	fmt.Fprintln(out, "\nStopping file watcher...")
	return nil
}

// rebuild regenerates the documents affected by events.
func rebuild(ctx context.Context, out io.Writer, pipeline *build.Pipeline, root string, events []watcher.ChangeEvent) error {
	if watchFlags.Verbose {
		fmt.Fprintf(out, "File changes detected:\n")
		for _, event := range events {
			fmt.Fprintf(out, "   %s: %s\n", event.Type, event.Path)
		}
	} else {
		fmt.Fprintf(out, "%d file(s) changed\n", len(events))
	}

	affected := map[string]bool{}
	removed := map[string]bool{}
	for _, event := range events {
		rel, err := filepath.Rel(root, event.Path)
		if err != nil {
			continue
		}
		name := filepath.ToSlash(rel)

		for _, a := range pipeline.Invalidate(name) {
			affected[a] = true
		}
		if event.Type.Gone() {
			if _, statErr := os.Stat(event.Path); statErr == nil {
				// Renamed back into place before the batch was flushed.
				continue
			}
			if err := pipeline.Remove(name); err != nil {
				fmt.Fprintln(out, errorStyle.Render(err.Error()))
			}
			removed[name] = true
		}
	}

	var targets []string
	for name := range affected {
		if !removed[name] {
			targets = append(targets, name)
		}
	}
	sort.Strings(targets)
	if len(targets) == 0 {
		return nil
	}

	report, err := pipeline.Run(ctx, targets...)
	if err != nil {
		return err
	}
	if err := printWatchReport(out, report, pipeline.Metrics()); err != nil {
		return nil
	}
	runAfterBuild(out)
	return nil
}

// printWatchReport prints a compact report and returns an error when any
// template failed.
func printWatchReport(out io.Writer, report *build.Report, metrics build.MetricsSnapshot) error {
	summary := summarize(report, metrics)
	if watchFlags.Verbose {
		printGenerateSummary(out, summary, true)
	} else {
		for _, result := range summary.Results {
			if !result.Success {
				fmt.Fprintf(out, "%s %s\n    %s\n", errorStyle.Render("✗"), result.Template, indent(result.Error, "    "))
			}
		}
		for _, d := range summary.Diagnostics {
			if d.Template == "" || !hasResult(summary.Results, d.Template) {
				fmt.Fprintln(out, formatDiagnostic(d))
			}
		}
		fmt.Fprintf(out, "Built %d templates (%d written, %d failed) in %s\n",
			summary.Success+summary.Failed, summary.Written, summary.Failed, summary.Duration)
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d templates failed", summary.Failed)
	}
	return nil
}

func runAfterBuild(out io.Writer) {
	if watchCommand == "" {
		return
	}
	if err := runCustomCommand(out, watchCommand); err != nil {
		fmt.Fprintln(out, errorStyle.Render(err.Error()))
	}
}

func runCustomCommand(out io.Writer, command string) error {
	fmt.Fprintf(out, "Running custom command: %s\n", command)

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return errors.New("empty custom command")
	}

	cmd := exec.Command(parts[0], parts[1:]...)
	cmd.Stdout = out
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("custom command failed: %w", err)
	}

	return nil
}
