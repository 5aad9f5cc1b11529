package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/tmplc/internal/build"
	"github.com/conneroisu/tmplc/internal/errors"
)

var (
	generateFlags  *StandardFlags
	generateDryRun bool
)

// generateCmd represents the generate command.
var generateCmd = &cobra.Command{
	Use:     "generate [document...]",
	Aliases: []string{"gen", "g"},
	Short:   "Generate Go code for template documents",
	Long: `Compile template documents into Go source. Each document produces one
file holding Render and RenderString methods; layouts are compiled into
the pages that extend them and produce no file of their own.

Documents are named relative to the view root. Without arguments the whole
root is scanned. Unchanged output files are left untouched.

Examples:
  tmplc generate                          # Generate every document
  tmplc generate pages/home.yaml          # Generate one document
  tmplc generate --output ./gen -p gen    # Write all files into ./gen
  tmplc generate --format json            # Machine readable report
  tmplc generate --dry-run                # Compile without writing files`,
	RunE: runGenerateCommand,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateFlags = AddStandardFlags(generateCmd, "generate", "output")
	generateCmd.Flags().BoolVar(&generateDryRun, "dry-run", false, "Compile without writing files")
}

type GenerateResult struct {
	Template string `json:"template"`
	Output   string `json:"output,omitempty"`
	Written  bool   `json:"written"`
	Cached   bool   `json:"cached"`
	Skipped  bool   `json:"skipped,omitempty"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

type GenerateSummary struct {
	Total       int                   `json:"total"`
	Success     int                   `json:"success"`
	Failed      int                   `json:"failed"`
	Skipped     int                   `json:"skipped"`
	Written     int                   `json:"written"`
	Results     []GenerateResult      `json:"results"`
	Diagnostics []errors.Diagnostic   `json:"diagnostics,omitempty"`
	Metrics     build.MetricsSnapshot `json:"metrics"`
	Duration    string                `json:"duration"`
}

func runGenerateCommand(cmd *cobra.Command, args []string) error {
	if err := generateFlags.ValidateFlags(); err != nil {
		return err
	}
	if err := SetViperBindings(cmd, viper.GetViper(), generateBindings); err != nil {
		return err
	}

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.TargetFiles = args

	pipeline := newPipeline(cfg, logger, generateDryRun)
	report, err := pipeline.Run(cmd.Context(), cfg.TargetFiles...)
	if err != nil {
		return err
	}

	summary := summarize(report, pipeline.Metrics())
	return outputGenerateResults(cmd.OutOrStdout(), summary, generateFlags)
}

// summarize flattens a build report for display.
func summarize(report *build.Report, metrics build.MetricsSnapshot) GenerateSummary {
	summary := GenerateSummary{
		Results:     make([]GenerateResult, 0, len(report.Results)),
		Diagnostics: report.Diagnostics,
		Metrics:     metrics,
		Duration:    report.Duration.String(),
	}

	for _, res := range report.Results {
		result := GenerateResult{
			Template: res.Template.Name,
			Output:   res.OutputPath,
			Written:  res.Written,
			Cached:   res.CacheHit,
			Skipped:  res.Skipped,
			Success:  res.Error == nil,
		}
		if res.Error != nil {
			result.Error = errors.FormatError(res.Error)
		}
		summary.Results = append(summary.Results, result)

		summary.Total++
		switch {
		case res.Skipped:
			summary.Skipped++
		case res.Error != nil:
			summary.Failed++
		default:
			summary.Success++
		}
		if res.Written {
			summary.Written++
		}
	}

	// Documents that never reached the compiler still count as failures.
	failedTemplates := make(map[string]bool)
	for _, res := range summary.Results {
		if !res.Success {
			failedTemplates[res.Template] = true
		}
	}
	for _, d := range report.Diagnostics {
		if d.Severity >= errors.ErrorSeverityError && !failedTemplates[d.Template] {
			summary.Failed++
			if d.Template != "" {
				failedTemplates[d.Template] = true
			}
		}
	}

	return summary
}

func outputGenerateResults(w io.Writer, summary GenerateSummary, flags *StandardFlags) error {
	if flags.Format == "json" {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(summary); err != nil {
			return err
		}
	} else if !flags.Quiet {
		printGenerateSummary(w, summary, flags.Verbose)
	}

	if summary.Failed > 0 {
		return fmt.Errorf("code generation failed for %d templates", summary.Failed)
	}
	return nil
}

func printGenerateSummary(w io.Writer, summary GenerateSummary, verbose bool) {
	fmt.Fprintf(w, "Code Generation Summary:\n")
	fmt.Fprintf(w, "  Templates: %d\n", summary.Total)
	fmt.Fprintf(w, "  Successful: %d\n", summary.Success)
	fmt.Fprintf(w, "  Failed: %d\n", summary.Failed)
	fmt.Fprintf(w, "  Layouts: %d\n", summary.Skipped)
	fmt.Fprintf(w, "  Files written: %d\n", summary.Written)
	fmt.Fprintf(w, "  Duration: %s\n", summary.Duration)
	fmt.Fprintln(w)

	for _, result := range summary.Results {
		switch {
		case result.Skipped:
			if verbose {
				fmt.Fprintf(w, "%s %s (layout)\n", mutedStyle.Render("-"), result.Template)
			}
		case !result.Success:
			fmt.Fprintf(w, "%s %s\n", errorStyle.Render("✗"), result.Template)
			fmt.Fprintf(w, "    %s\n", indent(result.Error, "    "))
		case result.Written || verbose:
			fmt.Fprintf(w, "%s %s\n", successStyle.Render("✓"), result.Template)
			fmt.Fprintf(w, "    %s %s\n", mutedStyle.Render(outputState(result)), result.Output)
		}
	}

	for _, d := range summary.Diagnostics {
		if d.Template != "" && hasResult(summary.Results, d.Template) {
			continue
		}
		fmt.Fprintln(w, formatDiagnostic(d))
	}

	if summary.Failed == 0 {
		fmt.Fprintln(w, successStyle.Render("Code generation completed successfully"))
	}
}

func outputState(result GenerateResult) string {
	switch {
	case result.Written:
		return "wrote"
	case result.Cached:
		return "cached"
	default:
		return "unchanged"
	}
}

func hasResult(results []GenerateResult, template string) bool {
	for _, r := range results {
		if r.Template == template {
			return true
		}
	}
	return false
}
