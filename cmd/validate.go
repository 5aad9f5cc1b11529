package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conneroisu/tmplc/internal/build"
	"github.com/conneroisu/tmplc/internal/errors"
	"github.com/conneroisu/tmplc/internal/registry"
)

var (
	validateCircular bool
	validateFormat   string
)

// validateCmd represents the validate command.
var validateCmd = &cobra.Command{
	Use:     "validate [document...]",
	Aliases: []string{"check"},
	Short:   "Compile template documents without writing files",
	Long: `Compile template documents and report every problem without writing
generated files. Checks include:

- Malformed embedded code fragments
- Misuse of layouts, sections and components
- Components used without a use directive
- References to documents that do not exist
- Reference cycles between documents (--circular)

Examples:
  tmplc validate                       # Validate every document
  tmplc validate pages/home.yaml       # Validate one document
  tmplc validate --circular            # Also report reference cycles
  tmplc validate --format json         # Output results as JSON`,
	RunE: runValidateCommand,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().
		BoolVar(&validateCircular, "circular", true, "Check for reference cycles between documents")
	validateCmd.Flags().
		StringVarP(&validateFormat, "format", "f", "text", "Output format (text, json)")
	AddFlagValidation(validateCmd, "format", ValidateFormat)
}

type ValidationResult struct {
	Template string   `json:"template"`
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

type ValidationSummary struct {
	Total          int                `json:"total"`
	Valid          int                `json:"valid"`
	Invalid        int                `json:"invalid"`
	CircularCycles [][]string         `json:"circular_cycles,omitempty"`
	Results        []ValidationResult `json:"results"`
	Diagnostics    []string           `json:"diagnostics,omitempty"`
}

func runValidateCommand(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pipeline := newPipeline(cfg, logger, true)
	report, err := pipeline.Run(cmd.Context(), args...)
	if err != nil {
		return err
	}

	summary := validateReport(report, pipeline.Registry(), validateCircular && len(args) == 0)
	return outputValidationResults(cmd.OutOrStdout(), summary, validateFormat)
}

// validateReport turns a dry run into per template results. Registry wide
// checks only make sense after a full scan.
func validateReport(report *build.Report, reg *registry.TemplateRegistry, wholeTree bool) ValidationSummary {
	var summary ValidationSummary

	missing := map[string][]string{}
	if wholeTree {
		missing = reg.MissingDependencies()
	}

	for _, res := range report.Results {
		result := ValidationResult{
			Template: res.Template.Name,
			Valid:    res.Error == nil,
			Errors:   []string{},
			Warnings: []string{},
		}
		if res.Error != nil {
			result.Errors = append(result.Errors, errors.FormatError(res.Error))
		}
		for _, dep := range missing[res.Template.Name] {
			result.Warnings = append(result.Warnings, fmt.Sprintf("references missing document %s", dep))
		}

		summary.Results = append(summary.Results, result)
		summary.Total++
		if result.Valid {
			summary.Valid++
		} else {
			summary.Invalid++
		}
	}

	for _, d := range report.Diagnostics {
		if d.Template != "" && resultIndex(summary.Results, d.Template) >= 0 {
			continue
		}
		summary.Diagnostics = append(summary.Diagnostics, formatDiagnostic(d))
		if d.Severity >= errors.ErrorSeverityError {
			summary.Invalid++
		}
	}

	if wholeTree {
		summary.CircularCycles = reg.DetectCircularDependencies()
	}

	sort.Slice(summary.Results, func(i, j int) bool {
		return summary.Results[i].Template < summary.Results[j].Template
	})
	return summary
}

func resultIndex(results []ValidationResult, template string) int {
	for i, r := range results {
		if r.Template == template {
			return i
		}
	}
	return -1
}

func outputValidationResults(w io.Writer, summary ValidationSummary, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(summary); err != nil {
			return err
		}
	default:
		printValidationSummary(w, summary)
	}

	if summary.Invalid > 0 || len(summary.CircularCycles) > 0 {
		return fmt.Errorf("validation failed: %d invalid templates, %d reference cycles",
			summary.Invalid, len(summary.CircularCycles))
	}
	return nil
}

func printValidationSummary(w io.Writer, summary ValidationSummary) {
	fmt.Fprintln(w, titleStyle.Render("Validation Summary"))
	fmt.Fprintf(w, "  Templates: %d\n", summary.Total)
	fmt.Fprintf(w, "  Valid: %d\n", summary.Valid)
	fmt.Fprintf(w, "  Invalid: %d\n", summary.Invalid)
	fmt.Fprintln(w)

	for _, result := range summary.Results {
		if result.Valid && len(result.Warnings) == 0 {
			continue
		}
		mark := warningStyle.Render("!")
		if !result.Valid {
			mark = errorStyle.Render("✗")
		}
		fmt.Fprintf(w, "%s %s\n", mark, result.Template)
		for _, e := range result.Errors {
			fmt.Fprintf(w, "    %s %s\n", errorStyle.Render("error:"), indent(e, "    "))
		}
		for _, warn := range result.Warnings {
			fmt.Fprintf(w, "    %s %s\n", warningStyle.Render("warning:"), warn)
		}
	}

	for _, d := range summary.Diagnostics {
		fmt.Fprintln(w, d)
	}

	for _, cycle := range summary.CircularCycles {
		fmt.Fprintf(w, "%s reference cycle: %s\n", errorStyle.Render("✗"), strings.Join(cycle, " -> "))
	}

	if summary.Invalid == 0 && len(summary.CircularCycles) == 0 {
		fmt.Fprintln(w, successStyle.Render("All templates are valid"))
	}
}
