package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/tmplc/internal/errors"
	"github.com/conneroisu/tmplc/internal/registry"
	"github.com/conneroisu/tmplc/internal/scanner"
	"github.com/conneroisu/tmplc/internal/types"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"l"},
	Short:   "List all template documents",
	Long: `List the template documents below the view root with what the scanner
learned about them: the generated type, the layout they extend, the
sections they declare and the components they use.

Examples:
  tmplc list                    # Table of documents
  tmplc list -d                 # Include referenced documents
  tmplc list --format json      # Output as JSON
  tmplc list --format yaml      # Output as YAML`,
	RunE: runList,
}

var (
	listFormat   string
	listWithDeps bool
)

var listFormats = []string{"table", "json", "yaml"}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "Output format (table|json|yaml)")
	listCmd.Flags().BoolVarP(&listWithDeps, "with-deps", "d", false, "Include referenced documents")

	AddFlagValidation(listCmd, "format", func(format string) error {
		return ValidateFormatWithSuggestion(format, listFormats)
	})
}

// ValidateFormatWithSuggestion rejects formats outside valid and suggests
// the closest one.
func ValidateFormatWithSuggestion(format string, valid []string) error {
	for _, v := range valid {
		if v == format {
			return nil
		}
	}
	msg := fmt.Sprintf("invalid format %q, must be one of: %s", format, strings.Join(valid, ", "))
	if suggestions := errors.Suggest(format, valid); len(suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean %q?)", suggestions[0])
	}
	return fmt.Errorf("%s", msg)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	reg := registry.NewTemplateRegistry()
	sc := scanner.NewTemplateScanner(reg, cfg.Views.Root, scanner.Options{
		Extension: cfg.Views.Extension,
		Exclude:   cfg.Views.Exclude,
		Workers:   cfg.EffectiveWorkers(),
	})
	if err := sc.ScanDirectory(cmd.Context()); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), warningStyle.Render("Warning:"), err)
	}

	return outputTemplates(cmd.OutOrStdout(), reg.GetAll(), listFormat, listWithDeps)
}

type templateListing struct {
	Name         string   `json:"name" yaml:"name"`
	Type         string   `json:"type" yaml:"type"`
	Layout       bool     `json:"layout" yaml:"layout"`
	Extends      string   `json:"extends,omitempty" yaml:"extends,omitempty"`
	Sections     []string `json:"sections,omitempty" yaml:"sections,omitempty"`
	Uses         []string `json:"uses,omitempty" yaml:"uses,omitempty"`
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

func outputTemplates(w io.Writer, templates []*types.TemplateInfo, format string, withDeps bool) error {
	listings := make([]templateListing, 0, len(templates))
	for _, t := range templates {
		l := templateListing{
			Name:     t.Name,
			Type:     t.TypeName,
			Layout:   t.IsLayout,
			Extends:  t.Extends,
			Sections: t.Sections,
			Uses:     t.Uses,
		}
		if withDeps {
			l.Dependencies = t.Dependencies
		}
		listings = append(listings, l)
	}

	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(listings)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(listings); err != nil {
			return err
		}
		return encoder.Close()
	case "table":
		return outputTable(w, listings, withDeps)
	default:
		return ValidateFormatWithSuggestion(format, listFormats)
	}
}

func outputTable(w io.Writer, listings []templateListing, withDeps bool) error {
	if len(listings) == 0 {
		fmt.Fprintln(w, "No templates found")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := "NAME\tTYPE\tEXTENDS\tSECTIONS\tUSES"
	if withDeps {
		header += "\tDEPENDENCIES"
	}
	fmt.Fprintln(tw, header)

	for _, l := range listings {
		extends := l.Extends
		if l.Layout {
			extends = "(layout)"
		}
		row := strings.Join([]string{
			l.Name, l.Type, dash(extends), dash(strings.Join(l.Sections, ",")), dash(strings.Join(l.Uses, ",")),
		}, "\t")
		if withDeps {
			row += "\t" + dash(strings.Join(l.Dependencies, ","))
		}
		fmt.Fprintln(tw, row)
	}

	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nTotal: %d templates\n", len(listings))
	return nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
