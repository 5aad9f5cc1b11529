package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// StandardFlags provides consistent flag definitions across commands
type StandardFlags struct {
	// Generation flags
	OutputDir string `flag:"output,o" desc:"Directory for generated files" default:""`
	Package   string `flag:"package,p" desc:"Package clause of generated files" default:"views"`
	Layout    string `flag:"layout" desc:"Default layout document" default:""`
	Workers   int    `flag:"workers,j" desc:"Concurrent builds (0 = one per CPU)" default:"0"`

	// Output flags
	Format  string `flag:"format,f" desc:"Report format (text|json)" default:"text"`
	Verbose bool   `flag:"verbose,v" desc:"Enable verbose output" default:"false"`
	Quiet   bool   `flag:"quiet,q" desc:"Suppress output" default:"false"`
}

// AddStandardFlags adds standard flags to a command
func AddStandardFlags(cmd *cobra.Command, flagTypes ...string) *StandardFlags {
	flags := &StandardFlags{}

	for _, flagType := range flagTypes {
		switch flagType {
		case "generate":
			addGenerateFlags(cmd, flags)
		case "output":
			addOutputFlags(cmd, flags)
		}
	}

	return flags
}

func addGenerateFlags(cmd *cobra.Command, flags *StandardFlags) {
	cmd.Flags().StringVarP(&flags.OutputDir, "output", "o", "", "Directory for generated files (default: next to each document)")
	cmd.Flags().StringVarP(&flags.Package, "package", "p", "views", "Package clause of generated files")
	cmd.Flags().StringVar(&flags.Layout, "layout", "", "Default layout document, relative to the view root")
	cmd.Flags().IntVarP(&flags.Workers, "workers", "j", 0, "Concurrent builds (0 = one per CPU)")

	AddFlagValidation(cmd, "workers", ValidateWorkers)
}

func addOutputFlags(cmd *cobra.Command, flags *StandardFlags) {
	cmd.Flags().StringVarP(&flags.Format, "format", "f", "text", "Report format (text|json)")
	cmd.Flags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable verbose output")
	cmd.Flags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress output")

	AddFlagValidation(cmd, "format", ValidateFormat)
}

// ValidateFlags validates flag combinations and values
func (f *StandardFlags) ValidateFlags() error {
	if err := ValidateFormat(f.Format); err != nil {
		return err
	}

	// Quiet and verbose are mutually exclusive
	if f.Quiet && f.Verbose {
		return fmt.Errorf("cannot specify both --quiet and --verbose")
	}

	return nil
}

// generateBindings maps generation flags to configuration keys.
var generateBindings = map[string]string{
	"output":  "generate.output_dir",
	"package": "generate.package",
	"layout":  "views.layout",
	"workers": "generate.workers",
}

// SetViperBindings binds flags to viper configuration keys. Only flags the
// user set are bound, so an unset flag does not mask the config file.
func SetViperBindings(cmd *cobra.Command, v *viper.Viper, bindings map[string]string) error {
	for flagName, configKey := range bindings {
		flag := cmd.Flags().Lookup(flagName)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := v.BindPFlag(configKey, flag); err != nil {
			return fmt.Errorf("cannot bind --%s: %w", flagName, err)
		}
	}
	return nil
}

// AddFlagValidation adds validation for a specific flag
func AddFlagValidation(cmd *cobra.Command, flagName string, validator func(string) error) {
	flag := cmd.Flags().Lookup(flagName)
	if flag == nil {
		return
	}

	// Store original value setter
	originalSet := flag.Value.Set

	// Create wrapper that validates
	flag.Value = &validatingValue{
		Value:       flag.Value,
		validator:   validator,
		originalSet: originalSet,
	}
}

type validatingValue struct {
	pflag.Value
	validator   func(string) error
	originalSet func(string) error
}

func (v *validatingValue) Set(val string) error {
	if v.validator != nil {
		if err := v.validator(val); err != nil {
			return err
		}
	}
	return v.originalSet(val)
}

// ValidateWorkers accepts a non-negative worker count.
func ValidateWorkers(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid worker count: %s", s)
	}
	if n < 0 {
		return fmt.Errorf("worker count must not be negative, got %d", n)
	}
	return nil
}

// ValidateFormat accepts the report formats.
func ValidateFormat(s string) error {
	validFormats := []string{"text", "json"}
	for _, format := range validFormats {
		if s == format {
			return nil
		}
	}
	return fmt.Errorf("invalid output format %s, must be one of: %s",
		s, strings.Join(validFormats, ", "))
}
