package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/tmplc/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage tmplc configuration",
	Long: `Manage tmplc configuration files and settings.

Examples:
  tmplc config init                    # Write .tmplc.yml with defaults
  tmplc config validate                # Validate .tmplc.yml
  tmplc config show                    # Show the resolved configuration
  tmplc config validate --file ci.yml  # Validate a specific file`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with default values",
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate a tmplc configuration file. Errors include malformed paths,
package names that are not Go identifiers and unknown log levels; warnings
flag settings that work but are probably unintended.

Examples:
  tmplc config validate                 # Validate .tmplc.yml
  tmplc config validate --file ci.yml   # Validate a specific file
  tmplc config validate --strict        # Treat warnings as errors`,
	RunE: runConfigValidate,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the configuration after loading the file, applying environment
overrides and filling defaults.

Examples:
  tmplc config show                  # Show as YAML
  tmplc config show --format json    # Show as JSON`,
	RunE: runConfigShow,
}

var (
	configOutput string
	configFile   string
	configFormat string
	configStrict bool
	configForce  bool
)

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().StringVarP(&configOutput, "output", "o", config.FileName, "Output configuration file")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")

	configValidateCmd.Flags().
		StringVarP(&configFile, "file", "f", "", "Configuration file to validate (default: .tmplc.yml)")
	configValidateCmd.Flags().BoolVar(&configStrict, "strict", false, "Treat warnings as errors")

	configShowCmd.Flags().StringVar(&configFormat, "format", "yaml", "Output format (yaml, json)")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configOutput); err == nil && !configForce {
		return fmt.Errorf("configuration file %s already exists (use --force to overwrite)", configOutput)
	}

	v := viper.New()
	config.SetDefaults(v)
	cfg, err := config.LoadFrom(v)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	if err := os.WriteFile(configOutput, data, 0o644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration saved to: %s\n", configOutput)
	fmt.Fprintf(out, "\nNext steps:\n")
	fmt.Fprintf(out, "  1. Put template documents under %s/\n", cfg.Views.Root)
	fmt.Fprintf(out, "  2. Run 'tmplc generate'\n")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	targetFile := configFile
	if targetFile == "" {
		if _, err := os.Stat(config.FileName); err != nil {
			return errors.New("no configuration file found. Use --file to specify a config file " +
				"or run 'tmplc config init' to create one")
		}
		targetFile = config.FileName
	}

	if _, err := os.Stat(targetFile); os.IsNotExist(err) {
		return fmt.Errorf("configuration file %s does not exist", targetFile)
	}

	fmt.Fprintf(out, "Validating configuration file: %s\n", targetFile)

	v := viper.New()
	v.SetConfigFile(targetFile)
	config.SetDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read configuration file: %w", err)
	}

	var cfg config.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to parse configuration: %w", err)
	}

	validation := config.ValidateConfigWithDetails(&cfg)

	if validation.Valid && !validation.HasWarnings() {
		fmt.Fprintln(out, successStyle.Render("Configuration is valid"))
		return nil
	}

	fmt.Fprint(out, validation.String())

	if validation.HasErrors() {
		return fmt.Errorf("configuration validation failed with %d errors", len(validation.Errors))
	}

	if configStrict {
		return fmt.Errorf(
			"configuration validation failed in strict mode with %d warnings",
			len(validation.Warnings),
		)
	}

	fmt.Fprintln(out, warningStyle.Render("Configuration is valid with warnings"))
	fmt.Fprintf(out, "Found %d warnings. Use --strict to treat warnings as errors.\n",
		len(validation.Warnings))
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	return showConfig(cmd.OutOrStdout(), cfg, configFormat)
}

func showConfig(w io.Writer, cfg *config.Config, format string) error {
	switch format {
	case "yaml", "yml":
		fmt.Fprintln(w, "# Resolved from all sources (file, env vars, defaults)")
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(cfg); err != nil {
			return err
		}
		return encoder.Close()
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(cfg)
	default:
		return fmt.Errorf("unsupported format: %s (supported: yaml, json)", format)
	}
}
