// Package cmd provides the command-line interface for tmplc.
//
// Configuration is resolved from several sources, highest priority first:
//
//  1. Command-line flags (--package, --output, --log-level, ...)
//  2. TMPLC_<SECTION>_<OPTION> environment variables (TMPLC_GENERATE_PACKAGE)
//  3. The file named by --config or TMPLC_CONFIG_FILE
//  4. .tmplc.yml in the working directory
//  5. Built-in defaults
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/tmplc/internal/build"
	"github.com/conneroisu/tmplc/internal/config"
	"github.com/conneroisu/tmplc/internal/errors"
	"github.com/conneroisu/tmplc/internal/logging"
)

var (
	cfgFile string
	logFile *os.File
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tmplc",
	Short: "Compile template ASTs into Go rendering code",
	Long: `tmplc compiles template documents, stored as YAML encoded ASTs, into Go
source that renders them. Layouts, sections and components are resolved at
compile time, so the generated code only writes text and expressions.

Quick Start:
  tmplc config init               Write a default .tmplc.yml
  tmplc generate                  Generate Go code for every document
  tmplc validate                  Compile without writing, report problems
  tmplc watch                     Regenerate as documents change
  tmplc ast pages/home.yaml       Print a document's tree

Command Aliases:
  generate (gen, g), validate (check), watch (w)`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)
	cobra.OnFinalize(closeLogFile)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is .tmplc.yml, can also use TMPLC_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().String("root", "views", "directory holding the AST documents")
	rootCmd.PersistentFlags().String("log-file", "", "also write JSON logs to this file")

	bindPersistentFlags(viper.GetViper())
}

// bindPersistentFlags ties the global flags to their configuration keys.
func bindPersistentFlags(v *viper.Viper) {
	flags := rootCmd.PersistentFlags()
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = v.BindPFlag("views.root", flags.Lookup("root"))
	_ = v.BindPFlag("log.file", flags.Lookup("log-file"))
}

// initConfig points viper at the configuration file and environment. A
// missing file is fine; defaults apply.
func initConfig() {
	file := cfgFile
	if file == "" {
		file = os.Getenv("TMPLC_CONFIG_FILE")
	}
	config.Setup(viper.GetViper(), file)

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && file != "" {
		fmt.Fprintf(os.Stderr, "Warning: cannot read config file %s: %v\n", file, err)
	}
}

// loadConfig resolves the configuration and a logger matching it. With
// log.file set, records also go to that file as JSON.
func loadConfig(cmd *cobra.Command) (*config.Config, logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logCfg := cfg.LoggerConfig()
	logCfg.Output = cmd.ErrOrStderr()
	var logger logging.Logger = logging.NewLogger(logCfg)

	if cfg.Log.File == "" {
		return cfg, logger, nil
	}
	closeLogFile()
	f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, errors.WrapIO(err, errors.ErrCodeWriteFailed, "cannot open log file").
			WithContext("path", cfg.Log.File)
	}
	logFile = f

	fileCfg := cfg.LoggerConfig()
	fileCfg.Format = "json"
	fileCfg.Output = f
	return cfg, logging.NewMultiLogger(logger, logging.NewLogger(fileCfg)), nil
}

func closeLogFile() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// newPipeline builds a pipeline from the resolved configuration.
func newPipeline(cfg *config.Config, logger logging.Logger, dryRun bool) *build.Pipeline {
	return build.NewPipeline(build.Options{
		Root:      cfg.Views.Root,
		Extension: cfg.Views.Extension,
		Exclude:   cfg.Views.Exclude,
		Layout:    cfg.Views.Layout,
		OutputDir: cfg.Generate.OutputDir,
		Package:   cfg.Generate.Package,
		Suffix:    cfg.Generate.Suffix,
		Workers:   cfg.EffectiveWorkers(),
		MaxDepth:  cfg.Generate.MaxDepth,
		DryRun:    dryRun,
		Logger:    logger,
	})
}
