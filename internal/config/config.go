// Package config provides configuration management for tmplc using Viper
// for flexible configuration loading from files, environment variables, and
// command-line flags.
//
// The configuration file is .tmplc.yml; every key can be overridden with a
// TMPLC_ prefixed environment variable (TMPLC_GENERATE_PACKAGE overrides
// generate.package). It covers where AST documents live, how generated Go
// files are named and packaged, and how the tool logs.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/conneroisu/tmplc/internal/errors"
	"github.com/conneroisu/tmplc/internal/logging"
)

// FileName is the configuration file looked up in the working directory.
const FileName = ".tmplc.yml"

// EnvPrefix prefixes environment variable overrides.
const EnvPrefix = "TMPLC"

type Config struct {
	Views       ViewsConfig    `mapstructure:"views" yaml:"views" json:"views"`
	Generate    GenerateConfig `mapstructure:"generate" yaml:"generate" json:"generate"`
	Log         LogConfig      `mapstructure:"log" yaml:"log" json:"log"`
	TargetFiles []string       `mapstructure:"-" yaml:"-" json:"-"` // CLI arguments, not from config file
}

type ViewsConfig struct {
	// Root is the directory AST documents are resolved against.
	Root string `mapstructure:"root" yaml:"root" json:"root"`
	// Layout is applied to every document that neither extends a layout nor
	// is a layout itself. Relative to Root.
	Layout    string   `mapstructure:"layout" yaml:"layout" json:"layout"`
	Extension string   `mapstructure:"extension" yaml:"extension" json:"extension"`
	Exclude   []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
}

type GenerateConfig struct {
	// OutputDir receives generated files. Empty writes next to each
	// document.
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir" json:"output_dir"`
	Package   string `mapstructure:"package" yaml:"package" json:"package"`
	Suffix    string `mapstructure:"suffix" yaml:"suffix" json:"suffix"`
	Workers   int    `mapstructure:"workers" yaml:"workers" json:"workers"`
	MaxDepth  int    `mapstructure:"max_depth" yaml:"max_depth" json:"max_depth"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	// File additionally receives every record as JSON when set.
	File string `mapstructure:"file" yaml:"file,omitempty" json:"file,omitempty"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("views.root", "views")
	v.SetDefault("views.layout", "")
	v.SetDefault("views.extension", ".yaml")
	v.SetDefault("views.exclude", []string{"*_test.yaml", "*.bak"})

	v.SetDefault("generate.output_dir", "")
	v.SetDefault("generate.package", "views")
	v.SetDefault("generate.suffix", "_tmpl.go")
	v.SetDefault("generate.workers", 0)
	v.SetDefault("generate.max_depth", 256)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
}

// Setup points v at the configuration file and environment. An empty file
// searches the working directory for FileName.
func Setup(v *viper.Viper, file string) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(strings.TrimSuffix(FileName, ".yml"))
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.WrapConfig(err, errors.ErrCodeConfigInvalid, "cannot decode configuration")
	}

	// Handle exclude patterns set via viper (workaround for env strings)
	if v.IsSet("views.exclude") && len(config.Views.Exclude) == 0 {
		config.Views.Exclude = v.GetStringSlice("views.exclude")
	}

	applyDefaults(&config)

	result := ValidateConfigWithDetails(&config)
	if result.HasErrors() {
		first := result.Errors[0]
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("invalid configuration: %s", first.Error())).
			WithContext("field", first.Field).
			WithContext("errors", len(result.Errors))
	}

	return &config, nil
}

// applyDefaults fills values left empty when SetDefaults was never called
// on the source viper instance.
func applyDefaults(config *Config) {
	if config.Views.Root == "" {
		config.Views.Root = "views"
	}
	if config.Views.Extension == "" {
		config.Views.Extension = ".yaml"
	}
	if config.Generate.Package == "" {
		config.Generate.Package = "views"
	}
	if config.Generate.Suffix == "" {
		config.Generate.Suffix = "_tmpl.go"
	}
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}
}

// EffectiveWorkers resolves a zero worker count to the number of CPUs.
func (c *Config) EffectiveWorkers() int {
	if c.Generate.Workers > 0 {
		return c.Generate.Workers
	}
	return runtime.NumCPU()
}

// LoggerConfig translates the log section for logging.NewLogger. The level
// has already been validated, so a parse failure falls back to info.
func (c *Config) LoggerConfig() *logging.LoggerConfig {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		level = logging.LevelInfo
	}
	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Format = c.Log.Format
	return cfg
}
