package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/tmplc/internal/errors"
	"github.com/conneroisu/tmplc/internal/logging"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoadDefaults(t *testing.T) {
	config, err := LoadFrom(newViper())
	require.NoError(t, err)

	assert.Equal(t, "views", config.Views.Root)
	assert.Equal(t, "", config.Views.Layout)
	assert.Equal(t, ".yaml", config.Views.Extension)
	assert.Equal(t, []string{"*_test.yaml", "*.bak"}, config.Views.Exclude)
	assert.Equal(t, "", config.Generate.OutputDir)
	assert.Equal(t, "views", config.Generate.Package)
	assert.Equal(t, "_tmpl.go", config.Generate.Suffix)
	assert.Equal(t, 256, config.Generate.MaxDepth)
	assert.Equal(t, "info", config.Log.Level)
	assert.Equal(t, "text", config.Log.Format)
}

func TestLoadWithoutDefaults(t *testing.T) {
	config, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "views", config.Views.Root)
	assert.Equal(t, "_tmpl.go", config.Generate.Suffix)
	assert.Equal(t, 0, config.Generate.MaxDepth)
}

func TestLoadGlobal(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	SetDefaults(viper.GetViper())
	viper.Set("generate.package", "pages")

	config, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "pages", config.Generate.Package)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, FileName)
	content := `views:
  root: templates
  layout: layouts/base.yaml
  exclude:
    - drafts/*
generate:
  output_dir: gen
  package: pages
  workers: 2
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))

	v := viper.New()
	Setup(v, file)
	require.NoError(t, v.ReadInConfig())

	config, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "templates", config.Views.Root)
	assert.Equal(t, "layouts/base.yaml", config.Views.Layout)
	assert.Equal(t, []string{"drafts/*"}, config.Views.Exclude)
	assert.Equal(t, "gen", config.Generate.OutputDir)
	assert.Equal(t, "pages", config.Generate.Package)
	assert.Equal(t, 2, config.Generate.Workers)
	assert.Equal(t, 2, config.EffectiveWorkers())
	assert.Equal(t, "debug", config.Log.Level)
	assert.Equal(t, "json", config.Log.Format)
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("TMPLC_GENERATE_PACKAGE", "fromenv")
	t.Setenv("TMPLC_LOG_LEVEL", "warn")

	v := viper.New()
	Setup(v, filepath.Join(t.TempDir(), FileName))

	config, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, "fromenv", config.Generate.Package)
	assert.Equal(t, "warn", config.Log.Level)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value interface{}
		field string
	}{
		{"root traversal", "views.root", "../outside", "views.root"},
		{"absolute layout", "views.layout", "/etc/base.yaml", "views.layout"},
		{"escaping layout", "views.layout", "../base.yaml", "views.layout"},
		{"extension without dot", "views.extension", "yaml", "views.extension"},
		{"bad exclude pattern", "views.exclude", []string{"[a-"}, "views.exclude"},
		{"output traversal", "generate.output_dir", "gen/../../x", "generate.output_dir"},
		{"keyword package", "generate.package", "func", "generate.package"},
		{"invalid package", "generate.package", "my-views", "generate.package"},
		{"non go suffix", "generate.suffix", ".txt", "generate.suffix"},
		{"test suffix", "generate.suffix", "_test.go", "generate.suffix"},
		{"negative workers", "generate.workers", -1, "generate.workers"},
		{"negative depth", "generate.max_depth", -5, "generate.max_depth"},
		{"unknown level", "log.level", "loud", "log.level"},
		{"unknown format", "log.format", "xml", "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper()
			v.Set(tt.key, tt.value)

			config, err := LoadFrom(v)
			require.Error(t, err)
			assert.Nil(t, config)
			assert.Equal(t, errors.ErrorTypeConfig, errors.TypeOf(err))
			assert.Equal(t, tt.field, errors.GetErrorContext(err)["field"])
		})
	}
}

func TestValidationWarnings(t *testing.T) {
	config := &Config{
		Views:    ViewsConfig{Root: "views", Layout: "base.yml", Extension: ".yaml"},
		Generate: GenerateConfig{Package: "Views", Suffix: "_tmpl.go", Workers: runtime.NumCPU()*4 + 1},
		Log:      LogConfig{Level: "info", Format: "text"},
	}

	result := ValidateConfigWithDetails(config)
	assert.True(t, result.Valid)
	assert.False(t, result.HasErrors())
	require.True(t, result.HasWarnings())

	fields := make([]string, 0, len(result.Warnings))
	for _, w := range result.Warnings {
		fields = append(fields, w.Field)
	}
	assert.ElementsMatch(t, []string{"views.layout", "generate.package", "generate.workers"}, fields)
	assert.Contains(t, result.String(), "Validation warnings:")
	assert.NotContains(t, result.String(), "Validation errors:")
}

func TestValidationResultString(t *testing.T) {
	result := &ValidationResult{}
	result.addError("generate.package", "func", "package must be a Go identifier", "use \"views\"")

	out := result.String()
	assert.Contains(t, out, "Validation errors:")
	assert.Contains(t, out, "generate.package: package must be a Go identifier")
	assert.Contains(t, out, "hint: use \"views\"")
}

func TestEffectiveWorkers(t *testing.T) {
	config := &Config{}
	assert.Equal(t, runtime.NumCPU(), config.EffectiveWorkers())

	config.Generate.Workers = 3
	assert.Equal(t, 3, config.EffectiveWorkers())
}

func TestLoggerConfig(t *testing.T) {
	config := &Config{Log: LogConfig{Level: "debug", Format: "json"}}
	lc := config.LoggerConfig()
	assert.Equal(t, logging.LevelDebug, lc.Level)
	assert.Equal(t, "json", lc.Format)

	config.Log.Level = "nonsense"
	assert.Equal(t, logging.LevelInfo, config.LoggerConfig().Level)
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		path  string
		valid bool
	}{
		{"views", true},
		{"./views/pages", true},
		{"a..b", true},
		{"..", false},
		{"views/../../etc", false},
		{"views;rm", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			err := validatePath(tt.path)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
