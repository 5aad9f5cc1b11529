package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/tmplc/internal/errors"
	"github.com/conneroisu/tmplc/internal/testutils"
)

// setupProject creates a project with the fixture site in a fresh working
// directory.
func setupProject(t *testing.T, extra map[string]string) string {
	t.Helper()
	dir := testutils.CreateTempProject(t, extra)
	t.Chdir(dir)
	return dir
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command with args and returns what it wrote to
// stdout. Logs go to a separate buffer so JSON output stays parseable.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	viper.Reset()
	resetFlags(rootCmd)
	cfgFile = ""
	bindPersistentFlags(viper.GetViper())
	t.Cleanup(viper.Reset)

	var out, logs bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&logs)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return out.String(), err
}

func TestGenerateCommand(t *testing.T) {
	dir := setupProject(t, nil)

	out, err := execute(t, "generate")
	require.NoError(t, err, out)

	assert.Contains(t, out, "Code Generation Summary")
	assert.Contains(t, out, "pages/home.yaml")
	assert.FileExists(t, filepath.Join(dir, "views", "pages", "home_tmpl.go"))
	assert.FileExists(t, filepath.Join(dir, "views", "components", "card_tmpl.go"))
	assert.NoFileExists(t, filepath.Join(dir, "views", "layouts", "base_tmpl.go"))
}

func TestGenerateCommandJSON(t *testing.T) {
	setupProject(t, nil)

	out, err := execute(t, "generate", "--format", "json")
	require.NoError(t, err, out)

	var summary GenerateSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Success)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 2, summary.Written)
	assert.Zero(t, summary.Failed)
}

func TestGenerateCommandFlagsOverrideConfig(t *testing.T) {
	dir := setupProject(t, nil)

	out, err := execute(t, "generate", "--output", "gen", "--package", "site", "-q")
	require.NoError(t, err, out)

	src, err := os.ReadFile(filepath.Join(dir, "gen", "pages_home_tmpl.go"))
	require.NoError(t, err)
	assert.Contains(t, string(src), "package site")
}

func TestGenerateCommandReadsConfigFile(t *testing.T) {
	dir := setupProject(t, map[string]string{
		".tmplc.yml": "generate:\n  package: fromfile\n  suffix: _gen.go\n",
	})

	out, err := execute(t, "generate", "pages/home.yaml")
	require.NoError(t, err, out)

	src, err := os.ReadFile(filepath.Join(dir, "views", "pages", "home_gen.go"))
	require.NoError(t, err)
	assert.Contains(t, string(src), "package fromfile")
}

func TestGenerateCommandWritesLogFile(t *testing.T) {
	dir := setupProject(t, nil)

	out, err := execute(t, "generate", "-q", "--log-level", "debug", "--log-file", "tmplc.log")
	require.NoError(t, err, out)
	closeLogFile()

	data, err := os.ReadFile(filepath.Join(dir, "tmplc.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"operation":"build"`)
}

func TestGenerateCommandDryRun(t *testing.T) {
	dir := setupProject(t, nil)

	out, err := execute(t, "generate", "--dry-run", "--format", "json")
	require.NoError(t, err, out)

	var summary GenerateSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 2, summary.Success)
	assert.Zero(t, summary.Written)
	assert.NoFileExists(t, filepath.Join(dir, "views", "pages", "home_tmpl.go"))
}

func TestGenerateCommandFailure(t *testing.T) {
	dir := setupProject(t, map[string]string{"views/pages/broken.yaml": testutils.BrokenDoc})

	out, err := execute(t, "generate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 templates")
	assert.Contains(t, out, "pages/broken.yaml")
	assert.FileExists(t, filepath.Join(dir, "views", "pages", "home_tmpl.go"))
}

func TestGenerateCommandRejectsBadFormat(t *testing.T) {
	setupProject(t, nil)

	_, err := execute(t, "generate", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")
}

func TestValidateCommand(t *testing.T) {
	dir := setupProject(t, nil)

	out, err := execute(t, "validate")
	require.NoError(t, err, out)
	assert.Contains(t, out, "All templates are valid")
	assert.NoFileExists(t, filepath.Join(dir, "views", "pages", "home_tmpl.go"))
}

func TestValidateCommandReportsProblems(t *testing.T) {
	setupProject(t, map[string]string{
		"views/pages/broken.yaml":  testutils.BrokenDoc,
		"views/pages/invalid.yaml": "- kind: nonsense\n",
	})

	out, err := execute(t, "validate", "--format", "json")
	require.Error(t, err)

	var summary ValidationSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 2, summary.Invalid)
	require.NotEmpty(t, summary.Diagnostics)

	idx := resultIndex(summary.Results, "pages/broken.yaml")
	require.GreaterOrEqual(t, idx, 0)
	assert.False(t, summary.Results[idx].Valid)
	assert.NotEmpty(t, summary.Results[idx].Errors)
}

func TestValidateCommandWarnsAboutMissingDocuments(t *testing.T) {
	setupProject(t, map[string]string{
		"views/pages/about.yaml": "- {kind: extends, path: layouts/missing.yaml}\n",
	})

	out, err := execute(t, "validate", "--format", "json")
	require.Error(t, err, "a missing layout cannot compile")

	var summary ValidationSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	idx := resultIndex(summary.Results, "pages/about.yaml")
	require.GreaterOrEqual(t, idx, 0)
	assert.Contains(t, summary.Results[idx].Warnings, "references missing document layouts/missing.yaml")
}

func TestAstCommand(t *testing.T) {
	setupProject(t, nil)

	out, err := execute(t, "ast", "pages/home.yaml")
	require.NoError(t, err, out)
	assert.Contains(t, out, `ExtendsDirective: "layouts/base.yaml"`)
	assert.Contains(t, out, `Component: "Card"`)
	assert.NotContains(t, out, "RenderBody")

	out, err = execute(t, "ast", "pages/home.yaml", "--expand")
	require.NoError(t, err, out)
	assert.Contains(t, out, "RenderBody")
	assert.Contains(t, out, "ChildContent")
}

func TestAstCommandOps(t *testing.T) {
	setupProject(t, nil)

	out, err := execute(t, "ast", "pages/home.yaml", "--ops")
	require.NoError(t, err, out)
	assert.Contains(t, out, "# layout layouts/base.yaml")
	assert.Contains(t, out, "escaped t.Name")
	assert.Contains(t, out, "literal")
}

func TestAstCommandStats(t *testing.T) {
	setupProject(t, nil)

	out, err := execute(t, "ast", "pages/home.yaml", "--stats")
	require.NoError(t, err, out)
	assert.Contains(t, out, "ExtendsDirective")
	assert.Contains(t, out, "SimpleExpr")
}

func TestAstCommandErrors(t *testing.T) {
	setupProject(t, nil)

	_, err := execute(t, "ast", "pages/missing.yaml")
	require.Error(t, err)

	_, err = execute(t, "ast", "../outside.yaml")
	require.Error(t, err)

	_, err = execute(t, "ast")
	require.Error(t, err)
}

func TestListCommand(t *testing.T) {
	setupProject(t, nil)

	out, err := execute(t, "list")
	require.NoError(t, err, out)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "(layout)")
	assert.Contains(t, out, "Total: 3 templates")

	out, err = execute(t, "list", "--format", "json", "-d")
	require.NoError(t, err, out)

	var listings []templateListing
	require.NoError(t, json.Unmarshal([]byte(out), &listings))
	require.Len(t, listings, 3)
	home := listings[2]
	assert.Equal(t, "pages/home.yaml", home.Name)
	assert.Equal(t, "Home", home.Type)
	assert.Equal(t, "layouts/base.yaml", home.Extends)
	assert.Equal(t, []string{"components/card.yaml"}, home.Uses)
	assert.Equal(t, []string{"components/card.yaml", "layouts/base.yaml"}, home.Dependencies)
}

func TestListCommandSuggestsFormat(t *testing.T) {
	setupProject(t, nil)

	_, err := execute(t, "list", "--format", "jsn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "json"`)
}

func TestConfigCommands(t *testing.T) {
	setupProject(t, nil)

	out, err := execute(t, "config", "init")
	require.NoError(t, err, out)
	assert.FileExists(t, ".tmplc.yml")

	_, err = execute(t, "config", "init")
	require.Error(t, err, "existing file needs --force")

	out, err = execute(t, "config", "validate")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Configuration is valid")
}

func TestConfigValidateReportsErrors(t *testing.T) {
	setupProject(t, map[string]string{
		"bad.yml": "generate:\n  package: not-a-package\n",
	})

	out, err := execute(t, "config", "validate", "--file", "bad.yml")
	require.Error(t, err)
	assert.Contains(t, out, "generate.package")
}

func TestConfigShowAppliesEnvironment(t *testing.T) {
	setupProject(t, nil)
	t.Setenv("TMPLC_GENERATE_PACKAGE", "fromenv")

	out, err := execute(t, "config", "show", "--format", "json")
	require.NoError(t, err, out)

	var shown struct {
		Views    struct{ Root string }    `json:"views"`
		Generate struct{ Package string } `json:"generate"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, "views", shown.Views.Root)
	assert.Equal(t, "fromenv", shown.Generate.Package)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version", "--format", "json")
	require.NoError(t, err, out)

	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Contains(t, info, "version")
	assert.Contains(t, info, "is_release")

	out, err = execute(t, "version", "--short")
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	_, err = execute(t, "version", "--format", "xml")
	require.Error(t, err)
}

func TestValidateCustomCommand(t *testing.T) {
	tests := []struct {
		name    string
		command string
		wantErr string
	}{
		{"go build", "go build ./...", ""},
		{"make", "make generate", ""},
		{"empty", "   ", "empty custom command"},
		{"not allowed", "rm -rf /", "not allowed"},
		{"semicolon", "go build; rm x", "dangerous character: ;"},
		{"pipe", "echo a|b", "dangerous character: |"},
		{"variable", "echo $HOME", "dangerous character: $"},
		{"traversal", "go build ../other", "path traversal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCustomCommand(tt.command)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFlagValidators(t *testing.T) {
	assert.NoError(t, ValidateWorkers("0"))
	assert.NoError(t, ValidateWorkers("8"))
	assert.Error(t, ValidateWorkers("-1"))
	assert.Error(t, ValidateWorkers("many"))

	assert.NoError(t, ValidateFormat("json"))
	assert.Error(t, ValidateFormat("yaml"))

	flags := &StandardFlags{Format: "text", Quiet: true, Verbose: true}
	assert.Error(t, flags.ValidateFlags())
}

func TestFormatDiagnostic(t *testing.T) {
	d := errors.Diagnostic{
		File:     "views/pages/home.yaml",
		Line:     3,
		Column:   5,
		Code:     errors.ErrCodeMalformedFragment,
		Message:  "unclosed (",
		Severity: errors.ErrorSeverityError,
	}
	line := formatDiagnostic(d)
	assert.Contains(t, line, "views/pages/home.yaml:3:5")
	assert.Contains(t, line, "unclosed (")
	assert.Contains(t, line, errors.ErrCodeMalformedFragment)

	assert.Contains(t, formatDiagnostic(errors.Diagnostic{Message: "boom"}), "boom")
}

func TestIndent(t *testing.T) {
	assert.Equal(t, "a\n  b", indent("a\nb\n", "  "))
}
