package config

import (
	"fmt"
	"go/token"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/conneroisu/tmplc/internal/logging"
)

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	if len(vr.Errors) > 0 {
		builder.WriteString("Validation errors:\n")
		for _, err := range vr.Errors {
			builder.WriteString(fmt.Sprintf("  • %s: %s\n", err.Field, err.Message))
			for _, suggestion := range err.Suggestions {
				builder.WriteString(fmt.Sprintf("    hint: %s\n", suggestion))
			}
		}
	}

	if len(vr.Warnings) > 0 {
		if len(vr.Errors) > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString("Validation warnings:\n")
		for _, warning := range vr.Warnings {
			builder.WriteString(fmt.Sprintf("  • %s: %s\n", warning.Field, warning.Message))
			for _, suggestion := range warning.Suggestions {
				builder.WriteString(fmt.Sprintf("    hint: %s\n", suggestion))
			}
		}
	}

	return builder.String()
}

func (vr *ValidationResult) addError(field string, value interface{}, message string, suggestions ...string) {
	vr.Errors = append(vr.Errors, ValidationError{
		Field:       field,
		Value:       value,
		Message:     message,
		Suggestions: suggestions,
	})
}

func (vr *ValidationResult) addWarning(field string, value interface{}, message string, suggestions ...string) {
	vr.Warnings = append(vr.Warnings, ValidationError{
		Field:       field,
		Value:       value,
		Message:     message,
		Suggestions: suggestions,
	})
}

// ValidateConfigWithDetails checks every section and collects all problems
// instead of stopping at the first.
func ValidateConfigWithDetails(config *Config) *ValidationResult {
	result := &ValidationResult{}

	validateViewsConfig(&config.Views, result)
	validateGenerateConfig(&config.Generate, result)
	validateLogConfig(&config.Log, result)

	result.Valid = !result.HasErrors()
	return result
}

func validateViewsConfig(config *ViewsConfig, result *ValidationResult) {
	if err := validatePath(config.Root); err != nil {
		result.addError("views.root", config.Root, err.Error(),
			"use a directory below the project root, such as \"views\"")
	}

	if config.Layout != "" {
		layout := filepath.ToSlash(config.Layout)
		if !isRelativeTo(layout) {
			result.addError("views.layout", config.Layout,
				"layout must be relative to the view root",
				"write the path as it appears below views.root, such as \"layouts/base.yaml\"")
		} else if path.Ext(layout) != config.Extension {
			result.addWarning("views.layout", config.Layout,
				fmt.Sprintf("layout does not have the %s extension", config.Extension))
		}
	}

	if !strings.HasPrefix(config.Extension, ".") || len(config.Extension) < 2 {
		result.addError("views.extension", config.Extension,
			"extension must start with a dot", "use \".yaml\" or \".yml\"")
	}

	for _, pattern := range config.Exclude {
		if _, err := filepath.Match(pattern, "probe"); err != nil {
			result.addError("views.exclude", pattern, fmt.Sprintf("bad pattern: %v", err))
		}
	}
}

func validateGenerateConfig(config *GenerateConfig, result *ValidationResult) {
	if config.OutputDir != "" {
		if err := validatePath(config.OutputDir); err != nil {
			result.addError("generate.output_dir", config.OutputDir, err.Error())
		}
	}

	if !isPackageName(config.Package) {
		result.addError("generate.package", config.Package,
			"package must be a Go identifier and not a keyword",
			"use a short lower-case name such as \"views\"")
	} else if config.Package != strings.ToLower(config.Package) {
		result.addWarning("generate.package", config.Package,
			"package names are conventionally lower case")
	}

	if !strings.HasSuffix(config.Suffix, ".go") {
		result.addError("generate.suffix", config.Suffix, "suffix must end in .go",
			"use \"_tmpl.go\"")
	} else if strings.HasSuffix(config.Suffix, "_test.go") {
		result.addError("generate.suffix", config.Suffix,
			"generated files would be compiled only by go test")
	}

	if config.Workers < 0 {
		result.addError("generate.workers", config.Workers, "workers cannot be negative",
			"use 0 to run one worker per CPU")
	} else if limit := runtime.NumCPU() * 4; config.Workers > limit {
		result.addWarning("generate.workers", config.Workers,
			fmt.Sprintf("more workers than %d rarely helps", limit))
	}

	if config.MaxDepth < 0 {
		result.addError("generate.max_depth", config.MaxDepth, "max_depth cannot be negative",
			"use 0 for the compiler default")
	}
}

func validateLogConfig(config *LogConfig, result *ValidationResult) {
	if _, err := logging.ParseLevel(config.Level); err != nil {
		result.addError("log.level", config.Level, err.Error(),
			"use one of debug, info, warn, error")
	}

	switch config.Format {
	case "text", "json":
	default:
		result.addError("log.format", config.Format,
			fmt.Sprintf("unknown format %q", config.Format), "use \"text\" or \"json\"")
	}

	if config.File != "" && strings.ContainsRune(config.File, 0) {
		result.addError("log.file", config.File, "path contains a NUL byte")
	}
}

// validatePath validates a directory setting for security
func validatePath(p string) error {
	if p == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(p)

	// Reject path traversal attempts
	for _, part := range strings.Split(filepath.ToSlash(cleanPath), "/") {
		if part == ".." {
			return fmt.Errorf("path contains traversal: %s", p)
		}
	}

	// Reject dangerous characters
	dangerousChars := []string{";", "&", "|", "$", "`", "<", ">", "\"", "'", "\x00"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %q", char)
		}
	}

	return nil
}

// isRelativeTo reports whether p stays inside the directory it is resolved
// against.
func isRelativeTo(p string) bool {
	if path.IsAbs(p) || strings.Contains(p, "\\") {
		return false
	}
	clean := path.Clean(p)
	return clean != ".." && !strings.HasPrefix(clean, "../")
}

func isPackageName(name string) bool {
	return token.IsIdentifier(name) && name != "_"
}
