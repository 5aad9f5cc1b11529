package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/conneroisu/tmplc/internal/errors"
)

var (
	successColor = lipgloss.Color("#10b981")
	warningColor = lipgloss.Color("#f59e0b")
	errorColor   = lipgloss.Color("#ef4444")
	mutedColor   = lipgloss.Color("#94a3b8")

	titleStyle = lipgloss.NewStyle().
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(successColor)

	warningStyle = lipgloss.NewStyle().
			Foreground(warningColor).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)
)

// formatDiagnostic renders a diagnostic as file:line:col: severity: message.
func formatDiagnostic(d errors.Diagnostic) string {
	location := d.File
	if location == "" {
		location = d.Template
	}
	if d.Line > 0 {
		location = fmt.Sprintf("%s:%d:%d", location, d.Line, d.Column)
	}

	severity := d.Severity.String()
	switch {
	case d.Severity >= errors.ErrorSeverityError:
		severity = errorStyle.Render(severity)
	case d.Severity == errors.ErrorSeverityWarning:
		severity = warningStyle.Render(severity)
	default:
		severity = mutedStyle.Render(severity)
	}

	line := fmt.Sprintf("%s: %s: %s", location, severity, d.Message)
	if location == "" {
		line = fmt.Sprintf("%s: %s", severity, d.Message)
	}
	if d.Code != "" {
		line += " " + mutedStyle.Render("["+d.Code+"]")
	}
	return line
}

// indent prefixes every line after the first with prefix.
func indent(s, prefix string) string {
	return strings.ReplaceAll(strings.TrimRight(s, "\n"), "\n", "\n"+prefix)
}
