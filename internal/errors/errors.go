package errors

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Diagnostic is a compile error pinned to a template file.
type Diagnostic struct {
	Template  string
	File      string
	Line      int
	Column    int
	Code      string
	Message   string
	Severity  ErrorSeverity
	Timestamp time.Time
}

// ErrorSeverity represents the severity of a diagnostic
type ErrorSeverity int

const (
	ErrorSeverityInfo ErrorSeverity = iota
	ErrorSeverityWarning
	ErrorSeverityError
	ErrorSeverityFatal
)

// String returns the string representation of the severity
func (s ErrorSeverity) String() string {
	switch s {
	case ErrorSeverityInfo:
		return "info"
	case ErrorSeverityWarning:
		return "warning"
	case ErrorSeverityError:
		return "error"
	case ErrorSeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error implements the error interface
func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.File, d.Line, d.Column, d.Severity, d.Message)
}

// DiagnosticFrom converts err into a diagnostic. Compile errors keep their
// location; anything else is reported at line 0 of file.
func DiagnosticFrom(template, file string, err error) Diagnostic {
	d := Diagnostic{
		Template: template,
		File:     file,
		Message:  err.Error(),
		Severity: ErrorSeverityError,
	}

	var te *TmplcError
	if errors.As(err, &te) {
		d.Code = te.Code
		d.Message = te.Message
		d.Line = te.Line
		d.Column = te.Column
		if te.FilePath != "" {
			d.File = te.FilePath
		}
		if te.Type == ErrorTypeInternal {
			d.Severity = ErrorSeverityFatal
		}
	}

	return d
}

// DiagnosticCollector gathers diagnostics from concurrent compilations.
type DiagnosticCollector struct {
	diagnostics []Diagnostic
	errors      []error
	mutex       sync.RWMutex
}

// NewDiagnosticCollector creates a new collector
func NewDiagnosticCollector() *DiagnosticCollector {
	return &DiagnosticCollector{
		diagnostics: make([]Diagnostic, 0),
		errors:      make([]error, 0),
	}
}

// Add adds a diagnostic to the collector
func (dc *DiagnosticCollector) Add(d Diagnostic) {
	dc.mutex.Lock()
	defer dc.mutex.Unlock()
	d.Timestamp = time.Now()
	dc.diagnostics = append(dc.diagnostics, d)
}

// AddError adds a general error to the collector
func (dc *DiagnosticCollector) AddError(err error) {
	if err == nil {
		return
	}
	dc.mutex.Lock()
	defer dc.mutex.Unlock()
	dc.errors = append(dc.errors, err)
}

// Diagnostics returns the collected diagnostics ordered by file, line and
// column.
func (dc *DiagnosticCollector) Diagnostics() []Diagnostic {
	dc.mutex.RLock()
	result := make([]Diagnostic, len(dc.diagnostics))
	copy(result, dc.diagnostics)
	dc.mutex.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	return result
}

// AllErrors returns all collected errors, diagnostics first.
func (dc *DiagnosticCollector) AllErrors() []error {
	diagnostics := dc.Diagnostics()

	dc.mutex.RLock()
	defer dc.mutex.RUnlock()

	all := make([]error, 0, len(diagnostics)+len(dc.errors))
	for i := range diagnostics {
		all = append(all, &diagnostics[i])
	}
	all = append(all, dc.errors...)

	return all
}

// HasErrors returns true if there are any errors
func (dc *DiagnosticCollector) HasErrors() bool {
	dc.mutex.RLock()
	defer dc.mutex.RUnlock()
	for _, d := range dc.diagnostics {
		if d.Severity >= ErrorSeverityError {
			return true
		}
	}
	return len(dc.errors) > 0
}

// Clear clears all errors
func (dc *DiagnosticCollector) Clear() {
	dc.mutex.Lock()
	defer dc.mutex.Unlock()
	dc.diagnostics = dc.diagnostics[:0]
	dc.errors = dc.errors[:0]
}

// ByFile returns diagnostics for a specific file
func (dc *DiagnosticCollector) ByFile(file string) []Diagnostic {
	var out []Diagnostic
	for _, d := range dc.Diagnostics() {
		if d.File == file {
			out = append(out, d)
		}
	}
	return out
}

// ByTemplate returns diagnostics for a specific template
func (dc *DiagnosticCollector) ByTemplate(template string) []Diagnostic {
	var out []Diagnostic
	for _, d := range dc.Diagnostics() {
		if d.Template == template {
			out = append(out, d)
		}
	}
	return out
}
