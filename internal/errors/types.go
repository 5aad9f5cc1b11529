// Package errors defines the structured errors reported by the template
// compiler and the generation tooling around it.
//
// Compile failures abort code generation for the whole template. Each one
// carries a type, a stable code, a human readable message and the location
// of the offending node so that tools can attach it to the template as a
// build-time diagnostic.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	// ErrorTypeMalformedFragment marks an embedded code fragment that the Go
	// scanner cannot tokenize.
	ErrorTypeMalformedFragment ErrorType = "malformed_fragment"
	// ErrorTypeProtocolViolation marks structural misuse of the layout,
	// section or component directives.
	ErrorTypeProtocolViolation ErrorType = "protocol_violation"
	// ErrorTypeUnresolvedComponent marks a component used without a prior
	// use directive.
	ErrorTypeUnresolvedComponent ErrorType = "unresolved_component"
	// ErrorTypeDepthExceeded marks a tree nested deeper than the compiler
	// accepts.
	ErrorTypeDepthExceeded ErrorType = "depth_exceeded"

	ErrorTypeIO       ErrorType = "io"
	ErrorTypeConfig   ErrorType = "config"
	ErrorTypeDocument ErrorType = "document"
	ErrorTypeInternal ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodeMalformedFragment   = "ERR_MALFORMED_FRAGMENT"
	ErrCodeProtocolViolation   = "ERR_PROTOCOL_VIOLATION"
	ErrCodeUnresolvedComponent = "ERR_UNRESOLVED_COMPONENT"
	ErrCodeDepthExceeded       = "ERR_DEPTH_EXCEEDED"
	ErrCodeInvalidDocument     = "ERR_INVALID_DOCUMENT"
	ErrCodeDocumentCycle       = "ERR_DOCUMENT_CYCLE"
	ErrCodeFileNotFound        = "ERR_FILE_NOT_FOUND"
	ErrCodeWriteFailed         = "ERR_WRITE_FAILED"
	ErrCodeConfigInvalid       = "ERR_CONFIG_INVALID"
	ErrCodeInternalError       = "ERR_INTERNAL"
)

// Sentinels for errors.Is. Matching compares type and code only.
var (
	ErrMalformedFragment   = &TmplcError{Type: ErrorTypeMalformedFragment, Code: ErrCodeMalformedFragment}
	ErrProtocolViolation   = &TmplcError{Type: ErrorTypeProtocolViolation, Code: ErrCodeProtocolViolation}
	ErrUnresolvedComponent = &TmplcError{Type: ErrorTypeUnresolvedComponent, Code: ErrCodeUnresolvedComponent}
	ErrDepthExceeded       = &TmplcError{Type: ErrorTypeDepthExceeded, Code: ErrCodeDepthExceeded}
)

// TmplcError is a structured error type with location and context.
type TmplcError struct {
	Type      ErrorType
	Code      string
	Message   string
	Cause     error
	Context   map[string]interface{}
	Template  string
	FilePath  string
	Line      int
	Column    int
	EndLine   int
	EndColumn int
}

// Error implements the error interface.
func (e *TmplcError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Template != "" {
		parts = append(parts, "template:"+e.Template)
	}

	if location := e.Location(); location != "" {
		parts = append(parts, location)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Location renders file:line:col, omitting whatever is unknown.
func (e *TmplcError) Location() string {
	location := e.FilePath
	if e.Line > 0 {
		if location != "" {
			location += ":"
		}
		location += fmt.Sprintf("%d", e.Line)
		if e.Column > 0 {
			location += fmt.Sprintf(":%d", e.Column)
		}
	}
	return location
}

// Unwrap returns the underlying cause error.
func (e *TmplcError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *TmplcError) Is(target error) bool {
	var t *TmplcError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// IsCompileError reports whether the error aborts a compilation, as opposed
// to tooling failures such as I/O.
func (e *TmplcError) IsCompileError() bool {
	switch e.Type {
	case ErrorTypeMalformedFragment, ErrorTypeProtocolViolation,
		ErrorTypeUnresolvedComponent, ErrorTypeDepthExceeded:
		return true
	}
	return false
}

// WithContext adds context information to the error.
func (e *TmplcError) WithContext(key string, value interface{}) *TmplcError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithLocation adds file location information.
func (e *TmplcError) WithLocation(filePath string, line, column int) *TmplcError {
	e.FilePath = filePath
	e.Line = line
	e.Column = column

	return e
}

// WithSpan sets the start and end of the offending node.
func (e *TmplcError) WithSpan(line, column, endLine, endColumn int) *TmplcError {
	e.Line = line
	e.Column = column
	e.EndLine = endLine
	e.EndColumn = endColumn

	return e
}

// WithFile sets the file the error belongs to.
func (e *TmplcError) WithFile(filePath string) *TmplcError {
	e.FilePath = filePath

	return e
}

// WithTemplate adds template name context.
func (e *TmplcError) WithTemplate(template string) *TmplcError {
	e.Template = template

	return e
}

// Error creation functions

// NewMalformedFragment creates an error for a fragment that cannot be
// tokenized.
func NewMalformedFragment(fragment, reason string) *TmplcError {
	return &TmplcError{
		Type:    ErrorTypeMalformedFragment,
		Code:    ErrCodeMalformedFragment,
		Message: fmt.Sprintf("malformed code fragment %q: %s", truncate(fragment, 60), reason),
	}
}

// NewProtocolViolation creates an error for structural directive misuse.
func NewProtocolViolation(message string) *TmplcError {
	return &TmplcError{
		Type:    ErrorTypeProtocolViolation,
		Code:    ErrCodeProtocolViolation,
		Message: message,
	}
}

// NewUnresolvedComponent creates an error for a component without a prior
// use directive.
func NewUnresolvedComponent(name string) *TmplcError {
	return (&TmplcError{
		Type:    ErrorTypeUnresolvedComponent,
		Code:    ErrCodeUnresolvedComponent,
		Message: fmt.Sprintf("component %q is not imported by a preceding use directive", name),
	}).WithContext("component", name)
}

// NewDepthExceeded creates an error for a tree nested beyond limit.
func NewDepthExceeded(limit int) *TmplcError {
	return (&TmplcError{
		Type:    ErrorTypeDepthExceeded,
		Code:    ErrCodeDepthExceeded,
		Message: fmt.Sprintf("template nesting exceeds the limit of %d", limit),
	}).WithContext("limit", limit)
}

// NewDocumentError creates an error for an AST document that cannot be
// decoded.
func NewDocumentError(code, message string, cause error) *TmplcError {
	return &TmplcError{
		Type:    ErrorTypeDocument,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *TmplcError {
	return &TmplcError{
		Type:    ErrorTypeIO,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *TmplcError {
	return &TmplcError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *TmplcError {
	return &TmplcError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// TypeOf returns the type of the first TmplcError in err's chain, or the
// empty type.
func TypeOf(err error) ErrorType {
	var te *TmplcError
	if errors.As(err, &te) {
		return te.Type
	}

	return ""
}

// IsCompileError checks if an error aborted a template compilation.
func IsCompileError(err error) bool {
	var te *TmplcError
	if errors.As(err, &te) {
		return te.IsCompileError()
	}

	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
