package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Wrap wraps an error with additional context, creating a TmplcError if the
// input is not already one. Location information of a wrapped TmplcError is
// preserved.
func Wrap(err error, errType ErrorType, code, message string) *TmplcError {
	if err == nil {
		return nil
	}

	var te *TmplcError
	if errors.As(err, &te) {
		return &TmplcError{
			Type:      errType,
			Code:      code,
			Message:   message,
			Cause:     te,
			Context:   te.Context,
			Template:  te.Template,
			FilePath:  te.FilePath,
			Line:      te.Line,
			Column:    te.Column,
			EndLine:   te.EndLine,
			EndColumn: te.EndColumn,
		}
	}

	return &TmplcError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WrapIO wraps an error as an I/O error
func WrapIO(err error, code, message string) *TmplcError {
	return Wrap(err, ErrorTypeIO, code, message)
}

// WrapConfig wraps an error as a configuration error
func WrapConfig(err error, code, message string) *TmplcError {
	return Wrap(err, ErrorTypeConfig, code, message)
}

// WrapDocument wraps an error as an AST document error
func WrapDocument(err error, code, message string) *TmplcError {
	return Wrap(err, ErrorTypeDocument, code, message)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(err error, code, message string) *TmplcError {
	return Wrap(err, ErrorTypeInternal, code, message)
}

// EnhanceError attaches template and file context to err. Compile errors
// keep their own line and column.
func EnhanceError(err error, template, filePath string) error {
	if err == nil {
		return nil
	}

	var te *TmplcError
	if errors.As(err, &te) {
		if te.FilePath == "" {
			te.FilePath = filePath
		}
		if te.Template == "" {
			te.Template = template
		}
		return err
	}

	return &TmplcError{
		Type:     ErrorTypeInternal,
		Code:     ErrCodeInternalError,
		Message:  err.Error(),
		Cause:    err,
		Template: template,
		FilePath: filePath,
	}
}

// FormatError formats an error for user display, appending suggestions
// recorded in its context.
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	var te *TmplcError
	if !errors.As(err, &te) {
		return err.Error()
	}

	result := te.Error()
	if suggestions, ok := te.Context["suggestions"].([]string); ok && len(suggestions) > 0 {
		result += "\n\nDid you mean:"
		for _, s := range suggestions {
			result += fmt.Sprintf("\n  • %s", s)
		}
	}
	return result
}

// GetErrorContext extracts context information from a TmplcError
func GetErrorContext(err error) map[string]interface{} {
	var te *TmplcError
	if errors.As(err, &te) {
		context := make(map[string]interface{})
		for k, v := range te.Context {
			context[k] = v
		}
		if te.Template != "" {
			context["template"] = te.Template
		}
		if te.FilePath != "" {
			context["file"] = te.FilePath
		}
		if te.Line > 0 {
			context["line"] = te.Line
			if te.Column > 0 {
				context["column"] = te.Column
			}
		}
		context["type"] = string(te.Type)
		context["code"] = te.Code
		return context
	}

	return map[string]interface{}{
		"message": err.Error(),
		"type":    "unknown",
	}
}

// IsFatalError checks if an error is fatal and should stop execution
func IsFatalError(err error) bool {
	var te *TmplcError
	if errors.As(err, &te) {
		return te.Type == ErrorTypeInternal || te.Type == ErrorTypeConfig
	}
	return false
}

// ExtractCause extracts the root cause from a wrapped error
func ExtractCause(err error) error {
	for err != nil {
		var te *TmplcError
		if !errors.As(err, &te) {
			return err
		}
		if te.Cause == nil {
			return te
		}
		err = te.Cause
	}
	return nil
}

// CollectErrors drops nil entries.
func CollectErrors(errs ...error) []error {
	var collected []error
	for _, err := range errs {
		if err != nil {
			collected = append(collected, err)
		}
	}
	return collected
}

// CombineErrors combines multiple errors into a single error with context
func CombineErrors(errs ...error) error {
	nonNilErrs := CollectErrors(errs...)
	if len(nonNilErrs) == 0 {
		return nil
	}
	if len(nonNilErrs) == 1 {
		return nonNilErrs[0]
	}

	messages := make([]string, 0, len(nonNilErrs))
	for _, err := range nonNilErrs {
		messages = append(messages, err.Error())
	}

	return &TmplcError{
		Type:    ErrorTypeInternal,
		Code:    "ERR_MULTIPLE_ERRORS",
		Message: fmt.Sprintf("%d errors occurred:\n  %s", len(nonNilErrs), strings.Join(messages, "\n  ")),
		Context: map[string]interface{}{
			"error_count": len(nonNilErrs),
			"errors":      messages,
		},
	}
}
