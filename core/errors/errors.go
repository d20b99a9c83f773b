package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// Error types for the failures that abort a compilation. Warnings are not
// errors; they are collected by the compiler's diagnostics.
const (
	// Input/file errors
	ErrInputRead           = "INPUT_READ_ERROR"
	ErrUnsupportedEncoding = "UNSUPPORTED_ENCODING"

	// Configuration and script errors
	ErrConfigInvalid = "CONFIG_INVALID"
	ErrScriptInvalid = "SCRIPT_INVALID"

	// Expansion errors
	ErrTemplateDepth    = "TEMPLATE_DEPTH_EXCEEDED"
	ErrTemplateNotFound = "TEMPLATE_NOT_FOUND"
	ErrMacroNotFound    = "MACRO_NOT_FOUND"
)

// QuireError is a structured error with a type code and context.
type QuireError struct {
	Type    string
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *QuireError) Error() string {
	var b strings.Builder
	b.WriteString(e.Type)
	b.WriteString(": ")
	b.WriteString(e.Message)
	if loc := e.location(); loc != "" {
		b.WriteString(" (")
		b.WriteString(loc)
		b.WriteString(")")
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// location renders the file/line context, if any.
func (e *QuireError) location() string {
	file, _ := e.Context["file"].(string)
	if file == "" {
		return ""
	}
	if line, ok := e.Context["line"].(int); ok && line > 0 {
		return fmt.Sprintf("%s:%d", file, line)
	}
	return file
}

// Unwrap allows error unwrapping.
func (e *QuireError) Unwrap() error {
	return e.Cause
}

// Is matches another *QuireError of the same type, so sentinel-style checks
// work: errors.Is(err, &QuireError{Type: ErrTemplateDepth}).
func (e *QuireError) Is(target error) bool {
	t, ok := target.(*QuireError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// New creates a new QuireError.
func New(errorType, message string) *QuireError {
	return &QuireError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
	}
}

// Wrap creates a new QuireError wrapping an existing error.
func Wrap(errorType, message string, cause error) *QuireError {
	return &QuireError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *QuireError) WithContext(key string, value any) *QuireError {
	e.Context[key] = value
	return e
}

// GetContext returns context value by key.
func (e *QuireError) GetContext(key string) (any, bool) {
	value, exists := e.Context[key]
	return value, exists
}

// ContextKeys returns the context keys in sorted order.
func (e *QuireError) ContextKeys() []string {
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NewInputError creates an input-related error for path.
func NewInputError(path, message string, cause error) *QuireError {
	return Wrap(ErrInputRead, message, cause).WithContext("file", path)
}

// NewTemplateDepthError reports template expansion nested past the ceiling.
func NewTemplateDepthError(file string, depth, limit int) *QuireError {
	return New(ErrTemplateDepth,
		fmt.Sprintf("template expansion nested %d levels deep (limit %d), infinite loop detected", depth, limit)).
		WithContext("file", file).
		WithContext("depth", depth).
		WithContext("limit", limit)
}

// NewTemplateNotFoundError reports a call to an undefined template. The
// suggestion is included in the message when non-empty.
func NewTemplateNotFoundError(name, suggestion string) *QuireError {
	msg := fmt.Sprintf("template %q not defined", name)
	if suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", suggestion)
	}
	return New(ErrTemplateNotFound, msg).
		WithContext("template", name).
		WithContext("suggestion", suggestion)
}

// NewMacroNotFoundError reports a use of an undefined macro.
func NewMacroNotFoundError(name, suggestion string) *QuireError {
	msg := fmt.Sprintf("macro %q not defined", name)
	if suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", suggestion)
	}
	return New(ErrMacroNotFound, msg).
		WithContext("macro", name).
		WithContext("suggestion", suggestion)
}

// IsErrorType checks if err, or anything it wraps, is a QuireError of the
// given type.
func IsErrorType(err error, errorType string) bool {
	var qe *QuireError
	for err != nil {
		if !stderrors.As(err, &qe) {
			return false
		}
		if qe.Type == errorType {
			return true
		}
		err = qe.Cause
	}
	return false
}
