package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/aledsdavies/quire/core/errors"
	"github.com/aledsdavies/quire/runtime/compiler"
)

// CLIError represents a formatted CLI error with context
type CLIError struct {
	Message string
	Details string // Additional context
	Hint    string // How to fix it
}

// Error implements the error interface
func (e *CLIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Details != "" {
		b.WriteString("\n")
		b.WriteString(e.Details)
	}
	if e.Hint != "" {
		b.WriteString("\n")
		b.WriteString(e.Hint)
	}
	return b.String()
}

// FormatError formats an error for CLI output with colors
func FormatError(w io.Writer, err error, useColor bool) {
	if err == nil {
		return
	}

	var cliErr *CLIError
	var quireErr *errors.QuireError
	switch {
	case stderrors.As(err, &cliErr):
		formatCLIError(w, cliErr, useColor)
	case stderrors.As(err, &quireErr):
		formatQuireError(w, quireErr, useColor)
	default:
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), err.Error())
	}
}

// formatQuireError prints the message, then each context value on its own
// line, then the cause.
func formatQuireError(w io.Writer, err *errors.QuireError, useColor bool) {
	_, _ = fmt.Fprintf(w, "%s%s: %s\n", Colorize("Error: ", ColorRed, useColor), err.Type, err.Message)

	for _, key := range err.ContextKeys() {
		value := err.Context[key]
		if s, ok := value.(string); ok && s == "" {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s%s: %v\n", Colorize("  ", ColorGray, useColor), key, value)
	}

	if suggestion, ok := err.Context["suggestion"].(string); ok && suggestion != "" {
		_, _ = fmt.Fprintf(w, "%sDid you mean %q?\n", Colorize("Hint: ", ColorYellow, useColor), suggestion)
	}

	if err.Cause != nil {
		_, _ = fmt.Fprintf(w, "%s%v\n", Colorize("Caused by: ", ColorGray, useColor), err.Cause)
	}
}

// formatCLIError formats CLI errors
func formatCLIError(w io.Writer, err *CLIError, useColor bool) {
	_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), err.Message)

	if err.Details != "" {
		_, _ = fmt.Fprintf(w, "\n%s\n", err.Details)
	}

	if err.Hint != "" {
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Hint: ", ColorYellow, useColor), err.Hint)
	}
}

// FormatWarning prints one compiler warning.
func FormatWarning(w io.Writer, d compiler.Diagnostic, useColor bool) {
	if !useColor {
		_, _ = fmt.Fprintln(w, d.String())
		return
	}
	loc := d.File
	if d.Line > 0 {
		loc = fmt.Sprintf("%s:%d", d.File, d.Line)
	}
	_, _ = fmt.Fprintf(w, "%s: %s %s\n", loc, Colorize("warning:", ColorYellow, true), d.Message)
}
