package compiler

import (
	"fmt"
	"log/slog"
)

// Diagnostic is a warning about the input. Warnings never stop compilation.
type Diagnostic struct {
	File    string
	Line    int // 0 when unknown
	Message string
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("%s:%d: warning: %s", d.File, d.Line, d.Message)
	}
	return fmt.Sprintf("%s: warning: %s", d.File, d.Message)
}

// Diagnostics collects warnings. Each one is also logged at debug level as
// it is reported; printing them is up to the caller.
type Diagnostics struct {
	logger *slog.Logger
	items  []Diagnostic
}

func newDiagnostics(logger *slog.Logger) *Diagnostics {
	return &Diagnostics{logger: logger}
}

// Warn records a warning.
func (d *Diagnostics) Warn(file string, line int, format string, args ...any) {
	diag := Diagnostic{File: file, Line: line, Message: fmt.Sprintf(format, args...)}
	d.items = append(d.items, diag)
	d.logger.Debug("warning reported", "file", file, "line", line, "message", diag.Message)
}

// Warnings returns the recorded warnings in report order.
func (d *Diagnostics) Warnings() []Diagnostic {
	return d.items
}

// Len returns the number of warnings.
func (d *Diagnostics) Len() int {
	return len(d.items)
}
