// Package invariant provides contract assertions for quire.
//
// A failed assertion means the caller and the core disagree about the shape
// of the data (for example a placeholder token that was never allocated).
// These are programming errors, not document errors, so every function here
// panics instead of returning an error.
package invariant

import (
	"fmt"
	"runtime"
)

// Precondition checks an input contract at function entry.
// Panics with PRECONDITION VIOLATION if condition is false.
//
// Example:
//
//	func (m *Manager) EndSection() {
//	    invariant.Precondition(m.SectionLevel() > 1, "end_section without open section")
//	    ...
//	}
func Precondition(condition bool, format string, args ...any) {
	if !condition {
		fail("PRECONDITION", format, args...)
	}
}

// Postcondition checks an output contract before function return.
// Panics with POSTCONDITION VIOLATION if condition is false.
func Postcondition(condition bool, format string, args ...any) {
	if !condition {
		fail("POSTCONDITION", format, args...)
	}
}

// Invariant checks internal consistency during execution, such as a
// placeholder's state agreeing with the links it holds.
// Panics with INVARIANT VIOLATION if condition is false.
func Invariant(condition bool, format string, args ...any) {
	if !condition {
		fail("INVARIANT", format, args...)
	}
}

// ValidIndex panics unless 0 <= index < length. Used for arena lookups where
// an index was handed out by the arena itself.
func ValidIndex(index, length int, name string) {
	if index < 0 || index >= length {
		fail("PRECONDITION", "%s index %d out of range (have %d)", name, index, length)
	}
}

// NotNil panics if value is a nil pointer.
func NotNil[T any](value *T, name string) {
	if value == nil {
		fail("PRECONDITION", "%s must not be nil", name)
	}
}

// fail panics with a formatted message and the file:line of the caller.
func fail(kind, format string, args ...any) {
	pc := make([]uintptr, 10)
	n := runtime.Callers(3, pc)
	frames := runtime.CallersFrames(pc[:n])

	msg := fmt.Sprintf("%s VIOLATION: "+format, append([]any{kind}, args...)...)

	if frame, ok := frames.Next(); ok {
		msg += fmt.Sprintf("\n  at %s:%d", frame.File, frame.Line)
	}

	panic(msg)
}
