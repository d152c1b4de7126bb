// Package failure defines the failure taxonomy for lkparity.
//
// Every error that reaches the harness report maps to exactly one Kind. Fatal
// kinds stop the run before any fixture is checked; all other kinds fail a
// single fixture and leave the rest of the run untouched.
package failure

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is a stable failure category.
type Kind string

const (
	// Configuration covers missing fixture directories, unusable output
	// roots and invalid config files.
	Configuration Kind = "CONFIGURATION"

	// Build means the candidate artifact failed to compile.
	Build Kind = "BUILD"

	// Decode means the candidate's stdout is not a well-formed document.
	Decode Kind = "DECODE"

	// Parse means the reference parser rejected the fixture.
	Parse Kind = "PARSE"

	// Timeout means the candidate process exceeded its time bound.
	Timeout Kind = "TIMEOUT"

	// Mismatch means candidate and reference canonical forms differ.
	Mismatch Kind = "MISMATCH"

	// Snapshot covers snapshot write/read failures and lossy round trips.
	Snapshot Kind = "SNAPSHOT"

	// Performance means the candidate's median latency was not strictly
	// lower than the reference's.
	Performance Kind = "PERFORMANCE"
)

// Fatal reports whether errors of this kind abort the whole run.
func (k Kind) Fatal() bool {
	return k == Configuration || k == Build
}

// Error is the structured error type for harness failures.
type Error struct {
	Kind Kind

	// CaseKey identifies the fixture; empty for run-level failures.
	CaseKey string

	Message string

	// Paths lists files a human should look at, e.g. both snapshots of a
	// mismatch.
	Paths []string

	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.CaseKey != "" {
		fmt.Fprintf(&b, " [%s]", e.CaseKey)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	if len(e.Paths) > 0 {
		fmt.Fprintf(&b, " (see %s)", strings.Join(e.Paths, ", "))
	}
	return b.String()
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap creates an Error around an existing cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithCase returns a copy of e attributed to a fixture.
func (e *Error) WithCase(caseKey string) *Error {
	cp := *e
	cp.CaseKey = caseKey
	return &cp
}

// WithPaths returns a copy of e pointing at the given files.
func (e *Error) WithPaths(paths ...string) *Error {
	cp := *e
	cp.Paths = append([]string(nil), paths...)
	return &cp
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// KindOf returns the Kind of err, or "" when err is not a failure.Error.
func KindOf(err error) Kind {
	if fe, ok := As(err); ok {
		return fe.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsFatal reports whether err should abort the run.
func IsFatal(err error) bool {
	return KindOf(err).Fatal()
}
