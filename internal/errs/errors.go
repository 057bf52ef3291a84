// Package errs defines the tagged error taxonomy shared by every translator,
// adapter and the orchestrator. Errors are values
// with a Kind tag and a human message — no silent fallbacks, no panics
// across a component boundary.
package errs

import (
	"errors"
	"fmt"
)

// Kind tags an Error with one of the taxonomy entries below.
type Kind string

const (
	UnsupportedType                Kind = "UnsupportedType"
	UnsupportedPartitionTransform   Kind = "UnsupportedPartitionTransform"
	InvalidSchema                   Kind = "InvalidSchema"
	InvalidPartitionSpec            Kind = "InvalidPartitionSpec"
	SchemaMismatch                  Kind = "SchemaMismatch"
	SourceReadError                 Kind = "SourceReadError"
	SourceVersionMissing             Kind = "SourceVersionMissing"
	TargetWriteError                 Kind = "TargetWriteError"
	CheckpointConflict               Kind = "CheckpointConflict"
	ConfigError                      Kind = "ConfigError"
	CrossFormatMismatch              Kind = "CrossFormatMismatch"
)

// Error is the concrete error value every component returns instead of an
// ad-hoc fmt.Errorf: it carries the taxonomy Kind, a human message, and an
// optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error of the given kind with no wrapped cause.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind wrapping cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the Kind tag from err, walking Unwrap chains, returning
// ("", false) if neither err nor anything in its chain is an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err's (possibly wrapped) Kind matches kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
