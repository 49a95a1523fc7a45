// Package errs implements the error taxonomy shared by every component of
// the bricked volume partitioning engine.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure without pinning it to a particular component.
// The taxonomy is closed: every failure the core can raise fits one of
// these.
type Kind int

const (
	// Validation indicates a config value violates an enumerated constraint.
	Validation Kind = iota
	// Geometry indicates a box/grid invariant was violated internally.
	Geometry
	// AssemblyMismatch indicates fragments with disagreeing logical boxes
	// were grouped together during re-gridding.
	AssemblyMismatch
	// BoundaryPairingMismatch indicates a boundary-slab group has other
	// than exactly two members.
	BoundaryPairingMismatch
	// PaddingExceedsLogicalBox indicates a padding grid does not divide
	// the source grid.
	PaddingExceedsLogicalBox
	// UnalignedDownsample indicates a downsample factor does not divide
	// the volume shape.
	UnalignedDownsample
	// AmbiguousLabelMap indicates a label map's domain has duplicates.
	AmbiguousLabelMap
	// Transient indicates a remote I/O error, timeout, or 5xx that is
	// eligible for retry.
	Transient
	// Skippable indicates an empty brick or fully-masked region; the
	// brick is dropped, not failed.
	Skippable
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "Validation"
	case Geometry:
		return "Geometry"
	case AssemblyMismatch:
		return "AssemblyMismatch"
	case BoundaryPairingMismatch:
		return "BoundaryPairingMismatch"
	case PaddingExceedsLogicalBox:
		return "PaddingExceedsLogicalBox"
	case UnalignedDownsample:
		return "UnalignedDownsample"
	case AmbiguousLabelMap:
		return "AmbiguousLabelMap"
	case Transient:
		return "Transient"
	case Skippable:
		return "Skippable"
	default:
		return "Unknown"
	}
}

// Error is a Kind-tagged error, wrapping an optional cause.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs a Kind-tagged error with no underlying cause.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf constructs a Kind-tagged error with a formatted message.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a Kind to an existing error.
func Wrap(kind Kind, msg string, cause error) error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// Is reports whether err (or anything it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, returning ok=false if err isn't a
// tagged *Error anywhere in its chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
