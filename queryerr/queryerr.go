// Package queryerr is the closed catalogue of error kinds the query core
// can report, per spec §7: parse/semantic/plan errors bubble straight up,
// empty results are not errors, storage errors wrap the underlying cause,
// and update conflicts are counted rather than aborting a load.
package queryerr

import "github.com/pkg/errors"

// Kind names one of the error categories spec §7 distinguishes.
type Kind int

const (
	Parse Kind = iota
	Semantic
	Plan
	Storage
	ConflictDuringUpdate
)

func (k Kind) String() string {
	switch k {
	case Parse:
		return "parse"
	case Semantic:
		return "semantic"
	case Plan:
		return "plan"
	case Storage:
		return "storage"
	case ConflictDuringUpdate:
		return "conflict during update"
	default:
		return "unknown"
	}
}

// Error wraps a Kind with the underlying cause and any contextual
// message, the way the teacher's storage engines wrap low-level I/O
// failures with github.com/pkg/errors before returning them.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a *Error with no wrapped cause.
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds a *Error around an existing cause, preserving it for
// errors.Is/errors.As the way pkg/errors.Wrap does.
func Wrap(kind Kind, cause error, message string) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Cause: errors.WithMessage(cause, message)}
}

// Is reports whether err (or anything it wraps) is a queryerr.Error of
// the given kind.
func Is(err error, kind Kind) bool {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Kind == kind
	}
	return false
}

// ActionKind names the write-ahead-free "action" types a page change can
// be classified as for diagnostics. buffer.Manager.Modify takes no
// ActionKind and records only the page's dirty bit; this core has no WAL
// (dirty pages are flushed directly, spec §9).
type ActionKind int

const (
	ActionAllocPage ActionKind = iota
	ActionLeafSplit
	ActionLeafMerge
	ActionInnerRewrite
	ActionDictionaryAppend
	ActionOverlaySync
)

func (a ActionKind) String() string {
	switch a {
	case ActionAllocPage:
		return "alloc-page"
	case ActionLeafSplit:
		return "leaf-split"
	case ActionLeafMerge:
		return "leaf-merge"
	case ActionInnerRewrite:
		return "inner-rewrite"
	case ActionDictionaryAppend:
		return "dictionary-append"
	case ActionOverlaySync:
		return "overlay-sync"
	default:
		return "unknown-action"
	}
}
