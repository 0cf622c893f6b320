package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStartNotFound is the kind of a ValidationError raised when the item
	// named by the start variable does not exist.
	ErrStartNotFound = errors.New("start item not found")
	// ErrMissingChild is the kind of a ValidationError raised when an item
	// references a child that does not exist.
	ErrMissingChild = errors.New("missing child item")
	// ErrCycle is the kind of a ValidationError raised when items reference
	// each other in a cycle.
	ErrCycle = errors.New("reference cycle")
	// ErrUnknownType is the kind of a ValidationError raised for items whose
	// type is not registered.
	ErrUnknownType = errors.New("unknown item type")

	// ErrRefused is returned when saving would overwrite an existing file.
	ErrRefused = errors.New("destination exists")
	// ErrAborted is returned when the running flag was cleared mid-run.
	ErrAborted = errors.New("run aborted")
	// ErrNoScript is returned when an archive has no script entry.
	ErrNoScript = errors.New("archive has no script")
	// ErrResourceBusy is returned when another live experiment owns the log
	// file or the pool folder.
	ErrResourceBusy = errors.New("resource busy")
	// ErrUnknownItem is returned when an operation names an item that does
	// not exist.
	ErrUnknownItem = errors.New("unknown item")
	// ErrRecordNotFound is returned by record stores for unknown run IDs.
	ErrRecordNotFound = errors.New("run record not found")
	// ErrAlreadyRunning is returned when Run is called on an experiment that
	// is already running.
	ErrAlreadyRunning = errors.New("experiment already running")
)

// ParseError reports malformed script text.
type ParseError struct {
	Line   int
	Text   string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error on line %d: %s: %q", e.Line, e.Reason, e.Text)
	}
	return "parse error: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports one structural problem of an item tree.
// Kind is one of the Err* validation sentinels and matches with errors.Is.
type ValidationError struct {
	Kind error
	Item string
	Msg  string
}

func (e *ValidationError) Error() string {
	if e.Item == "" {
		return fmt.Sprintf("%v: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%v: item %q: %s", e.Kind, e.Item, e.Msg)
}

func (e *ValidationError) Unwrap() error { return e.Kind }

// ValidationErrors aggregates every problem found by one validation pass.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d validation errors: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Unwrap exposes every ValidationError to errors.Is and errors.As.
func (e *ValidationErrors) Unwrap() []error {
	out := make([]error, len(e.Errors))
	for i, err := range e.Errors {
		out[i] = err
	}
	return out
}

// Add appends a problem.
func (e *ValidationErrors) Add(kind error, item, format string, args ...any) {
	e.Errors = append(e.Errors, &ValidationError{Kind: kind, Item: item, Msg: fmt.Sprintf(format, args...)})
}

// ErrOrNil returns e as an error, or nil when no problem was recorded.
func (e *ValidationErrors) ErrOrNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Phase is a step of the item lifecycle.
type Phase string

const (
	PhasePrepare Phase = "prepare"
	PhaseRun     Phase = "run"
)

// RuntimeError reports a failure of a specific item while preparing or running.
type RuntimeError struct {
	Item  string
	Phase Phase
	Err   error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Phase, e.Item, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// PersistenceError reports an archive or file I/O failure.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ResourceUnwritableError reports a log path that cannot be written.
// It is detected before a run opens any resource.
type ResourceUnwritableError struct {
	Path string
	Err  error
}

func (e *ResourceUnwritableError) Error() string {
	return fmt.Sprintf("log file %s is not writable: %v", e.Path, e.Err)
}

func (e *ResourceUnwritableError) Unwrap() error { return e.Err }
