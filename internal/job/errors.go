package job

import (
	"errors"
	"fmt"
)

// Kind classifies an import failure.
type Kind string

const (
	KindParse    Kind = "parse"
	KindStore    Kind = "store"
	KindNotFound Kind = "not_found"
	KindStaging  Kind = "staging"
)

// Error is a failure tagged with its Kind. Parse and staging errors are
// returned to the submitter; store errors are recorded on the Job.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind carrying no
// message, so sentinels like ErrNotFound match any error of their kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// Reason is the text shown to pollers for a failed job.
func (e *Error) Reason() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

// ErrNotFound is returned for unknown job ids.
var ErrNotFound = &Error{Kind: KindNotFound}

// NewError builds a tagged error.
func NewError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
