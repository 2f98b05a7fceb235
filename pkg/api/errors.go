package api

import (
	"errors"
	"fmt"
)

var (
	// ErrHalted is returned inside a routine body once the driver stopped
	// pulling checkpoints. Bodies must return it unchanged.
	ErrHalted = errors.New("routine halted")

	// ErrAbandoned is returned by InitWidget when the user cancelled the
	// configuration prompt.
	ErrAbandoned = errors.New("widget configuration abandoned")

	// ErrDivisionByZero is the runtime failure of / and % by zero.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrRoleMismatch is returned when a statement is placed into a slot.
	ErrRoleMismatch = errors.New("slot accepts expression widgets only")

	// ErrConstantReassign is returned when a constant is written twice.
	ErrConstantReassign = errors.New("constant cannot be reassigned")

	// ErrUnknownVariable is returned when a binding id does not resolve
	// in the scope chain.
	ErrUnknownVariable = errors.New("unknown variable")

	// ErrDuplicateName is returned by InitWidget when a variable name is
	// already visible in the enclosing scopes.
	ErrDuplicateName = errors.New("variable name already in use")

	// ErrPromptFailed wraps failures of the external prompt provider.
	ErrPromptFailed = errors.New("prompt failed")

	// ErrNotStarted is returned by controller operations that need a run.
	ErrNotStarted = errors.New("execution not started")

	// ErrUnknownWidgetType is returned by the registry for an unknown tag.
	ErrUnknownWidgetType = errors.New("unknown widget type")
)

// RuntimeError is a failure raised while executing or evaluating a widget.
// It aborts the run in progress.
type RuntimeError struct {
	WidgetID string
	Tag      string
	Err      error
}

func (e *RuntimeError) Error() string {
	if e.Tag == "" {
		return fmt.Sprintf("widget %s: %v", e.WidgetID, e.Err)
	}
	return fmt.Sprintf("%s widget %s: %v", e.Tag, e.WidgetID, e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// NewRuntimeError attaches w's identity to err. An err that already is a
// RuntimeError is returned unchanged so the innermost widget is reported.
func NewRuntimeError(w Widget, err error) error {
	if err == nil {
		return nil
	}
	var re *RuntimeError
	if errors.As(err, &re) || errors.Is(err, ErrHalted) {
		return err
	}
	out := &RuntimeError{Err: err}
	if w != nil {
		out.WidgetID = w.ID()
		out.Tag = w.Descriptor().Tag
	}
	return out
}

// IsRuntimeError returns the RuntimeError carried by err, if any.
func IsRuntimeError(err error) (*RuntimeError, bool) {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
