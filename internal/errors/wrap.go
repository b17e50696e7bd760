package errors

import (
	"errors"
	"fmt"
)

// Scope names where an error happened, as "module.operation".
type Scope string

// In returns the scope of operation op inside module.
func In(module, op string) Scope {
	return Scope(module + "." + op)
}

// Wrap attaches msg, the text shown to the caller, to err. It returns nil
// for a nil err so it can wrap a call result directly.
func (s Scope) Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &PublicError{Scope: s, Msg: msg, Err: err}
}

func (s Scope) Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &PublicError{Scope: s, Msg: fmt.Sprintf(format, args...), Err: err}
}

// PublicError separates what went wrong from what may be shown. Error()
// carries both for logs; PublicMessage extracts only Msg.
type PublicError struct {
	Scope Scope
	Msg   string
	Err   error
}

func (e *PublicError) Error() string {
	return string(e.Scope) + ": " + e.Msg + ": " + e.Err.Error()
}

func (e *PublicError) Unwrap() error { return e.Err }

// PublicMessage returns the outermost PublicError message in err's chain.
// Errors without one are shown as is.
func PublicMessage(err error) string {
	var pub *PublicError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &pub):
		return pub.Msg
	default:
		return err.Error()
	}
}
