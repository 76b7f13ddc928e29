package bootpack

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/errwrap"
)

// Error kinds. Match them with errors.Is.
var (
	ErrInvalidSegment   = errors.New("invalid segment")
	ErrCompression      = errors.New("compression error")
	ErrEncodingOverflow = errors.New("encoding overflow")
	ErrMalformedImage   = errors.New("malformed image")
	ErrInvalidConfig    = errors.New("invalid config")
)

// Error carries the stage and field an error was raised for.
type Error struct {
	Kind  error
	Stage string
	Field string
	Err   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	if e.Field != "" {
		msg += fmt.Sprintf(" (%s)", e.Field)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

func newErr(kind error, stage, field string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Field: field, Err: err}
}

func errorf(kind error, stage, field, format string, args ...interface{}) *Error {
	return newErr(kind, stage, field, fmt.Errorf(format, args...))
}

// WrapMsg annotates err with the step that was running when it occurred.
// The result unwraps to err, so kinds survive the wrapping.
func WrapMsg(err error, msg string) error {
	if err == nil {
		return nil
	}

	return errwrap.Wrapf(msg+"; {{err}}", err)
}

// GetErrors returns the step message and the cause from an error made by WrapMsg.
func GetErrors(err error) []string {
	if err == nil {
		return []string{}
	}

	if w, ok := err.(errwrap.Wrapper); ok {
		wrapped := w.WrappedErrors()
		if len(wrapped) == 2 {
			step := wrapped[0].Error()
			if i := strings.IndexByte(step, ';'); i >= 0 {
				step = step[:i]
			}

			return []string{step, wrapped[1].Error()}
		}
	}

	return []string{err.Error()}
}
