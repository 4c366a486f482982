package apperr

import (
	"errors"
	"fmt"
)

type Error struct {
	Code Code
	Msg  string // short message safe to show to the user
	Err  error  // underlying error, for logs
}

func NewError(code Code, msg string, underlying error) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
		Err:  underlying,
	}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s] %s", e.Code.String(), e.Msg)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code.String(), e.Msg, e.Err.Error())
}

func (e *Error) Unwrap() error {
	return e.Err
}

func IsCode(err error, code Code) bool {
	var aerr *Error
	if errors.As(err, &aerr) {
		return aerr.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost *Error in the chain, or Unknown.
func CodeOf(err error) Code {
	var aerr *Error
	if errors.As(err, &aerr) {
		return aerr.Code
	}
	return Unknown
}

// Message returns the user-facing message of err.
func Message(err error) string {
	var aerr *Error
	if errors.As(err, &aerr) {
		return aerr.Msg
	}
	return err.Error()
}
