package vm

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to the caller of Run. Match them with errors.Is.
var (
	ErrUndefinedName = errors.New("NameError")
	ErrType          = errors.New("TypeError")
	ErrZeroDivision  = errors.New("ZeroDivisionError")
	ErrIndex         = errors.New("IndexError")
	ErrKey           = errors.New("KeyError")
	ErrValue         = errors.New("ValueError")
)

// RuntimeError is a user-facing failure raised while executing bytecode.
type RuntimeError struct {
	Kind error
	Msg  string
}

func (e *RuntimeError) Error() string {
	return e.Kind.Error() + ": " + e.Msg
}

func (e *RuntimeError) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Errorf builds a RuntimeError of the given kind. Builtins use it to report
// failures the same way the interpreter does.
func Errorf(kind error, format string, args ...interface{}) error {
	return newError(kind, format, args...)
}

func undefinedName(name string) *RuntimeError {
	return newError(ErrUndefinedName, "name '%s' is not defined", name)
}
