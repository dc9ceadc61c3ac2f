package clicommand

import (
	"errors"
	"fmt"
	"io"
)

// ExitError is used to signal that the command should exit with the exit code
// in `code`. It also wraps an error, which can be used to provide more context.
type ExitError struct {
	code  int
	inner error
}

// NewExitError returns ExitError with the given code and wrapped error.
func NewExitError(code int, err error) *ExitError {
	return &ExitError{code: code, inner: err}
}

// Code returns the exit code.
func (e *ExitError) Code() int {
	return e.code
}

func (e *ExitError) Error() string {
	return e.inner.Error()
}

func (e *ExitError) Unwrap() error {
	return e.inner
}

// Is reports whether target is an ExitError with the same code.
func (e *ExitError) Is(target error) bool {
	terr, ok := target.(*ExitError)
	return ok && e.code == terr.code
}

// PrintMessageAndReturnExitCode writes "sm-action: fatal: <err>" to w and
// returns the process exit code for err: 0 for nil, the code of an ExitError,
// and 1 for anything else.
func PrintMessageAndReturnExitCode(w io.Writer, err error) int {
	if err == nil {
		return 0
	}

	fmt.Fprintf(w, "sm-action: fatal: %s\n", err)

	if eerr := new(ExitError); errors.As(err, &eerr) {
		return eerr.Code()
	}
	return 1
}
