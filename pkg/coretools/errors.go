package coretools

import "fmt"

// Error is a recoverable tool failure. Its message is exactly what the model
// sees after the "Error: " prefix.
type Error struct {
	Tool Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func failf(tool Kind, cause error, format string, args ...any) *Error {
	return &Error{Tool: tool, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// fault wraps an unexpected I/O error.
func fault(tool Kind, err error) *Error {
	return &Error{Tool: tool, Msg: err.Error(), Err: err}
}
