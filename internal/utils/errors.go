package utils

import "fmt"

// EmptyInputError represents an operation invoked with no data points.
type EmptyInputError struct {
	Message string
}

// Error returns the error message string.
func (e *EmptyInputError) Error() string {
	return e.Message
}

// NewEmptyInputError creates a new EmptyInputError with a specific message.
func NewEmptyInputError(message string) error {
	return &EmptyInputError{
		Message: message,
	}
}

// DegenerateInputError represents numerically degenerate input, such as a
// singular regression design matrix or a zero-variance series.
type DegenerateInputError struct {
	Message string
}

// Error returns the error message string.
func (e *DegenerateInputError) Error() string {
	return e.Message
}

// NewDegenerateInputErrorf creates a new DegenerateInputError with a
// formatted message.
func NewDegenerateInputErrorf(format string, args ...interface{}) error {
	return &DegenerateInputError{
		Message: fmt.Sprintf(format, args...),
	}
}
