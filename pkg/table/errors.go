package table

import "fmt"

// InvalidInputError reports input data that violates the joiner's contract:
// a join column missing from an input dataset, or a join that produced an
// empty result. It is fatal to the run; there is no retry or partial output.
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string {
	if e == nil {
		return "invalid input"
	}
	return e.Message
}

func invalidInputf(format string, args ...any) *InvalidInputError {
	return &InvalidInputError{Message: fmt.Sprintf(format, args...)}
}
