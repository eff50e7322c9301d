package afford

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is matched by every input validation failure.
	ErrInvalidInput = errors.New("afford: invalid input")
	// ErrUndefinedResult is matched when a model cannot produce a finite month count.
	ErrUndefinedResult = errors.New("afford: undefined result")
)

// InvalidInputError reports a rejected input field.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("afford: invalid %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// UndefinedResultError reports a model whose formula has no finite answer for the input.
type UndefinedResultError struct {
	Model  string
	Reason string
}

func (e *UndefinedResultError) Error() string {
	return fmt.Sprintf("afford: %s result undefined: %s", e.Model, e.Reason)
}

// Unwrap lets errors.Is match ErrUndefinedResult.
func (e *UndefinedResultError) Unwrap() error { return ErrUndefinedResult }
