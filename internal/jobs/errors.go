package jobs

import "errors"

var (
	// ErrInsufficientData is returned when the pool is too small for the operation.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrNotFound is returned when a referenced job id is absent.
	ErrNotFound = errors.New("job not found")
	// ErrInvalidChoice is returned when a submitted choice does not match the presented pair.
	ErrInvalidChoice = errors.New("invalid choice")
)
