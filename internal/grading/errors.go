package grading

import "github.com/pkg/errors"

var (
	// ErrPaginationLimitExceeded is returned when the listing keeps producing
	// non-empty pages past the configured request cap.
	ErrPaginationLimitExceeded = errors.New("grading: pagination limit exceeded")
	// ErrNoStudents aborts a submission when the roster is empty.
	ErrNoStudents = errors.New("grading: no students enrolled")
)
