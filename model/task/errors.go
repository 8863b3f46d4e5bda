package task

import "errors"

var (
	// ErrConsumed is returned when a task that already ran is invoked again.
	ErrConsumed = errors.New("task: already consumed")

	// ErrNilFunc is returned when a task has no function to run.
	ErrNilFunc = errors.New("task: nil func")
)
