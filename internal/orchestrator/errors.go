package orchestrator

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy rejects a request while another generation or chat edit is in flight
	ErrBusy = errors.New("a generation is already in progress")
	// ErrNoActiveTasks means there is nothing to schedule
	ErrNoActiveTasks = errors.New("no active tasks to schedule")
	// ErrNoSchedule means a chat edit was requested before any schedule exists
	ErrNoSchedule = errors.New("generate a timetable first")
	// ErrEmptyMessage rejects blank chat input
	ErrEmptyMessage = errors.New("message is empty")
)

// GenerationError is an AI round trip that produced no usable result.
// Message is the text shown to the user; the prior schedule is untouched.
type GenerationError struct {
	Op      string
	Message string
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
