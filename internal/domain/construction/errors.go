package construction

import "fmt"

// ErrInvalidTaskTransition indicates a status change outside the state machine
type ErrInvalidTaskTransition struct {
	TaskID      string
	From        TaskStatus
	To          TaskStatus
	Description string
}

func (e *ErrInvalidTaskTransition) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("invalid task transition for %s: %s -> %s: %s",
			e.TaskID, e.From, e.To, e.Description)
	}
	return fmt.Sprintf("invalid task transition for %s: %s -> %s",
		e.TaskID, e.From, e.To)
}

// ErrTaskNotFound indicates a task could not be found
type ErrTaskNotFound struct {
	TaskID string
}

func (e *ErrTaskNotFound) Error() string {
	return fmt.Sprintf("task not found: %s", e.TaskID)
}

func (e *ErrTaskNotFound) NotFound() bool { return true }
