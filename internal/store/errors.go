package store

import (
	"errors"
	"fmt"

	"shopfloor/internal/models"
)

var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrUsernameTaken = errors.New("username already exists")
	ErrMachineTaken  = errors.New("machine name already exists")
)

// StatusConflictError reports a transition that the task's stored status
// does not allow, either outright or because a concurrent writer got there
// first.
type StatusConflictError struct {
	Action models.Action
	Status models.TaskStatus
}

func (e *StatusConflictError) Error() string {
	return fmt.Sprintf("cannot %s task in status %s", e.Action, e.Status)
}
