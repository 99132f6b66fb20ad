package workflow

import (
	"errors"
	"fmt"

	"shopfloor/internal/api"
	"shopfloor/internal/models"
)

var (
	ErrTransitionNotAllowed = errors.New("transition not allowed")
	ErrReasonRequired       = errors.New("please select a reason")
	ErrUnknownReason        = errors.New("reason is not one of the offered choices")
	ErrNoReasonPrompt       = errors.New("no reason prompt is open")
	ErrTaskNotFound         = errors.New("task not found in the current list")
	ErrInFlight             = errors.New("a request for this task is already in progress")
)

var fallbackMessages = map[models.Action]string{
	models.ActionStart:    "Failed to start task",
	models.ActionHold:     "Failed to hold task",
	models.ActionResume:   "Failed to resume task",
	models.ActionComplete: "Failed to complete task",
	models.ActionDeny:     "Failed to deny task",
}

// GuardError is a locally detected rejection. No request was sent.
type GuardError struct {
	TaskID string
	Action models.Action
	Status models.TaskStatus
	Err    error
}

func (e *GuardError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("cannot %s task %s (status %s): %v", e.Action, e.TaskID, e.Status, e.Err)
	}
	return fmt.Sprintf("cannot %s task %s: %v", e.Action, e.TaskID, e.Err)
}

func (e *GuardError) Unwrap() error {
	return e.Err
}

// RemoteError reports a transition the remote store rejected or never
// answered. Message is the server's detail when one was returned.
type RemoteError struct {
	TaskID  string
	Action  models.Action
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	return e.Message
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// IsGuard reports whether err was raised before any request was sent.
func IsGuard(err error) bool {
	var guardErr *GuardError
	return errors.As(err, &guardErr)
}

func remoteMessage(action models.Action, err error) string {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallbackMessages[action]
}
