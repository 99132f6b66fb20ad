package models

import (
	"fmt"
	"strings"
)

// Action names one operator-initiated lifecycle transition.
type Action string

const (
	ActionStart    Action = "start"
	ActionHold     Action = "hold"
	ActionResume   Action = "resume"
	ActionComplete Action = "complete"
	ActionDeny     Action = "deny"
)

type transitionKey struct {
	from   TaskStatus
	action Action
}

// transitions is the complete lifecycle table. Pairs absent from it are
// guard violations.
var transitions = map[transitionKey]TaskStatus{
	{StatusPending, ActionStart}:       StatusInProgress,
	{StatusPending, ActionDeny}:        StatusDenied,
	{StatusInProgress, ActionHold}:     StatusOnHold,
	{StatusInProgress, ActionComplete}: StatusCompleted,
	{StatusOnHold, ActionResume}:       StatusInProgress,
}

// actionOrder fixes the display order of actions.
var actionOrder = []Action{ActionStart, ActionHold, ActionResume, ActionComplete, ActionDeny}

// HoldReasons is the fixed vocabulary offered when holding a task.
var HoldReasons = []string{
	"Waiting for materials",
	"Machine breakdown",
	"Shift change",
	"Waiting for supervisor approval",
	"Other",
}

// DenyReasons is the fixed vocabulary offered when denying a task.
var DenyReasons = []string{
	"Machine not available",
	"Missing materials",
	"Unclear instructions",
	"Safety concerns",
	"Insufficient time",
	"Other",
}

// NextStatus returns the status a transition leads to and whether the
// transition is permitted from the given status.
func NextStatus(from TaskStatus, action Action) (TaskStatus, bool) {
	next, ok := transitions[transitionKey{from: from, action: action}]
	return next, ok
}

// TargetStatus is the status an action leads to from any legal origin.
func TargetStatus(action Action) (TaskStatus, bool) {
	for key, next := range transitions {
		if key.action == action {
			return next, true
		}
	}
	return "", false
}

// CanTransition reports whether action is legal from status.
func CanTransition(from TaskStatus, action Action) bool {
	_, ok := NextStatus(from, action)
	return ok
}

// AvailableActions lists the legal actions for a status in display order.
func AvailableActions(from TaskStatus) []Action {
	out := []Action{}
	for _, action := range actionOrder {
		if CanTransition(from, action) {
			out = append(out, action)
		}
	}
	return out
}

// RequiresReason reports whether the action must carry a reason code.
func RequiresReason(action Action) bool {
	return action == ActionHold || action == ActionDeny
}

// ReasonsFor returns the reason vocabulary for an action, or nil.
func ReasonsFor(action Action) []string {
	switch action {
	case ActionHold:
		return HoldReasons
	case ActionDeny:
		return DenyReasons
	default:
		return nil
	}
}

// CanonicalReason matches raw against the action's vocabulary ignoring
// case and surrounding space.
func CanonicalReason(action Action, raw string) (string, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", false
	}
	for _, reason := range ReasonsFor(action) {
		if strings.EqualFold(reason, value) {
			return reason, true
		}
	}
	return "", false
}

func ParseAction(raw string) (Action, error) {
	value := Action(strings.ToLower(strings.TrimSpace(raw)))
	for _, action := range actionOrder {
		if action == value {
			return value, nil
		}
	}
	if value == "" {
		return "", fmt.Errorf("action is required")
	}
	return "", fmt.Errorf("invalid action: %s", value)
}
