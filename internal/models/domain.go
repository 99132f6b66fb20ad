package models

import (
	"fmt"
	"strings"
)

// TaskStatus defines allowed lifecycle states for tasks.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusOnHold     TaskStatus = "on_hold"
	StatusCompleted  TaskStatus = "completed"
	StatusDenied     TaskStatus = "denied"
)

// Role defines the dashboard a user is routed to.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleOperator   Role = "operator"
	RoleSupervisor Role = "supervisor"
	RolePlanning   Role = "planning"
)

const (
	PriorityLow     = "low"
	PriorityMedium  = "medium"
	PriorityHigh    = "high"
	DefaultPriority = PriorityMedium
)

var validTaskStatuses = map[TaskStatus]struct{}{
	StatusPending:    {},
	StatusInProgress: {},
	StatusOnHold:     {},
	StatusCompleted:  {},
	StatusDenied:     {},
}

var validRoles = map[Role]struct{}{
	RoleAdmin:      {},
	RoleOperator:   {},
	RoleSupervisor: {},
	RolePlanning:   {},
}

var validPriorities = map[string]struct{}{
	PriorityLow:    {},
	PriorityMedium: {},
	PriorityHigh:   {},
}

func IsValidTaskStatus(status TaskStatus) bool {
	_, ok := validTaskStatuses[status]
	return ok
}

// IsTerminal reports whether no further transitions leave the status.
func IsTerminal(status TaskStatus) bool {
	switch status {
	case StatusCompleted, StatusDenied:
		return true
	default:
		return false
	}
}

func IsValidRole(role Role) bool {
	_, ok := validRoles[role]
	return ok
}

func IsValidPriority(value string) bool {
	_, ok := validPriorities[value]
	return ok
}

func ParseTaskStatus(raw string) (TaskStatus, error) {
	value := TaskStatus(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("status is required")
	}
	if !IsValidTaskStatus(value) {
		return "", fmt.Errorf("invalid status: %s", value)
	}
	return value, nil
}

func ParseRole(raw string) (Role, error) {
	value := Role(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("role is required")
	}
	if !IsValidRole(value) {
		return "", fmt.Errorf("invalid role: %s", value)
	}
	return value, nil
}

// CanAssignTasks reports whether the role may create and assign tasks.
func CanAssignTasks(role Role) bool {
	switch role {
	case RoleAdmin, RolePlanning, RoleSupervisor:
		return true
	default:
		return false
	}
}
