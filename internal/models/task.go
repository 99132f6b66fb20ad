package models

import "time"

// Task represents one unit of manufacturing work.
type Task struct {
	ID                   string     `json:"id"`
	Title                string     `json:"title"`
	Description          string     `json:"description,omitempty"`
	Project              string     `json:"project,omitempty"`
	PartItem             string     `json:"part_item,omitempty"`
	NosUnit              string     `json:"nos_unit,omitempty"`
	Priority             string     `json:"priority"`
	Status               TaskStatus `json:"status"`
	AssignedTo           string     `json:"assigned_to,omitempty"`
	AssignedBy           string     `json:"assigned_by,omitempty"`
	MachineID            string     `json:"machine_id,omitempty"`
	DueDate              string     `json:"due_date,omitempty"`
	HoldReason           string     `json:"hold_reason,omitempty"`
	DenyReason           string     `json:"deny_reason,omitempty"`
	StartedAt            *time.Time `json:"started_at,omitempty"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
	TotalDurationSeconds int64      `json:"total_duration_seconds"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// User is a provisioned account without credentials.
type User struct {
	ID       string `json:"user_id"`
	Username string `json:"username"`
	FullName string `json:"full_name,omitempty"`
	Role     Role   `json:"role"`
	Disabled bool   `json:"disabled,omitempty"`
}
