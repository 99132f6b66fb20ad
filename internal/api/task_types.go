package api

import (
	"net/url"
	"strconv"

	"shopfloor/internal/models"
)

// TaskQuery narrows GET /tasks/ to one calendar month. Zero values mean no
// filter.
type TaskQuery struct {
	Month int
	Year  int
}

func (q TaskQuery) values() url.Values {
	values := url.Values{}
	if q.Month > 0 {
		values.Set("month", strconv.Itoa(q.Month))
	}
	if q.Year > 0 {
		values.Set("year", strconv.Itoa(q.Year))
	}
	return values
}

// TransitionRequest is the body of hold and deny requests.
type TransitionRequest struct {
	Reason string `json:"reason"`
}

// TaskCreateRequest defines the payload for creating a task.
type TaskCreateRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Project     *string `json:"project,omitempty"`
	PartItem    *string `json:"part_item,omitempty"`
	NosUnit     *string `json:"nos_unit,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	AssignedTo  string  `json:"assigned_to"`
	MachineID   *string `json:"machine_id,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
}

// LoginRequest carries credentials for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned by POST /auth/login.
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresAt   string      `json:"expires_at,omitempty"`
	User        models.User `json:"user"`
}

// UserCreateRequest defines the payload for POST /users/.
type UserCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
	Role     string `json:"role"`
}

// MachineCreateRequest defines the payload for POST /machines/.
type MachineCreateRequest struct {
	Name       string   `json:"name"`
	Type       string   `json:"type,omitempty"`
	Location   string   `json:"location,omitempty"`
	Status     string   `json:"status,omitempty"`
	HourlyRate *float64 `json:"hourly_rate,omitempty"`
}

// MachineUpdateRequest patches a machine via PATCH /machines/{id}.
type MachineUpdateRequest struct {
	Status     *string  `json:"status,omitempty"`
	Location   *string  `json:"location,omitempty"`
	HourlyRate *float64 `json:"hourly_rate,omitempty"`
}
