package workflow

import (
	"time"

	"shopfloor/internal/models"
)

// Summary counts the working set by status.
type Summary struct {
	Pending    int `json:"pending" yaml:"pending"`
	InProgress int `json:"in_progress" yaml:"in_progress"`
	OnHold     int `json:"on_hold" yaml:"on_hold"`
	Completed  int `json:"completed" yaml:"completed"`
	Denied     int `json:"denied" yaml:"denied"`
	Total      int `json:"total" yaml:"total"`
}

// CompletionRate is the completed share of all tasks as a whole percent.
func (s Summary) CompletionRate() int {
	if s.Total == 0 {
		return 0
	}
	return int(float64(s.Completed)/float64(s.Total)*100 + 0.5)
}

// Active counts tasks still waiting on the operator.
func (s Summary) Active() int {
	return s.Pending + s.InProgress
}

func Summarize(tasks []models.Task) Summary {
	var s Summary
	for _, task := range tasks {
		s.Total++
		switch task.Status {
		case models.StatusPending:
			s.Pending++
		case models.StatusInProgress:
			s.InProgress++
		case models.StatusOnHold:
			s.OnHold++
		case models.StatusCompleted:
			s.Completed++
		case models.StatusDenied:
			s.Denied++
		}
	}
	return s
}

// Elapsed is the wall-clock time since an in-progress task was started.
// It is display-only.
func Elapsed(task models.Task, now time.Time) (time.Duration, bool) {
	if task.Status != models.StatusInProgress || task.StartedAt == nil {
		return 0, false
	}
	d := now.Sub(*task.StartedAt)
	if d < 0 {
		d = 0
	}
	return d, true
}
