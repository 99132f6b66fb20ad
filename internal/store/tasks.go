package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"shopfloor/internal/models"
)

const taskColumns = `id, title, description, project, part_item, nos_unit, priority, status,
	assigned_to, assigned_by, machine_id, due_date, hold_reason, deny_reason,
	started_at, completed_at, total_duration_seconds, created_at, updated_at`

// CreateTask inserts a new task. ID, status and timestamps must be set by
// the caller.
func (s *Store) CreateTask(ctx context.Context, task *models.Task) error {
	if task == nil {
		return fmt.Errorf("task is required")
	}
	if task.ID == "" {
		return fmt.Errorf("task id is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		task.ID,
		task.Title,
		nullIfEmpty(task.Description),
		nullIfEmpty(task.Project),
		nullIfEmpty(task.PartItem),
		nullIfEmpty(task.NosUnit),
		task.Priority,
		string(task.Status),
		task.AssignedTo,
		nullIfEmpty(task.AssignedBy),
		nullIfEmpty(task.MachineID),
		nullIfEmpty(task.DueDate),
		nullIfEmpty(task.HoldReason),
		nullIfEmpty(task.DenyReason),
		nullTime(task.StartedAt),
		nullTime(task.CompletedAt),
		task.TotalDurationSeconds,
		formatTime(task.CreatedAt),
		formatTime(task.UpdatedAt),
	)
	return err
}

// GetTask returns a task by id, or nil when it does not exist.
func (s *Store) GetTask(ctx context.Context, id string) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	return scanTask(row)
}

// ListTasks returns tasks matching the provided filter, newest first.
func (s *Store) ListTasks(ctx context.Context, filter ListFilter) ([]models.Task, error) {
	query, args := buildListQuery(filter)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]models.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// ApplyTransition moves a task along the lifecycle table and maintains its
// work-time accounting. The update is conditional on the status read in the
// same transaction, so two writers cannot both apply a transition from the
// same state.
func (s *Store) ApplyTransition(ctx context.Context, id string, action models.Action, reason string, now time.Time) (*models.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	current, err := scanTask(tx.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id))
	if err != nil {
		return nil, err
	}
	if current == nil {
		err = ErrTaskNotFound
		return nil, err
	}

	next, ok := models.NextStatus(current.Status, action)
	if !ok {
		err = &StatusConflictError{Action: action, Status: current.Status}
		return nil, err
	}

	set := []string{"status = ?", "updated_at = ?"}
	args := []any{string(next), formatTime(now)}

	switch action {
	case models.ActionStart:
		set = append(set, "started_at = ?")
		args = append(args, formatTime(now))
	case models.ActionResume:
		set = append(set, "started_at = ?", "hold_reason = NULL")
		args = append(args, formatTime(now))
	case models.ActionHold:
		set = append(set, "started_at = NULL", "total_duration_seconds = ?", "hold_reason = ?")
		args = append(args, current.TotalDurationSeconds+workedSeconds(current.StartedAt, now), nullIfEmpty(reason))
	case models.ActionComplete:
		set = append(set, "started_at = NULL", "total_duration_seconds = ?", "completed_at = ?")
		args = append(args, current.TotalDurationSeconds+workedSeconds(current.StartedAt, now), formatTime(now))
	case models.ActionDeny:
		set = append(set, "deny_reason = ?")
		args = append(args, nullIfEmpty(reason))
	}

	args = append(args, id, string(current.Status))
	query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = ? AND status = ?", strings.Join(set, ", "))
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		err = &StatusConflictError{Action: action, Status: current.Status}
		return nil, err
	}

	updated, err := scanTask(tx.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id))
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return updated, nil
}

func workedSeconds(startedAt *time.Time, now time.Time) int64 {
	if startedAt == nil || startedAt.IsZero() {
		return 0
	}
	seconds := int64(now.Sub(*startedAt) / time.Second)
	if seconds < 0 {
		return 0
	}
	return seconds
}

func scanTask(scanner interface {
	Scan(dest ...any) error
}) (*models.Task, error) {
	var task models.Task
	var status string
	var description, project, partItem, nosUnit sql.NullString
	var assignedBy, machineID, dueDate, holdReason, denyReason sql.NullString
	var startedAt, completedAt sql.NullString
	var createdAt, updatedAt string

	if err := scanner.Scan(
		&task.ID,
		&task.Title,
		&description,
		&project,
		&partItem,
		&nosUnit,
		&task.Priority,
		&status,
		&task.AssignedTo,
		&assignedBy,
		&machineID,
		&dueDate,
		&holdReason,
		&denyReason,
		&startedAt,
		&completedAt,
		&task.TotalDurationSeconds,
		&createdAt,
		&updatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	task.Status = models.TaskStatus(status)
	task.Description = description.String
	task.Project = project.String
	task.PartItem = partItem.String
	task.NosUnit = nosUnit.String
	task.AssignedBy = assignedBy.String
	task.MachineID = machineID.String
	task.DueDate = dueDate.String
	task.HoldReason = holdReason.String
	task.DenyReason = denyReason.String

	var err error
	if task.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if task.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if task.StartedAt, err = parseNullTime(startedAt); err != nil {
		return nil, err
	}
	if task.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, err
	}
	return &task, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullTime(value *time.Time) any {
	if value == nil || value.IsZero() {
		return nil
	}
	return formatTime(*value)
}

// timeLayout keeps every stored timestamp the same width so text order
// matches time order in ORDER BY and range comparisons.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

func parseNullTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	parsed, err := parseTime(value.String)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
