package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopfloor/internal/api"
	"shopfloor/internal/models"
	"shopfloor/internal/store"
)

// TaskService centralizes task authorization, validation, and defaults.
type TaskService struct {
	tasks    store.TaskStore
	users    store.AuthStore
	machines store.MachineStore
	now      func() time.Time
}

func NewTaskService(tasks store.TaskStore, users store.AuthStore, machines store.MachineStore) *TaskService {
	return &TaskService{tasks: tasks, users: users, machines: machines, now: func() time.Time { return time.Now().UTC() }}
}

// List returns tasks visible to the caller. Operators only see their own.
func (s *TaskService) List(ctx context.Context, caller *store.AuthUser, month, year int) ([]models.Task, error) {
	filter := store.ListFilter{Month: month, Year: year}
	if caller.Role == models.RoleOperator {
		filter.AssignedTo = caller.ID
	}
	tasks, err := s.tasks.ListTasks(ctx, filter)
	if err != nil {
		return nil, storeFailure(err)
	}
	return tasks, nil
}

func (s *TaskService) Get(ctx context.Context, caller *store.AuthUser, id string) (models.Task, error) {
	task, err := s.tasks.GetTask(ctx, id)
	if err != nil {
		return models.Task{}, storeFailure(err)
	}
	if task == nil || (caller.Role == models.RoleOperator && task.AssignedTo != caller.ID) {
		return models.Task{}, notFoundCode(fmt.Errorf("Task not found"), codeTaskNotFound)
	}
	return *task, nil
}

// Create assigns a new pending task. Only assigning roles may call it.
func (s *TaskService) Create(ctx context.Context, caller *store.AuthUser, req api.TaskCreateRequest) (models.Task, error) {
	if !models.CanAssignTasks(caller.Role) {
		return models.Task{}, forbiddenCode(fmt.Errorf("Not permitted to create tasks"), codeForbidden)
	}

	title, err := normalizeTitle(req.Title)
	if err != nil {
		return models.Task{}, err
	}
	priority, err := normalizePriority(req.Priority)
	if err != nil {
		return models.Task{}, err
	}
	dueDate, err := normalizeDueDate(req.DueDate)
	if err != nil {
		return models.Task{}, err
	}

	assigneeID := strings.TrimSpace(req.AssignedTo)
	if assigneeID == "" {
		return models.Task{}, badRequestCode(fmt.Errorf("assigned_to is required"), codeMissingRequired)
	}
	assignee, err := s.users.GetUserByID(ctx, assigneeID)
	if err != nil {
		return models.Task{}, storeFailure(err)
	}
	if assignee == nil || assignee.Disabled {
		return models.Task{}, badRequestCode(fmt.Errorf("assigned_to user %q not found", assigneeID), codeUserNotFound)
	}

	machineID, err := s.checkMachine(ctx, trimmed(req.MachineID))
	if err != nil {
		return models.Task{}, err
	}

	id, err := store.GenerateID(store.TaskIDPrefix, s.tasks.TaskExists)
	if err != nil {
		return models.Task{}, err
	}

	now := s.now()
	task := models.Task{
		ID:          id,
		Title:       title,
		Description: trimmed(req.Description),
		Project:     trimmed(req.Project),
		PartItem:    trimmed(req.PartItem),
		NosUnit:     trimmed(req.NosUnit),
		Priority:    priority,
		Status:      models.StatusPending,
		AssignedTo:  assignee.ID,
		AssignedBy:  caller.ID,
		MachineID:   machineID,
		DueDate:     dueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.tasks.CreateTask(ctx, &task); err != nil {
		return models.Task{}, storeFailure(err)
	}
	return task, nil
}

// Transition applies one operator action. Only the assignee may move a
// task, hold and deny require a non-empty reason, and the move must be legal
// from the stored status.
func (s *TaskService) Transition(ctx context.Context, caller *store.AuthUser, id string, action models.Action, reason string) (models.Task, error) {
	reason = strings.TrimSpace(reason)
	if models.RequiresReason(action) && reason == "" {
		return models.Task{}, badRequestCode(fmt.Errorf("A reason is required to %s a task", action), codeInvalidReason)
	}
	if !models.RequiresReason(action) {
		reason = ""
	}

	task, err := s.tasks.GetTask(ctx, id)
	if err != nil {
		return models.Task{}, storeFailure(err)
	}
	if task == nil {
		return models.Task{}, notFoundCode(fmt.Errorf("Task not found"), codeTaskNotFound)
	}
	if task.AssignedTo != caller.ID {
		return models.Task{}, forbiddenCode(fmt.Errorf("Task is not assigned to you"), codeNotAssignee)
	}

	updated, err := s.tasks.ApplyTransition(ctx, id, action, reason, s.now())
	var statusErr *store.StatusConflictError
	switch {
	case errors.As(err, &statusErr):
		return models.Task{}, transitionConflict(statusErr)
	case errors.Is(err, store.ErrTaskNotFound):
		return models.Task{}, notFoundCode(fmt.Errorf("Task not found"), codeTaskNotFound)
	case err != nil:
		return models.Task{}, storeFailure(err)
	}
	return *updated, nil
}

func transitionConflict(err *store.StatusConflictError) error {
	if target, ok := models.TargetStatus(err.Action); ok && target == err.Status {
		return conflictCode(fmt.Errorf("Task already %s", statusLabel(err.Status)), codeAlreadyInStatus)
	}
	return conflictCode(fmt.Errorf("Cannot %s task in status %s", err.Action, err.Status), codeInvalidTransition)
}

func statusLabel(status models.TaskStatus) string {
	return strings.ReplaceAll(string(status), "_", " ")
}

// checkMachine resolves an optional machine reference. New work only goes to
// registered machines that are currently active.
func (s *TaskService) checkMachine(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", nil
	}
	if !validateID(id) {
		return "", badRequestCode(fmt.Errorf("machine %q not found", id), codeMachineNotFound)
	}
	machine, err := s.machines.GetMachine(ctx, id)
	if err != nil {
		return "", storeFailure(err)
	}
	if machine == nil {
		return "", badRequestCode(fmt.Errorf("machine %q not found", id), codeMachineNotFound)
	}
	if machine.Status != models.MachineActive {
		return "", conflictCode(fmt.Errorf("machine %s is %s", machine.Name, machine.Status), codeMachineInactive)
	}
	return machine.ID, nil
}
