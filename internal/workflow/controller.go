// Package workflow mediates operator-initiated task transitions.
//
// The Controller keeps the operator's task list as last fetched from the
// remote store, rejects transitions the lifecycle table does not allow
// before any request is made, collects reason codes for hold and deny, and
// replaces the whole list with a fresh fetch after every successful
// transition. It never changes a task's status locally.
package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"shopfloor/internal/api"
	"shopfloor/internal/models"
)

// TaskStore is the remote system of record as seen by the controller.
// *api.Client satisfies it.
type TaskStore interface {
	ListTasks(ctx context.Context, q api.TaskQuery) ([]models.Task, error)
	Transition(ctx context.Context, id string, action models.Action, reason string) (models.Task, error)
}

// Options configures a Controller.
type Options struct {
	// UserID limits the working set to tasks assigned to this user.
	UserID string
	// Query is forwarded on every fetch.
	Query  api.TaskQuery
	Logger *slog.Logger
	// OnChange, when set, is called after the task list is replaced or the
	// reason prompt changes. It runs without the controller lock held.
	OnChange func()
}

// Controller holds the operator's task list and the single reason prompt.
type Controller struct {
	store    TaskStore
	userID   string
	query    api.TaskQuery
	logger   *slog.Logger
	onChange func()

	mu          sync.Mutex
	tasks       []models.Task
	prompt      *ReasonPrompt
	inflight    map[string]struct{}
	fetchSeq    uint64
	appliedSeq  uint64
	lastRefresh time.Time
}

// New creates a controller over store. The list starts empty until the
// first Refresh.
func New(store TaskStore, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		store:    store,
		userID:   opts.UserID,
		query:    opts.Query,
		logger:   logger.With("component", "workflow"),
		onChange: opts.OnChange,
		inflight: make(map[string]struct{}),
	}
}

// Tasks returns a copy of the current task list.
func (c *Controller) Tasks() []models.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Task, len(c.tasks))
	copy(out, c.tasks)
	return out
}

// Task returns one task from the current list.
func (c *Controller) Task(id string) (models.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	task, ok := c.findLocked(id)
	if !ok {
		return models.Task{}, false
	}
	return *task, true
}

// LastRefresh is the time the list was last replaced.
func (c *Controller) LastRefresh() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRefresh
}

// Actions lists the transitions currently offered for a task. Nothing is
// offered while a request for the task is outstanding.
func (c *Controller) Actions(id string) []models.Action {
	c.mu.Lock()
	defer c.mu.Unlock()
	task, ok := c.findLocked(id)
	if !ok {
		return nil
	}
	if _, busy := c.inflight[id]; busy {
		return nil
	}
	return models.AvailableActions(task.Status)
}

// InFlight reports whether a transition request for the task is outstanding.
func (c *Controller) InFlight(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, busy := c.inflight[id]
	return busy
}

// Refresh fetches the full task list and replaces the local one. On error
// the previous list is kept.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.fetchSeq++
	seq := c.fetchSeq
	c.mu.Unlock()

	fetched, err := c.store.ListTasks(ctx, c.query)
	if err != nil {
		c.logger.Warn("refresh tasks", "error", err)
		return err
	}

	mine := make([]models.Task, 0, len(fetched))
	for _, task := range fetched {
		if task.AssignedTo == c.userID {
			mine = append(mine, task)
		}
	}

	c.mu.Lock()
	if seq < c.appliedSeq {
		// A fetch issued later already landed.
		c.mu.Unlock()
		c.logger.Debug("discard stale refresh", "seq", seq, "applied", c.appliedSeq)
		return nil
	}
	c.appliedSeq = seq
	c.tasks = mine
	c.lastRefresh = time.Now()
	c.mu.Unlock()

	c.logger.Debug("tasks refreshed", "count", len(mine))
	c.notify()
	return nil
}

// Start moves a pending task to in_progress.
func (c *Controller) Start(ctx context.Context, id string) error {
	return c.transition(ctx, id, models.ActionStart, "")
}

// Resume moves an on_hold task back to in_progress.
func (c *Controller) Resume(ctx context.Context, id string) error {
	return c.transition(ctx, id, models.ActionResume, "")
}

// Complete moves an in_progress task to completed.
func (c *Controller) Complete(ctx context.Context, id string) error {
	return c.transition(ctx, id, models.ActionComplete, "")
}

// Hold submits a hold with an already chosen reason, bypassing the prompt.
func (c *Controller) Hold(ctx context.Context, id, reason string) error {
	return c.transitionWithReason(ctx, id, models.ActionHold, reason)
}

// Deny submits a deny with an already chosen reason, bypassing the prompt.
func (c *Controller) Deny(ctx context.Context, id, reason string) error {
	return c.transitionWithReason(ctx, id, models.ActionDeny, reason)
}

func (c *Controller) transitionWithReason(ctx context.Context, id string, action models.Action, reason string) error {
	canonical, err := c.checkReason(id, action, reason)
	if err != nil {
		return err
	}
	return c.transition(ctx, id, action, canonical)
}

func (c *Controller) checkReason(id string, action models.Action, reason string) (string, error) {
	if reason == "" {
		return "", &GuardError{TaskID: id, Action: action, Err: ErrReasonRequired}
	}
	canonical, ok := models.CanonicalReason(action, reason)
	if !ok {
		return "", &GuardError{TaskID: id, Action: action, Err: ErrUnknownReason}
	}
	return canonical, nil
}

// transition runs the guard, sends one request, and refetches on success.
func (c *Controller) transition(ctx context.Context, id string, action models.Action, reason string) error {
	c.mu.Lock()
	task, ok := c.findLocked(id)
	if !ok {
		c.mu.Unlock()
		return &GuardError{TaskID: id, Action: action, Err: ErrTaskNotFound}
	}
	status := task.Status
	if !models.CanTransition(status, action) {
		c.mu.Unlock()
		return &GuardError{TaskID: id, Action: action, Status: status, Err: ErrTransitionNotAllowed}
	}
	if models.RequiresReason(action) && reason == "" {
		c.mu.Unlock()
		return &GuardError{TaskID: id, Action: action, Status: status, Err: ErrReasonRequired}
	}
	if _, busy := c.inflight[id]; busy {
		c.mu.Unlock()
		return &GuardError{TaskID: id, Action: action, Status: status, Err: ErrInFlight}
	}
	c.inflight[id] = struct{}{}
	c.mu.Unlock()

	logger := c.logger.With("task_id", id, "action", action)
	logger.Debug("submit transition", "from", status)

	_, err := c.store.Transition(ctx, id, action, reason)

	c.mu.Lock()
	delete(c.inflight, id)
	c.mu.Unlock()

	if err != nil {
		message := remoteMessage(action, err)
		logger.Warn("transition rejected", "error", err, "message", message)
		return &RemoteError{TaskID: id, Action: action, Message: message, Err: err}
	}

	logger.Info("transition applied")
	if err := c.Refresh(ctx); err != nil {
		// The transition itself succeeded; the next poll catches up.
		logger.Warn("refresh after transition", "error", err)
	}
	return nil
}

func (c *Controller) findLocked(id string) (*models.Task, bool) {
	for i := range c.tasks {
		if c.tasks[i].ID == id {
			return &c.tasks[i], true
		}
	}
	return nil, false
}

func (c *Controller) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}
