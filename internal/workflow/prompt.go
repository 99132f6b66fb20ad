package workflow

import (
	"context"

	"shopfloor/internal/models"
)

// ReasonPrompt is the single open reason-capture flow.
type ReasonPrompt struct {
	TaskID  string
	Action  models.Action
	Reason  string
	Choices []string
}

// BeginHold opens the reason prompt for holding a task, replacing any
// prompt that was already open.
func (c *Controller) BeginHold(id string) error {
	return c.openPrompt(id, models.ActionHold)
}

// BeginDeny opens the reason prompt for denying a task, replacing any
// prompt that was already open.
func (c *Controller) BeginDeny(id string) error {
	return c.openPrompt(id, models.ActionDeny)
}

func (c *Controller) openPrompt(id string, action models.Action) error {
	c.mu.Lock()
	task, ok := c.findLocked(id)
	if !ok {
		c.mu.Unlock()
		return &GuardError{TaskID: id, Action: action, Err: ErrTaskNotFound}
	}
	if !models.CanTransition(task.Status, action) {
		status := task.Status
		c.mu.Unlock()
		return &GuardError{TaskID: id, Action: action, Status: status, Err: ErrTransitionNotAllowed}
	}
	c.prompt = &ReasonPrompt{
		TaskID:  id,
		Action:  action,
		Choices: models.ReasonsFor(action),
	}
	c.mu.Unlock()

	c.notify()
	return nil
}

// Prompt returns a copy of the open reason prompt.
func (c *Controller) Prompt() (ReasonPrompt, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.prompt == nil {
		return ReasonPrompt{}, false
	}
	out := *c.prompt
	out.Choices = append([]string(nil), c.prompt.Choices...)
	return out, true
}

// SelectReason records the chosen reason on the open prompt.
func (c *Controller) SelectReason(reason string) error {
	c.mu.Lock()
	if c.prompt == nil {
		c.mu.Unlock()
		return ErrNoReasonPrompt
	}
	canonical, ok := models.CanonicalReason(c.prompt.Action, reason)
	if !ok {
		p := *c.prompt
		c.mu.Unlock()
		return &GuardError{TaskID: p.TaskID, Action: p.Action, Err: ErrUnknownReason}
	}
	c.prompt.Reason = canonical
	c.mu.Unlock()

	c.notify()
	return nil
}

// SubmitReason sends the prompt's transition. Without a selected reason
// nothing is sent and the prompt stays open. The prompt is closed only when
// the transition succeeds.
func (c *Controller) SubmitReason(ctx context.Context) error {
	c.mu.Lock()
	if c.prompt == nil {
		c.mu.Unlock()
		return ErrNoReasonPrompt
	}
	p := *c.prompt
	c.mu.Unlock()

	if p.Reason == "" {
		return &GuardError{TaskID: p.TaskID, Action: p.Action, Err: ErrReasonRequired}
	}

	if err := c.transition(ctx, p.TaskID, p.Action, p.Reason); err != nil {
		return err
	}

	c.mu.Lock()
	// Only clear the prompt that was submitted; the operator may have
	// opened another one while the request was outstanding.
	if c.prompt != nil && c.prompt.TaskID == p.TaskID && c.prompt.Action == p.Action {
		c.prompt = nil
	}
	c.mu.Unlock()

	c.notify()
	return nil
}

// CancelReason closes the prompt without contacting the remote store.
func (c *Controller) CancelReason() {
	c.mu.Lock()
	had := c.prompt != nil
	c.prompt = nil
	c.mu.Unlock()

	if had {
		c.notify()
	}
}
