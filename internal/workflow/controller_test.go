package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"shopfloor/internal/api"
	"shopfloor/internal/models"
)

type transitionCall struct {
	ID     string
	Action models.Action
	Reason string
}

// stubStore applies the lifecycle table to an in-memory task map the way a
// remote store would, and records every request.
type stubStore struct {
	mu        sync.Mutex
	tasks     map[string]models.Task
	order     []string
	calls     []transitionCall
	lists     int
	listErr   error
	failWith  map[models.Action]error
	startedAt time.Time
	block     chan struct{}
}

func newStubStore(tasks ...models.Task) *stubStore {
	s := &stubStore{tasks: map[string]models.Task{}, failWith: map[models.Action]error{}}
	for _, task := range tasks {
		s.tasks[task.ID] = task
		s.order = append(s.order, task.ID)
	}
	s.startedAt = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	return s
}

func (s *stubStore) ListTasks(_ context.Context, _ api.TaskQuery) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]models.Task, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.tasks[id])
	}
	return out, nil
}

func (s *stubStore) Transition(_ context.Context, id string, action models.Action, reason string) (models.Task, error) {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, transitionCall{ID: id, Action: action, Reason: reason})
	if err := s.failWith[action]; err != nil {
		return models.Task{}, err
	}
	task := s.tasks[id]
	next, ok := models.NextStatus(task.Status, action)
	if !ok {
		return models.Task{}, &api.APIError{Status: 409, Code: "conflict", Detail: "Task already " + string(task.Status)}
	}
	task.Status = next
	switch action {
	case models.ActionStart, models.ActionResume:
		started := s.startedAt
		task.StartedAt = &started
	case models.ActionHold:
		task.HoldReason = reason
	case models.ActionDeny:
		task.DenyReason = reason
	}
	s.tasks[id] = task
	return task, nil
}

func (s *stubStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *stubStore) listCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lists
}

func (s *stubStore) set(task models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[task.ID]; !ok {
		s.order = append(s.order, task.ID)
	}
	s.tasks[task.ID] = task
}

func task(id string, status models.TaskStatus, assignee string) models.Task {
	return models.Task{ID: id, Title: "Task " + id, Status: status, AssignedTo: assignee, Priority: models.PriorityMedium}
}

func newTestController(t *testing.T, store *stubStore) *Controller {
	t.Helper()
	c := New(store, Options{UserID: "U1"})
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("initial refresh: %v", err)
	}
	return c
}

func TestRefreshFiltersToAssignee(t *testing.T) {
	store := newStubStore(
		task("T1", models.StatusPending, "U1"),
		task("T2", models.StatusPending, "U2"),
		task("T3", models.StatusOnHold, "U1"),
	)
	c := newTestController(t, store)

	tasks := c.Tasks()
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks for U1, got %d", len(tasks))
	}
	for _, tk := range tasks {
		if tk.AssignedTo != "U1" {
			t.Fatalf("unexpected task %s assigned to %s", tk.ID, tk.AssignedTo)
		}
	}
	if c.LastRefresh().IsZero() {
		t.Fatal("expected last refresh time")
	}
}

func TestIllegalTransitionsNeverReachTheStore(t *testing.T) {
	statuses := []models.TaskStatus{
		models.StatusPending, models.StatusInProgress, models.StatusOnHold,
		models.StatusCompleted, models.StatusDenied,
	}
	actions := []models.Action{
		models.ActionStart, models.ActionHold, models.ActionResume,
		models.ActionComplete, models.ActionDeny,
	}

	for _, status := range statuses {
		for _, action := range actions {
			if models.CanTransition(status, action) {
				continue
			}
			t.Run(fmt.Sprintf("%s/%s", status, action), func(t *testing.T) {
				store := newStubStore(task("T1", status, "U1"))
				c := newTestController(t, store)

				var err error
				switch action {
				case models.ActionStart:
					err = c.Start(context.Background(), "T1")
				case models.ActionResume:
					err = c.Resume(context.Background(), "T1")
				case models.ActionComplete:
					err = c.Complete(context.Background(), "T1")
				case models.ActionHold:
					err = c.Hold(context.Background(), "T1", "Other")
				case models.ActionDeny:
					err = c.Deny(context.Background(), "T1", "Other")
				}
				if !errors.Is(err, ErrTransitionNotAllowed) {
					t.Fatalf("expected ErrTransitionNotAllowed, got %v", err)
				}
				if !IsGuard(err) {
					t.Fatalf("expected guard error, got %T", err)
				}
				if store.callCount() != 0 {
					t.Fatalf("expected no request, got %d", store.callCount())
				}
			})
		}
	}
}

func TestStartRefetchesAuthoritativeState(t *testing.T) {
	store := newStubStore(task("T1", models.StatusPending, "U1"))
	c := newTestController(t, store)
	listsBefore := store.listCount()

	if err := c.Start(context.Background(), "T1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if store.callCount() != 1 || store.calls[0] != (transitionCall{ID: "T1", Action: models.ActionStart}) {
		t.Fatalf("unexpected calls %+v", store.calls)
	}
	if store.listCount() != listsBefore+1 {
		t.Fatalf("expected one refetch, got %d", store.listCount()-listsBefore)
	}

	got, ok := c.Task("T1")
	if !ok {
		t.Fatal("expected T1 in list")
	}
	if got.Status != models.StatusInProgress {
		t.Fatalf("expected in_progress, got %q", got.Status)
	}
	if got.StartedAt == nil || !got.StartedAt.Equal(store.startedAt) {
		t.Fatalf("expected server started_at, got %v", got.StartedAt)
	}
}

func TestCompletedTaskIsNoLongerEligible(t *testing.T) {
	store := newStubStore(task("T1", models.StatusInProgress, "U1"))
	c := newTestController(t, store)

	if err := c.Complete(context.Background(), "T1"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got := c.Actions("T1"); len(got) != 0 {
		t.Fatalf("expected no actions after completion, got %v", got)
	}
	if err := c.Complete(context.Background(), "T1"); !errors.Is(err, ErrTransitionNotAllowed) {
		t.Fatalf("expected guard on second complete, got %v", err)
	}
	if err := c.Hold(context.Background(), "T1", "Shift change"); !errors.Is(err, ErrTransitionNotAllowed) {
		t.Fatalf("expected guard on hold after complete, got %v", err)
	}
	if store.callCount() != 1 {
		t.Fatalf("expected exactly one request, got %d", store.callCount())
	}
}

func TestRemoteRejectionSurfacesDetail(t *testing.T) {
	store := newStubStore(task("T1", models.StatusInProgress, "U1"))
	store.failWith[models.ActionHold] = &api.APIError{Status: 409, Code: "conflict", Detail: "Task already completed"}
	c := newTestController(t, store)
	listsBefore := store.listCount()

	err := c.Hold(context.Background(), "T1", "Machine breakdown")
	var remoteErr *RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected RemoteError, got %T (%v)", err, err)
	}
	if err.Error() != "Task already completed" {
		t.Fatalf("expected server detail verbatim, got %q", err.Error())
	}
	got, _ := c.Task("T1")
	if got.Status != models.StatusInProgress {
		t.Fatalf("expected cached status unchanged, got %q", got.Status)
	}
	if store.listCount() != listsBefore {
		t.Fatal("failed transition must not refetch")
	}
	if c.InFlight("T1") {
		t.Fatal("in-flight marker must be cleared after failure")
	}
}

func TestTransportFailureUsesFallbackMessage(t *testing.T) {
	cases := map[models.Action]string{
		models.ActionStart:    "Failed to start task",
		models.ActionComplete: "Failed to complete task",
		models.ActionResume:   "Failed to resume task",
	}
	statusFor := map[models.Action]models.TaskStatus{
		models.ActionStart:    models.StatusPending,
		models.ActionComplete: models.StatusInProgress,
		models.ActionResume:   models.StatusOnHold,
	}
	for action, want := range cases {
		t.Run(string(action), func(t *testing.T) {
			store := newStubStore(task("T1", statusFor[action], "U1"))
			store.failWith[action] = errors.New("dial tcp 127.0.0.1:7400: connect: connection refused")
			c := newTestController(t, store)

			var err error
			switch action {
			case models.ActionStart:
				err = c.Start(context.Background(), "T1")
			case models.ActionComplete:
				err = c.Complete(context.Background(), "T1")
			case models.ActionResume:
				err = c.Resume(context.Background(), "T1")
			}
			if err == nil || err.Error() != want {
				t.Fatalf("expected %q, got %v", want, err)
			}
			if IsGuard(err) {
				t.Fatal("transport failure must not be reported as a guard error")
			}
		})
	}

	t.Run("api error without detail", func(t *testing.T) {
		store := newStubStore(task("T1", models.StatusPending, "U1"))
		store.failWith[models.ActionDeny] = &api.APIError{Status: 500}
		c := newTestController(t, store)
		err := c.Deny(context.Background(), "T1", "Safety concerns")
		if err == nil || err.Error() != "Failed to deny task" {
			t.Fatalf("expected deny fallback, got %v", err)
		}
	})
}

func TestUnknownTaskIsGuarded(t *testing.T) {
	store := newStubStore(task("T1", models.StatusPending, "U2"))
	c := newTestController(t, store)

	if err := c.Start(context.Background(), "T1"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound for a task owned by someone else, got %v", err)
	}
	if store.callCount() != 0 {
		t.Fatal("expected no request")
	}
}

func TestDirectHoldRequiresKnownReason(t *testing.T) {
	store := newStubStore(task("T1", models.StatusInProgress, "U1"))
	c := newTestController(t, store)

	if err := c.Hold(context.Background(), "T1", ""); !errors.Is(err, ErrReasonRequired) {
		t.Fatalf("expected ErrReasonRequired, got %v", err)
	}
	if err := c.Hold(context.Background(), "T1", "Lunch"); !errors.Is(err, ErrUnknownReason) {
		t.Fatalf("expected ErrUnknownReason, got %v", err)
	}
	if store.callCount() != 0 {
		t.Fatal("expected no request")
	}

	if err := c.Hold(context.Background(), "T1", "shift change"); err != nil {
		t.Fatalf("hold: %v", err)
	}
	if store.calls[0].Reason != "Shift change" {
		t.Fatalf("expected canonical reason, got %q", store.calls[0].Reason)
	}
}

func TestInFlightTransitionIsDebounced(t *testing.T) {
	store := newStubStore(task("T1", models.StatusInProgress, "U1"))
	c := newTestController(t, store)
	store.block = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		done <- c.Complete(context.Background(), "T1")
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !c.InFlight("T1") {
		if time.Now().After(deadline) {
			t.Fatal("first request never became in-flight")
		}
		time.Sleep(time.Millisecond)
	}

	if got := c.Actions("T1"); len(got) != 0 {
		t.Fatalf("expected no actions while in flight, got %v", got)
	}
	if err := c.Complete(context.Background(), "T1"); !errors.Is(err, ErrInFlight) {
		t.Fatalf("expected ErrInFlight, got %v", err)
	}

	close(store.block)
	if err := <-done; err != nil {
		t.Fatalf("first complete: %v", err)
	}
	if store.callCount() != 1 {
		t.Fatalf("expected one request, got %d", store.callCount())
	}
}

func TestFailedRefreshKeepsPreviousList(t *testing.T) {
	store := newStubStore(task("T1", models.StatusPending, "U1"))
	c := newTestController(t, store)

	store.listErr = errors.New("boom")
	if err := c.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	if len(c.Tasks()) != 1 {
		t.Fatal("expected previous list to survive a failed refresh")
	}
}

func TestSuccessfulTransitionSurvivesFailedRefetch(t *testing.T) {
	store := newStubStore(task("T1", models.StatusPending, "U1"))
	c := newTestController(t, store)

	store.listErr = errors.New("boom")
	if err := c.Start(context.Background(), "T1"); err != nil {
		t.Fatalf("start should succeed even if the refetch fails: %v", err)
	}
	got, _ := c.Task("T1")
	if got.Status != models.StatusPending {
		t.Fatalf("status must not be patched locally, got %q", got.Status)
	}
}

func TestOnChangeCalledOnRefresh(t *testing.T) {
	store := newStubStore(task("T1", models.StatusPending, "U1"))
	var mu sync.Mutex
	calls := 0
	c := New(store, Options{UserID: "U1", OnChange: func() {
		mu.Lock()
		calls++
		mu.Unlock()
	}})
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected 1 change notification, got %d", calls)
	}
}
