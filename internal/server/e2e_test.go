package server

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"shopfloor/internal/api"
	"shopfloor/internal/models"
	"shopfloor/internal/session"
	"shopfloor/internal/workflow"
)

func TestOperatorWorkflowEndToEnd(t *testing.T) {
	srv := newTestServer(t)
	seedUser(t, srv, "op1", models.RoleOperator)
	other := seedUser(t, srv, "op2", models.RoleOperator)
	seedUser(t, srv, "plan1", models.RolePlanning)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	ctx := context.Background()

	planner, err := session.Login(ctx, api.NewClient(ts.URL), ts.URL, "plan1", testPassword)
	if err != nil {
		t.Fatalf("planner login: %v", err)
	}
	operator, err := session.Login(ctx, api.NewClient(ts.URL), ts.URL, "op1", testPassword)
	if err != nil {
		t.Fatalf("operator login: %v", err)
	}

	mine, err := planner.Client().CreateTask(ctx, api.TaskCreateRequest{Title: "Machine housing", AssignedTo: operator.UserID()})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := planner.Client().CreateTask(ctx, api.TaskCreateRequest{Title: "Other line", AssignedTo: other.ID}); err != nil {
		t.Fatalf("create task: %v", err)
	}

	ctrl := workflow.New(operator.Client(), workflow.Options{UserID: operator.UserID()})
	if err := ctrl.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if tasks := ctrl.Tasks(); len(tasks) != 1 || tasks[0].ID != mine.ID {
		t.Fatalf("expected only the operator's task, got %+v", tasks)
	}

	if err := ctrl.Complete(ctx, mine.ID); !workflow.IsGuard(err) {
		t.Fatalf("expected guard error completing a pending task, got %v", err)
	}

	if err := ctrl.Start(ctx, mine.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	assertStatus(t, ctrl, mine.ID, models.StatusInProgress)

	if err := ctrl.BeginHold(mine.ID); err != nil {
		t.Fatalf("begin hold: %v", err)
	}
	if err := ctrl.SelectReason("Waiting for materials"); err != nil {
		t.Fatalf("select reason: %v", err)
	}
	if err := ctrl.SubmitReason(ctx); err != nil {
		t.Fatalf("submit hold: %v", err)
	}
	assertStatus(t, ctrl, mine.ID, models.StatusOnHold)
	if task, _ := ctrl.Task(mine.ID); task.HoldReason != "Waiting for materials" {
		t.Fatalf("expected hold reason from server, got %q", task.HoldReason)
	}
	if _, open := ctrl.Prompt(); open {
		t.Fatal("expected prompt to close after successful hold")
	}

	if err := ctrl.Resume(ctx, mine.ID); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if err := ctrl.Complete(ctx, mine.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	assertStatus(t, ctrl, mine.ID, models.StatusCompleted)
	if actions := ctrl.Actions(mine.ID); len(actions) != 0 {
		t.Fatalf("expected no actions for completed task, got %v", actions)
	}

	// A second client racing the same task gets the server's detail.
	stale := workflow.New(operator.Client(), workflow.Options{UserID: operator.UserID()})
	fresh, err := planner.Client().CreateTask(ctx, api.TaskCreateRequest{Title: "Race", AssignedTo: operator.UserID()})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if err := stale.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := operator.Client().Transition(ctx, fresh.ID, models.ActionStart, ""); err != nil {
		t.Fatalf("direct start: %v", err)
	}
	err = stale.Start(ctx, fresh.ID)
	var remote *workflow.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected remote error, got %v", err)
	}
	if remote.Message != "Task already in progress" {
		t.Fatalf("expected server detail, got %q", remote.Message)
	}
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != codeAlreadyInStatus {
		t.Fatalf("expected wrapped api error, got %v", err)
	}

	if err := operator.Client().Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := operator.Client().Me(ctx); err == nil {
		t.Fatal("expected revoked token to be rejected")
	}
}

func assertStatus(t *testing.T, ctrl *workflow.Controller, id string, want models.TaskStatus) {
	t.Helper()
	task, ok := ctrl.Task(id)
	if !ok {
		t.Fatalf("task %s missing from controller list", id)
	}
	if task.Status != want {
		t.Fatalf("expected %s, got %s", want, task.Status)
	}
}
