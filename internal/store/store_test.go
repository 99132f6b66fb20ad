package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"shopfloor/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func seedUser(t *testing.T, st *Store, username string, role models.Role) *AuthUser {
	t.Helper()
	user, err := st.CreateUser(context.Background(), UserInput{
		Username:     username,
		PasswordHash: "hash",
		Role:         role,
	}, time.Now())
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func seedTask(t *testing.T, st *Store, id, assignee string, status models.TaskStatus, created time.Time) *models.Task {
	t.Helper()
	task := &models.Task{
		ID:         id,
		Title:      "Mill housing " + id,
		Priority:   models.PriorityMedium,
		Status:     status,
		AssignedTo: assignee,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
	if err := st.CreateTask(context.Background(), task); err != nil {
		t.Fatalf("create task %s: %v", id, err)
	}
	return task
}

func TestCreateAndGetTask(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	op := seedUser(t, st, "op1", models.RoleOperator)
	planner := seedUser(t, st, "plan1", models.RolePlanning)
	now := time.Now().UTC().Truncate(time.Millisecond)

	task := &models.Task{
		ID:          "tk-ab12cd",
		Title:       "Turn shaft",
		Description: "Finish to 0.01mm",
		Project:     "P-100",
		PartItem:    "Shaft A",
		NosUnit:     "12 pcs",
		Priority:    models.PriorityHigh,
		Status:      models.StatusPending,
		AssignedTo:  op.ID,
		AssignedBy:  planner.ID,
		MachineID:   "LATHE-2",
		DueDate:     "2026-03-15",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := st.CreateTask(ctx, task); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := st.GetTask(ctx, "tk-ab12cd")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected task, got nil")
	}
	if got.Title != "Turn shaft" || got.MachineID != "LATHE-2" || got.AssignedBy != planner.ID {
		t.Fatalf("unexpected task %+v", got)
	}
	if got.Status != models.StatusPending || got.StartedAt != nil || got.CompletedAt != nil {
		t.Fatalf("unexpected lifecycle fields %+v", got)
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("created_at round trip: got %v want %v", got.CreatedAt, now)
	}

	exists, err := st.TaskExists("tk-ab12cd")
	if err != nil || !exists {
		t.Fatalf("expected task to exist (err=%v)", err)
	}
	missing, err := st.GetTask(ctx, "tk-none00")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing task, got %+v (err=%v)", missing, err)
	}
}

func TestCreateTaskRequiresKnownAssignee(t *testing.T) {
	st := testStore(t)
	now := time.Now()
	err := st.CreateTask(context.Background(), &models.Task{
		ID: "tk-orphan", Title: "x", Priority: models.PriorityLow, Status: models.StatusPending,
		AssignedTo: "us-nobody", CreatedAt: now, UpdatedAt: now,
	})
	if err == nil {
		t.Fatal("expected foreign key failure")
	}
}

func TestListTasksFilters(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	op1 := seedUser(t, st, "op1", models.RoleOperator)
	op2 := seedUser(t, st, "op2", models.RoleOperator)

	march := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	april := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	lastYear := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	seedTask(t, st, "tk-a", op1.ID, models.StatusPending, march)
	seedTask(t, st, "tk-b", op1.ID, models.StatusCompleted, april)
	seedTask(t, st, "tk-c", op2.ID, models.StatusPending, march.Add(time.Hour))
	seedTask(t, st, "tk-d", op1.ID, models.StatusPending, lastYear)

	tests := []struct {
		name   string
		filter ListFilter
		want   []string
	}{
		{name: "all newest first", filter: ListFilter{}, want: []string{"tk-b", "tk-c", "tk-a", "tk-d"}},
		{name: "assignee", filter: ListFilter{AssignedTo: op1.ID}, want: []string{"tk-b", "tk-a", "tk-d"}},
		{name: "month and year", filter: ListFilter{Month: 3, Year: 2026}, want: []string{"tk-c", "tk-a"}},
		{name: "month only", filter: ListFilter{Month: 3}, want: []string{"tk-c", "tk-a", "tk-d"}},
		{name: "year only", filter: ListFilter{Year: 2025}, want: []string{"tk-d"}},
		{name: "status", filter: ListFilter{Statuses: []models.TaskStatus{models.StatusCompleted}}, want: []string{"tk-b"}},
		{name: "limit", filter: ListFilter{Limit: 1}, want: []string{"tk-b"}},
		{name: "empty", filter: ListFilter{Year: 2020}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := st.ListTasks(ctx, tt.filter)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if got == nil {
				t.Fatal("expected non-nil slice")
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %d tasks", tt.want, len(got))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Fatalf("position %d: expected %s, got %s", i, id, got[i].ID)
				}
			}
		})
	}
}

func TestListTasksOrdersWithinOneSecond(t *testing.T) {
	st := testStore(t)
	op := seedUser(t, st, "op1", models.RoleOperator)

	whole := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	seedTask(t, st, "tk-whole", op.ID, models.StatusPending, whole)
	seedTask(t, st, "tk-half", op.ID, models.StatusPending, whole.Add(500*time.Millisecond))
	seedTask(t, st, "tk-tenth", op.ID, models.StatusPending, whole.Add(100*time.Millisecond))

	got, err := st.ListTasks(context.Background(), ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"tk-half", "tk-tenth", "tk-whole"}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
	if !got[2].CreatedAt.Equal(whole) || !got[0].CreatedAt.Equal(whole.Add(500*time.Millisecond)) {
		t.Fatalf("timestamps not round-tripped: %v %v", got[0].CreatedAt, got[2].CreatedAt)
	}
}

func TestFormatTimeIsFixedWidth(t *testing.T) {
	a := formatTime(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	b := formatTime(time.Date(2026, 3, 10, 9, 0, 0, 500_000_000, time.FixedZone("CET", 3600)))
	if len(a) != len(b) {
		t.Fatalf("expected equal widths, got %q and %q", a, b)
	}
	if a != "2026-03-10T09:00:00.000000000Z" {
		t.Fatalf("unexpected layout %q", a)
	}
}

func TestApplyTransitionTracksWorkTime(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	op := seedUser(t, st, "op1", models.RoleOperator)
	t0 := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	seedTask(t, st, "tk-run", op.ID, models.StatusPending, t0)

	started, err := st.ApplyTransition(ctx, "tk-run", models.ActionStart, "", t0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Status != models.StatusInProgress || started.StartedAt == nil || !started.StartedAt.Equal(t0) {
		t.Fatalf("unexpected after start: %+v", started)
	}

	held, err := st.ApplyTransition(ctx, "tk-run", models.ActionHold, "Machine breakdown", t0.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("hold: %v", err)
	}
	if held.Status != models.StatusOnHold || held.StartedAt != nil {
		t.Fatalf("unexpected after hold: %+v", held)
	}
	if held.TotalDurationSeconds != 1800 || held.HoldReason != "Machine breakdown" {
		t.Fatalf("expected 1800s and hold reason, got %d %q", held.TotalDurationSeconds, held.HoldReason)
	}

	resumed, err := st.ApplyTransition(ctx, "tk-run", models.ActionResume, "", t0.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.HoldReason != "" {
		t.Fatalf("resume must clear hold reason, got %q", resumed.HoldReason)
	}
	if resumed.StartedAt == nil || !resumed.StartedAt.Equal(t0.Add(2*time.Hour)) {
		t.Fatalf("resume must restart the clock, got %v", resumed.StartedAt)
	}

	done, err := st.ApplyTransition(ctx, "tk-run", models.ActionComplete, "", t0.Add(2*time.Hour+15*time.Minute))
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != models.StatusCompleted || done.CompletedAt == nil || done.StartedAt != nil {
		t.Fatalf("unexpected after complete: %+v", done)
	}
	if done.TotalDurationSeconds != 1800+900 {
		t.Fatalf("expected 2700s, got %d", done.TotalDurationSeconds)
	}
}

func TestApplyTransitionRejectsIllegalMoves(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	op := seedUser(t, st, "op1", models.RoleOperator)
	now := time.Now()
	seedTask(t, st, "tk-done", op.ID, models.StatusCompleted, now)
	seedTask(t, st, "tk-new", op.ID, models.StatusPending, now)

	_, err := st.ApplyTransition(ctx, "tk-done", models.ActionComplete, "", now)
	var conflict *StatusConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected StatusConflictError, got %v", err)
	}
	if conflict.Status != models.StatusCompleted || conflict.Action != models.ActionComplete {
		t.Fatalf("unexpected conflict %+v", conflict)
	}

	if _, err := st.ApplyTransition(ctx, "tk-new", models.ActionHold, "Other", now); !errors.As(err, &conflict) {
		t.Fatalf("expected conflict for hold from pending, got %v", err)
	}
	if _, err := st.ApplyTransition(ctx, "tk-missing", models.ActionStart, "", now); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}

	denied, err := st.ApplyTransition(ctx, "tk-new", models.ActionDeny, "Missing materials", now)
	if err != nil {
		t.Fatalf("deny: %v", err)
	}
	if denied.Status != models.StatusDenied || denied.DenyReason != "Missing materials" {
		t.Fatalf("unexpected after deny: %+v", denied)
	}
}

func TestApplyTransitionSingleWinner(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	op := seedUser(t, st, "op1", models.RoleOperator)
	now := time.Now()
	seedTask(t, st, "tk-race", op.ID, models.StatusPending, now)

	const workers = 8
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			_, err := st.ApplyTransition(ctx, "tk-race", models.ActionStart, "", now)
			errs <- err
		}()
	}

	wins := 0
	for i := 0; i < workers; i++ {
		err := <-errs
		if err == nil {
			wins++
			continue
		}
		var conflict *StatusConflictError
		if !errors.As(err, &conflict) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one successful start, got %d", wins)
	}
}
