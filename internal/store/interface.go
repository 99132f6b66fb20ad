package store

import (
	"context"
	"time"

	"shopfloor/internal/models"
)

// TaskStore abstracts task storage backends.
type TaskStore interface {
	TaskExists(id string) (bool, error)
	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	ListTasks(ctx context.Context, filter ListFilter) ([]models.Task, error)
	ApplyTransition(ctx context.Context, id string, action models.Action, reason string, now time.Time) (*models.Task, error)
}

// AuthStore abstracts user and session persistence.
type AuthStore interface {
	CountEnabledUsers(ctx context.Context) (int, error)
	CreateUser(ctx context.Context, input UserInput, now time.Time) (*AuthUser, error)
	GetUserByUsername(ctx context.Context, username string) (*AuthUser, error)
	GetUserByID(ctx context.Context, id string) (*AuthUser, error)
	ListUsers(ctx context.Context) ([]AuthUser, error)
	SetUserDisabled(ctx context.Context, username string, disabled bool, now time.Time) (*AuthUser, error)
	CreateSession(ctx context.Context, userID, tokenHash string, expiresAt, createdAt time.Time) error
	GetUserBySessionTokenHash(ctx context.Context, tokenHash string, now time.Time) (*AuthUser, error)
	RevokeSessionByTokenHash(ctx context.Context, tokenHash string, revokedAt time.Time) error
}

// MachineStore abstracts the machine registry.
type MachineStore interface {
	CreateMachine(ctx context.Context, machine *models.Machine) error
	GetMachine(ctx context.Context, id string) (*models.Machine, error)
	ListMachines(ctx context.Context, status models.MachineStatus) ([]models.Machine, error)
	UpdateMachine(ctx context.Context, id string, update MachineUpdate, now time.Time) (*models.Machine, error)
}

var (
	_ TaskStore    = (*Store)(nil)
	_ AuthStore    = (*Store)(nil)
	_ MachineStore = (*Store)(nil)
)
