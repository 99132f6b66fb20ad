package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"shopfloor/internal/models"
)

const machineColumns = "id, name, type, location, status, hourly_rate, created_at, updated_at"

// MachineUpdate patches a machine. Nil fields are left unchanged.
type MachineUpdate struct {
	Status     *models.MachineStatus
	Location   *string
	HourlyRate *float64
}

// MachineExists reports whether a machine id is registered.
func (s *Store) MachineExists(id string) (bool, error) {
	return s.rowExists("SELECT 1 FROM machines WHERE id = ? LIMIT 1", id)
}

// CreateMachine assigns an id, defaults the status to active and inserts
// the machine. It returns ErrMachineTaken when the name is already in use.
func (s *Store) CreateMachine(ctx context.Context, machine *models.Machine) error {
	if machine == nil {
		return fmt.Errorf("machine is required")
	}
	machine.Name = strings.TrimSpace(machine.Name)
	if machine.Name == "" {
		return fmt.Errorf("machine name is required")
	}
	if machine.Status == "" {
		machine.Status = models.MachineActive
	}
	if !models.IsValidMachineStatus(machine.Status) {
		return fmt.Errorf("invalid machine status %q", machine.Status)
	}
	if machine.HourlyRate < 0 {
		return fmt.Errorf("hourly rate must not be negative")
	}

	var taken int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM machines WHERE name = ? COLLATE NOCASE LIMIT 1", machine.Name).Scan(&taken)
	if err == nil {
		return ErrMachineTaken
	}
	if err != sql.ErrNoRows {
		return err
	}

	if machine.ID == "" {
		id, err := GenerateID(MachineIDPrefix, s.MachineExists)
		if err != nil {
			return err
		}
		machine.ID = id
	}
	if machine.CreatedAt.IsZero() {
		machine.CreatedAt = time.Now()
	}
	machine.CreatedAt = machine.CreatedAt.UTC()
	machine.UpdatedAt = machine.CreatedAt

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO machines (`+machineColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, machine.ID, machine.Name, nullIfEmpty(machine.Type), nullIfEmpty(machine.Location),
		string(machine.Status), machine.HourlyRate, formatTime(machine.CreatedAt), formatTime(machine.UpdatedAt))
	return err
}

// GetMachine returns a machine by id, or nil.
func (s *Store) GetMachine(ctx context.Context, id string) (*models.Machine, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, "SELECT "+machineColumns+" FROM machines WHERE id = ? LIMIT 1", id)
	return scanMachine(row)
}

// ListMachines returns machines sorted by name, optionally limited to one
// status.
func (s *Store) ListMachines(ctx context.Context, status models.MachineStatus) ([]models.Machine, error) {
	query := "SELECT " + machineColumns + " FROM machines"
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY name COLLATE NOCASE ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	machines := []models.Machine{}
	for rows.Next() {
		machine, err := scanMachine(rows)
		if err != nil {
			return nil, err
		}
		machines = append(machines, *machine)
	}
	return machines, rows.Err()
}

// UpdateMachine applies update and returns the stored machine, or nil when
// the id is unknown.
func (s *Store) UpdateMachine(ctx context.Context, id string, update MachineUpdate, now time.Time) (*models.Machine, error) {
	sets := []string{"updated_at = ?"}
	args := []any{formatTime(now)}
	if update.Status != nil {
		if !models.IsValidMachineStatus(*update.Status) {
			return nil, fmt.Errorf("invalid machine status %q", *update.Status)
		}
		sets = append(sets, "status = ?")
		args = append(args, string(*update.Status))
	}
	if update.Location != nil {
		sets = append(sets, "location = ?")
		args = append(args, nullIfEmpty(strings.TrimSpace(*update.Location)))
	}
	if update.HourlyRate != nil {
		if *update.HourlyRate < 0 {
			return nil, fmt.Errorf("hourly rate must not be negative")
		}
		sets = append(sets, "hourly_rate = ?")
		args = append(args, *update.HourlyRate)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, "UPDATE machines SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, nil
	}
	return s.GetMachine(ctx, id)
}

func scanMachine(scanner interface {
	Scan(dest ...any) error
}) (*models.Machine, error) {
	var machine models.Machine
	var machineType, location sql.NullString
	var status, createdAt, updatedAt string

	if err := scanner.Scan(
		&machine.ID,
		&machine.Name,
		&machineType,
		&location,
		&status,
		&machine.HourlyRate,
		&createdAt,
		&updatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	machine.Type = machineType.String
	machine.Location = location.String
	machine.Status = models.MachineStatus(status)

	var err error
	if machine.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if machine.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &machine, nil
}
