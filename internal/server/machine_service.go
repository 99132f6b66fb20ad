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

const maxMachineNameLength = 100

// MachineService guards the machine registry.
type MachineService struct {
	machines store.MachineStore
}

func NewMachineService(machines store.MachineStore) *MachineService {
	return &MachineService{machines: machines}
}

// List is open to assigning roles, who pick a machine when creating tasks.
func (s *MachineService) List(ctx context.Context, caller *store.AuthUser, rawStatus string) ([]models.Machine, error) {
	if !models.CanAssignTasks(caller.Role) && !models.CanManageMachines(caller.Role) {
		return nil, forbiddenCode(fmt.Errorf("Not permitted to list machines"), codeForbidden)
	}
	var status models.MachineStatus
	if strings.TrimSpace(rawStatus) != "" {
		parsed, err := models.ParseMachineStatus(rawStatus)
		if err != nil {
			return nil, badRequest(err)
		}
		status = parsed
	}
	machines, err := s.machines.ListMachines(ctx, status)
	if err != nil {
		return nil, storeFailure(err)
	}
	return machines, nil
}

func (s *MachineService) Create(ctx context.Context, caller *store.AuthUser, req api.MachineCreateRequest, now time.Time) (models.Machine, error) {
	if !models.CanManageMachines(caller.Role) {
		return models.Machine{}, forbiddenCode(fmt.Errorf("Not permitted to register machines"), codeForbidden)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return models.Machine{}, badRequestCode(fmt.Errorf("name is required"), codeMissingRequired)
	}
	if len(name) > maxMachineNameLength {
		return models.Machine{}, badRequest(fmt.Errorf("name must be at most %d characters", maxMachineNameLength))
	}

	machine := models.Machine{
		Name:      name,
		Type:      strings.TrimSpace(req.Type),
		Location:  strings.TrimSpace(req.Location),
		Status:    models.MachineActive,
		CreatedAt: now,
	}
	if strings.TrimSpace(req.Status) != "" {
		status, err := models.ParseMachineStatus(req.Status)
		if err != nil {
			return models.Machine{}, badRequest(err)
		}
		machine.Status = status
	}
	if req.HourlyRate != nil {
		if *req.HourlyRate < 0 {
			return models.Machine{}, badRequest(fmt.Errorf("hourly_rate must not be negative"))
		}
		machine.HourlyRate = *req.HourlyRate
	}

	err := s.machines.CreateMachine(ctx, &machine)
	if errors.Is(err, store.ErrMachineTaken) {
		return models.Machine{}, conflictCode(fmt.Errorf("machine %q already exists", name), codeMachineNameTaken)
	}
	if err != nil {
		return models.Machine{}, storeFailure(err)
	}
	return machine, nil
}

// Update changes status, location or rate. Taking a machine offline replaces
// deleting it, since tasks keep referring to it.
func (s *MachineService) Update(ctx context.Context, caller *store.AuthUser, id string, req api.MachineUpdateRequest, now time.Time) (models.Machine, error) {
	if !models.CanManageMachines(caller.Role) {
		return models.Machine{}, forbiddenCode(fmt.Errorf("Not permitted to update machines"), codeForbidden)
	}

	var update store.MachineUpdate
	if req.Status != nil {
		status, err := models.ParseMachineStatus(*req.Status)
		if err != nil {
			return models.Machine{}, badRequest(err)
		}
		update.Status = &status
	}
	if req.Location != nil {
		update.Location = req.Location
	}
	if req.HourlyRate != nil {
		if *req.HourlyRate < 0 {
			return models.Machine{}, badRequest(fmt.Errorf("hourly_rate must not be negative"))
		}
		update.HourlyRate = req.HourlyRate
	}
	if update.Status == nil && update.Location == nil && update.HourlyRate == nil {
		return models.Machine{}, badRequestCode(fmt.Errorf("nothing to update"), codeMissingRequired)
	}

	machine, err := s.machines.UpdateMachine(ctx, id, update, now)
	if err != nil {
		return models.Machine{}, storeFailure(err)
	}
	if machine == nil {
		return models.Machine{}, notFoundCode(fmt.Errorf("Machine not found"), codeMachineNotFound)
	}
	return *machine, nil
}
