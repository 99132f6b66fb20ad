package models

import (
	"fmt"
	"strings"
	"time"
)

// MachineStatus is the availability of a machine on the floor.
type MachineStatus string

const (
	MachineActive      MachineStatus = "active"
	MachineMaintenance MachineStatus = "maintenance"
	MachineOffline     MachineStatus = "offline"
)

// Machine is a registered piece of shop-floor equipment tasks can run on.
type Machine struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Type       string        `json:"type,omitempty"`
	Location   string        `json:"location,omitempty"`
	Status     MachineStatus `json:"status"`
	HourlyRate float64       `json:"hourly_rate"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

func IsValidMachineStatus(status MachineStatus) bool {
	switch status {
	case MachineActive, MachineMaintenance, MachineOffline:
		return true
	default:
		return false
	}
}

func ParseMachineStatus(raw string) (MachineStatus, error) {
	value := MachineStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !IsValidMachineStatus(value) {
		return "", fmt.Errorf("invalid machine status %q (want active, maintenance or offline)", raw)
	}
	return value, nil
}

// CanManageMachines reports whether the role may register and update machines.
func CanManageMachines(role Role) bool {
	return role == RoleAdmin || role == RolePlanning
}
