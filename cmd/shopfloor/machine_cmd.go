package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shopfloor/internal/api"
	"shopfloor/internal/config"
	"shopfloor/internal/session"
)

func newMachineCmd(cfg *config.Config, structured *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "machine",
		Short: "Manage the machine registry (planning, admin)",
	}
	cmd.AddCommand(newMachineAddCmd(cfg, structured))
	cmd.AddCommand(newMachineListCmd(cfg, structured))
	cmd.AddCommand(newMachineSetCmd(cfg, structured))
	return cmd
}

func newMachineAddCmd(cfg *config.Config, structured *bool) *cobra.Command {
	var (
		machineType string
		location    string
		status      string
		hourlyRate  float64
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Register a machine",
		Args:  requireExactlyArgs(1, "machine name is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.MachineCreateRequest{
				Name:     args[0],
				Type:     machineType,
				Location: location,
				Status:   status,
			}
			if cmd.Flags().Changed("hourly-rate") {
				req.HourlyRate = &hourlyRate
			}

			return withSession(cfg, func(_ *session.Session, client *api.Client) error {
				machine, err := client.CreateMachine(cmd.Context(), req)
				if err != nil {
					return err
				}
				if *structured {
					return writeStructured(machine)
				}
				return writePlain("registered machine %s (%s, %s)\n", machine.Name, machine.ID, machine.Status)
			})
		},
	}

	cmd.Flags().StringVar(&machineType, "type", "", "machine type")
	cmd.Flags().StringVar(&location, "location", "", "location on the floor")
	cmd.Flags().StringVar(&status, "status", "", "initial status (active|maintenance|offline)")
	cmd.Flags().Float64Var(&hourlyRate, "hourly-rate", 0, "hourly rate")
	return cmd
}

func newMachineListCmd(cfg *config.Config, structured *bool) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered machines",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cfg, func(_ *session.Session, client *api.Client) error {
				machines, err := client.ListMachines(cmd.Context(), status)
				if err != nil {
					return err
				}
				if *structured {
					return writeStructured(machines)
				}
				if len(machines) == 0 {
					return writePlain("no machines\n")
				}
				if err := writePlain("NAME\tSTATUS\tTYPE\tLOCATION\tRATE\tID\n"); err != nil {
					return err
				}
				for _, m := range machines {
					if err := writePlain("%s\t%s\t%s\t%s\t%.2f\t%s\n", m.Name, m.Status, dashIfEmpty(m.Type), dashIfEmpty(m.Location), m.HourlyRate, m.ID); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "only machines in this status")
	return cmd
}

func newMachineSetCmd(cfg *config.Config, structured *bool) *cobra.Command {
	var (
		status     string
		location   string
		hourlyRate float64
	)

	cmd := &cobra.Command{
		Use:   "set <name|id>",
		Short: "Change a machine's status, location or rate",
		Args:  requireExactlyArgs(1, "machine name or id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req api.MachineUpdateRequest
			if cmd.Flags().Changed("status") {
				req.Status = &status
			}
			if cmd.Flags().Changed("location") {
				req.Location = &location
			}
			if cmd.Flags().Changed("hourly-rate") {
				req.HourlyRate = &hourlyRate
			}
			if req.Status == nil && req.Location == nil && req.HourlyRate == nil {
				return fmt.Errorf("one of --status, --location or --hourly-rate is required")
			}

			return withSession(cfg, func(_ *session.Session, client *api.Client) error {
				id, err := resolveMachineID(cmd, client, args[0])
				if err != nil {
					return err
				}
				machine, err := client.UpdateMachine(cmd.Context(), id, req)
				if err != nil {
					return err
				}
				if *structured {
					return writeStructured(machine)
				}
				return writePlain("machine %s is %s\n", machine.Name, machine.Status)
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "new status (active|maintenance|offline)")
	cmd.Flags().StringVar(&location, "location", "", "new location")
	cmd.Flags().Float64Var(&hourlyRate, "hourly-rate", 0, "new hourly rate")
	return cmd
}

// resolveMachineID accepts a machine id as is and looks anything else up by
// name.
func resolveMachineID(cmd *cobra.Command, client *api.Client, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "mc-") {
		return ref, nil
	}
	machines, err := client.ListMachines(cmd.Context(), "")
	if err != nil {
		return "", err
	}
	for _, machine := range machines {
		if strings.EqualFold(machine.Name, ref) {
			return machine.ID, nil
		}
	}
	return "", fmt.Errorf("no machine named %q", ref)
}

func dashIfEmpty(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
