package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"shopfloor/internal/api"
	"shopfloor/internal/config"
	"shopfloor/internal/session"
)

func newTaskCmd(cfg *config.Config, structured *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Assign and manage tasks (planning, supervisor, admin)",
	}
	cmd.AddCommand(newTaskCreateCmd(cfg, structured))
	return cmd
}

func newTaskCreateCmd(cfg *config.Config, structured *bool) *cobra.Command {
	var (
		title       string
		assignee    string
		description string
		project     string
		partItem    string
		nosUnit     string
		priority    string
		machineID   string
		dueDate     string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task and assign it to an operator",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(title) == "" {
				return fmt.Errorf("--title is required")
			}
			if strings.TrimSpace(assignee) == "" {
				return fmt.Errorf("--assign is required")
			}

			return withSession(cfg, func(_ *session.Session, client *api.Client) error {
				assigneeID, err := resolveUserID(cmd, client, assignee)
				if err != nil {
					return err
				}

				var machine *string
				if cmd.Flags().Changed("machine") {
					resolved, err := resolveMachineID(cmd, client, machineID)
					if err != nil {
						return err
					}
					machine = &resolved
				}

				req := api.TaskCreateRequest{
					Title:       title,
					AssignedTo:  assigneeID,
					Description: optionalFlag(cmd, "description", description),
					Project:     optionalFlag(cmd, "project", project),
					PartItem:    optionalFlag(cmd, "part", partItem),
					NosUnit:     optionalFlag(cmd, "nos-unit", nosUnit),
					Priority:    optionalFlag(cmd, "priority", priority),
					MachineID:   machine,
					DueDate:     optionalFlag(cmd, "due", dueDate),
				}
				task, err := client.CreateTask(cmd.Context(), req)
				if err != nil {
					return err
				}
				if *structured {
					return writeStructured(task)
				}
				return writeTaskDetail(task, time.Now())
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "task title")
	cmd.Flags().StringVar(&assignee, "assign", "", "assignee username or user id")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&project, "project", "", "project")
	cmd.Flags().StringVar(&partItem, "part", "", "part or item")
	cmd.Flags().StringVar(&nosUnit, "nos-unit", "", "quantity and unit")
	cmd.Flags().StringVar(&priority, "priority", "", "priority (low|medium|high)")
	cmd.Flags().StringVar(&machineID, "machine", "", "machine name or machine id")
	cmd.Flags().StringVar(&dueDate, "due", "", "due date (YYYY-MM-DD)")
	return cmd
}

func optionalFlag(cmd *cobra.Command, name, value string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &value
}

// resolveUserID accepts a user id as is and looks anything else up by
// username.
func resolveUserID(cmd *cobra.Command, client *api.Client, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, "us-") {
		return ref, nil
	}
	users, err := client.ListUsers(cmd.Context())
	if err != nil {
		return "", err
	}
	for _, user := range users {
		if strings.EqualFold(user.Username, ref) {
			return user.ID, nil
		}
	}
	return "", fmt.Errorf("no user named %q", ref)
}
