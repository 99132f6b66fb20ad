package main

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"shopfloor/internal/api"
	"shopfloor/internal/config"
	"shopfloor/internal/models"
	"shopfloor/internal/session"
	"shopfloor/internal/workflow"
)

func newController(sess *session.Session, client *api.Client, query api.TaskQuery) *workflow.Controller {
	return workflow.New(client, workflow.Options{
		UserID: sess.UserID(),
		Query:  query,
		Logger: slog.Default(),
	})
}

func newTasksCmd(cfg *config.Config, structured *bool) *cobra.Command {
	var (
		month  int
		year   int
		all    bool
		status string
	)

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List tasks assigned to you",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := api.TaskQuery{Month: month, Year: year}
			var only models.TaskStatus
			if status != "" {
				parsed, err := models.ParseTaskStatus(status)
				if err != nil {
					return err
				}
				only = parsed
			}
			return withSession(cfg, func(sess *session.Session, client *api.Client) error {
				if all {
					// Every task the server lets this user see.
					tasks, err := client.ListTasks(cmd.Context(), query)
					if err != nil {
						return err
					}
					tasks = filterStatus(tasks, only)
					if *structured {
						return writeStructured(tasks)
					}
					return writeTaskList(tasks, time.Now())
				}

				ctrl := newController(sess, client, query)
				if err := ctrl.Refresh(cmd.Context()); err != nil {
					return err
				}
				tasks := ctrl.Tasks()
				shown := filterStatus(tasks, only)
				if *structured {
					return writeStructured(shown)
				}
				if err := writeSummary(workflow.Summarize(tasks)); err != nil {
					return err
				}
				return writeTaskList(shown, time.Now())
			})
		},
	}

	cmd.Flags().IntVar(&month, "month", 0, "only tasks created in this month (1-12)")
	cmd.Flags().IntVar(&year, "year", 0, "only tasks created in this year")
	cmd.Flags().BoolVar(&all, "all", false, "list every visible task, not only your own")
	cmd.Flags().StringVar(&status, "status", "", "only tasks in this status")
	return cmd
}

func filterStatus(tasks []models.Task, status models.TaskStatus) []models.Task {
	if status == "" {
		return tasks
	}
	out := make([]models.Task, 0, len(tasks))
	for _, task := range tasks {
		if task.Status == status {
			out = append(out, task)
		}
	}
	return out
}

func newShowCmd(cfg *config.Config, structured *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show task details",
		Args:  requireTaskID,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cfg, func(_ *session.Session, client *api.Client) error {
				task, err := client.GetTask(cmd.Context(), args[0])
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
}
