package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"shopfloor/internal/format"
	"shopfloor/internal/models"
	"shopfloor/internal/workflow"
)

var (
	outputFormatter format.Formatter = format.JSONFormatter{}
	stdout          io.Writer        = os.Stdout
)

func writeStructured(payload any) error {
	return outputFormatter.Write(stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(stdout, format, args...)
	return err
}

func writeTaskList(tasks []models.Task, now time.Time) error {
	if len(tasks) == 0 {
		return writePlain("no tasks\n")
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPRIORITY\tTITLE\tDUE\tELAPSED")
	for _, task := range tasks {
		elapsed := "-"
		if d, ok := workflow.Elapsed(task, now); ok {
			elapsed = formatDuration(d)
		}
		due := task.DueDate
		if due == "" {
			due = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", task.ID, statusText(task.Status), task.Priority, task.Title, due, elapsed)
	}
	return tw.Flush()
}

func writeSummary(s workflow.Summary) error {
	return writePlain("%d tasks: %d pending, %d in progress, %d on hold, %d completed, %d denied (%d%% complete)\n",
		s.Total, s.Pending, s.InProgress, s.OnHold, s.Completed, s.Denied, s.CompletionRate())
}

func writeTaskDetail(task models.Task, now time.Time) error {
	lines := []string{
		fmt.Sprintf("id: %s", task.ID),
		fmt.Sprintf("title: %s", task.Title),
		fmt.Sprintf("status: %s", task.Status),
		fmt.Sprintf("priority: %s", task.Priority),
		fmt.Sprintf("assigned_to: %s", task.AssignedTo),
	}

	optional := []struct{ key, value string }{
		{"assigned_by", task.AssignedBy},
		{"project", task.Project},
		{"part_item", task.PartItem},
		{"nos_unit", task.NosUnit},
		{"machine_id", task.MachineID},
		{"due_date", task.DueDate},
		{"description", task.Description},
		{"hold_reason", task.HoldReason},
		{"deny_reason", task.DenyReason},
	}
	for _, field := range optional {
		if field.value != "" {
			lines = append(lines, fmt.Sprintf("%s: %s", field.key, field.value))
		}
	}

	if task.StartedAt != nil {
		lines = append(lines, fmt.Sprintf("started_at: %s", formatTime(*task.StartedAt)))
	}
	if d, ok := workflow.Elapsed(task, now); ok {
		lines = append(lines, fmt.Sprintf("elapsed: %s", formatDuration(d)))
	}
	if task.CompletedAt != nil {
		lines = append(lines, fmt.Sprintf("completed_at: %s", formatTime(*task.CompletedAt)))
	}
	lines = append(lines,
		fmt.Sprintf("total_duration: %s", formatDuration(time.Duration(task.TotalDurationSeconds)*time.Second)),
		fmt.Sprintf("created_at: %s", formatTime(task.CreatedAt)),
		fmt.Sprintf("updated_at: %s", formatTime(task.UpdatedAt)),
	)
	if actions := models.AvailableActions(task.Status); len(actions) > 0 {
		names := make([]string, 0, len(actions))
		for _, action := range actions {
			names = append(names, string(action))
		}
		lines = append(lines, fmt.Sprintf("actions: %s", strings.Join(names, ", ")))
	}

	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func statusText(status models.TaskStatus) string {
	return strings.ReplaceAll(string(status), "_", " ")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// formatDuration renders HH:MM:SS; hours may exceed 24.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
