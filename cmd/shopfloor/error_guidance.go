package main

import (
	"context"
	"errors"
	"net"

	"shopfloor/internal/api"
	"shopfloor/internal/session"
	"shopfloor/internal/workflow"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}
	if errors.Is(err, errPromptCancelled) {
		return []string{"cancelled; no change was made."}
	}

	lines := []string{err.Error()}

	if errors.Is(err, session.ErrNotLoggedIn) {
		lines = append(lines, "hint: sign in first with: shopfloor login <username>")
		return uniqueLines(lines)
	}

	var guardErr *workflow.GuardError
	if errors.As(err, &guardErr) {
		switch {
		case errors.Is(err, workflow.ErrTaskNotFound):
			lines = append(lines, "hint: only tasks assigned to you can be moved; list them with: shopfloor tasks")
		case errors.Is(err, workflow.ErrTransitionNotAllowed):
			lines = append(lines, "hint: run shopfloor show <id> to see the actions the task allows.")
		case errors.Is(err, workflow.ErrUnknownReason), errors.Is(err, workflow.ErrReasonRequired):
			lines = append(lines, "hint: omit --reason to choose from the list.")
		}
		return uniqueLines(lines)
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "unauthorized":
			lines = append(lines, "hint: your session may have expired; sign in again with: shopfloor login <username>")
		case "forbidden", "not_assignee":
			lines = append(lines, "hint: this action is not available to your role or account.")
		case "machine_not_found", "machine_unavailable":
			lines = append(lines, "hint: list usable machines with: shopfloor machine list --status active")
		case "resource_exhausted":
			lines = append(lines, "hint: too many attempts; wait a few minutes and retry.")
		}
		if apiErr.Code == "" {
			lines = append(lines, "hint: verify SHOPFLOOR_API_URL points to a shopfloor server.")
		}
		if apiErr.Status >= 500 {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; check server health or increase SHOPFLOOR_HTTP_TIMEOUT.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: ensure a shopfloor server is running at SHOPFLOOR_API_URL.",
			"hint: start a local server manually with: shopfloor srv",
		)
		return uniqueLines(lines)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
