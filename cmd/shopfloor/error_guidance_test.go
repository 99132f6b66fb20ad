package main

import (
	"fmt"
	"net"
	"testing"

	"shopfloor/internal/api"
	"shopfloor/internal/models"
	"shopfloor/internal/session"
	"shopfloor/internal/workflow"
)

func TestFormatCLIError_NetworkGuidance(t *testing.T) {
	err := &net.DNSError{Err: "dial tcp: connection refused", Name: "127.0.0.1", IsTemporary: true}
	lines := formatCLIError(err)
	if !containsLine(lines, "hint: ensure a shopfloor server is running at SHOPFLOOR_API_URL.") {
		t.Fatalf("expected connectivity guidance, got %v", lines)
	}
	if !containsLine(lines, "hint: start a local server manually with: shopfloor srv") {
		t.Fatalf("expected manual-start guidance, got %v", lines)
	}
}

func TestFormatCLIError_APIUnknownServiceGuidance(t *testing.T) {
	lines := formatCLIError(&api.APIError{Status: 404})
	if !containsLine(lines, "hint: verify SHOPFLOOR_API_URL points to a shopfloor server.") {
		t.Fatalf("expected api-url guidance, got %v", lines)
	}
}

func TestFormatCLIError_APIAuthGuidance(t *testing.T) {
	lines := formatCLIError(&api.APIError{Status: 401, Code: "unauthorized", Detail: "Invalid or expired token"})
	if lines[0] != "Invalid or expired token" {
		t.Fatalf("expected server detail first, got %v", lines)
	}
	if !containsLine(lines, "hint: your session may have expired; sign in again with: shopfloor login <username>") {
		t.Fatalf("expected auth guidance, got %v", lines)
	}
}

func TestFormatCLIError_APIInternalGuidance(t *testing.T) {
	lines := formatCLIError(&api.APIError{Status: 500, Code: "internal", Detail: "internal error"})
	if !containsLine(lines, "hint: server returned an internal error; check server logs for details.") {
		t.Fatalf("expected internal-error guidance, got %v", lines)
	}
}

func TestFormatCLIError_MachineGuidance(t *testing.T) {
	lines := formatCLIError(&api.APIError{Status: 409, Code: "machine_unavailable", Detail: "machine Drill is maintenance"})
	if !containsLine(lines, "hint: list usable machines with: shopfloor machine list --status active") {
		t.Fatalf("expected machine guidance, got %v", lines)
	}
}

func TestFormatCLIError_SessionAndGuardGuidance(t *testing.T) {
	lines := formatCLIError(fmt.Errorf("load: %w", session.ErrNotLoggedIn))
	if !containsLine(lines, "hint: sign in first with: shopfloor login <username>") {
		t.Fatalf("expected login guidance, got %v", lines)
	}

	guard := &workflow.GuardError{TaskID: "tk-1", Action: models.ActionComplete, Status: models.StatusPending, Err: workflow.ErrTransitionNotAllowed}
	lines = formatCLIError(guard)
	if !containsLine(lines, "hint: run shopfloor show <id> to see the actions the task allows.") {
		t.Fatalf("expected guard guidance, got %v", lines)
	}

	lines = formatCLIError(errPromptCancelled)
	if len(lines) != 1 || lines[0] != "cancelled; no change was made." {
		t.Fatalf("unexpected cancel output %v", lines)
	}
}

func containsLine(lines []string, expected string) bool {
	for _, line := range lines {
		if line == expected {
			return true
		}
	}
	return false
}
