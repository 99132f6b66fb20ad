package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"shopfloor/internal/api"
	"shopfloor/internal/models"
	"shopfloor/internal/store"
)

const testPassword = "password-123"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "server.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New("127.0.0.1:0", st, logger)
}

func seedUser(t *testing.T, srv *Server, username string, role models.Role) *store.AuthUser {
	t.Helper()
	user, err := srv.authService.CreateUser(context.Background(), CreateUserInput{
		Username: username,
		Password: testPassword,
		FullName: "Test " + username,
		Role:     string(role),
	}, time.Now().UTC())
	if err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return user
}

func loginToken(t *testing.T, h http.Handler, username string) string {
	t.Helper()
	w := doJSON(t, h, http.MethodPost, "/auth/login", "", map[string]string{
		"username": username,
		"password": testPassword,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d (%s)", username, w.Code, w.Body.String())
	}
	var resp api.LoginResponse
	decodeBody(t, w, &resp)
	return resp.AccessToken
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code, detail string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected %d, got %d (%s)", status, w.Code, w.Body.String())
	}
	var resp api.ErrorResponse
	decodeBody(t, w, &resp)
	if code != "" && resp.Code != code {
		t.Fatalf("expected code %q, got %q (%s)", code, resp.Code, resp.Detail)
	}
	if detail != "" && resp.Detail != detail {
		t.Fatalf("expected detail %q, got %q", detail, resp.Detail)
	}
}

func createTask(t *testing.T, h http.Handler, token, title, assignee string) models.Task {
	t.Helper()
	w := doJSON(t, h, http.MethodPost, "/tasks/", token, api.TaskCreateRequest{Title: title, AssignedTo: assignee})
	if w.Code != http.StatusCreated {
		t.Fatalf("create task: expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	var task models.Task
	decodeBody(t, w, &task)
	return task
}
