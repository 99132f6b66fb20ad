package server

import (
	"net/http"
	"testing"
	"time"

	"shopfloor/internal/api"
	"shopfloor/internal/models"
)

func TestLoginMeLogoutFlow(t *testing.T) {
	srv := newTestServer(t)
	op := seedUser(t, srv, "op1", models.RoleOperator)
	h := srv.Handler()

	w := doJSON(t, h, http.MethodPost, "/auth/login", "", map[string]string{"username": "OP1", "password": testPassword})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var login api.LoginResponse
	decodeBody(t, w, &login)
	if login.AccessToken == "" || login.TokenType != "bearer" {
		t.Fatalf("unexpected login response %+v", login)
	}
	if login.User.ID != op.ID || login.User.Role != models.RoleOperator {
		t.Fatalf("unexpected login user %+v", login.User)
	}
	expires, err := time.Parse(time.RFC3339, login.ExpiresAt)
	if err != nil {
		t.Fatalf("parse expires_at: %v", err)
	}
	if d := time.Until(expires); d < 23*time.Hour || d > 25*time.Hour {
		t.Fatalf("expected ~24h session, got %v", d)
	}

	w = doJSON(t, h, http.MethodGet, "/auth/me", login.AccessToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var me models.User
	decodeBody(t, w, &me)
	if me.ID != op.ID || me.Username != "op1" || me.FullName != "Test op1" {
		t.Fatalf("unexpected me %+v", me)
	}

	w = doJSON(t, h, http.MethodPost, "/auth/logout", login.AccessToken, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", w.Code)
	}
	w = doJSON(t, h, http.MethodGet, "/auth/me", login.AccessToken, nil)
	expectError(t, w, http.StatusUnauthorized, codeUnauthorized, "")
}

func TestLoginRejectsBadCredentialsAndThrottles(t *testing.T) {
	srv := newTestServer(t)
	seedUser(t, srv, "op1", models.RoleOperator)
	h := srv.Handler()

	for i := 0; i < loginMaxFailures; i++ {
		w := doJSON(t, h, http.MethodPost, "/auth/login", "", map[string]string{"username": "op1", "password": "wrong-password"})
		expectError(t, w, http.StatusUnauthorized, codeUnauthorized, "Incorrect username or password")
	}

	w := doJSON(t, h, http.MethodPost, "/auth/login", "", map[string]string{"username": "op1", "password": testPassword})
	expectError(t, w, http.StatusTooManyRequests, codeResourceExhausted, "")
}

func TestLoginValidation(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	w := doJSON(t, h, http.MethodPost, "/auth/login", "", map[string]string{"username": "", "password": "x"})
	expectError(t, w, http.StatusBadRequest, codeInvalidArgument, "")

	w = doJSON(t, h, http.MethodPost, "/auth/login", "", map[string]string{"username": "op1"})
	expectError(t, w, http.StatusBadRequest, codeMissingRequired, "password is required")

	w = doJSON(t, h, http.MethodPost, "/auth/login", "", map[string]string{"username": "ghost", "password": testPassword})
	expectError(t, w, http.StatusUnauthorized, codeUnauthorized, "")
}

func TestDisabledUserCannotLogin(t *testing.T) {
	srv := newTestServer(t)
	seedUser(t, srv, "op1", models.RoleOperator)
	h := srv.Handler()
	token := loginToken(t, h, "op1")

	if _, err := srv.store.SetUserDisabled(t.Context(), "op1", true, time.Now()); err != nil {
		t.Fatalf("disable: %v", err)
	}

	w := doJSON(t, h, http.MethodGet, "/auth/me", token, nil)
	expectError(t, w, http.StatusUnauthorized, codeUnauthorized, "")
	w = doJSON(t, h, http.MethodPost, "/auth/login", "", map[string]string{"username": "op1", "password": testPassword})
	expectError(t, w, http.StatusUnauthorized, codeUnauthorized, "")
}

func TestUserProvisioning(t *testing.T) {
	srv := newTestServer(t)
	seedUser(t, srv, "admin", models.RoleAdmin)
	seedUser(t, srv, "op1", models.RoleOperator)
	seedUser(t, srv, "plan1", models.RolePlanning)
	h := srv.Handler()
	adminToken := loginToken(t, h, "admin")
	opToken := loginToken(t, h, "op1")
	planToken := loginToken(t, h, "plan1")

	req := api.UserCreateRequest{Username: "op2", Password: testPassword, FullName: "Second Shift", Role: "operator"}
	w := doJSON(t, h, http.MethodPost, "/users/", adminToken, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	var created models.User
	decodeBody(t, w, &created)
	if created.Username != "op2" || created.Role != models.RoleOperator || created.ID == "" {
		t.Fatalf("unexpected user %+v", created)
	}

	w = doJSON(t, h, http.MethodPost, "/users/", adminToken, req)
	expectError(t, w, http.StatusConflict, codeUsernameTaken, "")

	w = doJSON(t, h, http.MethodPost, "/users/", adminToken, api.UserCreateRequest{Username: "x1", Password: testPassword, Role: "janitor"})
	expectError(t, w, http.StatusBadRequest, codeInvalidArgument, "")

	w = doJSON(t, h, http.MethodPost, "/users/", planToken, req)
	expectError(t, w, http.StatusForbidden, codeForbidden, "Only admins can create users")

	w = doJSON(t, h, http.MethodGet, "/users/", planToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("planner list: expected 200, got %d", w.Code)
	}
	var users []models.User
	decodeBody(t, w, &users)
	if len(users) != 4 {
		t.Fatalf("expected 4 users, got %d", len(users))
	}

	w = doJSON(t, h, http.MethodGet, "/users/", opToken, nil)
	expectError(t, w, http.StatusForbidden, codeForbidden, "")
}
