package server

import (
	"fmt"
	"net/http"

	"shopfloor/internal/api"
	"shopfloor/internal/models"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	// Assigners need the roster to pick an assignee.
	if !models.CanAssignTasks(principal.User.Role) {
		s.writeErrorReq(w, r, http.StatusForbidden, forbiddenCode(fmt.Errorf("Not permitted to list users"), codeForbidden))
		return
	}

	users, err := s.authService.ListUsers(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	if principal.User.Role != models.RoleAdmin {
		s.writeErrorReq(w, r, http.StatusForbidden, forbiddenCode(fmt.Errorf("Only admins can create users"), codeForbidden))
		return
	}

	var req api.UserCreateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	created, err := s.authService.CreateUser(r.Context(), CreateUserInput{
		Username: req.Username,
		Password: req.Password,
		FullName: req.FullName,
		Role:     req.Role,
	}, s.now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.log().Info("user created", "user_id", created.ID, "role", created.Role, "by", principal.User.ID)
	s.writeJSON(w, http.StatusCreated, created.Public())
}
