package server

import (
	"fmt"
	"net/http"

	"shopfloor/internal/api"
	"shopfloor/internal/models"
)

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	month, year, err := parsePeriod(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	tasks, err := s.service.List(r.Context(), principal.User, month, year)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	id, err := pathTaskID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	task, err := s.service.Get(r.Context(), principal.User, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	var req api.TaskCreateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	task, err := s.service.Create(r.Context(), principal.User, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.log().Info("task created", "task_id", task.ID, "assigned_to", task.AssignedTo, "by", principal.User.ID)
	s.writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	id, err := pathTaskID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	action, err := models.ParseAction(r.PathValue("action"))
	if err != nil {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(err, codeNotFound))
		return
	}

	var req api.TransitionRequest
	if !s.decodeOptionalJSONReq(w, r, &req) {
		return
	}

	task, err := s.service.Transition(r.Context(), principal.User, id, action, req.Reason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.log().Info("task transition",
		"task_id", id,
		"action", action,
		"status", task.Status,
		"user_id", principal.User.ID,
	)
	s.writeJSON(w, http.StatusOK, task)
}

func (s *Server) requirePrincipal(w http.ResponseWriter, r *http.Request) (authPrincipal, bool) {
	principal, ok := authPrincipalFromContext(r.Context())
	if !ok {
		s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("Not authenticated")))
		return authPrincipal{}, false
	}
	return principal, true
}
