package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	// Auth.
	mux.HandleFunc("POST /auth/login", s.handleAuthLogin)
	mux.HandleFunc("POST /auth/logout", s.handleAuthLogout)
	mux.HandleFunc("GET /auth/me", s.handleAuthMe)

	// Users.
	mux.HandleFunc("GET /users/{$}", s.handleListUsers)
	mux.HandleFunc("POST /users/{$}", s.handleCreateUser)

	// Machines.
	mux.HandleFunc("GET /machines/{$}", s.handleListMachines)
	mux.HandleFunc("POST /machines/{$}", s.handleCreateMachine)
	mux.HandleFunc("PATCH /machines/{id}", s.handleUpdateMachine)

	// Tasks.
	mux.HandleFunc("GET /tasks/{$}", s.handleListTasks)
	mux.HandleFunc("POST /tasks/{$}", s.handleCreateTask)
	mux.HandleFunc("GET /tasks/{id}", s.handleGetTask)

	// Workflow transitions.
	mux.HandleFunc("POST /tasks/{id}/{action}", s.handleTransition)

	return mux
}
