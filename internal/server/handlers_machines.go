package server

import (
	"net/http"

	"shopfloor/internal/api"
)

func (s *Server) handleListMachines(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	machines, err := s.machines.List(r.Context(), principal.User, r.URL.Query().Get("status"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, machines)
}

func (s *Server) handleCreateMachine(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	var req api.MachineCreateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	machine, err := s.machines.Create(r.Context(), principal.User, req, s.now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.log().Info("machine registered", "machine_id", machine.ID, "name", machine.Name, "by", principal.User.ID)
	s.writeJSON(w, http.StatusCreated, machine)
}

func (s *Server) handleUpdateMachine(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "machine")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req api.MachineUpdateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	machine, err := s.machines.Update(r.Context(), principal.User, id, req, s.now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.log().Info("machine updated", "machine_id", machine.ID, "status", machine.Status, "by", principal.User.ID)
	s.writeJSON(w, http.StatusOK, machine)
}
