package api

import (
	"net/http"
)

type controlResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	Active  bool   `json:"active"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state.Health())
}

func (s *Server) handleFall(w http.ResponseWriter, r *http.Request) {
	s.coord.Fall()
	s.writeControl(w, "server marked as down")
}

func (s *Server) handleRevive(w http.ResponseWriter, r *http.Request) {
	s.coord.Revive()
	s.writeControl(w, "server revived")
}

func (s *Server) writeControl(w http.ResponseWriter, msg string) {
	h := s.state.Health()
	writeJSON(w, http.StatusOK, controlResponse{Message: msg, Status: h.Status, Active: h.Active})
}
