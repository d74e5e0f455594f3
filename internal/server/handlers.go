package server

import (
	"net/http"
)

// healthHandler reports the state of the metadata backend.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := s.backend.Health()
	status := http.StatusOK
	success := health["status"] == "up"
	if !success {
		status = http.StatusInternalServerError
	}
	s.sendJSON(w, status, success, "Health check", health)
}
