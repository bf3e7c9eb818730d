package apiserver

import (
	"context"
	"net/http"

	"github.com/asgard/aegis/internal/utils"
)

type destinationRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (s *Server) handleAutonomousDestination(w http.ResponseWriter, r *http.Request) {
	var req destinationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.Navigator.SetDestination(req.X, req.Y, req.Z)
	writeOK(w)
}

func (s *Server) handleAutonomousStart(w http.ResponseWriter, r *http.Request) {
	// The navigation loop outlives this request, so it is rooted in
	// Background rather than r.Context() (which is canceled the
	// moment this handler returns).
	if err := s.Navigator.Start(context.Background()); err != nil {
		writeAPIError(w, utils.NavigatorAPIError(err))
		return
	}
	writeOK(w)
}

func (s *Server) handleAutonomousStop(w http.ResponseWriter, r *http.Request) {
	s.Navigator.Stop()
	writeOK(w)
}

func (s *Server) handleAutonomousStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Navigator.GetStatus())
}
