package apiserver

import "net/http"

func (s *Server) handleEnvironment(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"obstacles": s.Env.Obstacles})
}

func (s *Server) handleCamera(w http.ResponseWriter, r *http.Request) {
	if f := s.Navigator.LastFrame(); f != nil {
		writeJSON(w, http.StatusOK, f)
		return
	}
	frame := s.Cam.Capture(s.Drone.GetState(), s.Env)
	writeJSON(w, http.StatusOK, frame)
}
