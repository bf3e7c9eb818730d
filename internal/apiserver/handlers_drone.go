package apiserver

import (
	"context"
	"net/http"
	"time"

	"github.com/asgard/aegis/internal/drone"
	"github.com/asgard/aegis/internal/utils"
)

// logger is the optional capability a backend may implement to expose a
// human-readable activity log; the simulated backend keeps one, the
// hardware (Tello) backend does not.
type logger interface {
	GetLog() []string
}

// stateResponse is DroneState plus, when the backend exposes one, its
// recent activity log.
type stateResponse struct {
	drone.State
	Log []string `json:"log,omitempty"`
}

const stateLogLines = 30

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	if err := s.Drone.Connect(ctx); err != nil {
		writeAPIError(w, utils.DroneAPIError(err))
		return
	}
	writeOK(w)
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	s.Drone.Disconnect()
	writeOK(w)
}

func (s *Server) handleTakeoff(w http.ResponseWriter, r *http.Request) {
	if err := s.Drone.Takeoff(); err != nil {
		writeAPIError(w, utils.DroneAPIError(err))
		return
	}
	writeOK(w)
}

func (s *Server) handleLand(w http.ResponseWriter, r *http.Request) {
	if err := s.Drone.Land(); err != nil {
		writeAPIError(w, utils.DroneAPIError(err))
		return
	}
	writeOK(w)
}

func (s *Server) handleEmergency(w http.ResponseWriter, r *http.Request) {
	s.Drone.EmergencyStop()
	writeOK(w)
}

type moveRequest struct {
	Direction string `json:"direction"`
	Distance  int    `json:"distance"`
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.Drone.Move(req.Direction, req.Distance); err != nil {
		writeAPIError(w, utils.DroneAPIError(err))
		return
	}
	writeOK(w)
}

type rotateRequest struct {
	Degrees int `json:"degrees"`
}

func (s *Server) handleRotate(w http.ResponseWriter, r *http.Request) {
	var req rotateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.Drone.Rotate(req.Degrees); err != nil {
		writeAPIError(w, utils.DroneAPIError(err))
		return
	}
	writeOK(w)
}

type speedRequest struct {
	Speed int `json:"speed"`
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var req speedRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.Drone.SetSpeed(req.Speed); err != nil {
		writeAPIError(w, utils.DroneAPIError(err))
		return
	}
	writeOK(w)
}

type rcRequest struct {
	LeftRight   int `json:"left_right"`
	ForwardBack int `json:"forward_back"`
	UpDown      int `json:"up_down"`
	Yaw         int `json:"yaw"`
}

func (s *Server) handleRC(w http.ResponseWriter, r *http.Request) {
	var req rcRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.Drone.SendRC(req.LeftRight, req.ForwardBack, req.UpDown, req.Yaw)
	writeOK(w)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	resp := stateResponse{State: s.Drone.GetState()}
	if lg, ok := s.Drone.(logger); ok {
		log := lg.GetLog()
		if len(log) > stateLogLines {
			log = log[len(log)-stateLogLines:]
		}
		resp.Log = log
	}
	writeJSON(w, http.StatusOK, resp)
}
