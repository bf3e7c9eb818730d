package apiserver

import (
	"net/http"
	"sort"

	"github.com/asgard/aegis/internal/autopilot"
	"github.com/asgard/aegis/internal/utils"
)

func (s *Server) handleListRoutines(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(autopilot.BuiltinRoutines))
	for name := range autopilot.BuiltinRoutines {
		names = append(names, name)
	}
	sort.Strings(names)
	writeJSON(w, http.StatusOK, map[string]any{"routines": names})
}

type waypointRequest struct {
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Z         int     `json:"z"`
	Speed     int     `json:"speed"`
	HoverTime float64 `json:"hover_time"`
	Action    string  `json:"action"`
}

type loadRequest struct {
	Routine   string             `json:"routine"`
	Params    map[string]float64 `json:"params"`
	Waypoints []waypointRequest  `json:"waypoints"`
	Loop      bool               `json:"loop"`
}

func (s *Server) handleAutopilotLoad(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var plan *autopilot.FlightPlan
	switch {
	case len(req.Waypoints) > 0:
		plan = autopilot.NewFlightPlan("custom")
		for _, wp := range req.Waypoints {
			speed := wp.Speed
			if speed == 0 {
				speed = 50
			}
			plan.AddWaypoint(wp.X, wp.Y, wp.Z, speed, wp.HoverTime, wp.Action)
		}
	case req.Routine != "":
		build, ok := autopilot.BuiltinRoutines[req.Routine]
		if !ok {
			writeAPIError(w, utils.WrapAPIError(nil, "UNKNOWN_ROUTINE", "unknown routine: "+req.Routine, http.StatusBadRequest))
			return
		}
		plan = build()
		applyRoutineParams(plan, req.Routine, req.Params)
	default:
		writeAPIError(w, utils.WrapAPIError(nil, "BAD_REQUEST", "either routine or waypoints is required", http.StatusBadRequest))
		return
	}

	plan.Loop = req.Loop
	if err := s.Autopilot.Load(plan); err != nil {
		writeAPIError(w, utils.AutopilotAPIError(err))
		return
	}
	writeOK(w)
}

// applyRoutineParams rebuilds a builtin routine from request params
// when the caller supplied any, instead of the compiled-in defaults.
func applyRoutineParams(plan *autopilot.FlightPlan, routine string, params map[string]float64) {
	if len(params) == 0 {
		return
	}
	get := func(key string, def float64) int {
		if v, ok := params[key]; ok {
			return int(v)
		}
		return int(def)
	}
	switch routine {
	case "square":
		*plan = *autopilot.SquareRoutine(get("size", 200), get("alt", 100), get("speed", 40))
	case "circle":
		*plan = *autopilot.CircleRoutine(get("radius", 150), get("alt", 100), get("points", 12), get("speed", 30))
	case "figure_eight":
		*plan = *autopilot.FigureEightRoutine(get("radius", 100), get("alt", 100), get("points", 16), get("speed", 30))
	case "survey_grid":
		*plan = *autopilot.SurveyGridRoutine(get("width", 300), get("height", 300), get("spacing", 100), get("alt", 120), get("speed", 35))
	}
}

func (s *Server) handleAutopilotStart(w http.ResponseWriter, r *http.Request) {
	if err := s.Autopilot.Start(); err != nil {
		writeAPIError(w, utils.AutopilotAPIError(err))
		return
	}
	writeOK(w)
}

func (s *Server) handleAutopilotPause(w http.ResponseWriter, r *http.Request) {
	s.Autopilot.Pause()
	writeOK(w)
}

func (s *Server) handleAutopilotResume(w http.ResponseWriter, r *http.Request) {
	s.Autopilot.Resume()
	writeOK(w)
}

func (s *Server) handleAutopilotAbort(w http.ResponseWriter, r *http.Request) {
	s.Autopilot.Abort()
	writeOK(w)
}

func (s *Server) handleAutopilotStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.Autopilot.Status()
	if err != nil {
		writeAPIError(w, utils.AutopilotAPIError(err))
		return
	}
	writeJSON(w, http.StatusOK, status)
}
