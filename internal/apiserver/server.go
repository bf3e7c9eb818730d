// Package apiserver is the HTTP/WebSocket façade (C9): a thin
// chi-routed adapter that exposes the drone contract, the autopilot,
// the reactive navigator, the world model and the depth camera to a
// browser dashboard. It holds no control-loop invariants of its own —
// every handler is a JSON-in/JSON-out wrapper around a call into §4's
// components, grounded on Valkyrie/cmd/valkyrie/main.go's handler
// style generalized onto chi.
package apiserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/asgard/aegis/internal/autopilot"
	"github.com/asgard/aegis/internal/camera"
	"github.com/asgard/aegis/internal/drone"
	"github.com/asgard/aegis/internal/navigator"
	"github.com/asgard/aegis/internal/world"
	"github.com/asgard/aegis/pkg/utils"
)

// Server wires the drone-control core into an HTTP router. Nothing in
// here is safe to call concurrently with a Shutdown in progress other
// than through the stdlib's own http.Server guarantees.
type Server struct {
	Drone     drone.Drone
	Autopilot *autopilot.Autopilot
	Navigator *navigator.Navigator
	Env       *world.Environment
	Cam       *camera.Camera

	hub *wsHub
}

// New returns a Server ready to have Routes() mounted. The caller owns
// the lifetime of every field; Server never closes them.
func New(d drone.Drone, ap *autopilot.Autopilot, nav *navigator.Navigator, env *world.Environment, cam *camera.Camera) *Server {
	return &Server{
		Drone:     d,
		Autopilot: ap,
		Navigator: nav,
		Env:       env,
		Cam:       cam,
		hub:       newWSHub(),
	}
}

// Routes builds the chi router for the full API surface described in
// SPEC_FULL.md §10.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/connect", s.handleConnect)
		r.Post("/disconnect", s.handleDisconnect)
		r.Post("/takeoff", s.handleTakeoff)
		r.Post("/land", s.handleLand)
		r.Post("/emergency", s.handleEmergency)
		r.Post("/move", s.handleMove)
		r.Post("/rotate", s.handleRotate)
		r.Post("/speed", s.handleSpeed)
		r.Post("/rc", s.handleRC)
		r.Get("/state", s.handleState)

		r.Get("/routines", s.handleListRoutines)
		r.Post("/autopilot/load", s.handleAutopilotLoad)
		r.Post("/autopilot/start", s.handleAutopilotStart)
		r.Post("/autopilot/pause", s.handleAutopilotPause)
		r.Post("/autopilot/resume", s.handleAutopilotResume)
		r.Post("/autopilot/abort", s.handleAutopilotAbort)
		r.Get("/autopilot/status", s.handleAutopilotStatus)

		r.Get("/environment", s.handleEnvironment)
		r.Get("/camera", s.handleCamera)

		r.Post("/autonomous/destination", s.handleAutonomousDestination)
		r.Post("/autonomous/start", s.handleAutonomousStart)
		r.Post("/autonomous/stop", s.handleAutonomousStop)
		r.Get("/autonomous/status", s.handleAutonomousStatus)
	})

	r.Get("/ws/telemetry", s.handleTelemetryWS)
	return r
}

// RunTelemetryBroadcaster pushes a DroneState JSON frame to every
// connected WebSocket client at 10Hz until ctx is canceled. Call it
// once from main in its own goroutine.
func (s *Server) RunTelemetryBroadcaster(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.hub.broadcast(s.Drone.GetState())
		}
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		utils.Logger.WithFields(map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start).String(),
		}).Debug("apiserver: request")
	})
}
