package utils

import (
	"errors"
	"net/http"

	"github.com/asgard/aegis/internal/autopilot"
	"github.com/asgard/aegis/internal/drone"
	"github.com/asgard/aegis/internal/navigator"
)

// DroneAPIError maps a drone package sentinel error to the matching
// APIError the façade should return, falling back to 500 for anything
// it doesn't recognize.
func DroneAPIError(err error) *APIError {
	switch {
	case errors.Is(err, drone.ErrNotConnected):
		return WrapAPIError(err, "NOT_CONNECTED", "drone is not connected", http.StatusConflict)
	case errors.Is(err, drone.ErrAlreadyFlying):
		return WrapAPIError(err, "ALREADY_FLYING", "drone is already flying", http.StatusConflict)
	case errors.Is(err, drone.ErrNotFlying):
		return WrapAPIError(err, "NOT_FLYING", "drone is not flying", http.StatusConflict)
	case errors.Is(err, drone.ErrUnknownDirection):
		return WrapAPIError(err, "BAD_REQUEST", "unknown move direction", http.StatusBadRequest)
	case errors.Is(err, drone.ErrUnreachable):
		return WrapAPIError(err, "UNREACHABLE", "hardware did not acknowledge command", http.StatusBadGateway)
	default:
		return WrapAPIError(err, "INTERNAL_ERROR", "unexpected drone error", http.StatusInternalServerError)
	}
}

// AutopilotAPIError maps an autopilot package sentinel error to the
// matching APIError.
func AutopilotAPIError(err error) *APIError {
	switch {
	case errors.Is(err, autopilot.ErrNoFlightPlan):
		return WrapAPIError(err, "NO_FLIGHT_PLAN", "no flight plan loaded", http.StatusBadRequest)
	case errors.Is(err, autopilot.ErrPlanRunning):
		return WrapAPIError(err, "PLAN_RUNNING", "a flight plan is already running", http.StatusConflict)
	default:
		return WrapAPIError(err, "INTERNAL_ERROR", "unexpected autopilot error", http.StatusInternalServerError)
	}
}

// NavigatorAPIError maps a navigator package sentinel error to the
// matching APIError.
func NavigatorAPIError(err error) *APIError {
	switch {
	case errors.Is(err, navigator.ErrNoDestination):
		return WrapAPIError(err, "NO_DESTINATION", "no destination set", http.StatusBadRequest)
	case errors.Is(err, navigator.ErrNotReady):
		return WrapAPIError(err, "ALREADY_RUNNING", "navigator is already running", http.StatusConflict)
	default:
		return WrapAPIError(err, "INTERNAL_ERROR", "unexpected navigator error", http.StatusInternalServerError)
	}
}
