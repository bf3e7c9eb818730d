// Package drone defines the contract every flight backend — simulated
// or hardware — implements, and the state snapshot both backends
// produce.
package drone

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// State is a point-in-time snapshot of a drone's position and vitals.
// Backends return a fresh copy from GetState; callers never see a
// reference into live, mutex-guarded state.
type State struct {
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	Z           float64   `json:"z"`
	Yaw         float64   `json:"yaw"`     // degrees, 0-360
	Speed       float64   `json:"speed"`   // cm/s
	Battery     int       `json:"battery"` // percent
	IsFlying    bool      `json:"is_flying"`
	IsConnected bool      `json:"is_connected"`
	FlightTime  float64   `json:"flight_time"` // seconds, accumulated across the current session
	Temperature float64   `json:"temperature"`  // celsius
	Timestamp   time.Time `json:"timestamp"`
}

// Direction names accepted by Move.
const (
	Forward = "forward"
	Back    = "back"
	Left    = "left"
	Right   = "right"
	Up      = "up"
	Down    = "down"
)

// Sentinel errors shared by every backend. Callers use errors.Is to
// distinguish "rejected because the drone isn't ready" from a
// structurally invalid request.
var (
	ErrNotConnected    = errors.New("drone: not connected")
	ErrAlreadyFlying   = errors.New("drone: already flying")
	ErrNotFlying       = errors.New("drone: not flying")
	ErrUnknownDirection = errors.New("drone: unknown move direction")
	ErrUnreachable     = errors.New("drone: hardware did not acknowledge command")
)

// Drone is the control surface every backend (simulated physics, or a
// real Tello-style quadcopter) implements identically, so the rest of
// the system — autopilot, navigator, façade — never needs to know
// which one it's talking to.
type Drone interface {
	Connect(ctx context.Context) error
	Disconnect()

	Takeoff() error
	Land() error
	EmergencyStop()

	Move(direction string, distanceCM int) error
	Rotate(degrees int) error
	SetSpeed(speedCMS int) error
	SendRC(leftRight, forwardBack, upDown, yaw int)

	GetState() State

	// GoTo flies to absolute coordinates at the given speed, blocking
	// until arrival (or until the backend gives up).
	GoTo(ctx context.Context, x, y, z, speed int) error
}

// OpError wraps a backend-specific failure with the operation that
// produced it, so logs and API responses can say what was being
// attempted without every backend hand-rolling the same message.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("drone: %s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}
