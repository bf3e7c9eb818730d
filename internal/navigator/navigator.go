// Package navigator implements reactive, camera-driven obstacle
// avoidance: given a destination and a stream of depth-camera frames,
// it steers the drone toward the goal while staying clear of whatever
// the camera sees ahead.
package navigator

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/asgard/aegis/internal/camera"
	"github.com/asgard/aegis/internal/drone"
	"github.com/asgard/aegis/internal/metrics"
	"github.com/asgard/aegis/internal/world"
	"github.com/asgard/aegis/pkg/utils"
)

// Tuning constants, unchanged from the reactive avoidance model this
// package generalizes.
const (
	SafetyDistance   = 100.0
	CriticalDistance = 50.0
	CruiseSpeed      = 45
	ArrivalRadius    = 35.0
	navHz            = 10
)

// Regime labels exposed to metrics.SetRegime.
const (
	RegimeNone     = "none"
	RegimeClear    = "clear"
	RegimeAvoiding = "avoiding"
	RegimeCritical = "critical"
)

// NavigationError reports a navigator-specific failure, distinct from
// a plain drone.OpError since it names the navigator as the source of
// the problem rather than the backend.
type NavigationError struct {
	Message string
}

func (e *NavigationError) Error() string { return "navigator: " + e.Message }

// Sentinel errors for structurally invalid requests.
var (
	ErrNoDestination = errors.New("navigator: no destination set")
	ErrNotReady       = errors.New("navigator: already running")
)

// Status is the façade-facing read model for a navigator's current run.
type Status struct {
	Running    bool    `json:"running"`
	DestX      float64 `json:"dest_x"`
	DestY      float64 `json:"dest_y"`
	DestZ      float64 `json:"dest_z"`
	Regime     string  `json:"regime"`
	Arrived    bool    `json:"arrived"`
}

// Navigator drives one drone toward a destination at navHz, steering
// around obstacles the onboard camera reports.
type Navigator struct {
	d   drone.Drone
	cam *camera.Camera
	env *world.Environment

	mu      sync.Mutex
	running bool
	destSet bool
	destX, destY, destZ float64
	regime  string
	arrived bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	frameMu   sync.Mutex
	lastFrame *camera.Frame
}

// New returns a navigator that flies d through env using cam for
// depth sensing.
func New(d drone.Drone, cam *camera.Camera, env *world.Environment) *Navigator {
	return &Navigator{d: d, cam: cam, env: env, regime: RegimeNone}
}

// SetDestination records the goal the navigation loop steers toward
// once started.
func (n *Navigator) SetDestination(x, y, z float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.destX, n.destY, n.destZ = x, y, z
	n.destSet = true
	n.arrived = false
}

// Start begins the 10Hz avoidance loop. Returns ErrNoDestination if
// SetDestination hasn't been called, or ErrNotReady if already
// running.
func (n *Navigator) Start(ctx context.Context) error {
	n.mu.Lock()
	if !n.destSet {
		n.mu.Unlock()
		return ErrNoDestination
	}
	if n.running {
		n.mu.Unlock()
		return ErrNotReady
	}
	runCtx, cancel := context.WithCancel(ctx)
	n.cancel = cancel
	n.running = true
	n.arrived = false
	n.mu.Unlock()

	n.wg.Add(1)
	go n.navLoop(runCtx)
	return nil
}

// Stop halts the avoidance loop and sends it to hover via SendRC(0,0,0,0).
func (n *Navigator) Stop() {
	n.mu.Lock()
	cancel := n.cancel
	n.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	n.wg.Wait()
	n.d.SendRC(0, 0, 0, 0)
}

// LastFrame returns the most recent depth-camera frame the navigator
// published, or nil if it has never ticked. This is the navigator's
// single-writer "last frame" slot: readers see either the previous or
// the newest frame, never a torn one, since Frame is replaced by a
// whole-value pointer swap under frameMu.
func (n *Navigator) LastFrame() *camera.Frame {
	n.frameMu.Lock()
	defer n.frameMu.Unlock()
	return n.lastFrame
}

// GetStatus returns a snapshot of the navigator's current run.
func (n *Navigator) GetStatus() Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	return Status{
		Running: n.running,
		DestX:   n.destX,
		DestY:   n.destY,
		DestZ:   n.destZ,
		Regime:  n.regime,
		Arrived: n.arrived,
	}
}

func (n *Navigator) navLoop(ctx context.Context) {
	defer n.wg.Done()
	defer func() {
		n.mu.Lock()
		n.running = false
		n.mu.Unlock()
	}()

	ticker := time.NewTicker(time.Second / navHz)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n.tick() {
				return
			}
		}
	}
}

// tick runs one iteration of the avoidance loop and reports whether
// the destination has been reached (in which case the loop stops).
func (n *Navigator) tick() bool {
	state := n.d.GetState()
	frame := n.cam.Capture(state, n.env)

	n.frameMu.Lock()
	n.lastFrame = &frame
	n.frameMu.Unlock()

	n.mu.Lock()
	destX, destY, destZ := n.destX, n.destY, n.destZ
	n.mu.Unlock()

	distToGoal := math.Hypot(destX-state.X, destY-state.Y)
	if distToGoal < ArrivalRadius {
		n.mu.Lock()
		n.arrived = true
		n.regime = RegimeNone
		n.mu.Unlock()
		metrics.Get().SetRegime(RegimeNone)
		utils.Logger.Info("navigator: destination reached")
		return true
	}

	goalBearing := math.Atan2(destY-state.Y, destX-state.X) * 180 / math.Pi
	yawCmd, fwdCmd, altCmd, regime := computeCommands(frame, state, goalBearing, destZ)

	n.mu.Lock()
	n.regime = regime
	n.mu.Unlock()
	metrics.Get().SetRegime(regime)

	n.d.SendRC(0, fwdCmd, altCmd, yawCmd)
	return false
}

// computeCommands reproduces the zone-based reactive steering model:
// split the forward depth scan into five zones, react to the center
// zone's clearance, and bias yaw toward whichever side (left/right) is
// clearer when avoidance kicks in.
func computeCommands(frame camera.Frame, state drone.State, goalBearing, goalAlt float64) (yawCmd, fwdCmd, altCmd int, regime string) {
	depths := frame.Depths
	n := len(depths)
	zoneSize := n / 5
	if zoneSize < 1 {
		zoneSize = 1
	}

	zones := make([]float64, 5)
	for z := 0; z < 5; z++ {
		start := z * zoneSize
		end := start + zoneSize
		if z == 4 || end > n {
			end = n
		}
		if start >= n {
			zones[z] = 0
			continue
		}
		zones[z] = minSlice(depths[start:end])
	}

	centerClear := zones[2]
	bestLeft := math.Max(zones[0], zones[1])
	bestRight := math.Max(zones[3], zones[4])

	headingError := math.Mod(goalBearing-state.Yaw+180, 360) - 180
	if headingError < -180 {
		headingError += 360
	}

	altError := goalAlt - state.Z
	altCmdF := clamp(altError*0.5, -30, 30)

	yawCmdF := clamp(headingError*0.8, -60, 60)
	fwdCmdF := float64(CruiseSpeed)

	switch {
	case centerClear < CriticalDistance:
		regime = RegimeCritical
		fwdCmdF = -20
		if bestLeft > bestRight {
			yawCmdF = -70
		} else {
			yawCmdF = 70
		}

	case centerClear < SafetyDistance:
		regime = RegimeAvoiding
		ratio := centerClear / SafetyDistance
		fwdCmdF = math.Max(10, math.Trunc(CruiseSpeed*ratio))

		if headingError < 0 {
			switch {
			case bestLeft > CriticalDistance:
				yawCmdF = -50
			case bestRight > CriticalDistance:
				yawCmdF = 50
			default:
				if bestLeft >= bestRight {
					yawCmdF = -50
				} else {
					yawCmdF = 50
				}
			}
		} else {
			switch {
			case bestRight > CriticalDistance:
				yawCmdF = 50
			case bestLeft > CriticalDistance:
				yawCmdF = -50
			default:
				if bestRight >= bestLeft {
					yawCmdF = 50
				} else {
					yawCmdF = -50
				}
			}
		}

	default:
		regime = RegimeClear
		if zones[0] < SafetyDistance*0.6 {
			yawCmdF = math.Max(yawCmdF, 15)
		}
		if zones[4] < SafetyDistance*0.6 {
			yawCmdF = math.Min(yawCmdF, -15)
		}
	}

	return int(yawCmdF), int(fwdCmdF), int(altCmdF), regime
}

func minSlice(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
