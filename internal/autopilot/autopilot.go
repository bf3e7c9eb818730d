package autopilot

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/asgard/aegis/internal/drone"
	"github.com/asgard/aegis/internal/metrics"
	"github.com/asgard/aegis/pkg/utils"
)

// Sentinel errors for structurally invalid requests. Operations on a
// disconnected or non-flying drone are not errors here — they surface
// as a skipped waypoint instead, matching the original executor.
var (
	ErrNoFlightPlan = errors.New("autopilot: no flight plan loaded")
	ErrPlanRunning  = errors.New("autopilot: a flight plan is already running, abort it first")
)

const pausePoll = 200 * time.Millisecond

// Autopilot executes a FlightPlan on a drone from a background
// goroutine, one waypoint at a time, via the drone's own GoTo.
type Autopilot struct {
	d drone.Drone

	mu     sync.Mutex
	plan   *FlightPlan
	runID  string
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New returns an autopilot bound to d. It executes at most one plan
// at a time.
func New(d drone.Drone) *Autopilot {
	return &Autopilot{d: d}
}

// Plan returns the currently loaded plan, or nil.
func (a *Autopilot) Plan() *FlightPlan {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.plan
}

// Load installs a new plan, resetting every waypoint to pending. It
// refuses to replace a plan that is currently running.
func (a *Autopilot) Load(plan *FlightPlan) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.plan != nil && a.plan.Status == PlanRunning {
		return ErrPlanRunning
	}
	plan.Status = PlanIdle
	plan.CurrentIndex = 0
	for i := range plan.Waypoints {
		plan.Waypoints[i].Status = WaypointPending
	}
	a.plan = plan
	return nil
}

// Start begins executing the loaded plan in the background. A
// no-op if it is already running.
func (a *Autopilot) Start() error {
	a.mu.Lock()
	if a.plan == nil {
		a.mu.Unlock()
		return ErrNoFlightPlan
	}
	if a.plan.Status == PlanRunning {
		a.mu.Unlock()
		return nil
	}
	a.plan.Status = PlanRunning
	a.runID = uuid.NewString()
	a.stopCh = make(chan struct{})
	stop := a.stopCh
	plan := a.plan
	a.mu.Unlock()

	a.wg.Add(1)
	go a.run(plan, stop)
	return nil
}

// Pause suspends an in-progress plan; the worker loop keeps polling
// but stops advancing waypoints until Resume or Abort.
func (a *Autopilot) Pause() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.plan != nil && a.plan.Status == PlanRunning {
		a.plan.Status = PlanPaused
	}
}

// Resume continues a paused plan.
func (a *Autopilot) Resume() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.plan != nil && a.plan.Status == PlanPaused {
		a.plan.Status = PlanRunning
	}
}

// Abort marks the plan aborted and signals the worker to stop as soon
// as its current GoTo call returns — the stop check wins over
// recording that call's outcome.
func (a *Autopilot) Abort() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.plan != nil {
		a.plan.Status = PlanAborted
	}
	if a.stopCh != nil {
		select {
		case <-a.stopCh:
		default:
			close(a.stopCh)
		}
	}
}

// Wait blocks until the current run's worker goroutine has exited.
// Useful in tests; the HTTP façade never calls it.
func (a *Autopilot) Wait() {
	a.wg.Wait()
}

func (a *Autopilot) run(plan *FlightPlan, stop chan struct{}) {
	defer a.wg.Done()
	log := utils.Logger.WithField("plan", plan.Name)

	for {
		select {
		case <-stop:
			return
		default:
		}

		a.mu.Lock()
		status := plan.Status
		a.mu.Unlock()

		if status == PlanPaused {
			time.Sleep(pausePoll)
			continue
		}
		if status != PlanRunning {
			return
		}

		a.mu.Lock()
		idx := plan.CurrentIndex
		if idx >= len(plan.Waypoints) {
			if plan.Loop {
				plan.CurrentIndex = 0
				for i := range plan.Waypoints {
					plan.Waypoints[i].Status = WaypointPending
				}
				a.mu.Unlock()
				continue
			}
			plan.Status = PlanCompleted
			a.mu.Unlock()
			log.Info("autopilot: plan completed")
			return
		}
		plan.Waypoints[idx].Status = WaypointActive
		wp := plan.Waypoints[idx]
		a.mu.Unlock()

		err := a.d.GoTo(context.Background(), wp.X, wp.Y, wp.Z, wp.Speed)

		select {
		case <-stop:
			return
		default:
		}

		a.mu.Lock()
		if err != nil {
			plan.Waypoints[idx].Status = WaypointSkipped
			metrics.Get().WaypointsSkipped.Inc()
			log.WithError(err).WithField("index", idx).Warn("autopilot: waypoint skipped")
		} else {
			plan.Waypoints[idx].Status = WaypointReached
			metrics.Get().WaypointsReached.Inc()
		}
		plan.CurrentIndex = idx + 1
		hover := wp.HoverTime
		a.mu.Unlock()

		if err == nil && hover > 0 {
			time.Sleep(time.Duration(hover * float64(time.Second)))
		}
	}
}

// StatusSnapshot is the façade-facing read model for the currently
// loaded plan.
type StatusSnapshot struct {
	RunID        string           `json:"run_id,omitempty"`
	Name         string           `json:"name"`
	Status       FlightPlanStatus `json:"status"`
	CurrentIndex int              `json:"current_index"`
	Loop         bool             `json:"loop"`
	Waypoints    []Waypoint       `json:"waypoints"`
}

// Status returns a snapshot of the loaded plan, or an error if none
// has been loaded.
func (a *Autopilot) Status() (StatusSnapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.plan == nil {
		return StatusSnapshot{}, ErrNoFlightPlan
	}
	waypoints := make([]Waypoint, len(a.plan.Waypoints))
	copy(waypoints, a.plan.Waypoints)
	return StatusSnapshot{
		RunID:        a.runID,
		Name:         a.plan.Name,
		Status:       a.plan.Status,
		CurrentIndex: a.plan.CurrentIndex,
		Loop:         a.plan.Loop,
		Waypoints:    waypoints,
	}, nil
}
