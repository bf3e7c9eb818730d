package autopilot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/asgard/aegis/internal/drone"
)

// fakeDrone records GoTo calls and lets tests force specific
// waypoints to fail.
type fakeDrone struct {
	mu      sync.Mutex
	calls   int
	failIdx map[int]bool
}

func (f *fakeDrone) Connect(context.Context) error { return nil }
func (f *fakeDrone) Disconnect()                   {}
func (f *fakeDrone) Takeoff() error                 { return nil }
func (f *fakeDrone) Land() error                    { return nil }
func (f *fakeDrone) EmergencyStop()                 {}
func (f *fakeDrone) Move(string, int) error         { return nil }
func (f *fakeDrone) Rotate(int) error               { return nil }
func (f *fakeDrone) SetSpeed(int) error              { return nil }
func (f *fakeDrone) SendRC(int, int, int, int)       {}
func (f *fakeDrone) GetState() drone.State           { return drone.State{} }

func (f *fakeDrone) GoTo(_ context.Context, x, y, z, speed int) error {
	f.mu.Lock()
	idx := f.calls
	f.calls++
	fail := f.failIdx[idx]
	f.mu.Unlock()
	if fail {
		return &drone.OpError{Op: "go_to", Err: drone.ErrNotFlying}
	}
	return nil
}

func TestLoadRefusesWhileRunning(t *testing.T) {
	ap := New(&fakeDrone{})
	plan := SquareRoutine(200, 100, 40)
	plan.Loop = true
	if err := ap.Load(plan); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := ap.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer ap.Abort()

	if err := ap.Load(NewFlightPlan("other")); err != ErrPlanRunning {
		t.Errorf("expected ErrPlanRunning, got %v", err)
	}
}

func TestRunCompletesNonLoopingPlan(t *testing.T) {
	ap := New(&fakeDrone{})
	plan := CircleRoutine(150, 100, 4, 30)
	if err := ap.Load(plan); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := ap.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ap.Wait()

	status, err := ap.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Status != PlanCompleted {
		t.Errorf("expected PlanCompleted, got %v", status.Status)
	}
	for i, wp := range status.Waypoints {
		if wp.Status != WaypointReached {
			t.Errorf("waypoint %d: expected Reached, got %v", i, wp.Status)
		}
	}
}

func TestSkippedWaypointDoesNotHaltPlan(t *testing.T) {
	fd := &fakeDrone{failIdx: map[int]bool{1: true}}
	ap := New(fd)
	plan := CircleRoutine(150, 100, 3, 30)
	if err := ap.Load(plan); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := ap.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ap.Wait()

	status, _ := ap.Status()
	if status.Waypoints[1].Status != WaypointSkipped {
		t.Errorf("expected waypoint 1 skipped, got %v", status.Waypoints[1].Status)
	}
	if status.Status != PlanCompleted {
		t.Errorf("expected plan to complete despite a skip, got %v", status.Status)
	}
}

func TestAbortStopsWorker(t *testing.T) {
	ap := New(&fakeDrone{})
	plan := SquareRoutine(200, 100, 40)
	plan.Loop = true
	if err := ap.Load(plan); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := ap.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	ap.Abort()
	ap.Wait()

	status, _ := ap.Status()
	if status.Status != PlanAborted {
		t.Errorf("expected PlanAborted, got %v", status.Status)
	}
}

func TestStartWithoutLoadedPlanFails(t *testing.T) {
	ap := New(&fakeDrone{})
	if err := ap.Start(); err != ErrNoFlightPlan {
		t.Errorf("expected ErrNoFlightPlan, got %v", err)
	}
}
