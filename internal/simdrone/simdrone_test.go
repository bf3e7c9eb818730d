package simdrone

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/asgard/aegis/internal/drone"
)

func TestTakeoffReachesHoverAltitude(t *testing.T) {
	d := New(nil)
	if err := d.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := d.Takeoff(); err != nil {
		t.Fatalf("Takeoff: %v", err)
	}
	defer d.EmergencyStop()

	state := d.GetState()
	if !state.IsFlying {
		t.Error("expected is_flying true")
	}
	if math.Abs(state.Z-80) > 1 {
		t.Errorf("expected z ~80, got %.2f", state.Z)
	}
	if state.Battery < 99 {
		t.Errorf("expected battery ~100 right after takeoff, got %d", state.Battery)
	}
}

func TestGoToReachesDestinationWithinBatteryBudget(t *testing.T) {
	d := New(nil)
	if err := d.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := d.Takeoff(); err != nil {
		t.Fatalf("Takeoff: %v", err)
	}
	defer d.EmergencyStop()

	before := d.GetState()
	if err := d.GoTo(context.Background(), 100, 0, 80, 50); err != nil {
		t.Fatalf("GoTo: %v", err)
	}
	after := d.GetState()

	dist := math.Sqrt(math.Pow(after.X-100, 2) + math.Pow(after.Y-0, 2) + math.Pow(after.Z-80, 2))
	if dist > 1 {
		t.Errorf("expected within 1cm of (100,0,80), got (%.2f,%.2f,%.2f)", after.X, after.Y, after.Z)
	}
	if before.Battery-after.Battery > 2 {
		t.Errorf("expected battery drop <= 2%%, got %d", before.Battery-after.Battery)
	}
}

func TestTakeoffRequiresConnection(t *testing.T) {
	d := New(nil)
	if err := d.Takeoff(); err == nil {
		t.Fatal("expected takeoff to fail before connect")
	}
}

func TestDoubleTakeoffFails(t *testing.T) {
	d := New(nil)
	d.Connect(context.Background())
	if err := d.Takeoff(); err != nil {
		t.Fatalf("first takeoff: %v", err)
	}
	defer d.EmergencyStop()
	if err := d.Takeoff(); err == nil {
		t.Fatal("expected second takeoff to fail")
	}
}

func TestRotateRoundTripReturnsToStartYaw(t *testing.T) {
	d := New(nil)
	d.Connect(context.Background())
	if err := d.Takeoff(); err != nil {
		t.Fatalf("Takeoff: %v", err)
	}
	defer d.EmergencyStop()

	start := d.GetState().Yaw
	if err := d.Rotate(47); err != nil {
		t.Fatalf("Rotate +47: %v", err)
	}
	if err := d.Rotate(-47); err != nil {
		t.Fatalf("Rotate -47: %v", err)
	}
	end := d.GetState().Yaw
	if math.Abs(end-start) > 1e-6 {
		t.Errorf("expected yaw to return to %.2f, got %.2f", start, end)
	}
}

func TestLandZeroesAltitudeAndStopsRCLoop(t *testing.T) {
	d := New(nil)
	d.Connect(context.Background())
	d.Takeoff()
	d.SendRC(0, 100, 0, 0)
	time.Sleep(60 * time.Millisecond)

	if err := d.Land(); err != nil {
		t.Fatalf("Land: %v", err)
	}
	state := d.GetState()
	if state.IsFlying {
		t.Error("expected is_flying false after land")
	}
	if state.Z != 0 {
		t.Errorf("expected z == 0 after land, got %.2f", state.Z)
	}

	xAfterLand := state.X
	time.Sleep(60 * time.Millisecond)
	if d.GetState().X != xAfterLand {
		t.Error("expected position to stay fixed once the RC loop has stopped")
	}
}

func TestEmergencyStopAlwaysSucceeds(t *testing.T) {
	d := New(nil)
	d.EmergencyStop() // disconnected, never flew: must not panic or error
	state := d.GetState()
	if state.IsFlying {
		t.Error("expected is_flying false")
	}
}

func TestMoveUnknownDirectionRejected(t *testing.T) {
	d := New(nil)
	d.Connect(context.Background())
	d.Takeoff()
	defer d.EmergencyStop()

	if err := d.Move("sideways", 50); err == nil {
		t.Fatal("expected unknown direction to be rejected")
	}
}

func TestSetSpeedClampsToContractRange(t *testing.T) {
	d := New(nil)
	// Out-of-range input is clamped, not rejected.
	if err := d.SetSpeed(500); err != nil {
		t.Fatalf("SetSpeed: %v", err)
	}
	if d.cruiseSpeed != 100 {
		t.Errorf("expected speed 500 clamped to 100, got %d", d.cruiseSpeed)
	}
	if err := d.SetSpeed(0); err != nil {
		t.Fatalf("SetSpeed: %v", err)
	}
	if d.cruiseSpeed != 10 {
		t.Errorf("expected speed 0 clamped to 10, got %d", d.cruiseSpeed)
	}
}

func TestGetLogRecordsLifecycleEventsAndReturnsASnapshot(t *testing.T) {
	d := New(nil)
	d.Connect(context.Background())
	d.Takeoff()
	d.Rotate(30)
	d.Land()

	log := d.GetLog()
	if len(log) < 4 {
		t.Fatalf("expected at least 4 log entries, got %d: %v", len(log), log)
	}

	log[0] = "mutated"
	if d.GetLog()[0] == "mutated" {
		t.Error("expected GetLog to return a snapshot copy, not a view into internal state")
	}
}

func TestGetLogIsBoundedToCap(t *testing.T) {
	d := New(nil)
	for i := 0; i < logCap+50; i++ {
		d.addLog("tick")
	}
	if got := len(d.GetLog()); got != logCap {
		t.Errorf("expected log capped at %d entries, got %d", logCap, got)
	}
}

var _ drone.Drone = (*Drone)(nil)
