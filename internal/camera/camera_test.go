package camera

import (
	"testing"

	"github.com/asgard/aegis/internal/drone"
	"github.com/asgard/aegis/internal/world"
)

func TestCaptureCenterRayMatchesYawHeading(t *testing.T) {
	env := world.NewEnvironment()
	env.Add(world.Obstacle{X: 200, Y: 0, Width: 20, Depth: 20, Height: 100})

	cam := New()
	state := drone.State{X: 0, Y: 0, Z: 50, Yaw: 0}
	frame := cam.Capture(state, env)

	if len(frame.Depths) != cam.NumRays {
		t.Fatalf("expected %d depths, got %d", cam.NumRays, len(frame.Depths))
	}

	centerIdx := cam.NumRays / 2
	if frame.Depths[centerIdx] >= cam.MaxRange {
		t.Errorf("expected center ray to hit the obstacle ahead, got max range")
	}
}

func TestCaptureEmptyEnvironmentReturnsMaxRange(t *testing.T) {
	env := world.NewEnvironment()
	cam := New()
	frame := cam.Capture(drone.State{Yaw: 90}, env)

	for i, d := range frame.Depths {
		if d != cam.MaxRange {
			t.Errorf("ray %d: expected max range %.1f, got %.1f", i, cam.MaxRange, d)
		}
		if frame.ObstacleTypes[i] != "" {
			t.Errorf("ray %d: expected no obstacle type, got %q", i, frame.ObstacleTypes[i])
		}
	}
}
