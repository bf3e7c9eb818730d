// Package camera produces simulated forward-facing depth scans by
// ray-casting into a world.Environment from the drone's current pose.
package camera

import (
	"math"
	"time"

	"github.com/asgard/aegis/internal/drone"
	"github.com/asgard/aegis/internal/world"
)

// Frame is one depth scan: one sample per ray across the horizontal
// field of view, center ray last-indexed at the middle of the slice.
type Frame struct {
	Depths           []float64           `json:"depths"`
	ObstacleTypes    []world.ObstacleType `json:"obstacle_types"`
	ObstacleHeights  []float64           `json:"obstacle_heights"`
	FovH             float64             `json:"fov_h"`
	NumRays          int                 `json:"num_rays"`
	MaxRange         float64             `json:"max_range"`
	DroneYaw         float64             `json:"drone_yaw"`
	DroneZ           float64             `json:"drone_z"`
	Timestamp        time.Time           `json:"timestamp"`
}

// Camera is a forward-facing depth sensor with a fixed horizontal
// field of view and ray count.
type Camera struct {
	FovH     float64
	NumRays  int
	MaxRange float64
}

// New returns a camera with the standard 70-degree, 48-ray, 500cm
// configuration.
func New() *Camera {
	return &Camera{FovH: 70.0, NumRays: 48, MaxRange: 500.0}
}

// Capture casts NumRays rays evenly across FovH, centered on the
// drone's current yaw, and returns the resulting depth frame.
func (c *Camera) Capture(state drone.State, env *world.Environment) Frame {
	depths := make([]float64, c.NumRays)
	types := make([]world.ObstacleType, c.NumRays)
	heights := make([]float64, c.NumRays)

	yawRad := state.Yaw * math.Pi / 180
	halfFov := c.FovH / 2 * math.Pi / 180

	denom := c.NumRays - 1
	if denom < 1 {
		denom = 1
	}

	for i := 0; i < c.NumRays; i++ {
		frac := float64(i)/float64(denom) - 0.5 // -0.5..0.5
		rayAngle := yawRad + frac*2*halfFov

		dist, obs := env.RayCast(state.X, state.Y, state.Z, rayAngle, c.MaxRange)
		depths[i] = dist
		if obs != nil {
			types[i] = obs.Type
			heights[i] = obs.Height
		}
	}

	return Frame{
		Depths:          depths,
		ObstacleTypes:   types,
		ObstacleHeights: heights,
		FovH:            c.FovH,
		NumRays:         c.NumRays,
		MaxRange:        c.MaxRange,
		DroneYaw:        state.Yaw,
		DroneZ:          state.Z,
		Timestamp:       time.Now(),
	}
}
