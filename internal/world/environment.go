// Package world models the physical space a drone flies through: a flat
// list of obstacles a ray can be cast against, and the handful of
// geometric predicates the navigator and depth camera need.
package world

import "math"

// ObstacleType classifies an Obstacle for reporting and depth-camera
// output; it carries no geometric meaning of its own.
type ObstacleType string

const (
	Building ObstacleType = "building"
	Tree     ObstacleType = "tree"
	Wall     ObstacleType = "wall"
	Pillar   ObstacleType = "pillar"
)

// Obstacle is a static, axis-aligned box or vertical cylinder in the
// world. Coordinates and extents are centimeters.
type Obstacle struct {
	X             float64      `json:"x"`
	Y             float64      `json:"y"`
	ZBase         float64      `json:"z_base"`
	Width         float64      `json:"width"`
	Depth         float64      `json:"depth"`
	Height        float64      `json:"height"`
	Type          ObstacleType `json:"obstacle_type"`
	IsCylindrical bool         `json:"is_cylindrical"`
}

const altitudeMargin = 30.0

// OverlapsAltitude reports whether z (plus margin on either side) falls
// within the obstacle's vertical extent.
func (o Obstacle) OverlapsAltitude(z, margin float64) bool {
	return (z+margin) >= o.ZBase && (z-margin) <= (o.ZBase+o.Height)
}

const rayEpsilon = 1e-9

// RayIntersect2D returns the distance along a ray (origin ox,oy, unit
// direction dx,dy) to this obstacle, or ok=false if it misses or the
// hit lies beyond maxRange.
func (o Obstacle) RayIntersect2D(ox, oy, dx, dy, maxRange float64) (float64, bool) {
	if o.IsCylindrical {
		return o.rayCircleIntersect(ox, oy, dx, dy, maxRange)
	}
	return o.rayAABBIntersect(ox, oy, dx, dy, maxRange)
}

func (o Obstacle) rayAABBIntersect(ox, oy, dx, dy, maxRange float64) (float64, bool) {
	halfW, halfD := o.Width/2, o.Depth/2
	xMin, xMax := o.X-halfW, o.X+halfW
	yMin, yMax := o.Y-halfD, o.Y+halfD

	var tMinX, tMaxX float64
	if math.Abs(dx) < rayEpsilon {
		if ox < xMin || ox > xMax {
			return 0, false
		}
		tMinX, tMaxX = -1e18, 1e18
	} else {
		t1, t2 := (xMin-ox)/dx, (xMax-ox)/dx
		tMinX, tMaxX = math.Min(t1, t2), math.Max(t1, t2)
	}

	var tMinY, tMaxY float64
	if math.Abs(dy) < rayEpsilon {
		if oy < yMin || oy > yMax {
			return 0, false
		}
		tMinY, tMaxY = -1e18, 1e18
	} else {
		t1, t2 := (yMin-oy)/dy, (yMax-oy)/dy
		tMinY, tMaxY = math.Min(t1, t2), math.Max(t1, t2)
	}

	tEnter := math.Max(tMinX, tMinY)
	tExit := math.Min(tMaxX, tMaxY)
	if tEnter > tExit || tExit < 0 {
		return 0, false
	}

	t := tEnter
	if t < 0 {
		t = tExit
	}
	if t > maxRange || t < 0 {
		return 0, false
	}
	return t, true
}

func (o Obstacle) rayCircleIntersect(ox, oy, dx, dy, maxRange float64) (float64, bool) {
	radius := o.Width / 2
	fx, fy := ox-o.X, oy-o.Y

	a := dx*dx + dy*dy
	b := 2 * (fx*dx + fy*dy)
	c := fx*fx + fy*fy - radius*radius

	discriminant := b*b - 4*a*c
	if discriminant < 0 {
		return 0, false
	}
	sqrtDisc := math.Sqrt(discriminant)
	t1 := (-b - sqrtDisc) / (2 * a)
	t2 := (-b + sqrtDisc) / (2 * a)

	t := t1
	if t < 0 {
		t = t2
	}
	if t < 0 || t > maxRange {
		return 0, false
	}
	return t, true
}

// Environment is a flat collection of obstacles a drone can ray-cast
// and collision-check against.
type Environment struct {
	Obstacles []Obstacle
}

// NewEnvironment returns an empty world.
func NewEnvironment() *Environment {
	return &Environment{}
}

// Add appends an obstacle to the world.
func (e *Environment) Add(o Obstacle) {
	e.Obstacles = append(e.Obstacles, o)
}

// RayCast casts a ray from (ox,oy,oz) at angleRad and returns the
// distance to the nearest obstacle (capped at maxRange) plus a pointer
// to that obstacle, or nil if nothing was hit within range.
func (e *Environment) RayCast(ox, oy, oz, angleRad, maxRange float64) (float64, *Obstacle) {
	dx, dy := math.Cos(angleRad), math.Sin(angleRad)

	nearestDist := maxRange
	var nearestObs *Obstacle

	for i := range e.Obstacles {
		obs := &e.Obstacles[i]
		if !obs.OverlapsAltitude(oz, altitudeMargin) {
			continue
		}
		if dist, ok := obs.RayIntersect2D(ox, oy, dx, dy, maxRange); ok && dist < nearestDist {
			nearestDist = dist
			nearestObs = obs
		}
	}
	return nearestDist, nearestObs
}

// CheckCollision reports whether a sphere of the given radius centered
// at (x,y,z) overlaps any obstacle.
func (e *Environment) CheckCollision(x, y, z, radius float64) bool {
	for _, obs := range e.Obstacles {
		if !obs.OverlapsAltitude(z, radius) {
			continue
		}
		if obs.IsCylindrical {
			dist := math.Sqrt((x-obs.X)*(x-obs.X) + (y-obs.Y)*(y-obs.Y))
			if dist < obs.Width/2+radius {
				return true
			}
		} else {
			halfW := obs.Width/2 + radius
			halfD := obs.Depth/2 + radius
			if math.Abs(x-obs.X) < halfW && math.Abs(y-obs.Y) < halfD {
				return true
			}
		}
	}
	return false
}

// DefaultEnvironment returns the standard demo world: four buildings,
// four cylindrical trees, two walls and two cylindrical pillars.
func DefaultEnvironment() *Environment {
	env := NewEnvironment()

	env.Add(Obstacle{X: 180, Y: 200, Width: 80, Depth: 80, Height: 200, Type: Building})
	env.Add(Obstacle{X: -150, Y: 120, Width: 100, Depth: 60, Height: 180, Type: Building})
	env.Add(Obstacle{X: -200, Y: -180, Width: 70, Depth: 90, Height: 160, Type: Building})
	env.Add(Obstacle{X: 100, Y: -200, Width: 60, Depth: 60, Height: 140, Type: Building})

	env.Add(Obstacle{X: 60, Y: 280, Width: 50, Depth: 50, Height: 250, Type: Tree, IsCylindrical: true})
	env.Add(Obstacle{X: -80, Y: -100, Width: 40, Depth: 40, Height: 200, Type: Tree, IsCylindrical: true})
	env.Add(Obstacle{X: 250, Y: 80, Width: 45, Depth: 45, Height: 220, Type: Tree, IsCylindrical: true})
	env.Add(Obstacle{X: -250, Y: 50, Width: 35, Depth: 35, Height: 180, Type: Tree, IsCylindrical: true})

	env.Add(Obstacle{X: 0, Y: 380, Width: 300, Depth: 20, Height: 150, Type: Wall})
	env.Add(Obstacle{X: 300, Y: 0, Width: 20, Depth: 250, Height: 170, Type: Wall})

	env.Add(Obstacle{X: -30, Y: 150, Width: 25, Depth: 25, Height: 300, Type: Pillar, IsCylindrical: true})
	env.Add(Obstacle{X: 150, Y: -80, Width: 20, Depth: 20, Height: 280, Type: Pillar, IsCylindrical: true})

	return env
}
