package autopilot

import "math"

// Routine builds a FlightPlan from its named defaults. The façade's
// /api/routines endpoint lists the names in BuiltinRoutines, and
// /api/autopilot/load looks a routine up there by name.
type Routine func() *FlightPlan

// BuiltinRoutines maps a routine name to its default-parameter
// constructor.
var BuiltinRoutines = map[string]Routine{
	"square":       func() *FlightPlan { return SquareRoutine(200, 100, 40) },
	"circle":       func() *FlightPlan { return CircleRoutine(150, 100, 12, 30) },
	"figure_eight": func() *FlightPlan { return FigureEightRoutine(100, 100, 16, 30) },
	"survey_grid":  func() *FlightPlan { return SurveyGridRoutine(300, 300, 100, 120, 35) },
}

// SquareRoutine traces a square starting at the top-right corner and
// proceeding counter-clockwise, hovering one second at each corner.
func SquareRoutine(sizeCM, altitude, speed int) *FlightPlan {
	plan := NewFlightPlan("Square")
	half := sizeCM / 2
	corners := [4][2]int{
		{half, half},
		{-half, half},
		{-half, -half},
		{half, -half},
	}
	for _, c := range corners {
		plan.AddWaypoint(c[0], c[1], altitude, speed, 1.0, "")
	}
	return plan
}

// CircleRoutine traces a circle of the given radius using evenly
// spaced waypoints.
func CircleRoutine(radiusCM, altitude, points, speed int) *FlightPlan {
	plan := NewFlightPlan("Circle")
	for i := 0; i < points; i++ {
		angle := 2 * math.Pi * float64(i) / float64(points)
		x := int(float64(radiusCM) * math.Cos(angle))
		y := int(float64(radiusCM) * math.Sin(angle))
		plan.AddWaypoint(x, y, altitude, speed, 0, "")
	}
	return plan
}

// FigureEightRoutine traces a lemniscate-like figure-eight using the
// parametric curve x=r*sin(t), y=r*sin(t)*cos(t).
func FigureEightRoutine(radiusCM, altitude, points, speed int) *FlightPlan {
	plan := NewFlightPlan("Figure-8")
	for i := 0; i < points; i++ {
		t := 2 * math.Pi * float64(i) / float64(points)
		x := int(float64(radiusCM) * math.Sin(t))
		y := int(float64(radiusCM) * math.Sin(t) * math.Cos(t))
		plan.AddWaypoint(x, y, altitude, speed, 0, "")
	}
	return plan
}

// SurveyGridRoutine traces a lawn-mower survey pattern, alternating
// left-to-right and right-to-left across successive rows.
func SurveyGridRoutine(widthCM, heightCM, spacingCM, altitude, speed int) *FlightPlan {
	plan := NewFlightPlan("Survey Grid")
	rows := heightCM/spacingCM + 1
	leftX := -widthCM / 2
	rightX := widthCM / 2
	startY := -heightCM / 2

	for row := 0; row < rows; row++ {
		y := startY + row*spacingCM
		if row%2 == 0 {
			plan.AddWaypoint(leftX, y, altitude, speed, 0, "")
			plan.AddWaypoint(rightX, y, altitude, speed, 0, "")
		} else {
			plan.AddWaypoint(rightX, y, altitude, speed, 0, "")
			plan.AddWaypoint(leftX, y, altitude, speed, 0, "")
		}
	}
	return plan
}
