package autopilot

import "testing"

func TestSquareRoutineTracesExpectedCorners(t *testing.T) {
	plan := SquareRoutine(200, 100, 40)
	want := [4][2]int{{100, 100}, {-100, 100}, {-100, -100}, {100, -100}}

	if len(plan.Waypoints) != 4 {
		t.Fatalf("expected 4 waypoints, got %d", len(plan.Waypoints))
	}
	for i, wp := range plan.Waypoints {
		if wp.X != want[i][0] || wp.Y != want[i][1] {
			t.Errorf("corner %d: expected (%d,%d), got (%d,%d)", i, want[i][0], want[i][1], wp.X, wp.Y)
		}
		if wp.Z != 100 {
			t.Errorf("corner %d: expected altitude 100, got %d", i, wp.Z)
		}
		if wp.HoverTime != 1.0 {
			t.Errorf("corner %d: expected hover_time 1.0, got %.2f", i, wp.HoverTime)
		}
		if wp.Status != WaypointPending {
			t.Errorf("corner %d: expected pending status, got %v", i, wp.Status)
		}
	}
}

func TestCircleRoutineStartsEastGoingCounterClockwise(t *testing.T) {
	plan := CircleRoutine(100, 50, 4, 30)
	if len(plan.Waypoints) != 4 {
		t.Fatalf("expected 4 waypoints, got %d", len(plan.Waypoints))
	}
	first := plan.Waypoints[0]
	if first.X != 100 || first.Y != 0 {
		t.Errorf("expected first point due east at (100,0), got (%d,%d)", first.X, first.Y)
	}
	second := plan.Waypoints[1]
	if second.Y <= 0 {
		t.Errorf("expected the second point to have moved counter-clockwise (positive y), got y=%d", second.Y)
	}
}

func TestSurveyGridAlternatesRowDirection(t *testing.T) {
	plan := SurveyGridRoutine(200, 100, 100, 50, 35)
	if len(plan.Waypoints) < 4 {
		t.Fatalf("expected at least 4 waypoints, got %d", len(plan.Waypoints))
	}
	// Row 0 goes left-to-right, row 1 goes right-to-left.
	if plan.Waypoints[0].X >= plan.Waypoints[1].X {
		t.Errorf("expected row 0 to run left-to-right, got x0=%d x1=%d", plan.Waypoints[0].X, plan.Waypoints[1].X)
	}
	if plan.Waypoints[2].X <= plan.Waypoints[3].X {
		t.Errorf("expected row 1 to run right-to-left, got x2=%d x3=%d", plan.Waypoints[2].X, plan.Waypoints[3].X)
	}
}

func TestBuiltinRoutinesRegistersAllFour(t *testing.T) {
	for _, name := range []string{"square", "circle", "figure_eight", "survey_grid"} {
		build, ok := BuiltinRoutines[name]
		if !ok {
			t.Fatalf("expected builtin routine %q to be registered", name)
		}
		plan := build()
		if len(plan.Waypoints) == 0 {
			t.Errorf("routine %q produced an empty plan", name)
		}
	}
}
