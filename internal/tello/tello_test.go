package tello

import "testing"

func TestIsOKMatchesCaseInsensitiveSubstring(t *testing.T) {
	cases := []struct {
		resp string
		want bool
	}{
		{"ok", true},
		{"OK", true},
		{"Ok\r\n", true},
		{"error Not joystick", false},
		{"", false},
	}
	for _, c := range cases {
		if got := isOK(c.resp); got != c.want {
			t.Errorf("isOK(%q) = %v, want %v", c.resp, got, c.want)
		}
	}
}

func TestParseStateUpdatesKnownFieldsOnly(t *testing.T) {
	d := New("")
	d.parseState("pitch:0;roll:1;yaw:87;vgx:0;vgy:0;vgz:0;templ:60;temph:65;tof:10;h:120;bat:42;baro:0;time:37;agx:0.0;agy:0.0;agz:0.0;")

	state := d.GetState()
	if state.Battery != 42 {
		t.Errorf("expected battery 42, got %d", state.Battery)
	}
	if state.Z != 120 {
		t.Errorf("expected z 120, got %.1f", state.Z)
	}
	if state.Yaw != 87 {
		t.Errorf("expected yaw 87, got %.1f", state.Yaw)
	}
	if state.FlightTime != 37 {
		t.Errorf("expected flight_time 37, got %.1f", state.FlightTime)
	}
	if state.Temperature != 65 {
		t.Errorf("expected temperature 65, got %.1f", state.Temperature)
	}
}

func TestParseStateNormalizesNegativeYawToPositiveRange(t *testing.T) {
	d := New("")
	// The Tello SDK's native yaw range is -180..180; a state invariant
	// requires yaw in [0, 360) regardless of backend.
	d.parseState("yaw:-45;bat:50;h:10;")

	state := d.GetState()
	if state.Yaw != 315 {
		t.Errorf("expected yaw -45 normalized to 315, got %.1f", state.Yaw)
	}
	if state.Yaw < 0 || state.Yaw >= 360 {
		t.Errorf("expected yaw in [0,360), got %.1f", state.Yaw)
	}
}

func TestParseStateIgnoresMalformedPairs(t *testing.T) {
	d := New("")
	d.parseState("bat:77;garbage;yaw:notanumber;h:50;")

	state := d.GetState()
	if state.Battery != 77 {
		t.Errorf("expected battery 77 to still be parsed, got %d", state.Battery)
	}
	if state.Z != 50 {
		t.Errorf("expected h to still be parsed, got %.1f", state.Z)
	}
	if state.Yaw != 0 {
		t.Errorf("expected malformed yaw to be skipped, got %.1f", state.Yaw)
	}
}

func TestMoveClampsOutOfRangeDistanceToCommandRange(t *testing.T) {
	if got := clampInt(5, 20, 500); got != 20 {
		t.Errorf("expected clamp to 20, got %d", got)
	}
	if got := clampInt(9000, 20, 500); got != 500 {
		t.Errorf("expected clamp to 500, got %d", got)
	}
	if got := clampInt(100, 20, 500); got != 100 {
		t.Errorf("expected 100 to pass through unclamped, got %d", got)
	}
}
