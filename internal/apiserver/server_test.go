package apiserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/asgard/aegis/internal/autopilot"
	"github.com/asgard/aegis/internal/camera"
	"github.com/asgard/aegis/internal/navigator"
	"github.com/asgard/aegis/internal/recorder"
	"github.com/asgard/aegis/internal/simdrone"
	"github.com/asgard/aegis/internal/world"
)

func newTestServer() *Server {
	var rec *recorder.Recorder
	d := simdrone.New(rec)
	env := world.DefaultEnvironment()
	cam := camera.New()
	ap := autopilot.New(d)
	nav := navigator.New(d, cam, env)
	return New(d, ap, nav, env, cam)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestConnectTakeoffState(t *testing.T) {
	srv := newTestServer()
	router := srv.Routes()

	post := func(path string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			if err := json.NewEncoder(&buf).Encode(body); err != nil {
				t.Fatalf("encode: %v", err)
			}
		}
		req := httptest.NewRequest(http.MethodPost, path, &buf)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	if w := post("/api/connect", nil); w.Code != http.StatusOK {
		t.Fatalf("connect: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w := post("/api/takeoff", nil); w.Code != http.StatusOK {
		t.Fatalf("takeoff: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("state: expected 200, got %d", w.Code)
	}

	var state map[string]any
	if err := json.NewDecoder(w.Body).Decode(&state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if flying, _ := state["is_flying"].(bool); !flying {
		t.Errorf("expected is_flying true, got %v", state["is_flying"])
	}

	logEntries, ok := state["log"].([]any)
	if !ok {
		t.Fatalf("expected log field in /api/state for a backend that exposes one, got %v", state["log"])
	}
	if len(logEntries) < 2 {
		t.Errorf("expected at least 2 log entries (connect, takeoff), got %d", len(logEntries))
	}
}

func TestTakeoffBeforeConnectFails(t *testing.T) {
	srv := newTestServer()
	router := srv.Routes()

	req := httptest.NewRequest(http.MethodPost, "/api/takeoff", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if success, _ := resp["success"].(bool); success {
		t.Errorf("expected success=false")
	}
}

func TestAutopilotLoadUnknownRoutine(t *testing.T) {
	srv := newTestServer()
	router := srv.Routes()

	body, _ := json.Marshal(map[string]any{"routine": "not_a_real_routine"})
	req := httptest.NewRequest(http.MethodPost, "/api/autopilot/load", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAutopilotLoadSquareAndStatus(t *testing.T) {
	srv := newTestServer()
	router := srv.Routes()

	body, _ := json.Marshal(map[string]any{"routine": "square"})
	req := httptest.NewRequest(http.MethodPost, "/api/autopilot/load", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("load: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/autopilot/status", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", w.Code)
	}
}

func TestEnvironmentAndCamera(t *testing.T) {
	srv := newTestServer()
	router := srv.Routes()

	req := httptest.NewRequest(http.MethodGet, "/api/environment", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("environment: expected 200, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/camera", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("camera: expected 200, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer()
	router := srv.Routes()

	// Takeoff starts the simulator's RC loop, which calls into the
	// metrics package on its first tick; that's enough to guarantee
	// the series are registered regardless of what other tests in
	// this package have already run.
	for _, path := range []string{"/api/connect", "/api/takeoff"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", path, w.Code, w.Body.String())
		}
	}
	time.Sleep(75 * time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("drone_battery_percent")) {
		t.Errorf("expected drone_battery_percent series in exposition, got: %s", w.Body.String())
	}
}

func TestAutonomousDestinationWithoutStart(t *testing.T) {
	srv := newTestServer()
	router := srv.Routes()

	body, _ := json.Marshal(map[string]float64{"x": 300, "y": 0, "z": 80})
	req := httptest.NewRequest(http.MethodPost, "/api/autonomous/destination", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("destination: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/autonomous/status", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", w.Code)
	}
	var status navigator.Status
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.DestX != 300 {
		t.Errorf("expected dest_x 300, got %v", status.DestX)
	}
}
