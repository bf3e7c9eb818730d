// Package simdrone implements the drone.Drone contract against an
// in-process physics model, so the rest of the system can be
// developed and tested without real hardware.
package simdrone

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/asgard/aegis/internal/drone"
	"github.com/asgard/aegis/internal/metrics"
	"github.com/asgard/aegis/internal/recorder"
	"github.com/asgard/aegis/pkg/utils"
)

// Default movement rates, centimeters and degrees per second.
const (
	MoveSpeed   = 50
	AscendSpeed = 40
	RotateSpeed = 90
)

const (
	rcInterval     = 50 * time.Millisecond
	maxMoveDelay   = 2 * time.Second
	maxStepDelay   = 500 * time.Millisecond
	batteryDrainPS = 0.5  // percent per second of flight
	thermalRisePS  = 0.1  // celsius per second of flight
	thermalCap     = 45.0 // celsius
	logCap         = 200  // bounded ring of human-readable activity messages
)

// Drone is a simulated quadcopter: no network, no real motors, just a
// physics model and the same command surface the hardware backend
// exposes.
type Drone struct {
	mu sync.Mutex

	x, y, z     float64
	yaw         float64
	speed       float64
	battery     float64
	isFlying    bool
	isConnected bool
	flightTime  float64
	temperature float64

	cruiseSpeed int
	flightStart time.Time

	rcMu     sync.Mutex
	rcActive bool
	rcStop   chan struct{}
	rcValues [4]int // leftRight, forwardBack, upDown, yaw

	rec *recorder.Recorder

	logMu sync.Mutex
	log   []string
}

// New returns a simulated drone at rest, disconnected. rec may be nil,
// in which case state snapshots are not recorded.
func New(rec *recorder.Recorder) *Drone {
	return &Drone{
		battery:     100,
		temperature: 25.0,
		cruiseSpeed: MoveSpeed,
		rec:         rec,
	}
}

// addLog appends a human-readable activity message stamped with the
// wall-clock time, trimming the oldest entry once the ring fills.
// This is the bounded in-memory log the /api/state façade surfaces —
// distinct from the structured logrus output, which is for operators
// tailing the process, not for the dashboard's flight log panel.
func (d *Drone) addLog(msg string) {
	d.logMu.Lock()
	defer d.logMu.Unlock()
	d.log = append(d.log, time.Now().Format("15:04:05")+" "+msg)
	if len(d.log) > logCap {
		d.log = d.log[len(d.log)-logCap:]
	}
}

// GetLog returns a snapshot copy of the activity log. The apiserver
// façade calls this (via an optional interface assertion, since the
// hardware backend doesn't keep one) to serve /api/state's log field.
func (d *Drone) GetLog() []string {
	d.logMu.Lock()
	defer d.logMu.Unlock()
	out := make([]string, len(d.log))
	copy(out, d.log)
	return out
}

var _ drone.Drone = (*Drone)(nil)

func (d *Drone) Connect(_ context.Context) error {
	d.mu.Lock()
	d.isConnected = true
	d.battery = 100
	d.temperature = 25.0
	d.mu.Unlock()
	utils.Logger.Info("simdrone: connected")
	d.addLog("connected")
	return nil
}

func (d *Drone) Disconnect() {
	d.EmergencyStop()
	d.mu.Lock()
	d.isConnected = false
	d.mu.Unlock()
	utils.Logger.Info("simdrone: disconnected")
	d.addLog("disconnected")
}

func (d *Drone) Takeoff() error {
	d.mu.Lock()
	if !d.isConnected || d.isFlying {
		d.mu.Unlock()
		if !d.isConnected {
			return &drone.OpError{Op: "takeoff", Err: drone.ErrNotConnected}
		}
		return &drone.OpError{Op: "takeoff", Err: drone.ErrAlreadyFlying}
	}
	d.isFlying = true
	d.z = 80.0
	d.flightStart = time.Now()
	d.mu.Unlock()

	utils.Logger.Info("simdrone: takeoff, hovering at 80cm")
	d.addLog("takeoff, hovering at 80cm")
	d.startRCLoop()
	return nil
}

func (d *Drone) Land() error {
	d.stopRCLoop()
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.isFlying {
		return &drone.OpError{Op: "land", Err: drone.ErrNotFlying}
	}
	d.isFlying = false
	d.z = 0
	d.speed = 0
	d.accumulateFlightTimeLocked()
	utils.Logger.Info("simdrone: landed")
	d.addLog("landed")
	return nil
}

func (d *Drone) EmergencyStop() {
	d.stopRCLoop()
	d.mu.Lock()
	d.isFlying = false
	d.z = 0
	d.speed = 0
	d.accumulateFlightTimeLocked()
	d.mu.Unlock()
	utils.Logger.Warn("simdrone: EMERGENCY STOP")
	d.addLog("EMERGENCY STOP")
}

// accumulateFlightTimeLocked folds elapsed time since flightStart into
// flightTime. Caller must hold mu.
func (d *Drone) accumulateFlightTimeLocked() {
	if !d.flightStart.IsZero() {
		d.flightTime += time.Since(d.flightStart).Seconds()
		d.flightStart = time.Time{}
	}
}

func (d *Drone) Move(direction string, distanceCM int) error {
	d.mu.Lock()
	flying := d.isFlying
	yaw := d.yaw
	speed := d.cruiseSpeed
	d.mu.Unlock()
	if !flying {
		return &drone.OpError{Op: "move", Err: drone.ErrNotFlying}
	}

	rad := yaw * math.Pi / 180
	dist := float64(distanceCM)
	var dx, dy, dz float64

	switch direction {
	case drone.Forward:
		dx, dy = dist*math.Cos(rad), dist*math.Sin(rad)
	case drone.Back:
		dx, dy = -dist*math.Cos(rad), -dist*math.Sin(rad)
	case drone.Left:
		dx, dy = dist*math.Sin(rad), -dist*math.Cos(rad)
	case drone.Right:
		dx, dy = -dist*math.Sin(rad), dist*math.Cos(rad)
	case drone.Up:
		dz = dist
	case drone.Down:
		dz = -dist
	default:
		return &drone.OpError{Op: "move", Err: drone.ErrUnknownDirection}
	}

	duration := dist / float64(speed)
	time.Sleep(min(time.Duration(duration*float64(time.Second)), maxMoveDelay))

	d.mu.Lock()
	d.x += dx
	d.y += dy
	d.z = math.Max(0, d.z+dz)
	d.drainBatteryLocked(duration)
	d.mu.Unlock()
	d.recordSnapshot()

	utils.Logger.WithFields(map[string]interface{}{"direction": direction, "distance_cm": distanceCM}).
		Debug("simdrone: move")
	d.addLog(fmt.Sprintf("move %s %dcm", direction, distanceCM))
	return nil
}

func (d *Drone) Rotate(degrees int) error {
	d.mu.Lock()
	if !d.isFlying {
		d.mu.Unlock()
		return &drone.OpError{Op: "rotate", Err: drone.ErrNotFlying}
	}
	d.yaw = math.Mod(d.yaw+float64(degrees), 360)
	if d.yaw < 0 {
		d.yaw += 360
	}
	yaw := d.yaw
	d.mu.Unlock()

	utils.Logger.WithField("yaw", yaw).Debug("simdrone: rotate")
	d.addLog(fmt.Sprintf("rotate %d degrees, yaw now %.0f", degrees, yaw))
	duration := math.Abs(float64(degrees)) / RotateSpeed
	time.Sleep(min(time.Duration(duration*float64(time.Second)), maxMoveDelay))
	return nil
}

func (d *Drone) SetSpeed(speedCMS int) error {
	clamped := clampInt(speedCMS, 10, 100)
	d.mu.Lock()
	d.cruiseSpeed = clamped
	d.mu.Unlock()
	utils.Logger.WithField("speed_cm_s", clamped).Debug("simdrone: speed set")
	d.addLog(fmt.Sprintf("speed set to %d cm/s", clamped))
	return nil
}

func (d *Drone) SendRC(leftRight, forwardBack, upDown, yaw int) {
	d.rcMu.Lock()
	d.rcValues = [4]int{
		clampInt(leftRight, -100, 100),
		clampInt(forwardBack, -100, 100),
		clampInt(upDown, -100, 100),
		clampInt(yaw, -100, 100),
	}
	d.rcMu.Unlock()
}

func (d *Drone) GetState() drone.State {
	d.mu.Lock()
	defer d.mu.Unlock()

	flightTime := d.flightTime
	if !d.flightStart.IsZero() && d.isFlying {
		flightTime += time.Since(d.flightStart).Seconds()
	}

	return drone.State{
		X:           d.x,
		Y:           d.y,
		Z:           d.z,
		Yaw:         d.yaw,
		Speed:       d.speed,
		Battery:     int(math.Round(d.battery)),
		IsFlying:    d.isFlying,
		IsConnected: d.isConnected,
		FlightTime:  flightTime,
		Temperature: d.temperature,
		Timestamp:   time.Now(),
	}
}

func (d *Drone) GoTo(ctx context.Context, x, y, z, speed int) error {
	d.mu.Lock()
	if !d.isFlying {
		d.mu.Unlock()
		return &drone.OpError{Op: "go_to", Err: drone.ErrNotFlying}
	}
	sx, sy, sz := d.x, d.y, d.z
	d.mu.Unlock()

	fx, fy, fz := float64(x), float64(y), float64(z)
	dist := math.Sqrt((fx-sx)*(fx-sx) + (fy-sy)*(fy-sy) + (fz-sz)*(fz-sz))
	if dist < 1 {
		return nil
	}

	rate := math.Max(float64(speed), 10)
	duration := dist / rate
	steps := int(duration * 10)
	if steps < 1 {
		steps = 1
	}
	dt := duration / float64(steps)
	stepDelay := min(time.Duration(dt*float64(time.Second)), maxStepDelay)

	for i := 1; i <= steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		time.Sleep(stepDelay)
		frac := float64(i) / float64(steps)

		d.mu.Lock()
		d.x = sx + (fx-sx)*frac
		d.y = sy + (fy-sy)*frac
		d.z = math.Max(0, sz+(fz-sz)*frac)
		d.speed = float64(speed)
		d.drainBatteryLocked(dt)
		d.mu.Unlock()
		d.recordSnapshot()
	}

	utils.Logger.WithFields(map[string]interface{}{"x": x, "y": y, "z": z, "speed": speed}).
		Debug("simdrone: go_to reached destination")
	d.addLog(fmt.Sprintf("go_to (%d,%d,%d) reached", x, y, z))
	return nil
}

// drainBatteryLocked applies the simplified linear battery/thermal
// model for seconds of flight. Caller must hold mu.
func (d *Drone) drainBatteryLocked(seconds float64) {
	if seconds <= 0 {
		return
	}
	d.battery = math.Max(0, d.battery-seconds*batteryDrainPS)
	d.temperature = math.Min(thermalCap, d.temperature+seconds*thermalRisePS)

	metrics.Get().BatteryPercent.Set(d.battery)
	metrics.Get().TemperatureC.Set(d.temperature)
	metrics.Get().AltitudeCM.Set(d.z)
	metrics.Get().ObserveBatteryDrain(batteryDrainPS)
}

func (d *Drone) recordSnapshot() {
	if d.rec == nil {
		return
	}
	d.rec.Record(d.GetState())
}

func (d *Drone) startRCLoop() {
	d.rcMu.Lock()
	if d.rcActive {
		d.rcMu.Unlock()
		return
	}
	d.rcActive = true
	d.rcStop = make(chan struct{})
	stop := d.rcStop
	d.rcMu.Unlock()

	go d.rcLoop(stop)
}

func (d *Drone) stopRCLoop() {
	d.rcMu.Lock()
	if !d.rcActive {
		d.rcMu.Unlock()
		return
	}
	d.rcActive = false
	d.rcValues = [4]int{}
	stop := d.rcStop
	d.rcMu.Unlock()
	close(stop)
}

// rcLoop applies the last-sent RC stick values at 20Hz until stopped
// or the drone lands.
func (d *Drone) rcLoop(stop chan struct{}) {
	ticker := time.NewTicker(rcInterval)
	defer ticker.Stop()
	dtSeconds := rcInterval.Seconds()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			d.rcMu.Lock()
			lr, fb, ud, yawRate := d.rcValues[0], d.rcValues[1], d.rcValues[2], d.rcValues[3]
			d.rcMu.Unlock()

			d.mu.Lock()
			if !d.isFlying {
				d.mu.Unlock()
				return
			}
			rad := d.yaw * math.Pi / 180
			scale := float64(d.cruiseSpeed) * dtSeconds / 100.0

			d.x += (float64(fb)*math.Cos(rad) - float64(lr)*math.Sin(rad)) * scale
			d.y += (float64(fb)*math.Sin(rad) + float64(lr)*math.Cos(rad)) * scale
			d.z = math.Max(0, d.z+float64(ud)*scale)
			d.yaw = math.Mod(d.yaw+float64(yawRate)*0.9*dtSeconds, 360)
			if d.yaw < 0 {
				d.yaw += 360
			}
			d.speed = math.Sqrt(float64(lr*lr+fb*fb+ud*ud)) * float64(d.cruiseSpeed) / 100
			d.drainBatteryLocked(dtSeconds)
			d.mu.Unlock()
			d.recordSnapshot()
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
