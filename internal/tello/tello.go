// Package tello drives a real DJI Tello-style quadcopter over its UDP
// SDK: ASCII commands and "ok"/error acknowledgements on one port,
// semicolon-delimited telemetry packets streamed on another.
package tello

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/asgard/aegis/internal/drone"
	"github.com/asgard/aegis/internal/metrics"
	"github.com/asgard/aegis/pkg/utils"
)

// Default SDK endpoint. The aircraft always listens here once it has
// joined (or hosts) the control Wi-Fi network.
const (
	DeviceIP   = "192.168.10.1"
	CmdPort    = 8889
	StatePort  = 8890
	cmdTimeout = 10 * time.Second
	stateRead  = 2 * time.Second
)

var tracer = otel.Tracer("github.com/asgard/aegis/internal/tello")

// Drone talks to a physical aircraft over the two UDP sockets its SDK
// exposes. LocalAddr lets tests and multi-NIC hosts pick the binding
// interface; the zero value binds all interfaces.
type Drone struct {
	LocalAddr string

	mu      sync.Mutex
	cmdConn *net.UDPConn
	stConn  *net.UDPConn
	state   drone.State
	running bool
	stopCh  chan struct{}
}

// New returns a Tello backend bound to localAddr ("" for all
// interfaces).
func New(localAddr string) *Drone {
	return &Drone{LocalAddr: localAddr, state: drone.State{Temperature: 25.0}}
}

var _ drone.Drone = (*Drone)(nil)

func (d *Drone) Connect(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "tello.Connect")
	defer span.End()

	cmdAddr := &net.UDPAddr{IP: net.ParseIP(d.LocalAddr), Port: CmdPort}
	if d.LocalAddr == "" {
		cmdAddr = &net.UDPAddr{Port: CmdPort}
	}
	cmdConn, err := net.ListenUDP("udp", cmdAddr)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return &drone.OpError{Op: "connect", Err: err}
	}

	stAddr := &net.UDPAddr{Port: StatePort}
	if d.LocalAddr != "" {
		stAddr = &net.UDPAddr{IP: net.ParseIP(d.LocalAddr), Port: StatePort}
	}
	stConn, err := net.ListenUDP("udp", stAddr)
	if err != nil {
		cmdConn.Close()
		span.SetStatus(codes.Error, err.Error())
		return &drone.OpError{Op: "connect", Err: err}
	}

	d.mu.Lock()
	d.cmdConn = cmdConn
	d.stConn = stConn
	d.mu.Unlock()

	resp, err := d.sendCommand(ctx, "command", true)
	if err != nil || resp == "" {
		cmdConn.Close()
		stConn.Close()
		metrics.Get().HardwareCmdErrs.Inc()
		span.SetStatus(codes.Error, "no ack on handshake")
		return &drone.OpError{Op: "connect", Err: drone.ErrUnreachable}
	}

	d.mu.Lock()
	d.running = true
	d.stopCh = make(chan struct{})
	d.state.IsConnected = true
	stop := d.stopCh
	d.mu.Unlock()

	go d.stateListener(stop)
	utils.Logger.Info("tello: connected")
	return nil
}

func (d *Drone) Disconnect() {
	d.mu.Lock()
	d.running = false
	d.state.IsConnected = false
	cmdConn, stConn, stop := d.cmdConn, d.stConn, d.stopCh
	d.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if cmdConn != nil {
		cmdConn.Close()
	}
	if stConn != nil {
		stConn.Close()
	}
	utils.Logger.Info("tello: disconnected")
}

func (d *Drone) Takeoff() error {
	resp, err := d.sendCommand(context.Background(), "takeoff", true)
	if err != nil || !isOK(resp) {
		metrics.Get().HardwareCmdErrs.Inc()
		return &drone.OpError{Op: "takeoff", Err: drone.ErrUnreachable}
	}
	d.mu.Lock()
	d.state.IsFlying = true
	d.mu.Unlock()
	return nil
}

func (d *Drone) Land() error {
	resp, err := d.sendCommand(context.Background(), "land", true)
	if err != nil || !isOK(resp) {
		metrics.Get().HardwareCmdErrs.Inc()
		return &drone.OpError{Op: "land", Err: drone.ErrUnreachable}
	}
	d.mu.Lock()
	d.state.IsFlying = false
	d.mu.Unlock()
	return nil
}

func (d *Drone) EmergencyStop() {
	_, _ = d.sendCommand(context.Background(), "emergency", true)
	d.mu.Lock()
	d.state.IsFlying = false
	d.mu.Unlock()
	utils.Logger.Warn("tello: EMERGENCY STOP")
}

func (d *Drone) Move(direction string, distanceCM int) error {
	switch direction {
	case drone.Forward, drone.Back, drone.Left, drone.Right, drone.Up, drone.Down:
	default:
		return &drone.OpError{Op: "move", Err: drone.ErrUnknownDirection}
	}
	distanceCM = clampInt(distanceCM, 20, 500)
	resp, err := d.sendCommand(context.Background(), fmt.Sprintf("%s %d", direction, distanceCM), true)
	if err != nil || !isOK(resp) {
		metrics.Get().HardwareCmdErrs.Inc()
		return &drone.OpError{Op: "move", Err: drone.ErrUnreachable}
	}
	return nil
}

func (d *Drone) Rotate(degrees int) error {
	cmd := fmt.Sprintf("cw %d", abs(degrees))
	if degrees < 0 {
		cmd = fmt.Sprintf("ccw %d", abs(degrees))
	}
	resp, err := d.sendCommand(context.Background(), cmd, true)
	if err != nil || !isOK(resp) {
		metrics.Get().HardwareCmdErrs.Inc()
		return &drone.OpError{Op: "rotate", Err: drone.ErrUnreachable}
	}
	return nil
}

func (d *Drone) SetSpeed(speedCMS int) error {
	speedCMS = clampInt(speedCMS, 10, 100)
	resp, err := d.sendCommand(context.Background(), fmt.Sprintf("speed %d", speedCMS), true)
	if err != nil || !isOK(resp) {
		metrics.Get().HardwareCmdErrs.Inc()
		return &drone.OpError{Op: "set_speed", Err: drone.ErrUnreachable}
	}
	return nil
}

func (d *Drone) SendRC(leftRight, forwardBack, upDown, yaw int) {
	cmd := fmt.Sprintf("rc %d %d %d %d", leftRight, forwardBack, upDown, yaw)
	_, _ = d.sendCommand(context.Background(), cmd, false)
}

func (d *Drone) GetState() drone.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.state
	s.Timestamp = time.Now()
	return s
}

func (d *Drone) GoTo(ctx context.Context, x, y, z, speed int) error {
	speed = clampInt(speed, 10, 100)
	resp, err := d.sendCommand(ctx, fmt.Sprintf("go %d %d %d %d", x, y, z, speed), true)
	if err != nil || !isOK(resp) {
		metrics.Get().HardwareCmdErrs.Inc()
		return &drone.OpError{Op: "go_to", Err: drone.ErrUnreachable}
	}
	return nil
}

// sendCommand writes cmd to the aircraft's command port. When wait is
// true it blocks (bounded by cmdTimeout) for the ASCII acknowledgement;
// "rc" style streaming commands pass wait=false since the SDK never
// answers them.
func (d *Drone) sendCommand(ctx context.Context, cmd string, wait bool) (string, error) {
	_, span := tracer.Start(ctx, "tello.sendCommand")
	defer span.End()

	d.mu.Lock()
	conn := d.cmdConn
	d.mu.Unlock()
	if conn == nil {
		return "", errors.New("tello: not connected")
	}

	dst := &net.UDPAddr{IP: net.ParseIP(DeviceIP), Port: CmdPort}
	if _, err := conn.WriteToUDP([]byte(cmd), dst); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	if !wait {
		return "ok", nil
	}

	conn.SetReadDeadline(time.Now().Add(cmdTimeout))
	buf := make([]byte, 1024)
	n, _, err := conn.ReadFromUDP(buf)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return string(buf[:n]), nil
}

func isOK(resp string) bool {
	return strings.Contains(strings.ToLower(resp), "ok")
}

// stateListener reads telemetry packets from the state port until
// stopped, folding each into the cached state snapshot.
func (d *Drone) stateListener(stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		d.mu.Lock()
		conn := d.stConn
		d.mu.Unlock()
		if conn == nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(stateRead))
		buf := make([]byte, 1024)
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			continue
		}
		d.parseState(string(buf[:n]))
	}
}

// parseState decodes a "pitch:0;roll:0;yaw:0;...;bat:88;" telemetry
// line into the cached state. Unknown or malformed fields are
// skipped, not fatal.
func (d *Drone) parseState(raw string) {
	fields := make(map[string]string)
	raw = strings.TrimSuffix(strings.TrimSpace(raw), ";")
	for _, pair := range strings.Split(raw, ";") {
		k, v, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		fields[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if v, ok := fields["bat"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			d.state.Battery = n
		}
	}
	if v, ok := fields["h"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			d.state.Z = f
		}
	}
	if v, ok := fields["yaw"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			d.state.Yaw = math.Mod(f, 360)
			if d.state.Yaw < 0 {
				d.state.Yaw += 360
			}
		}
	}
	if v, ok := fields["time"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			d.state.FlightTime = f
		}
	}
	if v, ok := fields["temph"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			d.state.Temperature = f
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

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
