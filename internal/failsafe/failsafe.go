// Package failsafe watches a drone's vitals and intervenes — landing
// or cutting power — before a low battery, overheating, or a stalled
// command channel turns into a crash. It narrows a flight-controller
// framework with a dozen emergency types and multi-step recovery
// procedures down to the three conditions a single quadcopter in this
// system actually has.
package failsafe

import (
	"context"
	"sync"
	"time"

	"github.com/asgard/aegis/internal/drone"
	"github.com/asgard/aegis/pkg/utils"
)

// Condition names a triggered emergency, for logs and the façade's
// status endpoint.
type Condition string

const (
	ConditionNone          Condition = "none"
	ConditionLowBattery    Condition = "low_battery"
	ConditionOverheat      Condition = "overheat"
	ConditionCommsTimeout  Condition = "comms_timeout"
)

// Config holds the thresholds the monitor watches. Zero values are
// replaced with sane defaults by New.
type Config struct {
	MinSafeBattery      int           // percent; at or below this, land
	MaxTemperature      float64       // celsius; at or above, land
	MaxTimeWithoutComms time.Duration // no command received; emergency-stop
	CheckInterval        time.Duration
}

func (c *Config) setDefaults() {
	if c.MinSafeBattery == 0 {
		c.MinSafeBattery = 15
	}
	if c.MaxTemperature == 0 {
		c.MaxTemperature = 43.0
	}
	if c.MaxTimeWithoutComms == 0 {
		c.MaxTimeWithoutComms = 5 * time.Minute
	}
	if c.CheckInterval == 0 {
		c.CheckInterval = 100 * time.Millisecond
	}
}

// Monitor watches one drone's state on an interval and triggers the
// matching recovery action the first time a condition is seen.
type Monitor struct {
	d      drone.Drone
	config Config

	mu        sync.RWMutex
	lastComms time.Time
	active    Condition
}

// New returns a monitor for d. Call Touch whenever a live command is
// received from an operator, so comms-loss detection has a baseline.
func New(d drone.Drone, config Config) *Monitor {
	config.setDefaults()
	return &Monitor{d: d, config: config, lastComms: time.Now(), active: ConditionNone}
}

// Touch records that a command was just received, resetting the
// comms-timeout clock.
func (m *Monitor) Touch() {
	m.mu.Lock()
	m.lastComms = time.Now()
	m.mu.Unlock()
}

// Active returns the currently triggered condition, or ConditionNone.
func (m *Monitor) Active() Condition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// Run blocks, checking the drone's vitals every CheckInterval,
// until ctx is canceled.
func (m *Monitor) Run(ctx context.Context) error {
	utils.Logger.Info("failsafe: monitor started")
	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			utils.Logger.Info("failsafe: monitor stopped")
			return ctx.Err()
		case <-ticker.C:
			m.check()
		}
	}
}

func (m *Monitor) check() {
	state := m.d.GetState()
	if !state.IsFlying {
		m.clear()
		return
	}

	m.mu.RLock()
	sinceComms := time.Since(m.lastComms)
	already := m.active
	m.mu.RUnlock()

	switch {
	case state.Battery <= m.config.MinSafeBattery:
		m.trigger(ConditionLowBattery, already, func() {
			utils.Logger.WithField("battery", state.Battery).Warn("failsafe: low battery, landing")
			if err := m.d.Land(); err != nil {
				utils.Logger.WithError(err).Error("failsafe: land failed")
			}
		})

	case state.Temperature >= m.config.MaxTemperature:
		m.trigger(ConditionOverheat, already, func() {
			utils.Logger.WithField("temperature", state.Temperature).Warn("failsafe: overheating, landing")
			if err := m.d.Land(); err != nil {
				utils.Logger.WithError(err).Error("failsafe: land failed")
			}
		})

	case sinceComms > m.config.MaxTimeWithoutComms:
		m.trigger(ConditionCommsTimeout, already, func() {
			utils.Logger.WithField("since_comms", sinceComms).Error("failsafe: comms lost, emergency stop")
			m.d.EmergencyStop()
		})

	default:
		m.clear()
	}
}

// trigger runs action exactly once per condition onset.
func (m *Monitor) trigger(c, already Condition, action func()) {
	if already == c {
		return
	}
	m.mu.Lock()
	m.active = c
	m.mu.Unlock()
	action()
}

func (m *Monitor) clear() {
	m.mu.Lock()
	m.active = ConditionNone
	m.mu.Unlock()
}
