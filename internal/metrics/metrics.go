// Package metrics exposes the drone control loop's vitals as
// Prometheus series, namespaced "drone", plus a small rolling
// statistics summary of battery drain rate.
package metrics

import (
	"sync"

	"github.com/montanaflynn/stats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus series the control loop publishes to.
type Metrics struct {
	BatteryPercent   prometheus.Gauge
	AltitudeCM       prometheus.Gauge
	TemperatureC     prometheus.Gauge
	WaypointsReached prometheus.Counter
	WaypointsSkipped prometheus.Counter
	AvoidanceRegime  *prometheus.GaugeVec
	HardwareCmdErrs  prometheus.Counter
	BatteryDrainMean prometheus.Gauge
	BatteryDrainStd  prometheus.Gauge

	mu           sync.Mutex
	drainSamples []float64
}

var (
	global     *Metrics
	globalOnce sync.Once
)

// Get returns the process-wide metrics registry, creating it on first
// use.
func Get() *Metrics {
	globalOnce.Do(func() {
		global = newMetrics()
	})
	return global
}

func newMetrics() *Metrics {
	m := &Metrics{}

	m.BatteryPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "drone",
		Name:      "battery_percent",
		Help:      "Current battery level, 0-100.",
	})
	m.AltitudeCM = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "drone",
		Name:      "altitude_cm",
		Help:      "Current altitude in centimeters.",
	})
	m.TemperatureC = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "drone",
		Name:      "temperature_celsius",
		Help:      "Current onboard temperature.",
	})
	m.WaypointsReached = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "drone",
		Name:      "waypoints_reached_total",
		Help:      "Total waypoints reached by the autopilot.",
	})
	m.WaypointsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "drone",
		Name:      "waypoints_skipped_total",
		Help:      "Total waypoints skipped (go_to failed) by the autopilot.",
	})
	m.AvoidanceRegime = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "drone",
		Name:      "avoidance_regime",
		Help:      "1 if the navigator is currently in the labeled regime, else 0.",
	}, []string{"regime"})
	m.HardwareCmdErrs = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "drone",
		Name:      "hardware_command_errors_total",
		Help:      "Total hardware commands that were not acknowledged.",
	})
	m.BatteryDrainMean = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "drone",
		Name:      "battery_drain_rate_mean",
		Help:      "Rolling mean of percent-per-second battery drain samples.",
	})
	m.BatteryDrainStd = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "drone",
		Name:      "battery_drain_rate_stddev",
		Help:      "Rolling standard deviation of percent-per-second battery drain samples.",
	})

	return m
}

// SetRegime marks which avoidance regime is currently active,
// clearing the other three.
func (m *Metrics) SetRegime(active string) {
	for _, r := range []string{"none", "clear", "avoiding", "critical"} {
		v := 0.0
		if r == active {
			v = 1.0
		}
		m.AvoidanceRegime.WithLabelValues(r).Set(v)
	}
}

const maxDrainSamples = 200

// ObserveBatteryDrain records a percent-per-second drain sample and
// refreshes the rolling mean/stddev gauges.
func (m *Metrics) ObserveBatteryDrain(ratePerSecond float64) {
	m.mu.Lock()
	m.drainSamples = append(m.drainSamples, ratePerSecond)
	if len(m.drainSamples) > maxDrainSamples {
		m.drainSamples = m.drainSamples[len(m.drainSamples)-maxDrainSamples:]
	}
	samples := append([]float64(nil), m.drainSamples...)
	m.mu.Unlock()

	if mean, err := stats.Mean(samples); err == nil {
		m.BatteryDrainMean.Set(mean)
	}
	if sd, err := stats.StandardDeviation(samples); err == nil {
		m.BatteryDrainStd.Set(sd)
	}
}
