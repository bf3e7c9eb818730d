package metrics

import (
	"strings"
	"testing"

	dto "github.com/prometheus/client_model/go"
)

func TestSetRegimeIsExclusive(t *testing.T) {
	m := Get()
	m.SetRegime("avoiding")

	for _, regime := range []string{"none", "clear", "avoiding", "critical"} {
		g := m.AvoidanceRegime.WithLabelValues(regime)
		var metric dto.Metric
		if err := g.Write(&metric); err != nil {
			t.Fatalf("Write(%s): %v", regime, err)
		}
		want := 0.0
		if regime == "avoiding" {
			want = 1.0
		}
		if metric.GetGauge().GetValue() != want {
			t.Errorf("regime %s: expected %.0f, got %.0f", regime, want, metric.GetGauge().GetValue())
		}
	}
}

func TestObserveBatteryDrainUpdatesRollingStats(t *testing.T) {
	m := Get()
	for i := 0; i < 10; i++ {
		m.ObserveBatteryDrain(0.5)
	}

	var mean dto.Metric
	if err := m.BatteryDrainMean.Write(&mean); err != nil {
		t.Fatalf("Write mean: %v", err)
	}
	if got := mean.GetGauge().GetValue(); got < 0.4 || got > 0.6 {
		t.Errorf("expected mean near 0.5, got %.3f", got)
	}
}

func TestGetReturnsSameSingletonAcrossCalls(t *testing.T) {
	a, b := Get(), Get()
	if a != b {
		t.Error("expected Get() to return the same process-wide instance")
	}
}

func TestAllSeriesNamespacedDrone(t *testing.T) {
	m := Get()
	names := []string{
		m.BatteryPercent.Desc().String(),
		m.AltitudeCM.Desc().String(),
		m.TemperatureC.Desc().String(),
	}
	for _, n := range names {
		if !strings.Contains(n, "drone_") {
			t.Errorf("expected drone_ namespaced series, got %s", n)
		}
	}
}
