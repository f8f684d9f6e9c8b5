package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestObservationCompletedRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSimulationCollector(reg)
	if err != nil {
		t.Fatalf("NewSimulationCollector: %v", err)
	}

	collector.ObservationCompleted("flux", 12, 25*time.Millisecond)
	collector.ObservationCompleted("flux", 3, 5*time.Millisecond)

	if got := testutil.ToFloat64(collector.Observations.WithLabelValues("flux")); got != 15 {
		t.Fatalf("starsim_observations_total{kind=flux} = %v, want 15", got)
	}
	if count := histogramSampleCount(t, reg, "starsim_observation_duration_seconds", map[string]string{
		"kind": "flux",
	}); count != 2 {
		t.Fatalf("starsim_observation_duration_seconds sample_count = %d, want 2", count)
	}
}

func TestCollectorReuseOnDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewSimulationCollector(reg)
	if err != nil {
		t.Fatalf("first NewSimulationCollector: %v", err)
	}
	second, err := NewSimulationCollector(reg)
	if err != nil {
		t.Fatalf("second NewSimulationCollector: %v", err)
	}
	first.ObservationCompleted("rv", 1, time.Millisecond)
	if got := testutil.ToFloat64(second.Observations.WithLabelValues("rv")); got != 1 {
		t.Fatalf("shared counter = %v, want 1", got)
	}
}

func TestNilCollectorsAreSafe(t *testing.T) {
	var sim *SimulationCollector
	sim.ObservationCompleted("flux", 1, time.Second)

	var spots *SpotCollector
	spots.SetSpotsAlive(3)
	spots.IncInjected()
	spots.IncRejected()
	spots.IncExhausted()
	spots.ObserveMaintenance(time.Millisecond)
	if spots.Gatherer() != nil {
		t.Fatalf("nil collector Gatherer() should be nil")
	}
}

func TestSpotCollectorCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSpotCollector(reg)
	if err != nil {
		t.Fatalf("NewSpotCollector: %v", err)
	}
	collector.SetSpotsAlive(4)
	collector.IncInjected()
	collector.IncInjected()
	collector.IncRejected()
	collector.IncExhausted()
	collector.ObserveMaintenance(2 * time.Millisecond)

	if got := testutil.ToFloat64(collector.SpotsAlive); got != 4 {
		t.Fatalf("starsim_spots_alive = %v, want 4", got)
	}
	if got := testutil.ToFloat64(collector.SpotsInjected); got != 2 {
		t.Fatalf("starsim_spots_injected_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.SpotsRejected); got != 1 {
		t.Fatalf("starsim_spots_rejected_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.FillFactorExhausted); got != 1 {
		t.Fatalf("starsim_fill_factor_exhausted_total = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "starsim_fill_factor_check_duration_seconds", nil); count != 1 {
		t.Fatalf("maintenance sample_count = %d, want 1", count)
	}
}

func TestMetricsHandlerExposesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	sim, err := NewSimulationCollector(reg)
	if err != nil {
		t.Fatalf("NewSimulationCollector: %v", err)
	}
	spots, err := NewSpotCollector(reg)
	if err != nil {
		t.Fatalf("NewSpotCollector: %v", err)
	}
	sim.ObservationCompleted("rv", 7, time.Second)
	spots.SetSpotsAlive(9)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	sim.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"starsim_observations_total",
		"starsim_observation_duration_seconds",
		"starsim_observation_batch_epochs",
		"starsim_spots_alive 9",
		"starsim_spots_injected_total",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
