package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SpotCollector exposes metrics for the spot population and fill-factor
// maintenance.
type SpotCollector struct {
	gatherer prometheus.Gatherer

	MaintenanceDuration prometheus.Histogram
	SpotsAlive          prometheus.Gauge
	SpotsInjected       prometheus.Counter
	SpotsRejected       prometheus.Counter
	FillFactorExhausted prometheus.Counter
}

// NewSpotCollector registers spot metrics against the provided registerer.
func NewSpotCollector(reg prometheus.Registerer) (*SpotCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	maintenance := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "starsim_fill_factor_check_duration_seconds",
		Help:    "Duration of one fill-factor maintenance pass over an epoch.",
		Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
	})
	maintenance, err := registerHistogram(reg, maintenance, "starsim_fill_factor_check_duration_seconds")
	if err != nil {
		return nil, err
	}

	alive, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "starsim_spots_alive",
		Help: "Number of spots alive at the most recently maintained epoch.",
	}), "starsim_spots_alive")
	if err != nil {
		return nil, err
	}

	injected, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "starsim_spots_injected_total",
		Help: "Cumulative number of spots injected to maintain the target fill factor.",
	}), "starsim_spots_injected_total")
	if err != nil {
		return nil, err
	}

	rejected, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "starsim_spots_rejected_total",
		Help: "Cumulative number of candidate spots rejected because they collided with a live spot.",
	}), "starsim_spots_rejected_total")
	if err != nil {
		return nil, err
	}

	exhausted, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "starsim_fill_factor_exhausted_total",
		Help: "Number of maintenance passes that gave up before reaching the target fill factor.",
	}), "starsim_fill_factor_exhausted_total")
	if err != nil {
		return nil, err
	}

	return &SpotCollector{
		gatherer:            gatherer,
		MaintenanceDuration: maintenance,
		SpotsAlive:          alive,
		SpotsInjected:       injected,
		SpotsRejected:       rejected,
		FillFactorExhausted: exhausted,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SpotCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveMaintenance records the duration of a fill-factor pass.
func (c *SpotCollector) ObserveMaintenance(d time.Duration) {
	if c == nil || c.MaintenanceDuration == nil {
		return
	}
	c.MaintenanceDuration.Observe(d.Seconds())
}

// SetSpotsAlive updates the alive-spot gauge.
func (c *SpotCollector) SetSpotsAlive(count int) {
	if c == nil || c.SpotsAlive == nil {
		return
	}
	c.SpotsAlive.Set(float64(count))
}

// IncInjected increments the injected-spot counter.
func (c *SpotCollector) IncInjected() {
	if c == nil || c.SpotsInjected == nil {
		return
	}
	c.SpotsInjected.Inc()
}

// IncRejected increments the rejected-candidate counter.
func (c *SpotCollector) IncRejected() {
	if c == nil || c.SpotsRejected == nil {
		return
	}
	c.SpotsRejected.Inc()
}

// IncExhausted increments the retry-exhaustion counter.
func (c *SpotCollector) IncExhausted() {
	if c == nil || c.FillFactorExhausted == nil {
		return
	}
	c.FillFactorExhausted.Inc()
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
