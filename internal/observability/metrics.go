package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SimulationCollector bundles Prometheus metrics for observation batches and
// exposes them over HTTP.
type SimulationCollector struct {
	gatherer prometheus.Gatherer

	Observations        *prometheus.CounterVec
	ObservationDuration *prometheus.HistogramVec
	BatchSize           *prometheus.HistogramVec
}

// NewSimulationCollector registers simulation Prometheus metrics against the
// provided registerer, defaulting to the global Prometheus registry when nil.
func NewSimulationCollector(reg prometheus.Registerer) (*SimulationCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	observations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "starsim_observations_total",
		Help: "Total number of observed epochs, labeled by observation kind (flux, rv, draw).",
	}, []string{"kind"})
	observations, err := registerCounterVec(reg, observations, "starsim_observations_total")
	if err != nil {
		return nil, err
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "starsim_observation_duration_seconds",
		Help:    "Wall-clock duration of one observation call in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"kind"})
	durations, err = registerHistogramVec(reg, durations, "starsim_observation_duration_seconds")
	if err != nil {
		return nil, err
	}

	batchSize := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "starsim_observation_batch_epochs",
		Help:    "Number of epochs requested per observation call.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	}, []string{"kind"})
	batchSize, err = registerHistogramVec(reg, batchSize, "starsim_observation_batch_epochs")
	if err != nil {
		return nil, err
	}

	return &SimulationCollector{
		gatherer:            gatherer,
		Observations:        observations,
		ObservationDuration: durations,
		BatchSize:           batchSize,
	}, nil
}

// ObservationCompleted records one finished observation call covering epochs
// time samples.
func (c *SimulationCollector) ObservationCompleted(kind string, epochs int, d time.Duration) {
	if c == nil {
		return
	}
	if c.Observations != nil {
		c.Observations.WithLabelValues(kind).Add(float64(epochs))
	}
	if c.ObservationDuration != nil {
		c.ObservationDuration.WithLabelValues(kind).Observe(d.Seconds())
	}
	if c.BatchSize != nil {
		c.BatchSize.WithLabelValues(kind).Observe(float64(epochs))
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimulationCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
