package core

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/signalsfoundry/starspot-simulator/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObservationMetrics struct {
	mu     sync.Mutex
	kinds  []string
	epochs int
}

func (f *fakeObservationMetrics) ObservationCompleted(kind string, epochs int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kinds = append(f.kinds, kind)
	f.epochs += epochs
}

type fakeSpotMetrics struct {
	mu          sync.Mutex
	alive       int
	injected    int
	rejected    int
	exhausted   int
	maintenance int
}

func (f *fakeSpotMetrics) ObserveMaintenance(time.Duration) { f.mu.Lock(); f.maintenance++; f.mu.Unlock() }
func (f *fakeSpotMetrics) SetSpotsAlive(n int)              { f.mu.Lock(); f.alive = n; f.mu.Unlock() }
func (f *fakeSpotMetrics) IncInjected()                     { f.mu.Lock(); f.injected++; f.mu.Unlock() }
func (f *fakeSpotMetrics) IncRejected()                     { f.mu.Lock(); f.rejected++; f.mu.Unlock() }
func (f *fakeSpotMetrics) IncExhausted()                    { f.mu.Lock(); f.exhausted++; f.mu.Unlock() }

func newTestSimulation(t *testing.T, cfg model.SimulationConfig, opts ...Option) *Simulation {
	t.Helper()
	sim, err := NewSimulation(cfg, opts...)
	require.NoError(t, err)
	return sim
}

func withTargetFillFactor(cfg model.SimulationConfig, target float64) model.SimulationConfig {
	cfg.Star.MinimumFillFactor = nil
	cfg.Star.TargetFillFactor = &target
	return cfg
}

func TestQuietStarFluxIsUnity(t *testing.T) {
	sim := newTestSimulation(t, model.SunConfig())
	flux, err := sim.ObserveFlux(context.Background(), []float64{0, 3.5, 12}, model.VisibleBand)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1}, flux)
}

func TestQuietStarHasZeroRV(t *testing.T) {
	sim := newTestSimulation(t, model.SunConfig())
	assert.False(t, math.IsNaN(sim.ZeroRV()))

	obs, err := sim.ObserveRV(context.Background(), []float64{0, 1}, model.VisibleBand)
	require.NoError(t, err)
	require.Len(t, obs, 2)
	for i, o := range obs {
		assert.Equal(t, float64(i), o.Time)
		assert.Equal(t, 0.0, o.RV)
		assert.Len(t, o.Bisector, BisectorSamples)
	}
}

func TestSpotBehindStarDoesNotDimIt(t *testing.T) {
	sim := newTestSimulation(t, model.ExampleConfig())
	flux, err := sim.ObserveFlux(context.Background(), []float64{0}, model.VisibleBand)
	require.NoError(t, err)
	assert.Equal(t, 1.0, flux[0])
}

func TestSpotFacingObserverDimsStar(t *testing.T) {
	sim := newTestSimulation(t, model.ExampleConfig())
	period := sim.Star().Period
	flux, err := sim.ObserveFlux(context.Background(), []float64{period / 2}, model.VisibleBand)
	require.NoError(t, err)
	assert.Less(t, flux[0], 1.0)
	assert.Greater(t, flux[0], 0.97)
}

func TestSpotCrossingShiftsRV(t *testing.T) {
	sim := newTestSimulation(t, model.ExampleConfig())
	period := sim.Star().Period
	obs, err := sim.ObserveRV(context.Background(), []float64{period/2 - period/8, period/2 + period/8}, model.VisibleBand)
	require.NoError(t, err)
	// On the approaching half the spot hides blueshifted light.
	assert.Greater(t, obs[0].RV, obs[1].RV)
	assert.Positive(t, obs[0].RV)
	assert.Negative(t, obs[1].RV)
}

func TestGaussianFitterOverride(t *testing.T) {
	sim := newTestSimulation(t, model.SunConfig(), WithRVFitter(GaussianFit{}))
	obs, err := sim.ObserveRV(context.Background(), []float64{0}, model.VisibleBand)
	require.NoError(t, err)
	assert.Equal(t, 0.0, obs[0].RV)
}

func TestObservationsRejectBadInput(t *testing.T) {
	sim := newTestSimulation(t, model.SunConfig())
	ctx := context.Background()

	_, err := sim.ObserveFlux(ctx, []float64{0}, model.WavelengthBand{})
	assert.Error(t, err)
	_, err = sim.ObserveFlux(ctx, []float64{0}, model.WavelengthBand{Min: 5e-7, Max: 5e-7})
	assert.Error(t, err)
	_, err = sim.ObserveRV(ctx, []float64{math.NaN()}, model.VisibleBand)
	assert.Error(t, err)

	flux, err := sim.ObserveFlux(ctx, nil, model.VisibleBand)
	require.NoError(t, err)
	assert.Empty(t, flux)
}

func TestObservationHonoursCancellation(t *testing.T) {
	sim := newTestSimulation(t, withTargetFillFactor(model.SunConfig(), 0.01))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sim.ObserveFlux(ctx, []float64{0}, model.VisibleBand)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheckFillFactorReachesTarget(t *testing.T) {
	metrics := &fakeSpotMetrics{}
	cfg := withTargetFillFactor(model.SunConfig(), 0.01)
	cfg.Seed = model.FixedSeed(42)
	sim := newTestSimulation(t, cfg, WithSpotMetrics(metrics))

	require.NoError(t, sim.CheckFillFactor(context.Background(), 0))
	assert.GreaterOrEqual(t, sim.FillFactor(0), 0.01)

	spots := sim.Spots()
	require.NotEmpty(t, spots)
	for i, a := range spots {
		assert.True(t, a.Mortality.Mortal)
		assert.Equal(t, 0.0, a.Mortality.Lifetime.Lower)
		assert.Less(t, a.FillFactor(), maxDynamicFillFactor)
		for j := i + 1; j < len(spots); j++ {
			b := &spots[j]
			assert.False(t, a.CollidesWith(b), "%s overlaps %s", a.ID, b.ID)
		}
	}
	assert.Equal(t, len(spots), metrics.injected)
	assert.Equal(t, len(spots), metrics.alive)
	assert.Equal(t, 1, metrics.maintenance)

	// A second check at the same time has nothing to do.
	require.NoError(t, sim.CheckFillFactor(context.Background(), 0))
	assert.Len(t, sim.Spots(), len(spots))
}

func TestInjectedSpotsAreReproducible(t *testing.T) {
	cfg := withTargetFillFactor(model.SunConfig(), 0.005)
	cfg.Seed = model.FixedSeed(7)
	a := newTestSimulation(t, cfg)
	b := newTestSimulation(t, cfg)
	require.NoError(t, a.CheckFillFactor(context.Background(), 1))
	require.NoError(t, b.CheckFillFactor(context.Background(), 1))

	as, bs := a.Spots(), b.Spots()
	require.Equal(t, len(as), len(bs))
	for i := range as {
		assert.Equal(t, as[i].Latitude, bs[i].Latitude)
		assert.Equal(t, as[i].Longitude, bs[i].Longitude)
		assert.Equal(t, as[i].Radius, bs[i].Radius)
		assert.Equal(t, as[i].Mortality, bs[i].Mortality)
	}
	assert.Equal(t, model.Seed{Value: 7}, a.Seed())
}

func TestEntropySeedIsResolved(t *testing.T) {
	cfg := model.SunConfig()
	cfg.Seed = model.EntropySeed()
	sim := newTestSimulation(t, cfg)
	assert.True(t, sim.Seed().Entropy)

	sun := newTestSimulation(t, model.SunConfig())
	assert.Equal(t, model.Seed{Value: model.DefaultSeed}, sun.Seed())
}

func TestFillFactorExhaustion(t *testing.T) {
	cfg := withTargetFillFactor(model.SunConfig(), 0.01)
	metrics := &fakeSpotMetrics{}

	sim := newTestSimulation(t, cfg, WithMaxInjectionAttempts(1), WithSpotMetrics(metrics))
	err := sim.CheckFillFactor(context.Background(), 0)
	require.ErrorIs(t, err, ErrFillFactorUnreachable)
	assert.Equal(t, 1, metrics.exhausted)

	// Without strict mode observations still succeed.
	flux, err := sim.ObserveFlux(context.Background(), []float64{0}, model.VisibleBand)
	require.NoError(t, err)
	require.Len(t, flux, 1)

	strict := newTestSimulation(t, cfg, WithMaxInjectionAttempts(1), WithStrictFillFactor())
	flux, err = strict.ObserveFlux(context.Background(), []float64{0}, model.VisibleBand)
	require.ErrorIs(t, err, ErrFillFactorUnreachable)
	assert.Len(t, flux, 1, "values are still returned alongside the error")
}

func TestAddAndClearSpots(t *testing.T) {
	metrics := &fakeSpotMetrics{alive: -1}
	sim := newTestSimulation(t, model.ExampleConfig(), WithSpotMetrics(metrics))
	require.Len(t, sim.Spots(), 1)
	assert.Equal(t, "spot-1", sim.Spots()[0].ID)

	spot, err := sim.AddSpot(model.SpotConfig{Latitude: -20, Longitude: 10, FillFactor: 0.002})
	require.NoError(t, err)
	assert.Equal(t, "spot-2", spot.ID)
	assert.InDelta(t, 0.012, sim.FillFactor(0), 1e-12)

	_, err = sim.AddSpot(model.SpotConfig{FillFactor: -1})
	assert.Error(t, err)

	sim.ClearSpots()
	assert.Empty(t, sim.Spots())
	assert.Zero(t, sim.FillFactor(0))
	assert.Equal(t, 0, metrics.alive)
}

func TestSpotsAreDetachedCopies(t *testing.T) {
	sim := newTestSimulation(t, model.ExampleConfig())
	ctx := context.Background()
	_, err := sim.ObserveFlux(ctx, []float64{0}, model.VisibleBand)
	require.NoError(t, err)

	before := sim.Spots()
	require.Len(t, before, 1)
	visible := before[0].Intensity()
	require.Positive(t, visible)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := sim.ObserveFlux(ctx, []float64{0}, model.WavelengthBand{Min: 10000e-10, Max: 20000e-10})
		assert.NoError(t, err)
	}()
	for range 50 {
		for _, spot := range sim.Spots() {
			_ = spot.Intensity()
		}
	}
	wg.Wait()

	assert.Equal(t, visible, before[0].Intensity(), "a copy keeps the band it was taken in")
	assert.Greater(t, sim.Spots()[0].Intensity(), visible)
	assert.Equal(t, 1, sim.SpotCount())
}

func TestObservationMetrics(t *testing.T) {
	metrics := &fakeObservationMetrics{}
	sim := newTestSimulation(t, model.SunConfig(), WithObservationMetrics(metrics))
	ctx := context.Background()

	_, err := sim.ObserveFlux(ctx, []float64{0, 1, 2}, model.VisibleBand)
	require.NoError(t, err)
	_, err = sim.ObserveRV(ctx, []float64{0}, model.VisibleBand)
	require.NoError(t, err)

	assert.Equal(t, []string{"flux", "rv"}, metrics.kinds)
	assert.Equal(t, 4, metrics.epochs)
}

func TestConcurrentObservationsAgree(t *testing.T) {
	sim := newTestSimulation(t, model.ExampleConfig(), WithWorkers(2))
	times := Linspace(0, sim.Star().Period, 8)
	want, err := sim.ObserveFlux(context.Background(), times, model.VisibleBand)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := sim.ObserveFlux(context.Background(), times, model.VisibleBand)
			if err != nil {
				errs <- err
				return
			}
			for j := range want {
				if got[j] != want[j] {
					errs <- errors.New("flux differs between concurrent calls")
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestDrawing(t *testing.T) {
	sim := newTestSimulation(t, model.ExampleConfig())
	ctx := context.Background()

	assert.Error(t, sim.DrawRGBA(ctx, 0, make([]byte, 10)))
	assert.Error(t, sim.DrawBGR(ctx, 0, make([]byte, 10)))

	// Column 500 is y ≈ 0 and row 250 is z ≈ 0.5, where the spot sits at
	// half a period.
	const col, row = 500, 250
	quiet, err := sim.Image(ctx, 0)
	require.NoError(t, err)
	spotted, err := sim.Image(ctx, sim.Star().Period/2)
	require.NoError(t, err)

	q := quiet.RGBAAt(col, row)
	s := spotted.RGBAAt(col, row)
	assert.Positive(t, q.B)
	assert.Zero(t, s.B)
	assert.Less(t, s.R, q.R)
	assert.Equal(t, uint8(255), s.A)

	corner := quiet.RGBAAt(0, 0)
	assert.Equal(t, uint8(0), corner.R)
	assert.Equal(t, uint8(255), corner.A)

	bgr := make([]byte, 3*ImageSize*ImageSize)
	require.NoError(t, sim.DrawBGR(ctx, sim.Star().Period/2, bgr))
	i := 3 * (row*ImageSize + col)
	assert.Equal(t, []byte{s.B, s.G, s.R}, bgr[i:i+3])
}
