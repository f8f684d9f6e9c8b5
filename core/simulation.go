package core

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"math/rand/v2"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/signalsfoundry/starspot-simulator/internal/logging"
	"github.com/signalsfoundry/starspot-simulator/kb"
	"github.com/signalsfoundry/starspot-simulator/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

const tracerName = "github.com/signalsfoundry/starspot-simulator/core"

// MaxInjectionAttempts bounds the candidate spots drawn by one fill-factor
// check before it gives up.
const MaxInjectionAttempts = 10000

const (
	// fillFactorScale converts a fill-factor distribution draw into a disk
	// fraction.
	fillFactorScale = 9.4e-6
	// maxDynamicFillFactor caps the size of injected spots; larger draws are
	// resampled.
	maxDynamicFillFactor = 0.001
	// seedStream is the second PCG word derived from a fixed seed.
	seedStream = 0x9e3779b97f4a7c15
)

// ErrFillFactorUnreachable reports that a fill-factor check ran out of
// attempts before reaching the target coverage.
var ErrFillFactorUnreachable = errors.New("target fill factor unreachable")

// ObservationMetrics records completed observation calls.
type ObservationMetrics interface {
	ObservationCompleted(kind string, epochs int, d time.Duration)
}

// SpotMetrics records fill-factor maintenance.
type SpotMetrics interface {
	ObserveMaintenance(d time.Duration)
	SetSpotsAlive(n int)
	IncInjected()
	IncRejected()
	IncExhausted()
}

// Simulation owns a star and its spots and produces flux, radial velocity
// and images at requested epochs. It is safe for concurrent use; calls that
// observe or change the spot list are serialised and each call fans out
// across epochs internally.
type Simulation struct {
	// mu serialises observation, drawing and spot-list changes. Spot band
	// intensities are only written under it.
	mu sync.Mutex

	star   *Star
	spots  *kb.Registry[*Spot]
	fitter RVFitter
	zeroRV float64
	seed   model.Seed

	// rngMu guards rng, which feeds dynamic spot injection.
	rngMu sync.Mutex
	rng   rand.Source

	nextSpot int

	log         logging.Logger
	obsMetrics  ObservationMetrics
	spotMetrics SpotMetrics
	tracer      trace.Tracer

	workers     int
	maxAttempts int
	strictFill  bool
}

// Option customises Simulation construction.
type Option func(*Simulation)

// WithLogger sets the structured logger.
func WithLogger(log logging.Logger) Option {
	return func(s *Simulation) {
		if log != nil {
			s.log = log
		}
	}
}

// WithObservationMetrics attaches a recorder for observation calls.
func WithObservationMetrics(m ObservationMetrics) Option {
	return func(s *Simulation) {
		s.obsMetrics = m
	}
}

// WithSpotMetrics attaches a recorder for fill-factor maintenance.
func WithSpotMetrics(m SpotMetrics) Option {
	return func(s *Simulation) {
		s.spotMetrics = m
	}
}

// WithWorkers bounds the goroutines used per call. Values below one mean
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(s *Simulation) {
		s.workers = n
	}
}

// WithRVFitter overrides the fitter selected by the configuration.
func WithRVFitter(f RVFitter) Option {
	return func(s *Simulation) {
		s.fitter = f
	}
}

// WithMaxInjectionAttempts overrides MaxInjectionAttempts.
func WithMaxInjectionAttempts(n int) Option {
	return func(s *Simulation) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithStrictFillFactor makes observations return ErrFillFactorUnreachable
// instead of only logging it.
func WithStrictFillFactor() Option {
	return func(s *Simulation) {
		s.strictFill = true
	}
}

// WithTracer sets the tracer used for observation spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Simulation) {
		if t != nil {
			s.tracer = t
		}
	}
}

// NewSimulation builds the star and the configured spots and measures the
// zero-point velocity of the quiet star.
func NewSimulation(cfg model.SimulationConfig, opts ...Option) (*Simulation, error) {
	star, err := NewStar(cfg.Star)
	if err != nil {
		return nil, fmt.Errorf("NewSimulation: star: %w", err)
	}

	sim := &Simulation{
		star:        star,
		spots:       kb.NewRegistry[*Spot](),
		log:         logging.Noop(),
		tracer:      otel.Tracer(tracerName),
		maxAttempts: MaxInjectionAttempts,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(sim)
		}
	}
	if sim.workers < 1 {
		sim.workers = runtime.GOMAXPROCS(0)
	}
	if sim.fitter == nil {
		if sim.fitter, err = NewRVFitter(cfg.RVFit); err != nil {
			return nil, fmt.Errorf("NewSimulation: %w", err)
		}
	}
	sim.seed, sim.rng = newSource(cfg.Seed)

	sim.spots.Subscribe(func(e kb.Event) {
		if e.Type == kb.EventSpotsCleared && sim.spotMetrics != nil {
			sim.spotMetrics.SetSpotsAlive(0)
		}
	})

	for i, sc := range cfg.Spots {
		if _, err := sim.addSpot(sc); err != nil {
			return nil, fmt.Errorf("NewSimulation: spots[%d]: %w", i, err)
		}
	}

	quiet := star.ProfileQuiet
	sim.zeroRV = sim.fitter.FitRV(quiet.RV(), star.IntegratedCCF)

	sim.log.Info(context.Background(), "simulation constructed",
		logging.Int("grid_size", star.GridSize),
		logging.Float64("equatorial_velocity", star.EquatorialVelocity),
		logging.Float64("flux_quiet", star.FluxQuiet),
		logging.Float64("zero_rv", sim.zeroRV),
		logging.Float64("target_fill_factor", star.TargetFillFactor),
		logging.Int("spots", len(cfg.Spots)),
		logging.String("seed", sim.seed.String()),
	)
	return sim, nil
}

// newSource seeds the injection RNG. An entropy seed is resolved to a
// concrete value so it can be logged and replayed.
func newSource(seed *model.Seed) (model.Seed, rand.Source) {
	resolved := model.Seed{Value: model.DefaultSeed}
	if seed != nil {
		resolved = *seed
	}
	if resolved.Entropy {
		resolved.Value = rand.Uint64()
	}
	return resolved, rand.NewPCG(resolved.Value, resolved.Value^seedStream)
}

// Star returns the simulated star.
func (s *Simulation) Star() *Star { return s.star }

// ZeroRV returns the fitted velocity of the quiet star, which is subtracted
// from every observed velocity.
func (s *Simulation) ZeroRV() float64 { return s.zeroRV }

// Seed returns the seed in use. For entropy seeding Value holds the draw.
func (s *Simulation) Seed() model.Seed { return s.seed }

// Spots returns a copy of every spot, alive or not, in creation order. The
// copies are detached from the simulation, so later observations do not
// change them.
func (s *Simulation) Spots() []Spot {
	s.mu.Lock()
	defer s.mu.Unlock()
	live := s.spots.List()
	out := make([]Spot, len(live))
	for i, spot := range live {
		out[i] = *spot
	}
	return out
}

// SpotCount returns the number of spots, alive or not.
func (s *Simulation) SpotCount() int { return s.spots.Len() }

// AddSpot places an immortal spot described by cfg and returns a copy of it.
func (s *Simulation) AddSpot(cfg model.SpotConfig) (Spot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	spot, err := s.addSpot(cfg)
	if err != nil {
		return Spot{}, err
	}
	return *spot, nil
}

func (s *Simulation) addSpot(cfg model.SpotConfig) (*Spot, error) {
	spot, err := NewSpot(s.star, cfg)
	if err != nil {
		return nil, err
	}
	s.nextSpot++
	spot.ID = fmt.Sprintf("spot-%d", s.nextSpot)
	if err := s.spots.Add(spot.ID, spot); err != nil {
		return nil, err
	}
	s.log.Debug(context.Background(), "spot added",
		logging.String("spot_id", spot.ID),
		logging.Float64("latitude", cfg.Latitude),
		logging.Float64("longitude", cfg.Longitude),
		logging.Float64("fill_factor", cfg.FillFactor),
	)
	return spot, nil
}

// ClearSpots removes every spot.
func (s *Simulation) ClearSpots() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spots.Clear()
}

// FillFactor returns the disk fraction covered by spots alive at t.
func (s *Simulation) FillFactor(t float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ff, _ := s.fillFactorLocked(t)
	return ff
}

func (s *Simulation) fillFactorLocked(t float64) (float64, int) {
	var (
		ff    float64
		alive int
	)
	for _, spot := range s.spots.List() {
		if spot.Alive(t) {
			ff += spot.FillFactor()
			alive++
		}
	}
	return ff, alive
}

// CheckFillFactor injects random mortal spots until the coverage at t
// reaches the star's target. It returns ErrFillFactorUnreachable when the
// attempt budget runs out first.
func (s *Simulation) CheckFillFactor(ctx context.Context, t float64) error {
	ctx, span := s.startSpan(ctx, "simulation/check_fill_factor", attribute.Float64("time", t))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkFillFactorLocked(ctx, t); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (s *Simulation) checkFillFactorLocked(ctx context.Context, t float64) error {
	start := time.Now()
	defer func() {
		if s.spotMetrics != nil {
			s.spotMetrics.ObserveMaintenance(time.Since(start))
		}
	}()

	target := s.star.TargetFillFactor
	current, alive := s.fillFactorLocked(t)
	for attempts := 0; current < target; attempts++ {
		if attempts >= s.maxAttempts {
			s.log.Warn(ctx, "fill factor target not reached",
				logging.Float64("time", t),
				logging.Float64("fill_factor", current),
				logging.Float64("target_fill_factor", target),
				logging.Int("attempts", attempts),
			)
			if s.spotMetrics != nil {
				s.spotMetrics.IncExhausted()
			}
			return fmt.Errorf("%w: reached %.6g of %.6g at t=%g after %d attempts",
				ErrFillFactorUnreachable, current, target, t, attempts)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		candidate, err := s.randomSpot(t)
		if err != nil {
			return err
		}
		if s.collides(candidate) {
			s.log.Debug(ctx, "spot candidate rejected", logging.Float64("time", t))
			if s.spotMetrics != nil {
				s.spotMetrics.IncRejected()
			}
			continue
		}

		candidate.ID = uuid.NewString()
		if err := s.spots.Add(candidate.ID, candidate); err != nil {
			return err
		}
		current += candidate.FillFactor()
		alive++
		s.log.Debug(ctx, "spot injected",
			logging.String("spot_id", candidate.ID),
			logging.Float64("time", t),
			logging.Float64("fill_factor", candidate.FillFactor()),
			logging.Float64("lifetime", candidate.Mortality.Lifetime.Width()),
		)
		if s.spotMetrics != nil {
			s.spotMetrics.IncInjected()
		}
	}
	if s.spotMetrics != nil {
		s.spotMetrics.SetSpotsAlive(alive)
	}
	return nil
}

// randomSpot draws a mortal spot that appears at t.
func (s *Simulation) randomSpot(t float64) (*Spot, error) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()

	star := s.star
	fillFactor := math.NaN()
	for i := 0; i < MaxInjectionAttempts; i++ {
		ff := Sample(star.FillFactorDistribution, s.rng) * fillFactorScale
		if ff > 0 && ff < maxDynamicFillFactor {
			fillFactor = ff
			break
		}
	}
	if math.IsNaN(fillFactor) {
		return nil, fmt.Errorf("%w: fill factor distribution never produced a value in (0, %g)",
			ErrFillFactorUnreachable, maxDynamicFillFactor)
	}
	latitude := math.Max(-90, math.Min(90, Sample(star.LatitudeDistribution, s.rng)))
	longitude := Sample(star.LongitudeDistribution, s.rng)
	lifetime := math.Max(0, Sample(star.LifetimeDistribution, s.rng))

	spot, err := NewSpot(star, model.SpotConfig{
		Latitude:   latitude,
		Longitude:  longitude,
		FillFactor: fillFactor,
	})
	if err != nil {
		return nil, err
	}
	spot.Mortality = Mortality{Mortal: true, Lifetime: Bounds{Lower: t, Upper: t + lifetime}}
	return spot, nil
}

// collides reports whether candidate overlaps any spot whose life overlaps
// the candidate's.
func (s *Simulation) collides(candidate *Spot) bool {
	for _, spot := range s.spots.List() {
		if !lifetimesOverlap(spot.Mortality, candidate.Mortality) {
			continue
		}
		if spot.CollidesWith(candidate) {
			return true
		}
	}
	return false
}

func lifetimesOverlap(a, b Mortality) bool {
	if !a.Mortal || !b.Mortal {
		return true
	}
	return a.Lifetime.Lower <= b.Lifetime.Upper && b.Lifetime.Lower <= a.Lifetime.Upper
}

// prepare maintains the fill factor at every epoch in order and sets the
// band on every spot. It must be called with s.mu held.
func (s *Simulation) prepare(ctx context.Context, times []float64, band model.WavelengthBand) ([]*Spot, error) {
	var fillErr error
	for _, t := range times {
		if err := s.checkFillFactorLocked(ctx, t); err != nil {
			if !errors.Is(err, ErrFillFactorUnreachable) {
				return nil, err
			}
			if fillErr == nil {
				fillErr = err
			}
		}
	}
	spots := s.spots.List()
	for _, spot := range spots {
		spot.SetBand(band)
	}
	if s.strictFill {
		return spots, fillErr
	}
	return spots, nil
}

// ObserveFlux returns the flux relative to the quiet star at each time
// (days) in band (metres).
func (s *Simulation) ObserveFlux(ctx context.Context, times []float64, band model.WavelengthBand) ([]float64, error) {
	if err := validateObservation(times, band); err != nil {
		return nil, fmt.Errorf("ObserveFlux: %w", err)
	}
	ctx, span := s.startSpan(ctx, "simulation/observe_flux",
		attribute.Int("epochs", len(times)),
		attribute.Float64("band.min", band.Min),
		attribute.Float64("band.max", band.Max),
	)
	defer span.End()
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	spots, fillErr := s.prepare(ctx, times, band)
	if spots == nil && fillErr != nil {
		span.RecordError(fillErr)
		return nil, fmt.Errorf("ObserveFlux: %w", fillErr)
	}

	fluxQuiet := s.star.FluxQuiet
	out := make([]float64, len(times))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, t := range times {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var spotFlux float64
			for _, spot := range spots {
				if spot.Alive(t) {
					spotFlux += spot.Flux(t)
				}
			}
			out[i] = (fluxQuiet - spotFlux) / fluxQuiet
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("ObserveFlux: %w", err)
	}

	s.observationDone(ctx, "flux", len(times), time.Since(start))
	if fillErr != nil {
		span.RecordError(fillErr)
		return out, fmt.Errorf("ObserveFlux: %w", fillErr)
	}
	return out, nil
}

// ObserveRV returns the radial velocity and line bisector at each time,
// relative to the quiet star.
func (s *Simulation) ObserveRV(ctx context.Context, times []float64, band model.WavelengthBand) ([]model.Observation, error) {
	if err := validateObservation(times, band); err != nil {
		return nil, fmt.Errorf("ObserveRV: %w", err)
	}
	ctx, span := s.startSpan(ctx, "simulation/observe_rv",
		attribute.Int("epochs", len(times)),
		attribute.Float64("band.min", band.Min),
		attribute.Float64("band.max", band.Max),
	)
	defer span.End()
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	spots, fillErr := s.prepare(ctx, times, band)
	if spots == nil && fillErr != nil {
		span.RecordError(fillErr)
		return nil, fmt.Errorf("ObserveRV: %w", fillErr)
	}

	rv := s.star.ProfileQuiet.RV()
	out := make([]model.Observation, len(times))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, t := range times {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			profile := s.profileAt(t, spots)
			bisector := ComputeBisector(rv, profile)
			floats.AddConst(-s.zeroRV, bisector)
			out[i] = model.Observation{
				Time:     t,
				RV:       s.fitter.FitRV(rv, profile) - s.zeroRV,
				Bisector: bisector,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("ObserveRV: %w", err)
	}

	s.observationDone(ctx, "rv", len(times), time.Since(start))
	if fillErr != nil {
		span.RecordError(fillErr)
		return out, fmt.Errorf("ObserveRV: %w", fillErr)
	}
	return out, nil
}

// profileAt is the disk-integrated line at t: the quiet line minus what the
// alive spots change.
func (s *Simulation) profileAt(t float64, spots []*Spot) []float64 {
	delta := make([]float64, len(s.star.IntegratedCCF))
	for _, spot := range spots {
		if spot.Alive(t) {
			spot.AccumulateCCF(t, delta)
		}
	}
	profile := make([]float64, len(delta))
	floats.SubTo(profile, s.star.IntegratedCCF, delta)
	return profile
}

func (s *Simulation) observationDone(ctx context.Context, kind string, epochs int, d time.Duration) {
	if s.obsMetrics != nil {
		s.obsMetrics.ObservationCompleted(kind, epochs, d)
	}
	s.log.Debug(ctx, "observation completed",
		logging.String("kind", kind),
		logging.Int("epochs", epochs),
		logging.Duration("duration", d),
	)
}

func validateObservation(times []float64, band model.WavelengthBand) error {
	if !(band.Min > 0) || !(band.Max > 0) || math.IsInf(band.Min, 0) || math.IsInf(band.Max, 0) {
		return fmt.Errorf("wavelength band must be positive and finite, got [%g, %g]", band.Min, band.Max)
	}
	if band.Min == band.Max {
		return fmt.Errorf("wavelength band is empty at %g", band.Min)
	}
	for i, t := range times {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Errorf("times[%d] is not finite", i)
		}
	}
	return nil
}

// spotColor is the RGB of a spot at unit brightness.
var spotColor = [3]float64{255, 131, 0}

// DrawRGBA renders the star at time t into buf, which must hold
// ImageSize×ImageSize RGBA pixels. The fill factor is maintained at t first.
func (s *Simulation) DrawRGBA(ctx context.Context, t float64, buf []byte) error {
	if len(buf) != 4*ImageSize*ImageSize {
		return fmt.Errorf("DrawRGBA: buffer length %d, want %d", len(buf), 4*ImageSize*ImageSize)
	}
	ctx, span := s.startSpan(ctx, "simulation/draw", attribute.Float64("time", t))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	spots, fillErr := s.prepare(ctx, []float64{t}, model.VisibleBand)
	if spots == nil && fillErr != nil {
		span.RecordError(fillErr)
		return fmt.Errorf("DrawRGBA: %w", fillErr)
	}
	if err := s.star.DrawRGBA(buf); err != nil {
		return err
	}
	for _, spot := range spots {
		if spot.Alive(t) {
			s.paintSpot(spot, t, buf)
		}
	}
	if fillErr != nil {
		span.RecordError(fillErr)
		return fmt.Errorf("DrawRGBA: %w", fillErr)
	}
	return nil
}

// DrawBGR renders the star at time t into buf as packed BGR.
func (s *Simulation) DrawBGR(ctx context.Context, t float64, buf []byte) error {
	if len(buf) != 3*ImageSize*ImageSize {
		return fmt.Errorf("DrawBGR: buffer length %d, want %d", len(buf), 3*ImageSize*ImageSize)
	}
	rgba := make([]byte, 4*ImageSize*ImageSize)
	err := s.DrawRGBA(ctx, t, rgba)
	if err != nil && !errors.Is(err, ErrFillFactorUnreachable) {
		return err
	}
	rgbaToBGR(rgba, buf)
	return err
}

// Image renders the star at time t.
func (s *Simulation) Image(ctx context.Context, t float64) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, ImageSize, ImageSize))
	if err := s.DrawRGBA(ctx, t, img.Pix); err != nil {
		return img, err
	}
	return img, nil
}

// paintSpot overwrites the pixels covered by spot at t. Column j maps to
// y = -1 + 2j/(ImageSize-1) and row i to z = 1 - 2i/(ImageSize-1).
func (s *Simulation) paintSpot(spot *Spot, t float64, buf []byte) {
	shape := spot.Shape(t)
	yb, ok := shape.YBounds()
	if !ok {
		return
	}
	scale := float64(ImageSize-1) / 2
	colLo := max(int(math.Ceil((yb.Lower+1)*scale)), 0)
	colHi := min(int(math.Floor((yb.Upper+1)*scale)), ImageSize-1)

	var (
		sweep ZSweep
		spans [2]Bounds
	)
	for col := colLo; col <= colHi; col++ {
		y := float64(col)/scale - 1
		for _, zb := range shape.ZSpans(y, &sweep, spans[:0]) {
			rowLo := max(int(math.Ceil((1-zb.Upper)*scale)), 0)
			rowHi := min(int(math.Floor((1-zb.Lower)*scale)), ImageSize-1)
			for row := rowLo; row <= rowHi; row++ {
				z := 1 - float64(row)/scale
				r2 := y*y + z*z
				if r2 > 1 {
					continue
				}
				brightness := s.star.LimbBrightness(math.Sqrt(1-r2)) * spot.Intensity()
				i := 4 * (row*ImageSize + col)
				buf[i] = channel(spotColor[0] * brightness)
				buf[i+1] = channel(spotColor[1] * brightness)
				buf[i+2] = channel(spotColor[2] * brightness)
				buf[i+3] = 255
			}
		}
	}
}

func (s *Simulation) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if id := logging.RunIDFromContext(ctx); id != "" {
		attrs = append(attrs, attribute.String("run_id", id))
	}
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
