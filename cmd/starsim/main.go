package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/signalsfoundry/starspot-simulator/core"
	"github.com/signalsfoundry/starspot-simulator/internal/logging"
	"github.com/signalsfoundry/starspot-simulator/internal/observability"
	"github.com/signalsfoundry/starspot-simulator/model"
	"github.com/signalsfoundry/starspot-simulator/timectrl"
	"github.com/spf13/pflag"
	xdraw "golang.org/x/image/draw"
	"gonum.org/v1/gonum/floats"
)

// Modes accepted by --mode.
const (
	modeFlux    = "flux"
	modeRV      = "rv"
	modeRender  = "render"
	modeExample = "example"
)

// Config is the parsed command line.
type Config struct {
	ConfigPath  string
	Mode        string
	Start       float64 // days
	Step        float64 // days
	Count       int
	BandMin     float64 // metres
	BandMax     float64 // metres
	Batch       int
	Out         string
	Size        int
	MetricsAddr string
	Workers     int
	Strict      bool
	RealTime    bool
	Tick        time.Duration
}

func parseFlags(args []string, stderr io.Writer) (Config, error) {
	var cfg Config
	fs := pflag.NewFlagSet("starsim", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&cfg.ConfigPath, "config", "c", "", "simulation config file (.toml, .yaml, .yml or .json)")
	fs.StringVarP(&cfg.Mode, "mode", "m", modeFlux, "what to produce: flux, rv, render or example")
	fs.Float64Var(&cfg.Start, "start", 0, "first epoch in days")
	fs.Float64Var(&cfg.Step, "step", 1, "cadence in days")
	fs.IntVarP(&cfg.Count, "count", "n", 1, "number of epochs")
	fs.Float64Var(&cfg.BandMin, "band-min", model.VisibleBand.Min, "lower band edge in metres")
	fs.Float64Var(&cfg.BandMax, "band-max", model.VisibleBand.Max, "upper band edge in metres")
	fs.IntVar(&cfg.Batch, "batch", 64, "epochs per observation call")
	fs.StringVarP(&cfg.Out, "out", "o", "", "output file for flux/rv/example (default stdout) or directory for render")
	fs.IntVar(&cfg.Size, "size", core.ImageSize, "edge length in pixels of rendered frames")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "HTTP address for Prometheus /metrics (disabled when empty)")
	fs.IntVar(&cfg.Workers, "workers", 0, "goroutines per observation call (0 means GOMAXPROCS)")
	fs.BoolVar(&cfg.Strict, "strict-fill-factor", false, "fail when the target fill factor cannot be reached")
	fs.BoolVar(&cfg.RealTime, "real-time", false, "pace batches by --tick of wall-clock time")
	fs.DurationVar(&cfg.Tick, "tick", time.Second, "wall-clock pause between batches with --real-time")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	switch cfg.Mode {
	case modeFlux, modeRV, modeRender:
		if cfg.ConfigPath == "" {
			return cfg, fmt.Errorf("--config is required for --mode %s", cfg.Mode)
		}
	case modeExample:
	default:
		return cfg, fmt.Errorf("unknown --mode %q (want flux, rv, render or example)", cfg.Mode)
	}
	if cfg.Count < 0 {
		return cfg, fmt.Errorf("--count must not be negative, got %d", cfg.Count)
	}
	if cfg.Batch < 1 {
		return cfg, fmt.Errorf("--batch must be positive, got %d", cfg.Batch)
	}
	if cfg.Size < 1 {
		return cfg, fmt.Errorf("--size must be positive, got %d", cfg.Size)
	}
	if cfg.Mode == modeRender && cfg.Out == "" {
		return cfg, errors.New("--out directory is required for --mode render")
	}
	return cfg, nil
}

func main() {
	cfg, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log := logging.NewFromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, log = logging.WithRunLogger(ctx, log)
	ctx = logging.ContextWithLogger(ctx, log)

	tracing := observability.TracingConfigFromEnv()
	tracing.Run = observability.RunInfo{
		ID:         logging.RunIDFromContext(ctx),
		Mode:       cfg.Mode,
		ConfigPath: cfg.ConfigPath,
		Workers:    cfg.Workers,
	}
	shutdown, err := observability.InitTracing(ctx, tracing, log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdown, log)

	if err := run(ctx, cfg, os.Stdout); err != nil {
		var cerr *core.ConfigError
		if errors.As(err, &cerr) && cerr.Example != "" {
			fmt.Fprintf(os.Stderr, "%v\n\nA valid configuration looks like:\n\n%s", err, cerr.Example)
		} else {
			log.Error(ctx, "starsim failed", logging.Err(err))
		}
		stop()
		observability.ShutdownWithTimeout(context.Background(), shutdown, log)
		os.Exit(1)
	}
}

// run executes one invocation with the logger carried by ctx. Tabular output
// goes to stdout unless cfg.Out names a file.
func run(ctx context.Context, cfg Config, stdout io.Writer) error {
	log := logging.LoggerFromContext(ctx)
	if log == nil {
		log = logging.Noop()
	}
	if cfg.Mode == modeExample {
		return withOutput(cfg.Out, stdout, func(w io.Writer) error {
			_, err := io.WriteString(w, core.ExampleConfigTOML())
			return err
		})
	}

	reg := prometheus.NewRegistry()
	simMetrics, err := observability.NewSimulationCollector(reg)
	if err != nil {
		return err
	}
	spotMetrics, err := observability.NewSpotCollector(reg)
	if err != nil {
		return err
	}
	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, simMetrics.Handler(), log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	opts := []core.Option{
		core.WithLogger(log),
		core.WithObservationMetrics(simMetrics),
		core.WithSpotMetrics(spotMetrics),
		core.WithWorkers(cfg.Workers),
	}
	if cfg.Strict {
		opts = append(opts, core.WithStrictFillFactor())
	}
	sim, err := core.LoadSimulation(cfg.ConfigPath, opts...)
	if err != nil {
		return err
	}

	mode := timectrl.Accelerated
	if cfg.RealTime {
		mode = timectrl.RealTime
	}
	tc := timectrl.NewTimeController(cfg.Start, cfg.Step, cfg.Count, mode)
	tc.Tick = cfg.Tick
	tc.AddListener(func(p timectrl.Progress) {
		log.Debug(ctx, "batch done",
			logging.Int("done", p.Done),
			logging.Int("total", p.Total),
			logging.Float64("time", p.Now),
		)
	})

	band := model.WavelengthBand{Min: cfg.BandMin, Max: cfg.BandMax}
	log.Info(ctx, "starting run",
		logging.String("mode", cfg.Mode),
		logging.String("config", cfg.ConfigPath),
		logging.Int("epochs", cfg.Count),
		logging.Float64("start", cfg.Start),
		logging.Float64("step", cfg.Step),
	)

	switch cfg.Mode {
	case modeFlux:
		err = withOutput(cfg.Out, stdout, func(w io.Writer) error {
			return writeFlux(ctx, tc, cfg.Batch, sim, band, w)
		})
	case modeRV:
		err = withOutput(cfg.Out, stdout, func(w io.Writer) error {
			return writeRV(ctx, tc, cfg.Batch, sim, band, w)
		})
	case modeRender:
		err = renderFrames(ctx, tc, sim, cfg.Out, cfg.Size)
	}
	if err != nil {
		return err
	}
	log.Info(ctx, "run complete",
		logging.Int("spots", sim.SpotCount()),
		logging.Float64("last_epoch", tc.Now()),
	)
	return nil
}

func writeFlux(ctx context.Context, tc *timectrl.TimeController, batch int, sim *core.Simulation, band model.WavelengthBand, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "flux"}); err != nil {
		return err
	}
	err := tc.Run(ctx, batch, func(ctx context.Context, times []float64) error {
		flux, err := sim.ObserveFlux(ctx, times, band)
		if err != nil {
			return err
		}
		for i, t := range times {
			if err := cw.Write([]string{formatFloat(t), formatFloat(flux[i])}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
	cw.Flush()
	if err != nil {
		return err
	}
	return cw.Error()
}

func writeRV(ctx context.Context, tc *timectrl.TimeController, batch int, sim *core.Simulation, band model.WavelengthBand, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "rv", "bisector_span"}); err != nil {
		return err
	}
	err := tc.Run(ctx, batch, func(ctx context.Context, times []float64) error {
		obs, err := sim.ObserveRV(ctx, times, band)
		if err != nil {
			return err
		}
		for _, o := range obs {
			span := 0.0
			if len(o.Bisector) > 0 {
				span = floats.Max(o.Bisector) - floats.Min(o.Bisector)
			}
			if err := cw.Write([]string{formatFloat(o.Time), formatFloat(o.RV), formatFloat(span)}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
	cw.Flush()
	if err != nil {
		return err
	}
	return cw.Error()
}

// renderFrames writes one PNG per epoch into dir, scaled to size pixels.
func renderFrames(ctx context.Context, tc *timectrl.TimeController, sim *core.Simulation, dir string, size int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	frame := 0
	return tc.Run(ctx, 1, func(ctx context.Context, times []float64) error {
		for _, t := range times {
			img, err := sim.Image(ctx, t)
			if err != nil {
				return err
			}
			path := filepath.Join(dir, fmt.Sprintf("frame-%04d.png", frame))
			if err := writePNG(path, scaleImage(img, size)); err != nil {
				return err
			}
			frame++
		}
		return nil
	})
}

func scaleImage(src *image.RGBA, size int) image.Image {
	if size == src.Bounds().Dx() {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// withOutput runs fn against path, or against stdout when path is empty.
func withOutput(path string, stdout io.Writer, fn func(io.Writer) error) error {
	if path == "" {
		return fn(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func serveMetrics(addr string, handler http.Handler, log logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
