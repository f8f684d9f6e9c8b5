package timectrl

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Mode describes how the TimeController paces batches.
type Mode int

const (
	// Accelerated runs batches back to back.
	Accelerated Mode = iota
	// RealTime waits Tick of wall-clock time between batches.
	RealTime
)

// Progress is delivered to listeners after every batch.
type Progress struct {
	Done  int     // epochs completed so far
	Total int     // epochs in the cadence
	Now   float64 // last epoch of the batch, in days
}

// TimeController generates an evenly spaced observing cadence and drives a
// batched run over it.
type TimeController struct {
	mu    sync.RWMutex
	Start float64 // days
	Step  float64 // days
	Count int
	Mode  Mode
	Tick  time.Duration

	// currentTime is the last epoch handed to a batch.
	currentTime float64

	listeners []func(Progress)
}

// NewTimeController constructs a controller for count epochs starting at
// start and spaced by step days.
func NewTimeController(start, step float64, count int, mode Mode) *TimeController {
	return &TimeController{
		Start:       start,
		Step:        step,
		Count:       count,
		Mode:        mode,
		Tick:        time.Second,
		currentTime: start,
	}
}

// Times returns every epoch of the cadence.
func (tc *TimeController) Times() []float64 {
	times := make([]float64, max(tc.Count, 0))
	for i := range times {
		times[i] = tc.Start + tc.Step*float64(i)
	}
	return times
}

// Now returns the last epoch handed to a batch, or Start before the first.
func (tc *TimeController) Now() float64 {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.currentTime
}

// AddListener registers a callback invoked after every batch.
func (tc *TimeController) AddListener(fn func(Progress)) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.listeners = append(tc.listeners, fn)
}

// Run hands the cadence to fn in batches of at most batch epochs, in order.
// It stops at the first error from fn or when ctx is cancelled.
func (tc *TimeController) Run(ctx context.Context, batch int, fn func(ctx context.Context, times []float64) error) error {
	if batch <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", batch)
	}
	times := tc.Times()

	var ticker *time.Ticker
	if tc.Mode == RealTime && tc.Tick > 0 {
		ticker = time.NewTicker(tc.Tick)
		defer ticker.Stop()
	}

	for done := 0; done < len(times); {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(done+batch, len(times))
		chunk := times[done:end]
		if err := fn(ctx, chunk); err != nil {
			return fmt.Errorf("batch at t=%g: %w", chunk[0], err)
		}
		done = end

		tc.mu.Lock()
		tc.currentTime = chunk[len(chunk)-1]
		listeners := append([]func(Progress){}, tc.listeners...)
		tc.mu.Unlock()

		progress := Progress{Done: done, Total: len(times), Now: chunk[len(chunk)-1]}
		for _, l := range listeners {
			l(progress)
		}

		if ticker != nil && done < len(times) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	}
	return nil
}
