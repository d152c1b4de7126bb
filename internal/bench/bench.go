// Package bench measures parser latency with repeated samples.
//
// A single wall-clock draw is dominated by scheduler jitter and cold caches,
// so every invoker is run warm-up times (discarded) and then samples times,
// and only the medians are compared.
package bench

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"
)

const (
	// DefaultSamples is the number of measured runs per invoker.
	DefaultSamples = 5

	// DefaultWarmup is the number of discarded runs before measuring.
	DefaultWarmup = 1
)

// ErrNoSamples is returned when Measure is asked for fewer than one sample.
var ErrNoSamples = errors.New("bench: at least one sample is required")

// Clock is a monotonic time source. time.Now readings carry a monotonic
// component, so Sub between two of them is immune to wall-clock steps.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the process clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// Sample is the outcome of one Measure call.
type Sample struct {
	// Durations holds the measured runs in execution order.
	Durations []time.Duration `json:"durations"`

	Median time.Duration `json:"median"`
}

// Time runs fn once and returns how long it took. Nothing but fn runs
// between the two clock readings.
func Time(clock Clock, fn func() error) (time.Duration, error) {
	start := clock.Now()
	err := fn()
	return clock.Now().Sub(start), err
}

// Measure runs fn warmup+samples times and summarizes the last samples runs.
//
// The first error from fn stops measurement. ctx is checked between runs;
// fn receives it for its own cancellation.
func Measure(ctx context.Context, clock Clock, samples, warmup int, fn func(context.Context) error) (Sample, error) {
	if samples < 1 {
		return Sample{}, ErrNoSamples
	}
	if warmup < 0 {
		warmup = 0
	}

	durations := make([]time.Duration, 0, samples)
	for i := 0; i < warmup+samples; i++ {
		if err := ctx.Err(); err != nil {
			return Sample{}, err
		}
		d, err := Time(clock, func() error { return fn(ctx) })
		if err != nil {
			return Sample{}, fmt.Errorf("run %d: %w", i+1, err)
		}
		if i >= warmup {
			durations = append(durations, d)
		}
	}
	return Sample{Durations: durations, Median: Median(durations)}, nil
}

// Median returns the middle duration, or the mean of the two middle ones for
// an even count. ds is not modified. An empty slice has median zero.
func Median(ds []time.Duration) time.Duration {
	if len(ds) == 0 {
		return 0
	}
	sorted := slices.Clone(ds)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return sorted[mid-1] + (sorted[mid]-sorted[mid-1])/2
}

// Verdict compares candidate and reference medians.
type Verdict struct {
	Candidate time.Duration `json:"candidate_median"`
	Reference time.Duration `json:"reference_median"`

	// Faster is true only when the candidate median is strictly lower.
	Faster bool `json:"faster"`

	// Speedup is reference/candidate; zero when the candidate median is zero.
	Speedup float64 `json:"speedup"`
}

// Compare builds the Verdict for two samples.
func Compare(candidate, reference Sample) Verdict {
	v := Verdict{
		Candidate: candidate.Median,
		Reference: reference.Median,
		Faster:    candidate.Median < reference.Median,
	}
	if candidate.Median > 0 {
		v.Speedup = float64(reference.Median) / float64(candidate.Median)
	}
	return v
}

// String renders the verdict for logs and reports.
func (v Verdict) String() string {
	return fmt.Sprintf("candidate %s vs reference %s (%.2fx)", v.Candidate, v.Reference, v.Speedup)
}
