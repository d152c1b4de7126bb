package bench

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lkparity/internal/testutil"
)

// scripted returns a run function that advances clock by the next duration
// in steps on every call.
func scripted(clock *testutil.ManualClock, steps ...time.Duration) (func(context.Context) error, *int) {
	calls := 0
	return func(context.Context) error {
		clock.Advance(steps[calls%len(steps)])
		calls++
		return nil
	}, &calls
}

func TestMeasureDiscardsWarmup(t *testing.T) {
	clock := testutil.NewManualClock()
	fn, calls := scripted(clock,
		500*time.Millisecond, // warm-up, cold cache
		10*time.Millisecond, 12*time.Millisecond, 11*time.Millisecond, 50*time.Millisecond, 9*time.Millisecond,
	)

	s, err := Measure(context.Background(), clock, 5, 1, fn)
	require.NoError(t, err)

	assert.Equal(t, 6, *calls)
	assert.Equal(t, []time.Duration{
		10 * time.Millisecond, 12 * time.Millisecond, 11 * time.Millisecond, 50 * time.Millisecond, 9 * time.Millisecond,
	}, s.Durations)
	assert.Equal(t, 11*time.Millisecond, s.Median)
}

func TestMeasureNoWarmup(t *testing.T) {
	clock := testutil.NewManualClock()
	fn, calls := scripted(clock, time.Millisecond)

	s, err := Measure(context.Background(), clock, 3, -2, fn)
	require.NoError(t, err)
	assert.Equal(t, 3, *calls)
	assert.Len(t, s.Durations, 3)
}

func TestMeasureRejectsZeroSamples(t *testing.T) {
	clock := testutil.NewManualClock()
	fn, calls := scripted(clock, time.Millisecond)

	_, err := Measure(context.Background(), clock, 0, 1, fn)
	assert.ErrorIs(t, err, ErrNoSamples)
	assert.Equal(t, 0, *calls)
}

func TestMeasureStopsOnError(t *testing.T) {
	boom := errors.New("decode failed")
	calls := 0
	fn := func(context.Context) error {
		calls++
		if calls == 3 {
			return boom
		}
		return nil
	}

	_, err := Measure(context.Background(), testutil.NewManualClock(), 5, 1, fn)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "run 3")
	assert.Equal(t, 3, calls)
}

func TestMeasureHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	fn := func(context.Context) error {
		calls++
		if calls == 2 {
			cancel()
		}
		return nil
	}

	_, err := Measure(ctx, testutil.NewManualClock(), 5, 0, fn)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, calls)
}

func TestTime(t *testing.T) {
	clock := testutil.NewManualClock()
	d, err := Time(clock, func() error {
		clock.Advance(7 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7*time.Millisecond, d)
}

func TestMedian(t *testing.T) {
	ms := time.Millisecond
	tests := []struct {
		name string
		in   []time.Duration
		want time.Duration
	}{
		{"empty", nil, 0},
		{"one", []time.Duration{4 * ms}, 4 * ms},
		{"odd", []time.Duration{9 * ms, 1 * ms, 5 * ms}, 5 * ms},
		{"even", []time.Duration{4 * ms, 1 * ms, 2 * ms, 3 * ms}, 2500 * time.Microsecond},
		{"outlier", []time.Duration{1 * ms, 1 * ms, 1 * ms, 1 * ms, time.Hour}, 1 * ms},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Median(tt.in))
		})
	}
}

func TestMedianDoesNotReorderInput(t *testing.T) {
	in := []time.Duration{3, 1, 2}
	_ = Median(in)
	assert.Equal(t, []time.Duration{3, 1, 2}, in)
}

func TestCompare(t *testing.T) {
	fast := Sample{Median: 2 * time.Millisecond}
	slow := Sample{Median: 8 * time.Millisecond}

	v := Compare(fast, slow)
	assert.True(t, v.Faster)
	assert.InDelta(t, 4.0, v.Speedup, 1e-9)
	assert.Equal(t, "candidate 2ms vs reference 8ms (4.00x)", v.String())

	assert.False(t, Compare(slow, fast).Faster)
}

func TestCompareTieIsNotFaster(t *testing.T) {
	s := Sample{Median: 5 * time.Millisecond}
	v := Compare(s, s)
	assert.False(t, v.Faster)
	assert.InDelta(t, 1.0, v.Speedup, 1e-9)
}

func TestCompareZeroCandidate(t *testing.T) {
	v := Compare(Sample{}, Sample{Median: time.Millisecond})
	assert.True(t, v.Faster)
	assert.Zero(t, v.Speedup)
}
