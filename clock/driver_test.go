// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"context"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newMeasures() *Measures {
	return &Measures{
		Ticks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "testTicksCounter",
				Help: "testTicksCounter",
			},
			[]string{OutcomeLabel},
		),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Name: "testTickDuration"}),
		Overruns:     prometheus.NewCounter(prometheus.CounterOpts{Name: "testOverruns"}),
	}
}

func TestNewDriver(t *testing.T) {
	tcs := []struct {
		Description      string
		Config           Config
		Measures         *Measures
		ExpectedErr      error
		ExpectedInterval time.Duration
		ExpectedTPS      int64
	}{
		{
			Description: "Nil measures",
			ExpectedErr: ErrNilMeasures,
		},
		{
			Description:      "Defaults",
			Measures:         newMeasures(),
			ExpectedInterval: DefaultTickInterval,
			ExpectedTPS:      20,
		},
		{
			Description:      "Slow clock",
			Config:           Config{TickInterval: 2 * time.Second},
			Measures:         newMeasures(),
			ExpectedInterval: 2 * time.Second,
			ExpectedTPS:      1,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.Description, func(t *testing.T) {
			assert := assert.New(t)
			d, err := NewDriver(tc.Config, tc.Measures)
			assert.Equal(tc.ExpectedErr, err)
			if err != nil {
				assert.Nil(d)
				return
			}
			assert.Equal(tc.ExpectedInterval, d.Interval())
			assert.Equal(tc.ExpectedTPS, d.TicksPerSecond())
		})
	}
}

func TestStep(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	m := newMeasures()
	d, err := NewDriver(Config{Logger: zaptest.NewLogger(t)}, m)
	require.NoError(err)
	fixed := time.Date(2021, time.March, 4, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return fixed }

	var order []string
	d.Register(func(now time.Time) {
		assert.Equal(fixed, now)
		order = append(order, "first")
	})
	d.Register(nil)
	d.Register(func(time.Time) {
		order = append(order, "second")
	})

	d.Step()
	assert.Equal([]string{"first", "second"}, order)
	assert.Equal(1.0, testutil.ToFloat64(m.Ticks.WithLabelValues(SuccessOutcome)))

	d.Register(func(time.Time) { panic("tick listener exploded") })
	d.Register(func(time.Time) {
		order = append(order, "after panic")
	})
	d.Step()
	assert.Equal([]string{"first", "second", "first", "second", "after panic"}, order)
	assert.Equal(1.0, testutil.ToFloat64(m.Ticks.WithLabelValues(FailureOutcome)))
}

func TestStepOverrun(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	m := newMeasures()
	d, err := NewDriver(Config{TickInterval: 50 * time.Millisecond}, m)
	require.NoError(err)

	current := time.Date(2021, time.March, 4, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return current }
	var work time.Duration
	d.Register(func(time.Time) { current = current.Add(work) })

	work = 10 * time.Millisecond
	d.Step()
	assert.Equal(0.0, testutil.ToFloat64(m.Overruns))

	work = 50 * time.Millisecond
	d.Step()
	assert.Equal(0.0, testutil.ToFloat64(m.Overruns))

	work = 120 * time.Millisecond
	d.Step()
	assert.Equal(1.0, testutil.ToFloat64(m.Overruns))
	assert.Equal(3.0, testutil.ToFloat64(m.Ticks.WithLabelValues(SuccessOutcome)))
	assert.Equal(1, testutil.CollectAndCount(m.TickDuration.(prometheus.Collector)))
}

func TestStartStop(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	d, err := NewDriver(Config{TickInterval: 5 * time.Millisecond}, newMeasures())
	require.NoError(err)

	var ticks atomic.Int64
	d.Register(func(time.Time) { ticks.Add(1) })

	assert.Equal(ErrDriverNotRunning, d.Stop(context.Background()))
	require.NoError(d.Start(context.Background()))
	assert.Equal(ErrDriverNotStopped, d.Start(context.Background()))
	assert.Eventually(func() bool { return ticks.Load() >= 3 }, time.Second, time.Millisecond)
	require.NoError(d.Stop(context.Background()))

	stoppedAt := ticks.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(stoppedAt, ticks.Load())

	// restart after a stop
	require.NoError(d.Start(context.Background()))
	assert.Eventually(func() bool { return ticks.Load() > stoppedAt }, time.Second, time.Millisecond)
	require.NoError(d.Stop(context.Background()))
	assert.Equal(stopped, d.state)
}

func TestStartStopPairsParallel(t *testing.T) {
	d, err := NewDriver(Config{TickInterval: time.Millisecond}, newMeasures())
	require.NoError(t, err)

	t.Run("ParallelGroup", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			t.Run(strconv.Itoa(i), func(t *testing.T) {
				t.Parallel()
				assert := assert.New(t)
				if errStart := d.Start(context.Background()); errStart != nil {
					assert.Equal(ErrDriverNotStopped, errStart)
				}
				time.Sleep(10 * time.Millisecond)
				if errStop := d.Stop(context.Background()); errStop != nil {
					assert.Equal(ErrDriverNotRunning, errStop)
				}
			})
		}
	})

	require.Equal(t, stopped, atomic.LoadInt32(&d.state))
}
