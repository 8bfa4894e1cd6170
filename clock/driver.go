// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the discrete time source that drives share expiry
// sweeps and capture timeouts.
package clock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"emperror.dev/emperror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xmidt-org/sallust"
	"go.uber.org/zap"
)

// Errors that can be returned by this package. Since some of these errors are returned wrapped, it
// is safest to use errors.Is() to check for them.
var (
	ErrDriverNotStopped = errors.New("clock is either running or starting")
	ErrDriverNotRunning = errors.New("clock is either stopped or stopping")
	ErrNilMeasures      = errors.New("measures cannot be nil")
)

// driver states
const (
	stopped int32 = iota
	running
	transitioning
)

const (
	// DefaultTickInterval gives 20 ticks per second.
	DefaultTickInterval = 50 * time.Millisecond
)

// TickFunc is called once per tick with the tick's time.
type TickFunc func(now time.Time)

// Config contains the configuration of the clock.
type Config struct {
	// TickInterval is the time between two ticks.
	// (Optional). Defaults to 50ms.
	TickInterval time.Duration `validate:"gte=0"`

	// Logger to be used by the driver.
	// (Optional). By default a no op logger will be used.
	Logger *zap.Logger
}

type Driver struct {
	lock      sync.RWMutex
	listeners []TickFunc

	interval time.Duration
	ticker   *time.Ticker
	shutdown chan struct{}
	state    int32

	measures *Measures
	logger   *zap.Logger
	now      func() time.Time
}

func NewDriver(config Config, measures *Measures) (*Driver, error) {
	if measures == nil {
		return nil, ErrNilMeasures
	}
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultTickInterval
	}
	if config.Logger == nil {
		config.Logger = sallust.Default()
	}
	return &Driver{
		interval: config.TickInterval,
		shutdown: make(chan struct{}),
		measures: measures,
		logger:   config.Logger,
		now:      time.Now,
	}, nil
}

// Register adds a listener. Listeners run sequentially in registration order.
func (d *Driver) Register(f TickFunc) {
	if f == nil {
		return
	}
	d.lock.Lock()
	d.listeners = append(d.listeners, f)
	d.lock.Unlock()
}

// Interval returns the time between two ticks.
func (d *Driver) Interval() time.Duration {
	return d.interval
}

// TicksPerSecond returns how many ticks make up one second, at least one.
func (d *Driver) TicksPerSecond() int64 {
	if n := int64(time.Second / d.interval); n > 0 {
		return n
	}
	return 1
}

// Step runs a single tick synchronously.
func (d *Driver) Step() {
	d.lock.RLock()
	listeners := make([]TickFunc, len(d.listeners))
	copy(listeners, d.listeners)
	d.lock.RUnlock()

	outcome := SuccessOutcome
	now := d.now()
	for _, f := range listeners {
		if err := d.call(f, now); err != nil {
			outcome = FailureOutcome
			d.logger.Error("tick listener panicked", zap.Error(err))
		}
	}
	elapsed := d.now().Sub(now)
	d.measures.Ticks.With(prometheus.Labels{OutcomeLabel: outcome}).Add(1)
	d.measures.TickDuration.Observe(elapsed.Seconds())
	if elapsed > d.interval {
		d.measures.Overruns.Inc()
		d.logger.Warn("tick overran its interval", zap.Duration("elapsed", elapsed), zap.Duration("interval", d.interval))
	}
}

func (d *Driver) call(f TickFunc, now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = emperror.Recover(r)
		}
	}()
	f(now)
	return nil
}

// Start begins ticking. Calling Start on a running clock returns
// ErrDriverNotStopped. If you want to restart the clock, call Stop() first.
func (d *Driver) Start(_ context.Context) error {
	if !atomic.CompareAndSwapInt32(&d.state, stopped, transitioning) {
		d.logger.Error("Start called when the clock was not in stopped state", zap.Error(ErrDriverNotStopped))
		return ErrDriverNotStopped
	}

	if d.ticker == nil {
		d.ticker = time.NewTicker(d.interval)
	} else {
		d.ticker.Reset(d.interval)
	}
	ticks := d.ticker.C
	go func() {
		for {
			select {
			case <-d.shutdown:
				return
			case <-ticks:
				d.Step()
			}
		}
	}()

	d.logger.Info("clock started", zap.Duration("interval", d.interval))
	atomic.SwapInt32(&d.state, running)
	return nil
}

// Stop halts the clock and waits for its goroutine to exit. A tick in progress
// completes first.
func (d *Driver) Stop(_ context.Context) error {
	if !atomic.CompareAndSwapInt32(&d.state, running, transitioning) {
		d.logger.Error("Stop called when the clock was not in running state", zap.Error(ErrDriverNotRunning))
		return ErrDriverNotRunning
	}

	d.ticker.Stop()
	d.shutdown <- struct{}{}
	d.logger.Info("clock stopped")
	atomic.SwapInt32(&d.state, stopped)
	return nil
}
