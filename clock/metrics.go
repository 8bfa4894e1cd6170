// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xmidt-org/touchstone"
	"go.uber.org/fx"
)

// Metric names.
const (
	TicksCounter        = "showcase_clock_ticks_total"
	TickDurationSeconds = "showcase_clock_tick_duration_seconds"
	TickOverrunsCounter = "showcase_clock_tick_overruns_total"
)

// OutcomeLabel tells whether every listener of a tick returned normally.
const OutcomeLabel = "outcome"

const (
	SuccessOutcome = "success"
	FailureOutcome = "failure"
)

// ProvideMetrics registers the clock metrics. Overruns count ticks whose
// listeners ran longer than the tick interval; the ticker drops the ticks
// that were due meanwhile, so time in the game slows down.
func ProvideMetrics() fx.Option {
	return fx.Options(
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: TicksCounter,
				Help: "Clock ticks by whether every listener completed.",
			},
			OutcomeLabel,
		),
		touchstone.Histogram(
			prometheus.HistogramOpts{
				Name:    TickDurationSeconds,
				Help:    "Time spent running the listeners of one tick.",
				Buckets: prometheus.ExponentialBucketsRange(0.0001, 1, 10),
			},
		),
		touchstone.Counter(
			prometheus.CounterOpts{
				Name: TickOverrunsCounter,
				Help: "Ticks whose listeners took longer than the tick interval.",
			},
		),
	)
}

// Measures are the instruments a Driver reports to.
type Measures struct {
	fx.In
	Ticks        *prometheus.CounterVec `name:"showcase_clock_ticks_total"`
	TickDuration prometheus.Observer    `name:"showcase_clock_tick_duration_seconds"`
	Overruns     prometheus.Counter     `name:"showcase_clock_tick_overruns_total"`
}
