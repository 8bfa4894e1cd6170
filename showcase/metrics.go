// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package showcase

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xmidt-org/touchstone"
	"go.uber.org/fx"
)

// Names
const (
	CreationCounter = "showcase_share_creations_total"
	ViewCounter     = "showcase_share_views_total"
	CaptureCounter  = "showcase_captures_total"
	SweptCounter    = "showcase_swept_shares_total"
	LiveSharesGauge = "showcase_live_shares"
)

// Labels
const (
	CategoryLabel = "category"
	OutcomeLabel  = "outcome"
)

// ProvideMetrics returns the Metrics relevant to this package
func ProvideMetrics() fx.Option {
	return fx.Options(
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: CreationCounter,
				Help: "Counter for share creation attempts by category and outcome.",
			},
			CategoryLabel, OutcomeLabel,
		),
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: ViewCounter,
				Help: "Counter for share view attempts by outcome.",
			},
			OutcomeLabel,
		),
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: CaptureCounter,
				Help: "Counter for capture requests by category and how they were resolved.",
			},
			CategoryLabel, OutcomeLabel,
		),
		touchstone.Counter(
			prometheus.CounterOpts{
				Name: SweptCounter,
				Help: "Counter for expired or cancelled shares removed by the periodic sweep.",
			},
		),
		touchstone.Gauge(
			prometheus.GaugeOpts{
				Name: LiveSharesGauge,
				Help: "Number of live shares after the last sweep.",
			},
		),
	)
}

type Measures struct {
	fx.In
	Creations  *prometheus.CounterVec `name:"showcase_share_creations_total"`
	Views      *prometheus.CounterVec `name:"showcase_share_views_total"`
	Captures   *prometheus.CounterVec `name:"showcase_captures_total"`
	Swept      prometheus.Counter     `name:"showcase_swept_shares_total"`
	LiveShares prometheus.Gauge       `name:"showcase_live_shares"`
}
