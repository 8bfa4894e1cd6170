// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"net/http"

	"github.com/justinas/alice"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xmidt-org/touchstone"
	"go.uber.org/fx"
)

// Names
const (
	RequestCount     = "server_request_count"
	RequestDuration  = "server_request_duration_seconds"
	RequestsInFlight = "server_requests_in_flight"
)

// Labels
const (
	ServerLabel = "server"
	CodeLabel   = "code"
	MethodLabel = "method"
)

// provideMetrics builds the application metrics and makes them available to the container
func provideMetrics() fx.Option {
	return fx.Options(
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: RequestCount,
				Help: "total incoming HTTP requests",
			},
			CodeLabel,
			MethodLabel,
			ServerLabel,
		),
		touchstone.HistogramVec(
			prometheus.HistogramOpts{
				Name: RequestDuration,
				Help: "tracks incoming request durations in seconds",
			},
			CodeLabel,
			MethodLabel,
			ServerLabel,
		),
		touchstone.GaugeVec(
			prometheus.GaugeOpts{
				Name: RequestsInFlight,
				Help: "tracks the current number of incoming requests being processed",
			},
			ServerLabel,
		),
	)
}

type serverMetricsIn struct {
	fx.In
	Count    *prometheus.CounterVec `name:"server_request_count"`
	Duration prometheus.ObserverVec `name:"server_request_duration_seconds"`
	InFlight *prometheus.GaugeVec   `name:"server_requests_in_flight"`
}

// instrument returns the middleware measuring the requests of one server.
func (in serverMetricsIn) instrument(server string) alice.Chain {
	labels := prometheus.Labels{ServerLabel: server}
	return alice.New(
		func(next http.Handler) http.Handler {
			return promhttp.InstrumentHandlerInFlight(in.InFlight.With(labels), next)
		},
		func(next http.Handler) http.Handler {
			return promhttp.InstrumentHandlerCounter(in.Count.MustCurryWith(labels), next)
		},
		func(next http.Handler) http.Handler {
			return promhttp.InstrumentHandlerDuration(in.Duration.MustCurryWith(labels), next)
		},
	)
}
