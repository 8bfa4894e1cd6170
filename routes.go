// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/justinas/alice"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	"github.com/xmidt-org/candlelight"
	"github.com/xmidt-org/httpaux"
	"github.com/xmidt-org/showcase/showcase"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ServerConfig configures one of the HTTP servers.
type ServerConfig struct {
	Address      string
	Path         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// ServerConfigs holds the primary, health and metrics server configurations.
type ServerConfigs struct {
	Primary ServerConfig
	Health  ServerConfig
	Metrics ServerConfig
}

// provideServerConfigs reads every server setting by its full key, so a
// config file that sets part of a server keeps the defaults of the rest.
func provideServerConfigs(v *viper.Viper) ServerConfigs {
	return ServerConfigs{
		Primary: serverConfig(v, "primary"),
		Health:  serverConfig(v, "health"),
		Metrics: serverConfig(v, "metrics"),
	}
}

func serverConfig(v *viper.Viper, name string) ServerConfig {
	prefix := "servers." + name + "."
	return ServerConfig{
		Address:      v.GetString(prefix + "address"),
		Path:         v.GetString(prefix + "path"),
		ReadTimeout:  v.GetDuration(prefix + "readTimeout"),
		WriteTimeout: v.GetDuration(prefix + "writeTimeout"),
		IdleTimeout:  v.GetDuration(prefix + "idleTimeout"),
	}
}

type PrimaryRoutesIn struct {
	fx.In
	Lifecycle fx.Lifecycle
	Logger    *zap.Logger
	Servers   ServerConfigs
	Tracing   candlelight.Tracing
	Metrics   serverMetricsIn
	Handlers  showcase.Handlers
	AdminAuth alice.Chain `name:"admin_auth_chain"`
}

// BuildPrimaryRoutes mounts the share operations under the api base and
// runs the primary server. Routes under /admin require Basic credentials.
func BuildPrimaryRoutes(in PrimaryRoutesIn) {
	router := mux.NewRouter()
	router.Use(
		otelmux.Middleware("server_primary",
			otelmux.WithTracerProvider(in.Tracing.TracerProvider()),
			otelmux.WithPropagators(in.Tracing.Propagator()),
		),
		func(next http.Handler) http.Handler {
			return candlelight.EchoFirstTraceNodeInfo(in.Tracing, false)(next)
		},
	)

	api := router.PathPrefix("/" + apiBase).Subrouter()
	api.Handle("/shares", in.Handlers.Create).Methods(http.MethodPost)
	api.Handle("/shares", in.Handlers.List).Methods(http.MethodGet)
	api.Handle("/shares/{reference}", in.Handlers.Get).Methods(http.MethodGet)
	api.Handle("/shares/{reference}", in.Handlers.Cancel).Methods(http.MethodDelete)
	api.Handle("/shares/{reference}/views", in.Handlers.View).Methods(http.MethodPost)
	api.Handle("/captures", in.Handlers.Capture).Methods(http.MethodPost)
	api.Handle("/captures/{category}/opened", in.Handlers.Opened).Methods(http.MethodPost)
	api.Handle("/cooldowns/{actor}/{category}", in.Handlers.Cooldown).Methods(http.MethodGet)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(in.AdminAuth.Then)
	admin.Handle("/shares", in.Handlers.Create).Methods(http.MethodPost)
	admin.Handle("/shares", in.Handlers.List).Methods(http.MethodGet)
	admin.Handle("/shares/{reference}", in.Handlers.Get).Methods(http.MethodGet)
	admin.Handle("/shares/{reference}", in.Handlers.Cancel).Methods(http.MethodDelete)
	admin.Handle("/owners/{owner}/shares", in.Handlers.CancelAll).Methods(http.MethodDelete)

	chain := in.Metrics.instrument("primary").Append(setLogger(in.Logger, "primary"))
	runServer(in.Lifecycle, in.Logger, "primary", in.Servers.Primary, chain.Then(router))
}

type HealthRoutesIn struct {
	fx.In
	Lifecycle fx.Lifecycle
	Logger    *zap.Logger
	Servers   ServerConfigs
	Metrics   serverMetricsIn
}

// BuildHealthRoutes runs the health server, which answers 200 while the
// process is up.
func BuildHealthRoutes(in HealthRoutesIn) {
	router := mux.NewRouter()
	router.Handle(in.Servers.Health.Path, httpaux.ConstantHandler{
		StatusCode: http.StatusOK,
	}).Methods(http.MethodGet)

	runServer(in.Lifecycle, in.Logger, "health", in.Servers.Health, in.Metrics.instrument("health").Then(router))
}

type MetricsRoutesIn struct {
	fx.In
	Lifecycle fx.Lifecycle
	Logger    *zap.Logger
	Servers   ServerConfigs
	Gatherer  prometheus.Gatherer
}

// BuildMetricsRoutes exposes the prometheus registry.
func BuildMetricsRoutes(in MetricsRoutesIn) {
	router := mux.NewRouter()
	router.Handle(in.Servers.Metrics.Path, promhttp.HandlerFor(in.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	runServer(in.Lifecycle, in.Logger, "metrics", in.Servers.Metrics, router)
}

// runServer binds the server on start and shuts it down gracefully on stop.
// An empty address disables the server.
func runServer(lc fx.Lifecycle, logger *zap.Logger, name string, config ServerConfig, h http.Handler) {
	if config.Address == "" {
		logger.Info("server disabled", zap.String("server", name))
		return
	}

	s := &http.Server{
		Addr:         config.Address,
		Handler:      h,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
		ErrorLog:     zap.NewStdLog(logger.With(zap.String("server", name))),
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			l, err := net.Listen("tcp", s.Addr)
			if err != nil {
				return fmt.Errorf("server %s: %w", name, err)
			}
			logger.Info("starting server", zap.String("server", name), zap.Stringer("address", l.Addr()))
			go func() {
				if err := s.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server exited", zap.String("server", name), zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping server", zap.String("server", name))
			return s.Shutdown(ctx)
		},
	})
}
