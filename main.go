// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"github.com/xmidt-org/arrange"
	"github.com/xmidt-org/candlelight"
	"github.com/xmidt-org/showcase/clock"
	"github.com/xmidt-org/showcase/showcase"
	"github.com/xmidt-org/touchstone"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

const (
	applicationName = "showcase"
	apiBase         = "api/v1"
)

var (
	GitCommit = "undefined"
	Version   = "undefined"
	BuildTime = "undefined"
)

func main() {
	v, logger, err := setup(os.Args[1:], os.Stdout)
	switch {
	case errors.Is(err, errVersionPrinted), errors.Is(err, pflag.ErrHelp):
		return
	case err != nil:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	app := fx.New(
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l}
		}),
		arrange.ForViper(v),
		fx.Supply(logger, v),
		touchstone.Provide(),
		provideMetrics(),
		clock.ProvideMetrics(),
		showcase.ProvideCoordinator(),
		fx.Provide(
			provideCoordinatorConfig,
			provideClockConfig,
			provideRegistry,
			provideDriver,
			provideServerConfigs,
			provideTracingConfig,
			provideAdminAuthChain,
			candlelight.New,
		),
		fx.Invoke(
			startClock,
			BuildPrimaryRoutes,
			BuildMetricsRoutes,
			BuildHealthRoutes,
		),
	)

	if err := app.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	app.Run()
}
