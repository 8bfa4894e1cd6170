// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package showcase

import (
	"context"

	"github.com/xmidt-org/showcase/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type coordinatorIn struct {
	fx.In

	Config    Config
	Registry  store.S
	Logger    *zap.Logger
	Lifecycle fx.Lifecycle
}

// ProvideCoordinator builds the Coordinator, its metrics and its HTTP
// handlers. The coordinator is closed when the application stops.
func ProvideCoordinator() fx.Option {
	return fx.Options(
		ProvideMetrics(),
		fx.Provide(
			newCoordinator,
			func(c *Coordinator) Service { return c },
			fx.Annotated{
				Name:   "create_share_handler",
				Target: newCreateShareHandler,
			},
			fx.Annotated{
				Name:   "capture_share_handler",
				Target: newCaptureShareHandler,
			},
			fx.Annotated{
				Name:   "opened_handler",
				Target: newOpenedHandler,
			},
			fx.Annotated{
				Name:   "list_shares_handler",
				Target: newListSharesHandler,
			},
			fx.Annotated{
				Name:   "get_share_handler",
				Target: newGetShareHandler,
			},
			fx.Annotated{
				Name:   "view_share_handler",
				Target: newViewShareHandler,
			},
			fx.Annotated{
				Name:   "cancel_share_handler",
				Target: newCancelShareHandler,
			},
			fx.Annotated{
				Name:   "cancel_all_handler",
				Target: newCancelAllHandler,
			},
			fx.Annotated{
				Name:   "cooldown_handler",
				Target: newCooldownHandler,
			},
		),
	)
}

func newCoordinator(in coordinatorIn, measures Measures) (*Coordinator, error) {
	c, err := New(in.Config, in.Registry, &measures, WithLogger(in.Logger))
	if err != nil {
		return nil, err
	}
	in.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			c.Close()
			return nil
		},
	})
	return c, nil
}

// Handlers are the HTTP handlers of the share operations.
type Handlers struct {
	fx.In

	Create    Handler `name:"create_share_handler"`
	Capture   Handler `name:"capture_share_handler"`
	Opened    Handler `name:"opened_handler"`
	List      Handler `name:"list_shares_handler"`
	Get       Handler `name:"get_share_handler"`
	View      Handler `name:"view_share_handler"`
	Cancel    Handler `name:"cancel_share_handler"`
	CancelAll Handler `name:"cancel_all_handler"`
	Cooldown  Handler `name:"cooldown_handler"`
}
