// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/justinas/alice"
	"github.com/spf13/viper"
	"github.com/xmidt-org/bascule"
	"github.com/xmidt-org/bascule/basculechecks"
	"github.com/xmidt-org/bascule/basculehttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// adminBasicKey lists the base64 encoded user:password pairs accepted on
// the admin routes.
const adminBasicKey = "auth.basic"

type AdminAuthIn struct {
	fx.In
	Viper  *viper.Viper
	Logger *zap.Logger
}

type AdminAuthOut struct {
	fx.Out
	Chain alice.Chain `name:"admin_auth_chain"`
}

// provideAdminAuthChain builds the middleware guarding the admin routes.
// Without configured credentials every admin request is rejected.
func provideAdminAuthChain(in AdminAuthIn) (AdminAuthOut, error) {
	basic := in.Viper.GetStringSlice(adminBasicKey)
	tf, err := basculehttp.NewBasicTokenFactoryFromList(basic)
	if err != nil {
		return AdminAuthOut{}, fmt.Errorf("invalid %s: %w", adminBasicKey, err)
	}
	if len(tf) == 0 {
		in.Logger.Warn("no admin credentials configured, admin routes are unreachable", zap.String("key", adminBasicKey))
	}

	onError := func(reason basculehttp.ErrorResponseReason, err error) {
		in.Logger.Info("admin request rejected", zap.Any("reason", reason), zap.Error(err))
	}

	authConstructor := basculehttp.NewConstructor(
		basculehttp.WithTokenFactory("Basic", tf),
		basculehttp.WithCErrorResponseFunc(onError),
	)
	authEnforcer := basculehttp.NewEnforcer(
		basculehttp.WithRules("Basic", bascule.Validators{
			basculechecks.AllowAll(),
		}),
		basculehttp.WithEErrorResponseFunc(onError),
	)

	return AdminAuthOut{Chain: alice.New(authConstructor, authEnforcer)}, nil
}
