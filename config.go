// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"github.com/xmidt-org/candlelight"
	"github.com/xmidt-org/showcase/clock"
	"github.com/xmidt-org/showcase/showcase"
	"github.com/xmidt-org/showcase/store"
	"github.com/xmidt-org/showcase/store/inmem"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Configuration keys.
const (
	defaultTTLKey      = "showcase.defaultTTL"
	maxTTLKey          = "showcase.maxTTL"
	defaultCooldownKey = "showcase.defaultCooldown"
	cooldownsKey       = "showcase.cooldowns"
	captureWindowKey   = "showcase.captureWindow"
	tickIntervalKey    = "clock.tickInterval"
	sweepIntervalKey   = "clock.sweepInterval"
	adminsKey          = "showcase.admins"
	shardsKey          = "registry.shards"
	referenceLenKey    = "registry.referenceLength"
	tracingKey         = "tracing"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault(defaultTTLKey, showcase.DefaultTTL)
	v.SetDefault(maxTTLKey, showcase.DefaultMaxTTL)
	v.SetDefault(defaultCooldownKey, showcase.DefaultCooldownWindow)
	v.SetDefault(captureWindowKey, showcase.DefaultCaptureWindow)
	v.SetDefault(tickIntervalKey, clock.DefaultTickInterval)
	v.SetDefault(sweepIntervalKey, showcase.DefaultSweepInterval)
	v.SetDefault(shardsKey, inmem.DefaultShards)
	v.SetDefault(referenceLenKey, inmem.DefaultReferenceLength)
	v.SetDefault("servers.primary.address", ":6600")
	v.SetDefault("servers.health.address", ":6601")
	v.SetDefault("servers.health.path", "/health")
	v.SetDefault("servers.metrics.address", ":6602")
	v.SetDefault("servers.metrics.path", "/metrics")
}

func provideCoordinatorConfig(v *viper.Viper) (showcase.Config, error) {
	cooldowns, err := showcase.ParseCooldowns(v.GetStringMap(cooldownsKey))
	if err != nil {
		return showcase.Config{}, fmt.Errorf("invalid %s: %w", cooldownsKey, err)
	}

	admins, err := showcase.ParseAdmins(cast.ToStringSlice(v.Get(adminsKey)))
	if err != nil {
		return showcase.Config{}, fmt.Errorf("invalid %s: %w", adminsKey, err)
	}

	tickInterval := v.GetDuration(tickIntervalKey)
	if tickInterval <= 0 || tickInterval > time.Second {
		return showcase.Config{}, fmt.Errorf("invalid %s: %v", tickIntervalKey, tickInterval)
	}

	c := showcase.Config{
		DefaultTTL:      v.GetDuration(defaultTTLKey),
		MaxTTL:          v.GetDuration(maxTTLKey),
		DefaultCooldown: v.GetDuration(defaultCooldownKey),
		Cooldowns:       cooldowns,
		CaptureWindow:   v.GetDuration(captureWindowKey),
		TicksPerSecond:  int64(time.Second / tickInterval),
		SweepInterval:   v.GetDuration(sweepIntervalKey),
		Admins:          admins,
	}
	return c, c.Validate()
}

func provideClockConfig(v *viper.Viper, logger *zap.Logger) clock.Config {
	return clock.Config{
		TickInterval: v.GetDuration(tickIntervalKey),
		Logger:       logger,
	}
}

func provideRegistry(v *viper.Viper) store.S {
	return inmem.NewInMem(
		inmem.WithShards(v.GetInt(shardsKey)),
		inmem.WithReferenceLength(v.GetInt(referenceLenKey)),
	)
}

func provideDriver(config clock.Config, measures clock.Measures) (*clock.Driver, error) {
	return clock.NewDriver(config, &measures)
}

func provideTracingConfig(v *viper.Viper) (candlelight.Config, error) {
	var config candlelight.Config
	if err := v.UnmarshalKey(tracingKey, &config); err != nil {
		return candlelight.Config{}, err
	}
	config.ApplicationName = applicationName
	return config, nil
}

// startClock drives the coordinator from the clock for the lifetime of
// the application.
func startClock(lc fx.Lifecycle, d *clock.Driver, c *showcase.Coordinator) {
	d.Register(func(time.Time) {
		c.Tick()
	})
	lc.Append(fx.Hook{
		OnStart: d.Start,
		OnStop:  d.Stop,
	})
}
