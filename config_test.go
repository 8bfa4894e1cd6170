// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmidt-org/showcase/model"
	"github.com/xmidt-org/showcase/showcase"
	"go.uber.org/zap"
)

func newTestViper(t *testing.T, yaml string) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))
	return v
}

func TestProvideCoordinatorConfig(t *testing.T) {
	tcs := []struct {
		Description string
		Yaml        string
		Check       func(*assert.Assertions, showcase.Config)
		ExpectErr   bool
	}{
		{
			Description: "Defaults",
			Yaml:        "showcase: {}",
			Check: func(assert *assert.Assertions, c showcase.Config) {
				assert.Equal(showcase.DefaultTTL, c.DefaultTTL)
				assert.Equal(showcase.DefaultMaxTTL, c.MaxTTL)
				assert.Equal(int64(20), c.TicksPerSecond)
				assert.Empty(c.Admins)
				assert.Empty(c.Cooldowns)
			},
		},
		{
			Description: "Overrides",
			Yaml: `
showcase:
  defaultTTL: 90s
  cooldowns:
    hotbar: 3s
    stats: 1
  admins:
    - a9f1d8c2-3b4e-4f60-8a71-2c5d9e0b1f34
clock:
  tickInterval: 100ms
`,
			Check: func(assert *assert.Assertions, c showcase.Config) {
				assert.Equal(90*time.Second, c.DefaultTTL)
				assert.Equal(int64(10), c.TicksPerSecond)
				assert.Equal(map[model.Category]time.Duration{
					model.Hotbar: 3 * time.Second,
					model.Stats:  time.Second,
				}, c.Cooldowns)
				assert.Len(c.Admins, 1)
			},
		},
		{
			Description: "Unknown cooldown category",
			Yaml:        "showcase: {cooldowns: {backpack: 1s}}",
			ExpectErr:   true,
		},
		{
			Description: "Bad admin",
			Yaml:        "showcase: {admins: [root]}",
			ExpectErr:   true,
		},
		{
			Description: "Bad tick interval",
			Yaml:        "clock: {tickInterval: 2s}",
			ExpectErr:   true,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.Description, func(t *testing.T) {
			assert := assert.New(t)
			c, err := provideCoordinatorConfig(newTestViper(t, tc.Yaml))
			if tc.ExpectErr {
				assert.Error(err)
				return
			}
			assert.NoError(err)
			tc.Check(assert, c)
		})
	}
}

func TestProvideClockConfig(t *testing.T) {
	v := newTestViper(t, "clock: {tickInterval: 25ms}")
	c := provideClockConfig(v, zap.NewNop())
	assert.Equal(t, 25*time.Millisecond, c.TickInterval)
}

func TestProvideRegistry(t *testing.T) {
	assert := assert.New(t)
	r := provideRegistry(newTestViper(t, "registry: {referenceLength: 12}"))

	ref, err := r.Insert(model.Entry{Category: model.Item, Snapshot: "x", TTLSeconds: 60})
	assert.NoError(err)
	assert.Len(string(ref), 12)
}

func TestProvideServerConfigs(t *testing.T) {
	tcs := []struct {
		Description string
		Yaml        string
		Expected    ServerConfigs
	}{
		{
			Description: "Defaults",
			Yaml:        "{}",
			Expected: ServerConfigs{
				Primary: ServerConfig{Address: ":6600"},
				Health:  ServerConfig{Address: ":6601", Path: "/health"},
				Metrics: ServerConfig{Address: ":6602", Path: "/metrics"},
			},
		},
		{
			Description: "One server overridden",
			Yaml: `
servers:
  primary:
    address: ":8080"
    readTimeout: 5s
`,
			Expected: ServerConfigs{
				Primary: ServerConfig{Address: ":8080", ReadTimeout: 5 * time.Second},
				Health:  ServerConfig{Address: ":6601", Path: "/health"},
				Metrics: ServerConfig{Address: ":6602", Path: "/metrics"},
			},
		},
		{
			Description: "Part of a server overridden",
			Yaml: `
servers:
  health:
    idleTimeout: 1m
  metrics:
    path: /prometheus
`,
			Expected: ServerConfigs{
				Primary: ServerConfig{Address: ":6600"},
				Health:  ServerConfig{Address: ":6601", Path: "/health", IdleTimeout: time.Minute},
				Metrics: ServerConfig{Address: ":6602", Path: "/prometheus"},
			},
		},
		{
			Description: "Server disabled",
			Yaml: `
servers:
  metrics:
    address: ""
`,
			Expected: ServerConfigs{
				Primary: ServerConfig{Address: ":6600"},
				Health:  ServerConfig{Address: ":6601", Path: "/health"},
				Metrics: ServerConfig{Path: "/metrics"},
			},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.Description, func(t *testing.T) {
			assert.Equal(t, tc.Expected, provideServerConfigs(newTestViper(t, tc.Yaml)))
		})
	}
}
