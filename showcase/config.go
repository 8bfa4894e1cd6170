// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package showcase

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"
	"github.com/xmidt-org/showcase/model"
)

const (
	DefaultTTL            = 5 * time.Minute
	DefaultMaxTTL         = 24 * time.Hour
	DefaultCooldownWindow = 10 * time.Second
	DefaultCaptureWindow  = 10 * time.Second
	DefaultTicksPerSecond = 20
	DefaultSweepInterval  = time.Minute
)

// Config holds the tunables of a Coordinator. Zero values select defaults.
type Config struct {
	// DefaultTTL is used for shares created without an explicit duration.
	DefaultTTL time.Duration `validate:"gte=0"`

	// MaxTTL caps explicit durations.
	MaxTTL time.Duration `validate:"gte=0"`

	// DefaultCooldown applies to categories missing from Cooldowns.
	DefaultCooldown time.Duration `validate:"gte=0"`

	// Cooldowns are the per category creation windows.
	Cooldowns map[model.Category]time.Duration `validate:"dive,keys,category,endkeys,gte=0"`

	// CaptureWindow is how long a capture request waits for the actor to
	// open something.
	CaptureWindow time.Duration `validate:"gte=0"`

	// TicksPerSecond converts the capture window into clock ticks.
	TicksPerSecond int64 `validate:"gte=0"`

	// SweepInterval is how often expired shares are actively removed.
	SweepInterval time.Duration `validate:"gte=0"`

	// Admins may cancel any share and view restricted ones.
	Admins []model.Actor
}

func (c Config) withDefaults() Config {
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = DefaultTTL
	}
	if c.MaxTTL <= 0 {
		c.MaxTTL = DefaultMaxTTL
	}
	if c.MaxTTL < c.DefaultTTL {
		c.MaxTTL = c.DefaultTTL
	}
	if c.DefaultCooldown <= 0 {
		c.DefaultCooldown = DefaultCooldownWindow
	}
	if c.CaptureWindow <= 0 {
		c.CaptureWindow = DefaultCaptureWindow
	}
	if c.TicksPerSecond <= 0 {
		c.TicksPerSecond = DefaultTicksPerSecond
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	return c
}

// CooldownFor returns the creation window of the category.
func (c Config) CooldownFor(category model.Category) time.Duration {
	if w, ok := c.Cooldowns[category]; ok {
		return w
	}
	return c.DefaultCooldown
}

// CaptureTicks returns the capture window expressed in ticks.
func (c Config) CaptureTicks() int64 {
	return int64(c.CaptureWindow.Seconds() * float64(c.TicksPerSecond))
}

// SweepTicks returns the sweep interval expressed in ticks, at least one.
func (c Config) SweepTicks() int64 {
	if n := int64(c.SweepInterval.Seconds() * float64(c.TicksPerSecond)); n > 0 {
		return n
	}
	return 1
}

var configValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return model.Category(fl.Field().String()).Valid()
	})
	return v
}

// Validate reports the first invalid field of c.
func (c Config) Validate() error {
	return configValidator.Struct(c)
}

// ParseCooldowns converts loosely typed configuration, such as a map read from
// a YAML file, into per category windows. Values may be durations, duration
// strings or a number of seconds, given as a number or a numeric string.
func ParseCooldowns(raw map[string]interface{}) (map[model.Category]time.Duration, error) {
	cooldowns := make(map[model.Category]time.Duration, len(raw))
	for k, v := range raw {
		category, err := model.ParseCategory(k)
		if err != nil {
			return nil, err
		}
		window, err := cooldownWindow(v)
		if err != nil {
			return nil, fmt.Errorf("invalid cooldown for %s: %w", category, err)
		}
		cooldowns[category] = window
	}
	return cooldowns, nil
}

func cooldownWindow(v interface{}) (time.Duration, error) {
	switch t := v.(type) {
	case int, int32, int64, uint, uint32, uint64, float32, float64:
		return seconds(cast.ToFloat64(v)), nil
	case string:
		if secs, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return seconds(secs), nil
		}
	}
	return cast.ToDurationE(v)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// ParseAdmins converts a list of actor identifiers.
func ParseAdmins(raw []string) ([]model.Actor, error) {
	admins := make([]model.Actor, 0, len(raw))
	for _, s := range raw {
		a, err := model.ParseActor(s)
		if err != nil {
			return nil, fmt.Errorf("invalid admin %q: %w", s, err)
		}
		admins = append(admins, a)
	}
	return admins, nil
}
