// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package showcase

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmidt-org/showcase/model"
)

func TestParseCooldowns(t *testing.T) {
	tcs := []struct {
		Description string
		Raw         map[string]interface{}
		Expected    map[model.Category]time.Duration
		ExpectErr   bool
	}{
		{
			Description: "Mixed value types",
			Raw: map[string]interface{}{
				"item":        "15s",
				"INVENTORY":   30,
				"ender_chest": 2.5,
				"stats":       time.Minute,
			},
			Expected: map[model.Category]time.Duration{
				model.Item:       15 * time.Second,
				model.Inventory:  30 * time.Second,
				model.EnderChest: 2500 * time.Millisecond,
				model.Stats:      time.Minute,
			},
		},
		{
			Description: "Numeric strings are seconds",
			Raw: map[string]interface{}{
				"item":      "10",
				"hotbar":    "2.5",
				"container": " 4 ",
				"merchant":  "0",
			},
			Expected: map[model.Category]time.Duration{
				model.Item:      10 * time.Second,
				model.Hotbar:    2500 * time.Millisecond,
				model.Container: 4 * time.Second,
				model.Merchant:  0,
			},
		},
		{
			Description: "Unknown category",
			Raw:         map[string]interface{}{"backpack": "1s"},
			ExpectErr:   true,
		},
		{
			Description: "Bad duration",
			Raw:         map[string]interface{}{"item": "soon"},
			ExpectErr:   true,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.Description, func(t *testing.T) {
			assert := assert.New(t)
			cooldowns, err := ParseCooldowns(tc.Raw)
			if tc.ExpectErr {
				assert.Error(err)
				return
			}
			assert.NoError(err)
			assert.Equal(tc.Expected, cooldowns)
		})
	}
}

func TestParseAdmins(t *testing.T) {
	assert := assert.New(t)
	admins, err := ParseAdmins([]string{" " + testActor.String() + " ", testOther.String()})
	assert.NoError(err)
	assert.Equal([]model.Actor{testActor, testOther}, admins)

	_, err = ParseAdmins([]string{"root"})
	assert.Error(err)
}

func TestConfigDefaults(t *testing.T) {
	assert := assert.New(t)
	c := Config{
		DefaultTTL: 2 * time.Hour,
		MaxTTL:     time.Hour,
		Cooldowns:  map[model.Category]time.Duration{model.Item: 0},
	}.withDefaults()

	assert.Equal(2*time.Hour, c.MaxTTL)
	assert.Equal(DefaultCooldownWindow, c.CooldownFor(model.Hotbar))
	assert.Equal(time.Duration(0), c.CooldownFor(model.Item))
	assert.Equal(int64(200), c.CaptureTicks())
	assert.Equal(int64(1200), c.SweepTicks())
	assert.NoError(c.Validate())

	c.TicksPerSecond = 1
	c.SweepInterval = time.Millisecond
	assert.Equal(int64(1), c.SweepTicks())
}

func TestConfigValidate(t *testing.T) {
	require.Error(t, Config{DefaultTTL: -time.Second}.Validate())
	require.Error(t, Config{Cooldowns: map[model.Category]time.Duration{model.Item: -time.Second}}.Validate())
	require.NoError(t, Config{}.Validate())
}

func TestAdminPolicy(t *testing.T) {
	assert := assert.New(t)
	p := NewAdminPolicy(testActor)
	assert.True(p.IsAdmin(testActor))
	assert.True(p.CooldownExempt(testActor, model.Item))
	assert.False(p.IsAdmin(uuid.New()))
	assert.False(p.CooldownExempt(testOther, model.Item))
}
