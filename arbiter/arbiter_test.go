// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package arbiter

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestDispatch(t *testing.T) {
	tcs := []struct {
		Description     string
		Results         []Result
		ExpectedResult  Result
		ExpectedInvoked int
	}{
		{
			Description:     "Empty chain",
			ExpectedResult:  AllowAndContinue,
			ExpectedInvoked: 0,
		},
		{
			Description:     "All continue",
			Results:         []Result{AllowAndContinue, AllowAndContinue, AllowAndContinue},
			ExpectedResult:  AllowAndContinue,
			ExpectedInvoked: 3,
		},
		{
			Description:     "Stop in the middle",
			Results:         []Result{AllowAndContinue, AllowAndStop, Deny},
			ExpectedResult:  AllowAndStop,
			ExpectedInvoked: 2,
		},
		{
			Description:     "Deny first",
			Results:         []Result{Deny, AllowAndStop},
			ExpectedResult:  Deny,
			ExpectedInvoked: 1,
		},
		{
			Description:     "Unknown result denies",
			Results:         []Result{Result(42), AllowAndContinue},
			ExpectedResult:  Deny,
			ExpectedInvoked: 1,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.Description, func(t *testing.T) {
			assert := assert.New(t)
			c := New[int]("test", WithLogger(zaptest.NewLogger(t)))
			invoked := 0
			for _, r := range tc.Results {
				c.Register(func(int) Result {
					invoked++
					return r
				})
			}
			assert.Equal(len(tc.Results), c.Len())
			assert.Equal(tc.ExpectedResult, c.Dispatch(0))
			assert.Equal(tc.ExpectedInvoked, invoked)
		})
	}
}

func TestBlockedDescription(t *testing.T) {
	assert := assert.New(t)
	c := New[CreationEvent]("creation")
	counter := 0
	c.Register(func(e CreationEvent) Result {
		if e.Description == "blocked" {
			return Deny
		}
		return AllowAndContinue
	})
	c.Register(func(CreationEvent) Result {
		counter++
		return AllowAndContinue
	})

	assert.Equal(Deny, c.Dispatch(CreationEvent{Description: "blocked"}))
	assert.Equal(0, counter)
	assert.Equal(AllowAndContinue, c.Dispatch(CreationEvent{Description: "fine"}))
	assert.Equal(1, counter)
}

func TestPanickingListener(t *testing.T) {
	tcs := []struct {
		Description     string
		Policy          PanicPolicy
		ExpectedResult  Result
		ExpectedReached bool
	}{
		{
			Description:    "Deny policy",
			Policy:         PanicDeny,
			ExpectedResult: Deny,
		},
		{
			Description:     "Skip policy",
			Policy:          PanicSkip,
			ExpectedResult:  AllowAndStop,
			ExpectedReached: true,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.Description, func(t *testing.T) {
			assert := assert.New(t)
			c := New[string]("test", WithPanicPolicy(tc.Policy), WithLogger(zaptest.NewLogger(t)))
			reached := false
			c.Register(func(s string) Result {
				if s == "boom" {
					panic("listener exploded")
				}
				return AllowAndContinue
			})
			c.Register(func(string) Result {
				reached = true
				return AllowAndStop
			})

			assert.Equal(tc.ExpectedResult, c.Dispatch("boom"))
			assert.Equal(tc.ExpectedReached, reached)

			// the chain stays usable
			reached = false
			assert.Equal(AllowAndStop, c.Dispatch("calm"))
			assert.True(reached)
		})
	}
}

func TestRegisterDuringDispatch(t *testing.T) {
	assert := assert.New(t)
	c := New[int]("test")
	late := 0
	c.Register(func(int) Result {
		c.Register(func(int) Result {
			late++
			return AllowAndContinue
		})
		return AllowAndContinue
	})
	c.Register(nil)

	c.Dispatch(1)
	assert.Equal(0, late)
	assert.Equal(2, c.Len())
	c.Dispatch(2)
	assert.Equal(1, late)
}

func TestConcurrentDispatch(t *testing.T) {
	c := New[ViewEvent]("view")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.Register(func(ViewEvent) Result { return AllowAndContinue })
		}()
		go func() {
			defer wg.Done()
			c.Dispatch(ViewEvent{Viewer: uuid.New()})
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, c.Len())
}

func TestCreationEvent(t *testing.T) {
	assert := assert.New(t)
	a, b := uuid.New(), uuid.New()
	assert.True(CreationEvent{Initiator: a, Owner: a}.IsPublic())
	assert.False(CreationEvent{Initiator: a, Owner: a}.IsAdministrative())
	assert.True(CreationEvent{Initiator: a, Owner: b}.IsAdministrative())
	assert.False(CreationEvent{Recipients: []uuid.UUID{b}}.IsPublic())
}

func TestResultString(t *testing.T) {
	for r, expected := range map[Result]string{
		AllowAndContinue: "allow_and_continue",
		AllowAndStop:     "allow_and_stop",
		Deny:             "deny",
		Result(9):        "unknown",
	} {
		assert.Equal(t, expected, r.String(), fmt.Sprint(int(r)))
	}
	assert.True(t, AllowAndStop.Allowed())
	assert.False(t, Deny.Allowed())
}

func TestShortCircuitProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("first non-continue wins and stops the chain", prop.ForAll(
		func(raw []int) bool {
			c := New[struct{}]("prop")
			invoked := make([]bool, len(raw))
			for i, v := range raw {
				r := Result(v)
				c.Register(func(struct{}) Result {
					invoked[i] = true
					return r
				})
			}

			expected, stop := AllowAndContinue, len(raw)
			for i, v := range raw {
				if Result(v) != AllowAndContinue {
					expected, stop = Result(v), i
					break
				}
			}

			if c.Dispatch(struct{}{}) != expected {
				return false
			}
			for i := range raw {
				if invoked[i] != (i <= stop) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 2)),
	))

	properties.TestingRun(t)
}
