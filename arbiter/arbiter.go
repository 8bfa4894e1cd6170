// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package arbiter lets external listeners observe and veto share events.
package arbiter

import (
	"errors"
	"sync"

	"emperror.dev/emperror"
	"github.com/xmidt-org/sallust"
	"go.uber.org/zap"
)

// Result is the outcome of one listener, and of a whole dispatch.
type Result int

const (
	// AllowAndContinue lets the next listener decide.
	AllowAndContinue Result = iota

	// AllowAndStop allows the action without asking the remaining listeners.
	AllowAndStop

	// Deny aborts the action without asking the remaining listeners.
	Deny
)

func (r Result) String() string {
	switch r {
	case AllowAndContinue:
		return "allow_and_continue"
	case AllowAndStop:
		return "allow_and_stop"
	case Deny:
		return "deny"
	default:
		return "unknown"
	}
}

// Allowed reports whether the action may proceed.
func (r Result) Allowed() bool {
	return r != Deny
}

// PanicPolicy decides what a panicking listener means for the dispatch.
type PanicPolicy int

const (
	// PanicDeny treats the panic as a Deny.
	PanicDeny PanicPolicy = iota

	// PanicSkip ignores the listener and goes on with the next one.
	PanicSkip
)

var errListenerPanic = errors.New("listener panicked")

// Listener inspects an event and returns its verdict.
type Listener[E any] func(E) Result

// Chain is an ordered, short-circuiting list of listeners for one event kind.
type Chain[E any] struct {
	name      string
	lock      sync.RWMutex
	listeners []Listener[E]
	policy    PanicPolicy
	logger    *zap.Logger
}

// Option configures a Chain.
type Option func(*options)

type options struct {
	policy PanicPolicy
	logger *zap.Logger
}

func WithPanicPolicy(p PanicPolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// New returns an empty chain. The name only shows up in logs.
func New[E any](name string, opts ...Option) *Chain[E] {
	o := options{
		policy: PanicDeny,
		logger: sallust.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Chain[E]{
		name:   name,
		policy: o.policy,
		logger: o.logger.With(zap.String("chain", name)),
	}
}

// Register appends a listener. Nil listeners are ignored.
func (c *Chain[E]) Register(l Listener[E]) {
	if l == nil {
		return
	}
	c.lock.Lock()
	c.listeners = append(c.listeners, l)
	c.lock.Unlock()
}

func (c *Chain[E]) Len() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return len(c.listeners)
}

// Dispatch runs the listeners in registration order and returns the first
// result that isn't AllowAndContinue. Listeners registered during a dispatch
// only see later events.
func (c *Chain[E]) Dispatch(event E) Result {
	c.lock.RLock()
	listeners := make([]Listener[E], len(c.listeners))
	copy(listeners, c.listeners)
	c.lock.RUnlock()

	for i, l := range listeners {
		r, err := c.call(l, event)
		if err != nil {
			c.logger.Error("share event listener panicked", zap.Int("listener", i), zap.Error(err))
			if c.policy == PanicSkip {
				continue
			}
			return Deny
		}
		if r != AllowAndContinue {
			return r
		}
	}
	return AllowAndContinue
}

func (c *Chain[E]) call(l Listener[E], event E) (r Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = emperror.Wrap(errors.Join(errListenerPanic, emperror.Recover(p)), "dispatch failed")
		}
	}()
	r = l(event)
	if r < AllowAndContinue || r > Deny {
		r = Deny
	}
	return r, nil
}
