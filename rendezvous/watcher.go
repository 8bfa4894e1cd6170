// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package rendezvous correlates a pending capture request of an actor with
// the next time that actor opens something, within a bounded number of ticks.
package rendezvous

import (
	"errors"
	"sync"
	"sync/atomic"

	"emperror.dev/emperror"
	"github.com/xmidt-org/sallust"
	"github.com/xmidt-org/showcase/model"
	"github.com/xmidt-org/showcase/store"
	"go.uber.org/zap"
)

var errAlreadyFired = errors.New("pending capture resolved twice")

// SuccessFunc receives the data captured for the actor.
type SuccessFunc func(actor model.Actor, data model.Snapshot)

// TimeoutFunc is called when the actor didn't open anything in time.
type TimeoutFunc func(actor model.Actor)

type pending struct {
	onSuccess SuccessFunc
	onTimeout TimeoutFunc
	ticksLeft atomic.Int64
	fired     atomic.Bool
}

// Watcher holds at most one pending request per actor. Whoever removes a
// request from the table, NotifyOpened or Advance, is the only one allowed
// to fire it.
type Watcher struct {
	name    string
	pending sync.Map // model.Actor -> *pending
	logger  *zap.Logger
}

// NewWatcher returns an empty watcher. The name only shows up in logs.
func NewWatcher(name string, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = sallust.Default()
	}
	return &Watcher{
		name:   name,
		logger: logger.With(zap.String("watcher", name)),
	}
}

// Await registers a request for the actor that times out after the given
// number of Advance calls. A request the actor already had is dropped
// without firing any of its callbacks.
func (w *Watcher) Await(actor model.Actor, ticks int64, onSuccess SuccessFunc, onTimeout TimeoutFunc) {
	p := &pending{
		onSuccess: onSuccess,
		onTimeout: onTimeout,
	}
	p.ticksLeft.Store(ticks)
	if _, replaced := w.pending.Swap(actor, p); replaced {
		w.logger.Debug("pending capture superseded", zap.Stringer("actor", actor))
	}
}

// NotifyOpened resolves the actor's pending request with data. It returns
// false, without calling anything, when the actor isn't waiting.
func (w *Watcher) NotifyOpened(actor model.Actor, data model.Snapshot) bool {
	for {
		v, ok := w.pending.Load(actor)
		if !ok {
			return false
		}
		p := v.(*pending)
		if w.pending.CompareAndDelete(actor, p) {
			w.fire(actor, p, func() {
				if p.onSuccess != nil {
					p.onSuccess(actor, data)
				}
			})
			return true
		}
	}
}

type expired struct {
	actor model.Actor
	p     *pending
}

// Advance counts every pending request down by one tick and times out those
// that reached zero. It returns the number of timeouts fired.
func (w *Watcher) Advance() int {
	var due []expired
	w.pending.Range(func(k, v any) bool {
		p := v.(*pending)
		if p.ticksLeft.Add(-1) <= 0 {
			due = append(due, expired{actor: k.(model.Actor), p: p})
		}
		return true
	})

	fired := 0
	for _, d := range due {
		if !w.pending.CompareAndDelete(d.actor, d.p) {
			continue
		}
		w.fire(d.actor, d.p, func() {
			if d.p.onTimeout != nil {
				d.p.onTimeout(d.actor)
			}
		})
		fired++
	}
	return fired
}

// fire runs one callback of p. A callback that panics is logged so the
// remaining requests still get resolved.
func (w *Watcher) fire(actor model.Actor, p *pending, callback func()) {
	if !p.fired.CompareAndSwap(false, true) {
		panic(store.InvariantViolation(errAlreadyFired, "rendezvous broken",
			"watcher", w.name, "actor", actor.String()))
	}
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("capture callback panicked", zap.Stringer("actor", actor),
				zap.Error(emperror.Recover(r)))
		}
	}()
	callback()
}

// Pending reports whether the actor has a request waiting.
func (w *Watcher) Pending(actor model.Actor) bool {
	_, ok := w.pending.Load(actor)
	return ok
}

func (w *Watcher) Len() int {
	n := 0
	w.pending.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}

// Cleanup drops every pending request without firing anything and returns
// how many were dropped.
func (w *Watcher) Cleanup() int {
	n := 0
	w.pending.Range(func(k, _ any) bool {
		if _, ok := w.pending.LoadAndDelete(k); ok {
			n++
		}
		return true
	})
	return n
}
