// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package cooldown rate limits actors per share category.
package cooldown

import (
	"sync"
	"time"

	"github.com/xmidt-org/showcase/model"
)

type actorRecords struct {
	lock     sync.Mutex
	lastUsed map[model.Category]time.Time
}

// Tracker remembers when each actor last acted in each category. The window
// an action is throttled for is supplied by the caller on every query.
type Tracker struct {
	actors sync.Map // model.Actor -> *actorRecords
	now    func() time.Time
}

// NewTracker returns an empty tracker. A nil now selects time.Now.
func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{now: now}
}

func (t *Tracker) records(actor model.Actor, create bool) *actorRecords {
	if r, ok := t.actors.Load(actor); ok {
		return r.(*actorRecords)
	}
	if !create {
		return nil
	}
	r, _ := t.actors.LoadOrStore(actor, &actorRecords{lastUsed: map[model.Category]time.Time{}})
	return r.(*actorRecords)
}

func (t *Tracker) lastUsed(actor model.Actor, category model.Category) (time.Time, bool) {
	r := t.records(actor, false)
	if r == nil {
		return time.Time{}, false
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	last, ok := r.lastUsed[category]
	return last, ok
}

// IsOnCooldown reports whether less than window has passed since the actor
// last acted in the category.
func (t *Tracker) IsOnCooldown(actor model.Actor, category model.Category, window time.Duration) bool {
	return t.Remaining(actor, category, window) > 0
}

// MarkUsed records that the actor acted in the category now.
func (t *Tracker) MarkUsed(actor model.Actor, category model.Category) {
	r := t.records(actor, true)
	now := t.now()
	r.lock.Lock()
	r.lastUsed[category] = now
	r.lock.Unlock()
}

// Remaining returns how long the actor still has to wait, or zero.
func (t *Tracker) Remaining(actor model.Actor, category model.Category, window time.Duration) time.Duration {
	last, ok := t.lastUsed(actor, category)
	if !ok {
		return 0
	}
	left := last.Add(window).Sub(t.now())
	if left < 0 {
		return 0
	}
	return left
}

// RemainingSeconds is Remaining rounded up to whole seconds.
func (t *Tracker) RemainingSeconds(actor model.Actor, category model.Category, window time.Duration) int {
	left := t.Remaining(actor, category, window)
	return int((left + time.Second - 1) / time.Second)
}

// Clear drops every record of the actor.
func (t *Tracker) Clear(actor model.Actor) {
	t.actors.Delete(actor)
}

func (t *Tracker) ClearAll() {
	t.actors.Clear()
}
