// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"time"

	"github.com/xmidt-org/showcase/model"
)

const (
	// TypeLabel is for labeling metrics; if there is a single metric for
	// registry operations, the typeLabel and corresponding type can be used
	// when incrementing the metric.
	TypeLabel      = "type"
	InsertType     = "insert"
	LookupType     = "lookup"
	ViewType       = "view"
	InvalidateType = "invalidate"
	SweepType      = "sweep"
)

// S is the share registry. Implementations must be safe for concurrent use
// without any locking on the caller's side.
//
// Lookups never fail for unknown references; they report "not found" through
// their boolean result. Only Insert returns an error, and only when the
// registry cannot hand out a fresh reference.
type S interface {
	// Insert stores the entry under a freshly generated reference. An entry
	// marked Pending stays hidden until it is published.
	Insert(entry model.Entry) (model.Reference, error)

	// Publish makes a live pending entry visible. It returns false when the
	// entry is unknown, no longer live or already published.
	Publish(ref model.Reference) bool

	// Lookup returns the entry if it is visible. A present but expired or
	// invalidated entry is removed as a side effect.
	Lookup(ref model.Reference) (model.Entry, bool)

	// RecordView increments the view counter of a visible entry.
	RecordView(ref model.Reference) bool

	// Invalidate force-expires an entry. It returns true only for the call
	// that performed the transition.
	Invalidate(ref model.Reference) bool

	// Delete removes an entry regardless of its state.
	Delete(ref model.Reference) bool

	// RemoveAllOwnedBy invalidates every live entry of the owner and returns
	// how many were affected.
	RemoveAllOwnedBy(owner model.Actor) int

	// OwnedBy returns the visible entries of the owner.
	OwnedBy(owner model.Actor) map[model.Reference]model.Entry

	// Sweep removes every entry that isn't live as of now and returns the
	// number of removed entries.
	Sweep(now time.Time) int

	// Count returns the number of visible entries.
	Count() int

	// References returns a snapshot of the visible references.
	References() []model.Reference
}

// FilterOwner keeps the entries that belong to owner.
func FilterOwner(entries map[model.Reference]model.Entry, owner model.Actor) map[model.Reference]model.Entry {
	filtered := map[model.Reference]model.Entry{}
	for k, v := range entries {
		if v.Owner == owner {
			filtered[k] = v
		}
	}
	return filtered
}
