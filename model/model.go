// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownCategory is returned when a category name doesn't match any known share kind.
var ErrUnknownCategory = errors.New("unknown share category")

// Reference is the short opaque token identifying one share.
type Reference string

// Actor identifies a user that creates, owns or views shares.
type Actor = uuid.UUID

// ParseActor parses the textual form of an actor identity.
func ParseActor(s string) (Actor, error) {
	return uuid.Parse(strings.TrimSpace(s))
}

// Category is the kind of content a share holds.
type Category string

// Share categories.
const (
	Item       Category = "item"
	Inventory  Category = "inventory"
	Hotbar     Category = "hotbar"
	EnderChest Category = "ender_chest"
	Container  Category = "container"
	Merchant   Category = "merchant"
	Stats      Category = "stats"
)

// Categories lists every known category in a stable order.
var Categories = []Category{Item, Inventory, Hotbar, EnderChest, Container, Merchant, Stats}

// ParseCategory normalizes and validates a category name.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Captured reports whether shares of this category are created from an external
// capture (the actor opening something) rather than handed in directly.
func (c Category) Captured() bool {
	return c == Container || c == Merchant
}

// Snapshot is an opaque read-only copy of the shared content. The core never
// inspects or mutates it.
type Snapshot any

// Emptier is implemented by snapshots that can tell whether they hold any content.
type Emptier interface {
	IsEmpty() bool
}

// IsEmptySnapshot reports whether a snapshot is absent or declares itself empty.
func IsEmptySnapshot(s Snapshot) bool {
	if s == nil {
		return true
	}
	if e, ok := s.(Emptier); ok {
		return e.IsEmpty()
	}
	return false
}

// Entry is a published snapshot as seen by callers of the registry. It is a
// copy; mutating it has no effect on the stored share.
type Entry struct {
	// Owner is the actor whose content is shared.
	Owner Actor `json:"owner"`

	// Category is the kind of content.
	Category Category `json:"category"`

	// Snapshot is the shared content.
	Snapshot Snapshot `json:"snapshot,omitempty"`

	// Recipients restricts who may view the share. Empty means public.
	Recipients []Actor `json:"recipients,omitempty"`

	// Description is an optional free text provided by the initiator.
	Description string `json:"description,omitempty"`

	// CreatedAt is when the share was created.
	CreatedAt time.Time `json:"createdAt"`

	// TTLSeconds is the validity duration fixed at creation.
	TTLSeconds int64 `json:"ttl"`

	// ViewCount is how many views were recorded.
	ViewCount int64 `json:"viewCount"`

	// Invalidated is set once the share was cancelled.
	Invalidated bool `json:"invalidated"`

	// Pending hides a stored entry from lookups and listings until it is
	// published.
	Pending bool `json:"-"`
}

// ExpiresAt returns the instant after which the entry is no longer live.
func (e Entry) ExpiresAt() time.Time {
	return e.CreatedAt.Add(time.Duration(e.TTLSeconds) * time.Second)
}

// Live reports whether the entry may still be served at the given instant.
func (e Entry) Live(now time.Time) bool {
	return !e.Invalidated && now.Sub(e.CreatedAt) < time.Duration(e.TTLSeconds)*time.Second
}

// Visible reports whether the entry is live and published.
func (e Entry) Visible(now time.Time) bool {
	return !e.Pending && e.Live(now)
}

// Public reports whether anyone may view the entry.
func (e Entry) Public() bool {
	return len(e.Recipients) == 0
}

// IsRecipient reports whether the actor was named as a recipient.
func (e Entry) IsRecipient(a Actor) bool {
	for _, r := range e.Recipients {
		if r == a {
			return true
		}
	}
	return false
}
