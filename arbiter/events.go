// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package arbiter

import (
	"time"

	"github.com/xmidt-org/showcase/model"
)

// CreationEvent is dispatched once a share exists in the registry and before
// anyone is told about it.
type CreationEvent struct {
	// Initiator asked for the share.
	Initiator model.Actor

	// Owner owns the shared content. It differs from Initiator for shares
	// made on someone else's behalf.
	Owner model.Actor

	// Recipients is nil for public shares.
	Recipients []model.Actor

	Category    model.Category
	Entry       model.Entry
	Reference   model.Reference
	Description string

	// Duration is the explicit validity override, nil when the default was used.
	Duration *time.Duration
}

// IsPublic reports whether the share has no recipient restriction.
func (e CreationEvent) IsPublic() bool {
	return len(e.Recipients) == 0
}

// IsAdministrative reports whether the share was created for someone else.
func (e CreationEvent) IsAdministrative() bool {
	return e.Initiator != e.Owner
}

// ViewEvent is dispatched before a share is shown to a viewer.
type ViewEvent struct {
	Viewer    model.Actor
	Entry     model.Entry
	Reference model.Reference
	Owner     model.Actor
}

// CreationChain and ViewChain are the two chains a coordinator arbitrates with.
type (
	CreationChain = Chain[CreationEvent]
	ViewChain     = Chain[ViewEvent]
)
