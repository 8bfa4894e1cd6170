// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package showcase

import (
	"github.com/xmidt-org/showcase/model"
)

// Policy answers the permission questions the coordinator doesn't own.
type Policy interface {
	// IsAdmin reports whether the actor may cancel foreign shares and view
	// restricted ones.
	IsAdmin(actor model.Actor) bool

	// CooldownExempt reports whether the actor skips the creation window of
	// the category.
	CooldownExempt(actor model.Actor, category model.Category) bool
}

// AdminPolicy grants every administrative right, cooldown exemption
// included, to a fixed set of actors.
type AdminPolicy map[model.Actor]struct{}

func NewAdminPolicy(admins ...model.Actor) AdminPolicy {
	p := make(AdminPolicy, len(admins))
	for _, a := range admins {
		p[a] = struct{}{}
	}
	return p
}

func (p AdminPolicy) IsAdmin(actor model.Actor) bool {
	_, ok := p[actor]
	return ok
}

func (p AdminPolicy) CooldownExempt(actor model.Actor, _ model.Category) bool {
	return p.IsAdmin(actor)
}
