// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package showcase

import (
	"encoding/json"
	"time"

	"github.com/xmidt-org/showcase/model"
)

// CreateStatus is how a creation attempt ended.
type CreateStatus int

const (
	Created CreateStatus = iota
	OnCooldown
	Denied
	// Pending means a capture request is waiting for the actor to open something.
	Pending
	TimedOut
	EmptyCapture
	// Failed means the registry couldn't store the share.
	Failed
)

var createStatusNames = map[CreateStatus]string{
	Created:      "created",
	OnCooldown:   "on_cooldown",
	Denied:       "denied",
	Pending:      "pending",
	TimedOut:     "timed_out",
	EmptyCapture: "empty_capture",
	Failed:       "failed",
}

func (s CreateStatus) String() string {
	if n, ok := createStatusNames[s]; ok {
		return n
	}
	return "unknown"
}

func (s CreateStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// CreateRequest asks for a share of content handed in directly.
type CreateRequest struct {
	Initiator model.Actor
	// Owner owns the content. It is the initiator unless an admin shares on
	// someone's behalf.
	Owner       model.Actor
	Category    model.Category
	Snapshot    model.Snapshot
	Recipients  []model.Actor
	Description string
	// Duration is the validity; zero selects the configured default.
	Duration time.Duration
}

// CaptureRequest asks for a share of whatever the initiator opens next.
type CaptureRequest struct {
	Initiator   model.Actor
	Category    model.Category
	Recipients  []model.Actor
	Description string
	Duration    time.Duration

	// TimeoutMessage is handed back in the result when nothing was opened in time.
	TimeoutMessage string
}

type CreateResult struct {
	Status    CreateStatus    `json:"status"`
	Reference model.Reference `json:"reference,omitempty"`
	// RemainingSeconds is set for OnCooldown.
	RemainingSeconds int    `json:"remainingSeconds,omitempty"`
	Message          string `json:"message,omitempty"`
}

// ViewStatus is how a view attempt ended.
type ViewStatus int

const (
	Granted ViewStatus = iota
	NotFound
	ViewDenied
	NotRecipient
)

var viewStatusNames = map[ViewStatus]string{
	Granted:      "granted",
	NotFound:     "not_found",
	ViewDenied:   "denied",
	NotRecipient: "not_recipient",
}

func (s ViewStatus) String() string {
	if n, ok := viewStatusNames[s]; ok {
		return n
	}
	return "unknown"
}

type ViewResult struct {
	Status ViewStatus
	// Entry is set when the view was granted.
	Entry model.Entry
}

// Snapshot returns the shared content of a granted view.
func (r ViewResult) Snapshot() model.Snapshot {
	return r.Entry.Snapshot
}
