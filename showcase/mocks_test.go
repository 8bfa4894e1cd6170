// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package showcase

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
	"github.com/xmidt-org/showcase/model"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) CreateShare(req CreateRequest) (CreateResult, error) {
	args := m.Called(req)
	return args.Get(0).(CreateResult), args.Error(1)
}

func (m *MockService) CreateCaptureShare(req CaptureRequest, report func(CreateResult)) (CreateResult, error) {
	args := m.Called(req, report)
	return args.Get(0).(CreateResult), args.Error(1)
}

func (m *MockService) NotifyOpened(category model.Category, actor model.Actor, snapshot model.Snapshot) bool {
	args := m.Called(category, actor, snapshot)
	return args.Bool(0)
}

func (m *MockService) Describe(viewer model.Actor, ref model.Reference) ViewResult {
	args := m.Called(viewer, ref)
	return args.Get(0).(ViewResult)
}

func (m *MockService) ViewShare(viewer model.Actor, ref model.Reference) ViewResult {
	args := m.Called(viewer, ref)
	return args.Get(0).(ViewResult)
}

func (m *MockService) GetEntry(ref model.Reference) (model.Entry, bool) {
	args := m.Called(ref)
	return args.Get(0).(model.Entry), args.Bool(1)
}

func (m *MockService) CancelShare(requester model.Actor, ref model.Reference) bool {
	args := m.Called(requester, ref)
	return args.Bool(0)
}

func (m *MockService) ForceCancel(ref model.Reference) bool {
	args := m.Called(ref)
	return args.Bool(0)
}

func (m *MockService) CancelAllForPlayer(owner model.Actor) int {
	args := m.Called(owner)
	return args.Int(0)
}

func (m *MockService) ListLiveReferences() []model.Reference {
	args := m.Called()
	return args.Get(0).([]model.Reference)
}

func (m *MockService) SharesOwnedBy(owner model.Actor) map[model.Reference]model.Entry {
	args := m.Called(owner)
	return args.Get(0).(map[model.Reference]model.Entry)
}

func (m *MockService) IsOnCooldown(actor model.Actor, category model.Category) bool {
	args := m.Called(actor, category)
	return args.Bool(0)
}

func (m *MockService) RemainingCooldownSeconds(actor model.Actor, category model.Category) int {
	args := m.Called(actor, category)
	return args.Int(0)
}

type MockPolicy struct {
	mock.Mock
}

func (m *MockPolicy) IsAdmin(actor model.Actor) bool {
	args := m.Called(actor)
	return args.Bool(0)
}

func (m *MockPolicy) CooldownExempt(actor model.Actor, category model.Category) bool {
	args := m.Called(actor, category)
	return args.Bool(0)
}

func newTestMeasures() *Measures {
	return &Measures{
		Creations:  prometheus.NewCounterVec(prometheus.CounterOpts{Name: "testCreations"}, []string{CategoryLabel, OutcomeLabel}),
		Views:      prometheus.NewCounterVec(prometheus.CounterOpts{Name: "testViews"}, []string{OutcomeLabel}),
		Captures:   prometheus.NewCounterVec(prometheus.CounterOpts{Name: "testCaptures"}, []string{CategoryLabel, OutcomeLabel}),
		Swept:      prometheus.NewCounter(prometheus.CounterOpts{Name: "testSwept"}),
		LiveShares: prometheus.NewGauge(prometheus.GaugeOpts{Name: "testLiveShares"}),
	}
}

// emptyChest is a capture that holds nothing.
type emptyChest struct{}

func (emptyChest) IsEmpty() bool { return true }

type testClock struct {
	current time.Time
}

func (c *testClock) now() time.Time {
	return c.current
}

func (c *testClock) advance(d time.Duration) {
	c.current = c.current.Add(d)
}
