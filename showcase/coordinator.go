// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package showcase

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/xmidt-org/sallust"
	"github.com/xmidt-org/showcase/arbiter"
	"github.com/xmidt-org/showcase/cooldown"
	"github.com/xmidt-org/showcase/model"
	"github.com/xmidt-org/showcase/rendezvous"
	"github.com/xmidt-org/showcase/store"
	"go.uber.org/zap"
)

// Errors that can be returned by this package. Since some of these errors are returned wrapped, it
// is safest to use errors.Is() to check for them.
var (
	ErrNilRegistry        = errors.New("share registry cannot be nil")
	ErrNilMeasures        = errors.New("measures cannot be nil")
	ErrNotCaptureCategory = errors.New("category is not captured")
)

// capture outcomes
const (
	captureRequested = "requested"
	captureResolved  = "resolved"
	captureEmpty     = "empty"
	captureTimedOut  = "timed_out"
)

// Coordinator composes the registry, the cooldown tracker, the event chains
// and the capture watchers into the share operations. All methods are safe
// for concurrent use and none of them block.
type Coordinator struct {
	config    Config
	registry  store.S
	cooldowns *cooldown.Tracker
	creations *arbiter.CreationChain
	views     *arbiter.ViewChain
	watchers  map[model.Category]*rendezvous.Watcher
	policy    Policy
	measures  *Measures
	logger    *zap.Logger
	now       func() time.Time

	ticks      atomic.Int64
	sweepTicks int64
}

// Option configures a Coordinator.
type Option func(*options)

type options struct {
	policy      Policy
	logger      *zap.Logger
	now         func() time.Time
	tracker     *cooldown.Tracker
	panicPolicy arbiter.PanicPolicy
}

// WithPolicy replaces the admin list policy built from the configuration.
func WithPolicy(p Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithNow sets the clock used for creation timestamps and sweeps.
func WithNow(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithCooldownTracker shares a tracker between coordinators.
func WithCooldownTracker(t *cooldown.Tracker) Option {
	return func(o *options) {
		o.tracker = t
	}
}

// WithPanicPolicy decides how both event chains treat panicking listeners.
func WithPanicPolicy(p arbiter.PanicPolicy) Option {
	return func(o *options) {
		o.panicPolicy = p
	}
}

func New(config Config, registry store.S, measures *Measures, opts ...Option) (*Coordinator, error) {
	if registry == nil {
		return nil, ErrNilRegistry
	}
	if measures == nil {
		return nil, ErrNilMeasures
	}
	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid showcase config: %w", err)
	}

	o := options{panicPolicy: arbiter.PanicDeny}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = sallust.Default()
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.policy == nil {
		o.policy = NewAdminPolicy(config.Admins...)
	}
	if o.tracker == nil {
		o.tracker = cooldown.NewTracker(o.now)
	}

	c := &Coordinator{
		config:     config,
		registry:   registry,
		cooldowns:  o.tracker,
		creations:  arbiter.New[arbiter.CreationEvent]("creation", arbiter.WithPanicPolicy(o.panicPolicy), arbiter.WithLogger(o.logger)),
		views:      arbiter.New[arbiter.ViewEvent]("view", arbiter.WithPanicPolicy(o.panicPolicy), arbiter.WithLogger(o.logger)),
		watchers:   map[model.Category]*rendezvous.Watcher{},
		policy:     o.policy,
		measures:   measures,
		logger:     o.logger,
		now:        o.now,
		sweepTicks: config.SweepTicks(),
	}
	for _, category := range model.Categories {
		if category.Captured() {
			c.watchers[category] = rendezvous.NewWatcher(string(category), o.logger)
		}
	}
	return c, nil
}

// Config returns the effective configuration, defaults applied.
func (c *Coordinator) Config() Config {
	return c.config
}

// RegisterCreationListener appends a listener to the creation chain.
func (c *Coordinator) RegisterCreationListener(l arbiter.Listener[arbiter.CreationEvent]) {
	c.creations.Register(l)
}

// RegisterViewListener appends a listener to the view chain.
func (c *Coordinator) RegisterViewListener(l arbiter.Listener[arbiter.ViewEvent]) {
	c.views.Register(l)
}

func (c *Coordinator) countCreation(category model.Category, status CreateStatus) {
	c.measures.Creations.With(prometheus.Labels{
		CategoryLabel: string(category),
		OutcomeLabel:  status.String(),
	}).Add(1)
}

func (c *Coordinator) countCapture(category model.Category, outcome string) {
	c.measures.Captures.With(prometheus.Labels{
		CategoryLabel: string(category),
		OutcomeLabel:  outcome,
	}).Add(1)
}

// cooldownCheck returns a non nil result when the actor has to wait.
func (c *Coordinator) cooldownCheck(actor model.Actor, category model.Category) *CreateResult {
	if !c.IsOnCooldown(actor, category) {
		return nil
	}
	return &CreateResult{
		Status:           OnCooldown,
		RemainingSeconds: c.RemainingCooldownSeconds(actor, category),
	}
}

// CreateShare publishes the request's snapshot. Being on cooldown or denied
// by a listener is reported through the result; an error means the share
// couldn't be stored at all. The stored entry stays hidden from lookups and
// listings until the creation listeners allowed it.
func (c *Coordinator) CreateShare(req CreateRequest) (CreateResult, error) {
	if !req.Category.Valid() {
		return CreateResult{}, fmt.Errorf("%w: %q", model.ErrUnknownCategory, req.Category)
	}
	logger := c.logger.With(
		zap.Stringer("initiator", req.Initiator),
		zap.Stringer("owner", req.Owner),
		zap.String("category", string(req.Category)),
	)

	if r := c.cooldownCheck(req.Initiator, req.Category); r != nil {
		logger.Debug("share creation on cooldown", zap.Int("remainingSeconds", r.RemainingSeconds))
		c.countCreation(req.Category, OnCooldown)
		return *r, nil
	}

	ttl := store.ClampTTL(req.Duration, c.config.DefaultTTL, c.config.MaxTTL)
	entry := model.Entry{
		Owner:       req.Owner,
		Category:    req.Category,
		Snapshot:    req.Snapshot,
		Recipients:  req.Recipients,
		Description: req.Description,
		CreatedAt:   c.now(),
		TTLSeconds:  int64(ttl / time.Second),
		Pending:     true,
	}
	ref, err := c.registry.Insert(entry)
	if err != nil {
		logger.Error("failed to store share", zap.Error(err))
		c.countCreation(req.Category, Failed)
		return CreateResult{Status: Failed}, err
	}

	// listeners see the entry as it will be published
	entry.Pending = false
	event := arbiter.CreationEvent{
		Initiator:   req.Initiator,
		Owner:       req.Owner,
		Recipients:  req.Recipients,
		Category:    req.Category,
		Entry:       entry,
		Reference:   ref,
		Description: req.Description,
	}
	if req.Duration > 0 {
		event.Duration = &ttl
	}
	if r := c.creations.Dispatch(event); !r.Allowed() {
		c.registry.Delete(ref)
		logger.Info("share creation denied", zap.String("reference", string(ref)))
		c.countCreation(req.Category, Denied)
		return CreateResult{Status: Denied}, nil
	}

	if !c.registry.Publish(ref) {
		// cancelled by its owner, or by an admin, while the listeners ran
		logger.Info("share cancelled before publication", zap.String("reference", string(ref)))
	}
	c.cooldowns.MarkUsed(req.Initiator, req.Category)
	logger.Info("share created", zap.String("reference", string(ref)), zap.Duration("ttl", ttl))
	c.countCreation(req.Category, Created)
	return CreateResult{Status: Created, Reference: ref}, nil
}

// CreateCaptureShare registers a capture for the initiator and returns right
// away with Pending. The share is created once NotifyOpened delivers the
// initiator's next opened content; report then receives the outcome, which
// may also be TimedOut or EmptyCapture. A newer capture request of the same
// initiator and category replaces this one, and report is never called.
func (c *Coordinator) CreateCaptureShare(req CaptureRequest, report func(CreateResult)) (CreateResult, error) {
	watcher, ok := c.watchers[req.Category]
	if !ok {
		return CreateResult{}, fmt.Errorf("%w: %q", ErrNotCaptureCategory, req.Category)
	}
	if report == nil {
		report = func(CreateResult) {}
	}

	if r := c.cooldownCheck(req.Initiator, req.Category); r != nil {
		c.countCreation(req.Category, OnCooldown)
		return *r, nil
	}

	logger := c.logger.With(
		zap.Stringer("initiator", req.Initiator),
		zap.String("category", string(req.Category)),
	)

	onSuccess := func(actor model.Actor, data model.Snapshot) {
		if model.IsEmptySnapshot(data) {
			logger.Info("capture was empty")
			c.countCapture(req.Category, captureEmpty)
			report(CreateResult{Status: EmptyCapture})
			return
		}
		c.countCapture(req.Category, captureResolved)
		result, err := c.CreateShare(CreateRequest{
			Initiator:   actor,
			Owner:       actor,
			Category:    req.Category,
			Snapshot:    data,
			Recipients:  req.Recipients,
			Description: req.Description,
			Duration:    req.Duration,
		})
		if err != nil {
			result.Message = err.Error()
		}
		report(result)
	}
	onTimeout := func(model.Actor) {
		logger.Info("capture timed out")
		c.countCapture(req.Category, captureTimedOut)
		report(CreateResult{Status: TimedOut, Message: req.TimeoutMessage})
	}

	watcher.Await(req.Initiator, c.config.CaptureTicks(), onSuccess, onTimeout)
	logger.Debug("capture requested", zap.Int64("ticks", c.config.CaptureTicks()))
	c.countCapture(req.Category, captureRequested)
	return CreateResult{Status: Pending}, nil
}

// NotifyOpened delivers content the actor just opened to the capture watcher
// of the category. It returns false when no capture was waiting.
func (c *Coordinator) NotifyOpened(category model.Category, actor model.Actor, snapshot model.Snapshot) bool {
	watcher, ok := c.watchers[category]
	if !ok {
		return false
	}
	return watcher.NotifyOpened(actor, snapshot)
}

// ViewShare looks up the share for the viewer. Only a Granted result carries
// the entry, and only a granted view is counted.
func (c *Coordinator) ViewShare(viewer model.Actor, ref model.Reference) ViewResult {
	result := c.view(viewer, ref)
	c.measures.Views.With(prometheus.Labels{OutcomeLabel: result.Status.String()}).Add(1)
	return result
}

func (c *Coordinator) view(viewer model.Actor, ref model.Reference) ViewResult {
	entry, ok := c.registry.Lookup(ref)
	if !ok {
		return ViewResult{Status: NotFound}
	}
	if !c.mayView(viewer, entry) {
		return ViewResult{Status: NotRecipient}
	}

	r := c.views.Dispatch(arbiter.ViewEvent{
		Viewer:    viewer,
		Entry:     entry,
		Reference: ref,
		Owner:     entry.Owner,
	})
	if !r.Allowed() {
		c.logger.Info("share view denied", zap.Stringer("viewer", viewer), zap.String("reference", string(ref)))
		return ViewResult{Status: ViewDenied}
	}

	// the share may have expired while the listeners ran
	if !c.registry.RecordView(ref) {
		return ViewResult{Status: NotFound}
	}
	entry.ViewCount++
	return ViewResult{Status: Granted, Entry: entry}
}

func (c *Coordinator) mayView(viewer model.Actor, entry model.Entry) bool {
	return entry.Public() || viewer == entry.Owner || entry.IsRecipient(viewer) || c.policy.IsAdmin(viewer)
}

// Describe returns the entry to a viewer allowed to see it, applying the same
// recipient restriction as ViewShare. It neither dispatches a view event nor
// counts a view.
func (c *Coordinator) Describe(viewer model.Actor, ref model.Reference) ViewResult {
	entry, ok := c.registry.Lookup(ref)
	if !ok {
		return ViewResult{Status: NotFound}
	}
	if !c.mayView(viewer, entry) {
		return ViewResult{Status: NotRecipient}
	}
	return ViewResult{Status: Granted, Entry: entry}
}

// CancelShare expires the share if the requester owns it or is an admin.
func (c *Coordinator) CancelShare(requester model.Actor, ref model.Reference) bool {
	entry, ok := c.registry.Lookup(ref)
	if !ok {
		return false
	}
	if entry.Owner != requester && !c.policy.IsAdmin(requester) {
		return false
	}
	if !c.registry.Invalidate(ref) {
		return false
	}
	c.logger.Info("share cancelled", zap.Stringer("requester", requester), zap.String("reference", string(ref)))
	return true
}

// ForceCancel expires the share without any ownership check.
func (c *Coordinator) ForceCancel(ref model.Reference) bool {
	return c.registry.Invalidate(ref)
}

// CancelAllForPlayer expires every live share of the owner.
func (c *Coordinator) CancelAllForPlayer(owner model.Actor) int {
	n := c.registry.RemoveAllOwnedBy(owner)
	c.logger.Info("shares cancelled", zap.Stringer("owner", owner), zap.Int("count", n))
	return n
}

// IsOnCooldown reports whether the actor has to wait before creating another
// share of the category.
func (c *Coordinator) IsOnCooldown(actor model.Actor, category model.Category) bool {
	if c.policy.CooldownExempt(actor, category) {
		return false
	}
	return c.cooldowns.IsOnCooldown(actor, category, c.config.CooldownFor(category))
}

func (c *Coordinator) RemainingCooldownSeconds(actor model.Actor, category model.Category) int {
	if c.policy.CooldownExempt(actor, category) {
		return 0
	}
	return c.cooldowns.RemainingSeconds(actor, category, c.config.CooldownFor(category))
}

func (c *Coordinator) ListLiveReferences() []model.Reference {
	return c.registry.References()
}

func (c *Coordinator) GetEntry(ref model.Reference) (model.Entry, bool) {
	return c.registry.Lookup(ref)
}

func (c *Coordinator) SharesOwnedBy(owner model.Actor) map[model.Reference]model.Entry {
	return c.registry.OwnedBy(owner)
}

// Tick advances the capture countdowns by one tick and sweeps the registry
// once every sweep interval worth of ticks.
func (c *Coordinator) Tick() {
	for _, w := range c.watchers {
		w.Advance()
	}
	if c.ticks.Add(1)%c.sweepTicks == 0 {
		c.Sweep(c.now())
	}
}

// Sweep removes the shares that aren't live at now.
func (c *Coordinator) Sweep(now time.Time) int {
	n := c.registry.Sweep(now)
	c.measures.Swept.Add(float64(n))
	live := c.registry.Count()
	c.measures.LiveShares.Set(float64(live))
	c.logger.Debug("swept shares", zap.Int("removed", n), zap.Int("live", live))
	return n
}

// Close drops the pending captures without reporting them and forgets every
// cooldown. Shares stay in the registry.
func (c *Coordinator) Close() {
	dropped := 0
	for _, w := range c.watchers {
		dropped += w.Cleanup()
	}
	c.cooldowns.ClearAll()
	c.logger.Info("share coordinator closed", zap.Int("droppedCaptures", dropped))
}
