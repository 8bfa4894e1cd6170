// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package inmem

import (
	"hash/fnv"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xmidt-org/showcase/model"
	"github.com/xmidt-org/showcase/store"
)

const (
	DefaultShards          = 32
	DefaultReferenceLength = 8

	// MaxReferenceLength is the length of a dashless UUID.
	MaxReferenceLength = 32

	maxInsertAttempts = 16
)

// record is a stored entry. Its lock makes view counting and invalidation
// atomic with respect to each other.
type record struct {
	mu    sync.Mutex
	entry model.Entry
}

type shard struct {
	lock sync.RWMutex
	data map[model.Reference]*record
}

type InMem struct {
	shards    []*shard
	refLength int
	now       func() time.Time
	newID     func() (uuid.UUID, error)
}

// Option configures an InMem registry.
type Option func(*InMem)

// WithShards sets the number of independently locked partitions.
func WithShards(n int) Option {
	return func(i *InMem) {
		if n > 0 {
			i.shards = newShards(n)
		}
	}
}

// WithReferenceLength sets the length of generated references.
func WithReferenceLength(n int) Option {
	return func(i *InMem) {
		if n > 0 && n <= MaxReferenceLength {
			i.refLength = n
		}
	}
}

// WithNow sets the clock used for expiry checks and creation timestamps.
func WithNow(now func() time.Time) Option {
	return func(i *InMem) {
		if now != nil {
			i.now = now
		}
	}
}

func newShards(n int) []*shard {
	shards := make([]*shard, n)
	for k := range shards {
		shards[k] = &shard{data: map[model.Reference]*record{}}
	}
	return shards
}

// NewInMem returns an empty registry.
func NewInMem(opts ...Option) *InMem {
	i := &InMem{
		shards:    newShards(DefaultShards),
		refLength: DefaultReferenceLength,
		now:       time.Now,
		newID:     uuid.NewRandom,
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

func (i *InMem) shardFor(ref model.Reference) *shard {
	h := fnv.New32a()
	h.Write([]byte(ref))
	return i.shards[h.Sum32()%uint32(len(i.shards))]
}

func (i *InMem) newReference() (model.Reference, error) {
	id, err := i.newID()
	if err != nil {
		return "", err
	}
	return model.Reference(strings.ReplaceAll(id.String(), "-", "")[:i.refLength]), nil
}

// copyEntry detaches the recipients so callers can't reach into stored state.
func copyEntry(e model.Entry) model.Entry {
	e.Recipients = slices.Clone(e.Recipients)
	return e
}

func (i *InMem) Insert(entry model.Entry) (model.Reference, error) {
	entry = copyEntry(entry)
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = i.now()
	}
	entry.ViewCount = 0
	entry.Invalidated = false

	for attempt := 1; attempt <= maxInsertAttempts; attempt++ {
		ref, err := i.newReference()
		if err != nil {
			continue
		}
		s := i.shardFor(ref)
		s.lock.Lock()
		if _, taken := s.data[ref]; !taken {
			s.data[ref] = &record{entry: entry}
			s.lock.Unlock()
			return ref, nil
		}
		s.lock.Unlock()
	}

	return "", store.InvariantViolation(store.ErrReferenceSpaceExhausted, "failed to insert share",
		"attempts", maxInsertAttempts, "referenceLength", i.refLength)
}

func (i *InMem) Lookup(ref model.Reference) (model.Entry, bool) {
	s := i.shardFor(ref)
	s.lock.RLock()
	rec, ok := s.data[ref]
	if !ok {
		s.lock.RUnlock()
		return model.Entry{}, false
	}
	rec.mu.Lock()
	entry := copyEntry(rec.entry)
	rec.mu.Unlock()
	s.lock.RUnlock()

	if entry.Live(i.now()) {
		return entry, !entry.Pending
	}

	// the record may have been replaced or removed while no lock was held
	s.lock.Lock()
	if s.data[ref] == rec {
		delete(s.data, ref)
	}
	s.lock.Unlock()
	return model.Entry{}, false
}

// with runs f on the record while it is guarded, provided the record
// exists and check accepts it.
func (i *InMem) with(ref model.Reference, check func(model.Entry) bool, f func(*model.Entry)) bool {
	s := i.shardFor(ref)
	s.lock.RLock()
	defer s.lock.RUnlock()
	rec, ok := s.data[ref]
	if !ok {
		return false
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if !check(rec.entry) {
		return false
	}
	f(&rec.entry)
	return true
}

func (i *InMem) live(e model.Entry) bool {
	return e.Live(i.now())
}

func (i *InMem) visible(e model.Entry) bool {
	return e.Visible(i.now())
}

func (i *InMem) Publish(ref model.Reference) bool {
	return i.with(ref, func(e model.Entry) bool {
		return e.Pending && i.live(e)
	}, func(e *model.Entry) {
		e.Pending = false
	})
}

func (i *InMem) RecordView(ref model.Reference) bool {
	return i.with(ref, i.visible, func(e *model.Entry) {
		e.ViewCount++
	})
}

func (i *InMem) Invalidate(ref model.Reference) bool {
	return i.with(ref, i.live, func(e *model.Entry) {
		e.Invalidated = true
	})
}

func (i *InMem) Delete(ref model.Reference) bool {
	s := i.shardFor(ref)
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, ok := s.data[ref]; !ok {
		return false
	}
	delete(s.data, ref)
	return true
}

func (i *InMem) RemoveAllOwnedBy(owner model.Actor) int {
	count := 0
	now := i.now()
	for _, s := range i.shards {
		s.lock.RLock()
		for _, rec := range s.data {
			rec.mu.Lock()
			if rec.entry.Owner == owner && rec.entry.Live(now) {
				rec.entry.Invalidated = true
				count++
			}
			rec.mu.Unlock()
		}
		s.lock.RUnlock()
	}
	return count
}

// each calls f with a copy of every visible entry.
func (i *InMem) each(f func(model.Reference, model.Entry)) {
	now := i.now()
	for _, s := range i.shards {
		s.lock.RLock()
		for ref, rec := range s.data {
			rec.mu.Lock()
			entry := copyEntry(rec.entry)
			rec.mu.Unlock()
			if entry.Visible(now) {
				f(ref, entry)
			}
		}
		s.lock.RUnlock()
	}
}

func (i *InMem) OwnedBy(owner model.Actor) map[model.Reference]model.Entry {
	all := map[model.Reference]model.Entry{}
	i.each(func(ref model.Reference, e model.Entry) {
		all[ref] = e
	})
	return store.FilterOwner(all, owner)
}

func (i *InMem) Sweep(now time.Time) int {
	removed := 0
	for _, s := range i.shards {
		s.lock.Lock()
		for ref, rec := range s.data {
			rec.mu.Lock()
			live := rec.entry.Live(now)
			rec.mu.Unlock()
			if !live {
				delete(s.data, ref)
				removed++
			}
		}
		s.lock.Unlock()
	}
	return removed
}

func (i *InMem) Count() int {
	count := 0
	i.each(func(model.Reference, model.Entry) {
		count++
	})
	return count
}

// References returns the visible references in lexical order.
func (i *InMem) References() []model.Reference {
	refs := []model.Reference{}
	i.each(func(ref model.Reference, _ model.Entry) {
		refs = append(refs, ref)
	})
	slices.Sort(refs)
	return refs
}

var _ store.S = (*InMem)(nil)
