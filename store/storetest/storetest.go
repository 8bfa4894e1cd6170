// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package storetest holds behavior checks that every store.S implementation
// must pass.
package storetest

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmidt-org/showcase/model"
	"github.com/xmidt-org/showcase/store"
)

// Clock is a manually advanced time source.
type Clock struct {
	lock    sync.Mutex
	current time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{current: start}
}

func (c *Clock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.current
}

func (c *Clock) Advance(d time.Duration) {
	c.lock.Lock()
	c.current = c.current.Add(d)
	c.lock.Unlock()
}

// Factory builds an empty registry that reads time from now.
type Factory func(now func() time.Time) store.S

var (
	GenericOwner = uuid.MustParse("a9f1d8c2-3b4e-4f60-8a71-2c5d9e0b1f34")
	OtherOwner   = uuid.MustParse("0b7e5c13-9d2a-4e8f-b6c4-71a3f2e9d058")
)

// GenericEntry is a minute long public item share.
func GenericEntry(owner model.Actor) model.Entry {
	return model.Entry{
		Owner:       owner,
		Category:    model.Item,
		Snapshot:    map[string]interface{}{"id": "minecraft:diamond_sword", "count": float64(1)},
		Description: "What a Wonderful World",
		TTLSeconds:  60,
	}
}

// StoreTest runs the common registry checks against fresh registries built by
// newStore.
func StoreTest(t *testing.T, newStore Factory) {
	start := time.Date(2021, time.March, 4, 12, 0, 0, 0, time.UTC)

	t.Run("Basic", func(t *testing.T) {
		assert := assert.New(t)
		require := require.New(t)
		clock := NewClock(start)
		s := newStore(clock.Now)

		ref, err := s.Insert(GenericEntry(GenericOwner))
		require.NoError(err)
		assert.NotEmpty(ref)

		e, ok := s.Lookup(ref)
		require.True(ok)
		assert.Equal(GenericOwner, e.Owner)
		assert.Equal(start, e.CreatedAt)
		assert.Equal(int64(0), e.ViewCount)
		assert.Equal(1, s.Count())
		assert.Equal([]model.Reference{ref}, s.References())

		assert.True(s.RecordView(ref))
		assert.True(s.RecordView(ref))
		e, _ = s.Lookup(ref)
		assert.Equal(int64(2), e.ViewCount)

		assert.True(s.Delete(ref))
		assert.False(s.Delete(ref))
		_, ok = s.Lookup(ref)
		assert.False(ok)
		assert.Empty(s.References())
	})

	t.Run("Unknown", func(t *testing.T) {
		assert := assert.New(t)
		s := newStore(NewClock(start).Now)
		_, ok := s.Lookup("deadbeef")
		assert.False(ok)
		assert.False(s.RecordView("deadbeef"))
		assert.False(s.Invalidate("deadbeef"))
		assert.False(s.Delete("deadbeef"))
	})

	t.Run("TTL boundary", func(t *testing.T) {
		assert := assert.New(t)
		require := require.New(t)
		clock := NewClock(start)
		s := newStore(clock.Now)

		ref, err := s.Insert(GenericEntry(GenericOwner))
		require.NoError(err)

		clock.Advance(59999 * time.Millisecond)
		_, ok := s.Lookup(ref)
		assert.True(ok)

		clock.Advance(time.Millisecond)
		_, ok = s.Lookup(ref)
		assert.False(ok)
		assert.Equal(0, s.Count())
		assert.False(s.RecordView(ref))
	})

	t.Run("Invalidate once", func(t *testing.T) {
		assert := assert.New(t)
		require := require.New(t)
		s := newStore(NewClock(start).Now)

		ref, err := s.Insert(GenericEntry(GenericOwner))
		require.NoError(err)
		assert.True(s.Invalidate(ref))
		assert.False(s.Invalidate(ref))
		_, ok := s.Lookup(ref)
		assert.False(ok)
	})

	t.Run("Remove all owned by", func(t *testing.T) {
		assert := assert.New(t)
		require := require.New(t)
		s := newStore(NewClock(start).Now)

		var owned []model.Reference
		for range 3 {
			ref, err := s.Insert(GenericEntry(GenericOwner))
			require.NoError(err)
			owned = append(owned, ref)
		}
		other, err := s.Insert(GenericEntry(OtherOwner))
		require.NoError(err)

		assert.Len(s.OwnedBy(GenericOwner), 3)
		assert.Equal(3, s.RemoveAllOwnedBy(GenericOwner))
		for _, ref := range owned {
			_, ok := s.Lookup(ref)
			assert.False(ok)
		}
		_, ok := s.Lookup(other)
		assert.True(ok)
		assert.Empty(s.OwnedBy(GenericOwner))
		assert.Equal(0, s.RemoveAllOwnedBy(GenericOwner))
	})

	t.Run("Pending until published", func(t *testing.T) {
		assert := assert.New(t)
		require := require.New(t)
		s := newStore(NewClock(start).Now)

		pending := GenericEntry(GenericOwner)
		pending.Pending = true
		ref, err := s.Insert(pending)
		require.NoError(err)

		_, ok := s.Lookup(ref)
		assert.False(ok)
		assert.False(s.RecordView(ref))
		assert.Equal(0, s.Count())
		assert.Empty(s.References())
		assert.Empty(s.OwnedBy(GenericOwner))

		require.True(s.Publish(ref))
		assert.False(s.Publish(ref))
		e, ok := s.Lookup(ref)
		assert.True(ok)
		assert.False(e.Pending)
		assert.Equal([]model.Reference{ref}, s.References())

		rolledBack := GenericEntry(GenericOwner)
		rolledBack.Pending = true
		ref, err = s.Insert(rolledBack)
		require.NoError(err)
		assert.True(s.Delete(ref))
		assert.False(s.Publish(ref))
		assert.False(s.Publish("deadbeef"))
	})

	t.Run("Sweep", func(t *testing.T) {
		assert := assert.New(t)
		require := require.New(t)
		clock := NewClock(start)
		s := newStore(clock.Now)

		short := GenericEntry(GenericOwner)
		short.TTLSeconds = 10
		expiring, err := s.Insert(short)
		require.NoError(err)
		cancelled, err := s.Insert(GenericEntry(GenericOwner))
		require.NoError(err)
		kept, err := s.Insert(GenericEntry(OtherOwner))
		require.NoError(err)
		require.True(s.Invalidate(cancelled))

		clock.Advance(10 * time.Second)
		assert.Equal(2, s.Sweep(clock.Now()))
		assert.Equal(0, s.Sweep(clock.Now()))
		assert.Equal([]model.Reference{kept}, s.References())
		assert.False(s.Delete(expiring))
		assert.False(s.Delete(cancelled))
	})
}
