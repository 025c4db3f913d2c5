// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package storage

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) get() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func TestMemory_GetSetDelete(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, KeyNonce)
	assert.ErrorIs(err, ErrNotFound)

	require.NoError(m.Set(ctx, KeyNonce, "abc"))
	got, err := m.Get(ctx, KeyNonce)
	require.NoError(err)
	assert.Equal("abc", got)

	other := m.Context()
	got, err = other.Get(ctx, KeyNonce)
	require.NoError(err)
	assert.Equal("abc", got)

	require.NoError(other.Delete(ctx, KeyNonce))
	_, err = m.Get(ctx, KeyNonce)
	assert.ErrorIs(err, ErrNotFound)

	require.NoError(m.Delete(ctx, "missing"))
	assert.ErrorIs(m.Set(ctx, "", "v"), ErrInvalidParameter)
}

func TestMemory_Watch(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	ctx := context.Background()
	first := NewMemory()
	second := first.Context()

	var firstEvents, secondEvents eventRecorder
	_, err := first.Watch(firstEvents.record)
	require.NoError(err)
	cancel, err := second.Watch(secondEvents.record)
	require.NoError(err)

	require.NoError(first.Set(ctx, KeySession, "one"))
	require.NoError(first.Set(ctx, KeySession, "one"))
	require.NoError(first.Set(ctx, KeySession, "two"))
	require.NoError(first.Delete(ctx, KeySession))

	assert.Empty(firstEvents.get(), "writer does not see its own changes")
	assert.Equal([]Event{
		{Key: KeySession, NewValue: "one"},
		{Key: KeySession, OldValue: "one", NewValue: "two"},
		{Key: KeySession, OldValue: "two"},
	}, secondEvents.get())

	require.NoError(second.Set(ctx, KeyDestination, "/home"))
	assert.Equal([]Event{{Key: KeyDestination, NewValue: "/home"}}, firstEvents.get())

	cancel()
	cancel()
	require.NoError(first.Set(ctx, KeySession, "three"))
	assert.Len(secondEvents.get(), 3)

	_, err = first.Watch(nil)
	assert.ErrorIs(err, ErrInvalidParameter)
}

func TestMemory_viewsDetach(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	ctx := context.Background()
	m := NewMemory()
	for i := 0; i < 10; i++ {
		require.NoError(m.Context().Set(ctx, KeyNonce, "n"))
	}
	assert.Empty(m.area.views, "views without watchers are not retained")

	view := m.Context()
	cancelOne, err := view.Watch(func(Event) {})
	require.NoError(err)
	cancelTwo, err := view.Watch(func(Event) {})
	require.NoError(err)
	assert.Len(m.area.views, 1)

	cancelOne()
	assert.Len(m.area.views, 1)
	cancelTwo()
	assert.Empty(m.area.views)
}
