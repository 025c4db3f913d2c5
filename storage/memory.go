// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package storage

import (
	"context"
	"fmt"
	"sync"
)

type area struct {
	mu     sync.Mutex
	values map[string]string
	// views with at least one watcher
	views map[*Memory]struct{}
}

// Memory is an in-memory Storage.  It is one browsing context's view of an
// area; use Context to obtain the view of another browsing context.
type Memory struct {
	area *area

	mu       sync.Mutex
	nextID   int
	watchers map[int]func(Event)
}

var (
	_ Storage = (*Memory)(nil)
	_ Watcher = (*Memory)(nil)
)

// NewMemory returns a view of a new, empty area.
func NewMemory() *Memory {
	a := &area{
		values: map[string]string{},
		views:  map[*Memory]struct{}{},
	}
	return a.view()
}

func (a *area) view() *Memory {
	return &Memory{area: a, watchers: map[int]func(Event){}}
}

// Context returns a new view of the same area, as seen from another
// browsing context.  A view is only referenced by its area while it has
// watchers, so a view whose watchers are all cancelled can be discarded.
func (m *Memory) Context() *Memory {
	return m.area.view()
}

// Get implements Storage.
func (m *Memory) Get(_ context.Context, key string) (string, error) {
	const op = "Memory.Get"
	m.area.mu.Lock()
	defer m.area.mu.Unlock()
	v, ok := m.area.values[key]
	if !ok {
		return "", fmt.Errorf("%s: %q: %w", op, key, ErrNotFound)
	}
	return v, nil
}

// Set implements Storage.
func (m *Memory) Set(_ context.Context, key, value string) error {
	const op = "Memory.Set"
	if key == "" {
		return fmt.Errorf("%s: missing key: %w", op, ErrInvalidParameter)
	}
	m.area.mu.Lock()
	old, existed := m.area.values[key]
	m.area.values[key] = value
	others := m.others()
	m.area.mu.Unlock()
	if existed && old == value {
		return nil
	}
	notify(others, Event{Key: key, OldValue: old, NewValue: value})
	return nil
}

// Delete implements Storage.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.area.mu.Lock()
	old, existed := m.area.values[key]
	delete(m.area.values, key)
	others := m.others()
	m.area.mu.Unlock()
	if !existed {
		return nil
	}
	notify(others, Event{Key: key, OldValue: old})
	return nil
}

// Watch implements Watcher.  fn only receives changes made through other
// views of the area.
func (m *Memory) Watch(fn func(Event)) (func(), error) {
	const op = "Memory.Watch"
	if fn == nil {
		return nil, fmt.Errorf("%s: missing func: %w", op, ErrInvalidParameter)
	}
	m.area.mu.Lock()
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.watchers[id] = fn
	m.area.views[m] = struct{}{}
	m.mu.Unlock()
	m.area.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.area.mu.Lock()
			m.mu.Lock()
			delete(m.watchers, id)
			if len(m.watchers) == 0 {
				delete(m.area.views, m)
			}
			m.mu.Unlock()
			m.area.mu.Unlock()
		})
	}, nil
}

// others must be called with the area locked.
func (m *Memory) others() []*Memory {
	views := make([]*Memory, 0, len(m.area.views))
	for v := range m.area.views {
		if v != m {
			views = append(views, v)
		}
	}
	return views
}

func notify(views []*Memory, e Event) {
	for _, v := range views {
		v.mu.Lock()
		fns := make([]func(Event), 0, len(v.watchers))
		for _, fn := range v.watchers {
			fns = append(fns, fn)
		}
		v.mu.Unlock()
		for _, fn := range fns {
			fn(e)
		}
	}
}
