// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"sort"
	"sync"

	"github.com/henrjk/connect-js/session"
)

type listener struct {
	fn   func(*session.Session)
	once bool
}

// emitter delivers "authenticated" notifications to listeners in
// registration order.
type emitter struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]listener
}

func newEmitter() *emitter {
	return &emitter{listeners: map[int]listener{}}
}

func (e *emitter) on(fn func(*session.Session), once bool) func() {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = listener{fn: fn, once: once}
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		delete(e.listeners, id)
		e.mu.Unlock()
	}
}

func (e *emitter) emit(s *session.Session) {
	e.mu.Lock()
	ids := make([]int, 0, len(e.listeners))
	for id := range e.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(*session.Session), 0, len(ids))
	for _, id := range ids {
		l := e.listeners[id]
		fns = append(fns, l.fn)
		if l.once {
			delete(e.listeners, id)
		}
	}
	e.mu.Unlock()
	for _, fn := range fns {
		fn(s.Clone())
	}
}
