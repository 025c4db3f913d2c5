// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"sync"
)

// race resolves with the first value delivered by any of its
// subscriptions.  Losing subscriptions are unsubscribed, their values
// are dropped.
type race[T any] struct {
	once   sync.Once
	result chan T

	mu     sync.Mutex
	unsubs []func()
}

func newRace[T any]() *race[T] {
	return &race[T]{result: make(chan T, 1)}
}

// deliver is safe to call any number of times from any goroutine.
func (r *race[T]) deliver(v T) {
	r.once.Do(func() { r.result <- v })
}

// subscribe registers a subscription started with r.deliver.
func (r *race[T]) subscribe(start func(deliver func(T)) (unsubscribe func())) {
	unsub := start(r.deliver)
	r.mu.Lock()
	r.unsubs = append(r.unsubs, unsub)
	r.mu.Unlock()
}

// wait blocks until a value is delivered or ctx is done, then unsubscribes
// every subscription.
func (r *race[T]) wait(ctx context.Context) (T, error) {
	defer r.stop()
	select {
	case v := <-r.result:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (r *race[T]) stop() {
	r.mu.Lock()
	unsubs := r.unsubs
	r.unsubs = nil
	r.mu.Unlock()
	for _, u := range unsubs {
		if u != nil {
			u()
		}
	}
}
