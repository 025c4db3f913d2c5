// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package bolt

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/henrjk/connect-js/storage"
)

// Watch implements storage.Watcher.  Changes to the database file are
// debounced, then the bucket is compared with the content this process
// last wrote or observed and a storage.Event is delivered to fn for every
// key that differs.
func (s *Storage) Watch(fn func(storage.Event)) (func(), error) {
	const op = "bolt.(Storage).Watch"
	if fn == nil {
		return nil, fmt.Errorf("%s: missing func: %w", op, storage.ErrInvalidParameter)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := w.Add(s.path); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	done := make(chan struct{})
	changed := make(chan struct{}, 1)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.handleWatcher(w, changed, done)
	}()
	go func() {
		defer wg.Done()
		s.scheduleDiff(changed, done, fn)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			_ = w.Close()
			wg.Wait()
		})
	}, nil
}

func (s *Storage) handleWatcher(w *fsnotify.Watcher, changed chan<- struct{}, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write | fsnotify.Create) {
				select {
				case changed <- struct{}{}:
				default:
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Warn("storage watcher error", "path", s.path, "error", err)
		}
	}
}

func (s *Storage) scheduleDiff(changed <-chan struct{}, done <-chan struct{}, fn func(storage.Event)) {
	var (
		timer *time.Timer
		c     <-chan time.Time
	)
	for {
		select {
		case <-done:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-changed:
			if timer != nil {
				timer.Reset(s.debounce)
			} else {
				timer = time.NewTimer(s.debounce)
				c = timer.C
			}
		case <-c:
			timer, c = nil, nil
			for _, e := range s.diff() {
				fn(e)
			}
		}
	}
}

// diff returns the differences between the bucket and the known content
// and makes the bucket content the known content.
func (s *Storage) diff() []storage.Event {
	current, err := s.snapshot()
	if err != nil {
		s.logger.Warn("unable to read storage after change", "path", s.path, "error", err)
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var events []storage.Event
	for k, v := range current {
		if old, ok := s.known[k]; !ok || old != v {
			events = append(events, storage.Event{Key: k, OldValue: s.known[k], NewValue: v})
		}
	}
	for k, old := range s.known {
		if _, ok := current[k]; !ok {
			events = append(events, storage.Event{Key: k, OldValue: old})
		}
	}
	s.known = current
	sort.Slice(events, func(i, j int) bool { return events[i].Key < events[j].Key })
	return events
}
