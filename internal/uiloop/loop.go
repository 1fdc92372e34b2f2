// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/uiloop/loop.go
// Summary: Single-goroutine cooperative context for UI-side work.
// Usage: Any goroutine may Post; Run drains the queue in FIFO order until
//        the context ends. Invoke posts and waits with a bound.
// Notes: Posting never blocks. A function that panics is logged and the loop
//        keeps running.

package uiloop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pkt.systems/pslog"
)

var (
	// ErrStopped is returned when work is posted after Run returned.
	ErrStopped = errors.New("uiloop: stopped")
	// ErrTimeout is returned by Invoke when the function did not run in time.
	ErrTimeout = errors.New("uiloop: invoke timed out")
)

// Loop runs posted functions one at a time on the goroutine calling Run.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	stopped bool
	wake    chan struct{}
	log     pslog.Logger
}

// New returns a loop logging to l.
func New(l pslog.Logger) *Loop {
	if l == nil {
		l = pslog.Ctx(context.Background())
	}
	return &Loop{wake: make(chan struct{}, 1), log: l}
}

// Post queues fn. It reports false once the loop stopped.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Invoke runs fn on the loop and waits up to timeout for it to finish.
// It must not be called from the loop goroutine.
func (l *Loop) Invoke(fn func(), timeout time.Duration) error {
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		fn()
	}) {
		return ErrStopped
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		return fmt.Errorf("%w after %v", ErrTimeout, timeout)
	}
}

// Run drains the queue until ctx is done. Pending work is dropped on exit.
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		l.mu.Lock()
		l.stopped = true
		l.queue = nil
		l.mu.Unlock()
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.wake:
		}
		for {
			l.mu.Lock()
			batch := l.queue
			l.queue = nil
			l.mu.Unlock()
			if len(batch) == 0 {
				break
			}
			for _, fn := range batch {
				if ctx.Err() != nil {
					return nil
				}
				l.run(fn)
			}
		}
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("ui loop task panicked", "panic", fmt.Sprint(r))
		}
	}()
	fn()
}
