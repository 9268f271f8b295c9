// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package forkbeard

import (
	"context"
	"errors"
	"sync"
)

// ErrStopped is returned when work is submitted to a stopped Loop.
var ErrStopped = errors.New("event loop stopped")

// Loop is a single goroutine work queue. All functions posted to a
// Loop are run sequentially in the order they were posted.
type Loop struct {
	events chan func()
	done   chan struct{}
	stop   sync.Once
}

// NewLoop returns a new Loop with a queue of length n.
func NewLoop(n int) *Loop {
	return &Loop{
		events: make(chan func(), n),
		done:   make(chan struct{}),
	}
}

// Run runs posted functions until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer l.stop.Do(func() { close(l.done) })
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.events:
			fn()
		}
	}
}

// Done returns a channel that is closed when the loop has stopped.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Post queues fn to be run on the loop, waiting for queue space if
// necessary. It returns false if the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case <-l.done:
		return false
	case l.events <- fn:
		return true
	}
}

// TryPost queues fn to be run on the loop without waiting. It returns
// false if the queue is full or the loop has stopped.
func (l *Loop) TryPost(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.events <- fn:
		return true
	default:
		return false
	}
}

// Do runs fn on the loop and waits for it to return. Do must not be
// called from the loop's goroutine.
func (l *Loop) Do(fn func()) error {
	ran := make(chan struct{})
	if !l.Post(func() {
		defer close(ran)
		fn()
	}) {
		return ErrStopped
	}
	select {
	case <-ran:
		return nil
	case <-l.done:
		// fn may have completed concurrently with the loop stopping.
		select {
		case <-ran:
			return nil
		default:
			return ErrStopped
		}
	}
}
