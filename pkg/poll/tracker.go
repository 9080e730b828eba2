// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package poll

import (
	"context"
	"sync"
	"time"
)

// State is the lifecycle position of a Tracker.
type State int

const (
	Idle State = iota
	Submitted
	Polling
	Complete
	Errored
	Cancelled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitted:
		return "submitted"
	case Polling:
		return "polling"
	case Complete:
		return "complete"
	case Errored:
		return "errored"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Complete || s == Errored || s == Cancelled
}

// Hooks are called when a tracker reaches a terminal state.
//
// OnComplete or OnError runs first, then OnStop. OnStop runs exactly once for
// every terminal transition, including Cancelled. Hooks run on the goroutine
// that caused the transition and must not call back into Submit.
type Hooks[T any] struct {
	OnComplete func(T)
	OnError    func(error)
	OnStop     func()
}

// Tracker follows one asynchronous request from submission to a terminal state.
//
// # Description
//
// Submit runs the submission synchronously. When the submission response is
// not yet complete the tracker moves to Polling and re-runs check every
// interval on a background goroutine until the request completes, a check
// fails, or the tracker is cancelled.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type Tracker[T any] struct {
	interval time.Duration
	check    CheckFunc[T]
	hooks    Hooks[T]

	mu     sync.Mutex
	state  State
	result T
	err    error
	polls  int
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTracker creates an Idle tracker.
//
// # Inputs
//
//   - interval: Delay between status checks. Must be positive.
//   - check: Status probe run while Polling.
//   - hooks: Terminal callbacks. Any may be nil.
//
// # Outputs
//
//   - *Tracker[T]: The tracker.
//   - error: ErrInvalidInterval or ErrNilCheck.
func NewTracker[T any](interval time.Duration, check CheckFunc[T], hooks Hooks[T]) (*Tracker[T], error) {
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}
	if check == nil {
		return nil, ErrNilCheck
	}
	return &Tracker[T]{
		interval: interval,
		check:    check,
		hooks:    hooks,
		done:     make(chan struct{}),
	}, nil
}

// Submit runs submit and, if the request is not finished, starts polling.
//
// # Description
//
// Moves Idle to Submitted and calls submit. An error moves to Errored, a done
// response to Complete, and anything else to Polling. The polling goroutine is
// bound to ctx: cancelling ctx cancels the tracker.
//
// # Outputs
//
//   - error: ErrAlreadySubmitted when the tracker is not Idle, otherwise the
//     submit error (already delivered to OnError).
func (t *Tracker[T]) Submit(ctx context.Context, submit CheckFunc[T]) error {
	if submit == nil {
		return ErrNilCheck
	}

	t.mu.Lock()
	if t.state != Idle {
		t.mu.Unlock()
		return ErrAlreadySubmitted
	}
	pollCtx, cancel := context.WithCancel(ctx)
	t.state = Submitted
	t.cancel = cancel
	t.mu.Unlock()

	v, done, err := submit(pollCtx)
	switch {
	case err != nil:
		t.finish(Errored, v, err)
		return err
	case done:
		t.finish(Complete, v, nil)
		return nil
	}

	t.mu.Lock()
	if t.state != Submitted {
		// Cancelled while the submission was in flight.
		t.mu.Unlock()
		return nil
	}
	t.state = Polling
	t.result = v
	t.mu.Unlock()

	go t.run(pollCtx)
	return nil
}

func (t *Tracker[T]) run(ctx context.Context) {
	v, err := Until(ctx, t.interval, func(ctx context.Context) (T, bool, error) {
		t.mu.Lock()
		t.polls++
		t.mu.Unlock()

		v, done, err := t.check(ctx)
		if err == nil {
			t.mu.Lock()
			t.result = v
			t.mu.Unlock()
		}
		return v, done, err
	})

	switch {
	case err == nil:
		t.finish(Complete, v, nil)
	case ctx.Err() != nil:
		// A check interrupted by cancellation is not a request failure.
		t.finish(Cancelled, v, ctx.Err())
	default:
		t.finish(Errored, v, err)
	}
}

// Cancel stops polling and moves a non-terminal tracker to Cancelled.
//
// Cancelling an already terminal tracker does nothing.
func (t *Tracker[T]) Cancel() {
	var zero T
	t.finish(Cancelled, zero, context.Canceled)
}

// finish performs the single terminal transition and runs the hooks.
func (t *Tracker[T]) finish(state State, v T, err error) {
	t.mu.Lock()
	if t.state.Terminal() {
		t.mu.Unlock()
		return
	}
	t.state = state
	if state == Complete {
		t.result = v
	}
	t.err = err
	cancel := t.cancel
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	switch state {
	case Complete:
		if t.hooks.OnComplete != nil {
			t.hooks.OnComplete(v)
		}
	case Errored:
		if t.hooks.OnError != nil {
			t.hooks.OnError(err)
		}
	}
	if t.hooks.OnStop != nil {
		t.hooks.OnStop()
	}
	close(t.done)
}

// Done is closed once the tracker reaches a terminal state.
func (t *Tracker[T]) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the tracker is terminal or ctx is cancelled.
func (t *Tracker[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.state == Complete {
			return t.result, nil
		}
		return t.result, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// State returns the current state.
func (t *Tracker[T]) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Result returns the most recent value reported by submit or check.
func (t *Tracker[T]) Result() T {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}

// Err returns the terminal error, if any.
func (t *Tracker[T]) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Polls returns how many status checks have been issued.
func (t *Tracker[T]) Polls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.polls
}
