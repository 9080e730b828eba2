// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package poll re-checks asynchronous server-side requests on a fixed interval.
//
// Until is the bare primitive: call a check on a timer until it reports done,
// fails, or the context is cancelled. Tracker wraps it in the state machine an
// operator-facing flow needs:
//
//	Idle -> Submitted -> Polling -> Complete | Errored
//	                  \-> Complete | Errored          (submit finished synchronously)
//	any non-terminal state -> Cancelled               (Cancel or context cancelled)
//
// There are no retries. The first error is terminal for the tracked request.
package poll

import (
	"context"
	"errors"
	"time"
)

// DefaultInterval is the delay between status checks of an update request.
const DefaultInterval = 2 * time.Second

var (
	// ErrInvalidInterval is returned when the interval is zero or negative.
	ErrInvalidInterval = errors.New("poll: interval must be positive")

	// ErrNilCheck is returned when no check function is supplied.
	ErrNilCheck = errors.New("poll: check function is nil")

	// ErrAlreadySubmitted is returned by Submit on a tracker that has left Idle.
	ErrAlreadySubmitted = errors.New("poll: tracker already submitted")
)

// CheckFunc reports the latest value of the polled resource and whether it is done.
type CheckFunc[T any] func(ctx context.Context) (value T, done bool, err error)

// Until calls check every interval until it reports done or returns an error.
//
// # Description
//
// The first check happens one interval after the call, since the caller has
// just submitted the request. A check error is returned as is along with the
// value the check produced. Context cancellation returns ctx.Err() and the
// last value seen.
//
// # Inputs
//
//   - ctx: Cancels the loop.
//   - interval: Delay between checks. Must be positive.
//   - check: Status probe.
//
// # Outputs
//
//   - T: The value of the final check.
//   - error: ErrInvalidInterval, ErrNilCheck, the check error, or ctx.Err().
//
// # Examples
//
//	req, err := poll.Until(ctx, poll.DefaultInterval, func(ctx context.Context) (Req, bool, error) {
//		r, err := c.PollApplyParametersRequest(ctx, id, requestID)
//		return r, r.Complete, err
//	})
func Until[T any](ctx context.Context, interval time.Duration, check CheckFunc[T]) (T, error) {
	var last T
	if interval <= 0 {
		return last, ErrInvalidInterval
	}
	if check == nil {
		return last, ErrNilCheck
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
			v, done, err := check(ctx)
			last = v
			if err != nil {
				return v, err
			}
			if done {
				return v, nil
			}
		}
	}
}
