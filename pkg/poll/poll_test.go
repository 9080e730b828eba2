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
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInterval = 5 * time.Millisecond

// countdown returns a check that reports done after n calls.
func countdown(n int32) (CheckFunc[int], *atomic.Int32) {
	var calls atomic.Int32
	return func(context.Context) (int, bool, error) {
		c := calls.Add(1)
		return int(c), c >= n, nil
	}, &calls
}

// -----------------------------------------------------------------------------
// Until Tests
// -----------------------------------------------------------------------------

func TestUntil_CompletesAfterPredicate(t *testing.T) {
	check, calls := countdown(3)

	v, err := Until(context.Background(), testInterval, check)
	require.NoError(t, err)
	assert.Equal(t, 3, v)
	assert.Equal(t, int32(3), calls.Load())
}

func TestUntil_InvalidArguments(t *testing.T) {
	check, _ := countdown(1)

	_, err := Until(context.Background(), 0, check)
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = Until(context.Background(), -time.Second, check)
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = Until[int](context.Background(), testInterval, nil)
	assert.ErrorIs(t, err, ErrNilCheck)
}

func TestUntil_StopsOnFirstError(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32

	_, err := Until(context.Background(), testInterval, func(context.Context) (int, bool, error) {
		calls.Add(1)
		return 0, false, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), calls.Load(), "no retry after an error")
}

func TestUntil_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	_, err := Until(ctx, time.Hour, func(context.Context) (int, bool, error) {
		calls.Add(1)
		return 0, false, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load(), "first check waits one interval")
}

// -----------------------------------------------------------------------------
// Tracker Tests
// -----------------------------------------------------------------------------

type hookRecorder struct {
	completed atomic.Int32
	errored   atomic.Int32
	stopped   atomic.Int32
	lastErr   atomic.Value
}

func (h *hookRecorder) hooks() Hooks[int] {
	return Hooks[int]{
		OnComplete: func(int) { h.completed.Add(1) },
		OnError: func(err error) {
			h.lastErr.Store(err)
			h.errored.Add(1)
		},
		OnStop: func() { h.stopped.Add(1) },
	}
}

func waitDone(t *testing.T, tr *Tracker[int]) {
	t.Helper()
	select {
	case <-tr.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("tracker did not finish, state %s", tr.State())
	}
}

func TestNewTracker_InvalidArguments(t *testing.T) {
	check, _ := countdown(1)

	_, err := NewTracker(0, check, Hooks[int]{})
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = NewTracker[int](testInterval, nil, Hooks[int]{})
	assert.ErrorIs(t, err, ErrNilCheck)
}

func TestTracker_SubmitCompleteSkipsPolling(t *testing.T) {
	var rec hookRecorder
	check, calls := countdown(1)
	tr, err := NewTracker(testInterval, check, rec.hooks())
	require.NoError(t, err)
	assert.Equal(t, Idle, tr.State())

	err = tr.Submit(context.Background(), func(context.Context) (int, bool, error) {
		return 42, true, nil
	})
	require.NoError(t, err)
	waitDone(t, tr)

	assert.Equal(t, Complete, tr.State())
	assert.Equal(t, 42, tr.Result())
	assert.Zero(t, calls.Load())
	assert.Zero(t, tr.Polls())
	assert.Equal(t, int32(1), rec.completed.Load())
	assert.Equal(t, int32(1), rec.stopped.Load())
}

func TestTracker_PollsUntilComplete(t *testing.T) {
	var rec hookRecorder
	check, _ := countdown(3)
	tr, err := NewTracker(testInterval, check, rec.hooks())
	require.NoError(t, err)

	err = tr.Submit(context.Background(), func(context.Context) (int, bool, error) {
		return 0, false, nil
	})
	require.NoError(t, err)
	waitDone(t, tr)

	assert.Equal(t, Complete, tr.State())
	assert.Equal(t, 3, tr.Polls())
	assert.Equal(t, 3, tr.Result())
	assert.Equal(t, int32(1), rec.completed.Load())
	assert.Equal(t, int32(1), rec.stopped.Load())
	assert.Zero(t, rec.errored.Load())

	// No further checks once complete.
	time.Sleep(4 * testInterval)
	assert.Equal(t, 3, tr.Polls())
}

func TestTracker_SubmitError(t *testing.T) {
	var rec hookRecorder
	check, calls := countdown(1)
	tr, err := NewTracker(testInterval, check, rec.hooks())
	require.NoError(t, err)

	boom := errors.New("409 conflict")
	err = tr.Submit(context.Background(), func(context.Context) (int, bool, error) {
		return 0, false, boom
	})
	assert.ErrorIs(t, err, boom)
	waitDone(t, tr)

	assert.Equal(t, Errored, tr.State())
	assert.ErrorIs(t, tr.Err(), boom)
	assert.Zero(t, calls.Load())
	assert.Equal(t, int32(1), rec.errored.Load())
	assert.Equal(t, int32(1), rec.stopped.Load())
}

func TestTracker_CheckErrorIsTerminal(t *testing.T) {
	var rec hookRecorder
	boom := errors.New("request vanished")
	var calls atomic.Int32
	tr, err := NewTracker(testInterval, func(context.Context) (int, bool, error) {
		if calls.Add(1) == 2 {
			return 0, false, boom
		}
		return 7, false, nil
	}, rec.hooks())
	require.NoError(t, err)

	require.NoError(t, tr.Submit(context.Background(), func(context.Context) (int, bool, error) {
		return 1, false, nil
	}))
	waitDone(t, tr)

	assert.Equal(t, Errored, tr.State())
	assert.Equal(t, 2, tr.Polls())
	assert.Equal(t, 7, tr.Result(), "last good value is kept")
	assert.ErrorIs(t, rec.lastErr.Load().(error), boom)
	assert.Equal(t, int32(1), rec.stopped.Load())

	time.Sleep(4 * testInterval)
	assert.Equal(t, int32(2), calls.Load(), "no retry after an error")
}

func TestTracker_Cancel(t *testing.T) {
	var rec hookRecorder
	tr, err := NewTracker(time.Hour, func(context.Context) (int, bool, error) {
		return 0, false, nil
	}, rec.hooks())
	require.NoError(t, err)

	require.NoError(t, tr.Submit(context.Background(), func(context.Context) (int, bool, error) {
		return 5, false, nil
	}))
	assert.Equal(t, Polling, tr.State())

	tr.Cancel()
	waitDone(t, tr)
	assert.Equal(t, Cancelled, tr.State())
	assert.Equal(t, 5, tr.Result())
	assert.Equal(t, int32(1), rec.stopped.Load())
	assert.Zero(t, rec.completed.Load())
	assert.Zero(t, rec.errored.Load())

	// Cancel is idempotent.
	tr.Cancel()
	assert.Equal(t, int32(1), rec.stopped.Load())
}

func TestTracker_ContextCancellation(t *testing.T) {
	var rec hookRecorder
	tr, err := NewTracker(time.Hour, func(context.Context) (int, bool, error) {
		return 0, false, nil
	}, rec.hooks())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, tr.Submit(ctx, func(context.Context) (int, bool, error) {
		return 0, false, nil
	}))
	cancel()
	waitDone(t, tr)

	assert.Equal(t, Cancelled, tr.State())
	assert.Equal(t, int32(1), rec.stopped.Load())
}

func TestTracker_SubmitTwice(t *testing.T) {
	check, _ := countdown(1)
	tr, err := NewTracker(testInterval, check, Hooks[int]{})
	require.NoError(t, err)

	submit := func(context.Context) (int, bool, error) { return 1, true, nil }
	require.NoError(t, tr.Submit(context.Background(), submit))
	assert.ErrorIs(t, tr.Submit(context.Background(), submit), ErrAlreadySubmitted)
}

func TestTracker_Wait(t *testing.T) {
	check, _ := countdown(2)
	tr, err := NewTracker(testInterval, check, Hooks[int]{})
	require.NoError(t, err)

	require.NoError(t, tr.Submit(context.Background(), func(context.Context) (int, bool, error) {
		return 0, false, nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v, err := tr.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "polling", Polling.String())
	assert.Equal(t, "unknown", State(99).String())
	assert.True(t, Cancelled.Terminal())
	assert.False(t, Submitted.Terminal())
}
