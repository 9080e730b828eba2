// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package state holds the console's client-side stores.

# Problem Statement

Controllers run on callbacks from the API client, the poll loop, and the
operator's terminal at the same time. They all need to read and change the
same view state (which providers are listed, which apply request is being
tracked, whether a save is in flight) without tearing.

# Solution

Each store wraps one plain state struct behind a mutex. Mutations are named
after the transition they represent (LoadSuccess, ApplyRequestUpdated, ...)
and Snapshot returns a copy, so a reader never sees a half-applied change.

	┌──────────────┐  LoadSuccess   ┌──────────────────────────┐
	│ controller   │ ─────────────► │ ParameterProviders store │
	│ (console)    │ ◄───────────── │   mutex + state struct   │
	└──────────────┘   Snapshot     └────────────┬─────────────┘
	                                             │ SaveProviders
	                                             ▼
	                                   Cache (BadgerDB, optional)

The Cache persists the last successful listing so the CLI can answer
`providers list --offline`.
*/
package state

import (
	"sync"
)

// Status is the load status of a store.
type Status string

const (
	StatusPending Status = "pending"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
)

// store guards one state value.
type store[T any] struct {
	mu    sync.RWMutex
	state T
}

func (s *store[T]) update(fn func(*T)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}

func (s *store[T]) get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *store[T]) set(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = v
}
