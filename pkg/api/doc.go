// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package api defines the wire types exchanged with the dataflow management API.
//
// The types mirror the JSON documents the server returns and accepts. They have
// no lifecycle of their own: the console caches them in its store and echoes
// them back on update, so every mutation carries the Revision it was read at.
//
// # Revisions
//
// The server uses optimistic locking. A mutation must present the revision
// version it last saw; a stale version is rejected with HTTP 409. CheckRevision
// performs the same comparison locally so the sandbox server and tests agree
// with the real server on what "stale" means.
//
// # Validation
//
// Request types carry go-playground/validator tags. Validate runs them and is
// called by the client before any request leaves the process.
package api
