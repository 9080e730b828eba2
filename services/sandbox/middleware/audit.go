// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/flowadmin/flowadmin/pkg/api"
	"github.com/gin-gonic/gin"
)

// auditSourceKey lets a handler name the entity it created.
const auditSourceKey = "flowadmin_audit_source"

// Audit outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Source types recorded in the audit trail.
const (
	SourceParameterProvider = "ParameterProvider"
	SourceAccessPolicy      = "AccessPolicy"
)

// AuditEvent is one mutating request against the management API.
type AuditEvent struct {
	Timestamp  time.Time
	UserID     string
	Operation  string
	SourceType string
	SourceID   string
	Outcome    string
}

// AuditFilter selects events for Query. Zero fields match everything;
// set fields are combined with AND.
type AuditFilter struct {
	UserID   string
	SourceID string

	// Limit caps the result. Zero means no cap.
	Limit int
}

func (f AuditFilter) matches(e AuditEvent) bool {
	if f.UserID != "" && f.UserID != e.UserID {
		return false
	}
	if f.SourceID != "" && f.SourceID != e.SourceID {
		return false
	}
	return true
}

// AuditLogger records and returns audit events.
//
// Implementations must be safe for concurrent use.
type AuditLogger interface {
	Log(ctx context.Context, event AuditEvent) error

	// Query returns matching events newest first, and the number that
	// matched before Limit was applied.
	Query(ctx context.Context, filter AuditFilter) ([]AuditEvent, int, error)
}

// NopAuditLogger discards everything.
type NopAuditLogger struct{}

func (NopAuditLogger) Log(context.Context, AuditEvent) error { return nil }

func (NopAuditLogger) Query(context.Context, AuditFilter) ([]AuditEvent, int, error) {
	return nil, 0, nil
}

// MemoryAuditLogger keeps the most recent events in a ring.
//
// # Thread Safety
//
// Safe for concurrent use.
type MemoryAuditLogger struct {
	mu       sync.RWMutex
	events   []AuditEvent
	next     int
	full     bool
	capacity int
}

// DefaultAuditCapacity is used when NewMemoryAuditLogger gets a
// non-positive capacity.
const DefaultAuditCapacity = 1000

// NewMemoryAuditLogger creates a logger holding up to capacity events.
func NewMemoryAuditLogger(capacity int) *MemoryAuditLogger {
	if capacity <= 0 {
		capacity = DefaultAuditCapacity
	}
	return &MemoryAuditLogger{events: make([]AuditEvent, capacity), capacity: capacity}
}

// Log stores event, evicting the oldest one when full. A zero Timestamp
// is set to now.
func (m *MemoryAuditLogger) Log(_ context.Context, event AuditEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[m.next] = event
	m.next = (m.next + 1) % m.capacity
	if m.next == 0 {
		m.full = true
	}
	return nil
}

// Query implements AuditLogger.
func (m *MemoryAuditLogger) Query(_ context.Context, filter AuditFilter) ([]AuditEvent, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := m.next
	if m.full {
		n = m.capacity
	}
	var out []AuditEvent
	total := 0
	for i := 1; i <= n; i++ {
		e := m.events[(m.next-i+m.capacity)%m.capacity]
		if !filter.matches(e) {
			continue
		}
		total++
		if filter.Limit <= 0 || len(out) < filter.Limit {
			out = append(out, e)
		}
	}
	return out, total, nil
}

// SetAuditSource names the entity a request created, for routes whose
// path carries no id.
func SetAuditSource(c *gin.Context, id string) {
	c.Set(auditSourceKey, id)
}

// AuditMiddleware records every mutating request under basePath once the
// handler has run. It must be installed after AuthMiddleware so the
// identity is known. Requests whose route is not a flow entity, and
// cleanup of apply requests, are not recorded.
func AuditMiddleware(logger AuditLogger, basePath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method == http.MethodGet {
			return
		}
		route := strings.TrimPrefix(c.FullPath(), basePath)
		op, sourceType, ok := classify(c.Request.Method, route)
		if !ok {
			return
		}

		id := c.Param("id")
		if id == "" {
			id = c.GetString(auditSourceKey)
		}
		outcome := OutcomeSuccess
		if c.Writer.Status() >= http.StatusBadRequest {
			outcome = OutcomeFailure
		}
		_ = logger.Log(c.Request.Context(), AuditEvent{
			UserID:     GetIdentity(c),
			Operation:  op,
			SourceType: sourceType,
			SourceID:   id,
			Outcome:    outcome,
		})
	}
}

// classify maps a method and route template to an audit operation.
func classify(method, route string) (op, sourceType string, ok bool) {
	switch {
	case strings.HasSuffix(route, "/apply-parameters-requests/:requestId"):
		return "", "", false
	case strings.HasSuffix(route, "/parameters/fetch-requests"):
		return api.OperationFetch, SourceParameterProvider, true
	case strings.HasSuffix(route, "/apply-parameters-requests"):
		return api.OperationApply, SourceParameterProvider, true
	case strings.Contains(route, "/parameter-providers"):
		sourceType = SourceParameterProvider
	case strings.HasPrefix(route, "/policies"):
		sourceType = SourceAccessPolicy
	default:
		return "", "", false
	}

	switch method {
	case http.MethodPost:
		op = api.OperationAdd
	case http.MethodPut:
		op = api.OperationConfigure
	case http.MethodDelete:
		op = api.OperationRemove
	default:
		return "", "", false
	}
	return op, sourceType, true
}
