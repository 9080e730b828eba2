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
	"net/http/httptest"
	"testing"

	"github.com/flowadmin/flowadmin/pkg/api"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAuditLogger_EvictsOldest(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAuditLogger(2)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, m.Log(ctx, AuditEvent{SourceID: id}))
	}

	events, total, err := m.Query(ctx, AuditFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, events, 2)
	assert.Equal(t, "c", events[0].SourceID)
	assert.Equal(t, "b", events[1].SourceID)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestMemoryAuditLogger_Filter(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAuditLogger(0)
	_ = m.Log(ctx, AuditEvent{UserID: "admin", SourceID: "p1"})
	_ = m.Log(ctx, AuditEvent{UserID: "operator", SourceID: "p1"})
	_ = m.Log(ctx, AuditEvent{UserID: "admin", SourceID: "p2"})

	events, total, _ := m.Query(ctx, AuditFilter{UserID: "admin"})
	assert.Equal(t, 2, total)
	assert.Len(t, events, 2)

	events, total, _ = m.Query(ctx, AuditFilter{SourceID: "p1", Limit: 1})
	assert.Equal(t, 2, total)
	require.Len(t, events, 1)
	assert.Equal(t, "operator", events[0].UserID)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		method, route string
		op, source    string
		ok            bool
	}{
		{http.MethodPost, "/controller/parameter-providers", api.OperationAdd, SourceParameterProvider, true},
		{http.MethodPut, "/parameter-providers/:id", api.OperationConfigure, SourceParameterProvider, true},
		{http.MethodDelete, "/parameter-providers/:id", api.OperationRemove, SourceParameterProvider, true},
		{http.MethodPost, "/parameter-providers/:id/parameters/fetch-requests", api.OperationFetch, SourceParameterProvider, true},
		{http.MethodPost, "/parameter-providers/:id/apply-parameters-requests", api.OperationApply, SourceParameterProvider, true},
		{http.MethodDelete, "/parameter-providers/:id/apply-parameters-requests/:requestId", "", "", false},
		{http.MethodPut, "/policies/:id", api.OperationConfigure, SourceAccessPolicy, true},
		{http.MethodPost, "/tenants/users", "", "", false},
		{http.MethodPost, "", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.route, func(t *testing.T) {
			op, source, ok := classify(tt.method, tt.route)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.op, op)
			assert.Equal(t, tt.source, source)
		})
	}
}

func TestAuditMiddleware(t *testing.T) {
	audit := NewMemoryAuditLogger(10)
	router := gin.New()
	grp := router.Group("/base")
	grp.Use(AuthMiddleware(Anonymous{}), AuditMiddleware(audit, "/base"))
	grp.GET("/parameter-providers/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	grp.DELETE("/parameter-providers/:id", func(c *gin.Context) { c.Status(http.StatusConflict) })
	grp.POST("/controller/parameter-providers", func(c *gin.Context) {
		SetAuditSource(c, "new-id")
		c.Status(http.StatusCreated)
	})

	for _, r := range []struct{ method, path string }{
		{http.MethodGet, "/base/parameter-providers/p1"},
		{http.MethodDelete, "/base/parameter-providers/p1"},
		{http.MethodPost, "/base/controller/parameter-providers"},
	} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(r.method, r.path, nil))
	}

	events, total, err := audit.Query(context.Background(), AuditFilter{})
	require.NoError(t, err)
	require.Equal(t, 2, total, "reads are not audited")
	assert.Equal(t, "new-id", events[0].SourceID)
	assert.Equal(t, OutcomeSuccess, events[0].Outcome)
	assert.Equal(t, "p1", events[1].SourceID)
	assert.Equal(t, api.OperationRemove, events[1].Operation)
	assert.Equal(t, OutcomeFailure, events[1].Outcome)
	assert.Equal(t, "anonymous", events[1].UserID)
}
