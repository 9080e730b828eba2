// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the sandbox's management API endpoints on
// top of store.Store.
//
// Errors are written as {"message": "..."} with a status derived from the
// store's sentinel errors:
//
//	store.ErrInvalid   → 400
//	store.ErrForbidden → 403
//	store.ErrNotFound  → 404
//	store.ErrConflict  → 409
//	anything else      → 500
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/flowadmin/flowadmin/pkg/api"
	"github.com/flowadmin/flowadmin/services/sandbox/observability"
	"github.com/flowadmin/flowadmin/services/sandbox/store"
	"github.com/gin-gonic/gin"
)

// Handler serves the API from one store.
type Handler struct {
	store   *store.Store
	metrics *observability.Metrics
}

// New creates a Handler. metrics may be nil.
func New(s *store.Store, metrics *observability.Metrics) *Handler {
	return &Handler{store: s, metrics: metrics}
}

func (h *Handler) recordApply(event observability.ApplyEvent) {
	if h.metrics != nil {
		h.metrics.RecordApply(event, h.store.ActiveApplies())
	}
}

func status(err error) int {
	switch {
	case errors.Is(err, store.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	c.AbortWithStatusJSON(status(err), gin.H{"message": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	fail(c, fmt.Errorf("%w: %w", store.ErrInvalid, err))
}

// revisionQuery reads ?version=&clientId= as sent with DELETE requests.
func revisionQuery(c *gin.Context) (api.Revision, error) {
	v, err := strconv.ParseInt(c.Query("version"), 10, 64)
	if err != nil {
		return api.Revision{}, fmt.Errorf("%w: version query parameter is required", store.ErrInvalid)
	}
	return api.Revision{Version: v, ClientID: c.Query("clientId")}, nil
}

// Health reports liveness.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
