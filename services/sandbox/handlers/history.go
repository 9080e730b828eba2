// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/flowadmin/flowadmin/pkg/api"
	"github.com/flowadmin/flowadmin/services/sandbox/middleware"
	"github.com/gin-gonic/gin"
)

// FlowHistory handles GET /flow/history from the audit trail.
//
// Query parameters userIdentity and sourceId filter, count caps the
// number of actions returned (newest first). Total counts every match.
func FlowHistory(audit middleware.AuditLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := middleware.AuditFilter{
			UserID:   c.Query("userIdentity"),
			SourceID: c.Query("sourceId"),
		}
		if raw := c.Query("count"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				badRequest(c, fmt.Errorf("count must be a non-negative integer, got %q", raw))
				return
			}
			filter.Limit = n
		}

		events, total, err := audit.Query(c.Request.Context(), filter)
		if err != nil {
			fail(c, err)
			return
		}
		out := api.HistoryEntity{Total: total, Actions: make([]api.FlowAction, 0, len(events))}
		for i, e := range events {
			out.Actions = append(out.Actions, api.FlowAction{
				ID:           int64(total - i),
				Timestamp:    e.Timestamp.Format(time.RFC3339),
				UserIdentity: e.UserID,
				Operation:    e.Operation,
				SourceType:   e.SourceType,
				SourceID:     e.SourceID,
				Outcome:      e.Outcome,
			})
		}
		c.JSON(http.StatusOK, out)
	}
}
