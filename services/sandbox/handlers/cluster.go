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
	"net/http"
	"strconv"

	"github.com/flowadmin/flowadmin/pkg/api"
	"github.com/gin-gonic/gin"
)

// GetCluster handles GET /controller/cluster. A standalone sandbox answers 409.
func (h *Handler) GetCluster(c *gin.Context) {
	cl, err := h.store.Cluster()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, api.ClusterEntity{Cluster: cl})
}

func (h *Handler) GetClusterNode(c *gin.Context) {
	n, err := h.store.Node(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, api.ClusterNodeEntity{Node: n})
}

// GetSystemDiagnostics handles GET /system-diagnostics?nodewise=.
func (h *Handler) GetSystemDiagnostics(c *gin.Context) {
	nodewise, _ := strconv.ParseBool(c.DefaultQuery("nodewise", "false"))
	c.JSON(http.StatusOK, api.SystemDiagnosticsEntity{SystemDiagnostics: h.store.Diagnostics(nodewise)})
}
