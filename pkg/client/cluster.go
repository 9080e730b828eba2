// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/flowadmin/flowadmin/pkg/api"
)

// GetCluster loads the cluster summary.
func (c *Client) GetCluster(ctx context.Context) (*api.Cluster, error) {
	var out api.ClusterEntity
	if err := c.do(ctx, http.MethodGet, "/controller/cluster", "/controller/cluster", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Cluster, nil
}

// GetClusterNode loads one node.
func (c *Client) GetClusterNode(ctx context.Context, id string) (*api.ClusterNode, error) {
	var out api.ClusterNodeEntity
	if err := c.do(ctx, http.MethodGet, "/controller/cluster/nodes/{id}", "/controller/cluster/nodes/"+escape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Node, nil
}

// GetSystemDiagnostics loads JVM and host diagnostics, per node when nodewise is set.
func (c *Client) GetSystemDiagnostics(ctx context.Context, nodewise bool) (*api.SystemDiagnostics, error) {
	var out api.SystemDiagnosticsEntity
	q := url.Values{"nodewise": {strconv.FormatBool(nodewise)}}
	if err := c.do(ctx, http.MethodGet, "/system-diagnostics", "/system-diagnostics", q, nil, &out); err != nil {
		return nil, err
	}
	return &out.SystemDiagnostics, nil
}
