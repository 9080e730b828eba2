// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package console

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/flowadmin/flowadmin/cmd/flowadmin/internal/routing"
	"github.com/flowadmin/flowadmin/pkg/api"
	"golang.org/x/sync/errgroup"
)

// ErrNodeNotFound is returned when a cluster view names an unknown node.
var ErrNodeNotFound = errors.New("cluster node not found")

// ClusterView is what a cluster path resolved to and the data it shows.
type ClusterView struct {
	Match routing.Match

	// Nodes is every node, or just the focused one when the path names a node.
	Nodes []api.ClusterNode

	// Diagnostics is set for the system and JVM views.
	Diagnostics *api.SystemDiagnostics

	// Snapshot is the focused node's snapshot, or the aggregate.
	Snapshot *api.SystemSnapshot
}

// Cluster is the controller of the cluster pages.
type Cluster struct {
	svc  ClusterService
	deps Deps
}

func NewCluster(svc ClusterService, deps Deps) *Cluster {
	return &Cluster{svc: svc, deps: deps.withDefaults()}
}

// ShowView resolves a path under /cluster and loads what that view shows.
//
// # Inputs
//
//   - path: "/cluster", "/cluster/nodes/<id>", "system", "jvm/<id>", ...
//     A path without the "/cluster" prefix is taken relative to it.
//
// # Outputs
//
//   - ClusterView: The resolved route with nodes and, for system and JVM
//     views, diagnostics. Both are loaded concurrently.
//   - error: routing.ErrNoRoute, ErrNodeNotFound, or the API error.
func (c *Cluster) ShowView(ctx context.Context, path string) (*ClusterView, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed != "cluster" && !strings.HasPrefix(trimmed, "cluster/") {
		trimmed = "cluster/" + trimmed
	}
	m, err := routing.Resolve(routing.App, trimmed)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(m.Path, "/cluster") {
		return nil, fmt.Errorf("resolve %q: %w", path, routing.ErrNoRoute)
	}

	view := &ClusterView{Match: m}
	var cluster *api.Cluster

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cluster, err = c.svc.GetCluster(gctx)
		return err
	})
	if m.View == routing.ViewClusterSystem || m.View == routing.ViewClusterJVM {
		g.Go(func() error {
			var err error
			view.Diagnostics, err = c.svc.GetSystemDiagnostics(gctx, true)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		c.deps.Notifier.FullScreen(err)
		return nil, err
	}

	view.Nodes = cluster.Nodes
	id := m.Param("id")
	if id != "" {
		view.Nodes = nil
		for _, n := range cluster.Nodes {
			if n.NodeID == id {
				view.Nodes = []api.ClusterNode{n}
				break
			}
		}
		if len(view.Nodes) == 0 {
			return nil, fmt.Errorf("%s: %w", id, ErrNodeNotFound)
		}
	}

	if view.Diagnostics != nil {
		snap := view.Diagnostics.AggregateSnapshot
		view.Snapshot = &snap
		if id != "" {
			ns, ok := view.Diagnostics.Node(id)
			if !ok {
				return nil, fmt.Errorf("%s diagnostics: %w", id, ErrNodeNotFound)
			}
			s := ns.Snapshot
			view.Snapshot = &s
		}
	}
	return view, nil
}
