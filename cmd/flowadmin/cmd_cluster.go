// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/flowadmin/flowadmin/cmd/flowadmin/internal/console"
	"github.com/flowadmin/flowadmin/cmd/flowadmin/internal/routing"
	"github.com/flowadmin/flowadmin/pkg/api"
	"github.com/flowadmin/flowadmin/pkg/validation"
	"github.com/spf13/cobra"
)

var clusterCmd = &cobra.Command{
	Use:   "cluster [nodes|system|jvm] [node-id]",
	Short: "Show cluster nodes, system diagnostics or JVM statistics",
	Example: `  flowadmin cluster
  flowadmin cluster system
  flowadmin cluster jvm node-2`,
	Args:      cobra.MaximumNArgs(2),
	ValidArgs: []string{"nodes", "system", "jvm"},
	RunE:      runSession("cluster", runCluster),
}

func runCluster(ctx context.Context, a *app, args []string) error {
	start := time.Now()
	if len(args) == 2 {
		if err := validation.ValidateIdentifier(args[1]); err != nil {
			return fmt.Errorf("node: %w", err)
		}
	}
	path := "cluster/" + strings.Join(args, "/")
	view, err := a.cluster.ShowView(ctx, path)
	switch {
	case errors.Is(err, console.ErrNodeNotFound):
		return findings("%v", err)
	case errors.Is(err, routing.ErrNoRoute):
		return fmt.Errorf("unknown cluster view %q, expected nodes, system or jvm", strings.Join(args, " "))
	case err != nil:
		return err
	}
	_ = a.term.Navigate(ctx, []string{view.Match.Path})

	return a.emit("cluster", start, view, func() {
		switch view.Match.View {
		case routing.ViewClusterSystem:
			printSystem(a, view)
		case routing.ViewClusterJVM:
			printJVM(a, view)
		default:
			printNodes(a, view.Nodes)
		}
	})
}

func printNodes(a *app, nodes []api.ClusterNode) {
	a.out.Title("Cluster Nodes")
	if len(nodes) == 0 {
		a.out.Info("Not clustered.")
		return
	}
	rows := make([][]string, 0, len(nodes))
	for _, n := range nodes {
		rows = append(rows, []string{
			n.NodeID,
			n.Address + ":" + strconv.Itoa(n.APIPort),
			n.Status,
			strings.Join(n.Roles, ", "),
			strconv.Itoa(n.ActiveThreadCount),
			n.Queued,
			n.Heartbeat,
		})
	}
	a.out.Table([]string{"Node", "Address", "Status", "Roles", "Threads", "Queued", "Heartbeat"}, rows)
	if len(nodes) == 1 {
		for _, e := range nodes[0].Events {
			a.out.Info(fmt.Sprintf("%s [%s] %s", e.Timestamp, e.Category, e.Message))
		}
	}
}

func snapshotTitle(view *console.ClusterView, what string) string {
	if id := view.Match.Param("id"); id != "" {
		return fmt.Sprintf("%s (%s)", what, id)
	}
	return what + " (all nodes)"
}

func printSystem(a *app, view *console.ClusterView) {
	a.out.Title(snapshotTitle(view, "System"))
	s := view.Snapshot
	if s == nil {
		return
	}
	a.out.KeyValues([][2]string{
		{"Processors", strconv.Itoa(s.AvailableProcessors)},
		{"Load average", strconv.FormatFloat(s.ProcessorLoadAverage, 'f', 2, 64)},
		{"Total threads", strconv.Itoa(s.TotalThreads)},
		{"Daemon threads", strconv.Itoa(s.DaemonThreads)},
		{"Uptime", s.Uptime},
		{"Refreshed", s.StatsLastRefreshed},
	})
	if view.Match.Param("id") == "" && view.Diagnostics != nil {
		rows := make([][]string, 0, len(view.Diagnostics.NodeSnapshots))
		for _, n := range view.Diagnostics.NodeSnapshots {
			rows = append(rows, []string{
				n.NodeID,
				strconv.Itoa(n.Snapshot.AvailableProcessors),
				strconv.FormatFloat(n.Snapshot.ProcessorLoadAverage, 'f', 2, 64),
				strconv.Itoa(n.Snapshot.TotalThreads),
				n.Snapshot.Uptime,
			})
		}
		if len(rows) > 0 {
			a.out.Table([]string{"Node", "Processors", "Load", "Threads", "Uptime"}, rows)
		}
	}
}

func printJVM(a *app, view *console.ClusterView) {
	a.out.Title(snapshotTitle(view, "JVM"))
	s := view.Snapshot
	if s == nil {
		return
	}
	a.out.KeyValues([][2]string{
		{"Heap used", s.UsedHeap},
		{"Heap total", s.TotalHeap},
		{"Heap max", s.MaxHeap},
		{"Heap utilization", s.HeapUtilization},
		{"Non-heap used", s.UsedNonHeap},
		{"Non-heap total", s.TotalNonHeap},
	})
	if len(s.GarbageCollection) > 0 {
		rows := make([][]string, 0, len(s.GarbageCollection))
		for _, gc := range s.GarbageCollection {
			rows = append(rows, []string{gc.Name, strconv.FormatInt(gc.CollectionCount, 10), gc.CollectionTime})
		}
		a.out.Table([]string{"Collector", "Collections", "Time"}, rows)
	}
}
