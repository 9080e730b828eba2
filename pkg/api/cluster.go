// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

// ClusterNode is one member of the cluster.
type ClusterNode struct {
	NodeID              string   `json:"nodeId"`
	Address             string   `json:"address"`
	APIPort             int      `json:"apiPort"`
	Status              string   `json:"status"`
	Roles               []string `json:"roles,omitempty"`
	Heartbeat           string   `json:"heartbeat,omitempty"`
	ConnectionRequested string   `json:"connectionRequested,omitempty"`
	ActiveThreadCount   int      `json:"activeThreadCount"`
	Queued              string   `json:"queued,omitempty"`
	Events              []struct {
		Timestamp string `json:"timestamp"`
		Category  string `json:"category"`
		Message   string `json:"message"`
	} `json:"events,omitempty"`
	NodeStartTime string `json:"nodeStartTime,omitempty"`
}

// HasRole reports whether the node holds role.
func (n ClusterNode) HasRole(role string) bool {
	for _, r := range n.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Cluster is the cluster summary.
type Cluster struct {
	Nodes     []ClusterNode `json:"nodes"`
	Generated string        `json:"generated,omitempty"`
}

// ClusterEntity wraps the cluster summary.
type ClusterEntity struct {
	Cluster Cluster `json:"cluster"`
}

// ClusterNodeEntity wraps a single node.
type ClusterNodeEntity struct {
	Node ClusterNode `json:"node"`
}

// GarbageCollection reports one collector.
type GarbageCollection struct {
	Name            string `json:"name"`
	CollectionCount int64  `json:"collectionCount"`
	CollectionTime  string `json:"collectionTime"`
}

// SystemSnapshot is a point in time view of one JVM or the aggregate.
type SystemSnapshot struct {
	AvailableProcessors  int                 `json:"availableProcessors"`
	ProcessorLoadAverage float64             `json:"processorLoadAverage"`
	TotalHeap            string              `json:"totalHeap"`
	UsedHeap             string              `json:"usedHeap"`
	MaxHeap              string              `json:"maxHeap"`
	HeapUtilization      string              `json:"heapUtilization"`
	TotalNonHeap         string              `json:"totalNonHeap"`
	UsedNonHeap          string              `json:"usedNonHeap"`
	TotalThreads         int                 `json:"totalThreads"`
	DaemonThreads        int                 `json:"daemonThreads"`
	Uptime               string              `json:"uptime"`
	GarbageCollection    []GarbageCollection `json:"garbageCollection,omitempty"`
	StatsLastRefreshed   string              `json:"statsLastRefreshed,omitempty"`
}

// NodeSnapshot is the snapshot of one node.
type NodeSnapshot struct {
	NodeID   string         `json:"nodeId"`
	Address  string         `json:"address"`
	APIPort  int            `json:"apiPort"`
	Snapshot SystemSnapshot `json:"snapshot"`
}

// SystemDiagnostics holds the aggregate and, when requested nodewise, per-node snapshots.
type SystemDiagnostics struct {
	AggregateSnapshot SystemSnapshot `json:"aggregateSnapshot"`
	NodeSnapshots     []NodeSnapshot `json:"nodeSnapshots,omitempty"`
}

// SystemDiagnosticsEntity wraps the diagnostics.
type SystemDiagnosticsEntity struct {
	SystemDiagnostics SystemDiagnostics `json:"systemDiagnostics"`
}

// Node returns the snapshot of nodeID, if present.
func (d SystemDiagnostics) Node(nodeID string) (NodeSnapshot, bool) {
	for _, n := range d.NodeSnapshots {
		if n.NodeID == nodeID {
			return n, true
		}
	}
	return NodeSnapshot{}, false
}
