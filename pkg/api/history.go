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

// Flow action operations.
const (
	OperationAdd       = "Add"
	OperationConfigure = "Configure"
	OperationRemove    = "Remove"
	OperationFetch     = "Fetch"
	OperationApply     = "Apply"
)

// FlowAction is one entry of the flow configuration history.
type FlowAction struct {
	ID           int64  `json:"id"`
	Timestamp    string `json:"timestamp"`
	UserIdentity string `json:"userIdentity"`
	Operation    string `json:"operation"`
	SourceType   string `json:"sourceType"`
	SourceID     string `json:"sourceId,omitempty"`
	Outcome      string `json:"outcome"`
}

// HistoryEntity is the flow configuration history, newest first.
type HistoryEntity struct {
	Total   int          `json:"total"`
	Actions []FlowAction `json:"actions"`
}
