// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routing

import "strings"

// =============================================================================
// Navigation Commands
// =============================================================================

// The console navigates from the root, so relative and absolute commands
// land on the same path. The leading "/" is kept where the console's
// controllers historically used it.

// ParameterProvider selects a provider in the listing.
func ParameterProvider(id string) []string {
	return []string{"/settings", "parameter-providers", id}
}

// EditParameterProvider opens the configure dialog for a provider.
func EditParameterProvider(id string) []string {
	return []string{"settings", "parameter-providers", id, "edit"}
}

// AdvancedParameterProvider opens the provider's advanced UI.
func AdvancedParameterProvider(id string) []string {
	return []string{"settings", "parameter-providers", id, "advanced"}
}

// FetchParameterProvider opens the fetch dialog for a provider.
func FetchParameterProvider(id string) []string {
	return []string{"settings", "parameter-providers", id, "fetch"}
}

// ManagementControllerService selects a controller service.
func ManagementControllerService(id string) []string {
	return []string{"/settings", "management-controller-services", id}
}

// ParameterContext selects a parameter context.
func ParameterContext(id string) []string {
	return []string{"parameter-contexts", id}
}

// ProcessGroup opens a process group.
func ProcessGroup(id string) []string {
	return []string{"/process-groups", id}
}

// ComponentAccessPolicy opens the policy of one component.
func ComponentAccessPolicy(action, policy, resource, resourceIdentifier string) []string {
	return []string{"/access-policies", action, policy, resource, resourceIdentifier}
}

// GlobalAccessPolicy opens a global policy. resourceIdentifier may be empty.
func GlobalAccessPolicy(action, resource, resourceIdentifier string) []string {
	c := []string{"/access-policies", "global", action, resource}
	if resourceIdentifier != "" {
		c = append(c, resourceIdentifier)
	}
	return c
}

// ClusterView opens a cluster tab ("nodes", "system", "jvm"), optionally
// focused on one node.
func ClusterView(view, id string) []string {
	c := []string{"/cluster", view}
	if id != "" {
		c = append(c, id)
	}
	return c
}

// Join renders commands as an absolute path.
//
//	Join([]string{"settings", "parameter-providers", "abc", "edit"})
//	// "/settings/parameter-providers/abc/edit"
func Join(commands []string) string {
	parts := make([]string, 0, len(commands))
	for _, c := range commands {
		if c = strings.Trim(c, "/"); c != "" {
			parts = append(parts, c)
		}
	}
	return "/" + strings.Join(parts, "/")
}
