// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package policy holds the presentation rules of component access policies.
//
// A component policy is addressed by (action, policy, resource, id), e.g.
// (read, provenance-data, processors, p1). The operator picks it from a single
// option list ("read-provenance-data"), and which options make sense depends
// on the kind of component. This package owns that mapping in both directions
// and the labels shown around it. It performs no I/O.
package policy

import (
	"strings"

	"github.com/flowadmin/flowadmin/cmd/flowadmin/internal/routing"
	"github.com/flowadmin/flowadmin/pkg/api"
)

// Policy names used in component resource actions.
const (
	PolicyComponent      = "component"
	PolicyOperation      = "operation"
	PolicyData           = "data"
	PolicyProvenanceData = "provenance-data"
	PolicyPolicies       = "policies"
	PolicyDataTransfer   = "data-transfer"
)

// Option is one entry of the policy picker.
type Option struct {
	Text        string
	Value       string
	Description string
	// Disabled options are listed but never selectable by default.
	Disabled bool
}

// Options is the picker in display order.
var Options = []Option{
	{
		Text:        "view the component",
		Value:       "read-component",
		Description: "Allows users to view component configuration details",
	},
	{
		Text:        "modify the component",
		Value:       "write-component",
		Description: "Allows users to modify component configuration details",
	},
	{
		Text:  "operate the component",
		Value: "write-operation",
		Description: "Allows users to operate components by changing component run status (start/stop/enable/disable), " +
			"remote port transmission status, or terminating processor threads",
	},
	{
		Text:        "view provenance",
		Value:       "read-provenance-data",
		Description: "Allows users to view provenance events generated by this component",
	},
	{
		Text:  "view the data",
		Value: "read-data",
		Description: "Allows users to view metadata and content for this component in flowfile queues in outbound " +
			"connections and through provenance events",
	},
	{
		Text:  "modify the data",
		Value: "write-data",
		Description: "Allows users to empty flowfile queues in outbound connections and submit replays through " +
			"provenance events",
	},
	{
		Text:        "receive data via site-to-site",
		Value:       "write-receive-data",
		Description: "Allows this port to receive data from these instances",
		Disabled:    true,
	},
	{
		Text:        "send data via site-to-site",
		Value:       "write-send-data",
		Description: "Allows this port to send data to these instances",
		Disabled:    true,
	},
	{
		Text:        "view the policies",
		Value:       "read-policies",
		Description: "Allows users to view the list of users who can view/modify this component",
	},
	{
		Text:        "modify the policies",
		Value:       "write-policies",
		Description: "Allows users to modify the list of users who can view/modify this component",
	},
}

// FindOption looks an option up by value.
func FindOption(value string) (Option, bool) {
	for _, o := range Options {
		if o.Value == value {
			return o, true
		}
	}
	return Option{}, false
}

// Component is what the picker needs to know about the protected component.
type Component struct {
	Label             string
	Resource          string
	AllowRemoteAccess bool
}

// IsComponentPolicy reports whether option applies to component.
//
// Site-to-site options only apply to ports that allow remote access, and only
// in the direction of the port. Data and provenance options do not apply to
// components that hold no flowfiles.
func IsComponentPolicy(option Option, component Component) bool {
	var excluded []string
	switch {
	case component.Resource == "process-groups":
		excluded = []string{"write-send-data", "write-receive-data"}
	case component.Resource == "controller-services" || component.Resource == "reporting-tasks":
		excluded = []string{"read-data", "write-data", "write-send-data", "write-receive-data", "read-provenance-data"}
	case component.Resource == "parameter-contexts" || component.Resource == "parameter-providers":
		excluded = []string{"read-data", "write-data", "write-send-data", "write-receive-data",
			"read-provenance-data", "write-operation"}
	case component.Resource == "labels":
		excluded = []string{"write-operation", "read-data", "write-data", "write-send-data", "write-receive-data"}
	case component.Resource == "input-ports" && component.AllowRemoteAccess:
		excluded = []string{"write-send-data"}
	case component.Resource == "output-ports" && component.AllowRemoteAccess:
		excluded = []string{"write-receive-data"}
	default:
		excluded = []string{"write-send-data", "write-receive-data"}
	}
	for _, v := range excluded {
		if option.Value == v {
			return false
		}
	}
	return true
}

// AvailableOptions filters Options for component.
func AvailableOptions(component Component) []Option {
	out := make([]Option, 0, len(Options))
	for _, o := range Options {
		if IsComponentPolicy(o, component) {
			out = append(out, o)
		}
	}
	return out
}

// FormValue is the picker value for cra.
//
// Site-to-site policies share the "data-transfer" policy name; the direction
// comes from the port type.
func FormValue(cra api.ComponentResourceAction) string {
	policy := cra.Policy
	if policy == PolicyDataTransfer {
		if cra.Resource == "input-ports" {
			policy = "receive-data"
		} else {
			policy = "send-data"
		}
	}
	return string(cra.Action) + "-" + policy
}

// ResourceToLoad is the policy resource backing cra.
//
// Component policies live at "/processors/p1"; every other policy of the
// component is prefixed by its name, e.g. "/provenance-data/processors/p1".
func ResourceToLoad(cra api.ComponentResourceAction) api.ResourceAction {
	resource := cra.Resource
	if cra.Policy != PolicyComponent {
		resource = cra.Policy + "/" + cra.Resource
	}
	return api.ResourceAction{
		Action:             cra.Action,
		Resource:           resource,
		ResourceIdentifier: cra.ResourceIdentifier,
	}
}

// ParseOption maps a picker value to its action and policy. Unknown values,
// including both site-to-site options, map to write data-transfer.
func ParseOption(value string) (api.Action, string) {
	switch value {
	case "read-component":
		return api.ActionRead, PolicyComponent
	case "write-component":
		return api.ActionWrite, PolicyComponent
	case "write-operation":
		return api.ActionWrite, PolicyOperation
	case "read-data":
		return api.ActionRead, PolicyData
	case "write-data":
		return api.ActionWrite, PolicyData
	case "read-provenance-data":
		return api.ActionRead, PolicyProvenanceData
	case "read-policies":
		return api.ActionRead, PolicyPolicies
	case "write-policies":
		return api.ActionWrite, PolicyPolicies
	default:
		return api.ActionWrite, PolicyDataTransfer
	}
}

// Select builds the resource action for picking value on the component that
// cra currently addresses.
func Select(cra api.ComponentResourceAction, value string) api.ComponentResourceAction {
	action, policy := ParseOption(value)
	return api.ComponentResourceAction{
		Action:             action,
		Policy:             policy,
		Resource:           cra.Resource,
		ResourceIdentifier: cra.ResourceIdentifier,
	}
}

// ContextIcon is the icon name for a component collection.
func ContextIcon(resource string) string {
	switch resource {
	case "processors":
		return "icon-processor"
	case "input-ports":
		return "icon-port-in"
	case "output-ports":
		return "icon-port-out"
	case "funnels":
		return "icon-funnel"
	case "labels":
		return "icon-label"
	case "remote-process-groups":
		return "icon-group-remote"
	case "parameter-providers", "parameter-contexts":
		return "icon-drop"
	}
	return "icon-group"
}

// ContextType is the display name for a component collection.
func ContextType(resource string) string {
	switch resource {
	case "processors":
		return "Processor"
	case "input-ports":
		return "Input Ports"
	case "output-ports":
		return "Output Ports"
	case "funnels":
		return "Funnel"
	case "labels":
		return "Label"
	case "remote-process-groups":
		return "Remote Process Group"
	case "parameter-contexts":
		return "Parameter Contexts"
	case "parameter-providers":
		return "Parameter Provider"
	}
	return "Process Group"
}

// Inheritance says where an inherited policy comes from.
type Inheritance int

const (
	InheritedFromProcessGroup Inheritance = iota
	InheritedFromPolicies
	InheritedFromController
	InheritedFromGlobalParameterContexts
)

// String is the sentence shown under an inherited policy.
func (i Inheritance) String() string {
	switch i {
	case InheritedFromPolicies:
		return "Showing effective policy inherited from all policies."
	case InheritedFromController:
		return "Showing effective policy inherited from the controller."
	case InheritedFromGlobalParameterContexts:
		return "Showing effective policy inherited from global parameter context policy."
	default:
		return "Showing effective policy inherited from Process Group."
	}
}

// ClassifyInherited says where policy was inherited from.
func ClassifyInherited(policy api.AccessPolicyEntity) Inheritance {
	resource := policy.Component.Resource
	switch {
	case strings.HasPrefix(resource, "/policies"):
		return InheritedFromPolicies
	case resource == "/controller":
		return InheritedFromController
	case resource == "/parameter-contexts":
		return InheritedFromGlobalParameterContexts
	}
	return InheritedFromProcessGroup
}

// InheritedProcessGroupRoute navigates to the process group an inherited
// policy belongs to.
func InheritedProcessGroupRoute(policy api.AccessPolicyEntity) []string {
	resource := policy.Component.Resource
	return routing.ProcessGroup(resource[strings.LastIndex(resource, "/")+1:])
}
