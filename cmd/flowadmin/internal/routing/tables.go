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

// Cluster is the table under /cluster.
var Cluster = []Route{
	{Path: "", RedirectTo: "nodes", PathMatch: PathMatchFull},
	{Path: "nodes", View: ViewClusterNodes, Children: []Route{
		{Path: ":id", View: ViewClusterNodes},
	}},
	{Path: "system", View: ViewClusterSystem, Children: []Route{
		{Path: ":id", View: ViewClusterSystem},
	}},
	{Path: "jvm", View: ViewClusterJVM, Children: []Route{
		{Path: ":id", View: ViewClusterJVM},
	}},
}

// Settings is the table under /settings.
var Settings = []Route{
	{Path: "", RedirectTo: "general", PathMatch: PathMatchFull},
	{Path: "general", View: ViewGeneral},
	{Path: "management-controller-services", View: ViewManagementControllerServices, Children: []Route{
		{Path: ":id", View: ViewManagementControllerServices},
	}},
	{Path: "parameter-providers", View: ViewParameterProviders, Children: []Route{
		{Path: ":id", View: ViewParameterProviders, Children: []Route{
			{Path: "edit", View: ViewParameterProviderEdit},
			{Path: "advanced", View: ViewParameterProviderAdvanced},
			{Path: "fetch", View: ViewParameterProviderFetch},
		}},
	}},
}

// AccessPolicies is the table under /access-policies.
var AccessPolicies = []Route{
	{Path: "", RedirectTo: "global/read/flow", PathMatch: PathMatchFull},
	{Path: "global/:action/:resource", View: ViewGlobalAccessPolicies, Children: []Route{
		{Path: ":resourceIdentifier", View: ViewGlobalAccessPolicies},
	}},
	{Path: ":action/:policy/:resource/:resourceIdentifier", View: ViewComponentAccessPolicies},
}

// App is the full console table.
var App = []Route{
	{Path: "", RedirectTo: "settings/parameter-providers", PathMatch: PathMatchFull},
	{Path: "settings", Children: Settings},
	{Path: "cluster", Children: Cluster},
	{Path: "access-policies", Children: AccessPolicies},
	{Path: "process-groups/:id", View: ViewProcessGroup},
	{Path: "parameter-contexts", View: ViewParameterContexts, Children: []Route{
		{Path: ":id", View: ViewParameterContexts},
	}},
}
