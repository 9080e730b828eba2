// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sandbox

import (
	"github.com/flowadmin/flowadmin/services/sandbox/handlers"
	"github.com/gin-gonic/gin"
)

// componentResources are the flow component types component policy pages
// look up by id. Parameter providers are served by their own handler.
var componentResources = []string{
	"processors",
	"process-groups",
	"input-ports",
	"output-ports",
	"funnels",
	"labels",
	"remote-process-groups",
	"controller-services",
	"reporting-tasks",
	"parameter-contexts",
}

// SetupRoutes registers the management API on api.
func SetupRoutes(api *gin.RouterGroup, h *handlers.Handler) {
	flow := api.Group("/flow")
	{
		flow.GET("/parameter-providers", h.ListParameterProviders)
		flow.GET("/parameter-provider-types", h.ListParameterProviderTypes)
		flow.GET("/history/components/:id", h.GetComponentHistory)
	}

	api.POST("/controller/parameter-providers", h.CreateParameterProvider)
	api.GET("/controller/cluster", h.GetCluster)
	api.GET("/controller/cluster/nodes/:id", h.GetClusterNode)
	api.GET("/system-diagnostics", h.GetSystemDiagnostics)

	providers := api.Group("/parameter-providers/:id")
	{
		providers.GET("", h.GetParameterProvider)
		providers.PUT("", h.UpdateParameterProvider)
		providers.DELETE("", h.DeleteParameterProvider)
		providers.POST("/parameters/fetch-requests", h.FetchParameters)
		providers.POST("/apply-parameters-requests", h.SubmitApplyParameters)
		providers.GET("/apply-parameters-requests/:requestId", h.PollApplyParameters)
		providers.DELETE("/apply-parameters-requests/:requestId", h.DeleteApplyParameters)
	}

	policies := api.Group("/policies")
	{
		policies.POST("", h.CreateAccessPolicy)
		policies.GET("/:action/*resource", h.GetAccessPolicy)
		policies.PUT("/:id", h.UpdateAccessPolicy)
		policies.DELETE("/:id", h.DeleteAccessPolicy)
	}

	tenants := api.Group("/tenants")
	{
		tenants.GET("/users", h.ListUsers)
		tenants.GET("/user-groups", h.ListUserGroups)
	}

	for _, r := range componentResources {
		api.GET("/"+r+"/:id", h.GetComponent(r))
	}
}
