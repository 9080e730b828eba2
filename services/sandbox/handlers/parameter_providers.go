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
	"fmt"
	"net/http"

	"github.com/flowadmin/flowadmin/pkg/api"
	"github.com/flowadmin/flowadmin/services/sandbox/middleware"
	"github.com/flowadmin/flowadmin/services/sandbox/observability"
	"github.com/gin-gonic/gin"
)

type createProviderBody struct {
	Revision  api.Revision `json:"revision"`
	Component struct {
		Type   string     `json:"type" binding:"required"`
		Bundle api.Bundle `json:"bundle"`
	} `json:"component"`
}

type fetchBody struct {
	ID       string       `json:"id" binding:"required"`
	Revision api.Revision `json:"revision"`
}

// ListParameterProviders handles GET /flow/parameter-providers.
func (h *Handler) ListParameterProviders(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.ListProviders())
}

// ListParameterProviderTypes handles GET /flow/parameter-provider-types.
func (h *Handler) ListParameterProviderTypes(c *gin.Context) {
	c.JSON(http.StatusOK, api.ParameterProviderTypesEntity{ParameterProviderTypes: h.store.ProviderTypes()})
}

// GetParameterProvider handles GET /parameter-providers/:id. The same
// entity serves component policy lookups for parameter providers.
func (h *Handler) GetParameterProvider(c *gin.Context) {
	e, err := h.store.Provider(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// CreateParameterProvider handles POST /controller/parameter-providers.
func (h *Handler) CreateParameterProvider(c *gin.Context) {
	var body createProviderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	if err := api.Validate(body.Component.Bundle); err != nil {
		badRequest(c, err)
		return
	}
	e, err := h.store.CreateProvider(body.Component.Type, body.Component.Bundle, body.Revision)
	if err != nil {
		fail(c, err)
		return
	}
	middleware.SetAuditSource(c, e.ID)
	c.JSON(http.StatusCreated, e)
}

// UpdateParameterProvider handles PUT /parameter-providers/:id.
func (h *Handler) UpdateParameterProvider(c *gin.Context) {
	var payload api.ParameterProviderPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, err)
		return
	}
	id := c.Param("id")
	if payload.Component.ID != "" && payload.Component.ID != id {
		badRequest(c, fmt.Errorf("component id %s does not match %s", payload.Component.ID, id))
		return
	}
	e, err := h.store.UpdateProvider(id, payload, middleware.GetIdentity(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// DeleteParameterProvider handles DELETE /parameter-providers/:id.
func (h *Handler) DeleteParameterProvider(c *gin.Context) {
	rev, err := revisionQuery(c)
	if err != nil {
		fail(c, err)
		return
	}
	e, err := h.store.DeleteProvider(c.Param("id"), rev)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// GetComponentHistory handles GET /flow/history/components/:id.
func (h *Handler) GetComponentHistory(c *gin.Context) {
	c.JSON(http.StatusOK, api.ComponentHistoryEntity{ComponentHistory: h.store.History(c.Param("id"))})
}

// FetchParameters handles POST /parameter-providers/:id/parameters/fetch-requests.
func (h *Handler) FetchParameters(c *gin.Context) {
	var body fetchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	if body.ID != c.Param("id") {
		badRequest(c, fmt.Errorf("body id %s does not match %s", body.ID, c.Param("id")))
		return
	}
	e, err := h.store.FetchParameters(body.ID, body.Revision)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// SubmitApplyParameters handles POST /parameter-providers/:id/apply-parameters-requests.
func (h *Handler) SubmitApplyParameters(c *gin.Context) {
	var req api.ApplyParametersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.ID == "" {
		req.ID = c.Param("id")
	}
	if req.ID != c.Param("id") {
		badRequest(c, fmt.Errorf("body id %s does not match %s", req.ID, c.Param("id")))
		return
	}
	if err := api.Validate(req); err != nil {
		badRequest(c, err)
		return
	}
	out, err := h.store.SubmitApply(req)
	if err != nil {
		fail(c, err)
		return
	}
	h.recordApply(observability.ApplySubmitted)
	if out.Complete {
		h.recordApply(observability.ApplyCompleted)
	}
	c.JSON(http.StatusOK, api.ApplyParametersRequestEntity{Request: out})
}

// PollApplyParameters handles GET /parameter-providers/:id/apply-parameters-requests/:requestId.
func (h *Handler) PollApplyParameters(c *gin.Context) {
	out, completed, err := h.store.PollApply(c.Param("id"), c.Param("requestId"))
	if err != nil {
		fail(c, err)
		return
	}
	if completed {
		h.recordApply(observability.ApplyCompleted)
	}
	c.JSON(http.StatusOK, api.ApplyParametersRequestEntity{Request: out})
}

// DeleteApplyParameters handles DELETE /parameter-providers/:id/apply-parameters-requests/:requestId.
func (h *Handler) DeleteApplyParameters(c *gin.Context) {
	out, err := h.store.DeleteApply(c.Param("id"), c.Param("requestId"))
	if err != nil {
		fail(c, err)
		return
	}
	h.recordApply(observability.ApplyDeleted)
	c.JSON(http.StatusOK, api.ApplyParametersRequestEntity{Request: out})
}
