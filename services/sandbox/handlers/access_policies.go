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
	"github.com/gin-gonic/gin"
)

type createPolicyBody struct {
	Revision  api.Revision `json:"revision"`
	Component struct {
		Action     api.Action         `json:"action" binding:"required,oneof=read write"`
		Resource   string             `json:"resource" binding:"required"`
		Users      []api.TenantEntity `json:"users"`
		UserGroups []api.TenantEntity `json:"userGroups"`
	} `json:"component"`
}

type updatePolicyBody struct {
	Revision  api.Revision `json:"revision"`
	Component struct {
		ID         string             `json:"id"`
		Users      []api.TenantEntity `json:"users"`
		UserGroups []api.TenantEntity `json:"userGroups"`
	} `json:"component"`
}

// GetAccessPolicy handles GET /policies/:action/*resource. The policy
// returned may be inherited; callers compare its resource to the one they
// asked for.
func (h *Handler) GetAccessPolicy(c *gin.Context) {
	action := api.Action(c.Param("action"))
	if action != api.ActionRead && action != api.ActionWrite {
		badRequest(c, fmt.Errorf("action must be read or write, got %q", action))
		return
	}
	p, err := h.store.Policy(action, c.Param("resource"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// CreateAccessPolicy handles POST /policies.
func (h *Handler) CreateAccessPolicy(c *gin.Context) {
	var body createPolicyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.store.CreatePolicy(body.Component.Action, body.Component.Resource,
		body.Component.Users, body.Component.UserGroups, body.Revision)
	if err != nil {
		fail(c, err)
		return
	}
	middleware.SetAuditSource(c, p.ID)
	c.JSON(http.StatusCreated, p)
}

// UpdateAccessPolicy handles PUT /policies/:id.
func (h *Handler) UpdateAccessPolicy(c *gin.Context) {
	var body updatePolicyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	id := c.Param("id")
	if body.Component.ID != "" && body.Component.ID != id {
		badRequest(c, fmt.Errorf("component id %s does not match %s", body.Component.ID, id))
		return
	}
	p, err := h.store.UpdatePolicy(id, body.Revision, body.Component.Users, body.Component.UserGroups)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// DeleteAccessPolicy handles DELETE /policies/:id.
func (h *Handler) DeleteAccessPolicy(c *gin.Context) {
	rev, err := revisionQuery(c)
	if err != nil {
		fail(c, err)
		return
	}
	p, err := h.store.DeletePolicy(c.Param("id"), rev)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) ListUsers(c *gin.Context) {
	c.JSON(http.StatusOK, api.UsersEntity{Users: h.store.Users()})
}

func (h *Handler) ListUserGroups(c *gin.Context) {
	c.JSON(http.StatusOK, api.UserGroupsEntity{UserGroups: h.store.UserGroups()})
}

// GetComponent returns a handler for GET /<resource>/:id used by component
// policy pages to label the component.
func (h *Handler) GetComponent(resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, err := h.store.Component(resource, c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, e)
	}
}
