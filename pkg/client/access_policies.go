// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package client

import (
	"context"
	"net/http"
	"strings"

	"github.com/flowadmin/flowadmin/pkg/api"
)

// GetAccessPolicy loads the policy that governs ra.
//
// The server answers with the closest policy up the resource hierarchy, so
// the returned resource may differ from ra.Path(). A 404 means no policy
// applies at all.
func (c *Client) GetAccessPolicy(ctx context.Context, ra api.ResourceAction) (*api.AccessPolicyEntity, error) {
	if err := api.Validate(ra); err != nil {
		return nil, err
	}
	var out api.AccessPolicyEntity
	path := "/policies/" + string(ra.Action) + ra.Path()
	if err := c.do(ctx, http.MethodGet, "/policies/{action}/{resource}", path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateAccessPolicy creates a policy for ra with the given tenants.
func (c *Client) CreateAccessPolicy(ctx context.Context, ra api.ResourceAction, users, userGroups []api.TenantEntity) (*api.AccessPolicyEntity, error) {
	if err := api.Validate(ra); err != nil {
		return nil, err
	}
	body := map[string]any{
		"revision": c.stamp(api.Revision{Version: 0}),
		"component": map[string]any{
			"action":     ra.Action,
			"resource":   ra.Path(),
			"users":      nonNil(users),
			"userGroups": nonNil(userGroups),
		},
	}
	var out api.AccessPolicyEntity
	if err := c.do(ctx, http.MethodPost, "/policies", "/policies", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateAccessPolicy replaces the tenants of an existing policy.
func (c *Client) UpdateAccessPolicy(ctx context.Context, entity api.AccessPolicyEntity, users, userGroups []api.TenantEntity) (*api.AccessPolicyEntity, error) {
	body := map[string]any{
		"revision": c.stamp(entity.Revision),
		"component": map[string]any{
			"id":         entity.ID,
			"users":      nonNil(users),
			"userGroups": nonNil(userGroups),
		},
	}
	var out api.AccessPolicyEntity
	if err := c.do(ctx, http.MethodPut, "/policies/{id}", "/policies/"+escape(entity.ID), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteAccessPolicy deletes a policy at the revision it was read at.
func (c *Client) DeleteAccessPolicy(ctx context.Context, entity api.AccessPolicyEntity) (*api.AccessPolicyEntity, error) {
	var out api.AccessPolicyEntity
	q := revisionQuery(c.stamp(entity.Revision))
	if err := c.do(ctx, http.MethodDelete, "/policies/{id}", "/policies/"+escape(entity.ID), q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListUsers loads every user.
func (c *Client) ListUsers(ctx context.Context) ([]api.TenantEntity, error) {
	var out api.UsersEntity
	if err := c.do(ctx, http.MethodGet, "/tenants/users", "/tenants/users", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// ListUserGroups loads every user group.
func (c *Client) ListUserGroups(ctx context.Context) ([]api.TenantEntity, error) {
	var out api.UserGroupsEntity
	if err := c.do(ctx, http.MethodGet, "/tenants/user-groups", "/tenants/user-groups", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.UserGroups, nil
}

// GetPolicyComponent loads the component a per-component policy protects.
//
// resource is the component collection ("processors", "input-ports", ...).
func (c *Client) GetPolicyComponent(ctx context.Context, resource, id string) (*api.PolicyComponentEntity, error) {
	var out api.PolicyComponentEntity
	path := "/" + strings.Trim(resource, "/") + "/" + escape(id)
	if err := c.do(ctx, http.MethodGet, "/{resource}/{id}", path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func nonNil(t []api.TenantEntity) []api.TenantEntity {
	if t == nil {
		return []api.TenantEntity{}
	}
	return t
}
