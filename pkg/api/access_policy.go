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

import "strings"

// Action is the access a policy grants.
type Action string

const (
	ActionRead  Action = "read"
	ActionWrite Action = "write"
)

// ResourceAction identifies a policy by action and resource path.
//
// Resource has no leading slash ("processors", "provenance-data/processors").
// ResourceIdentifier is empty for global policies.
type ResourceAction struct {
	Action             Action `json:"action" validate:"required,oneof=read write"`
	Resource           string `json:"resource" validate:"required"`
	ResourceIdentifier string `json:"resourceIdentifier,omitempty"`
}

// Path renders the resource path the server stores on the policy.
func (r ResourceAction) Path() string {
	p := "/" + strings.TrimPrefix(r.Resource, "/")
	if r.ResourceIdentifier != "" {
		p += "/" + r.ResourceIdentifier
	}
	return p
}

// ComponentResourceAction identifies a per-component policy.
//
// Policy is the policy kind ("component", "data", "provenance-data", ...)
// and Resource the component type ("processors", "input-ports", ...).
type ComponentResourceAction struct {
	Action             Action `json:"action" validate:"required,oneof=read write"`
	Policy             string `json:"policy" validate:"required"`
	Resource           string `json:"resource" validate:"required"`
	ResourceIdentifier string `json:"resourceIdentifier" validate:"required"`
}

// PolicyStatus describes how a requested policy relates to what the server returned.
type PolicyStatus string

const (
	PolicyFound     PolicyStatus = "FOUND"
	PolicyInherited PolicyStatus = "INHERITED"
	PolicyNotFound  PolicyStatus = "NOT_FOUND"
	PolicyForbidden PolicyStatus = "FORBIDDEN"
)

// TenantComponent is a user or user group.
type TenantComponent struct {
	ID           string `json:"id"`
	Identity     string `json:"identity"`
	Configurable bool   `json:"configurable"`
}

// TenantEntity is the envelope of a user or user group.
type TenantEntity struct {
	ID          string          `json:"id"`
	URI         string          `json:"uri,omitempty"`
	Revision    Revision        `json:"revision"`
	Permissions Permissions     `json:"permissions"`
	Component   TenantComponent `json:"component"`
}

// Identity returns the tenant identity.
func (t TenantEntity) Identity() string {
	return t.Component.Identity
}

// UsersEntity lists users.
type UsersEntity struct {
	Users []TenantEntity `json:"users"`
}

// UserGroupsEntity lists user groups.
type UserGroupsEntity struct {
	UserGroups []TenantEntity `json:"userGroups"`
}

// ComponentReference names the component a policy protects.
type ComponentReference struct {
	ID          string      `json:"id"`
	Permissions Permissions `json:"permissions"`
	Component   struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"component"`
}

// AccessPolicy is the body of an access policy.
type AccessPolicy struct {
	ID                 string              `json:"id,omitempty"`
	Action             Action              `json:"action" validate:"required,oneof=read write"`
	Resource           string              `json:"resource" validate:"required"`
	Users              []TenantEntity      `json:"users"`
	UserGroups         []TenantEntity      `json:"userGroups"`
	ComponentReference *ComponentReference `json:"componentReference,omitempty"`
	Configurable       bool                `json:"configurable"`
}

// AccessPolicyEntity is the envelope of an access policy.
type AccessPolicyEntity struct {
	ID          string       `json:"id"`
	URI         string       `json:"uri,omitempty"`
	Revision    Revision     `json:"revision"`
	Permissions Permissions  `json:"permissions"`
	Component   AccessPolicy `json:"component"`
	GeneratedAt string       `json:"generated,omitempty"`
}

// HasTenant reports whether the policy lists a user or group with id.
func (e AccessPolicyEntity) HasTenant(id string) bool {
	for _, t := range e.Component.Users {
		if t.ID == id {
			return true
		}
	}
	for _, t := range e.Component.UserGroups {
		if t.ID == id {
			return true
		}
	}
	return false
}

// PolicyComponentEntity is the subset of a component the policy page displays.
type PolicyComponentEntity struct {
	ID          string      `json:"id"`
	Permissions Permissions `json:"permissions"`
	Component   struct {
		ID                string `json:"id"`
		Name              string `json:"name"`
		Label             string `json:"label,omitempty"`
		AllowRemoteAccess bool   `json:"allowRemoteAccess,omitempty"`
	} `json:"component"`
}

// Label returns the display label of the component.
func (e PolicyComponentEntity) Label() string {
	if !e.Permissions.CanRead {
		return e.ID
	}
	if e.Component.Name != "" {
		return e.Component.Name
	}
	if e.Component.Label != "" {
		return e.Component.Label
	}
	return e.ID
}
