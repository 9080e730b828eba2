// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package state

import (
	"slices"

	"github.com/flowadmin/flowadmin/cmd/flowadmin/internal/policy"
	"github.com/flowadmin/flowadmin/pkg/api"
)

// =============================================================================
// Access Policy
// =============================================================================

// AccessPolicyState is the view state of one access policy page.
type AccessPolicyState struct {
	ResourceAction  *api.ResourceAction
	Policy          *api.AccessPolicyEntity
	PolicyStatus    api.PolicyStatus
	Saving          bool
	LoadedTimestamp string
	Status          Status
}

// AccessPolicy is the access policy store.
type AccessPolicy struct {
	s store[AccessPolicyState]
}

func NewAccessPolicy() *AccessPolicy {
	a := &AccessPolicy{}
	a.Reset()
	return a
}

func (a *AccessPolicy) Snapshot() AccessPolicyState {
	return a.s.get()
}

// SetResourceAction points the page at ra and forgets the loaded policy.
func (a *AccessPolicy) SetResourceAction(ra api.ResourceAction) {
	a.s.update(func(st *AccessPolicyState) {
		st.ResourceAction = &ra
		st.Policy = nil
		st.PolicyStatus = ""
		st.Status = StatusLoading
	})
}

// LoadSuccess records the policy the server answered with and how it
// relates to the requested resource action.
func (a *AccessPolicy) LoadSuccess(p *api.AccessPolicyEntity, status api.PolicyStatus, loaded string) {
	a.s.update(func(st *AccessPolicyState) {
		st.Policy = p
		st.PolicyStatus = status
		st.LoadedTimestamp = loaded
		st.Saving = false
		st.Status = StatusSuccess
	})
}

func (a *AccessPolicy) SetSaving(saving bool) {
	a.s.update(func(st *AccessPolicyState) { st.Saving = saving })
}

func (a *AccessPolicy) Reset() {
	a.s.set(AccessPolicyState{Status: StatusPending})
}

// =============================================================================
// Policy Component
// =============================================================================

// PolicyComponentState describes the component a per-component policy protects.
type PolicyComponentState struct {
	Component       policy.Component
	LoadedTimestamp string
	Status          Status
}

type PolicyComponent struct {
	s store[PolicyComponentState]
}

func NewPolicyComponent() *PolicyComponent {
	p := &PolicyComponent{}
	p.Reset()
	return p
}

func (p *PolicyComponent) Snapshot() PolicyComponentState {
	return p.s.get()
}

func (p *PolicyComponent) LoadStarted() {
	p.s.update(func(st *PolicyComponentState) { st.Status = StatusLoading })
}

func (p *PolicyComponent) LoadSuccess(c policy.Component, loaded string) {
	p.s.set(PolicyComponentState{Component: c, LoadedTimestamp: loaded, Status: StatusSuccess})
}

func (p *PolicyComponent) Reset() {
	p.s.set(PolicyComponentState{Status: StatusPending})
}

// =============================================================================
// Tenants
// =============================================================================

// TenantsState lists the users and groups a policy can name.
type TenantsState struct {
	Users      []api.TenantEntity
	UserGroups []api.TenantEntity
	Status     Status
}

type Tenants struct {
	s store[TenantsState]
}

func NewTenants() *Tenants {
	t := &Tenants{}
	t.Reset()
	return t
}

func (t *Tenants) Snapshot() TenantsState {
	st := t.s.get()
	st.Users = slices.Clone(st.Users)
	st.UserGroups = slices.Clone(st.UserGroups)
	return st
}

func (t *Tenants) LoadSuccess(users, groups []api.TenantEntity) {
	t.s.set(TenantsState{Users: slices.Clone(users), UserGroups: slices.Clone(groups), Status: StatusSuccess})
}

func (t *Tenants) Reset() {
	t.s.set(TenantsState{Status: StatusPending})
}
