// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package console

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/flowadmin/flowadmin/cmd/flowadmin/internal/policy"
	"github.com/flowadmin/flowadmin/cmd/flowadmin/internal/routing"
	"github.com/flowadmin/flowadmin/cmd/flowadmin/internal/state"
	"github.com/flowadmin/flowadmin/pkg/api"
	"github.com/flowadmin/flowadmin/pkg/client"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoResourceAction is returned when no policy has been set on the page.
	ErrNoResourceAction = errors.New("no resource action selected")

	// ErrNoPolicy is returned when an operation needs a loaded policy.
	ErrNoPolicy = errors.New("no access policy loaded")

	// ErrNotOverridable is returned when overriding a policy that is not inherited.
	ErrNotOverridable = errors.New("only an inherited policy can be overridden")
)

// AccessPolicies is the controller of the access policy pages.
type AccessPolicies struct {
	svc       AccessPolicyService
	policy    *state.AccessPolicy
	component *state.PolicyComponent
	tenants   *state.Tenants
	deps      Deps
}

// NewAccessPolicies creates the controller.
func NewAccessPolicies(svc AccessPolicyService, policyStore *state.AccessPolicy, component *state.PolicyComponent,
	tenants *state.Tenants, deps Deps) *AccessPolicies {
	return &AccessPolicies{svc: svc, policy: policyStore, component: component, tenants: tenants, deps: deps.withDefaults()}
}

// SetAccessPolicy points the page at ra and loads its policy.
func (c *AccessPolicies) SetAccessPolicy(ctx context.Context, ra api.ResourceAction) error {
	if err := api.Validate(ra); err != nil {
		return err
	}
	c.policy.SetResourceAction(ra)
	return c.Load(ctx)
}

// SetComponentAccessPolicy loads the protected component and the policy
// backing cra.
func (c *AccessPolicies) SetComponentAccessPolicy(ctx context.Context, cra api.ComponentResourceAction) error {
	if err := api.Validate(cra); err != nil {
		return err
	}
	if err := c.LoadPolicyComponent(ctx, cra); err != nil {
		return err
	}
	return c.SetAccessPolicy(ctx, policy.ResourceToLoad(cra))
}

// Load fetches the policy for the current resource action.
//
// # Description
//
// The server answers with the closest policy up the resource hierarchy. A
// policy for exactly the requested resource is Found, any other is
// Inherited. 404 means NotFound and 403 Forbidden; neither is an error for
// the page. Other failures are reported like any load failure.
func (c *AccessPolicies) Load(ctx context.Context) error {
	st := c.policy.Snapshot()
	if st.ResourceAction == nil {
		return ErrNoResourceAction
	}
	ra := *st.ResourceAction
	now := time.Now().UTC().Format(time.RFC3339)

	entity, err := c.svc.GetAccessPolicy(ctx, ra)
	switch {
	case err == nil:
		status := api.PolicyInherited
		if entity.Component.Resource == ra.Path() {
			status = api.PolicyFound
		}
		loaded := entity.GeneratedAt
		if loaded == "" {
			loaded = now
		}
		c.policy.LoadSuccess(entity, status, loaded)
		return nil
	case client.IsNotFound(err):
		c.policy.LoadSuccess(nil, api.PolicyNotFound, now)
		return nil
	case client.IsForbidden(err):
		c.policy.LoadSuccess(nil, api.PolicyForbidden, now)
		return nil
	}

	status, _ := client.StatusCode(err)
	if st.LoadedTimestamp != "" && client.ShowErrorInContext(status) {
		c.deps.Notifier.SnackBar(client.ErrorString(err, ""))
	} else {
		c.deps.Notifier.FullScreen(err)
	}
	return err
}

// Reload re-fetches the current policy.
func (c *AccessPolicies) Reload(ctx context.Context) error {
	return c.Load(ctx)
}

// SelectComponentPolicy navigates from cra to the policy picked as value.
func (c *AccessPolicies) SelectComponentPolicy(ctx context.Context, cra api.ComponentResourceAction, value string) error {
	next := policy.Select(cra, value)
	return c.deps.Navigator.Navigate(ctx, routing.ComponentAccessPolicy(
		string(next.Action), next.Policy, next.Resource, next.ResourceIdentifier))
}

// Create creates an empty policy for the current resource action.
func (c *AccessPolicies) Create(ctx context.Context) (*api.AccessPolicyEntity, error) {
	return c.create(ctx, nil, nil)
}

// PromptOverride asks how to override the inherited policy, then overrides it.
func (c *AccessPolicies) PromptOverride(ctx context.Context) (*api.AccessPolicyEntity, error) {
	choice, err := c.deps.Prompter.SelectOverride(ctx)
	if err != nil {
		return nil, err
	}
	return c.Override(ctx, choice)
}

// Override creates a policy for the exact resource, optionally starting from
// the inherited policy's tenants.
func (c *AccessPolicies) Override(ctx context.Context, choice OverrideChoice) (*api.AccessPolicyEntity, error) {
	st := c.policy.Snapshot()
	if st.PolicyStatus != api.PolicyInherited || st.Policy == nil {
		return nil, ErrNotOverridable
	}
	var users, groups []api.TenantEntity
	if choice == OverrideCopy {
		users, groups = st.Policy.Component.Users, st.Policy.Component.UserGroups
	}
	return c.create(ctx, users, groups)
}

func (c *AccessPolicies) create(ctx context.Context, users, groups []api.TenantEntity) (*api.AccessPolicyEntity, error) {
	st := c.policy.Snapshot()
	if st.ResourceAction == nil {
		return nil, ErrNoResourceAction
	}
	c.policy.SetSaving(true)
	entity, err := c.svc.CreateAccessPolicy(ctx, *st.ResourceAction, users, groups)
	if err != nil {
		c.policy.SetSaving(false)
		c.apiError(err)
		return nil, err
	}
	c.policy.LoadSuccess(entity, api.PolicyFound, entity.GeneratedAt)
	return entity, nil
}

// PromptDelete confirms, then deletes the policy.
func (c *AccessPolicies) PromptDelete(ctx context.Context) error {
	ok, err := c.deps.Prompter.Confirm(ctx, "Delete Policy",
		"Are you sure you want to delete this policy? By doing so, the permissions for this component "+
			"will revert to the inherited policy if applicable.")
	if err != nil {
		return err
	}
	if !ok {
		return ErrDeclined
	}
	return c.Delete(ctx)
}

// Delete deletes the loaded policy and reloads, which yields the inherited
// policy if there is one.
func (c *AccessPolicies) Delete(ctx context.Context) error {
	entity, err := c.found()
	if err != nil {
		return err
	}
	c.policy.SetSaving(true)
	if _, err := c.svc.DeleteAccessPolicy(ctx, entity); err != nil {
		c.policy.SetSaving(false)
		c.apiError(err)
		return err
	}
	return c.Reload(ctx)
}

// PromptRemoveTenant confirms, then removes tenant from the policy.
func (c *AccessPolicies) PromptRemoveTenant(ctx context.Context, tenant api.TenantEntity) error {
	ok, err := c.deps.Prompter.Confirm(ctx, "Update Policy",
		fmt.Sprintf("Remove '%s' from this policy?", tenant.Identity()))
	if err != nil {
		return err
	}
	if !ok {
		return ErrDeclined
	}
	return c.RemoveTenant(ctx, tenant)
}

// RemoveTenant removes a user or user group from the policy.
func (c *AccessPolicies) RemoveTenant(ctx context.Context, tenant api.TenantEntity) error {
	entity, err := c.found()
	if err != nil {
		return err
	}
	isTenant := func(t api.TenantEntity) bool { return t.ID == tenant.ID }
	users := slices.DeleteFunc(slices.Clone(entity.Component.Users), isTenant)
	groups := slices.DeleteFunc(slices.Clone(entity.Component.UserGroups), isTenant)
	return c.update(ctx, entity, users, groups)
}

// OpenAddTenantDialog offers the tenants not yet on the policy and adds the
// ones picked.
func (c *AccessPolicies) OpenAddTenantDialog(ctx context.Context) error {
	entity, err := c.found()
	if err != nil {
		return err
	}
	if c.tenants.Snapshot().Status != state.StatusSuccess {
		if err := c.LoadTenants(ctx); err != nil {
			return err
		}
	}
	all := c.tenants.Snapshot()
	absent := func(list []api.TenantEntity) []api.TenantEntity {
		var out []api.TenantEntity
		for _, t := range list {
			if !entity.HasTenant(t.ID) {
				out = append(out, t)
			}
		}
		return out
	}

	dlg := c.deps.Dialogs.Open("", DialogAddTenant, nil)
	users, groups, err := c.deps.Prompter.SelectTenants(ctx, absent(all.Users), absent(all.UserGroups))
	if err != nil {
		c.deps.Dialogs.Close(dlg.ID, "")
		return err
	}
	err = c.AddTenants(ctx, users, groups)
	c.deps.Dialogs.Close(dlg.ID, "")
	return err
}

// AddTenants adds users and groups to the policy.
func (c *AccessPolicies) AddTenants(ctx context.Context, users, groups []api.TenantEntity) error {
	entity, err := c.found()
	if err != nil {
		return err
	}
	return c.update(ctx, entity, union(entity.Component.Users, users), union(entity.Component.UserGroups, groups))
}

func (c *AccessPolicies) update(ctx context.Context, entity api.AccessPolicyEntity, users, groups []api.TenantEntity) error {
	c.policy.SetSaving(true)
	updated, err := c.svc.UpdateAccessPolicy(ctx, entity, users, groups)
	if err != nil {
		c.policy.SetSaving(false)
		c.apiError(err)
		return err
	}
	c.policy.LoadSuccess(updated, api.PolicyFound, updated.GeneratedAt)
	return nil
}

// LoadPolicyComponent loads the component a per-component policy protects.
// A component the operator cannot read is labelled by its id.
func (c *AccessPolicies) LoadPolicyComponent(ctx context.Context, cra api.ComponentResourceAction) error {
	c.component.LoadStarted()
	now := time.Now().UTC().Format(time.RFC3339)

	entity, err := c.svc.GetPolicyComponent(ctx, cra.Resource, cra.ResourceIdentifier)
	if err != nil {
		if client.IsForbidden(err) {
			c.component.LoadSuccess(policy.Component{Label: cra.ResourceIdentifier, Resource: cra.Resource}, now)
			return nil
		}
		c.deps.Notifier.FullScreen(err)
		return err
	}
	c.component.LoadSuccess(policy.Component{
		Label:             entity.Label(),
		Resource:          cra.Resource,
		AllowRemoteAccess: entity.Component.AllowRemoteAccess,
	}, now)
	return nil
}

// LoadTenants loads users and user groups concurrently.
func (c *AccessPolicies) LoadTenants(ctx context.Context) error {
	var users, groups []api.TenantEntity
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = c.svc.ListUsers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		groups, err = c.svc.ListUserGroups(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		c.deps.Notifier.SnackBar(client.ErrorString(err, "Unable to load users and groups"))
		return err
	}
	c.tenants.LoadSuccess(users, groups)
	return nil
}

// Reset clears every store the page uses.
func (c *AccessPolicies) Reset() {
	c.policy.Reset()
	c.component.Reset()
	c.tenants.Reset()
}

// found returns the loaded policy when it exists for exactly the requested resource.
func (c *AccessPolicies) found() (api.AccessPolicyEntity, error) {
	st := c.policy.Snapshot()
	if st.Policy == nil || st.PolicyStatus != api.PolicyFound {
		return api.AccessPolicyEntity{}, ErrNoPolicy
	}
	return *st.Policy, nil
}

func (c *AccessPolicies) apiError(err error) {
	if status, _ := client.StatusCode(err); client.ShowErrorInContext(status) {
		c.deps.Notifier.SnackBar(client.ErrorString(err, ""))
		return
	}
	c.deps.Notifier.FullScreen(err)
}

func union(have, add []api.TenantEntity) []api.TenantEntity {
	out := slices.Clone(have)
	for _, t := range add {
		if !slices.ContainsFunc(out, func(o api.TenantEntity) bool { return o.ID == t.ID }) {
			out = append(out, t)
		}
	}
	return out
}
