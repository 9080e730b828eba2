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
	"net/http"
	"testing"

	"github.com/flowadmin/flowadmin/cmd/flowadmin/internal/routing"
	"github.com/flowadmin/flowadmin/cmd/flowadmin/internal/state"
	"github.com/flowadmin/flowadmin/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type policiesFixture struct {
	svc    *fakePolicies
	nav    *recordingNavigator
	notify *recordingNotifier
	prompt *scriptedPrompter
	ctrl   *AccessPolicies
	store  *state.AccessPolicy
	comp   *state.PolicyComponent
}

func newPoliciesFixture(svc *fakePolicies) *policiesFixture {
	f := &policiesFixture{
		svc:    svc,
		nav:    &recordingNavigator{},
		notify: &recordingNotifier{},
		prompt: &scriptedPrompter{},
		store:  state.NewAccessPolicy(),
		comp:   state.NewPolicyComponent(),
	}
	f.ctrl = NewAccessPolicies(svc, f.store, f.comp, state.NewTenants(), Deps{
		Navigator: f.nav,
		Notifier:  f.notify,
		Prompter:  f.prompt,
	})
	return f
}

func tenant(id, identity string) api.TenantEntity {
	return api.TenantEntity{ID: id, Component: api.TenantComponent{ID: id, Identity: identity}}
}

func policyFor(resource string, users ...api.TenantEntity) *api.AccessPolicyEntity {
	return &api.AccessPolicyEntity{
		ID:        "pol-" + resource,
		Component: api.AccessPolicy{Action: api.ActionRead, Resource: resource, Users: users},
	}
}

var flowRead = api.ResourceAction{Action: api.ActionRead, Resource: "flow"}

func TestLoad_PolicyStatus(t *testing.T) {
	tests := []struct {
		name   string
		policy *api.AccessPolicyEntity
		err    error
		want   api.PolicyStatus
	}{
		{name: "exact resource", policy: policyFor("/flow"), want: api.PolicyFound},
		{name: "ancestor resource", policy: policyFor("/"), want: api.PolicyInherited},
		{name: "not found", err: apiErr(http.StatusNotFound, "none"), want: api.PolicyNotFound},
		{name: "forbidden", err: apiErr(http.StatusForbidden, "no"), want: api.PolicyForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPoliciesFixture(&fakePolicies{policy: tt.policy, getErr: tt.err})
			require.NoError(t, f.ctrl.SetAccessPolicy(context.Background(), flowRead))

			st := f.store.Snapshot()
			assert.Equal(t, tt.want, st.PolicyStatus)
			assert.Equal(t, state.StatusSuccess, st.Status)
			assert.NotEmpty(t, st.LoadedTimestamp)
		})
	}
}

func TestLoad_OtherFailure(t *testing.T) {
	f := newPoliciesFixture(&fakePolicies{getErr: apiErr(http.StatusConflict, "busy")})
	require.Error(t, f.ctrl.SetAccessPolicy(context.Background(), flowRead))
	_, _, _, full := f.notify.snapshot()
	assert.Len(t, full, 1, "nothing loaded yet, so the failure takes the page")

	f.svc.getErr = nil
	f.svc.policy = policyFor("/flow")
	require.NoError(t, f.ctrl.Reload(context.Background()))

	f.svc.getErr = apiErr(http.StatusConflict, "busy")
	require.Error(t, f.ctrl.Reload(context.Background()))
	snacks, _, _, _ := f.notify.snapshot()
	assert.Equal(t, []string{"busy"}, snacks)
}

func TestLoad_WithoutResourceAction(t *testing.T) {
	f := newPoliciesFixture(&fakePolicies{})
	assert.ErrorIs(t, f.ctrl.Load(context.Background()), ErrNoResourceAction)
}

func TestOverride(t *testing.T) {
	alice := tenant("u1", "alice")
	f := newPoliciesFixture(&fakePolicies{policy: policyFor("/", alice)})
	ctx := context.Background()
	require.NoError(t, f.ctrl.SetAccessPolicy(ctx, flowRead))

	f.prompt.override = OverrideCopy
	entity, err := f.ctrl.PromptOverride(ctx)
	require.NoError(t, err)

	assert.Equal(t, []api.ResourceAction{flowRead}, f.svc.created)
	assert.Equal(t, "/flow", entity.Component.Resource)
	assert.Equal(t, []api.TenantEntity{alice}, entity.Component.Users)
	assert.Equal(t, api.PolicyFound, f.store.Snapshot().PolicyStatus)

	_, err = f.ctrl.Override(ctx, OverrideEmpty)
	assert.ErrorIs(t, err, ErrNotOverridable)
}

func TestOverride_Empty(t *testing.T) {
	f := newPoliciesFixture(&fakePolicies{policy: policyFor("/", tenant("u1", "alice"))})
	ctx := context.Background()
	require.NoError(t, f.ctrl.SetAccessPolicy(ctx, flowRead))

	entity, err := f.ctrl.Override(ctx, OverrideEmpty)
	require.NoError(t, err)
	assert.Empty(t, entity.Component.Users)
}

func TestPromptDelete_Reloads(t *testing.T) {
	f := newPoliciesFixture(&fakePolicies{policy: policyFor("/flow")})
	ctx := context.Background()
	require.NoError(t, f.ctrl.SetAccessPolicy(ctx, flowRead))

	assert.ErrorIs(t, f.ctrl.PromptDelete(ctx), ErrDeclined)
	assert.Zero(t, f.svc.deleted)

	f.prompt.confirm = true
	f.svc.policy = policyFor("/")
	require.NoError(t, f.ctrl.PromptDelete(ctx))
	assert.Equal(t, 1, f.svc.deleted)
	assert.Equal(t, api.PolicyInherited, f.store.Snapshot().PolicyStatus)
	require.Len(t, f.prompt.confirmed, 2)
	assert.Contains(t, f.prompt.confirmed[0], "Delete Policy: ")
}

func TestDelete_RequiresFoundPolicy(t *testing.T) {
	f := newPoliciesFixture(&fakePolicies{policy: policyFor("/")})
	ctx := context.Background()
	require.NoError(t, f.ctrl.SetAccessPolicy(ctx, flowRead))
	assert.ErrorIs(t, f.ctrl.Delete(ctx), ErrNoPolicy)
}

func TestRemoveTenant(t *testing.T) {
	alice, bob := tenant("u1", "alice"), tenant("u2", "bob")
	f := newPoliciesFixture(&fakePolicies{policy: policyFor("/flow", alice, bob)})
	ctx := context.Background()
	require.NoError(t, f.ctrl.SetAccessPolicy(ctx, flowRead))

	f.prompt.confirm = true
	require.NoError(t, f.ctrl.PromptRemoveTenant(ctx, alice))

	assert.Equal(t, []string{"Update Policy: Remove 'alice' from this policy?"}, f.prompt.confirmed)
	assert.Equal(t, []api.TenantEntity{bob}, f.store.Snapshot().Policy.Component.Users)
}

func TestOpenAddTenantDialog_OffersAbsentTenants(t *testing.T) {
	alice, bob, carol := tenant("u1", "alice"), tenant("u2", "bob"), tenant("u3", "carol")
	f := newPoliciesFixture(&fakePolicies{
		policy: policyFor("/flow", alice),
		users:  []api.TenantEntity{alice, bob, carol},
	})
	ctx := context.Background()
	require.NoError(t, f.ctrl.SetAccessPolicy(ctx, flowRead))

	f.prompt.pickUsers = []api.TenantEntity{carol}
	require.NoError(t, f.ctrl.OpenAddTenantDialog(ctx))

	assert.Equal(t, []api.TenantEntity{bob, carol}, f.prompt.offeredUsers)
	assert.Equal(t, []api.TenantEntity{alice, carol}, f.store.Snapshot().Policy.Component.Users)
}

func TestLoadTenants_Failure(t *testing.T) {
	f := newPoliciesFixture(&fakePolicies{usersErr: apiErr(http.StatusInternalServerError, "down")})
	require.Error(t, f.ctrl.LoadTenants(context.Background()))
	snacks, _, _, _ := f.notify.snapshot()
	require.Len(t, snacks, 1)
	assert.Contains(t, snacks[0], "Unable to load users and groups")
}

func TestSetComponentAccessPolicy(t *testing.T) {
	cra := api.ComponentResourceAction{
		Action: api.ActionRead, Policy: "data", Resource: "processors", ResourceIdentifier: "proc-1",
	}
	comp := &api.PolicyComponentEntity{ID: "proc-1", Permissions: api.Permissions{CanRead: true}}
	comp.Component.Name = "GenerateFlowFile"

	f := newPoliciesFixture(&fakePolicies{component: comp, policy: policyFor("/data/processors/proc-1")})
	require.NoError(t, f.ctrl.SetComponentAccessPolicy(context.Background(), cra))

	assert.Equal(t, "GenerateFlowFile", f.comp.Snapshot().Component.Label)
	st := f.store.Snapshot()
	assert.Equal(t, "data/processors", st.ResourceAction.Resource)
	assert.Equal(t, api.PolicyFound, st.PolicyStatus)
}

func TestLoadPolicyComponent_ForbiddenUsesID(t *testing.T) {
	cra := api.ComponentResourceAction{
		Action: api.ActionRead, Policy: "component", Resource: "processors", ResourceIdentifier: "proc-1",
	}
	f := newPoliciesFixture(&fakePolicies{componentErr: apiErr(http.StatusForbidden, "no")})
	require.NoError(t, f.ctrl.LoadPolicyComponent(context.Background(), cra))
	assert.Equal(t, "proc-1", f.comp.Snapshot().Component.Label)
}

func TestSelectComponentPolicy(t *testing.T) {
	f := newPoliciesFixture(&fakePolicies{})
	cra := api.ComponentResourceAction{
		Action: api.ActionRead, Policy: "component", Resource: "processors", ResourceIdentifier: "proc-1",
	}
	require.NoError(t, f.ctrl.SelectComponentPolicy(context.Background(), cra, "write-data"))

	assert.Equal(t, []string{"/access-policies", "write", "data", "processors", "proc-1"}, f.nav.last())
	m, err := routing.Resolve(routing.App, routing.Join(f.nav.last()))
	require.NoError(t, err)
	assert.Equal(t, routing.ViewComponentAccessPolicies, m.View)
}

func TestReset(t *testing.T) {
	f := newPoliciesFixture(&fakePolicies{policy: policyFor("/flow")})
	require.NoError(t, f.ctrl.SetAccessPolicy(context.Background(), flowRead))
	f.ctrl.Reset()
	assert.Equal(t, state.StatusPending, f.store.Snapshot().Status)
	assert.Nil(t, f.store.Snapshot().Policy)
}
