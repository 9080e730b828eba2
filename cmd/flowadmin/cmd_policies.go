// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/flowadmin/flowadmin/cmd/flowadmin/internal/console"
	"github.com/flowadmin/flowadmin/cmd/flowadmin/internal/policy"
	"github.com/flowadmin/flowadmin/cmd/flowadmin/internal/routing"
	"github.com/flowadmin/flowadmin/pkg/api"
	"github.com/flowadmin/flowadmin/pkg/ux"
	"github.com/flowadmin/flowadmin/pkg/validation"
	"github.com/spf13/cobra"
)

var (
	policyAction    string
	policyResource  string
	policyID        string
	policyComponent string
	policyOption    string

	overrideMode string
	tenantUsers  []string
	tenantGroups []string
)

var (
	policiesCmd = &cobra.Command{
		Use:     "policies",
		Aliases: []string{"policy"},
		Short:   "View and edit access policies",
		Long: `View and edit access policies.

Global policies are addressed with --resource (and --id for one instance),
component policies with --component <type>/<id> and --option:

  flowadmin policies show --action write --resource counters
  flowadmin policies show --component processors/abc --option read-data`,
	}
	policiesShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Show the effective policy",
		Args:  cobra.NoArgs,
		RunE:  runSession("policies show", runPoliciesShow),
	}
	policiesCreateCmd = &cobra.Command{
		Use:   "create",
		Short: "Create an empty policy where none exists",
		Args:  cobra.NoArgs,
		RunE:  runSession("policies create", runPoliciesCreate),
	}
	policiesOverrideCmd = &cobra.Command{
		Use:   "override",
		Short: "Replace an inherited policy with one for this resource",
		Args:  cobra.NoArgs,
		RunE:  runSession("policies override", runPoliciesOverride),
	}
	policiesDeleteCmd = &cobra.Command{
		Use:   "delete",
		Short: "Delete the policy, reverting to the inherited one",
		Args:  cobra.NoArgs,
		RunE:  runSession("policies delete", runPoliciesDelete),
	}
	policiesAddTenantCmd = &cobra.Command{
		Use:   "add-tenant",
		Short: "Add users or user groups to the policy (prompts when none are named)",
		Args:  cobra.NoArgs,
		RunE:  runSession("policies add-tenant", runPoliciesAddTenant),
	}
	policiesRemoveTenantCmd = &cobra.Command{
		Use:   "remove-tenant <user-or-group>",
		Short: "Remove a user or user group from the policy",
		Args:  cobra.ExactArgs(1),
		RunE:  runSession("policies remove-tenant", runPoliciesRemoveTenant),
	}
	policiesOptionsCmd = &cobra.Command{
		Use:   "options",
		Short: "List the policies a component supports",
		Args:  cobra.NoArgs,
		RunE:  runSession("policies options", runPoliciesOptions),
	}
)

func init() {
	pf := policiesCmd.PersistentFlags()
	pf.StringVar(&policyAction, "action", string(api.ActionRead), "read or write")
	pf.StringVar(&policyResource, "resource", "", "global policy resource, e.g. flow, controller, counters")
	pf.StringVar(&policyID, "id", "", "resource identifier of a global policy")
	pf.StringVar(&policyComponent, "component", "", "component as <type>/<id>, e.g. processors/abc")
	pf.StringVar(&policyOption, "option", "read-component", "component policy, see 'policies options'")
	policiesCmd.MarkFlagsMutuallyExclusive("resource", "component")

	policiesOverrideCmd.Flags().StringVar(&overrideMode, "mode", "", "copy or empty (prompts when omitted)")
	policiesAddTenantCmd.Flags().StringSliceVar(&tenantUsers, "user", nil, "user id or identity (repeatable)")
	policiesAddTenantCmd.Flags().StringSliceVar(&tenantGroups, "group", nil, "user group id or identity (repeatable)")

	policiesCmd.AddCommand(policiesShowCmd)
	policiesCmd.AddCommand(policiesCreateCmd)
	policiesCmd.AddCommand(policiesOverrideCmd)
	policiesCmd.AddCommand(policiesDeleteCmd)
	policiesCmd.AddCommand(policiesAddTenantCmd)
	policiesCmd.AddCommand(policiesRemoveTenantCmd)
	policiesCmd.AddCommand(policiesOptionsCmd)
}

// =============================================================================
// TARGET
// =============================================================================

// policyTarget is the policy the flags address.
type policyTarget struct {
	Global    *api.ResourceAction
	Component *api.ComponentResourceAction
}

func parsePolicyTarget(action, resource, id, component, option string) (policyTarget, error) {
	if component != "" {
		typ, cid, ok := strings.Cut(component, "/")
		if !ok || typ == "" || cid == "" {
			return policyTarget{}, fmt.Errorf("--component %q: expected <type>/<id>", component)
		}
		if err := validation.ValidateIdentifier(cid); err != nil {
			return policyTarget{}, fmt.Errorf("--component: %w", err)
		}
		if _, known := policy.FindOption(option); !known {
			return policyTarget{}, fmt.Errorf("--option %q: unknown policy, see 'flowadmin policies options'", option)
		}
		cra := policy.Select(api.ComponentResourceAction{Resource: typ, ResourceIdentifier: cid}, option)
		return policyTarget{Component: &cra}, nil
	}
	if resource == "" {
		return policyTarget{}, fmt.Errorf("pass --resource or --component")
	}
	if id != "" {
		if err := validation.ValidateIdentifier(id); err != nil {
			return policyTarget{}, fmt.Errorf("--id: %w", err)
		}
	}
	ra := api.ResourceAction{
		Action:             api.Action(action),
		Resource:           strings.TrimPrefix(resource, "/"),
		ResourceIdentifier: id,
	}
	return policyTarget{Global: &ra}, nil
}

// route is where the console would show the target.
func (t policyTarget) route() []string {
	if t.Component != nil {
		c := t.Component
		return routing.ComponentAccessPolicy(string(c.Action), c.Policy, c.Resource, c.ResourceIdentifier)
	}
	return routing.GlobalAccessPolicy(string(t.Global.Action), t.Global.Resource, t.Global.ResourceIdentifier)
}

// loadPolicy navigates to the target and loads its policy.
func loadPolicy(ctx context.Context, a *app) (policyTarget, error) {
	t, err := parsePolicyTarget(policyAction, policyResource, policyID, policyComponent, policyOption)
	if err != nil {
		return t, err
	}
	if err := a.term.Navigate(ctx, t.route()); err != nil {
		return t, err
	}
	if t.Component != nil {
		err = a.policies.SetComponentAccessPolicy(ctx, *t.Component)
	} else {
		err = a.policies.SetAccessPolicy(ctx, *t.Global)
	}
	return t, err
}

// =============================================================================
// VIEW
// =============================================================================

// PolicyView is the JSON data of the policy commands.
type PolicyView struct {
	ResourceAction api.ResourceAction      `json:"resource_action"`
	Status         api.PolicyStatus        `json:"status"`
	Policy         *api.AccessPolicyEntity `json:"policy,omitempty"`
	InheritedFrom  string                  `json:"inherited_from,omitempty"`
	ProcessGroup   string                  `json:"process_group,omitempty"`
	Component      string                  `json:"component,omitempty"`
	Option         string                  `json:"option,omitempty"`
}

func (a *app) policyView(t policyTarget) PolicyView {
	st := a.policyState.Snapshot()
	v := PolicyView{Status: st.PolicyStatus, Policy: st.Policy}
	if st.ResourceAction != nil {
		v.ResourceAction = *st.ResourceAction
	}
	if t.Component != nil {
		v.Component = a.componentState.Snapshot().Component.Label
		v.Option = policy.FormValue(*t.Component)
	}
	if st.PolicyStatus == api.PolicyInherited && st.Policy != nil {
		from := policy.ClassifyInherited(*st.Policy)
		v.InheritedFrom = from.String()
		if from == policy.InheritedFromProcessGroup {
			v.ProcessGroup = routing.Join(policy.InheritedProcessGroupRoute(*st.Policy))
		}
	}
	return v
}

// policyFindings turns the statuses with nothing to show into findings.
func policyFindings(v PolicyView) error {
	switch v.Status {
	case api.PolicyNotFound:
		return findings("no policy for %s %s; 'flowadmin policies create' creates one",
			v.ResourceAction.Action, v.ResourceAction.Path())
	case api.PolicyForbidden:
		return findings("not authorized to view the policy for %s %s",
			v.ResourceAction.Action, v.ResourceAction.Path())
	}
	return nil
}

func printPolicy(out *ux.Output, v PolicyView) {
	title := fmt.Sprintf("%s %s", v.ResourceAction.Action, v.ResourceAction.Path())
	if v.Component != "" {
		title = fmt.Sprintf("%s (%s)", v.Component, v.Option)
	}
	out.Title(title)

	if v.Status == api.PolicyInherited {
		out.Info(v.InheritedFrom)
		if v.ProcessGroup != "" {
			out.Info("Inherited from " + v.ProcessGroup)
		}
	}
	if v.Policy == nil {
		return
	}
	rows := make([][]string, 0, len(v.Policy.Component.Users)+len(v.Policy.Component.UserGroups))
	for _, t := range v.Policy.Component.UserGroups {
		rows = append(rows, []string{t.Identity(), "group", t.ID})
	}
	for _, t := range v.Policy.Component.Users {
		rows = append(rows, []string{t.Identity(), "user", t.ID})
	}
	if len(rows) == 0 {
		out.Info("No users or groups.")
	} else {
		out.Table([]string{"Identity", "Kind", "ID"}, rows)
	}
	if v.Status == api.PolicyInherited {
		out.Tip("flowadmin policies override replaces the inherited policy for this resource")
	}
}

// =============================================================================
// COMMANDS
// =============================================================================

func runPoliciesShow(ctx context.Context, a *app, _ []string) error {
	start := time.Now()
	t, err := loadPolicy(ctx, a)
	if err != nil {
		return err
	}
	v := a.policyView(t)
	if err := policyFindings(v); err != nil {
		return err
	}
	return a.emit("policies show", start, v, func() { printPolicy(a.out, v) })
}

func runPoliciesCreate(ctx context.Context, a *app, _ []string) error {
	start := time.Now()
	t, err := loadPolicy(ctx, a)
	if err != nil {
		return err
	}
	switch a.policyState.Snapshot().PolicyStatus {
	case api.PolicyFound:
		return findings("a policy already exists for this resource")
	case api.PolicyInherited:
		return findings("this resource inherits a policy; use 'flowadmin policies override'")
	}
	if _, err := a.policies.Create(ctx); err != nil {
		return err
	}
	v := a.policyView(t)
	return a.emit("policies create", start, v, func() {
		a.out.Success("Created policy " + v.ResourceAction.Path())
		printPolicy(a.out, v)
	})
}

func runPoliciesOverride(ctx context.Context, a *app, _ []string) error {
	start := time.Now()
	t, err := loadPolicy(ctx, a)
	if err != nil {
		return err
	}
	if err := policyFindings(a.policyView(t)); err != nil {
		return err
	}
	switch overrideMode {
	case "":
		_, err = a.policies.PromptOverride(ctx)
	case "copy":
		_, err = a.policies.Override(ctx, console.OverrideCopy)
	case "empty":
		_, err = a.policies.Override(ctx, console.OverrideEmpty)
	default:
		return fmt.Errorf("--mode %q: expected copy or empty", overrideMode)
	}
	if err != nil {
		return err
	}
	v := a.policyView(t)
	return a.emit("policies override", start, v, func() {
		a.out.Success("Overrode policy " + v.ResourceAction.Path())
		printPolicy(a.out, v)
	})
}

func runPoliciesDelete(ctx context.Context, a *app, _ []string) error {
	start := time.Now()
	t, err := loadPolicy(ctx, a)
	if err != nil {
		return err
	}
	if a.policyState.Snapshot().PolicyStatus != api.PolicyFound {
		return findings("no policy exists for exactly this resource")
	}
	if err := a.policies.PromptDelete(ctx); err != nil {
		return err
	}
	v := a.policyView(t)
	return a.emit("policies delete", start, v, func() {
		a.out.Success("Deleted policy " + v.ResourceAction.Path())
		if v.Status == api.PolicyInherited {
			printPolicy(a.out, v)
		}
	})
}

func runPoliciesAddTenant(ctx context.Context, a *app, _ []string) error {
	start := time.Now()
	t, err := loadPolicy(ctx, a)
	if err != nil {
		return err
	}
	if a.policyState.Snapshot().PolicyStatus != api.PolicyFound {
		return findings("only a policy for exactly this resource can be edited; create or override it first")
	}

	if len(tenantUsers) == 0 && len(tenantGroups) == 0 {
		err = a.policies.OpenAddTenantDialog(ctx)
	} else {
		if err := a.policies.LoadTenants(ctx); err != nil {
			return err
		}
		all := a.tenantState.Snapshot()
		var users, groups []api.TenantEntity
		if users, err = resolveTenants("user", all.Users, tenantUsers); err != nil {
			return err
		}
		if groups, err = resolveTenants("group", all.UserGroups, tenantGroups); err != nil {
			return err
		}
		err = a.policies.AddTenants(ctx, users, groups)
	}
	if err != nil {
		return err
	}
	v := a.policyView(t)
	return a.emit("policies add-tenant", start, v, func() {
		a.out.Success("Updated policy " + v.ResourceAction.Path())
		printPolicy(a.out, v)
	})
}

// resolveTenants looks names up by id or identity.
func resolveTenants(kind string, all []api.TenantEntity, names []string) ([]api.TenantEntity, error) {
	out := make([]api.TenantEntity, 0, len(names))
	for _, n := range names {
		t, ok := findTenant(all, n)
		if !ok {
			return nil, fmt.Errorf("unknown %s %q", kind, n)
		}
		out = append(out, t)
	}
	return out, nil
}

func findTenant(all []api.TenantEntity, name string) (api.TenantEntity, bool) {
	for _, t := range all {
		if t.ID == name || t.Identity() == name {
			return t, true
		}
	}
	return api.TenantEntity{}, false
}

func runPoliciesRemoveTenant(ctx context.Context, a *app, args []string) error {
	start := time.Now()
	t, err := loadPolicy(ctx, a)
	if err != nil {
		return err
	}
	st := a.policyState.Snapshot()
	if st.PolicyStatus != api.PolicyFound || st.Policy == nil {
		return findings("only a policy for exactly this resource can be edited")
	}
	tenant, ok := findTenant(st.Policy.Component.Users, args[0])
	if !ok {
		tenant, ok = findTenant(st.Policy.Component.UserGroups, args[0])
	}
	if !ok {
		return findings("%q is not on this policy", args[0])
	}
	if err := a.policies.PromptRemoveTenant(ctx, tenant); err != nil {
		return err
	}
	v := a.policyView(t)
	return a.emit("policies remove-tenant", start, v, func() {
		a.out.Success(fmt.Sprintf("Removed %s from %s", tenant.Identity(), v.ResourceAction.Path()))
		printPolicy(a.out, v)
	})
}

// PolicyOption is one row of "policies options".
type PolicyOption struct {
	Value       string `json:"value"`
	Text        string `json:"text"`
	Description string `json:"description"`
	Selectable  bool   `json:"selectable"`
}

func runPoliciesOptions(ctx context.Context, a *app, _ []string) error {
	start := time.Now()
	t, err := parsePolicyTarget(policyAction, policyResource, policyID, policyComponent, policyOption)
	if err != nil {
		return err
	}
	if t.Component == nil {
		return fmt.Errorf("policies options needs --component")
	}
	if err := a.policies.LoadPolicyComponent(ctx, *t.Component); err != nil {
		return err
	}
	component := a.componentState.Snapshot().Component

	var opts []PolicyOption
	for _, o := range policy.AvailableOptions(component) {
		opts = append(opts, PolicyOption{Value: o.Value, Text: o.Text, Description: o.Description, Selectable: !o.Disabled})
	}
	return a.emit("policies options", start, opts, func() {
		a.out.Title(fmt.Sprintf("%s %s", policy.ContextType(component.Resource), component.Label))
		rows := make([][]string, 0, len(opts))
		for _, o := range opts {
			rows = append(rows, []string{o.Value, o.Text, o.Description})
		}
		a.out.Table([]string{"Option", "Policy", "Description"}, rows)
	})
}
