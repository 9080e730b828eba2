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
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/flowadmin/flowadmin/pkg/api"
	"github.com/flowadmin/flowadmin/pkg/ux"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	providersFilter string

	createType   string
	createBundle string

	configureName        string
	configureComments    string
	configureSet         []string
	configureUnset       []string
	configureGotoContext string
	configureGotoService string

	applyGroups       []string
	applyContexts     []string
	applySensitive    []string
	applyNonSensitive []string
)

// =============================================================================
// COMMANDS
// =============================================================================

var (
	providersCmd = &cobra.Command{
		Use:     "providers",
		Aliases: []string{"pp", "parameter-providers"},
		Short:   "Manage parameter providers",
	}
	providersListCmd = &cobra.Command{
		Use:   "list",
		Short: "List parameter providers",
		Args:  cobra.NoArgs,
		RunE:  runSession("providers list", runProvidersList),
	}
	providersTypesCmd = &cobra.Command{
		Use:   "types",
		Short: "List the parameter provider types the server offers",
		Args:  cobra.NoArgs,
		RunE:  runSession("providers types", runProvidersTypes),
	}
	providersCreateCmd = &cobra.Command{
		Use:   "create",
		Short: "Create a parameter provider (prompts for the type when --type is omitted)",
		Args:  cobra.NoArgs,
		RunE:  runSession("providers create", runProvidersCreate),
	}
	providersDescribeCmd = &cobra.Command{
		Use:   "describe <id>",
		Short: "Show a parameter provider's configuration",
		Args:  identifierArg,
		RunE:  runSession("providers describe", runProvidersDescribe),
	}
	providersDeleteCmd = &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a parameter provider",
		Args:  identifierArg,
		RunE:  runSession("providers delete", runProvidersDelete),
	}
	providersConfigureCmd = &cobra.Command{
		Use:   "configure <id>",
		Short: "Change a parameter provider's name, comments or properties",
		Long: `Change a parameter provider's name, comments or properties.

Without changes, prints the property history. --goto-context and
--goto-service leave for a referencing parameter context or a controller
service, offering to save pending changes first.`,
		Args: identifierArg,
		RunE: runSession("providers configure", runProvidersConfigure),
	}
	providersFetchCmd = &cobra.Command{
		Use:   "fetch <id>",
		Short: "Fetch a parameter provider's parameters and show what applying them would change",
		Args:  identifierArg,
		RunE:  runSession("providers fetch", runProvidersFetch),
	}
	providersApplyCmd = &cobra.Command{
		Use:   "apply <id>",
		Short: "Fetch and apply a parameter provider's parameters to parameter contexts",
		Long: `Fetch and apply a parameter provider's parameters to parameter contexts.

Every selected group (all groups by default) is synchronized to its
parameter context. The apply request is polled until it completes; Ctrl+C
stops polling and removes the request from the server.`,
		Args: identifierArg,
		RunE: runSession("providers apply", runProvidersApply),
	}
)

func init() {
	providersListCmd.Flags().StringVar(&providersFilter, "filter", "", `expression over Name, Type, Bundle, Version, Referenced, Groups, CanWrite, Properties ... e.g. 'Referenced == 0'`)
	providersListCmd.Flags().BoolVar(&offline, "offline", false, "list the last snapshot instead of calling the server")

	providersCreateCmd.Flags().StringVar(&createType, "type", "", "provider type, full or short name")
	providersCreateCmd.Flags().StringVar(&createBundle, "bundle", "", "bundle as group:artifact:version when the type is ambiguous")

	f := providersConfigureCmd.Flags()
	f.StringVar(&configureName, "name", "", "new name")
	f.StringVar(&configureComments, "comments", "", "new comments")
	f.StringArrayVar(&configureSet, "set", nil, "set a property, key=value (repeatable)")
	f.StringSliceVar(&configureUnset, "unset", nil, "remove a property (repeatable)")
	f.StringVar(&configureGotoContext, "goto-context", "", "go to a referencing parameter context")
	f.StringVar(&configureGotoService, "goto-service", "", "go to a controller service")
	providersConfigureCmd.MarkFlagsMutuallyExclusive("goto-context", "goto-service")

	f = providersApplyCmd.Flags()
	f.StringSliceVar(&applyGroups, "group", nil, "parameter group to synchronize (repeatable, default all)")
	f.StringArrayVar(&applyContexts, "context", nil, "parameter context for a group, group=context (repeatable)")
	f.StringArrayVar(&applySensitive, "sensitive", nil, "mark group/parameter sensitive (repeatable)")
	f.StringArrayVar(&applyNonSensitive, "non-sensitive", nil, "mark group/parameter non-sensitive (repeatable)")

	providersCmd.AddCommand(providersListCmd)
	providersCmd.AddCommand(providersTypesCmd)
	providersCmd.AddCommand(providersCreateCmd)
	providersCmd.AddCommand(providersDescribeCmd)
	providersCmd.AddCommand(providersDeleteCmd)
	providersCmd.AddCommand(providersConfigureCmd)
	providersCmd.AddCommand(providersFetchCmd)
	providersCmd.AddCommand(providersApplyCmd)
}

// =============================================================================
// LIST / TYPES
// =============================================================================

// ProviderListResult is the JSON data of "providers list".
type ProviderListResult struct {
	Providers []api.ParameterProviderEntity `json:"parameter_providers"`
	LoadedAt  string                        `json:"loaded_at,omitempty"`
	Offline   bool                          `json:"offline"`
}

func runProvidersList(ctx context.Context, a *app, _ []string) error {
	start := time.Now()
	program, err := compileFilter(providersFilter)
	if err != nil {
		return err
	}

	result := ProviderListResult{Offline: offline}
	if offline {
		savedAt, err := a.providers.LoadOffline()
		if err != nil {
			return fmt.Errorf("no provider snapshot is available offline: %w", err)
		}
		result.LoadedAt = savedAt.Format(time.RFC3339)
	} else if err := a.providers.Load(ctx); err != nil {
		return err
	}

	snap := a.providers.Store().Snapshot()
	if result.LoadedAt == "" {
		result.LoadedAt = snap.LoadedTimestamp
	}
	if result.Providers, err = filterProviders(program, snap.ParameterProviders); err != nil {
		return err
	}

	return a.emit("providers list", start, result, func() {
		a.out.Title("Parameter Providers")
		if len(result.Providers) == 0 {
			a.out.Info("No parameter providers.")
			return
		}
		rows := make([][]string, 0, len(result.Providers))
		for _, p := range result.Providers {
			rows = append(rows, []string{
				p.ID,
				p.Name(),
				shortType(p.Component.Type),
				p.Component.Bundle.String(),
				strconv.Itoa(len(p.Component.ReferencingParameterContexts)),
				strconv.FormatInt(p.Revision.Version, 10),
			})
		}
		a.out.Table([]string{"ID", "Name", "Type", "Bundle", "Contexts", "Version"}, rows)
		if offline {
			a.out.Info("Snapshot saved " + result.LoadedAt)
		} else {
			a.out.Info("Last updated " + result.LoadedAt)
		}
		a.out.Tip("flowadmin providers fetch <id> shows what applying a provider's parameters would change")
	})
}

func runProvidersTypes(ctx context.Context, a *app, _ []string) error {
	start := time.Now()
	if err := a.providers.LoadTypes(ctx); err != nil {
		return err
	}
	types := a.providers.Store().Snapshot().Types
	return a.emit("providers types", start, types, func() {
		rows := make([][]string, 0, len(types))
		for _, t := range types {
			rows = append(rows, []string{t.ShortName(), t.Bundle.String(), t.Description})
		}
		a.out.Table([]string{"Type", "Bundle", "Description"}, rows)
	})
}

func shortType(typ string) string {
	return api.DocumentedType{Type: typ}.ShortName()
}

// =============================================================================
// CREATE / DELETE
// =============================================================================

func runProvidersCreate(ctx context.Context, a *app, _ []string) error {
	start := time.Now()
	var (
		entity *api.ParameterProviderEntity
		err    error
	)
	if createType == "" {
		entity, err = a.providers.OpenNewDialog(ctx)
	} else {
		if err := a.providers.LoadTypes(ctx); err != nil {
			return err
		}
		var typ api.DocumentedType
		typ, err = matchType(a.providers.Store().Snapshot().Types, createType, createBundle)
		if err != nil {
			return err
		}
		entity, err = a.providers.Create(ctx, api.CreateParameterProviderRequest{
			ParameterProviderType:   typ.Type,
			ParameterProviderBundle: typ.Bundle,
			Revision:                api.Revision{Version: 0},
		})
	}
	if err != nil {
		return err
	}
	return a.emit("providers create", start, entity, func() {
		a.out.Success(fmt.Sprintf("Created %s (%s)", entity.Name(), entity.ID))
		a.out.Tip("flowadmin providers configure " + entity.ID + " --set key=value sets its properties")
	})
}

// matchType finds a type by full or short name, narrowed by bundle when given.
func matchType(types []api.DocumentedType, name, bundle string) (api.DocumentedType, error) {
	var matches []api.DocumentedType
	for _, t := range types {
		if t.Type != name && t.ShortName() != name {
			continue
		}
		if bundle != "" && t.Bundle.String() != bundle {
			continue
		}
		matches = append(matches, t)
	}
	switch len(matches) {
	case 0:
		return api.DocumentedType{}, fmt.Errorf("unknown parameter provider type %q", name)
	case 1:
		return matches[0], nil
	default:
		return api.DocumentedType{}, fmt.Errorf("type %q is offered by %d bundles, pass --bundle", name, len(matches))
	}
}

func runProvidersDelete(ctx context.Context, a *app, args []string) error {
	start := time.Now()
	entity, err := a.client.GetParameterProvider(ctx, args[0])
	if err != nil {
		return err
	}
	if err := a.providers.PromptDeletion(ctx, *entity); err != nil {
		return err
	}
	return a.emit("providers delete", start, entity, func() {
		a.out.Success("Deleted " + entity.Name())
	})
}

// =============================================================================
// DESCRIBE
// =============================================================================

// ProviderDescription is the JSON data of "providers describe".
type ProviderDescription struct {
	Provider api.ParameterProviderEntity `json:"parameter_provider"`
	History  api.ComponentHistory        `json:"history"`
}

func runProvidersDescribe(ctx context.Context, a *app, args []string) error {
	start := time.Now()
	entity, err := a.client.GetParameterProvider(ctx, args[0])
	if err != nil {
		return err
	}
	history, err := a.client.GetComponentHistory(ctx, entity.ID)
	if err != nil {
		return err
	}
	desc := ProviderDescription{Provider: *entity, History: history.ComponentHistory}

	return a.emit("providers describe", start, desc, func() {
		c := entity.Component
		a.out.Title(entity.Name())
		pairs := [][2]string{
			{"ID", entity.ID},
			{"Type", c.Type},
			{"Bundle", c.Bundle.String()},
			{"Version", strconv.FormatInt(entity.Revision.Version, 10)},
		}
		if entity.Revision.LastModifier != "" {
			pairs = append(pairs, [2]string{"Last modified by", entity.Revision.LastModifier})
		}
		if c.Comments != "" {
			pairs = append(pairs, [2]string{"Comments", c.Comments})
		}
		if c.ValidationStatus != "" {
			pairs = append(pairs, [2]string{"Validation", c.ValidationStatus})
		}
		a.out.KeyValues(pairs)

		if len(c.Properties) > 0 {
			a.out.Table([]string{"Property", "Value", "Default", "Changes"}, propertyRows(c, desc.History))
		}
		for _, v := range c.ValidationErrors {
			a.out.Warning(v)
		}
		if len(c.ParameterGroupConfigurations) > 0 {
			rows := make([][]string, 0, len(c.ParameterGroupConfigurations))
			for _, g := range c.ParameterGroupConfigurations {
				rows = append(rows, []string{g.GroupName, g.ParameterContextName, strconv.FormatBool(g.IsSynchronized())})
			}
			a.out.Table([]string{"Parameter Group", "Parameter Context", "Synchronized"}, rows)
		}
		for _, r := range c.ReferencingParameterContexts {
			label := r.ID
			if r.Permissions.CanRead {
				label = r.Component.Name
			}
			a.out.Info("Referenced by parameter context " + label)
		}
		for _, b := range entity.Bulletins {
			if b.Bulletin != nil {
				a.out.Warning(fmt.Sprintf("[%s] %s", b.Bulletin.Level, b.Bulletin.Message))
			}
		}
	})
}

func propertyRows(c api.ParameterProviderComponent, history api.ComponentHistory) [][]string {
	names := make([]string, 0, len(c.Properties))
	for k := range c.Properties {
		names = append(names, k)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, k := range names {
		d, ok := c.Descriptors[k]
		if !ok {
			d = api.PropertyDescriptor{Name: k}
		}
		value := ""
		if v := c.Properties[k]; v != nil {
			value = *v
		}
		if d.Sensitive && value != "" {
			value = "Sensitive value set"
		}
		def := ""
		if d.HasDefaultValue() {
			def = d.DefaultValue
		}
		rows = append(rows, []string{
			d.Label(),
			value,
			def,
			strconv.Itoa(len(history.PropertyHistory[k].PreviousValues)),
		})
	}
	return rows
}

// =============================================================================
// CONFIGURE
// =============================================================================

func runProvidersConfigure(ctx context.Context, a *app, args []string) error {
	start := time.Now()
	entity, err := a.client.GetParameterProvider(ctx, args[0])
	if err != nil {
		return err
	}
	props, err := propertyChanges(configureSet, configureUnset)
	if err != nil {
		return err
	}

	session, err := a.providers.OpenConfigureDialog(ctx, api.EditParameterProviderRequest{
		ID:                entity.ID,
		ParameterProvider: *entity,
	})
	if err != nil {
		return err
	}

	payload := api.ParameterProviderPayload{
		Revision: entity.Revision,
		Component: api.ParameterProviderComponent{
			ID:         entity.ID,
			Name:       configureName,
			Comments:   configureComments,
			Properties: props,
		},
	}
	changed := configureName != "" || configureComments != "" || len(props) > 0
	if changed {
		session.Edit(payload)
	}

	switch {
	case configureGotoContext != "":
		return session.GoToReferencingParameterContext(ctx, configureGotoContext)
	case configureGotoService != "":
		return session.GoToService(ctx, configureGotoService)
	case !changed:
		history := session.Request.History
		session.Close("")
		return a.emit("providers configure", start, history, func() {
			printHistory(a.out, history)
		})
	}

	updated, err := session.Submit(ctx, api.UpdateParameterProviderRequest{Payload: payload})
	if err != nil {
		session.Close("")
		return err
	}
	return a.emit("providers configure", start, updated, func() {
		a.out.Success(fmt.Sprintf("Updated %s (version %d)", updated.Name(), updated.Revision.Version))
		for k := range props {
			if _, known := entity.Component.Descriptors[k]; !known {
				a.out.Info(fmt.Sprintf("%s is a dynamic property", k))
			}
		}
	})
}

// propertyChanges builds the properties map of an update. Unset keys map to
// nil, which removes them.
func propertyChanges(set, unset []string) (map[string]*string, error) {
	if len(set) == 0 && len(unset) == 0 {
		return nil, nil
	}
	props := make(map[string]*string, len(set)+len(unset))
	for _, kv := range set {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("--set %q: expected key=value", kv)
		}
		props[strings.TrimSpace(k)] = &v
	}
	for _, k := range unset {
		if _, dup := props[k]; dup {
			return nil, fmt.Errorf("property %q is both set and unset", k)
		}
		props[k] = nil
	}
	return props, nil
}

func printHistory(out *ux.Output, history *api.ComponentHistory) {
	if history == nil || len(history.PropertyHistory) == 0 {
		out.Info("No property changes recorded.")
		return
	}
	names := make([]string, 0, len(history.PropertyHistory))
	for k := range history.PropertyHistory {
		names = append(names, k)
	}
	sort.Strings(names)
	var rows [][]string
	for _, k := range names {
		for _, pv := range history.PropertyHistory[k].PreviousValues {
			rows = append(rows, []string{k, pv.PreviousValue, pv.Timestamp, pv.UserIdentity})
		}
	}
	out.Table([]string{"Property", "Previous Value", "Changed", "By"}, rows)
}

// =============================================================================
// FETCH / APPLY
// =============================================================================

func runProvidersFetch(ctx context.Context, a *app, args []string) error {
	start := time.Now()
	entity, err := a.client.GetParameterProvider(ctx, args[0])
	if err != nil {
		return err
	}
	session, err := a.providers.FetchParametersAndOpenDialog(ctx, api.FetchParameterProviderParametersRequest{
		ID:       entity.ID,
		Revision: entity.Revision,
	})
	if err != nil {
		return err
	}
	defer session.Close("")

	fetched := session.Entity
	return a.emit("providers fetch", start, fetched, func() {
		printFetched(a.out, fetched)
		if len(a.term.Banners()) == 0 {
			a.out.Tip("flowadmin providers apply " + fetched.ID + " synchronizes these groups")
		}
	})
}

func printFetched(out *ux.Output, e api.ParameterProviderEntity) {
	status := make(map[string]api.ParameterStatus, len(e.Component.ParameterStatus))
	for _, s := range e.Component.ParameterStatus {
		status[s.Parameter.Name] = s
	}
	for _, g := range e.Component.ParameterGroupConfigurations {
		sync := "not synchronized"
		if g.IsSynchronized() {
			sync = "synchronized to " + g.ParameterContextName
		}
		out.Title(fmt.Sprintf("%s (%s)", g.GroupName, sync))

		names := make([]string, 0, len(g.ParameterSensitivities))
		for n := range g.ParameterSensitivities {
			names = append(names, n)
		}
		sort.Strings(names)
		rows := make([][]string, 0, len(names))
		for _, n := range names {
			st := status[n].Status
			if st == "" {
				st = "-"
			}
			rows = append(rows, []string{n, g.ParameterSensitivities[n], st})
		}
		out.Table([]string{"Parameter", "Sensitivity", "Status"}, rows)
	}
	for _, a := range e.Component.AffectedComponents {
		out.Info(fmt.Sprintf("Affects %s %s (%s)", a.Component.ReferenceType, a.Component.Name, a.Component.State))
	}
}

func runProvidersApply(ctx context.Context, a *app, args []string) error {
	start := time.Now()
	entity, err := a.client.GetParameterProvider(ctx, args[0])
	if err != nil {
		return err
	}
	session, err := a.providers.FetchParametersAndOpenDialog(ctx, api.FetchParameterProviderParametersRequest{
		ID:       entity.ID,
		Revision: entity.Revision,
	})
	if err != nil {
		return err
	}
	defer session.Close("")

	if banners := a.term.Banners(); len(banners) > 0 {
		return errors.New(banners[0])
	}
	configs, err := applyConfigs(session.Entity.Component.ParameterGroupConfigurations, applySelection{
		Groups:       applyGroups,
		Contexts:     applyContexts,
		Sensitive:    applySensitive,
		NonSensitive: applyNonSensitive,
	})
	if err != nil {
		return err
	}

	if err := session.Submit(ctx, configs); err != nil {
		return err
	}
	req, err := followApply(ctx, a.providers, a.term.interactive)
	if err != nil {
		return err
	}
	if req.Failed() {
		return fmt.Errorf("applying parameters of %s failed: %s", entity.Name(), req.FailureReason)
	}
	return a.emit("providers apply", start, req, func() {
		a.out.Success(fmt.Sprintf("Applied parameters of %s", entity.Name()))
		for _, s := range req.UpdateSteps {
			a.out.Info(fmt.Sprintf("%s %s", ux.IconSuccess.Render(), s.Description))
		}
	})
}

// applySelection is what the operator picked in the fetch dialog.
type applySelection struct {
	Groups       []string
	Contexts     []string // group=context
	Sensitive    []string // group/parameter
	NonSensitive []string
}

// applyConfigs turns the fetched group configurations into the ones to
// apply. Selected groups (every group when none is named) are synchronized;
// the rest are sent unchanged.
func applyConfigs(fetched []api.ParameterGroupConfiguration, sel applySelection) ([]api.ParameterGroupConfiguration, error) {
	known := make(map[string]bool, len(fetched))
	for _, g := range fetched {
		known[g.GroupName] = true
	}
	checkGroup := func(flag, group string) error {
		if !known[group] {
			return fmt.Errorf("%s: unknown parameter group %q", flag, group)
		}
		return nil
	}

	for _, g := range sel.Groups {
		if err := checkGroup("--group", g); err != nil {
			return nil, err
		}
	}
	contexts := make(map[string]string, len(sel.Contexts))
	for _, kv := range sel.Contexts {
		g, ctxName, ok := strings.Cut(kv, "=")
		if !ok || ctxName == "" {
			return nil, fmt.Errorf("--context %q: expected group=context", kv)
		}
		if err := checkGroup("--context", g); err != nil {
			return nil, err
		}
		contexts[g] = ctxName
	}
	sensitivity := make(map[string]map[string]string)
	mark := func(flag string, list []string, value string) error {
		for _, gp := range list {
			g, p, ok := strings.Cut(gp, "/")
			if !ok || p == "" {
				return fmt.Errorf("%s %q: expected group/parameter", flag, gp)
			}
			if err := checkGroup(flag, g); err != nil {
				return err
			}
			if sensitivity[g] == nil {
				sensitivity[g] = map[string]string{}
			}
			sensitivity[g][p] = value
		}
		return nil
	}
	if err := mark("--sensitive", sel.Sensitive, api.SensitivitySensitive); err != nil {
		return nil, err
	}
	if err := mark("--non-sensitive", sel.NonSensitive, api.SensitivityNonSensitive); err != nil {
		return nil, err
	}

	out := make([]api.ParameterGroupConfiguration, 0, len(fetched))
	for _, g := range fetched {
		if len(sel.Groups) > 0 && !slices.Contains(sel.Groups, g.GroupName) {
			out = append(out, g)
			continue
		}
		on := true
		g.Synchronized = &on
		if name, ok := contexts[g.GroupName]; ok {
			g.ParameterContextName = name
		}
		if g.ParameterContextName == "" {
			g.ParameterContextName = g.GroupName
		}
		if overrides := sensitivity[g.GroupName]; len(overrides) > 0 {
			merged := make(map[string]string, len(g.ParameterSensitivities))
			for k, v := range g.ParameterSensitivities {
				merged[k] = v
			}
			for k, v := range overrides {
				if _, ok := merged[k]; !ok {
					return nil, fmt.Errorf("group %q has no parameter %q", g.GroupName, k)
				}
				merged[k] = v
			}
			g.ParameterSensitivities = merged
		}
		out = append(out, g)
	}
	return out, nil
}
