// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package console implements the controllers of the admin console.

# Problem Statement

Every operator action is a REST call whose outcome decides what happens next
on screen: the listing refreshes, a dialog closes, the view navigates, or an
error appears as a snackbar, as a banner inside the open dialog, or as a
full-screen error. Those rules must hold the same way whether the console is
driven by the interactive CLI or by a test.

# Solution

Controllers take the API as an interface and talk to the operator only
through ports:

	┌────────────────────────┐       ┌───────────────────────────┐
	│ ParameterProviders     │──────►│ ParameterProviderService  │ (pkg/client)
	│ AccessPolicies         │       └───────────────────────────┘
	│ Cluster                │       ┌───────────────────────────┐
	│                        │──────►│ Navigator  Notifier       │ (CLI or fake)
	│  state.* stores        │       │ Prompter   *Dialogs       │
	└────────────────────────┘       └───────────────────────────┘

Apply requests are followed with poll.Tracker: submit, poll every interval
until complete, then delete the server-side request. Any error stops the
timer and is shown as a banner. Nothing is retried.
*/
package console

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/flowadmin/flowadmin/pkg/api"
	"github.com/flowadmin/flowadmin/pkg/poll"
	"github.com/flowadmin/flowadmin/pkg/telemetry"
)

// Routed is the dialog result meaning "closed because the view navigated
// away". Close handlers skip re-selecting the entity for this result.
const Routed = "ROUTED"

// ErrDeclined is returned when the operator answers no or dismisses a prompt.
var ErrDeclined = errors.New("declined by operator")

// Navigator moves the console to another view.
type Navigator interface {
	Navigate(ctx context.Context, commands []string) error
}

// Notifier surfaces errors to the operator.
//
// SnackBar is transient, Banner sits inside the open dialog until cleared,
// FullScreen replaces the current view.
type Notifier interface {
	SnackBar(message string)
	Banner(message string)
	ClearBanners()
	FullScreen(err error)
}

// OverrideChoice is how an inherited policy is overridden.
type OverrideChoice int

const (
	// OverrideCopy starts from the inherited policy's users and groups.
	OverrideCopy OverrideChoice = iota
	// OverrideEmpty starts with no users or groups.
	OverrideEmpty
)

// Prompter asks the operator questions. Implementations return ErrDeclined
// (possibly wrapped) when the operator backs out.
type Prompter interface {
	Confirm(ctx context.Context, title, message string) (bool, error)
	SelectType(ctx context.Context, types []api.DocumentedType) (api.DocumentedType, error)
	SelectOverride(ctx context.Context) (OverrideChoice, error)
	SelectTenants(ctx context.Context, users, groups []api.TenantEntity) (selectedUsers, selectedGroups []api.TenantEntity, err error)
}

// ParameterProviderService is the part of the API client the parameter
// providers controller uses. *client.Client satisfies it.
type ParameterProviderService interface {
	ListParameterProviders(ctx context.Context) (*api.ParameterProvidersEntity, error)
	ListParameterProviderTypes(ctx context.Context) ([]api.DocumentedType, error)
	GetParameterProvider(ctx context.Context, id string) (*api.ParameterProviderEntity, error)
	CreateParameterProvider(ctx context.Context, req api.CreateParameterProviderRequest) (*api.ParameterProviderEntity, error)
	UpdateParameterProvider(ctx context.Context, id string, payload api.ParameterProviderPayload) (*api.ParameterProviderEntity, error)
	DeleteParameterProvider(ctx context.Context, entity api.ParameterProviderEntity) (*api.ParameterProviderEntity, error)
	FetchParameters(ctx context.Context, req api.FetchParameterProviderParametersRequest) (*api.ParameterProviderEntity, error)
	ApplyParameters(ctx context.Context, req api.ApplyParametersRequest) (*api.ParameterProviderApplyParametersRequest, error)
	PollApplyParametersRequest(ctx context.Context, providerID, requestID string) (*api.ParameterProviderApplyParametersRequest, error)
	DeleteApplyParametersRequest(ctx context.Context, providerID, requestID string) (*api.ParameterProviderApplyParametersRequest, error)
	GetComponentHistory(ctx context.Context, id string) (*api.ComponentHistoryEntity, error)
}

// AccessPolicyService is the part of the API client the access policies
// controller uses.
type AccessPolicyService interface {
	GetAccessPolicy(ctx context.Context, ra api.ResourceAction) (*api.AccessPolicyEntity, error)
	CreateAccessPolicy(ctx context.Context, ra api.ResourceAction, users, userGroups []api.TenantEntity) (*api.AccessPolicyEntity, error)
	UpdateAccessPolicy(ctx context.Context, entity api.AccessPolicyEntity, users, userGroups []api.TenantEntity) (*api.AccessPolicyEntity, error)
	DeleteAccessPolicy(ctx context.Context, entity api.AccessPolicyEntity) (*api.AccessPolicyEntity, error)
	ListUsers(ctx context.Context) ([]api.TenantEntity, error)
	ListUserGroups(ctx context.Context) ([]api.TenantEntity, error)
	GetPolicyComponent(ctx context.Context, resource, id string) (*api.PolicyComponentEntity, error)
}

// ClusterService is the part of the API client the cluster controller uses.
type ClusterService interface {
	GetCluster(ctx context.Context) (*api.Cluster, error)
	GetSystemDiagnostics(ctx context.Context, nodewise bool) (*api.SystemDiagnostics, error)
}

// Deps are the ports shared by all controllers.
type Deps struct {
	Navigator Navigator
	Notifier  Notifier
	Prompter  Prompter
	Dialogs   *Dialogs

	// PollInterval paces apply request polling. Zero means poll.DefaultInterval.
	PollInterval time.Duration

	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

// nopNavigator stays on the current view.
type nopNavigator struct{}

func (nopNavigator) Navigate(context.Context, []string) error { return nil }

// logNotifier writes notifications to the log when no UI is attached.
type logNotifier struct{ logger *slog.Logger }

func (n logNotifier) SnackBar(message string) { n.logger.Info("snackbar", "message", message) }
func (n logNotifier) Banner(message string)   { n.logger.Warn("banner", "message", message) }
func (n logNotifier) ClearBanners()           {}
func (n logNotifier) FullScreen(err error)    { n.logger.Error("full screen error", "error", err) }

// decliningPrompter answers every question with ErrDeclined.
type decliningPrompter struct{}

func (decliningPrompter) Confirm(context.Context, string, string) (bool, error) {
	return false, ErrDeclined
}

func (decliningPrompter) SelectType(context.Context, []api.DocumentedType) (api.DocumentedType, error) {
	return api.DocumentedType{}, ErrDeclined
}

func (decliningPrompter) SelectOverride(context.Context) (OverrideChoice, error) {
	return OverrideCopy, ErrDeclined
}

func (decliningPrompter) SelectTenants(context.Context, []api.TenantEntity, []api.TenantEntity) ([]api.TenantEntity, []api.TenantEntity, error) {
	return nil, nil, ErrDeclined
}

// withDefaults fills unset ports: no navigation, notifications to the log
// and a prompter that declines.
func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Navigator == nil {
		d.Navigator = nopNavigator{}
	}
	if d.Notifier == nil {
		d.Notifier = logNotifier{logger: d.Logger}
	}
	if d.Prompter == nil {
		d.Prompter = decliningPrompter{}
	}
	if d.Dialogs == nil {
		d.Dialogs = NewDialogs()
	}
	if d.PollInterval <= 0 {
		d.PollInterval = poll.DefaultInterval
	}
	return d
}
