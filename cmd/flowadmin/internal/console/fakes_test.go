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
	"fmt"
	"sync"
	"time"

	"github.com/flowadmin/flowadmin/pkg/api"
	"github.com/flowadmin/flowadmin/pkg/client"
)

const testInterval = 5 * time.Millisecond

func apiErr(status int, msg string) error {
	return &client.APIError{StatusCode: status, Message: msg, Method: "GET", Path: "/test"}
}

// =============================================================================
// Ports
// =============================================================================

type recordingNavigator struct {
	mu       sync.Mutex
	commands [][]string
}

func (n *recordingNavigator) Navigate(_ context.Context, commands []string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.commands = append(n.commands, commands)
	return nil
}

func (n *recordingNavigator) all() [][]string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([][]string(nil), n.commands...)
}

func (n *recordingNavigator) last() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.commands) == 0 {
		return nil
	}
	return n.commands[len(n.commands)-1]
}

type recordingNotifier struct {
	mu          sync.Mutex
	snackBars   []string
	banners     []string
	clears      int
	fullScreens []error
}

func (n *recordingNotifier) SnackBar(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.snackBars = append(n.snackBars, message)
}

func (n *recordingNotifier) Banner(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.banners = append(n.banners, message)
}

func (n *recordingNotifier) ClearBanners() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.clears++
}

func (n *recordingNotifier) FullScreen(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fullScreens = append(n.fullScreens, err)
}

// blockingNotifier holds the first Banner call until release is closed.
type blockingNotifier struct {
	*recordingNotifier
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newBlockingNotifier() *blockingNotifier {
	return &blockingNotifier{
		recordingNotifier: &recordingNotifier{},
		entered:           make(chan struct{}),
		release:           make(chan struct{}),
	}
}

func (n *blockingNotifier) Banner(message string) {
	first := false
	n.once.Do(func() { first = true })
	n.recordingNotifier.Banner(message)
	if first {
		close(n.entered)
		<-n.release
	}
}

func (f *fakeProviders) setPollErr(err error, completeAfter int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pollErr = err
	f.completeAfter = completeAfter
	f.polls = 0
}

func (n *recordingNotifier) snapshot() (snacks, banners []string, clears int, full []error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.snackBars...), append([]string(nil), n.banners...), n.clears,
		append([]error(nil), n.fullScreens...)
}

type scriptedPrompter struct {
	confirm      bool
	confirmErr   error
	confirmed    []string
	chosenType   api.DocumentedType
	typeErr      error
	override     OverrideChoice
	pickUsers    []api.TenantEntity
	pickGroups   []api.TenantEntity
	offeredUsers []api.TenantEntity
}

func (p *scriptedPrompter) Confirm(_ context.Context, title, message string) (bool, error) {
	p.confirmed = append(p.confirmed, title+": "+message)
	return p.confirm, p.confirmErr
}

func (p *scriptedPrompter) SelectType(context.Context, []api.DocumentedType) (api.DocumentedType, error) {
	return p.chosenType, p.typeErr
}

func (p *scriptedPrompter) SelectOverride(context.Context) (OverrideChoice, error) {
	return p.override, nil
}

func (p *scriptedPrompter) SelectTenants(_ context.Context, users, _ []api.TenantEntity) ([]api.TenantEntity, []api.TenantEntity, error) {
	p.offeredUsers = users
	return p.pickUsers, p.pickGroups, nil
}

// =============================================================================
// Parameter provider service
// =============================================================================

type fakeProviders struct {
	mu sync.Mutex

	list       *api.ParameterProvidersEntity
	listErr    error
	types      []api.DocumentedType
	createErr  error
	updateErr  error
	deleteErr  error
	historyErr error
	fetched    *api.ParameterProviderEntity
	fetchErr   error
	applyErr   error
	pollErr    error

	// completeAfter is the number of polls after which the request completes.
	// Zero completes on submission.
	completeAfter int

	polls     int
	deletes   []string
	updates   []api.ParameterProviderPayload
	submitted []api.ApplyParametersRequest
}

func (f *fakeProviders) ListParameterProviders(context.Context) (*api.ParameterProvidersEntity, error) {
	return f.list, f.listErr
}

func (f *fakeProviders) ListParameterProviderTypes(context.Context) ([]api.DocumentedType, error) {
	return f.types, nil
}

func (f *fakeProviders) GetParameterProvider(_ context.Context, id string) (*api.ParameterProviderEntity, error) {
	return &api.ParameterProviderEntity{ID: id}, nil
}

func (f *fakeProviders) CreateParameterProvider(_ context.Context, req api.CreateParameterProviderRequest) (*api.ParameterProviderEntity, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &api.ParameterProviderEntity{
		ID:        "new-1",
		Revision:  api.Revision{Version: 1},
		Component: api.ParameterProviderComponent{ID: "new-1", Type: req.ParameterProviderType},
	}, nil
}

func (f *fakeProviders) UpdateParameterProvider(_ context.Context, id string, payload api.ParameterProviderPayload) (*api.ParameterProviderEntity, error) {
	f.mu.Lock()
	f.updates = append(f.updates, payload)
	f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &api.ParameterProviderEntity{ID: id, Revision: api.Revision{Version: payload.Revision.Version + 1}}, nil
}

func (f *fakeProviders) DeleteParameterProvider(_ context.Context, entity api.ParameterProviderEntity) (*api.ParameterProviderEntity, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	return &entity, nil
}

func (f *fakeProviders) FetchParameters(context.Context, api.FetchParameterProviderParametersRequest) (*api.ParameterProviderEntity, error) {
	return f.fetched, f.fetchErr
}

func (f *fakeProviders) ApplyParameters(_ context.Context, req api.ApplyParametersRequest) (*api.ParameterProviderApplyParametersRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, req)
	if f.applyErr != nil {
		return nil, f.applyErr
	}
	return &api.ParameterProviderApplyParametersRequest{
		RequestID: fmt.Sprintf("req-%d", len(f.submitted)),
		Complete:  f.completeAfter == 0,
	}, nil
}

func (f *fakeProviders) PollApplyParametersRequest(_ context.Context, providerID, requestID string) (*api.ParameterProviderApplyParametersRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	return &api.ParameterProviderApplyParametersRequest{
		RequestID:           requestID,
		ParameterProviderID: providerID,
		PercentCompleted:    min(100, f.polls*100/max(1, f.completeAfter)),
		Complete:            f.polls >= f.completeAfter,
	}, nil
}

func (f *fakeProviders) DeleteApplyParametersRequest(_ context.Context, providerID, requestID string) (*api.ParameterProviderApplyParametersRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, providerID+"/"+requestID)
	return &api.ParameterProviderApplyParametersRequest{RequestID: requestID}, nil
}

func (f *fakeProviders) GetComponentHistory(_ context.Context, id string) (*api.ComponentHistoryEntity, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return &api.ComponentHistoryEntity{ComponentHistory: api.ComponentHistory{ComponentID: id}}, nil
}

func (f *fakeProviders) counts() (polls int, deletes []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls, append([]string(nil), f.deletes...)
}

// =============================================================================
// Access policy service
// =============================================================================

type fakePolicies struct {
	policy       *api.AccessPolicyEntity
	getErr       error
	componentErr error
	component    *api.PolicyComponentEntity
	users        []api.TenantEntity
	groups       []api.TenantEntity
	usersErr     error

	created []api.ResourceAction
	updated [][]api.TenantEntity
	deleted int
}

func (f *fakePolicies) GetAccessPolicy(context.Context, api.ResourceAction) (*api.AccessPolicyEntity, error) {
	return f.policy, f.getErr
}

func (f *fakePolicies) CreateAccessPolicy(_ context.Context, ra api.ResourceAction, users, groups []api.TenantEntity) (*api.AccessPolicyEntity, error) {
	f.created = append(f.created, ra)
	return &api.AccessPolicyEntity{ID: "created", Component: api.AccessPolicy{
		Action: ra.Action, Resource: ra.Path(), Users: users, UserGroups: groups}}, nil
}

func (f *fakePolicies) UpdateAccessPolicy(_ context.Context, entity api.AccessPolicyEntity, users, groups []api.TenantEntity) (*api.AccessPolicyEntity, error) {
	f.updated = append(f.updated, users)
	entity.Component.Users = users
	entity.Component.UserGroups = groups
	return &entity, nil
}

func (f *fakePolicies) DeleteAccessPolicy(_ context.Context, entity api.AccessPolicyEntity) (*api.AccessPolicyEntity, error) {
	f.deleted++
	return &entity, nil
}

func (f *fakePolicies) ListUsers(context.Context) ([]api.TenantEntity, error) {
	return f.users, f.usersErr
}

func (f *fakePolicies) ListUserGroups(context.Context) ([]api.TenantEntity, error) {
	return f.groups, nil
}

func (f *fakePolicies) GetPolicyComponent(context.Context, string, string) (*api.PolicyComponentEntity, error) {
	return f.component, f.componentErr
}

// =============================================================================
// Cluster service
// =============================================================================

type fakeCluster struct {
	cluster *api.Cluster
	diag    *api.SystemDiagnostics
	err     error
	diagHit int
}

func (f *fakeCluster) GetCluster(context.Context) (*api.Cluster, error) {
	return f.cluster, f.err
}

func (f *fakeCluster) GetSystemDiagnostics(_ context.Context, nodewise bool) (*api.SystemDiagnostics, error) {
	f.diagHit++
	return f.diag, nil
}
