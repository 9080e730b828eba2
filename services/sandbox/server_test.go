// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sandbox

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/flowadmin/flowadmin/pkg/api"
	"github.com/flowadmin/flowadmin/pkg/client"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type harness struct {
	srv    *Server
	http   *httptest.Server
	client *client.Client
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	reg := prometheus.NewRegistry()
	cfg.Registerer = reg
	cfg.Gatherer = reg
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := New(cfg)
	require.NoError(t, err)
	hs := httptest.NewServer(s.Handler())
	t.Cleanup(hs.Close)

	opts := []client.Option{client.WithClientID("harness")}
	if len(cfg.Token) > 0 {
		opts = append(opts, client.WithToken(cfg.Token))
	}
	c, err := client.New(hs.URL+BasePath, opts...)
	require.NoError(t, err)
	return &harness{srv: s, http: hs, client: c}
}

func TestServer_ParameterProviderLifecycle(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()

	list, err := h.client.ListParameterProviders(ctx)
	require.NoError(t, err)
	require.Len(t, list.ParameterProviders, 1)
	assert.Equal(t, "env-provider", list.ParameterProviders[0].ID)

	types, err := h.client.ListParameterProviderTypes(ctx)
	require.NoError(t, err)
	require.Len(t, types, 2)

	created, err := h.client.CreateParameterProvider(ctx, api.CreateParameterProviderRequest{
		ParameterProviderType:   types[1].Type,
		ParameterProviderBundle: types[1].Bundle,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.Revision.Version)

	name := "Orders DB"
	updated, err := h.client.UpdateParameterProvider(ctx, created.ID, api.ParameterProviderPayload{
		Revision:  created.Revision,
		Component: api.ParameterProviderComponent{Name: name},
	})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Component.Name)
	assert.Equal(t, int64(2), updated.Revision.Version)

	// The revision the provider was created at is now stale.
	_, err = h.client.UpdateParameterProvider(ctx, created.ID, api.ParameterProviderPayload{
		Revision:  created.Revision,
		Component: api.ParameterProviderComponent{Name: "stale"},
	})
	code, ok := client.StatusCode(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, code)

	_, err = h.client.DeleteParameterProvider(ctx, *updated)
	require.NoError(t, err)

	_, err = h.client.GetParameterProvider(ctx, created.ID)
	assert.True(t, client.IsNotFound(err))
}

func TestServer_CreateUnknownTypeIsBadRequest(t *testing.T) {
	h := newHarness(t, Config{})
	_, err := h.client.CreateParameterProvider(context.Background(), api.CreateParameterProviderRequest{
		ParameterProviderType:   "org.example.Missing",
		ParameterProviderBundle: api.Bundle{Group: "g", Artifact: "a", Version: "1"},
	})
	code, _ := client.StatusCode(err)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestServer_UpdateRecordsHistory(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()

	p, err := h.client.GetParameterProvider(ctx, "env-provider")
	require.NoError(t, err)

	v := "exclude-all"
	_, err = h.client.UpdateParameterProvider(ctx, p.ID, api.ParameterProviderPayload{
		Revision: p.Revision,
		Component: api.ParameterProviderComponent{
			Properties: map[string]*string{"environment-variable-inclusion-strategy": &v},
		},
	})
	require.NoError(t, err)

	hist, err := h.client.GetComponentHistory(ctx, p.ID)
	require.NoError(t, err)
	prev := hist.ComponentHistory.PropertyHistory["environment-variable-inclusion-strategy"].PreviousValues
	require.Len(t, prev, 1)
	assert.Equal(t, "include-all", prev[0].PreviousValue)
	assert.Equal(t, "anonymous", prev[0].UserIdentity)
}

func TestServer_FetchAndApplyPollsToCompletion(t *testing.T) {
	h := newHarness(t, Config{CompleteAfter: 2})
	ctx := context.Background()

	p, err := h.client.GetParameterProvider(ctx, "env-provider")
	require.NoError(t, err)

	fetched, err := h.client.FetchParameters(ctx, api.FetchParameterProviderParametersRequest{
		ID:       p.ID,
		Revision: p.Revision,
	})
	require.NoError(t, err)
	require.Len(t, fetched.Component.ParameterGroupConfigurations, 1)
	assert.NotEmpty(t, fetched.Component.ParameterStatus)

	sync := true
	group := fetched.Component.ParameterGroupConfigurations[0]
	group.Synchronized = &sync
	group.ParameterContextName = "Environment"

	req, err := h.client.ApplyParameters(ctx, api.ApplyParametersRequest{
		ID:                           p.ID,
		Revision:                     fetched.Revision,
		ParameterGroupConfigurations: []api.ParameterGroupConfiguration{group},
	})
	require.NoError(t, err)
	require.NotEmpty(t, req.RequestID)
	assert.False(t, req.Complete)
	assert.Equal(t, 1, h.srv.Store().ActiveApplies())

	first, err := h.client.PollApplyParametersRequest(ctx, p.ID, req.RequestID)
	require.NoError(t, err)
	assert.False(t, first.Complete)

	second, err := h.client.PollApplyParametersRequest(ctx, p.ID, req.RequestID)
	require.NoError(t, err)
	assert.True(t, second.Complete)
	assert.Equal(t, 100, second.PercentCompleted)

	_, err = h.client.DeleteApplyParametersRequest(ctx, p.ID, req.RequestID)
	require.NoError(t, err)
	assert.Zero(t, h.srv.Store().ActiveApplies())

	_, err = h.client.PollApplyParametersRequest(ctx, p.ID, req.RequestID)
	assert.True(t, client.IsNotFound(err))
}

func TestServer_ApplyUnknownGroupIsBadRequest(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()

	p, err := h.client.GetParameterProvider(ctx, "env-provider")
	require.NoError(t, err)

	_, err = h.client.ApplyParameters(ctx, api.ApplyParametersRequest{
		ID:                           p.ID,
		Revision:                     p.Revision,
		ParameterGroupConfigurations: []api.ParameterGroupConfiguration{{GroupName: "nope"}},
	})
	code, _ := client.StatusCode(err)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestServer_AccessPolicies(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()

	own, err := h.client.GetAccessPolicy(ctx, api.ResourceAction{Action: api.ActionRead, Resource: "flow"})
	require.NoError(t, err)
	assert.Equal(t, "/flow", own.Component.Resource)
	assert.True(t, own.HasTenant("operator"))

	ra := api.ResourceAction{Action: api.ActionRead, Resource: "processors", ResourceIdentifier: "generate"}
	inherited, err := h.client.GetAccessPolicy(ctx, ra)
	require.NoError(t, err)
	assert.Equal(t, "/process-groups/root", inherited.Component.Resource)

	users, err := h.client.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	groups, err := h.client.ListUserGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	created, err := h.client.CreateAccessPolicy(ctx, ra, users[:1], nil)
	require.NoError(t, err)
	assert.Equal(t, ra.Path(), created.Component.Resource)

	_, err = h.client.CreateAccessPolicy(ctx, ra, users[:1], nil)
	code, _ := client.StatusCode(err)
	assert.Equal(t, http.StatusConflict, code)

	updated, err := h.client.UpdateAccessPolicy(ctx, *created, users, groups)
	require.NoError(t, err)
	assert.Len(t, updated.Component.Users, 2)
	assert.Len(t, updated.Component.UserGroups, 1)

	_, err = h.client.DeleteAccessPolicy(ctx, *updated)
	require.NoError(t, err)

	back, err := h.client.GetAccessPolicy(ctx, ra)
	require.NoError(t, err)
	assert.Equal(t, "/process-groups/root", back.Component.Resource)
}

func TestServer_PolicyComponent(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()

	c, err := h.client.GetPolicyComponent(ctx, "processors", "generate")
	require.NoError(t, err)
	assert.Equal(t, "GenerateFlowFile", c.Label())

	_, err = h.client.GetPolicyComponent(ctx, "processors", "missing")
	assert.True(t, client.IsNotFound(err))
}

func TestServer_Cluster(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()

	cl, err := h.client.GetCluster(ctx)
	require.NoError(t, err)
	require.Len(t, cl.Nodes, 2)
	assert.True(t, cl.Nodes[0].HasRole("Primary Node"))

	node, err := h.client.GetClusterNode(ctx, "node-2")
	require.NoError(t, err)
	assert.Equal(t, "nifi-2", node.Address)

	diag, err := h.client.GetSystemDiagnostics(ctx, true)
	require.NoError(t, err)
	assert.Len(t, diag.NodeSnapshots, 2)
	_, ok := diag.Node("node-1")
	assert.True(t, ok)
}

func TestServer_TokenRequired(t *testing.T) {
	h := newHarness(t, Config{Token: []byte("sandbox-token")})

	_, err := h.client.ListParameterProviders(context.Background())
	require.NoError(t, err)

	anon, err := client.New(h.http.URL + BasePath)
	require.NoError(t, err)
	_, err = anon.ListParameterProviders(context.Background())
	code, _ := client.StatusCode(err)
	assert.Equal(t, http.StatusUnauthorized, code)

	// Health stays open.
	resp, err := http.Get(h.http.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	h := newHarness(t, Config{CompleteAfter: 0})
	ctx := context.Background()

	_, err := h.client.ListParameterProviders(ctx)
	require.NoError(t, err)

	resp, err := http.Get(h.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.True(t, strings.Contains(text, "flowadmin_sandbox_requests_total"), text)
	assert.Contains(t, text, `route="/flowadmin-api/flow/parameter-providers"`)
}

func TestNew_BadSeedFile(t *testing.T) {
	_, err := New(Config{SeedFile: t.TempDir() + "/missing.yaml"})
	assert.Error(t, err)
}

func TestServer_FlowHistory(t *testing.T) {
	h := newHarness(t, Config{Token: []byte("s3cret")})
	ctx := context.Background()

	types, err := h.client.ListParameterProviderTypes(ctx)
	require.NoError(t, err)
	created, err := h.client.CreateParameterProvider(ctx, api.CreateParameterProviderRequest{
		ParameterProviderType:   types[0].Type,
		ParameterProviderBundle: types[0].Bundle,
	})
	require.NoError(t, err)
	_, err = h.client.UpdateParameterProvider(ctx, created.ID, api.ParameterProviderPayload{
		Revision:  api.Revision{Version: 99},
		Component: api.ParameterProviderComponent{Name: "stale"},
	})
	require.Error(t, err)

	all, err := h.client.GetFlowHistory(ctx, client.HistoryQuery{})
	require.NoError(t, err)
	require.Equal(t, 2, all.Total)
	assert.Equal(t, api.OperationConfigure, all.Actions[0].Operation)
	assert.Equal(t, "failure", all.Actions[0].Outcome)
	assert.Equal(t, api.OperationAdd, all.Actions[1].Operation)
	assert.Equal(t, created.ID, all.Actions[1].SourceID)
	assert.Equal(t, "admin", all.Actions[1].UserIdentity)

	limited, err := h.client.GetFlowHistory(ctx, client.HistoryQuery{SourceID: created.ID, Count: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, limited.Total)
	assert.Len(t, limited.Actions, 1)

	none, err := h.client.GetFlowHistory(ctx, client.HistoryQuery{UserIdentity: "operator"})
	require.NoError(t, err)
	assert.Zero(t, none.Total)
	assert.Empty(t, none.Actions)
}
