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
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flowadmin/flowadmin/cmd/flowadmin/config"
	"github.com/flowadmin/flowadmin/pkg/api"
	"github.com/flowadmin/flowadmin/pkg/logging"
	"github.com/flowadmin/flowadmin/pkg/ux"
	"github.com/flowadmin/flowadmin/services/sandbox"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// cliHarness runs command bodies against an in-process sandbox with
// machine output captured.
type cliHarness struct {
	a      *app
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newCLIHarness(t *testing.T, assumeYes bool) *cliHarness {
	t.Helper()
	resetFlags()

	reg := prometheus.NewRegistry()
	srv, err := sandbox.New(sandbox.Config{
		CompleteAfter: 1,
		Registerer:    reg,
		Gatherer:      reg,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)

	prev := ux.GetPersonality()
	ux.SetPersonalityLevel(ux.PersonalityMachine)
	t.Cleanup(func() { ux.SetPersonality(prev) })

	cfg := config.DefaultConfig()
	cfg.Server.URL = hs.URL + sandbox.BasePath
	cfg.Cache.Enabled = false
	cfg.Polling.Interval = 10 * time.Millisecond

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	out := &ux.Output{Out: stdout, Err: stderr}
	logger := logging.New(logging.Config{Quiet: true})
	a := &app{
		cfg:               cfg,
		out:               out,
		logger:            logger,
		term:              newTerminal(out, logger.Slog(), false, assumeYes),
		shutdownTelemetry: func(context.Context) error { return nil },
	}
	require.NoError(t, a.session())
	t.Cleanup(a.Close)
	return &cliHarness{a: a, stdout: stdout, stderr: stderr}
}

func resetFlags() {
	providersFilter, offline = "", false
	createType, createBundle = "", ""
	configureName, configureComments = "", ""
	configureSet, configureUnset = nil, nil
	configureGotoContext, configureGotoService = "", ""
	applyGroups, applyContexts, applySensitive, applyNonSensitive = nil, nil, nil, nil
	policyAction, policyResource, policyID = string(api.ActionRead), "", ""
	policyComponent, policyOption = "", "read-component"
	overrideMode, tenantUsers, tenantGroups = "", nil, nil
	historyUser, historySource, historyCount = "", "", 20
}

type testResult struct {
	Command string          `json:"command"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// run executes fn and decodes the envelope it wrote, then clears stdout.
func (h *cliHarness) run(t *testing.T, fn commandFunc, args ...string) testResult {
	t.Helper()
	err := fn(context.Background(), h.a, args)
	require.NoError(t, err, "stderr: %s", h.stderr.String())
	var r testResult
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &r), "stdout: %s", h.stdout.String())
	h.stdout.Reset()
	assert.True(t, r.Success)
	return r
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

// =============================================================================
// providers
// =============================================================================

func TestProvidersList(t *testing.T) {
	h := newCLIHarness(t, true)

	r := h.run(t, runProvidersList)
	list := decode[ProviderListResult](t, r.Data)
	require.Len(t, list.Providers, 1)
	assert.Equal(t, "env-provider", list.Providers[0].ID)
	assert.False(t, list.Offline)
	assert.NotEmpty(t, list.LoadedAt)
}

func TestProvidersList_Filter(t *testing.T) {
	h := newCLIHarness(t, true)

	providersFilter = `Name == "Environment" && "Environment Variables" in Groups`
	list := decode[ProviderListResult](t, h.run(t, runProvidersList).Data)
	assert.Len(t, list.Providers, 1)

	providersFilter = `Type contains "Database"`
	list = decode[ProviderListResult](t, h.run(t, runProvidersList).Data)
	assert.Empty(t, list.Providers)
}

func TestProvidersCreate_ByShortName(t *testing.T) {
	h := newCLIHarness(t, true)

	createType = "DatabaseParameterProvider"
	created := decode[api.ParameterProviderEntity](t, h.run(t, runProvidersCreate).Data)
	assert.Equal(t, "org.apache.nifi.parameter.DatabaseParameterProvider", created.Component.Type)

	list := decode[ProviderListResult](t, h.run(t, runProvidersList).Data)
	assert.Len(t, list.Providers, 2)
}

func TestProvidersCreate_NeedsTypeWithoutTerminal(t *testing.T) {
	h := newCLIHarness(t, true)

	err := runProvidersCreate(context.Background(), h.a, nil)
	require.Error(t, err)
	assert.Equal(t, CLIExitFindings, ExitCode(err))
}

func TestProvidersConfigure_SetsPropertyAndRecordsHistory(t *testing.T) {
	h := newCLIHarness(t, true)

	configureSet = []string{"environment-variable-inclusion-strategy=regex"}
	updated := decode[api.ParameterProviderEntity](t, h.run(t, runProvidersConfigure, "env-provider").Data)
	require.NotNil(t, updated.Component.Properties["environment-variable-inclusion-strategy"])
	assert.Equal(t, "regex", *updated.Component.Properties["environment-variable-inclusion-strategy"])

	resetFlags()
	desc := decode[ProviderDescription](t, h.run(t, runProvidersDescribe, "env-provider").Data)
	prev := desc.History.PropertyHistory["environment-variable-inclusion-strategy"].PreviousValues
	require.NotEmpty(t, prev)
	assert.Equal(t, "include-all", prev[len(prev)-1].PreviousValue)
	assert.Empty(t, h.a.term.Banners())
}

func TestProvidersConfigure_NoChangesPrintsHistory(t *testing.T) {
	h := newCLIHarness(t, true)

	before, err := h.a.client.GetParameterProvider(context.Background(), "env-provider")
	require.NoError(t, err)

	r := h.run(t, runProvidersConfigure, "env-provider")
	assert.Equal(t, "providers configure", r.Command)

	after, err := h.a.client.GetParameterProvider(context.Background(), "env-provider")
	require.NoError(t, err)
	assert.Equal(t, before.Revision.Version, after.Revision.Version)
}

func TestProvidersApply_Completes(t *testing.T) {
	h := newCLIHarness(t, true)

	req := decode[api.ParameterProviderApplyParametersRequest](t, h.run(t, runProvidersApply, "env-provider").Data)
	assert.True(t, req.Complete)
	assert.Empty(t, req.FailureReason)
	assert.Nil(t, h.a.providers.Store().ApplyRequest())
}

func TestProvidersApply_UnknownGroup(t *testing.T) {
	h := newCLIHarness(t, true)

	applyGroups = []string{"nope"}
	err := runProvidersApply(context.Background(), h.a, []string{"env-provider"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown parameter group "nope"`)
	assert.Equal(t, CLIExitError, ExitCode(err))
}

func TestProvidersDelete(t *testing.T) {
	t.Run("declined without --yes", func(t *testing.T) {
		h := newCLIHarness(t, false)
		err := runProvidersDelete(context.Background(), h.a, []string{"env-provider"})
		require.Error(t, err)
		assert.Equal(t, CLIExitFindings, ExitCode(err))
	})

	t.Run("deleted with --yes", func(t *testing.T) {
		h := newCLIHarness(t, true)
		h.run(t, runProvidersDelete, "env-provider")
		list := decode[ProviderListResult](t, h.run(t, runProvidersList).Data)
		assert.Empty(t, list.Providers)
	})

	t.Run("unknown id", func(t *testing.T) {
		h := newCLIHarness(t, true)
		err := runProvidersDelete(context.Background(), h.a, []string{"missing"})
		require.Error(t, err)
		assert.Equal(t, CLIExitError, ExitCode(err))
	})
}

// =============================================================================
// policies
// =============================================================================

func TestPoliciesShow_Found(t *testing.T) {
	h := newCLIHarness(t, true)

	policyResource = "flow"
	v := decode[PolicyView](t, h.run(t, runPoliciesShow).Data)
	assert.Equal(t, api.PolicyFound, v.Status)
	require.NotNil(t, v.Policy)
	assert.Len(t, v.Policy.Component.Users, 2)
	assert.Equal(t, "/access-policies/global/read/flow", h.a.term.Location())
}

func TestPoliciesShow_InheritedFromProcessGroup(t *testing.T) {
	h := newCLIHarness(t, true)

	policyComponent = "processors/generate"
	v := decode[PolicyView](t, h.run(t, runPoliciesShow).Data)
	assert.Equal(t, api.PolicyInherited, v.Status)
	assert.Equal(t, "/process-groups/root", v.ProcessGroup)
	assert.Equal(t, "GenerateFlowFile", v.Component)
	assert.Equal(t, "read-component", v.Option)
}

func TestPoliciesShow_NotFoundIsFindings(t *testing.T) {
	h := newCLIHarness(t, true)

	policyResource = "counters"
	err := runPoliciesShow(context.Background(), h.a, nil)
	require.Error(t, err)
	assert.Equal(t, CLIExitFindings, ExitCode(err))
}

func TestPolicies_OverrideThenEditTenants(t *testing.T) {
	h := newCLIHarness(t, true)
	policyComponent = "processors/generate"

	overrideMode = "empty"
	v := decode[PolicyView](t, h.run(t, runPoliciesOverride).Data)
	assert.Equal(t, api.PolicyFound, v.Status)
	assert.Empty(t, v.Policy.Component.Users)

	tenantUsers = []string{"operator"}
	v = decode[PolicyView](t, h.run(t, runPoliciesAddTenant).Data)
	require.Len(t, v.Policy.Component.Users, 1)
	assert.Equal(t, "operator", v.Policy.Component.Users[0].Identity())

	v = decode[PolicyView](t, h.run(t, runPoliciesRemoveTenant, "operator").Data)
	assert.Empty(t, v.Policy.Component.Users)

	v = decode[PolicyView](t, h.run(t, runPoliciesDelete).Data)
	assert.Equal(t, api.PolicyInherited, v.Status)
}

func TestPoliciesCreate_RefusesExisting(t *testing.T) {
	h := newCLIHarness(t, true)

	policyResource = "flow"
	err := runPoliciesCreate(context.Background(), h.a, nil)
	require.Error(t, err)
	assert.Equal(t, CLIExitFindings, ExitCode(err))

	policyResource = "counters"
	v := decode[PolicyView](t, h.run(t, runPoliciesCreate).Data)
	assert.Equal(t, api.PolicyFound, v.Status)
}

func TestPoliciesOptions_RemotePort(t *testing.T) {
	h := newCLIHarness(t, true)

	policyComponent = "input-ports/in"
	opts := decode[[]PolicyOption](t, h.run(t, runPoliciesOptions).Data)
	var values []string
	for _, o := range opts {
		values = append(values, o.Value)
	}
	assert.Contains(t, values, "write-receive-data")
	assert.NotContains(t, values, "write-send-data")
}

// =============================================================================
// cluster / version
// =============================================================================

type clusterData struct {
	Nodes    []api.ClusterNode   `json:"Nodes"`
	Snapshot *api.SystemSnapshot `json:"Snapshot"`
}

func TestCluster(t *testing.T) {
	h := newCLIHarness(t, true)

	v := decode[clusterData](t, h.run(t, runCluster).Data)
	assert.Len(t, v.Nodes, 2)
	assert.Equal(t, "/cluster/nodes", h.a.term.Location())

	v = decode[clusterData](t, h.run(t, runCluster, "jvm", "node-2").Data)
	require.Len(t, v.Nodes, 1)
	assert.NotNil(t, v.Snapshot)

	err := runCluster(context.Background(), h.a, []string{"nodes", "node-9"})
	assert.Equal(t, CLIExitFindings, ExitCode(err))

	err = runCluster(context.Background(), h.a, []string{"disks"})
	assert.Equal(t, CLIExitError, ExitCode(err))
}

func TestHistory(t *testing.T) {
	h := newCLIHarness(t, true)

	configureName = "Renamed"
	h.run(t, runProvidersConfigure, "env-provider")
	resetFlags()
	h.run(t, runProvidersDelete, "env-provider")

	all := decode[api.HistoryEntity](t, h.run(t, runHistory).Data)
	require.NotEmpty(t, all.Actions)
	assert.Equal(t, api.OperationRemove, all.Actions[0].Operation)
	assert.Equal(t, "success", all.Actions[0].Outcome)
	assert.Equal(t, "anonymous", all.Actions[0].UserIdentity)

	historySource = "env-provider"
	historyCount = 1
	one := decode[api.HistoryEntity](t, h.run(t, runHistory).Data)
	require.Len(t, one.Actions, 1)
	assert.GreaterOrEqual(t, one.Total, 2)

	historySource = "missing"
	none := decode[api.HistoryEntity](t, h.run(t, runHistory).Data)
	assert.Empty(t, none.Actions)

	historyCount = -1
	err := runHistory(context.Background(), h.a, nil)
	assert.Equal(t, CLIExitError, ExitCode(err))
}

func TestVersion(t *testing.T) {
	h := newCLIHarness(t, true)

	info := decode[VersionInfo](t, h.run(t, runVersion).Data)
	assert.Equal(t, Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}
