// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flowadmin/flowadmin/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/api", append([]Option{WithClientID("test-client")}, opts...)...)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// -----------------------------------------------------------------------------
// Construction
// -----------------------------------------------------------------------------

func TestNew_InvalidBaseURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8080", "ftp://host/api", "http://"} {
		_, err := New(raw)
		assert.ErrorIs(t, err, ErrInvalidBaseURL, raw)
	}
}

func TestNew_Defaults(t *testing.T) {
	c, err := New("http://localhost:8080/api/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/api", c.BaseURL())
	assert.NotEmpty(t, c.ClientID())
}

// -----------------------------------------------------------------------------
// Request plumbing
// -----------------------------------------------------------------------------

func TestClient_HeadersAndToken(t *testing.T) {
	var got http.Header
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		writeJSON(w, http.StatusOK, api.ParameterProviderEntity{ID: "p1"})
	}, WithToken([]byte("s3cret")), WithUserAgent("flowadmin-test"))

	_, err := c.GetParameterProvider(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer s3cret", got.Get("Authorization"))
	assert.Equal(t, "flowadmin-test", got.Get("User-Agent"))
	assert.Equal(t, "application/json", got.Get("Accept"))
}

func TestClient_ErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"plain text", http.StatusConflict, "Revision mismatch", "Revision mismatch"},
		{"json message", http.StatusBadRequest, `{"message":"Bundle not found"}`, "Bundle not found"},
		{"json error", http.StatusForbidden, `{"error":"Access denied"}`, "Access denied"},
		{"json errors array", http.StatusBadRequest, `{"errors":[{"message":"name required"}]}`, "name required"},
		{"empty body", http.StatusServiceUnavailable, "", "Service Unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := c.GetParameterProvider(context.Background(), "p1")
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.Equal(t, http.MethodGet, apiErr.Method)
			assert.Equal(t, "/parameter-providers/p1", apiErr.Path)
		})
	}
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.ListUsers(context.Background())
	require.Error(t, err)
	status, ok := StatusCode(err)
	assert.True(t, ok)
	assert.Zero(t, status)
	assert.Equal(t, CommunicationFailureText, ErrorString(err, ""))
}

func TestClient_Timeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}, WithTimeout(20*time.Millisecond))

	_, err := c.GetCluster(context.Background())
	status, ok := StatusCode(err)
	assert.True(t, ok)
	assert.Zero(t, status)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestClient_RateLimitHonoursContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, api.UsersEntity{})
	}, WithRateLimit(0.001, 1))

	_, err := c.ListUsers(context.Background())
	require.NoError(t, err, "burst allows the first call")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.ListUsers(ctx)
	require.Error(t, err)
	status, ok := StatusCode(err)
	assert.True(t, ok)
	assert.Zero(t, status)
}

func TestClient_ListSharesConcurrentLoads(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		writeJSON(w, http.StatusOK, api.ParameterProvidersEntity{
			ParameterProviders: []api.ParameterProviderEntity{{ID: "p1"}},
			CurrentTime:        "12:00:00 UTC",
		})
	})

	var wg sync.WaitGroup
	results := make([]*api.ParameterProvidersEntity, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := c.ListParameterProviders(context.Background())
			assert.NoError(t, err)
			results[i] = out
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, "12:00:00 UTC", r.CurrentTime)
	}
}

// -----------------------------------------------------------------------------
// Parameter providers
// -----------------------------------------------------------------------------

func TestClient_CreateParameterProvider(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/controller/parameter-providers", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusCreated, api.ParameterProviderEntity{ID: "new-id"})
	})

	out, err := c.CreateParameterProvider(context.Background(), api.CreateParameterProviderRequest{
		ParameterProviderType:   "org.example.EnvironmentVariableParameterProvider",
		ParameterProviderBundle: api.Bundle{Group: "org.example", Artifact: "env-nar", Version: "1.0"},
	})
	require.NoError(t, err)
	assert.Equal(t, "new-id", out.ID)

	rev := body["revision"].(map[string]any)
	assert.Equal(t, float64(0), rev["version"])
	assert.Equal(t, "test-client", rev["clientId"])
	comp := body["component"].(map[string]any)
	assert.Equal(t, "org.example.EnvironmentVariableParameterProvider", comp["type"])
}

func TestClient_CreateParameterProvider_Invalid(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	_, err := c.CreateParameterProvider(context.Background(), api.CreateParameterProviderRequest{})
	require.Error(t, err)
	_, isAPI := StatusCode(err)
	assert.False(t, isAPI)
}

func TestClient_UpdateParameterProvider(t *testing.T) {
	t.Run("fills component id and stamps client id", func(t *testing.T) {
		var payload api.ParameterProviderPayload
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "/api/parameter-providers/p1", r.URL.Path)
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			writeJSON(w, http.StatusOK, api.ParameterProviderEntity{ID: "p1", Revision: api.Revision{Version: 4}})
		})
		out, err := c.UpdateParameterProvider(context.Background(), "p1", api.ParameterProviderPayload{
			Revision:  api.Revision{Version: 3},
			Component: api.ParameterProviderComponent{Name: "env"},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(4), out.Revision.Version)
		assert.Equal(t, "p1", payload.Component.ID)
		assert.Equal(t, int64(3), payload.Revision.Version)
		assert.Equal(t, "test-client", payload.Revision.ClientID)
	})

	t.Run("rejects a payload for another entity", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		})
		_, err := c.UpdateParameterProvider(context.Background(), "p1", api.ParameterProviderPayload{
			Component: api.ParameterProviderComponent{ID: "p2"},
		})
		assert.ErrorIs(t, err, ErrEntityMismatch)
	})
}

func TestClient_DeleteParameterProvider(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/parameter-providers/p1", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("version"))
		assert.Equal(t, "test-client", r.URL.Query().Get("clientId"))
		writeJSON(w, http.StatusOK, api.ParameterProviderEntity{ID: "p1"})
	})
	_, err := c.DeleteParameterProvider(context.Background(), api.ParameterProviderEntity{
		ID: "p1", Revision: api.Revision{Version: 2},
	})
	require.NoError(t, err)
}

func TestClient_ApplyAndPoll(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/parameter-providers/p1/apply-parameters-requests", func(w http.ResponseWriter, r *http.Request) {
		var req api.ApplyParametersRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "p1", req.ID)
		assert.Len(t, req.ParameterGroupConfigurations, 1)
		writeJSON(w, http.StatusOK, api.ApplyParametersRequestEntity{
			Request: api.ParameterProviderApplyParametersRequest{RequestID: "r1", PercentCompleted: 10},
		})
	})
	mux.HandleFunc("GET /api/parameter-providers/p1/apply-parameters-requests/r1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, api.ApplyParametersRequestEntity{
			Request: api.ParameterProviderApplyParametersRequest{RequestID: "r1", Complete: true, PercentCompleted: 100},
		})
	})
	mux.HandleFunc("DELETE /api/parameter-providers/p1/apply-parameters-requests/r1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "false", r.URL.Query().Get("disconnectedNodeAcknowledged"))
		writeJSON(w, http.StatusOK, api.ApplyParametersRequestEntity{
			Request: api.ParameterProviderApplyParametersRequest{RequestID: "r1", Complete: true},
		})
	})
	c := newTestClient(t, mux.ServeHTTP)
	ctx := context.Background()

	req, err := c.ApplyParameters(ctx, api.ApplyParametersRequest{
		ID:                           "p1",
		ParameterGroupConfigurations: []api.ParameterGroupConfiguration{{GroupName: "db"}},
	})
	require.NoError(t, err)
	assert.False(t, req.Complete)

	req, err = c.PollApplyParametersRequest(ctx, "p1", req.RequestID)
	require.NoError(t, err)
	assert.True(t, req.Complete)

	_, err = c.DeleteApplyParametersRequest(ctx, "p1", "r1")
	require.NoError(t, err)
}

// -----------------------------------------------------------------------------
// Access policies and cluster
// -----------------------------------------------------------------------------

func TestClient_GetAccessPolicy(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/policies/read/provenance-data/processors/abc", r.URL.Path)
		writeJSON(w, http.StatusOK, api.AccessPolicyEntity{ID: "pol", Component: api.AccessPolicy{
			Action: api.ActionRead, Resource: "/provenance-data/processors/abc",
		}})
	})
	out, err := c.GetAccessPolicy(context.Background(), api.ResourceAction{
		Action: api.ActionRead, Resource: "provenance-data/processors", ResourceIdentifier: "abc",
	})
	require.NoError(t, err)
	assert.Equal(t, "pol", out.ID)
}

func TestClient_CreateAccessPolicy_EmptyTenants(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusCreated, api.AccessPolicyEntity{ID: "pol"})
	})
	_, err := c.CreateAccessPolicy(context.Background(), api.ResourceAction{Action: api.ActionWrite, Resource: "controller"}, nil, nil)
	require.NoError(t, err)

	comp := body["component"].(map[string]any)
	assert.Equal(t, "/controller", comp["resource"])
	assert.Equal(t, []any{}, comp["users"])
	assert.Equal(t, []any{}, comp["userGroups"])
}

func TestClient_GetSystemDiagnostics(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("nodewise"))
		writeJSON(w, http.StatusOK, api.SystemDiagnosticsEntity{SystemDiagnostics: api.SystemDiagnostics{
			AggregateSnapshot: api.SystemSnapshot{AvailableProcessors: 8},
		}})
	})
	d, err := c.GetSystemDiagnostics(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 8, d.AggregateSnapshot.AvailableProcessors)
}

// -----------------------------------------------------------------------------
// Error helpers
// -----------------------------------------------------------------------------

func TestShowErrorInContext(t *testing.T) {
	for _, s := range []int{400, 403, 404, 409, 413, 503} {
		assert.True(t, ShowErrorInContext(s), s)
	}
	for _, s := range []int{0, 401, 500, 502} {
		assert.False(t, ShowErrorInContext(s), s)
	}
}

func TestErrorString(t *testing.T) {
	apiErr := &APIError{StatusCode: 409, Message: "stale revision"}
	assert.Equal(t, "stale revision", ErrorString(apiErr, ""))
	assert.Equal(t, "Failed to update - [stale revision]", ErrorString(apiErr, "Failed to update"))
	assert.Equal(t, UnspecifiedErrorText, ErrorString(&APIError{StatusCode: 500}, ""))
	assert.Equal(t, UnspecifiedErrorText, ErrorString(nil, ""))
	assert.Equal(t, "plain", ErrorString(errors.New("plain"), ""))
}

func TestIsNotFoundAndForbidden(t *testing.T) {
	assert.True(t, IsNotFound(&APIError{StatusCode: 404}))
	assert.True(t, IsForbidden(&APIError{StatusCode: 403}))
	assert.False(t, IsNotFound(errors.New("x")))
}
