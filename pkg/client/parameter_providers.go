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
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/flowadmin/flowadmin/pkg/api"
)

// ListParameterProviders loads every parameter provider.
func (c *Client) ListParameterProviders(ctx context.Context) (*api.ParameterProvidersEntity, error) {
	return shared(c, "parameter-providers", func() (*api.ParameterProvidersEntity, error) {
		var out api.ParameterProvidersEntity
		if err := c.do(ctx, http.MethodGet, "/flow/parameter-providers", "/flow/parameter-providers", nil, nil, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
}

// ListParameterProviderTypes loads the provider types the server can instantiate.
func (c *Client) ListParameterProviderTypes(ctx context.Context) ([]api.DocumentedType, error) {
	return shared(c, "parameter-provider-types", func() ([]api.DocumentedType, error) {
		var out api.ParameterProviderTypesEntity
		if err := c.do(ctx, http.MethodGet, "/flow/parameter-provider-types", "/flow/parameter-provider-types", nil, nil, &out); err != nil {
			return nil, err
		}
		return out.ParameterProviderTypes, nil
	})
}

// GetParameterProvider loads one provider.
func (c *Client) GetParameterProvider(ctx context.Context, id string) (*api.ParameterProviderEntity, error) {
	var out api.ParameterProviderEntity
	if err := c.do(ctx, http.MethodGet, "/parameter-providers/{id}", "/parameter-providers/"+escape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateParameterProvider instantiates a provider type at revision 0.
func (c *Client) CreateParameterProvider(ctx context.Context, req api.CreateParameterProviderRequest) (*api.ParameterProviderEntity, error) {
	if err := api.Validate(req); err != nil {
		return nil, err
	}
	body := map[string]any{
		"revision": c.stamp(api.Revision{Version: 0}),
		"component": map[string]any{
			"type":   req.ParameterProviderType,
			"bundle": req.ParameterProviderBundle,
		},
	}
	var out api.ParameterProviderEntity
	if err := c.do(ctx, http.MethodPost, "/controller/parameter-providers", "/controller/parameter-providers", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateParameterProvider submits a configuration change for provider id.
//
// # Description
//
// The payload component must reference id (an empty component id is filled
// in). The revision in the payload is sent as is, so a stale version is
// rejected by the server with 409.
//
// # Outputs
//
//   - error: ErrEntityMismatch when the payload names another provider.
func (c *Client) UpdateParameterProvider(ctx context.Context, id string, payload api.ParameterProviderPayload) (*api.ParameterProviderEntity, error) {
	if id == "" {
		return nil, fmt.Errorf("update parameter provider: %w", ErrEntityMismatch)
	}
	if payload.Component.ID == "" {
		payload.Component.ID = id
	}
	if payload.Component.ID != id {
		return nil, fmt.Errorf("update parameter provider %s with component %s: %w",
			id, payload.Component.ID, ErrEntityMismatch)
	}
	payload.Revision = c.stamp(payload.Revision)

	var out api.ParameterProviderEntity
	if err := c.do(ctx, http.MethodPut, "/parameter-providers/{id}", "/parameter-providers/"+escape(id), nil, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteParameterProvider deletes a provider at the revision it was read at.
func (c *Client) DeleteParameterProvider(ctx context.Context, entity api.ParameterProviderEntity) (*api.ParameterProviderEntity, error) {
	q := revisionQuery(c.stamp(entity.Revision))
	var out api.ParameterProviderEntity
	if err := c.do(ctx, http.MethodDelete, "/parameter-providers/{id}", "/parameter-providers/"+escape(entity.ID), q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchParameters asks a provider to fetch its parameters.
//
// The returned entity carries the fetched parameter groups, the parameter
// contexts they sync to, and the components applying them would restart.
func (c *Client) FetchParameters(ctx context.Context, req api.FetchParameterProviderParametersRequest) (*api.ParameterProviderEntity, error) {
	if err := api.Validate(req); err != nil {
		return nil, err
	}
	body := map[string]any{
		"id":       req.ID,
		"revision": c.stamp(req.Revision),
	}
	var out api.ParameterProviderEntity
	path := "/parameter-providers/" + escape(req.ID) + "/parameters/fetch-requests"
	if err := c.do(ctx, http.MethodPost, "/parameter-providers/{id}/parameters/fetch-requests", path, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ApplyParameters submits an asynchronous apply request.
func (c *Client) ApplyParameters(ctx context.Context, req api.ApplyParametersRequest) (*api.ParameterProviderApplyParametersRequest, error) {
	if err := api.Validate(req); err != nil {
		return nil, err
	}
	req.Revision = c.stamp(req.Revision)

	var out api.ApplyParametersRequestEntity
	path := "/parameter-providers/" + escape(req.ID) + "/apply-parameters-requests"
	if err := c.do(ctx, http.MethodPost, "/parameter-providers/{id}/apply-parameters-requests", path, nil, req, &out); err != nil {
		return nil, err
	}
	return &out.Request, nil
}

// PollApplyParametersRequest reads the current state of an apply request.
func (c *Client) PollApplyParametersRequest(ctx context.Context, providerID, requestID string) (*api.ParameterProviderApplyParametersRequest, error) {
	var out api.ApplyParametersRequestEntity
	if err := c.do(ctx, http.MethodGet, "/parameter-providers/{id}/apply-parameters-requests/{requestId}",
		applyRequestPath(providerID, requestID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Request, nil
}

// DeleteApplyParametersRequest removes a finished or abandoned apply request.
func (c *Client) DeleteApplyParametersRequest(ctx context.Context, providerID, requestID string) (*api.ParameterProviderApplyParametersRequest, error) {
	q := url.Values{"disconnectedNodeAcknowledged": {"false"}}
	var out api.ApplyParametersRequestEntity
	if err := c.do(ctx, http.MethodDelete, "/parameter-providers/{id}/apply-parameters-requests/{requestId}",
		applyRequestPath(providerID, requestID), q, nil, &out); err != nil {
		return nil, err
	}
	return &out.Request, nil
}

// GetComponentHistory loads the property history of a component.
func (c *Client) GetComponentHistory(ctx context.Context, id string) (*api.ComponentHistoryEntity, error) {
	var out api.ComponentHistoryEntity
	if err := c.do(ctx, http.MethodGet, "/flow/history/components/{id}", "/flow/history/components/"+escape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func applyRequestPath(providerID, requestID string) string {
	return "/parameter-providers/" + escape(providerID) + "/apply-parameters-requests/" + escape(requestID)
}

func revisionQuery(r api.Revision) url.Values {
	q := url.Values{"version": {strconv.FormatInt(r.Version, 10)}}
	if r.ClientID != "" {
		q.Set("clientId", r.ClientID)
	}
	return q
}

// HistoryQuery narrows GetFlowHistory. Zero fields match everything.
type HistoryQuery struct {
	UserIdentity string
	SourceID     string
	Count        int
}

// GetFlowHistory loads the flow configuration history.
func (c *Client) GetFlowHistory(ctx context.Context, q HistoryQuery) (*api.HistoryEntity, error) {
	query := url.Values{}
	if q.UserIdentity != "" {
		query.Set("userIdentity", q.UserIdentity)
	}
	if q.SourceID != "" {
		query.Set("sourceId", q.SourceID)
	}
	if q.Count > 0 {
		query.Set("count", strconv.Itoa(q.Count))
	}
	var out api.HistoryEntity
	if err := c.do(ctx, http.MethodGet, "/flow/history", "/flow/history", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
