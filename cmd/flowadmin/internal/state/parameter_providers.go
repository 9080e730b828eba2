// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package state

import (
	"slices"

	"github.com/flowadmin/flowadmin/pkg/api"
)

// ParameterProvidersState is the view state of the parameter providers page.
type ParameterProvidersState struct {
	ParameterProviders []api.ParameterProviderEntity
	Types              []api.DocumentedType

	// Fetched is the provider as returned by the last fetch, shown in the
	// fetch dialog. Nil when no fetch dialog is open.
	Fetched *api.ParameterProviderEntity

	// ApplyRequest is the tracked asynchronous apply request, nil when none.
	ApplyRequest *api.ParameterProviderApplyParametersRequest

	Saving          bool
	LoadedTimestamp string
	Status          Status
}

// ParameterProviders is the parameter providers store.
type ParameterProviders struct {
	s store[ParameterProvidersState]
}

// NewParameterProviders returns a store in the pending state.
func NewParameterProviders() *ParameterProviders {
	p := &ParameterProviders{}
	p.s.set(ParameterProvidersState{Status: StatusPending})
	return p
}

// Snapshot returns a copy of the state.
func (p *ParameterProviders) Snapshot() ParameterProvidersState {
	st := p.s.get()
	st.ParameterProviders = slices.Clone(st.ParameterProviders)
	st.Types = slices.Clone(st.Types)
	return st
}

// Find returns the listed provider with id.
func (p *ParameterProviders) Find(id string) (api.ParameterProviderEntity, bool) {
	st := p.s.get()
	i := slices.IndexFunc(st.ParameterProviders, func(e api.ParameterProviderEntity) bool { return e.ID == id })
	if i < 0 {
		return api.ParameterProviderEntity{}, false
	}
	return st.ParameterProviders[i], true
}

// ApplyRequest returns the tracked apply request.
func (p *ParameterProviders) ApplyRequest() *api.ParameterProviderApplyParametersRequest {
	return p.s.get().ApplyRequest
}

func (p *ParameterProviders) LoadStarted() {
	p.s.update(func(st *ParameterProvidersState) { st.Status = StatusLoading })
}

func (p *ParameterProviders) LoadSuccess(entity api.ParameterProvidersEntity) {
	p.s.update(func(st *ParameterProvidersState) {
		st.ParameterProviders = slices.Clone(entity.ParameterProviders)
		st.LoadedTimestamp = entity.CurrentTime
		st.Status = StatusSuccess
	})
}

// LoadFailed returns to the previous settled status.
func (p *ParameterProviders) LoadFailed() {
	p.s.update(func(st *ParameterProvidersState) {
		if st.LoadedTimestamp == "" {
			st.Status = StatusPending
		} else {
			st.Status = StatusSuccess
		}
	})
}

func (p *ParameterProviders) TypesLoaded(types []api.DocumentedType) {
	p.s.update(func(st *ParameterProvidersState) { st.Types = slices.Clone(types) })
}

// SetSaving marks a create, configure or apply as in flight.
func (p *ParameterProviders) SetSaving(saving bool) {
	p.s.update(func(st *ParameterProvidersState) { st.Saving = saving })
}

func (p *ParameterProviders) CreateSuccess(entity api.ParameterProviderEntity) {
	p.s.update(func(st *ParameterProvidersState) {
		st.ParameterProviders = append(slices.Clone(st.ParameterProviders), entity)
		st.Saving = false
	})
}

// Upsert replaces the listed provider with the same id or appends it.
func (p *ParameterProviders) Upsert(entity api.ParameterProviderEntity) {
	p.s.update(func(st *ParameterProvidersState) {
		list := slices.Clone(st.ParameterProviders)
		if i := slices.IndexFunc(list, func(e api.ParameterProviderEntity) bool { return e.ID == entity.ID }); i >= 0 {
			list[i] = entity
		} else {
			list = append(list, entity)
		}
		st.ParameterProviders = list
		st.Saving = false
	})
}

func (p *ParameterProviders) DeleteSuccess(id string) {
	p.s.update(func(st *ParameterProvidersState) {
		st.ParameterProviders = slices.DeleteFunc(slices.Clone(st.ParameterProviders),
			func(e api.ParameterProviderEntity) bool { return e.ID == id })
	})
}

func (p *ParameterProviders) FetchSuccess(entity api.ParameterProviderEntity) {
	p.s.update(func(st *ParameterProvidersState) { st.Fetched = &entity })
}

func (p *ParameterProviders) ResetFetched() {
	p.s.update(func(st *ParameterProvidersState) { st.Fetched = nil })
}

// ApplyRequestUpdated tracks req, replacing any previous request.
func (p *ParameterProviders) ApplyRequestUpdated(req api.ParameterProviderApplyParametersRequest) {
	p.s.update(func(st *ParameterProvidersState) { st.ApplyRequest = &req })
}

// ClearApplyRequest stops tracking the apply request and returns it.
func (p *ParameterProviders) ClearApplyRequest() *api.ParameterProviderApplyParametersRequest {
	var prev *api.ParameterProviderApplyParametersRequest
	p.s.update(func(st *ParameterProvidersState) {
		prev = st.ApplyRequest
		st.ApplyRequest = nil
	})
	return prev
}

// ClearApplyRequestIf stops tracking the apply request only when its id is
// requestID, and reports whether it did.
func (p *ParameterProviders) ClearApplyRequestIf(requestID string) bool {
	cleared := false
	p.s.update(func(st *ParameterProvidersState) {
		if st.ApplyRequest != nil && st.ApplyRequest.RequestID == requestID {
			st.ApplyRequest = nil
			cleared = true
		}
	})
	return cleared
}

// UpdateComplete ends an apply: saving is cleared and the request forgotten.
func (p *ParameterProviders) UpdateComplete() {
	p.s.update(func(st *ParameterProvidersState) {
		st.Saving = false
		st.ApplyRequest = nil
	})
}

// APIError ends whatever was saving.
func (p *ParameterProviders) APIError() {
	p.SetSaving(false)
}
