// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store holds the sandbox's in-memory management state.
//
// # Description
//
// The store behaves like the management API it stands in for: every
// mutation checks the presented revision and bumps it, apply requests
// progress one step per poll, and policy lookups fall back to the
// inherited policy when the resource has none of its own.
//
// # Thread Safety
//
// Store is safe for concurrent use. Entity maps and slices are replaced,
// never mutated in place, so returned values stay valid after the lock is
// released.
package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/flowadmin/flowadmin/pkg/api"
	"github.com/google/uuid"
)

// DefaultCompleteAfter is the number of polls an apply request takes when
// the seed does not say.
const DefaultCompleteAfter = 3

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalid      = errors.New("invalid request")
	ErrConflict     = errors.New("conflict")
	ErrNotClustered = errors.New("only a node connected to a cluster can process the request")
)

var applySteps = []string{
	"Stopping affected processors",
	"Disabling affected controller services",
	"Updating parameter contexts",
	"Re-enabling affected controller services",
	"Restarting affected processors",
}

type provider struct {
	entity api.ParameterProviderEntity
	groups []SeedGroup
}

type applyRequest struct {
	req   api.ParameterProviderApplyParametersRequest
	polls int
}

// Store is the sandbox state.
type Store struct {
	mu sync.RWMutex

	providers     map[string]*provider
	types         []api.DocumentedType
	history       map[string]api.ComponentHistory
	applies       map[string]*applyRequest
	completeAfter int

	policies   map[string]api.AccessPolicyEntity
	users      []api.TenantEntity
	userGroups []api.TenantEntity
	forbidden  map[string]bool
	components map[string]SeedComponent

	nodes []SeedNode

	now func() time.Time
}

// New creates a store holding seed.
func New(seed Seed) *Store {
	s := &Store{now: time.Now}
	s.Load(seed)
	return s
}

// SetClock replaces the time source.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Load replaces all state with seed. Pending apply requests are dropped.
func (s *Store) Load(seed Seed) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.completeAfter = DefaultCompleteAfter
	if seed.CompleteAfter != nil && *seed.CompleteAfter >= 0 {
		s.completeAfter = *seed.CompleteAfter
	}

	s.types = append([]api.DocumentedType(nil), seed.ProviderTypes...)
	s.providers = make(map[string]*provider, len(seed.Providers))
	for _, sp := range seed.Providers {
		p := seedProvider(sp)
		s.providers[p.entity.ID] = p
	}
	s.history = make(map[string]api.ComponentHistory)
	s.applies = make(map[string]*applyRequest)

	s.users = seedTenants(seed.Users)
	s.userGroups = seedTenants(seed.UserGroups)

	s.policies = make(map[string]api.AccessPolicyEntity, len(seed.Policies))
	for _, sp := range seed.Policies {
		id := sp.ID
		if id == "" {
			id = uuid.NewString()
		}
		s.policies[id] = newPolicy(id, sp.Action, normalize(sp.Resource),
			pick(s.users, sp.Users), pick(s.userGroups, sp.Groups), api.Revision{Version: 1})
	}

	s.forbidden = make(map[string]bool, len(seed.Forbidden))
	for _, r := range seed.Forbidden {
		s.forbidden[normalize(r)] = true
	}

	s.components = make(map[string]SeedComponent, len(seed.Components))
	for _, c := range seed.Components {
		s.components[componentKey(c.Resource, c.ID)] = c
	}

	s.nodes = append([]SeedNode(nil), seed.Nodes...)
}

func seedProvider(sp SeedProvider) *provider {
	id := sp.ID
	if id == "" {
		id = uuid.NewString()
	}
	name := sp.Name
	if name == "" {
		name = api.DocumentedType{Type: sp.Type}.ShortName()
	}

	props := make(map[string]*string, len(sp.Properties))
	descriptors := make(map[string]api.PropertyDescriptor, len(sp.Properties))
	for k, v := range sp.Properties {
		props[k] = &v
		descriptors[k] = api.PropertyDescriptor{Name: k, DisplayName: k}
	}

	var contexts []api.ParameterProviderReferencingContext
	for _, c := range sp.ReferencingContexts {
		readable := c.Readable == nil || *c.Readable
		contexts = append(contexts, api.ParameterProviderReferencingContext{
			ID:          c.ID,
			Permissions: api.Permissions{CanRead: readable, CanWrite: readable},
			Component:   api.ParameterContextReference{ID: c.ID, Name: c.Name},
		})
	}

	return &provider{
		entity: api.ParameterProviderEntity{
			ID:          id,
			URI:         "/parameter-providers/" + id,
			Revision:    api.Revision{Version: 1},
			Permissions: api.Permissions{CanRead: true, CanWrite: !sp.ReadOnly},
			Component: api.ParameterProviderComponent{
				ID:                           id,
				Name:                         name,
				Type:                         sp.Type,
				Bundle:                       sp.Bundle,
				Comments:                     sp.Comments,
				Properties:                   props,
				Descriptors:                  descriptors,
				ValidationStatus:             "VALID",
				ReferencingParameterContexts: contexts,
			},
		},
		groups: append([]SeedGroup(nil), sp.Groups...),
	}
}

func seedTenants(in []SeedTenant) []api.TenantEntity {
	out := make([]api.TenantEntity, 0, len(in))
	for _, t := range in {
		out = append(out, api.TenantEntity{
			ID:          t.ID,
			Revision:    api.Revision{Version: 1},
			Permissions: api.Permissions{CanRead: true, CanWrite: true},
			Component:   api.TenantComponent{ID: t.ID, Identity: t.Identity, Configurable: true},
		})
	}
	return out
}

func pick(all []api.TenantEntity, ids []string) []api.TenantEntity {
	out := []api.TenantEntity{}
	for _, id := range ids {
		for _, t := range all {
			if t.ID == id {
				out = append(out, t)
			}
		}
	}
	return out
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format("01/02/2006 15:04:05 MST")
}

// =============================================================================
// Parameter providers
// =============================================================================

// ListProviders returns every provider sorted by name.
func (s *Store) ListProviders() api.ParameterProvidersEntity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := api.ParameterProvidersEntity{
		ParameterProviders: make([]api.ParameterProviderEntity, 0, len(s.providers)),
		CurrentTime:        s.now().UTC().Format("15:04:05 MST"),
	}
	for _, p := range s.providers {
		out.ParameterProviders = append(out.ParameterProviders, p.entity)
	}
	sort.Slice(out.ParameterProviders, func(i, j int) bool {
		return out.ParameterProviders[i].Component.Name < out.ParameterProviders[j].Component.Name
	})
	return out
}

func (s *Store) ProviderTypes() []api.DocumentedType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]api.DocumentedType(nil), s.types...)
}

func (s *Store) Provider(id string) (api.ParameterProviderEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, err := s.provider(id)
	if err != nil {
		return api.ParameterProviderEntity{}, err
	}
	return p.entity, nil
}

func (s *Store) provider(id string) (*provider, error) {
	p, ok := s.providers[id]
	if !ok {
		return nil, fmt.Errorf("parameter provider %s: %w", id, ErrNotFound)
	}
	return p, nil
}

func checkRevision(current, presented api.Revision) error {
	if err := api.CheckRevision(current, presented); err != nil {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return nil
}

// CreateProvider adds a provider of a known type. The presented revision
// must be version 0.
func (s *Store) CreateProvider(typ string, bundle api.Bundle, rev api.Revision) (api.ParameterProviderEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkRevision(api.Revision{}, rev); err != nil {
		return api.ParameterProviderEntity{}, err
	}
	known := false
	for _, t := range s.types {
		if t.Type == typ && t.Bundle == bundle {
			known = true
			break
		}
	}
	if !known {
		return api.ParameterProviderEntity{}, fmt.Errorf("%w: unknown parameter provider type %s (%s)", ErrInvalid, typ, bundle)
	}

	p := seedProvider(SeedProvider{ID: uuid.NewString(), Type: typ, Bundle: bundle})
	p.entity.Revision = rev.Next(rev.ClientID)
	s.providers[p.entity.ID] = p
	return p.entity, nil
}

// UpdateProvider applies the non-empty fields of payload.Component.
// A nil property value removes the property. Changed properties are
// recorded in the component history under user.
func (s *Store) UpdateProvider(id string, payload api.ParameterProviderPayload, user string) (api.ParameterProviderEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.provider(id)
	if err != nil {
		return api.ParameterProviderEntity{}, err
	}
	if err := checkRevision(p.entity.Revision, payload.Revision); err != nil {
		return api.ParameterProviderEntity{}, err
	}
	if !p.entity.Permissions.CanWrite {
		return api.ParameterProviderEntity{}, fmt.Errorf("parameter provider %s: %w", id, ErrForbidden)
	}

	e := p.entity
	in := payload.Component
	if in.Name != "" {
		e.Component.Name = in.Name
	}
	if in.Comments != "" {
		e.Component.Comments = in.Comments
	}
	if in.ParameterGroupConfigurations != nil {
		e.Component.ParameterGroupConfigurations = append([]api.ParameterGroupConfiguration(nil), in.ParameterGroupConfigurations...)
	}
	if in.Properties != nil {
		props := make(map[string]*string, len(e.Component.Properties))
		descriptors := make(map[string]api.PropertyDescriptor, len(e.Component.Descriptors))
		for k, v := range e.Component.Properties {
			props[k] = v
		}
		for k, v := range e.Component.Descriptors {
			descriptors[k] = v
		}
		hist := s.history[id]
		changes := make(map[string]api.PropertyHistory, len(hist.PropertyHistory))
		for k, v := range hist.PropertyHistory {
			changes[k] = v
		}
		for k, v := range in.Properties {
			old := deref(props[k])
			if v == nil {
				delete(props, k)
				delete(descriptors, k)
			} else {
				val := *v
				props[k] = &val
				if _, ok := descriptors[k]; !ok {
					descriptors[k] = api.PropertyDescriptor{Name: k, DisplayName: k, Dynamic: true}
				}
			}
			if old != deref(v) {
				h := changes[k]
				h.PreviousValues = append(append([]api.PreviousValue(nil), h.PreviousValues...), api.PreviousValue{
					PreviousValue: old,
					Timestamp:     s.timestamp(),
					UserIdentity:  user,
				})
				changes[k] = h
			}
		}
		e.Component.Properties = props
		e.Component.Descriptors = descriptors
		s.history[id] = api.ComponentHistory{ComponentID: id, PropertyHistory: changes}
	}
	e.Revision = p.entity.Revision.Next(payload.Revision.ClientID)
	e.Revision.LastModifier = user
	p.entity = e
	return e, nil
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// DeleteProvider removes a provider that no parameter context references.
func (s *Store) DeleteProvider(id string, rev api.Revision) (api.ParameterProviderEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.provider(id)
	if err != nil {
		return api.ParameterProviderEntity{}, err
	}
	if err := checkRevision(p.entity.Revision, rev); err != nil {
		return api.ParameterProviderEntity{}, err
	}
	if n := len(p.entity.Component.ReferencingParameterContexts); n > 0 {
		return api.ParameterProviderEntity{}, fmt.Errorf("%w: parameter provider %s is referenced by %d parameter context(s)",
			ErrConflict, p.entity.Name(), n)
	}
	delete(s.providers, id)
	delete(s.history, id)
	return p.entity, nil
}

// History returns the property history of a component. Unknown ids have an
// empty history.
func (s *Store) History(id string) api.ComponentHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.history[id]
	if !ok {
		return api.ComponentHistory{ComponentID: id, PropertyHistory: map[string]api.PropertyHistory{}}
	}
	return h
}

// FetchParameters refreshes the provider's parameter groups from its seed
// and reports each parameter's status against the last applied
// configuration.
func (s *Store) FetchParameters(id string, rev api.Revision) (api.ParameterProviderEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.provider(id)
	if err != nil {
		return api.ParameterProviderEntity{}, err
	}
	if err := checkRevision(p.entity.Revision, rev); err != nil {
		return api.ParameterProviderEntity{}, err
	}

	existing := make(map[string]api.ParameterGroupConfiguration)
	for _, c := range p.entity.Component.ParameterGroupConfigurations {
		existing[c.GroupName] = c
	}

	var configs []api.ParameterGroupConfiguration
	var statuses []api.ParameterStatus
	for _, g := range p.groups {
		cfg, seen := existing[g.Name]
		if !seen {
			off := false
			cfg = api.ParameterGroupConfiguration{
				GroupName:            g.Name,
				ParameterContextName: g.Name,
				Synchronized:         &off,
			}
		}
		sens := make(map[string]string, len(g.Parameters))
		for _, name := range g.Parameters {
			sens[name] = api.SensitivityNonSensitive
			if contains(g.Sensitive, name) {
				sens[name] = api.SensitivitySensitive
			}
			if v, ok := cfg.ParameterSensitivities[name]; ok {
				sens[name] = v
			}

			st := api.ParameterStatus{Status: api.ParameterNew}
			if _, ok := cfg.ParameterSensitivities[name]; ok && cfg.IsSynchronized() {
				st.Status = api.ParameterUnchanged
			}
			st.Parameter.Name = name
			st.Parameter.Sensitive = sens[name] == api.SensitivitySensitive
			statuses = append(statuses, st)
		}
		cfg.ParameterSensitivities = sens
		configs = append(configs, cfg)
	}

	e := p.entity
	e.Component.ParameterGroupConfigurations = configs
	e.Component.ParameterStatus = statuses
	e.Revision = p.entity.Revision.Next(rev.ClientID)
	p.entity = e
	return e, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// SubmitApply starts an apply request. The request completes after the
// configured number of polls.
func (s *Store) SubmitApply(req api.ApplyParametersRequest) (api.ParameterProviderApplyParametersRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.provider(req.ID)
	if err != nil {
		return api.ParameterProviderApplyParametersRequest{}, err
	}
	if err := checkRevision(p.entity.Revision, req.Revision); err != nil {
		return api.ParameterProviderApplyParametersRequest{}, err
	}
	for _, cfg := range req.ParameterGroupConfigurations {
		if !p.hasGroup(cfg.GroupName) {
			return api.ParameterProviderApplyParametersRequest{}, fmt.Errorf("%w: parameter provider %s has no group %q",
				ErrInvalid, p.entity.Name(), cfg.GroupName)
		}
	}

	e := p.entity
	e.Component.ParameterGroupConfigurations = append([]api.ParameterGroupConfiguration(nil), req.ParameterGroupConfigurations...)
	e.Revision = p.entity.Revision.Next(req.Revision.ClientID)
	p.entity = e

	id := uuid.NewString()
	ar := &applyRequest{req: api.ParameterProviderApplyParametersRequest{
		RequestID:           id,
		URI:                 "/parameter-providers/" + req.ID + "/apply-parameters-requests/" + id,
		SubmissionTime:      s.timestamp(),
		ParameterProviderID: req.ID,
	}}
	s.progress(ar)
	s.applies[id] = ar
	return ar.req, nil
}

func (p *provider) hasGroup(name string) bool {
	for _, g := range p.groups {
		if g.Name == name {
			return true
		}
	}
	return false
}

func (s *Store) progress(ar *applyRequest) {
	pct := 100
	if s.completeAfter > 0 {
		pct = min(100, ar.polls*100/s.completeAfter)
	}
	steps := make([]api.UpdateStep, len(applySteps))
	for i, d := range applySteps {
		steps[i] = api.UpdateStep{Description: d, Complete: pct >= (i+1)*100/len(applySteps)}
	}
	ar.req.PercentCompleted = pct
	ar.req.UpdateSteps = steps
	ar.req.LastUpdated = s.timestamp()
	ar.req.Complete = pct >= 100
	ar.req.State = "Applying parameters"
	if ar.req.Complete {
		ar.req.State = "Complete"
	}
}

func (s *Store) apply(providerID, requestID string) (*applyRequest, error) {
	ar, ok := s.applies[requestID]
	if !ok || ar.req.ParameterProviderID != providerID {
		return nil, fmt.Errorf("apply parameters request %s: %w", requestID, ErrNotFound)
	}
	return ar, nil
}

// PollApply advances the request one step and returns it. completed is true
// only on the poll that finished the request.
func (s *Store) PollApply(providerID, requestID string) (req api.ParameterProviderApplyParametersRequest, completed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ar, err := s.apply(providerID, requestID)
	if err != nil {
		return api.ParameterProviderApplyParametersRequest{}, false, err
	}
	if !ar.req.Complete {
		ar.polls++
		s.progress(ar)
		if ar.req.Complete {
			completed = true
			if p, ok := s.providers[providerID]; ok {
				e := p.entity
				e.Component.ParameterStatus = nil
				p.entity = e
			}
		}
	}
	return ar.req, completed, nil
}

// DeleteApply removes the request, complete or not.
func (s *Store) DeleteApply(providerID, requestID string) (api.ParameterProviderApplyParametersRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ar, err := s.apply(providerID, requestID)
	if err != nil {
		return api.ParameterProviderApplyParametersRequest{}, err
	}
	delete(s.applies, requestID)
	return ar.req, nil
}

// ActiveApplies is the number of apply requests not yet deleted.
func (s *Store) ActiveApplies() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.applies)
}

// =============================================================================
// Access policies
// =============================================================================

var componentPrefixes = []string{"/data", "/policies", "/operation", "/provenance-data", "/data-transfer"}

var flowComponents = map[string]bool{
	"processors":            true,
	"process-groups":        true,
	"input-ports":           true,
	"output-ports":          true,
	"funnels":               true,
	"labels":                true,
	"remote-process-groups": true,
	"controller-services":   true,
}

var controllerComponents = map[string]bool{
	"reporting-tasks":     true,
	"parameter-providers": true,
	"flow-analysis-rules": true,
}

func normalize(resource string) string {
	return "/" + strings.Trim(resource, "/")
}

// lineage lists resource followed by the resources it inherits from, most
// specific first.
func lineage(resource string) []string {
	out := []string{resource}

	prefix, rest := "", resource
	for _, p := range componentPrefixes {
		if strings.HasPrefix(resource, p+"/") {
			prefix, rest = p, strings.TrimPrefix(resource, p)
			break
		}
	}

	segs := strings.Split(strings.Trim(rest, "/"), "/")
	if len(segs) == 2 {
		switch {
		case flowComponents[segs[0]]:
			if root := prefix + "/process-groups/root"; root != resource {
				out = append(out, root)
			}
		case controllerComponents[segs[0]] && (prefix == "" || prefix == "/policies"):
			out = append(out, prefix+"/controller")
		case segs[0] == "parameter-contexts" && (prefix == "" || prefix == "/policies"):
			out = append(out, prefix+"/parameter-contexts")
		}
	}
	if prefix == "/policies" {
		out = append(out, "/policies")
	}
	return out
}

// Policy finds the policy governing action on resource: its own, or the
// nearest inherited one.
func (s *Store) Policy(action api.Action, resource string) (api.AccessPolicyEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resource = normalize(resource)
	if s.forbidden[resource] {
		return api.AccessPolicyEntity{}, fmt.Errorf("%s %s: %w", action, resource, ErrForbidden)
	}
	for _, r := range lineage(resource) {
		if p, ok := s.policyFor(action, r); ok {
			p.GeneratedAt = s.now().UTC().Format("15:04:05 MST")
			return p, nil
		}
	}
	return api.AccessPolicyEntity{}, fmt.Errorf("no policy for %s %s: %w", action, resource, ErrNotFound)
}

func (s *Store) policyFor(action api.Action, resource string) (api.AccessPolicyEntity, bool) {
	for _, p := range s.policies {
		if p.Component.Action == action && p.Component.Resource == resource {
			return p, true
		}
	}
	return api.AccessPolicyEntity{}, false
}

func newPolicy(id string, action api.Action, resource string, users, groups []api.TenantEntity, rev api.Revision) api.AccessPolicyEntity {
	return api.AccessPolicyEntity{
		ID:          id,
		URI:         "/policies/" + id,
		Revision:    rev,
		Permissions: api.Permissions{CanRead: true, CanWrite: true},
		Component: api.AccessPolicy{
			ID:           id,
			Action:       action,
			Resource:     resource,
			Users:        users,
			UserGroups:   groups,
			Configurable: true,
		},
	}
}

func (s *Store) resolve(all, given []api.TenantEntity, kind string) ([]api.TenantEntity, error) {
	ids := make([]string, 0, len(given))
	for _, t := range given {
		if len(pick(all, []string{t.ID})) == 0 {
			return nil, fmt.Errorf("%w: unknown %s %s", ErrInvalid, kind, t.ID)
		}
		ids = append(ids, t.ID)
	}
	return pick(all, ids), nil
}

// CreatePolicy adds a policy for a resource that has none of its own.
func (s *Store) CreatePolicy(action api.Action, resource string, users, groups []api.TenantEntity, rev api.Revision) (api.AccessPolicyEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkRevision(api.Revision{}, rev); err != nil {
		return api.AccessPolicyEntity{}, err
	}
	resource = normalize(resource)
	if _, ok := s.policyFor(action, resource); ok {
		return api.AccessPolicyEntity{}, fmt.Errorf("%w: a policy for %s %s already exists", ErrConflict, action, resource)
	}
	u, err := s.resolve(s.users, users, "user")
	if err != nil {
		return api.AccessPolicyEntity{}, err
	}
	g, err := s.resolve(s.userGroups, groups, "user group")
	if err != nil {
		return api.AccessPolicyEntity{}, err
	}
	id := uuid.NewString()
	p := newPolicy(id, action, resource, u, g, rev.Next(rev.ClientID))
	s.policies[id] = p
	return p, nil
}

// UpdatePolicy replaces the users and groups of a policy.
func (s *Store) UpdatePolicy(id string, rev api.Revision, users, groups []api.TenantEntity) (api.AccessPolicyEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.policies[id]
	if !ok {
		return api.AccessPolicyEntity{}, fmt.Errorf("policy %s: %w", id, ErrNotFound)
	}
	if err := checkRevision(p.Revision, rev); err != nil {
		return api.AccessPolicyEntity{}, err
	}
	u, err := s.resolve(s.users, users, "user")
	if err != nil {
		return api.AccessPolicyEntity{}, err
	}
	g, err := s.resolve(s.userGroups, groups, "user group")
	if err != nil {
		return api.AccessPolicyEntity{}, err
	}
	p.Component.Users = u
	p.Component.UserGroups = g
	p.Revision = p.Revision.Next(rev.ClientID)
	s.policies[id] = p
	return p, nil
}

func (s *Store) DeletePolicy(id string, rev api.Revision) (api.AccessPolicyEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.policies[id]
	if !ok {
		return api.AccessPolicyEntity{}, fmt.Errorf("policy %s: %w", id, ErrNotFound)
	}
	if err := checkRevision(p.Revision, rev); err != nil {
		return api.AccessPolicyEntity{}, err
	}
	delete(s.policies, id)
	return p, nil
}

func (s *Store) Users() []api.TenantEntity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]api.TenantEntity{}, s.users...)
}

func (s *Store) UserGroups() []api.TenantEntity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]api.TenantEntity{}, s.userGroups...)
}

func componentKey(resource, id string) string {
	return strings.Trim(resource, "/") + "/" + id
}

// ComponentResources lists the resource types seeded components use.
func (s *Store) ComponentResources() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]bool{}
	var out []string
	for _, c := range s.components {
		r := strings.Trim(c.Resource, "/")
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	sort.Strings(out)
	return out
}

// Component returns the component a component policy targets. Unreadable
// components are forbidden.
func (s *Store) Component(resource, id string) (api.PolicyComponentEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.components[componentKey(resource, id)]
	if !ok {
		return api.PolicyComponentEntity{}, fmt.Errorf("%s %s: %w", resource, id, ErrNotFound)
	}
	if c.Readable != nil && !*c.Readable {
		return api.PolicyComponentEntity{}, fmt.Errorf("%s %s: %w", resource, id, ErrForbidden)
	}
	var e api.PolicyComponentEntity
	e.ID = c.ID
	e.Permissions = api.Permissions{CanRead: true, CanWrite: true}
	e.Component.ID = c.ID
	e.Component.Name = c.Name
	e.Component.AllowRemoteAccess = c.AllowRemoteAccess
	return e, nil
}

// =============================================================================
// Cluster
// =============================================================================

func (s *Store) clusterNode(i int, n SeedNode) api.ClusterNode {
	status := n.Status
	if status == "" {
		status = "CONNECTED"
	}
	return api.ClusterNode{
		NodeID:            n.ID,
		Address:           n.Address,
		APIPort:           n.APIPort,
		Status:            status,
		Roles:             append([]string(nil), n.Roles...),
		Heartbeat:         s.timestamp(),
		ActiveThreadCount: 2 + i,
		Queued:            fmt.Sprintf("%d / %d bytes", i*10, i*1024),
		NodeStartTime:     s.timestamp(),
	}
}

// Cluster returns the node summary. A store without nodes is standalone.
func (s *Store) Cluster() (api.Cluster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.nodes) == 0 {
		return api.Cluster{}, fmt.Errorf("%w: %w", ErrConflict, ErrNotClustered)
	}
	out := api.Cluster{Generated: s.now().UTC().Format("15:04:05 MST")}
	for i, n := range s.nodes {
		out.Nodes = append(out.Nodes, s.clusterNode(i, n))
	}
	return out, nil
}

func (s *Store) Node(id string) (api.ClusterNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.nodes) == 0 {
		return api.ClusterNode{}, fmt.Errorf("%w: %w", ErrConflict, ErrNotClustered)
	}
	for i, n := range s.nodes {
		if n.ID == id {
			return s.clusterNode(i, n), nil
		}
	}
	return api.ClusterNode{}, fmt.Errorf("node %s: %w", id, ErrNotFound)
}

func snapshot(i int) api.SystemSnapshot {
	used := 256 + 64*i
	return api.SystemSnapshot{
		AvailableProcessors:  4,
		ProcessorLoadAverage: 0.5 + 0.25*float64(i),
		TotalHeap:            "1 GB",
		UsedHeap:             fmt.Sprintf("%d MB", used),
		MaxHeap:              "2 GB",
		HeapUtilization:      fmt.Sprintf("%d%%", used*100/2048),
		TotalNonHeap:         "128 MB",
		UsedNonHeap:          "96 MB",
		TotalThreads:         80 + i,
		DaemonThreads:        40,
		Uptime:               fmt.Sprintf("%02d:00:00.000", 1+i),
		GarbageCollection: []api.GarbageCollection{
			{Name: "G1 Young Generation", CollectionCount: int64(10 + i), CollectionTime: "120 millis"},
			{Name: "G1 Old Generation", CollectionCount: 0, CollectionTime: "0 millis"},
		},
	}
}

// Diagnostics returns the aggregate snapshot, plus one snapshot per node when
// nodewise is set and the store is clustered.
func (s *Store) Diagnostics(nodewise bool) api.SystemDiagnostics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agg := snapshot(0)
	agg.StatsLastRefreshed = s.now().UTC().Format("15:04:05 MST")
	if len(s.nodes) > 0 {
		agg.AvailableProcessors *= len(s.nodes)
	}
	out := api.SystemDiagnostics{AggregateSnapshot: agg}
	if !nodewise {
		return out
	}
	for i, n := range s.nodes {
		snap := snapshot(i)
		snap.StatsLastRefreshed = agg.StatsLastRefreshed
		out.NodeSnapshots = append(out.NodeSnapshots, api.NodeSnapshot{
			NodeID: n.ID, Address: n.Address, APIPort: n.APIPort, Snapshot: snap,
		})
	}
	return out
}
