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
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/flowadmin/flowadmin/cmd/flowadmin/internal/routing"
	"github.com/flowadmin/flowadmin/cmd/flowadmin/internal/state"
	"github.com/flowadmin/flowadmin/pkg/api"
	"github.com/flowadmin/flowadmin/pkg/client"
	"github.com/flowadmin/flowadmin/pkg/poll"
)

const (
	pollKindApply = "apply-parameters"

	// cleanupTimeout bounds the delete of a finished apply request.
	cleanupTimeout = 10 * time.Second

	noPermissionContexts   = "You do not have permissions to modify one or more synced parameter contexts."
	noPermissionComponents = "You do not have permissions to modify one or more affected components."
)

var (
	// ErrNoApplyRequest is returned when polling is asked for without a tracked request.
	ErrNoApplyRequest = errors.New("no apply request is being tracked")

	// ErrUpdateInProgress is returned when an apply is submitted while another is tracked.
	ErrUpdateInProgress = errors.New("an apply request is already in progress")
)

type applyTracker = poll.Tracker[api.ParameterProviderApplyParametersRequest]

// ParameterProviders is the controller of the parameter providers page.
//
// # Thread Safety
//
// Safe for concurrent use. Poll callbacks run on the tracker's goroutine.
type ParameterProviders struct {
	svc   ParameterProviderService
	store *state.ParameterProviders
	cache *state.Cache
	deps  Deps

	mu      sync.Mutex
	tracker *applyTracker
}

// NewParameterProviders creates the controller. cache may be nil.
func NewParameterProviders(svc ParameterProviderService, store *state.ParameterProviders, cache *state.Cache, deps Deps) *ParameterProviders {
	return &ParameterProviders{
		svc:   svc,
		store: store,
		cache: cache,
		deps:  deps.withDefaults(),
	}
}

// Store returns the backing store.
func (c *ParameterProviders) Store() *state.ParameterProviders {
	return c.store
}

// =============================================================================
// Listing
// =============================================================================

// Load refreshes the provider listing.
//
// # Description
//
// A failure on first load replaces the view with a full-screen error. Once the
// listing has loaded, contextual failures are shown as a snackbar and the
// stale listing stays visible. A successful listing is written to the
// snapshot cache.
func (c *ParameterProviders) Load(ctx context.Context) error {
	prev := c.store.Snapshot().Status
	c.store.LoadStarted()

	resp, err := c.svc.ListParameterProviders(ctx)
	if err != nil {
		c.store.LoadFailed()
		c.loadingError(prev, err)
		return err
	}
	c.store.LoadSuccess(*resp)
	if err := c.cache.SaveProviders(*resp); err != nil {
		c.deps.Logger.Warn("saving provider snapshot failed", slog.String("error", err.Error()))
	}
	return nil
}

// LoadOffline fills the store from the snapshot cache.
func (c *ParameterProviders) LoadOffline() (time.Time, error) {
	resp, savedAt, err := c.cache.LoadProviders()
	if err != nil {
		return time.Time{}, err
	}
	c.store.LoadSuccess(resp)
	return savedAt, nil
}

// LoadTypes loads the provider types used by the create dialog.
func (c *ParameterProviders) LoadTypes(ctx context.Context) error {
	types, err := c.svc.ListParameterProviderTypes(ctx)
	if err != nil {
		c.loadingError(c.store.Snapshot().Status, err)
		return err
	}
	c.store.TypesLoaded(types)
	if err := c.cache.SaveProviderTypes(types); err != nil {
		c.deps.Logger.Warn("saving provider types snapshot failed", slog.String("error", err.Error()))
	}
	return nil
}

// Select navigates to the listing with id selected.
func (c *ParameterProviders) Select(ctx context.Context, id string) error {
	return c.deps.Navigator.Navigate(ctx, routing.ParameterProvider(id))
}

// =============================================================================
// Create / Delete
// =============================================================================

// OpenNewDialog asks the operator for a provider type and creates it.
func (c *ParameterProviders) OpenNewDialog(ctx context.Context) (*api.ParameterProviderEntity, error) {
	types := c.store.Snapshot().Types
	if len(types) == 0 {
		if err := c.LoadTypes(ctx); err != nil {
			return nil, err
		}
		types = c.store.Snapshot().Types
	}

	dlg := c.deps.Dialogs.Open("", DialogCreateParameterProvider, nil)
	chosen, err := c.deps.Prompter.SelectType(ctx, types)
	if err != nil {
		c.deps.Dialogs.Close(dlg.ID, "")
		return nil, err
	}

	return c.Create(ctx, api.CreateParameterProviderRequest{
		ParameterProviderType:   chosen.Type,
		ParameterProviderBundle: chosen.Bundle,
		Revision:                api.Revision{Version: 0},
	})
}

// Create creates a provider.
//
// Either way every dialog is closed. On success the new provider is
// selected; on failure the error is shown as a snackbar.
func (c *ParameterProviders) Create(ctx context.Context, req api.CreateParameterProviderRequest) (*api.ParameterProviderEntity, error) {
	c.store.SetSaving(true)
	entity, err := c.svc.CreateParameterProvider(ctx, req)
	if err != nil {
		c.store.APIError()
		c.deps.Dialogs.CloseAll()
		c.deps.Notifier.SnackBar(client.ErrorString(err, ""))
		return nil, err
	}

	c.store.CreateSuccess(*entity)
	c.deps.Dialogs.CloseAll()
	return entity, c.Select(ctx, entity.ID)
}

// PromptDeletion asks for confirmation, then deletes.
func (c *ParameterProviders) PromptDeletion(ctx context.Context, entity api.ParameterProviderEntity) error {
	ok, err := c.deps.Prompter.Confirm(ctx, "Delete Parameter Provider",
		fmt.Sprintf("Delete parameter provider %s?", entity.Component.Name))
	if err != nil {
		return err
	}
	if !ok {
		return ErrDeclined
	}
	return c.Delete(ctx, entity)
}

// Delete deletes a provider at the revision it was read at.
func (c *ParameterProviders) Delete(ctx context.Context, entity api.ParameterProviderEntity) error {
	if _, err := c.svc.DeleteParameterProvider(ctx, entity); err != nil {
		c.deps.Notifier.SnackBar(client.ErrorString(err, ""))
		return err
	}
	c.store.DeleteSuccess(entity.ID)
	return nil
}

// =============================================================================
// Navigation
// =============================================================================

func (c *ParameterProviders) NavigateToEdit(ctx context.Context, id string) error {
	return c.deps.Navigator.Navigate(ctx, routing.EditParameterProvider(id))
}

func (c *ParameterProviders) NavigateToAdvancedUI(ctx context.Context, id string) error {
	return c.deps.Navigator.Navigate(ctx, routing.AdvancedParameterProvider(id))
}

func (c *ParameterProviders) NavigateToFetch(ctx context.Context, id string) error {
	return c.deps.Navigator.Navigate(ctx, routing.FetchParameterProvider(id))
}

// =============================================================================
// Configure
// =============================================================================

// OpenConfigureDialog loads the provider's property history and opens the
// configure dialog.
//
// # Description
//
// If the history cannot be loaded the provider is re-selected, the error is
// shown as a snackbar and no dialog opens. Closing the dialog clears banners
// and, unless it closed because the view navigated, re-selects the provider.
func (c *ParameterProviders) OpenConfigureDialog(ctx context.Context, req api.EditParameterProviderRequest) (*EditSession, error) {
	history, err := c.svc.GetComponentHistory(ctx, req.ID)
	if err != nil {
		_ = c.Select(ctx, req.ID)
		c.deps.Notifier.SnackBar(client.ErrorString(err, ""))
		return nil, err
	}
	req.History = &history.ComponentHistory

	bg := context.WithoutCancel(ctx)
	id := req.ID
	dlg := c.deps.Dialogs.Open(id, DialogEditParameterProvider, func(result string) {
		c.deps.Notifier.ClearBanners()
		if result != Routed {
			_ = c.Select(bg, id)
		}
	})
	return &EditSession{c: c, Request: req, dialog: dlg}, nil
}

// Configure submits a configuration change.
//
// # Description
//
// On success the listing entry is replaced. If the request carries a
// post-update navigation the console navigates there and closes the edit
// dialog as routed, otherwise every dialog closes. Failures whose status
// belongs in context become a banner in the dialog; any other failure
// closes the dialog as routed and shows a full-screen error.
//
// # Outputs
//
//   - error: client.ErrEntityMismatch when the payload names another provider.
func (c *ParameterProviders) Configure(ctx context.Context, req api.ConfigureParameterProviderRequest) (*api.ParameterProviderEntity, error) {
	if err := api.Validate(req); err != nil {
		return nil, err
	}
	if cid := req.Payload.Component.ID; cid != "" && cid != req.ID {
		err := fmt.Errorf("configure %s with component %s: %w", req.ID, cid, client.ErrEntityMismatch)
		c.BannerAPIError(err.Error())
		return nil, err
	}

	c.store.SetSaving(true)
	entity, err := c.svc.UpdateParameterProvider(ctx, req.ID, req.Payload)
	if err != nil {
		c.store.APIError()
		if status, _ := client.StatusCode(err); client.ShowErrorInContext(status) {
			c.BannerAPIError(client.ErrorString(err, ""))
		} else {
			c.deps.Dialogs.Close(req.ID, Routed)
			c.deps.Notifier.FullScreen(err)
		}
		return nil, err
	}

	c.store.Upsert(*entity)
	if len(req.PostUpdateNavigation) > 0 {
		navErr := c.deps.Navigator.Navigate(ctx, req.PostUpdateNavigation)
		c.deps.Dialogs.Close(req.ID, Routed)
		return entity, navErr
	}
	c.deps.Dialogs.CloseAll()
	return entity, nil
}

// EditSession is an open configure dialog.
type EditSession struct {
	c       *ParameterProviders
	Request api.EditParameterProviderRequest
	dialog  *Dialog

	mu      sync.Mutex
	pending *api.ParameterProviderPayload
}

// Edit records an unsaved change. The session is dirty until it is submitted.
func (s *EditSession) Edit(payload api.ParameterProviderPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = &payload
}

// Dirty reports whether the form holds unsaved changes.
func (s *EditSession) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// Dialog returns the dialog backing the session.
func (s *EditSession) Dialog() *Dialog {
	return s.dialog
}

// Submit configures the provider the dialog was opened for.
func (s *EditSession) Submit(ctx context.Context, update api.UpdateParameterProviderRequest) (*api.ParameterProviderEntity, error) {
	entity, err := s.c.Configure(ctx, api.ConfigureParameterProviderRequest{
		ID:                   s.Request.ParameterProvider.ID,
		URI:                  s.Request.ParameterProvider.URI,
		Payload:              update.Payload,
		PostUpdateNavigation: update.PostUpdateNavigation,
	})
	if err == nil {
		s.mu.Lock()
		s.pending = nil
		s.mu.Unlock()
	}
	return entity, err
}

// GoToReferencingParameterContext leaves the dialog for a parameter context.
func (s *EditSession) GoToReferencingParameterContext(ctx context.Context, id string) error {
	return s.goTo(ctx, routing.ParameterContext(id), "Parameter Context")
}

// GoToService leaves the dialog for a controller service.
func (s *EditSession) GoToService(ctx context.Context, serviceID string) error {
	return s.goTo(ctx, routing.ManagementControllerService(serviceID), "Controller Service")
}

// goTo navigates away from the dialog, offering to save unsaved changes first.
func (s *EditSession) goTo(ctx context.Context, commands []string, destination string) error {
	s.mu.Lock()
	pending := s.pending
	s.mu.Unlock()

	if pending != nil {
		save, err := s.c.deps.Prompter.Confirm(ctx, "Parameter Provider Configuration",
			fmt.Sprintf("Save changes before going to this %s", destination))
		if err != nil {
			return err
		}
		if save {
			_, err := s.Submit(ctx, api.UpdateParameterProviderRequest{
				Payload:              *pending,
				PostUpdateNavigation: commands,
			})
			return err
		}
	}
	s.Close(Routed)
	return s.c.deps.Navigator.Navigate(ctx, commands)
}

// Close closes the dialog with result.
func (s *EditSession) Close(result string) {
	s.c.deps.Dialogs.Close(s.dialog.ID, result)
}

// =============================================================================
// Fetch / Apply
// =============================================================================

// FetchParametersAndOpenDialog fetches the provider's parameters and opens
// the fetch dialog with the result.
func (c *ParameterProviders) FetchParametersAndOpenDialog(ctx context.Context, req api.FetchParameterProviderParametersRequest) (*FetchSession, error) {
	entity, err := c.svc.FetchParameters(ctx, req)
	if err != nil {
		if status, _ := client.StatusCode(err); client.ShowErrorInContext(status) {
			_ = c.Select(ctx, req.ID)
			c.deps.Notifier.SnackBar(client.ErrorString(err, ""))
		} else {
			c.deps.Notifier.FullScreen(err)
		}
		return nil, err
	}
	c.store.FetchSuccess(*entity)
	return c.OpenFetchDialog(ctx, *entity), nil
}

// OpenFetchDialog opens the fetch dialog for a fetched provider.
//
// # Description
//
// A banner is raised when any synced parameter context or affected component
// is not both readable and writable. Closing the dialog forgets the fetched
// provider, clears banners, stops any apply in progress and, unless the
// dialog closed because the view navigated, re-selects the provider.
func (c *ParameterProviders) OpenFetchDialog(ctx context.Context, entity api.ParameterProviderEntity) *FetchSession {
	bg := context.WithoutCancel(ctx)
	id := entity.ID
	dlg := c.deps.Dialogs.Open("fetch-"+id, DialogFetchParameters, func(result string) {
		c.store.ResetFetched()
		c.deps.Notifier.ClearBanners()
		if result != Routed {
			_ = c.Select(bg, id)
			c.StopPolling()
			c.store.UpdateComplete()
		}
	})

	if refs := entity.Component.ReferencingParameterContexts; len(refs) > 0 {
		for _, r := range refs {
			if !r.Permissions.ReadWrite() {
				c.BannerAPIError(noPermissionContexts)
				break
			}
		}
	}
	if affected := entity.Component.AffectedComponents; len(affected) > 0 {
		for _, a := range affected {
			if !a.Permissions.ReadWrite() {
				c.BannerAPIError(noPermissionComponents)
				break
			}
		}
	}

	return &FetchSession{c: c, Entity: entity, dialog: dlg}
}

// FetchSession is an open fetch dialog.
type FetchSession struct {
	c      *ParameterProviders
	Entity api.ParameterProviderEntity
	dialog *Dialog
}

// Submit applies the fetched parameters with configs.
func (s *FetchSession) Submit(ctx context.Context, configs []api.ParameterGroupConfiguration) error {
	return s.c.SubmitParametersUpdate(ctx, api.ApplyParametersRequest{
		ID:                           s.Entity.ID,
		Revision:                     s.Entity.Revision,
		ParameterGroupConfigurations: configs,
	})
}

// Wait blocks until the apply started by Submit finishes.
func (s *FetchSession) Wait(ctx context.Context) (*api.ParameterProviderApplyParametersRequest, error) {
	return s.c.WaitForUpdate(ctx)
}

// Dialog returns the dialog backing the session.
func (s *FetchSession) Dialog() *Dialog {
	return s.dialog
}

// Close closes the dialog with result.
func (s *FetchSession) Close(result string) {
	s.c.deps.Dialogs.Close(s.dialog.ID, result)
}

// BannerAPIError shows message in the open dialog and stops any polling.
func (c *ParameterProviders) BannerAPIError(message string) {
	c.StopPolling()
	c.deps.Notifier.Banner(message)
}

// SubmitParametersUpdate submits an apply request and follows it.
//
// # Description
//
// The request is submitted synchronously. A response that is already
// complete is deleted right away; otherwise the request is polled every
// PollInterval until it completes. Submit and poll failures become a banner
// and stop polling. Whatever the outcome, the server-side request is deleted
// once following stops. Use WaitForUpdate to block for the outcome.
//
// # Outputs
//
//   - error: ErrUpdateInProgress when another apply is being followed, or the
//     submission error.
func (c *ParameterProviders) SubmitParametersUpdate(ctx context.Context, req api.ApplyParametersRequest) error {
	if err := api.Validate(req); err != nil {
		return err
	}
	c.store.SetSaving(true)
	return c.follow(ctx, func(ctx context.Context) (api.ParameterProviderApplyParametersRequest, bool, error) {
		resp, err := c.svc.ApplyParameters(ctx, req)
		if err != nil {
			return api.ParameterProviderApplyParametersRequest{}, false, err
		}
		if resp.ParameterProviderID == "" {
			resp.ParameterProviderID = req.ID
		}
		c.store.ApplyRequestUpdated(*resp)
		return *resp, resp.Complete, nil
	})
}

// StartPolling follows the apply request already tracked in the store, for
// example one restored after the submitting command exited.
func (c *ParameterProviders) StartPolling(ctx context.Context) error {
	tracked := c.store.ApplyRequest()
	if tracked == nil {
		return ErrNoApplyRequest
	}
	current := *tracked
	return c.follow(ctx, func(context.Context) (api.ParameterProviderApplyParametersRequest, bool, error) {
		return current, current.Complete, nil
	})
}

// ownedRequest is the apply request one tracker submitted or resumed.
type ownedRequest struct {
	mu  sync.Mutex
	req *api.ParameterProviderApplyParametersRequest
}

func (o *ownedRequest) set(req api.ParameterProviderApplyParametersRequest) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.req = &req
}

func (o *ownedRequest) get() *api.ParameterProviderApplyParametersRequest {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.req
}

// follow tracks the request returned by submit. The tracker's stop hook only
// deletes the request that tracker owns, so a late hook of a finished apply
// cannot remove the request of the next one.
func (c *ParameterProviders) follow(ctx context.Context, submit poll.CheckFunc[api.ParameterProviderApplyParametersRequest]) error {
	// bg outlives the caller's context so a finished request is still
	// deleted after the command that submitted it returns.
	bg := context.WithoutCancel(ctx)
	owned := &ownedRequest{}

	t, err := poll.NewTracker(c.deps.PollInterval, c.Poll, poll.Hooks[api.ParameterProviderApplyParametersRequest]{
		OnComplete: func(api.ParameterProviderApplyParametersRequest) {
			c.deps.Metrics.RecordPollOutcome(bg, pollKindApply, poll.Complete.String())
			c.store.SetSaving(false)
		},
		OnError: func(err error) {
			c.deps.Metrics.RecordPollOutcome(bg, pollKindApply, poll.Errored.String())
			c.store.APIError()
			c.BannerAPIError(client.ErrorString(err, ""))
		},
		OnStop: func() {
			c.deleteOwnedRequest(bg, owned.get())
		},
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.tracker != nil && !stopped(c.tracker) {
		c.mu.Unlock()
		return ErrUpdateInProgress
	}
	c.tracker = t
	c.mu.Unlock()

	return t.Submit(ctx, func(ctx context.Context) (api.ParameterProviderApplyParametersRequest, bool, error) {
		v, done, err := submit(ctx)
		if err != nil {
			return v, done, err
		}
		owned.set(v)
		if t.State().Terminal() {
			// Stopped while the submission was in flight; the stop hook
			// has already run without a request to delete.
			c.deleteOwnedRequest(bg, &v)
		}
		return v, done, nil
	})
}

// stopped reports whether t has finished, hooks included.
func stopped(t *applyTracker) bool {
	select {
	case <-t.Done():
		return true
	default:
		return false
	}
}

// Poll checks the tracked apply request once.
//
// The check reports done when the server marks the request complete. With no
// tracked request it reports not done, so the poll loop idles until one is.
func (c *ParameterProviders) Poll(ctx context.Context) (api.ParameterProviderApplyParametersRequest, bool, error) {
	tracked := c.store.ApplyRequest()
	if tracked == nil {
		return api.ParameterProviderApplyParametersRequest{}, false, nil
	}
	c.deps.Metrics.RecordPollCheck(ctx, pollKindApply)

	resp, err := c.svc.PollApplyParametersRequest(ctx, tracked.ParameterProviderID, tracked.RequestID)
	if err != nil {
		return *tracked, false, err
	}
	if resp.ParameterProviderID == "" {
		resp.ParameterProviderID = tracked.ParameterProviderID
	}
	c.store.ApplyRequestUpdated(*resp)
	return *resp, resp.Complete, nil
}

// StopPolling stops following the apply request. The tracker's stop hook
// deletes the server-side request.
func (c *ParameterProviders) StopPolling() {
	c.mu.Lock()
	t := c.tracker
	c.mu.Unlock()
	if t != nil {
		t.Cancel()
	}
}

// DeleteUpdateRequest stops tracking the apply request and deletes it on the
// server. Delete failures are logged and otherwise ignored.
func (c *ParameterProviders) DeleteUpdateRequest(ctx context.Context) {
	c.deleteRequest(ctx, c.store.ClearApplyRequest())
}

// deleteOwnedRequest deletes req on the server and stops tracking it only if
// it is still the tracked request.
func (c *ParameterProviders) deleteOwnedRequest(ctx context.Context, req *api.ParameterProviderApplyParametersRequest) {
	if req == nil {
		return
	}
	c.store.ClearApplyRequestIf(req.RequestID)
	c.deleteRequest(ctx, req)
}

func (c *ParameterProviders) deleteRequest(ctx context.Context, req *api.ParameterProviderApplyParametersRequest) {
	if req == nil || req.RequestID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, cleanupTimeout)
	defer cancel()
	if _, err := c.svc.DeleteApplyParametersRequest(ctx, req.ParameterProviderID, req.RequestID); err != nil {
		c.deps.Logger.Warn("deleting apply request failed",
			slog.String("request_id", req.RequestID),
			slog.String("error", err.Error()))
	}
}

// WaitForUpdate blocks until the followed apply request stops.
//
// # Outputs
//
//   - *api.ParameterProviderApplyParametersRequest: The last state seen.
//   - error: ErrNoApplyRequest when nothing was submitted, the poll error,
//     context.Canceled when polling was stopped, or ctx.Err().
func (c *ParameterProviders) WaitForUpdate(ctx context.Context) (*api.ParameterProviderApplyParametersRequest, error) {
	c.mu.Lock()
	t := c.tracker
	c.mu.Unlock()
	if t == nil {
		return nil, ErrNoApplyRequest
	}
	req, err := t.Wait(ctx)
	if !t.State().Terminal() {
		return nil, err
	}
	return &req, err
}

// UpdateState reports the state of the followed apply request.
func (c *ParameterProviders) UpdateState() poll.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tracker == nil {
		return poll.Idle
	}
	return c.tracker.State()
}

// loadingError reports a listing failure according to how far loading got.
func (c *ParameterProviders) loadingError(prev state.Status, err error) {
	status, _ := client.StatusCode(err)
	if prev == state.StatusSuccess && client.ShowErrorInContext(status) {
		c.deps.Notifier.SnackBar(client.ErrorString(err, ""))
		return
	}
	c.deps.Notifier.FullScreen(err)
}
