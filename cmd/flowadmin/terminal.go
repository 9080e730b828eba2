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
	"log/slog"
	"sync"

	"github.com/charmbracelet/huh"
	"github.com/flowadmin/flowadmin/cmd/flowadmin/internal/console"
	"github.com/flowadmin/flowadmin/cmd/flowadmin/internal/routing"
	"github.com/flowadmin/flowadmin/pkg/api"
	"github.com/flowadmin/flowadmin/pkg/ux"
)

// errNeedsTerminal is returned by prompts that cannot be answered without a TTY.
var errNeedsTerminal = errors.New("an interactive terminal is required (or pass the matching flags)")

// terminal is the console's window on the operator: it prints navigations
// and notifications through ux.Output and asks questions with huh forms.
//
// Without a TTY, Confirm answers from --yes and the other prompts fail with
// errNeedsTerminal wrapped in console.ErrDeclined.
type terminal struct {
	out         *ux.Output
	logger      *slog.Logger
	interactive bool
	assumeYes   bool

	mu       sync.Mutex
	location string
	banners  []string
	// surfaced counts errors already shown to the operator, so main does
	// not print them a second time.
	surfaced int
}

func newTerminal(out *ux.Output, logger *slog.Logger, interactive, assumeYes bool) *terminal {
	return &terminal{out: out, logger: logger, interactive: interactive, assumeYes: assumeYes}
}

// -----------------------------------------------------------------------------
// console.Navigator
// -----------------------------------------------------------------------------

func (t *terminal) Navigate(_ context.Context, commands []string) error {
	path := routing.Join(commands)
	if _, err := routing.Resolve(routing.App, path); err != nil {
		return err
	}
	t.mu.Lock()
	t.location = path
	t.mu.Unlock()
	t.logger.Debug("navigate", "path", path)
	if ux.GetPersonality().Level == ux.PersonalityFull {
		t.out.Info(fmt.Sprintf("%s %s", ux.IconArrow.Render(), path))
	}
	return nil
}

// Location is the last path navigated to.
func (t *terminal) Location() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.location
}

// -----------------------------------------------------------------------------
// console.Notifier
// -----------------------------------------------------------------------------

func (t *terminal) SnackBar(message string) {
	t.mark()
	t.out.Warning(message)
}

func (t *terminal) Banner(message string) {
	t.mu.Lock()
	t.banners = append(t.banners, message)
	t.surfaced++
	t.mu.Unlock()
	t.out.ErrorBox("Error", message)
}

func (t *terminal) ClearBanners() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.banners = nil
}

func (t *terminal) FullScreen(err error) {
	t.mark()
	t.out.ErrorBox("An unexpected error has occurred", err.Error())
}

// Banners returns the banners raised since the last clear.
func (t *terminal) Banners() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.banners...)
}

// Surfaced reports how many errors were already shown.
func (t *terminal) Surfaced() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.surfaced
}

func (t *terminal) mark() {
	t.mu.Lock()
	t.surfaced++
	t.mu.Unlock()
}

// -----------------------------------------------------------------------------
// console.Prompter
// -----------------------------------------------------------------------------

func (t *terminal) Confirm(ctx context.Context, title, message string) (bool, error) {
	if t.assumeYes {
		return true, nil
	}
	if !t.interactive {
		return false, fmt.Errorf("%s: pass --yes to confirm: %w", title, console.ErrDeclined)
	}
	var ok bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().Title(title).Description(message).Affirmative("Yes").Negative("No").Value(&ok),
	))
	if err := form.RunWithContext(ctx); err != nil {
		return false, declined(err)
	}
	return ok, nil
}

func (t *terminal) SelectType(ctx context.Context, types []api.DocumentedType) (api.DocumentedType, error) {
	if !t.interactive {
		return api.DocumentedType{}, fmt.Errorf("select parameter provider type: %w: %w", errNeedsTerminal, console.ErrDeclined)
	}
	if len(types) == 0 {
		return api.DocumentedType{}, errors.New("the server reports no parameter provider types")
	}
	opts := make([]huh.Option[int], len(types))
	for i, typ := range types {
		opts[i] = huh.NewOption(fmt.Sprintf("%s  (%s)", typ.ShortName(), typ.Bundle), i)
	}
	var idx int
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[int]().Title("Add Parameter Provider").Options(opts...).Value(&idx),
	))
	if err := form.RunWithContext(ctx); err != nil {
		return api.DocumentedType{}, declined(err)
	}
	return types[idx], nil
}

func (t *terminal) SelectOverride(ctx context.Context) (console.OverrideChoice, error) {
	if !t.interactive {
		return 0, fmt.Errorf("override policy: %w: %w", errNeedsTerminal, console.ErrDeclined)
	}
	choice := console.OverrideCopy
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[console.OverrideChoice]().
			Title("Override Policy").
			Description("Do you want to override with a copy of the inherited policy or an empty policy?").
			Options(
				huh.NewOption("Copy", console.OverrideCopy),
				huh.NewOption("Empty", console.OverrideEmpty),
			).
			Value(&choice),
	))
	if err := form.RunWithContext(ctx); err != nil {
		return 0, declined(err)
	}
	return choice, nil
}

func (t *terminal) SelectTenants(ctx context.Context, users, groups []api.TenantEntity) ([]api.TenantEntity, []api.TenantEntity, error) {
	if !t.interactive {
		return nil, nil, fmt.Errorf("add users/groups: %w: %w", errNeedsTerminal, console.ErrDeclined)
	}
	if len(users) == 0 && len(groups) == 0 {
		return nil, nil, fmt.Errorf("every user and group is already on this policy: %w", console.ErrDeclined)
	}

	var userIdx, groupIdx []int
	var fields []huh.Field
	if len(users) > 0 {
		fields = append(fields, huh.NewMultiSelect[int]().Title("Users").Options(tenantOptions(users)...).Value(&userIdx))
	}
	if len(groups) > 0 {
		fields = append(fields, huh.NewMultiSelect[int]().Title("User Groups").Options(tenantOptions(groups)...).Value(&groupIdx))
	}
	if err := huh.NewForm(huh.NewGroup(fields...)).RunWithContext(ctx); err != nil {
		return nil, nil, declined(err)
	}
	return pickTenants(users, userIdx), pickTenants(groups, groupIdx), nil
}

func tenantOptions(tenants []api.TenantEntity) []huh.Option[int] {
	opts := make([]huh.Option[int], len(tenants))
	for i, t := range tenants {
		opts[i] = huh.NewOption(t.Identity(), i)
	}
	return opts
}

func pickTenants(all []api.TenantEntity, idx []int) []api.TenantEntity {
	out := make([]api.TenantEntity, 0, len(idx))
	for _, i := range idx {
		out = append(out, all[i])
	}
	return out
}

// declined maps a dismissed form to console.ErrDeclined.
func declined(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return console.ErrDeclined
	}
	return err
}
