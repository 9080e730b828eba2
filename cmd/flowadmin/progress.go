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
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/flowadmin/flowadmin/cmd/flowadmin/internal/console"
	"github.com/flowadmin/flowadmin/pkg/api"
	"github.com/flowadmin/flowadmin/pkg/poll"
	"github.com/flowadmin/flowadmin/pkg/ux"
)

// progressRefresh is how often the view re-reads the store. Polling itself
// is paced by the controller.
const progressRefresh = 150 * time.Millisecond

type applyTickMsg time.Time

// applySnapshot reads the tracked request and the tracker state.
type applySnapshot func() (*api.ParameterProviderApplyParametersRequest, poll.State)

// applyProgressModel draws a spinner, a progress bar and the current update
// step while an apply request is followed. It never polls the server.
type applyProgressModel struct {
	title    string
	snapshot applySnapshot
	spinner  spinner.Model
	bar      progress.Model

	last    api.ParameterProviderApplyParametersRequest
	state   poll.State
	aborted bool
}

func newApplyProgressModel(title string, snapshot applySnapshot) applyProgressModel {
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = lipgloss.NewStyle().Foreground(ux.ColorPrimary)
	return applyProgressModel{
		title:    title,
		snapshot: snapshot,
		spinner:  s,
		bar:      progress.New(progress.WithGradient(string(ux.ColorBorder), string(ux.ColorBright)), progress.WithWidth(40)),
		state:    poll.Submitted,
	}
}

func tickApply() tea.Cmd {
	return tea.Tick(progressRefresh, func(t time.Time) tea.Msg { return applyTickMsg(t) })
}

func (m applyProgressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickApply())
}

func (m applyProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.aborted = true
			return m, tea.Quit
		}
		return m, nil

	case applyTickMsg:
		m = m.refresh()
		if m.state.Terminal() {
			return m, tea.Quit
		}
		return m, tickApply()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// refresh keeps the last request seen; the store forgets it once the
// request is deleted.
func (m applyProgressModel) refresh() applyProgressModel {
	req, st := m.snapshot()
	if req != nil {
		m.last = *req
	}
	m.state = st
	return m
}

func (m applyProgressModel) View() string {
	pct := float64(m.last.PercentCompleted) / 100
	if m.state == poll.Complete {
		pct = 1
	}

	var b strings.Builder
	if m.state.Terminal() {
		fmt.Fprintf(&b, "%s %s\n", stateIcon(m.state).Render(), m.title)
	} else {
		fmt.Fprintf(&b, "%s %s\n", m.spinner.View(), m.title)
	}
	fmt.Fprintf(&b, "  %s\n", m.bar.ViewAs(pct))
	if step := currentStep(m.last); step != "" && !m.state.Terminal() {
		fmt.Fprintf(&b, "  %s\n", lipgloss.NewStyle().Foreground(ux.ColorSlate).Render(step))
	}
	return b.String()
}

func stateIcon(s poll.State) ux.Icon {
	switch s {
	case poll.Complete:
		return ux.IconSuccess
	case poll.Errored:
		return ux.IconError
	default:
		return ux.IconWarning
	}
}

// currentStep is the first update step not yet complete.
func currentStep(req api.ParameterProviderApplyParametersRequest) string {
	for _, s := range req.UpdateSteps {
		if !s.Complete {
			return s.Description
		}
	}
	return ""
}

// followApply blocks until the apply request the controller is following
// stops, drawing progress when the terminal allows it. Esc or Ctrl+C stops
// polling, which deletes the request on the server.
func followApply(ctx context.Context, providers *console.ParameterProviders, interactive bool) (*api.ParameterProviderApplyParametersRequest, error) {
	if interactive && ux.ShouldShowProgress() {
		m := newApplyProgressModel("Applying parameters", func() (*api.ParameterProviderApplyParametersRequest, poll.State) {
			return providers.Store().ApplyRequest(), providers.UpdateState()
		})
		final, err := tea.NewProgram(m, tea.WithContext(ctx), tea.WithOutput(os.Stderr)).Run()
		if err != nil {
			providers.StopPolling()
		} else if fm, ok := final.(applyProgressModel); ok && fm.aborted {
			providers.StopPolling()
		}
	}
	return providers.WaitForUpdate(ctx)
}
