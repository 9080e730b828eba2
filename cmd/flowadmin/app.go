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
	"sync"
	"time"

	"github.com/flowadmin/flowadmin/cmd/flowadmin/config"
	"github.com/flowadmin/flowadmin/cmd/flowadmin/internal/console"
	"github.com/flowadmin/flowadmin/cmd/flowadmin/internal/state"
	"github.com/flowadmin/flowadmin/pkg/client"
	"github.com/flowadmin/flowadmin/pkg/logging"
	"github.com/flowadmin/flowadmin/pkg/telemetry"
	"github.com/flowadmin/flowadmin/pkg/ux"
	"go.opentelemetry.io/otel"
)

const meterName = "github.com/flowadmin/flowadmin/cmd/flowadmin"

// app holds what one CLI invocation needs. The API session (client, cache,
// controllers) is built on first use so local commands never touch the
// network or the cache directory.
type app struct {
	cfg    config.FlowAdminConfig
	out    *ux.Output
	logger *logging.Logger
	term   *terminal

	shutdownTelemetry func(context.Context) error

	sessionOnce sync.Once
	sessionErr  error
	client      *client.Client
	cache       *state.Cache
	metrics     *telemetry.Metrics
	providers   *console.ParameterProviders
	policies    *console.AccessPolicies
	cluster     *console.Cluster

	policyState    *state.AccessPolicy
	componentState *state.PolicyComponent
	tenantState    *state.Tenants
}

// appOptions are the global flags that shape an invocation.
type appOptions struct {
	JSON      bool
	LogLevel  string
	URL       string
	AssumeYes bool
}

// newApp wires output, logging and telemetry from cfg and the global flags.
func newApp(ctx context.Context, cfg config.FlowAdminConfig, opts appOptions) (*app, error) {
	if opts.URL != "" {
		cfg.Server.URL = opts.URL
	}

	switch {
	case opts.JSON:
		ux.InitPersonality(true)
	case cfg.Output.Personality != "":
		ux.SetPersonalityLevel(ux.ParsePersonalityLevel(cfg.Output.Personality))
	default:
		ux.InitPersonality(false)
	}
	p := ux.GetPersonality()
	p.ShowTips = p.ShowTips && cfg.Output.Tips
	ux.SetPersonality(p)

	levelName := cfg.Logging.Level
	if opts.LogLevel != "" {
		levelName = opts.LogLevel
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	logger := logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: "flowadmin",
		JSON:    cfg.Logging.JSON,
		Quiet:   level > logging.LevelDebug && opts.JSON,
	})

	shutdown, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		logger.Warn("telemetry disabled", "error", err)
		shutdown = func(context.Context) error { return nil }
	}

	out := ux.Stdout()
	return &app{
		cfg:               cfg,
		out:               out,
		logger:            logger,
		term:              newTerminal(out, logger.Slog(), ux.IsInteractive(), opts.AssumeYes),
		shutdownTelemetry: shutdown,
	}, nil
}

// session connects to the management API and builds the controllers.
func (a *app) session() error {
	a.sessionOnce.Do(func() {
		a.sessionErr = a.openSession()
	})
	return a.sessionErr
}

func (a *app) openSession() error {
	m, err := telemetry.NewMetrics(otel.Meter(meterName))
	if err != nil {
		a.logger.Warn("client metrics disabled", "error", err)
	}
	a.metrics = m

	c, err := client.New(a.cfg.Server.URL,
		client.WithToken([]byte(a.cfg.Server.Token)),
		client.WithRateLimit(a.cfg.Server.RateLimit, a.cfg.Server.Burst),
		client.WithTimeout(a.cfg.Server.Timeout),
		client.WithLogger(a.logger.Slog()),
		client.WithUserAgent("flowadmin/"+Version),
		client.WithMetrics(m),
	)
	if err != nil {
		return err
	}
	a.client = c

	if a.cfg.Cache.Enabled {
		cc := state.DefaultCacheConfig(a.cfg.Cache.Dir)
		cc.TTL = a.cfg.Cache.TTL
		cc.Logger = a.logger.Slog()
		cache, err := state.OpenCache(cc)
		if err != nil {
			// Another process may hold the cache; carry on without snapshots.
			a.logger.Warn("snapshot cache unavailable", "dir", a.cfg.Cache.Dir, "error", err)
		} else {
			a.cache = cache
		}
	}

	deps := console.Deps{
		Navigator:    a.term,
		Notifier:     a.term,
		Prompter:     a.term,
		Dialogs:      console.NewDialogs(),
		PollInterval: a.cfg.Polling.Interval,
		Logger:       a.logger.Slog(),
		Metrics:      m,
	}
	a.providers = console.NewParameterProviders(c, state.NewParameterProviders(), a.cache, deps)
	a.policyState = state.NewAccessPolicy()
	a.componentState = state.NewPolicyComponent()
	a.tenantState = state.NewTenants()
	a.policies = console.NewAccessPolicies(c, a.policyState, a.componentState, a.tenantState, deps)
	a.cluster = console.NewCluster(c, deps)
	return nil
}

// machine reports whether output must be machine readable.
func (a *app) machine() bool {
	return ux.GetPersonality().Level == ux.PersonalityMachine
}

// emit writes a command result: a JSON envelope in machine mode, or the
// human rendering otherwise.
func (a *app) emit(command string, start time.Time, data interface{}, human func()) error {
	if a.machine() {
		return OutputJSON(a.out.Out, NewResult(command, start, data, nil), false)
	}
	human()
	return nil
}

// Close releases the session and flushes telemetry.
func (a *app) Close() {
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("closing snapshot cache", "error", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.shutdownTelemetry(ctx); err != nil {
		a.logger.Warn("flushing telemetry", "error", err)
	}
	_ = a.logger.Close()
}

// reportError prints err unless the console already showed it.
func (a *app) reportError(command string, start time.Time, err error, shownBefore int) {
	if a.machine() {
		_ = OutputJSON(a.out.Out, NewResult(command, start, nil, err), false)
		return
	}
	if a.term.Surfaced() > shownBefore {
		return
	}
	if ExitCode(err) == CLIExitFindings {
		a.out.Warning(err.Error())
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}
