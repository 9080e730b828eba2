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
	"log/slog"

	"github.com/flowadmin/flowadmin/cmd/flowadmin/config"
	"github.com/flowadmin/flowadmin/services/sandbox"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var (
	sandboxAddr          string
	sandboxSeed          string
	sandboxCompleteAfter int
	sandboxToken         string
)

var (
	sandboxCmd = &cobra.Command{
		Use:   "sandbox",
		Short: "Run a local emulator of the management API",
	}
	sandboxServeCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the emulator until interrupted",
		Long: `Serve the emulator until interrupted.

The emulator keeps parameter providers, access policies and the cluster in
memory, starting from --seed (a YAML file, reloaded when it changes) or a
built-in seed. Point the CLI at it with:

  flowadmin --url http://127.0.0.1:8080/flowadmin-api providers list`,
		Args: cobra.NoArgs,
		RunE: runWith("sandbox serve", runSandboxServe),
	}
)

func init() {
	f := sandboxServeCmd.Flags()
	f.StringVar(&sandboxAddr, "addr", "", "listen address (default from config)")
	f.StringVar(&sandboxSeed, "seed", "", "YAML seed file")
	f.IntVar(&sandboxCompleteAfter, "complete-after", -1, "polls an apply request takes to complete")
	f.StringVar(&sandboxToken, "token", "", "require this bearer token")
	sandboxCmd.AddCommand(sandboxServeCmd)
}

// sandboxConfig merges the serve flags over the config file.
func sandboxConfig(cfg config.SandboxConfig) config.SandboxConfig {
	if sandboxAddr != "" {
		cfg.Addr = sandboxAddr
	}
	if sandboxSeed != "" {
		cfg.SeedFile = sandboxSeed
	}
	if sandboxCompleteAfter >= 0 {
		cfg.CompleteAfter = sandboxCompleteAfter
	}
	if sandboxToken != "" {
		cfg.Token = sandboxToken
	}
	return cfg
}

func runSandboxServe(ctx context.Context, a *app, _ []string) error {
	cfg := sandboxConfig(a.cfg.Sandbox)
	if a.logger.Slog().Enabled(ctx, slog.LevelDebug) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	srv, err := sandbox.New(sandbox.Config{
		Addr:          cfg.Addr,
		SeedFile:      cfg.SeedFile,
		CompleteAfter: cfg.CompleteAfter,
		Token:         []byte(cfg.Token),
		Logger:        a.logger.Slog(),
	})
	if err != nil {
		return err
	}

	if !a.machine() {
		a.out.Success(fmt.Sprintf("Sandbox listening on http://%s%s", cfg.Addr, sandbox.BasePath))
		a.out.Info("Press Ctrl+C to stop.")
	}
	a.logger.Info("sandbox starting", "addr", cfg.Addr, "seed", cfg.SeedFile)
	return srv.Run(ctx)
}
