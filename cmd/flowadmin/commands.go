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
	"time"

	"github.com/flowadmin/flowadmin/cmd/flowadmin/config"
	"github.com/flowadmin/flowadmin/pkg/validation"
	"github.com/spf13/cobra"
)

// annotationNoConfig marks commands that run on defaults without reading
// or creating the config file.
const annotationNoConfig = "flowadmin/no-config"

// --- Global Command Variables ---
var (
	configPath string
	jsonOutput bool
	offline    bool
	logLevel   string
	serverURL  string
	assumeYes  bool

	// cli is the invocation built by PersistentPreRunE.
	cli *app

	rootCmd = &cobra.Command{
		Use:   "flowadmin",
		Short: "Administer parameter providers, access policies and the cluster of a dataflow server",
		Long: `flowadmin is an operator console for a dataflow management API.

It creates and configures parameter providers, fetches and applies their
parameters, edits global and component access policies, and inspects the
cluster. "flowadmin sandbox serve" starts a local emulator of the API.`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: setupApp,
	}
)

func setupApp(cmd *cobra.Command, _ []string) error {
	cfg := config.DefaultConfig()
	if cmd.Annotations[annotationNoConfig] == "" {
		var err error
		switch {
		case configPath != "":
			cfg, err = config.LoadFrom(configPath)
		default:
			if err = config.Load(); err == nil {
				cfg = config.Global
			}
		}
		if err != nil {
			return err
		}
	}

	a, err := newApp(cmd.Context(), cfg, appOptions{
		JSON:      jsonOutput,
		LogLevel:  logLevel,
		URL:       serverURL,
		AssumeYes: assumeYes,
	})
	if err != nil {
		return err
	}
	cli = a
	return nil
}

// commandFunc is the body of a command that talks to the operator through app.
type commandFunc func(ctx context.Context, a *app, args []string) error

// reportedError is an error already shown to the operator.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// runWith adapts fn to cobra: errors are reported once, in the output mode
// of the invocation, and returned for the exit code.
func runWith(name string, fn commandFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		shown := cli.term.Surfaced()
		if err := fn(cmd.Context(), cli, args); err != nil {
			cli.reportError(name, start, err, shown)
			return &reportedError{err: err}
		}
		return nil
	}
}

// identifierArg accepts exactly one entity id that is safe to place in an
// API path.
func identifierArg(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(1)(cmd, args); err != nil {
		return err
	}
	return validation.ValidateIdentifier(args[0])
}

// runSession is runWith for commands that need the management API.
func runSession(name string, fn commandFunc) func(*cobra.Command, []string) error {
	return runWith(name, func(ctx context.Context, a *app, args []string) error {
		if err := a.session(); err != nil {
			return err
		}
		return fn(ctx, a, args)
	})
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (default $FLOWADMIN_CONFIG or ~/.flowadmin/flowadmin.yaml)")
	pf.BoolVar(&jsonOutput, "json", false, "machine readable JSON output")
	pf.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&serverURL, "url", "", "management API base URL (overrides config and FLOWADMIN_URL)")
	pf.BoolVarP(&assumeYes, "yes", "y", false, "answer yes to confirmations")

	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(policiesCmd)
	rootCmd.AddCommand(clusterCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(sandboxCmd)
	rootCmd.AddCommand(versionCmd)
}
