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
	"encoding/json"
	"fmt"
	"time"

	"github.com/flowadmin/flowadmin/cmd/flowadmin/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Inspect the flowadmin configuration",
	}
	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE:  runWith("config show", runConfigShow),
	}
	configPathCmd = &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE:  runWith("config path", runConfigPath),
	}
	configSchemaCmd = &cobra.Command{
		Use:         "schema",
		Short:       "Print the JSON schema of the config file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoConfig: "true"},
		RunE:        runWith("config schema", runConfigSchema),
	}
)

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configSchemaCmd)
}

func runConfigShow(_ context.Context, a *app, _ []string) error {
	start := time.Now()
	redacted := a.cfg.Redacted()
	return a.emit("config show", start, redacted, func() {
		data, err := yaml.Marshal(redacted)
		if err != nil {
			a.out.Error(err.Error())
			return
		}
		fmt.Fprint(a.out.Out, string(data))
	})
}

func runConfigPath(_ context.Context, a *app, _ []string) error {
	start := time.Now()
	path := configPath
	if path == "" {
		var err error
		if path, err = config.Path(); err != nil {
			return err
		}
	}
	return a.emit("config path", start, map[string]string{"path": path}, func() {
		fmt.Fprintln(a.out.Out, path)
	})
}

// runConfigSchema prints the schema itself, not an envelope, so it can be
// piped straight into an editor's schema settings.
func runConfigSchema(_ context.Context, a *app, _ []string) error {
	schema, err := config.Schema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(schema, &v); err != nil {
		return err
	}
	return OutputJSON(a.out.Out, v, false)
}
