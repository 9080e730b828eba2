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
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/flowadmin/flowadmin/pkg/api"
)

// ProviderEnv is what a --filter expression sees for each provider.
//
// Example: `Type contains "Environment" && Referenced == 0`
type ProviderEnv struct {
	ID         string
	Name       string
	Type       string
	Bundle     string
	Comments   string
	Version    int64
	CanRead    bool
	CanWrite   bool
	Referenced int
	Groups     []string
	Properties map[string]string
	Invalid    bool
}

func providerEnv(e api.ParameterProviderEntity) ProviderEnv {
	env := ProviderEnv{
		ID:         e.ID,
		Name:       e.Component.Name,
		Type:       e.Component.Type,
		Bundle:     e.Component.Bundle.String(),
		Comments:   e.Component.Comments,
		Version:    e.Revision.Version,
		CanRead:    e.Permissions.CanRead,
		CanWrite:   e.Permissions.CanWrite,
		Referenced: len(e.Component.ReferencingParameterContexts),
		Properties: make(map[string]string, len(e.Component.Properties)),
		Invalid:    len(e.Component.ValidationErrors) > 0,
	}
	for _, g := range e.Component.ParameterGroupConfigurations {
		env.Groups = append(env.Groups, g.GroupName)
	}
	for k, v := range e.Component.Properties {
		if v != nil {
			env.Properties[k] = *v
		}
	}
	return env
}

// compileFilter compiles a boolean provider filter. An empty source matches
// everything and yields a nil program.
func compileFilter(src string) (*vm.Program, error) {
	if strings.TrimSpace(src) == "" {
		return nil, nil
	}
	program, err := expr.Compile(src, expr.Env(ProviderEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid --filter: %w", err)
	}
	return program, nil
}

// filterProviders keeps the providers program accepts.
func filterProviders(program *vm.Program, providers []api.ParameterProviderEntity) ([]api.ParameterProviderEntity, error) {
	if program == nil {
		return providers, nil
	}
	out := make([]api.ParameterProviderEntity, 0, len(providers))
	for _, p := range providers {
		v, err := expr.Run(program, providerEnv(p))
		if err != nil {
			return nil, fmt.Errorf("--filter on %s: %w", p.ID, err)
		}
		if keep, _ := v.(bool); keep {
			out = append(out, p)
		}
	}
	return out, nil
}
