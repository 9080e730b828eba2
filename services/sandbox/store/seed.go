// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"fmt"
	"os"

	"github.com/flowadmin/flowadmin/pkg/api"
	"gopkg.in/yaml.v3"
)

// Seed is the YAML document the sandbox starts from.
type Seed struct {
	// CompleteAfter is how many polls an apply request takes to complete.
	// Zero completes requests on submission.
	CompleteAfter *int `yaml:"complete_after,omitempty"`

	ProviderTypes []api.DocumentedType `yaml:"parameter_provider_types"`
	Providers     []SeedProvider       `yaml:"parameter_providers"`

	Users      []SeedTenant `yaml:"users"`
	UserGroups []SeedTenant `yaml:"user_groups"`
	Policies   []SeedPolicy `yaml:"policies"`

	// Forbidden resources answer 403 to policy lookups.
	Forbidden []string `yaml:"forbidden_resources"`

	Components []SeedComponent `yaml:"components"`
	Nodes      []SeedNode      `yaml:"nodes"`
}

// SeedProvider is one parameter provider and the groups it fetches.
type SeedProvider struct {
	ID         string            `yaml:"id"`
	Name       string            `yaml:"name"`
	Type       string            `yaml:"type"`
	Bundle     api.Bundle        `yaml:"bundle"`
	Comments   string            `yaml:"comments"`
	Properties map[string]string `yaml:"properties"`
	Groups     []SeedGroup       `yaml:"groups"`

	// ReferencingContexts are parameter contexts fed by this provider.
	// A referenced provider cannot be deleted.
	ReferencingContexts []SeedContext `yaml:"referencing_contexts"`

	// ReadOnly clears canWrite on the provider.
	ReadOnly bool `yaml:"read_only"`
}

type SeedGroup struct {
	Name       string   `yaml:"name"`
	Parameters []string `yaml:"parameters"`
	Sensitive  []string `yaml:"sensitive"`
}

type SeedContext struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Readable *bool  `yaml:"readable,omitempty"`
}

type SeedTenant struct {
	ID       string `yaml:"id"`
	Identity string `yaml:"identity"`
}

type SeedPolicy struct {
	ID       string     `yaml:"id"`
	Action   api.Action `yaml:"action"`
	Resource string     `yaml:"resource"`
	Users    []string   `yaml:"users"`
	Groups   []string   `yaml:"groups"`
}

// SeedComponent is a flow component that component policies can target,
// addressed as resource/id, for example processors/proc-1.
type SeedComponent struct {
	Resource          string `yaml:"resource"`
	ID                string `yaml:"id"`
	Name              string `yaml:"name"`
	AllowRemoteAccess bool   `yaml:"allow_remote_access"`
	Readable          *bool  `yaml:"readable,omitempty"`
}

type SeedNode struct {
	ID      string   `yaml:"id"`
	Address string   `yaml:"address"`
	APIPort int      `yaml:"api_port"`
	Status  string   `yaml:"status"`
	Roles   []string `yaml:"roles"`
}

// LoadSeed reads a seed file.
func LoadSeed(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed %s: %w", path, err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes a seed document.
func ParseSeed(data []byte) (Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Seed{}, fmt.Errorf("parse seed: %w", err)
	}
	return s, nil
}

// DefaultSeed is the data the sandbox serves without a seed file: one
// environment-variable provider, two users, a root flow policy and a
// two-node cluster.
func DefaultSeed() Seed {
	bundle := api.Bundle{Group: "org.apache.nifi", Artifact: "nifi-standard-nar", Version: "2.0.0"}
	return Seed{
		ProviderTypes: []api.DocumentedType{
			{
				Type:        "org.apache.nifi.parameter.EnvironmentVariableParameterProvider",
				Bundle:      bundle,
				Description: "Fetches parameters from environment variables",
				Tags:        []string{"environment", "variable"},
			},
			{
				Type:        "org.apache.nifi.parameter.DatabaseParameterProvider",
				Bundle:      bundle,
				Description: "Fetches parameters from database tables",
				Tags:        []string{"database", "sql"},
			},
		},
		Providers: []SeedProvider{
			{
				ID:     "env-provider",
				Name:   "Environment",
				Type:   "org.apache.nifi.parameter.EnvironmentVariableParameterProvider",
				Bundle: bundle,
				Properties: map[string]string{
					"environment-variable-inclusion-strategy": "include-all",
					"parameter-group-name":                    "Environment Variables",
				},
				Groups: []SeedGroup{
					{Name: "Environment Variables", Parameters: []string{"HOME", "PATH", "DB_PASSWORD"}, Sensitive: []string{"DB_PASSWORD"}},
				},
			},
		},
		Users: []SeedTenant{
			{ID: "admin", Identity: "admin"},
			{ID: "operator", Identity: "operator"},
		},
		UserGroups: []SeedTenant{
			{ID: "admins", Identity: "Administrators"},
		},
		Policies: []SeedPolicy{
			{Action: api.ActionRead, Resource: "/flow", Users: []string{"admin", "operator"}},
			{Action: api.ActionRead, Resource: "/process-groups/root", Users: []string{"admin"}, Groups: []string{"admins"}},
			{Action: api.ActionWrite, Resource: "/process-groups/root", Users: []string{"admin"}},
		},
		Components: []SeedComponent{
			{Resource: "process-groups", ID: "root", Name: "NiFi Flow"},
			{Resource: "processors", ID: "generate", Name: "GenerateFlowFile"},
			{Resource: "input-ports", ID: "in", Name: "From Edge", AllowRemoteAccess: true},
		},
		Nodes: []SeedNode{
			{ID: "node-1", Address: "nifi-1", APIPort: 8443, Status: "CONNECTED", Roles: []string{"Primary Node", "Cluster Coordinator"}},
			{ID: "node-2", Address: "nifi-2", APIPort: 8443, Status: "CONNECTED"},
		},
	}
}
