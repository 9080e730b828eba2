// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/flowadmin/flowadmin/pkg/telemetry"
)

// CurrentConfigVersion is written into new config files.
const CurrentConfigVersion = "1"

type FlowAdminConfig struct {
	Meta MetaConfig `yaml:"meta"`

	// Server: where the management API lives
	Server ServerConfig `yaml:"server"`

	// Polling: pacing of apply request polling
	Polling PollingConfig `yaml:"polling"`

	// Cache: snapshot of the last listing for --offline
	Cache CacheConfig `yaml:"cache"`

	Logging LoggingConfig `yaml:"logging"`

	Output OutputConfig `yaml:"output"`

	Telemetry telemetry.Config `yaml:"telemetry"`

	// Sandbox: the local API emulator started by "flowadmin sandbox serve"
	Sandbox SandboxConfig `yaml:"sandbox"`
}

type MetaConfig struct {
	Version string `yaml:"version" jsonschema:"description=Config file format version"`
}

type ServerConfig struct {
	URL string `yaml:"url" validate:"required,url" jsonschema:"description=Base URL of the management API"`

	// Token is usually supplied through FLOWADMIN_TOKEN instead.
	Token string `yaml:"token,omitempty" jsonschema:"description=Bearer token (prefer FLOWADMIN_TOKEN)"`

	Timeout   time.Duration `yaml:"timeout" validate:"gte=0"`
	RateLimit float64       `yaml:"rate_limit" validate:"gte=0" jsonschema:"description=Requests per second (0 is unlimited)"`
	Burst     int           `yaml:"burst" validate:"gte=0"`
}

type PollingConfig struct {
	Interval time.Duration `yaml:"interval" validate:"gt=0"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Dir     string        `yaml:"dir"`
	TTL     time.Duration `yaml:"ttl" validate:"gte=0"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	Dir   string `yaml:"dir,omitempty" jsonschema:"description=Directory for daily JSON log files"`
	JSON  bool   `yaml:"json"`
}

type OutputConfig struct {
	Personality string `yaml:"personality,omitempty" jsonschema:"enum=full,enum=standard,enum=minimal,enum=machine"`
	Tips        bool   `yaml:"tips"`
}

type SandboxConfig struct {
	Addr     string `yaml:"addr" validate:"required"`
	SeedFile string `yaml:"seed_file,omitempty"`

	// CompleteAfter is how many polls an apply request takes to complete.
	CompleteAfter int    `yaml:"complete_after" validate:"gte=0"`
	Token         string `yaml:"token,omitempty"`
}

// Dir returns ~/.flowadmin, or "." when the home directory is unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".flowadmin")
}

func DefaultConfig() FlowAdminConfig {
	return FlowAdminConfig{
		Meta: MetaConfig{Version: CurrentConfigVersion},
		Server: ServerConfig{
			URL:     "http://localhost:8080/flowadmin-api",
			Timeout: 30 * time.Second,
		},
		Polling: PollingConfig{Interval: 2 * time.Second},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     filepath.Join(Dir(), "cache"),
			TTL:     24 * time.Hour,
		},
		Logging: LoggingConfig{Level: "info"},
		Output:  OutputConfig{Tips: true},
		Telemetry: telemetry.Config{
			ServiceName:    "flowadmin",
			ServiceVersion: "dev",
			Environment:    "development",
			TraceExporter:  "none",
			MetricExporter: "none",
			OTLPEndpoint:   "localhost:4317",
		},
		Sandbox: SandboxConfig{
			Addr:          "127.0.0.1:8080",
			CompleteAfter: 3,
		},
	}
}

// Redacted returns a copy safe to print.
func (c FlowAdminConfig) Redacted() FlowAdminConfig {
	if c.Server.Token != "" {
		c.Server.Token = "REDACTED"
	}
	if c.Sandbox.Token != "" {
		c.Sandbox.Token = "REDACTED"
	}
	return c
}
