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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/flowadmin/flowadmin/pkg/api"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfig       = "FLOWADMIN_CONFIG"
	EnvURL          = "FLOWADMIN_URL"
	EnvToken        = "FLOWADMIN_TOKEN"
	EnvPollInterval = "FLOWADMIN_POLL_INTERVAL"
)

var (
	// Global is a singleton instance
	Global  FlowAdminConfig
	once    sync.Once
	loadErr error
)

// Load ensures the config is loaded into the Global variable
func Load() error {
	once.Do(func() {
		var path string
		path, loadErr = Path()
		if loadErr != nil {
			return
		}
		Global, loadErr = LoadFrom(path)
	})
	return loadErr
}

// Path is FLOWADMIN_CONFIG, or ~/.flowadmin/flowadmin.yaml.
func Path() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".flowadmin", "flowadmin.yaml"), nil
}

// LoadFrom reads the config at path, creating it with defaults on first run.
//
// # Description
//
// Fields missing from the file keep their defaults. Environment overrides
// are applied last and the result is validated.
func LoadFrom(path string) (FlowAdminConfig, error) {
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "First run detected, creating the config at %s\n", path)
		if err := createDefault(path); err != nil {
			return FlowAdminConfig{}, err
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return FlowAdminConfig{}, fmt.Errorf("failed to read the config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return FlowAdminConfig{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := applyEnv(&cfg); err != nil {
		return FlowAdminConfig{}, err
	}
	if err := api.Validate(cfg); err != nil {
		return FlowAdminConfig{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func applyEnv(cfg *FlowAdminConfig) error {
	if v := os.Getenv(EnvURL); v != "" {
		cfg.Server.URL = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		cfg.Server.Token = v
	}
	if v := os.Getenv(EnvPollInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPollInterval, err)
		}
		cfg.Polling.Interval = d
	}
	return nil
}

func createDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
