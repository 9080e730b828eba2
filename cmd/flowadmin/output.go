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
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/flowadmin/flowadmin/cmd/flowadmin/internal/console"
)

// Exit codes for CLI commands.
const (
	CLIExitSuccess  = 0 // Operation completed successfully
	CLIExitFindings = 1 // Completed, but the answer is negative (no policy, declined, ...)
	CLIExitError    = 2 // Operation failed
)

// APIVersion is stamped on every JSON result.
const APIVersion = "1.0"

// CommandResult wraps command output with metadata.
type CommandResult struct {
	APIVersion string      `json:"api_version"`
	Command    string      `json:"command"`
	Timestamp  time.Time   `json:"timestamp"`
	DurationMs int64       `json:"duration_ms"`
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// FindingsError marks a command that ran but has a negative answer.
type FindingsError struct {
	Message string
}

func (e *FindingsError) Error() string {
	return e.Message
}

func findings(format string, args ...any) error {
	return &FindingsError{Message: fmt.Sprintf(format, args...)}
}

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	var f *FindingsError
	switch {
	case err == nil:
		return CLIExitSuccess
	case errors.As(err, &f), errors.Is(err, console.ErrDeclined):
		return CLIExitFindings
	case errors.Is(err, context.Canceled):
		return CLIExitFindings
	default:
		return CLIExitError
	}
}

// OutputJSON writes data as JSON to w.
//
// # Inputs
//
//   - w: Destination, normally stdout.
//   - data: The data to encode. Must be JSON-serializable.
//   - compact: If true, output without indentation.
//
// # Outputs
//
//   - error: Non-nil if encoding fails.
func OutputJSON(w io.Writer, data interface{}, compact bool) error {
	encoder := json.NewEncoder(w)
	if !compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// NewResult builds the envelope for a finished command.
func NewResult(command string, start time.Time, data interface{}, err error) CommandResult {
	r := CommandResult{
		APIVersion: APIVersion,
		Command:    command,
		Timestamp:  time.Now().UTC(),
		DurationMs: time.Since(start).Milliseconds(),
		Success:    err == nil,
		Data:       data,
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}
