// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation checks user-provided identifiers before they are
// placed into management API paths.
//
// Entity ids end up as URL path segments ("/parameter-providers/{id}").
// An id carrying a slash, a dot-dot sequence or a query character would
// address a different endpoint than the one the user named.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// identifierPattern matches entity ids: UUIDs, seed ids such as
// "env-provider" and node ids such as "node-1:8443".
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:-]{0,127}$`)

// ValidateIdentifier validates an entity id.
//
// Valid ids:
//   - 1-128 characters
//   - Start with a letter or digit
//   - Otherwise letters, digits, dots, underscores, colons and hyphens
//   - No ".." sequence
//
// Example:
//
//	if err := validation.ValidateIdentifier(id); err != nil {
//	    return fmt.Errorf("parameter provider: %w", err)
//	}
func ValidateIdentifier(id string) error {
	if id == "" {
		return fmt.Errorf("identifier cannot be empty")
	}
	if !identifierPattern.MatchString(id) || strings.Contains(id, "..") {
		return fmt.Errorf("invalid identifier %q (letters, digits, '.', '_', ':' and '-' only, up to 128 chars)", id)
	}
	return nil
}

// ValidateIdentifiers validates several ids and lists every invalid one.
func ValidateIdentifiers(ids []string) error {
	var invalid []string
	for _, id := range ids {
		if err := ValidateIdentifier(id); err != nil {
			invalid = append(invalid, id)
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("invalid identifiers: %q", invalid)
	}
	return nil
}

// SanitizeIdentifier trims surrounding space and validates the result.
func SanitizeIdentifier(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if err := ValidateIdentifier(trimmed); err != nil {
		return "", err
	}
	return trimmed, nil
}
