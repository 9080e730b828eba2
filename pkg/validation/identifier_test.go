// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"seed id", "env-provider", false},
		{"uuid", "0b3c9a7e-4f1d-4a7e-9c59-1f2d3e4a5b6c", false},
		{"node with port", "node-1:8443", false},
		{"underscore and dot", "orders_db.v2", false},
		{"single char", "a", false},
		{"max length", "a" + strings.Repeat("b", 127), false},

		{"empty", "", true},
		{"too long", "a" + strings.Repeat("b", 128), true},
		{"slash", "env/provider", true},
		{"traversal", "a..b", true},
		{"parent", "..", true},
		{"query", "env?x=1", true},
		{"fragment", "env#x", true},
		{"space", "env provider", true},
		{"percent escape", "env%2F", true},
		{"starts with dot", ".env", true},
		{"starts with hyphen", "-env", true},
		{"newline", "env\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentifier(tt.id)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateIdentifiers(t *testing.T) {
	assert.NoError(t, ValidateIdentifiers(nil))
	assert.NoError(t, ValidateIdentifiers([]string{"a", "b-1"}))

	err := ValidateIdentifiers([]string{"ok", "bad/id", "../x"})
	assert.ErrorContains(t, err, `"bad/id"`)
	assert.ErrorContains(t, err, `"../x"`)
	assert.NotContains(t, err.Error(), `"ok"`)
}

func TestSanitizeIdentifier(t *testing.T) {
	id, err := SanitizeIdentifier("  env-provider\t")
	assert.NoError(t, err)
	assert.Equal(t, "env-provider", id)

	_, err = SanitizeIdentifier("   ")
	assert.Error(t, err)
}
