// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func withPersonality(t *testing.T, p Personality) {
	t.Helper()
	orig := GetPersonality()
	SetPersonality(p)
	t.Cleanup(func() { SetPersonality(orig) })
}

func TestSetPersonality_AndGet(t *testing.T) {
	withPersonality(t, Personality{Level: PersonalityMinimal})
	assert.Equal(t, PersonalityMinimal, GetPersonality().Level)
	assert.False(t, GetPersonality().ShowTips)

	SetPersonalityLevel(PersonalityMachine)
	assert.Equal(t, PersonalityMachine, GetPersonality().Level)
	assert.False(t, ShouldShowProgress())
}

func TestParsePersonalityLevel(t *testing.T) {
	tests := map[string]PersonalityLevel{
		"full":    PersonalityFull,
		"F":       PersonalityFull,
		"std":     PersonalityStandard,
		"min":     PersonalityMinimal,
		"quiet":   PersonalityMachine,
		"json":    PersonalityMachine,
		"unknown": PersonalityStandard,
		"":        PersonalityStandard,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParsePersonalityLevel(in), in)
	}
}

func TestInitPersonality(t *testing.T) {
	withPersonality(t, DefaultPersonality())

	InitPersonality(true)
	assert.Equal(t, PersonalityMachine, GetPersonality().Level)

	t.Setenv(PersonalityEnv, "minimal")
	InitPersonality(false)
	assert.Equal(t, PersonalityMinimal, GetPersonality().Level)
	assert.False(t, IsInteractive(), "test stdin is not a terminal")
}
