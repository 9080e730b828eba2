// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux renders flowadmin output for people and for scripts.
//
// # Problem Statement
//
// The same command runs in a terminal, where an operator wants colour,
// boxes and progress, and in a pipeline, where a script wants stable
// line-oriented text.
//
// # Solution
//
// A process-wide personality level selects the rendering:
//
//	full / standard ──► lipgloss styles, icons, boxes
//	minimal         ──► icons, no colour styling of messages
//	machine         ──► "OK:", "WARN:", "ERROR:" prefixes, tab-separated tables
//
// The level comes from FLOWADMIN_PERSONALITY, or machine when stdout is not
// a terminal.
package ux

import (
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// PersonalityLevel selects how much decoration output carries.
type PersonalityLevel string

const (
	PersonalityFull     PersonalityLevel = "full"
	PersonalityStandard PersonalityLevel = "standard"
	PersonalityMinimal  PersonalityLevel = "minimal"
	PersonalityMachine  PersonalityLevel = "machine"
)

// PersonalityEnv overrides terminal detection.
const PersonalityEnv = "FLOWADMIN_PERSONALITY"

// Personality is the output configuration.
type Personality struct {
	Level PersonalityLevel

	// ShowTips enables the hint lines printed after some commands.
	ShowTips bool
}

var (
	currentPersonality = DefaultPersonality()
	personalityMu      sync.RWMutex
)

// DefaultPersonality is full decoration with tips.
func DefaultPersonality() Personality {
	return Personality{Level: PersonalityFull, ShowTips: true}
}

func GetPersonality() Personality {
	personalityMu.RLock()
	defer personalityMu.RUnlock()
	return currentPersonality
}

func SetPersonality(p Personality) {
	personalityMu.Lock()
	defer personalityMu.Unlock()
	currentPersonality = p
}

func SetPersonalityLevel(level PersonalityLevel) {
	personalityMu.Lock()
	defer personalityMu.Unlock()
	currentPersonality.Level = level
}

// ParsePersonalityLevel accepts full names and short forms. Unknown input
// is PersonalityStandard.
func ParsePersonalityLevel(s string) PersonalityLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full", "f":
		return PersonalityFull
	case "standard", "std", "s":
		return PersonalityStandard
	case "minimal", "min", "m":
		return PersonalityMinimal
	case "machine", "quiet", "q", "json":
		return PersonalityMachine
	default:
		return PersonalityStandard
	}
}

// InitPersonality picks the level for this process.
//
// # Description
//
// forceMachine (the --json flag) wins, then FLOWADMIN_PERSONALITY, then
// terminal detection on stdout.
func InitPersonality(forceMachine bool) {
	switch {
	case forceMachine:
		SetPersonalityLevel(PersonalityMachine)
	case os.Getenv(PersonalityEnv) != "":
		SetPersonalityLevel(ParsePersonalityLevel(os.Getenv(PersonalityEnv)))
	case !isTerminal(os.Stdout):
		SetPersonalityLevel(PersonalityMachine)
	default:
		SetPersonalityLevel(PersonalityFull)
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// IsInteractive reports whether prompts can be shown: stdin and stdout are
// terminals and the level is not machine.
func IsInteractive() bool {
	return GetPersonality().Level != PersonalityMachine && isTerminal(os.Stdin) && isTerminal(os.Stdout)
}

// ShouldShowProgress reports whether animated progress should be drawn.
func ShouldShowProgress() bool {
	return GetPersonality().Level != PersonalityMachine
}
