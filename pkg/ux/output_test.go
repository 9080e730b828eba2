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
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newBuffers() (*Output, *bytes.Buffer, *bytes.Buffer) {
	var out, errs bytes.Buffer
	return &Output{Out: &out, Err: &errs}, &out, &errs
}

func TestIcon_Render(t *testing.T) {
	for _, i := range []Icon{IconSuccess, IconWarning, IconError, IconPending, IconArrow} {
		assert.Contains(t, i.Render(), string(i))
	}
}

func TestOutput_Machine(t *testing.T) {
	withPersonality(t, Personality{Level: PersonalityMachine, ShowTips: true})
	o, out, errs := newBuffers()

	o.Title("ignored")
	o.Success("created p1")
	o.Warning("stale listing")
	o.Error("boom")
	o.Info("plain")
	o.Tip("ignored")
	o.Box("Provider", "p1")

	assert.Equal(t, "OK: created p1\nplain\nProvider: p1\n", out.String())
	assert.Equal(t, "WARN: stale listing\nERROR: boom\n", errs.String())
}

func TestOutput_Full(t *testing.T) {
	withPersonality(t, Personality{Level: PersonalityFull, ShowTips: true})
	o, out, errs := newBuffers()

	o.Success("created")
	o.Tip("run providers list")
	o.ErrorBox("Error", "server down")

	assert.Contains(t, out.String(), "created")
	assert.Contains(t, out.String(), "tip: run providers list")
	assert.Contains(t, errs.String(), "server down")
}

func TestOutput_TableMachine(t *testing.T) {
	withPersonality(t, Personality{Level: PersonalityMachine})
	o, out, _ := newBuffers()

	o.Table([]string{"ID", "NAME"}, [][]string{{"p1", "env"}, {"p2", "vault"}})
	assert.Equal(t, "ID\tNAME\np1\tenv\np2\tvault\n", out.String())
}

func TestOutput_TableStyled(t *testing.T) {
	withPersonality(t, Personality{Level: PersonalityStandard})
	o, out, _ := newBuffers()

	o.Table([]string{"ID", "NAME"}, [][]string{{"p1", "env"}})
	assert.Contains(t, out.String(), "p1")
	assert.Contains(t, out.String(), "NAME")
}

func TestOutput_KeyValues(t *testing.T) {
	withPersonality(t, Personality{Level: PersonalityMachine})
	o, out, _ := newBuffers()

	o.KeyValues([][2]string{{"id", "p1"}, {"revision", "3"}})
	assert.Equal(t, "id\tp1\nrevision\t3\n", out.String())
}

func TestProgressBar(t *testing.T) {
	withPersonality(t, Personality{Level: PersonalityMachine})
	assert.Equal(t, "3/4", ProgressBar(3, 4, 10))

	SetPersonalityLevel(PersonalityStandard)
	assert.Contains(t, ProgressBar(1, 2, 10), "50%")
	assert.Contains(t, ProgressBar(5, 0, 10), "0%")
}
