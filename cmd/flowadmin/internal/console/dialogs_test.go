// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialogs_OpenClose(t *testing.T) {
	d := NewDialogs()
	var got []string
	dlg := d.Open("p1", DialogEditParameterProvider, func(result string) { got = append(got, result) })

	open, ok := d.Get("p1")
	require.True(t, ok)
	assert.Same(t, dlg, open)

	assert.True(t, d.Close("p1", Routed))
	assert.False(t, d.Close("p1", ""))
	assert.Equal(t, []string{Routed}, got)
	assert.Equal(t, Routed, dlg.Result())

	select {
	case <-dlg.AfterClosed():
	default:
		t.Fatal("AfterClosed not signalled")
	}
}

func TestDialogs_GeneratedID(t *testing.T) {
	d := NewDialogs()
	a := d.Open("", DialogAddTenant, nil)
	b := d.Open("", DialogAddTenant, nil)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, d.Len())
}

func TestDialogs_ReopenClosesPrevious(t *testing.T) {
	d := NewDialogs()
	closed := 0
	first := d.Open("x", DialogFetchParameters, func(string) { closed++ })
	second := d.Open("x", DialogFetchParameters, nil)

	assert.Equal(t, 1, closed)
	assert.Equal(t, 1, d.Len())
	got, _ := d.Get("x")
	assert.Same(t, second, got)
	assert.NotSame(t, first, got)
}

func TestDialogs_CloseAllOldestFirst(t *testing.T) {
	d := NewDialogs()
	var order []string
	for _, id := range []string{"a", "b", "c"} {
		d.Open(id, "k", func(string) { order = append(order, id) })
	}
	d.Close("b", "")
	order = nil

	d.CloseAll()
	assert.Equal(t, []string{"a", "c"}, order)
	assert.Zero(t, d.Len())
}

func TestDialogs_HandlerMayReopen(t *testing.T) {
	d := NewDialogs()
	d.Open("x", "k", func(string) { d.Open("y", "k", nil) })
	d.CloseAll()
	_, ok := d.Get("y")
	assert.True(t, ok)
}
