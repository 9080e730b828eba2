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
	"sync"

	"github.com/google/uuid"
)

// Dialog kinds.
const (
	DialogCreateParameterProvider = "create-parameter-provider"
	DialogEditParameterProvider   = "edit-parameter-provider"
	DialogFetchParameters         = "fetch-parameter-provider-parameters"
	DialogAddTenant               = "add-tenant-to-policy"
)

// Dialog is one open dialog.
type Dialog struct {
	ID   string
	Kind string

	onClose func(result string)
	closed  chan struct{}
	once    sync.Once
	result  string
}

// AfterClosed is closed once the dialog is closed.
func (d *Dialog) AfterClosed() <-chan struct{} {
	return d.closed
}

// Result is the value the dialog was closed with.
func (d *Dialog) Result() string {
	<-d.closed
	return d.result
}

// Dialogs tracks open dialogs by id.
//
// Closing a dialog removes it from the registry before its close handler
// runs, so handlers may open new dialogs freely.
type Dialogs struct {
	mu   sync.Mutex
	open map[string]*Dialog
	// order keeps CloseAll deterministic.
	order []string
}

func NewDialogs() *Dialogs {
	return &Dialogs{open: map[string]*Dialog{}}
}

// Open registers a dialog. An empty id gets a random one. Opening an id that
// is already open closes the previous dialog with an empty result.
func (d *Dialogs) Open(id, kind string, onClose func(result string)) *Dialog {
	if id == "" {
		id = uuid.NewString()
	}
	dlg := &Dialog{ID: id, Kind: kind, onClose: onClose, closed: make(chan struct{})}

	d.mu.Lock()
	prev := d.open[id]
	if prev == nil {
		d.order = append(d.order, id)
	}
	d.open[id] = dlg
	d.mu.Unlock()

	if prev != nil {
		prev.close("")
	}
	return dlg
}

// Get returns the open dialog with id.
func (d *Dialogs) Get(id string) (*Dialog, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dlg, ok := d.open[id]
	return dlg, ok
}

// Close closes the dialog with id. It reports whether one was open.
func (d *Dialogs) Close(id, result string) bool {
	d.mu.Lock()
	dlg, ok := d.open[id]
	if ok {
		d.remove(id)
	}
	d.mu.Unlock()

	if ok {
		dlg.close(result)
	}
	return ok
}

// CloseAll closes every open dialog with an empty result, oldest first.
func (d *Dialogs) CloseAll() {
	d.mu.Lock()
	all := make([]*Dialog, 0, len(d.order))
	for _, id := range d.order {
		all = append(all, d.open[id])
	}
	d.open = map[string]*Dialog{}
	d.order = nil
	d.mu.Unlock()

	for _, dlg := range all {
		dlg.close("")
	}
}

// Len is the number of open dialogs.
func (d *Dialogs) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.open)
}

func (d *Dialogs) remove(id string) {
	delete(d.open, id)
	for i, o := range d.order {
		if o == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

func (dlg *Dialog) close(result string) {
	dlg.once.Do(func() {
		dlg.result = result
		close(dlg.closed)
		if dlg.onClose != nil {
			dlg.onClose(result)
		}
	})
}
