// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// SeedWatcher reloads a Store when its seed file changes.
//
// The directory is watched rather than the file so that editors which
// replace the file on save are still seen.
type SeedWatcher struct {
	path     string
	store    *Store
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	callback func(error)
}

// NewSeedWatcher creates a watcher for path. callback, when set, is called
// after every reload attempt with its error.
func NewSeedWatcher(path string, store *Store, logger *slog.Logger, callback func(error)) (*SeedWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = watcher.Close()
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	return &SeedWatcher{
		path:     abs,
		store:    store,
		watcher:  watcher,
		logger:   logger,
		callback: callback,
	}, nil
}

// Start processes events until ctx is done or Stop is called.
func (w *SeedWatcher) Start(ctx context.Context) {
	w.logger.Debug("watching seed file", "path", w.path)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("seed watcher error", "error", err)

		case <-ctx.Done():
			return
		}
	}
}

func (w *SeedWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	seed, err := LoadSeed(w.path)
	if err != nil {
		w.logger.Warn("seed reload failed, keeping current state", "path", w.path, "error", err)
	} else {
		w.store.Load(seed)
		w.logger.Info("seed reloaded", "path", w.path)
	}
	if w.callback != nil {
		w.callback(err)
	}
}

func (w *SeedWatcher) Stop() error {
	return w.watcher.Close()
}
