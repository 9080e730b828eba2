// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/flowadmin/flowadmin/pkg/api"
)

const (
	keyProviders     = "snapshot/parameter-providers"
	keyProviderTypes = "snapshot/parameter-provider-types"
)

// ErrCacheMiss is returned when no snapshot is stored or it has expired.
var ErrCacheMiss = errors.New("cache miss")

// CacheConfig holds configuration for the snapshot cache.
type CacheConfig struct {
	// Path is the directory for BadgerDB files.
	// Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// TTL expires snapshots. Zero keeps them until overwritten.
	TTL time.Duration

	// Logger receives BadgerDB's internal logging. Nil disables it.
	Logger *slog.Logger
}

// DefaultCacheConfig returns a persistent cache at path with a one day TTL.
func DefaultCacheConfig(path string) CacheConfig {
	return CacheConfig{Path: path, SyncWrites: true, TTL: 24 * time.Hour}
}

// InMemoryCacheConfig returns configuration for tests.
func InMemoryCacheConfig() CacheConfig {
	return CacheConfig{InMemory: true}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Cache persists listing snapshots in BadgerDB.
//
// A nil *Cache is valid: saves are dropped and loads miss.
type Cache struct {
	db  *badger.DB
	ttl time.Duration
}

// snapshot is the stored envelope.
type snapshot[T any] struct {
	SavedAt time.Time `json:"savedAt"`
	Value   T         `json:"value"`
}

// OpenCache opens the snapshot cache.
//
// Description:
//
//	Opens a BadgerDB at cfg.Path, or in memory if cfg.InMemory is set.
//	Creates the directory if it doesn't exist.
//
// Inputs:
//
//	cfg - Cache configuration. Path is required unless InMemory is true.
//
// Outputs:
//
//	*Cache - The opened cache. Caller must call Close() when done.
//	error - Non-nil if path is invalid or the database cannot be opened.
//
// Thread Safety: The returned *Cache is safe for concurrent use.
func OpenCache(cfg CacheConfig) (*Cache, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent cache")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	return &Cache{db: db, ttl: cfg.TTL}, nil
}

// Close closes the database. Safe on a nil cache.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.db.Close()
}

// SaveProviders stores the last loaded provider listing.
func (c *Cache) SaveProviders(entity api.ParameterProvidersEntity) error {
	return put(c, keyProviders, entity)
}

// LoadProviders returns the stored provider listing and when it was saved.
func (c *Cache) LoadProviders() (api.ParameterProvidersEntity, time.Time, error) {
	return get[api.ParameterProvidersEntity](c, keyProviders)
}

// SaveProviderTypes stores the provider types.
func (c *Cache) SaveProviderTypes(types []api.DocumentedType) error {
	return put(c, keyProviderTypes, types)
}

// LoadProviderTypes returns the stored provider types.
func (c *Cache) LoadProviderTypes() ([]api.DocumentedType, time.Time, error) {
	return get[[]api.DocumentedType](c, keyProviderTypes)
}

func put[T any](c *Cache, key string, v T) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(snapshot[T]{SavedAt: time.Now().UTC(), Value: v})
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), data)
		if c.ttl > 0 {
			e = e.WithTTL(c.ttl)
		}
		return txn.SetEntry(e)
	})
}

func get[T any](c *Cache, key string) (T, time.Time, error) {
	var snap snapshot[T]
	if c == nil {
		return snap.Value, time.Time{}, ErrCacheMiss
	}
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrCacheMiss
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snap)
		})
	})
	if err != nil {
		var zero T
		return zero, time.Time{}, fmt.Errorf("load %s: %w", key, err)
	}
	return snap.Value, snap.SavedAt, nil
}
