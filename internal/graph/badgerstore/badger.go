// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package badger wraps an embedded BadgerDB key-value store. No other
// package in this module imports it: community listings, per-tech metric
// snapshots and the LLM adapter's in-memory replay cache are not stored
// here. The graph driver itself lives in weaviateclient; this package never
// sees Technology/Company/Document records directly, only opaque byte keys
// and values the caller chooses to cache.
package badger

import (
	"context"
	"fmt"
	"os"
	"time"

	bdg "github.com/dgraph-io/badger/v4"
)

// Config controls how a DB is opened.
type Config struct {
	InMemory          bool
	Path              string
	SyncWrites        bool
	NumVersionsToKeep int
	GCInterval        time.Duration
}

// DefaultConfig is the baseline for a persistent, on-disk store.
func DefaultConfig() Config {
	return Config{
		InMemory:          false,
		SyncWrites:        true,
		NumVersionsToKeep: 1,
		GCInterval:        5 * time.Minute,
	}
}

// InMemoryConfig is the baseline for a throwaway, in-process store (tests,
// single-shot CLI invocations that don't need the cache to outlive them).
func InMemoryConfig() Config {
	return Config{
		InMemory:          true,
		SyncWrites:        false,
		NumVersionsToKeep: 1,
		GCInterval:        0,
	}
}

// DB wraps a *badger.DB with context-aware transaction helpers and an
// optional background value-log GC runner.
type DB struct {
	*bdg.DB
	gc *GCRunner
}

// Open opens a database per cfg. Persistent mode requires a non-empty Path.
func Open(cfg Config) (*bdg.DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, fmt.Errorf("badger: path is required for persistent storage")
	}

	opts := bdg.DefaultOptions(cfg.Path)
	opts = opts.WithInMemory(cfg.InMemory)
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithLogger(nil)
	if cfg.NumVersionsToKeep > 0 {
		opts = opts.WithNumVersionsToKeep(cfg.NumVersionsToKeep)
	}

	return bdg.Open(opts)
}

// OpenInMemory opens a throwaway in-memory database.
func OpenInMemory() (*bdg.DB, error) {
	return Open(InMemoryConfig())
}

// OpenWithPath opens a persistent database rooted at dir.
func OpenWithPath(dir string) (*bdg.DB, error) {
	cfg := DefaultConfig()
	cfg.Path = dir
	return Open(cfg)
}

// OpenDB opens a managed DB wrapper with transaction helpers and, if
// cfg.GCInterval is non-zero, starts a background GC runner.
func OpenDB(cfg Config) (*DB, error) {
	raw, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	db := &DB{DB: raw}
	if cfg.GCInterval > 0 {
		runner, err := NewGCRunner(raw, cfg.GCInterval, 0.5, nil)
		if err != nil {
			raw.Close()
			return nil, err
		}
		runner.Start()
		db.gc = runner
	}
	return db, nil
}

// Close stops any background GC runner before closing the underlying DB.
func (db *DB) Close() error {
	if db.gc != nil {
		db.gc.Stop()
	}
	return db.DB.Close()
}

// WithTxn runs fn inside a read-write transaction, respecting ctx
// cancellation before starting work.
func (db *DB) WithTxn(ctx context.Context, fn func(txn *bdg.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("badger: context cancelled: %w", err)
	}
	return db.DB.Update(fn)
}

// WithReadTxn runs fn inside a read-only transaction, respecting ctx
// cancellation before starting work.
func (db *DB) WithReadTxn(ctx context.Context, fn func(txn *bdg.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("badger: context cancelled: %w", err)
	}
	return db.DB.View(fn)
}

// GCRunner periodically invokes BadgerDB's value-log garbage collection.
type GCRunner struct {
	db       *bdg.DB
	interval time.Duration
	ratio    float64
	onErr    func(error)
	stop     chan struct{}
	done     chan struct{}
}

// NewGCRunner validates and constructs a GCRunner. onErr may be nil.
func NewGCRunner(db *bdg.DB, interval time.Duration, ratio float64, onErr func(error)) (*GCRunner, error) {
	if db == nil {
		return nil, fmt.Errorf("badger: db must not be nil")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("badger: interval must be positive")
	}
	if ratio <= 0 || ratio > 1 {
		return nil, fmt.Errorf("badger: ratio must be between 0 and 1")
	}
	return &GCRunner{
		db:       db,
		interval: interval,
		ratio:    ratio,
		onErr:    onErr,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start begins the background GC loop. Safe to call once.
func (r *GCRunner) Start() {
	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stop:
				return
			case <-ticker.C:
				for {
					if err := r.db.RunValueLogGC(r.ratio); err != nil {
						if err != bdg.ErrNoRewrite && r.onErr != nil {
							r.onErr(err)
						}
						break
					}
				}
			}
		}
	}()
}

// Stop halts the background loop and waits for it to exit.
func (r *GCRunner) Stop() {
	close(r.stop)
	<-r.done
}

// TempDir creates a temporary directory for a persistent test store.
func TempDir(prefix string) (string, error) {
	return os.MkdirTemp("", prefix)
}

// CleanupDir removes a directory created by TempDir. Empty path is a no-op.
func CleanupDir(dir string) error {
	if dir == "" {
		return nil
	}
	return os.RemoveAll(dir)
}
