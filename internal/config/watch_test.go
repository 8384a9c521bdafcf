// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatch_EmptyPath_ReturnsImmediately(t *testing.T) {
	done := make(chan error, 1)
	go func() { done <- Watch(context.Background(), "", func(*Config) {}) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Watch(\"\"): %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Watch with an empty path did not return")
	}
}

func TestWatch_ReloadsOnFileChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.yaml")
	if err := os.WriteFile(path, []byte("tech_count: 25\n"), 0644); err != nil {
		t.Fatalf("write override: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 1)
	watchErr := make(chan error, 1)
	go func() {
		watchErr <- Watch(ctx, path, func(cfg *Config) {
			select {
			case reloaded <- cfg:
			default:
			}
		})
	}()

	// Give the watcher a moment to register the file before we touch it.
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte("tech_count: 42\n"), 0644); err != nil {
		t.Fatalf("rewrite override: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.TechCount != 42 {
			t.Errorf("TechCount = %d, want 42", cfg.TechCount)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("onReload was never called after the override file changed")
	}

	cancel()
	select {
	case err := <-watchErr:
		if err != nil {
			t.Fatalf("Watch: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after context cancellation")
	}
}

func TestWatch_BadEditKeepsPreviousConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.yaml")
	if err := os.WriteFile(path, []byte("tech_count: 25\n"), 0644); err != nil {
		t.Fatalf("write override: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int
	reloaded := make(chan *Config, 4)
	go func() {
		_ = Watch(ctx, path, func(cfg *Config) {
			calls++
			reloaded <- cfg
		})
	}()

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte("tech_count: not-a-number\n"), 0644); err != nil {
		t.Fatalf("rewrite override: %v", err)
	}

	select {
	case <-reloaded:
		t.Fatal("onReload fired for an override that fails to parse")
	case <-time.After(500 * time.Millisecond):
	}

	if calls != 0 {
		t.Errorf("onReload called %d times, want 0 for a bad edit", calls)
	}
}
