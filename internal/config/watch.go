// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce absorbs editors that write a file in several bursts
// (truncate, then write, then rename) as one logical change.
const reloadDebounce = 150 * time.Millisecond

// Watch reloads the override file at path whenever it changes on disk,
// invoking onReload with the newly parsed Config. It never reports parse
// or validation failures to the caller directly: a bad edit is logged and
// the previous, already-validated Config stays in effect, so a typo mid
// batch-run never takes the pipeline down. Watch blocks until ctx is
// canceled or the underlying watcher fails to start.
func Watch(ctx context.Context, path string, onReload func(*Config)) error {
	if path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	var debounce *time.Timer
	reload := func() {
		cfg, err := Load(ctx, path)
		if err != nil {
			slog.Warn("config override reload failed, keeping previous config",
				slog.String("path", path), slog.String("error", err.Error()))
			return
		}
		onReload(cfg)
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, reload)
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config watcher error", slog.String("error", watchErr.Error()))
		}
	}
}
