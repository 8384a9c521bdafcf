// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command hypegraph is the CLI surface for the Hype Cycle pipeline:
// analyze-one and analyze-many score individual technologies on demand,
// generate-chart runs the full sampler-driven batch.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/hypegraph/engine/internal/config"
	"github.com/hypegraph/engine/pkg/secrets"
)

var cfgHolder atomic.Pointer[config.Config]

// cfg returns the currently active configuration. It is a live pointer
// rather than a one-time snapshot so a --watch-config reload between
// subcommand invocations is picked up without restarting the process.
func cfg() *config.Config {
	return cfgHolder.Load()
}

func main() {
	shutdown, err := setupTelemetry(context.Background())
	if err != nil {
		log.Fatalf("hypegraph: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "hypegraph: telemetry shutdown: %v\n", err)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("hypegraph: %v", err)
	}
}

func init() {
	rootCmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		loaded, err := config.Load(context.Background(), configPath)
		if err != nil {
			return err
		}
		cfgHolder.Store(loaded)
		slog.Info("configuration loaded", "community_version", loaded.CommunityVersion, "tech_count", loaded.TechCount)

		if watchConfig && configPath != "" {
			go func() {
				if err := config.Watch(context.Background(), configPath, func(reloaded *config.Config) {
					cfgHolder.Store(reloaded)
					slog.Info("configuration reloaded", "path", configPath)
				}); err != nil {
					slog.Warn("config watcher stopped", "error", err.Error())
				}
			}()
		}
		return nil
	}
}

// purgeSecrets is deferred by every subcommand's Run function so mlocked
// credential buffers never outlive the process.
func purgeSecrets() {
	secrets.Purge()
}
