// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath   string
	outputPath   string
	llmProvider  string
	techID       string
	techName     string
	techIDs      []string
	gcsBucket    string
	gcsProject   string
	gcsKeyPath   string
	gcsPrefix    string
	watchConfig  bool
	metricsAddr  string

	rootCmd = &cobra.Command{
		Use:   "hypegraph",
		Short: "Scores technologies against a Gartner-style Hype Cycle model",
		Long: `hypegraph samples technologies from a property graph, scores them
across four layers with an LLM, and positions them on a Hype Cycle chart.`,
	}

	// --- analyze-one ---
	analyzeOneCmd = &cobra.Command{
		Use:   "analyze-one",
		Short: "Score a single caller-supplied technology",
		RunE:  runAnalyzeOne, // defined in cmd_analyze.go
	}

	// --- analyze-many ---
	analyzeManyCmd = &cobra.Command{
		Use:   "analyze-many",
		Short: "Score a caller-supplied list of technology ids",
		RunE:  runAnalyzeMany, // defined in cmd_analyze.go
	}

	// --- generate-chart ---
	generateChartCmd = &cobra.Command{
		Use:   "generate-chart",
		Short: "Sample the graph and produce a full Hype Cycle chart batch",
		RunE:  runGenerateChart, // defined in cmd_analyze.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a config.yaml override (else HYPEGRAPH_CONFIG_PATH, else the embedded default)")
	rootCmd.PersistentFlags().StringVar(&outputPath, "output", "", "write chart JSON here instead of stdout")
	rootCmd.PersistentFlags().StringVar(&llmProvider, "llm-provider", "anthropic", "LLM backend: anthropic or openai")
	rootCmd.PersistentFlags().StringVar(&gcsBucket, "gcs-bucket", "", "optional GCS bucket to publish the chart JSON to")
	rootCmd.PersistentFlags().StringVar(&gcsProject, "gcs-project", "", "GCS project id (required with --gcs-bucket)")
	rootCmd.PersistentFlags().StringVar(&gcsKeyPath, "gcs-key", "", "path to a GCS service account key (required with --gcs-bucket)")
	rootCmd.PersistentFlags().StringVar(&gcsPrefix, "gcs-prefix", "hype-cycle", "object-name prefix under the bucket; every subcommand writes its JSON beneath it")
	rootCmd.PersistentFlags().BoolVar(&watchConfig, "watch-config", false, "reload --config on edit for the duration of a long generate-chart run")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090) instead of the stdout metrics exporter")

	analyzeOneCmd.Flags().StringVar(&techID, "tech-id", "", "technology id to score (required)")
	analyzeOneCmd.Flags().StringVar(&techName, "tech-name", "", "technology display name to score (required)")
	analyzeOneCmd.MarkFlagRequired("tech-id")
	analyzeOneCmd.MarkFlagRequired("tech-name")

	analyzeManyCmd.Flags().StringSliceVar(&techIDs, "tech-ids", nil, "comma-separated technology ids to score (required)")
	analyzeManyCmd.MarkFlagRequired("tech-ids")

	rootCmd.AddCommand(analyzeOneCmd, analyzeManyCmd, generateChartCmd)
}
