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
	"fmt"

	"github.com/spf13/cobra"
)

func runAnalyzeOne(cmd *cobra.Command, _ []string) error {
	defer purgeSecrets()
	ctx := cmd.Context()

	a, err := buildOrchestrator(ctx, cfg())
	if err != nil {
		return fmt.Errorf("analyze-one: %w", err)
	}
	defer a.close()

	rec, err := a.orch.AnalyzeOne(ctx, techID, techName, cfg())
	if err != nil {
		return fmt.Errorf("analyze-one: %w", err)
	}
	return emit(ctx, rec, fmt.Sprintf("%s/%s.json", gcsPrefix, rec.ID))
}

func runAnalyzeMany(cmd *cobra.Command, _ []string) error {
	defer purgeSecrets()
	ctx := cmd.Context()

	a, err := buildOrchestrator(ctx, cfg())
	if err != nil {
		return fmt.Errorf("analyze-many: %w", err)
	}
	defer a.close()

	batch, err := a.orch.AnalyzeMany(ctx, techIDs, cfg())
	if err != nil {
		return fmt.Errorf("analyze-many: %w", err)
	}
	return emit(ctx, batch, fmt.Sprintf("%s/batch.json", gcsPrefix))
}

func runGenerateChart(cmd *cobra.Command, _ []string) error {
	defer purgeSecrets()
	ctx := cmd.Context()

	a, err := buildOrchestrator(ctx, cfg())
	if err != nil {
		return fmt.Errorf("generate-chart: %w", err)
	}
	defer a.close()

	batch, err := a.orch.RunBatch(ctx, cfg())
	if err != nil {
		return fmt.Errorf("generate-chart: %w", err)
	}
	return emit(ctx, batch, fmt.Sprintf("%s/chart.json", gcsPrefix))
}
