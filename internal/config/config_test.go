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

func TestDefault_Valid(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.CommunityVersion != "v1" {
		t.Errorf("CommunityVersion = %q, want v1", cfg.CommunityVersion)
	}
	if cfg.TechCount != 100 {
		t.Errorf("TechCount = %d, want 100", cfg.TechCount)
	}
	if cfg.TemporalWindows.InnovationDays != 730 {
		t.Errorf("InnovationDays = %d, want 730", cfg.TemporalWindows.InnovationDays)
	}
}

func TestLoad_NoOverridePath_ReturnsDefault(t *testing.T) {
	cfg, err := Load(context.Background(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TechCount != 100 {
		t.Errorf("TechCount = %d, want 100", cfg.TechCount)
	}
}

func TestLoad_NilContext(t *testing.T) {
	_, err := Load(nil, "")
	if err == nil {
		t.Fatal("expected error for nil context")
	}
}

func TestLoad_OverrideMergesOverDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.yaml")
	if err := os.WriteFile(path, []byte("tech_count: 25\n"), 0644); err != nil {
		t.Fatalf("write override: %v", err)
	}

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TechCount != 25 {
		t.Errorf("TechCount = %d, want 25 (overridden)", cfg.TechCount)
	}
	if cfg.LayerWeights.Sum() < 0.999 || cfg.LayerWeights.Sum() > 1.001 {
		t.Errorf("LayerWeights should still sum to 1.0 from the embedded default, got %v", cfg.LayerWeights.Sum())
	}
}

func TestLoad_MissingOverrideFallsBackToDefault(t *testing.T) {
	cfg, err := Load(context.Background(), "/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("Load should fall back, not error: %v", err)
	}
	if cfg.TechCount != 100 {
		t.Errorf("TechCount = %d, want 100 (fallback default)", cfg.TechCount)
	}
}

func TestValidate_RejectsBadWeights(t *testing.T) {
	cfg, _ := Default()
	cfg.LayerWeights.Innovation = 0.9
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for weights not summing to 1.0")
	}
}

func TestValidate_RejectsBadStratumProportions(t *testing.T) {
	cfg, _ := Default()
	cfg.StratumProportions.EarlyStage = 0.9
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for stratum proportions not summing to 1.0")
	}
}

func TestValidate_RejectsNegativeTechCount(t *testing.T) {
	cfg, _ := Default()
	cfg.TechCount = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative tech_count")
	}
}

func TestValidate_RejectsNegativeRateLimit(t *testing.T) {
	cfg, _ := Default()
	cfg.LLMRateLimitPerSecond = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative llm_rate_limit_per_second")
	}
}

func TestAnchorTime_TodayDefault(t *testing.T) {
	cfg, _ := Default()
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	got, err := cfg.AnchorTime(now)
	if err != nil {
		t.Fatalf("AnchorTime: %v", err)
	}
	if !got.Equal(now) {
		t.Errorf("AnchorTime = %v, want %v", got, now)
	}
}

func TestAnchorTime_ExplicitDate(t *testing.T) {
	cfg, _ := Default()
	cfg.AnalysisAnchorDate = "2025-01-15"
	got, err := cfg.AnchorTime(time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("AnchorTime: %v", err)
	}
	if got.Year() != 2025 || got.Month() != 1 || got.Day() != 15 {
		t.Errorf("AnchorTime = %v, want 2025-01-15", got)
	}
}
