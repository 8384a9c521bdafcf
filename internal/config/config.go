// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the Pipeline configuration: the single immutable
// record of weights, temperatures, and temporal-window sizes that flows by
// reference through the orchestrator. The phase classifier's rule
// thresholds are constants in internal/phase, not Config fields. No stage
// reads a process-wide singleton; everything it needs comes from a Config
// value passed to it.
//
// Thread Safety:
//
//	Load returns an immutable *Config. Safe to share across goroutines
//	without synchronization once loaded.
package config

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gopkg.in/yaml.v3"
)

const (
	// MaxYAMLFileSize bounds external config files (1MB).
	MaxYAMLFileSize = 1024 * 1024

	minMemberCount = 3
)

//go:embed config.yaml
var defaultConfigYAML []byte

var configTracer = otel.Tracer("hypegraph.config")

var (
	configLoadErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hypegraph_config_load_errors_total",
		Help: "Total configuration load errors",
	})

	configLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hypegraph_config_load_duration_seconds",
		Help:    "Duration of configuration loading",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5},
	})
)

// LayerWeights are the ensemble weights applied to the four layer scores
// when computing weighted_score. Must sum to 1.0.
type LayerWeights struct {
	Innovation float64 `yaml:"innovation"`
	Adoption   float64 `yaml:"adoption"`
	Narrative  float64 `yaml:"narrative"`
	Risk       float64 `yaml:"risk"`
}

// Sum returns the total of the four weights.
func (w LayerWeights) Sum() float64 {
	return w.Innovation + w.Adoption + w.Narrative + w.Risk
}

// StageTemperatures are the per-stage LLM sampling temperatures. Scoring
// stages run cold for factual consistency; the narrative generator runs
// warmer for readable prose.
type StageTemperatures struct {
	Innovation float32 `yaml:"innovation"`
	Adoption   float32 `yaml:"adoption"`
	Narrative  float32 `yaml:"narrative"`
	Risk       float32 `yaml:"risk"`
	Summary    float32 `yaml:"summary"`
}

// TemporalWindows are the fixed, inclusive-exclusive lookback windows for
// each layer's evidence query, anchored to the analysis date.
type TemporalWindows struct {
	InnovationDays int `yaml:"innovation_days"`
	AdoptionDays   int `yaml:"adoption_days"`
	NarrativeDays  int `yaml:"narrative_days"`
	RiskDays       int `yaml:"risk_days"`
}

// StratumProportions is the stratified sampler's target share of the
// output per community-maturity stratum. Must sum to 1.0. Mirrors the four
// classes the sampler itself classifies communities into.
type StratumProportions struct {
	EarlyStage float64 `yaml:"early_stage"`
	MidStage   float64 `yaml:"mid_stage"`
	LateStage  float64 `yaml:"late_stage"`
	HypeStage  float64 `yaml:"hype_stage"`
}

// Sum returns the total of the four proportions.
func (p StratumProportions) Sum() float64 {
	return p.EarlyStage + p.MidStage + p.LateStage + p.HypeStage
}

// Config is the single immutable record of tunables passed by reference
// through the orchestrator. Build one with Load; nothing in the pipeline
// mutates it after construction.
type Config struct {
	CommunityVersion      string             `yaml:"community_version"`
	TechCount             int                `yaml:"tech_count"`
	MinDocumentCount      int                `yaml:"min_document_count"`
	MinMemberCount        int                `yaml:"min_member_count"`
	EnableExternalSearch  bool               `yaml:"enable_external_search"`
	StratumProportions    StratumProportions `yaml:"stratum_proportions"`
	AnalysisAnchorDate    string             `yaml:"analysis_anchor_date"`
	LayerWeights          LayerWeights       `yaml:"layer_weights"`
	StageTemperatures     StageTemperatures  `yaml:"stage_temperatures"`
	TemporalWindows       TemporalWindows    `yaml:"temporal_windows"`
	Concurrency           int                `yaml:"concurrency"`
	LLMRateLimitPerSecond float64            `yaml:"llm_rate_limit_per_second"`
}

// AnchorTime parses AnalysisAnchorDate, treating "today" (the default) as
// the given now.
func (c *Config) AnchorTime(now time.Time) (time.Time, error) {
	if c.AnalysisAnchorDate == "" || c.AnalysisAnchorDate == "today" {
		return now, nil
	}
	return time.Parse("2006-01-02", c.AnalysisAnchorDate)
}

// Validate checks invariants that must hold regardless of where the config
// came from: weights and stratum proportions sum to 1.0, counts are
// non-negative.
func (c *Config) Validate() error {
	const epsilon = 1e-9
	if diff := c.LayerWeights.Sum() - 1.0; diff > epsilon || diff < -epsilon {
		return fmt.Errorf("layer_weights must sum to 1.0, got %v", c.LayerWeights.Sum())
	}
	if diff := c.StratumProportions.Sum() - 1.0; diff > epsilon || diff < -epsilon {
		return fmt.Errorf("stratum_proportions must sum to 1.0, got %v", c.StratumProportions.Sum())
	}
	if c.TechCount < 0 {
		return fmt.Errorf("tech_count must not be negative, got %d", c.TechCount)
	}
	if c.MinDocumentCount < 0 {
		return fmt.Errorf("min_document_count must not be negative, got %d", c.MinDocumentCount)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.LLMRateLimitPerSecond < 0 {
		return fmt.Errorf("llm_rate_limit_per_second must not be negative, got %v", c.LLMRateLimitPerSecond)
	}
	return nil
}

// Default returns the embedded baseline configuration (default v1
// community version, tech_count=100, min_document_count=5,
// enable_external_search=false, weights {0.30, 0.35, 0.15, 0.20},
// temporal windows {730, 540, 180, 180}).
func Default() (*Config, error) {
	return parse(defaultConfigYAML)
}

// Load resolves a Config: an override file at path if non-empty, else the
// HYPEGRAPH_CONFIG_PATH environment variable, else the embedded default.
// Fields present in an override are merged over the embedded default so a
// caller can override just tech_count, say, without repeating every field.
func Load(ctx context.Context, path string) (*Config, error) {
	if ctx == nil {
		return nil, fmt.Errorf("config.Load: ctx must not be nil")
	}

	ctx, span := configTracer.Start(ctx, "config.Load")
	defer span.End()

	start := time.Now()
	defer func() { configLoadDuration.Observe(time.Since(start).Seconds()) }()

	cfg, err := Default()
	if err != nil {
		configLoadErrors.Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedded default invalid")
		return nil, fmt.Errorf("parsing embedded default config: %w", err)
	}

	if path == "" {
		path = os.Getenv("HYPEGRAPH_CONFIG_PATH")
	}
	if path == "" {
		span.SetAttributes(attribute.String("source", "embedded"))
		return cfg, cfg.Validate()
	}

	data, err := loadExternalYAML(path)
	if err != nil {
		slog.Warn("external config not available, using embedded default",
			slog.String("path", path), slog.String("error", err.Error()))
		span.SetAttributes(attribute.String("source", "embedded_fallback"))
		return cfg, cfg.Validate()
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		configLoadErrors.Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		return nil, fmt.Errorf("unmarshaling config override %q: %w", path, err)
	}

	span.SetAttributes(attribute.String("source", "external"), attribute.String("path", path))
	if err := cfg.Validate(); err != nil {
		configLoadErrors.Inc()
		span.RecordError(err)
		return nil, fmt.Errorf("validating merged config: %w", err)
	}
	return cfg, nil
}

func parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

func loadExternalYAML(path string) ([]byte, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	if strings.Contains(absPath, "..") {
		return nil, fmt.Errorf("loadExternalYAML: path traversal not allowed: %s", absPath)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if info.Size() > MaxYAMLFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), MaxYAMLFileSize)
	}

	return os.ReadFile(absPath)
}
