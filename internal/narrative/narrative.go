// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package narrative implements the Narrative Generator (pipeline stage 8):
// an LLM call that turns the four layer scores, hype, and phase into an
// executive summary, a key insight, and a recommendation.
package narrative

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hypegraph/engine/internal/llmadapter"
	"github.com/hypegraph/engine/internal/phase"
)

const Stage = "narrative_summary"

// Recommendation is the closed vocabulary the narrative output allows.
type Recommendation string

const (
	RecommendInvest  Recommendation = "invest"
	RecommendMonitor Recommendation = "monitor"
	RecommendAvoid   Recommendation = "avoid"
	RecommendCaution Recommendation = "caution"
)

func validRecommendation(r Recommendation) bool {
	switch r {
	case RecommendInvest, RecommendMonitor, RecommendAvoid, RecommendCaution:
		return true
	default:
		return false
	}
}

// Result is the three-field structured output of the stage.
type Result struct {
	Summary        string
	Insight        string
	Recommendation Recommendation
}

// degraded is returned when the LLM adapter exhausts its retries.
func degraded() Result {
	return Result{Summary: "analysis_unavailable", Insight: "", Recommendation: RecommendMonitor}
}

// Inputs bundles everything the prompt needs: the four raw layer scores,
// the derived hype score, the classified phase, and layer divergence.
type Inputs struct {
	Innovation float64
	Adoption   float64
	Narrative  float64
	Risk       float64
	Hype       float64
	Phase      phase.Code
	Divergence float64
	TechName   string
}

type rawResult struct {
	Summary        string `json:"summary"`
	Insight        string `json:"insight"`
	Recommendation string `json:"recommendation"`
}

// Generator calls the LLM adapter to produce Result.
type Generator struct {
	Adapter     *llmadapter.Adapter
	Temperature float32 // fixed at 0.4, favoring consistency over creative variance
}

func (g *Generator) Generate(ctx context.Context, in Inputs) Result {
	prompt := fmt.Sprintf(`Write a Hype Cycle narrative for "%s". Return JSON:
{"summary": "3-4 sentence executive summary", "insight": "single sentence key insight",
"recommendation": "invest"|"monitor"|"avoid"|"caution"}.

Inputs:
- innovation: %.1f
- adoption: %.1f
- narrative: %.1f
- risk: %.1f
- hype: %.1f
- phase: %s
- layer_divergence: %.2f`,
		in.TechName, in.Innovation, in.Adoption, in.Narrative, in.Risk, in.Hype, in.Phase.Display(), in.Divergence)

	result, err := llmadapter.Call(ctx, g.Adapter, Stage, g.Temperature, prompt, parse)
	if err != nil {
		return degraded()
	}
	return result
}

func parse(raw string) (Result, int, error) {
	blob, err := llmadapter.ExtractJSON(raw)
	if err != nil {
		return Result{}, 0, fmt.Errorf("narrative: extracting structured output: %w", err)
	}
	var r rawResult
	if err := json.Unmarshal(blob, &r); err != nil {
		return Result{}, 0, fmt.Errorf("narrative: decoding structured output: %w", err)
	}
	rec := Recommendation(r.Recommendation)
	clamped := 0
	if !validRecommendation(rec) {
		rec = RecommendMonitor
		clamped = 1
	}
	return Result{Summary: r.Summary, Insight: r.Insight, Recommendation: rec}, clamped, nil
}
