// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package narrative

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hypegraph/engine/internal/llmadapter"
	"github.com/hypegraph/engine/internal/phase"
)

type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, params llmadapter.GenerationParams) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func adapterWith(resp string, err error) *llmadapter.Adapter {
	return llmadapter.NewAdapter(&fakeLLM{response: resp, err: err}, llmadapter.AdapterConfig{BaseBackoff: time.Millisecond})
}

func TestGenerate_HappyPath(t *testing.T) {
	resp := `{"summary": "Strong fundamentals.", "insight": "Adoption is accelerating.", "recommendation": "invest"}`
	g := &Generator{Adapter: adapterWith(resp, nil), Temperature: 0.4}
	result := g.Generate(context.Background(), Inputs{TechName: "Quantum Widgets", Phase: phase.Slope})
	if result.Recommendation != RecommendInvest || result.Summary != "Strong fundamentals." {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestGenerate_DegradesOnLLMError(t *testing.T) {
	g := &Generator{Adapter: adapterWith("", errors.New("boom")), Temperature: 0.4}
	result := g.Generate(context.Background(), Inputs{TechName: "Quantum Widgets", Phase: phase.Slope})
	if result.Summary != "analysis_unavailable" || result.Insight != "" || result.Recommendation != RecommendMonitor {
		t.Fatalf("unexpected degraded result: %+v", result)
	}
}

func TestGenerate_InvalidRecommendationFallsBackToMonitor(t *testing.T) {
	resp := `{"summary": "ok", "insight": "ok", "recommendation": "buy_everything"}`
	g := &Generator{Adapter: adapterWith(resp, nil), Temperature: 0.4}
	result := g.Generate(context.Background(), Inputs{TechName: "Quantum Widgets", Phase: phase.Peak})
	if result.Recommendation != RecommendMonitor {
		t.Fatalf("expected fallback to monitor, got %v", result.Recommendation)
	}
}
