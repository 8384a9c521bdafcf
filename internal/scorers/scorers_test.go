// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scorers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hypegraph/engine/internal/graph"
	"github.com/hypegraph/engine/internal/llmadapter"
)

type fakeLLM struct {
	response string
	err      error
	prompt   string // last prompt received
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, params llmadapter.GenerationParams) (string, error) {
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type fakeAccessor struct {
	graph.Accessor
}

func (fakeAccessor) PatentActivity(techID string, start, end time.Time) (graph.PatentActivity, error) {
	return graph.PatentActivity{PatentCount: 12, CitationSum: 40, PageRankWeightedCount: 60, AvgPageRank: 5}, nil
}
func (fakeAccessor) PaperActivity(techID string, start, end time.Time) (graph.PaperActivity, error) {
	return graph.PaperActivity{PaperCount: 30, CitationSum: 100}, nil
}
func (fakeAccessor) CommunityContext(techID, version string) (graph.CommunityContext, error) {
	return graph.CommunityContext{CommunityID: "c1"}, nil
}
func (fakeAccessor) TemporalTrend(techID string, window, bucket time.Duration, anchor time.Time) (graph.Trend, error) {
	return graph.TrendGrowing, nil
}
func (fakeAccessor) ContractActivity(techID string, start, end time.Time) (graph.ContractActivity, error) {
	return graph.ContractActivity{ContractCount: 25, TotalValueUSD: 1e7, AvgValue: 4e5}, nil
}
func (fakeAccessor) RegulationActivity(techID string, start, end time.Time) (int, error) { return 6, nil }
func (fakeAccessor) CompaniesDeveloping(techID string) (int, []graph.CompanySummary, error) {
	return 35, []graph.CompanySummary{{ID: "co1", Name: "Acme", PageRank: 0.9}}, nil
}
func (fakeAccessor) RevenueMentions(techID string, start, end time.Time) (int, error) { return 4, nil }
func (fakeAccessor) NewsActivity(techID string, start, end time.Time) (graph.NewsActivity, error) {
	return graph.NewsActivity{NewsCount: 50, Tier1Count: 20}, nil
}
func (fakeAccessor) SECRiskMentions(techID string, start, end time.Time) (int, error) { return 45, nil }
func (fakeAccessor) InsiderTrading(techID string, start, end time.Time) (graph.InsiderTrading, error) {
	return graph.InsiderTrading{BuyCount: 2, SellCount: 10, NetPosition: graph.NetSelling}, nil
}
func (fakeAccessor) InstitutionalHoldingsPct(techID string) (float64, error) { return 0.1, nil }

func adapterWith(resp string, err error) *llmadapter.Adapter {
	return llmadapter.NewAdapter(&fakeLLM{response: resp, err: err}, llmadapter.AdapterConfig{BaseBackoff: time.Millisecond})
}

const goodJSON = `{"score": 72.5, "reasoning": "strong signal", "confidence": "high"}`

func TestInnovationScorer_Score(t *testing.T) {
	s := &InnovationScorer{Graph: fakeAccessor{}, Adapter: adapterWith(goodJSON, nil), Temp: 0.2, Window: 730 * 24 * time.Hour, Bucket: 180 * 24 * time.Hour, Version: "v1"}
	layer := s.Score(context.Background(), "tech1", "Quantum Widgets", time.Now())
	if layer.Score != 72.5 || layer.Confidence != ConfidenceHigh {
		t.Fatalf("unexpected layer: %+v", layer)
	}
}

func TestAdoptionScorer_Score(t *testing.T) {
	s := &AdoptionScorer{Graph: fakeAccessor{}, Adapter: adapterWith(goodJSON, nil), Temp: 0.2, Window: 540 * 24 * time.Hour}
	layer := s.Score(context.Background(), "tech1", "Quantum Widgets", time.Now())
	if layer.Score != 72.5 {
		t.Fatalf("unexpected layer: %+v", layer)
	}
}

func TestNarrativeScorer_FallbackFreshness(t *testing.T) {
	llm := &fakeLLM{response: goodJSON}
	adapter := llmadapter.NewAdapter(llm, llmadapter.AdapterConfig{BaseBackoff: time.Millisecond})
	s := &NarrativeScorer{Graph: fakeAccessor{}, Adapter: adapter, Temp: 0.3, Window: 180 * 24 * time.Hour, EnableExternalSearch: false}
	layer := s.Score(context.Background(), "tech1", "Quantum Widgets", time.Now())
	if layer.Score != 72.5 {
		t.Fatalf("unexpected layer: %+v", layer)
	}
	if !strings.Contains(llm.prompt, "freshness_fraction: 0.330") || !strings.Contains(llm.prompt, "freshness_adjustment_suggested: 0.0") {
		t.Fatalf("prompt does not carry the 0.33 fallback freshness: %s", llm.prompt)
	}
}

type fakeExternalSearch struct{ count int }

func (f fakeExternalSearch) RecentMentionCount(ctx context.Context, techName string, window time.Duration) (int, error) {
	return f.count, nil
}

func TestNarrativeScorer_ExternalSearchBoostsFreshness(t *testing.T) {
	llm := &fakeLLM{response: goodJSON}
	adapter := llmadapter.NewAdapter(llm, llmadapter.AdapterConfig{BaseBackoff: time.Millisecond})
	s := &NarrativeScorer{
		Graph: fakeAccessor{}, Adapter: adapter, Temp: 0.3, Window: 180 * 24 * time.Hour,
		EnableExternalSearch: true, External: fakeExternalSearch{count: 500},
	}
	layer := s.Score(context.Background(), "tech1", "Quantum Widgets", time.Now())
	if layer.Score != 72.5 {
		t.Fatalf("unexpected layer: %+v", layer)
	}
	// 500 recent vs 50 in-graph: freshness 500/550 = 0.909, 2.75x the 0.33
	// baseline, which falls in the +15 band.
	if !strings.Contains(llm.prompt, "freshness_fraction: 0.909") || !strings.Contains(llm.prompt, "freshness_adjustment_suggested: 15.0") {
		t.Fatalf("prompt does not carry the boosted freshness: %s", llm.prompt)
	}
}

func TestRiskScorer_Score(t *testing.T) {
	s := &RiskScorer{Graph: fakeAccessor{}, Adapter: adapterWith(goodJSON, nil), Temp: 0.2, Window: 180 * 24 * time.Hour}
	layer := s.Score(context.Background(), "tech1", "Quantum Widgets", time.Now())
	if layer.Score != 72.5 {
		t.Fatalf("unexpected layer: %+v", layer)
	}
}

func TestScorer_DegradesOnLLMError(t *testing.T) {
	s := &RiskScorer{Graph: fakeAccessor{}, Adapter: adapterWith("", errors.New("boom")), Temp: 0.2, Window: 180 * 24 * time.Hour}
	layer := s.Score(context.Background(), "tech1", "Quantum Widgets", time.Now())
	if layer.Reasoning != "upstream_error" || layer.Confidence != ConfidenceLow || layer.Score != 0 {
		t.Fatalf("expected degraded layer, got %+v", layer)
	}
}

func TestScorer_ClampsOutOfRangeScore(t *testing.T) {
	s := &RiskScorer{Graph: fakeAccessor{}, Adapter: adapterWith(`{"score": 150, "reasoning": "x", "confidence": "medium"}`, nil), Temp: 0.2, Window: 180 * 24 * time.Hour}
	layer := s.Score(context.Background(), "tech1", "Quantum Widgets", time.Now())
	if layer.Score != 100 {
		t.Fatalf("expected clamp to 100, got %v", layer.Score)
	}
}

func TestScorer_DegradesOnGraphError(t *testing.T) {
	s := &RiskScorer{Graph: errAccessor{}, Adapter: adapterWith(goodJSON, nil), Temp: 0.2, Window: 180 * 24 * time.Hour}
	layer := s.Score(context.Background(), "tech1", "Quantum Widgets", time.Now())
	if layer.Reasoning != "upstream_error" {
		t.Fatalf("expected degraded layer, got %+v", layer)
	}
}

type errAccessor struct{ graph.Accessor }

func (errAccessor) SECRiskMentions(techID string, start, end time.Time) (int, error) {
	return 0, errors.New("graph down")
}
