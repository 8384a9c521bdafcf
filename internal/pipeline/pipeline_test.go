// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/hypegraph/engine/internal/chart"
	"github.com/hypegraph/engine/internal/config"
	"github.com/hypegraph/engine/internal/ensemble"
	"github.com/hypegraph/engine/internal/graph"
	"github.com/hypegraph/engine/internal/llmadapter"
	"github.com/hypegraph/engine/internal/narrative"
	"github.com/hypegraph/engine/internal/scorers"
)

type fakeLLM struct{ response string }

func (f *fakeLLM) Generate(ctx context.Context, prompt string, params llmadapter.GenerationParams) (string, error) {
	return f.response, nil
}

type fakeAccessor struct {
	graph.Accessor
	techs []graph.TechSummary
}

func (f *fakeAccessor) AllCommunities(version string, minMemberCount int) ([]graph.CommunitySummary, error) {
	return []graph.CommunitySummary{
		{ID: "c1", MemberCount: 5, DocTypeDistribution: map[string]int{"patent": 1, "news": 1, "contract": 1}},
	}, nil
}
func (f *fakeAccessor) TopTechnologies(qualityThreshold float64) ([]graph.TechSummary, error) {
	return f.techs, nil
}
func (fakeAccessor) PatentActivity(techID string, start, end time.Time) (graph.PatentActivity, error) {
	return graph.PatentActivity{PatentCount: 10}, nil
}
func (fakeAccessor) PaperActivity(techID string, start, end time.Time) (graph.PaperActivity, error) {
	return graph.PaperActivity{PaperCount: 20}, nil
}
func (fakeAccessor) CommunityContext(techID, version string) (graph.CommunityContext, error) {
	return graph.CommunityContext{}, nil
}
func (fakeAccessor) TemporalTrend(techID string, window, bucket time.Duration, anchor time.Time) (graph.Trend, error) {
	return graph.TrendStable, nil
}
func (fakeAccessor) ContractActivity(techID string, start, end time.Time) (graph.ContractActivity, error) {
	return graph.ContractActivity{ContractCount: 5}, nil
}
func (fakeAccessor) RegulationActivity(techID string, start, end time.Time) (int, error) { return 2, nil }
func (fakeAccessor) CompaniesDeveloping(techID string) (int, []graph.CompanySummary, error) {
	return 5, nil, nil
}
func (fakeAccessor) RevenueMentions(techID string, start, end time.Time) (int, error) { return 1, nil }
func (fakeAccessor) NewsActivity(techID string, start, end time.Time) (graph.NewsActivity, error) {
	return graph.NewsActivity{NewsCount: 10}, nil
}
func (fakeAccessor) SECRiskMentions(techID string, start, end time.Time) (int, error) { return 5, nil }
func (fakeAccessor) InsiderTrading(techID string, start, end time.Time) (graph.InsiderTrading, error) {
	return graph.InsiderTrading{NetPosition: graph.NetNeutral}, nil
}
func (fakeAccessor) InstitutionalHoldingsPct(techID string) (float64, error) { return 0.2, nil }

const scoreJSON = `{"score": 50, "reasoning": "steady", "confidence": "medium"}`
const narrativeJSON = `{"summary": "Balanced outlook.", "insight": "Adoption is steady.", "recommendation": "monitor"}`

func buildOrchestrator(t *testing.T, techs []graph.TechSummary) *Orchestrator {
	t.Helper()
	acc := &fakeAccessor{techs: techs}
	scoreAdapter := func() *llmadapter.Adapter {
		return llmadapter.NewAdapter(&fakeLLM{response: scoreJSON}, llmadapter.AdapterConfig{BaseBackoff: time.Millisecond})
	}
	return &Orchestrator{
		Graph: acc,
		Scorers: Scorers{
			Innovation: &scorers.InnovationScorer{Graph: acc, Adapter: scoreAdapter(), Temp: 0.2, Window: 730 * 24 * time.Hour, Bucket: 180 * 24 * time.Hour, Version: "v1"},
			Adoption:   &scorers.AdoptionScorer{Graph: acc, Adapter: scoreAdapter(), Temp: 0.2, Window: 540 * 24 * time.Hour},
			Narrative:  &scorers.NarrativeScorer{Graph: acc, Adapter: scoreAdapter(), Temp: 0.3, Window: 180 * 24 * time.Hour},
			Risk:       &scorers.RiskScorer{Graph: acc, Adapter: scoreAdapter(), Temp: 0.2, Window: 180 * 24 * time.Hour},
		},
		Narrator:    &narrative.Generator{Adapter: llmadapter.NewAdapter(&fakeLLM{response: narrativeJSON}, llmadapter.AdapterConfig{BaseBackoff: time.Millisecond}), Temperature: 0.4},
		LayerWeight: ensemble.LayerWeights{Innovation: 0.30, Adoption: 0.35, Narrative: 0.15, Risk: 0.20},
	}
}

func testConfig(n int) *config.Config {
	return &config.Config{
		CommunityVersion: "v1",
		TechCount:        n,
		MinMemberCount:   1,
		Concurrency:      4,
		LayerWeights:     config.LayerWeights{Innovation: 0.30, Adoption: 0.35, Narrative: 0.15, Risk: 0.20},
		TemporalWindows:  config.TemporalWindows{InnovationDays: 730, AdoptionDays: 540, NarrativeDays: 180, RiskDays: 180},
		StratumProportions: config.StratumProportions{EarlyStage: 0.20, MidStage: 0.40, LateStage: 0.20, HypeStage: 0.20},
	}
}

func TestRunBatch_ProducesOneRecordPerTech(t *testing.T) {
	techs := []graph.TechSummary{
		{ID: "t1", Name: "Quantum Widgets", QualityScore: 0.9, TotalDocs: 10},
		{ID: "t2", Name: "Neural Gadgets", QualityScore: 0.9, TotalDocs: 10},
	}
	o := buildOrchestrator(t, techs)
	batch, err := o.RunBatch(context.Background(), testConfig(2))
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if len(batch.Technologies) != 2 {
		t.Fatalf("len = %d, want 2", len(batch.Technologies))
	}
	for _, rec := range batch.Technologies {
		if rec.Validation.Status != "valid" {
			t.Errorf("tech %s: validation = %+v", rec.ID, rec.Validation)
		}
	}
}

func TestRunBatch_MetadataWeightsSumToOne(t *testing.T) {
	techs := []graph.TechSummary{{ID: "t1", Name: "Quantum Widgets", QualityScore: 0.9, TotalDocs: 10}}
	o := buildOrchestrator(t, techs)
	batch, err := o.RunBatch(context.Background(), testConfig(1))
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	var sum float64
	for _, w := range batch.BatchMetadata.LayerWeights {
		sum += w
	}
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("layer weights sum = %v, want 1.0", sum)
	}
}

func TestRunBatch_EmptySampleProducesEmptyBatch(t *testing.T) {
	o := buildOrchestrator(t, nil)
	batch, err := o.RunBatch(context.Background(), testConfig(5))
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if len(batch.Technologies) != 0 {
		t.Fatalf("len = %d, want 0", len(batch.Technologies))
	}
}

func TestAnalyzeOne_ScoresSingleCallerSuppliedTech(t *testing.T) {
	o := buildOrchestrator(t, nil)
	rec, err := o.AnalyzeOne(context.Background(), "t1", "Quantum Widgets", testConfig(1))
	if err != nil {
		t.Fatalf("AnalyzeOne: %v", err)
	}
	if rec.ID != "t1" || rec.Name != "Quantum Widgets" {
		t.Errorf("rec = %+v, want id=t1 name=Quantum Widgets", rec)
	}
	if rec.Validation.Status != "valid" {
		t.Errorf("validation = %+v", rec.Validation)
	}
}

func TestAnalyzeMany_ResolvesNamesFromCatalogueAndFallsBackForUnknownIDs(t *testing.T) {
	techs := []graph.TechSummary{
		{ID: "t1", Name: "Quantum Widgets", QualityScore: 0.9, TotalDocs: 10},
	}
	o := buildOrchestrator(t, techs)
	batch, err := o.AnalyzeMany(context.Background(), []string{"t1", "t2"}, testConfig(2))
	if err != nil {
		t.Fatalf("AnalyzeMany: %v", err)
	}
	if len(batch.Technologies) != 2 {
		t.Fatalf("len = %d, want 2", len(batch.Technologies))
	}
	byID := make(map[string]chart.Record, len(batch.Technologies))
	for _, rec := range batch.Technologies {
		byID[rec.ID] = rec
	}
	if byID["t1"].Name != "Quantum Widgets" {
		t.Errorf("t1 name = %q, want catalogue name", byID["t1"].Name)
	}
	if byID["t2"].Name != "t2" {
		t.Errorf("t2 name = %q, want fallback to id", byID["t2"].Name)
	}
}
