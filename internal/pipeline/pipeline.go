// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pipeline implements the Pipeline Orchestrator:
// stage 1's stratified sample fans out into one bounded-concurrency run of
// stages 2-12 per sampled technology. Each per-technology run is itself a
// dag.DAG, so the {innovation,adoption,narrative,risk} scorers (stages
// 2-5) and the {chart,evidence} formatters (stages 10-11) execute in
// parallel wherever their dependency edges allow it, without the
// orchestrator having to hand-roll that fan-out.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/go-openapi/strfmt"
	"golang.org/x/sync/semaphore"

	"github.com/hypegraph/engine/internal/chart"
	"github.com/hypegraph/engine/internal/config"
	"github.com/hypegraph/engine/internal/dag"
	"github.com/hypegraph/engine/internal/ensemble"
	"github.com/hypegraph/engine/internal/evidence"
	"github.com/hypegraph/engine/internal/graph"
	"github.com/hypegraph/engine/internal/hype"
	"github.com/hypegraph/engine/internal/narrative"
	"github.com/hypegraph/engine/internal/phase"
	"github.com/hypegraph/engine/internal/sampler"
	"github.com/hypegraph/engine/internal/scorers"
	"github.com/hypegraph/engine/internal/timeseries"
)

// Stage node names within one technology's DAG.
const (
	nodeScoreInnovation = "SCORE_INNOVATION"
	nodeScoreAdoption   = "SCORE_ADOPTION"
	nodeScoreNarrative  = "SCORE_NARRATIVE"
	nodeScoreRisk       = "SCORE_RISK"
	nodeHype            = "HYPE_DERIVE"
	nodePhase           = "PHASE_CLASSIFY"
	nodeNarrative       = "NARRATIVE_GENERATE"
	nodeEnsemble        = "ENSEMBLE_POSITION"
	nodeChartFormat     = "CHART_FORMAT"
	nodeEvidenceCompile = "EVIDENCE_COMPILE"
	nodeValidate        = "OUTPUT_VALIDATE"
)

// Scorers bundles the four layer scorers the orchestrator drives.
type Scorers struct {
	Innovation *scorers.InnovationScorer
	Adoption   *scorers.AdoptionScorer
	Narrative  *scorers.NarrativeScorer
	Risk       *scorers.RiskScorer
}

// Orchestrator wires stage 1's sampler into a bounded-concurrency fan-out
// of per-technology DAG runs (stages 2-12).
type Orchestrator struct {
	Graph       graph.Accessor
	Scorers     Scorers
	Narrator    *narrative.Generator
	LayerWeight ensemble.LayerWeights
	Logger      *slog.Logger

	// History is the optional score-history sink (nil disables it
	// entirely). A write failure is logged and never fails the batch.
	History *timeseries.Sink
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// techResult is one per-technology DAG run's output, or a recorded failure.
type techResult struct {
	tech graph.TechSummary
	rec  chart.Record
	err  error
}

// RunBatch samples, fans out analysis with Concurrency-bounded parallelism,
// then formats, validates, and assembles the batch document. A single
// technology's failure never aborts the batch: it is recorded as an
// invalid/omitted record and logged.
func (o *Orchestrator) RunBatch(ctx context.Context, cfg *config.Config) (*chart.Batch, error) {
	anchor, err := cfg.AnchorTime(time.Now())
	if err != nil {
		return nil, fmt.Errorf("pipeline: resolving anchor date: %w", err)
	}

	selected, err := sampler.Sample(o.Graph, sampler.Params{
		N:                cfg.TechCount,
		CommunityVersion: cfg.CommunityVersion,
		MinMembers:       cfg.MinMemberCount,
		MinDocumentCount: cfg.MinDocumentCount,
		Proportions:      toSamplerProportions(cfg.StratumProportions),
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: sampling technologies: %w", err)
	}

	techs := make([]graph.TechSummary, len(selected))
	for i, sel := range selected {
		techs[i] = sel.Tech
	}

	records, err := o.runMany(ctx, techs, anchor, cfg)
	if err != nil {
		return nil, err
	}
	return assembleBatch(records, cfg, anchor), nil
}

// toSamplerProportions converts the config layer's stratum_proportions
// override into the sampler's own maturity-class-keyed shape.
func toSamplerProportions(p config.StratumProportions) map[sampler.MaturityClass]float64 {
	return map[sampler.MaturityClass]float64{
		sampler.EarlyStage: p.EarlyStage,
		sampler.MidStage:   p.MidStage,
		sampler.LateStage:  p.LateStage,
		sampler.HypeStage:  p.HypeStage,
	}
}

// AnalyzeOne runs the eleven-node DAG against a single caller-supplied
// technology, bypassing the sampler entirely.
func (o *Orchestrator) AnalyzeOne(ctx context.Context, techID, techName string, cfg *config.Config) (chart.Record, error) {
	anchor, err := cfg.AnchorTime(time.Now())
	if err != nil {
		return chart.Record{}, fmt.Errorf("pipeline: resolving anchor date: %w", err)
	}
	tech := graph.TechSummary{ID: techID, Name: techName}
	return o.runOne(ctx, tech, anchor, cfg)
}

// AnalyzeMany fans out over a caller-supplied id list with the same
// bounded concurrency RunBatch uses, resolving each id's display name from
// the graph's technology catalogue since the caller supplies only ids,
// unlike AnalyzeOne.
func (o *Orchestrator) AnalyzeMany(ctx context.Context, techIDs []string, cfg *config.Config) (*chart.Batch, error) {
	anchor, err := cfg.AnchorTime(time.Now())
	if err != nil {
		return nil, fmt.Errorf("pipeline: resolving anchor date: %w", err)
	}

	catalogue, err := o.Graph.TopTechnologies(0)
	if err != nil {
		return nil, fmt.Errorf("pipeline: resolving technology catalogue: %w", err)
	}
	byID := make(map[string]graph.TechSummary, len(catalogue))
	for _, t := range catalogue {
		byID[t.ID] = t
	}

	techs := make([]graph.TechSummary, len(techIDs))
	for i, id := range techIDs {
		if t, ok := byID[id]; ok {
			techs[i] = t
			continue
		}
		o.logger().Warn("technology id not found in catalogue, scoring by id alone", "tech_id", id)
		techs[i] = graph.TechSummary{ID: id, Name: id}
	}

	records, err := o.runMany(ctx, techs, anchor, cfg)
	if err != nil {
		return nil, err
	}
	return assembleBatch(records, cfg, anchor), nil
}

// runMany fans out runOne over techs with a Concurrency-bounded semaphore.
// A single technology's failure never aborts the batch: it
// is recorded as an invalid/omitted record and logged.
func (o *Orchestrator) runMany(ctx context.Context, techs []graph.TechSummary, anchor time.Time, cfg *config.Config) ([]chart.Record, error) {
	sem := semaphore.NewWeighted(int64(cfg.Concurrency))
	results := make([]techResult, len(techs))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i, tech := range techs {
			i, tech := i, tech
			if err := sem.Acquire(ctx, 1); err != nil {
				results[i] = techResult{tech: tech, err: err}
				continue
			}
			go func() {
				defer sem.Release(1)
				rec, rerr := o.runOne(ctx, tech, anchor, cfg)
				results[i] = techResult{tech: tech, rec: rec, err: rerr}
			}()
		}
		// Wait for all in-flight work to release the semaphore.
		_ = sem.Acquire(ctx, int64(cfg.Concurrency))
	}()
	<-done

	records := make([]chart.Record, 0, len(results))
	for _, r := range results {
		if r.err != nil {
			o.logger().Warn("technology pipeline failed, omitting from batch", "tech_id", r.tech.ID, "error", r.err)
			continue
		}
		records = append(records, r.rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

// runOne builds and executes the eleven-node DAG for stages 2-12 against a
// single technology.
func (o *Orchestrator) runOne(ctx context.Context, tech graph.TechSummary, anchor time.Time, cfg *config.Config) (chart.Record, error) {
	d, err := o.buildTechDAG(tech, anchor, cfg)
	if err != nil {
		return chart.Record{}, err
	}
	executor, err := dag.NewExecutor(d, o.logger())
	if err != nil {
		return chart.Record{}, err
	}
	result, err := executor.Run(ctx, tech)
	if err != nil {
		return chart.Record{}, err
	}
	rec, ok := result.Output.(chart.Record)
	if !ok {
		return chart.Record{}, fmt.Errorf("pipeline: terminal node returned %T, want chart.Record", result.Output)
	}
	o.recordHistory(ctx, tech, anchor, cfg.CommunityVersion, rec)
	return rec, nil
}

// recordHistory writes one technology's score snapshot to the optional
// InfluxDB sink. Disabled or degraded sinks make this a no-op; any write
// error is logged, never propagated — score history is a side channel,
// not part of the chart contract.
func (o *Orchestrator) recordHistory(ctx context.Context, tech graph.TechSummary, anchor time.Time, communityVersion string, rec chart.Record) {
	if o.History == nil {
		return
	}
	err := o.History.Write(ctx, timeseries.Point{
		TechID:           tech.ID,
		TechName:         tech.Name,
		CommunityVersion: communityVersion,
		Phase:            string(rec.Phase.Code),
		Innovation:       rec.Scores.Innovation,
		Adoption:         rec.Scores.Adoption,
		Narrative:        rec.Scores.Narrative,
		Risk:             rec.Scores.Risk,
		Hype:             rec.Scores.Hype,
		OverallWeighted:  rec.Scores.OverallWeighted,
		ChartX:           rec.Position.X,
		ChartY:           rec.Position.Y,
		Timestamp:        anchor,
	})
	if err != nil {
		o.logger().Warn("score history write failed", "tech_id", tech.ID, "error", err)
	}
}

func (o *Orchestrator) buildTechDAG(tech graph.TechSummary, anchor time.Time, cfg *config.Config) (*dag.DAG, error) {
	b := dag.NewBuilder(fmt.Sprintf("hype-cycle-%s", tech.ID))

	b.AddNode(dag.NewFuncNode(nodeScoreInnovation, nil, func(ctx context.Context, _ map[string]any) (any, error) {
		return o.Scorers.Innovation.Score(ctx, tech.ID, tech.Name, anchor), nil
	}))
	b.AddNode(dag.NewFuncNode(nodeScoreAdoption, nil, func(ctx context.Context, _ map[string]any) (any, error) {
		return o.Scorers.Adoption.Score(ctx, tech.ID, tech.Name, anchor), nil
	}))
	b.AddNode(dag.NewFuncNode(nodeScoreNarrative, nil, func(ctx context.Context, _ map[string]any) (any, error) {
		return o.Scorers.Narrative.Score(ctx, tech.ID, tech.Name, anchor), nil
	}))
	b.AddNode(dag.NewFuncNode(nodeScoreRisk, nil, func(ctx context.Context, _ map[string]any) (any, error) {
		return o.Scorers.Risk.Score(ctx, tech.ID, tech.Name, anchor), nil
	}))

	scoreDeps := []string{nodeScoreInnovation, nodeScoreAdoption, nodeScoreNarrative, nodeScoreRisk}

	b.AddNode(dag.NewFuncNode(nodeHype, scoreDeps, func(ctx context.Context, in map[string]any) (any, error) {
		layers := layersFrom(in)
		return hype.Derive(hype.LayerScores{
			Innovation: layers[nodeScoreInnovation].Score,
			Adoption:   layers[nodeScoreAdoption].Score,
			Narrative:  layers[nodeScoreNarrative].Score,
			Risk:       layers[nodeScoreRisk].Score,
		}), nil
	}))

	b.AddNode(dag.NewFuncNode(nodePhase, append(append([]string{}, scoreDeps...), nodeHype), func(ctx context.Context, in map[string]any) (any, error) {
		layers := layersFrom(in)
		h := in[nodeHype].(hype.Result)
		return phase.Classify(phase.Inputs{
			Innovation: layers[nodeScoreInnovation].Score,
			Adoption:   layers[nodeScoreAdoption].Score,
			Narrative:  layers[nodeScoreNarrative].Score,
			Risk:       layers[nodeScoreRisk].Score,
			Hype:       h.Score,
		}), nil
	}))

	b.AddNode(dag.NewFuncNode(nodeNarrative, append(append([]string{}, scoreDeps...), nodeHype, nodePhase), func(ctx context.Context, in map[string]any) (any, error) {
		layers := layersFrom(in)
		h := in[nodeHype].(hype.Result)
		p := in[nodePhase].(phase.Result)
		return o.Narrator.Generate(ctx, narrative.Inputs{
			Innovation: layers[nodeScoreInnovation].Score,
			Adoption:   layers[nodeScoreAdoption].Score,
			Narrative:  layers[nodeScoreNarrative].Score,
			Risk:       layers[nodeScoreRisk].Score,
			Hype:       h.Score,
			Phase:      p.Code,
			Divergence: h.Divergence,
			TechName:   tech.Name,
		}), nil
	}))

	b.AddNode(dag.NewFuncNode(nodeEnsemble, append(append([]string{}, scoreDeps...), nodeHype, nodePhase), func(ctx context.Context, in map[string]any) (any, error) {
		layers := layersFrom(in)
		h := in[nodeHype].(hype.Result)
		p := in[nodePhase].(phase.Result)
		return ensemble.Compute(ensemble.Inputs{
			Innovation: layers[nodeScoreInnovation].Score,
			Adoption:   layers[nodeScoreAdoption].Score,
			Narrative:  layers[nodeScoreNarrative].Score,
			Risk:       layers[nodeScoreRisk].Score,
			Hype:       h.Score,
			Phase:      p.Code,
		}, o.LayerWeight)
	}))

	b.AddNode(dag.NewFuncNode(nodeChartFormat, []string{nodeEnsemble, nodeNarrative, nodePhase, nodeHype}, func(ctx context.Context, in map[string]any) (any, error) {
		layers := layersFrom(in)
		h := in[nodeHype].(hype.Result)
		p := in[nodePhase].(phase.Result)
		ens := in[nodeEnsemble].(ensemble.Result)
		narr := in[nodeNarrative].(narrative.Result)
		return chart.FormatRecord(chart.FormatInputs{
			ID: tech.ID, Name: tech.Name, Domain: tech.Domain,
			Hype: h, Phase: p, Ensemble: ens,
			Innovation: layers[nodeScoreInnovation].Score,
			Adoption:   layers[nodeScoreAdoption].Score,
			Narrative:  layers[nodeScoreNarrative].Score,
			Risk:       layers[nodeScoreRisk].Score,
			Narr:       narr,
		}), nil
	}))

	b.AddNode(dag.NewFuncNode(nodeEvidenceCompile, scoreDeps, func(ctx context.Context, in map[string]any) (any, error) {
		return o.compileEvidence(ctx, tech, anchor, cfg), nil
	}))

	b.AddNode(dag.NewFuncNode(nodeValidate, []string{nodeChartFormat, nodeEvidenceCompile}, func(ctx context.Context, in map[string]any) (any, error) {
		rec := in[nodeChartFormat].(chart.Record)
		ev := in[nodeEvidenceCompile].(evidence.Result)
		rec.EvidenceCounts = chart.EvidenceCounts(ev)
		return chart.ValidateRecord(rec), nil
	}))

	return b.Build()
}

func layersFrom(in map[string]any) map[string]scorers.Layer {
	out := make(map[string]scorers.Layer, 4)
	for _, name := range []string{nodeScoreInnovation, nodeScoreAdoption, nodeScoreNarrative, nodeScoreRisk} {
		if v, ok := in[name].(scorers.Layer); ok {
			out[name] = v
		}
	}
	return out
}

// compileEvidence re-fetches the activity records the scorers already
// retrieved once more (the DAG node boundary doesn't carry the raw graph
// responses forward, only the scorer's Layer judgment) so the Evidence
// Compiler can aggregate without re-deriving any score.
func (o *Orchestrator) compileEvidence(ctx context.Context, tech graph.TechSummary, anchor time.Time, cfg *config.Config) evidence.Result {
	innovationStart := anchor.Add(-time.Duration(cfg.TemporalWindows.InnovationDays) * 24 * time.Hour)
	adoptionStart := anchor.Add(-time.Duration(cfg.TemporalWindows.AdoptionDays) * 24 * time.Hour)
	narrativeStart := anchor.Add(-time.Duration(cfg.TemporalWindows.NarrativeDays) * 24 * time.Hour)
	riskStart := anchor.Add(-time.Duration(cfg.TemporalWindows.RiskDays) * 24 * time.Hour)

	patents, _ := o.Graph.PatentActivity(tech.ID, innovationStart, anchor)
	papers, _ := o.Graph.PaperActivity(tech.ID, innovationStart, anchor)
	contracts, _ := o.Graph.ContractActivity(tech.ID, adoptionStart, anchor)
	news, _ := o.Graph.NewsActivity(tech.ID, narrativeStart, anchor)
	riskMentions, _ := o.Graph.SECRiskMentions(tech.ID, riskStart, anchor)
	insider, _ := o.Graph.InsiderTrading(tech.ID, riskStart, anchor)
	holdings, _ := o.Graph.InstitutionalHoldingsPct(tech.ID)

	return evidence.Compile(evidence.Inputs{
		Patents: patents, Papers: papers, Contracts: contracts, News: news,
		RiskMentions: riskMentions, Insider: insider, HoldingsPct: holdings,
	})
}

func assembleBatch(records []chart.Record, cfg *config.Config, anchor time.Time) *chart.Batch {
	phaseDist := make(map[string]int)
	for _, r := range records {
		phaseDist[r.Phase.Display]++
	}

	return &chart.Batch{
		ChartType:    "hype_cycle",
		GeneratedAt:  strfmt.DateTime(anchor),
		Version:      "1.0",
		Technologies: records,
		BatchMetadata: chart.Metadata{
			TotalTechnologies: len(records),
			PhaseDistribution: phaseDist,
			LayerWeights: map[string]float64{
				"innovation": cfg.LayerWeights.Innovation,
				"adoption":   cfg.LayerWeights.Adoption,
				"narrative":  cfg.LayerWeights.Narrative,
				"risk":       cfg.LayerWeights.Risk,
			},
			CommunityVersion: cfg.CommunityVersion,
			TemporalWindows: map[string]chart.TemporalWindow{
				"innovation": chart.NewTemporalWindow(anchor.Add(-time.Duration(cfg.TemporalWindows.InnovationDays)*24*time.Hour), anchor),
				"adoption":   chart.NewTemporalWindow(anchor.Add(-time.Duration(cfg.TemporalWindows.AdoptionDays)*24*time.Hour), anchor),
				"narrative":  chart.NewTemporalWindow(anchor.Add(-time.Duration(cfg.TemporalWindows.NarrativeDays)*24*time.Hour), anchor),
				"risk":       chart.NewTemporalWindow(anchor.Add(-time.Duration(cfg.TemporalWindows.RiskDays)*24*time.Hour), anchor),
			},
		},
	}
}
