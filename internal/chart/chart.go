// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package chart implements the Chart Formatter and
// the Output Validator: assembling the per-tech
// chart JSON record, and checking its invariants against it without
// re-running any computation.
package chart

import (
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/go-playground/validator/v10"

	"github.com/hypegraph/engine/internal/ensemble"
	"github.com/hypegraph/engine/internal/evidence"
	"github.com/hypegraph/engine/internal/hype"
	"github.com/hypegraph/engine/internal/narrative"
	"github.com/hypegraph/engine/internal/phase"
)

// Phase is the per-tech phase block.
type Phase struct {
	Code       phase.Code        `json:"code" validate:"required"`
	Display    string            `json:"display" validate:"required"`
	Position   ensemble.Position `json:"position" validate:"required"`
	Confidence float64           `json:"confidence" validate:"gte=0,lte=1"`
}

// Scores is the per-tech scores block.
type Scores struct {
	Innovation      float64 `json:"innovation" validate:"gte=0,lte=100"`
	Adoption        float64 `json:"adoption" validate:"gte=0,lte=100"`
	Narrative       float64 `json:"narrative" validate:"gte=0,lte=100"`
	Risk            float64 `json:"risk" validate:"gte=0,lte=100"`
	Hype            float64 `json:"hype" validate:"gte=0,lte=100"`
	OverallWeighted float64 `json:"overall_weighted" validate:"gte=0,lte=100"`
}

// Position is the per-tech chart coordinate.
type Position struct {
	X float64 `json:"x" validate:"gte=0,lte=5"`
	Y float64 `json:"y" validate:"gte=0,lte=100"`
}

// Validation is the per-tech validation block.
type Validation struct {
	Status string   `json:"status"`
	Errors []string `json:"errors"`
}

// Record is one per-technology chart entry.
type Record struct {
	ID             string         `json:"id" validate:"required"`
	Name           string         `json:"name" validate:"required"`
	Domain         string         `json:"domain"`
	Phase          Phase          `json:"phase"`
	Scores         Scores         `json:"scores"`
	Position       Position       `json:"position"`
	Summary        string         `json:"summary"`
	KeyInsight     string         `json:"key_insight"`
	Recommendation string         `json:"recommendation"`
	EvidenceCounts map[string]int `json:"evidence_counts"`
	Divergence     float64        `json:"-"` // carried through for validation, not part of the public schema
	Validation     Validation     `json:"validation"`
}

// TemporalWindow is one {start,end} pair in batch metadata, serialized as
// ISO-8601 timestamps.
type TemporalWindow struct {
	Start strfmt.DateTime `json:"start"`
	End   strfmt.DateTime `json:"end"`
}

// NewTemporalWindow converts a plain {start,end} pair into its ISO-8601
// wire representation.
func NewTemporalWindow(start, end time.Time) TemporalWindow {
	return TemporalWindow{Start: strfmt.DateTime(start), End: strfmt.DateTime(end)}
}

// Metadata is the batch-level metadata object.
type Metadata struct {
	TotalTechnologies int                       `json:"total_technologies"`
	PhaseDistribution map[string]int            `json:"phase_distribution"`
	LayerWeights      map[string]float64        `json:"layer_weights"`
	CommunityVersion  string                    `json:"community_version"`
	TemporalWindows   map[string]TemporalWindow `json:"temporal_windows"`
}

// Batch is the full chart JSON document.
type Batch struct {
	ChartType     string          `json:"chart_type"`
	GeneratedAt   strfmt.DateTime `json:"generated_at"`
	Version       string          `json:"version"`
	Technologies  []Record        `json:"technologies"`
	BatchMetadata Metadata        `json:"metadata"`
}

// FormatInputs bundles everything the formatter needs for one technology.
type FormatInputs struct {
	ID, Name, Domain string
	Hype             hype.Result
	Phase            phase.Result
	Ensemble         ensemble.Result
	Innovation       float64
	Adoption         float64
	Narrative        float64
	Risk             float64
	Narr             narrative.Result
}

// FormatRecord implements the Chart Formatter: assembles the
// stable-ordered per-tech record. Validation status defaults to "valid";
// the Output Validator overwrites it. EvidenceCounts is left empty here
// since the Evidence Compiler runs as a sibling DAG node rather than an
// input to this one; the Output Validator fills it in from that node's
// output before a record is returned to the caller.
func FormatRecord(in FormatInputs) Record {
	return Record{
		ID:     in.ID,
		Name:   in.Name,
		Domain: in.Domain,
		Phase: Phase{
			Code:       in.Phase.Code,
			Display:    in.Phase.Code.Display(),
			Position:   in.Ensemble.Position,
			Confidence: in.Phase.Confidence,
		},
		Scores: Scores{
			Innovation:      in.Innovation,
			Adoption:        in.Adoption,
			Narrative:       in.Narrative,
			Risk:            in.Risk,
			Hype:            in.Hype.Score,
			OverallWeighted: in.Ensemble.WeightedScore,
		},
		Position: Position{X: in.Ensemble.ChartX, Y: in.Ensemble.ChartY},
		Summary:        in.Narr.Summary,
		KeyInsight:     in.Narr.Insight,
		Recommendation: string(in.Narr.Recommendation),
		Divergence:     in.Hype.Divergence,
		Validation:     Validation{Status: "valid", Errors: nil},
	}
}

// EvidenceCounts tallies cited documents by doc_type across all four
// layers' evidence blocks, matching the wire contract's
// { <doc_type>: int } shape.
func EvidenceCounts(e evidence.Result) map[string]int {
	counts := make(map[string]int)
	for _, block := range []evidence.Block{e.Innovation, e.Adoption, e.Narrative, e.Risk} {
		for _, c := range block.Citations {
			counts[c.DocType]++
		}
	}
	return counts
}

var structValidate = validator.New()

// StructTags runs go-playground/validator's struct-tag checks over a
// record as a second, independent pass alongside Validate's hand-written
// domain checks (validate.go) — catches shape drift (a required field left
// zero) that a purely numeric range check wouldn't.
func StructTags(r Record) error {
	return structValidate.Struct(r)
}
