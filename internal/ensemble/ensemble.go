// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ensemble maps the analytic state onto chart coordinates
// (pipeline stage 9). Pure and deterministic.
package ensemble

import (
	"fmt"

	"github.com/hypegraph/engine/internal/phase"
)

// Position is the within-phase sub-classification of chart_x.
type Position string

const (
	Early Position = "early"
	Mid   Position = "mid"
	Late  Position = "late"
)

// phaseXRange is the [lo, hi] chart_x interval a phase occupies.
type phaseXRange struct{ lo, hi float64 }

var xRanges = map[phase.Code]phaseXRange{
	phase.InnovationTrigger: {0.0, 0.7},
	phase.Peak:              {0.7, 1.4},
	phase.Trough:            {1.4, 2.7},
	phase.Slope:             {2.7, 4.2},
	phase.Plateau:           {4.2, 5.0},
}

var yMultiplier = map[phase.Code]float64{
	phase.InnovationTrigger: 0.8,
	phase.Peak:              1.3,
	phase.Trough:            0.5,
	phase.Slope:             0.9,
	phase.Plateau:           0.85,
}

// LayerWeights are the ensemble weights for the overall weighted score;
// normally sourced from config.Config.LayerWeights.
type LayerWeights struct {
	Innovation float64
	Adoption   float64
	Narrative  float64
	Risk       float64
}

// Inputs feeds the positioner: the four layer scores, the phase already
// assigned by stage 7, and the hype score from stage 6. NarrativeHigh is
// the optional per-tech historical narrative high used for narrative_drop
// in the trough formula; if zero, the documented fallback (100-narrative)
// is used.
type Inputs struct {
	Innovation   float64
	Adoption     float64
	Narrative    float64
	Risk         float64
	Hype         float64
	Phase        phase.Code
	NarrativeHigh float64
}

// Result is the chart block's position fields.
type Result struct {
	ChartX         float64
	ChartY         float64
	WeightedScore  float64
	Position       Position
}

// Compute computes chart_x, chart_y, weighted_score, and the early/mid/late
// sub-classification for in, using weights w.
func Compute(in Inputs, w LayerWeights) (Result, error) {
	rng, ok := xRanges[in.Phase]
	if !ok {
		return Result{}, fmt.Errorf("ensemble: unknown phase code %q", in.Phase)
	}

	x := chartX(in, rng)
	y := chartY(in)
	weighted := in.Innovation*w.Innovation + in.Adoption*w.Adoption + in.Narrative*w.Narrative + (100-in.Risk)*w.Risk

	return Result{
		ChartX:        x,
		ChartY:        y,
		WeightedScore: clamp(weighted, 0, 100),
		Position:      positionWithin(x, rng),
	}, nil
}

func chartX(in Inputs, rng phaseXRange) float64 {
	var x float64
	switch in.Phase {
	case phase.InnovationTrigger:
		x = 0.0 + 0.7*(in.Innovation/100)
	case phase.Peak:
		x = 0.7 + 0.7*(in.Hype/100)
	case phase.Trough:
		narrativeDrop := 100 - in.Narrative
		if in.NarrativeHigh > 0 {
			narrativeDrop = in.NarrativeHigh - in.Narrative
		}
		x = 1.4 + min(1.3, 0.01*narrativeDrop)
	case phase.Slope:
		x = 2.7 + 1.5*(in.Adoption/100)
	case phase.Plateau:
		x = 4.2 + min(0.8, in.Adoption/100)
	}
	return clamp(x, rng.lo, rng.hi)
}

func chartY(in Inputs) float64 {
	base := 0.7*in.Narrative + 0.2*in.Innovation + 0.1*in.Adoption
	return clamp(base*yMultiplier[in.Phase], 0, 100)
}

// positionWithin splits [lo,hi] into thirds and classifies x.
func positionWithin(x float64, rng phaseXRange) Position {
	width := rng.hi - rng.lo
	firstThird := rng.lo + width/3
	secondThird := rng.lo + 2*width/3
	switch {
	case x < firstThird:
		return Early
	case x < secondThird:
		return Mid
	default:
		return Late
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
