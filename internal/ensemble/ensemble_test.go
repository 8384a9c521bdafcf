// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ensemble

import (
	"math"
	"testing"

	"github.com/hypegraph/engine/internal/phase"
)

var defaultWeights = LayerWeights{Innovation: 0.30, Adoption: 0.35, Narrative: 0.15, Risk: 0.20}

func approxEqual(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestCompute_Scenario2_Slope(t *testing.T) {
	r, err := Compute(Inputs{Innovation: 55, Adoption: 45, Narrative: 50, Risk: 35, Phase: phase.Slope}, defaultWeights)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !approxEqual(r.ChartX, 3.375, 0.001) {
		t.Errorf("ChartX = %v, want 3.375", r.ChartX)
	}
	if !approxEqual(r.ChartY, 45.45, 0.01) {
		t.Errorf("ChartY = %v, want 45.45", r.ChartY)
	}
	if r.Position != Mid {
		t.Errorf("Position = %v, want mid", r.Position)
	}
}

func TestCompute_Scenario3_InnovationTrigger(t *testing.T) {
	r, err := Compute(Inputs{Innovation: 60, Adoption: 15, Narrative: 30, Risk: 20, Phase: phase.InnovationTrigger}, defaultWeights)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !approxEqual(r.ChartX, 0.42, 0.001) {
		t.Errorf("ChartX = %v, want 0.42", r.ChartX)
	}
	if !approxEqual(r.ChartY, 27.6, 0.01) {
		t.Errorf("ChartY = %v, want 27.6", r.ChartY)
	}
	if r.Position != Mid {
		t.Errorf("Position = %v, want mid", r.Position)
	}
}

func TestCompute_Scenario4_Plateau(t *testing.T) {
	r, err := Compute(Inputs{Innovation: 40, Adoption: 55, Narrative: 25, Risk: 15, Phase: phase.Plateau}, defaultWeights)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !approxEqual(r.ChartX, 4.75, 0.001) {
		t.Errorf("ChartX = %v, want 4.75", r.ChartX)
	}
}

func TestCompute_Scenario5_Trough(t *testing.T) {
	r, err := Compute(Inputs{Innovation: 2, Adoption: 1, Narrative: 5, Risk: 50, Phase: phase.Trough}, defaultWeights)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !approxEqual(r.ChartX, 2.35, 0.001) {
		t.Errorf("ChartX = %v, want 2.35", r.ChartX)
	}
}

func TestCompute_ChartXWithinPhaseRange(t *testing.T) {
	for code, rng := range xRanges {
		r, err := Compute(Inputs{Innovation: 50, Adoption: 50, Narrative: 50, Risk: 50, Hype: 50, Phase: code}, defaultWeights)
		if err != nil {
			t.Fatalf("Compute(%v): %v", code, err)
		}
		if r.ChartX < rng.lo || r.ChartX > rng.hi {
			t.Errorf("phase %v: ChartX = %v, want within [%v, %v]", code, r.ChartX, rng.lo, rng.hi)
		}
	}
}

func TestCompute_UnknownPhaseErrors(t *testing.T) {
	_, err := Compute(Inputs{Phase: phase.Code("bogus")}, defaultWeights)
	if err == nil {
		t.Fatal("expected error for unknown phase code")
	}
}

func TestCompute_WeightedScoreInRange(t *testing.T) {
	r, err := Compute(Inputs{Innovation: 100, Adoption: 100, Narrative: 100, Risk: 0, Phase: phase.Plateau}, defaultWeights)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !approxEqual(r.WeightedScore, 100, 0.01) {
		t.Errorf("WeightedScore = %v, want 100", r.WeightedScore)
	}
}
