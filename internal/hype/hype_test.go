// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package hype

import (
	"math"
	"testing"
)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestDerive_Scenario1_NarrativeExceedsFundamentals(t *testing.T) {
	r := Derive(LayerScores{Innovation: 35, Adoption: 25, Narrative: 85, Risk: 45})
	if !approxEqual(r.Score, 100, 0.01) {
		t.Errorf("Score = %v, want 100", r.Score)
	}
	if r.Reasoning != "narrative exceeds fundamentals" {
		t.Errorf("Reasoning = %q", r.Reasoning)
	}
}

func TestDerive_Scenario2_LayersAligned(t *testing.T) {
	r := Derive(LayerScores{Innovation: 55, Adoption: 45, Narrative: 50, Risk: 35})
	if !approxEqual(r.Divergence, 8.5, 0.1) {
		t.Errorf("Divergence = %v, want ~8.5", r.Divergence)
	}
	if !approxEqual(r.Score, 33, 0.5) {
		t.Errorf("Score = %v, want ~33", r.Score)
	}
	if r.Reasoning != "layers aligned" {
		t.Errorf("Reasoning = %q", r.Reasoning)
	}
}

func TestDerive_AllZero_LayersAligned(t *testing.T) {
	// Boundary behavior, .3: all four layers at zero.
	r := Derive(LayerScores{Innovation: 0, Adoption: 0, Narrative: 0, Risk: 0})
	if r.Divergence != 0 {
		t.Errorf("Divergence = %v, want 0", r.Divergence)
	}
	if !approxEqual(r.Score, 50, 0.01) {
		t.Errorf("Score = %v, want 50", r.Score)
	}
}

func TestDerive_ScoreAlwaysInRange(t *testing.T) {
	cases := []LayerScores{
		{Innovation: 100, Adoption: 100, Narrative: 100, Risk: 0},
		{Innovation: 0, Adoption: 0, Narrative: 100, Risk: 100},
		{Innovation: 50, Adoption: 50, Narrative: 50, Risk: 50},
	}
	for _, c := range cases {
		r := Derive(c)
		if r.Score < 0 || r.Score > 100 {
			t.Errorf("Derive(%+v).Score = %v, out of range", c, r.Score)
		}
		if r.Divergence < 0 {
			t.Errorf("Derive(%+v).Divergence = %v, must be non-negative", c, r.Divergence)
		}
	}
}

func TestDerive_ConfidenceHighOnLargeDivergence(t *testing.T) {
	r := Derive(LayerScores{Innovation: 90, Adoption: 10, Narrative: 10, Risk: 10})
	if r.Confidence != ConfidenceHigh {
		t.Errorf("Confidence = %v, want high", r.Confidence)
	}
}
