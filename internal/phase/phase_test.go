// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package phase

import "testing"

func TestClassify_Scenarios(t *testing.T) {
	tests := []struct {
		name string
		in   Inputs
		want Code
	}{
		// Scenario 1: boundary case, adoption=25 fails strict "<25" on rules
		// 1 and 2, falls through to the default branch.
		{"scenario1_boundary_defaults_to_slope", Inputs{Innovation: 35, Adoption: 25, Narrative: 85, Risk: 45, Hype: 100}, Slope},
		{"scenario2_aligned_slope", Inputs{Innovation: 55, Adoption: 45, Narrative: 50, Risk: 35, Hype: 33}, Slope},
		{"scenario3_innovation_trigger", Inputs{Innovation: 60, Adoption: 15, Narrative: 30, Risk: 20, Hype: 50}, InnovationTrigger},
		{"scenario4_plateau", Inputs{Innovation: 40, Adoption: 55, Narrative: 25, Risk: 15, Hype: 50}, Plateau},
		{"scenario5_dead_trough", Inputs{Innovation: 2, Adoption: 1, Narrative: 5, Risk: 50, Hype: 50}, Trough},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.in)
			if got.Code != tt.want {
				t.Errorf("Classify(%+v) = %v, want %v", tt.in, got.Code, tt.want)
			}
		})
	}
}

func TestClassify_IsPure(t *testing.T) {
	in := Inputs{Innovation: 42, Adoption: 18, Narrative: 30, Risk: 22, Hype: 44}
	a := Classify(in)
	b := Classify(in)
	if a != b {
		t.Errorf("Classify is not pure: %+v != %+v", a, b)
	}
}

func TestClassify_UnderperformingTrough(t *testing.T) {
	// 3 of 4 rule-6 conditions hold: narrative<35, adoption<18, innovation<18.
	got := Classify(Inputs{Innovation: 10, Adoption: 10, Narrative: 20, Risk: 30, Hype: 40})
	if got.Code != Trough {
		t.Errorf("Code = %v, want trough", got.Code)
	}
}

func TestClassify_ConfidenceBands(t *testing.T) {
	tests := []struct {
		name string
		in   Inputs
		want float64
	}{
		{"wide_spread", Inputs{Innovation: 90, Adoption: 10, Narrative: 10, Hype: 50}, 0.85},
		{"medium_spread", Inputs{Innovation: 50, Adoption: 30, Narrative: 30, Hype: 50}, 0.65},
		{"narrow_spread", Inputs{Innovation: 50, Adoption: 48, Narrative: 49, Hype: 50}, 0.45},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.in).Confidence
			if got != tt.want {
				t.Errorf("Confidence = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCode_Display(t *testing.T) {
	tests := map[Code]string{
		InnovationTrigger: "Innovation Trigger",
		Peak:              "Peak of Inflated Expectations",
		Trough:            "Trough of Disillusionment",
		Slope:             "Slope of Enlightenment",
		Plateau:           "Plateau of Productivity",
	}
	for code, want := range tests {
		if got := code.Display(); got != want {
			t.Errorf("%s.Display() = %q, want %q", code, got, want)
		}
	}
}
