// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package chart

import (
	"fmt"

	"github.com/hypegraph/engine/internal/ensemble"
	"github.com/hypegraph/engine/internal/phase"
)

var phaseXRanges = map[phase.Code][2]float64{
	phase.InnovationTrigger: {0.0, 0.7},
	phase.Peak:              {0.7, 1.4},
	phase.Trough:            {1.4, 2.7},
	phase.Slope:             {2.7, 4.2},
	phase.Plateau:           {4.2, 5.0},
}

var validPhaseCodes = map[phase.Code]bool{
	phase.InnovationTrigger: true, phase.Peak: true, phase.Trough: true,
	phase.Slope: true, phase.Plateau: true,
}

var validPositions = map[ensemble.Position]bool{
	ensemble.Early: true, ensemble.Mid: true, ensemble.Late: true,
}

// Validate applies the chart record's structural/numeric invariants to a
// single record and returns the accumulated errors. It is read-only: it
// never re-derives a score, it only checks the ones already present.
func Validate(r Record) []string {
	var errs []string

	check := func(v, lo, hi float64, field string) {
		if v < lo || v > hi {
			errs = append(errs, fmt.Sprintf("%s=%v out of range [%v,%v]", field, v, lo, hi))
		}
	}

	check(r.Scores.Innovation, 0, 100, "scores.innovation")
	check(r.Scores.Adoption, 0, 100, "scores.adoption")
	check(r.Scores.Narrative, 0, 100, "scores.narrative")
	check(r.Scores.Risk, 0, 100, "scores.risk")
	check(r.Scores.Hype, 0, 100, "scores.hype")
	check(r.Scores.OverallWeighted, 0, 100, "scores.overall_weighted")
	check(r.Position.X, 0, 5, "position.x")
	check(r.Position.Y, 0, 100, "position.y")
	check(r.Phase.Confidence, 0, 1, "phase.confidence")

	if !validPhaseCodes[r.Phase.Code] {
		errs = append(errs, fmt.Sprintf("phase.code=%q is not a recognized phase", r.Phase.Code))
	} else if rng, ok := phaseXRanges[r.Phase.Code]; ok {
		if r.Position.X < rng[0] || r.Position.X > rng[1] {
			errs = append(errs, fmt.Sprintf("position.x=%v outside %s sub-range [%v,%v]", r.Position.X, r.Phase.Code, rng[0], rng[1]))
		}
	}
	if want := r.Phase.Code.Display(); r.Phase.Display != want {
		errs = append(errs, fmt.Sprintf("phase.display=%q does not match phase.code (want %q)", r.Phase.Display, want))
	}
	if !validPositions[r.Phase.Position] {
		errs = append(errs, fmt.Sprintf("phase.position=%q is not one of early/mid/late", r.Phase.Position))
	}
	if r.Divergence < 0 {
		errs = append(errs, fmt.Sprintf("layer_divergence=%v must be >= 0", r.Divergence))
	}
	for layer, count := range r.EvidenceCounts {
		if count > 5 {
			errs = append(errs, fmt.Sprintf("evidence_counts[%s]=%d exceeds 5 citations", layer, count))
		}
	}

	return errs
}

// ValidateRecord runs Validate and writes the result back into the
// record's Validation block: a failed record is still emitted, only
// flagged.
func ValidateRecord(r Record) Record {
	errs := Validate(r)
	if len(errs) == 0 {
		r.Validation = Validation{Status: "valid", Errors: nil}
	} else {
		r.Validation = Validation{Status: "invalid", Errors: errs}
	}
	return r
}

// ValidateWeights checks that metadata's layer_weights sum to exactly 1.0,
// allowing for floating-point tolerance.
func ValidateWeights(w map[string]float64) error {
	var sum float64
	for _, v := range w {
		sum += v
	}
	const tolerance = 1e-9
	if sum < 1-tolerance || sum > 1+tolerance {
		return fmt.Errorf("layer_weights sum to %v, want 1.0", sum)
	}
	return nil
}
