// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package phase implements the deterministic lifecycle phase classifier
// (pipeline stage 7). Pure and total: the default branch guarantees
// every input reaches a phase.
package phase

// Code is one of the five hype-cycle phase codes.
type Code string

const (
	InnovationTrigger Code = "innovation_trigger"
	Peak              Code = "peak"
	Trough            Code = "trough"
	Slope             Code = "slope"
	Plateau           Code = "plateau"
)

// Display returns the human-readable name for a phase code.
func (c Code) Display() string {
	switch c {
	case InnovationTrigger:
		return "Innovation Trigger"
	case Peak:
		return "Peak of Inflated Expectations"
	case Trough:
		return "Trough of Disillusionment"
	case Slope:
		return "Slope of Enlightenment"
	case Plateau:
		return "Plateau of Productivity"
	default:
		return string(c)
	}
}

// Inputs are the scores the classifier reads. Risk is read only by rule 3
// and hype only by rules 2, 4 and 6; the confidence spread uses innovation,
// adoption and narrative alone.
type Inputs struct {
	Innovation float64
	Adoption   float64
	Narrative  float64
	Risk       float64
	Hype       float64
}

// Result is the phase block, minus phase_position which the
// ensemble positioner derives from chart_x.
type Result struct {
	Code       Code
	Reasoning  string
	Confidence float64
}

// Classify applies the seven-rule table top-to-bottom, first match wins.
// Every rule but rule 3 uses strict inequalities: adoption=25 fails the
// "<25" rule rather than satisfying it. Rule 3 (plateau) uses inclusive
// bounds (>= and <=).
func Classify(in Inputs) Result {
	var code Code
	var reasoning string

	switch {
	case in.Innovation > 20 && in.Adoption < 25 && in.Narrative < 45:
		code, reasoning = InnovationTrigger, "innovation high, adoption and narrative still low"
	case in.Narrative > 45 && in.Hype > 40 && in.Adoption < 25:
		code, reasoning = Peak, "narrative and hype elevated while adoption lags"
	case in.Adoption >= 10 && in.Innovation >= 5 && in.Narrative <= 45 && in.Risk <= 20:
		code, reasoning = Plateau, "adoption established, narrative settled, risk low"
	case in.Adoption > 20 && in.Innovation > 12 && in.Narrative > 20 && in.Hype < 50:
		code, reasoning = Slope, "adoption climbing, hype receding"
	case in.Innovation < 5 && in.Adoption < 5 && in.Narrative < 20:
		code, reasoning = Trough, "dead or abandoned: all layers negligible"
	case countBelow(in) >= 3:
		code, reasoning = Trough, "underperforming: at least three layers below threshold"
	default:
		code, reasoning = Slope, "default"
	}

	return Result{
		Code:       code,
		Reasoning:  reasoning,
		Confidence: confidence(in),
	}
}

// countBelow counts how many of the rule-6 conditions hold.
func countBelow(in Inputs) int {
	n := 0
	if in.Narrative < 35 {
		n++
	}
	if in.Adoption < 18 {
		n++
	}
	if in.Innovation < 18 {
		n++
	}
	if in.Hype < 28 {
		n++
	}
	return n
}

// confidence derives phase_confidence from the spread between the highest
// and lowest of {innovation, adoption, narrative}.
func confidence(in Inputs) float64 {
	hi, lo := in.Innovation, in.Innovation
	for _, v := range []float64{in.Adoption, in.Narrative} {
		if v > hi {
			hi = v
		}
		if v < lo {
			lo = v
		}
	}
	spread := hi - lo

	switch {
	case spread > 30:
		return 0.85
	case spread > 15:
		return 0.65
	default:
		return 0.45
	}
}
