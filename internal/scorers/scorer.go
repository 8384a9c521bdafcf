// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scorers implements the four layer scorers run in pipeline
// stages 2-5: innovation, adoption, narrative, risk. Each wraps the same
// assemble-metrics / prompt-the-LLM / clamp-and-return shape, so the shared
// contract lives here and the four concrete scorers differ only in which
// graph accessors they call and which prompt template they render.
package scorers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hypegraph/engine/internal/llmadapter"
)

// Confidence mirrors the LLM's self-reported certainty for a layer score.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Layer is the common output shape of every scorer.
type Layer struct {
	Score      float64
	Reasoning  string
	Confidence Confidence
}

// clamp100 restricts v to [0, 100] and reports whether clamping occurred, so
// callers can feed the count back into the LLM adapter's clamp metric.
func clamp100(v float64) (float64, int) {
	if v < 0 {
		return 0, 1
	}
	if v > 100 {
		return 100, 1
	}
	return v, 0
}

// rawResult is the structured-output shape every scorer prompt asks the LLM
// to return.
type rawResult struct {
	Score      float64 `json:"score"`
	Reasoning  string  `json:"reasoning"`
	Confidence string  `json:"confidence"`
}

func (r rawResult) toLayer() (Layer, int) {
	score, clamped := clamp100(r.Score)
	conf := Confidence(r.Confidence)
	switch conf {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
	default:
		conf = ConfidenceMedium
	}
	return Layer{Score: score, Reasoning: r.Reasoning, Confidence: conf}, clamped
}

// upstreamErrorLayer is returned whenever the LLM adapter exhausts its
// retries: the stage degrades rather than
// propagating the error.
func upstreamErrorLayer() Layer {
	return Layer{Score: 0, Reasoning: "upstream_error", Confidence: ConfidenceLow}
}

// Scorer is the shape every layer scorer satisfies: assemble metrics for a
// technology, ask the LLM adapter for a typed judgment, and return a Layer
// that never carries an LLM error outward.
type Scorer interface {
	Score(ctx context.Context, techID, techName string, anchor time.Time) Layer
}

// callScorer issues the adapter call and converts any LLM error into the
// degrade-gracefully Layer rather than letting it escape the stage.
func callScorer(ctx context.Context, adapter *llmadapter.Adapter, stage string, temperature float32, prompt string) Layer {
	layer, err := llmadapter.Call(ctx, adapter, stage, temperature, prompt, func(raw string) (Layer, int, error) {
		parsed, clamped, perr := parseRaw(raw)
		if perr != nil {
			return Layer{}, 0, perr
		}
		l, c := parsed.toLayer()
		return l, clamped + c, nil
	})
	if err != nil {
		return upstreamErrorLayer()
	}
	return layer
}

func parseRaw(raw string) (rawResult, int, error) {
	blob, err := llmadapter.ExtractJSON(raw)
	if err != nil {
		return rawResult{}, 0, fmt.Errorf("scorers: extracting structured output: %w", err)
	}
	var r rawResult
	if err := json.Unmarshal(blob, &r); err != nil {
		return rawResult{}, 0, fmt.Errorf("scorers: decoding structured output: %w", err)
	}
	return r, 0, nil
}
