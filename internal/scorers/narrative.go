// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scorers

import (
	"context"
	"fmt"
	"time"

	"github.com/hypegraph/engine/internal/graph"
	"github.com/hypegraph/engine/internal/llmadapter"
)

const StageNarrative = "narrative"

// ExternalSearch is the optional freshness-probe collaborator used by the
// narrative scorer, gated by Config.EnableExternalSearch. A nil/unavailable
// collaborator (or one tripped into degraded mode by
// weaviateclient.ExternalSearchDegradation) falls back to a fixed 0.33
// freshness value rather than failing the stage.
type ExternalSearch interface {
	RecentMentionCount(ctx context.Context, techName string, window time.Duration) (int, error)
}

const externalSearchWindow = 30 * 24 * time.Hour

// fallbackFreshness is used whenever the external search probe is disabled,
// unavailable, or errors. This package treats freshness as the fraction
// external_recent/(news_count_6mo+external_recent), and interprets the
// >3.0/1.5-3.0/<0.5 anchors as thresholds on a ratio of that fraction to
// its 0.33 baseline (i.e. how many times "fresher" than the steady-state
// baseline the signal is) — the ratio thresholds apply to
// freshness/baselineFreshness.
const fallbackFreshness = 0.33

// NarrativeScorer scores tiered news volume plus an optional external
// freshness probe.
type NarrativeScorer struct {
	Graph                graph.Accessor
	Adapter              *llmadapter.Adapter
	Temp                 float32
	Window               time.Duration // 180 days
	EnableExternalSearch bool
	External             ExternalSearch
}

func (s *NarrativeScorer) Score(ctx context.Context, techID, techName string, anchor time.Time) Layer {
	start := anchor.Add(-s.Window)

	news, err := s.Graph.NewsActivity(techID, start, anchor)
	if err != nil {
		return upstreamErrorLayer()
	}

	freshness := fallbackFreshness
	if s.EnableExternalSearch && s.External != nil {
		recent, ferr := s.External.RecentMentionCount(ctx, techName, externalSearchWindow)
		if ferr == nil {
			denom := news.NewsCount + recent
			if denom > 0 {
				freshness = float64(recent) / float64(denom)
			}
		}
	}
	ratio := freshness / fallbackFreshness

	adjustment := 0.0
	switch {
	case ratio > 3.0:
		adjustment = 30
	case ratio > 1.5:
		adjustment = 15
	case ratio < 0.5:
		adjustment = -20
	}

	prompt := fmt.Sprintf(`You are scoring the narrative layer of a Gartner-style Hype Cycle
analysis for "%s". Return JSON: {"score": number 0-100, "reasoning": string, "confidence": "low"|"medium"|"high"}.

Metrics:
- news_count_6mo: %d
- tier1_count: %d
- tier2_count: %d
- tier3_count: %d
- freshness_fraction: %.3f
- freshness_adjustment_suggested: %.1f

Scoring anchors (guidance, not mechanical): weigh news volume and tier1 share
into a base score, then apply the suggested freshness adjustment (it is
already computed for you, but you may deviate with justification). Final
score must be clamped to 0-100.`,
		techName, news.NewsCount, news.Tier1Count, news.Tier2Count, news.Tier3Count,
		freshness, adjustment)

	return callScorer(ctx, s.Adapter, StageNarrative, s.Temp, prompt)
}
