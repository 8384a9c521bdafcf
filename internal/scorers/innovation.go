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

// StageInnovation is the llmadapter stage label for metrics and replay
// cache keying.
const StageInnovation = "innovation"

// InnovationScorer scores patent counts, pagerank-weighted patent activity,
// citation sums, paper activity, community context, and a 6-month temporal
// trend.
type InnovationScorer struct {
	Graph   graph.Accessor
	Adapter *llmadapter.Adapter
	Temp    float32
	Window  time.Duration // 730 days
	Bucket  time.Duration // 6-month comparison bucket for TemporalTrend
	Version string        // community_version for CommunityContext
}

func (s *InnovationScorer) Score(ctx context.Context, techID, techName string, anchor time.Time) Layer {
	start := anchor.Add(-s.Window)

	patents, err := s.Graph.PatentActivity(techID, start, anchor)
	if err != nil {
		return upstreamErrorLayer()
	}
	papers, err := s.Graph.PaperActivity(techID, start, anchor)
	if err != nil {
		return upstreamErrorLayer()
	}
	community, err := s.Graph.CommunityContext(techID, s.Version)
	if err != nil {
		return upstreamErrorLayer()
	}
	trend, err := s.Graph.TemporalTrend(techID, s.Window, s.Bucket, anchor)
	if err != nil {
		return upstreamErrorLayer()
	}

	prompt := fmt.Sprintf(`You are scoring the innovation layer of a Gartner-style Hype Cycle
analysis for "%s". Return JSON: {"score": number 0-100, "reasoning": string, "confidence": "low"|"medium"|"high"}.

Metrics:
- patent_count: %d
- citation_sum: %d
- pagerank_weighted_patent_count: %.2f
- avg_patent_pagerank: %.4f
- paper_count: %d
- paper_citation_sum: %d
- community_id: %q
- community_patent_count: %d
- community_paper_count: %d
- temporal_trend_6mo: %s

Scoring anchors (guidance, not mechanical):
- patent_count 0, papers < 5 -> 0-15
- patent_count 1-5 and papers 5-20 -> 15-35
- patent_count 6-20 and papers 20-60 -> 35-55
- patent_count 21-50 OR papers 61-120 -> 55-75
- patent_count > 50 OR papers > 120 -> 75-95
- pagerank_weighted_patent_count > 150 AND patent_count > 30 raises into 70-90 band.`,
		techName, patents.PatentCount, patents.CitationSum, patents.PageRankWeightedCount,
		patents.AvgPageRank, papers.PaperCount, papers.CitationSum,
		community.CommunityID, community.CommunityPatentCount, community.CommunityPaperCount, trend)

	return callScorer(ctx, s.Adapter, StageInnovation, s.Temp, prompt)
}
