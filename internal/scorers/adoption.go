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

const StageAdoption = "adoption"

// AdoptionScorer scores contract count and value, regulatory approvals,
// revenue-mentioning sec_filings, and company breadth.
type AdoptionScorer struct {
	Graph   graph.Accessor
	Adapter *llmadapter.Adapter
	Temp    float32
	Window  time.Duration // 540 days
}

func (s *AdoptionScorer) Score(ctx context.Context, techID, techName string, anchor time.Time) Layer {
	start := anchor.Add(-s.Window)

	contracts, err := s.Graph.ContractActivity(techID, start, anchor)
	if err != nil {
		return upstreamErrorLayer()
	}
	approvals, err := s.Graph.RegulationActivity(techID, start, anchor)
	if err != nil {
		return upstreamErrorLayer()
	}
	companyCount, topCompanies, err := s.Graph.CompaniesDeveloping(techID)
	if err != nil {
		return upstreamErrorLayer()
	}
	revenueMentions, err := s.Graph.RevenueMentions(techID, start, anchor)
	if err != nil {
		return upstreamErrorLayer()
	}

	names := make([]string, 0, len(topCompanies))
	for _, c := range topCompanies {
		names = append(names, c.Name)
	}

	prompt := fmt.Sprintf(`You are scoring the adoption layer of a Gartner-style Hype Cycle
analysis for "%s". Return JSON: {"score": number 0-100, "reasoning": string, "confidence": "low"|"medium"|"high"}.

Metrics:
- contract_count: %d
- total_contract_value_usd: %.2f
- avg_contract_value_usd: %.2f
- regulatory_approval_count: %d
- companies_developing: %d
- revenue_mentioning_sec_filings: %d
- top_companies: %v

Scoring anchors (guidance, not mechanical):
- contracts >= 20 AND approvals >= 5 AND companies > 30 -> 60-80
- contracts < 3 AND approvals <= 1 -> 0-30
- otherwise 30-60, weighted by total contract value.`,
		techName, contracts.ContractCount, contracts.TotalValueUSD, contracts.AvgValue,
		approvals, companyCount, revenueMentions, names)

	return callScorer(ctx, s.Adapter, StageAdoption, s.Temp, prompt)
}
