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

const StageRisk = "risk"

// RiskScorer scores SEC risk-keyword mentions, insider buy/sell activity,
// and institutional holdings.
type RiskScorer struct {
	Graph   graph.Accessor
	Adapter *llmadapter.Adapter
	Temp    float32
	Window  time.Duration // 180 days
}

func (s *RiskScorer) Score(ctx context.Context, techID, techName string, anchor time.Time) Layer {
	start := anchor.Add(-s.Window)

	riskMentions, err := s.Graph.SECRiskMentions(techID, start, anchor)
	if err != nil {
		return upstreamErrorLayer()
	}
	insider, err := s.Graph.InsiderTrading(techID, start, anchor)
	if err != nil {
		return upstreamErrorLayer()
	}
	holdingsPct, err := s.Graph.InstitutionalHoldingsPct(techID)
	if err != nil {
		return upstreamErrorLayer()
	}

	prompt := fmt.Sprintf(`You are scoring the risk layer of a Gartner-style Hype Cycle
analysis for "%s". Return JSON: {"score": number 0-100, "reasoning": string, "confidence": "low"|"medium"|"high"}.
Higher scores mean higher risk.

Metrics:
- sec_risk_mention_count: %d
- insider_buy_count: %d
- insider_sell_count: %d
- insider_net_position: %s
- institutional_holdings_pct: %.3f

Scoring anchors (guidance, not mechanical):
- risk_mentions > 40 AND sell_count > 3*buy_count -> 70-90
- risk_mentions < 5 AND holdings_pct > 0.35 -> 0-25
- otherwise 30-60, calibrated so mentions ~=15-20 and holdings ~=0.15 corresponds to 50.`,
		techName, riskMentions, insider.BuyCount, insider.SellCount, insider.NetPosition, holdingsPct)

	return callScorer(ctx, s.Adapter, StageRisk, s.Temp, prompt)
}
