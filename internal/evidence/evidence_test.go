// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package evidence

import (
	"testing"
	"time"

	"github.com/hypegraph/engine/internal/graph"
)

func docs(n int) []graph.DocSummary {
	out := make([]graph.DocSummary, n)
	for i := range out {
		out[i] = graph.DocSummary{DocID: string(rune('a' + i)), Score: float64(n - i), Date: time.Now()}
	}
	return out
}

func TestCompile_CapsCitationsAtFive(t *testing.T) {
	result := Compile(Inputs{
		Patents: graph.PatentActivity{PatentCount: 12, TopPatents: docs(8)},
	})
	if len(result.Innovation.Citations) != 5 {
		t.Fatalf("len = %d, want 5", len(result.Innovation.Citations))
	}
}

func TestCompile_FewerThanFiveCitations(t *testing.T) {
	result := Compile(Inputs{Contracts: graph.ContractActivity{TopContracts: docs(2)}})
	if len(result.Adoption.Citations) != 2 {
		t.Fatalf("len = %d, want 2", len(result.Adoption.Citations))
	}
}

func TestCompile_CarriesMetrics(t *testing.T) {
	result := Compile(Inputs{
		Patents:      graph.PatentActivity{PatentCount: 12, CitationSum: 4},
		RiskMentions: 45,
		Insider:      graph.InsiderTrading{BuyCount: 1, SellCount: 9, NetPosition: graph.NetSelling},
		HoldingsPct:  0.1,
	})
	if result.Innovation.Metrics["patent_count"] != 12 {
		t.Errorf("patent_count = %v", result.Innovation.Metrics["patent_count"])
	}
	if result.Risk.Metrics["sec_risk_mention_count"] != 45 {
		t.Errorf("sec_risk_mention_count = %v", result.Risk.Metrics["sec_risk_mention_count"])
	}
}

func TestCompile_NoNewGraphCalls(t *testing.T) {
	// Compile takes only already-fetched activity records — there is no
	// graph.Accessor parameter, so this is a compile-time guarantee, not a
	// runtime one. This test exists to document that invariant.
	_ = Compile(Inputs{})
}
