// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package evidence implements the Evidence Compiler (pipeline
// stage 11): pure aggregation of the metrics and citations already gathered
// by the layer scorers into a per-layer evidence block. It issues no new
// graph queries.
package evidence

import "github.com/hypegraph/engine/internal/graph"

// Citation is one cited document, capped at five per layer.
type Citation struct {
	DocID    string
	DocType  string
	Title    string
	URL      string
	Date     string // YYYY-MM-DD, kept as string so this package stays graph-free beyond DocSummary
	Score    float64
	Metadata map[string]any
}

const maxCitations = 5

func citationsFrom(docs []graph.DocSummary) []Citation {
	n := len(docs)
	if n > maxCitations {
		n = maxCitations
	}
	out := make([]Citation, 0, n)
	for _, d := range docs[:n] {
		out = append(out, Citation{
			DocID:    d.DocID,
			DocType:  d.DocType,
			Title:    d.Title,
			URL:      d.URL,
			Date:     d.Date.Format("2006-01-02"),
			Score:    d.Score,
			Metadata: d.Metadata,
		})
	}
	return out
}

// Block is one layer's evidence: the metrics already computed by its
// scorer, plus its top citations.
type Block struct {
	Metrics   map[string]any
	Citations []Citation
}

// Inputs bundles the raw activity records the four scorers already
// retrieved, so the compiler never re-queries the graph.
type Inputs struct {
	Patents      graph.PatentActivity
	Papers       graph.PaperActivity
	Contracts    graph.ContractActivity
	News         graph.NewsActivity
	RiskMentions int
	Insider      graph.InsiderTrading
	HoldingsPct  float64
}

// Result is the four-layer evidence bundle.
type Result struct {
	Innovation Block
	Adoption   Block
	Narrative  Block
	Risk       Block
}

// Compile aggregates Inputs into Result. Pure: no I/O, no graph calls.
func Compile(in Inputs) Result {
	return Result{
		Innovation: Block{
			Metrics: map[string]any{
				"patent_count":                   in.Patents.PatentCount,
				"citation_sum":                   in.Patents.CitationSum,
				"pagerank_weighted_patent_count": in.Patents.PageRankWeightedCount,
				"avg_patent_pagerank":            in.Patents.AvgPageRank,
				"paper_count":        in.Papers.PaperCount,
				"paper_citation_sum": in.Papers.CitationSum,
			},
			Citations: citationsFrom(in.Patents.TopPatents),
		},
		Adoption: Block{
			Metrics: map[string]any{
				"contract_count":     in.Contracts.ContractCount,
				"total_value_usd":    in.Contracts.TotalValueUSD,
				"avg_contract_value": in.Contracts.AvgValue,
			},
			Citations: citationsFrom(in.Contracts.TopContracts),
		},
		Narrative: Block{
			Metrics: map[string]any{
				"news_count":  in.News.NewsCount,
				"tier1_count": in.News.Tier1Count,
				"tier2_count": in.News.Tier2Count,
				"tier3_count": in.News.Tier3Count,
			},
			Citations: citationsFrom(in.News.TopArticles),
		},
		Risk: Block{
			Metrics: map[string]any{
				"sec_risk_mention_count":     in.RiskMentions,
				"insider_buy_count":          in.Insider.BuyCount,
				"insider_sell_count":         in.Insider.SellCount,
				"insider_net_position":       in.Insider.NetPosition,
				"institutional_holdings_pct": in.HoldingsPct,
			},
			Citations: nil,
		},
	}
}
