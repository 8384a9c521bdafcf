// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sampler implements the Stratified Sampler (stage
// 1): select N technologies distributed across community-derived maturity
// strata in a caller-configurable proportion.
package sampler

import (
	"fmt"
	"sort"

	"github.com/hypegraph/engine/internal/graph"
)

// MaturityClass is the sampler-internal community-maturity label.
type MaturityClass string

const (
	EarlyStage MaturityClass = "early_stage"
	MidStage   MaturityClass = "mid_stage"
	LateStage  MaturityClass = "late_stage"
	HypeStage  MaturityClass = "hype_stage"
)

// DefaultProportions is the default stratum mix.
func DefaultProportions() map[MaturityClass]float64 {
	return map[MaturityClass]float64{
		EarlyStage: 0.20,
		MidStage:   0.40,
		LateStage:  0.20,
		HypeStage:  0.20,
	}
}

// Params configures one sampling run.
type Params struct {
	N                int
	CommunityVersion string
	MinMembers       int
	MinDocumentCount int
	Proportions      map[MaturityClass]float64 // must sum to 1.0; DefaultProportions() if nil
}

// Selected is one chosen technology, carrying the stratum it was drawn from
// for observability.
type Selected struct {
	Tech  graph.TechSummary
	Class MaturityClass
}

// Sample runs the six-step stratified selection algorithm.
func Sample(acc graph.Accessor, p Params) ([]Selected, error) {
	proportions := p.Proportions
	if proportions == nil {
		proportions = DefaultProportions()
	}

	communities, err := acc.AllCommunities(p.CommunityVersion, p.MinMembers)
	if err != nil {
		return nil, fmt.Errorf("sampler: listing communities: %w", err)
	}

	classified := make(map[string]MaturityClass, len(communities))
	for _, c := range communities {
		classified[c.ID] = classify(c)
	}

	candidates, err := acc.TopTechnologies(0.75)
	if err != nil {
		return nil, fmt.Errorf("sampler: listing candidate technologies: %w", err)
	}
	candidates = filterByDocCount(candidates, p.MinDocumentCount)
	sortCandidates(candidates)

	byClass := make(map[MaturityClass][]graph.TechSummary)
	var fallback []graph.TechSummary
	for _, t := range candidates {
		fallback = append(fallback, t)

		class := MidStage
		if cc, err := acc.CommunityContext(t.ID, p.CommunityVersion); err == nil {
			if c, ok := classified[cc.CommunityID]; ok {
				class = c
			}
		}
		byClass[class] = append(byClass[class], t)
	}

	selected := make([]Selected, 0, p.N)
	seen := make(map[string]bool)

	for _, class := range []MaturityClass{EarlyStage, MidStage, LateStage, HypeStage} {
		target := int(round(float64(p.N) * proportions[class]))
		pool := byClass[class]
		take := target
		if take > len(pool) {
			take = len(pool)
		}
		for i := 0; i < take; i++ {
			t := pool[i]
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			selected = append(selected, Selected{Tech: t, Class: class})
		}
	}

	// Shortfall: pull from the global fallback list, excluding already-chosen ids.
	for _, t := range fallback {
		if len(selected) >= p.N {
			break
		}
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		selected = append(selected, Selected{Tech: t, Class: MidStage})
	}

	if len(selected) > p.N {
		selected = selected[:p.N]
	}
	return selected, nil
}

// classify applies the first-match-wins community classification rules,
// defaulting unclassified communities to mid_stage.
func classify(c graph.CommunitySummary) MaturityClass {
	dist := c.DocTypeDistribution
	patents := float64(dist["patent"])
	news := float64(dist["news"])
	contracts := dist["contract"]

	patentNewsRatio := patents / max1(news)
	newsPatentRatio := news / max1(patents)

	switch {
	case patentNewsRatio > 2 && contracts > 5:
		return LateStage
	case newsPatentRatio > 2 && contracts <= 2:
		return HypeStage
	case patentNewsRatio > 1.5 && contracts <= 2:
		return EarlyStage
	default:
		return MidStage
	}
}

func filterByDocCount(in []graph.TechSummary, minDocs int) []graph.TechSummary {
	if minDocs <= 0 {
		return in
	}
	out := make([]graph.TechSummary, 0, len(in))
	for _, t := range in {
		if t.TotalDocs >= minDocs {
			out = append(out, t)
		}
	}
	return out
}

// sortCandidates totally orders candidates by (pagerank desc, doc-type
// diversity desc, total docs desc, id asc), giving a deterministic
// tie-break so repeat runs over the same graph snapshot pick the same set.
func sortCandidates(in []graph.TechSummary) {
	sort.Slice(in, func(i, j int) bool {
		a, b := in[i], in[j]
		if a.PageRank != b.PageRank {
			return a.PageRank > b.PageRank
		}
		if a.DocTypeDiversity != b.DocTypeDiversity {
			return a.DocTypeDiversity > b.DocTypeDiversity
		}
		if a.TotalDocs != b.TotalDocs {
			return a.TotalDocs > b.TotalDocs
		}
		return a.ID < b.ID
	})
}

func max1(v float64) float64 {
	if v < 1 {
		return 1
	}
	return v
}

func round(v float64) float64 {
	if v < 0 {
		return float64(int(v - 0.5))
	}
	return float64(int(v + 0.5))
}
