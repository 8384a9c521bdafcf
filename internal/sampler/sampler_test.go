// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sampler

import (
	"testing"

	"github.com/hypegraph/engine/internal/graph"
)

type fakeAccessor struct {
	graph.Accessor
	communities []graph.CommunitySummary
	techs       []graph.TechSummary
}

func (f *fakeAccessor) AllCommunities(version string, minMemberCount int) ([]graph.CommunitySummary, error) {
	return f.communities, nil
}

func (f *fakeAccessor) TopTechnologies(qualityThreshold float64) ([]graph.TechSummary, error) {
	return f.techs, nil
}

// CommunityContext distributes each technology across the fixture's
// communities round-robin by id, so a candidate's stratum bucket is driven
// by real (if synthetic) community membership rather than list position.
func (f *fakeAccessor) CommunityContext(techID, version string) (graph.CommunityContext, error) {
	idx := int(techID[0]-'a') % len(f.communities)
	return graph.CommunityContext{CommunityID: f.communities[idx].ID}, nil
}

func sampleFixture() *fakeAccessor {
	techs := make([]graph.TechSummary, 0, 20)
	for i := 0; i < 20; i++ {
		techs = append(techs, graph.TechSummary{
			ID:               string(rune('a' + i)),
			PageRank:         float64(20 - i),
			TotalDocs:        10,
			QualityScore:     0.9,
			DocTypeDiversity: 2,
		})
	}
	return &fakeAccessor{
		communities: []graph.CommunitySummary{
			{ID: "c1", MemberCount: 5, DocTypeDistribution: map[string]int{"patent": 10, "news": 1, "contract": 10}}, // late
			{ID: "c2", MemberCount: 5, DocTypeDistribution: map[string]int{"patent": 1, "news": 10, "contract": 1}},  // hype
			{ID: "c3", MemberCount: 5, DocTypeDistribution: map[string]int{"patent": 1, "news": 1, "contract": 1}},   // mid
		},
		techs: techs,
	}
}

func TestSample_ReturnsRequestedCount(t *testing.T) {
	acc := sampleFixture()
	got, err := Sample(acc, Params{N: 10, CommunityVersion: "v1", MinMembers: 3, MinDocumentCount: 5})
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("len = %d, want 10", len(got))
	}
}

func TestSample_Deterministic(t *testing.T) {
	acc := sampleFixture()
	params := Params{N: 10, CommunityVersion: "v1", MinMembers: 3, MinDocumentCount: 5}

	a, err := Sample(acc, params)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	b, err := Sample(acc, params)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Tech.ID != b[i].Tech.ID {
			t.Errorf("order differs at %d: %s vs %s", i, a[i].Tech.ID, b[i].Tech.ID)
		}
	}
}

func TestSample_DistinctIDs(t *testing.T) {
	acc := sampleFixture()
	got, err := Sample(acc, Params{N: 10, CommunityVersion: "v1", MinMembers: 3})
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	seen := make(map[string]bool)
	for _, s := range got {
		if seen[s.Tech.ID] {
			t.Errorf("duplicate id %s", s.Tech.ID)
		}
		seen[s.Tech.ID] = true
	}
}

func TestSample_ZeroTechCount(t *testing.T) {
	acc := sampleFixture()
	got, err := Sample(acc, Params{N: 0, CommunityVersion: "v1"})
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func TestSample_FewerThanNAvailable(t *testing.T) {
	acc := sampleFixture()
	acc.techs = acc.techs[:3]
	got, err := Sample(acc, Params{N: 50, CommunityVersion: "v1"})
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("len = %d, want 3 (all qualifying)", len(got))
	}
}

func TestSample_BucketsByRealCommunityMembership(t *testing.T) {
	acc := sampleFixture()
	got, err := Sample(acc, Params{N: 10, CommunityVersion: "v1", MinMembers: 3, MinDocumentCount: 5})
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}

	var sawLate, sawHype bool
	for _, s := range got {
		if s.Class == LateStage {
			sawLate = true
		}
		if s.Class == HypeStage {
			sawHype = true
		}
	}
	if !sawLate {
		t.Error("expected at least one selection from the late stratum")
	}
	if !sawHype {
		t.Error("expected at least one selection from the hype stratum")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		dist map[string]int
		want MaturityClass
	}{
		{"late", map[string]int{"patent": 10, "news": 1, "contract": 10}, LateStage},
		{"hype", map[string]int{"patent": 1, "news": 10, "contract": 1}, HypeStage},
		{"early", map[string]int{"patent": 10, "news": 1, "contract": 1}, EarlyStage},
		{"mid_default", map[string]int{"patent": 1, "news": 1, "contract": 1}, MidStage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(graph.CommunitySummary{DocTypeDistribution: tt.dist})
			if got != tt.want {
				t.Errorf("classify(%v) = %v, want %v", tt.dist, got, tt.want)
			}
		})
	}
}
