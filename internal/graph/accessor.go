// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph declares the Graph Query Layer: typed,
// parameterized accessors grouped by intelligence layer. This package never
// exposes raw graph handles to callers; every accessor returns primitive
// values, aggregates, or small ordered lists. The concrete implementation
// lives in weaviateclient (live driver); badgerstore does not implement it.
package graph

import "time"

// DocSummary is a small ordered-list element: enough to cite a document
// without handing back the whole graph node.
type DocSummary struct {
	DocID     string
	DocType   string
	Title     string
	URL       string
	Date      time.Time
	Score     float64
	Metadata  map[string]any
}

// CompanySummary is the minimal shape returned by CompaniesDeveloping.
type CompanySummary struct {
	ID       string
	Name     string
	PageRank float64
}

// PatentActivity is the result of Accessor.PatentActivity.
type PatentActivity struct {
	PatentCount          int
	CitationSum          int
	PageRankWeightedCount float64
	AvgPageRank           float64
	TopPatents            []DocSummary
}

// PaperActivity is the result of Accessor.PaperActivity.
type PaperActivity struct {
	PaperCount  int
	CitationSum int
}

// CommunityContext is the result of Accessor.CommunityContext.
type CommunityContext struct {
	CommunityID        string
	CommunityPatentCount int
	CommunityPaperCount   int
}

// Trend is the closed vocabulary returned by Accessor.TemporalTrend.
type Trend string

const (
	TrendGrowing   Trend = "growing"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// ContractActivity is the result of Accessor.ContractActivity.
type ContractActivity struct {
	ContractCount  int
	TotalValueUSD  float64
	AvgValue       float64
	TopContracts   []DocSummary
}

// NewsActivity is the result of Accessor.NewsActivity; tiers come from the
// outlet_tier property.
type NewsActivity struct {
	NewsCount   int
	Tier1Count  int
	Tier2Count  int
	Tier3Count  int
	TopArticles []DocSummary
}

// NetPosition is the closed vocabulary returned by Accessor.InsiderTrading.
type NetPosition string

const (
	NetBuying  NetPosition = "buying"
	NetNeutral NetPosition = "neutral"
	NetSelling NetPosition = "selling"
)

// InsiderTrading is the result of Accessor.InsiderTrading.
type InsiderTrading struct {
	BuyCount    int
	SellCount   int
	NetPosition NetPosition
}

// CommunitySummary is one element of Accessor.AllCommunities.
type CommunitySummary struct {
	ID                 string
	MemberCount         int
	DocTypeDistribution map[string]int
}

// TechSummary is one element of Accessor.TopTechnologies. DocTypeDiversity
// and TotalDocs are denormalized counters maintained at ingestion time —
// Weaviate properties are scalar-typed, so a per-type breakdown isn't stored
// as a map on the node itself.
type TechSummary struct {
	ID               string
	Name             string
	Domain           string
	QualityScore     float64
	PageRank         float64
	DocTypeDiversity int
	TotalDocs        int
}

// Accessor is the Graph Query Layer's full interface. All methods accept a
// technology id and (where noted) a temporal window [start, end). They must
// be idempotent and side-effect free.
type Accessor interface {
	PatentActivity(techID string, start, end time.Time) (PatentActivity, error)
	PaperActivity(techID string, start, end time.Time) (PaperActivity, error)
	CommunityContext(techID, version string) (CommunityContext, error)
	TemporalTrend(techID string, window time.Duration, bucketSpan time.Duration, anchor time.Time) (Trend, error)
	ContractActivity(techID string, start, end time.Time) (ContractActivity, error)
	RegulationActivity(techID string, start, end time.Time) (approvalCount int, err error)
	CompaniesDeveloping(techID string) (companyCount int, topCompanies []CompanySummary, err error)
	RevenueMentions(techID string, start, end time.Time) (int, error)
	NewsActivity(techID string, start, end time.Time) (NewsActivity, error)
	SECRiskMentions(techID string, start, end time.Time) (int, error)
	InsiderTrading(techID string, start, end time.Time) (InsiderTrading, error)
	InstitutionalHoldingsPct(techID string) (float64, error)
	AllCommunities(version string, minMemberCount int) ([]CommunitySummary, error)
	TopTechnologies(qualityThreshold float64) ([]TechSummary, error)
}
