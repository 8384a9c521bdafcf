// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package weaviate

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"

	"github.com/hypegraph/engine/internal/graph"
	"github.com/hypegraph/engine/pkg/validation"
)

// Class names in the Weaviate schema, matching the node kinds the graph
// layer models.
const (
	ClassTechnology = "Technology"
	ClassCompany    = "Company"
	ClassDocument   = "Document"
	ClassCommunity  = "Community"
)

// Accessor implements graph.Accessor against a live Weaviate instance
// through a ResilientClient, applying the graph layer's retry policy
// around every call.
type Accessor struct {
	client *ResilientClient
	retry  graph.RetryPolicy
}

var _ graph.Accessor = (*Accessor)(nil)

// NewAccessor wraps an already-connected ResilientClient.
func NewAccessor(client *ResilientClient) *Accessor {
	return &Accessor{client: client, retry: graph.DefaultRetryPolicy()}
}

func (a *Accessor) do(ctx context.Context, op string, fn func() error) error {
	return a.retry.Retry(ctx, op, func() error {
		return a.client.Execute(ctx, fn)
	})
}

// docWhere builds a "mentions this tech, of this doc_type, published within
// [start,end)" filter. docType == "" matches every type.
func docWhere(techID, docType string, start, end time.Time) *filters.WhereBuilder {
	mentions := filters.Where().
		WithPath([]string{"mentionedTech", "Technology", "id"}).
		WithOperator(filters.Equal).
		WithValueString(techID)

	operands := []*filters.WhereBuilder{mentions}
	if docType != "" {
		operands = append(operands, filters.Where().
			WithPath([]string{"docType"}).
			WithOperator(filters.Equal).
			WithValueString(docType))
	}
	if !start.IsZero() {
		operands = append(operands, filters.Where().
			WithPath([]string{"publishedAt"}).
			WithOperator(filters.GreaterThanEqual).
			WithValueDate(start))
	}
	if !end.IsZero() {
		operands = append(operands, filters.Where().
			WithPath([]string{"publishedAt"}).
			WithOperator(filters.LessThan).
			WithValueDate(end))
	}

	if len(operands) == 1 {
		return operands[0]
	}
	return filters.Where().WithOperator(filters.And).WithOperands(operands)
}

var docFields = []graphql.Field{
	{Name: "docId"}, {Name: "docType"}, {Name: "title"}, {Name: "summary"},
	{Name: "publishedAt"}, {Name: "pagerank"}, {Name: "qualityScore"},
	{Name: "citationCount"}, {Name: "valueUsd"}, {Name: "outletTier"},
	{Name: "evidenceText"},
}

func (a *Accessor) queryDocs(ctx context.Context, techID, docType string, start, end time.Time, limit int) ([]map[string]any, error) {
	if err := validation.ValidateNodeID(techID); err != nil {
		return nil, &graph.GraphSchemaMismatch{Detail: err.Error()}
	}
	if err := validation.ValidateDocType(docType); err != nil {
		return nil, &graph.GraphSchemaMismatch{Detail: err.Error()}
	}

	var raw []map[string]any
	err := a.do(ctx, "queryDocs", func() error {
		result, err := a.client.Client().GraphQL().Get().
			WithClassName(ClassDocument).
			WithFields(docFields...).
			WithWhere(docWhere(techID, docType, start, end)).
			WithLimit(limit).
			Do(ctx)
		if err != nil {
			return err
		}
		if len(result.Errors) > 0 {
			return &graph.GraphSchemaMismatch{Detail: result.Errors[0].Message}
		}
		raw = extractObjects(result.Data, ClassDocument)
		return nil
	})
	return raw, err
}

// extractObjects pulls the "Get"→className object list out of a GraphQL
// response payload.
func extractObjects(data map[string]any, className string) []map[string]any {
	get, ok := data["Get"].(map[string]any)
	if !ok {
		return nil
	}
	objs, ok := get[className].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(objs))
	for _, o := range objs {
		if m, ok := o.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func getString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func getFloat(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

func toSummary(m map[string]any) graph.DocSummary {
	date, _ := time.Parse(time.RFC3339, getString(m, "publishedAt"))
	return graph.DocSummary{
		DocID:   getString(m, "docId"),
		DocType: getString(m, "docType"),
		Title:   getString(m, "title"),
		Date:    date,
		Score:   getFloat(m, "pagerank"),
	}
}

// PatentActivity implements graph.Accessor.
func (a *Accessor) PatentActivity(techID string, start, end time.Time) (graph.PatentActivity, error) {
	ctx := context.Background()
	docs, err := a.queryDocs(ctx, techID, "patent", start, end, 500)
	if err != nil {
		return graph.PatentActivity{}, err
	}

	result := graph.PatentActivity{PatentCount: len(docs)}
	for _, d := range docs {
		result.CitationSum += int(getFloat(d, "citationCount"))
		pr := getFloat(d, "pagerank")
		result.PageRankWeightedCount += 1 + 100*pr
	}
	if result.PatentCount > 0 {
		result.AvgPageRank = result.PageRankWeightedCount / float64(result.PatentCount)
	}
	result.TopPatents = topN(docs, 5)
	return result, nil
}

// PaperActivity implements graph.Accessor.
func (a *Accessor) PaperActivity(techID string, start, end time.Time) (graph.PaperActivity, error) {
	docs, err := a.queryDocs(context.Background(), techID, "technical_paper", start, end, 500)
	if err != nil {
		return graph.PaperActivity{}, err
	}
	res := graph.PaperActivity{PaperCount: len(docs)}
	for _, d := range docs {
		res.CitationSum += int(getFloat(d, "citationCount"))
	}
	return res, nil
}

// CommunityContext implements graph.Accessor.
func (a *Accessor) CommunityContext(techID, version string) (graph.CommunityContext, error) {
	if err := validation.ValidateNodeID(techID); err != nil {
		return graph.CommunityContext{}, &graph.GraphSchemaMismatch{Detail: err.Error()}
	}
	var out graph.CommunityContext
	err := a.do(context.Background(), "CommunityContext", func() error {
		fields := []graphql.Field{{Name: "id"}}
		where := filters.Where().
			WithPath([]string{"memberTechs", "Technology", "id"}).
			WithOperator(filters.Equal).
			WithValueString(techID)
		result, err := a.client.Client().GraphQL().Get().
			WithClassName(ClassCommunity).WithFields(fields...).WithWhere(where).WithLimit(1).
			Do(context.Background())
		if err != nil {
			return err
		}
		objs := extractObjects(result.Data, ClassCommunity)
		if len(objs) > 0 {
			out.CommunityID = getString(objs[0], "id")
		}
		return nil
	})
	return out, err
}

// TemporalTrend implements graph.Accessor: compares document counts in the
// most recent bucketSpan against the preceding equal span.
func (a *Accessor) TemporalTrend(techID string, window time.Duration, bucketSpan time.Duration, anchor time.Time) (graph.Trend, error) {
	recentStart := anchor.Add(-bucketSpan)
	priorStart := recentStart.Add(-bucketSpan)

	recent, err := a.queryDocs(context.Background(), techID, "", recentStart, anchor, 1000)
	if err != nil {
		return "", err
	}
	prior, err := a.queryDocs(context.Background(), techID, "", priorStart, recentStart, 1000)
	if err != nil {
		return "", err
	}

	priorCount := len(prior)
	if priorCount == 0 {
		priorCount = 1
	}
	ratio := float64(len(recent)) / float64(priorCount)
	switch {
	case ratio > 1.25:
		return graph.TrendGrowing, nil
	case ratio < 0.8:
		return graph.TrendDeclining, nil
	default:
		return graph.TrendStable, nil
	}
}

// ContractActivity implements graph.Accessor.
func (a *Accessor) ContractActivity(techID string, start, end time.Time) (graph.ContractActivity, error) {
	docs, err := a.queryDocs(context.Background(), techID, "government_contract", start, end, 500)
	if err != nil {
		return graph.ContractActivity{}, err
	}
	res := graph.ContractActivity{ContractCount: len(docs)}
	for _, d := range docs {
		res.TotalValueUSD += getFloat(d, "valueUsd")
	}
	if res.ContractCount > 0 {
		res.AvgValue = res.TotalValueUSD / float64(res.ContractCount)
	}
	res.TopContracts = topN(docs, 5)
	return res, nil
}

// RegulationActivity implements graph.Accessor.
func (a *Accessor) RegulationActivity(techID string, start, end time.Time) (int, error) {
	docs, err := a.queryDocs(context.Background(), techID, "regulation", start, end, 500)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// CompaniesDeveloping implements graph.Accessor.
func (a *Accessor) CompaniesDeveloping(techID string) (int, []graph.CompanySummary, error) {
	if err := validation.ValidateNodeID(techID); err != nil {
		return 0, nil, &graph.GraphSchemaMismatch{Detail: err.Error()}
	}
	var companies []graph.CompanySummary
	err := a.do(context.Background(), "CompaniesDeveloping", func() error {
		fields := []graphql.Field{{Name: "id"}, {Name: "name"}, {Name: "pagerank"}}
		where := filters.Where().
			WithPath([]string{"developsTech", "Technology", "id"}).
			WithOperator(filters.Equal).
			WithValueString(techID)
		result, err := a.client.Client().GraphQL().Get().
			WithClassName(ClassCompany).WithFields(fields...).WithWhere(where).WithLimit(200).
			Do(context.Background())
		if err != nil {
			return err
		}
		for _, m := range extractObjects(result.Data, ClassCompany) {
			companies = append(companies, graph.CompanySummary{
				ID:       getString(m, "id"),
				Name:     getString(m, "name"),
				PageRank: getFloat(m, "pagerank"),
			})
		}
		return nil
	})
	sort.Slice(companies, func(i, j int) bool { return companies[i].PageRank > companies[j].PageRank })
	top := companies
	if len(top) > 10 {
		top = top[:10]
	}
	return len(companies), top, err
}

// RevenueMentions implements graph.Accessor: sec_filing documents whose
// evidence_text matches "revenue" or "sales".
func (a *Accessor) RevenueMentions(techID string, start, end time.Time) (int, error) {
	docs, err := a.queryDocs(context.Background(), techID, "sec_filing", start, end, 500)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, d := range docs {
		text := getString(d, "evidenceText")
		if containsAny(text, "revenue", "sales") {
			count++
		}
	}
	return count, nil
}

// NewsActivity implements graph.Accessor.
func (a *Accessor) NewsActivity(techID string, start, end time.Time) (graph.NewsActivity, error) {
	docs, err := a.queryDocs(context.Background(), techID, "news", start, end, 500)
	if err != nil {
		return graph.NewsActivity{}, err
	}
	res := graph.NewsActivity{NewsCount: len(docs)}
	for _, d := range docs {
		switch getString(d, "outletTier") {
		case "tier1":
			res.Tier1Count++
		case "tier2":
			res.Tier2Count++
		case "tier3":
			res.Tier3Count++
		}
	}
	res.TopArticles = topN(docs, 5)
	return res, nil
}

// SECRiskMentions implements graph.Accessor.
func (a *Accessor) SECRiskMentions(techID string, start, end time.Time) (int, error) {
	docs, err := a.queryDocs(context.Background(), techID, "sec_filing", start, end, 500)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, d := range docs {
		if containsAny(getString(d, "evidenceText"), "risk") {
			count++
		}
	}
	return count, nil
}

// InsiderTrading implements graph.Accessor. It reads insider-transaction
// counts off the Technology node's properties where present (this interface
// abstracts an external tabular store
// as a graph accessor); absence is treated as zero activity, not an error.
func (a *Accessor) InsiderTrading(techID string, start, end time.Time) (graph.InsiderTrading, error) {
	if err := validation.ValidateNodeID(techID); err != nil {
		return graph.InsiderTrading{}, &graph.GraphSchemaMismatch{Detail: err.Error()}
	}
	var out graph.InsiderTrading
	err := a.do(context.Background(), "InsiderTrading", func() error {
		fields := []graphql.Field{{Name: "insiderBuyCount"}, {Name: "insiderSellCount"}}
		where := filters.Where().WithPath([]string{"id"}).WithOperator(filters.Equal).WithValueString(techID)
		result, err := a.client.Client().GraphQL().Get().
			WithClassName(ClassTechnology).WithFields(fields...).WithWhere(where).WithLimit(1).
			Do(context.Background())
		if err != nil {
			return err
		}
		objs := extractObjects(result.Data, ClassTechnology)
		if len(objs) == 0 {
			return nil
		}
		out.BuyCount = int(getFloat(objs[0], "insiderBuyCount"))
		out.SellCount = int(getFloat(objs[0], "insiderSellCount"))
		return nil
	})
	switch {
	case float64(out.BuyCount) > 1.5*float64(out.SellCount) && out.BuyCount > 0:
		out.NetPosition = graph.NetBuying
	case float64(out.SellCount) > 1.5*float64(out.BuyCount) && out.SellCount > 0:
		out.NetPosition = graph.NetSelling
	default:
		out.NetPosition = graph.NetNeutral
	}
	return out, err
}

// InstitutionalHoldingsPct implements graph.Accessor.
func (a *Accessor) InstitutionalHoldingsPct(techID string) (float64, error) {
	if err := validation.ValidateNodeID(techID); err != nil {
		return 0, &graph.GraphSchemaMismatch{Detail: err.Error()}
	}
	var pct float64
	err := a.do(context.Background(), "InstitutionalHoldingsPct", func() error {
		fields := []graphql.Field{{Name: "institutionalHoldingsPct"}}
		where := filters.Where().WithPath([]string{"id"}).WithOperator(filters.Equal).WithValueString(techID)
		result, err := a.client.Client().GraphQL().Get().
			WithClassName(ClassTechnology).WithFields(fields...).WithWhere(where).WithLimit(1).
			Do(context.Background())
		if err != nil {
			return err
		}
		objs := extractObjects(result.Data, ClassTechnology)
		if len(objs) > 0 {
			pct = getFloat(objs[0], "institutionalHoldingsPct")
		}
		return nil
	})
	return pct, err
}

// AllCommunities implements graph.Accessor.
func (a *Accessor) AllCommunities(version string, minMemberCount int) ([]graph.CommunitySummary, error) {
	var out []graph.CommunitySummary
	err := a.do(context.Background(), "AllCommunities", func() error {
		fields := []graphql.Field{
			{Name: "id"}, {Name: "memberCount"},
			{Name: "patentDocCount"}, {Name: "newsDocCount"}, {Name: "contractDocCount"},
		}
		where := filters.Where().
			WithOperator(filters.And).
			WithOperands([]*filters.WhereBuilder{
				filters.Where().WithPath([]string{"version"}).WithOperator(filters.Equal).WithValueString(version),
				filters.Where().WithPath([]string{"memberCount"}).WithOperator(filters.GreaterThanEqual).WithValueInt(int64(minMemberCount)),
			})
		result, err := a.client.Client().GraphQL().Get().
			WithClassName(ClassCommunity).WithFields(fields...).WithWhere(where).WithLimit(1000).
			Do(context.Background())
		if err != nil {
			return err
		}
		for _, m := range extractObjects(result.Data, ClassCommunity) {
			out = append(out, graph.CommunitySummary{
				ID:          getString(m, "id"),
				MemberCount: int(getFloat(m, "memberCount")),
				DocTypeDistribution: map[string]int{
					"patent":   int(getFloat(m, "patentDocCount")),
					"news":     int(getFloat(m, "newsDocCount")),
					"contract": int(getFloat(m, "contractDocCount")),
				},
			})
		}
		return nil
	})
	return out, err
}

// TopTechnologies implements graph.Accessor.
func (a *Accessor) TopTechnologies(qualityThreshold float64) ([]graph.TechSummary, error) {
	var out []graph.TechSummary
	err := a.do(context.Background(), "TopTechnologies", func() error {
		fields := []graphql.Field{
			{Name: "id"}, {Name: "name"}, {Name: "domain"}, {Name: "qualityScore"}, {Name: "pagerank"},
			{Name: "docTypeDiversity"}, {Name: "totalDocCount"},
		}
		where := filters.Where().
			WithPath([]string{"qualityScore"}).
			WithOperator(filters.GreaterThanEqual).
			WithValueNumber(qualityThreshold)
		result, err := a.client.Client().GraphQL().Get().
			WithClassName(ClassTechnology).WithFields(fields...).WithWhere(where).WithLimit(5000).
			Do(context.Background())
		if err != nil {
			return err
		}
		for _, m := range extractObjects(result.Data, ClassTechnology) {
			out = append(out, graph.TechSummary{
				ID:               getString(m, "id"),
				Name:             getString(m, "name"),
				Domain:           getString(m, "domain"),
				QualityScore:     getFloat(m, "qualityScore"),
				PageRank:         getFloat(m, "pagerank"),
				DocTypeDiversity: int(getFloat(m, "docTypeDiversity")),
				TotalDocs:        int(getFloat(m, "totalDocCount")),
			})
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].PageRank != out[j].PageRank {
			return out[i].PageRank > out[j].PageRank
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func topN(docs []map[string]any, n int) []graph.DocSummary {
	sort.Slice(docs, func(i, j int) bool { return getFloat(docs[i], "pagerank") > getFloat(docs[j], "pagerank") })
	if len(docs) > n {
		docs = docs[:n]
	}
	out := make([]graph.DocSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, toSummary(d))
	}
	return out
}

func containsAny(haystack string, needles ...string) bool {
	lower := strings.ToLower(haystack)
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}
