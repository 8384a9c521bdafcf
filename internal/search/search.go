// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package search implements the optional external-search collaborator
// the narrative scorer uses to probe for recent
// mentions of a technology outside the property graph. It is a thin HTTP
// client, not a provider SDK: any search backend that can answer "how many
// results for this query in the last N days" fits behind it.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hypegraph/engine/internal/scorers"

	weaviate "github.com/hypegraph/engine/internal/graph/weaviateclient"
)

// Client implements scorers.ExternalSearch against a generic search API
// reachable over HTTP, following the same request/response handling the
// orchestrator uses to call its own collaborator services. It carries its
// own ExternalSearchDegradation handler so a failing backend trips into the
// NarrativeScorer's static-freshness fallback without the
// scorer needing to know anything about circuit state.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	degrade    *weaviate.ExternalSearchDegradation
}

// New builds a Client. baseURL is the search service's root endpoint
// (e.g. "https://api.search.example"; requests go to
// baseURL+"/v1/search/count"); apiKey is sent as a Bearer token.
func New(baseURL, apiKey string, degrade *weaviate.ExternalSearchDegradation) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		degrade:    degrade,
	}
}

type searchRequest struct {
	Query      string `json:"query"`
	WindowDays int    `json:"window_days"`
}

type searchResponse struct {
	ResultCount int `json:"result_count"`
}

var _ scorers.ExternalSearch = (*Client)(nil)

// RecentMentionCount implements scorers.ExternalSearch.
func (c *Client) RecentMentionCount(ctx context.Context, techName string, window time.Duration) (int, error) {
	if c.degrade != nil && c.degrade.ShouldSkipSearch() {
		return 0, fmt.Errorf("search: collaborator degraded")
	}

	payload, err := json.Marshal(searchRequest{
		Query:      techName,
		WindowDays: int(window.Hours() / 24),
	})
	if err != nil {
		return 0, fmt.Errorf("search: marshaling request: %w", err)
	}

	url := c.baseURL + "/v1/search/count"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return 0, fmt.Errorf("search: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.onFailure(err.Error())
		return 0, fmt.Errorf("search: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.onFailure(fmt.Sprintf("status %d", resp.StatusCode))
		return 0, fmt.Errorf("search: status %d: %s", resp.StatusCode, string(body))
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.onFailure(err.Error())
		return 0, fmt.Errorf("search: decoding response: %w", err)
	}
	if c.degrade != nil {
		c.degrade.OnRecovered()
	}
	return out.ResultCount, nil
}

func (c *Client) onFailure(reason string) {
	if c.degrade != nil {
		c.degrade.OnDegraded(reason)
	}
}
