// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hypegraph/engine/internal/config"
	"github.com/hypegraph/engine/internal/ensemble"
	weaviate "github.com/hypegraph/engine/internal/graph/weaviateclient"
	"github.com/hypegraph/engine/internal/llmadapter"
	"github.com/hypegraph/engine/internal/narrative"
	"github.com/hypegraph/engine/internal/pipeline"
	"github.com/hypegraph/engine/internal/scorers"
	"github.com/hypegraph/engine/internal/search"
	"github.com/hypegraph/engine/internal/timeseries"
	"github.com/hypegraph/engine/pkg/secrets"
)

// assembled bundles an Orchestrator with the resources its construction
// opened, so callers can release them deterministically after a run.
type assembled struct {
	orch  *pipeline.Orchestrator
	close func()
}

// buildOrchestrator wires every domain collaborator the pipeline needs:
// the graph driver, the LLM adapter (a single one shared by the four
// scorers and the narrator), the optional external-search
// probe, and the optional score-history sink. Credentials are loaded once
// into mlocked memory and exposed only for the duration of client
// construction.
func buildOrchestrator(ctx context.Context, cfg *config.Config) (*assembled, error) {
	store, err := secrets.LoadFromEnv(cfg.EnableExternalSearch)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	clientCfg := weaviate.DefaultClientConfig()
	clientCfg.URL = os.Getenv("WEAVIATE_URL")
	if clientCfg.URL == "" {
		clientCfg.URL = "http://localhost:8080"
	}
	if err := store.GraphAPIKey.Expose(func(key string) error {
		clientCfg.APIKey = key
		return nil
	}); err != nil {
		return nil, fmt.Errorf("reading graph api key: %w", err)
	}

	graphClient, err := weaviate.NewResilientClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to graph driver: %w", err)
	}
	if err := weaviate.EnsureSchema(ctx, graphClient); err != nil {
		_ = graphClient.Close()
		return nil, fmt.Errorf("ensuring graph schema: %w", err)
	}
	accessor := weaviate.NewAccessor(graphClient)

	llmClient, err := buildLLMClient(llmProvider)
	if err != nil {
		_ = graphClient.Close()
		return nil, err
	}
	adapter := llmadapter.NewAdapter(llmClient, llmadapter.AdapterConfig{
		RateLimitPerSecond: cfg.LLMRateLimitPerSecond,
	})
	replayDegrade := weaviate.NewReplayCacheDegradation(nil)
	adapter.WithCacheDegradation(replayDegrade)

	var externalSearch scorers.ExternalSearch
	if cfg.EnableExternalSearch && store.ExternalSearch != nil {
		searchDegrade := weaviate.NewExternalSearchDegradation(nil)
		if err := store.ExternalSearch.Expose(func(key string) error {
			externalSearch = search.New(os.Getenv("SEARCH_API_URL"), key, searchDegrade)
			return nil
		}); err != nil {
			return nil, fmt.Errorf("reading external search api key: %w", err)
		}
	}

	var history *timeseries.Sink
	historyDegrade := weaviate.NewScoreHistoryDegradation(nil)
	history, err = timeseries.NewSink(timeseries.ConfigFromEnv(), historyDegrade)
	if err != nil {
		return nil, fmt.Errorf("building score history sink: %w", err)
	}

	scorerSet := pipeline.Scorers{
		Innovation: &scorers.InnovationScorer{
			Graph: accessor, Adapter: adapter,
			Temp: cfg.StageTemperatures.Innovation,
			Window: time.Duration(cfg.TemporalWindows.InnovationDays) * 24 * time.Hour,
			Bucket: 180 * 24 * time.Hour, Version: cfg.CommunityVersion,
		},
		Adoption: &scorers.AdoptionScorer{
			Graph: accessor, Adapter: adapter,
			Temp: cfg.StageTemperatures.Adoption,
			Window: time.Duration(cfg.TemporalWindows.AdoptionDays) * 24 * time.Hour,
		},
		Narrative: &scorers.NarrativeScorer{
			Graph: accessor, Adapter: adapter,
			Temp: cfg.StageTemperatures.Narrative,
			Window: time.Duration(cfg.TemporalWindows.NarrativeDays) * 24 * time.Hour,
			EnableExternalSearch: cfg.EnableExternalSearch,
			External:             externalSearch,
		},
		Risk: &scorers.RiskScorer{
			Graph: accessor, Adapter: adapter,
			Temp: cfg.StageTemperatures.Risk,
			Window: time.Duration(cfg.TemporalWindows.RiskDays) * 24 * time.Hour,
		},
	}

	orch := &pipeline.Orchestrator{
		Graph:   accessor,
		Scorers: scorerSet,
		Narrator: &narrative.Generator{
			Adapter:     adapter,
			Temperature: cfg.StageTemperatures.Summary,
		},
		LayerWeight: toEnsembleWeights(cfg.LayerWeights),
		History:     history,
	}

	return &assembled{
		orch: orch,
		close: func() {
			history.Close()
			if err := graphClient.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "closing graph client: %v\n", err)
			}
		},
	}, nil
}

// toEnsembleWeights converts the config package's LayerWeights (the YAML-
// bound shape) into the ensemble package's LayerWeights (the pure-function
// input shape). The two stay distinct types so internal/ensemble has no
// dependency on internal/config's YAML tags.
func toEnsembleWeights(w config.LayerWeights) ensemble.LayerWeights {
	return ensemble.LayerWeights{
		Innovation: w.Innovation,
		Adoption:   w.Adoption,
		Narrative:  w.Narrative,
		Risk:       w.Risk,
	}
}

func buildLLMClient(provider string) (llmadapter.LLMClient, error) {
	switch provider {
	case "", "anthropic":
		return llmadapter.NewAnthropicClient()
	case "openai":
		return llmadapter.NewOpenAIClient()
	default:
		return nil, fmt.Errorf("unknown --llm-provider %q: want anthropic or openai", provider)
	}
}
