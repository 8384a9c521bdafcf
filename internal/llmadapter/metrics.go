// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llmadapter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	callsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llmadapter_calls_total",
		Help: "Total structured-output LLM calls by stage and outcome",
	}, []string{"stage", "outcome"})

	latency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llmadapter_latency_seconds",
		Help:    "Structured-output LLM call latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"stage", "replayed"})

	retryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llmadapter_retry_total",
		Help: "Total retry attempts by stage and cause",
	}, []string{"stage", "cause"})

	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "llmadapter_replay_cache_hits_total",
		Help: "Total replay-cache hits",
	})

	clampTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llmadapter_clamp_total",
		Help: "Total out-of-range field clamps by stage",
	}, []string{"stage"})
)
