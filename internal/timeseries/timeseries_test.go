// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package timeseries

import (
	"context"
	"testing"
	"time"

	weaviate "github.com/hypegraph/engine/internal/graph/weaviateclient"
)

func TestNewSink_NoTokenDegradesImmediately(t *testing.T) {
	degrade := weaviate.NewScoreHistoryDegradation(nil)
	sink, err := NewSink(Config{}, degrade)
	if err != nil {
		t.Fatalf("NewSink: %v", err)
	}
	if degrade.GetMode() != weaviate.ModeDegraded {
		t.Fatalf("mode = %v, want degraded", degrade.GetMode())
	}
	if sink.writeAPI != nil {
		t.Fatal("expected no writeAPI without a token")
	}
}

func TestSink_WriteIsNoOpWhenDegraded(t *testing.T) {
	degrade := weaviate.NewScoreHistoryDegradation(nil)
	sink, _ := NewSink(Config{}, degrade)

	err := sink.Write(context.Background(), Point{TechID: "t1", Timestamp: time.Unix(0, 0)})
	if err != nil {
		t.Fatalf("Write on a degraded sink should be a silent no-op, got %v", err)
	}
}

func TestSink_WriteBatchIsolatesFailures(t *testing.T) {
	degrade := weaviate.NewScoreHistoryDegradation(nil)
	sink, _ := NewSink(Config{}, degrade)

	points := []Point{
		{TechID: "t1", Timestamp: time.Unix(0, 0)},
		{TechID: "t2", Timestamp: time.Unix(0, 0)},
	}
	if errs := sink.WriteBatch(context.Background(), points); len(errs) != 0 {
		t.Fatalf("expected no errors from a degraded (no-op) sink, got %v", errs)
	}
}

func TestConfigFromEnv_Defaults(t *testing.T) {
	cfg := ConfigFromEnv()
	if cfg.URL == "" || cfg.Org == "" || cfg.Bucket == "" {
		t.Fatalf("expected default values, got %+v", cfg)
	}
}

func TestSink_CloseWithoutClientIsSafe(t *testing.T) {
	degrade := weaviate.NewScoreHistoryDegradation(nil)
	sink, _ := NewSink(Config{}, degrade)
	sink.Close()
}
