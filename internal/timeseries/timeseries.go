// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package timeseries writes per-technology score history to InfluxDB so a
// technology's drift across the hype curve can be charted over successive
// batch runs. It is optional: the pipeline never blocks on it, and a
// degraded or absent InfluxDB never fails a batch.
package timeseries

import (
	"context"
	"fmt"
	"os"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	weaviate "github.com/hypegraph/engine/internal/graph/weaviateclient"
)

const measurement = "technology_scores"

// Point is one technology's score snapshot at a point in time.
type Point struct {
	TechID           string
	TechName         string
	CommunityVersion string
	Phase            string
	Innovation       float64
	Adoption         float64
	Narrative        float64
	Risk             float64
	Hype             float64
	OverallWeighted  float64
	ChartX           float64
	ChartY           float64
	Timestamp        time.Time
}

// Sink writes score-history points to InfluxDB, gated by a degradation
// handler so an unhealthy or unconfigured InfluxDB never blocks a batch.
type Sink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	degrade  *weaviate.ScoreHistoryDegradation
}

// Config names the InfluxDB connection: the
// INFLUXDB_URL/INFLUXDB_TOKEN/INFLUXDB_ORG/INFLUXDB_BUCKET environment
// variables.
type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// ConfigFromEnv reads Config from the environment, applying sensible
// local-development fallback defaults.
func ConfigFromEnv() Config {
	cfg := Config{
		URL:    os.Getenv("INFLUXDB_URL"),
		Token:  os.Getenv("INFLUXDB_TOKEN"),
		Org:    os.Getenv("INFLUXDB_ORG"),
		Bucket: os.Getenv("INFLUXDB_BUCKET"),
	}
	if cfg.URL == "" {
		cfg.URL = "http://localhost:8086"
	}
	if cfg.Org == "" {
		cfg.Org = "hypegraph"
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "technology-scores"
	}
	return cfg
}

// NewSink constructs a Sink. A missing token is not an error here — the
// caller decides whether score-history is mandatory; Write simply becomes a
// no-op once the degradation handler reports anything other than normal.
func NewSink(cfg Config, degrade *weaviate.ScoreHistoryDegradation) (*Sink, error) {
	if cfg.Token == "" {
		degrade.OnDegraded("no INFLUXDB_TOKEN configured")
		return &Sink{degrade: degrade}, nil
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &Sink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		degrade:  degrade,
	}, nil
}

// Write records one technology's score snapshot. Errors are reported to the
// degradation handler and returned so the caller can log them, but a
// write failure must never abort the batch it was called from.
func (s *Sink) Write(ctx context.Context, p Point) error {
	if s.degrade.ShouldSkipWrite() || s.writeAPI == nil {
		return nil
	}

	point := influxdb2.NewPointWithMeasurement(measurement).
		AddTag("tech_id", p.TechID).
		AddTag("tech_name", p.TechName).
		AddTag("community_version", p.CommunityVersion).
		AddTag("phase", p.Phase).
		AddField("innovation", p.Innovation).
		AddField("adoption", p.Adoption).
		AddField("narrative", p.Narrative).
		AddField("risk", p.Risk).
		AddField("hype", p.Hype).
		AddField("overall_weighted", p.OverallWeighted).
		AddField("chart_x", p.ChartX).
		AddField("chart_y", p.ChartY).
		SetTime(p.Timestamp)

	if err := s.writeAPI.WritePoint(ctx, point); err != nil {
		s.degrade.OnDegraded(err.Error())
		return fmt.Errorf("write score history point for %s: %w", p.TechID, err)
	}
	s.degrade.OnRecovered()
	return nil
}

// WriteBatch writes every point in a batch, collecting but not stopping on
// individual failures — mirrors the pipeline's own single-tech-failure
// isolation.
func (s *Sink) WriteBatch(ctx context.Context, points []Point) []error {
	var errs []error
	for _, p := range points {
		if err := s.Write(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Close releases the underlying InfluxDB client. Safe to call on a Sink
// that never constructed one.
func (s *Sink) Close() {
	if s.client != nil {
		s.client.Close()
	}
}
