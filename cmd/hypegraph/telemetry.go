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
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// setupTelemetry installs the global trace and meter providers the rest of
// the binary's packages (internal/dag, internal/config, internal/llmadapter)
// pull their tracer/meter handles from via otel.Tracer/otel.Meter. With
// OTEL_EXPORTER_OTLP_ENDPOINT unset, spans are printed to stderr so a single
// operator run still shows span timing without a collector. Metrics go to
// the stdout exporter, or to a Prometheus /metrics endpoint when
// --metrics-addr is set, whatever the endpoint setting.
func setupTelemetry(ctx context.Context) (func(context.Context) error, error) {
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String("hypegraph"),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry: building resource: %w", err)
	}

	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")

	var spanExporter sdktrace.SpanExporter
	if endpoint != "" {
		var dialOpts []grpc.DialOption
		if os.Getenv("OTEL_INSECURE") != "false" {
			dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		}
		conn, err := grpc.NewClient(endpoint, dialOpts...)
		if err != nil {
			return nil, fmt.Errorf("telemetry: dialing collector %s: %w", endpoint, err)
		}
		spanExporter, err = otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
		if err != nil {
			return nil, fmt.Errorf("telemetry: creating OTLP exporter: %w", err)
		}
	} else {
		spanExporter, err = stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
		if err != nil {
			return nil, fmt.Errorf("telemetry: creating stdout span exporter: %w", err)
		}
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(spanExporter),
	)
	otel.SetTracerProvider(tracerProvider)

	var (
		meterProvider *metric.MeterProvider
		metricsServer *http.Server
	)

	if metricsAddr != "" {
		// The prometheus bridge registers OTel instruments (internal/dag's
		// span-adjacent counters) onto the default registerer, the same one
		// promauto.NewCounterVec et al. use — one /metrics endpoint serves
		// both families.
		promReader, err := otelprom.New()
		if err != nil {
			return nil, fmt.Errorf("telemetry: creating prometheus exporter: %w", err)
		}
		meterProvider = metric.NewMeterProvider(metric.WithResource(res), metric.WithReader(promReader))

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Warn("metrics server stopped", "error", err.Error())
			}
		}()
	} else {
		metricExporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("telemetry: creating stdout metric exporter: %w", err)
		}
		meterProvider = metric.NewMeterProvider(
			metric.WithResource(res),
			metric.WithReader(metric.NewPeriodicReader(metricExporter)),
		)
	}
	otel.SetMeterProvider(meterProvider)

	return func(shutdownCtx context.Context) error {
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				return err
			}
		}
		return meterProvider.Shutdown(shutdownCtx)
	}, nil
}
