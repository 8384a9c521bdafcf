// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llmadapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// LLMUnavailable is raised after the transport retry budget is exhausted on
// a transient error (rate limit, timeout, connection reset). Calling stages
// must catch this and apply graceful degradation; it never escapes the
// pipeline.
type LLMUnavailable struct {
	Stage string
	Err   error
}

func (e *LLMUnavailable) Error() string {
	return fmt.Sprintf("llm unavailable for stage %q: %v", e.Stage, e.Err)
}

func (e *LLMUnavailable) Unwrap() error { return e.Err }

// LLMSchemaViolation is raised when the model's output cannot be coerced
// into the target schema even after the schema-retry budget is exhausted.
type LLMSchemaViolation struct {
	Stage string
	Raw   string
	Err   error
}

func (e *LLMSchemaViolation) Error() string {
	return fmt.Sprintf("llm schema violation for stage %q: %v", e.Stage, e.Err)
}

func (e *LLMSchemaViolation) Unwrap() error { return e.Err }

// AdapterConfig bounds the retry behavior of Call. Zero values fall back to
// the package defaults (3 transport attempts, 2 schema-parse retries after
// the first parse, 100ms base backoff).
type AdapterConfig struct {
	MaxTransportAttempts int
	MaxSchemaAttempts    int
	BaseBackoff          time.Duration
	ReplayMode           bool

	// RateLimitPerSecond caps outbound calls to the backend ahead of the
	// provider's own 429s. Zero disables client-side limiting.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

func (c AdapterConfig) withDefaults() AdapterConfig {
	if c.MaxTransportAttempts <= 0 {
		c.MaxTransportAttempts = 3
	}
	if c.MaxSchemaAttempts <= 0 {
		c.MaxSchemaAttempts = 2
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 100 * time.Millisecond
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = 1
	}
	return c
}

// CacheDegradation lets an external health monitor force the replay cache
// to be bypassed (calls go straight to the live backend) without tripping
// the whole adapter into LLMUnavailable. Satisfied by
// weaviateclient.ReplayCacheDegradation.
type CacheDegradation interface {
	ShouldBypassCache() bool
}

// Adapter is the sole boundary between the pipeline and an LLM backend. All
// stages call Adapter.Call (via the generic Call function) rather than
// touching LLMClient directly, so temperature policy, retry, caching, and
// schema enforcement live in exactly one place.
type Adapter struct {
	client  LLMClient
	cfg     AdapterConfig
	cache   *ReplayCache
	degrade CacheDegradation
	limiter *rate.Limiter
}

// NewAdapter wraps a backend client. When cfg.ReplayMode is true, a
// ReplayCache is consulted before every call and populated after every live
// call, giving the deterministic-rerun property replay mode promises. When
// cfg.RateLimitPerSecond is set, live calls (cache hits are exempt) wait on
// a token-bucket limiter before reaching the backend.
func NewAdapter(client LLMClient, cfg AdapterConfig) *Adapter {
	cfg = cfg.withDefaults()
	a := &Adapter{client: client, cfg: cfg}
	if cfg.ReplayMode {
		a.cache = NewReplayCache(24*time.Hour, 100000)
	}
	if cfg.RateLimitPerSecond > 0 {
		a.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), cfg.RateLimitBurst)
	}
	return a
}

// WithCacheDegradation attaches a health monitor that can force cache
// bypass; returns the adapter for chaining at construction time.
func (a *Adapter) WithCacheDegradation(d CacheDegradation) *Adapter {
	a.degrade = d
	return a
}

func (a *Adapter) cacheBypassed() bool {
	return a.degrade != nil && a.degrade.ShouldBypassCache()
}

// Call issues a structured-output request: it renders prompt at the given
// stage/temperature, retries transient transport errors with exponential
// backoff, extracts a JSON object from the completion, and hands it to
// parse. parse is responsible for schema-shape decoding and range clamping
// (it returns the clamp count so Call can report it); a parse error is
// treated as a schema-parse failure and retried — with the same prompt —
// up to cfg.MaxSchemaAttempts times before Call gives up and returns
// LLMSchemaViolation.
func Call[T any](ctx context.Context, a *Adapter, stage string, temperature float32, prompt string, parse func(raw string) (T, int, error)) (T, error) {
	var zero T
	cfg := a.cfg

	for schemaAttempt := 0; schemaAttempt < cfg.MaxSchemaAttempts+1; schemaAttempt++ {
		raw, replayed, err := a.generateWithRetry(ctx, stage, temperature, prompt)
		if err != nil {
			callsTotal.WithLabelValues(stage, "llm_unavailable").Inc()
			return zero, &LLMUnavailable{Stage: stage, Err: err}
		}

		start := time.Now()
		value, clamped, perr := parse(raw)
		latency.WithLabelValues(stage, boolLabel(replayed)).Observe(time.Since(start).Seconds())
		if perr == nil {
			if clamped > 0 {
				clampTotal.WithLabelValues(stage).Add(float64(clamped))
			}
			callsTotal.WithLabelValues(stage, "ok").Inc()
			return value, nil
		}

		retryTotal.WithLabelValues(stage, "schema_parse").Inc()
		slog.Warn("llm schema parse failed, retrying", "stage", stage, "attempt", schemaAttempt+1, "error", perr)
		if schemaAttempt == cfg.MaxSchemaAttempts {
			callsTotal.WithLabelValues(stage, "schema_violation").Inc()
			return zero, &LLMSchemaViolation{Stage: stage, Raw: raw, Err: perr}
		}
	}
	return zero, &LLMSchemaViolation{Stage: stage, Err: errors.New("schema retries exhausted")}
}

// generateWithRetry performs the transport-level retry: up to
// cfg.MaxTransportAttempts calls to the backend with 2^n * BaseBackoff delay
// between attempts, honoring context cancellation at every suspension
// point. A replay-cache hit short-circuits the backend entirely.
func (a *Adapter) generateWithRetry(ctx context.Context, stage string, temperature float32, prompt string) (raw string, replayed bool, err error) {
	if a.cache != nil && !a.cacheBypassed() {
		if cached, ok := a.cache.Get(stage, temperature, prompt); ok {
			cacheHitsTotal.Inc()
			return cached, true, nil
		}
	}

	temp := temperature
	params := GenerationParams{Temperature: &temp}

	for attempt := 0; attempt < a.cfg.MaxTransportAttempts; attempt++ {
		if attempt > 0 {
			backoff := a.cfg.BaseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return "", false, ctx.Err()
			case <-time.After(backoff):
			}
			retryTotal.WithLabelValues(stage, "transport").Inc()
		}

		if a.limiter != nil {
			if werr := a.limiter.Wait(ctx); werr != nil {
				return "", false, werr
			}
		}

		raw, err = a.client.Generate(ctx, prompt, params)
		if err == nil {
			if a.cache != nil && !a.cacheBypassed() {
				a.cache.Set(stage, temperature, prompt, raw)
			}
			return raw, false, nil
		}
		slog.Debug("llm generate failed, retrying", "stage", stage, "attempt", attempt+1, "error", err)
	}
	return "", false, err
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
