// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package weaviate is the property graph driver: a
// ResilientClient wrapping *weaviate.Client with a circuit breaker, bounded
// retry with jittered exponential backoff, and a background health check
// that flips the graph into a degraded state rather than letting every
// accessor call fail independently.
package weaviate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
)

// ConnectionState is the ResilientClient's externally observable health.
type ConnectionState int32

const (
	StateConnected ConnectionState = iota
	StateDegraded
	StateCircuitOpen
	StateHalfOpen
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateDegraded:
		return "degraded"
	case StateCircuitOpen:
		return "circuit_open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ClientConfig controls connection, retry, and circuit-breaker behavior.
type ClientConfig struct {
	URL    string
	APIKey string

	RetryAttempts   int
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration
	RetryJitter     float64

	CircuitThreshold int
	CircuitWindow    time.Duration
	CircuitCooldown  time.Duration

	HealthCheckInterval   time.Duration
	DegradedCheckInterval time.Duration
	HealthCheckTimeout    time.Duration
	AllowStartDegraded    bool
}

// DefaultClientConfig mirrors the graph layer's standard retry policy
// (three attempts, 2^n·100ms backoff) plus sane circuit-breaker defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		RetryAttempts:         3,
		RetryBackoff:          100 * time.Millisecond,
		MaxRetryBackoff:       5 * time.Second,
		RetryJitter:           0.25,
		CircuitThreshold:      5,
		CircuitWindow:         30 * time.Second,
		CircuitCooldown:       30 * time.Second,
		HealthCheckInterval:   10 * time.Second,
		DegradedCheckInterval: 5 * time.Second,
		HealthCheckTimeout:    5 * time.Second,
		AllowStartDegraded:    false,
	}
}

// Validate reports the first invalid field, by name, so callers get an
// actionable error rather than a silently broken client.
func (c ClientConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("weaviate: url is required")
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("weaviate: retry_attempts must not be negative")
	}
	if c.RetryJitter < 0 || c.RetryJitter > 1 {
		return fmt.Errorf("weaviate: retry_jitter must be between 0 and 1")
	}
	if c.CircuitThreshold <= 0 {
		return fmt.Errorf("weaviate: circuit_threshold must be positive")
	}
	return nil
}

// clientDegradationHandler is implemented by consumers that want to react
// to this client's own connected/degraded transitions (distinct from the per-collaborator
// handlers in degradation.go, which react to other clients).
type clientDegradationHandler interface {
	OnDegraded(reason string)
	OnRecovered()
}

// ResilientClient wraps the Weaviate client with circuit-breaking and
// health-checked degradation.
type ResilientClient struct {
	config ClientConfig
	client *weaviate.Client
	logger *slog.Logger

	state           atomic.Int32
	circuitOpenTime atomic.Int64

	mu       sync.Mutex
	failures []time.Time

	handlersMu sync.RWMutex
	handlers   []clientDegradationHandler

	healthCtx    context.Context
	healthCancel context.CancelFunc
	closeOnce    sync.Once
}

// NewResilientClient connects to Weaviate and starts a background health
// checker. If the initial connection fails and cfg.AllowStartDegraded is
// true, the client is returned already in StateDegraded instead of erroring.
func NewResilientClient(cfg ClientConfig) (*ResilientClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rc := &ResilientClient{
		config:   cfg,
		logger:   slog.Default(),
		failures: make([]time.Time, 0, cfg.CircuitThreshold),
	}
	rc.state.Store(int32(StateConnected))

	wc, err := weaviate.NewClient(weaviate.Config{
		Host:   cfg.URL,
		Scheme: "http",
		Headers: func() map[string]string {
			if cfg.APIKey == "" {
				return nil
			}
			return map[string]string{"Authorization": "Bearer " + cfg.APIKey}
		}(),
	})
	if err != nil {
		return nil, fmt.Errorf("weaviate: building client: %w", err)
	}
	rc.client = wc

	healthCtx, cancel := context.WithTimeout(context.Background(), cfg.HealthCheckTimeout)
	defer cancel()
	ready, err := wc.Misc().ReadyChecker().Do(healthCtx)
	if err != nil || !ready {
		if !cfg.AllowStartDegraded {
			return nil, fmt.Errorf("weaviate: initial health check failed: %w", err)
		}
		rc.state.Store(int32(StateDegraded))
	}

	rc.healthCtx, rc.healthCancel = context.WithCancel(context.Background())
	go rc.healthLoop()

	return rc, nil
}

// Client exposes the underlying SDK client for direct GraphQL/REST calls.
func (c *ResilientClient) Client() *weaviate.Client { return c.client }

// GetState returns the client's current connection state.
func (c *ResilientClient) GetState() ConnectionState {
	return ConnectionState(c.state.Load())
}

func (c *ResilientClient) IsAvailable() bool { return c.GetState() == StateConnected }
func (c *ResilientClient) IsDegraded() bool  { return c.GetState() != StateConnected }

// RegisterHandler attaches a handler notified on every state transition.
func (c *ResilientClient) RegisterHandler(h clientDegradationHandler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.handlers = append(c.handlers, h)
}

func (c *ResilientClient) transitionState(next ConnectionState) {
	prev := ConnectionState(c.state.Swap(int32(next)))
	if prev == next {
		c.state.Store(int32(prev))
		return
	}

	c.handlersMu.RLock()
	handlers := append([]clientDegradationHandler(nil), c.handlers...)
	c.handlersMu.RUnlock()

	if next == StateConnected {
		for _, h := range handlers {
			h.OnRecovered()
		}
	} else if prev == StateConnected {
		for _, h := range handlers {
			h.OnDegraded(fmt.Sprintf("transitioned to %s", next))
		}
	}
}

func (c *ResilientClient) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.failures = append(c.failures, now)

	cutoff := now.Add(-c.config.CircuitWindow)
	recent := c.failures[:0]
	for _, f := range c.failures {
		if f.After(cutoff) {
			recent = append(recent, f)
		}
	}
	c.failures = recent

	if len(c.failures) >= c.config.CircuitThreshold {
		c.circuitOpenTime.Store(time.Now().Unix())
		c.transitionState(StateCircuitOpen)
	} else {
		c.transitionState(StateDegraded)
	}
}

func (c *ResilientClient) recordSuccess() {
	c.mu.Lock()
	c.failures = c.failures[:0]
	c.mu.Unlock()
	c.transitionState(StateConnected)
}

func (c *ResilientClient) shouldTryHalfOpen() bool {
	if c.GetState() != StateCircuitOpen {
		return false
	}
	openedAt := time.Unix(c.circuitOpenTime.Load(), 0)
	return time.Since(openedAt) >= c.config.CircuitCooldown
}

func (c *ResilientClient) calculateBackoff(attempt int) time.Duration {
	base := float64(c.config.RetryBackoff) * math.Pow(2, float64(attempt))
	if max := float64(c.config.MaxRetryBackoff); base > max {
		base = max
	}
	if c.config.RetryJitter > 0 {
		jitter := base * c.config.RetryJitter
		base += (rand.Float64()*2 - 1) * jitter
	}
	return time.Duration(base)
}

// Execute runs op with the circuit breaker and retry policy applied.
func (c *ResilientClient) Execute(ctx context.Context, op func() error) error {
	if c.GetState() == StateCircuitOpen {
		if !c.shouldTryHalfOpen() {
			return ErrCircuitOpen
		}
		c.transitionState(StateHalfOpen)
	}

	var lastErr error
	attempts := c.config.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.calculateBackoff(attempt)):
			}
		}

		err := op()
		if err == nil {
			c.recordSuccess()
			return nil
		}
		lastErr = err
		if !isRetryable(err) {
			break
		}
		c.recordFailure()
	}
	return WrapWeaviateError(lastErr)
}

func (c *ResilientClient) healthLoop() {
	interval := c.config.HealthCheckInterval
	for {
		if c.GetState() != StateConnected {
			interval = c.config.DegradedCheckInterval
		} else {
			interval = c.config.HealthCheckInterval
		}

		select {
		case <-c.healthCtx.Done():
			return
		case <-time.After(interval):
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.config.HealthCheckTimeout)
		ready, err := c.client.Misc().ReadyChecker().Do(ctx)
		cancel()
		if err == nil && ready {
			c.recordSuccess()
		} else {
			c.recordFailure()
		}
	}
}

// Close stops the background health checker. Safe to call more than once.
func (c *ResilientClient) Close() error {
	c.closeOnce.Do(func() {
		if c.healthCancel != nil {
			c.healthCancel()
		}
	})
	return nil
}

// isRetryable reports whether err is a transient condition worth retrying:
// network errors and deadline-exceeded, but never cancellation or arbitrary
// application errors.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return true
	}
	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return true
	}
	return false
}
