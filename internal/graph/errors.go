// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// GraphUnavailable is the transient, retryable error surfaced to a scorer
// stage once the accessor's retries are exhausted.
// The scorer degrades its layer to score=0, confidence=low, reasoning
// "upstream_error"; nothing is added to the record's validation_errors.
type GraphUnavailable struct {
	Op  string
	Err error
}

func (e *GraphUnavailable) Error() string {
	return fmt.Sprintf("graph unavailable during %s: %v", e.Op, e.Err)
}
func (e *GraphUnavailable) Unwrap() error { return e.Err }

// GraphSchemaMismatch reports that the graph does not have the node/edge
// shape the core relies on, or that a node id or doc_type failed validation
// before a query was built. RunBatch aborts on it only when it comes from
// the sampler's listing calls; a scorer that receives it degrades its layer
// like any other accessor error (score=0, confidence=low) and the batch
// goes on.
type GraphSchemaMismatch struct {
	Detail string
}

func (e *GraphSchemaMismatch) Error() string {
	return fmt.Sprintf("graph schema mismatch: %s", e.Detail)
}

// RetryPolicy is the graph layer's fixed backoff schedule: three attempts,
// 2^n·100ms.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy is the graph layer's three-attempt, 2^n·100ms policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond}
}

// Retry runs op up to p.MaxAttempts times, backing off 2^n·BaseDelay between
// attempts. A GraphSchemaMismatch is never retried — it is returned
// immediately as fatal. Exhausting retries on any other error wraps the
// last error in GraphUnavailable.
func (p RetryPolicy) Retry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := p.BaseDelay << uint(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := fn()
		if err == nil {
			return nil
		}

		var mismatch *GraphSchemaMismatch
		if errors.As(err, &mismatch) {
			return err
		}
		lastErr = err
	}
	return &GraphUnavailable{Op: op, Err: lastErr}
}
