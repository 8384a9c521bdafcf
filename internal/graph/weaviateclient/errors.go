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
	"errors"
	"fmt"
)

var (
	// ErrConnectionTimeout wraps a deadline-exceeded condition reaching Weaviate.
	ErrConnectionTimeout = errors.New("weaviate: connection timeout")
	// ErrCircuitOpen is returned immediately when the breaker is open and the
	// cooldown has not yet elapsed.
	ErrCircuitOpen = errors.New("weaviate: circuit breaker open")
)

// WrapWeaviateError normalizes a raw client error into the package's error
// taxonomy. nil passes through unchanged.
func WrapWeaviateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrConnectionTimeout, err)
	}
	return fmt.Errorf("weaviate error: %w", err)
}
