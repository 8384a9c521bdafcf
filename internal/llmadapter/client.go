// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llmadapter provides the structured-output LLM boundary.
//
// It is the only package in the module coupled to an LLM SDK. Every other
// package receives concrete typed records — never raw completions, never a
// provider-specific request type. Two things live here: a thin LLMClient
// interface with Anthropic/OpenAI implementations, and Adapter, which wraps
// a client with retry, backoff, per-stage temperature, and schema
// enforcement so callers get "an instance of schema", not text that is
// probably JSON.
package llmadapter

import "context"

// GenerationParams holds parameters for a single completion request.
// A nil field means "use the backend's default".
type GenerationParams struct {
	Temperature *float32
	MaxTokens   *int
	TopP        *float32
	Stop        []string
}

// LLMClient is the minimal backend contract the adapter depends on.
// Implementations must be safe for concurrent use.
type LLMClient interface {
	// Generate produces a single completion from a prompt. It returns
	// whatever text the model produced, including any markdown fences —
	// extraction and validation are the adapter's job, not the client's.
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}
