// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llmadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
)

type fakeClient struct {
	responses []string
	errs      []error
	calls     atomic.Int64
}

func (f *fakeClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	i := int(f.calls.Add(1)) - 1
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return f.responses[len(f.responses)-1], nil
}

type scoreSchema struct {
	Score float64 `json:"score"`
}

func parseScore(raw string) (scoreSchema, int, error) {
	jsonBytes, err := ExtractJSON(raw)
	if err != nil {
		return scoreSchema{}, 0, err
	}
	var s scoreSchema
	if err := json.Unmarshal(jsonBytes, &s); err != nil {
		return scoreSchema{}, 0, err
	}
	clamped := 0
	if s.Score < 0 {
		s.Score, clamped = 0, 1
	} else if s.Score > 100 {
		s.Score, clamped = 100, 1
	}
	return s, clamped, nil
}

func TestCall_SucceedsFirstTry(t *testing.T) {
	client := &fakeClient{responses: []string{`{"score": 42}`}}
	a := NewAdapter(client, AdapterConfig{})

	got, err := Call(context.Background(), a, "innovation", 0.2, "prompt", parseScore)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Score != 42 {
		t.Fatalf("want score 42, got %v", got.Score)
	}
}

func TestCall_ClampsOutOfRangeScore(t *testing.T) {
	client := &fakeClient{responses: []string{`{"score": 142}`}}
	a := NewAdapter(client, AdapterConfig{})

	got, err := Call(context.Background(), a, "adoption", 0.2, "prompt", parseScore)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Score != 100 {
		t.Fatalf("want clamped score 100, got %v", got.Score)
	}
}

func TestCall_RetriesTransientTransportError(t *testing.T) {
	client := &fakeClient{
		errs:      []error{errors.New("rate limited"), nil},
		responses: []string{"", `{"score": 10}`},
	}
	a := NewAdapter(client, AdapterConfig{BaseBackoff: 0})

	got, err := Call(context.Background(), a, "risk", 0.2, "prompt", parseScore)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Score != 10 {
		t.Fatalf("want score 10, got %v", got.Score)
	}
	if client.calls.Load() != 2 {
		t.Fatalf("want 2 calls, got %d", client.calls.Load())
	}
}

func TestCall_TransportExhaustedReturnsLLMUnavailable(t *testing.T) {
	failAlways := errors.New("connection reset")
	client := &fakeClient{errs: []error{failAlways, failAlways, failAlways}}
	a := NewAdapter(client, AdapterConfig{MaxTransportAttempts: 3, BaseBackoff: 0})

	_, err := Call(context.Background(), a, "narrative", 0.3, "prompt", parseScore)
	var unavailable *LLMUnavailable
	if !errors.As(err, &unavailable) {
		t.Fatalf("want LLMUnavailable, got %v", err)
	}
}

func TestCall_SchemaRetryThenSuccess(t *testing.T) {
	client := &fakeClient{responses: []string{"not json at all", `{"score": 50}`}}
	a := NewAdapter(client, AdapterConfig{MaxSchemaAttempts: 2, BaseBackoff: 0})

	got, err := Call(context.Background(), a, "innovation", 0.2, "prompt", parseScore)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Score != 50 {
		t.Fatalf("want score 50, got %v", got.Score)
	}
}

func TestCall_SchemaExhaustedReturnsSchemaViolation(t *testing.T) {
	client := &fakeClient{responses: []string{"garbage", "garbage", "garbage"}}
	a := NewAdapter(client, AdapterConfig{MaxSchemaAttempts: 2, BaseBackoff: 0})

	_, err := Call(context.Background(), a, "innovation", 0.2, "prompt", parseScore)
	var violation *LLMSchemaViolation
	if !errors.As(err, &violation) {
		t.Fatalf("want LLMSchemaViolation, got %v", err)
	}
}

func TestCall_ReplayModeServesCachedResponse(t *testing.T) {
	client := &fakeClient{responses: []string{`{"score": 77}`}}
	a := NewAdapter(client, AdapterConfig{ReplayMode: true})

	for i := 0; i < 2; i++ {
		got, err := Call(context.Background(), a, "innovation", 0.2, "same prompt", parseScore)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Score != 77 {
			t.Fatalf("want score 77, got %v", got.Score)
		}
	}
	if client.calls.Load() != 1 {
		t.Fatalf("want exactly 1 backend call across replayed runs, got %d", client.calls.Load())
	}
}

type forceBypass struct{}

func (forceBypass) ShouldBypassCache() bool { return true }

func TestCall_CacheDegradationBypassesReplayCache(t *testing.T) {
	client := &fakeClient{responses: []string{`{"score": 77}`, `{"score": 91}`}}
	a := NewAdapter(client, AdapterConfig{ReplayMode: true}).WithCacheDegradation(forceBypass{})

	first, err := Call(context.Background(), a, "innovation", 0.2, "same prompt", parseScore)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Call(context.Background(), a, "innovation", 0.2, "same prompt", parseScore)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Score == second.Score {
		t.Fatalf("expected distinct responses with the cache bypassed, got %v twice", first.Score)
	}
	if client.calls.Load() != 2 {
		t.Fatalf("want exactly 2 backend calls with the cache bypassed, got %d", client.calls.Load())
	}
}

func ExampleCall() {
	client := &fakeClient{responses: []string{`{"score": 88}`}}
	a := NewAdapter(client, AdapterConfig{})
	got, _ := Call(context.Background(), a, "innovation", 0.2, "prompt", parseScore)
	fmt.Println(got.Score)
	// Output: 88
}
