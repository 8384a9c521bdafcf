// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	weaviate "github.com/hypegraph/engine/internal/graph/weaviateclient"
)

func TestRecentMentionCount_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Query != "Quantum Widgets" || req.WindowDays != 30 {
			t.Errorf("unexpected request: %+v", req)
		}
		json.NewEncoder(w).Encode(searchResponse{ResultCount: 12})
	}))
	defer srv.Close()

	c := New(srv.URL, "secret", weaviate.NewExternalSearchDegradation(nil))
	count, err := c.RecentMentionCount(context.Background(), "Quantum Widgets", 30*24*time.Hour)
	if err != nil {
		t.Fatalf("RecentMentionCount: %v", err)
	}
	if count != 12 {
		t.Fatalf("count = %d, want 12", count)
	}
}

func TestRecentMentionCount_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	degrade := weaviate.NewExternalSearchDegradation(nil)
	c := New(srv.URL, "", degrade)
	_, err := c.RecentMentionCount(context.Background(), "Quantum Widgets", 30*24*time.Hour)
	if err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
	if degrade.GetMode() != weaviate.ModeDegraded {
		t.Errorf("mode = %v, want degraded after a failed call", degrade.GetMode())
	}
}

func TestRecentMentionCount_SkipsWhenDegraded(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		json.NewEncoder(w).Encode(searchResponse{ResultCount: 1})
	}))
	defer srv.Close()

	degrade := weaviate.NewExternalSearchDegradation(nil)
	degrade.OnDegraded("forced for test")
	c := New(srv.URL, "", degrade)
	if _, err := c.RecentMentionCount(context.Background(), "Quantum Widgets", 30*24*time.Hour); err == nil {
		t.Fatal("expected an error while degraded")
	}
	if called {
		t.Fatal("expected the HTTP backend not to be called while degraded")
	}
}
