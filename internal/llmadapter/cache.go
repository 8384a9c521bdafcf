// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llmadapter

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ReplayCache stores raw LLM completions keyed by (stage, temperature,
// prompt), with LRU eviction and TTL expiration. It exists for the
// deterministic-rerun property: when a batch runs in replay mode, the
// adapter serves cached completions instead of calling the backend, so
// two runs against the same graph snapshot produce byte-identical output.
type ReplayCache struct {
	mu      sync.RWMutex
	entries map[string]*list.Element
	lru     *list.List
	ttl     time.Duration
	maxSize int

	hits   atomic.Int64
	misses atomic.Int64
}

type replayEntry struct {
	key       string
	raw       string
	expiresAt time.Time
}

// NewReplayCache builds a cache with the given TTL and entry cap. A maxSize
// of 0 disables the cache (Get always misses, Set is a no-op). Live
// (non-replay) adapters build no cache at all.
func NewReplayCache(ttl time.Duration, maxSize int) *ReplayCache {
	return &ReplayCache{
		entries: make(map[string]*list.Element),
		lru:     list.New(),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Get returns the cached completion for (stage, temperature, prompt), if any.
func (c *ReplayCache) Get(stage string, temperature float32, prompt string) (string, bool) {
	if c == nil || c.maxSize == 0 {
		return "", false
	}
	key := replayKey(stage, temperature, prompt)

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.entries[key]
	if !exists {
		c.misses.Add(1)
		return "", false
	}
	entry := elem.Value.(*replayEntry)
	if time.Now().After(entry.expiresAt) {
		c.removeElement(elem)
		c.misses.Add(1)
		return "", false
	}
	c.lru.MoveToFront(elem)
	c.hits.Add(1)
	return entry.raw, true
}

// Set stores a completion, evicting the least-recently-used entry if the
// cache is at capacity.
func (c *ReplayCache) Set(stage string, temperature float32, prompt, raw string) {
	if c == nil || c.maxSize == 0 {
		return
	}
	key := replayKey(stage, temperature, prompt)

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.entries[key]; exists {
		entry := elem.Value.(*replayEntry)
		entry.raw = raw
		entry.expiresAt = time.Now().Add(c.ttl)
		c.lru.MoveToFront(elem)
		return
	}
	for c.lru.Len() >= c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
	entry := &replayEntry{key: key, raw: raw, expiresAt: time.Now().Add(c.ttl)}
	c.entries[key] = c.lru.PushFront(entry)
}

// HitRate returns the ratio of cache hits to total lookups, 0 if empty.
func (c *ReplayCache) HitRate() float64 {
	if c == nil {
		return 0
	}
	hits, misses := c.hits.Load(), c.misses.Load()
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}

// Size returns the current entry count.
func (c *ReplayCache) Size() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lru.Len()
}

func (c *ReplayCache) removeElement(elem *list.Element) {
	entry := elem.Value.(*replayEntry)
	delete(c.entries, entry.key)
	c.lru.Remove(elem)
}

func replayKey(stage string, temperature float32, prompt string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%.3f|", stage, temperature)
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}
