// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package secrets wraps the three external credentials the engine holds —
// the graph driver's API key, the LLM service's API key, and the optional
// external-search API key — in mlocked memory so they're never paged to
// swap and are wiped as soon as the process no longer needs them.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/awnumar/memguard"
)

// MinMlockLimitKB is the minimum mlock limit a credential enclave requires.
// Credentials are small (API keys, tokens), so this is a modest floor.
const MinMlockLimitKB = 64

var (
	memguardInitOnce sync.Once
	mlockSufficient  bool
)

func initMemguard() {
	memguardInitOnce.Do(func() {
		memguard.CatchInterrupt()
		// memguard reports its own allocation failures via panic/recover
		// internally; a probe buffer tells us up front whether this
		// environment can mlock at all before any real secret buffer is
		// allocated.
		buf := memguard.NewBuffer(MinMlockLimitKB * 1024)
		mlockSufficient = buf != nil
		if buf != nil {
			buf.Destroy()
		}
	})
}

// Credential is a single secret held in mlocked memory. The zero value is
// not usable; construct with FromEnv or New.
type Credential struct {
	name    string
	enclave *memguard.Enclave
}

// New wraps raw secret bytes in a memguard enclave. The caller's copy of
// plaintext is not wiped — callers should pass an owned, short-lived copy
// (e.g. the result of os.Getenv) and let it fall out of scope.
func New(name string, plaintext []byte) *Credential {
	initMemguard()
	buf := memguard.NewBufferFromBytes(plaintext)
	return &Credential{name: name, enclave: buf.Seal()}
}

// FromEnv reads an environment variable into a sealed Credential. Returns
// an error if the variable is unset or empty — callers decide whether that
// is fatal (graph/LLM credentials) or tolerable (optional external search).
func FromEnv(name, envVar string) (*Credential, error) {
	v := os.Getenv(envVar)
	if v == "" {
		return nil, fmt.Errorf("secrets: %s is not set", envVar)
	}
	return New(name, []byte(v)), nil
}

// Expose decrypts the credential for the duration of fn, wiping the
// plaintext buffer before returning. This is the only sanctioned way to
// read a Credential's value — never store the string fn receives.
func (c *Credential) Expose(fn func(plaintext string) error) error {
	if c == nil || c.enclave == nil {
		return fmt.Errorf("secrets: credential %s is not set", c.safeName())
	}
	buf, err := c.enclave.Open()
	if err != nil {
		return fmt.Errorf("secrets: opening credential %s: %w", c.name, err)
	}
	defer buf.Destroy()
	return fn(buf.String())
}

func (c *Credential) safeName() string {
	if c == nil {
		return "<nil>"
	}
	return c.name
}

// Store holds the engine's three external credentials: graph driver,
// LLM service, and optional external search.
type Store struct {
	GraphAPIKey    *Credential
	LLMAPIKey      *Credential
	ExternalSearch *Credential // nil when enable_external_search is false
}

// LoadFromEnv builds a Store from the conventional environment variables.
// externalSearchRequired mirrors config.Config.EnableExternalSearch: when
// false, a missing SEARCH_API_KEY is not an error.
func LoadFromEnv(externalSearchRequired bool) (*Store, error) {
	graphKey, err := FromEnv("graph_api_key", "WEAVIATE_API_KEY")
	if err != nil {
		return nil, err
	}
	llmKey, err := FromEnv("llm_api_key", "LLM_API_KEY")
	if err != nil {
		return nil, err
	}

	searchKey, err := FromEnv("external_search_api_key", "SEARCH_API_KEY")
	if err != nil {
		if externalSearchRequired {
			return nil, fmt.Errorf("secrets: external search enabled but: %w", err)
		}
		slog.Debug("external search api key not set, external search disabled", "error", err)
		searchKey = nil
	}

	return &Store{GraphAPIKey: graphKey, LLMAPIKey: llmKey, ExternalSearch: searchKey}, nil
}

// Purge wipes every memguard-allocated buffer. Call during graceful
// shutdown; automatically invoked on SIGINT/SIGTERM since initMemguard
// registers memguard.CatchInterrupt().
func Purge() {
	memguard.Purge()
	slog.Info("purged all secure memory")
}

// MlockAvailable reports whether this system can back a Credential with
// real mlocked memory, for callers that want to warn operators up front.
func MlockAvailable() bool {
	initMemguard()
	return mlockSufficient
}
