// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical
// operations.
//
// This package contains validators for identifiers that flow into GraphQL
// filter values and CLI arguments. Using these validators rejects malformed
// input before it reaches a query builder, the same way a SQL or Flux
// injection guard would at a string-concatenation boundary — even though
// this module builds queries through weaviate-go-client's structured
// filters.WhereBuilder rather than string interpolation, a bad doc_type or
// tech_id is a programming error worth catching at the edge rather than
// silently matching zero documents.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// DocTypes is the exact, closed set of doc_type values the property graph
// recognizes.
var DocTypes = []string{
	"patent",
	"technical_paper",
	"government_contract",
	"regulation",
	"sec_filing",
	"news",
	"github",
}

var docTypeSet = func() map[string]bool {
	m := make(map[string]bool, len(DocTypes))
	for _, d := range DocTypes {
		m[d] = true
	}
	return m
}()

// ValidateDocType rejects any doc_type outside the seven recognized values.
// An empty string is accepted as "no filter" (queryDocs treats it that way).
func ValidateDocType(docType string) error {
	if docType == "" {
		return nil
	}
	if !docTypeSet[docType] {
		return fmt.Errorf("invalid doc_type %q: must be one of %v", docType, DocTypes)
	}
	return nil
}

// techIDPattern matches the technology/community/company node IDs the graph
// accessor issues: Weaviate UUIDs, or the deterministic slugs the sampler
// and fixtures use (lowercase alphanumerics, hyphens, underscores).
var techIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,128}$`)

// ValidateNodeID validates a graph node identifier (technology, company, or
// community ID) before it's embedded in a filter value.
func ValidateNodeID(id string) error {
	if id == "" {
		return fmt.Errorf("node id cannot be empty")
	}
	if !techIDPattern.MatchString(id) {
		return fmt.Errorf("invalid node id %q: must be 1-128 alphanumeric/hyphen/underscore characters", id)
	}
	return nil
}

// ValidateNodeIDs validates multiple node identifiers, collecting every
// invalid one into a single error.
func ValidateNodeIDs(ids []string) error {
	var invalid []string
	for _, id := range ids {
		if err := ValidateNodeID(id); err != nil {
			invalid = append(invalid, id)
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("invalid node ids: %v", invalid)
	}
	return nil
}

// SanitizeNodeID trims and validates a node identifier, returning the
// trimmed form if valid.
func SanitizeNodeID(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if err := ValidateNodeID(trimmed); err != nil {
		return "", err
	}
	return trimmed, nil
}
