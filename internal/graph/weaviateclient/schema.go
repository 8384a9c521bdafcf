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
	"fmt"

	"github.com/weaviate/weaviate/entities/models"
)

// schemaClasses is the property graph's full class set. EnsureSchema
// creates whichever of these are missing; it never alters or drops an
// existing class, so a hand-tuned production schema is left alone.
func schemaClasses() []*models.Class {
	return []*models.Class{
		{
			Class:       ClassTechnology,
			Description: "A technology being positioned on the hype cycle",
			Properties: []*models.Property{
				{Name: "name", DataType: []string{"text"}},
				{Name: "domain", DataType: []string{"text"}},
				{Name: "pagerank", DataType: []string{"number"}},
				{Name: "insiderTransactionCount", DataType: []string{"int"}},
				{Name: "institutionalHoldingsPct", DataType: []string{"number"}},
			},
		},
		{
			Class:       ClassCompany,
			Description: "A company associated with one or more technologies",
			Properties: []*models.Property{
				{Name: "name", DataType: []string{"text"}},
			},
		},
		{
			Class:       ClassDocument,
			Description: "A patent, paper, contract, or news article citing a technology",
			Properties: []*models.Property{
				{Name: "docType", DataType: []string{"text"}},
				{Name: "publishedAt", DataType: []string{"date"}},
				{Name: "title", DataType: []string{"text"}},
			},
		},
		{
			Class:       ClassCommunity,
			Description: "A clustering of technologies sharing an adoption trajectory",
			Properties: []*models.Property{
				{Name: "name", DataType: []string{"text"}},
				{Name: "memberCount", DataType: []string{"int"}},
				{Name: "documentCount", DataType: []string{"int"}},
			},
		},
	}
}

// EnsureSchema creates any of the graph layer's classes that don't already
// exist in the connected Weaviate instance. Intended to run once at
// startup, before the sampler or any scorer issues its first query.
func EnsureSchema(ctx context.Context, rc *ResilientClient) error {
	existing, err := rc.Client().Schema().Getter().Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviateclient: reading schema: %w", err)
	}
	present := make(map[string]bool, len(existing.Classes))
	for _, c := range existing.Classes {
		present[c.Class] = true
	}

	for _, class := range schemaClasses() {
		if present[class.Class] {
			continue
		}
		if err := rc.Client().Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
			return fmt.Errorf("weaviateclient: creating class %s: %w", class.Class, err)
		}
	}
	return nil
}
