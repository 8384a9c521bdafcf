// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// emit writes data as indented JSON to outputPath, or stdout when unset,
// then optionally publishes the same bytes to GCS when --gcs-bucket is set.
func emit(ctx context.Context, data any, objectName string) error {
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	encoded = append(encoded, '\n')

	if outputPath == "" {
		if _, err := os.Stdout.Write(encoded); err != nil {
			return fmt.Errorf("writing to stdout: %w", err)
		}
	} else if err := os.WriteFile(outputPath, encoded, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outputPath, err)
	}

	if gcsBucket == "" {
		return nil
	}
	publisher, err := newGCSPublisher(ctx, gcsProject, gcsBucket, gcsKeyPath)
	if err != nil {
		return err
	}
	return publisher.Publish(ctx, objectName, encoded)
}
