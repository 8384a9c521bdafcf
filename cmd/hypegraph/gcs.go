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
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// gcsPublisher uploads chart JSON to a GCS bucket. It is the one optional
// output sink the CLI owns directly rather than handing to the pipeline,
// so the pure scoring core never depends on a cloud SDK.
type gcsPublisher struct {
	storageClient *storage.Client
	bucket        string
}

func newGCSPublisher(ctx context.Context, projectID, bucket, saKeyPath string) (*gcsPublisher, error) {
	if _, err := os.Stat(saKeyPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("gcs: service account key not found at %s", saKeyPath)
	}
	client, err := storage.NewClient(ctx, option.WithCredentialsFile(saKeyPath))
	if err != nil {
		return nil, fmt.Errorf("gcs: creating storage client for project %s: %w", projectID, err)
	}
	return &gcsPublisher{storageClient: client, bucket: bucket}, nil
}

// Publish uploads data as object gcsPath, overwriting any existing object.
func (p *gcsPublisher) Publish(ctx context.Context, gcsPath string, data []byte) error {
	obj := p.storageClient.Bucket(p.bucket).Object(gcsPath)
	writer := obj.NewWriter(ctx)
	writer.ContentType = "application/json"
	writer.CacheControl = "no-cache, no-store, must-revalidate"

	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("gcs: writing object %s: %w", gcsPath, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("gcs: closing object %s: %w", gcsPath, err)
	}
	fmt.Printf("published gs://%s/%s\n", p.bucket, gcsPath)
	return nil
}
