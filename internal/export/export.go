// Package export serializes the transaction ledger to a delimited text
// download and, when asked, ships it to a Google Cloud Storage bucket.
package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/oyilmaz/warehouse-ledger/internal/ledger"
)

// Write renders entries as CSV at dest. A "gs://bucket/object" destination
// uploads to GCS; anything else is treated as a local file path.
func Write(ctx context.Context, dest string, entries []ledger.Entry) error {
	if strings.HasPrefix(dest, "gs://") {
		bucket, object, err := parseGCSURI(dest)
		if err != nil {
			return err
		}
		return Upload(ctx, bucket, object, entries)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	if err := ledger.WriteCSV(f, entries); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return f.Close()
}

// Upload writes the CSV rendering of entries to the given bucket and
// object. Application Default Credentials are assumed.
func Upload(ctx context.Context, bucketName, objectName string, entries []ledger.Entry) error {
	var buf bytes.Buffer
	if err := ledger.WriteCSV(&buf, entries); err != nil {
		return fmt.Errorf("render export: %w", err)
	}

	client, err := gcs.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	w.ContentType = "text/csv"
	if _, err := w.Write(buf.Bytes()); err != nil {
		_ = w.Close()
		return fmt.Errorf("write export to gs://%s/%s: %w", bucketName, objectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize export upload: %w", err)
	}
	return nil
}

// DefaultObjectName builds a dated, collision-free object name for an
// export, e.g. "exports/2026/08/31/3f2a...-ledger.csv".
func DefaultObjectName(now time.Time) string {
	return fmt.Sprintf("exports/%s/%s-ledger.csv", now.Format("2006/01/02"), uuid.NewString())
}

func parseGCSURI(uri string) (bucket, object string, err error) {
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	return parts[0], parts[1], nil
}
