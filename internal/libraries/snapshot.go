package libraries

import (
	"context"
	"encoding/base64"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// SnapshotArchive keeps a copy of every HTML document that was sent to hosting.
type SnapshotArchive interface {
	Save(ctx context.Context, generationID string, version int, html []byte) (string, error)
}

// GCSSnapshotArchive writes snapshots to a Cloud Storage bucket.
type GCSSnapshotArchive struct {
	client *storage.Client
	bucket string
}

// NewGCSSnapshotArchive authenticates with base64-encoded service account JSON
// when given, and with application default credentials otherwise.
func NewGCSSnapshotArchive(ctx context.Context, bucket, encodedCredentials string) (*GCSSnapshotArchive, error) {
	if bucket == "" {
		return nil, fmt.Errorf("snapshot bucket not set")
	}

	var opts []option.ClientOption
	if encodedCredentials != "" {
		decoded, err := base64.StdEncoding.DecodeString(encodedCredentials)
		if err != nil {
			return nil, fmt.Errorf("failed to decode service account json: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(decoded))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return &GCSSnapshotArchive{client: client, bucket: bucket}, nil
}

// SnapshotObjectName is the object path of a generation's deployed document.
func SnapshotObjectName(generationID string, version int) string {
	return fmt.Sprintf("sites/%s/v%d/index.html", generationID, version)
}

// Save uploads the document and returns its gs:// URI.
func (a *GCSSnapshotArchive) Save(ctx context.Context, generationID string, version int, html []byte) (string, error) {
	name := SnapshotObjectName(generationID, version)
	w := a.client.Bucket(a.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "text/html; charset=utf-8"
	if _, err := w.Write(html); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to write snapshot %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize snapshot %s: %w", name, err)
	}
	return fmt.Sprintf("gs://%s/%s", a.bucket, name), nil
}

func (a *GCSSnapshotArchive) Close() error {
	return a.client.Close()
}
