package port

import (
	"context"
	"io"
)

// UploadInput describes one report object to store.
type UploadInput struct {
	Bucket      string
	Key         string
	Body        io.Reader
	ContentType string
	Size        int64
}

// UploadOutput is where an uploaded report ended up.
type UploadOutput struct {
	Location string
	ETag     string
}

// ObjectStorage is the bucket backing corpus mirrors and uploaded reports.
// Download returns domain.ErrDocumentUnavailable for a missing key.
type ObjectStorage interface {
	Upload(ctx context.Context, input UploadInput) (*UploadOutput, error)
	Download(ctx context.Context, bucket, key string) ([]byte, error)
	ListKeys(ctx context.Context, bucket, prefix string) ([]string, error)
	GetPresignedURL(ctx context.Context, bucket, key string, expirySeconds int64) (string, error)
}
