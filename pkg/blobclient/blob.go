package blobclient

import (
	"context"
	"io"
)

// BlobClient stores finished CSV exports.
type BlobClient interface {
	// Upload uploads data to blob storage and returns the URL.
	Upload(ctx context.Context, container, blobName string, data io.Reader, opts UploadOptions) (url string, err error)

	// Get retrieves a blob. A missing blob yields an errors.ErrorCodeNotFound AppError.
	Get(ctx context.Context, container, blobName string) (io.ReadCloser, error)
}

// UploadOptions contains optional parameters for upload operations.
type UploadOptions struct {
	ContentType string
	Metadata    map[string]string
}
