package blobclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/yourorg/csvkit/pkg/errors"
)

// StoredBlob is a blob held by MockBlobClient.
type StoredBlob struct {
	Data        []byte
	ContentType string
	Metadata    map[string]string
}

// MockBlobClient is an in-memory implementation of BlobClient for testing.
type MockBlobClient struct {
	blobs map[string]map[string]StoredBlob // container -> blobName -> blob
	mu    sync.RWMutex

	// FailUploads makes the next N uploads fail.
	FailUploads int
	uploads     int
}

// NewMockBlobClient creates a new mock blob client.
func NewMockBlobClient() *MockBlobClient {
	return &MockBlobClient{
		blobs: make(map[string]map[string]StoredBlob),
	}
}

// Upload stores data in memory.
func (m *MockBlobClient) Upload(ctx context.Context, container, blobName string, data io.Reader, opts UploadOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.uploads++
	if m.FailUploads > 0 {
		m.FailUploads--
		return "", fmt.Errorf("mock upload failure")
	}

	blobData, err := io.ReadAll(data)
	if err != nil {
		return "", fmt.Errorf("failed to read data: %w", err)
	}

	if m.blobs[container] == nil {
		m.blobs[container] = make(map[string]StoredBlob)
	}
	m.blobs[container][blobName] = StoredBlob{
		Data:        blobData,
		ContentType: opts.ContentType,
		Metadata:    opts.Metadata,
	}

	return fmt.Sprintf("mock://%s/%s", container, blobName), nil
}

// Get retrieves a blob from the mock storage.
func (m *MockBlobClient) Get(ctx context.Context, container, blobName string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, exists := m.blobs[container][blobName]
	if !exists {
		return nil, errors.NewNotFoundError(fmt.Sprintf("blob not found: %s/%s", container, blobName))
	}
	return io.NopCloser(bytes.NewReader(stored.Data)), nil
}

// Blob returns a stored blob for assertions.
func (m *MockBlobClient) Blob(container, blobName string) (StoredBlob, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, exists := m.blobs[container][blobName]
	return stored, exists
}

// UploadAttempts returns how many times Upload was called.
func (m *MockBlobClient) UploadAttempts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.uploads
}
