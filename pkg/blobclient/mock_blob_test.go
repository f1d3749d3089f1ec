package blobclient

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/csvkit/pkg/errors"
)

func TestMockBlobClient_UploadAndGet(t *testing.T) {
	client := NewMockBlobClient()
	ctx := context.Background()

	url, err := client.Upload(ctx, "exports", "a.csv", strings.NewReader("id,name\n"), UploadOptions{
		ContentType: "text/csv",
		Metadata:    map[string]string{"rows": "0"},
	})
	require.NoError(t, err)
	assert.Equal(t, "mock://exports/a.csv", url)

	reader, err := client.Get(ctx, "exports", "a.csv")
	require.NoError(t, err)
	defer reader.Close()

	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "id,name\n", string(content))

	stored, ok := client.Blob("exports", "a.csv")
	require.True(t, ok)
	assert.Equal(t, "text/csv", stored.ContentType)
	assert.Equal(t, "0", stored.Metadata["rows"])
}

func TestMockBlobClient_GetMissing(t *testing.T) {
	client := NewMockBlobClient()

	_, err := client.Get(context.Background(), "exports", "missing.csv")
	assert.True(t, errors.HasCode(err, errors.ErrorCodeNotFound))
}

func TestMockBlobClient_FailUploads(t *testing.T) {
	client := NewMockBlobClient()
	client.FailUploads = 1
	ctx := context.Background()

	_, err := client.Upload(ctx, "exports", "a.csv", strings.NewReader("x"), UploadOptions{})
	assert.Error(t, err)

	_, err = client.Upload(ctx, "exports", "a.csv", strings.NewReader("x"), UploadOptions{})
	assert.NoError(t, err)
	assert.Equal(t, 2, client.UploadAttempts())
}
