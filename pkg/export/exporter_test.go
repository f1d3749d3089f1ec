package export

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yourorg/csvkit/pkg/blobclient"
	"github.com/yourorg/csvkit/pkg/csvwriter"
	"github.com/yourorg/csvkit/pkg/errors"
	"github.com/yourorg/csvkit/pkg/logging"
	"github.com/yourorg/csvkit/pkg/servicebusclient"
	"github.com/yourorg/csvkit/pkg/utils"
)

const bom = "\xEF\xBB\xBF"

func testConfig() Config {
	return Config{
		Container: "csv-exports",
		Queue:     "csv-export-events",
		Defaults:  csvwriter.DefaultOptions(),
		Retry: utils.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
			MaxDelay:     time.Millisecond,
			Multiplier:   1,
		},
	}
}

func newTestExporter(t *testing.T) (*Exporter, *blobclient.MockBlobClient, *servicebusclient.MockServiceBusClient) {
	t.Helper()
	blob := blobclient.NewMockBlobClient()
	bus := servicebusclient.NewMockServiceBusClient()
	e, err := NewExporter(blob, bus, testConfig(), nil)
	require.NoError(t, err)
	return e, blob, bus
}

func decodeRequest(t *testing.T, body string) Request {
	t.Helper()
	var req Request
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	return req
}

func TestRender(t *testing.T) {
	e, _, _ := newTestExporter(t)

	req := decodeRequest(t, `{
		"header": ["id", "name"],
		"rows": [
			[1, "Alice"],
			{"name": "Bob", "id": 2}
		],
		"columns": {"id": [3, 4], "name": ["Carol", "Dave, Jr."]}
	}`)

	content, rows, err := e.Render(req)
	require.NoError(t, err)
	assert.Equal(t, 4, rows)
	assert.Equal(t, bom+"id,name\n1,Alice\n2,Bob\n3,Carol\n4,\"Dave, Jr.\"\n", content)
}

func TestRender_HeaderRecords(t *testing.T) {
	e, _, _ := newTestExporter(t)

	req := decodeRequest(t, `{
		"header_records": [{"label": "Name"}, {"label": "Age"}],
		"header_field": "label",
		"rows": [{"Age": 30, "Name": "Alice"}]
	}`)

	content, _, err := e.Render(req)
	require.NoError(t, err)
	assert.Equal(t, bom+"Name,Age\nAlice,30\n", content)
}

func TestRender_Options(t *testing.T) {
	e, _, _ := newTestExporter(t)

	req := decodeRequest(t, `{
		"header": ["a", "b"],
		"rows": [["x;y", "plain"]],
		"options": {"delimiter": ";", "enclosure": "'", "has_header": false, "use_crlf": true}
	}`)

	content, _, err := e.Render(req)
	require.NoError(t, err)
	assert.Equal(t, "'x;y';plain\r\n", content)
}

func TestRender_Errors(t *testing.T) {
	e, _, _ := newTestExporter(t)

	tests := []struct {
		name string
		body string
		code errors.ErrorCode
	}{
		{"Column length mismatch", `{"columns": {"a": [1, 2], "b": [1]}}`, errors.ErrorCodeColumnLengthMismatch},
		{"Column is not a sequence", `{"columns": {"a": 1}}`, errors.ErrorCodeInvalidInput},
		{"Row is a scalar", `{"rows": ["loose"]}`, errors.ErrorCodeInvalidInput},
		{"Multi-character delimiter", `{"options": {"delimiter": "||"}}`, errors.ErrorCodeValidation},
		{"Delimiter equals enclosure", `{"options": {"delimiter": "\""}}`, errors.ErrorCodeInvalidInput},
		{"Escape equals delimiter", `{"options": {"escape": ","}}`, errors.ErrorCodeInvalidInput},
		{"Missing header field", `{"header_records": [{"name": "a"}]}`, errors.ErrorCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := e.Render(decodeRequest(t, tt.body))
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestRender_ColumnLengthMismatchMessage(t *testing.T) {
	e, _, _ := newTestExporter(t)

	_, _, err := e.Render(decodeRequest(t, `{"columns": {"a": [1, 2], "b": [1]}}`))
	assert.Equal(t, errors.ColumnLengthMismatchMessage, errors.FromError(err).Message)
}

func TestExport(t *testing.T) {
	e, blob, bus := newTestExporter(t)

	res, err := e.Export(context.Background(), decodeRequest(t, `{"header": ["n"], "rows": [[1], [2]]}`))
	require.NoError(t, err)

	assert.True(t, utils.IsValidUUID(res.ID))
	assert.Equal(t, 2, res.RowCount)
	assert.Equal(t, "mock://csv-exports/exports/"+res.ID+".csv", res.BlobURL)

	stored, ok := blob.Blob("csv-exports", BlobName(res.ID))
	require.True(t, ok)
	assert.Equal(t, bom+"n\n1\n2\n", string(stored.Data))
	assert.Equal(t, int64(len(stored.Data)), res.Size)
	assert.Equal(t, ContentType, stored.ContentType)
	assert.Equal(t, "2", stored.Metadata["row_count"])

	msgs := bus.Messages("csv-export-events")
	require.Len(t, msgs, 1)
	assert.Equal(t, res.ID, msgs[0].ID)

	var note Notification
	require.NoError(t, json.Unmarshal(msgs[0].Body, &note))
	assert.Equal(t, res.ID, note.ExportID)
	assert.Equal(t, res.BlobURL, note.BlobURL)
	assert.Equal(t, 2, note.RowCount)
}

func TestExport_RetriesUpload(t *testing.T) {
	e, blob, _ := newTestExporter(t)
	blob.FailUploads = 2

	res, err := e.Export(context.Background(), decodeRequest(t, `{"rows": [["a"]]}`))
	require.NoError(t, err)
	assert.Equal(t, 3, blob.UploadAttempts())

	_, ok := blob.Blob("csv-exports", BlobName(res.ID))
	assert.True(t, ok)
}

func TestExport_UploadExhausted(t *testing.T) {
	e, blob, bus := newTestExporter(t)
	blob.FailUploads = 5

	_, err := e.Export(context.Background(), decodeRequest(t, `{"rows": [["a"]]}`))
	assert.True(t, errors.HasCode(err, errors.ErrorCodeServiceUnavailable))
	assert.Equal(t, 3, blob.UploadAttempts())
	assert.Empty(t, bus.Messages("csv-export-events"))
}

func TestExport_InvalidInputIsNotUploaded(t *testing.T) {
	e, blob, _ := newTestExporter(t)

	_, err := e.Export(context.Background(), decodeRequest(t, `{"columns": {"a": [1], "b": []}}`))
	assert.True(t, errors.HasCode(err, errors.ErrorCodeColumnLengthMismatch))
	assert.Equal(t, 0, blob.UploadAttempts())
}

func TestExport_NotificationFailureIsLogged(t *testing.T) {
	e, _, bus := newTestExporter(t)
	bus.Err = stderrors.New("namespace unreachable")

	core, observedLogs := observer.New(zapcore.WarnLevel)
	ctx := logging.WithLogger(context.Background(), logging.NewZapLogger(zap.New(core)))

	res, err := e.Export(ctx, decodeRequest(t, `{"rows": [["a"]]}`))
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)

	logs := observedLogs.FilterMessage("Failed to publish export notification").All()
	require.Len(t, logs, 1)
	assert.Equal(t, res.ID, logs[0].ContextMap()["export_id"])
}

func TestOpen(t *testing.T) {
	e, _, _ := newTestExporter(t)

	res, err := e.Export(context.Background(), decodeRequest(t, `{"rows": [["a", "b"]]}`))
	require.NoError(t, err)

	rc, err := e.Open(context.Background(), res.ID)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data))

	t.Run("Unknown id", func(t *testing.T) {
		_, err := e.Open(context.Background(), utils.GenerateExportID())
		assert.True(t, errors.HasCode(err, errors.ErrorCodeNotFound))
	})

	t.Run("Malformed id", func(t *testing.T) {
		_, err := e.Open(context.Background(), "../secrets")
		assert.True(t, errors.HasCode(err, errors.ErrorCodeBadRequest))
	})
}

func TestNewExporter_RequiresBlobClient(t *testing.T) {
	_, err := NewExporter(nil, nil, testConfig(), nil)
	assert.Error(t, err)
}
