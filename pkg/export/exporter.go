// Package export renders CSV documents with csvwriter and publishes them to
// blob storage, announcing each stored export on a Service Bus queue.
package export

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/yourorg/csvkit/pkg/blobclient"
	"github.com/yourorg/csvkit/pkg/csvwriter"
	"github.com/yourorg/csvkit/pkg/errors"
	"github.com/yourorg/csvkit/pkg/logging"
	"github.com/yourorg/csvkit/pkg/servicebusclient"
	"github.com/yourorg/csvkit/pkg/utils"
)

// ContentType is stored with every uploaded export.
const ContentType = "text/csv; charset=utf-8"

// Config configures an Exporter.
type Config struct {
	Container string
	Queue     string
	Defaults  csvwriter.Options
	Retry     utils.RetryConfig
}

// Result describes a stored export.
type Result struct {
	ID       string `json:"id"`
	BlobURL  string `json:"blob_url"`
	RowCount int    `json:"row_count"`
	Size     int64  `json:"size"`
}

// Notification is the message published once an export is stored.
type Notification struct {
	ExportID string    `json:"export_id"`
	BlobURL  string    `json:"blob_url"`
	RowCount int       `json:"row_count"`
	StoredAt time.Time `json:"stored_at"`
}

// Exporter renders and stores CSV exports.
type Exporter struct {
	blob   blobclient.BlobClient
	bus    servicebusclient.ServiceBusClient
	cfg    Config
	logger logging.Logger
}

// NewExporter creates an Exporter. A nil bus disables notifications.
func NewExporter(blob blobclient.BlobClient, bus servicebusclient.ServiceBusClient, cfg Config, logger logging.Logger) (*Exporter, error) {
	if blob == nil {
		return nil, fmt.Errorf("blob client is required")
	}
	if cfg.Container == "" {
		return nil, fmt.Errorf("container is required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if cfg.Retry.ShouldRetry == nil {
		// AppErrors are caller mistakes; retrying cannot fix them.
		cfg.Retry.ShouldRetry = func(err error) bool {
			var appErr *errors.AppError
			return !stderrors.As(err, &appErr)
		}
	}

	return &Exporter{
		blob:   blob,
		bus:    bus,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Render encodes req in memory and returns the CSV text and the number of
// data rows.
func (e *Exporter) Render(req Request) (string, int, error) {
	res, err := e.encode(req, csvwriter.MemorySink())
	if err != nil {
		return "", 0, err
	}
	content, _ := res.Content()
	return content, res.RowsWritten(), nil
}

// Export renders req, uploads it and publishes a notification. A failed
// notification is logged and does not fail the export.
func (e *Exporter) Export(ctx context.Context, req Request) (*Result, error) {
	content, rows, err := e.Render(req)
	if err != nil {
		return nil, err
	}

	id := utils.GenerateExportID()
	logger := logging.FromContext(ctx).With(logging.NewField("export_id", id))

	opts := blobclient.UploadOptions{
		ContentType: ContentType,
		Metadata: map[string]string{
			"export_id": id,
			"row_count": strconv.Itoa(rows),
		},
	}
	txn := newrelic.FromContext(ctx)
	txn.AddAttribute("export_id", id)

	upload := txn.StartSegment("csv.upload")
	blobURL, err := utils.RetryWithResult(ctx, e.cfg.Retry, func() (string, error) {
		url, err := e.blob.Upload(ctx, e.cfg.Container, BlobName(id), strings.NewReader(content), opts)
		if err != nil {
			logger.Warn("Export upload attempt failed", logging.NewField("error", err))
		}
		return url, err
	})
	upload.End()
	if err != nil {
		txn.NoticeError(err)
		logger.Error("Export upload failed", logging.NewField("error", err))
		return nil, errors.NewServiceUnavailableError("failed to store export").WithDetails(map[string]interface{}{
			"export_id": id,
		})
	}

	result := &Result{
		ID:       id,
		BlobURL:  blobURL,
		RowCount: rows,
		Size:     int64(len(content)),
	}
	logger.Info("Export stored",
		logging.NewField("blob_url", blobURL),
		logging.NewField("rows", rows),
		logging.NewField("bytes", result.Size),
	)

	e.notify(ctx, logger, result)
	return result, nil
}

// Open streams a stored export. The caller closes the reader.
func (e *Exporter) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	if !utils.IsValidUUID(id) {
		return nil, errors.NewBadRequestError("invalid export id")
	}
	return e.blob.Get(ctx, e.cfg.Container, BlobName(id))
}

// BlobName is the blob path of export id inside the container.
func BlobName(id string) string {
	return "exports/" + id + ".csv"
}

func (e *Exporter) encode(req Request, sink csvwriter.Sink) (csvwriter.Result, error) {
	if err := req.Validate(); err != nil {
		return csvwriter.Result{}, err
	}

	w, err := csvwriter.New(sink,
		csvwriter.WithOptions(req.Options.apply(e.cfg.Defaults)),
		csvwriter.WithLogger(e.logger),
	)
	if err != nil {
		return csvwriter.Result{}, err
	}

	if err := write(w, req); err != nil {
		_, _ = w.Close()
		return csvwriter.Result{}, err
	}
	return w.Close()
}

func write(w *csvwriter.Writer, req Request) error {
	if len(req.Header) > 0 {
		w.SetHeader(req.Header)
	} else if len(req.HeaderRecords) > 0 {
		if err := w.SetHeaderFromRecords(req.HeaderRecords, req.HeaderField); err != nil {
			return err
		}
	}
	if err := w.WriteHeader(); err != nil {
		return err
	}

	for i, v := range req.Rows {
		row, err := csvwriter.InferRow(v)
		if err != nil {
			return errors.NewInvalidInputError(fmt.Sprintf("row %d: %s", i, errors.FromError(err).Message))
		}
		if err := w.WriteRow(row); err != nil {
			return err
		}
	}

	return w.AddRowsFromColumns(req.Columns)
}

func (e *Exporter) notify(ctx context.Context, logger logging.Logger, result *Result) {
	if e.bus == nil || e.cfg.Queue == "" {
		return
	}

	body, err := json.Marshal(Notification{
		ExportID: result.ID,
		BlobURL:  result.BlobURL,
		RowCount: result.RowCount,
		StoredAt: time.Now().UTC(),
	})
	if err != nil {
		logger.Error("Failed to encode export notification", logging.NewField("error", err))
		return
	}

	defer newrelic.FromContext(ctx).StartSegment("csv.notify").End()
	msgID, err := e.bus.Send(ctx, e.cfg.Queue, body,
		servicebusclient.WithContentType("application/json"),
		servicebusclient.WithMessageID(result.ID),
	)
	if err != nil {
		logger.Warn("Failed to publish export notification",
			logging.NewField("queue", e.cfg.Queue),
			logging.NewField("error", err),
		)
		return
	}
	logger.Debug("Export notification published", logging.NewField("message_id", msgID))
}
