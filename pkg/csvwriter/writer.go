// Package csvwriter encodes row- and column-oriented tabular data as CSV into
// a file, an in-memory buffer or an arbitrary io.Writer.
//
// A Writer is not safe for concurrent use.
package csvwriter

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/yourorg/csvkit/pkg/errors"
	"github.com/yourorg/csvkit/pkg/logging"
)

// Writer encodes records into a sink.
type Writer struct {
	opts   Options
	header []string
	out    handle
	kind   sinkKind
	logger logging.Logger

	rows    int
	bytes   int64
	closed  bool
	scratch []byte
}

// New opens the sink and returns a Writer configured by opts.
func New(sink Sink, opts ...Option) (*Writer, error) {
	w := &Writer{
		opts:   DefaultOptions(),
		kind:   sink.kind,
		logger: logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if err := w.opts.validate(); err != nil {
		return nil, err
	}

	out, err := sink.open()
	if err != nil {
		return nil, err
	}
	w.out = out

	w.logger.Debug("CSV writer opened",
		logging.NewField("sink", sink.kind.String()),
		logging.NewField("path", sink.path),
	)
	return w, nil
}

// Options returns the current encoding options.
func (w *Writer) Options() Options {
	return w.opts
}

// SetDelimiter sets the field delimiter for subsequent writes.
func (w *Writer) SetDelimiter(delimiter rune) {
	w.opts.Delimiter = delimiter
}

// SetEnclosure sets the enclosure character for subsequent writes.
func (w *Writer) SetEnclosure(enclosure rune) {
	w.opts.Enclosure = enclosure
}

// SetEscape sets the escape character for subsequent writes.
func (w *Writer) SetEscape(escape rune) {
	w.opts.Escape = escape
}

// SetHasHeader enables or disables WriteHeader.
func (w *Writer) SetHasHeader(hasHeader bool) {
	w.opts.HasHeader = hasHeader
}

// SetCRLF switches the record terminator between "\r\n" and "\n".
func (w *Writer) SetCRLF(useCRLF bool) {
	w.opts.UseCRLF = useCRLF
}

// Header returns a copy of the current header.
func (w *Writer) Header() []string {
	return slices.Clone(w.header)
}

// SetHeader sets the column names. An empty slice clears the header.
func (w *Writer) SetHeader(names []string) {
	if len(names) == 0 {
		w.header = nil
		return
	}
	w.header = slices.Clone(names)
}

// SetHeaderFromRecords sets the header from the field of each record, in
// order. An empty field means DefaultHeaderField.
func (w *Writer) SetHeaderFromRecords(records []map[string]interface{}, field string) error {
	if field == "" {
		field = DefaultHeaderField
	}

	names := make([]string, 0, len(records))
	for i, record := range records {
		v, ok := record[field]
		if !ok {
			return errors.NewInvalidInputError(fmt.Sprintf("header record %d has no %q field", i, field))
		}
		names = append(names, FormatValue(v))
	}

	w.SetHeader(names)
	return nil
}

// WriteHeader writes the UTF-8 BOM followed by the header record. It does
// nothing when headers are disabled or no header is set. Calling it twice
// writes the header twice.
func (w *Writer) WriteHeader() error {
	if w.closed {
		return errors.NewClosedSinkError()
	}
	if !w.opts.HasHeader || len(w.header) == 0 {
		return nil
	}
	return w.writeRecord(utf8BOM, w.header)
}

// WriteRow writes one record. A Named row is reordered by the header when one is set.
func (w *Writer) WriteRow(row Row) error {
	if w.closed {
		return errors.NewClosedSinkError()
	}
	if row == nil {
		return errors.NewInvalidInputError("row must not be nil")
	}
	if err := w.writeRecord(nil, formatValues(row.values(w.header))); err != nil {
		return err
	}
	w.rows++
	return nil
}

// WriteRows writes rows in order, stopping at the first error. Rows written
// before the error stay in the sink.
func (w *Writer) WriteRows(rows []Row) error {
	for _, row := range rows {
		if err := w.WriteRow(row); err != nil {
			return err
		}
	}
	return nil
}

// AddRowsFromColumns transposes a column batch into Named rows and writes
// them. Every value must be a slice or array and all must have the same
// length; the batch is validated before anything is written. An empty batch
// writes nothing.
func (w *Writer) AddRowsFromColumns(columns map[string]interface{}) error {
	if w.closed {
		return errors.NewClosedSinkError()
	}
	if len(columns) == 0 {
		return nil
	}

	names := make([]string, 0, len(columns))
	for k := range columns {
		names = append(names, k)
	}
	slices.Sort(names)
	sequences := make([]reflect.Value, len(names))
	for i, name := range names {
		rv := reflect.ValueOf(columns[name])
		if !isSequence(rv) {
			return errors.NewInvalidInputError(fmt.Sprintf("column %q must be a sequence of values", name))
		}
		sequences[i] = rv
	}

	rowCount := sequences[0].Len()
	for _, seq := range sequences[1:] {
		if seq.Len() != rowCount {
			return errors.NewColumnLengthMismatchError()
		}
	}

	for i := 0; i < rowCount; i++ {
		row := make(Named, len(names))
		for j, name := range names {
			row[name] = sequences[j].Index(i).Interface()
		}
		if err := w.WriteRow(row); err != nil {
			return err
		}
	}
	return nil
}

// RowsWritten returns the number of data records written so far.
func (w *Writer) RowsWritten() int {
	return w.rows
}

// Close flushes and releases the sink. For a memory sink the result carries
// the accumulated text. The Writer cannot be used afterwards.
func (w *Writer) Close() (Result, error) {
	if w.closed {
		return Result{}, errors.NewClosedSinkError()
	}
	w.closed = true

	res, err := w.out.finish()
	w.out = nil
	w.scratch = nil
	if err != nil {
		return Result{}, err
	}

	res.rows = w.rows
	res.bytes = w.bytes
	w.logger.Debug("CSV writer closed",
		logging.NewField("sink", w.kind.String()),
		logging.NewField("rows", w.rows),
		logging.NewField("bytes", w.bytes),
	)
	return res, nil
}

func (w *Writer) writeRecord(prefix []byte, fields []string) error {
	if err := w.opts.validate(); err != nil {
		return err
	}

	w.scratch = append(w.scratch[:0], prefix...)
	w.scratch = appendRecord(w.scratch, fields, w.opts)

	n, err := w.out.Write(w.scratch)
	w.bytes += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write csv record: %w", err)
	}
	return nil
}
