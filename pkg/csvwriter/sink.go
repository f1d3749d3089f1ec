package csvwriter

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
)

const fileBufferSize = 64 * 1024

type sinkKind int

const (
	sinkMemory sinkKind = iota
	sinkFile
	sinkStream
)

func (k sinkKind) String() string {
	switch k {
	case sinkFile:
		return "file"
	case sinkStream:
		return "stream"
	default:
		return "memory"
	}
}

// Sink selects where a Writer sends its output. The zero value is a memory sink.
type Sink struct {
	kind sinkKind
	path string
	w    io.Writer
}

// FileSink writes to the file at path, creating or truncating it.
func FileSink(path string) Sink {
	return Sink{kind: sinkFile, path: path}
}

// MemorySink accumulates output in memory; Close returns it as a string.
func MemorySink() Sink {
	return Sink{kind: sinkMemory}
}

// StreamSink writes to w. Close flushes but does not close w.
func StreamSink(w io.Writer) Sink {
	return Sink{kind: sinkStream, w: w}
}

// Result is what a Writer reports on Close.
type Result struct {
	content  string
	inMemory bool
	rows     int
	bytes    int64
}

// Content returns the accumulated CSV text. ok is false unless the writer used a memory sink.
func (r Result) Content() (content string, ok bool) {
	return r.content, r.inMemory
}

// RowsWritten is the number of data records written, header excluded.
func (r Result) RowsWritten() int {
	return r.rows
}

// BytesWritten is the number of bytes written, BOM and header included.
func (r Result) BytesWritten() int64 {
	return r.bytes
}

// handle is the acquired output resource behind a Sink.
type handle interface {
	io.Writer
	// finish flushes and releases the resource.
	finish() (Result, error)
}

func (s Sink) open() (handle, error) {
	switch s.kind {
	case sinkFile:
		f, err := os.Create(s.path)
		if err != nil {
			return nil, fmt.Errorf("failed to open csv file %s: %w", s.path, err)
		}
		return &fileHandle{f: f, buf: bufio.NewWriterSize(f, fileBufferSize)}, nil
	case sinkStream:
		if s.w == nil {
			return nil, fmt.Errorf("stream sink requires a writer")
		}
		return &streamHandle{buf: bufio.NewWriter(s.w)}, nil
	default:
		return &memoryHandle{buf: new(bytes.Buffer)}, nil
	}
}

type fileHandle struct {
	f   *os.File
	buf *bufio.Writer
}

func (h *fileHandle) Write(p []byte) (int, error) {
	return h.buf.Write(p)
}

func (h *fileHandle) finish() (Result, error) {
	flushErr := h.buf.Flush()
	closeErr := h.f.Close()
	if flushErr != nil {
		return Result{}, fmt.Errorf("failed to flush csv file %s: %w", h.f.Name(), flushErr)
	}
	if closeErr != nil {
		return Result{}, fmt.Errorf("failed to close csv file %s: %w", h.f.Name(), closeErr)
	}
	return Result{}, nil
}

type memoryHandle struct {
	buf *bytes.Buffer
}

func (h *memoryHandle) Write(p []byte) (int, error) {
	return h.buf.Write(p)
}

func (h *memoryHandle) finish() (Result, error) {
	content := h.buf.String()
	h.buf = nil
	return Result{content: content, inMemory: true}, nil
}

type streamHandle struct {
	buf *bufio.Writer
}

func (h *streamHandle) Write(p []byte) (int, error) {
	return h.buf.Write(p)
}

func (h *streamHandle) finish() (Result, error) {
	if err := h.buf.Flush(); err != nil {
		return Result{}, fmt.Errorf("failed to flush csv stream: %w", err)
	}
	return Result{}, nil
}
