package csvwriter

import (
	"fmt"
	"unicode/utf8"

	"github.com/yourorg/csvkit/pkg/errors"
	"github.com/yourorg/csvkit/pkg/logging"
)

// DefaultHeaderField is the record field read by SetHeaderFromRecords when no field is given.
const DefaultHeaderField = "header_name"

// Options configures how records are encoded.
type Options struct {
	// Delimiter separates fields. Default is ','.
	Delimiter rune
	// Enclosure wraps fields that contain special characters. Default is '"'.
	Enclosure rune
	// Escape, when directly followed by the enclosure inside a quoted field,
	// keeps that enclosure from being doubled. Default is 0, which doubles
	// every enclosure.
	Escape rune
	// HasHeader enables WriteHeader. Default is true.
	HasHeader bool
	// UseCRLF terminates records with "\r\n" instead of "\n".
	UseCRLF bool
}

// DefaultOptions returns the default encoding options.
func DefaultOptions() Options {
	return Options{
		Delimiter: ',',
		Enclosure: '"',
		HasHeader: true,
	}
}

func (o Options) validate() error {
	switch {
	case !validSeparator(o.Delimiter):
		return errors.NewInvalidInputError(fmt.Sprintf("invalid delimiter %q", o.Delimiter))
	case !validSeparator(o.Enclosure):
		return errors.NewInvalidInputError(fmt.Sprintf("invalid enclosure %q", o.Enclosure))
	case o.Delimiter == o.Enclosure:
		return errors.NewInvalidInputError("delimiter and enclosure must differ")
	case o.Escape != 0 && !validSeparator(o.Escape):
		return errors.NewInvalidInputError(fmt.Sprintf("invalid escape %q", o.Escape))
	case o.Escape != 0 && o.Escape == o.Delimiter:
		return errors.NewInvalidInputError("delimiter and escape must differ")
	}
	return nil
}

func validSeparator(r rune) bool {
	return r != 0 && r != '\n' && r != '\r' && r != utf8.RuneError && utf8.ValidRune(r)
}

// Option configures a Writer at construction time.
type Option func(*Writer)

// WithOptions replaces every encoding option at once.
func WithOptions(opts Options) Option {
	return func(w *Writer) {
		w.opts = opts
	}
}

// WithDelimiter sets the field delimiter.
func WithDelimiter(delimiter rune) Option {
	return func(w *Writer) {
		w.opts.Delimiter = delimiter
	}
}

// WithEnclosure sets the enclosure (quote) character.
func WithEnclosure(enclosure rune) Option {
	return func(w *Writer) {
		w.opts.Enclosure = enclosure
	}
}

// WithEscape sets the escape character. Use 0 for plain quote doubling.
func WithEscape(escape rune) Option {
	return func(w *Writer) {
		w.opts.Escape = escape
	}
}

// WithHasHeader enables or disables header output.
func WithHasHeader(hasHeader bool) Option {
	return func(w *Writer) {
		w.opts.HasHeader = hasHeader
	}
}

// WithCRLF terminates records with "\r\n".
func WithCRLF() Option {
	return func(w *Writer) {
		w.opts.UseCRLF = true
	}
}

// WithLogger sets the logger used for sink lifecycle events.
func WithLogger(logger logging.Logger) Option {
	return func(w *Writer) {
		if logger != nil {
			w.logger = logger
		}
	}
}
