package export

import (
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/yourorg/csvkit/pkg/csvwriter"
	"github.com/yourorg/csvkit/pkg/errors"
)

var validate = validator.New()

// Request describes one CSV document.
//
// The header comes from Header, or from HeaderRecords when Header is empty.
// Rows are written first, each decoded with csvwriter.InferRow; Columns is
// written afterwards as one column batch.
type Request struct {
	Header        []string                 `json:"header" validate:"omitempty,dive,max=1024"`
	HeaderRecords []map[string]interface{} `json:"header_records" validate:"omitempty,dive,required"`
	HeaderField   string                   `json:"header_field" validate:"omitempty,max=256"`
	Rows          []interface{}            `json:"rows" validate:"omitempty,dive,required"`
	Columns       map[string]interface{}   `json:"columns"`
	Options       *OptionsRequest          `json:"options" validate:"omitempty"`
}

// OptionsRequest overrides the configured encoding options. Nil fields keep
// the configured value; an empty Escape disables escaping.
type OptionsRequest struct {
	Delimiter *string `json:"delimiter" validate:"omitempty,len=1"`
	Enclosure *string `json:"enclosure" validate:"omitempty,len=1"`
	Escape    *string `json:"escape" validate:"omitempty,max=1"`
	HasHeader *bool   `json:"has_header"`
	UseCRLF   *bool   `json:"use_crlf"`
}

// Validate checks the request against its struct tags.
func (r *Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		return errors.NewValidationError("Validation failed: " + err.Error())
	}
	return nil
}

// apply overlays the request options on base.
func (o *OptionsRequest) apply(base csvwriter.Options) csvwriter.Options {
	if o == nil {
		return base
	}
	if o.Delimiter != nil {
		base.Delimiter, _ = utf8.DecodeRuneInString(*o.Delimiter)
	}
	if o.Enclosure != nil {
		base.Enclosure, _ = utf8.DecodeRuneInString(*o.Enclosure)
	}
	if o.Escape != nil {
		base.Escape = 0
		if *o.Escape != "" {
			base.Escape, _ = utf8.DecodeRuneInString(*o.Escape)
		}
	}
	if o.HasHeader != nil {
		base.HasHeader = *o.HasHeader
	}
	if o.UseCRLF != nil {
		base.UseCRLF = *o.UseCRLF
	}
	return base
}
