package csvwriter

import (
	"fmt"
	"reflect"
	"strconv"
	"time"
	"unicode/utf8"
)

// utf8BOM is written in front of the header so spreadsheet applications detect UTF-8.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// appendRecord appends one encoded record, terminator included, to dst.
func appendRecord(dst []byte, fields []string, o Options) []byte {
	for i, field := range fields {
		if i > 0 {
			dst = utf8.AppendRune(dst, o.Delimiter)
		}
		dst = appendField(dst, field, o)
	}
	if o.UseCRLF {
		return append(dst, '\r', '\n')
	}
	return append(dst, '\n')
}

func appendField(dst []byte, field string, o Options) []byte {
	if !fieldNeedsQuotes(field, o) {
		return append(dst, field...)
	}

	escape := o.Escape
	if escape == o.Enclosure {
		escape = 0
	}

	dst = utf8.AppendRune(dst, o.Enclosure)
	escaped := false
	for _, r := range field {
		switch {
		case escape != 0 && r == escape:
			escaped = true
		case !escaped && r == o.Enclosure:
			dst = utf8.AppendRune(dst, o.Enclosure)
		default:
			escaped = false
		}
		dst = utf8.AppendRune(dst, r)
	}
	return utf8.AppendRune(dst, o.Enclosure)
}

func fieldNeedsQuotes(field string, o Options) bool {
	for _, r := range field {
		switch r {
		case o.Delimiter, o.Enclosure, '\n', '\r':
			return true
		}
	}
	return false
}

// FormatValue converts a scalar to the text written into a CSV field.
// nil becomes an empty field, pointers are dereferenced and times use RFC 3339.
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int8:
		return strconv.FormatInt(int64(val), 10)
	case int16:
		return strconv.FormatInt(int64(val), 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case uint8:
		return strconv.FormatUint(uint64(val), 10)
	case uint16:
		return strconv.FormatUint(uint64(val), 10)
	case uint32:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		return val.Format(time.RFC3339)
	case fmt.Stringer:
		return val.String()
	case error:
		return val.Error()
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		return FormatValue(rv.Elem().Interface())
	}
	return fmt.Sprint(v)
}

func formatValues(values []interface{}) []string {
	fields := make([]string, len(values))
	for i, v := range values {
		fields[i] = FormatValue(v)
	}
	return fields
}
