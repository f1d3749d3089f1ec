package csvwriter

import (
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strconv"

	"github.com/yourorg/csvkit/pkg/errors"
)

// Row is one record to write. It is either Positional or Named.
type Row interface {
	values(header []string) []interface{}
}

// Positional is a row whose values are written in the given order.
type Positional []interface{}

func (p Positional) values([]string) []interface{} {
	return p
}

// Named is a row keyed by column name. With a header set, values follow the
// header order and absent columns are written empty; without one, values
// follow ascending key order.
type Named map[string]interface{}

func (n Named) values(header []string) []interface{} {
	if len(header) == 0 {
		keys := make([]string, 0, len(n))
		for k := range n {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		out := make([]interface{}, len(keys))
		for i, k := range keys {
			out[i] = n[k]
		}
		return out
	}

	out := make([]interface{}, len(header))
	for i, column := range header {
		if v, ok := n[column]; ok {
			out[i] = v
		} else {
			out[i] = ""
		}
	}
	return out
}

// Strings builds a Positional row from string values.
func Strings(values ...string) Positional {
	row := make(Positional, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}

// InferRow decides the row variant of an untyped value, such as one decoded
// from JSON. Slices and arrays are Positional and maps with string keys are
// Named. A map with integer keys is Positional when its keys are exactly
// 0..n-1 and Named (decimal keys) otherwise.
func InferRow(v interface{}) (Row, error) {
	switch row := v.(type) {
	case Row:
		return row, nil
	case []interface{}:
		return Positional(row), nil
	case []string:
		return Strings(row...), nil
	case map[string]interface{}:
		return Named(row), nil
	case map[string]string:
		named := make(Named, len(row))
		for k, val := range row {
			named[k] = val
		}
		return named, nil
	}

	rv := reflect.ValueOf(v)
	switch {
	case isSequence(rv):
		return positionalOf(rv), nil
	case rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String:
		named := make(Named, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			named[iter.Key().String()] = iter.Value().Interface()
		}
		return named, nil
	case rv.Kind() == reflect.Map && isInteger(rv.Type().Key().Kind()):
		return intKeyedRow(rv), nil
	}

	return nil, errors.NewInvalidInputError(fmt.Sprintf("row of type %T is neither a sequence nor a mapping", v))
}

func intKeyedRow(rv reflect.Value) Row {
	keys := make([]int64, 0, rv.Len())
	values := make(map[int64]interface{}, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		var k int64
		if iter.Key().CanInt() {
			k = iter.Key().Int()
		} else {
			k = int64(iter.Key().Uint())
		}
		keys = append(keys, k)
		values[k] = iter.Value().Interface()
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	sequential := true
	for i, k := range keys {
		if k != int64(i) {
			sequential = false
			break
		}
	}

	if sequential {
		row := make(Positional, len(keys))
		for i, k := range keys {
			row[i] = values[k]
		}
		return row
	}

	named := make(Named, len(keys))
	for _, k := range keys {
		named[strconv.FormatInt(k, 10)] = values[k]
	}
	return named
}

// Columns converts a typed column map for AddRowsFromColumns.
func Columns[T any](columns map[string][]T) map[string]interface{} {
	out := make(map[string]interface{}, len(columns))
	for name, values := range columns {
		out[name] = values
	}
	return out
}

// isSequence reports whether rv is an ordered sequence of values.
// Byte slices are scalars.
func isSequence(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Slice:
		return rv.Type().Elem().Kind() != reflect.Uint8
	case reflect.Array:
		return true
	}
	return false
}

func positionalOf(rv reflect.Value) Positional {
	row := make(Positional, rv.Len())
	for i := range row {
		row[i] = rv.Index(i).Interface()
	}
	return row
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}
