package fakersql

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// ResultRow is an ordered mapping from column name to scalar value.
// Column order is the order the backing store returned.
type ResultRow struct {
	columns []string
	values  []any
}

// ResultRows is a finite sequence of ResultRow, in backing-store order.
type ResultRows = []ResultRow

// NewResultRow creates a ResultRow. Columns and values must have the same length.
func NewResultRow(columns []string, values []any) (ResultRow, error) {
	if len(columns) != len(values) {
		return ResultRow{}, fmt.Errorf("result row has %d columns but %d values", len(columns), len(values))
	}

	return ResultRow{columns: columns, values: values}, nil
}

// Columns returns the column names in order.
func (r ResultRow) Columns() []string {
	return r.columns
}

// Len returns the number of columns.
func (r ResultRow) Len() int {
	return len(r.columns)
}

// ValueAt returns the value of the i-th column.
func (r ResultRow) ValueAt(i int) any {
	return r.values[i]
}

// Get returns the value for the column and whether the column exists.
func (r ResultRow) Get(column string) (any, bool) {
	for i, c := range r.columns {
		if c == column {
			return r.values[i], true
		}
	}

	return nil, false
}

// String returns the column as string, "" if it is missing or NULL.
func (r ResultRow) String(column string) string {
	v, _ := r.Get(column)
	s, _ := asString(v)

	return s
}

// OptionalString returns nil if the column is missing or NULL.
func (r ResultRow) OptionalString(column string) *string {
	v, ok := r.Get(column)
	if !ok || v == nil {
		return nil
	}

	s, ok := asString(v)
	if !ok {
		return nil
	}

	return &s
}

// Float64 returns the column as float64, 0 if it is missing, NULL, or not numeric.
func (r ResultRow) Float64(column string) float64 {
	v, _ := r.Get(column)
	f, _ := asFloat64(v)

	return f
}

// Int64 returns the column as int64, 0 if it is missing, NULL, or not numeric.
func (r ResultRow) Int64(column string) int64 {
	v, _ := r.Get(column)
	i, _ := asInt64(v)

	return i
}

// MarshalJSON encodes the row as a JSON object keeping the column order.
func (r ResultRow) MarshalJSON() ([]byte, error) {
	stream := jsonAPI.BorrowStream(nil)
	defer jsonAPI.ReturnStream(stream)

	stream.WriteObjectStart()
	for i, column := range r.columns {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(column)
		stream.WriteVal(jsonValue(r.values[i]))
	}
	stream.WriteObjectEnd()

	if stream.Error != nil {
		return nil, stream.Error
	}

	return append([]byte(nil), stream.Buffer()...), nil
}

// jsonValue turns driver-specific scalars into JSON-friendly ones.
func jsonValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case nil, string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return v
	}

	if f, ok := asFloat64(v); ok {
		return f
	}

	if s, ok := asString(v); ok {
		return s
	}

	return v
}
