package fakersql

import (
	"database/sql/driver"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// asFloat64 converts numeric column values as delivered by the different drivers:
// native Go numbers (pgx float8/int), decimal text (lib/pq returns numeric as []byte)
// and driver.Valuer types like pgtype.Numeric.
func asFloat64(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		return parseDecimal(t)
	case []byte:
		return parseDecimal(string(t))
	case driver.Valuer:
		inner, err := t.Value()
		if err != nil || inner == nil {
			return 0, false
		}
		if _, again := inner.(driver.Valuer); again {
			return 0, false
		}
		return asFloat64(inner)
	}

	return 0, false
}

func asInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int32:
		return int64(t), true
	case int16:
		return int64(t), true
	case int:
		return int64(t), true
	}

	f, ok := asFloat64(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}

	return int64(f), true
}

func asString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case []byte:
		return string(t), true
	case driver.Valuer:
		inner, err := t.Value()
		if err != nil || inner == nil {
			return "", false
		}
		if s, ok := inner.(string); ok {
			return s, true
		}
	}

	return "", false
}

func parseDecimal(s string) (float64, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}

	f, _ := d.Float64()

	return f, true
}
