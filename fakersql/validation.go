package fakersql

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// DefaultMaxBatchSize is the upper bound for batch_size unless configured otherwise.
	DefaultMaxBatchSize = 100

	// MaxBenchmarkIterations is the upper bound for benchmark iterations.
	MaxBenchmarkIterations = 10000
)

// RawParams holds untrusted generation parameters as they arrived in a request.
// Each field may be a string (query/form), a JSON number, or a Go number.
type RawParams struct {
	Locale     any
	Seed       any
	BatchIndex any
	BatchSize  any
	IncludeBio any
}

// ValidatedParams are generation parameters that passed validation.
type ValidatedParams struct {
	Locale     string
	Seed       int64
	BatchIndex int64
	BatchSize  int
	IncludeBio bool
}

// ValidationError describes which request field was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap makes errors.Is(err, ErrValidationFailed) work.
func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewInvalidLocaleError creates the ValidationError for an unknown locale code.
func NewInvalidLocaleError(code string) *ValidationError {
	return &ValidationError{Field: "locale", Message: fmt.Sprintf("Invalid locale: %s", code)}
}

// ValidateSeed accepts anything coercible to a non-negative integer.
func ValidateSeed(x any) (int64, bool) {
	return nonNegativeInt(x)
}

// ValidateBatchIndex accepts anything coercible to a non-negative integer.
func ValidateBatchIndex(x any) (int64, bool) {
	return nonNegativeInt(x)
}

// ValidateBatchSize accepts integers in [1, maxSize].
func ValidateBatchSize(x any, maxSize int) (int, bool) {
	return boundedInt(x, 1, maxSize)
}

// ValidateIterations accepts integers in [1, MaxBenchmarkIterations].
func ValidateIterations(x any) (int, bool) {
	return boundedInt(x, 1, MaxBenchmarkIterations)
}

// ValidateLocale reports whether code is one of the known locales.
func ValidateLocale(code string, knownLocales []Locale) bool {
	for _, locale := range knownLocales {
		if locale.Code == code {
			return true
		}
	}

	return false
}

// ParseIncludeBio interprets the strings "true", "1" and "yes" (any case) as true.
// Any other value counts by its truthiness: non-zero numbers and non-empty lists or objects are true.
func ParseIncludeBio(x any) bool {
	switch t := x.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes":
			return true
		}

		return false
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case float64:
		return t != 0
	case float32:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}

	if i, ok := toInt64(x); ok {
		return i != 0
	}

	return true
}

// ValidateParams checks all generation parameters in the order locale, seed, batch_index, batch_size
// and reports the first rejected field.
func ValidateParams(raw RawParams, knownLocales []Locale, maxBatchSize int) (ValidatedParams, error) {
	locale, _ := raw.Locale.(string)
	if !ValidateLocale(locale, knownLocales) {
		return ValidatedParams{}, NewInvalidLocaleError(locale)
	}

	seed, ok := ValidateSeed(raw.Seed)
	if !ok {
		return ValidatedParams{}, &ValidationError{
			Field:   "seed",
			Message: "Invalid seed value. Must be a non-negative integer.",
		}
	}

	batchIndex, ok := ValidateBatchIndex(raw.BatchIndex)
	if !ok {
		return ValidatedParams{}, &ValidationError{
			Field:   "batch_index",
			Message: "Invalid batch_index. Must be a non-negative integer.",
		}
	}

	batchSize, ok := ValidateBatchSize(raw.BatchSize, maxBatchSize)
	if !ok {
		return ValidatedParams{}, &ValidationError{
			Field:   "batch_size",
			Message: fmt.Sprintf("Invalid batch_size. Must be between 1 and %d.", maxBatchSize),
		}
	}

	return ValidatedParams{
		Locale:     locale,
		Seed:       seed,
		BatchIndex: batchIndex,
		BatchSize:  batchSize,
		IncludeBio: ParseIncludeBio(raw.IncludeBio),
	}, nil
}

func nonNegativeInt(x any) (int64, bool) {
	i, ok := toInt64(x)
	if !ok || i < 0 {
		return 0, false
	}

	return i, true
}

func boundedInt(x any, lower, upper int) (int, bool) {
	i, ok := toInt64(x)
	if !ok || i < int64(lower) || i > int64(upper) {
		return 0, false
	}

	return int(i), true
}

// toInt64 coerces integers, integral-or-not floats (truncated toward zero),
// json.Number, base-10 strings and booleans (true is 1). Everything else is rejected.
func toInt64(x any) (int64, bool) {
	switch t := x.(type) {
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint:
		return uintToInt64(uint64(t))
	case uint8:
		return int64(t), true
	case uint16:
		return int64(t), true
	case uint32:
		return int64(t), true
	case uint64:
		return uintToInt64(t)
	case float32:
		return floatToInt64(float64(t))
	case float64:
		return floatToInt64(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, true
		}
		if f, err := t.Float64(); err == nil {
			return floatToInt64(f)
		}
		return 0, false
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	}

	return 0, false
}

func uintToInt64(u uint64) (int64, bool) {
	if u > math.MaxInt64 {
		return 0, false
	}

	return int64(u), true
}

func floatToInt64(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}

	truncated := math.Trunc(f)
	if truncated < math.MinInt64 || truncated >= math.MaxInt64 {
		return 0, false
	}

	return int64(truncated), true
}
