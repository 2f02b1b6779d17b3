package httpapi

import (
	"errors"
	"mime"
	"net/http"
	"net/url"

	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/fakersql-go/fakersql"
)

const (
	paramLocale     = "locale"
	paramSeed       = "seed"
	paramBatchIndex = "batch_index"
	paramBatchSize  = "batch_size"
	paramIncludeBio = "include_bio"
	paramIterations = "iterations"

	defaultLocale     = "en_US"
	defaultSeed       = "12345"
	defaultBatchIndex = "0"
	defaultBatchSize  = "10"
	defaultIncludeBio = "false"
	defaultIterations = "100"

	maxBodyBytes = 1 << 20
)

var numberJSON = jsoniter.Config{UseNumber: true}.Froze()

// paramSource looks up one request parameter.
type paramSource func(key string) (any, bool)

func valuesSource(values url.Values) paramSource {
	return func(key string) (any, bool) {
		if !values.Has(key) {
			return nil, false
		}

		return values.Get(key), true
	}
}

func mapSource(m map[string]any) paramSource {
	return func(key string) (any, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func (p paramSource) get(key string, fallback any) any {
	if v, ok := p(key); ok && v != nil {
		return v
	}

	return fallback
}

// generationSource reads from the query string for GET and from a JSON body or a form for POST.
func generationSource(w http.ResponseWriter, r *http.Request) (paramSource, error) {
	if r.Method != http.MethodPost {
		return valuesSource(r.URL.Query()), nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var body map[string]any
		if err := numberJSON.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, &fakersql.ValidationError{Field: "body", Message: "Invalid JSON body."}
		}

		if body != nil {
			return mapSource(body), nil
		}
	}

	if err := r.ParseForm(); err != nil {
		return nil, errors.Join(&fakersql.ValidationError{Field: "body", Message: "Invalid form body."}, err)
	}

	return valuesSource(r.PostForm), nil
}

func rawGenerationParams(source paramSource) fakersql.RawParams {
	return fakersql.RawParams{
		Locale:     source.get(paramLocale, defaultLocale),
		Seed:       source.get(paramSeed, defaultSeed),
		BatchIndex: source.get(paramBatchIndex, defaultBatchIndex),
		BatchSize:  source.get(paramBatchSize, defaultBatchSize),
		IncludeBio: source.get(paramIncludeBio, defaultIncludeBio),
	}
}
