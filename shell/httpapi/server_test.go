package httpapi

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/fakersql-go/fakersql"
	"github.com/AntonStoeckl/fakersql-go/fakersql/postgresengine"
	"github.com/AntonStoeckl/fakersql-go/fakersql/promadapters"
	"github.com/AntonStoeckl/fakersql-go/testutil/postgresengine/helper"
)

type stubStats struct {
	stats postgresengine.PoolStats
}

func (s stubStats) Stats() postgresengine.PoolStats {
	return s.stats
}

func newTestHandler(t *testing.T, service Service, options ...Option) http.Handler {
	t.Helper()

	server, err := NewServer(service, options...)
	require.NoError(t, err)

	return server.Handler()
}

func serve(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, jsoniter.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())

	return body
}

func Test_NewServer_When_Service_Is_Nil(t *testing.T) {
	_, err := NewServer(nil)

	assert.Error(t, err)
}

func Test_NewServer_When_MaxBatchSize_Is_Invalid(t *testing.T) {
	_, err := NewServer(newFakeService(), WithMaxBatchSize(0))

	assert.Error(t, err)
}

func Test_Locales(t *testing.T) {
	// setup
	handler := newTestHandler(t, newFakeService())

	// act
	rec := serve(handler, httptest.NewRequest(http.MethodGet, "/api/locales", nil))

	// assert
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(
		t,
		`{"success":true,"data":[{"code":"en_US","name":"English (United States)"},{"code":"de_DE","name":"German (Germany)"}]}`,
		rec.Body.String(),
	)
}

func Test_Locales_When_Backing_Store_Fails(t *testing.T) { //nolint:funlen
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "pool exhausted",
			err:            errors.Join(fakersql.ErrPoolExhausted, errors.New("no connection within 5s")),
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "pool not initialized",
			err:            fakersql.ErrPoolNotInitialized,
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name: "procedure failure leaking a dsn",
			err: errors.Join(
				fakersql.ErrProcedureCallFailed,
				errors.New("dial postgres://faker_user:s3cret@db:5432/faker_db failed"),
			),
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "postgres://faker_user:***@db:5432/faker_db",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// setup
			service := newFakeService()
			service.localesErr = tc.err
			handler := newTestHandler(t, service)

			// act
			rec := serve(handler, httptest.NewRequest(http.MethodGet, "/api/locales", nil))

			// assert
			assert.Equal(t, tc.expectedStatus, rec.Code)

			body := decodeBody(t, rec)
			assert.Equal(t, false, body["success"])
			assert.NotContains(t, rec.Body.String(), "s3cret")
			assert.NotContains(t, body, "data")

			if tc.expectedError != "" {
				assert.Contains(t, body["error"], tc.expectedError)
			}
		})
	}
}

func Test_Unknown_Route_And_Wrong_Method(t *testing.T) {
	// setup
	handler := newTestHandler(t, newFakeService())

	// act
	notFound := serve(handler, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
	notAllowed := serve(handler, httptest.NewRequest(http.MethodDelete, "/api/locales", nil))

	// assert
	assert.Equal(t, http.StatusNotFound, notFound.Code)
	assert.Equal(t, http.StatusMethodNotAllowed, notAllowed.Code)
}

func Test_Health(t *testing.T) {
	// setup
	stats := stubStats{stats: postgresengine.PoolStats{Adapter: "pgx.pool", Initialized: true, MaxSize: 10, Idle: 1, Total: 1}}
	handler := newTestHandler(t, newFakeService(), WithPoolStats(stats))

	// act
	rec := serve(handler, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	// assert
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "healthy", body["status"])
	assert.InDelta(t, 2, body["locales_available"], 0)

	pool, ok := body["pool"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "pgx.pool", pool["adapter"])
	assert.InDelta(t, 10, pool["max_size"], 0)
}

func Test_Health_When_Backing_Store_Fails(t *testing.T) {
	// setup
	service := newFakeService()
	service.localesErr = errors.New("connection refused")
	handler := newTestHandler(t, service)

	// act
	rec := serve(handler, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	// assert
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"success":false,"status":"unhealthy","error":"connection refused"}`, rec.Body.String())
}

func Test_Index_Lists_Locales(t *testing.T) {
	// setup
	service := newFakeService()
	service.locales = append(service.locales, fakersql.Locale{Code: "xx_XX", Name: "<script>"})
	handler := newTestHandler(t, service)

	// act
	rec := serve(handler, httptest.NewRequest(http.MethodGet, "/", nil))

	// assert
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `<option value="de_DE">German (Germany) (de_DE)</option>`)
	assert.Contains(t, rec.Body.String(), "&lt;script&gt;")
	assert.NotContains(t, rec.Body.String(), "<script>")
}

func Test_Index_When_Backing_Store_Fails(t *testing.T) {
	// setup
	service := newFakeService()
	service.localesErr = fakersql.ErrPoolExhausted
	handler := newTestHandler(t, service)

	// act
	rec := serve(handler, httptest.NewRequest(http.MethodGet, "/", nil))

	// assert
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), fakersql.ErrPoolExhausted.Error())
}

func Test_Middleware_Assigns_Request_ID_And_Logs(t *testing.T) {
	// setup
	logSpy := helper.NewLogHandlerSpy(false)
	handler := newTestHandler(t, newFakeService(), WithLogger(slog.New(logSpy)))

	// act
	generated := serve(handler, httptest.NewRequest(http.MethodGet, "/api/locales", nil))

	req := httptest.NewRequest(http.MethodGet, "/api/locales", nil)
	req.Header.Set(headerRequestID, "caller-supplied-id")
	propagated := serve(handler, req)

	// assert
	id, err := uuid.Parse(generated.Header().Get(headerRequestID))
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())

	assert.Equal(t, "caller-supplied-id", propagated.Header().Get(headerRequestID))

	assert.True(t, logSpy.HasLogWithMessage(slog.LevelInfo, logMsgRequest).
		WithAttr(logAttrRequestID, "caller-supplied-id").
		WithAttr(logAttrStatus, "200").
		WithDurationMS().
		Assert())
	assert.Equal(t, 2, logSpy.GetRecordCount())
}

func Test_Metrics_Endpoint_Exposes_Request_Durations(t *testing.T) {
	// setup
	collector := promadapters.NewMetricsCollector(prometheus.NewRegistry(), nil)
	handler := newTestHandler(t, newFakeService(), WithMetrics(collector))

	// arrange
	serve(handler, httptest.NewRequest(http.MethodGet, "/api/locales", nil))

	// act
	rec := serve(handler, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	// assert
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), metricRequestDuration)
	assert.Contains(t, string(body), `route="GET /api/locales"`)
}

func Test_Metrics_Endpoint_Is_Absent_Without_Collector(t *testing.T) {
	// setup
	handler := newTestHandler(t, newFakeService())

	// act
	rec := serve(handler, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	// assert
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_StatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(fakersql.NewInvalidLocaleError("xx")))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(errors.Join(fakersql.ErrAcquireCanceled, errors.New("ctx"))))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}

func formRequest(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return req
}
