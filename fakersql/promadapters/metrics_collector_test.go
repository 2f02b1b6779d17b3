package promadapters

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_MetricsCollector_IncrementCounter(t *testing.T) {
	// setup
	collector := NewMetricsCollector(prometheus.NewRegistry(), nil)
	labels := map[string]string{"procedure": "generate_fake_users", "error_type": "query"}

	// act
	collector.IncrementCounter("fakersql_procedure_errors_total", labels)
	collector.IncrementCounter("fakersql_procedure_errors_total", labels)

	// assert
	counter := collector.counters["fakersql_procedure_errors_total"]
	require.NotNil(t, counter)
	assert.Equal(t, []string{"error_type", "procedure"}, counter.labels)
	assert.InDelta(t, 2.0, testutil.ToFloat64(counter.vec.WithLabelValues("query", "generate_fake_users")), 0.0001)
}

func Test_MetricsCollector_RecordDuration_And_RecordValue(t *testing.T) {
	// setup
	registry := prometheus.NewRegistry()
	collector := NewMetricsCollector(registry, []float64{0.01, 0.1, 1})

	// act
	collector.RecordDuration("fakersql_unit_of_work_duration_seconds", 20*time.Millisecond, map[string]string{"status": "success"})
	collector.RecordDuration("fakersql_unit_of_work_duration_seconds", 2*time.Second, map[string]string{"status": "success"})
	collector.RecordValue("fakersql_procedure_rows_returned", 25, map[string]string{"procedure": "get_available_locales"})

	// assert
	count, err := testutil.GatherAndCount(registry, "fakersql_unit_of_work_duration_seconds", "fakersql_procedure_rows_returned")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	gauge := collector.gauges["fakersql_procedure_rows_returned"]
	require.NotNil(t, gauge)
	assert.InDelta(t, 25.0, testutil.ToFloat64(gauge.vec.WithLabelValues("get_available_locales")), 0.0001)
}

func Test_MetricsCollector_Label_Names_Are_Fixed_By_First_Observation(t *testing.T) {
	// setup
	collector := NewMetricsCollector(prometheus.NewRegistry(), nil)

	// act
	collector.IncrementCounter("fakersql_pool_exhausted_total", map[string]string{"operation": "acquire"})
	collector.IncrementCounter("fakersql_pool_exhausted_total", map[string]string{"unexpected": "x"})

	// assert
	counter := collector.counters["fakersql_pool_exhausted_total"]
	require.NotNil(t, counter)
	assert.InDelta(t, 1.0, testutil.ToFloat64(counter.vec.WithLabelValues("acquire")), 0.0001)
	assert.InDelta(t, 1.0, testutil.ToFloat64(counter.vec.WithLabelValues("")), 0.0001)
}

func Test_MetricsCollector_When_Name_Is_Already_Registered(t *testing.T) {
	// setup
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "fakersql_taken_total", Help: "taken"}))
	collector := NewMetricsCollector(registry, nil)

	// act + assert
	assert.NotPanics(t, func() {
		collector.IncrementCounter("fakersql_taken_total", map[string]string{"status": "success"})
	})
	assert.NotContains(t, collector.counters, "fakersql_taken_total")
}

func Test_MetricsCollector_Handler(t *testing.T) {
	// setup
	collector := NewMetricsCollector(nil, nil)
	collector.IncrementCounter("fakersql_pool_acquire_canceled_total", map[string]string{"operation": "acquire"})

	// act
	recorder := httptest.NewRecorder()
	collector.Handler().ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))

	// assert
	body, err := io.ReadAll(recorder.Result().Body)
	require.NoError(t, err)
	assert.Equal(t, 200, recorder.Code)
	assert.Contains(t, string(body), `fakersql_pool_acquire_canceled_total{operation="acquire"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
