package promadapters

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/fakersql-go/fakersql/postgresengine"
)

type staticStats postgresengine.PoolStats

func (s staticStats) Stats() postgresengine.PoolStats {
	return postgresengine.PoolStats(s)
}

func Test_PoolCollector_Collect(t *testing.T) {
	// setup
	collector := NewPoolCollector(staticStats{
		Adapter:        "pgx.pool",
		Initialized:    true,
		MaxSize:        10,
		CheckedOut:     3,
		Idle:           2,
		Total:          5,
		AcquireCount:   42,
		ExhaustedCount: 1,
	})

	expected := `
# HELP fakersql_pool_checked_out Connections currently checked out
# TYPE fakersql_pool_checked_out gauge
fakersql_pool_checked_out{adapter="pgx.pool"} 3
# HELP fakersql_pool_exhausted_acquires_total Acquires that ran into the acquire timeout
# TYPE fakersql_pool_exhausted_acquires_total counter
fakersql_pool_exhausted_acquires_total{adapter="pgx.pool"} 1
`

	// act
	err := testutil.CollectAndCompare(
		collector,
		strings.NewReader(expected),
		"fakersql_pool_checked_out",
		"fakersql_pool_exhausted_acquires_total",
	)

	// assert
	assert.NoError(t, err)
	assert.Equal(t, 7, testutil.CollectAndCount(collector))
}
