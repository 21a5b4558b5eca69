package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newManualMeter returns a meter whose measurements can be pulled on demand
// through the reader.
func newManualMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return reader, provider
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func sumValue(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func openMockGorm(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 mockDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestDefaultDBMetricsConfig(t *testing.T) {
	cfg := DefaultDBMetricsConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThreshold)
	assert.Equal(t, 15*time.Second, cfg.PoolStatsInterval)
}

func TestNewDBMetrics(t *testing.T) {
	t.Run("creates all instruments", func(t *testing.T) {
		_, provider := newManualMeter()
		m, err := NewDBMetrics(provider.Meter("test"), DefaultDBMetricsConfig(), zap.NewNop())

		require.NoError(t, err)
		assert.NotNil(t, m.poolConnections)
		assert.NotNil(t, m.poolConnectionsMax)
		assert.NotNil(t, m.queryTotal)
		assert.NotNil(t, m.queryDuration)
		assert.NotNil(t, m.slowQueryTotal)
	})

	t.Run("zero values get defaults", func(t *testing.T) {
		_, provider := newManualMeter()
		m, err := NewDBMetrics(provider.Meter("test"), DBMetricsConfig{Enabled: true}, zap.NewNop())

		require.NoError(t, err)
		assert.Equal(t, 200*time.Millisecond, m.config.SlowQueryThreshold)
		assert.Equal(t, 15*time.Second, m.config.PoolStatsInterval)
	})

	t.Run("nil logger is replaced with nop", func(t *testing.T) {
		_, provider := newManualMeter()
		m, err := NewDBMetrics(provider.Meter("test"), DefaultDBMetricsConfig(), nil)

		require.NoError(t, err)
		assert.NotNil(t, m.logger)
	})
}

func TestDBMetrics_RecordQuery(t *testing.T) {
	newMetrics := func(t *testing.T) (*DBMetrics, *sdkmetric.ManualReader) {
		t.Helper()
		reader, provider := newManualMeter()
		m, err := NewDBMetrics(provider.Meter("test"), DefaultDBMetricsConfig(), zap.NewNop())
		require.NoError(t, err)
		return m, reader
	}

	t.Run("counts query and records duration", func(t *testing.T) {
		m, reader := newMetrics(t)

		m.RecordQuery(context.Background(), "SELECT", "campaigns", 5*time.Millisecond, nil)
		m.RecordQuery(context.Background(), "INSERT", "sync_jobs", 3*time.Millisecond, nil)

		rm := collectMetrics(t, reader)

		total, ok := findMetric(rm, "db_query_total")
		require.True(t, ok)
		assert.Equal(t, int64(2), sumValue(t, total))

		duration, ok := findMetric(rm, "db_query_duration_seconds")
		require.True(t, ok)
		hist, ok := duration.Data.(metricdata.Histogram[float64])
		require.True(t, ok)
		var count uint64
		for _, dp := range hist.DataPoints {
			count += dp.Count
		}
		assert.Equal(t, uint64(2), count)
	})

	t.Run("query over threshold counts as slow", func(t *testing.T) {
		m, reader := newMetrics(t)

		m.RecordQuery(context.Background(), "SELECT", "bulk_operations", 500*time.Millisecond, nil)

		rm := collectMetrics(t, reader)
		slow, ok := findMetric(rm, "db_slow_query_total")
		require.True(t, ok)
		assert.Equal(t, int64(1), sumValue(t, slow))
	})

	t.Run("query under threshold is not slow", func(t *testing.T) {
		m, reader := newMetrics(t)

		m.RecordQuery(context.Background(), "SELECT", "campaigns", time.Millisecond, nil)

		rm := collectMetrics(t, reader)
		_, ok := findMetric(rm, "db_slow_query_total")
		assert.False(t, ok)
	})

	t.Run("operation is normalized to upper case", func(t *testing.T) {
		m, reader := newMetrics(t)

		m.RecordQuery(context.Background(), "select", "campaigns", time.Millisecond, nil)

		rm := collectMetrics(t, reader)
		total, ok := findMetric(rm, "db_query_total")
		require.True(t, ok)
		sum, ok := total.Data.(metricdata.Sum[int64])
		require.True(t, ok)
		require.Len(t, sum.DataPoints, 1)
		op, ok := sum.DataPoints[0].Attributes.Value(AttrDBOperation)
		require.True(t, ok)
		assert.Equal(t, "SELECT", op.AsString())
	})

	t.Run("empty operation becomes UNKNOWN", func(t *testing.T) {
		m, reader := newMetrics(t)

		m.RecordQuery(context.Background(), "", "campaigns", time.Millisecond, nil)

		rm := collectMetrics(t, reader)
		total, ok := findMetric(rm, "db_query_total")
		require.True(t, ok)
		sum, ok := total.Data.(metricdata.Sum[int64])
		require.True(t, ok)
		require.Len(t, sum.DataPoints, 1)
		op, ok := sum.DataPoints[0].Attributes.Value(AttrDBOperation)
		require.True(t, ok)
		assert.Equal(t, "UNKNOWN", op.AsString())
	})

	t.Run("empty table on a slow query becomes unknown", func(t *testing.T) {
		m, reader := newMetrics(t)

		m.RecordQuery(context.Background(), "SELECT", "", time.Second, nil)

		rm := collectMetrics(t, reader)
		slow, ok := findMetric(rm, "db_slow_query_total")
		require.True(t, ok)
		sum, ok := slow.Data.(metricdata.Sum[int64])
		require.True(t, ok)
		require.Len(t, sum.DataPoints, 1)
		table, ok := sum.DataPoints[0].Attributes.Value(AttrDBTable)
		require.True(t, ok)
		assert.Equal(t, "unknown", table.AsString())
	})
}

func TestDBMetrics_PoolStats(t *testing.T) {
	t.Run("collects stats on the interval", func(t *testing.T) {
		reader, provider := newManualMeter()
		m, err := NewDBMetrics(provider.Meter("test"), DBMetricsConfig{
			Enabled:           true,
			PoolStatsInterval: 50 * time.Millisecond,
		}, zap.NewNop())
		require.NoError(t, err)

		mockDB, _, err := sqlmock.New()
		require.NoError(t, err)
		defer mockDB.Close()

		m.SetSQLDB(mockDB)
		m.StartPoolStatsCollection(context.Background())
		time.Sleep(120 * time.Millisecond)
		m.Stop()

		rm := collectMetrics(t, reader)
		_, ok := findMetric(rm, "db_pool_connections")
		assert.True(t, ok)
		_, ok = findMetric(rm, "db_pool_connections_max")
		assert.True(t, ok)
	})

	t.Run("does not start without a sql.DB", func(t *testing.T) {
		_, provider := newManualMeter()
		m, err := NewDBMetrics(provider.Meter("test"), DefaultDBMetricsConfig(), zap.NewNop())
		require.NoError(t, err)

		m.StartPoolStatsCollection(context.Background())
		assert.NotPanics(t, m.Stop)
	})

	t.Run("stops on context cancellation", func(t *testing.T) {
		_, provider := newManualMeter()
		m, err := NewDBMetrics(provider.Meter("test"), DBMetricsConfig{
			Enabled:           true,
			PoolStatsInterval: 10 * time.Millisecond,
		}, zap.NewNop())
		require.NoError(t, err)

		mockDB, _, err := sqlmock.New()
		require.NoError(t, err)
		defer mockDB.Close()

		ctx, cancel := context.WithCancel(context.Background())
		m.SetSQLDB(mockDB)
		m.StartPoolStatsCollection(ctx)
		cancel()

		done := make(chan struct{})
		go func() {
			m.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("collection goroutine did not exit after cancel")
		}
	})
}

func TestDBMetrics_StopIsIdempotent(t *testing.T) {
	_, provider := newManualMeter()
	m, err := NewDBMetrics(provider.Meter("test"), DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)

	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	m.SetSQLDB(mockDB)
	m.StartPoolStatsCollection(context.Background())

	assert.NotPanics(t, func() {
		m.Stop()
		m.Stop()
		m.Stop()
	})
}

func TestDBMetricsPlugin(t *testing.T) {
	t.Run("name", func(t *testing.T) {
		assert.Equal(t, "db_metrics", NewDBMetricsPlugin(nil, zap.NewNop()).Name())
	})

	t.Run("registers callbacks and records queries", func(t *testing.T) {
		reader, provider := newManualMeter()
		m, err := NewDBMetrics(provider.Meter("test"), DefaultDBMetricsConfig(), zap.NewNop())
		require.NoError(t, err)

		db, mock := openMockGorm(t)
		require.NoError(t, db.Use(NewDBMetricsPlugin(m, zap.NewNop())))

		mock.ExpectQuery(`SELECT \* FROM "campaigns"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "launch"))

		var row struct {
			ID   int
			Name string
		}
		require.NoError(t, db.Table("campaigns").Take(&row).Error)

		rm := collectMetrics(t, reader)
		total, ok := findMetric(rm, "db_query_total")
		require.True(t, ok)
		assert.Equal(t, int64(1), sumValue(t, total))
	})
}

func TestDetectOperationType(t *testing.T) {
	cases := []struct {
		sql  string
		want string
	}{
		{"SELECT * FROM campaigns", "SELECT"},
		{"  select id from sync_jobs", "SELECT"},
		{"INSERT INTO creatives VALUES ($1)", "INSERT"},
		{"update campaigns set status = $1", "UPDATE"},
		{"DELETE FROM platform_bindings", "DELETE"},
		{"TRUNCATE webhook_events", "OTHER"},
		{"", "OTHER"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, detectOperationType(tc.sql), tc.sql)
	}
}

func TestRegisterDBMetrics(t *testing.T) {
	t.Run("disabled config returns nil metrics", func(t *testing.T) {
		db, _ := openMockGorm(t)
		m, err := RegisterDBMetrics(db, nil, DBMetricsConfig{Enabled: false}, zap.NewNop())

		require.NoError(t, err)
		assert.Nil(t, m)
	})

	t.Run("nil meter provider returns nil metrics", func(t *testing.T) {
		db, _ := openMockGorm(t)
		m, err := RegisterDBMetrics(db, nil, DefaultDBMetricsConfig(), zap.NewNop())

		require.NoError(t, err)
		assert.Nil(t, m)
	})

	t.Run("enabled provider wires metrics and plugin", func(t *testing.T) {
		_, provider := newManualMeter()
		mp := &MeterProvider{
			provider: provider,
			logger:   zap.NewNop(),
			config:   MetricsConfig{Enabled: true},
		}

		db, _ := openMockGorm(t)
		m, err := RegisterDBMetrics(db, mp, DefaultDBMetricsConfig(), zap.NewNop())

		require.NoError(t, err)
		require.NotNil(t, m)
		assert.NotNil(t, m.sqlDB)
		m.Stop()
	})
}

func TestDBMetrics_ConcurrentRecordQuery(t *testing.T) {
	reader, provider := newManualMeter()
	m, err := NewDBMetrics(provider.Meter("test"), DefaultDBMetricsConfig(), zap.NewNop())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordQuery(context.Background(), "SELECT", "campaigns", time.Millisecond, nil)
		}()
	}
	wg.Wait()

	rm := collectMetrics(t, reader)
	total, ok := findMetric(rm, "db_query_total")
	require.True(t, ok)
	assert.Equal(t, int64(100), sumValue(t, total))
}
