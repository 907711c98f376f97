package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/t77yq/bdmon/internal/config"
	"github.com/t77yq/bdmon/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	cfg := config.DB{
		Driver: "sqlite3",
		DSN:    filepath.Join(t.TempDir(), "bdmon.db"),
		Retry:  1,
	}
	store, err := Open(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.Bootstrap(context.Background()))
	return store
}

func countRows(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestSink(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("InsertsBatch", func(t *testing.T) {
		batch := model.Batch{Statement: model.StatementHDFSNameNode}
		for i := 0; i < 3; i++ {
			batch.Rows = append(batch.Rows, model.Row{
				Context: []interface{}{"nn1", "Y", "JvmMetrics"},
				Metric:  "MemHeapUsedM",
				Value:   float64(i),
				At:      now,
			})
		}

		n, err := store.Sink(ctx, batch)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.Equal(t, 3, countRows(t, store, "t_hdfs_nn_metrics"))
	})

	t.Run("EmptyBatchIsNoop", func(t *testing.T) {
		n, err := store.Sink(ctx, model.Batch{Statement: model.StatementZKNode})
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Zero(t, countRows(t, store, "t_zk_metrics"))
	})

	t.Run("LargeBatchIsChunked", func(t *testing.T) {
		batch := model.Batch{Statement: model.StatementRunSelf}
		for i := 0; i < 1000; i++ {
			batch.Rows = append(batch.Rows, model.Row{
				Context: []interface{}{"bdmon1"},
				Metric:  "error",
				Value:   float64(i),
				At:      now,
			})
		}

		n, err := store.Sink(ctx, batch)
		require.NoError(t, err)
		assert.Equal(t, 1000, n)
		assert.Equal(t, 1000, countRows(t, store, "t_bdmon_metrics"))
	})

	t.Run("FailedBatchRollsBack", func(t *testing.T) {
		batch := model.Batch{Statement: model.StatementYARNNodeManager, Rows: []model.Row{
			{Context: []interface{}{"nm1", "JvmMetrics"}, Metric: "GcCount", Value: 1, At: now},
			{Context: []interface{}{"nm1"}, Metric: "GcCount", Value: 2, At: now},
		}}

		n, err := store.Sink(ctx, batch)
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrPersistence))
		assert.Zero(t, n)
		assert.Zero(t, countRows(t, store, "t_yarn_nm_metrics"))
	})

	t.Run("UnknownStatement", func(t *testing.T) {
		_, err := store.Sink(ctx, model.Batch{Statement: "bogus", Rows: []model.Row{{Metric: "x"}}})
		assert.True(t, errors.Is(err, model.ErrPersistence))
	})
}

func TestSparkApps(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, found, err := store.LastSparkAppStart(ctx, "shs1")
	require.NoError(t, err)
	assert.False(t, found)

	older := model.SparkApp{
		Host:      "shs1",
		ID:        "app-1",
		Name:      "etl",
		StartedAt: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		StartText: "2024-01-01T10:00:00.000GMT",
		User:      "spark",
		Duration:  1200,
	}
	newer := older
	newer.ID = "app-2"
	newer.StartedAt = older.StartedAt.Add(time.Hour)
	newer.StartText = "2024-01-01T11:00:00.000GMT"

	require.NoError(t, store.InsertSparkApp(ctx, newer))
	require.NoError(t, store.InsertSparkApp(ctx, older))

	err = store.InsertSparkApp(ctx, older)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrDuplicate))
	assert.Equal(t, model.SeverityWarning, model.Classify(err))

	start, found, err := store.LastSparkAppStart(ctx, "shs1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, newer.StartText, start)

	_, found, err = store.LastSparkAppStart(ctx, "shs2")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCatalog(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SeedCatalog(ctx))
	seeded := countRows(t, store, catalogTable)
	assert.Equal(t, len(defaultCatalog), seeded)

	// Seeding a populated catalog leaves it alone
	require.NoError(t, store.SeedCatalog(ctx))
	assert.Equal(t, seeded, countRows(t, store, catalogTable))

	catalog, err := store.LoadCatalog(ctx, []string{"hdfs", "hive"})
	require.NoError(t, err)
	assert.NotContains(t, catalog, "hbase")

	nn := catalog.Rules("hdfs", "namenode")
	require.NotEmpty(t, nn)
	for _, r := range nn {
		assert.NotEqual(t, "UgiMetrics", r.TypePrefix)
	}

	timers := model.Match(catalog.Rules("hive", "hs2"), "com.codahale.metrics.JmxReporter$JmxTimer")
	require.NotEmpty(t, timers)
	var predicates []string
	for _, r := range timers {
		predicates = append(predicates, r.NamePredicate)
	}
	assert.Contains(t, predicates, "metrics:name=api_runTasks")
	assert.NotContains(t, predicates, "metrics:name=api_compile")

	all, err := store.LoadCatalog(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestTableName(t *testing.T) {
	name, ok := TableName(model.StatementSparkApp)
	assert.True(t, ok)
	assert.Equal(t, "t_spark_apps", name)

	name, ok = TableName(model.StatementZKClient)
	assert.True(t, ok)
	assert.Equal(t, "t_zk_conn_metrics", name)

	_, ok = TableName("bogus")
	assert.False(t, ok)
}
