package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/t77yq/bdmon/internal/config"
	"github.com/t77yq/bdmon/internal/model"
)

// Store persists metric batches and reads the collection catalog
type Store struct {
	logger *zap.Logger
	db     *sql.DB
	goqu   *goqu.Database
	driver string
}

// Open connects to the configured database. Connecting is retried
// cfg.Retry times, sleeping cfg.RetrySleep plus one more second per attempt.
func Open(ctx context.Context, cfg config.DB, logger *zap.Logger) (*Store, error) {
	logger = logger.Named("storage")

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, model.NewError(model.ErrDatabaseConnect, cfg.Driver, fmt.Errorf("failed to open database: %w", err))
	}

	attempts := cfg.Retry
	if attempts < 1 {
		attempts = 1
	}
	err = retry.Do(
		func() error {
			return db.PingContext(ctx)
		},
		retry.Context(ctx),
		retry.Attempts(uint(attempts)),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			return cfg.RetrySleep + time.Duration(n+1)*time.Second
		}),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("Failed to connect to database, retrying...",
				zap.Uint("attempt", n+1),
				zap.Error(err))
		}),
	)
	if err != nil {
		db.Close()
		return nil, model.NewError(model.ErrDatabaseConnect, cfg.Driver, err)
	}

	if cfg.Driver == "sqlite3" {
		// A single writer avoids SQLITE_BUSY between batch transactions
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	logger.Info("Connected to database", zap.String("driver", cfg.Driver))
	return &Store{
		logger: logger,
		db:     db,
		goqu:   goqu.New(cfg.Driver, db),
		driver: cfg.Driver,
	}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Sink inserts the batch in a single transaction and returns the row count.
// An empty batch is a no-op. Failures roll back and are not retried.
func (s *Store) Sink(ctx context.Context, batch model.Batch) (int, error) {
	if batch.Len() == 0 {
		s.logger.Debug("Skipping empty batch", zap.String("statement", string(batch.Statement)))
		return 0, nil
	}

	tbl, ok := tables[batch.Statement]
	if !ok {
		return 0, model.NewError(model.ErrPersistence, string(batch.Statement), fmt.Errorf("unknown statement"))
	}

	tx, err := s.goqu.BeginTx(ctx, nil)
	if err != nil {
		return 0, model.NewError(model.ErrPersistence, tbl.name, fmt.Errorf("failed to begin transaction: %w", err))
	}

	if err := s.insertRows(ctx, tx, tbl, batch.Rows); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Failed to roll back batch", zap.String("table", tbl.name), zap.Error(rbErr))
		}
		return 0, model.NewError(model.ErrPersistence, tbl.name, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, model.NewError(model.ErrPersistence, tbl.name, fmt.Errorf("failed to commit: %w", err))
	}

	s.logger.Debug("Inserted batch",
		zap.String("table", tbl.name),
		zap.Int("rows", batch.Len()))
	return batch.Len(), nil
}

// insertRows writes rows as multi-row INSERTs, chunked to stay under the
// bind parameter limit of the driver
func (s *Store) insertRows(ctx context.Context, tx *goqu.TxDatabase, tbl table, rows []model.Row) error {
	cols := tbl.cols()
	chunk := maxBindParams / len(cols)

	for start := 0; start < len(rows); start += chunk {
		end := min(start+chunk, len(rows))
		vals := make([][]interface{}, 0, end-start)
		for _, row := range rows[start:end] {
			args := row.Args()
			if len(args) != len(cols) {
				return fmt.Errorf("row has %d values, %s expects %d", len(args), tbl.name, len(cols))
			}
			vals = append(vals, args)
		}

		_, err := tx.Insert(tbl.name).
			Cols(cols...).
			Vals(vals...).
			Prepared(true).
			Executor().
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert into %s: %w", tbl.name, err)
		}
	}
	return nil
}

// LastSparkAppStart returns the start time text of the newest application
// stored for a history server host
func (s *Store) LastSparkAppStart(ctx context.Context, host string) (string, bool, error) {
	var startText sql.NullString
	found, err := s.goqu.From(sparkAppsTable).
		Select("start_ts_str").
		Where(goqu.C("shshost").Eq(host)).
		Order(goqu.C("start_ts").Desc()).
		Limit(1).
		Prepared(true).
		ScanValContext(ctx, &startText)
	if err != nil {
		return "", false, fmt.Errorf("failed to query last spark application: %w", err)
	}
	if !found || !startText.Valid || startText.String == "" {
		return "", false, nil
	}
	return startText.String, true, nil
}

// InsertSparkApp stores one application record. A record that already exists
// yields an error wrapping model.ErrDuplicate.
func (s *Store) InsertSparkApp(ctx context.Context, app model.SparkApp) error {
	_, err := s.goqu.Insert(sparkAppsTable).
		Cols("shshost", "app_id", "appname", "start_ts", "start_ts_str", "sparkuser", "time_taken").
		Vals([]interface{}{app.Host, app.ID, app.Name, app.StartedAt, app.StartText, app.User, app.Duration}).
		Prepared(true).
		Executor().
		ExecContext(ctx)
	if err == nil {
		return nil
	}
	if isDuplicate(err) {
		return model.NewError(model.ErrDuplicate, app.ID, err)
	}
	return model.NewError(model.ErrPersistence, sparkAppsTable, err)
}

// isDuplicate reports unique or primary key violations of either driver
func isDuplicate(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
