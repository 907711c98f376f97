package storage

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"go.uber.org/zap"

	"github.com/t77yq/bdmon/internal/model"
)

// Keeps multi-row inserts below SQLite's historical 999 variable limit
const maxBindParams = 990

const (
	catalogTable   = "t_coll_metrics"
	sparkAppsTable = "t_spark_apps"
)

type table struct {
	name    string
	columns []string
}

func (t table) cols() []interface{} {
	cols := make([]interface{}, len(t.columns))
	for i, c := range t.columns {
		cols[i] = c
	}
	return cols
}

// tables maps each statement to its table; the last three columns are always
// metric name, value and timestamp
var tables = map[model.Statement]table{
	model.StatementHostOS:            {"t_node_metrics", []string{"hostnode", "appname", "appcomponent", "metricname", "numvalue", "collection_ts"}},
	model.StatementHDFSNameNode:      {"t_hdfs_nn_metrics", []string{"namenode", "is_active", "modelertype", "metricname", "numvalue", "collection_ts"}},
	model.StatementHDFSDataNode:      {"t_hdfs_dn_metrics", []string{"datanode", "modelertype", "metricname", "numvalue", "collection_ts"}},
	model.StatementYARNResourceMgr:   {"t_yarn_rm_metrics", []string{"rmnode", "modelertype", "metricname", "numvalue", "collection_ts"}},
	model.StatementYARNNodeManager:   {"t_yarn_nm_metrics", []string{"nmnode", "modelertype", "metricname", "numvalue", "collection_ts"}},
	model.StatementHBaseMaster:       {"t_hmaster_metrics", []string{"masternode", "is_active", "modelertype", "metricname", "numvalue", "collection_ts"}},
	model.StatementHBaseRegionServer: {"t_hbase_rs_metrics", []string{"rsnode", "modelertype", "metricname", "numvalue", "collection_ts"}},
	model.StatementHBaseTable:        {"t_hbase_tbl_metrics", []string{"namespace", "tblname", "regionid", "metricname", "numvalue", "collection_ts"}},
	model.StatementZKNode:            {"t_zk_metrics", []string{"zknode", "zk_mode", "metricname", "numvalue", "collection_ts"}},
	model.StatementZKClient:          {"t_zk_conn_metrics", []string{"zknode", "client_hostnode", "metricname", "numvalue", "collection_ts"}},
	model.StatementHiveServer:        {"t_hive_metrics", []string{"hs2node", "modelertype", "metricname", "numvalue", "collection_ts"}},
	model.StatementSparkExecutor:     {"t_spark_executors", []string{"app_id", "sprkhost", "metricname", "numvalue", "execution_ts"}},
	model.StatementSparkStage:        {"t_spark_stages", []string{"app_id", "stageid", "metricname", "numvalue", "launch_ts"}},
	model.StatementRunSelf:           {"t_bdmon_metrics", []string{"bdmonhost", "metricname", "numvalue", "collection_ts"}},
}

// TableName returns the table a statement writes to
func TableName(stmt model.Statement) (string, bool) {
	if stmt == model.StatementSparkApp {
		return sparkAppsTable, true
	}
	t, ok := tables[stmt]
	return t.name, ok
}

// columnType returns the DDL type of a metric table column
func columnType(col string) string {
	switch col {
	case "numvalue":
		return "DOUBLE PRECISION NOT NULL"
	case "collection_ts", "execution_ts", "launch_ts":
		return "TIMESTAMP NOT NULL"
	case "stageid":
		return "BIGINT NOT NULL"
	case "is_active":
		return "CHAR(1) NOT NULL"
	case "regionid":
		return "TEXT"
	default:
		return "TEXT NOT NULL"
	}
}

func schema() []string {
	var stmts []string
	for _, stmt := range statementOrder {
		t := tables[stmt]
		ddl := "CREATE TABLE IF NOT EXISTS " + t.name + " ("
		for i, col := range t.columns {
			if i > 0 {
				ddl += ", "
			}
			ddl += col + " " + columnType(col)
		}
		stmts = append(stmts, ddl+")")
	}

	return append(stmts,
		`CREATE TABLE IF NOT EXISTS t_spark_apps (
			shshost TEXT NOT NULL,
			app_id TEXT NOT NULL,
			appname TEXT,
			start_ts TIMESTAMP,
			start_ts_str TEXT,
			sparkuser TEXT,
			time_taken DOUBLE PRECISION,
			PRIMARY KEY (shshost, app_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_spark_apps_start ON t_spark_apps(shshost, start_ts)`,
		`CREATE TABLE IF NOT EXISTS t_coll_metrics (
			appname TEXT NOT NULL,
			appcomponent TEXT NOT NULL,
			modelertype TEXT NOT NULL,
			mtypename TEXT,
			is_active CHAR(1) NOT NULL DEFAULT 'Y'
		)`,
	)
}

var statementOrder = []model.Statement{
	model.StatementHostOS,
	model.StatementHDFSNameNode,
	model.StatementHDFSDataNode,
	model.StatementYARNResourceMgr,
	model.StatementYARNNodeManager,
	model.StatementHBaseMaster,
	model.StatementHBaseRegionServer,
	model.StatementHBaseTable,
	model.StatementZKNode,
	model.StatementZKClient,
	model.StatementHiveServer,
	model.StatementSparkExecutor,
	model.StatementSparkStage,
	model.StatementRunSelf,
}

// Bootstrap creates the tables if they don't exist
func (s *Store) Bootstrap(ctx context.Context) error {
	for _, ddl := range schema() {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
	}
	s.logger.Info("Database schema ready")
	return nil
}

// LoadCatalog returns the active collection rules of the given services.
// An empty service list loads every active rule.
func (s *Store) LoadCatalog(ctx context.Context, services []string) (model.Catalog, error) {
	ds := s.goqu.From(catalogTable).
		Select(
			"appname",
			"appcomponent",
			"modelertype",
			goqu.COALESCE(goqu.C("mtypename"), "").As("mtypename"),
		).
		Where(goqu.C("is_active").Eq("Y")).
		Order(goqu.C("appname").Asc(), goqu.C("appcomponent").Asc(), goqu.C("modelertype").Asc())
	if len(services) > 0 {
		ds = ds.Where(goqu.C("appname").In(services))
	}

	var rules []model.Rule
	if err := ds.Prepared(true).ScanStructsContext(ctx, &rules); err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	s.logger.Info("Loaded collection catalog", zap.Int("rules", len(rules)))
	return model.NewCatalog(rules), nil
}

// SeedCatalog fills an empty catalog with the default rules
func (s *Store) SeedCatalog(ctx context.Context) error {
	count, err := s.goqu.From(catalogTable).CountContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to count catalog rules: %w", err)
	}
	if count > 0 {
		return nil
	}

	vals := make([][]interface{}, 0, len(defaultCatalog))
	for _, e := range defaultCatalog {
		vals = append(vals, []interface{}{e.service, e.component, e.typePrefix, e.namePredicate, flag(e.active)})
	}
	_, err = s.goqu.Insert(catalogTable).
		Cols("appname", "appcomponent", "modelertype", "mtypename", "is_active").
		Vals(vals...).
		Prepared(true).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}

	s.logger.Info("Seeded collection catalog", zap.Int("rules", len(vals)))
	return nil
}

func flag(active bool) string {
	if active {
		return "Y"
	}
	return "N"
}
