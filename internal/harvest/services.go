package harvest

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"github.com/t77yq/bdmon/internal/config"
	"github.com/t77yq/bdmon/internal/fetcher"
	"github.com/t77yq/bdmon/internal/model"
	"github.com/t77yq/bdmon/internal/normalize"
	"github.com/t77yq/bdmon/internal/statusclient"
	"github.com/t77yq/bdmon/internal/topology"
)

// Catalog component names
const (
	ComponentNameNode     = "namenode"
	ComponentDataNode     = "datanode"
	ComponentMaster       = "hmaster"
	ComponentRegionServer = "regionserver"
	ComponentRM           = "rm"
	ComponentNM           = "nm"
	ComponentHS2          = "hs2"
)

const zooKeeperPort = 2181

// leaderFollower harvests a service with one active leader and a worker tier
type leaderFollower struct {
	service string

	leaderComponent string
	leaderStatement model.Statement
	workerComponent string
	workerStatement model.Statement

	// activeColumn adds the Y/N flag to leader rows
	activeColumn bool
	// standbyRows also persists the rows of reachable standby candidates
	standbyRows  bool
	stopAtLeader bool

	isActive       func([]model.Document) bool
	extractWorkers func([]model.Document) []string
}

var (
	hdfsHarvester = &leaderFollower{
		service:         config.HDFS,
		leaderComponent: ComponentNameNode,
		leaderStatement: model.StatementHDFSNameNode,
		workerComponent: ComponentDataNode,
		workerStatement: model.StatementHDFSDataNode,
		activeColumn:    true,
		standbyRows:     true,
		isActive:        topology.HDFSActive,
		extractWorkers:  topology.HDFSWorkers,
	}

	hbaseHarvester = &leaderFollower{
		service:         config.HBase,
		leaderComponent: ComponentMaster,
		leaderStatement: model.StatementHBaseMaster,
		workerComponent: ComponentRegionServer,
		workerStatement: model.StatementHBaseRegionServer,
		activeColumn:    true,
		standbyRows:     true,
		isActive:        topology.HBaseActive,
		extractWorkers:  topology.HBaseWorkers,
	}

	yarnHarvester = &leaderFollower{
		service:         config.YARN,
		leaderComponent: ComponentRM,
		leaderStatement: model.StatementYARNResourceMgr,
		workerComponent: ComponentNM,
		workerStatement: model.StatementYARNNodeManager,
		stopAtLeader:    true,
		isActive:        topology.YARNActive,
		extractWorkers:  topology.YARNWorkers,
	}
)

// Harvest resolves the leader, persists the candidate rows, then visits
// every worker. Without an active leader the standby rows are still
// persisted and the topology error is returned.
func (h *leaderFollower) Harvest(ctx context.Context, run *RunContext) error {
	svc, _ := run.Config.Service(h.service)

	topo, resolveErr := run.Resolver.Resolve(ctx, topology.Spec{
		Service:        h.service,
		Candidates:     svc.Endpoints,
		Workers:        svc.Workers,
		WorkerPort:     svc.WorkerPort,
		Scheme:         svc.Scheme(),
		Path:           svc.URIPath,
		Timeout:        svc.Timeout,
		IsActive:       h.isActive,
		ExtractWorkers: h.extractWorkers,
		StopAtLeader:   h.stopAtLeader,
	})
	if topo == nil {
		return resolveErr
	}

	leaderRules := run.Catalog.Rules(h.service, h.leaderComponent)
	for _, c := range topo.Probed {
		if c.Err != nil {
			run.Fail(h.service, c.Endpoint, c.Err)
			continue
		}
		if !c.Active && !h.standbyRows {
			continue
		}

		nc := normalize.Context{
			Service:   h.service,
			Component: h.leaderComponent,
			Node:      topology.Host(c.Endpoint),
			Statement: h.leaderStatement,
			At:        run.Now(),
		}
		if h.activeColumn {
			active := c.Active
			nc.Active = &active
		}
		if err := run.Sink(ctx, normalize.Beans(c.Docs, leaderRules, nc)...); err != nil {
			return err
		}
	}
	if resolveErr != nil {
		return resolveErr
	}

	workerRules := run.Catalog.Rules(h.service, h.workerComponent)
	for _, worker := range topo.Workers {
		docs, err := run.Fetcher.FetchBeans(ctx, fetcher.Request{
			Scheme:   svc.Scheme(),
			Endpoint: worker,
			Path:     svc.URIPath,
			Timeout:  svc.Timeout,
		})
		if err != nil {
			run.Fail(h.service, worker, err)
			continue
		}

		nc := normalize.Context{
			Service:   h.service,
			Component: h.workerComponent,
			Node:      topology.Host(worker),
			Statement: h.workerStatement,
			At:        run.Now(),
		}
		if err := run.Sink(ctx, normalize.Beans(docs, workerRules, nc)...); err != nil {
			return err
		}
	}
	return nil
}

// harvestHive queries every HiveServer2 endpoint
func harvestHive(ctx context.Context, run *RunContext) error {
	svc := run.Config.Hive
	rules := run.Catalog.Rules(config.Hive, ComponentHS2)

	for _, endpoint := range svc.Endpoints {
		docs, err := run.Fetcher.FetchBeans(ctx, fetcher.Request{
			Scheme:   svc.Scheme(),
			Endpoint: endpoint,
			Path:     svc.URIPath,
			Timeout:  svc.Timeout,
		})
		if err != nil {
			run.Fail(config.Hive, endpoint, err)
			continue
		}

		nc := normalize.Context{
			Service:   config.Hive,
			Component: ComponentHS2,
			Node:      topology.Host(endpoint),
			At:        run.Now(),
		}
		if err := run.Sink(ctx, normalize.SQLEngine(docs, rules, nc)...); err != nil {
			return err
		}
	}
	return nil
}

// harvestZooKeeper sends the status command to every configured node
func harvestZooKeeper(ctx context.Context, run *RunContext) error {
	for _, endpoint := range run.Config.ZooKeeper.Endpoints {
		host, port, err := statusclient.SplitEndpoint(endpoint, zooKeeperPort)
		if err != nil {
			run.Fail(config.ZooKeeper, endpoint, err)
			continue
		}

		reply, err := run.Status.Query(ctx, host, port)
		if err != nil {
			run.Fail(config.ZooKeeper, endpoint, err)
			continue
		}

		status := normalize.CoordinationStatus(reply, host, run.Now())
		for _, entry := range status.Skipped {
			run.Warn(config.ZooKeeper, "Ignoring unparseable status entry",
				zap.String("endpoint", endpoint),
				zap.String("entry", entry))
		}
		run.Logger.Debug("Coordination node status",
			zap.String("endpoint", endpoint),
			zap.String("mode", status.Role))

		if err := run.Sink(ctx, status.Batches()...); err != nil {
			return err
		}
	}
	return nil
}

// harvestSpark lists the applications started since the newest stored one
// and collects executors and stages of each new application
func harvestSpark(ctx context.Context, run *RunContext) error {
	svc := run.Config.Spark

	for _, endpoint := range svc.Endpoints {
		host := topology.Host(endpoint)

		query := url.Values{}
		last, found, err := run.Store.LastSparkAppStart(ctx, host)
		switch {
		case err != nil:
			return model.NewError(model.ErrPersistence, host, err)
		case found:
			query.Set("minDate", last)
		case svc.MinDate != "":
			query.Set("minDate", svc.MinDate)
		}
		run.Logger.Info("Listing spark applications",
			zap.String("endpoint", endpoint),
			zap.String("min_date", query.Get("minDate")))

		var apps []normalize.SparkApplication
		err = run.Fetcher.FetchJSON(ctx, fetcher.Request{
			Scheme:   svc.Scheme(),
			Endpoint: endpoint,
			Path:     svc.URIPath + "/applications",
			Query:    query,
			Timeout:  svc.Timeout,
		}, &apps)
		if err != nil {
			run.Fail(config.Spark, endpoint, err)
			continue
		}

		for _, app := range apps {
			if err := harvestSparkApp(ctx, run, endpoint, host, app); err != nil {
				return err
			}
		}
	}
	return nil
}

// harvestSparkApp stores one application and its executor and stage rows.
// Only persistence failures of the metric batches are returned.
func harvestSparkApp(ctx context.Context, run *RunContext, endpoint, host string, app normalize.SparkApplication) error {
	svc := run.Config.Spark
	now := run.Now()

	record, ok := normalize.SparkApp(host, app, now)
	if !ok {
		run.Logger.Debug("Skipping spark application without attempts", zap.String("app_id", app.ID))
		return nil
	}

	// A duplicate means an earlier pass captured the application
	if err := run.Store.InsertSparkApp(ctx, record); err != nil {
		run.Fail(config.Spark, endpoint, err)
		return nil
	}

	appPath := svc.URIPath + "/applications/" + url.PathEscape(app.ID)
	req := func(path string) fetcher.Request {
		return fetcher.Request{
			Scheme:   svc.Scheme(),
			Endpoint: endpoint,
			Path:     appPath + path,
			Timeout:  svc.Timeout,
		}
	}

	var executors []map[string]interface{}
	if err := run.Fetcher.FetchJSON(ctx, req("/executors"), &executors); err != nil {
		run.Fail(config.Spark, endpoint, err)
	} else if err := run.Sink(ctx, normalize.SparkExecutors(app.ID, executors, now)); err != nil {
		return err
	}

	var stages []map[string]interface{}
	if err := run.Fetcher.FetchJSON(ctx, req("/stages"), &stages); err != nil {
		run.Fail(config.Spark, endpoint, err)
		return nil
	}
	batch, skipped := normalize.SparkStages(app.ID, stages)
	if len(skipped) > 0 {
		run.Logger.Info("Skipping stages that never ran",
			zap.String("app_id", app.ID),
			zap.Strings("stage_ids", skipped))
	}
	return run.Sink(ctx, batch)
}
