package harvest

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/t77yq/bdmon/internal/config"
	"github.com/t77yq/bdmon/internal/fetcher"
	"github.com/t77yq/bdmon/internal/model"
	"github.com/t77yq/bdmon/internal/monitor"
	"github.com/t77yq/bdmon/internal/topology"
)

// Fetcher retrieves metrics documents over HTTP
type Fetcher interface {
	FetchBeans(ctx context.Context, req fetcher.Request) ([]model.Document, error)
	FetchJSON(ctx context.Context, req fetcher.Request, out interface{}) error
}

// StatusQuerier sends the status command to a coordination node
type StatusQuerier interface {
	Query(ctx context.Context, host string, port int) (string, error)
}

// Store persists batches and reads harvest state
type Store interface {
	Sink(ctx context.Context, batch model.Batch) (int, error)
	LoadCatalog(ctx context.Context, services []string) (model.Catalog, error)
	LastSparkAppStart(ctx context.Context, host string) (string, bool, error)
	InsertSparkApp(ctx context.Context, app model.SparkApp) error
}

// HostSampler reads the resource usage of the harvester host
type HostSampler interface {
	Sample(ctx context.Context) (monitor.HostUsage, error)
}

// Harvester collects one service. Per-node failures are counted on the run
// and skipped; a returned error ends the service and is counted by the caller.
type Harvester interface {
	Harvest(ctx context.Context, run *RunContext) error
}

// HarvesterFunc adapts a function to the Harvester interface
type HarvesterFunc func(ctx context.Context, run *RunContext) error

// Harvest calls f(ctx, run)
func (f HarvesterFunc) Harvest(ctx context.Context, run *RunContext) error {
	return f(ctx, run)
}

// Deps are the collaborators shared by every run
type Deps struct {
	Fetcher Fetcher
	Status  StatusQuerier
	Store   Store
	// Sampler is optional; without it no host usage rows are written
	Sampler HostSampler
	Metrics *monitor.Metrics
}

// RunContext is created at the start of a pass and discarded at its end
type RunContext struct {
	ID       string
	Config   *config.Config
	Logger   *zap.Logger
	Catalog  model.Catalog
	Stats    *RunStats
	Fetcher  Fetcher
	Status   StatusQuerier
	Store    Store
	Resolver *topology.Resolver

	metrics *monitor.Metrics
	now     func() time.Time
}

// Now returns the collection timestamp for rows fetched at this moment
func (r *RunContext) Now() time.Time {
	return r.now()
}

// Fail counts a per-node failure and logs it
func (r *RunContext) Fail(service, endpoint string, err error) {
	sev := r.Stats.Record(err)
	r.metrics.RecordFailure(service, sev.String())

	fields := []zap.Field{
		zap.String("service", service),
		zap.String("endpoint", endpoint),
		zap.Error(err),
	}
	if sev == model.SeverityWarning {
		r.Logger.Warn("Skipping node", fields...)
	} else {
		r.Logger.Error("Skipping node", fields...)
	}
}

// Warn counts a warning without an error value
func (r *RunContext) Warn(service, msg string, fields ...zap.Field) {
	r.Stats.Warn()
	r.metrics.RecordFailure(service, model.SeverityWarning.String())
	r.Logger.Warn(msg, append(fields, zap.String("service", service))...)
}

// Sink persists the batches in order, stopping at the first failure
func (r *RunContext) Sink(ctx context.Context, batches ...model.Batch) error {
	for _, batch := range batches {
		n, err := r.Store.Sink(ctx, batch)
		if err != nil {
			return err
		}
		r.metrics.RecordRows(string(batch.Statement), n)
	}
	return nil
}

// Report summarizes a finished pass
type Report struct {
	RunID string
	Stats *RunStats
	// Err aggregates the service-level failures of the pass
	Err error
}

// Orchestrator runs harvest passes over the configured services
type Orchestrator struct {
	logger   *zap.Logger
	cfg      *config.Config
	deps     Deps
	resolver *topology.Resolver
	registry map[string]Harvester
	hostname string
	now      func() time.Time
}

// New creates an orchestrator with every built-in service registered
func New(cfg *config.Config, deps Deps, logger *zap.Logger) *Orchestrator {
	if deps.Metrics == nil {
		deps.Metrics = monitor.NewMetrics()
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	o := &Orchestrator{
		logger:   logger.Named("harvest"),
		cfg:      cfg,
		deps:     deps,
		resolver: topology.NewResolver(deps.Fetcher, logger),
		registry: make(map[string]Harvester),
		hostname: hostname,
		now:      time.Now,
	}

	o.Register(config.HDFS, hdfsHarvester)
	o.Register(config.HBase, hbaseHarvester)
	o.Register(config.YARN, yarnHarvester)
	o.Register(config.ZooKeeper, HarvesterFunc(harvestZooKeeper))
	o.Register(config.Hive, HarvesterFunc(harvestHive))
	o.Register(config.Spark, HarvesterFunc(harvestSpark))
	return o
}

// Register binds a harvester to a service id, replacing any previous one
func (o *Orchestrator) Register(service string, h Harvester) {
	o.registry[service] = h
}

// Metrics returns the prometheus mirror of the run counters
func (o *Orchestrator) Metrics() *monitor.Metrics {
	return o.deps.Metrics
}

// Run executes one harvest pass over cfg.Apps. Service failures are counted
// and aggregated into the report; the returned error is set only when the
// catalog cannot be loaded or the run-self record cannot be persisted.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	runID := uuid.NewString()
	logger := o.logger.With(zap.String("run_id", runID))

	catalog, err := o.deps.Store.LoadCatalog(ctx, o.cfg.Apps)
	if err != nil {
		logger.Error("Failed to load collection catalog", zap.Error(err))
		return nil, err
	}

	run := &RunContext{
		ID:       runID,
		Config:   o.cfg,
		Logger:   logger,
		Catalog:  catalog,
		Stats:    &RunStats{},
		Fetcher:  o.deps.Fetcher,
		Status:   o.deps.Status,
		Store:    o.deps.Store,
		Resolver: o.resolver,
		metrics:  o.deps.Metrics,
		now:      o.now,
	}

	var result *multierror.Error
	start := o.now()
	logger.Info("Starting harvest pass", zap.Strings("apps", o.cfg.Apps))

	for _, service := range o.cfg.Apps {
		serviceStart := o.now()
		if err := o.harvestService(ctx, run, service); err != nil {
			sev := run.Stats.Record(err)
			run.metrics.RecordFailure(service, sev.String())
			logger.Error("Failed to harvest service",
				zap.String("service", service),
				zap.Error(err))
			result = multierror.Append(result, fmt.Errorf("%s: %w", service, err))
		}

		elapsed := o.now().Sub(serviceStart)
		run.Stats.SetDuration(service, elapsed)
		run.metrics.RecordServiceDuration(service, elapsed.Seconds())
		logger.Info("Finished service",
			zap.String("service", service),
			zap.Duration("elapsed", elapsed))
	}

	end := o.now()
	run.Stats.Total = end.Sub(start).Seconds()
	run.metrics.RunDuration.Set(run.Stats.Total)

	usage := o.sampleHost(ctx, logger)
	if _, err := o.deps.Store.Sink(ctx, run.Stats.Batch(o.hostname, end, usage)); err != nil {
		logger.Error("Failed to persist run metrics", zap.Error(err))
		return nil, fmt.Errorf("failed to persist run metrics: %w", err)
	}
	run.metrics.Runs.Inc()

	report := &Report{RunID: runID, Stats: run.Stats, Err: result.ErrorOrNil()}
	logger.Info("Harvest pass complete",
		zap.Int("errors", run.Stats.Errors),
		zap.Int("warnings", run.Stats.Warnings),
		zap.Float64("total_seconds", run.Stats.Total),
		zap.NamedError("failures", report.Err))
	return report, nil
}

func (o *Orchestrator) harvestService(ctx context.Context, run *RunContext, service string) error {
	h, ok := o.registry[service]
	if !ok {
		return model.NewError(model.ErrUnknownService, service, nil)
	}
	return h.Harvest(ctx, run)
}

func (o *Orchestrator) sampleHost(ctx context.Context, logger *zap.Logger) *monitor.HostUsage {
	if o.deps.Sampler == nil {
		return nil
	}
	usage, err := o.deps.Sampler.Sample(ctx)
	if err != nil {
		logger.Warn("Failed to sample host usage", zap.Error(err))
		return nil
	}
	o.deps.Metrics.RecordHostUsage(usage)
	return &usage
}
