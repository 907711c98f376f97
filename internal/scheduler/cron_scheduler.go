package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ErrAlreadyScheduled is returned when a second pass is added to a scheduler
var ErrAlreadyScheduled = errors.New("pass already scheduled")

// Pass runs one harvest pass
type Pass func(ctx context.Context) error

// parser accepts 5-field expressions, an optional leading seconds field and
// descriptors such as "@every 5m"
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// CronScheduler repeats a pass on a cron schedule. A tick that fires while
// the previous pass is still running is skipped.
type CronScheduler struct {
	logger *zap.Logger
	cron   *cron.Cron

	mu      sync.Mutex
	entryID cron.EntryID
	ctx     context.Context
	lastRun time.Time
	lastErr error
	runs    int
}

// cronLogger adapts zap.Logger to cron.Logger
type cronLogger struct {
	logger *zap.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, zap.Any("details", keysAndValues))
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, zap.Error(err), zap.Any("details", keysAndValues))
}

// NewCronScheduler creates a new scheduler
func NewCronScheduler(logger *zap.Logger) *CronScheduler {
	logger = logger.Named("scheduler")
	cronLogger := &cronLogger{logger: logger.Named("cron")}
	cronOptions := []cron.Option{
		cron.WithParser(parser),
		cron.WithLogger(cronLogger),
		cron.WithChain(
			cron.Recover(cronLogger),
			cron.SkipIfStillRunning(cronLogger),
		),
	}

	return &CronScheduler{
		logger: logger,
		cron:   cron.New(cronOptions...),
		ctx:    context.Background(),
	}
}

// Schedule registers pass under expression
func (s *CronScheduler) Schedule(expression string, pass Pass) error {
	spec, err := parser.Parse(expression)
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entryID != 0 {
		return ErrAlreadyScheduled
	}

	entryID, err := s.cron.AddJob(expression, &cronJob{scheduler: s, pass: pass})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	s.entryID = entryID

	s.logger.Info("Scheduled harvest pass",
		zap.String("expression", expression),
		zap.Time("next_run", spec.Next(time.Now())))
	return nil
}

// Start starts the scheduler. Passes receive ctx.
func (s *CronScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("Scheduler started")
}

// Stop stops the scheduler and waits for a running pass to return
func (s *CronScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

// Next returns the next activation time, or zero when nothing is scheduled
func (s *CronScheduler) Next() time.Time {
	s.mu.Lock()
	id := s.entryID
	s.mu.Unlock()
	if id == 0 {
		return time.Time{}
	}
	return s.cron.Entry(id).Next
}

// RunInfo describes the passes executed so far
type RunInfo struct {
	Count    int
	Finished time.Time
	Err      error
}

// LastRun returns the outcome of the last pass
func (s *CronScheduler) LastRun() RunInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return RunInfo{Count: s.runs, Finished: s.lastRun, Err: s.lastErr}
}

// cronJob implements cron.Job interface
type cronJob struct {
	scheduler *CronScheduler
	pass      Pass
}

// Run implements cron.Job
func (j *cronJob) Run() {
	s := j.scheduler

	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx.Err() != nil {
		s.logger.Info("Skipping pass after shutdown")
		return
	}

	start := time.Now()
	err := j.pass(ctx)
	end := time.Now()

	s.mu.Lock()
	s.lastRun = end
	s.lastErr = err
	s.runs++
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Harvest pass failed",
			zap.Duration("elapsed", end.Sub(start)),
			zap.Error(err))
		return
	}
	s.logger.Info("Executed harvest pass",
		zap.Duration("elapsed", end.Sub(start)),
		zap.Time("next_run", s.Next()))
}
