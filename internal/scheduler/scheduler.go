package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"FinAdvisor/pkg/logger"
)

// Job is a unit of periodic work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs jobs on cron schedules. A job still running when its next
// tick fires is skipped rather than stacked.
type Scheduler struct {
	cron *cron.Cron
	log  *logger.Logger
	ctx  context.Context
	stop context.CancelFunc
}

func New(log *logger.Logger) *Scheduler {
	log = log.With(logger.String("component", "scheduler"))
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger{log}),
			cron.SkipIfStillRunning(cronLogger{log}),
		)),
		log:  log,
		ctx:  ctx,
		stop: cancel,
	}
}

// AddJob registers job under schedule: five-field cron or a descriptor such
// as "@every 1m" or "@hourly".
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() { s.run(job) })
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", job.Name(), schedule, err)
	}
	s.log.Info("job registered", logger.String("job", job.Name()), logger.String("schedule", schedule))
	return nil
}

// RunNow executes job once outside its schedule.
func (s *Scheduler) RunNow(job Job) error {
	return job.Run(s.ctx)
}

func (s *Scheduler) run(job Job) {
	start := time.Now()
	if err := job.Run(s.ctx); err != nil {
		s.log.Error("job failed", logger.String("job", job.Name()), logger.Error(err))
		return
	}
	s.log.Debug("job completed", logger.String("job", job.Name()), logger.Duration("elapsed_ms", time.Since(start)))
}

// Start begins firing schedules. Jobs run with a context that is cancelled
// by Stop, not by ctx.
func (s *Scheduler) Start(_ context.Context) error {
	s.cron.Start()
	s.log.Info("scheduler started", logger.Int("jobs", len(s.cron.Entries())))
	return nil
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() error {
	s.stop()
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
	return nil
}

// cronLogger adapts the app logger to cron.Logger.
type cronLogger struct{ l *logger.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append(kvFields(keysAndValues), logger.Error(err))...)
}

func kvFields(kv []interface{}) []logger.Field {
	out := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, logger.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}
