// Package schedule triggers scrapes on a cron schedule.
//
// Specs use the standard five-field cron syntax or descriptors such as @daily and
// @every 6h, evaluated in UTC. A run that is still going when the next one is due causes
// that tick to be skipped, so scrapes never overlap.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pfrederiksen/high-lakes/internal/logger"
	"github.com/robfig/cron/v3"
)

// DefaultSpec runs once a day at midnight UTC
const DefaultSpec = "@daily"

// Job is the unit of work run on every tick
type Job func(ctx context.Context) error

// Scheduler runs a Job on a cron schedule until its context is cancelled
type Scheduler struct {
	spec       string
	schedule   cron.Schedule
	job        Job
	runAtStart bool
	log        *logger.Logger
}

// New validates spec and returns a scheduler for job
func New(spec string, job Job, runAtStart bool) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parsing schedule %q: %w", spec, err)
	}
	return &Scheduler{
		spec:       spec,
		schedule:   sched,
		job:        job,
		runAtStart: runAtStart,
		log:        logger.WithComponent("schedule"),
	}, nil
}

// Next returns the first scheduled time after t
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.UTC())
}

// Run blocks until ctx is cancelled, then waits for a run in progress to finish
func (s *Scheduler) Run(ctx context.Context) error {
	cl := cronLogger{log: s.log}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	id := c.Schedule(s.schedule, cron.FuncJob(func() { s.runOnce(ctx) }))

	s.log.Info("Scheduler started", logger.Fields{
		"spec":         s.spec,
		"next":         s.Next(time.Now()).Format(time.RFC3339),
		"run_at_start": s.runAtStart,
	})
	c.Start()

	// cron only waits for jobs it started itself
	var atStart sync.WaitGroup
	if s.runAtStart {
		atStart.Add(1)
		go func() {
			defer atStart.Done()
			// The wrapped job shares the skip chain with scheduled ticks
			c.Entry(id).WrappedJob.Run()
		}()
	}

	<-ctx.Done()
	s.log.Info("Scheduler stopping, waiting for running scrape", nil)
	<-c.Stop().Done()
	atStart.Wait()
	return nil
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	logger.IncrCounter("schedule.runs")
	err := s.job(ctx)
	logger.Time("schedule.run", start)

	if err != nil {
		logger.IncrCounter("schedule.failures")
		s.log.Error("Scheduled run failed", logger.Fields{
			"duration": time.Since(start).String(),
		}, err)
	} else {
		s.log.Info("Scheduled run finished", logger.Fields{
			"duration": time.Since(start).String(),
		})
	}

	s.log.Info("Next scheduled run", logger.Fields{
		"next": s.Next(time.Now()).Format(time.RFC3339),
	})
}

// cronLogger adapts the package logger to cron.Logger
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, fields(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, fields(keysAndValues), err)
}

func fields(keysAndValues []interface{}) logger.Fields {
	f := logger.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		f[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return f
}
