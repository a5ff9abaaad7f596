// Package scheduler runs periodic corpus warm-ups on a cron schedule.
package scheduler

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler triggers a job on a standard cron spec ("*/10 * * * *") or a
// descriptor such as "@every 15m".
type Scheduler struct {
	cron    *cron.Cron
	entryID cron.EntryID
	logger  *slog.Logger
}

// New creates a scheduler running job on spec. Overlapping runs are skipped.
func New(spec string, job func(), logger *slog.Logger) (*Scheduler, error) {
	if job == nil {
		return nil, errors.New("scheduler: job must not be nil")
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("scheduler: invalid spec %q: %w", spec, err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	s := &Scheduler{cron: c, logger: logger}
	id, err := c.AddFunc(spec, func() {
		start := time.Now()
		job()
		logger.Debug("scheduler: job finished", slog.String("spec", spec), slog.Duration("took", time.Since(start)))
	})
	if err != nil {
		return nil, fmt.Errorf("scheduler: add job: %w", err)
	}
	s.entryID = id
	return s, nil
}

// Start begins cron execution in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler: started", slog.Time("next", s.Next()))
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Next returns the next activation time, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entryID).Next
}
